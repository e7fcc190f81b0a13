package models

import "time"

// BadgeType: static config, checked against progression state after
// every points update.
type BadgeType struct {
	Code        string           // e.g., "FIRST_HUNDRED"
	Name        string           // "Century Club"
	Description string
	Rarity      string           // common, rare, epic, legendary
	Threshold   map[string]int64 // e.g., {"points": 100}, {"streak": 7}
}

// UserBadge: awarded instance (unique per user+code)
type UserBadge struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"index;not null" json:"user_id"`
	BadgeCode string    `gorm:"index;not null" json:"badge_code"`
	AwardedAt time.Time `gorm:"autoCreateTime" json:"awarded_at"`
}

// Predefined badge triggers
var BadgeTriggers = []BadgeType{
	{
		Code:        "WELCOME",
		Name:        "Welcome Aboard!",
		Description: "Joined the platform",
		Rarity:      "common",
		Threshold:   map[string]int64{"event": 1}, // awarded on first progress update
	},
	{
		Code:        "FIRST_HUNDRED",
		Name:        "Century Club",
		Description: "Earned 100 points",
		Rarity:      "common",
		Threshold:   map[string]int64{"points": 100},
	},
	{
		Code:        "ECO_PRACTITIONER",
		Name:        "Eco Practitioner",
		Description: "Reached level 3",
		Rarity:      "rare",
		Threshold:   map[string]int64{"level": 3},
	},
	{
		Code:        "WEEK_STREAK",
		Name:        "Consistency Counts",
		Description: "Kept a 7-day activity streak",
		Rarity:      "rare",
		Threshold:   map[string]int64{"streak": 7},
	},
	{
		Code:        "ECO_LEADER",
		Name:        "Eco Leader",
		Description: "Reached the top of the progression ladder",
		Rarity:      "epic",
		Threshold:   map[string]int64{"level": 5},
	},
}
