package models

import (
	"time"

	"gorm.io/gorm"
)

// Roles recognized by the engine. Identity is owned by the profile
// service; the engine only reads these fields.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
	RoleNGO     = "ngo"
)

// Preferences is the onboarding survey vector used by the
// personalization filter. Empty until onboarding completes.
type Preferences struct {
	Interests      []string `json:"interests"`
	TimeCommitment string   `json:"time_commitment"` // 15_mins, 30_mins, 1_hour_plus
	Location       string   `json:"location"`        // urban, semi_urban, rural
	EcoFocus       []string `json:"eco_focus"`
}

// EngineUser is a local snapshot of user data needed by the engine.
// Identity fields are populated via sync worker from the profile service;
// points, level, streak and lastActiveDate are owned and mutated here as
// a side effect of approved submissions.
type EngineUser struct {
	ID                     string       `gorm:"primaryKey" json:"id"`
	Name                   string       `json:"name"`
	Role                   string       `gorm:"index;not null" json:"role"`
	SchoolID               string       `gorm:"index" json:"school_id"`
	GradeLevel             string       `json:"grade_level"` // primary, secondary, senior, college, all
	HasCompletedOnboarding bool         `gorm:"default:false" json:"has_completed_onboarding"`
	Preferences            *Preferences `gorm:"serializer:json;type:jsonb" json:"preferences,omitempty"`

	// Progression (owned by this service)
	Points         int        `gorm:"default:0" json:"points"`
	Level          int        `gorm:"default:1" json:"level"`
	StreakCount    int        `gorm:"default:0" json:"streak_count"`
	LastActiveDate *time.Time `json:"last_active_date,omitempty"` // date-only, UTC

	Timestamps
}

// InterestTags flattens interests and eco focus for relevance matching.
func (u *EngineUser) InterestTags() []string {
	if u.Preferences == nil {
		return nil
	}
	tags := make([]string, 0, len(u.Preferences.Interests)+len(u.Preferences.EcoFocus))
	tags = append(tags, u.Preferences.Interests...)
	tags = append(tags, u.Preferences.EcoFocus...)
	return tags
}

// School is reference data from the content catalog, kept locally so
// leaderboard scopes (school, region) can be resolved without a remote call.
type School struct {
	ID     string `gorm:"primaryKey" json:"id"`
	Name   string `json:"name"`
	Region string `gorm:"index" json:"region"`
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
