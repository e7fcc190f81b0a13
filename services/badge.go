package services

import (
	"ecolearn-engine/models"
	"ecolearn-engine/store"
	"ecolearn-engine/utils"
)

type BadgeService struct {
	Store store.Store
}

func NewBadgeService(st store.Store) *BadgeService {
	return &BadgeService{Store: st}
}

// AutoAwardBadges checks all badge triggers against a user's current
// progression state. Awarding is idempotent per user+code.
func (s *BadgeService) AutoAwardBadges(u models.EngineUser) error {
	for _, trigger := range models.BadgeTriggers {
		if !meetsThreshold(u, trigger.Threshold) {
			continue
		}
		awarded, err := s.Store.AwardBadge(models.UserBadge{
			UserID:    u.ID,
			BadgeCode: trigger.Code,
		})
		if err != nil {
			return err
		}
		if awarded {
			utils.Sugar.Infow("badge awarded", "user_id", u.ID, "badge", trigger.Code)
		}
	}
	return nil
}

func meetsThreshold(u models.EngineUser, req map[string]int64) bool {
	for key, required := range req {
		switch key {
		case "points":
			if int64(u.Points) < required {
				return false
			}
		case "level":
			if int64(u.Level) < required {
				return false
			}
		case "streak":
			if int64(u.StreakCount) < required {
				return false
			}
		case "event":
			// fires on any progression update, nothing to compare
		}
	}
	return true
}
