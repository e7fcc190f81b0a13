package services

import (
	"time"

	"ecolearn-engine/models"
	"ecolearn-engine/store"
	"ecolearn-engine/utils"

	"github.com/gofiber/fiber/v2"
)

// nowFunc is swapped out by tests that need a fixed clock. All streak
// and window math runs on UTC calendar days.
var nowFunc = time.Now

type ProgressionService struct {
	Store  store.Store
	Badges *BadgeService
}

func NewProgressionService(st store.Store, badges *BadgeService) *ProgressionService {
	return &ProgressionService{Store: st, Badges: badges}
}

// ApplyApproval credits an approved submission's award to the user:
// increments points, recomputes level, advances the streak and stamps
// lastActiveDate. The credit and the submission's credited marker move
// in one store operation, so a replay of the same submission (crash
// recovery, double call) is a no-op.
func (s *ProgressionService) ApplyApproval(submissionID string, points int) (models.EngineUser, error) {
	u, credited, err := s.Store.CreditSubmission(submissionID, func(u *models.EngineUser) error {
		u.Points += points
		u.Level = models.LevelFor(u.Points).Level
		touchStreak(u, nowFunc().UTC())
		return nil
	})
	if err != nil {
		return models.EngineUser{}, err
	}
	if !credited {
		return u, nil
	}

	if s.Badges != nil {
		// badge failures never roll back an award
		_ = s.Badges.AutoAwardBadges(u)
	}

	utils.Sugar.Infow("points awarded",
		"user_id", u.ID, "submission_id", submissionID, "points", points,
		"total", u.Points, "level", u.Level, "streak", u.StreakCount)
	return u, nil
}

// ReconcileUncredited replays awards for approved submissions whose
// points never reached the user, typically after a crash between the
// decision and the credit. Runs once at boot.
func (s *ProgressionService) ReconcileUncredited() error {
	subs, err := s.Store.ListUncredited()
	if err != nil {
		return err
	}
	for _, sub := range subs {
		if _, err := s.ApplyApproval(sub.ID, sub.PointsAwarded); err != nil {
			utils.Sugar.Errorw("failed to replay uncredited award",
				"submission_id", sub.ID, "error", err)
			return err
		}
	}
	if len(subs) > 0 {
		utils.Sugar.Infow("replayed uncredited awards", "count", len(subs))
	}
	return nil
}

// GrantExternal credits points earned outside the submission path
// (completed lessons, campaign rewards). Points and level move; the
// streak is an engagement measure tied to submissions and stays put.
func (s *ProgressionService) GrantExternal(userID string, points int, reason string) (models.EngineUser, error) {
	u, err := s.Store.MutateUser(userID, func(u *models.EngineUser) error {
		u.Points += points
		u.Level = models.LevelFor(u.Points).Level
		return nil
	})
	if err != nil {
		return models.EngineUser{}, err
	}
	if s.Badges != nil {
		_ = s.Badges.AutoAwardBadges(u)
	}
	utils.Sugar.Infow("external points granted",
		"user_id", u.ID, "points", points, "reason", reason, "total", u.Points)
	return u, nil
}

// touchStreak applies the calendar-day streak rule: +1 when the user
// was last active yesterday, reset to 1 after a gap, no change when
// today already counted.
func touchStreak(u *models.EngineUser, now time.Time) {
	today := dateOnly(now)
	switch {
	case u.LastActiveDate == nil:
		u.StreakCount = 1
	case dateOnly(*u.LastActiveDate).Equal(today):
		// already counted today
	case dateOnly(*u.LastActiveDate).Equal(today.AddDate(0, 0, -1)):
		u.StreakCount++
	default:
		u.StreakCount = 1
	}
	u.LastActiveDate = &today
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// GetProgress returns the caller's progression snapshot with the level
// title/color from the threshold table.
func (s *ProgressionService) GetProgress(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	u, err := s.Store.GetUser(userID)
	if err != nil {
		return respondStoreErr(c, err)
	}
	lt := models.LevelFor(u.Points)
	return c.JSON(fiber.Map{
		"user_id":          u.ID,
		"points":           u.Points,
		"level":            u.Level,
		"level_title":      lt.Title,
		"level_color":      lt.Color,
		"streak_count":     u.StreakCount,
		"last_active_date": u.LastActiveDate,
	})
}

// GetBadges returns the caller's earned badges joined with the static
// badge config.
func (s *ProgressionService) GetBadges(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	earned, err := s.Store.ListUserBadges(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to get badges"})
	}

	byCode := make(map[string]models.BadgeType, len(models.BadgeTriggers))
	for _, bt := range models.BadgeTriggers {
		byCode[bt.Code] = bt
	}

	response := make([]fiber.Map, 0, len(earned))
	for _, b := range earned {
		bt := byCode[b.BadgeCode]
		response = append(response, fiber.Map{
			"code":        b.BadgeCode,
			"name":        bt.Name,
			"description": bt.Description,
			"rarity":      bt.Rarity,
			"awarded_at":  b.AwardedAt,
		})
	}
	return c.JSON(response)
}

// Grant is the admin endpoint for external point awards.
func (s *ProgressionService) Grant(c *fiber.Ctx) error {
	callerID := c.Locals("user_id").(string)
	caller, err := s.Store.GetUser(callerID)
	if err != nil {
		return respondStoreErr(c, err)
	}
	if caller.Role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin role required"})
	}

	type Req struct {
		UserID string `json:"user_id" validate:"required"`
		Points int    `json:"points" validate:"required,min=1"`
		Reason string `json:"reason" validate:"max=255"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	u, err := s.GrantExternal(req.UserID, req.Points, req.Reason)
	if err != nil {
		return respondStoreErr(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "points granted",
		"user_id": u.ID,
		"points":  u.Points,
		"level":   u.Level,
	})
}
