package store

import (
	"errors"
	"time"

	"ecolearn-engine/models"
	"ecolearn-engine/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the durable postgres-backed implementation.
type GormStore struct {
	DB *gorm.DB
}

var _ Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) Name() string { return "postgres" }

func (s *GormStore) GetUser(id string) (models.EngineUser, error) {
	var u models.EngineUser
	if err := s.DB.First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return u, ErrNotFound
		}
		return u, err
	}
	return u, nil
}

func (s *GormStore) ListStudents(scope Scope) ([]models.EngineUser, error) {
	q := s.DB.Where("role = ?", models.RoleStudent)
	if scope.SchoolID != "" {
		q = q.Where("school_id = ?", scope.SchoolID)
	}
	if scope.Region != "" {
		q = q.Where("school_id IN (?)",
			s.DB.Model(&models.School{}).Select("id").Where("region = ?", scope.Region))
	}
	var users []models.EngineUser
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// UpsertUser merges identity fields only; progression columns are never
// touched here so a sync cannot clobber earned points.
func (s *GormStore) UpsertUser(u models.EngineUser) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.EngineUser
		err := tx.First(&existing, "id = ?", u.ID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if u.Level == 0 {
				u.Level = 1
			}
			return tx.Create(&u).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&existing).Updates(map[string]interface{}{
			"name":                     u.Name,
			"role":                     u.Role,
			"school_id":                u.SchoolID,
			"grade_level":              u.GradeLevel,
			"has_completed_onboarding": u.HasCompletedOnboarding,
			"preferences":              u.Preferences,
		}).Error
	})
}

// MutateUser reads the user row FOR UPDATE so concurrent mutations of
// the same user serialize instead of losing an increment at read
// committed isolation.
func (s *GormStore) MutateUser(id string, fn func(*models.EngineUser) error) (models.EngineUser, error) {
	var out models.EngineUser
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var u models.EngineUser
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&u, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := fn(&u); err != nil {
			return err
		}
		if err := tx.Save(&u).Error; err != nil {
			return err
		}
		out = u
		return nil
	})
	return out, err
}

func (s *GormStore) GetChallenge(id string) (models.Challenge, error) {
	var ch models.Challenge
	if err := s.DB.First(&ch, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ch, ErrNotFound
		}
		return ch, err
	}
	return ch, nil
}

func (s *GormStore) ListChallenges() ([]models.Challenge, error) {
	var chs []models.Challenge
	if err := s.DB.Order("id ASC").Find(&chs).Error; err != nil {
		return nil, err
	}
	return chs, nil
}

func (s *GormStore) SaveChallenge(ch models.Challenge) error {
	return s.DB.Save(&ch).Error
}

func (s *GormStore) CountChallenges() (int64, error) {
	var n int64
	err := s.DB.Model(&models.Challenge{}).Count(&n).Error
	return n, err
}

func (s *GormStore) SaveSchool(sc models.School) error {
	return s.DB.Save(&sc).Error
}

func (s *GormStore) CreateSubmission(sub models.Submission) (models.Submission, error) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		// Perceptual near-matches cannot back a unique index, so the
		// check-then-insert runs under a transaction-scoped advisory
		// lock keyed on (user, challenge). Concurrent identical
		// uploads serialize and the second one hits ErrDuplicate.
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))",
			sub.UserID+"/"+sub.ChallengeID).Error; err != nil {
			return err
		}
		// Fingerprint uniqueness among the user's non-rejected
		// submissions for this challenge. Candidate rows are few (one
		// user, one challenge) so they are compared in memory.
		var existing []models.Submission
		if err := tx.Select("fingerprint").
			Where("user_id = ? AND challenge_id = ? AND status <> ?",
				sub.UserID, sub.ChallengeID, models.StatusRejected).
			Find(&existing).Error; err != nil {
			return err
		}
		for _, e := range existing {
			if utils.SameProof(sub.Fingerprint, e.Fingerprint) {
				return ErrDuplicate
			}
		}
		return tx.Create(&sub).Error
	})
	if err != nil {
		return models.Submission{}, err
	}
	return sub, nil
}

func (s *GormStore) GetSubmission(id string) (models.Submission, error) {
	var sub models.Submission
	if err := s.DB.First(&sub, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return sub, ErrNotFound
		}
		return sub, err
	}
	return sub, nil
}

// DecideSubmission is a conditional update guarded on status; when two
// verifiers race, exactly one UPDATE matches and the loser sees
// ErrAlreadyDecided.
func (s *GormStore) DecideSubmission(id string, verifierID *string, status, comments string, points int, decidedAt time.Time) (models.Submission, error) {
	var out models.Submission
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Submission{}).
			Where("id = ? AND status = ?", id, models.StatusPending).
			Updates(map[string]interface{}{
				"status":         status,
				"verifier_id":    verifierID,
				"comments":       comments,
				"points_awarded": points,
				"decided_at":     decidedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var probe models.Submission
			if err := tx.First(&probe, "id = ?", id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrNotFound
				}
				return err
			}
			return ErrAlreadyDecided
		}
		return tx.First(&out, "id = ?", id).Error
	})
	if err != nil {
		return models.Submission{}, err
	}
	return out, nil
}

// CreditSubmission applies the award mutation to the submitter and
// flips points_credited in one transaction. Both rows are locked FOR
// UPDATE; an already-credited submission returns credited=false with
// the user untouched, so replays after a crash are safe.
func (s *GormStore) CreditSubmission(id string, fn func(*models.EngineUser) error) (models.EngineUser, bool, error) {
	var out models.EngineUser
	credited := false
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var sub models.Submission
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&sub, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		var u models.EngineUser
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&u, "id = ?", sub.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if sub.Status != models.StatusApproved || sub.PointsCredited {
			out = u
			return nil
		}
		if err := fn(&u); err != nil {
			return err
		}
		if err := tx.Save(&u).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Submission{}).
			Where("id = ?", id).
			Update("points_credited", true).Error; err != nil {
			return err
		}
		out = u
		credited = true
		return nil
	})
	if err != nil {
		return models.EngineUser{}, false, err
	}
	return out, credited, nil
}

func (s *GormStore) ListUncredited() ([]models.Submission, error) {
	var subs []models.Submission
	if err := s.DB.Where("status = ? AND points_credited = ?", models.StatusApproved, false).
		Order("decided_at ASC").
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func (s *GormStore) ListPending(scope PendingScope) ([]models.Submission, error) {
	q := s.DB.Where("submissions.status = ?", models.StatusPending)
	if len(scope.Validations) > 0 {
		q = q.Joins("JOIN challenges ON challenges.id = submissions.challenge_id").
			Where("challenges.validation IN ?", scope.Validations)
	}
	if scope.SchoolID != "" {
		q = q.Joins("JOIN engine_users ON engine_users.id = submissions.user_id").
			Where("engine_users.school_id = ?", scope.SchoolID)
	}
	var subs []models.Submission
	if err := q.Order("submissions.submitted_at ASC").Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func (s *GormStore) ListByUser(userID string) ([]models.Submission, error) {
	var subs []models.Submission
	if err := s.DB.Where("user_id = ?", userID).
		Order("submitted_at DESC").
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func (s *GormStore) PointsAwardedSince(since time.Time) (map[string]int, error) {
	type row struct {
		UserID string
		Total  int
	}
	var rows []row
	err := s.DB.Model(&models.Submission{}).
		Select("user_id, SUM(points_awarded) AS total").
		Where("status = ? AND decided_at >= ?", models.StatusApproved, since).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.UserID] = r.Total
	}
	return out, nil
}

func (s *GormStore) ListUserBadges(userID string) ([]models.UserBadge, error) {
	var badges []models.UserBadge
	if err := s.DB.Where("user_id = ?", userID).
		Order("awarded_at ASC").
		Find(&badges).Error; err != nil {
		return nil, err
	}
	return badges, nil
}

func (s *GormStore) AwardBadge(b models.UserBadge) (bool, error) {
	awarded := false
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.UserBadge{}).
			Where("user_id = ? AND badge_code = ?", b.UserID, b.BadgeCode).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		if err := tx.Create(&b).Error; err != nil {
			return err
		}
		awarded = true
		return nil
	})
	return awarded, err
}
