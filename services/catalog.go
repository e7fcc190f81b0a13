package services

import (
	"time"

	"ecolearn-engine/models"
	"ecolearn-engine/store"
	"ecolearn-engine/utils"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofiber/fiber/v2"
)

// CatalogService serves the local challenge catalog copy and keeps the
// cached open flag in line with each challenge's submission window.
type CatalogService struct {
	Store store.Store
}

func NewCatalogService(st store.Store) *CatalogService {
	return &CatalogService{Store: st}
}

// SeedCatalog loads the bundled challenges and schools into an empty
// store. A store that already has challenges is left untouched, so a
// synced catalog is never clobbered.
func (s *CatalogService) SeedCatalog() error {
	count, err := s.Store.CountChallenges()
	if err != nil {
		return err
	}
	if count > 0 {
		utils.Sugar.Infow("catalog already present, skipping seed", "challenges", count)
		return nil
	}

	for _, school := range models.CatalogSchools {
		if err := s.Store.SaveSchool(school); err != nil {
			return err
		}
	}
	now := nowFunc().UTC()
	for _, ch := range models.CatalogChallenges {
		ch.Open = ch.IsOpenAt(now)
		if err := s.Store.SaveChallenge(ch); err != nil {
			return err
		}
	}
	utils.Sugar.Infow("catalog seeded",
		"challenges", len(models.CatalogChallenges), "schools", len(models.CatalogSchools))
	return nil
}

// SeedDemoUsers loads a small demo roster. Only used with the memory
// backend; postgres deployments get users from the sync worker.
func (s *CatalogService) SeedDemoUsers() error {
	users := []models.EngineUser{
		{
			ID: "u-arjun", Name: "Arjun Sharma", Role: models.RoleStudent,
			SchoolID: "school1", GradeLevel: "secondary",
			HasCompletedOnboarding: true,
			Preferences: &models.Preferences{
				Interests:      []string{"Waste Management", "Trees & Plantation"},
				TimeCommitment: "30_mins",
				Location:       "urban",
				EcoFocus:       []string{"waste"},
			},
		},
		{
			ID: "u-priya", Name: "Priya Nair", Role: models.RoleTeacher,
			SchoolID: "school1",
		},
		{
			ID: "u-admin", Name: "Platform Admin", Role: models.RoleAdmin,
		},
		{
			ID: "u-ngo", Name: "Green Earth NGO", Role: models.RoleNGO,
		},
	}
	for _, u := range users {
		if err := s.Store.UpsertUser(u); err != nil {
			return err
		}
	}
	utils.Sugar.Infow("demo users seeded", "count", len(users))
	return nil
}

// StartWindowScheduler flips each challenge's cached open flag as its
// submission window opens or closes. Admission checks call IsOpenAt
// directly; this job only keeps catalog listings cheap and fresh.
func (s *CatalogService) StartWindowScheduler() {
	sched, err := gocron.NewScheduler()
	if err != nil {
		utils.Sugar.Errorw("failed to start window scheduler", "error", err)
		return
	}
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			challenges, err := s.Store.ListChallenges()
			if err != nil {
				utils.Sugar.Errorw("window scheduler list failed", "error", err)
				return
			}
			now := nowFunc().UTC()
			for _, ch := range challenges {
				open := ch.IsOpenAt(now)
				if open == ch.Open {
					continue
				}
				ch.Open = open
				if err := s.Store.SaveChallenge(ch); err != nil {
					utils.Sugar.Errorw("window flip failed", "challenge_id", ch.ID, "error", err)
					continue
				}
				utils.Sugar.Infow("challenge window flipped", "challenge_id", ch.ID, "open", open)
			}
		}),
	)
}

// ListChallenges handles GET /challenges.
func (s *CatalogService) ListChallenges(c *fiber.Ctx) error {
	challenges, err := s.Store.ListChallenges()
	if err != nil {
		return respondStoreErr(c, err)
	}

	if c.Query("open") == "true" {
		now := nowFunc().UTC()
		filtered := challenges[:0]
		for _, ch := range challenges {
			if ch.IsOpenAt(now) {
				filtered = append(filtered, ch)
			}
		}
		challenges = filtered
	}
	return c.JSON(challenges)
}

// GetChallenge handles GET /challenges/:id.
func (s *CatalogService) GetChallenge(c *fiber.Ctx) error {
	ch, err := s.Store.GetChallenge(c.Params("id"))
	if err != nil {
		return respondStoreErr(c, err)
	}
	return c.JSON(ch)
}
