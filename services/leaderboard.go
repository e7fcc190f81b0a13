package services

import (
	"errors"
	"sort"
	"strings"
	"time"

	"ecolearn-engine/models"
	"ecolearn-engine/store"

	"github.com/gofiber/fiber/v2"
)

type LeaderboardService struct {
	Store store.Store
}

func NewLeaderboardService(st store.Store) *LeaderboardService {
	return &LeaderboardService{Store: st}
}

type LeaderboardEntry struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Points int    `json:"points"`
	Level  int    `json:"level"`
	Rank   int    `json:"rank"`
}

// ParseScope turns a scope query value into a store filter.
// Accepted forms: "", "global", "school:<id>", "region:<name>".
func ParseScope(raw string) (store.Scope, bool) {
	switch {
	case raw == "" || raw == "global":
		return store.Scope{}, true
	case strings.HasPrefix(raw, "school:"):
		return store.Scope{SchoolID: strings.TrimPrefix(raw, "school:")}, true
	case strings.HasPrefix(raw, "region:"):
		return store.Scope{Region: strings.TrimPrefix(raw, "region:")}, true
	default:
		return store.Scope{}, false
	}
}

// Rank builds the ranked student list for a scope and timeframe.
// Ordering is points descending with user id as the tie break, so rank
// assignment is ordinal and deterministic: equal-point users hold
// adjacent distinct ranks.
func (s *LeaderboardService) Rank(scope store.Scope, timeframe string) ([]LeaderboardEntry, error) {
	students, err := s.Store.ListStudents(scope)
	if err != nil {
		return nil, err
	}

	type ranked struct {
		user   models.EngineUser
		points int
	}
	rows := make([]ranked, 0, len(students))

	switch timeframe {
	case "", "all":
		for _, u := range students {
			rows = append(rows, ranked{user: u, points: u.Points})
		}
	case "7d", "30d":
		days := 7
		if timeframe == "30d" {
			days = 30
		}
		since := nowFunc().UTC().AddDate(0, 0, -days)
		windowed, err := s.Store.PointsAwardedSince(since)
		if err != nil {
			return nil, err
		}
		for _, u := range students {
			rows = append(rows, ranked{user: u, points: windowed[u.ID]})
		}
	default:
		return nil, fiber.NewError(fiber.StatusBadRequest, "timeframe must be all, 7d or 30d")
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].points != rows[j].points {
			return rows[i].points > rows[j].points
		}
		return rows[i].user.ID < rows[j].user.ID
	})

	entries := make([]LeaderboardEntry, 0, len(rows))
	for i, r := range rows {
		entries = append(entries, LeaderboardEntry{
			UserID: r.user.ID,
			Name:   r.user.Name,
			Points: r.points,
			Level:  r.user.Level,
			Rank:   i + 1,
		})
	}
	return entries, nil
}

// GetLeaderboard handles GET /leaderboard?scope=&timeframe=&limit=.
func (s *LeaderboardService) GetLeaderboard(c *fiber.Ctx) error {
	scope, ok := ParseScope(c.Query("scope"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "scope must be global, school:<id> or region:<name>"})
	}

	entries, err := s.Rank(scope, c.Query("timeframe"))
	if err != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}
		return respondStoreErr(c, err)
	}

	limit := c.QueryInt("limit", 50)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return c.JSON(fiber.Map{
		"scope":        scopeLabel(c.Query("scope")),
		"timeframe":    timeframeLabel(c.Query("timeframe")),
		"generated_at": time.Now().UTC(),
		"entries":      entries,
	})
}

func scopeLabel(raw string) string {
	if raw == "" {
		return "global"
	}
	return raw
}

func timeframeLabel(raw string) string {
	if raw == "" {
		return "all"
	}
	return raw
}
