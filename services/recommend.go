package services

import (
	"fmt"
	"sort"
	"strings"

	"ecolearn-engine/models"
	"ecolearn-engine/store"

	"github.com/gofiber/fiber/v2"
)

const maxRecommendations = 6

type RecommendService struct {
	Store store.Store
}

func NewRecommendService(st store.Store) *RecommendService {
	return &RecommendService{Store: st}
}

// Recommendation pairs a challenge with a human-readable reason for
// the suggestion.
type Recommendation struct {
	Challenge models.Challenge `json:"challenge"`
	Reason    string           `json:"reason"`
}

// Recommend builds the personalized challenge list. Users who have not
// finished onboarding get an empty list; the handler tells the client
// to finish the survey first.
//
// Eligibility: grade match, currently open, and hard challenges are
// held back unless the user committed an hour or more. Relevance is
// the count of personalization tags overlapping the user's interest
// tags; rural users additionally drop irrelevant non-rural challenges.
func (s *RecommendService) Recommend(u models.EngineUser) ([]Recommendation, error) {
	if !u.HasCompletedOnboarding || u.Preferences == nil {
		return []Recommendation{}, nil
	}

	challenges, err := s.Store.ListChallenges()
	if err != nil {
		return nil, err
	}

	tags := u.InterestTags()
	now := nowFunc().UTC()
	rural := u.Preferences.Location == "rural"

	type scored struct {
		ch    models.Challenge
		score int
	}
	var candidates []scored

	for _, ch := range challenges {
		if !ch.ForGrade(u.GradeLevel) || !ch.IsOpenAt(now) {
			continue
		}
		if ch.Difficulty == "hard" && u.Preferences.TimeCommitment != "1_hour_plus" {
			continue
		}
		score := relevanceScore(ch, tags)
		if rural && score == 0 && !ruralRelevant(ch) {
			continue
		}
		candidates = append(candidates, scored{ch: ch, score: score})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].ch.ID < candidates[j].ch.ID
	})
	if len(candidates) > maxRecommendations {
		candidates = candidates[:maxRecommendations]
	}

	recs := make([]Recommendation, 0, len(candidates))
	for _, cand := range candidates {
		recs = append(recs, Recommendation{
			Challenge: cand.ch,
			Reason:    reasonFor(cand.ch, cand.score, tags, rural),
		})
	}
	return recs, nil
}

// relevanceScore counts personalization tags that overlap the user's
// interest tags. Matching is case-insensitive substring in both
// directions, so "waste" matches "Waste Management".
func relevanceScore(ch models.Challenge, tags []string) int {
	score := 0
	for _, p := range ch.PersonalizedFor {
		for _, t := range tags {
			if tagMatch(p, t) {
				score++
				break
			}
		}
	}
	return score
}

func tagMatch(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	return strings.Contains(la, lb) || strings.Contains(lb, la)
}

// ruralRelevant keeps water and explicitly rural challenges in rural
// users' lists even without an interest match.
func ruralRelevant(ch models.Challenge) bool {
	return strings.Contains(strings.ToLower(ch.Title), "rural") ||
		strings.Contains(ch.Category, "Water")
}

func reasonFor(ch models.Challenge, score int, tags []string, rural bool) string {
	if score > 0 {
		for _, p := range ch.PersonalizedFor {
			for _, t := range tags {
				if tagMatch(p, t) {
					return fmt.Sprintf("Matches your interest in %s", t)
				}
			}
		}
	}
	if rural && ruralRelevant(ch) {
		return "Perfect for rural areas"
	}
	if ch.Difficulty == "easy" {
		return "Quick and easy to complete"
	}
	return "Recommended for you"
}

// GetRecommendations handles GET /challenges/recommendations.
func (s *RecommendService) GetRecommendations(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	u, err := s.Store.GetUser(userID)
	if err != nil {
		return respondStoreErr(c, err)
	}

	recs, err := s.Recommend(u)
	if err != nil {
		return respondStoreErr(c, err)
	}
	if !u.HasCompletedOnboarding || u.Preferences == nil {
		return c.JSON(fiber.Map{
			"onboarding_required": true,
			"recommendations":     recs,
		})
	}
	return c.JSON(fiber.Map{
		"onboarding_required": false,
		"recommendations":     recs,
	})
}
