package services

import (
	"fmt"
	"testing"
	"time"

	"ecolearn-engine/models"
	"ecolearn-engine/store"
)

func newRecommendFixture(t *testing.T, challenges []models.Challenge) *RecommendService {
	t.Helper()
	st := store.NewMemStore(func(a, b string) bool { return a == b })
	for _, ch := range challenges {
		if err := st.SaveChallenge(ch); err != nil {
			t.Fatal(err)
		}
	}
	return NewRecommendService(st)
}

func recChallenge(id, title, category, difficulty string, grades, personalizedFor []string) models.Challenge {
	return models.Challenge{
		ID: id, Title: title, Category: category, Difficulty: difficulty,
		GradeLevels: grades, PersonalizedFor: personalizedFor,
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	}
}

func onboardedStudent(interests []string, location, timeCommitment string) models.EngineUser {
	return models.EngineUser{
		ID: "u1", Role: models.RoleStudent, GradeLevel: "secondary",
		HasCompletedOnboarding: true,
		Preferences: &models.Preferences{
			Interests:      interests,
			TimeCommitment: timeCommitment,
			Location:       location,
		},
	}
}

func TestRecommendEmptyBeforeOnboarding(t *testing.T) {
	fixedClock(t, time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	svc := newRecommendFixture(t, []models.Challenge{
		recChallenge("1", "Compost Drive", "Waste Management", "easy", []string{"all"}, nil),
	})

	recs, err := svc.Recommend(models.EngineUser{ID: "u1", GradeLevel: "secondary"})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Errorf("recommendations before onboarding = %d, want 0", len(recs))
	}
}

func TestRecommendInterestOrdering(t *testing.T) {
	fixedClock(t, time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	svc := newRecommendFixture(t, []models.Challenge{
		recChallenge("1", "Compost Drive", "Waste Management", "easy",
			[]string{"secondary"}, []string{"waste", "recycling"}),
		recChallenge("2", "Bird Watching", "Biodiversity", "easy",
			[]string{"secondary"}, []string{"wildlife"}),
		recChallenge("3", "Segregation Audit", "Waste Management", "medium",
			[]string{"secondary"}, []string{"waste"}),
	})

	recs, err := svc.Recommend(onboardedStudent([]string{"Waste Management", "Recycling"}, "urban", "30_mins"))
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Fatalf("recommendations = %d, want 3", len(recs))
	}
	// two tag matches outrank one, one outranks zero
	if recs[0].Challenge.ID != "1" || recs[1].Challenge.ID != "3" || recs[2].Challenge.ID != "2" {
		t.Errorf("order = [%s %s %s], want [1 3 2]",
			recs[0].Challenge.ID, recs[1].Challenge.ID, recs[2].Challenge.ID)
	}
	if recs[0].Reason == "" || recs[0].Reason == "Recommended for you" {
		t.Errorf("matched challenge reason = %q, want an interest mention", recs[0].Reason)
	}
}

func TestRecommendFiltersGradeWindowAndDifficulty(t *testing.T) {
	fixedClock(t, time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	closed := recChallenge("closed", "Old Drive", "Waste Management", "easy", []string{"secondary"}, nil)
	closed.EndDate = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	svc := newRecommendFixture(t, []models.Challenge{
		recChallenge("ok", "Compost Drive", "Waste Management", "easy", []string{"all"}, nil),
		recChallenge("wrong-grade", "College Summit", "Advocacy", "easy", []string{"college"}, nil),
		recChallenge("hard", "Solar Build", "Energy", "hard", []string{"secondary"}, nil),
		closed,
	})

	recs, err := svc.Recommend(onboardedStudent(nil, "urban", "30_mins"))
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Challenge.ID != "ok" {
		t.Errorf("recommendations = %+v, want only 'ok'", recs)
	}

	// an hour-plus commitment unlocks hard challenges
	recs, err = svc.Recommend(onboardedStudent(nil, "urban", "1_hour_plus"))
	if err != nil {
		t.Fatal(err)
	}
	ids := map[string]bool{}
	for _, r := range recs {
		ids[r.Challenge.ID] = true
	}
	if !ids["hard"] {
		t.Errorf("hard challenge missing for 1_hour_plus user: %v", ids)
	}
}

func TestRecommendRuralFilter(t *testing.T) {
	fixedClock(t, time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	svc := newRecommendFixture(t, []models.Challenge{
		recChallenge("water", "Well Restoration", "Water Conservation", "easy", []string{"all"}, nil),
		recChallenge("rural", "Rural Composting", "Waste Management", "easy", []string{"all"}, nil),
		recChallenge("city", "Metro Cleanup", "Waste Management", "easy", []string{"all"}, nil),
		recChallenge("matched", "Plastic Audit", "Waste Management", "easy", []string{"all"}, []string{"waste"}),
	})

	recs, err := svc.Recommend(onboardedStudent([]string{"waste"}, "rural", "30_mins"))
	if err != nil {
		t.Fatal(err)
	}
	ids := map[string]string{}
	for _, r := range recs {
		ids[r.Challenge.ID] = r.Reason
	}
	if _, ok := ids["city"]; ok {
		t.Error("irrelevant urban challenge kept for rural user")
	}
	for _, want := range []string{"water", "rural", "matched"} {
		if _, ok := ids[want]; !ok {
			t.Errorf("challenge %q missing for rural user: %v", want, ids)
		}
	}
	if ids["water"] != "Perfect for rural areas" {
		t.Errorf("water reason = %q, want rural reason", ids["water"])
	}
}

func TestRecommendCap(t *testing.T) {
	fixedClock(t, time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	var challenges []models.Challenge
	for i := 0; i < 10; i++ {
		challenges = append(challenges,
			recChallenge(fmt.Sprintf("c%02d", i), fmt.Sprintf("Challenge %d", i), "Misc", "easy", []string{"all"}, nil))
	}
	svc := newRecommendFixture(t, challenges)

	recs, err := svc.Recommend(onboardedStudent(nil, "urban", "30_mins"))
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != maxRecommendations {
		t.Errorf("recommendations = %d, want %d", len(recs), maxRecommendations)
	}
}
