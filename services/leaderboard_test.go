package services

import (
	"testing"
	"time"

	"ecolearn-engine/models"
	"ecolearn-engine/store"
)

func newLeaderboardFixture(t *testing.T) *LeaderboardService {
	t.Helper()
	st := store.NewMemStore(func(a, b string) bool { return a == b })

	schools := []models.School{
		{ID: "s1", Name: "Green Valley", Region: "Maharashtra"},
		{ID: "s2", Name: "Riverside", Region: "Kerala"},
	}
	for _, sc := range schools {
		if err := st.SaveSchool(sc); err != nil {
			t.Fatal(err)
		}
	}

	users := []models.EngineUser{
		{ID: "a", Name: "Asha", Role: models.RoleStudent, SchoolID: "s1"},
		{ID: "b", Name: "Ravi", Role: models.RoleStudent, SchoolID: "s1"},
		{ID: "c", Name: "Meena", Role: models.RoleStudent, SchoolID: "s2"},
		{ID: "t", Name: "Teacher", Role: models.RoleTeacher, SchoolID: "s1"},
	}
	for _, u := range users {
		if err := st.UpsertUser(u); err != nil {
			t.Fatal(err)
		}
	}
	points := map[string]int{"a": 150, "b": 150, "c": 300, "t": 999}
	for id, p := range points {
		if _, err := st.MutateUser(id, func(u *models.EngineUser) error {
			u.Points = p
			u.Level = models.LevelFor(p).Level
			return nil
		}); err != nil {
			t.Fatal(err)
		}
	}
	return NewLeaderboardService(st)
}

func TestRankGlobal(t *testing.T) {
	svc := newLeaderboardFixture(t)

	entries, err := svc.Rank(store.Scope{}, "all")
	if err != nil {
		t.Fatal(err)
	}
	// students only, teacher's 999 never appears
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3 students", len(entries))
	}
	wantOrder := []string{"c", "a", "b"} // 300, then 150-tie broken by id
	for i, want := range wantOrder {
		if entries[i].UserID != want {
			t.Errorf("position %d = %s, want %s", i, entries[i].UserID, want)
		}
		if entries[i].Rank != i+1 {
			t.Errorf("rank at position %d = %d, want %d", i, entries[i].Rank, i+1)
		}
	}
}

func TestRankScoped(t *testing.T) {
	svc := newLeaderboardFixture(t)

	entries, err := svc.Rank(store.Scope{SchoolID: "s1"}, "all")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].UserID != "a" || entries[1].UserID != "b" {
		t.Errorf("school scope entries = %+v, want [a b]", entries)
	}

	entries, err = svc.Rank(store.Scope{Region: "Kerala"}, "all")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].UserID != "c" {
		t.Errorf("region scope entries = %+v, want [c]", entries)
	}
}

func TestRankWindowed(t *testing.T) {
	fixedClock(t, time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))

	st := store.NewMemStore(func(a, b string) bool { return a == b })
	for _, u := range []models.EngineUser{
		{ID: "a", Name: "Asha", Role: models.RoleStudent},
		{ID: "b", Name: "Ravi", Role: models.RoleStudent},
	} {
		if err := st.UpsertUser(u); err != nil {
			t.Fatal(err)
		}
	}
	if err := st.SaveChallenge(models.Challenge{ID: "c1", Validation: models.ValidationTeacherApproval}); err != nil {
		t.Fatal(err)
	}

	// a: 50 points twelve days ago, b: 30 points two days ago
	subs := []struct {
		id, user string
		points   int
		daysAgo  int
	}{
		{id: "sub-a", user: "a", points: 50, daysAgo: 12},
		{id: "sub-b", user: "b", points: 30, daysAgo: 2},
	}
	verifier := "t"
	for _, s := range subs {
		if _, err := st.CreateSubmission(models.Submission{
			ID: s.id, UserID: s.user, ChallengeID: "c1", Fingerprint: "fp-" + s.id,
		}); err != nil {
			t.Fatal(err)
		}
		decidedAt := nowFunc().AddDate(0, 0, -s.daysAgo)
		if _, err := st.DecideSubmission(s.id, &verifier, models.StatusApproved, "", s.points, decidedAt); err != nil {
			t.Fatal(err)
		}
		if _, err := st.MutateUser(s.user, func(u *models.EngineUser) error {
			u.Points += s.points
			return nil
		}); err != nil {
			t.Fatal(err)
		}
	}

	svc := NewLeaderboardService(st)

	// 7d window only counts b's approval
	entries, err := svc.Rank(store.Scope{}, "7d")
	if err != nil {
		t.Fatal(err)
	}
	if entries[0].UserID != "b" || entries[0].Points != 30 {
		t.Errorf("7d leader = %+v, want b with 30", entries[0])
	}
	if entries[1].UserID != "a" || entries[1].Points != 0 {
		t.Errorf("7d runner-up = %+v, want a with 0", entries[1])
	}

	// 30d window counts both
	entries, err = svc.Rank(store.Scope{}, "30d")
	if err != nil {
		t.Fatal(err)
	}
	if entries[0].UserID != "a" || entries[0].Points != 50 {
		t.Errorf("30d leader = %+v, want a with 50", entries[0])
	}

	if _, err := svc.Rank(store.Scope{}, "1y"); err == nil {
		t.Error("unknown timeframe accepted")
	}
}

func TestParseScope(t *testing.T) {
	tests := []struct {
		raw    string
		want   store.Scope
		wantOK bool
	}{
		{raw: "", want: store.Scope{}, wantOK: true},
		{raw: "global", want: store.Scope{}, wantOK: true},
		{raw: "school:s1", want: store.Scope{SchoolID: "s1"}, wantOK: true},
		{raw: "region:Kerala", want: store.Scope{Region: "Kerala"}, wantOK: true},
		{raw: "city:pune", wantOK: false},
	}
	for _, tt := range tests {
		got, ok := ParseScope(tt.raw)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseScope(%q) = %+v, %v; want %+v, %v", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}
