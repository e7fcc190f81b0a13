package store

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ecolearn-engine/models"
)

func exactMatch(a, b string) bool { return a == b }

func testStore(t *testing.T) *MemStore {
	t.Helper()
	st := NewMemStore(exactMatch)

	users := []models.EngineUser{
		{ID: "student-1", Name: "Asha", Role: models.RoleStudent, SchoolID: "s1"},
		{ID: "student-2", Name: "Ravi", Role: models.RoleStudent, SchoolID: "s2"},
		{ID: "teacher-1", Name: "Meera", Role: models.RoleTeacher, SchoolID: "s1"},
	}
	for _, u := range users {
		if err := st.UpsertUser(u); err != nil {
			t.Fatal(err)
		}
	}

	challenges := []models.Challenge{
		{ID: "c1", Title: "Tree Planting", Validation: models.ValidationTeacherApproval},
		{ID: "c2", Title: "Waste Audit", Validation: models.ValidationNGOApproval},
	}
	for _, ch := range challenges {
		if err := st.SaveChallenge(ch); err != nil {
			t.Fatal(err)
		}
	}
	return st
}

func TestCreateSubmissionDuplicate(t *testing.T) {
	st := testStore(t)

	first := models.Submission{ID: "sub-1", UserID: "student-1", ChallengeID: "c1", Fingerprint: "fp-a"}
	if _, err := st.CreateSubmission(first); err != nil {
		t.Fatalf("first submission: %v", err)
	}

	// same proof, same user, same challenge -> refused
	dup := models.Submission{ID: "sub-2", UserID: "student-1", ChallengeID: "c1", Fingerprint: "fp-a"}
	if _, err := st.CreateSubmission(dup); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate submission error = %v, want ErrDuplicate", err)
	}

	// same proof, other challenge -> fine
	other := models.Submission{ID: "sub-3", UserID: "student-1", ChallengeID: "c2", Fingerprint: "fp-a"}
	if _, err := st.CreateSubmission(other); err != nil {
		t.Errorf("other-challenge submission error = %v", err)
	}

	// same proof, other user -> fine
	otherUser := models.Submission{ID: "sub-4", UserID: "student-2", ChallengeID: "c1", Fingerprint: "fp-a"}
	if _, err := st.CreateSubmission(otherUser); err != nil {
		t.Errorf("other-user submission error = %v", err)
	}
}

func TestCreateSubmissionAfterRejection(t *testing.T) {
	st := testStore(t)

	sub := models.Submission{ID: "sub-1", UserID: "student-1", ChallengeID: "c1", Fingerprint: "fp-a"}
	if _, err := st.CreateSubmission(sub); err != nil {
		t.Fatal(err)
	}
	verifier := "teacher-1"
	if _, err := st.DecideSubmission("sub-1", &verifier, models.StatusRejected, "blurry", 0, time.Now()); err != nil {
		t.Fatal(err)
	}

	// rejected rows do not block a retry with the same proof
	retry := models.Submission{ID: "sub-2", UserID: "student-1", ChallengeID: "c1", Fingerprint: "fp-a"}
	if _, err := st.CreateSubmission(retry); err != nil {
		t.Errorf("retry after rejection error = %v", err)
	}
}

func TestDecideSubmissionOnce(t *testing.T) {
	st := testStore(t)

	sub := models.Submission{ID: "sub-1", UserID: "student-1", ChallengeID: "c1", Fingerprint: "fp-a"}
	if _, err := st.CreateSubmission(sub); err != nil {
		t.Fatal(err)
	}

	verifier := "teacher-1"
	decidedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	decided, err := st.DecideSubmission("sub-1", &verifier, models.StatusApproved, "good work", 50, decidedAt)
	if err != nil {
		t.Fatalf("first decision: %v", err)
	}
	if decided.Status != models.StatusApproved || decided.PointsAwarded != 50 {
		t.Errorf("decided = %+v, want approved with 50 points", decided)
	}
	if decided.DecidedAt == nil || !decided.DecidedAt.Equal(decidedAt) {
		t.Errorf("decidedAt = %v, want %v", decided.DecidedAt, decidedAt)
	}

	// a second decision of either kind loses
	if _, err := st.DecideSubmission("sub-1", &verifier, models.StatusRejected, "", 0, time.Now()); !errors.Is(err, ErrAlreadyDecided) {
		t.Errorf("second decision error = %v, want ErrAlreadyDecided", err)
	}
	if _, err := st.DecideSubmission("sub-1", &verifier, models.StatusApproved, "", 50, time.Now()); !errors.Is(err, ErrAlreadyDecided) {
		t.Errorf("repeat approval error = %v, want ErrAlreadyDecided", err)
	}

	got, err := st.GetSubmission("sub-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.StatusApproved || got.PointsAwarded != 50 || got.Comments != "good work" {
		t.Errorf("terminal state mutated: %+v", got)
	}

	if _, err := st.DecideSubmission("missing", &verifier, models.StatusApproved, "", 10, time.Now()); !errors.Is(err, ErrNotFound) {
		t.Errorf("decide missing error = %v, want ErrNotFound", err)
	}
}

func TestUpsertUserPreservesProgression(t *testing.T) {
	st := testStore(t)

	if _, err := st.MutateUser("student-1", func(u *models.EngineUser) error {
		u.Points = 150
		u.Level = 2
		u.StreakCount = 3
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	// identity refresh from the sync worker
	if err := st.UpsertUser(models.EngineUser{
		ID: "student-1", Name: "Asha Patel", Role: models.RoleStudent, SchoolID: "s1", GradeLevel: "secondary",
	}); err != nil {
		t.Fatal(err)
	}

	u, err := st.GetUser("student-1")
	if err != nil {
		t.Fatal(err)
	}
	if u.Name != "Asha Patel" || u.GradeLevel != "secondary" {
		t.Errorf("identity not updated: %+v", u)
	}
	if u.Points != 150 || u.Level != 2 || u.StreakCount != 3 {
		t.Errorf("progression clobbered by upsert: %+v", u)
	}
}

func TestListPendingScoping(t *testing.T) {
	st := testStore(t)

	subs := []models.Submission{
		{ID: "sub-1", UserID: "student-1", ChallengeID: "c1", Fingerprint: "fp-1", SubmittedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)},
		{ID: "sub-2", UserID: "student-2", ChallengeID: "c1", Fingerprint: "fp-2", SubmittedAt: time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)},
		{ID: "sub-3", UserID: "student-1", ChallengeID: "c2", Fingerprint: "fp-3", SubmittedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
	}
	for _, sub := range subs {
		if _, err := st.CreateSubmission(sub); err != nil {
			t.Fatal(err)
		}
	}
	verifier := "teacher-1"
	if _, err := st.DecideSubmission("sub-2", &verifier, models.StatusApproved, "", 10, time.Now()); err != nil {
		t.Fatal(err)
	}

	// teacher at s1: teacher_approval challenges, own school, pending only
	got, err := st.ListPending(PendingScope{
		Validations: []string{models.ValidationTeacherApproval},
		SchoolID:    "s1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "sub-1" {
		t.Errorf("teacher queue = %+v, want [sub-1]", got)
	}

	// ngo: ngo_approval challenges across schools
	got, err = st.ListPending(PendingScope{Validations: []string{models.ValidationNGOApproval}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "sub-3" {
		t.Errorf("ngo queue = %+v, want [sub-3]", got)
	}
}

func TestPointsAwardedSince(t *testing.T) {
	st := testStore(t)

	subs := []models.Submission{
		{ID: "sub-1", UserID: "student-1", ChallengeID: "c1", Fingerprint: "fp-1"},
		{ID: "sub-2", UserID: "student-1", ChallengeID: "c2", Fingerprint: "fp-2"},
		{ID: "sub-3", UserID: "student-2", ChallengeID: "c1", Fingerprint: "fp-3"},
	}
	for _, sub := range subs {
		if _, err := st.CreateSubmission(sub); err != nil {
			t.Fatal(err)
		}
	}

	verifier := "teacher-1"
	old := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	if _, err := st.DecideSubmission("sub-1", &verifier, models.StatusApproved, "", 50, old); err != nil {
		t.Fatal(err)
	}
	if _, err := st.DecideSubmission("sub-2", &verifier, models.StatusApproved, "", 30, recent); err != nil {
		t.Fatal(err)
	}
	if _, err := st.DecideSubmission("sub-3", &verifier, models.StatusRejected, "", 0, recent); err != nil {
		t.Fatal(err)
	}

	got, err := st.PointsAwardedSince(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if got["student-1"] != 30 {
		t.Errorf("windowed points for student-1 = %d, want 30", got["student-1"])
	}
	if _, ok := got["student-2"]; ok {
		t.Errorf("rejected submissions should not contribute points: %+v", got)
	}
}

// Concurrent point mutations for the same user must all land; a lost
// increment means an approval silently vanished.
func TestMutateUserConcurrentIncrements(t *testing.T) {
	st := testStore(t)

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.MutateUser("student-1", func(u *models.EngineUser) error {
				u.Points += 10
				return nil
			})
			if err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	u, err := st.GetUser("student-1")
	if err != nil {
		t.Fatal(err)
	}
	if u.Points != workers*10 {
		t.Errorf("points after %d concurrent awards = %d, want %d", workers, u.Points, workers*10)
	}
}

// Two identical uploads racing each other: exactly one wins, the other
// gets ErrDuplicate.
func TestCreateSubmissionConcurrentDuplicates(t *testing.T) {
	st := testStore(t)

	const uploads = 8
	var created, duplicate atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < uploads; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := st.CreateSubmission(models.Submission{
				ID: "race-" + string(rune('a'+n)), UserID: "student-1", ChallengeID: "c1",
				Fingerprint: "fp-same",
			})
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, ErrDuplicate):
				duplicate.Add(1)
			default:
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	if created.Load() != 1 || duplicate.Load() != uploads-1 {
		t.Errorf("created=%d duplicate=%d, want 1/%d", created.Load(), duplicate.Load(), uploads-1)
	}
}

// Credit marker semantics: a replay is a no-op, and uncredited approved
// submissions are discoverable for the boot sweep.
func TestCreditSubmissionExactlyOnce(t *testing.T) {
	st := testStore(t)

	if _, err := st.CreateSubmission(models.Submission{
		ID: "sub-1", UserID: "student-1", ChallengeID: "c1", Fingerprint: "fp-1",
	}); err != nil {
		t.Fatal(err)
	}
	verifier := "teacher-1"
	if _, err := st.DecideSubmission("sub-1", &verifier, models.StatusApproved, "", 50, time.Now().UTC()); err != nil {
		t.Fatal(err)
	}

	uncredited, err := st.ListUncredited()
	if err != nil {
		t.Fatal(err)
	}
	if len(uncredited) != 1 || uncredited[0].ID != "sub-1" {
		t.Fatalf("uncredited = %+v, want [sub-1]", uncredited)
	}

	add := func(u *models.EngineUser) error { u.Points += 50; return nil }
	u, credited, err := st.CreditSubmission("sub-1", add)
	if err != nil || !credited {
		t.Fatalf("first credit = (%v, %v), want (true, nil)", credited, err)
	}
	if u.Points != 50 {
		t.Errorf("points = %d, want 50", u.Points)
	}

	u, credited, err = st.CreditSubmission("sub-1", add)
	if err != nil || credited {
		t.Fatalf("replay credit = (%v, %v), want (false, nil)", credited, err)
	}
	if u.Points != 50 {
		t.Errorf("points after replay = %d, want 50", u.Points)
	}

	uncredited, _ = st.ListUncredited()
	if len(uncredited) != 0 {
		t.Errorf("credited submission still listed: %+v", uncredited)
	}

	if _, _, err := st.CreditSubmission("missing", add); !errors.Is(err, ErrNotFound) {
		t.Errorf("credit of unknown submission = %v, want ErrNotFound", err)
	}
}

func TestAwardBadgeIdempotent(t *testing.T) {
	st := testStore(t)

	awarded, err := st.AwardBadge(models.UserBadge{UserID: "student-1", BadgeCode: "WELCOME"})
	if err != nil || !awarded {
		t.Fatalf("first award = (%v, %v), want (true, nil)", awarded, err)
	}
	awarded, err = st.AwardBadge(models.UserBadge{UserID: "student-1", BadgeCode: "WELCOME"})
	if err != nil || awarded {
		t.Fatalf("repeat award = (%v, %v), want (false, nil)", awarded, err)
	}

	badges, err := st.ListUserBadges("student-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(badges) != 1 {
		t.Errorf("badge count = %d, want 1", len(badges))
	}
}
