package store

import (
	"sort"
	"sync"
	"time"

	"ecolearn-engine/models"

	"github.com/google/uuid"
)

// MemStore is the in-memory implementation used for local development
// and tests. It enforces the same uniqueness and transition invariants
// as the postgres store; it does not bypass them.
type MemStore struct {
	mu          sync.RWMutex
	users       map[string]*models.EngineUser
	challenges  map[string]*models.Challenge
	schools     map[string]*models.School
	submissions map[string]*models.Submission
	badges      map[string][]models.UserBadge // userID -> awarded

	// sameProof compares fingerprints; injected so the store package
	// owns the invariant while utils owns the hash math.
	sameProof func(a, b string) bool
}

var _ Store = (*MemStore)(nil)

func NewMemStore(sameProof func(a, b string) bool) *MemStore {
	return &MemStore{
		users:       map[string]*models.EngineUser{},
		challenges:  map[string]*models.Challenge{},
		schools:     map[string]*models.School{},
		submissions: map[string]*models.Submission{},
		badges:      map[string][]models.UserBadge{},
		sameProof:   sameProof,
	}
}

func (s *MemStore) Name() string { return "memory" }

func (s *MemStore) GetUser(id string) (models.EngineUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[id]; ok {
		return *u, nil
	}
	return models.EngineUser{}, ErrNotFound
}

func (s *MemStore) ListStudents(scope Scope) ([]models.EngineUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.EngineUser
	for _, u := range s.users {
		if u.Role != models.RoleStudent {
			continue
		}
		if scope.SchoolID != "" && u.SchoolID != scope.SchoolID {
			continue
		}
		if scope.Region != "" {
			sc, ok := s.schools[u.SchoolID]
			if !ok || sc.Region != scope.Region {
				continue
			}
		}
		out = append(out, *u)
	}
	return out, nil
}

func (s *MemStore) UpsertUser(u models.EngineUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.users[u.ID]; ok {
		existing.Name = u.Name
		existing.Role = u.Role
		existing.SchoolID = u.SchoolID
		existing.GradeLevel = u.GradeLevel
		existing.HasCompletedOnboarding = u.HasCompletedOnboarding
		existing.Preferences = u.Preferences
		return nil
	}
	if u.Level == 0 {
		u.Level = 1
	}
	cp := u
	s.users[u.ID] = &cp
	return nil
}

func (s *MemStore) MutateUser(id string, fn func(*models.EngineUser) error) (models.EngineUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.EngineUser{}, ErrNotFound
	}
	cp := *u
	if err := fn(&cp); err != nil {
		return models.EngineUser{}, err
	}
	*u = cp
	return cp, nil
}

func (s *MemStore) GetChallenge(id string) (models.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ch, ok := s.challenges[id]; ok {
		return *ch, nil
	}
	return models.Challenge{}, ErrNotFound
}

func (s *MemStore) ListChallenges() ([]models.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Challenge, 0, len(s.challenges))
	for _, ch := range s.challenges {
		out = append(out, *ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) SaveChallenge(ch models.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := ch
	s.challenges[ch.ID] = &cp
	return nil
}

func (s *MemStore) CountChallenges() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.challenges)), nil
}

func (s *MemStore) SaveSchool(sc models.School) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := sc
	s.schools[sc.ID] = &cp
	return nil
}

func (s *MemStore) CreateSubmission(sub models.Submission) (models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.submissions {
		if e.UserID != sub.UserID || e.ChallengeID != sub.ChallengeID {
			continue
		}
		if e.Status == models.StatusRejected {
			continue
		}
		if s.sameProof(sub.Fingerprint, e.Fingerprint) {
			return models.Submission{}, ErrDuplicate
		}
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now().UTC()
	}
	cp := sub
	s.submissions[sub.ID] = &cp
	return cp, nil
}

func (s *MemStore) GetSubmission(id string) (models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sub, ok := s.submissions[id]; ok {
		return *sub, nil
	}
	return models.Submission{}, ErrNotFound
}

func (s *MemStore) DecideSubmission(id string, verifierID *string, status, comments string, points int, decidedAt time.Time) (models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.submissions[id]
	if !ok {
		return models.Submission{}, ErrNotFound
	}
	if sub.Status != models.StatusPending {
		return models.Submission{}, ErrAlreadyDecided
	}
	sub.Status = status
	sub.VerifierID = verifierID
	sub.Comments = comments
	sub.PointsAwarded = points
	d := decidedAt
	sub.DecidedAt = &d
	return *sub, nil
}

func (s *MemStore) CreditSubmission(id string, fn func(*models.EngineUser) error) (models.EngineUser, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.submissions[id]
	if !ok {
		return models.EngineUser{}, false, ErrNotFound
	}
	u, ok := s.users[sub.UserID]
	if !ok {
		return models.EngineUser{}, false, ErrNotFound
	}
	if sub.Status != models.StatusApproved || sub.PointsCredited {
		return *u, false, nil
	}
	cp := *u
	if err := fn(&cp); err != nil {
		return models.EngineUser{}, false, err
	}
	*u = cp
	sub.PointsCredited = true
	return cp, true, nil
}

func (s *MemStore) ListUncredited() ([]models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Submission
	for _, sub := range s.submissions {
		if sub.Status == models.StatusApproved && !sub.PointsCredited {
			out = append(out, *sub)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DecidedAt == nil || out[j].DecidedAt == nil {
			return out[i].ID < out[j].ID
		}
		if out[i].DecidedAt.Equal(*out[j].DecidedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].DecidedAt.Before(*out[j].DecidedAt)
	})
	return out, nil
}

func (s *MemStore) ListPending(scope PendingScope) ([]models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	validations := map[string]bool{}
	for _, v := range scope.Validations {
		validations[v] = true
	}
	var out []models.Submission
	for _, sub := range s.submissions {
		if sub.Status != models.StatusPending {
			continue
		}
		if len(validations) > 0 {
			ch, ok := s.challenges[sub.ChallengeID]
			if !ok || !validations[ch.Validation] {
				continue
			}
		}
		if scope.SchoolID != "" {
			u, ok := s.users[sub.UserID]
			if !ok || u.SchoolID != scope.SchoolID {
				continue
			}
		}
		out = append(out, *sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out, nil
}

func (s *MemStore) ListByUser(userID string) ([]models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Submission
	for _, sub := range s.submissions {
		if sub.UserID == userID {
			out = append(out, *sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out, nil
}

func (s *MemStore) PointsAwardedSince(since time.Time) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[string]int{}
	for _, sub := range s.submissions {
		if sub.Status != models.StatusApproved || sub.DecidedAt == nil {
			continue
		}
		if sub.DecidedAt.Before(since) {
			continue
		}
		out[sub.UserID] += sub.PointsAwarded
	}
	return out, nil
}

func (s *MemStore) ListUserBadges(userID string) ([]models.UserBadge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.UserBadge(nil), s.badges[userID]...), nil
}

func (s *MemStore) AwardBadge(b models.UserBadge) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.badges[b.UserID] {
		if existing.BadgeCode == b.BadgeCode {
			return false, nil
		}
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.AwardedAt.IsZero() {
		b.AwardedAt = time.Now().UTC()
	}
	s.badges[b.UserID] = append(s.badges[b.UserID], b)
	return true, nil
}
