// Package store holds the submission/user/challenge repositories. Two
// implementations exist, postgres (gorm) and in-memory, and both
// enforce the same uniqueness and state-transition invariants, so the
// engine and its tests behave identically against either.
package store

import (
	"errors"
	"time"

	"ecolearn-engine/models"
)

// Discriminated error kinds surfaced to callers. Handlers map these to
// HTTP statuses; the engine never collapses them into a generic failure.
var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicate       = errors.New("duplicate proof for this challenge")
	ErrAlreadyDecided  = errors.New("submission already decided")
	ErrChallengeClosed = errors.New("challenge is outside its submission window")
)

// Scope narrows the leaderboard candidate population. Zero value = global.
type Scope struct {
	SchoolID string
	Region   string
}

// PendingScope narrows the review queue to what a verifier may decide.
// An empty SchoolID means no institution filter (NGO and admin reviews).
type PendingScope struct {
	Validations []string
	SchoolID    string
}

// Store is the engine's persistence contract.
type Store interface {
	// Name identifies the active backend ("postgres" or "memory").
	Name() string

	// Users (local snapshot; identity fields synced from the profile service)
	GetUser(id string) (models.EngineUser, error)
	ListStudents(scope Scope) ([]models.EngineUser, error)
	// UpsertUser merges identity fields, preserving progression state
	// (points/level/streak) on existing rows.
	UpsertUser(u models.EngineUser) error
	// MutateUser applies fn to the user under per-user isolation.
	MutateUser(id string, fn func(*models.EngineUser) error) (models.EngineUser, error)

	// Challenges + schools (read copies of catalog data)
	GetChallenge(id string) (models.Challenge, error)
	ListChallenges() ([]models.Challenge, error)
	SaveChallenge(ch models.Challenge) error
	CountChallenges() (int64, error)
	SaveSchool(s models.School) error

	// Submissions
	// CreateSubmission refuses, with ErrDuplicate, any submission whose
	// fingerprint matches an existing non-rejected submission by the
	// same user for the same challenge.
	CreateSubmission(sub models.Submission) (models.Submission, error)
	GetSubmission(id string) (models.Submission, error)
	// DecideSubmission performs the atomic pending -> terminal
	// transition. At most one decision wins; losers get
	// ErrAlreadyDecided.
	DecideSubmission(id string, verifierID *string, status, comments string, points int, decidedAt time.Time) (models.Submission, error)
	// CreditSubmission applies fn to the submitter and marks the
	// submission's points as credited, atomically. It returns false
	// (skipping fn) when the submission is not approved or was already
	// credited, which makes crash-recovery replays exactly-once.
	CreditSubmission(id string, fn func(*models.EngineUser) error) (models.EngineUser, bool, error)
	// ListUncredited returns approved submissions whose award has not
	// yet reached the user, oldest decision first.
	ListUncredited() ([]models.Submission, error)
	ListPending(scope PendingScope) ([]models.Submission, error)
	ListByUser(userID string) ([]models.Submission, error)
	// PointsAwardedSince sums approved award points per user, decided at
	// or after the cutoff. Used for windowed leaderboards.
	PointsAwardedSince(since time.Time) (map[string]int, error)

	// Badges
	ListUserBadges(userID string) ([]models.UserBadge, error)
	// AwardBadge is idempotent per user+code; re-awards are no-ops.
	AwardBadge(b models.UserBadge) (bool, error)
}
