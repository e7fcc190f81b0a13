package models

import "time"

// Submission lifecycle. Terminal states are immutable; the only legal
// transitions are pending -> approved and pending -> rejected.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Verification flags attached at create time. The engine treats GPS and
// timestamp verification as opaque facts about the submission; the
// geofence policy itself lives elsewhere.
const (
	FlagGPSVerified    = "gps_verified"
	FlagTimestampValid = "timestamp_valid"
	FlagAutoPassed     = "auto_passed"
)

// Submission is a proof-of-completion artifact for a challenge.
// Created by a user action, mutated only by the decision path.
type Submission struct {
	ID          string `gorm:"primaryKey" json:"id"`
	UserID      string `gorm:"index;not null" json:"user_id"`
	ChallengeID string `gorm:"index;not null" json:"challenge_id"`

	ProofLocator string `json:"proof_locator"`
	Fingerprint  string `gorm:"index;not null" json:"fingerprint"`

	Latitude   *float64   `json:"latitude,omitempty"`
	Longitude  *float64   `json:"longitude,omitempty"`
	CapturedAt *time.Time `json:"captured_at,omitempty"` // claimed device time

	SubmittedAt time.Time `gorm:"autoCreateTime" json:"submitted_at"`

	Status        string     `gorm:"type:varchar(16);index;default:'pending'" json:"status"`
	VerifierID    *string    `json:"verifier_id,omitempty"`
	Comments      string     `json:"comments,omitempty"`
	PointsAwarded int        `gorm:"default:0" json:"points_awarded"`
	DecidedAt     *time.Time `json:"decided_at,omitempty"`

	// Set once the award has been applied to the user's point total.
	// Approved-but-uncredited rows are replayed at boot.
	PointsCredited bool `gorm:"default:false;index" json:"-"`

	VerificationFlags []string `gorm:"serializer:json;type:jsonb" json:"verification_flags"`

	Timestamps
}

// Decided reports whether the submission reached a terminal state.
func (s *Submission) Decided() bool {
	return s.Status != StatusPending
}

// HasFlag reports whether a verification flag is present.
func (s *Submission) HasFlag(flag string) bool {
	for _, f := range s.VerificationFlags {
		if f == flag {
			return true
		}
	}
	return false
}
