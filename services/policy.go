package services

import (
	"errors"

	"ecolearn-engine/config"
	"ecolearn-engine/models"
	"ecolearn-engine/store"
	"ecolearn-engine/utils"
)

// Decision outcomes accepted on the decision endpoint.
const (
	OutcomeApprove = "approve"
	OutcomeReject  = "reject"
)

var (
	// ErrUnauthorized: the principal lacks the role (or institution
	// affiliation) the challenge's validation mode requires. Never
	// downgraded to a no-op.
	ErrUnauthorized = errors.New("verifier not authorized for this submission")

	// ErrSelfReportLimited: the self-report abuse throttle tripped.
	ErrSelfReportLimited = errors.New("self-report limit reached for today")
)

// Admission is the synchronous outcome of a validation policy at
// create time.
type Admission struct {
	Status     string
	VerifierID *string
}

// ValidationPolicy maps a challenge's validation mode to behavior.
// The table below is the single dispatch point; call sites never
// re-branch on the mode.
type ValidationPolicy struct {
	// Gate runs before the submission is stored. Nil means the mode
	// has no admission throttle.
	Gate func(userID, challengeID string) error

	// AdmitOnCreate decides the submission synchronously at create
	// time. Nil means the submission stays pending for a human
	// decision.
	AdmitOnCreate func(sub *models.Submission) Admission

	// Authorize reports whether verifier may decide submitter's
	// pending submission.
	Authorize func(verifier, submitter *models.EngineUser) error
}

// selfReportGate is a var so tests can force the throttle.
var selfReportGate = func(userID, challengeID string) error {
	if !utils.SelfReportAllowed(userID, challengeID, config.Env.SelfReportDailyLimit) {
		return ErrSelfReportLimited
	}
	return nil
}

var validationPolicies = map[string]ValidationPolicy{
	models.ValidationAutoCheck: {
		// Admission rule uses only attributes on the submission itself
		// (the quiz grader sets the auto_passed flag upstream).
		AdmitOnCreate: func(sub *models.Submission) Admission {
			if sub.HasFlag(models.FlagAutoPassed) {
				return Admission{Status: models.StatusApproved}
			}
			return Admission{Status: models.StatusRejected}
		},
		Authorize: adminOnly,
	},
	models.ValidationSelfReport: {
		// The submitter certifies their own work, so admission is
		// throttled per user per day.
		Gate: func(userID, challengeID string) error {
			return selfReportGate(userID, challengeID)
		},
		AdmitOnCreate: func(sub *models.Submission) Admission {
			id := sub.UserID
			return Admission{Status: models.StatusApproved, VerifierID: &id}
		},
		Authorize: adminOnly,
	},
	models.ValidationTeacherApproval: {
		Authorize: func(verifier, submitter *models.EngineUser) error {
			if verifier.Role == models.RoleAdmin {
				return nil
			}
			if verifier.Role != models.RoleTeacher || verifier.SchoolID != submitter.SchoolID {
				return ErrUnauthorized
			}
			return nil
		},
	},
	models.ValidationNGOApproval: {
		Authorize: func(verifier, submitter *models.EngineUser) error {
			if verifier.Role == models.RoleNGO || verifier.Role == models.RoleAdmin {
				return nil
			}
			return ErrUnauthorized
		},
	},
}

// adminOnly: machine-validated submissions never sit pending, but if
// one does (catalog reconfigured mid-flight), only an admin may clear it.
func adminOnly(verifier, _ *models.EngineUser) error {
	if verifier.Role == models.RoleAdmin {
		return nil
	}
	return ErrUnauthorized
}

// PolicyFor resolves the validation mode once at the policy boundary.
func PolicyFor(validation string) (ValidationPolicy, bool) {
	pol, ok := validationPolicies[validation]
	return pol, ok
}

// AwardFor computes the points an approval earns. Mission proofs
// without a verified GPS fix earn half (rounded down); everything else
// earns the challenge's full reward.
func AwardFor(ch models.Challenge, sub models.Submission) int {
	if ch.Type == models.TypeMission && !sub.HasFlag(models.FlagGPSVerified) {
		return ch.Points / 2
	}
	return ch.Points
}

// PendingScopeFor maps a verifier to the slice of the review queue
// they are allowed to see and decide.
func PendingScopeFor(verifier models.EngineUser) (store.PendingScope, error) {
	switch verifier.Role {
	case models.RoleTeacher:
		return store.PendingScope{
			Validations: []string{models.ValidationTeacherApproval},
			SchoolID:    verifier.SchoolID,
		}, nil
	case models.RoleNGO:
		return store.PendingScope{
			Validations: []string{models.ValidationNGOApproval},
		}, nil
	case models.RoleAdmin:
		return store.PendingScope{
			Validations: []string{models.ValidationTeacherApproval, models.ValidationNGOApproval},
		}, nil
	default:
		return store.PendingScope{}, ErrUnauthorized
	}
}
