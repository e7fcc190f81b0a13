package services

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ecolearn-engine/models"
	"ecolearn-engine/store"
	"ecolearn-engine/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const (
	maxProofBytes = 20 << 20 // 20 MB upload cap

	// A claimed capture time older than this is treated as stale and
	// the timestamp_valid flag is withheld.
	captureFreshness = 7 * 24 * time.Hour
)

// respondStoreErr maps the engine's discriminated errors onto HTTP
// statuses. Shared by every handler so a given failure always looks
// the same on the wire.
func respondStoreErr(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, store.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "duplicate proof: this evidence was already submitted for this challenge",
		})
	case errors.Is(err, store.ErrAlreadyDecided):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "submission already decided"})
	case errors.Is(err, store.ErrChallengeClosed):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "challenge is not open for submissions"})
	case errors.Is(err, ErrUnauthorized):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not authorized to decide this submission"})
	case errors.Is(err, ErrSelfReportLimited):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "daily self-report limit reached, try again tomorrow"})
	default:
		utils.Sugar.Errorw("internal error", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}

type SubmissionService struct {
	Store       store.Store
	Progression *ProgressionService

	// uploadProof defaults to the configured media store; tests stub it.
	uploadProof func(ctx context.Context, data []byte, key, contentType string) (string, error)
}

func NewSubmissionService(st store.Store, prog *ProgressionService) *SubmissionService {
	return &SubmissionService{Store: st, Progression: prog, uploadProof: utils.StoreProof}
}

// SubmitInput is the transport-independent create request. The handler
// fills it from multipart form data; tests construct it directly.
type SubmitInput struct {
	UserID      string
	ChallengeID string

	Proof       []byte
	ContentType string
	Filename    string

	Latitude   *float64
	Longitude  *float64
	CapturedAt *time.Time

	// Set by the quiz grader for auto_check challenges.
	AutoPassed bool
}

// Submit runs the full intake pipeline: window check, fingerprinting,
// verification flags, media upload, duplicate-checked insert, then the
// challenge's validation policy. Machine-validated modes resolve
// synchronously through the same decision transition human reviews use.
func (s *SubmissionService) Submit(ctx context.Context, in SubmitInput) (models.Submission, error) {
	if _, err := s.Store.GetUser(in.UserID); err != nil {
		return models.Submission{}, err
	}
	ch, err := s.Store.GetChallenge(in.ChallengeID)
	if err != nil {
		return models.Submission{}, err
	}

	now := nowFunc().UTC()
	if !ch.IsOpenAt(now) {
		return models.Submission{}, store.ErrChallengeClosed
	}

	// The validation mode is resolved once; everything mode-specific
	// (admission throttle, synchronous decision) lives in the policy.
	pol, policyKnown := PolicyFor(ch.Validation)
	if policyKnown && pol.Gate != nil {
		if err := pol.Gate(in.UserID, in.ChallengeID); err != nil {
			return models.Submission{}, err
		}
	}

	sub := models.Submission{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		ChallengeID: in.ChallengeID,
		Fingerprint: utils.FingerprintBytes(in.Proof),
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		CapturedAt:  in.CapturedAt,
		SubmittedAt: now,
		Status:      models.StatusPending,
	}
	if in.Latitude != nil && in.Longitude != nil {
		sub.VerificationFlags = append(sub.VerificationFlags, models.FlagGPSVerified)
	}
	if in.CapturedAt != nil && now.Sub(in.CapturedAt.UTC()) <= captureFreshness && !in.CapturedAt.UTC().After(now.Add(time.Hour)) {
		sub.VerificationFlags = append(sub.VerificationFlags, models.FlagTimestampValid)
	}
	if in.AutoPassed {
		sub.VerificationFlags = append(sub.VerificationFlags, models.FlagAutoPassed)
	}

	if len(in.Proof) > 0 {
		key := proofKey(ch.Title, in.UserID, in.Filename)
		locator, err := s.uploadProof(ctx, in.Proof, key, in.ContentType)
		if err != nil {
			return models.Submission{}, err
		}
		sub.ProofLocator = locator
	}

	created, err := s.Store.CreateSubmission(sub)
	if err != nil {
		// On ErrDuplicate the uploaded object is orphaned until the
		// bucket's cleanup sweep runs.
		return models.Submission{}, err
	}
	utils.Sugar.Infow("submission created",
		"submission_id", created.ID, "user_id", created.UserID,
		"challenge_id", created.ChallengeID, "validation", ch.Validation,
		"flags", created.VerificationFlags)

	if !policyKnown || pol.AdmitOnCreate == nil {
		return created, nil
	}

	adm := pol.AdmitOnCreate(&created)
	points := 0
	if adm.Status == models.StatusApproved {
		points = AwardFor(ch, created)
	}
	decided, err := s.Store.DecideSubmission(created.ID, adm.VerifierID, adm.Status, "", points, nowFunc().UTC())
	if err != nil {
		return models.Submission{}, err
	}
	if decided.Status == models.StatusApproved {
		if _, err := s.Progression.ApplyApproval(decided.ID, decided.PointsAwarded); err != nil {
			return models.Submission{}, err
		}
	}
	return decided, nil
}

// DecideByVerifier resolves a pending submission through a human
// review. The store transition is conditional on pending status, so a
// concurrent decision loses with ErrAlreadyDecided and never double
// credits.
func (s *SubmissionService) DecideByVerifier(verifierID, submissionID, outcome, comments string) (models.Submission, error) {
	if outcome != OutcomeApprove && outcome != OutcomeReject {
		return models.Submission{}, errors.New("outcome must be approve or reject")
	}

	sub, err := s.Store.GetSubmission(submissionID)
	if err != nil {
		return models.Submission{}, err
	}
	if sub.Decided() {
		return models.Submission{}, store.ErrAlreadyDecided
	}

	verifier, err := s.Store.GetUser(verifierID)
	if err != nil {
		return models.Submission{}, err
	}
	submitter, err := s.Store.GetUser(sub.UserID)
	if err != nil {
		return models.Submission{}, err
	}
	ch, err := s.Store.GetChallenge(sub.ChallengeID)
	if err != nil {
		return models.Submission{}, err
	}

	pol, ok := PolicyFor(ch.Validation)
	if !ok {
		return models.Submission{}, ErrUnauthorized
	}
	if err := pol.Authorize(&verifier, &submitter); err != nil {
		return models.Submission{}, err
	}

	status := models.StatusRejected
	points := 0
	if outcome == OutcomeApprove {
		status = models.StatusApproved
		points = AwardFor(ch, sub)
	}

	decided, err := s.Store.DecideSubmission(submissionID, &verifierID, status, comments, points, nowFunc().UTC())
	if err != nil {
		return models.Submission{}, err
	}
	utils.Sugar.Infow("submission decided",
		"submission_id", decided.ID, "verifier_id", verifierID,
		"status", decided.Status, "points", decided.PointsAwarded)

	if decided.Status == models.StatusApproved {
		if _, err := s.Progression.ApplyApproval(decided.ID, decided.PointsAwarded); err != nil {
			return models.Submission{}, err
		}
	}
	return decided, nil
}

func proofKey(challengeTitle, userID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".bin"
	}
	return slug.Make(challengeTitle) + "/" + userID + "/" + uuid.NewString() + ext
}

// Create handles the multipart submission upload.
func (s *SubmissionService) Create(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	challengeID := c.FormValue("challenge_id")
	if challengeID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "challenge_id is required"})
	}

	in := SubmitInput{
		UserID:      userID,
		ChallengeID: challengeID,
		AutoPassed:  c.FormValue("auto_passed") == "true",
	}

	if fh, err := c.FormFile("proof"); err == nil {
		if fh.Size > maxProofBytes {
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "proof file exceeds 20MB limit"})
		}
		f, err := fh.Open()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "failed to read proof file"})
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "failed to read proof file"})
		}
		in.Proof = data
		in.Filename = fh.Filename
		in.ContentType = fh.Header.Get("Content-Type")
	} else {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "proof file is required"})
	}

	if latStr := c.FormValue("latitude"); latStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid latitude"})
		}
		in.Latitude = &lat
	}
	if lngStr := c.FormValue("longitude"); lngStr != "" {
		lng, err := strconv.ParseFloat(lngStr, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid longitude"})
		}
		in.Longitude = &lng
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "latitude and longitude must be provided together"})
	}
	if capStr := c.FormValue("captured_at"); capStr != "" {
		capturedAt, err := time.Parse(time.RFC3339, capStr)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "captured_at must be RFC3339"})
		}
		in.CapturedAt = &capturedAt
	}

	sub, err := s.Submit(c.Context(), in)
	if err != nil {
		return respondStoreErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sub)
}

// Decide handles the review decision endpoint.
func (s *SubmissionService) Decide(c *fiber.Ctx) error {
	verifierID := c.Locals("user_id").(string)
	submissionID := c.Params("id")

	type Req struct {
		Outcome  string `json:"outcome" validate:"required,oneof=approve reject"`
		Comments string `json:"comments" validate:"max=500"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	sub, err := s.DecideByVerifier(verifierID, submissionID, req.Outcome, req.Comments)
	if err != nil {
		return respondStoreErr(c, err)
	}
	return c.JSON(sub)
}

// ListPending returns the review queue scoped to the caller's role.
func (s *SubmissionService) ListPending(c *fiber.Ctx) error {
	verifierID := c.Locals("user_id").(string)
	verifier, err := s.Store.GetUser(verifierID)
	if err != nil {
		return respondStoreErr(c, err)
	}

	scope, err := PendingScopeFor(verifier)
	if err != nil {
		return respondStoreErr(c, err)
	}
	subs, err := s.Store.ListPending(scope)
	if err != nil {
		return respondStoreErr(c, err)
	}
	return c.JSON(subs)
}

// ListMine returns the caller's own submission history.
func (s *SubmissionService) ListMine(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	subs, err := s.Store.ListByUser(userID)
	if err != nil {
		return respondStoreErr(c, err)
	}
	return c.JSON(subs)
}

// ListUserImages returns proof locators for a user's approved
// submissions, for profile galleries.
func (s *SubmissionService) ListUserImages(c *fiber.Ctx) error {
	userID := c.Params("id")
	if _, err := s.Store.GetUser(userID); err != nil {
		return respondStoreErr(c, err)
	}
	subs, err := s.Store.ListByUser(userID)
	if err != nil {
		return respondStoreErr(c, err)
	}

	images := make([]fiber.Map, 0)
	for _, sub := range subs {
		if sub.Status != models.StatusApproved || sub.ProofLocator == "" {
			continue
		}
		images = append(images, fiber.Map{
			"submission_id": sub.ID,
			"challenge_id":  sub.ChallengeID,
			"url":           sub.ProofLocator,
			"submitted_at":  sub.SubmittedAt,
		})
	}
	return c.JSON(images)
}
