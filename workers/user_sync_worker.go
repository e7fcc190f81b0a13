// workers/user_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"ecolearn-engine/models"
	"ecolearn-engine/store"
	"ecolearn-engine/utils"
)

// ProfileUser matches the JSON the profile service exposes on its
// changes feed. Only identity fields; progression state never comes
// from the profile service.
type ProfileUser struct {
	ID                     string              `json:"id"`
	Name                   string              `json:"name"`
	Role                   string              `json:"role"`
	SchoolID               string              `json:"school_id"`
	GradeLevel             string              `json:"grade_level"`
	HasCompletedOnboarding bool                `json:"has_completed_onboarding"`
	Preferences            *models.Preferences `json:"preferences,omitempty"`
	CreatedAt              time.Time           `json:"created_at"`
	UpdatedAt              time.Time           `json:"updated_at"`
}

type userChangesResponse struct {
	Users []ProfileUser `json:"users"`
}

// UserSyncWorker mirrors identity data from the profile service into
// the engine's local user snapshot. Upserts merge identity fields
// only, so points, level and streaks survive every sync.
type UserSyncWorker struct {
	store        store.Store
	interval     time.Duration
	baseURL      string // e.g. "http://localhost:8500"
	endpointPath string // e.g. "/api/v1/public/profiles"
	serviceToken string
	httpClient   *http.Client

	// High-water mark of the last seen profile update. Kept in memory;
	// a restart triggers a full backfill, which upsert makes harmless.
	lastSync time.Time
}

func NewUserSyncWorker(st store.Store, syncServiceBaseURL, endpointPath, serviceToken string) *UserSyncWorker {
	return &UserSyncWorker{
		store:        st,
		interval:     1 * time.Minute,
		baseURL:      syncServiceBaseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (w *UserSyncWorker) Start(ctx context.Context) {
	utils.Sugar.Infow("starting user sync worker", "base_url", w.baseURL)
	go w.run(ctx)
}

func (w *UserSyncWorker) run(ctx context.Context) {
	// Initial backfill from the beginning of time
	if err := w.syncBatch(ctx, time.Time{}); err != nil {
		utils.Sugar.Warnw("initial user sync failed", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.syncBatch(ctx, w.lastSync); err != nil {
				utils.Sugar.Errorw("user sync batch failed", "error", err)
			}
		case <-ctx.Done():
			utils.Sugar.Infow("user sync worker stopped")
			return
		}
	}
}

func (w *UserSyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid sync service URL %q: %w", w.baseURL, err)
	}

	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	endpointURL.RawQuery = q.Encode()
	finalURL := endpointURL.String()

	req, err := http.NewRequestWithContext(ctx, "GET", finalURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request to sync service failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("sync service non-200 response: %d — %s", resp.StatusCode, string(body))
	}

	var response userChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode sync service response: %w", err)
	}

	if len(response.Users) == 0 {
		return nil
	}

	var upserted, failed int
	latest := w.lastSync
	for _, remote := range response.Users {
		local := models.EngineUser{
			ID:                     remote.ID,
			Name:                   remote.Name,
			Role:                   remote.Role,
			SchoolID:               remote.SchoolID,
			GradeLevel:             remote.GradeLevel,
			HasCompletedOnboarding: remote.HasCompletedOnboarding,
			Preferences:            remote.Preferences,
		}
		if err := w.store.UpsertUser(local); err != nil {
			failed++
			utils.Sugar.Warnw("user upsert failed", "user_id", remote.ID, "error", err)
			continue
		}
		upserted++
		if remote.UpdatedAt.After(latest) {
			latest = remote.UpdatedAt
		}
	}
	w.lastSync = latest

	utils.Sugar.Infow("user sync batch done",
		"received", len(response.Users), "upserted", upserted, "failed", failed,
		"high_water", latest.Format(time.RFC3339))
	return nil
}
