package version

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"promptlab/internal/config"
	"promptlab/internal/httpx"
	"promptlab/internal/model"

	"github.com/sirupsen/logrus"
)

// View is a version as exposed to callers: the stored fields plus the
// is_active flag computed against the active pointer.
type View struct {
	ID              int64     `json:"id"`
	PromptID        string    `json:"prompt_id"`
	VersionName     string    `json:"version_name"`
	Description     string    `json:"description"`
	ContentSnapshot string    `json:"content_snapshot"`
	SequenceNo      int64     `json:"sequence_no"`
	Archived        bool      `json:"archived"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

// Manager orchestrates version operations: it enforces the single-active
// invariant, resolves default-name conflicts, applies the retention
// policy and serializes mutations per prompt through the guard.
type Manager struct {
	store     Store
	prompts   PromptContent
	guard     *Guard
	maxActive int64
	logger    *logrus.Entry
}

// NewManager creates a version manager
func NewManager(store Store, prompts PromptContent, cfg config.VersioningConfig, logger *logrus.Entry) *Manager {
	return &Manager{
		store:     store,
		prompts:   prompts,
		guard:     NewGuard(time.Duration(cfg.GuardTimeoutMS) * time.Millisecond),
		maxActive: int64(cfg.MaxActiveVersions),
		logger:    logger.WithField("component", "version-manager"),
	}
}

// CreateVersion snapshots the prompt's current content as a new version
// and makes it active. An empty name selects a timestamp-derived default;
// colliding defaults are disambiguated with a numeric suffix, while a
// user-supplied duplicate fails with a conflict.
func (m *Manager) CreateVersion(ctx context.Context, promptID, name, description string) (*View, error) {
	if err := m.ensurePromptExists(ctx, promptID); err != nil {
		return nil, err
	}

	release, err := m.guard.Acquire(ctx, promptID)
	if err != nil {
		return nil, asAppError(err, "failed to lock prompt")
	}
	defer release()

	content, err := m.prompts.GetContent(ctx, promptID)
	if err != nil {
		return nil, asAppError(err, "failed to read prompt content")
	}

	if name == "" {
		name, err = m.defaultName(ctx, promptID)
		if err != nil {
			return nil, asAppError(err, "failed to generate version name")
		}
	} else {
		taken, err := m.store.NameExists(ctx, promptID, name)
		if err != nil {
			return nil, asAppError(err, "failed to check version name")
		}
		if taken {
			return nil, httpx.ErrAlreadyExists(fmt.Sprintf("version name %q already exists for this prompt", name))
		}
	}

	v, err := m.store.AppendAndActivate(ctx, promptID, name, description, content)
	if err != nil {
		return nil, asAppError(err, "failed to append version")
	}

	if err := m.applyRetention(ctx, promptID); err != nil {
		return nil, asAppError(err, "failed to apply retention policy")
	}

	m.logger.WithFields(logrus.Fields{
		"prompt_id":    promptID,
		"version_id":   v.ID,
		"version_name": v.VersionName,
	}).Info("version created")

	return viewOf(v, true), nil
}

// ListVersions returns a prompt's history in creation order. Archived
// versions are excluded unless requested. page/pageSize of 0 disable
// paging.
func (m *Manager) ListVersions(ctx context.Context, promptID string, includeArchived bool, page, pageSize int) ([]View, int64, error) {
	if err := m.ensurePromptExists(ctx, promptID); err != nil {
		return nil, 0, err
	}

	offset := 0
	if page > 1 && pageSize > 0 {
		offset = (page - 1) * pageSize
	}

	versions, activeID, total, err := m.store.Snapshot(ctx, promptID, includeArchived, offset, pageSize)
	if err != nil {
		return nil, 0, asAppError(err, "failed to list versions")
	}

	views := make([]View, 0, len(versions))
	for i := range versions {
		views = append(views, *viewOf(&versions[i], versions[i].ID == activeID))
	}
	return views, total, nil
}

// GetVersion returns a single version with its active flag
func (m *Manager) GetVersion(ctx context.Context, promptID string, versionID int64) (*View, error) {
	if err := m.ensurePromptExists(ctx, promptID); err != nil {
		return nil, err
	}

	v, err := m.store.Get(ctx, promptID, versionID)
	if err != nil {
		return nil, asAppError(err, "failed to get version")
	}

	activeID, _, err := m.store.ActiveID(ctx, promptID)
	if err != nil {
		return nil, asAppError(err, "failed to read active pointer")
	}

	return viewOf(v, v.ID == activeID), nil
}

// Rollback repoints the active pointer to an earlier version and writes
// its snapshot back into the prompt's live content. History is
// untouched: no version row is created or removed. Rolling back to the
// already-active version is an idempotent success; rolling back to an
// archived version is rejected until it is unarchived.
func (m *Manager) Rollback(ctx context.Context, promptID string, versionID int64) (*View, error) {
	if err := m.ensurePromptExists(ctx, promptID); err != nil {
		return nil, err
	}

	release, err := m.guard.Acquire(ctx, promptID)
	if err != nil {
		return nil, asAppError(err, "failed to lock prompt")
	}
	defer release()

	v, err := m.store.Get(ctx, promptID, versionID)
	if err != nil {
		return nil, asAppError(err, "failed to get version")
	}
	if v.Archived {
		return nil, httpx.ErrStateConflict("cannot roll back to an archived version; unarchive it first")
	}

	activeID, ok, err := m.store.ActiveID(ctx, promptID)
	if err != nil {
		return nil, asAppError(err, "failed to read active pointer")
	}
	if ok && activeID == v.ID {
		return viewOf(v, true), nil
	}

	if err := m.store.SetActive(ctx, promptID, v.ID); err != nil {
		return nil, asAppError(err, "failed to repoint active pointer")
	}
	if err := m.prompts.SetContent(ctx, promptID, v.ContentSnapshot); err != nil {
		// Put the pointer back so a failed rollback leaves no
		// half-applied state behind
		if ok {
			if restoreErr := m.store.SetActive(ctx, promptID, activeID); restoreErr != nil {
				m.logger.WithField("prompt_id", promptID).WithError(restoreErr).
					Error("failed to restore active pointer after content write failure")
			}
		}
		return nil, asAppError(err, "failed to restore prompt content")
	}

	m.logger.WithFields(logrus.Fields{
		"prompt_id":    promptID,
		"version_id":   v.ID,
		"version_name": v.VersionName,
	}).Info("rolled back to version")

	return viewOf(v, true), nil
}

// Unarchive clears the archived flag on a version, making it eligible
// for default listings and rollback again
func (m *Manager) Unarchive(ctx context.Context, promptID string, versionID int64) (*View, error) {
	if err := m.ensurePromptExists(ctx, promptID); err != nil {
		return nil, err
	}

	release, err := m.guard.Acquire(ctx, promptID)
	if err != nil {
		return nil, asAppError(err, "failed to lock prompt")
	}
	defer release()

	if err := m.store.Unarchive(ctx, promptID, versionID); err != nil {
		return nil, asAppError(err, "failed to unarchive version")
	}

	return m.GetVersion(ctx, promptID, versionID)
}

// ApplyRetention re-applies the retention policy for one prompt under
// the guard. It is a no-op when the prompt is already within bounds.
func (m *Manager) ApplyRetention(ctx context.Context, promptID string) error {
	release, err := m.guard.Acquire(ctx, promptID)
	if err != nil {
		return asAppError(err, "failed to lock prompt")
	}
	defer release()

	return m.applyRetention(ctx, promptID)
}

// SweepOnce applies the retention policy across every prompt that has
// versions. Used by the background sweeper.
func (m *Manager) SweepOnce(ctx context.Context) error {
	ids, err := m.store.PromptIDs(ctx)
	if err != nil {
		return asAppError(err, "failed to list prompts for sweep")
	}

	for _, id := range ids {
		if err := m.ApplyRetention(ctx, id); err != nil {
			// A busy prompt is retried on the next sweep
			m.logger.WithField("prompt_id", id).WithError(err).Warn("retention sweep skipped prompt")
		}
	}
	return nil
}

// DeleteHistory removes all versions and the active pointer of a
// prompt. Called when the prompt itself is deleted, so its id can never
// alias a new prompt's history.
func (m *Manager) DeleteHistory(ctx context.Context, promptID string) error {
	release, err := m.guard.Acquire(ctx, promptID)
	if err != nil {
		return asAppError(err, "failed to lock prompt")
	}
	defer release()

	if err := m.store.DeleteByPrompt(ctx, promptID); err != nil {
		return asAppError(err, "failed to delete version history")
	}
	return nil
}

// applyRetention archives the oldest non-active versions until the
// non-archived count is within MaxActiveVersions. The active version is
// always exempt. Idempotent: within bounds it does nothing.
func (m *Manager) applyRetention(ctx context.Context, promptID string) error {
	// Cheap pre-check before loading any version rows
	count, err := m.store.Count(ctx, promptID, false)
	if err != nil {
		return err
	}
	if count <= m.maxActive {
		return nil
	}

	versions, activeID, total, err := m.store.Snapshot(ctx, promptID, false, 0, 0)
	if err != nil {
		return err
	}
	if total <= m.maxActive {
		return nil
	}

	excess := total - m.maxActive
	for i := range versions {
		if excess <= 0 {
			break
		}
		if versions[i].ID == activeID {
			continue
		}
		if err := m.store.Archive(ctx, promptID, versions[i].ID); err != nil {
			return err
		}
		m.logger.WithFields(logrus.Fields{
			"prompt_id":  promptID,
			"version_id": versions[i].ID,
		}).Debug("version archived by retention policy")
		excess--
	}
	return nil
}

// defaultName derives a version name from the current timestamp and
// disambiguates collisions with a per-prompt numeric suffix. Callers
// hold the guard, so the chosen name stays free until the append.
func (m *Manager) defaultName(ctx context.Context, promptID string) (string, error) {
	base := "v" + time.Now().UTC().Format("20060102-150405")
	candidate := base
	for i := 2; ; i++ {
		taken, err := m.store.NameExists(ctx, promptID, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

func (m *Manager) ensurePromptExists(ctx context.Context, promptID string) error {
	if strings.TrimSpace(promptID) == "" {
		return httpx.ErrParamInvalid("prompt id is required")
	}
	ok, err := m.prompts.Exists(ctx, promptID)
	if err != nil {
		return asAppError(err, "failed to check prompt")
	}
	if !ok {
		return httpx.ErrNotFound("prompt not found")
	}
	return nil
}

func viewOf(v *model.PromptVersion, isActive bool) *View {
	return &View{
		ID:              v.ID,
		PromptID:        v.PromptID,
		VersionName:     v.VersionName,
		Description:     v.Description,
		ContentSnapshot: v.ContentSnapshot,
		SequenceNo:      v.SequenceNo,
		Archived:        v.Archived,
		IsActive:        isActive,
		CreatedAt:       v.CreatedAt,
	}
}

// asAppError passes business errors through untouched and wraps
// unexpected storage faults so they surface instead of being swallowed
func asAppError(err error, message string) *httpx.AppError {
	var appErr *httpx.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return httpx.ErrDatabaseError(message, err)
}
