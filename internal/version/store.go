package version

import (
	"context"

	"promptlab/internal/model"
)

// Store is the durable ledger of prompt versions plus the per-prompt
// active pointer. Version rows are append-only: archiving is the only
// mutation allowed after creation.
//
// Implementations return *httpx.AppError for business conditions
// (not found, duplicate name, archiving the active version) and plain
// wrapped errors for storage faults.
type Store interface {
	// AppendAndActivate inserts a new version and repoints the active
	// pointer to it in a single atomic step: no reader may observe the
	// new row without the repoint, or vice versa. The version is
	// assigned an id and a per-prompt strictly increasing sequence
	// number. Fails if the name is already taken within the prompt.
	AppendAndActivate(ctx context.Context, promptID, name, description, snapshot string) (*model.PromptVersion, error)

	// Snapshot returns a consistent view of a prompt's history: the
	// versions in creation (sequence) order, the active version id
	// (0 if no versions exist) and the total count matching the
	// includeArchived filter. offset/limit page the result; limit 0
	// means no limit.
	Snapshot(ctx context.Context, promptID string, includeArchived bool, offset, limit int) ([]model.PromptVersion, int64, int64, error)

	// Get returns a single version; it fails when the id is absent or
	// belongs to a different prompt.
	Get(ctx context.Context, promptID string, versionID int64) (*model.PromptVersion, error)

	// NameExists reports whether a version name is taken within a prompt.
	NameExists(ctx context.Context, promptID, name string) (bool, error)

	// Archive marks a version as archived. Archiving the currently
	// active version is rejected.
	Archive(ctx context.Context, promptID string, versionID int64) error

	// Unarchive clears the archived flag.
	Unarchive(ctx context.Context, promptID string, versionID int64) error

	// Count counts a prompt's versions.
	Count(ctx context.Context, promptID string, includeArchived bool) (int64, error)

	// ActiveID returns the active version id for a prompt. The second
	// return value is false when the prompt has no versions yet.
	ActiveID(ctx context.Context, promptID string) (int64, bool, error)

	// SetActive repoints the active pointer to an existing version of
	// the prompt.
	SetActive(ctx context.Context, promptID string, versionID int64) error

	// PromptIDs lists every prompt id that has at least one version.
	PromptIDs(ctx context.Context) ([]string, error)

	// DeleteByPrompt removes all versions and the active pointer of a
	// prompt (cascade on prompt deletion).
	DeleteByPrompt(ctx context.Context, promptID string) error
}

// PromptContent is the prompt collaborator consumed by the version
// engine: live content reads/writes and existence checks.
type PromptContent interface {
	Exists(ctx context.Context, promptID string) (bool, error)
	GetContent(ctx context.Context, promptID string) (string, error)
	SetContent(ctx context.Context, promptID, content string) error
}
