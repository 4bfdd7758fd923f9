package version

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"promptlab/internal/httpx"
	"promptlab/internal/model"
)

// MemStore is an in-memory Store implementation. It backs local
// development without a database and the engine's tests. Every method
// runs under a single lock, so each store operation is atomic exactly
// like a database transaction.
type MemStore struct {
	mu        sync.RWMutex
	nextID    int64
	histories map[string]*history
}

type history struct {
	versions []*model.PromptVersion // ordered by sequence number
	byName   map[string]*model.PromptVersion
	activeID int64
	nextSeq  int64
}

// NewMemStore creates an empty in-memory version store
func NewMemStore() *MemStore {
	return &MemStore{histories: make(map[string]*history)}
}

func (s *MemStore) historyFor(promptID string) *history {
	h, ok := s.histories[promptID]
	if !ok {
		h = &history{byName: make(map[string]*model.PromptVersion)}
		s.histories[promptID] = h
	}
	return h
}

func copyVersion(v *model.PromptVersion) *model.PromptVersion {
	c := *v
	return &c
}

// AppendAndActivate inserts a version and repoints the active pointer
// under one lock acquisition
func (s *MemStore) AppendAndActivate(ctx context.Context, promptID, name, description, snapshot string) (*model.PromptVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.historyFor(promptID)
	if _, taken := h.byName[name]; taken {
		return nil, httpx.ErrAlreadyExists(fmt.Sprintf("version name %q already exists for this prompt", name))
	}

	s.nextID++
	h.nextSeq++
	v := &model.PromptVersion{
		ID:              s.nextID,
		PromptID:        promptID,
		VersionName:     name,
		Description:     description,
		ContentSnapshot: snapshot,
		SequenceNo:      h.nextSeq,
		CreatedAt:       time.Now(),
	}
	h.versions = append(h.versions, v)
	h.byName[name] = v
	h.activeID = v.ID

	return copyVersion(v), nil
}

// Snapshot returns versions in sequence order plus the active id and
// the total count for the filter
func (s *MemStore) Snapshot(ctx context.Context, promptID string, includeArchived bool, offset, limit int) ([]model.PromptVersion, int64, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.histories[promptID]
	if !ok {
		return nil, 0, 0, nil
	}

	matched := make([]model.PromptVersion, 0, len(h.versions))
	for _, v := range h.versions {
		if !includeArchived && v.Archived {
			continue
		}
		matched = append(matched, *v)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].SequenceNo < matched[j].SequenceNo })

	total := int64(len(matched))
	if offset > 0 {
		if offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[offset:]
		}
	}
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	return matched, h.activeID, total, nil
}

// Get returns a version by id, scoped to the owning prompt
func (s *MemStore) Get(ctx context.Context, promptID string, versionID int64) (*model.PromptVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if h, ok := s.histories[promptID]; ok {
		for _, v := range h.versions {
			if v.ID == versionID {
				return copyVersion(v), nil
			}
		}
	}
	return nil, httpx.ErrNotFound("version not found")
}

// NameExists reports whether a version name is taken within a prompt
func (s *MemStore) NameExists(ctx context.Context, promptID, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.histories[promptID]
	if !ok {
		return false, nil
	}
	_, taken := h.byName[name]
	return taken, nil
}

// Archive marks a version as archived; the active version is rejected
func (s *MemStore) Archive(ctx context.Context, promptID string, versionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.histories[promptID]
	if !ok {
		return httpx.ErrNotFound("version not found")
	}
	if h.activeID == versionID {
		return httpx.ErrStateConflict("cannot archive the active version")
	}
	for _, v := range h.versions {
		if v.ID == versionID {
			v.Archived = true
			return nil
		}
	}
	return httpx.ErrNotFound("version not found")
}

// Unarchive clears the archived flag on a version
func (s *MemStore) Unarchive(ctx context.Context, promptID string, versionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.histories[promptID]; ok {
		for _, v := range h.versions {
			if v.ID == versionID {
				v.Archived = false
				return nil
			}
		}
	}
	return httpx.ErrNotFound("version not found")
}

// Count counts a prompt's versions
func (s *MemStore) Count(ctx context.Context, promptID string, includeArchived bool) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.histories[promptID]
	if !ok {
		return 0, nil
	}
	if includeArchived {
		return int64(len(h.versions)), nil
	}
	var count int64
	for _, v := range h.versions {
		if !v.Archived {
			count++
		}
	}
	return count, nil
}

// ActiveID returns the active version id for a prompt
func (s *MemStore) ActiveID(ctx context.Context, promptID string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.histories[promptID]
	if !ok || h.activeID == 0 {
		return 0, false, nil
	}
	return h.activeID, true, nil
}

// SetActive repoints the active pointer to an existing version
func (s *MemStore) SetActive(ctx context.Context, promptID string, versionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.histories[promptID]; ok {
		for _, v := range h.versions {
			if v.ID == versionID {
				h.activeID = versionID
				return nil
			}
		}
	}
	return httpx.ErrNotFound("version not found")
}

// PromptIDs lists every prompt id that has versions
func (s *MemStore) PromptIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.histories))
	for id, h := range s.histories {
		if len(h.versions) > 0 {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// DeleteByPrompt removes all versions and the pointer of a prompt
func (s *MemStore) DeleteByPrompt(ctx context.Context, promptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.histories, promptID)
	return nil
}
