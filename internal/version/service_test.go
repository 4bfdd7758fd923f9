package version

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"promptlab/internal/config"
	"promptlab/internal/httpx"

	"github.com/sirupsen/logrus"
)

// fakePrompts is an in-memory PromptContent for engine tests
type fakePrompts struct {
	mu            sync.Mutex
	content       map[string]string
	setContentErr error
}

func newFakePrompts(ids ...string) *fakePrompts {
	f := &fakePrompts{content: make(map[string]string)}
	for _, id := range ids {
		f.content[id] = "initial content of " + id
	}
	return f
}

func (f *fakePrompts) Exists(ctx context.Context, promptID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.content[promptID]
	return ok, nil
}

func (f *fakePrompts) GetContent(ctx context.Context, promptID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.content[promptID]; ok {
		return c, nil
	}
	return "", httpx.ErrNotFound("prompt not found")
}

func (f *fakePrompts) SetContent(ctx context.Context, promptID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setContentErr != nil {
		return f.setContentErr
	}
	if _, ok := f.content[promptID]; !ok {
		return httpx.ErrNotFound("prompt not found")
	}
	f.content[promptID] = content
	return nil
}

func (f *fakePrompts) failSetContent(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setContentErr = err
}

func (f *fakePrompts) get(promptID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.content[promptID]
}

func (f *fakePrompts) set(promptID, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.content[promptID] = content
}

func newTestManager(maxActive int, prompts *fakePrompts) *Manager {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewManager(NewMemStore(), prompts, config.VersioningConfig{
		MaxActiveVersions: maxActive,
		GuardTimeoutMS:    5000,
	}, logrus.NewEntry(logger))
}

func TestCreateVersionActivatesNewest(t *testing.T) {
	prompts := newFakePrompts("p1")
	m := newTestManager(50, prompts)
	ctx := context.Background()

	v1, err := m.CreateVersion(ctx, "p1", "baseline", "first cut")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !v1.IsActive {
		t.Error("new version should be active")
	}
	if v1.SequenceNo != 1 {
		t.Errorf("expected sequence 1, got %d", v1.SequenceNo)
	}
	if v1.ContentSnapshot != "initial content of p1" {
		t.Errorf("snapshot should capture live content, got %q", v1.ContentSnapshot)
	}

	prompts.set("p1", "revised content of p1")
	v2, err := m.CreateVersion(ctx, "p1", "revised", "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if v2.SequenceNo != 2 {
		t.Errorf("expected sequence 2, got %d", v2.SequenceNo)
	}

	// Exactly one version is active, and it is the newest
	views, total, err := m.ListVersions(ctx, "p1", false, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Fatalf("expected 2 versions, got %d", total)
	}
	activeCount := 0
	for _, v := range views {
		if v.IsActive {
			activeCount++
			if v.ID != v2.ID {
				t.Errorf("expected active version %d, got %d", v2.ID, v.ID)
			}
		}
	}
	if activeCount != 1 {
		t.Errorf("expected exactly one active version, got %d", activeCount)
	}
}

func TestCreateVersionDefaultName(t *testing.T) {
	prompts := newFakePrompts("p1")
	m := newTestManager(50, prompts)

	v, err := m.CreateVersion(context.Background(), "p1", "", "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !strings.HasPrefix(v.VersionName, "v") {
		t.Errorf("default name should be timestamp-derived, got %q", v.VersionName)
	}
}

func TestCreateVersionDuplicateName(t *testing.T) {
	prompts := newFakePrompts("p1")
	m := newTestManager(50, prompts)
	ctx := context.Background()

	if _, err := m.CreateVersion(ctx, "p1", "release", ""); err != nil {
		t.Fatal(err)
	}
	_, err := m.CreateVersion(ctx, "p1", "release", "")
	wantCode(t, err, httpx.CodeAlreadyExists)
}

func TestCreateVersionPromptMissing(t *testing.T) {
	m := newTestManager(50, newFakePrompts("p1"))

	_, err := m.CreateVersion(context.Background(), "nope", "", "")
	wantCode(t, err, httpx.CodeNotFound)
}

func TestConcurrentUnnamedCreates(t *testing.T) {
	prompts := newFakePrompts("p1")
	m := newTestManager(100, prompts)

	const n = 50
	var wg sync.WaitGroup
	names := make(chan string, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := m.CreateVersion(context.Background(), "p1", "", "")
			if err != nil {
				t.Errorf("concurrent create failed: %v", err)
				return
			}
			names <- v.VersionName
		}()
	}
	wg.Wait()
	close(names)

	seen := make(map[string]bool, n)
	for name := range names {
		if seen[name] {
			t.Errorf("duplicate default name %q", name)
		}
		seen[name] = true
	}
	if len(seen) != n {
		t.Errorf("expected %d distinct names, got %d", n, len(seen))
	}

	_, total, err := m.ListVersions(context.Background(), "p1", false, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != n {
		t.Errorf("expected %d versions, got %d", n, total)
	}
}

func TestRollbackRestoresContent(t *testing.T) {
	prompts := newFakePrompts("p1")
	m := newTestManager(50, prompts)
	ctx := context.Background()

	v1, err := m.CreateVersion(ctx, "p1", "one", "")
	if err != nil {
		t.Fatal(err)
	}
	prompts.set("p1", "second draft")
	if _, err := m.CreateVersion(ctx, "p1", "two", ""); err != nil {
		t.Fatal(err)
	}

	got, err := m.Rollback(ctx, "p1", v1.ID)
	if err != nil {
		t.Fatalf("rollback failed: %v", err)
	}
	if !got.IsActive {
		t.Error("rolled-back version should be active")
	}
	if prompts.get("p1") != v1.ContentSnapshot {
		t.Errorf("live content not restored: got %q, want %q", prompts.get("p1"), v1.ContentSnapshot)
	}

	// Rollback never adds or removes history rows
	_, total, err := m.ListVersions(ctx, "p1", true, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Errorf("expected history of 2 after rollback, got %d", total)
	}
}

func TestRollbackToActiveIsIdempotent(t *testing.T) {
	prompts := newFakePrompts("p1")
	m := newTestManager(50, prompts)
	ctx := context.Background()

	v, err := m.CreateVersion(ctx, "p1", "one", "")
	if err != nil {
		t.Fatal(err)
	}
	prompts.set("p1", "locally edited, not yet versioned")

	got, err := m.Rollback(ctx, "p1", v.ID)
	if err != nil {
		t.Fatalf("rollback to active failed: %v", err)
	}
	if !got.IsActive {
		t.Error("version should remain active")
	}
	// No repoint happened, so unversioned edits survive
	if prompts.get("p1") != "locally edited, not yet versioned" {
		t.Errorf("idempotent rollback must not rewrite content, got %q", prompts.get("p1"))
	}
}

func TestRollbackToMissingVersion(t *testing.T) {
	prompts := newFakePrompts("p1")
	m := newTestManager(50, prompts)
	ctx := context.Background()

	v, err := m.CreateVersion(ctx, "p1", "one", "")
	if err != nil {
		t.Fatal(err)
	}

	_, err = m.Rollback(ctx, "p1", 9999)
	wantCode(t, err, httpx.CodeNotFound)

	// Failed rollback leaves the pointer where it was
	got, err := m.GetVersion(ctx, "p1", v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsActive {
		t.Error("active pointer must be unchanged after failed rollback")
	}
}

func TestRollbackContentFailureRestoresPointer(t *testing.T) {
	prompts := newFakePrompts("p1")
	m := newTestManager(50, prompts)
	ctx := context.Background()

	v1, err := m.CreateVersion(ctx, "p1", "one", "")
	if err != nil {
		t.Fatal(err)
	}
	prompts.set("p1", "second draft")
	v2, err := m.CreateVersion(ctx, "p1", "two", "")
	if err != nil {
		t.Fatal(err)
	}

	prompts.failSetContent(errors.New("content store unavailable"))
	if _, err := m.Rollback(ctx, "p1", v1.ID); err == nil {
		t.Fatal("expected rollback to fail when content cannot be written")
	}

	// The repoint must be undone so the failure leaves nothing
	// half-applied
	got, err := m.GetVersion(ctx, "p1", v2.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsActive {
		t.Error("active pointer must be restored after failed content write")
	}

	prompts.failSetContent(nil)
	restored, err := m.Rollback(ctx, "p1", v1.ID)
	if err != nil {
		t.Fatalf("rollback should succeed once the content store recovers: %v", err)
	}
	if !restored.IsActive {
		t.Error("rolled-back version should be active")
	}
}

func TestRollbackToArchivedVersion(t *testing.T) {
	prompts := newFakePrompts("p1")
	m := newTestManager(1, prompts)
	ctx := context.Background()

	v1, err := m.CreateVersion(ctx, "p1", "one", "")
	if err != nil {
		t.Fatal(err)
	}
	v2, err := m.CreateVersion(ctx, "p1", "two", "")
	if err != nil {
		t.Fatal(err)
	}

	// With a bound of 1, creating v2 archived v1
	_, err = m.Rollback(ctx, "p1", v1.ID)
	wantCode(t, err, httpx.CodeStateConflict)

	got, err := m.GetVersion(ctx, "p1", v2.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsActive {
		t.Error("active pointer must be unchanged after rejected rollback")
	}
}

func TestUnarchiveEnablesRollback(t *testing.T) {
	prompts := newFakePrompts("p1")
	m := newTestManager(1, prompts)
	ctx := context.Background()

	v1, err := m.CreateVersion(ctx, "p1", "one", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.CreateVersion(ctx, "p1", "two", ""); err != nil {
		t.Fatal(err)
	}

	if _, err := m.Unarchive(ctx, "p1", v1.ID); err != nil {
		t.Fatalf("unarchive failed: %v", err)
	}
	got, err := m.Rollback(ctx, "p1", v1.ID)
	if err != nil {
		t.Fatalf("rollback after unarchive failed: %v", err)
	}
	if !got.IsActive {
		t.Error("rolled-back version should be active")
	}
}

func TestRetentionArchivesOldestNonActive(t *testing.T) {
	prompts := newFakePrompts("p1")
	m := newTestManager(3, prompts)
	ctx := context.Background()

	names := []string{"a", "b", "c", "d", "e"}
	for _, name := range names {
		if _, err := m.CreateVersion(ctx, "p1", name, ""); err != nil {
			t.Fatalf("create %s failed: %v", name, err)
		}
	}

	views, total, err := m.ListVersions(ctx, "p1", false, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Fatalf("expected 3 non-archived versions, got %d", total)
	}
	gotNames := make([]string, 0, len(views))
	for _, v := range views {
		gotNames = append(gotNames, v.VersionName)
	}
	if strings.Join(gotNames, ",") != "c,d,e" {
		t.Errorf("expected oldest versions archived, remaining %v", gotNames)
	}

	// Full history is still there, just flagged
	_, total, err = m.ListVersions(ctx, "p1", true, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 5 {
		t.Errorf("retention must archive, not delete: got %d of 5", total)
	}
}

func TestRetentionExemptsActiveVersion(t *testing.T) {
	prompts := newFakePrompts("p1")
	m := newTestManager(1, prompts)
	ctx := context.Background()

	var last *View
	var err error
	for _, name := range []string{"a", "b", "c"} {
		last, err = m.CreateVersion(ctx, "p1", name, "")
		if err != nil {
			t.Fatal(err)
		}
	}

	views, total, err := m.ListVersions(ctx, "p1", false, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 {
		t.Fatalf("expected only the active version to survive, got %d", total)
	}
	if views[0].ID != last.ID || !views[0].IsActive {
		t.Errorf("surviving version should be the active one, got %+v", views[0])
	}
}

func TestApplyRetentionIdempotent(t *testing.T) {
	prompts := newFakePrompts("p1")
	m := newTestManager(3, prompts)
	ctx := context.Background()

	for _, name := range []string{"a", "b"} {
		if _, err := m.CreateVersion(ctx, "p1", name, ""); err != nil {
			t.Fatal(err)
		}
	}

	for i := 0; i < 3; i++ {
		if err := m.ApplyRetention(ctx, "p1"); err != nil {
			t.Fatalf("retention pass %d failed: %v", i, err)
		}
	}

	_, total, err := m.ListVersions(ctx, "p1", false, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Errorf("within-bound history must be untouched, got %d", total)
	}
}

func TestListVersionsPaging(t *testing.T) {
	prompts := newFakePrompts("p1")
	m := newTestManager(50, prompts)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c", "d", "e"} {
		if _, err := m.CreateVersion(ctx, "p1", name, ""); err != nil {
			t.Fatal(err)
		}
	}

	views, total, err := m.ListVersions(ctx, "p1", false, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if total != 5 {
		t.Errorf("expected total 5, got %d", total)
	}
	if len(views) != 2 || views[0].VersionName != "c" || views[1].VersionName != "d" {
		t.Errorf("unexpected page 2: %+v", views)
	}
}

func TestCreateVersionWhileLocked(t *testing.T) {
	prompts := newFakePrompts("p1")
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	m := NewManager(NewMemStore(), prompts, config.VersioningConfig{
		MaxActiveVersions: 50,
		GuardTimeoutMS:    20,
	}, logrus.NewEntry(logger))

	release, err := m.guard.Acquire(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	_, err = m.CreateVersion(context.Background(), "p1", "", "")
	wantCode(t, err, httpx.CodeBusy)
}

func TestDeleteHistory(t *testing.T) {
	prompts := newFakePrompts("p1")
	m := newTestManager(50, prompts)
	ctx := context.Background()

	if _, err := m.CreateVersion(ctx, "p1", "one", ""); err != nil {
		t.Fatal(err)
	}
	if err := m.DeleteHistory(ctx, "p1"); err != nil {
		t.Fatalf("delete history failed: %v", err)
	}

	_, total, err := m.ListVersions(ctx, "p1", true, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 {
		t.Errorf("expected empty history, got %d", total)
	}
}

func TestSweepOnceAppliesRetentionEverywhere(t *testing.T) {
	prompts := newFakePrompts("p1", "p2")
	m := newTestManager(50, prompts)
	ctx := context.Background()

	for _, id := range []string{"p1", "p2"} {
		for _, name := range []string{"a", "b", "c"} {
			if _, err := m.CreateVersion(ctx, id, name, ""); err != nil {
				t.Fatal(err)
			}
		}
	}

	// Tighten the bound after the fact; only the sweep enforces it now
	m.maxActive = 1
	if err := m.SweepOnce(ctx); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	for _, id := range []string{"p1", "p2"} {
		_, total, err := m.ListVersions(ctx, id, false, 1, 0)
		if err != nil {
			t.Fatal(err)
		}
		if total != 1 {
			t.Errorf("prompt %s: expected 1 non-archived version after sweep, got %d", id, total)
		}
	}
}
