package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propwatch/propwatch/analyze"
	"github.com/propwatch/propwatch/proposal"
	"github.com/propwatch/propwatch/proposal/engine"
)

type memStore struct {
	snapshots map[string]map[int]proposal.SnapshotRecord
	events    []proposal.ProposalEvent
}

func newMemStore() *memStore {
	return &memStore{snapshots: make(map[string]map[int]proposal.SnapshotRecord)}
}

func (m *memStore) Load(ctx context.Context, trackerID string) (map[int]proposal.SnapshotRecord, error) {
	out := make(map[int]proposal.SnapshotRecord, len(m.snapshots[trackerID]))
	for n, rec := range m.snapshots[trackerID] {
		out[n] = rec
	}
	return out, nil
}

func (m *memStore) Commit(ctx context.Context, trackerID string, records map[int]proposal.SnapshotRecord, events []proposal.ProposalEvent) error {
	m.snapshots[trackerID] = records
	m.events = append(m.events, events...)
	return nil
}

// fakeSyncer maps repo URLs to prepared local directories.
type fakeSyncer struct {
	dirs  map[string]string
	fails map[string]error
}

func (f *fakeSyncer) Sync(ctx context.Context, repoURL, branch string) (string, error) {
	if err := f.fails[repoURL]; err != nil {
		return "", err
	}
	dir, ok := f.dirs[repoURL]
	if !ok {
		return "", errors.New("unknown repo " + repoURL)
	}
	return dir, nil
}

type captureNotifier struct {
	events []proposal.ProposalEvent
}

func (c *captureNotifier) Notify(ctx context.Context, events []proposal.ProposalEvent, analyses map[string]*analyze.Analysis) error {
	c.events = append(c.events, events...)
	return nil
}

func writeProposal(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func eipDoc(status string) string {
	return "---\neip: 1\ntitle: Test Proposal\nstatus: " + status + "\n---\n\nBody.\n"
}

func TestCheckAll_Statuses(t *testing.T) {
	goodDir := t.TempDir()
	writeProposal(t, goodDir, "eip-1.md", eipDoc("Draft"))

	syncer := &fakeSyncer{
		dirs:  map[string]string{"https://github.com/ok/repo": goodDir},
		fails: map[string]error{"https://github.com/bad/repo": errors.New("network down")},
	}
	store := newMemStore()
	notifier := &captureNotifier{}
	r := New(engine.New(store, nil), syncer, nil,
		WithNotifier(notifier), WithConcurrency(2))

	trackers := []proposal.Tracker{
		{ID: "good", Type: proposal.TrackerEIP, RepoURL: "https://github.com/ok/repo", Enabled: true},
		{ID: "bad", Type: proposal.TrackerEIP, RepoURL: "https://github.com/bad/repo", Enabled: true},
		{ID: "off", Type: proposal.TrackerEIP, RepoURL: "https://github.com/off/repo", Enabled: false},
	}

	result := r.CheckAll(context.Background(), trackers)

	assert.Equal(t, StatusSuccess, result.Statuses["good"])
	assert.Equal(t, StatusFailed, result.Statuses["bad"])
	assert.Equal(t, StatusSkipped, result.Statuses["off"])

	success, failed, skipped := result.StatusCounts()
	assert.Equal(t, []int{1, 1, 1}, []int{success, failed, skipped})

	require.Len(t, result.Events, 1, "failed tracker must not block the healthy one")
	assert.Equal(t, proposal.EventCreated, result.Events[0].Kind)
	assert.Equal(t, result.Notified, notifier.events)
}

// Only high-priority events reach the notifier; everything detected is
// still reported in Events.
func TestCheckAll_PriorityFilter(t *testing.T) {
	dir := t.TempDir()
	writeProposal(t, dir, "eip-1.md", eipDoc("Draft"))

	syncer := &fakeSyncer{dirs: map[string]string{"https://github.com/ok/repo": dir}}
	store := newMemStore()
	notifier := &captureNotifier{}
	r := New(engine.New(store, nil), syncer, nil, WithNotifier(notifier))

	trackers := []proposal.Tracker{
		{ID: "eips", Type: proposal.TrackerEIP, RepoURL: "https://github.com/ok/repo", Enabled: true},
	}

	// First pass: created is high priority by default.
	result := r.CheckAll(context.Background(), trackers)
	require.Len(t, result.Notified, 1)

	// Second pass: Draft -> Review is a plain status change, detected
	// but below the default notification bar.
	writeProposal(t, dir, "eip-1.md", eipDoc("Review"))
	notifier.events = nil
	result = r.CheckAll(context.Background(), trackers)
	require.Len(t, result.Events, 1)
	assert.Equal(t, proposal.EventStatusChanged, result.Events[0].Kind)
	assert.Empty(t, result.Notified)
	assert.Empty(t, notifier.events)
}

func TestCheckAll_CustomPriority(t *testing.T) {
	dir := t.TempDir()
	writeProposal(t, dir, "eip-1.md", eipDoc("Draft"))

	syncer := &fakeSyncer{dirs: map[string]string{"https://github.com/ok/repo": dir}}
	notifier := &captureNotifier{}
	r := New(engine.New(newMemStore(), nil), syncer, nil,
		WithNotifier(notifier),
		WithPriorityKinds([]proposal.EventKind{proposal.EventStatusChanged}))

	trackers := []proposal.Tracker{
		{ID: "eips", Type: proposal.TrackerEIP, RepoURL: "https://github.com/ok/repo", Enabled: true},
	}

	result := r.CheckAll(context.Background(), trackers)
	require.Len(t, result.Events, 1)
	assert.Empty(t, result.Notified, "created excluded by the custom subset")

	writeProposal(t, dir, "eip-1.md", eipDoc("Review"))
	result = r.CheckAll(context.Background(), trackers)
	require.Len(t, result.Notified, 1)
	assert.Equal(t, proposal.EventStatusChanged, result.Notified[0].Kind)
}

// A failed pass leaves the snapshot untouched, so the next pass
// re-detects from the same baseline.
func TestCheckAll_FailureRetriesNextPass(t *testing.T) {
	dir := t.TempDir()
	writeProposal(t, dir, "eip-1.md", eipDoc("Draft"))

	syncer := &fakeSyncer{
		dirs:  map[string]string{"https://github.com/ok/repo": dir},
		fails: map[string]error{"https://github.com/ok/repo": errors.New("transient")},
	}
	store := newMemStore()
	r := New(engine.New(store, nil), syncer, nil)

	trackers := []proposal.Tracker{
		{ID: "eips", Type: proposal.TrackerEIP, RepoURL: "https://github.com/ok/repo", Enabled: true},
	}

	result := r.CheckAll(context.Background(), trackers)
	assert.Equal(t, StatusFailed, result.Statuses["eips"])
	assert.Empty(t, result.Events)

	delete(syncer.fails, "https://github.com/ok/repo")
	result = r.CheckAll(context.Background(), trackers)
	assert.Equal(t, StatusSuccess, result.Statuses["eips"])
	require.Len(t, result.Events, 1)
	assert.Equal(t, proposal.EventCreated, result.Events[0].Kind)
}
