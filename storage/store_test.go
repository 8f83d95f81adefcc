package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propwatch/propwatch/proposal"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func record(trackerID string, number int, status string) proposal.SnapshotRecord {
	return proposal.SnapshotRecord{
		TrackerID:       trackerID,
		Number:          number,
		LastStatus:      status,
		LastTitle:       "Title",
		LastContentHash: "hash",
		FilePath:        "some/path.md",
		LastSeenAt:      time.Now().UTC().Truncate(time.Second),
	}
}

func event(trackerID string, number int, kind proposal.EventKind) proposal.ProposalEvent {
	ev := proposal.NewEvent(proposal.Tracker{ID: trackerID, Type: proposal.TrackerEIP}, number, kind)
	ev.DetectedAt = ev.DetectedAt.Truncate(time.Second)
	return ev
}

func TestStore_LoadEmpty(t *testing.T) {
	store := openTestStore(t)

	snapshot, err := store.Load(context.Background(), "eips")
	require.NoError(t, err)
	assert.Empty(t, snapshot)
}

func TestStore_CommitAndLoad(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	records := map[int]proposal.SnapshotRecord{
		1: record("eips", 1, "Draft"),
		2: record("eips", 2, "Final"),
	}
	events := []proposal.ProposalEvent{event("eips", 1, proposal.EventCreated)}
	require.NoError(t, store.Commit(ctx, "eips", records, events))

	snapshot, err := store.Load(ctx, "eips")
	require.NoError(t, err)
	assert.Equal(t, records, snapshot)

	got, err := store.EventsForTracker(ctx, "eips", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, events[0], got[0])
}

// Commit replaces the tracker's snapshot wholesale; records absent from
// the new snapshot disappear.
func TestStore_CommitReplaces(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Commit(ctx, "eips", map[int]proposal.SnapshotRecord{
		1: record("eips", 1, "Draft"),
		2: record("eips", 2, "Draft"),
	}, nil))
	require.NoError(t, store.Commit(ctx, "eips", map[int]proposal.SnapshotRecord{
		2: record("eips", 2, "Accepted"),
	}, nil))

	snapshot, err := store.Load(ctx, "eips")
	require.NoError(t, err)
	assert.NotContains(t, snapshot, 1)
	assert.Equal(t, "Accepted", snapshot[2].LastStatus)
}

// A failing commit rolls back both the snapshot replacement and the
// event appends.
func TestStore_CommitAtomic(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Commit(ctx, "eips", map[int]proposal.SnapshotRecord{
		1: record("eips", 1, "Draft"),
	}, nil))

	// Duplicate event IDs violate the primary key mid-transaction.
	dup := event("eips", 1, proposal.EventAccepted)
	err := store.Commit(ctx, "eips", map[int]proposal.SnapshotRecord{
		1: record("eips", 1, "Accepted"),
	}, []proposal.ProposalEvent{dup, dup})
	require.Error(t, err)

	snapshot, err := store.Load(ctx, "eips")
	require.NoError(t, err)
	assert.Equal(t, "Draft", snapshot[1].LastStatus, "old snapshot intact after failed commit")

	events, err := store.EventsForTracker(ctx, "eips", 10)
	require.NoError(t, err)
	assert.Empty(t, events, "no events persisted by failed commit")
}

// Two trackers committing in parallel on one store must both succeed;
// the runner checks trackers concurrently by default.
func TestStore_ConcurrentCommits(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	const perTracker = 50
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, trackerID := range []string{"eips", "peps"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < perTracker; i++ {
				records := map[int]proposal.SnapshotRecord{1: record(id, 1, "Draft")}
				events := []proposal.ProposalEvent{event(id, i, proposal.EventContentModified)}
				if err := store.Commit(ctx, id, records, events); err != nil {
					errs <- err
					return
				}
			}
		}(trackerID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent commit failed: %v", err)
	}

	for _, id := range []string{"eips", "peps"} {
		events, err := store.EventsForTracker(ctx, id, perTracker*2)
		require.NoError(t, err)
		assert.Len(t, events, perTracker)
	}
}

func TestStore_TrackersIsolated(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Commit(ctx, "eips", map[int]proposal.SnapshotRecord{
		1: record("eips", 1, "Draft"),
	}, nil))
	require.NoError(t, store.Commit(ctx, "peps", map[int]proposal.SnapshotRecord{
		1: record("peps", 1, "Active"),
	}, nil))

	eips, err := store.Load(ctx, "eips")
	require.NoError(t, err)
	peps, err := store.Load(ctx, "peps")
	require.NoError(t, err)
	assert.Equal(t, "Draft", eips[1].LastStatus)
	assert.Equal(t, "Active", peps[1].LastStatus)
}

func TestStore_EventQueries(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	old := event("eips", 1, proposal.EventCreated)
	old.DetectedAt = time.Now().UTC().Add(-2 * time.Hour).Truncate(time.Second)
	recent := event("peps", 2, proposal.EventAccepted)

	require.NoError(t, store.Commit(ctx, "eips", nil, []proposal.ProposalEvent{old}))
	require.NoError(t, store.Commit(ctx, "peps", nil, []proposal.ProposalEvent{recent}))

	all, err := store.RecentEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, recent.ID, all[0].ID, "newest first")

	since, err := store.EventsSince(ctx, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, since, 1)
	assert.Equal(t, recent.ID, since[0].ID)
}
