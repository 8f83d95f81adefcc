// Package engine orchestrates one tracker check: walk the synced
// working tree, diff the parsed proposals against the stored snapshot,
// classify the transitions and commit the resulting events.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/propwatch/propwatch/proposal"
)

// SnapshotStore persists the last-known proposal state per tracker. The
// engine reads once at run start and writes once at run end, so every
// comparison within a run uses a single consistent baseline.
type SnapshotStore interface {
	// Load returns the tracker's snapshot keyed by proposal number.
	Load(ctx context.Context, trackerID string) (map[int]proposal.SnapshotRecord, error)

	// Commit atomically replaces the tracker's snapshot and appends the
	// run's events. All-or-nothing: a partial failure must leave the
	// old snapshot intact.
	Commit(ctx context.Context, trackerID string, records map[int]proposal.SnapshotRecord, events []proposal.ProposalEvent) error
}

// Engine runs one tracker check: load snapshot, scan the working tree,
// classify every proposal seen in either, commit.
type Engine struct {
	store   SnapshotStore
	scanner *Scanner
	logger  *slog.Logger
}

// New creates an engine around the given snapshot store.
func New(store SnapshotStore, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:   store,
		scanner: NewScanner(logger),
		logger:  logger,
	}
}

// Run checks one tracker against its working tree and returns the
// classified events, ordered by proposal number. Each proposal number
// appearing in either the previous snapshot or the current scan is
// visited exactly once. On any failure the previous snapshot stays
// durable and no events are persisted.
func (e *Engine) Run(ctx context.Context, tracker proposal.Tracker, workdir string) ([]proposal.ProposalEvent, error) {
	snapshot, err := e.store.Load(ctx, tracker.ID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot for %s: %w", tracker.ID, err)
	}

	scan, err := e.scanner.Scan(ctx, tracker, workdir)
	if err != nil {
		return nil, err
	}

	// A tree that previously held proposals and now matches nothing is
	// far more likely a bad sync or layout change than a mass
	// withdrawal. Abort without touching the snapshot; the next
	// scheduled run retries.
	if scan.FilesMatched == 0 && len(snapshot) > 0 {
		return nil, fmt.Errorf("%w: no files matched for %s where %d proposals were previously known",
			proposal.ErrScan, tracker.ID, len(snapshot))
	}

	current := make(map[int]proposal.ProposalState, len(scan.States))
	for _, st := range scan.States {
		current[st.Number] = st
	}

	numbers := make([]int, 0, len(current)+len(snapshot))
	seen := make(map[int]bool, len(current)+len(snapshot))
	for n := range current {
		numbers = append(numbers, n)
		seen[n] = true
	}
	for n := range snapshot {
		if !seen[n] {
			numbers = append(numbers, n)
		}
	}
	sort.Ints(numbers)

	now := time.Now().UTC()
	events := make([]proposal.ProposalEvent, 0)
	records := make(map[int]proposal.SnapshotRecord, len(current))

	for _, n := range numbers {
		var prev *proposal.SnapshotRecord
		if rec, ok := snapshot[n]; ok {
			prev = &rec
		}
		var cur *proposal.ProposalState
		if st, ok := current[n]; ok {
			cur = &st
		}

		if cur == nil && prev != nil && !inScanScope(tracker, prev.FilePath) {
			// Only a parser-confirmed absence within the configured
			// scope counts as a disappearance; records that fell out of
			// scope ride along unchanged.
			records[n] = *prev
			continue
		}

		if kind, ok := proposal.Classify(tracker.Type, prev, cur); ok {
			events = append(events, buildEvent(tracker, n, kind, prev, cur, now))
		}

		if cur != nil {
			records[n] = proposal.SnapshotRecord{
				TrackerID:       tracker.ID,
				Number:          n,
				LastStatus:      cur.Status,
				LastTitle:       cur.Title,
				LastContentHash: cur.ContentHash,
				FilePath:        cur.FilePath,
				LastSeenAt:      now,
			}
		}
	}

	if err := e.store.Commit(ctx, tracker.ID, records, events); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", proposal.ErrCommit, tracker.ID, err)
	}

	e.logger.Info("tracker check complete",
		slog.String("tracker", tracker.ID),
		slog.Int("proposals", len(records)),
		slog.Int("events", len(events)),
		slog.Int("parse_failures", len(scan.ParseFailures)))

	return events, nil
}

// inScanScope reports whether a stored file path would have been
// visited by the current scan configuration.
func inScanScope(tracker proposal.Tracker, relPath string) bool {
	if relPath == "" {
		return true
	}
	if tracker.ProposalDir != "" {
		dir := strings.Trim(filepath.ToSlash(filepath.Clean(tracker.ProposalDir)), "/") + "/"
		if !strings.HasPrefix(filepath.ToSlash(relPath), dir) {
			return false
		}
	}
	pattern := tracker.FilePattern
	if pattern == "" {
		pattern = tracker.Type.DefaultFilePattern()
	}
	ok, err := doublestar.Match(pattern, filepath.Base(relPath))
	return err == nil && ok
}

func buildEvent(tracker proposal.Tracker, number int, kind proposal.EventKind, prev *proposal.SnapshotRecord, cur *proposal.ProposalState, now time.Time) proposal.ProposalEvent {
	ev := proposal.NewEvent(tracker, number, kind)
	ev.DetectedAt = now

	if prev != nil {
		ev.PreviousStatus = prev.LastStatus
		ev.Title = prev.LastTitle
		ev.FilePath = prev.FilePath
	}
	if cur != nil {
		ev.CurrentStatus = cur.Status
		ev.Title = cur.Title
		ev.FilePath = cur.FilePath
	} else if kind == proposal.EventWithdrawn {
		ev.CurrentStatus = "Withdrawn"
	}
	return ev
}
