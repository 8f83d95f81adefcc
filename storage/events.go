package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/propwatch/propwatch/proposal"
)

const eventColumns = `id, tracker_id, tracker_type, proposal_number, title, kind,
	previous_status, current_status, file_path, detected_at`

// RecentEvents returns the newest events across all trackers, newest
// first, capped at limit.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]proposal.ProposalEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY detected_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	return collectEvents(rows)
}

// EventsForTracker returns one tracker's events, newest first.
func (s *Store) EventsForTracker(ctx context.Context, trackerID string, limit int) ([]proposal.ProposalEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE tracker_id = ?
		 ORDER BY detected_at DESC, id LIMIT ?`, trackerID, limit)
	if err != nil {
		return nil, fmt.Errorf("events for %s: %w", trackerID, err)
	}
	return collectEvents(rows)
}

// EventsSince returns events detected at or after the given time,
// oldest first, for report rendering.
func (s *Store) EventsSince(ctx context.Context, since time.Time) ([]proposal.ProposalEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE detected_at >= ?
		 ORDER BY detected_at, id`, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("events since %s: %w", since, err)
	}
	return collectEvents(rows)
}

func collectEvents(rows *sql.Rows) ([]proposal.ProposalEvent, error) {
	defer rows.Close()

	var events []proposal.ProposalEvent
	for rows.Next() {
		var ev proposal.ProposalEvent
		var trackerType, kind string
		var detectedAt int64
		if err := rows.Scan(&ev.ID, &ev.TrackerID, &trackerType, &ev.ProposalNumber,
			&ev.Title, &kind, &ev.PreviousStatus, &ev.CurrentStatus,
			&ev.FilePath, &detectedAt); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		ev.TrackerType = proposal.TrackerType(trackerType)
		ev.Kind = proposal.EventKind(kind)
		ev.DetectedAt = time.Unix(detectedAt, 0).UTC()
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return events, nil
}
