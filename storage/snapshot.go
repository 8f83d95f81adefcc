package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/propwatch/propwatch/proposal"
)

// Load returns one tracker's snapshot keyed by proposal number. A
// tracker with no snapshot yields an empty map, not an error.
func (s *Store) Load(ctx context.Context, trackerID string) (map[int]proposal.SnapshotRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT number, last_status, last_title, last_content_hash, file_path, last_seen_at
		 FROM snapshots WHERE tracker_id = ?`, trackerID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", trackerID, err)
	}
	defer rows.Close()

	snapshot := make(map[int]proposal.SnapshotRecord)
	for rows.Next() {
		rec := proposal.SnapshotRecord{TrackerID: trackerID}
		var seenAt int64
		if err := rows.Scan(&rec.Number, &rec.LastStatus, &rec.LastTitle,
			&rec.LastContentHash, &rec.FilePath, &seenAt); err != nil {
			return nil, fmt.Errorf("scan snapshot row %s: %w", trackerID, err)
		}
		rec.LastSeenAt = time.Unix(seenAt, 0).UTC()
		snapshot[rec.Number] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", trackerID, err)
	}
	return snapshot, nil
}

// Commit replaces the tracker's snapshot and appends the run's events
// in a single transaction. All-or-nothing per tracker: on any failure
// the previous snapshot remains the durable baseline and none of the
// events are recorded.
func (s *Store) Commit(ctx context.Context, trackerID string, records map[int]proposal.SnapshotRecord, events []proposal.ProposalEvent) error {
	lock := s.trackerLock(trackerID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit %s: %w", trackerID, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE tracker_id = ?`, trackerID); err != nil {
		return fmt.Errorf("clear snapshot %s: %w", trackerID, err)
	}

	for _, rec := range records {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO snapshots (tracker_id, number, last_status, last_title, last_content_hash, file_path, last_seen_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			trackerID, rec.Number, rec.LastStatus, rec.LastTitle,
			rec.LastContentHash, rec.FilePath, rec.LastSeenAt.Unix())
		if err != nil {
			return fmt.Errorf("write snapshot %s/%d: %w", trackerID, rec.Number, err)
		}
	}

	for _, ev := range events {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO events (id, tracker_id, tracker_type, proposal_number, title, kind, previous_status, current_status, file_path, detected_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ev.ID, ev.TrackerID, string(ev.TrackerType), ev.ProposalNumber, ev.Title,
			string(ev.Kind), ev.PreviousStatus, ev.CurrentStatus, ev.FilePath, ev.DetectedAt.Unix())
		if err != nil {
			return fmt.Errorf("append event %s: %w", ev.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", trackerID, err)
	}
	return nil
}
