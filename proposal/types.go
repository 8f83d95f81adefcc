// Package proposal holds the core proposal-tracking domain types:
// parsed proposal state, snapshot records, event classification and
// prioritization. It is a leaf package; the check orchestration lives
// in proposal/engine.
package proposal

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TrackerType identifies the proposal document format a tracker watches.
type TrackerType string

const (
	TrackerEIP       TrackerType = "eip"
	TrackerRustRFC   TrackerType = "rust_rfc"
	TrackerPEP       TrackerType = "pep"
	TrackerDjangoDEP TrackerType = "django_dep"
)

// Valid reports whether t is a known tracker type.
func (t TrackerType) Valid() bool {
	switch t {
	case TrackerEIP, TrackerRustRFC, TrackerPEP, TrackerDjangoDEP:
		return true
	}
	return false
}

// DefaultFilePattern returns the typical file glob for the tracker type,
// used when a tracker config leaves file_pattern empty.
func (t TrackerType) DefaultFilePattern() string {
	switch t {
	case TrackerEIP:
		return "eip-*.md"
	case TrackerRustRFC:
		return "[0-9]*.md"
	case TrackerPEP:
		return "pep-*.rst"
	case TrackerDjangoDEP:
		return "*.rst"
	}
	return "*"
}

// Tracker is one configured proposal source. Built from config at
// startup and immutable during a run.
type Tracker struct {
	ID          string
	Type        TrackerType
	RepoURL     string
	Branch      string
	ProposalDir string
	FilePattern string
	Enabled     bool
}

// Key returns a stable human-readable identifier for log lines.
func (t Tracker) Key() string {
	return fmt.Sprintf("%s:%s@%s", t.Type, t.RepoURL, t.Branch)
}

// ProposalState is the parsed state of one proposal file within a single
// run. Number uniquely identifies a proposal within a tracker.
type ProposalState struct {
	TrackerID     string
	Number        int
	Title         string
	Status        string
	RawStatusText string
	Type          string
	Author        string
	FilePath      string
	ContentHash   string
}

// SnapshotRecord is the persisted last-known state of one proposal,
// owned exclusively by the snapshot store.
type SnapshotRecord struct {
	TrackerID       string
	Number          int
	LastStatus      string
	LastTitle       string
	LastContentHash string
	FilePath        string
	LastSeenAt      time.Time
}

// EventKind classifies one proposal state transition.
type EventKind string

const (
	EventCreated         EventKind = "created"
	EventStatusChanged   EventKind = "status_changed"
	EventAccepted        EventKind = "accepted"
	EventRejected        EventKind = "rejected"
	EventWithdrawn       EventKind = "withdrawn"
	EventPostponed       EventKind = "postponed"
	EventResurrected     EventKind = "resurrected"
	EventSuperseded      EventKind = "superseded"
	EventContentModified EventKind = "content_modified"
)

// ProposalEvent is one classified transition for one proposal between
// two runs. Immutable once written; the audit trail and notification
// driver.
type ProposalEvent struct {
	ID             string
	TrackerID      string
	TrackerType    TrackerType
	ProposalNumber int
	Title          string
	Kind           EventKind
	PreviousStatus string
	CurrentStatus  string
	FilePath       string
	DetectedAt     time.Time
}

// NewEvent builds a ProposalEvent with a fresh ID and timestamp.
func NewEvent(tracker Tracker, number int, kind EventKind) ProposalEvent {
	return ProposalEvent{
		ID:             uuid.New().String(),
		TrackerID:      tracker.ID,
		TrackerType:    tracker.Type,
		ProposalNumber: number,
		Kind:           kind,
		DetectedAt:     time.Now().UTC(),
	}
}
