package proposal

import "strings"

// statusKinds is the base keyword table mapping a normalized status
// string to the event kind family it implies. Tracker types layer
// vocabulary on top of it via trackerStatusKinds.
var statusKinds = map[string]EventKind{
	"accepted":    EventAccepted,
	"final":       EventAccepted,
	"active":      EventAccepted,
	"living":      EventAccepted,
	"rejected":    EventRejected,
	"withdrawn":   EventWithdrawn,
	"abandoned":   EventWithdrawn,
	"postponed":   EventPostponed,
	"deferred":    EventPostponed,
	"resurrected": EventResurrected,
	"superseded":  EventSuperseded,
	"replaced":    EventSuperseded,
}

// trackerStatusKinds holds per-type vocabulary beyond the base table.
// Rust RFCs have no formal status field, so their entries cover the
// merge/close wording contributors actually write.
var trackerStatusKinds = map[TrackerType]map[string]EventKind{
	TrackerRustRFC: {
		"merged": EventAccepted,
		"closed": EventRejected,
	},
	TrackerDjangoDEP: {
		"implemented": EventAccepted,
	},
}

// draftLike statuses mark a proposal still in flight; a draft-like
// proposal disappearing from the tree is treated as withdrawn, anything
// else as a repository reorganization. Empty and "unknown" statuses are
// deliberately excluded: parsers that cannot determine a status (Rust
// RFCs in particular) would otherwise turn every file move into a
// withdrawal.
var draftLike = map[string]bool{
	"draft":    true,
	"deferred": true,
	"proposed": true,
}

func normalizeStatus(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// statusKind resolves a raw status string to its event kind family.
func statusKind(t TrackerType, status string) (EventKind, bool) {
	norm := normalizeStatus(status)
	if extra, ok := trackerStatusKinds[t]; ok {
		if k, ok := extra[norm]; ok {
			return k, true
		}
	}
	k, ok := statusKinds[norm]
	return k, ok
}

// terminalKind reports whether the kind marks the end of a proposal's
// lifecycle. Leaving a terminal status without entering another mapped
// one is a resurrection.
func terminalKind(k EventKind) bool {
	switch k {
	case EventAccepted, EventRejected, EventWithdrawn, EventSuperseded:
		return true
	}
	return false
}

// Classify decides which event, if any, the transition from prev to cur
// represents. It is total: for any input pair it returns exactly one
// kind or ok=false, and never panics. First matching rule wins:
//
//  1. appeared            -> created
//  2. disappeared         -> withdrawn if the last status was draft-like,
//     otherwise nothing (finalized files move during reorganizations)
//  3. status and hash equal -> nothing
//  4. status differs      -> keyword table kind, resurrected when a
//     terminal status was left for an unmapped one, else status_changed
//  5. hash differs        -> content_modified
func Classify(t TrackerType, prev *SnapshotRecord, cur *ProposalState) (EventKind, bool) {
	switch {
	case prev == nil && cur == nil:
		return "", false
	case prev == nil:
		return EventCreated, true
	case cur == nil:
		if draftLike[normalizeStatus(prev.LastStatus)] {
			return EventWithdrawn, true
		}
		return "", false
	}

	oldStatus := normalizeStatus(prev.LastStatus)
	newStatus := normalizeStatus(cur.Status)

	if oldStatus == newStatus {
		if prev.LastContentHash == cur.ContentHash {
			return "", false
		}
		return EventContentModified, true
	}

	if kind, ok := statusKind(t, newStatus); ok {
		return kind, true
	}
	if oldKind, ok := statusKind(t, oldStatus); ok && terminalKind(oldKind) {
		return EventResurrected, true
	}
	return EventStatusChanged, true
}
