package proposal

// DefaultPriorityKinds is the event subset that triggers notification
// when no explicit priority configuration is given.
var DefaultPriorityKinds = []EventKind{
	EventCreated,
	EventAccepted,
	EventRejected,
	EventWithdrawn,
}

// Prioritize filters events down to the configured high-priority subset.
// It is a pure filter: input order is preserved and the input slice is
// never mutated. A nil kinds list means DefaultPriorityKinds.
func Prioritize(events []ProposalEvent, kinds []EventKind) []ProposalEvent {
	if kinds == nil {
		kinds = DefaultPriorityKinds
	}
	want := make(map[EventKind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}

	out := make([]ProposalEvent, 0, len(events))
	for _, ev := range events {
		if want[ev.Kind] {
			out = append(out, ev)
		}
	}
	return out
}
