package proposal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrioritize_Defaults(t *testing.T) {
	events := []ProposalEvent{
		{ID: "1", Kind: EventCreated},
		{ID: "2", Kind: EventContentModified},
		{ID: "3", Kind: EventAccepted},
		{ID: "4", Kind: EventStatusChanged},
		{ID: "5", Kind: EventRejected},
		{ID: "6", Kind: EventWithdrawn},
		{ID: "7", Kind: EventPostponed},
	}

	got := Prioritize(events, nil)

	ids := make([]string, 0, len(got))
	for _, ev := range got {
		ids = append(ids, ev.ID)
	}
	assert.Equal(t, []string{"1", "3", "5", "6"}, ids, "order preserved, default subset kept")
	assert.Len(t, events, 7, "input untouched")
}

func TestPrioritize_CustomKinds(t *testing.T) {
	events := []ProposalEvent{
		{ID: "1", Kind: EventCreated},
		{ID: "2", Kind: EventContentModified},
	}

	got := Prioritize(events, []EventKind{EventContentModified})
	assert.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)

	// An explicitly empty list selects nothing; only nil means default.
	assert.Empty(t, Prioritize(events, []EventKind{}))
}
