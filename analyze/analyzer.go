// Package analyze defines the optional event summarization collaborator.
// Analysis is best-effort: it attaches after events are durably
// recorded and its unavailability never blocks persistence.
package analyze

import (
	"context"

	"github.com/propwatch/propwatch/proposal"
)

// Analysis is a human-readable summary of one proposal event.
type Analysis struct {
	Title  string
	Detail string
}

// Analyzer summarizes proposal events. Implementations may call out to
// an external model; returning (nil, nil) means no analysis available.
type Analyzer interface {
	Summarize(ctx context.Context, event proposal.ProposalEvent) (*Analysis, error)
}

// Disabled is the default analyzer: it produces nothing.
type Disabled struct{}

// Summarize always reports no analysis.
func (Disabled) Summarize(ctx context.Context, event proposal.ProposalEvent) (*Analysis, error) {
	return nil, nil
}
