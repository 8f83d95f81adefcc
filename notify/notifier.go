// Package notify delivers high-priority proposal events to configured
// channels. Channels receive already-filtered events plus optional
// analysis text and have no visibility into how events were detected.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/propwatch/propwatch/analyze"
	"github.com/propwatch/propwatch/proposal"
)

// Notifier is one delivery channel for proposal events.
type Notifier interface {
	Notify(ctx context.Context, events []proposal.ProposalEvent, analyses map[string]*analyze.Analysis) error
}

// Console writes events to a writer, one line per event. It is the
// default channel and doubles as the dry-run output.
type Console struct {
	Out io.Writer
}

// NewConsole creates a console notifier writing to stdout.
func NewConsole() *Console {
	return &Console{Out: os.Stdout}
}

// Notify prints one line per event, with the analysis title appended
// when present.
func (c *Console) Notify(ctx context.Context, events []proposal.ProposalEvent, analyses map[string]*analyze.Analysis) error {
	for _, ev := range events {
		line := fmt.Sprintf("[%s] %s #%d %q: %s", ev.TrackerType, ev.Kind, ev.ProposalNumber, ev.Title, transition(ev))
		if a := analyses[ev.ID]; a != nil && a.Title != "" {
			line += " | " + a.Title
		}
		if _, err := fmt.Fprintln(c.Out, line); err != nil {
			return fmt.Errorf("console notify: %w", err)
		}
	}
	return nil
}

func transition(ev proposal.ProposalEvent) string {
	switch {
	case ev.PreviousStatus == "" && ev.CurrentStatus != "":
		return ev.CurrentStatus
	case ev.PreviousStatus != "" && ev.CurrentStatus != "":
		return ev.PreviousStatus + " -> " + ev.CurrentStatus
	default:
		return string(ev.Kind)
	}
}

// Multi fans one notification out to several channels. A failing
// channel is logged and skipped so the others still deliver.
type Multi struct {
	Channels []Notifier
	Logger   *slog.Logger
}

// Notify delivers to every channel.
func (m *Multi) Notify(ctx context.Context, events []proposal.ProposalEvent, analyses map[string]*analyze.Analysis) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, ch := range m.Channels {
		if err := ch.Notify(ctx, events, analyses); err != nil {
			logger.Warn("notification channel failed", slog.String("error", err.Error()))
		}
	}
	return nil
}
