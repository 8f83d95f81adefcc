package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/propwatch/propwatch/analyze"
	"github.com/propwatch/propwatch/proposal"
)

// DefaultSubject is the subject events are published to when the config
// leaves it empty.
const DefaultSubject = "propwatch.events"

// NATSPublisher publishes each event as a JSON message, letting
// downstream consumers (dashboards, chat bridges) subscribe without
// propwatch knowing about them.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// natsEvent is the published wire shape.
type natsEvent struct {
	ID             string    `json:"id"`
	TrackerID      string    `json:"tracker_id"`
	TrackerType    string    `json:"tracker_type"`
	ProposalNumber int       `json:"proposal_number"`
	Title          string    `json:"title"`
	Kind           string    `json:"kind"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	CurrentStatus  string    `json:"current_status,omitempty"`
	FilePath       string    `json:"file_path,omitempty"`
	DetectedAt     time.Time `json:"detected_at"`
	Summary        string    `json:"summary,omitempty"`
}

// NewNATSPublisher connects to the given NATS URL.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	conn, err := nats.Connect(url, nats.Name("propwatch"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn, subject: subject}, nil
}

// Notify publishes one message per event.
func (p *NATSPublisher) Notify(ctx context.Context, events []proposal.ProposalEvent, analyses map[string]*analyze.Analysis) error {
	for _, ev := range events {
		msg := natsEvent{
			ID:             ev.ID,
			TrackerID:      ev.TrackerID,
			TrackerType:    string(ev.TrackerType),
			ProposalNumber: ev.ProposalNumber,
			Title:          ev.Title,
			Kind:           string(ev.Kind),
			PreviousStatus: ev.PreviousStatus,
			CurrentStatus:  ev.CurrentStatus,
			FilePath:       ev.FilePath,
			DetectedAt:     ev.DetectedAt,
		}
		if a := analyses[ev.ID]; a != nil {
			msg.Summary = a.Title
		}

		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", ev.ID, err)
		}
		if err := p.conn.Publish(p.subject, data); err != nil {
			return fmt.Errorf("publish event %s: %w", ev.ID, err)
		}
	}
	return p.conn.FlushWithContext(ctx)
}

// Close drains the connection.
func (p *NATSPublisher) Close() {
	p.conn.Close()
}
