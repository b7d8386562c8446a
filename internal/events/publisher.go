package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const (
	SubjectStageChanged  = "opportunity.stage_changed"
	SubjectClosed        = "opportunity.closed"
	SubjectLeadConverted = "lead.converted"
)

// StageChangedEvent is published after a transition commits.
type StageChangedEvent struct {
	EventType     string    `json:"event_type"`
	OpportunityID int64     `json:"opportunity_id"`
	DisplayID     string    `json:"display_id"`
	FromStage     string    `json:"from_stage"`
	ToStage       string    `json:"to_stage"`
	Status        string    `json:"status"`
	ActorID       int       `json:"actor_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// ClosedEvent is published when an opportunity ends as Lost or Dropped.
type ClosedEvent struct {
	EventType     string    `json:"event_type"`
	OpportunityID int64     `json:"opportunity_id"`
	DisplayID     string    `json:"display_id"`
	Outcome       string    `json:"outcome"`
	Reason        string    `json:"reason"`
	ActorID       int       `json:"actor_id"`
	Timestamp     time.Time `json:"timestamp"`
}

type LeadConvertedEvent struct {
	EventType     string    `json:"event_type"`
	LeadID        int64     `json:"lead_id"`
	LeadDisplayID string    `json:"lead_display_id"`
	OpportunityID int64     `json:"opportunity_id"`
	DisplayID     string    `json:"display_id"`
	ActorID       int       `json:"actor_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// Publisher emits domain events. Publishing happens after the write has
// committed; a failed publish never rolls anything back.
type Publisher interface {
	Publish(ctx context.Context, subject string, event interface{}) error
	Close()
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (NoopPublisher) Close()                                             {}

// Recorder keeps published events in memory. Used by tests.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
}

type Recorded struct {
	Subject string
	Event   interface{}
}

func (r *Recorder) Publish(_ context.Context, subject string, event interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Recorded{Subject: subject, Event: event})
	return nil
}

func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Recorded(nil), r.events...)
}

func (r *Recorder) Close() {}

// Subjects lists recorded subjects in publish order.
func (r *Recorder) Subjects() []string {
	events := r.Events()
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Subject)
	}
	return out
}

type NATSPublisher struct {
	conn   *nats.Conn
	logger *logrus.Entry
}

func NewNATSPublisher(url, name string, logger *logrus.Logger) (*NATSPublisher, error) {
	log := logger.WithField("component", "events.publisher")
	opts := []nats.Option{
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.WithError(err).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Info("NATS connection closed")
		}),
	}
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.WithField("url", url).Info("NATS events publisher initialized")
	return &NATSPublisher{conn: conn, logger: log}, nil
}

func (p *NATSPublisher) Publish(_ context.Context, subject string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", subject, err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (p *NATSPublisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
	}
}
