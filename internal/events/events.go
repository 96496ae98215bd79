// Package events publishes registration and record-change notifications
// to an external broker. Downstream consumers (a CSV exporter, an SMS
// notifier) subscribe out of process; the API server only publishes.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Channel names events are published to.
const (
	ChannelUsers   = "resourceshare.users"
	ChannelRecords = "resourceshare.records"
)

// Event types.
const (
	TypeUserRegistered = "user.registered"
	TypeRecordCreated  = "record.created"
	TypeRecordUpdated  = "record.updated"
	TypeRecordDeleted  = "record.deleted"
)

// Backend defines the broker-agnostic publish operation.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// Envelope is the payload put on the wire.
type Envelope struct {
	Type       string    `json:"type"`
	Collection string    `json:"collection,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data"`
}

// Publisher wraps a backend. Publish failures are logged and swallowed:
// a broker outage must never fail the request that triggered the event.
type Publisher struct {
	backend Backend
	log     *slog.Logger
}

// NewPublisher constructs a Publisher for the provided backend.
func NewPublisher(backend Backend, log *slog.Logger) *Publisher {
	return &Publisher{backend: backend, log: log}
}

// UserRegistered announces a new account. data should already be
// sanitized of credentials.
func (p *Publisher) UserRegistered(ctx context.Context, data any) {
	p.publish(ctx, ChannelUsers, Envelope{
		Type:       TypeUserRegistered,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
}

// RecordChanged announces a create, update or delete on a collection.
func (p *Publisher) RecordChanged(ctx context.Context, eventType, collection string, data any) {
	p.publish(ctx, ChannelRecords, Envelope{
		Type:       eventType,
		Collection: collection,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
}

func (p *Publisher) publish(ctx context.Context, channel string, env Envelope) {
	body, err := json.Marshal(env)
	if err != nil {
		p.log.Error("encode event", "type", env.Type, "error", err)
		return
	}
	attrs := map[string]string{"type": env.Type}
	if env.Collection != "" {
		attrs["collection"] = env.Collection
	}
	if _, err := p.backend.Publish(ctx, channel, body, attrs); err != nil {
		p.log.Error("publish event", "type", env.Type, "channel", channel, "error", err)
	}
}

// Close closes the underlying backend.
func (p *Publisher) Close() error {
	return p.backend.Close()
}

// Noop is a backend that drops every event. Used when no broker is
// configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, []byte, map[string]string) (string, error) {
	return "", nil
}

func (Noop) Close() error { return nil }
