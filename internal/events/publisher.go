// Package events fans pipeline milestones out over Redis pub/sub so
// downstream consumers (dashboards, sync jobs) can react without polling
// the document table.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Envelope wraps every published event with its type and emission time.
type Envelope struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
	Close() error
}

// NopPublisher drops every event. Used in tests and when REDIS_ADDR is not
// configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, eventType string, payload any) error { return nil }
func (NopPublisher) Close() error                                                     { return nil }
