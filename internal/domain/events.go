package domain

import (
	"github.com/google/uuid"
)

const (
	EventContentReceived = "content.received"
	EventBatchCompleted  = "batch.completed"
)

// ContentReceivedEvent is published once per committed Document.
type ContentReceivedEvent struct {
	DocumentID uuid.UUID      `json:"document_id"`
	SourceID   string         `json:"source_id"`
	FarmerRef  string         `json:"farmer_reference,omitempty"`
	GradeLabel string         `json:"grade_label,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// BatchCompletedEvent is published after a multi-document archive batch
// commits, in addition to the per-document events.
type BatchCompletedEvent struct {
	SourceID    string      `json:"source_id"`
	Fingerprint string      `json:"fingerprint"`
	DocumentIDs []uuid.UUID `json:"document_ids"`
	Count       int         `json:"count"`
}
