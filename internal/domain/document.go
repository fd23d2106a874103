package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Document is the canonical persisted record for one graded/attributed
// sample. Documents are created by a successful ingestion and never
// partially updated afterwards.
//
// The composite unique index on (fingerprint, batch_seq) is the dedup
// constraint: all Documents derived from one artifact share the artifact
// fingerprint, and two concurrent ingestions of the same artifact collide on
// it so that exactly one batch commits.
type Document struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"document_id"`
	SourceID string    `gorm:"column:source_id;not null;index" json:"source_id"`

	Fingerprint string `gorm:"column:fingerprint;not null;uniqueIndex:idx_document_fingerprint_seq,priority:1" json:"fingerprint"`
	BatchSeq    int    `gorm:"column:batch_seq;not null;default:0;uniqueIndex:idx_document_fingerprint_seq,priority:2" json:"batch_seq"`

	FarmerRef  string         `gorm:"column:farmer_ref;index" json:"farmer_ref,omitempty"`
	Attributes datatypes.JSON `gorm:"column:attributes;type:jsonb" json:"attributes,omitempty"`
	MemberRefs datatypes.JSON `gorm:"column:member_refs;type:jsonb" json:"member_refs,omitempty"`

	GradeLabel          *string `gorm:"column:grade_label;index" json:"grade_label,omitempty"`
	GradingModelID      *string `gorm:"column:grading_model_id" json:"grading_model_id,omitempty"`
	GradingModelVersion *int    `gorm:"column:grading_model_version" json:"grading_model_version,omitempty"`

	IngestedAt time.Time      `gorm:"column:ingested_at;not null" json:"ingested_at"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Document) TableName() string { return "document" }

// MemberRef links a Document to one stored member file.
type MemberRef struct {
	Path        string `json:"path"`
	ContentType string `json:"content_type"`
	StorageKey  string `json:"storage_key"`
}
