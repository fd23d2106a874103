package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProcessorType string

const (
	ProcessorDirect       ProcessorType = "direct"
	ProcessorArchive      ProcessorType = "archive"
	ProcessorPreExtracted ProcessorType = "pre_extracted"
)

type NoMatchPolicy string

const (
	// NoMatchFail aborts the whole ingestion when no grading rule matches.
	NoMatchFail NoMatchPolicy = "fail"
	// NoMatchUnclassified assigns the unclassified label instead.
	NoMatchUnclassified NoMatchPolicy = "unclassified"
)

// SourceConfig is the per-logical-source configuration consumed by the
// ingestion dispatcher. The pipeline only reads these rows; mutation happens
// through the seed loader or an external configuration service.
type SourceConfig struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	SourceID  string        `gorm:"column:source_id;not null;uniqueIndex" json:"source_id"`
	Processor ProcessorType `gorm:"column:processor;not null" json:"processor"`
	Enabled   bool          `gorm:"column:enabled;not null;default:true" json:"enabled"`

	GradingModelID      *string        `gorm:"column:grading_model_id" json:"grading_model_id,omitempty"`
	GradingModelVersion *int           `gorm:"column:grading_model_version" json:"grading_model_version,omitempty"`
	OnNoMatch           NoMatchPolicy  `gorm:"column:on_no_match" json:"on_no_match,omitempty"`
	RequiredAttributes  datatypes.JSON `gorm:"column:required_attributes;type:jsonb" json:"required_attributes,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (SourceConfig) TableName() string { return "source_config" }

// HasGrading reports whether this source references a grading model.
func (s *SourceConfig) HasGrading() bool {
	return s != nil && s.GradingModelID != nil && *s.GradingModelID != "" && s.GradingModelVersion != nil
}
