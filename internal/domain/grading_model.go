package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GradingModel persists one immutable version of a declarative grading rule
// set. A grade is always computed against the exact version referenced at
// ingestion time, never "latest", so historical grading decisions stay
// reproducible.
type GradingModel struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ModelID string    `gorm:"column:model_id;not null;uniqueIndex:idx_grading_model_id_version,priority:1" json:"model_id"`
	Version int       `gorm:"column:version;not null;uniqueIndex:idx_grading_model_id_version,priority:2" json:"version"`

	Labels datatypes.JSON `gorm:"column:labels;type:jsonb;not null" json:"labels"`
	Rules  datatypes.JSON `gorm:"column:rules;type:jsonb;not null" json:"rules"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (GradingModel) TableName() string { return "grading_model" }
