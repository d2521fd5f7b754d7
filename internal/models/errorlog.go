package models

import "time"

// MaxErrorLength caps the raw error text stored on a log entry. Oversized
// input is truncated, not rejected.
const MaxErrorLength = 1000

// ErrorLog is an immutable record of one analysis. Resolution holds the
// serialized analysis result (real or fallback). Rows are created once by
// the ingestion path and only ever removed by cascading project deletion.
type ErrorLog struct {
	ID          string `gorm:"primaryKey;size:36"`
	ProjectID   string `gorm:"size:36;index;not null"`
	Error       string `gorm:"size:1000"`
	LLMProvider string `gorm:"size:16"`
	LLMModel    string `gorm:"size:64"`
	Resolution  string `gorm:"type:text"`
	IsTrial     bool   `gorm:"default:false"`
	CreatedAt   time.Time
}
