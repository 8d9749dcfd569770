package models

import "time"

// Run status values. A run is opened as Running and finalized exactly once.
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusPartial = "partial"
	RunStatusFailed  = "failed"
)

// RunModel records one end-to-end automation cycle.
type RunModel struct {
	ID          uint       `json:"id"           gorm:"primaryKey;autoIncrement"`
	StartedAt   time.Time  `json:"started_at"   gorm:"not null"`
	FinishedAt  *time.Time `json:"finished_at"`
	Status      string     `json:"status"       gorm:"size:32"`
	SummaryJSON string     `json:"summary_json" gorm:"type:text"`
}

func (RunModel) TableName() string { return "runs" }
