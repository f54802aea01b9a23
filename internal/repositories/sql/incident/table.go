package incident

import (
	"time"

	"gorm.io/gorm"
)

const (
	incidentTableName = "incidents"
	incidentCreatedAt = "created_at"
	incidentUpdatedAt = "updated_at"
)

// Response status lifecycle values for an incident.
const (
	ResponseStatusNone       = "none"
	ResponseStatusTriggered  = "triggered"
	ResponseStatusInProgress = "in_progress"
	ResponseStatusCompleted  = "completed"
	ResponseStatusFailed     = "failed"
)

// Incident represents the structure of the incidents table.
type Incident struct {
	ID             string    `gorm:"primaryKey;size:64"`
	Source         string    `gorm:"not null;index"`
	RawData        string    `gorm:"type:json"`
	Timestamp      time.Time `gorm:"not null;index"`
	ResponseStatus string    `gorm:"not null;default:none;index"`
	TriageResult   string    `gorm:"type:json"`
	Analysis       string    `gorm:"type:text"`
	CurrentTaskID  string    `gorm:"size:128"`
	ActionsTaken   string    `gorm:"type:json"`
	ErrorMessage   string    `gorm:"type:text"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Incident) TableName() string {
	return incidentTableName
}

func (Incident) BeforeCreate(tx *gorm.DB) (err error) {
	tx.Statement.SetColumn(incidentCreatedAt, time.Now())
	return
}

func (Incident) BeforeUpdate(tx *gorm.DB) (err error) {
	tx.Statement.SetColumn(incidentUpdatedAt, time.Now())
	return
}
