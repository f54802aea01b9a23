package incident

import (
	"errors"

	"gorm.io/gorm"

	"github.com/watchtower-soc/watchtower/pkg/infra"
)

// Repository defines the interface for incident persistence operations
type Repository interface {
	Create(incident *Incident) error
	GetByID(id string) (*Incident, error)
	List(status string, limit, offset int) ([]Incident, error)
	UpdateResponseStatus(id, status, taskID string) error
	SetError(id, message string) error
}

type IncidentRepo struct {
	db     *gorm.DB
	dbName string
}

// NewRepository creates a new incident repository
func NewRepository(connection *infra.SQLConnection) (Repository, error) {
	if connection == nil {
		return nil, errors.New("connection cannot be nil")
	}

	session, err := connection.GetConn()
	if err != nil {
		return nil, err
	}
	meta, err := connection.GetMeta()
	if err != nil {
		return nil, err
	}
	dbName := meta["db_name"].(string)

	return &IncidentRepo{
		db:     session.(*gorm.DB),
		dbName: dbName,
	}, nil
}

// Create adds a new incident to the database
func (r *IncidentRepo) Create(incident *Incident) error {
	result := r.db.Create(incident)
	return result.Error
}

// GetByID retrieves an incident by its identifier
func (r *IncidentRepo) GetByID(id string) (*Incident, error) {
	var incident Incident
	result := r.db.Where("id = ?", id).First(&incident)
	return &incident, result.Error
}

// List retrieves incidents newest first, optionally filtered by response status
func (r *IncidentRepo) List(status string, limit, offset int) ([]Incident, error) {
	if limit <= 0 {
		limit = 50
	}
	query := r.db.Order("timestamp DESC").Limit(limit).Offset(offset)
	if status != "" {
		query = query.Where("response_status = ?", status)
	}
	var incidents []Incident
	result := query.Find(&incidents)
	return incidents, result.Error
}

// UpdateResponseStatus transitions an incident's response lifecycle state.
// Re-triggering clears the error left behind by a previous failed run.
func (r *IncidentRepo) UpdateResponseStatus(id, status, taskID string) error {
	updates := map[string]interface{}{"response_status": status}
	if taskID != "" {
		updates["current_task_id"] = taskID
	}
	if status == ResponseStatusTriggered {
		updates["error_message"] = ""
	}
	result := r.db.Model(&Incident{}).Where("id = ?", id).Updates(updates)
	return result.Error
}

// SetError records a failure message on an incident
func (r *IncidentRepo) SetError(id, message string) error {
	result := r.db.Model(&Incident{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"response_status": ResponseStatusFailed,
			"error_message":   message,
		})
	return result.Error
}
