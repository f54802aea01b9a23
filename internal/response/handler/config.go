package handler

import (
	"github.com/watchtower-soc/watchtower/internal/reconciler"
	"github.com/watchtower-soc/watchtower/internal/response"
)

// Handler manages monitor sessions for workflow runs.
type Handler interface {
	// OpenMonitor creates and starts a polling session for an incident's
	// workflow run. Opening an already monitored incident is a no-op.
	OpenMonitor(incidentID, token string) error

	// CloseMonitor stops and removes the incident's session. Closing an
	// unmonitored incident is a no-op.
	CloseMonitor(incidentID string)

	// MonitorView returns the latest reconciled view for an incident, or
	// an error if no session is open.
	MonitorView(incidentID string) (*MonitorView, error)

	// Dispatch issues a control action through the incident's session.
	Dispatch(incidentID, action, actor string) (response.DispatchOutcome, error)

	// ReapIdle stops sessions that have reached a terminal run state and
	// returns how many were closed. Called from the scheduled sweep.
	ReapIdle() int
}

// MonitorView is the render-ready state of one monitored workflow run.
type MonitorView struct {
	IncidentID     string                `json:"incident_id"`
	Snapshot       *reconciler.Snapshot  `json:"snapshot,omitempty"`
	TransportError string                `json:"transport_error,omitempty"`
	Alive          bool                  `json:"alive"`
}

// Recorder receives audit events for monitor and action activity. Recording
// is best-effort; failures never block the operation being audited.
type Recorder interface {
	RecordAction(action, target, status, actor string, details map[string]any)
}

// StatusWriter carries observed run state back to the incident record, so
// listings and re-trigger checks reflect the run after its session is gone.
// Writes are best-effort, like Recorder.
type StatusWriter interface {
	UpdateResponseStatus(id, status, taskID string) error
	SetError(id, message string) error
}

// Control actions accepted by the task backend.
const (
	ActionForceNext = "force_next"
	ActionSkipStep  = "skip_step"
	ActionCancel    = "cancel"
)

// ValidAction reports whether the given control action is one the backend
// understands.
func ValidAction(action string) bool {
	switch action {
	case ActionForceNext, ActionSkipStep, ActionCancel:
		return true
	}
	return false
}
