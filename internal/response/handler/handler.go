package handler

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/watchtower-soc/watchtower/internal/reconciler"
	incidentRepo "github.com/watchtower-soc/watchtower/internal/repositories/sql/incident"
	"github.com/watchtower-soc/watchtower/internal/response"
)

var (
	initMonitorHandlerOnce sync.Once
	monitorHandler         Handler
)

// MonitorHandler keeps one polling session per monitored incident. Sessions
// are independent of each other; the registry lock only guards the map.
type MonitorHandler struct {
	client   response.Client
	recorder Recorder
	status   StatusWriter
	cfg      response.SessionConfig

	mu       sync.Mutex
	sessions map[string]*response.Session
}

// InitV1MonitorHandler initializes the monitor handler singleton.
func InitV1MonitorHandler(client response.Client, recorder Recorder, status StatusWriter, pollInterval time.Duration) Handler {
	initMonitorHandlerOnce.Do(func() {
		monitorHandler = &MonitorHandler{
			client:   client,
			recorder: recorder,
			status:   status,
			cfg: response.SessionConfig{
				PollInterval: pollInterval,
				MergeOptions: reconciler.MergeOptions{Logs: reconciler.LogsReplace},
			},
			sessions: make(map[string]*response.Session),
		}
		log.Info().Msg("Workflow monitor handler initialized")
	})
	return monitorHandler
}

// GetMonitorHandler returns the initialized monitor handler.
func GetMonitorHandler() Handler {
	return monitorHandler
}

func (h *MonitorHandler) OpenMonitor(incidentID, token string) error {
	if incidentID == "" {
		return fmt.Errorf("incident id is required")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.sessions[incidentID]; ok && existing.Alive() {
		log.Debug().Str("incident_id", incidentID).Msg("Monitor already open")
		return nil
	}
	session := response.NewSession(incidentID, token, h.client, h.cfg)
	h.sessions[incidentID] = session
	session.Start()
	return nil
}

func (h *MonitorHandler) CloseMonitor(incidentID string) {
	h.mu.Lock()
	session, ok := h.sessions[incidentID]
	if ok {
		delete(h.sessions, incidentID)
	}
	h.mu.Unlock()
	if ok {
		session.Stop()
	}
}

func (h *MonitorHandler) MonitorView(incidentID string) (*MonitorView, error) {
	h.mu.Lock()
	session, ok := h.sessions[incidentID]
	h.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no monitor session open for incident %s", incidentID)
	}
	snapshot, transportErr := session.Snapshot()
	return &MonitorView{
		IncidentID:     incidentID,
		Snapshot:       snapshot,
		TransportError: transportErr,
		Alive:          session.Alive(),
	}, nil
}

func (h *MonitorHandler) Dispatch(incidentID, action, actor string) (response.DispatchOutcome, error) {
	if !ValidAction(action) {
		return response.DispatchOutcome{}, fmt.Errorf("unknown action %q", action)
	}
	h.mu.Lock()
	session, ok := h.sessions[incidentID]
	h.mu.Unlock()
	if !ok {
		return response.DispatchOutcome{}, fmt.Errorf("no monitor session open for incident %s", incidentID)
	}

	outcome := session.Dispatch(action)
	if h.recorder != nil {
		h.recorder.RecordAction("workflow_action", incidentID, outcome.Status, actor, map[string]any{
			"action":  action,
			"message": outcome.Message,
		})
	}
	return outcome, nil
}

// ReapIdle closes sessions whose run has reached a terminal state and writes
// the run outcome back to the incident record, advancing its response status
// past "triggered". The monitor surface normally closes its own session; this
// sweep covers views that were abandoned without disposing it.
func (h *MonitorHandler) ReapIdle() int {
	h.mu.Lock()
	var stale []*response.Session
	var running []string
	for id, session := range h.sessions {
		snapshot, _ := session.Snapshot()
		if snapshot == nil {
			continue
		}
		switch strings.ToUpper(snapshot.TopLevelState) {
		case reconciler.StateSuccess, reconciler.StateFailure, reconciler.StateRevoked:
			stale = append(stale, session)
			delete(h.sessions, id)
		case reconciler.StateStarted, reconciler.StateProgress, reconciler.StateRunning:
			running = append(running, id)
		}
	}
	h.mu.Unlock()

	for _, id := range running {
		h.writeStatus(id, incidentRepo.ResponseStatusInProgress, "")
	}

	for _, session := range stale {
		snapshot, _ := session.Snapshot()
		if snapshot == nil {
			session.Stop()
			continue
		}
		switch strings.ToUpper(snapshot.TopLevelState) {
		case reconciler.StateSuccess:
			h.writeStatus(session.IncidentID(), incidentRepo.ResponseStatusCompleted, "")
		case reconciler.StateFailure, reconciler.StateRevoked:
			h.writeFailure(session.IncidentID(), snapshot)
			if h.recorder != nil {
				h.recorder.RecordAction("workflow_failed", session.IncidentID(), "failed", "system", map[string]any{
					"top_level_state": snapshot.TopLevelState,
				})
			}
		}
		session.Stop()
	}
	if len(stale) > 0 {
		log.Info().Int("count", len(stale)).Msg("Reaped terminal monitor sessions")
	}
	return len(stale)
}

func (h *MonitorHandler) writeStatus(incidentID, status, taskID string) {
	if h.status == nil {
		return
	}
	if err := h.status.UpdateResponseStatus(incidentID, status, taskID); err != nil {
		log.Warn().Err(err).Str("incident_id", incidentID).Msg("Failed to write back response status")
	}
}

func (h *MonitorHandler) writeFailure(incidentID string, snapshot *reconciler.Snapshot) {
	if h.status == nil {
		return
	}
	message := fmt.Sprintf("response workflow ended in %s", snapshot.TopLevelState)
	for _, step := range snapshot.Steps {
		if step.Status == reconciler.StatusFailed {
			message = fmt.Sprintf("response workflow failed at %s", step.Key)
			break
		}
	}
	if err := h.status.SetError(incidentID, message); err != nil {
		log.Warn().Err(err).Str("incident_id", incidentID).Msg("Failed to write back failure status")
	}
}
