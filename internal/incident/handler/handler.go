package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/watchtower-soc/watchtower/internal/alerts"
	auditHandler "github.com/watchtower-soc/watchtower/internal/auditlog/handler"
	"github.com/watchtower-soc/watchtower/internal/repositories/sql/incident"
	responseHandler "github.com/watchtower-soc/watchtower/internal/response/handler"
)

var ErrNotFound = errors.New("incident not found")

// IngestRequest is a raw alert pushed by the SIEM webhook.
type IngestRequest struct {
	Source    string         `json:"source"`
	Timestamp any            `json:"timestamp,omitempty"`
	Data      map[string]any `json:"data"`
}

// TimelineEntry is one event in an incident's merged history.
type TimelineEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Kind      string         `json:"kind"`
	Actor     string         `json:"actor,omitempty"`
	Summary   string         `json:"summary"`
	Details   map[string]any `json:"details,omitempty"`
}

type Handler interface {
	Ingest(req IngestRequest) (*incident.Incident, error)
	List(status string, limit, offset int) ([]incident.Incident, error)
	Get(id string) (*incident.Incident, error)
	Respond(id, actor, token string) (*incident.Incident, error)
	Timeline(id string) ([]TimelineEntry, error)
}

type IncidentHandler struct {
	repo     incident.Repository
	monitors responseHandler.Handler
	audit    auditHandler.Handler
	notifier *alerts.Notifier
}

var (
	once             sync.Once
	incidentHandlers = make(map[int]Handler)
)

// InitV1IncidentHandler wires the incident handler over the SQL store, the
// monitor handler and the audit trail
func InitV1IncidentHandler(version int, repo incident.Repository) {
	once.Do(func() {
		incidentHandlers[version] = &IncidentHandler{
			repo:     repo,
			monitors: responseHandler.GetMonitorHandler(),
			audit:    auditHandler.GetAuditHandler(version),
			notifier: alerts.GetNotifier(),
		}
	})
}

func GetIncidentHandler(version int) Handler {
	return incidentHandlers[version]
}

// Ingest persists a raw SIEM alert as a new incident
func (h *IncidentHandler) Ingest(req IngestRequest) (*incident.Incident, error) {
	if req.Source == "" {
		return nil, errors.New("source is required")
	}

	rawData := "{}"
	if req.Data != nil {
		raw, err := json.Marshal(req.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal alert data: %w", err)
		}
		rawData = string(raw)
	}

	inc := &incident.Incident{
		ID:             "incident_" + uuid.NewString(),
		Source:         req.Source,
		RawData:        rawData,
		Timestamp:      coerceTimestamp(req.Timestamp),
		ResponseStatus: incident.ResponseStatusNone,
	}
	if err := h.repo.Create(inc); err != nil {
		return nil, fmt.Errorf("failed to persist incident: %w", err)
	}

	h.audit.RecordAction("incident_ingested", inc.ID, "ok", req.Source, map[string]any{
		"source": req.Source,
	})
	h.notifier.Publish(alerts.Event{
		Severity:   alerts.SeverityCritical,
		IncidentID: inc.ID,
		Source:     inc.Source,
		Summary:    summarize(req.Data),
	})

	log.Info().
		Str("incident_id", inc.ID).
		Str("source", inc.Source).
		Msg("Incident ingested")
	return inc, nil
}

// List returns incidents newest first, optionally filtered by response status
func (h *IncidentHandler) List(status string, limit, offset int) ([]incident.Incident, error) {
	return h.repo.List(status, limit, offset)
}

// Get returns a single incident
func (h *IncidentHandler) Get(id string) (*incident.Incident, error) {
	inc, err := h.repo.GetByID(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return inc, nil
}

// Respond triggers the response workflow for an incident and opens a monitor
// session that follows it. The caller's bearer token is handed to the session
// so its backend polls carry the operator's identity.
func (h *IncidentHandler) Respond(id, actor, token string) (*incident.Incident, error) {
	inc, err := h.repo.GetByID(id)
	if err != nil {
		return nil, ErrNotFound
	}
	if inc.ResponseStatus == incident.ResponseStatusTriggered ||
		inc.ResponseStatus == incident.ResponseStatusInProgress {
		return nil, fmt.Errorf("response already running for incident %s", id)
	}

	if err := h.repo.UpdateResponseStatus(id, incident.ResponseStatusTriggered, ""); err != nil {
		return nil, fmt.Errorf("failed to update incident status: %w", err)
	}
	if err := h.monitors.OpenMonitor(id, token); err != nil {
		log.Error().Err(err).Str("incident_id", id).Msg("Failed to open monitor session")
	}

	h.audit.RecordAction("response_triggered", id, "ok", actor, nil)

	inc.ResponseStatus = incident.ResponseStatusTriggered
	return inc, nil
}

// Timeline merges the audit trail with the incident's lifecycle facts,
// oldest first
func (h *IncidentHandler) Timeline(id string) ([]TimelineEntry, error) {
	inc, err := h.repo.GetByID(id)
	if err != nil {
		return nil, ErrNotFound
	}

	entries := []TimelineEntry{{
		Timestamp: inc.Timestamp,
		Kind:      "alert",
		Summary:   fmt.Sprintf("Alert received from %s", inc.Source),
	}}
	if inc.TriageResult != "" {
		var triage map[string]any
		if err := json.Unmarshal([]byte(inc.TriageResult), &triage); err == nil {
			entries = append(entries, TimelineEntry{
				Timestamp: inc.UpdatedAt,
				Kind:      "triage",
				Summary:   "Triage completed",
				Details:   triage,
			})
		}
	}
	if inc.ErrorMessage != "" {
		entries = append(entries, TimelineEntry{
			Timestamp: inc.UpdatedAt,
			Kind:      "error",
			Summary:   inc.ErrorMessage,
		})
	}

	auditEntries, err := h.audit.ListByTarget(id, 200)
	if err != nil {
		log.Warn().Err(err).Str("incident_id", id).Msg("Audit trail unavailable for timeline")
	}
	for _, e := range auditEntries {
		entries = append(entries, TimelineEntry{
			Timestamp: e.Timestamp,
			Kind:      "action",
			Actor:     e.Actor,
			Summary:   fmt.Sprintf("%s (%s)", e.Action, e.Status),
			Details:   e.Details,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}

// coerceTimestamp accepts RFC3339 strings or unix epochs, defaulting to now
func coerceTimestamp(raw any) time.Time {
	switch v := raw.(type) {
	case string:
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			return ts
		}
	case float64:
		return time.Unix(int64(v), 0).UTC()
	}
	return time.Now().UTC()
}

func summarize(data map[string]any) string {
	if len(data) == 0 {
		return "No alert details provided"
	}
	for _, key := range []string{"description", "summary", "alert_name", "rule"} {
		if v, ok := data[key].(string); ok && v != "" {
			return v
		}
	}
	return fmt.Sprintf("%d alert fields captured", len(data))
}
