package handler

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/watchtower-soc/watchtower/internal/configs"
	"github.com/watchtower-soc/watchtower/internal/repositories/scylla/audit"
	"github.com/watchtower-soc/watchtower/pkg/infra"
)

var (
	once          sync.Once
	auditHandlers = make(map[int]Handler)
)

// Entry is the API view of a single audit event.
type Entry struct {
	Target    string         `json:"target"`
	Timestamp time.Time      `json:"timestamp"`
	Actor     string         `json:"actor"`
	Action    string         `json:"action"`
	Status    string         `json:"status"`
	Details   map[string]any `json:"details,omitempty"`
}

type Handler interface {
	RecordAction(action, target, status, actor string, details map[string]any)
	ListByTarget(target string, limit int) ([]Entry, error)
}

type AuditHandler struct {
	repo audit.Repository
}

// InitV1AuditHandler wires the audit handler to the configured Scylla cluster
func InitV1AuditHandler(version int, config configs.Configs) {
	once.Do(func() {
		if infra.Scylla == nil {
			log.Panic().Msg("Scylla connections not initialized, audit trail requires SCYLLA_ACTIVE_CONFIG_IDS")
		}
		connection, err := infra.Scylla.GetConnection(config.AuditScyllaConfId)
		if err != nil {
			log.Panic().Err(err).Msg("Failed to get scylla connection for audit")
		}
		scyllaConn := connection.(*infra.ScyllaClusterConnection)
		repo, err := audit.NewRepository(scyllaConn)
		if err != nil {
			log.Panic().Err(err).Msg("Failed to create audit repository")
		}
		auditHandlers[version] = &AuditHandler{repo: repo}
	})
}

func GetAuditHandler(version int) Handler {
	return auditHandlers[version]
}

// RecordAction appends an audit event. Failures are logged, never surfaced,
// so a dead audit store cannot block incident response.
func (h *AuditHandler) RecordAction(action, target, status, actor string, details map[string]any) {
	detailsJSON := ""
	if len(details) > 0 {
		raw, err := json.Marshal(details)
		if err != nil {
			log.Error().Err(err).Msgf("Failed to marshal audit details for action %s", action)
		} else {
			detailsJSON = string(raw)
		}
	}
	_ = h.repo.Insert(audit.Event{
		Target:  target,
		Actor:   actor,
		Action:  action,
		Status:  status,
		Details: detailsJSON,
	})
}

// ListByTarget returns recorded audit events for a target, newest first
func (h *AuditHandler) ListByTarget(target string, limit int) ([]Entry, error) {
	events, err := h.repo.ListByTarget(target, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(events))
	for _, e := range events {
		entry := Entry{
			Target:    e.Target,
			Timestamp: e.EventTime,
			Actor:     e.Actor,
			Action:    e.Action,
			Status:    e.Status,
		}
		if e.Details != "" {
			var details map[string]any
			if err := json.Unmarshal([]byte(e.Details), &details); err == nil {
				entry.Details = details
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
