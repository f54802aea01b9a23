package handler

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchtower-soc/watchtower/internal/alerts"
	auditHandler "github.com/watchtower-soc/watchtower/internal/auditlog/handler"
	"github.com/watchtower-soc/watchtower/internal/repositories/sql/incident"
	"github.com/watchtower-soc/watchtower/internal/response"
	responseHandler "github.com/watchtower-soc/watchtower/internal/response/handler"
)

type fakeRepo struct {
	incidents   map[string]*incident.Incident
	statusCalls []string
}

func newFakeRepo(seed ...*incident.Incident) *fakeRepo {
	r := &fakeRepo{incidents: make(map[string]*incident.Incident)}
	for _, inc := range seed {
		r.incidents[inc.ID] = inc
	}
	return r
}

func (r *fakeRepo) Create(inc *incident.Incident) error {
	r.incidents[inc.ID] = inc
	return nil
}

func (r *fakeRepo) GetByID(id string) (*incident.Incident, error) {
	inc, ok := r.incidents[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	copied := *inc
	return &copied, nil
}

func (r *fakeRepo) List(status string, limit, offset int) ([]incident.Incident, error) {
	return nil, nil
}

func (r *fakeRepo) UpdateResponseStatus(id, status, taskID string) error {
	r.statusCalls = append(r.statusCalls, id+":"+status)
	if inc, ok := r.incidents[id]; ok {
		inc.ResponseStatus = status
		if status == incident.ResponseStatusTriggered {
			inc.ErrorMessage = ""
		}
	}
	return nil
}

func (r *fakeRepo) SetError(id, message string) error {
	if inc, ok := r.incidents[id]; ok {
		inc.ResponseStatus = incident.ResponseStatusFailed
		inc.ErrorMessage = message
	}
	return nil
}

type fakeMonitors struct {
	opened map[string]string
}

func (m *fakeMonitors) OpenMonitor(id, token string) error {
	if m.opened == nil {
		m.opened = make(map[string]string)
	}
	m.opened[id] = token
	return nil
}

func (m *fakeMonitors) CloseMonitor(id string) {}

func (m *fakeMonitors) MonitorView(id string) (*responseHandler.MonitorView, error) {
	return nil, errors.New("no monitor session open")
}

func (m *fakeMonitors) Dispatch(id, action, actor string) (response.DispatchOutcome, error) {
	return response.DispatchOutcome{}, nil
}

func (m *fakeMonitors) ReapIdle() int { return 0 }

type fakeAudit struct {
	actions []string
	entries []auditHandler.Entry
}

func (a *fakeAudit) RecordAction(action, target, status, actor string, details map[string]any) {
	a.actions = append(a.actions, action)
}

func (a *fakeAudit) ListByTarget(target string, limit int) ([]auditHandler.Entry, error) {
	return a.entries, nil
}

func newTestIncidentHandler(repo incident.Repository, monitors *fakeMonitors, audit *fakeAudit) (*IncidentHandler, *alerts.Notifier) {
	notifier := &alerts.Notifier{}
	return &IncidentHandler{
		repo:     repo,
		monitors: monitors,
		audit:    audit,
		notifier: notifier,
	}, notifier
}

func TestCoerceTimestamp(t *testing.T) {
	ref := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	got := coerceTimestamp("2026-03-14T09:26:53Z")
	assert.True(t, got.Equal(ref))

	got = coerceTimestamp(float64(ref.Unix()))
	assert.True(t, got.Equal(ref))

	for _, raw := range []any{"last tuesday", "", nil, true, []any{1}} {
		got = coerceTimestamp(raw)
		assert.WithinDuration(t, time.Now().UTC(), got, time.Minute, "raw %v must fall back to now", raw)
	}
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "No alert details provided", summarize(nil))
	assert.Equal(t, "No alert details provided", summarize(map[string]any{}))

	// description wins over the later candidates
	assert.Equal(t, "beaconing detected", summarize(map[string]any{
		"description": "beaconing detected",
		"summary":     "ignored",
		"rule":        "ignored",
	}))
	assert.Equal(t, "lateral movement", summarize(map[string]any{
		"summary": "lateral movement",
		"rule":    "ignored",
	}))
	assert.Equal(t, "T1021", summarize(map[string]any{"rule": "T1021"}))

	// nothing usable, just count the fields
	assert.Equal(t, "2 alert fields captured", summarize(map[string]any{
		"severity": 9.0,
		"host":     42.0,
	}))
}

func TestIngestRequiresSource(t *testing.T) {
	h, _ := newTestIncidentHandler(newFakeRepo(), &fakeMonitors{}, &fakeAudit{})
	_, err := h.Ingest(IngestRequest{Data: map[string]any{"rule": "T1021"}})
	assert.Error(t, err)
}

func TestIngestPersistsAndNotifies(t *testing.T) {
	repo := newFakeRepo()
	audit := &fakeAudit{}
	h, notifier := newTestIncidentHandler(repo, &fakeMonitors{}, audit)

	var published []alerts.Event
	notifier.Subscribe(func(e alerts.Event) { published = append(published, e) })

	inc, err := h.Ingest(IngestRequest{
		Source:    "crowdstrike",
		Timestamp: "2026-03-14T09:26:53Z",
		Data:      map[string]any{"description": "beaconing detected"},
	})
	require.NoError(t, err)

	assert.Regexp(t, `^incident_[0-9a-f-]{36}$`, inc.ID)
	assert.Equal(t, incident.ResponseStatusNone, inc.ResponseStatus)
	assert.JSONEq(t, `{"description": "beaconing detected"}`, inc.RawData)
	assert.True(t, inc.Timestamp.Equal(time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)))
	assert.Contains(t, repo.incidents, inc.ID)

	assert.Equal(t, []string{"incident_ingested"}, audit.actions)
	require.Len(t, published, 1)
	assert.Equal(t, alerts.SeverityCritical, published[0].Severity)
	assert.Equal(t, "beaconing detected", published[0].Summary)
}

func TestRespondOpensMonitorWithCallerToken(t *testing.T) {
	repo := newFakeRepo(&incident.Incident{ID: "inc-1", ResponseStatus: incident.ResponseStatusNone})
	monitors := &fakeMonitors{}
	audit := &fakeAudit{}
	h, _ := newTestIncidentHandler(repo, monitors, audit)

	inc, err := h.Respond("inc-1", "alice@example.com", "bearer-tok")
	require.NoError(t, err)
	assert.Equal(t, incident.ResponseStatusTriggered, inc.ResponseStatus)
	assert.Equal(t, []string{"inc-1:triggered"}, repo.statusCalls)
	assert.Equal(t, "bearer-tok", monitors.opened["inc-1"])
	assert.Equal(t, []string{"response_triggered"}, audit.actions)
}

func TestRespondBlocksWhileRunning(t *testing.T) {
	for _, status := range []string{incident.ResponseStatusTriggered, incident.ResponseStatusInProgress} {
		repo := newFakeRepo(&incident.Incident{ID: "inc-1", ResponseStatus: status})
		monitors := &fakeMonitors{}
		h, _ := newTestIncidentHandler(repo, monitors, &fakeAudit{})

		_, err := h.Respond("inc-1", "alice@example.com", "tok")
		assert.Error(t, err, "status %s must block a second trigger", status)
		assert.Empty(t, repo.statusCalls)
		assert.Empty(t, monitors.opened)
	}
}

func TestRespondRetriggersAfterTerminalRun(t *testing.T) {
	for _, status := range []string{incident.ResponseStatusCompleted, incident.ResponseStatusFailed} {
		repo := newFakeRepo(&incident.Incident{
			ID:             "inc-1",
			ResponseStatus: status,
			ErrorMessage:   "response workflow failed at block_ip",
		})
		h, _ := newTestIncidentHandler(repo, &fakeMonitors{}, &fakeAudit{})

		inc, err := h.Respond("inc-1", "alice@example.com", "tok")
		require.NoError(t, err, "status %s must allow a re-trigger", status)
		assert.Equal(t, incident.ResponseStatusTriggered, inc.ResponseStatus)
		assert.Empty(t, repo.incidents["inc-1"].ErrorMessage, "re-trigger must clear the previous failure")
	}
}

func TestRespondUnknownIncident(t *testing.T) {
	h, _ := newTestIncidentHandler(newFakeRepo(), &fakeMonitors{}, &fakeAudit{})
	_, err := h.Respond("missing", "alice@example.com", "tok")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTimelineSortsOldestFirst(t *testing.T) {
	t0 := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	repo := newFakeRepo(&incident.Incident{ID: "inc-1", Source: "crowdstrike", Timestamp: t0})
	audit := &fakeAudit{entries: []auditHandler.Entry{
		{Action: "workflow_action", Status: "applied", Timestamp: t0.Add(10 * time.Minute)},
		{Action: "response_triggered", Status: "ok", Timestamp: t0.Add(5 * time.Minute)},
	}}
	h, _ := newTestIncidentHandler(repo, &fakeMonitors{}, audit)

	entries, err := h.Timeline("inc-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "alert", entries[0].Kind)
	assert.Equal(t, "response_triggered (ok)", entries[1].Summary)
	assert.Equal(t, "workflow_action (applied)", entries[2].Summary)
}
