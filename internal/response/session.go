package response

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/watchtower-soc/watchtower/internal/reconciler"
)

// DefaultPollInterval is the fixed period between status fetches.
const DefaultPollInterval = 3 * time.Second

// Session owns the polling loop for one monitored workflow run. One session
// exists per open incident-monitor view; sessions share no mutable state.
//
// Every tick issues a fetch regardless of whether earlier fetches have
// completed. Each fetch carries a sequence number assigned in initiation
// order, and a completion whose sequence is not newer than the last applied
// one is discarded, so a slow old fetch can never overwrite fresher data.
type Session struct {
	incidentID string
	token      string
	client     Client
	interval   time.Duration
	mergeOpts  reconciler.MergeOptions

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	pollNow  chan struct{}

	mu         sync.Mutex
	snapshot   *reconciler.Snapshot
	lastErr    string
	nextSeq    uint64
	appliedSeq uint64
	stopped    bool
}

// SessionConfig tunes a session. Zero values fall back to defaults.
type SessionConfig struct {
	PollInterval time.Duration
	MergeOptions reconciler.MergeOptions
}

// NewSession creates a session for one workflow run. The bearer token is
// captured once at creation and attached to every fetch and action the
// session issues.
func NewSession(incidentID, token string, client Client, cfg SessionConfig) *Session {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		incidentID: incidentID,
		token:      token,
		client:     client,
		interval:   interval,
		mergeOpts:  cfg.MergeOptions,
		ctx:        ctx,
		cancel:     cancel,
		pollNow:    make(chan struct{}, 1),
	}
}

// Start launches the polling loop: one immediate fetch, then one per tick
// until Stop.
func (s *Session) Start() {
	log.Info().
		Str("incident_id", s.incidentID).
		Dur("interval", s.interval).
		Msg("Starting workflow monitor session")
	go s.run()
}

func (s *Session) run() {
	s.launchFetch()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.launchFetch()
		case <-s.pollNow:
			s.launchFetch()
		}
	}
}

// launchFetch assigns the next sequence number and fires the fetch without
// waiting for earlier ones.
func (s *Session) launchFetch() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.nextSeq++
	seq := s.nextSeq
	s.mu.Unlock()
	go s.fetch(seq)
}

func (s *Session) fetch(seq uint64) {
	payload, err := s.client.FetchStatus(s.ctx, s.incidentID, s.token)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		// Disposed while in flight; the result is discarded entirely.
		return
	}
	if seq <= s.appliedSeq {
		log.Debug().
			Str("incident_id", s.incidentID).
			Uint64("seq", seq).
			Uint64("applied_seq", s.appliedSeq).
			Msg("Discarding out-of-order status completion")
		return
	}
	s.appliedSeq = seq

	if err != nil {
		// Keep the last good snapshot; the next tick retries.
		s.lastErr = err.Error()
		log.Warn().
			Err(err).
			Str("incident_id", s.incidentID).
			Msg("Workflow status fetch failed, retaining last snapshot")
		return
	}

	patches, _ := reconciler.Parse(payload.State, payload.Info)
	s.snapshot = reconciler.Merge(s.snapshot, patches, payload.State, s.mergeOpts)
	s.lastErr = ""
}

// PollNow triggers one out-of-band fetch, bypassing the timer. Used after a
// successful control action so its effect becomes visible immediately.
func (s *Session) PollNow() {
	select {
	case s.pollNow <- struct{}{}:
	default:
	}
}

// Stop cancels the timer synchronously and marks the session dead. Fetches
// already in flight are allowed to complete but their results are dropped.
// Stop is idempotent.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		s.cancel()
		log.Info().Str("incident_id", s.incidentID).Msg("Workflow monitor session stopped")
	})
}

// Alive reports whether the session is still polling.
func (s *Session) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.stopped
}

// IncidentID returns the incident this session monitors.
func (s *Session) IncidentID() string {
	return s.incidentID
}

// Snapshot returns the latest reconciled snapshot and the last transport
// error, if any. The snapshot may be nil before the first successful fetch.
func (s *Session) Snapshot() (*reconciler.Snapshot, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot, s.lastErr
}

// DispatchOutcome classifies the result of a control action.
type DispatchOutcome struct {
	Status  string `json:"status"` // applied | unsupported | failed
	Message string `json:"message,omitempty"`
}

const (
	DispatchApplied     = "applied"
	DispatchUnsupported = "unsupported"
	DispatchFailed      = "failed"
)

// Dispatch issues one best-effort control action against the workflow run.
// A 404 from the backend means the action surface is not implemented and is
// reported as informational. Nothing is retried or rolled back; on success
// one immediate re-poll is triggered so the action's effect shows up
// without waiting for the next tick.
func (s *Session) Dispatch(action string) DispatchOutcome {
	err := s.client.PostAction(s.ctx, s.incidentID, s.token, action)
	switch {
	case err == nil:
		s.PollNow()
		return DispatchOutcome{Status: DispatchApplied}
	case err == ErrActionUnsupported:
		log.Info().
			Str("incident_id", s.incidentID).
			Str("action", action).
			Msg("Control action not available for this workflow backend")
		return DispatchOutcome{Status: DispatchUnsupported, Message: ErrActionUnsupported.Error()}
	default:
		log.Error().
			Err(err).
			Str("incident_id", s.incidentID).
			Str("action", action).
			Msg("Control action failed")
		return DispatchOutcome{Status: DispatchFailed, Message: err.Error()}
	}
}
