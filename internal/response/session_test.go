package response

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchtower-soc/watchtower/internal/reconciler"
)

// stubClient serves canned status payloads and records posted actions.
type stubClient struct {
	mu        sync.Mutex
	payloads  []*StatusPayload
	fetchErr  error
	actionErr error
	calls     int
	actions   []string
}

func (c *stubClient) FetchStatus(ctx context.Context, incidentID, token string) (*StatusPayload, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.fetchErr != nil {
		return nil, c.fetchErr
	}
	payload := c.payloads[0]
	if len(c.payloads) > 1 {
		c.payloads = c.payloads[1:]
	}
	return payload, nil
}

func (c *stubClient) PostAction(ctx context.Context, incidentID, token, action string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actions = append(c.actions, action)
	return c.actionErr
}

func progressPayload(step string) *StatusPayload {
	return &StatusPayload{
		State: "PROGRESS",
		Info:  map[string]any{"current_step": step},
	}
}

func newTestSession(client Client) *Session {
	return NewSession("inc-1", "token", client, SessionConfig{PollInterval: time.Hour})
}

func TestSessionAppliesFetchResult(t *testing.T) {
	client := &stubClient{payloads: []*StatusPayload{progressPayload("quarantine_host")}}
	s := newTestSession(client)

	s.fetch(1)

	snapshot, lastErr := s.Snapshot()
	require.NotNil(t, snapshot)
	assert.Empty(t, lastErr)
	st, ok := snapshot.Step("quarantine_host")
	require.True(t, ok)
	assert.Equal(t, reconciler.StatusRunning, st.Status)
}

func TestSessionDiscardsOutOfOrderCompletion(t *testing.T) {
	// Fetch #2 (newer) completes first; the late #1 must not overwrite it.
	client := &stubClient{payloads: []*StatusPayload{
		progressPayload("block_ip"),
		progressPayload("lookup_ip"),
	}}
	s := newTestSession(client)

	s.fetch(2)
	s.fetch(1)

	snapshot, _ := s.Snapshot()
	require.NotNil(t, snapshot)
	st, _ := snapshot.Step("block_ip")
	assert.Equal(t, reconciler.StatusRunning, st.Status)
	st, _ = snapshot.Step("lookup_ip")
	assert.Equal(t, reconciler.StatusPending, st.Status,
		"late completion of an older fetch must be discarded")
}

func TestSessionKeepsSnapshotOnFetchError(t *testing.T) {
	client := &stubClient{payloads: []*StatusPayload{progressPayload("lookup_ip")}}
	s := newTestSession(client)
	s.fetch(1)

	client.mu.Lock()
	client.fetchErr = errors.New("backend unreachable")
	client.mu.Unlock()
	s.fetch(2)

	snapshot, lastErr := s.Snapshot()
	require.NotNil(t, snapshot, "last good snapshot must survive a transport error")
	st, _ := snapshot.Step("lookup_ip")
	assert.Equal(t, reconciler.StatusRunning, st.Status)
	assert.Contains(t, lastErr, "backend unreachable")

	// A later successful fetch clears the error.
	client.mu.Lock()
	client.fetchErr = nil
	client.mu.Unlock()
	s.fetch(3)
	_, lastErr = s.Snapshot()
	assert.Empty(t, lastErr)
}

func TestSessionStopDiscardsInFlightResults(t *testing.T) {
	client := &stubClient{payloads: []*StatusPayload{progressPayload("lookup_ip")}}
	s := newTestSession(client)

	s.Stop()
	s.fetch(1)

	snapshot, _ := s.Snapshot()
	assert.Nil(t, snapshot, "results completing after Stop must be dropped")
	assert.False(t, s.Alive())
}

func TestSessionStopIdempotent(t *testing.T) {
	client := &stubClient{payloads: []*StatusPayload{progressPayload("lookup_ip")}}
	s := newTestSession(client)
	s.Start()
	s.Stop()
	s.Stop()
	assert.False(t, s.Alive())
}

func TestSessionPollNowNonBlocking(t *testing.T) {
	client := &stubClient{payloads: []*StatusPayload{progressPayload("lookup_ip")}}
	s := newTestSession(client)

	// Nothing drains the channel; repeated calls must not block.
	for i := 0; i < 5; i++ {
		s.PollNow()
	}
}

func TestSessionPollingLoop(t *testing.T) {
	client := &stubClient{payloads: []*StatusPayload{progressPayload("lookup_ip")}}
	s := NewSession("inc-1", "token", client, SessionConfig{PollInterval: 5 * time.Millisecond})
	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return client.calls >= 3
	}, time.Second, time.Millisecond, "loop should fetch immediately and then every tick")
}

func TestDispatchOutcomes(t *testing.T) {
	t.Run("applied triggers immediate repoll", func(t *testing.T) {
		client := &stubClient{payloads: []*StatusPayload{progressPayload("lookup_ip")}}
		s := newTestSession(client)

		outcome := s.Dispatch("force_next")
		assert.Equal(t, DispatchApplied, outcome.Status)
		assert.Equal(t, []string{"force_next"}, client.actions)

		select {
		case <-s.pollNow:
		default:
			t.Fatal("successful dispatch should schedule an immediate poll")
		}
	})

	t.Run("404 is informational", func(t *testing.T) {
		client := &stubClient{
			payloads:  []*StatusPayload{progressPayload("lookup_ip")},
			actionErr: ErrActionUnsupported,
		}
		s := newTestSession(client)

		outcome := s.Dispatch("force_next")
		assert.Equal(t, DispatchUnsupported, outcome.Status)
		assert.Equal(t, 1, len(client.actions), "no retry on unsupported")
	})

	t.Run("other errors are failures", func(t *testing.T) {
		client := &stubClient{
			payloads:  []*StatusPayload{progressPayload("lookup_ip")},
			actionErr: errors.New("boom"),
		}
		s := newTestSession(client)

		outcome := s.Dispatch("cancel")
		assert.Equal(t, DispatchFailed, outcome.Status)
		assert.Contains(t, outcome.Message, "boom")
	})
}
