package response

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/watchtower-soc/watchtower/pkg/metric"
)

// ErrActionUnsupported signals that the task backend does not implement the
// control endpoint for this workflow (HTTP 404). It is informational, not a
// failure.
var ErrActionUnsupported = errors.New("action not supported by this workflow backend")

// StatusPayload is the raw workflow status as reported by the task backend.
// Info is an open-shaped object; see the reconciler for how it is absorbed.
type StatusPayload struct {
	State string `json:"state"`
	Info  any    `json:"info,omitempty"`
}

// Client talks to the task-execution backend's workflow endpoints.
type Client interface {
	FetchStatus(ctx context.Context, incidentID, token string) (*StatusPayload, error)
	PostAction(ctx context.Context, incidentID, token, action string) error
}

type clientImpl struct {
	BaseURL    string
	HTTPClient *http.Client
}

var (
	clientOnce     sync.Once
	clientInstance Client
)

// InitClient initializes the backend client singleton.
func InitClient(baseURL string) Client {
	clientOnce.Do(func() {
		clientInstance = &clientImpl{
			BaseURL: baseURL,
			HTTPClient: &http.Client{
				Timeout: 10 * time.Second,
			},
		}
	})
	return clientInstance
}

// GetClient returns the initialized backend client.
func GetClient() Client {
	return clientInstance
}

type actionRequest struct {
	Action string `json:"action"`
}

func (c *clientImpl) FetchStatus(ctx context.Context, incidentID, token string) (*StatusPayload, error) {
	url := fmt.Sprintf("%s/response/workflows/%s/status", c.BaseURL, incidentID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow status: %w", err)
	}
	defer resp.Body.Close()
	c.record("/status", http.MethodGet, resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Error().
			Int("status_code", resp.StatusCode).
			Str("incident_id", incidentID).
			Msg("Workflow status fetch failed")
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var payload StatusPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status payload: %w", err)
	}
	return &payload, nil
}

func (c *clientImpl) PostAction(ctx context.Context, incidentID, token, action string) error {
	url := fmt.Sprintf("%s/response/workflows/%s/action", c.BaseURL, incidentID)

	jsonData, err := json.Marshal(actionRequest{Action: action})
	if err != nil {
		return fmt.Errorf("failed to marshal action request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	log.Info().
		Str("incident_id", incidentID).
		Str("action", action).
		Msg("Dispatching workflow control action")

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post workflow action: %w", err)
	}
	defer resp.Body.Close()
	c.record("/action", http.MethodPost, resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrActionUnsupported
	case resp.StatusCode >= 300:
		log.Error().
			Int("status_code", resp.StatusCode).
			Str("incident_id", incidentID).
			Str("action", action).
			Str("response_body", string(body)).
			Msg("Workflow control action failed")
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (c *clientImpl) record(path, method string, statusCode int, latency time.Duration) {
	tags := metric.BuildTag(
		metric.NewTag(metric.TagExternalService, "response-backend"),
		metric.NewTag(metric.TagExternalServicePath, path),
		metric.NewTag(metric.TagExternalServiceMethod, method),
		metric.NewTag(metric.TagExternalServiceStatusCode, strconv.Itoa(statusCode)),
	)
	metric.Incr(metric.ExternalApiRequestCount, tags)
	metric.Timing(metric.ExternalApiRequestLatency, latency, tags)
}
