package alerts

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSlackClient(webhookURL string) *slackClientImpl {
	return &slackClientImpl{
		WebhookURL: webhookURL,
		Channel:    "#soc-alerts",
		HTTPClient: http.DefaultClient,
	}
}

func TestSendIncidentNotification(t *testing.T) {
	var got slackPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestSlackClient(server.URL)
	err := client.SendIncidentNotification("inc-42", "crowdstrike", "Ransomware behavior detected")
	require.NoError(t, err)
	assert.Equal(t, "#soc-alerts", got.Channel)
	assert.Contains(t, got.Text, "inc-42")
	assert.Contains(t, got.Text, "crowdstrike")
}

func TestSendNotificationNonOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := newTestSlackClient(server.URL)
	err := client.SendWorkflowFailureNotification("inc-42", "block_ip", "firewall unreachable")
	assert.Error(t, err)
}

func TestSendNotificationNoWebhookConfigured(t *testing.T) {
	client := newTestSlackClient("")
	assert.NoError(t, client.SendIncidentNotification("inc-42", "siem", "noop when unconfigured"))
}
