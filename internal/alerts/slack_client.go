package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

var (
	initSlackOnce   sync.Once
	slackWebhookUrl string
	slackChannel    string
)

func InitSlackClient(webhookUrl, channel string) {
	initSlackOnce.Do(func() {
		slackWebhookUrl = webhookUrl
		slackChannel = channel
	})
}

type SlackClient interface {
	SendIncidentNotification(incidentID, source, summary string) error
	SendWorkflowFailureNotification(incidentID, stepKey, message string) error
}

type slackClientImpl struct {
	WebhookURL string
	Channel    string
	HTTPClient *http.Client
}

var (
	slackOnce     sync.Once
	slackInstance SlackClient
)

func GetSlackClient() SlackClient {
	slackOnce.Do(func() {
		slackInstance = &slackClientImpl{
			WebhookURL: slackWebhookUrl,
			Channel:    slackChannel,
			HTTPClient: &http.Client{
				Timeout: 5 * time.Second,
			},
		}
	})
	return slackInstance
}

type slackPayload struct {
	Username  string `json:"username"`
	IconEmoji string `json:"icon_emoji"`
	Channel   string `json:"channel"`
	Text      string `json:"text"`
}

func (s *slackClientImpl) SendIncidentNotification(incidentID, source, summary string) error {
	message := fmt.Sprintf(`New incident ingested: %s
<!here>
Source: %s
%s`, incidentID, source, summary)

	return s.post("Watchtower Alerts", message)
}

func (s *slackClientImpl) SendWorkflowFailureNotification(incidentID, stepKey, message string) error {
	text := fmt.Sprintf(`Response workflow failed for incident %s
<!here>
Failed step: %s
%s`, incidentID, stepKey, message)

	return s.post("Watchtower Response", text)
}

func (s *slackClientImpl) post(username, text string) error {
	if s.WebhookURL == "" {
		return nil
	}
	payload := slackPayload{
		Username:  username,
		IconEmoji: ":rotating_light:",
		Channel:   s.Channel,
		Text:      text,
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal slack payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.WebhookURL, bytes.NewBuffer(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send slack request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned non-OK status: %d", resp.StatusCode)
	}

	return nil
}
