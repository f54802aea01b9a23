package alerts

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Severity buckets for published alerts.
const (
	SeverityInfo     = "info"
	SeverityCritical = "critical"
)

// Event is one alert flowing through the in-process fan-out.
type Event struct {
	Severity   string
	IncidentID string
	Source     string
	Summary    string
	At         time.Time
}

// Subscriber receives every published event. Subscribers must not block;
// publishing happens on the caller's goroutine.
type Subscriber func(Event)

// Notifier fans published events out to its subscribers.
type Notifier struct {
	mu          sync.Mutex
	subscribers []Subscriber
}

var (
	notifierOnce     sync.Once
	notifierInstance *Notifier
)

// GetNotifier returns the process-wide notifier.
func GetNotifier() *Notifier {
	notifierOnce.Do(func() {
		notifierInstance = &Notifier{}
	})
	return notifierInstance
}

// Subscribe registers a subscriber for all future events.
func (n *Notifier) Subscribe(s Subscriber) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subscribers = append(n.subscribers, s)
}

// Publish delivers the event to every subscriber in registration order.
func (n *Notifier) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	n.mu.Lock()
	subs := make([]Subscriber, len(n.subscribers))
	copy(subs, n.subscribers)
	n.mu.Unlock()

	for _, s := range subs {
		s(event)
	}
}

// SlackSubscriber forwards critical events to the Slack webhook.
func SlackSubscriber(client SlackClient) Subscriber {
	return func(event Event) {
		if event.Severity != SeverityCritical {
			return
		}
		if err := client.SendIncidentNotification(event.IncidentID, event.Source, event.Summary); err != nil {
			log.Warn().Err(err).Str("incident_id", event.IncidentID).Msg("Slack delivery failed")
		}
	}
}
