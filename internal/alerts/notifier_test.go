package alerts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifierFanOut(t *testing.T) {
	n := &Notifier{}

	var first, second []string
	n.Subscribe(func(e Event) { first = append(first, e.IncidentID) })
	n.Subscribe(func(e Event) { second = append(second, e.IncidentID) })

	n.Publish(Event{Severity: SeverityCritical, IncidentID: "inc-1"})
	n.Publish(Event{Severity: SeverityInfo, IncidentID: "inc-2"})

	assert.Equal(t, []string{"inc-1", "inc-2"}, first)
	assert.Equal(t, []string{"inc-1", "inc-2"}, second)
}

func TestNotifierStampsTime(t *testing.T) {
	n := &Notifier{}
	var got Event
	n.Subscribe(func(e Event) { got = e })
	n.Publish(Event{Severity: SeverityInfo, IncidentID: "inc-1"})
	assert.False(t, got.At.IsZero())
}

func TestSlackSubscriberFiltersSeverity(t *testing.T) {
	sent := 0
	client := &countingSlack{sent: &sent}
	sub := SlackSubscriber(client)

	sub(Event{Severity: SeverityInfo, IncidentID: "inc-1"})
	assert.Equal(t, 0, sent, "info events stay in-process")

	sub(Event{Severity: SeverityCritical, IncidentID: "inc-2"})
	assert.Equal(t, 1, sent)
}

type countingSlack struct {
	sent *int
}

func (c *countingSlack) SendIncidentNotification(incidentID, source, summary string) error {
	*c.sent++
	return nil
}

func (c *countingSlack) SendWorkflowFailureNotification(incidentID, stepKey, message string) error {
	*c.sent++
	return nil
}
