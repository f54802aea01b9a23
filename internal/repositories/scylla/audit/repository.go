package audit

import (
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/rs/zerolog/log"

	"github.com/watchtower-soc/watchtower/pkg/infra"
)

// audit_events partitions on target and clusters on (event_time, id); the
// explicit ORDER BY keeps listings newest first regardless of the clustering
// order the table was created with.
const (
	insertQuery = "INSERT INTO %s.audit_events (target, event_time, id, actor, action, status, details) VALUES (?, ?, ?, ?, ?, ?, ?)"
	selectQuery = "SELECT target, event_time, id, actor, action, status, details FROM %s.audit_events WHERE target = ? ORDER BY event_time DESC LIMIT ?"
)

// Event is a single audit trail entry keyed by its target entity.
type Event struct {
	Target    string
	EventTime time.Time
	ID        gocql.UUID
	Actor     string
	Action    string
	Status    string
	Details   string
}

// Repository defines the interface for audit trail operations
type Repository interface {
	Insert(event Event) error
	ListByTarget(target string, limit int) ([]Event, error)
}

type Audit struct {
	keySpace string
	session  *gocql.Session
}

// NewRepository creates an audit repository bound to a Scylla cluster connection
func NewRepository(connection *infra.ScyllaClusterConnection) (Repository, error) {
	if connection == nil {
		return nil, errors.New("connection cannot be nil")
	}
	meta, err := connection.GetMeta()
	if err != nil {
		return nil, err
	}
	keySpace := meta["keyspace"].(string)
	session, err := connection.GetConn()
	if err != nil {
		return nil, err
	}
	return &Audit{
		keySpace: keySpace,
		session:  session.(*gocql.Session),
	}, nil
}

// Insert appends an audit event
func (a *Audit) Insert(event Event) error {
	if event.ID == (gocql.UUID{}) {
		event.ID = gocql.TimeUUID()
	}
	if event.EventTime.IsZero() {
		event.EventTime = time.Now()
	}
	err := a.session.Query(fmt.Sprintf(insertQuery, a.keySpace),
		event.Target, event.EventTime, event.ID,
		event.Actor, event.Action, event.Status, event.Details).Exec()
	if err != nil {
		log.Error().Err(err).Msgf("Error inserting audit event for target %s", event.Target)
	}
	return err
}

// ListByTarget returns audit events for a target, newest first
func (a *Audit) ListByTarget(target string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	iter := a.session.Query(fmt.Sprintf(selectQuery, a.keySpace), target, limit).Iter()
	events := make([]Event, 0)
	var e Event
	for iter.Scan(&e.Target, &e.EventTime, &e.ID, &e.Actor, &e.Action, &e.Status, &e.Details) {
		events = append(events, e)
	}
	if err := iter.Close(); err != nil {
		log.Error().Err(err).Msgf("Error listing audit events for target %s", target)
		return nil, err
	}
	return events, nil
}
