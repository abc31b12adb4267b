package messaging

import (
	"log"
	"time"

	"github.com/google/uuid"
)

// EventType names a moderation event.
type EventType string

const (
	EventReportFiled     EventType = "report.filed"
	EventReportResolved  EventType = "report.resolved"
	EventUserSuspended   EventType = "user.suspended"
	EventUserReinstated  EventType = "user.reinstated"
	EventContentRejected EventType = "content.rejected"
	EventContentDeleted  EventType = "content.deleted"
	EventRuleAdded       EventType = "rule.added"
	EventRuleRemoved     EventType = "rule.removed"
)

// Event describes something a moderator may want to see. Only the fields
// relevant to the event type are set.
type Event struct {
	ID          string     `json:"id"`
	Type        EventType  `json:"type"`
	At          time.Time  `json:"at"`
	ActorID     string     `json:"actor_id,omitempty"`
	UserID      string     `json:"user_id,omitempty"`
	ReportID    string     `json:"report_id,omitempty"`
	ContentID   string     `json:"content_id,omitempty"`
	ContentType string     `json:"content_type,omitempty"`
	Resolution  string     `json:"resolution,omitempty"`
	Word        string     `json:"word,omitempty"`
	Category    string     `json:"category,omitempty"`
	Until       *time.Time `json:"until,omitempty"`
	Permanent   bool       `json:"permanent,omitempty"`
}

// NewEvent returns an event of the given type stamped with a fresh id and
// the current time.
func NewEvent(t EventType) Event {
	return Event{ID: uuid.NewString(), Type: t, At: time.Now().UTC()}
}

// Subject returns the NATS subject the event is published on.
func (e Event) Subject() string {
	return SubjectEvent + "." + string(e.Type)
}

// Emitter publishes events on NATS when a client is configured and
// otherwise hands them to a local fallback (typically the admin feed).
type Emitter struct {
	nats     *NATSClient
	fallback func(Event)
}

// NewEmitter creates an Emitter. Either argument may be nil.
func NewEmitter(nc *NATSClient, fallback func(Event)) *Emitter {
	return &Emitter{nats: nc, fallback: fallback}
}

// Emit never blocks on, or fails because of, the event transport; publish
// errors are logged.
func (e *Emitter) Emit(ev Event) {
	if e == nil {
		return
	}
	if e.nats != nil {
		if err := e.nats.PublishEvent(ev); err != nil {
			log.Printf("[nats] publish %s: %v", ev.Type, err)
		}
		return
	}
	if e.fallback != nil {
		e.fallback(ev)
	}
}
