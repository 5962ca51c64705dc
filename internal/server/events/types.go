// Package events fans hub change notifications out to realtime transports.
//
// The server turns every hub change hook into a Publish call. Run delivers
// each queued event, in publish order, to every subscriber.
package events

import "time"

// EventType names a change in the hub.
type EventType string

// Event types published by the server.
const (
	CanonicalCreated EventType = "canonical.created"
	CanonicalUpdated EventType = "canonical.updated"
	CanonicalDeleted EventType = "canonical.deleted"

	DimensionCreated EventType = "dimension.created"
	DimensionUpdated EventType = "dimension.updated"
	DimensionDeleted EventType = "dimension.deleted"

	ValueMappingCreated EventType = "value_mapping.created"
	ValueMappingUpdated EventType = "value_mapping.updated"
	ValueMappingDeleted EventType = "value_mapping.deleted"

	ConfigUpdated EventType = "config.updated"
)

// Reference reports whether t changes a cached reference listing.
func (t EventType) Reference() bool {
	switch t {
	case CanonicalCreated, CanonicalUpdated, CanonicalDeleted,
		DimensionCreated, DimensionUpdated, DimensionDeleted:
		return true
	}
	return false
}

// Event is one change notification. Seq increases by one per accepted
// publish, starting at 1.
type Event struct {
	Seq       uint64    `json:"seq"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Subscriber receives every event the broker fans out. Send must not block;
// an error is logged and counted but does not stop delivery to others.
type Subscriber interface {
	Send(Event) error
}

// SubscriberFunc adapts a function to the Subscriber interface.
type SubscriberFunc func(Event) error

// Send calls f(event).
func (f SubscriberFunc) Send(event Event) error { return f(event) }
