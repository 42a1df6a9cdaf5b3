package buff

import "time"

// EventType names a visual transition produced by the controller.
type EventType string

const (
	EventTypeCreated  EventType = "created"  // new element at full ring
	EventTypeProgress EventType = "progress" // ring offset changed on tick
	EventTypeExtended EventType = "extended" // time added, pulse the element
	EventTypeRemoving EventType = "removing" // fade out and detach
)

// RemovalReason says why a buff left the registry.
type RemovalReason string

const (
	ReasonExpired  RemovalReason = "expired"
	ReasonRemoved  RemovalReason = "removed"
	ReasonShutdown RemovalReason = "shutdown"
)

// Event is the declarative render state of one buff after an operation.
// The rendering layer decides how and when to animate it. Seq increases by
// one per event and matches the sequence returned by SnapshotSeq.
type Event struct {
	Seq       uint64        `json:"seq"`
	Type      EventType     `json:"type"`
	Buff      string        `json:"buff"`
	Icon      string        `json:"icon,omitempty"`
	Duration  int           `json:"duration"`
	TimeLeft  int           `json:"time_left"`
	Perimeter float64       `json:"perimeter"`
	Offset    float64       `json:"offset"`
	Reason    RemovalReason `json:"reason,omitempty"`
	At        time.Time     `json:"at"`
}

// Sink receives controller events. Sinks are called while the controller is
// locked and must not call back into it.
type Sink interface {
	Apply(ev Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ev Event)

// Apply implements Sink.
func (f SinkFunc) Apply(ev Event) { f(ev) }

// Sinks fans an event out to several sinks in order.
type Sinks []Sink

// Apply implements Sink.
func (s Sinks) Apply(ev Event) {
	for _, sink := range s {
		sink.Apply(ev)
	}
}
