package eventloop

import (
	"context"
)

// Action is the unit of work carried by an Event.
// It receives the event that is being executed.
type Action func(ctx context.Context, ev *Event) error

// Scheduler accepts events for future execution.
// The Loop implements this interface.
type Scheduler interface {
	Enqueue(ev *Event) error
}

// Event pairs a label and an action with an optional successor.
// Events are immutable once created, and the same instance can be enqueued multiple times or be the successor of multiple events.
type Event struct {
	label     string
	action    Action
	successor *Event
}

// NewEvent returns a new Event.
// The successor is optional and can be nil.
func NewEvent(label string, action Action, successor *Event) *Event {
	return &Event{
		label:     label,
		action:    action,
		successor: successor,
	}
}

// Label returns the event's label.
func (e *Event) Label() string {
	return e.label
}

// Successor returns the event that is scheduled after this one, or nil.
func (e *Event) Successor() *Event {
	return e.successor
}

// String implements fmt.Stringer.
func (e *Event) String() string {
	return e.label
}

// Execute invokes the event's action and then hands the successor, if any, to the scheduler.
// Errors returned by the action are returned as-is, and in that case the successor is not scheduled.
func (e *Event) Execute(ctx context.Context, s Scheduler) error {
	err := e.invoke(ctx)
	if err != nil {
		return err
	}

	if e.successor == nil {
		return nil
	}
	return s.Enqueue(e.successor)
}

// invoke runs the action only; a nil action is a no-op.
func (e *Event) invoke(ctx context.Context) error {
	if e.action == nil {
		return nil
	}
	return e.action(ctx, e)
}
