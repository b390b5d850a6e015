package testutil

import (
	"sync"
	"time"

	"github.com/mcoot/partycoord/internal/model"
)

// RecordingSubscriber captures delivered party events
type RecordingSubscriber struct {
	mu          sync.Mutex
	events      []model.Event
	unavailable bool
	notify      chan struct{}
}

// NewRecordingSubscriber creates an empty RecordingSubscriber
func NewRecordingSubscriber() *RecordingSubscriber {
	return &RecordingSubscriber{notify: make(chan struct{}, 1)}
}

// Deliver records the event unless the subscriber is marked unavailable
func (r *RecordingSubscriber) Deliver(event model.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unavailable {
		return false
	}
	r.events = append(r.events, event)
	select {
	case r.notify <- struct{}{}:
	default:
	}
	return true
}

// SetUnavailable makes subsequent deliveries fail
func (r *RecordingSubscriber) SetUnavailable(unavailable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unavailable = unavailable
}

// Events returns a copy of every recorded event
func (r *RecordingSubscriber) Events() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Event(nil), r.events...)
}

// Types returns the type of every recorded event, in order
func (r *RecordingSubscriber) Types() []model.EventType {
	events := r.Events()
	types := make([]model.EventType, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}

// LastOf returns the most recent event of type t
func (r *RecordingSubscriber) LastOf(t model.EventType) (model.Event, bool) {
	events := r.Events()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == t {
			return events[i], true
		}
	}
	return model.Event{}, false
}

// WaitFor blocks until at least n events are recorded or the timeout elapses
func (r *RecordingSubscriber) WaitFor(n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		if len(r.Events()) >= n {
			return true
		}
		select {
		case <-r.notify:
		case <-deadline:
			return false
		}
	}
}

// RecordingNotifier captures lifecycle changes
type RecordingNotifier struct {
	mu      sync.Mutex
	changes []model.PartyChange
}

// NewRecordingNotifier creates an empty RecordingNotifier
func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

// Notify records the change
func (r *RecordingNotifier) Notify(change model.PartyChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
}

// Changes returns a copy of every recorded change
func (r *RecordingNotifier) Changes() []model.PartyChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.PartyChange(nil), r.changes...)
}

// Kinds returns the kind of every recorded change, in order
func (r *RecordingNotifier) Kinds() []model.ChangeKind {
	changes := r.Changes()
	kinds := make([]model.ChangeKind, len(changes))
	for i, c := range changes {
		kinds[i] = c.Kind
	}
	return kinds
}

// RecordingPeer is a RecordingSubscriber with a connection id
type RecordingPeer struct {
	*RecordingSubscriber
	id string
}

// NewRecordingPeer creates a RecordingPeer identified by id
func NewRecordingPeer(id string) *RecordingPeer {
	return &RecordingPeer{RecordingSubscriber: NewRecordingSubscriber(), id: id}
}

// ID returns the connection id
func (p *RecordingPeer) ID() string {
	return p.id
}

// Last returns the most recent event, or the zero Event if none arrived
func (p *RecordingPeer) Last() model.Event {
	events := p.Events()
	if len(events) == 0 {
		return model.Event{}
	}
	return events[len(events)-1]
}
