// Package bus provides the in-process publish/subscribe channel that view
// scripts and the modal controller use to react to navigation and modal
// lifecycle. The signal set is fixed; payloads are carried on the Event
// struct rather than loose maps so subscribers get a typed contract.
package bus

import "sync"

// Signal identifies one of the lifecycle notifications.
type Signal string

const (
	// ViewLoaded fires once per fetch (first load or forced reload) of a view.
	ViewLoaded Signal = "view:loaded"
	// ViewShown fires every time a view becomes the active one.
	ViewShown Signal = "view:shown"
	// ModalShown fires after modal markup is attached or soft-shown.
	ModalShown Signal = "modal:shown"
	// ModalHidden fires when the modal is fully unmounted.
	ModalHidden Signal = "modal:hidden"
)

// Event is the payload delivered to subscribers. View carries the view name
// for view signals and is empty for modal signals.
type Event struct {
	Signal Signal
	View   string
}

// Handler receives published events.
type Handler func(Event)

// Bus is a synchronous, ordered publish/subscribe hub. Handlers run on the
// publisher's goroutine in subscription order, so a publisher can rely on
// every subscriber having observed the event once Publish returns.
type Bus struct {
	mu       sync.Mutex
	nextID   int
	handlers map[Signal][]subscription
}

type subscription struct {
	id int
	fn Handler
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{handlers: make(map[Signal][]subscription)}
}

// Subscribe registers a handler for a signal and returns a cancel function.
func (b *Bus) Subscribe(sig Signal, fn Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[sig] = append(b.handlers[sig], subscription{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.handlers[sig]
		for i, s := range subs {
			if s.id == id {
				b.handlers[sig] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers the event to all subscribers of its signal, in order.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	subs := append([]subscription(nil), b.handlers[e.Signal]...)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(e)
	}
}
