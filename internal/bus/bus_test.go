package bus

import "testing"

func TestPublishOrder(t *testing.T) {
	b := New()
	var got []string
	b.Subscribe(ViewLoaded, func(e Event) { got = append(got, "first:"+e.View) })
	b.Subscribe(ViewLoaded, func(e Event) { got = append(got, "second:"+e.View) })

	b.Publish(Event{Signal: ViewLoaded, View: "scheduler"})

	if len(got) != 2 || got[0] != "first:scheduler" || got[1] != "second:scheduler" {
		t.Fatalf("unexpected delivery order: %v", got)
	}
}

func TestSignalIsolation(t *testing.T) {
	b := New()
	var shown, hidden int
	b.Subscribe(ModalShown, func(Event) { shown++ })
	b.Subscribe(ModalHidden, func(Event) { hidden++ })

	b.Publish(Event{Signal: ModalShown})
	b.Publish(Event{Signal: ModalShown})

	if shown != 2 {
		t.Fatalf("expected 2 shown deliveries, got %d", shown)
	}
	if hidden != 0 {
		t.Fatalf("expected no hidden deliveries, got %d", hidden)
	}
}

func TestCancel(t *testing.T) {
	b := New()
	var count int
	cancel := b.Subscribe(ViewShown, func(Event) { count++ })

	b.Publish(Event{Signal: ViewShown, View: "patient"})
	cancel()
	b.Publish(Event{Signal: ViewShown, View: "patient"})

	if count != 1 {
		t.Fatalf("expected 1 delivery after cancel, got %d", count)
	}

	// cancelling twice is harmless
	cancel()
}
