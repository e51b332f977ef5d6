package events

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEmitFanOut(t *testing.T) {
	e := NewEmitter(4)
	_, a := e.Subscribe()
	_, b := e.Subscribe()

	e.Emit(LEDState, map[string]any{"on": true})

	for name, ch := range map[string]<-chan Event{"a": a, "b": b} {
		select {
		case ev := <-ch:
			if ev.Event != LEDState {
				t.Errorf("%s: Event = %q, want %q", name, ev.Event, LEDState)
			}
		default:
			t.Errorf("%s: no event delivered", name)
		}
	}
}

func TestEmitDropsWhenFull(t *testing.T) {
	e := NewEmitter(1)
	_, ch := e.Subscribe()

	e.Emit(SystemState, 1)
	e.Emit(SystemState, 2)

	ev := <-ch
	if ev.Data != 1 {
		t.Errorf("first event data = %v, want 1", ev.Data)
	}
	select {
	case ev := <-ch:
		t.Errorf("unexpected second event %v", ev)
	default:
	}
}

func TestUnsubscribeClosesQueue(t *testing.T) {
	e := NewEmitter(1)
	id, ch := e.Subscribe()

	e.Unsubscribe(id)
	e.Unsubscribe(id)

	if _, ok := <-ch; ok {
		t.Error("queue still open after Unsubscribe")
	}
	if n := e.Subscribers(); n != 0 {
		t.Errorf("Subscribers() = %d, want 0", n)
	}

	e.Emit(SystemReady, nil)
}

func TestEventJSON(t *testing.T) {
	data, err := json.Marshal(Event{Event: NetworkIP, Data: map[string]string{"ip": "10.0.0.7"}})
	if err != nil {
		t.Fatal(err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	want := map[string]any{
		"event": "network.ip",
		"data":  map[string]any{"ip": "10.0.0.7"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("envelope mismatch (-want +got):\n%s", diff)
	}
}
