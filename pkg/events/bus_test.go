package events

import (
	"testing"

	"github.com/pouria-shahmiri/chaincore/pkg/blockindex"
)

type recordingObserver struct {
	NoopObserver
	order []string
}

func (r *recordingObserver) OnBlockConnected(e BlockConnectedEvent) {
	r.order = append(r.order, "connect:"+string(e.Entry.Hash[:1]))
}

func (r *recordingObserver) OnBlockDisconnected(e BlockDisconnectedEvent) {
	r.order = append(r.order, "disconnect:"+string(e.Entry.Hash[:1]))
}

func (r *recordingObserver) OnUpdatedTip(e UpdatedTipEvent) {
	r.order = append(r.order, "tip")
}

func TestBusDeliversInPublishOrder(t *testing.T) {
	bus := NewBus()
	obs := &recordingObserver{}
	bus.Register(obs)

	a := &blockindex.Entry{Hash: [32]byte{'a'}}
	b := &blockindex.Entry{Hash: [32]byte{'b'}}

	// Simulate a one-block reorg: disconnect b, connect a, then tip update.
	bus.PublishBlockDisconnected(BlockDisconnectedEvent{Entry: b})
	bus.PublishBlockConnected(BlockConnectedEvent{Entry: a})
	bus.PublishUpdatedTip(UpdatedTipEvent{Tip: a})

	want := []string{"disconnect:b", "connect:a", "tip"}
	if len(obs.order) != len(want) {
		t.Fatalf("order = %v, want %v", obs.order, want)
	}
	for i := range want {
		if obs.order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, obs.order[i], want[i])
		}
	}
}

func TestBusDeliversToMultipleObserversInRegistrationOrder(t *testing.T) {
	bus := NewBus()
	var calls []string
	first := &funcObserver{onConnected: func(BlockConnectedEvent) { calls = append(calls, "first") }}
	second := &funcObserver{onConnected: func(BlockConnectedEvent) { calls = append(calls, "second") }}
	bus.Register(first)
	bus.Register(second)

	bus.PublishBlockConnected(BlockConnectedEvent{})

	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Fatalf("calls = %v, want [first second]", calls)
	}
}

type funcObserver struct {
	NoopObserver
	onConnected func(BlockConnectedEvent)
}

func (f *funcObserver) OnBlockConnected(e BlockConnectedEvent) {
	f.onConnected(e)
}
