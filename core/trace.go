package core

import (
	"sync"
	"sync/atomic"

	"github.com/dustin/go-broadcast"
	"github.com/encodeous/ripsim/perf"
	"github.com/encodeous/ripsim/state"
)

// Trace fans out every notified snapshot of a network. Publishing never blocks a tick, snapshots are
// dropped when the broadcaster is backed up.
type Trace struct {
	broadcast.Broadcaster
	// guards subscription changes, never taken by publish
	mu     sync.Mutex
	closed atomic.Bool
	stops  map[chan any]chan struct{}
}

func newTrace(size int) *Trace {
	return &Trace{
		Broadcaster: broadcast.NewBroadcaster(size),
		stops:       make(map[chan any]chan struct{}),
	}
}

func (t *Trace) publish(snap state.Snapshot) {
	if t.closed.Load() {
		return
	}
	if !t.TrySubmit(snap) {
		perf.TraceDropped.Inc()
	}
}

// Subscribe returns a channel receiving every published snapshot, and a function that ends the subscription.
// The channel is closed once the subscription ends or the trace is closed.
func (t *Trace) Subscribe(size int) (<-chan state.Snapshot, func()) {
	raw := make(chan any, size)
	out := make(chan state.Snapshot, size)
	stop := make(chan struct{})

	t.mu.Lock()
	if t.closed.Load() {
		t.mu.Unlock()
		close(out)
		return out, func() {}
	}
	t.stops[raw] = stop
	t.Register(raw)
	t.mu.Unlock()

	go func() {
		defer close(out)
		for {
			select {
			case <-stop:
				return
			case v := <-raw:
				select {
				case out <- v.(state.Snapshot):
				case <-stop:
					return
				}
			}
		}
	}()

	var once sync.Once
	return out, func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if !t.closed.Load() {
				t.unregisterLocked(raw)
			}
		})
	}
}

func (t *Trace) unregisterLocked(raw chan any) {
	close(t.stops[raw])
	delete(t.stops, raw)
	// the broadcaster may be blocked delivering to raw
	drained := make(chan struct{})
	go func() {
		for {
			select {
			case <-raw:
			case <-drained:
				return
			}
		}
	}()
	t.Unregister(raw)
	close(drained)
}

func (t *Trace) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed.Load() {
		return nil
	}
	t.closed.Store(true)
	for raw := range t.stops {
		t.unregisterLocked(raw)
	}
	return t.Broadcaster.Close()
}

// Trace subscribes to every snapshot produced by routers of this network.
func (n *Network) Trace() (<-chan state.Snapshot, func()) {
	return n.trace.Subscribe(state.TraceBufferSize)
}
