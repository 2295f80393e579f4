package core

import (
	"bytes"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/encodeous/ripsim/state"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type HarnessEvent struct {
	Tick   uint64
	Router state.RouterId
	Table  []state.TableRow
}

// RouterHarness records every snapshot delivered to the observers it subscribes.
type RouterHarness struct {
	mu     sync.Mutex
	tick   uint64
	events []HarnessEvent
}

func (h *RouterHarness) Observe(t *testing.T, n *Network, ids ...state.RouterId) {
	t.Helper()
	for _, id := range ids {
		_, err := n.Subscribe(id, func(snap state.Snapshot) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.events = append(h.events, HarnessEvent{
				Tick:   h.tick,
				Router: snap.Id,
				Table:  snap.Table,
			})
		})
		require.NoError(t, err)
	}
}

// Tick advances the network by one tick, tagging the events it produces.
func (h *RouterHarness) Tick(n *Network) TickResult {
	h.mu.Lock()
	h.tick++
	h.mu.Unlock()
	return n.Tick()
}

type HarnessEvents []HarnessEvent

func (h HarnessEvents) String() string {
	out := make([]string, 0)
	for _, e := range h {
		out = append(out, fmt.Sprintf("%d %s %v", e.Tick, e.Router, e.Table))
	}
	return strings.Join(out, "\n")
}

func (h *RouterHarness) GetEvents() HarnessEvents {
	h.mu.Lock()
	defer h.mu.Unlock()
	x := slices.Clone(h.events)
	h.events = nil
	return x
}

// Ticks returns the ticks on which router was notified.
func (e HarnessEvents) Ticks(router state.RouterId) []uint64 {
	ticks := make([]uint64, 0)
	for _, event := range e {
		if event.Router == router {
			ticks = append(ticks, event.Tick)
		}
	}
	return ticks
}

func (e HarnessEvents) AssertContains(t *testing.T, router state.RouterId, table []state.TableRow) {
	t.Helper()
	for _, event := range e {
		if event.Router == router && cmp.Equal(event.Table, table) {
			return
		}
	}
	t.Fatal("Expected table not found for ", router, ": ", table, " in\n", e)
}

func row(dest, nh state.RouterId, metric uint32) state.TableRow {
	return state.TableRow{Dest: dest, NextHop: nh, Metric: metric}
}

// chain builds a - b - c - d with unit metrics.
func chain(t *testing.T, opts Options) *Network {
	t.Helper()
	n := NewNetwork(opts)
	for i, id := range []state.RouterId{"A", "B", "C", "D"} {
		_, err := n.CreateRouter(id, state.Position{X: float64(100 * i)})
		require.NoError(t, err)
	}
	require.NoError(t, n.Connect("A", "B", 1))
	require.NoError(t, n.Connect("B", "C", 1))
	require.NoError(t, n.Connect("C", "D", 1))
	return n
}

func triangle(t *testing.T, opts Options) *Network {
	t.Helper()
	cfg := state.SampleTopology()
	n, err := Build(&cfg, opts)
	require.NoError(t, err)
	return n
}

type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *logBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

func (l *logBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

func (l *logBuffer) Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(l, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
