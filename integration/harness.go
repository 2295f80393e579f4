//go:build integration

package integration

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/encodeous/ripsim/core"
	"github.com/encodeous/ripsim/state"
	"github.com/stretchr/testify/require"
)

type Signal chan bool

func NewSignal() Signal {
	return make(chan bool)
}
func (s Signal) Trigger() {
	select {
	case <-s:
	default:
		close(s)
	}
}
func (s Signal) Triggered() bool {
	select {
	case <-s:
		return true
	default:
		return false
	}
}
func (s Signal) Wait() {
	<-s
}

// SimHarness runs a network built from a topology with periodic updates.
type SimHarness struct {
	Topology state.TopologyCfg
	Net      *core.Network
	Context  context.Context
	cancel   context.CancelFunc
}

func NewSimHarness(t *testing.T, topo state.TopologyCfg) *SimHarness {
	t.Helper()
	require.NoError(t, state.TopologyConfigValidator(&topo))
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	n, err := core.Build(&topo, core.Options{Log: log})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	return &SimHarness{
		Topology: topo,
		Net:      n,
		Context:  ctx,
		cancel:   cancel,
	}
}

// WaitFor triggers the returned signal once router reports a snapshot matching cond.
func (h *SimHarness) WaitFor(t *testing.T, router state.RouterId, cond func(state.Snapshot) bool) Signal {
	t.Helper()
	var once sync.Once
	sig := NewSignal()
	trigger := func(snap state.Snapshot) {
		if cond(snap) {
			once.Do(sig.Trigger)
		}
	}
	// subscribe first so a change racing the check below is not missed
	_, err := h.Net.Subscribe(router, trigger)
	require.NoError(t, err)
	snap, err := h.Net.GetSnapshot(router)
	require.NoError(t, err)
	trigger(snap)
	return sig
}

func (h *SimHarness) Start(t *testing.T) {
	t.Helper()
	require.NoError(t, h.Net.StartPeriodicUpdates(h.Context, h.Topology.Interval))
}

func (h *SimHarness) Stop() {
	h.cancel()
	_ = h.Net.Close()
}

// RouteIs matches a snapshot whose route to dest has the given next hop and metric.
func RouteIs(dest, nextHop state.RouterId, metric uint32) func(state.Snapshot) bool {
	return func(snap state.Snapshot) bool {
		r, ok := snap.Route(dest)
		return ok && r.NextHop == nextHop && r.Metric == metric
	}
}

// MetricIs matches a snapshot whose route to dest has the given metric, through any next hop.
func MetricIs(dest state.RouterId, metric uint32) func(state.Snapshot) bool {
	return func(snap state.Snapshot) bool {
		r, ok := snap.Route(dest)
		return ok && r.Metric == metric
	}
}
