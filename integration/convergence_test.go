//go:build integration

package integration

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/encodeous/ripsim/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func waitOrFail(t *testing.T, sig Signal, what string) {
	t.Helper()
	select {
	case <-sig:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for ", what)
	}
}

func TestStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)
	topo := state.SampleTopology()
	topo.Interval = time.Millisecond
	h := NewSimHarness(t, topo)
	h.Start(t)
	conv := h.WaitFor(t, "R3", RouteIs("R1", "R1", 1))
	waitOrFail(t, conv, "triangle convergence")
	h.Stop()
	assert.False(t, h.Net.Running())
}

func TestOptimalConvergence(t *testing.T) {
	defer goleak.VerifyNone(t)

	topo := state.TopologyCfg{
		Interval: time.Millisecond,
		Routers: []state.RouterCfg{
			{Id: "a"}, {Id: "b"}, {Id: "c"},
		},
		Links: []state.LinkCfg{
			{From: "a", To: "b", Metric: state.Box(uint32(10))},
			{From: "a", To: "c", Metric: state.Box(uint32(50))},
		},
	}
	state.ExpandTopologyConfig(&topo)
	h := NewSimHarness(t, topo)
	defer h.Stop()

	// first stage: c <-50-> a <-10-> b
	conv1 := h.WaitFor(t, "c", RouteIs("b", "a", 60))
	h.Start(t)
	waitOrFail(t, conv1, "first stage convergence")

	// second stage: a <-10-> b <-10-> c, c should now reach a through b
	conv2 := h.WaitFor(t, "c", RouteIs("a", "b", 20))
	require.NoError(t, h.Net.Connect("b", "c", 10))
	waitOrFail(t, conv2, "second stage convergence")

	conv3 := h.WaitFor(t, "a", RouteIs("c", "b", 20))
	waitOrFail(t, conv3, "a to switch away from the direct link")

	snap, err := h.Net.GetSnapshot("b")
	require.NoError(t, err)
	assert.Equal(t, []state.TableRow{
		{Dest: "a", NextHop: "a", Metric: 10},
		{Dest: "c", NextHop: "c", Metric: 10},
	}, snap.Table)
}

func TestGridFromConfig(t *testing.T) {
	defer goleak.VerifyNone(t)

	const size = 5
	id := func(x, y int) state.RouterId {
		return state.RouterId(fmt.Sprintf("g%d%d", x, y))
	}
	topo := state.TopologyCfg{
		Interval: time.Millisecond,
		Mode:     state.Synchronous,
	}
	for x := range size {
		for y := range size {
			topo.Routers = append(topo.Routers, state.RouterCfg{
				Id:       id(x, y),
				Position: state.Position{X: float64(x * 50), Y: float64(y * 50)},
			})
			if x > 0 {
				topo.Graph = append(topo.Graph, fmt.Sprintf("%s, %s", id(x-1, y), id(x, y)))
			}
			if y > 0 {
				topo.Graph = append(topo.Graph, fmt.Sprintf("%s, %s", id(x, y-1), id(x, y)))
			}
		}
	}

	path := filepath.Join(t.TempDir(), "grid.yaml")
	require.NoError(t, state.WriteTopologyConfig(path, &topo))
	read, err := state.ReadTopologyConfig(path)
	require.NoError(t, err)

	h := NewSimHarness(t, *read)
	defer h.Stop()
	far := h.WaitFor(t, id(0, 0), MetricIs(id(size-1, size-1), 2*(size-1)))
	h.Start(t)
	waitOrFail(t, far, "grid convergence")

	h.Net.Stop()
	for _, snap := range h.Net.Snapshots() {
		var sx, sy int
		_, err := fmt.Sscanf(string(snap.Id), "g%1d%1d", &sx, &sy)
		require.NoError(t, err)
		assert.Len(t, snap.Table, size*size-1)
		for _, row := range snap.Table {
			var dx, dy int
			_, err := fmt.Sscanf(string(row.Dest), "g%1d%1d", &dx, &dy)
			require.NoError(t, err)
			want := uint32(abs(sx-dx) + abs(sy-dy))
			assert.Equal(t, want, row.Metric, "%s -> %s", snap.Id, row.Dest)
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
