package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/encodeous/ripsim/perf"
	"github.com/encodeous/ripsim/state"
	"github.com/gaissmai/bart"
	"golang.org/x/sync/errgroup"
)

var ErrNotConverged = errors.New("network did not converge")

type Options struct {
	Mode state.TickMode
	// ObserverTimeout bounds each observer call. 0 uses state.DefaultObserverTimeout, a negative value calls
	// observers inline on the ticking goroutine.
	ObserverTimeout time.Duration
	OnObserverError func(*ObserverError)
	// OnTick is called after every completed tick, on the ticking goroutine.
	OnTick func(TickResult)
	Log    *slog.Logger
}

// Network owns the routers of a simulation and drives their convergence.
type Network struct {
	*Env
	mode   state.TickMode
	onTick func(TickResult)

	mu      sync.RWMutex
	routers []*Router // registration order
	index   map[state.RouterId]*Router
	forward bart.Table[state.RouterId]

	// serialises ticks
	tickMu sync.Mutex
	seq    atomic.Uint64

	runMu  sync.Mutex
	cancel context.CancelCauseFunc
	done   chan struct{}
}

type TickResult struct {
	Seq     uint64
	Updated []state.RouterId // routers whose table changed, in update order
	Elapsed time.Duration
}

// Converged reports whether the tick left every table unchanged.
func (t TickResult) Converged() bool {
	return len(t.Updated) == 0
}

func NewNetwork(opts Options) *Network {
	env := newEnv(opts.Log, opts.ObserverTimeout, opts.OnObserverError)
	env.trace = newTrace(state.TraceBufferSize)
	return &Network{
		Env:    env,
		mode:   opts.Mode,
		onTick: opts.OnTick,
		index:  make(map[state.RouterId]*Router),
	}
}

func (n *Network) Mode() state.TickMode {
	return n.mode
}

// AddRouter registers a router. Its neighbours do not have to be registered (yet).
func (n *Network) AddRouter(r *Router) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.index[r.id]; ok {
		return &state.ConfigError{Op: "add router", Router: r.id, Err: state.ErrDuplicateRouter}
	}
	r.env = n.Env
	n.routers = append(n.routers, r)
	n.index[r.id] = r
	if prefix, ok := r.Prefix(); ok {
		n.forward.Insert(prefix, r.id)
	}
	n.Log.Debug("registered router", "router", r.id, "position", r.pos)
	return nil
}

func (n *Network) CreateRouter(id state.RouterId, pos state.Position, opts ...RouterOption) (*Router, error) {
	r := NewRouter(id, pos, opts...)
	err := n.AddRouter(r)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (n *Network) GetRouter(id state.RouterId) (*Router, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	r, ok := n.index[id]
	return r, ok
}

// Routers returns the registered routers in registration order.
func (n *Network) Routers() []*Router {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]*Router(nil), n.routers...)
}

func (n *Network) PeerTable(id state.RouterId) (state.RoutingTable, bool) {
	r, ok := n.GetRouter(id)
	if !ok {
		return nil, false
	}
	return r.Table(), true
}

func (n *Network) link(op string, a, b state.RouterId, metric uint32) (*Router, *Router, error) {
	if a == b {
		return nil, nil, &state.ConfigError{Op: op, Router: a, Peer: b, Err: state.ErrSelfLink}
	}
	if metric == state.INF {
		return nil, nil, &state.ConfigError{Op: op, Router: a, Peer: b, Err: state.ErrInvalidMetric}
	}
	ra, ok := n.GetRouter(a)
	if !ok {
		return nil, nil, &state.ConfigError{Op: op, Router: a, Peer: b, Err: fmt.Errorf("%w: %s", state.ErrUnknownRouter, a)}
	}
	rb, ok := n.GetRouter(b)
	if !ok {
		return nil, nil, &state.ConfigError{Op: op, Router: a, Peer: b, Err: fmt.Errorf("%w: %s", state.ErrUnknownRouter, b)}
	}
	return ra, rb, nil
}

// Connect links a and b in both directions with the same metric.
func (n *Network) Connect(a, b state.RouterId, metric uint32) error {
	ra, rb, err := n.link("connect", a, b, metric)
	if err != nil {
		return err
	}
	ra.AddNeighbour(b, metric)
	rb.AddNeighbour(a, metric)
	n.Log.Debug("connected routers", "a", a, "b", b, "metric", metric)
	return nil
}

// ConnectDirected adds a link from a to b only; b does not learn about a through it.
func (n *Network) ConnectDirected(a, b state.RouterId, metric uint32) error {
	ra, _, err := n.link("connect directed", a, b, metric)
	if err != nil {
		return err
	}
	ra.AddNeighbour(b, metric)
	n.Log.Debug("connected routers", "from", a, "to", b, "metric", metric)
	return nil
}

func (n *Network) GetSnapshot(id state.RouterId) (state.Snapshot, error) {
	r, ok := n.GetRouter(id)
	if !ok {
		return state.Snapshot{}, fmt.Errorf("%w: %s", state.ErrUnknownRouter, id)
	}
	return r.Snapshot(), nil
}

// Snapshots returns the snapshot of every router, in registration order.
func (n *Network) Snapshots() []state.Snapshot {
	routers := n.Routers()
	snaps := make([]state.Snapshot, 0, len(routers))
	for _, r := range routers {
		snaps = append(snaps, r.Snapshot())
	}
	return snaps
}

func (n *Network) Subscribe(id state.RouterId, fn Observer) (*Subscription, error) {
	r, ok := n.GetRouter(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", state.ErrUnknownRouter, id)
	}
	return r.Subscribe(fn), nil
}

// Tick updates every router once, in registration order.
func (n *Network) Tick() TickResult {
	n.tickMu.Lock()
	defer n.tickMu.Unlock()

	start := time.Now()
	routers := n.Routers()
	seq := n.seq.Add(1)

	var updated []state.RouterId
	switch n.mode {
	case state.Synchronous:
		updated = n.tickSynchronous(routers)
	default:
		updated = n.tickSequential(routers)
	}

	elapsed := time.Since(start)
	perf.TickLatency.Add(float64(elapsed.Microseconds()))
	perf.TicksTotal.Inc()
	n.reported.DeleteExpired()

	n.Log.Debug("tick complete", "tick", seq, "updated", updated, "elapsed", elapsed)
	if elapsed > state.SlowTickThreshold {
		n.Log.Warn("tick took a long time!", "tick", seq, "routers", len(routers), "elapsed", elapsed)
	}

	res := TickResult{
		Seq:     seq,
		Updated: updated,
		Elapsed: elapsed,
	}
	if n.onTick != nil {
		n.onTick(res)
	}
	return res
}

// tickSequential lets each router read the live tables of its peers, so a router updated later in the tick
// already sees what earlier routers learned during the same tick.
func (n *Network) tickSequential(routers []*Router) []state.RouterId {
	updated := make([]state.RouterId, 0)
	for _, r := range routers {
		if r.UpdateRoutingTable(n) {
			updated = append(updated, r.id)
		}
	}
	return updated
}

// tickSynchronous freezes every table first, relaxes all routers in parallel against the frozen tables,
// then commits in registration order.
func (n *Network) tickSynchronous(routers []*Router) []state.RouterId {
	for _, r := range routers {
		r.updateMu.Lock()
	}
	defer func() {
		for _, r := range routers {
			r.updateMu.Unlock()
		}
	}()

	frozen := make(TableSet, len(routers))
	for _, r := range routers {
		frozen[r.id] = r.Table()
	}

	pending := make([]pendingUpdate, len(routers))
	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, r := range routers {
		g.Go(func() error {
			pending[i] = r.computeUpdate(frozen)
			return nil
		})
	}
	_ = g.Wait() // computeUpdate cannot fail

	updated := make([]state.RouterId, 0)
	for i, r := range routers {
		if r.commit(pending[i]) {
			updated = append(updated, r.id)
		}
	}
	return updated
}

// Converge ticks until a tick changes nothing, returning the number of ticks run including the quiet one.
func (n *Network) Converge(ctx context.Context, maxTicks int) (int, error) {
	for i := 1; i <= maxTicks; i++ {
		if err := ctx.Err(); err != nil {
			return i - 1, err
		}
		if n.Tick().Converged() {
			return i, nil
		}
	}
	return maxTicks, fmt.Errorf("%w after %d ticks", ErrNotConverged, maxTicks)
}
