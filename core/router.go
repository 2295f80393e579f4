package core

import (
	"fmt"
	"net/netip"
	"slices"
	"sync"

	"github.com/encodeous/ripsim/perf"
	"github.com/encodeous/ripsim/state"
)

type RouterEvent int

const (
	RouteAdded RouterEvent = iota
	RouteImproved
)

func (e RouterEvent) String() string {
	switch e {
	case RouteAdded:
		return "RouteAdded"
	case RouteImproved:
		return "RouteImproved"
	default:
		return fmt.Sprintf("RouterEvent(%d)", int(e))
	}
}

// Router owns a routing table, an ordered set of neighbour links and its subscribers.
// Its table is only ever replaced by its own update step; everyone else reads copies.
type Router struct {
	id     state.RouterId
	pos    state.Position
	prefix *netip.Prefix
	env    *Env

	// serialises update steps on this router
	updateMu sync.Mutex

	mu         sync.RWMutex
	neighbours []state.NeighbourLink
	table      state.RoutingTable

	subMu       sync.Mutex
	subscribers []*Subscription
}

type RouterOption func(r *Router)

// WithPrefix assigns a network to the router, used by Network.Forward.
func WithPrefix(prefix netip.Prefix) RouterOption {
	return func(r *Router) {
		p := prefix.Masked()
		r.prefix = &p
	}
}

// NewRouter creates a router with an empty table and no neighbours.
func NewRouter(id state.RouterId, pos state.Position, opts ...RouterOption) *Router {
	r := &Router{
		id:         id,
		pos:        pos,
		env:        newEnv(nil, 0, nil),
		neighbours: make([]state.NeighbourLink, 0),
		table:      make(state.RoutingTable),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) Id() state.RouterId {
	return r.id
}

func (r *Router) Position() state.Position {
	return r.pos
}

func (r *Router) Prefix() (netip.Prefix, bool) {
	if r.prefix == nil {
		return netip.Prefix{}, false
	}
	return *r.prefix, true
}

// AddNeighbour attaches a directed link. Duplicates are kept, they are harmless to the relaxation.
func (r *Router) AddNeighbour(peer state.RouterId, metric uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.neighbours = append(r.neighbours, state.NeighbourLink{
		Peer:   peer,
		Metric: metric,
	})
}

func (r *Router) Neighbours() []state.NeighbourLink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.neighbours)
}

// Table returns a copy of the current table. It never observes a half-applied update.
func (r *Router) Table() state.RoutingTable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.table.Clone()
}

func (r *Router) Route(dest state.RouterId) (state.RouteEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.table.Get(dest)
}

func (r *Router) Snapshot() state.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return state.Snapshot{
		Id:         r.id,
		Position:   r.pos,
		Neighbours: slices.Clone(r.neighbours),
		Table:      r.table.SortedRows(),
	}
}

// Subscribe registers an observer. There is no deduplication and no way to unsubscribe.
func (r *Router) Subscribe(fn Observer) *Subscription {
	sub := newSubscription(r.id, fn)
	r.subMu.Lock()
	defer r.subMu.Unlock()
	r.subscribers = append(r.subscribers, sub)
	return sub
}

func (r *Router) Log(event RouterEvent, desc string, args ...any) {
	args = append([]any{"router", r.id}, args...)
	r.env.Log.Debug(fmt.Sprintf("%s %s", event.String(), desc), args...)
}

// UpdateRoutingTable relaxes this router's table against the current tables of its neighbours.
// Observers are notified iff the table changed.
func (r *Router) UpdateRoutingTable(peers PeerTables) bool {
	r.updateMu.Lock()
	defer r.updateMu.Unlock()
	return r.commit(r.computeUpdate(peers))
}

type pendingUpdate struct {
	table   state.RoutingTable
	changed []state.RouterId
}

// computeUpdate must be called with updateMu held.
func (r *Router) computeUpdate(peers PeerTables) pendingUpdate {
	r.mu.RLock()
	links := slices.Clone(r.neighbours)
	next := r.table.Clone()
	r.mu.RUnlock()

	return pendingUpdate{
		table:   next,
		changed: Relax(r.id, links, next, peers),
	}
}

// commit swaps in the new table and notifies observers. It must be called with updateMu held.
func (r *Router) commit(p pendingUpdate) bool {
	if len(p.changed) == 0 {
		return false
	}

	r.mu.Lock()
	prev := r.table
	r.table = p.table
	size := len(p.table)
	r.mu.Unlock()

	for _, dest := range p.changed {
		e := p.table[dest]
		if _, existed := prev[dest]; existed {
			r.Log(RouteImproved, "shorter route found", "dest", dest, "route", e)
		} else {
			r.Log(RouteAdded, "destination became reachable", "dest", dest, "route", e)
		}
	}
	perf.RouteChangesPerSecond.Add(float64(len(p.changed)))
	perf.RouteChangesTotal.WithLabelValues(string(r.id)).Add(float64(len(p.changed)))
	perf.Routes.WithLabelValues(string(r.id)).Set(float64(size))

	r.notify(r.Snapshot())
	return true
}

// notify delivers snap to every subscriber in subscription order. A failing observer is reported and skipped.
func (r *Router) notify(snap state.Snapshot) {
	r.subMu.Lock()
	subs := slices.Clone(r.subscribers)
	r.subMu.Unlock()

	for _, sub := range subs {
		err := sub.deliver(snap.Clone(), r.env.ObserverTimeout)
		if err != nil {
			r.env.reportObserverError(&ObserverError{
				Router:       r.id,
				Subscription: sub.Id,
				Err:          err,
			})
		}
	}
	r.env.publish(snap)
}
