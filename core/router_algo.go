package core

import (
	"slices"

	"github.com/encodeous/ripsim/state"
)

// PeerTables gives read-only access to the tables of other routers. Implementations must return a table
// that the caller is free to read while the owner keeps updating, i.e. a copy or a frozen table.
type PeerTables interface {
	PeerTable(id state.RouterId) (state.RoutingTable, bool)
}

// TableSet is a frozen view of every router's table, taken at the start of a synchronous tick.
type TableSet map[state.RouterId]state.RoutingTable

func (t TableSet) PeerTable(id state.RouterId) (state.RoutingTable, bool) {
	tbl, ok := t[id]
	return tbl, ok
}

// Relax runs one Bellman-Ford relaxation pass over the tables advertised by the direct neighbours of self,
// writing improvements into table. It returns the sorted destinations whose entry changed.
func Relax(self state.RouterId, links []state.NeighbourLink, table state.RoutingTable, peers PeerTables) []state.RouterId {
	changed := make([]state.RouterId, 0)

	// enumerate through neighbours, in the order they were attached
	for _, link := range links {
		consider := func(dest state.RouterId, advMetric uint32) {
			if dest == self {
				return // never route to ourselves
			}
			// Cost(A, B) + Cost(B, D)
			totalCost := state.AddMetric(advMetric, link.Metric)
			if totalCost == state.INF {
				return // unreachable through this link
			}
			if table.UpsertIfBetter(dest, state.RouteEntry{
				NextHop: link.Peer,
				Metric:  totalCost,
			}) {
				changed = append(changed, dest)
			}
		}

		// a neighbour is reachable through its link even before it advertises anything
		consider(link.Peer, 0)

		adv, ok := peers.PeerTable(link.Peer)
		if !ok {
			continue
		}
		for dest, entry := range adv {
			consider(dest, entry.Metric)
		}
	}

	slices.Sort(changed)
	return slices.Compact(changed)
}
