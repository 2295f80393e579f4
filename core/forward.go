package core

import (
	"net/netip"

	"github.com/encodeous/ripsim/state"
)

// Forward resolves addr to the router owning the longest matching prefix, and returns the route
// that router from currently uses to reach it.
func (n *Network) Forward(from state.RouterId, addr netip.Addr) (state.RouterId, state.RouteEntry, bool) {
	n.mu.RLock()
	dest, found := n.forward.Lookup(addr)
	r, ok := n.index[from]
	n.mu.RUnlock()
	if !found || !ok {
		return "", state.RouteEntry{}, false
	}
	if dest == from {
		// delivered locally
		return dest, state.RouteEntry{NextHop: from, Metric: 0}, true
	}
	route, ok := r.Route(dest)
	if !ok {
		return dest, state.RouteEntry{}, false
	}
	return dest, route, true
}

// Prefixes returns the prefix of every router that owns one.
func (n *Network) Prefixes() map[state.RouterId]netip.Prefix {
	out := make(map[state.RouterId]netip.Prefix)
	for _, r := range n.Routers() {
		if p, ok := r.Prefix(); ok {
			out[r.id] = p
		}
	}
	return out
}
