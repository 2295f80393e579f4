package state

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

type RouterId string

// Position is only used by renderers, the engine never looks at it.
type Position struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type RouteEntry struct {
	NextHop RouterId
	Metric  uint32
}

func (e RouteEntry) String() string {
	return fmt.Sprintf("(nh: %s, metric: %d)", e.NextHop, e.Metric)
}

// NeighbourLink is a directed cost owned by one endpoint. The peer does not need to list us back.
type NeighbourLink struct {
	Peer   RouterId `yaml:"peer"`
	Metric uint32   `yaml:"metric"`
}

// RoutingTable maps a destination to the best known way to reach it. A missing entry means unreachable.
type RoutingTable map[RouterId]RouteEntry

func (t RoutingTable) Get(dest RouterId) (RouteEntry, bool) {
	e, ok := t[dest]
	return e, ok
}

// UpsertIfBetter writes candidate iff there is no entry for dest, or candidate is strictly cheaper.
// Equal metrics never replace the existing entry, so equal-cost paths do not flap.
func (t RoutingTable) UpsertIfBetter(dest RouterId, candidate RouteEntry) bool {
	cur, ok := t[dest]
	if ok && candidate.Metric >= cur.Metric {
		return false
	}
	t[dest] = candidate
	return true
}

func (t RoutingTable) Clone() RoutingTable {
	if t == nil {
		return make(RoutingTable)
	}
	return maps.Clone(t)
}

// SortedRows returns the table ordered by destination.
func (t RoutingTable) SortedRows() []TableRow {
	rows := make([]TableRow, 0, len(t))
	for _, dest := range slices.Sorted(maps.Keys(t)) {
		e := t[dest]
		rows = append(rows, TableRow{
			Dest:    dest,
			NextHop: e.NextHop,
			Metric:  e.Metric,
		})
	}
	return rows
}

func (t RoutingTable) String() string {
	rows := t.SortedRows()
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, row.String())
	}
	return strings.Join(lines, "\n")
}

type TableRow struct {
	Dest    RouterId `yaml:"dest"`
	NextHop RouterId `yaml:"next_hop"`
	Metric  uint32   `yaml:"metric"`
}

func (r TableRow) String() string {
	return fmt.Sprintf("%s via (nh: %s, metric: %d)", r.Dest, r.NextHop, r.Metric)
}

// Snapshot is a copy of a router's observable state. It shares no memory with the router it came from.
type Snapshot struct {
	Id         RouterId        `yaml:"id"`
	Position   Position        `yaml:"position"`
	Neighbours []NeighbourLink `yaml:"neighbours"`
	Table      []TableRow      `yaml:"table"`
}

func (s Snapshot) Clone() Snapshot {
	s.Neighbours = slices.Clone(s.Neighbours)
	s.Table = slices.Clone(s.Table)
	return s
}

// Route looks up the row for dest.
func (s Snapshot) Route(dest RouterId) (TableRow, bool) {
	idx, found := slices.BinarySearchFunc(s.Table, dest, func(row TableRow, id RouterId) int {
		return strings.Compare(string(row.Dest), string(id))
	})
	if !found {
		return TableRow{}, false
	}
	return s.Table[idx], true
}

func (s Snapshot) StringRoutes() string {
	lines := make([]string, 0, len(s.Table))
	for _, row := range s.Table {
		lines = append(lines, row.String())
	}
	return strings.Join(lines, "\n")
}

func (s Snapshot) String() string {
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("%s (%.0f, %.0f)\n", s.Id, s.Position.X, s.Position.Y))
	sb.WriteString(" Neighbours:\n")
	if len(s.Neighbours) == 0 {
		sb.WriteString("  (none)\n")
	}
	for _, n := range s.Neighbours {
		sb.WriteString(fmt.Sprintf("  - %s metric %d\n", n.Peer, n.Metric))
	}
	sb.WriteString(" Route Table:\n")
	if len(s.Table) == 0 {
		sb.WriteString("  (empty)\n")
	}
	for _, row := range s.Table {
		sb.WriteString(fmt.Sprintf("  - %s\n", row))
	}
	return sb.String()
}
