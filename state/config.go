package state

import (
	"fmt"
	"maps"
	"net/netip"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

var TopologyConfigPath = "topology.yaml"

type RouterCfg struct {
	Id       RouterId      `yaml:"id"`
	Position Position      `yaml:"position"`
	Prefix   *netip.Prefix `yaml:"prefix,omitempty"` // optional network owned by this router, used for forwarding lookups
}

type LinkCfg struct {
	From     RouterId `yaml:"from"`
	To       RouterId `yaml:"to"`
	Metric   *uint32  `yaml:"metric,omitempty"`   // defaults to TopologyCfg.DefaultMetric
	Directed bool     `yaml:"directed,omitempty"` // only From learns about To
}

// TopologyCfg is the initial topology of a simulation run
type TopologyCfg struct {
	Interval        time.Duration `yaml:"interval,omitempty"`
	Mode            TickMode      `yaml:"mode,omitempty"`
	ObserverTimeout time.Duration `yaml:"observer_timeout,omitempty"`
	DefaultMetric   uint32        `yaml:"default_metric,omitempty"`
	Routers         []RouterCfg   `yaml:"routers"`
	Links           []LinkCfg     `yaml:"links,omitempty"`
	Graph           []string      `yaml:"graph,omitempty"`
}

func ReadTopologyConfig(path string) (*TopologyCfg, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg TopologyCfg
	err = yaml.Unmarshal(file, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	ExpandTopologyConfig(&cfg)
	return &cfg, nil
}

func WriteTopologyConfig(path string, cfg *TopologyCfg) error {
	bytes, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, bytes, 0644)
}

// ExpandTopologyConfig fills in defaults
func ExpandTopologyConfig(cfg *TopologyCfg) {
	if cfg.Interval == 0 {
		cfg.Interval = DefaultTickInterval
	}
	if cfg.DefaultMetric == 0 {
		cfg.DefaultMetric = DefaultLinkMetric
	}
	if cfg.ObserverTimeout == 0 {
		cfg.ObserverTimeout = DefaultObserverTimeout
	}
}

func (c *TopologyCfg) RouterIds() []RouterId {
	ids := make([]RouterId, 0, len(c.Routers))
	for _, r := range c.Routers {
		ids = append(ids, r.Id)
	}
	return ids
}

func (c *TopologyCfg) IsRouter(id RouterId) bool {
	return slices.ContainsFunc(c.Routers, func(cfg RouterCfg) bool {
		return cfg.Id == id
	})
}

func (c *TopologyCfg) MetricOf(link LinkCfg) uint32 {
	if link.Metric != nil {
		return *link.Metric
	}
	if c.DefaultMetric == 0 {
		return DefaultLinkMetric
	}
	return c.DefaultMetric
}

// GetLinks returns the explicit links followed by the undirected links generated from Graph.
func (c *TopologyCfg) GetLinks() ([]LinkCfg, error) {
	links := slices.Clone(c.Links)
	ids := make([]string, 0, len(c.Routers))
	for _, id := range c.RouterIds() {
		ids = append(ids, string(id))
	}
	pairs, err := ParseGraph(c.Graph, ids)
	if err != nil {
		return nil, err
	}
	for _, pair := range pairs {
		links = append(links, LinkCfg{From: pair.V1, To: pair.V2})
	}
	return links, nil
}

func parseSymbolList(s string, validSymbols []string) ([]string, error) {
	spl := strings.Split(strings.TrimSpace(s), ",")
	line := make([]string, 0)
	for _, s := range spl {
		x := strings.TrimSpace(s)
		if x == "" {
			continue
		}
		if !slices.Contains(validSymbols, x) {
			return nil, fmt.Errorf(`%s is not a valid router/group`, x)
		}
		line = append(line, x)
	}
	if len(line) == 0 {
		return nil, fmt.Errorf(`router/group list must not be empty`)
	}
	slices.Sort(line)
	return line, nil
}

/*
ParseGraph Graph syntax is something like this:

Group1 = r1, r2, r3

Group2 = r4, r5

Group1, Group2, r6 // Group1, Group2, r6 will all be interconnected, but not within Group1 or Group2

Group1, Group1 // every router in Group1 is connected to every other router in Group1

r8, r9 // r8 and r9 will be connected

nodes is the set of router ids the graph evaluates down to.
The result is a sorted list of unique, unordered pairs.
*/
func ParseGraph(graph []string, nodes []string) ([]Pair[RouterId, RouterId], error) {
	parsedPairings := make([]Pair[string, string], 0)
	groups := make(map[string][]string)
	symbols := slices.Clone(nodes)

	// pass 0, collect all symbols
	for _, line := range graph {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, "=") {
			continue
		}
		spl := strings.Split(line, "=")
		if len(spl) != 2 {
			return nil, fmt.Errorf("invalid graph: %s. group definition must contain one '='", line)
		}
		grp := strings.TrimSpace(spl[0])
		if slices.Contains(nodes, grp) {
			return nil, fmt.Errorf("group name must not be a router id: %s", grp)
		}
		symbols = append(symbols, grp)
	}
	slices.Sort(symbols)
	symbols = slices.Compact(symbols)

	// group -> groups it depends on, used for topological sorting
	topo := make(map[string][]string)
	expansion := make(map[string][]string)

	// pass 1, parse lines
	for _, line := range graph {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.Contains(line, "=") {
			spl := strings.Split(line, "=")
			grp := strings.TrimSpace(spl[0])
			if _, ok := groups[grp]; ok {
				return nil, fmt.Errorf("duplicate group name: %s", grp)
			}
			lst, err := parseSymbolList(spl[1], symbols)
			if err != nil {
				return nil, err
			}
			deps := make([]string, 0)
			for _, l := range lst {
				if slices.Contains(nodes, l) {
					expansion[grp] = append(expansion[grp], l)
				} else {
					deps = append(deps, l)
				}
			}
			slices.Sort(deps)
			topo[grp] = slices.Compact(deps)
			groups[grp] = lst
			continue
		}
		names, err := parseSymbolList(line, symbols)
		if err != nil {
			return nil, err
		}
		if len(names) < 2 {
			return nil, fmt.Errorf("invalid pairing, %v", names)
		}
		for i, name := range names {
			for _, prev := range names[:i] {
				parsedPairings = append(parsedPairings, MakeSortedPair(prev, name))
			}
		}
	}
	SortPairs(parsedPairings)
	parsedPairings = slices.Compact(parsedPairings)

	// pass 2, expand groups in dependency order
	for len(topo) > 0 {
		var group string
		for _, k := range slices.Sorted(maps.Keys(topo)) {
			if len(topo[k]) == 0 {
				group = k
				break
			}
		}
		if group == "" {
			cycle := slices.Sorted(maps.Keys(topo))
			return nil, fmt.Errorf("cycle detected in graph: %v", cycle)
		}
		delete(topo, group)

		for k, deps := range topo {
			if !slices.Contains(deps, group) {
				continue
			}
			expansion[k] = append(expansion[k], expansion[group]...)
			slices.Sort(expansion[k])
			expansion[k] = slices.Compact(expansion[k])
			topo[k] = slices.DeleteFunc(deps, func(dep string) bool {
				return dep == group
			})
		}
	}

	// pass 3, rewrite pairings in terms of routers
	resolve := func(sym string) []RouterId {
		if slices.Contains(nodes, sym) {
			return []RouterId{RouterId(sym)}
		}
		out := make([]RouterId, 0, len(expansion[sym]))
		for _, exp := range expansion[sym] {
			out = append(out, RouterId(exp))
		}
		return out
	}
	pairings := make([]Pair[RouterId, RouterId], 0)
	for _, pair := range parsedPairings {
		for _, x := range resolve(pair.V1) {
			for _, y := range resolve(pair.V2) {
				if x != y {
					pairings = append(pairings, MakeSortedPair(x, y))
				}
			}
		}
	}
	SortPairs(pairings)
	return slices.Compact(pairings), nil
}
