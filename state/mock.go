package state

import (
	"fmt"
	"net/netip"
)

func Box[T any](v T) *T {
	return &v
}

// SampleTopology is the triangle the simulator ships with.
func SampleTopology() TopologyCfg {
	cfg := TopologyCfg{
		Interval:        DefaultTickInterval,
		Mode:            Sequential,
		ObserverTimeout: DefaultObserverTimeout,
		DefaultMetric:   DefaultLinkMetric,
		Routers: []RouterCfg{
			{Id: "R1", Position: Position{X: 150, Y: 100}},
			{Id: "R2", Position: Position{X: 300, Y: 100}},
			{Id: "R3", Position: Position{X: 225, Y: 200}},
		},
		Graph: []string{
			"R1, R2, R3",
		},
	}
	for i := range cfg.Routers {
		cfg.Routers[i].Prefix = Box(netip.MustParsePrefix(fmt.Sprintf("192.168.%d0.0/24", i+1)))
	}
	return cfg
}

// ChainTopology returns n routers connected in a line with the given link metric.
func ChainTopology(n int, metric uint32) TopologyCfg {
	cfg := TopologyCfg{
		Interval:      DefaultTickInterval,
		DefaultMetric: metric,
	}
	for i := range n {
		id := RouterId(fmt.Sprintf("r%d", i))
		cfg.Routers = append(cfg.Routers, RouterCfg{
			Id:       id,
			Position: Position{X: float64(100 * i), Y: 100},
		})
		if i > 0 {
			cfg.Links = append(cfg.Links, LinkCfg{From: cfg.Routers[i-1].Id, To: id})
		}
	}
	return cfg
}
