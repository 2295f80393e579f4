package state

import "time"

const (
	INF = ^(uint32)(0)
	// INFM is the largest metric that still describes a reachable destination.
	INFM = INF - 1
)

var (
	DefaultTickInterval = time.Second * 3 // RIP update period of the simulated routers
	DefaultLinkMetric   = (uint32)(1)
	// DefaultObserverTimeout bounds how long a tick waits on a single observer.
	DefaultObserverTimeout = time.Second * 1
	// ObserverErrorLogWindow suppresses repeated warnings for the same failing subscription.
	ObserverErrorLogWindow = time.Second * 30
	// DefaultConvergeTicks is the tick budget used by inspect when none is given.
	DefaultConvergeTicks = 1024
	// TraceBufferSize is the number of snapshots buffered by the trace broadcaster.
	TraceBufferSize = 1024
	// SlowTickThreshold is the duration after which a tick is logged as slow.
	SlowTickThreshold = time.Millisecond * 50
)
