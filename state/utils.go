package state

// AddMetric adds two metrics, saturating at INFM. Anything involving INF stays INF.
func AddMetric(a, b uint32) uint32 {
	if a == INF || b == INF {
		return INF
	}
	return uint32(min(uint64(INFM), uint64(a)+uint64(b)))
}
