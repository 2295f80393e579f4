package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TickLatency             = metric.NewHistogram("1m1s")
	RouteChangesPerSecond   = metric.NewCounter("10s1s")
	ObserverErrorsPerSecond = metric.NewCounter("10s1s")
)

var (
	TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ripsim_ticks_total",
		Help: "Number of completed network ticks",
	})
	RouteChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ripsim_route_changes_total",
		Help: "Number of routing table entries added or improved",
	}, []string{"router"})
	ObserverErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ripsim_observer_errors_total",
		Help: "Number of failed observer deliveries",
	}, []string{"router", "reason"})
	Routes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ripsim_routes",
		Help: "Number of destinations in the routing table",
	}, []string{"router"})
	TraceDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ripsim_trace_dropped_total",
		Help: "Number of snapshots dropped because trace subscribers were backed up",
	})
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	http.Handle("/metrics", promhttp.Handler())

	expvar.Publish("ripsim:TickLatency (µs)", TickLatency)
	expvar.Publish("ripsim:RouteChanges/s", RouteChangesPerSecond)
	expvar.Publish("ripsim:ObserverErrors/s", ObserverErrorsPerSecond)
}

// Serve exposes /debug/metrics, /debug/vars and /metrics on addr. It blocks until the server fails.
func Serve(addr string) error {
	return http.ListenAndServe(addr, nil)
}
