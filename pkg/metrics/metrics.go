// Package metrics registers the per-iteration router counters §7 requires
// ("the router reports, per iteration, the number of overused rnodes,
// newly routed connections, and worst-case delay"), as Prometheus
// collectors in the style of flowlogs-pipeline's pkg/prometheus.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors bundles the three per-iteration gauges/counter §7 names.
type Collectors struct {
	OverusedRNodes   prometheus.Gauge
	NewlyRouted      prometheus.Counter
	WorstCaseDelayPs prometheus.Gauge
	Iteration        prometheus.Gauge
}

// NewCollectors creates and registers the router's metrics against reg.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		OverusedRNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fpgaroute",
			Name:      "overused_rnodes",
			Help:      "Number of rnodes with occupancy greater than capacity at the end of the current iteration.",
		}),
		NewlyRouted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fpgaroute",
			Name:      "newly_routed_connections_total",
			Help:      "Cumulative count of connections that became routed during the run.",
		}),
		WorstCaseDelayPs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fpgaroute",
			Name:      "worst_case_delay_ps",
			Help:      "Worst-case connection delay, in picoseconds, observed at the end of the current iteration.",
		}),
		Iteration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fpgaroute",
			Name:      "iteration",
			Help:      "Current RouterLoop iteration number.",
		}),
	}
	reg.MustRegister(c.OverusedRNodes, c.NewlyRouted, c.WorstCaseDelayPs, c.Iteration)
	return c
}
