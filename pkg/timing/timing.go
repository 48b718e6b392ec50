// Package timing defines the static-timing external collaborator (§6):
// RouterLoop calls into it to recompute criticality and to update delay
// after legalization — the core never implements slack computation
// itself. Mirrors the teacher's Router-interface-plus-
// concrete-Engine shape (pkg/routing/engine.go).
package timing

import (
	"fpgaroute/pkg/netwrapper"
)

// Analyzer is the interface RouterLoop drives when timing_driven is set
// (§6 timing_driven, §4.4 "if timing_driven: ...").
type Analyzer interface {
	// MinRerouteCriticality returns the current floor RouterLoop uses in
	// should_route: criticality > min_reroute_criticality (§4.4).
	MinRerouteCriticality() float64

	// UpdateTiming recomputes each connection's criticality in place
	// after an iteration's routing pass (§6 "update_timing... sets each
	// connection's criticality in place").
	UpdateTiming(conns []*netwrapper.Connection)

	// PatchUpDelay is invoked after route legalization to refresh delay
	// values along the rebuilt DAG (§6 "patch_up_delay(connections) after
	// route legalization").
	PatchUpDelay(conns []*netwrapper.Connection)
}

// NullAnalyzer is the default no-op Analyzer Router uses when the caller
// supplies none (Router only calls the Analyzer when timing_driven is
// set): criticality is left unchanged, and min_reroute_criticality never
// triggers an extra reroute.
type NullAnalyzer struct{}

func (NullAnalyzer) MinRerouteCriticality() float64 { return 1.0 }

func (NullAnalyzer) UpdateTiming([]*netwrapper.Connection) {}

func (NullAnalyzer) PatchUpDelay([]*netwrapper.Connection) {}
