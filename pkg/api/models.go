// Package api exposes the router/ECO core over HTTP, adapted from the
// teacher's pkg/api/{handlers,server,models}.go domain-swapped from a
// lat/lng route-request service to job submission over a routed design
// (§6 "Persisted state").
package api

// DisconnectRequest is the JSON body for POST /api/v1/eco/disconnect.
// Pins are hierarchical pin references formatted "cell/port".
type DisconnectRequest struct {
	Pins []string `json:"pins"`
}

// ConnectRequest is the JSON body for POST /api/v1/eco/connect: one or
// more nets, each gaining the listed pins (§4.7).
type ConnectRequest struct {
	Nets map[string][]string `json:"nets"`
}

// RouteRequest triggers a scheduler run over whatever nets are currently
// loaded; the body is empty today but kept as a JSON object so future
// per-request overrides (e.g. a one-shot soft_preserve toggle) don't
// break existing clients.
type RouteRequest struct{}

// RouteResponse reports a completed scheduler run (§7 "converged",
// "unroutables remaining", "conflicts remaining").
type RouteResponse struct {
	Converged       bool  `json:"converged"`
	Iterations      int   `json:"iterations"`
	UnroutedConns   int   `json:"unrouted_connections"`
	MultiDriverNets int   `json:"multi_driver_nets"`
	OverusedAtEnd   int   `json:"overused_at_end"`
	LegalizedNets   int   `json:"legalized_nets"`
	PhaseMillis     []int `json:"phase_millis"`
}

// ECOResponse reports the outcome of a disconnect/connect call, plus the
// per-physical-net deferred-removal counts it produced (§9 "Deferred
// removals").
type ECOResponse struct {
	Status           string         `json:"status"`
	DeferredRemovals map[string]int `json:"deferred_removals"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	NumCells     int `json:"num_cells"`
	NumNets      int `json:"num_nets"`
	UnroutedNets int `json:"unrouted_nets"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}
