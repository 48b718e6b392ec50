package api

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"fpgaroute/pkg/eco"
	"fpgaroute/pkg/scheduler"

	"github.com/sirupsen/logrus"
)

// Scheduler is the external collaborator that runs a full routing pass
// (§2): Handlers never builds a RoutingGraph or Preservation itself.
type Scheduler interface {
	Run() (scheduler.Result, error)
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	design    *eco.Design
	siteModel eco.SiteModel
	sched     Scheduler
	log       *logrus.Logger
}

// NewHandlers creates handlers bound to a design, its scheduler, and an
// optional site model (nil is legal: connect/disconnect then stay
// logical-only, as the teacher's NewHandlers takes the router straight).
func NewHandlers(design *eco.Design, sched Scheduler, siteModel eco.SiteModel, log *logrus.Logger) *Handlers {
	if log == nil {
		log = logrus.New()
	}
	return &Handlers{design: design, sched: sched, siteModel: siteModel, log: log}
}

// HandleRoute handles POST /api/v1/route: runs the scheduler over the
// currently loaded design.
func (h *Handlers) HandleRoute(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}

	res, err := h.sched.Run()
	if err != nil {
		h.log.WithError(err).Error("scheduler run failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	resp := RouteResponse{
		Converged:       res.RouteReport.Converged,
		Iterations:      res.RouteReport.Iterations,
		UnroutedConns:   res.RouteReport.UnroutedConns,
		MultiDriverNets: res.RouteReport.MultiDriverNets,
		OverusedAtEnd:   res.RouteReport.OverusedAtEnd,
		LegalizedNets:   len(res.Legalized),
	}
	for _, t := range res.Timings {
		resp.PhaseMillis = append(resp.PhaseMillis, int(t.Duration.Milliseconds()))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// HandleDisconnect handles POST /api/v1/eco/disconnect (§4.6).
func (h *Handlers) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req DisconnectRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}

	pins := make([]eco.PinRef, 0, len(req.Pins))
	for _, p := range req.Pins {
		pin, err := parsePinRef(p)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_pin", p)
			return
		}
		pins = append(pins, pin)
	}

	before := make(map[string]int)
	for net, set := range h.design.DeferredRemovals {
		before[net] = len(set)
	}

	if err := h.design.Disconnect(pins); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "eco_refused", err.Error())
		return
	}

	writeECOResponse(w, h.design, before)
}

// HandleConnect handles POST /api/v1/eco/connect (§4.7).
func (h *Handlers) HandleConnect(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req ConnectRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}

	assignments := make(map[string][]eco.PinRef, len(req.Nets))
	for net, pinStrs := range req.Nets {
		pins := make([]eco.PinRef, 0, len(pinStrs))
		for _, p := range pinStrs {
			pin, err := parsePinRef(p)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_pin", p)
				return
			}
			pins = append(pins, pin)
		}
		assignments[net] = pins
	}

	before := make(map[string]int)
	for net, set := range h.design.DeferredRemovals {
		before[net] = len(set)
	}

	if err := h.design.Connect(h.siteModel, assignments); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "eco_refused", err.Error())
		return
	}

	writeECOResponse(w, h.design, before)
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(StatsResponse{
		NumCells:     len(h.design.Cells),
		NumNets:      len(h.design.Nets),
		UnroutedNets: len(h.design.UnroutedNets()),
	})
}

func writeECOResponse(w http.ResponseWriter, d *eco.Design, before map[string]int) {
	deltas := make(map[string]int)
	for net, set := range d.DeferredRemovals {
		deltas[net] = len(set) - before[net]
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ECOResponse{Status: "ok", DeferredRemovals: deltas})
}

// parsePinRef splits "cell/.../port" on its last "/", since a
// hierarchical cell path may itself contain slashes.
func parsePinRef(s string) (eco.PinRef, error) {
	idx := strings.LastIndex(s, "/")
	if idx < 0 {
		return eco.PinRef{Port: s}, nil
	}
	if idx == len(s)-1 {
		return eco.PinRef{}, fmt.Errorf("api: malformed pin reference %q", s)
	}
	return eco.PinRef{Cell: s[:idx], Port: s[idx+1:]}, nil
}

func requireJSON(w http.ResponseWriter, r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return false
	}
	return true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: code, Field: field})
}
