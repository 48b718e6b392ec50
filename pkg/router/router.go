// Package router implements RouterLoop (§4.4): the iterative rip-up/
// reroute main loop over every net's connections, cost-factor updates,
// bounding-box enlargement, output-pin swapping, and soft-preserve
// unrouting, grounded on the teacher's pkg/ch/contractor.go iterative
// priority-queue loop (lazy recompute each pass) and the staged
// Engine.Route pipeline in pkg/routing/engine.go.
package router

import (
	"math"
	"sort"

	"fpgaroute/pkg/costmodel"
	"fpgaroute/pkg/netwrapper"
	"fpgaroute/pkg/pathsearch"
	"fpgaroute/pkg/rgraph"
	"fpgaroute/pkg/routeconfig"
	"fpgaroute/pkg/timing"

	"github.com/sirupsen/logrus"
)

// Collaborators are the external hooks RouterLoop needs but does not own
// (§6): deciding a net's alternate output pin, and telling clock/static
// nets apart from ordinary signal nets so they're excluded from
// soft-preserve rip-up.
type Collaborators struct {
	// SwapOutputPin replaces net's source pin with a legal alternative and
	// updates every connection of the net; returns false if no
	// alternative exists.
	SwapOutputPin func(net *netwrapper.NetWrapper) bool

	// IsClockOrStatic reports whether net is a clock or static net,
	// excluded from soft-preserve candidacy (§4.4).
	IsClockOrStatic func(rgraph.NetID) bool

	// Timing recomputes criticality and patches up delay when
	// cfg.TimingDriven is set (§4.4 "if timing_driven:
	// compute_min_reroute_criticality()/update_timing()", §6
	// patch_up_delay). Defaults to timing.NullAnalyzer when nil.
	Timing timing.Analyzer
}

// Report summarizes a Route() run (§7: "converged", "unroutables
// remaining", "conflicts remaining").
type Report struct {
	Iterations        int
	Converged         bool
	UnroutedConns     int
	MultiDriverNets   int
	OverusedAtEnd     int
	NewlyRoutedTotal  int
}

// Router runs the rip-up/reroute loop over a fixed RoutingGraph and
// Preservation, for a set of NetWrappers supplied to Route.
type Router struct {
	rg      *rgraph.RoutingGraph
	preserv *rgraph.Preservation
	cm      *costmodel.Model
	search  *pathsearch.Searcher
	cfg     routeconfig.Config
	collab  Collaborators
	log     *logrus.Logger

	presentFactor float64
	lastUsed      map[rgraph.NetID]map[rgraph.RNodeID]struct{}
}

// New creates a Router over rg/preserv, using cm for cost relaxation and
// cfg for loop parameters.
func New(rg *rgraph.RoutingGraph, preserv *rgraph.Preservation, cm *costmodel.Model, cfg routeconfig.Config, collab Collaborators, log *logrus.Logger) *Router {
	if log == nil {
		log = logrus.StandardLogger()
	}
	cm.ApplyConfig(cfg)
	search := pathsearch.New(rg, cm)
	search.UseBoundingBox = cfg.UseBoundingBox
	search.MaskCrossRCLK = cfg.MaskCrossRCLK
	search.UseUTurnNodes = cfg.UseUTurnNodes
	if collab.Timing == nil {
		collab.Timing = timing.NullAnalyzer{}
	}
	return &Router{
		rg:       rg,
		preserv:  preserv,
		cm:       cm,
		search:   search,
		cfg:      cfg,
		collab:   collab,
		log:      log,
		lastUsed: make(map[rgraph.NetID]map[rgraph.RNodeID]struct{}),
	}
}

// Route runs the main loop (§4.4 pseudocode) over nets until convergence
// or max_iterations is exhausted.
func (r *Router) Route(nets []*netwrapper.NetWrapper) Report {
	var report Report

	netByID := make(map[rgraph.NetID]*netwrapper.NetWrapper, len(nets))
	for _, n := range nets {
		netByID[n.ID] = n
	}
	active := append([]*netwrapper.NetWrapper(nil), nets...)
	inActive := make(map[rgraph.NetID]bool, len(active))
	for _, n := range active {
		inActive[n.ID] = true
	}

	for iter := 1; iter <= r.cfg.MaxIterations; iter++ {
		report.Iterations = iter
		newlyRouted := 0

		conns := r.sortedConnections(active)

		minCriticality := r.cfg.MinRerouteCriticality
		if r.cfg.TimingDriven {
			minCriticality = r.collab.Timing.MinRerouteCriticality()
		}
		criticalAllowed := r.criticalReroutesAllowed(conns, minCriticality)

		for _, c := range conns {
			if c.Direct {
				continue // intra-site; PathSearch is never invoked (§8 boundary behavior)
			}
			if !r.shouldRoute(c, iter, criticalAllowed) {
				continue
			}
			wasRouted := c.Routed
			if r.routeConnection(c.Net, c, iter) && !wasRouted {
				newlyRouted++
			}
		}
		report.NewlyRoutedTotal += newlyRouted

		for _, n := range active {
			r.reconcileUsage(n)
		}

		if r.cfg.TimingDriven {
			r.collab.Timing.UpdateTiming(conns)
		}

		r.updateCostFactors(iter)

		overused := r.collectOverused()
		unrouted := r.countUnrouted(active)
		report.OverusedAtEnd = overused
		report.UnroutedConns = unrouted

		r.log.WithFields(logrus.Fields{
			"iteration":      iter,
			"overused":       overused,
			"unrouted":       unrouted,
			"newly_routed":   newlyRouted,
			"present_factor": r.presentFactor,
		}).Info("routing iteration complete")

		if overused == 0 && unrouted == 0 {
			report.Converged = true
			break
		}

		freed := r.handleUnroutable(active, iter)
		for _, id := range freed {
			freedNet, ok := netByID[id]
			if !ok {
				continue // not part of this Route() call's working set; nothing to reinitialize
			}
			for _, c := range freedNet.Connections {
				if !c.Direct {
					c.Routed = false
				}
			}
			if !inActive[id] {
				inActive[id] = true
				active = append(active, freedNet)
			}
		}
	}

	return report
}

// shouldRoute implements §4.4 should_route.
func (r *Router) shouldRoute(c *netwrapper.Connection, iter int, criticalAllowed map[*netwrapper.Connection]bool) bool {
	if iter == 1 {
		return true
	}
	if criticalAllowed[c] {
		return true
	}
	if c.IsCongested(r.rg) {
		if r.cfg.EnlargeBBoxH != 0 || r.cfg.EnlargeBBoxV != 0 {
			c.EnlargeBBox(r.cfg.EnlargeBBoxH, r.cfg.EnlargeBBoxV)
		}
		return true
	}
	return !c.Routed
}

// criticalReroutesAllowed selects the connections above minCriticality
// that may force a reroute this iteration, ranked by criticality and
// capped to reroute_percentage of the critical set (§6 reroute_percentage
// "max fraction of critical connections to rip up"). A percentage of 0 or
// >= 1 imposes no cap.
func (r *Router) criticalReroutesAllowed(conns []*netwrapper.Connection, minCriticality float64) map[*netwrapper.Connection]bool {
	var critical []*netwrapper.Connection
	for _, c := range conns {
		if c.Criticality > minCriticality {
			critical = append(critical, c)
		}
	}
	if len(critical) == 0 {
		return nil
	}
	sort.SliceStable(critical, func(i, j int) bool {
		return critical[i].Criticality > critical[j].Criticality
	})

	limit := len(critical)
	if r.cfg.ReroutePercentage > 0 && r.cfg.ReroutePercentage < 1 {
		limit = int(math.Ceil(r.cfg.ReroutePercentage * float64(len(critical))))
		if limit < 1 {
			limit = 1
		}
	}

	allowed := make(map[*netwrapper.Connection]bool, limit)
	for i := 0; i < limit; i++ {
		allowed[critical[i]] = true
	}
	return allowed
}

// PatchUpDelay refreshes delay along every connection in conns after route
// legalization, when timing_driven is enabled (§6 "patch_up_delay(
// connections) after route legalization"); a no-op otherwise.
func (r *Router) PatchUpDelay(conns []*netwrapper.Connection) {
	if !r.cfg.TimingDriven {
		return
	}
	r.collab.Timing.PatchUpDelay(conns)
}

func (r *Router) routeConnection(net *netwrapper.NetWrapper, c *netwrapper.Connection, iter int) bool {
	ok := r.search.Search(net, c, net.ID, c.Criticality, r.presentFactor)
	c.Routed = ok
	return ok
}

// updateCostFactors implements §4.4 update_cost_factors.
func (r *Router) updateCostFactors(iter int) {
	if iter == 1 {
		r.presentFactor = r.cfg.InitialPresentFactor
	} else {
		r.presentFactor *= r.cfg.PresentMultiplier
	}
	costmodel.UpdateCostFactors(r.rg.All(), r.presentFactor, r.cfg.HistoricalFactor)
}

func (r *Router) collectOverused() int {
	n := 0
	for _, rn := range r.rg.All() {
		if rn.Overuse() > 0 {
			n++
		}
	}
	return n
}

func (r *Router) countUnrouted(nets []*netwrapper.NetWrapper) int {
	n := 0
	for _, net := range nets {
		for _, c := range net.Connections {
			if !c.Direct && !c.Routed {
				n++
			}
		}
	}
	return n
}

// handleUnroutable implements the §4.4 unroutable-connection handling:
// iter 1 tries swap_output_pin; iter 1 (soft-preserve only) or iter 2
// tries unroute_reserved_nets. Returns the distinct net IDs whose
// reservation was released this call, so Route can reintroduce them as
// routable nets (§4.4 "re-initialize them as routable nets").
func (r *Router) handleUnroutable(nets []*netwrapper.NetWrapper, iter int) []rgraph.NetID {
	freedSeen := make(map[rgraph.NetID]bool)
	var freed []rgraph.NetID

	for _, net := range nets {
		unroutedAny := false
		for _, c := range net.Connections {
			if !c.Direct && !c.Routed {
				unroutedAny = true
				break
			}
		}
		if !unroutedAny {
			continue
		}

		if iter == 1 && r.collab.SwapOutputPin != nil {
			if r.collab.SwapOutputPin(net) {
				r.log.WithField("net", net.Name).Info("swapped output pin to recover unroutable net")
			}
		}

		if (r.cfg.SoftPreserve && iter == 1) || iter == 2 {
			for _, c := range net.Connections {
				if c.Direct || c.Routed {
					continue
				}
				released := r.unrouteReservedNets(c, net.ID)
				for _, n := range released {
					r.log.WithFields(logrus.Fields{"net": net.ID, "released": n}).Info("soft-preserve rip-up released a reserved net")
					if !freedSeen[n] {
						freedSeen[n] = true
						freed = append(freed, n)
					}
				}
			}
		}
	}
	return freed
}

// unrouteReservedNets finds every preserved net with a node inside the
// connection's current bounding box (excluding clock and static nets),
// and releases every node each owns (§4.4). The query runs against
// Preservation's rtree index rather than a plain uphill/downhill node
// scan, so it stays a bounded local lookup no matter how large the
// preserved set grows.
func (r *Router) unrouteReservedNets(c *netwrapper.Connection, routingNet rgraph.NetID) []rgraph.NetID {
	minX, minY := int32(c.BBox.Min[0]), int32(c.BBox.Min[1])
	maxX, maxY := int32(c.BBox.Max[0]), int32(c.BBox.Max[1])

	touching := r.preserv.NetsTouching(minX, minY, maxX, maxY, map[rgraph.NetID]bool{routingNet: true})

	var released []rgraph.NetID
	for _, owner := range touching {
		if r.collab.IsClockOrStatic != nil && r.collab.IsClockOrStatic(owner) {
			continue
		}
		r.preserv.ReleaseNet(owner)
		released = append(released, owner)
	}
	return released
}

// reconcileUsage recomputes net's rnode occupancy from the union of its
// connections' current routes, since a connection's route can change
// mid-loop without every sibling connection of the same net being
// re-routed in the same iteration.
func (r *Router) reconcileUsage(net *netwrapper.NetWrapper) {
	current := make(map[rgraph.RNodeID]rgraph.RNodeID) // node -> parent (first seen)
	for _, c := range net.Connections {
		for i, id := range c.Route {
			if _, ok := current[id]; !ok {
				parent := rgraph.NoRNode
				if i > 0 {
					parent = c.Route[i-1]
				}
				current[id] = parent
			}
		}
	}

	prev := r.lastUsed[net.ID]
	for id := range prev {
		if _, ok := current[id]; !ok {
			r.rg.ByID(id).RemoveUser(net.ID)
		}
	}

	next := make(map[rgraph.RNodeID]struct{}, len(current))
	for id, parent := range current {
		r.rg.ByID(id).AddUser(net.ID, parent)
		next[id] = struct{}{}
	}
	r.lastUsed[net.ID] = next
}

// sortedConnections orders every connection (direct ones included) by descending
// fan-out (its net's connection count) then ascending HPWL (§4.4,
// §5 "deterministic, stable order").
func (r *Router) sortedConnections(nets []*netwrapper.NetWrapper) []*netwrapper.Connection {
	var conns []*netwrapper.Connection
	for _, net := range nets {
		conns = append(conns, net.Connections...)
	}
	sort.SliceStable(conns, func(i, j int) bool {
		fi, fj := conns[i].Net.ConnCount(), conns[j].Net.ConnCount()
		if fi != fj {
			return fi > fj
		}
		return conns[i].HPWL < conns[j].HPWL
	})
	return conns
}
