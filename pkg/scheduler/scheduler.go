// Package scheduler orders the phases a full routing pass runs in:
// clock nets, then static (GND/VCC) nets, then ordinary signal nets
// through RouterLoop, then RouteLegalizer, then PIP-list assembly for
// emission (§2 SYSTEM OVERVIEW, SPEC_FULL §13). It is grounded on the
// teacher's cmd/preprocess/main.go linear Step1..Step5 pipeline, timed
// with the same time.Since pattern and logged through logrus instead of
// the standard log package.
package scheduler

import (
	"fmt"
	"time"

	"fpgaroute/pkg/clknet"
	"fpgaroute/pkg/device"
	"fpgaroute/pkg/legalizer"
	"fpgaroute/pkg/netwrapper"
	"fpgaroute/pkg/rgraph"
	"fpgaroute/pkg/router"
	"fpgaroute/pkg/staticnet"

	"github.com/sirupsen/logrus"
)

// Collaborators bundles every phase's external dependency, mirroring
// the injected-collaborator shape used throughout the rest of the
// module (§6).
type Collaborators struct {
	ClockRouter  clknet.Router
	StaticRouter staticnet.Router
	Router       *router.Router
	Device       *device.Graph
	RoutingGraph *rgraph.RoutingGraph
	Preserv      *rgraph.Preservation
	Long         func(rgraph.RNodeID) bool

	// SymmetricClkRouting requests balanced-skew clock trees from
	// ClockRouter (§6 symmetric_clk_routing).
	SymmetricClkRouting bool
}

// ClockJob and StaticJob describe one net to route in the clock or
// static phase.
type ClockJob struct {
	Net rgraph.NetID
}

type StaticJob struct {
	Net  rgraph.NetID
	Pins []staticnet.SitePin
}

// PhaseTiming records how long each scheduler phase took, RapidWright's
// TimerTree equivalent (SPEC_FULL §13).
type PhaseTiming struct {
	Phase    string
	Duration time.Duration
}

// Result summarizes a full scheduler run.
type Result struct {
	Timings     []PhaseTiming
	RouteReport router.Report
	Legalized   []rgraph.NetID
	PIPs        map[rgraph.NetID][]device.PIP
}

// Run executes the full phase ordering over the given signal nets, plus
// whatever clock/static jobs are supplied (§2, §4.4, §4.5).
func Run(c Collaborators, log *logrus.Logger, clocks []ClockJob, statics []StaticJob, signalNets []*netwrapper.NetWrapper) (Result, error) {
	if log == nil {
		log = logrus.New()
	}
	var res Result

	if err := timedPhase(&res, log, "clocks", func() error {
		return routeClocks(c, clocks)
	}); err != nil {
		return res, err
	}

	unavailable := map[device.NodeID]bool{}
	if err := timedPhase(&res, log, "static", func() error {
		return routeStatics(c, statics, unavailable)
	}); err != nil {
		return res, err
	}

	timedPhase(&res, log, "signal_nets", func() error {
		if c.Router != nil {
			res.RouteReport = c.Router.Route(signalNets)
		}
		return nil
	})

	timedPhase(&res, log, "legalize", func() error {
		res.Legalized = legalizeAll(c, signalNets)
		res.RouteReport.MultiDriverNets = len(res.Legalized)
		if c.Router != nil {
			for _, net := range signalNets {
				c.Router.PatchUpDelay(net.Connections)
			}
		}
		return nil
	})

	timedPhase(&res, log, "assemble_pips", func() error {
		res.PIPs = assembleAll(c, signalNets)
		return nil
	})

	log.WithFields(map[string]interface{}{
		"converged":      res.RouteReport.Converged,
		"unrouted_conns": res.RouteReport.UnroutedConns,
		"legalized_nets": len(res.Legalized),
	}).Info("scheduler run complete")
	return res, nil
}

func timedPhase(res *Result, log *logrus.Logger, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	res.Timings = append(res.Timings, PhaseTiming{Phase: name, Duration: elapsed})
	log.WithFields(map[string]interface{}{"phase": name, "duration": elapsed}).Debug("phase complete")
	return err
}

func routeClocks(c Collaborators, clocks []ClockJob) error {
	if c.ClockRouter == nil {
		return nil
	}
	for _, job := range clocks {
		if err := c.ClockRouter.RouteClock(job.Net, c.Device, c.Preserv, c.SymmetricClkRouting); err != nil {
			return fmt.Errorf("scheduler: clock net %d: %w", job.Net, err)
		}
	}
	return nil
}

func routeStatics(c Collaborators, statics []StaticJob, unavailable map[device.NodeID]bool) error {
	if c.StaticRouter == nil {
		return nil
	}
	for _, job := range statics {
		used, err := c.StaticRouter.RouteStatic(job.Net, job.Pins, unavailable, c.Device)
		if err != nil {
			return fmt.Errorf("scheduler: static net %d: %w", job.Net, err)
		}
		for _, nodes := range used {
			for _, n := range nodes {
				unavailable[n] = true
				if c.Preserv != nil {
					c.Preserv.Preserve(n, job.Net)
				}
			}
		}
	}
	return nil
}

func legalizeAll(c Collaborators, nets []*netwrapper.NetWrapper) []rgraph.NetID {
	var legalized []rgraph.NetID
	for _, net := range nets {
		if len(net.Connections) == 0 {
			continue
		}
		if !legalizer.HasMultiDriver(net) {
			continue
		}
		legalizer.Legalize(net, c.RoutingGraph, c.Long)
		legalized = append(legalized, net.ID)
	}
	return legalized
}

// AssemblePIPs converts a single net's routed connections into the PIP
// list consumed at emission time (SPEC_FULL §13): each adjacent rnode
// pair on every connection's route becomes the device PIP between them,
// once per net. Pairs with no device PIP are skipped.
func AssemblePIPs(dev *device.Graph, rg *rgraph.RoutingGraph, net *netwrapper.NetWrapper) []device.PIP {
	seen := make(map[device.PIP]bool)
	var pips []device.PIP
	for _, conn := range net.Connections {
		for i := 0; i+1 < len(conn.Route); i++ {
			a := rg.ByID(conn.Route[i]).Node
			b := rg.ByID(conn.Route[i+1]).Node
			pip, ok := dev.PIPBetween(a, b)
			if !ok || seen[pip] {
				continue
			}
			seen[pip] = true
			pips = append(pips, pip)
		}
	}
	return pips
}

func assembleAll(c Collaborators, nets []*netwrapper.NetWrapper) map[rgraph.NetID][]device.PIP {
	out := make(map[rgraph.NetID][]device.PIP, len(nets))
	for _, net := range nets {
		out[net.ID] = AssemblePIPs(c.Device, c.RoutingGraph, net)
	}
	return out
}
