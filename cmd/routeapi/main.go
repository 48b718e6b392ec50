// Command routeapi serves the router/ECO core over HTTP, the
// service-mode counterpart to routerctl, grounded on the teacher's
// cmd/server/main.go (graph load, engine construction, api.NewServer,
// api.ListenAndServe).
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"fpgaroute/pkg/api"
	"fpgaroute/pkg/costmodel"
	"fpgaroute/pkg/device"
	"fpgaroute/pkg/eco"
	"fpgaroute/pkg/rgraph"
	"fpgaroute/pkg/router"
	"fpgaroute/pkg/routeconfig"
	"fpgaroute/pkg/scheduler"

	"github.com/sirupsen/logrus"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	corsOrigin := flag.String("cors-origin", "", "CORS allowed origin (empty = same-origin)")
	logLevel := flag.String("log-level", "info", "log level: trace, debug, info, warn, error")
	groundNet := flag.String("ground-net", "GND", "name of the design's static ground net")
	powerNet := flag.String("power-net", "VCC", "name of the design's static power net")
	flag.Parse()

	log := logrus.New()
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --log-level %q: %v\n", *logLevel, err)
		os.Exit(1)
	}
	log.SetLevel(level)

	start := time.Now()

	design := eco.NewDesign(*groundNet, *powerNet, log)

	cfg := routeconfig.Default()
	if cfg.WarnIfCellInstPrefix != "" {
		design.AllowPrefixes = strings.Split(cfg.WarnIfCellInstPrefix, ",")
	}

	dev := device.New(0, nil, nil, nil, nil, nil, nil)
	preserv := rgraph.NewPreservation(dev)
	rg := rgraph.NewRoutingGraph(dev, preserv, nil)
	cm := costmodel.New(dev, nil)

	collab := router.Collaborators{}
	r := router.New(rg, preserv, cm, cfg, collab, log)

	locator := &scheduler.MapPinLocator{
		RG:        rg,
		Dev:       dev,
		Placement: make(map[string]rgraph.RNodeID),
	}

	schedulerAdapter := &schedulerRunner{
		design:  design,
		locator: locator,
		collab: scheduler.Collaborators{
			Router:              r,
			Device:              dev,
			RoutingGraph:        rg,
			Preserv:             preserv,
			SymmetricClkRouting: cfg.SymmetricClkRouting,
		},
		log: log,
	}

	log.WithField("startup", time.Since(start)).Info("design and routing graph ready")

	handlers := api.NewHandlers(design, schedulerAdapter, nil, log)
	srvCfg := api.DefaultConfig(*addr)
	srvCfg.CORSOrigin = *corsOrigin

	srv := api.NewServer(srvCfg, handlers, log)
	if err := api.ListenAndServe(srv, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

// schedulerRunner adapts scheduler.Run to the api.Scheduler interface. Each
// call re-materializes signal nets from whatever ECO edits the design
// currently carries (§4.4 "Scheduler glue"), so a route triggered after a
// connect/disconnect sees the design's current state, not the one loaded
// at startup.
type schedulerRunner struct {
	design  *eco.Design
	locator scheduler.PinLocator
	collab  scheduler.Collaborators
	log     *logrus.Logger
}

func (s *schedulerRunner) Run() (scheduler.Result, error) {
	signalNets, skipped := scheduler.MaterializeNets(s.design, s.locator)
	if skipped > 0 {
		s.log.WithField("skipped_pins", skipped).Warn("some net pins could not be resolved to a placed rnode")
	}
	return scheduler.Run(s.collab, s.log, nil, nil, signalNets)
}
