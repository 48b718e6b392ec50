package scheduler

import (
	"sort"

	"fpgaroute/pkg/device"
	"fpgaroute/pkg/eco"
	"fpgaroute/pkg/netwrapper"
	"fpgaroute/pkg/rgraph"
)

// PinLocator resolves a design pin to the rnode it has been placed onto,
// and reports whether two already-resolved rnodes live in different
// super-logic regions. Pin placement comes from the same external device
// database that supplies the RoutingGraph and device.Graph (§9 "avoid
// static singletons; pass the router context explicitly"); MaterializeNets
// never interprets a pin name itself, the same way SiteModel keeps
// intra-site routing data out of pkg/eco.
type PinLocator interface {
	// RNodeFor returns the rnode pin currently resolves to, or false if
	// the pin has no placement yet.
	RNodeFor(pin eco.PinRef) (rgraph.RNodeID, bool)
	// TileXY returns the INT-tile coordinates of an already-resolved
	// rnode, satisfying netwrapper.NodeLocator.
	TileXY(id rgraph.RNodeID) (x, y int32)
	// CrossesSLR reports whether source and sink live in different
	// super-logic regions (§4.3 expansion rules: the one case where
	// PathSearch may expand through an intermediate PINFEED_I).
	CrossesSLR(source, sink rgraph.RNodeID) bool
}

// MaterializeNets turns every routable signal net in design (a source pin
// plus at least one sink pin, both resolvable by locator) into a
// netwrapper.NetWrapper with its connections' rnodes, Direct/CrossesSLR
// classification, and bounding box seeded ("Scheduler glue", §4.4): the
// step RouterLoop, PathSearch, CostModel, and Legalizer all depend on to
// see real design state rather than hand-built fixtures. Nets or pins
// locator cannot resolve are skipped, not fatal, since ECO may reference
// pins the device database hasn't placed yet; skipped counts how many
// pin resolutions failed, for the caller to log.
func MaterializeNets(design *eco.Design, locator PinLocator) (nets []*netwrapper.NetWrapper, skipped int) {
	if design == nil || locator == nil {
		return nil, 0
	}

	names := make([]string, 0, len(design.Nets))
	for name := range design.Nets {
		names = append(names, name)
	}
	sort.Strings(names)

	var nextID rgraph.NetID
	for _, name := range names {
		n := design.Nets[name]
		if n.Type != eco.SignalNet || n.Source == nil || len(n.Sinks) == 0 {
			continue
		}
		srcNode, ok := locator.RNodeFor(*n.Source)
		if !ok {
			skipped++
			continue
		}

		sinkKeys := make([]string, 0, len(n.Sinks))
		for key := range n.Sinks {
			sinkKeys = append(sinkKeys, key)
		}
		sort.Strings(sinkKeys)

		nw := netwrapper.New(nextID, n.Name)
		var connID uint32
		for _, key := range sinkKeys {
			sink := n.Sinks[key]
			sinkNode, ok := locator.RNodeFor(sink)
			if !ok {
				skipped++
				continue
			}
			connID++
			c := &netwrapper.Connection{
				ID:          connID,
				SourcePin:   n.Source.String(),
				SinkPin:     sink.String(),
				SourceRNode: srcNode,
				SinkRNode:   sinkNode,
				CrossesSLR:  locator.CrossesSLR(srcNode, sinkNode),
			}
			nw.AddConnection(c, locator.TileXY)
		}
		if len(nw.Connections) == 0 {
			continue
		}
		nextID++
		nets = append(nets, nw)
	}
	return nets, skipped
}

// MapPinLocator is a PinLocator backed by a static pin-placement table, the
// shape an external device-database loader populates once it has parsed a
// real checkpoint (cf. device.Graph's own doc comment: "Device-database
// construction... is an external collaborator; this package only defines
// the graph surface the core walks"). An empty Placement table is legal:
// every pin is then unresolved and MaterializeNets quietly skips every net,
// the same "feature unavailable until wired to a real device" state
// eco.SiteModel being nil already leaves ECO's site-pin synthesis in.
type MapPinLocator struct {
	RG  *rgraph.RoutingGraph
	Dev *device.Graph

	// Placement maps a pin's eco.PinRef.String() to the rnode the device
	// database placed it onto.
	Placement map[string]rgraph.RNodeID

	// SLRRows is the device's tile-row span per super-logic region; 0
	// disables CrossesSLR classification (single-SLR or unknown device).
	SLRRows int32
}

func (m *MapPinLocator) RNodeFor(pin eco.PinRef) (rgraph.RNodeID, bool) {
	id, ok := m.Placement[pin.String()]
	return id, ok
}

func (m *MapPinLocator) TileXY(id rgraph.RNodeID) (x, y int32) {
	return m.Dev.TileXY(m.RG.ByID(id).Node)
}

func (m *MapPinLocator) CrossesSLR(source, sink rgraph.RNodeID) bool {
	if m.SLRRows <= 0 {
		return false
	}
	_, sy := m.TileXY(source)
	_, ty := m.TileXY(sink)
	return sy/m.SLRRows != ty/m.SLRRows
}
