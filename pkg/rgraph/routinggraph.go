package rgraph

import (
	"fpgaroute/pkg/device"
)

// DelayModel is the external collaborator (§6) that assigns a node's delay
// once, at rnode creation.
type DelayModel interface {
	DelayOf(node device.NodeID) int16
	IsLong(node device.NodeID) bool
}

// ClassifyNode decides the RoutableType of a device node from its intent
// code — PINFEED nodes become sinks/sources depending on direction, a
// PINBOUNCE intent becomes PinBounce, everything else is Wire.
func ClassifyNode(g *device.Graph, node device.NodeID, isSink, isSource bool) RoutableType {
	switch {
	case isSink:
		return PinFeedI
	case isSource:
		return PinFeedO
	case g.IntentOf(node) == device.IntentPinBounce:
		return PinBounce
	default:
		return Wire
	}
}

// RoutingGraph is a lazy, cached projection of the device graph into
// routable nodes (§4.1). Children are generated from the device's downhill
// adjacency, filtered by route-through rules and node-type rules once and
// memoised; the preservation filter, which changes across iterations and
// across which net is currently being routed, is re-applied on every call.
type RoutingGraph struct {
	dev     *device.Graph
	preserv *Preservation
	delay   DelayModel

	pool   map[device.NodeID]*RNode
	byID   []*RNode
	nextID RNodeID
}

// NewRoutingGraph creates a RoutingGraph over dev, sharing preserv for
// reservation lookups and delay for node delay assignment.
func NewRoutingGraph(dev *device.Graph, preserv *Preservation, delay DelayModel) *RoutingGraph {
	return &RoutingGraph{
		dev:     dev,
		preserv: preserv,
		delay:   delay,
		pool:    make(map[device.NodeID]*RNode),
	}
}

// Intern returns the RNode for node, creating and caching it on first
// reference (§3 invariant: for every Node there exists at most one RNode).
// The returned id is the monotonically growing global rnode id assigned at
// first creation, so callers can track memory pressure (§4.1).
func (rg *RoutingGraph) Intern(node device.NodeID, typ RoutableType) *RNode {
	if r, ok := rg.pool[node]; ok {
		return r
	}
	id := rg.nextID
	rg.nextID++
	var d int16
	if rg.delay != nil {
		d = rg.delay.DelayOf(node)
	}
	r := newRNode(id, node, typ, d)
	rg.pool[node] = r
	rg.byID = append(rg.byID, r)
	return r
}

// Device returns the underlying device graph, for callers (PathSearch's
// PINBOUNCE gate and bounding-box gate, §4.3) that need tile coordinates
// beyond what an RNode carries.
func (rg *RoutingGraph) Device() *device.Graph { return rg.dev }

// Lookup returns the already-interned RNode for node, if any.
func (rg *RoutingGraph) Lookup(node device.NodeID) (*RNode, bool) {
	r, ok := rg.pool[node]
	return r, ok
}

// ByID returns the RNode for a previously-assigned RNodeID.
func (rg *RoutingGraph) ByID(id RNodeID) *RNode {
	return rg.byID[id]
}

// NumInterned returns the number of distinct rnodes created so far — the
// memory-pressure signal called out in §4.1.
func (rg *RoutingGraph) NumInterned() int {
	return len(rg.byID)
}

// All returns every interned rnode, in creation order. Used by RouterLoop
// for the full-graph walk in update_cost_factors (§4.4).
func (rg *RoutingGraph) All() []*RNode {
	return rg.byID
}

// Children returns the routable children of r for the net currently being
// routed (routingNet), applying the route-through, node-type, and
// preservation filters in §4.1.
func (rg *RoutingGraph) Children(r *RNode, routingNet NetID) []*RNode {
	raw := rg.rawChildren(r)
	out := raw[:0:0]
	for _, c := range raw {
		if rg.preserv != nil && rg.preserv.IsPreservedByOther(c.Node, routingNet) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// rawChildren computes (once) and memoises the device-downhill expansion
// of r filtered by route-through and node-type rules — the part of §4.1
// that is independent of which net is currently being routed.
func (rg *RoutingGraph) rawChildren(r *RNode) []*RNode {
	if r.childrenDone {
		out := make([]*RNode, len(r.children))
		for i, id := range r.children {
			out[i] = rg.byID[id]
		}
		return out
	}

	var out []*RNode
	for _, childNode := range rg.dev.DownhillNodes(r.Node) {
		if rg.dev.IsRouteThrough(r.Node, childNode) {
			continue
		}
		isSink := rg.dev.IntentOf(childNode) == device.IntentPinFeed && len(rg.dev.DownhillNodes(childNode)) == 0
		typ := ClassifyNode(rg.dev, childNode, isSink, false)
		// Node-type filter: a PINFEED_O (a source pin) is never a routing
		// destination for a downhill expansion step; route search reaches
		// sources only as the connection's starting point.
		if typ == PinFeedO {
			continue
		}
		child := rg.Intern(childNode, typ)
		out = append(out, child)
	}

	r.children = make([]RNodeID, len(out))
	for i, c := range out {
		r.children[i] = c.ID
	}
	r.childrenDone = true
	return out
}

// Reset clears the interned pool and preservation-independent caches. Per
// §9 "Global mutable state", the rnode pool's lifecycle is scoped to the
// router object: created at route() entry, torn down at route() exit.
func (rg *RoutingGraph) Reset() {
	rg.pool = make(map[device.NodeID]*RNode)
	rg.byID = nil
	rg.nextID = 0
}
