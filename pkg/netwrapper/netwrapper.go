// Package netwrapper implements the NetWrapper/Connection component (§3,
// §4.4 bbox enlargement): per-net routing state (sink connections,
// geometric centre, bounding box) and per-connection routing state (source/
// sink rnodes, current route, criticality, HPWL).
package netwrapper

import (
	"fpgaroute/pkg/rgraph"

	"github.com/paulmach/orb"
)

// NodeLocator resolves an rnode's INT-tile coordinates. RouterLoop supplies
// one backed by its RoutingGraph and device.Graph; NetWrapper never imports
// pkg/device, keeping it free of global state (§9 "avoid static
// singletons; pass the router context explicitly").
type NodeLocator func(rgraph.RNodeID) (x, y int32)

// MaxCriticality is the ceiling applied to every connection's criticality
// (§3 Connection).
const MaxCriticality = 0.99

// TimingEdge is an opaque handle into the external static-timing graph
// (§6); the core never interprets its contents, only threads it through to
// the timing adapter.
type TimingEdge struct {
	ID uint64
}

// Connection is one (net, sink) routing target (§3).
type Connection struct {
	ID uint32

	SourcePin string
	SinkPin   string

	Net *NetWrapper

	SourceRNode rgraph.RNodeID
	SinkRNode   rgraph.RNodeID

	// Route is a simple path from SourceRNode to SinkRNode, populated by
	// PathSearch on success.
	Route []rgraph.RNodeID

	HPWL        float64
	BBox        orb.Bound
	Criticality float64

	// Direct connections have source and sink in the same tile/site;
	// RouterLoop must resolve them via intra-site routing and never invoke
	// PathSearch for them (§8 boundary behavior). Set by Recompute from the
	// source/sink rnodes' resolved tile coordinates; the device model has no
	// separate site concept finer than a tile.
	Direct bool

	// CrossesSLR marks a connection whose source and sink live in
	// different super-logic regions, the one case where PathSearch may
	// expand through an intermediate PINFEED_I (§4.3 expansion rules).
	CrossesSLR bool

	TimingEdges []TimingEdge

	// Routed is a scratch flag RouterLoop sets each iteration; it is not
	// part of the persistent data model but lives here because it is
	// naturally per-connection.
	Routed bool
}

// SetCriticality clamps and stores a new criticality value.
func (c *Connection) SetCriticality(v float64) {
	if v > MaxCriticality {
		v = MaxCriticality
	}
	if v < 0 {
		v = 0
	}
	c.Criticality = v
}

// EnlargeBBox grows the connection's bounding box by the given horizontal/
// vertical INT-tile margin (§4.4: congested connections have their bbox
// grown before the next iteration's PathSearch).
func (c *Connection) EnlargeBBox(horizontal, vertical float64) {
	c.BBox = orb.Bound{
		Min: orb.Point{c.BBox.Min[0] - horizontal, c.BBox.Min[1] - vertical},
		Max: orb.Point{c.BBox.Max[0] + horizontal, c.BBox.Max[1] + vertical},
	}
}

// IsCongested reports whether any rnode on the connection's current route
// has overuse > 0 (§4.4 should_route).
func (c *Connection) IsCongested(rg *rgraph.RoutingGraph) bool {
	for _, id := range c.Route {
		if rg.ByID(id).Overuse() > 0 {
			return true
		}
	}
	return false
}

// NetWrapper is the per-net routing state (§3): its connections, geometric
// centre, and bounding box, with HPWL recomputed as connections are added
// or their source changes.
type NetWrapper struct {
	ID            rgraph.NetID
	Name          string
	Connections   []*Connection
	XCenter       float64
	YCenter       float64
	HPWL          float64
	SourceChanged bool

	bbox orb.Bound
}

// New creates an empty NetWrapper.
func New(id rgraph.NetID, name string) *NetWrapper {
	return &NetWrapper{ID: id, Name: name, bbox: orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{0, 0}}}
}

// AddConnection appends c to the net and recomputes centre/HPWL.
func (n *NetWrapper) AddConnection(c *Connection, locate NodeLocator) {
	c.Net = n
	n.Connections = append(n.Connections, c)
	n.Recompute(locate)
}

// Recompute rebuilds xcenter/ycenter/hpwl and each connection's bbox from
// the current source/sink rnode positions, and reclassifies each
// connection's Direct flag from those same positions. Called whenever a
// connection is added, or a net's source changes (SourceChanged), or bbox
// extension runs.
func (n *NetWrapper) Recompute(locate NodeLocator) {
	if len(n.Connections) == 0 {
		return
	}

	var bound orb.Bound
	first := true
	for _, c := range n.Connections {
		pts := n.connectionBound(locate, c)
		c.BBox = pts
		c.HPWL = hpwl(pts)

		sx, sy := locate(c.SourceRNode)
		tx, ty := locate(c.SinkRNode)
		c.Direct = sx == tx && sy == ty

		if first {
			bound = pts
			first = false
		} else {
			bound = bound.Union(pts)
		}
	}
	n.bbox = bound
	center := bound.Center()
	n.XCenter = center[0]
	n.YCenter = center[1]
	n.HPWL = hpwl(bound)
}

func (n *NetWrapper) connectionBound(locate NodeLocator, c *Connection) orb.Bound {
	sx, sy := locate(c.SourceRNode)
	tx, ty := locate(c.SinkRNode)
	return orb.Bound{
		Min: orb.Point{min(float64(sx), float64(tx)), min(float64(sy), float64(ty))},
		Max: orb.Point{max(float64(sx), float64(tx)), max(float64(sy), float64(ty))},
	}
}

// BBox returns the net's overall bounding box, the union of every
// connection's bbox.
func (n *NetWrapper) BBox() orb.Bound { return n.bbox }

// ConnCount returns the number of sink connections in the net, used by the
// bias-cost formula's denominator (§4.2).
func (n *NetWrapper) ConnCount() int { return len(n.Connections) }

// SpanHistogram buckets every connection's HPWL (in whole INT tiles) into
// a histogram, the diagnostic RapidWright prints under
// isPrintConnectionSpanStatistics before routing starts (SPEC_FULL §13).
func SpanHistogram(conns []*Connection) map[int]int {
	hist := make(map[int]int)
	for _, c := range conns {
		hist[int(c.HPWL)]++
	}
	return hist
}

func hpwl(b orb.Bound) float64 {
	return (b.Max[0] - b.Min[0]) + (b.Max[1] - b.Min[1])
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
