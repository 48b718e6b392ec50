// Package device describes the read-only routing-resource graph the router
// consumes. Device-database construction (parsing a checkpoint/EDIF file
// into tiles, sites, BELs, and PIPs) is an external collaborator; this
// package only defines the graph surface the core walks plus an in-memory
// CSR representation for tests and for a preprocessed device snapshot.
package device

// IntentCode is the device-supplied type tag for a node.
type IntentCode uint8

const (
	IntentUnknown IntentCode = iota
	IntentSingle
	IntentDouble
	IntentQuad
	IntentVLong
	IntentHLong
	IntentLocal
	IntentPinBounce
	IntentPinFeed
)

// NodeID identifies a device node by its position in the CSR arrays. It is
// stable for the lifetime of a loaded Graph.
type NodeID uint32

// NoNode is the sentinel for "no node".
const NoNode NodeID = ^NodeID(0)

// PIP is a programmable interconnect point between two nodes.
type PIP struct {
	From, To NodeID
}

// Graph is the external, read-only device-graph API (§6): uphill/downhill
// adjacency, PIP lookup, intent codes, tile coordinates, and node length.
// It is implemented here as CSR (Compressed Sparse Row) arrays, the same
// representation the teacher repo uses for its road graph
// (pkg/graph/graph.go in the retrieval pack), generalized from lat/lng to
// integer INT-tile coordinates and from a single adjacency direction to a
// pair (uphill, downhill).
type Graph struct {
	NumNodes uint32

	// Downhill adjacency (node -> nodes reachable by one PIP).
	DownFirstOut []uint32 // len NumNodes+1
	DownHead     []NodeID // len NumEdges

	// Uphill adjacency (node -> nodes that can drive it by one PIP).
	UpFirstOut []uint32
	UpHead     []NodeID

	Intent []IntentCode
	X      []int32
	Y      []int32
	Length []int32 // derived node length, in INT tiles

	// routeThrough marks (parent,child) pairs that are forbidden route-throughs.
	routeThrough map[[2]NodeID]bool
}

// New builds a Graph from adjacency lists, deriving the CSR arrays. Intended
// for tests and fixture construction; production snapshots are loaded with
// ReadBinary.
func New(numNodes uint32, downEdges, upEdges map[NodeID][]NodeID, intent []IntentCode, x, y, length []int32) *Graph {
	g := &Graph{
		NumNodes: numNodes,
		Intent:   intent,
		X:        x,
		Y:        y,
		Length:   length,
	}
	g.DownFirstOut, g.DownHead = buildCSR(numNodes, downEdges)
	g.UpFirstOut, g.UpHead = buildCSR(numNodes, upEdges)
	return g
}

func buildCSR(numNodes uint32, adj map[NodeID][]NodeID) ([]uint32, []NodeID) {
	firstOut := make([]uint32, numNodes+1)
	for n, targets := range adj {
		firstOut[n+1] += uint32(len(targets))
	}
	for i := uint32(1); i <= numNodes; i++ {
		firstOut[i] += firstOut[i-1]
	}
	head := make([]NodeID, firstOut[numNodes])
	pos := make([]uint32, numNodes)
	copy(pos, firstOut[:numNodes])
	for n := NodeID(0); n < NodeID(numNodes); n++ {
		for _, t := range adj[n] {
			head[pos[n]] = t
			pos[n]++
		}
	}
	return firstOut, head
}

// DownhillNodes returns the nodes reachable from n by one PIP.
func (g *Graph) DownhillNodes(n NodeID) []NodeID {
	return g.DownHead[g.DownFirstOut[n]:g.DownFirstOut[n+1]]
}

// UphillNodes returns the nodes that can drive n by one PIP.
func (g *Graph) UphillNodes(n NodeID) []NodeID {
	return g.UpHead[g.UpFirstOut[n]:g.UpFirstOut[n+1]]
}

// TileXY returns the INT-tile coordinates of n.
func (g *Graph) TileXY(n NodeID) (x, y int32) {
	return g.X[n], g.Y[n]
}

// LengthOf returns the derived length of n, in INT tiles.
func (g *Graph) LengthOf(n NodeID) int32 {
	return g.Length[n]
}

// IntentOf returns the device-supplied intent code of n.
func (g *Graph) IntentOf(n NodeID) IntentCode {
	return g.Intent[n]
}

// IsRouteThrough reports whether the (parent, child) pair is a forbidden
// route-through, as decided by an external helper at graph-build time.
func (g *Graph) IsRouteThrough(parent, child NodeID) bool {
	if g.routeThrough == nil {
		return false
	}
	return g.routeThrough[[2]NodeID{parent, child}]
}

// SetRouteThrough marks (parent, child) as a forbidden route-through pair.
func (g *Graph) SetRouteThrough(parent, child NodeID, forbidden bool) {
	if g.routeThrough == nil {
		g.routeThrough = make(map[[2]NodeID]bool)
	}
	if forbidden {
		g.routeThrough[[2]NodeID{parent, child}] = true
	} else {
		delete(g.routeThrough, [2]NodeID{parent, child})
	}
}

// PIPBetween reports the PIP connecting a to b, if the device has one.
func (g *Graph) PIPBetween(a, b NodeID) (PIP, bool) {
	for _, d := range g.DownhillNodes(a) {
		if d == b {
			return PIP{From: a, To: b}, true
		}
	}
	return PIP{}, false
}
