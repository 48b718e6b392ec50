package rgraph

import (
	"fpgaroute/pkg/device"

	"github.com/tidwall/rtree"
)

// Preservation maps physical nodes to the net that owns them (§3). Nets may
// be ripped up in soft-preserve mode, at which point their reservation is
// erased and their nodes become ordinary routable nodes again.
//
// Alongside the map, every preserved node's tile coordinate is indexed in
// an rtree so RouterLoop's soft-preserve search ("collect preserved nets
// that touch an uphill-of-sink or downhill-of-source node", §4.4) can run
// a bounded bbox range query instead of scanning every preserved node — the
// same role the teacher's flat spatial grid plays for road-segment
// snapping (pkg/routing/snap.go), generalized to a real spatial index since
// the preserved set can be large and is queried repeatedly across
// iterations.
type Preservation struct {
	owner map[device.NodeID]NetID
	index rtree.RTreeG[device.NodeID]
	g     *device.Graph
}

// NewPreservation creates an empty Preservation bound to a device graph
// (needed to look up tile coordinates for the spatial index).
func NewPreservation(g *device.Graph) *Preservation {
	return &Preservation{
		owner: make(map[device.NodeID]NetID),
		g:     g,
	}
}

// Preserve declares that net owns node, making it invisible as a child of
// the routing graph for any other net.
func (p *Preservation) Preserve(node device.NodeID, net NetID) {
	p.owner[node] = net
	x, y := p.g.TileXY(node)
	pt := [2]float64{float64(x), float64(y)}
	p.index.Insert(pt, pt, node)
}

// Release erases the reservation on node, as part of a soft-preserve rip-up.
func (p *Preservation) Release(node device.NodeID) {
	delete(p.owner, node)
	x, y := p.g.TileXY(node)
	pt := [2]float64{float64(x), float64(y)}
	p.index.Delete(pt, pt, node)
}

// ReleaseNet erases the reservation on every node owned by net, the full
// soft-preserve rip-up §4.4 describes ("remove them from the preserved map
// ... re-initialize them as routable nets"): releasing only the single
// node that triggered the rip-up would leave the rest of the net's
// footprint preserved and still invisible to other nets' PathSearch
// expansion. Returns the released nodes.
func (p *Preservation) ReleaseNet(net NetID) []device.NodeID {
	var released []device.NodeID
	for node, owner := range p.owner {
		if owner == net {
			released = append(released, node)
		}
	}
	for _, node := range released {
		p.Release(node)
	}
	return released
}

// OwnerOf returns the net preserving node, and whether it is preserved at
// all.
func (p *Preservation) OwnerOf(node device.NodeID) (NetID, bool) {
	net, ok := p.owner[node]
	return net, ok
}

// IsPreservedByOther reports whether node is preserved by a net other than
// the one currently being routed (the RoutingGraph child-filter condition
// in §4.1: reserved nodes are invisible unless the preserved net is the
// current net being routed).
func (p *Preservation) IsPreservedByOther(node device.NodeID, routingNet NetID) bool {
	owner, ok := p.owner[node]
	if !ok {
		return false
	}
	return owner != routingNet
}

// NodesInBBox returns every preserved node whose tile coordinate falls
// within [minX,maxX] x [minY,maxY], inclusive.
func (p *Preservation) NodesInBBox(minX, minY, maxX, maxY int32) []device.NodeID {
	var found []device.NodeID
	p.index.Search(
		[2]float64{float64(minX), float64(minY)},
		[2]float64{float64(maxX), float64(maxY)},
		func(_, _ [2]float64, node device.NodeID) bool {
			found = append(found, node)
			return true
		},
	)
	return found
}

// NetsTouching returns the distinct preserved nets owning any node within
// the given bbox, excluding the nets in skip (RouterLoop passes the net
// being routed; it filters clock and static nets out separately, §4.4).
func (p *Preservation) NetsTouching(minX, minY, maxX, maxY int32, skip map[NetID]bool) []NetID {
	seen := make(map[NetID]bool)
	var nets []NetID
	for _, node := range p.NodesInBBox(minX, minY, maxX, maxY) {
		net := p.owner[node]
		if skip[net] || seen[net] {
			continue
		}
		seen[net] = true
		nets = append(nets, net)
	}
	return nets
}
