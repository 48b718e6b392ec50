// Package rgraph implements the RoutingGraph (§4.1) and Preservation (§3)
// components: a lazy, cached projection of the device graph into routable
// nodes, filtered by route-through rules and preservation, plus the
// mutable per-rnode routing state PathSearch and RouterLoop read and write.
package rgraph

import (
	"fpgaroute/pkg/device"
)

// RNodeID is the monotonically assigned identity of an interned RNode,
// returned to the caller at first creation so memory pressure can be
// tracked (§4.1).
type RNodeID uint32

// RoutableType is a tagged variant, not an inheritance hierarchy (§9
// "Polymorphism"): every RNode is exactly one of these four kinds.
type RoutableType uint8

const (
	Wire RoutableType = iota
	PinFeedI              // sink
	PinFeedO              // source
	PinBounce
)

// NetID identifies the net that owns usage/preservation of an rnode. It is
// opaque to this package; pkg/netwrapper assigns and owns the namespace.
type NetID uint32

// NoNet is the sentinel for "no net".
const NoNet NetID = ^NetID(0)

// RNode is the router-owned mutable view of a device.Node (§3). Exactly one
// RNode exists per device.NodeID for the lifetime of a RoutingGraph — they
// are interned in RoutingGraph.pool.
type RNode struct {
	ID   RNodeID
	Node device.NodeID
	Type RoutableType

	Delay int16 // from the delay model, set once at creation

	// Users are the distinct sources (nets) currently routed through this
	// rnode. Occupancy is defined as len(Users); capacity is always 1, so
	// Overuse = max(0, Occupancy-1).
	Users map[NetID]struct{}

	// Parents are the distinct driver rnodes currently using this rnode,
	// across all nets. More than one distinct parent is a multi-driver
	// conflict, resolved by RouteLegalizer.
	Parents map[RNodeID]struct{}

	PresentCost    float64
	HistoricalCost float64

	// IsTarget is set only while routing the connection that owns this
	// rnode as a sink; PathSearch clears it when the search concludes.
	IsTarget bool

	children     []RNodeID // lazy, memoised; nil means "not yet computed"
	childrenDone bool

	// Per-search transient state, reset between connections via the
	// touched-list pattern (mirrors the teacher's QueryState.Reset in
	// pkg/routing/dijkstra.go) rather than a full-array sweep.
	Prev              RNodeID
	Visited           bool
	UpstreamCost      float64
	LowerBoundTotal   float64
}

func newRNode(id RNodeID, node device.NodeID, typ RoutableType, delay int16) *RNode {
	return &RNode{
		ID:             id,
		Node:           node,
		Type:           typ,
		Delay:          delay,
		Users:          make(map[NetID]struct{}),
		Parents:        make(map[RNodeID]struct{}),
		PresentCost:    1,
		HistoricalCost: 1,
		Prev:           NoRNode,
	}
}

// NoRNode is the sentinel for "no rnode".
const NoRNode RNodeID = ^RNodeID(0)

// Occupancy is the number of distinct sources (nets) using this rnode.
func (r *RNode) Occupancy() int { return len(r.Users) }

// Overuse is max(0, occupancy-capacity), capacity fixed at 1 (§3).
func (r *RNode) Overuse() int {
	if o := r.Occupancy() - 1; o > 0 {
		return o
	}
	return 0
}

// UsersFromSameSource counts how many of this rnode's users are the given
// net — either 0 or 1, since Users is keyed by net, but exposed as a count
// for symmetry with the cost-model formula in §4.2.
func (r *RNode) UsersFromSameSource(net NetID) int {
	if _, ok := r.Users[net]; ok {
		return 1
	}
	return 0
}

// AddUser records net as using this rnode, and parent as its driver.
func (r *RNode) AddUser(net NetID, parent RNodeID) {
	r.Users[net] = struct{}{}
	if parent != NoRNode {
		r.Parents[parent] = struct{}{}
	}
}

// RemoveUser removes net from this rnode's users. It does not remove
// parents — parents are net-agnostic by design (§4.5 multi-driver
// detection looks across all nets using the rnode).
func (r *RNode) RemoveUser(net NetID) {
	delete(r.Users, net)
}

// HasMultipleParents reports whether more than one distinct rnode drives
// this rnode — the condition RouteLegalizer resolves (§4.5).
func (r *RNode) HasMultipleParents() bool {
	return len(r.Parents) > 1
}

// ResetSearchState clears per-connection PathSearch fields. Called only for
// rnodes actually touched during a search (the touched-list pattern from
// the teacher's QueryState.Reset), never as a full sweep.
func (r *RNode) ResetSearchState() {
	r.Prev = NoRNode
	r.Visited = false
	r.UpstreamCost = 0
	r.LowerBoundTotal = 0
	r.IsTarget = false
}
