// Package pathsearch implements PathSearch (§4.3): a priority-queue A*
// from a connection's source rnode to its marked target sink, over the
// RoutingGraph, with the expansion rules that gate PINFEED_I, long-delay
// WIRE, and PINBOUNCE children, plus an optional bounding-box gate.
package pathsearch

import (
	"fpgaroute/pkg/costmodel"
	"fpgaroute/pkg/netwrapper"
	"fpgaroute/pkg/rgraph"
)

// sentinelRawDelay masks U-turn and cross-RCLK WIRE nodes from expansion
// (§4.3 "raw delay > 10000").
const sentinelRawDelay = 10000

// pqItem is a min-heap entry keyed on total cost, with RNodeID as a
// deterministic tie-breaker (§5 "Determinism... requires a deterministic
// tie-breaker on the priority queue").
type pqItem struct {
	id    rgraph.RNodeID
	total float64
}

// minHeap is a concrete-typed binary heap, mirroring the teacher's
// pkg/routing/dijkstra.go MinHeap rather than container/heap, to avoid
// interface-boxing overhead on the router's hottest loop.
type minHeap struct {
	items []pqItem
}

func (h *minHeap) Len() int { return len(h.items) }

func (h *minHeap) Push(it pqItem) {
	h.items = append(h.items, it)
	h.siftUp(len(h.items) - 1)
}

func (h *minHeap) Pop() pqItem {
	n := len(h.items)
	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return item
}

func less(a, b pqItem) bool {
	if a.total != b.total {
		return a.total < b.total
	}
	return a.id < b.id
}

func (h *minHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !less(h.items[i], h.items[parent]) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *minHeap) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2
		if left < n && less(h.items[left], h.items[smallest]) {
			smallest = left
		}
		if right < n && less(h.items[right], h.items[smallest]) {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}

// Searcher runs PathSearch over a RoutingGraph, reusing one touched-list
// buffer and heap across connections rather than allocating per call.
type Searcher struct {
	rg      *rgraph.RoutingGraph
	cm      *costmodel.Model
	heap    minHeap
	touched []rgraph.RNodeID

	// UseBoundingBox gates expansion to the connection's current bbox
	// (§4.3, §6 use_bounding_box).
	UseBoundingBox bool

	// MaskCrossRCLK filters WIRE children whose raw delay exceeds the
	// 10000ps sentinel (§6 mask_cross_rclk). Disabling it admits those
	// U-turn/cross-RCLK nodes like any other WIRE.
	MaskCrossRCLK bool

	// UseUTurnNodes gates PINBOUNCE expansion (§6 use_u_turn_nodes
	// "enable boundary U-turn rescue"): PINBOUNCE is exactly the node
	// class that lets a search double back within a column, so leaving
	// this off keeps PathSearch from ever routing through one.
	UseUTurnNodes bool
}

// New creates a Searcher bound to a RoutingGraph and cost model, with the
// §6 defaults (bbox-gated, RCLK-masked, no U-turn rescue).
func New(rg *rgraph.RoutingGraph, cm *costmodel.Model) *Searcher {
	return &Searcher{rg: rg, cm: cm, UseBoundingBox: true, MaskCrossRCLK: true}
}

// Search attempts to route conn over routingNet, at the given criticality
// and present-congestion factor. On success it sets conn.Route to the
// source-to-sink path (inclusive) and returns true.
func (s *Searcher) Search(net *netwrapper.NetWrapper, conn *netwrapper.Connection, routingNet rgraph.NetID, criticality, presentFactor float64) bool {
	source := s.rg.ByID(conn.SourceRNode)
	sink := s.rg.ByID(conn.SinkRNode)

	sink.IsTarget = true
	s.heap.items = s.heap.items[:0]
	s.touched = s.touched[:0]

	s.touch(source)
	source.Visited = true
	source.UpstreamCost = 0
	source.LowerBoundTotal = 0
	s.heap.Push(pqItem{id: source.ID, total: 0})

	for s.heap.Len() > 0 {
		top := s.heap.Pop()
		if top.id != sink.ID && top.total > s.rg.ByID(top.id).LowerBoundTotal {
			// stale entry superseded by a cheaper relaxation; skip
			continue
		}
		r := s.rg.ByID(top.id)
		if r.ID == sink.ID {
			conn.Route = s.traceBack(sink.ID)
			s.cleanup(sink)
			return true
		}

		for _, child := range s.rg.Children(r, routingNet) {
			if !s.admit(conn, child, sink) {
				continue
			}
			relax := s.cm.Relax(r.UpstreamCost, r, child, sink, net, routingNet, criticality, presentFactor)
			if !child.Visited || relax.Total < child.LowerBoundTotal {
				if !child.Visited {
					s.touch(child)
				}
				child.Visited = true
				child.Prev = r.ID
				child.UpstreamCost = relax.Upstream
				child.LowerBoundTotal = relax.Total
				s.heap.Push(pqItem{id: child.ID, total: relax.Total})
			}
		}
	}

	s.cleanup(sink)
	return false
}

// admit applies the §4.3 expansion rules.
func (s *Searcher) admit(conn *netwrapper.Connection, child, sink *rgraph.RNode) bool {
	if child.Type == rgraph.PinFeedI && child.ID != sink.ID && !conn.CrossesSLR {
		return false
	}
	if child.Type == rgraph.Wire && s.MaskCrossRCLK && int(child.Delay) > sentinelRawDelay {
		return false
	}
	if child.Type == rgraph.PinBounce {
		if !s.UseUTurnNodes {
			return false
		}
		dev := s.rg.Device()
		cx, cy := dev.TileXY(child.Node)
		sx, sy := dev.TileXY(sink.Node)
		if abs32(cy-sy) > 1 || cx != sx {
			return false
		}
	}
	if s.UseBoundingBox {
		dev := s.rg.Device()
		cx, cy := dev.TileXY(child.Node)
		fx, fy := float64(cx), float64(cy)
		b := conn.BBox
		if fx < b.Min[0] || fx > b.Max[0] || fy < b.Min[1] || fy > b.Max[1] {
			return false
		}
	}
	return true
}

func (s *Searcher) touch(r *rgraph.RNode) {
	s.touched = append(s.touched, r.ID)
}

func (s *Searcher) traceBack(sinkID rgraph.RNodeID) []rgraph.RNodeID {
	var rev []rgraph.RNodeID
	for id := sinkID; id != rgraph.NoRNode; id = s.rg.ByID(id).Prev {
		rev = append(rev, id)
	}
	route := make([]rgraph.RNodeID, len(rev))
	for i, id := range rev {
		route[len(rev)-1-i] = id
	}
	return route
}

// cleanup clears per-search state via the touched-list pattern (mirrors
// the teacher's QueryState.Reset), never a full-array sweep.
func (s *Searcher) cleanup(sink *rgraph.RNode) {
	for _, id := range s.touched {
		s.rg.ByID(id).ResetSearchState()
	}
	s.touched = s.touched[:0]
	sink.IsTarget = false
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
