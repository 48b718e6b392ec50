// Package legalizer implements RouteLegalizer (§4.5): detects rnodes with
// more than one distinct parent driver within a net's own connections, and
// rebuilds the net as a delay-weighted shortest-path DAG rooted at its
// source so that every rnode has at most one parent afterward.
package legalizer

import (
	"fpgaroute/pkg/netwrapper"
	"fpgaroute/pkg/rgraph"
)

const extraLongWireDelayPs = 45

// heapItem is a min-heap entry for the legalizer's single-source Dijkstra.
type heapItem struct {
	node rgraph.RNodeID
	dist float64
}

type minHeap struct {
	items []heapItem
}

func (h *minHeap) Len() int { return len(h.items) }

func (h *minHeap) Push(node rgraph.RNodeID, dist float64) {
	h.items = append(h.items, heapItem{node, dist})
	h.siftUp(len(h.items) - 1)
}

func (h *minHeap) Pop() heapItem {
	top := h.items[0]
	n := len(h.items) - 1
	h.items[0] = h.items[n]
	h.items = h.items[:n]
	if n > 0 {
		h.siftDown(0)
	}
	return top
}

func (h *minHeap) siftUp(i int) {
	item := h.items[i]
	for i > 0 {
		parent := (i - 1) / 2
		if item.dist >= h.items[parent].dist {
			break
		}
		h.items[i] = h.items[parent]
		i = parent
	}
	h.items[i] = item
}

func (h *minHeap) siftDown(i int) {
	n := len(h.items)
	item := h.items[i]
	for {
		child := 2*i + 1
		if child >= n {
			break
		}
		if right := child + 1; right < n && h.items[right].dist < h.items[child].dist {
			child = right
		}
		if item.dist <= h.items[child].dist {
			break
		}
		h.items[i] = h.items[child]
		i = child
	}
	h.items[i] = item
}

// edge is a directed source->sink edge collected from a net's connection
// routes (§4.5 step 1: "union all nodes... with edges in the direction
// source->sink").
type edge struct {
	to     rgraph.RNodeID
	weight float64
}

// HasMultiDriver reports whether any rnode appears as a non-first hop on
// more than one distinct parent across net's connection routes — the
// condition that triggers legalization (§4.5).
func HasMultiDriver(net *netwrapper.NetWrapper) bool {
	parent := make(map[rgraph.RNodeID]rgraph.RNodeID)
	for _, c := range net.Connections {
		for i := 1; i < len(c.Route); i++ {
			child, p := c.Route[i], c.Route[i-1]
			if existing, ok := parent[child]; ok {
				if existing != p {
					return true
				}
			} else {
				parent[child] = p
			}
		}
	}
	return false
}

// Legalize rebuilds net's connection routes as a delay-weighted
// shortest-path DAG rooted at source (§4.5). rg resolves rnode delay; long
// is a long-wire predicate over rnodes, used for the extra 45ps
// penalty when both rnode endpoints of an edge are long wires.
func Legalize(net *netwrapper.NetWrapper, rg *rgraph.RoutingGraph, long func(rgraph.RNodeID) bool) {
	if len(net.Connections) == 0 {
		return
	}
	source := net.Connections[0].SourceRNode

	adj := make(map[rgraph.RNodeID][]edge)
	nodes := map[rgraph.RNodeID]struct{}{source: {}}
	for _, c := range net.Connections {
		for i := 1; i < len(c.Route); i++ {
			parent, child := c.Route[i-1], c.Route[i]
			nodes[parent] = struct{}{}
			nodes[child] = struct{}{}
			weight := float64(rg.ByID(child).Delay)
			if long != nil && long(parent) && long(child) {
				weight += extraLongWireDelayPs
			}
			adj[parent] = append(adj[parent], edge{to: child, weight: weight})
		}
	}

	dist := make(map[rgraph.RNodeID]float64, len(nodes))
	prev := make(map[rgraph.RNodeID]rgraph.RNodeID, len(nodes))
	for n := range nodes {
		dist[n] = posInf
	}
	dist[source] = 0

	var h minHeap
	h.Push(source, 0)
	settled := make(map[rgraph.RNodeID]bool, len(nodes))

	for h.Len() > 0 {
		top := h.Pop()
		if settled[top.node] {
			continue
		}
		settled[top.node] = true

		for _, e := range adj[top.node] {
			nd := top.dist + e.weight
			if nd < dist[e.to] {
				dist[e.to] = nd
				prev[e.to] = top.node
				h.Push(e.to, nd)
			}
		}
	}

	for _, c := range net.Connections {
		if c.SinkRNode == source {
			c.Route = []rgraph.RNodeID{source}
			continue
		}
		route := walkBack(prev, source, c.SinkRNode)
		if route != nil {
			c.Route = route
		}
	}
}

const posInf = 1e18

func walkBack(prev map[rgraph.RNodeID]rgraph.RNodeID, source, sink rgraph.RNodeID) []rgraph.RNodeID {
	var rev []rgraph.RNodeID
	cur := sink
	for {
		rev = append(rev, cur)
		if cur == source {
			break
		}
		p, ok := prev[cur]
		if !ok {
			return nil // sink unreachable in the rebuilt DAG
		}
		cur = p
	}
	route := make([]rgraph.RNodeID, len(rev))
	for i, id := range rev {
		route[len(rev)-1-i] = id
	}
	return route
}
