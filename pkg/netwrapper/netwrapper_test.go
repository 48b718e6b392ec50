package netwrapper

import (
	"testing"

	"fpgaroute/pkg/rgraph"
)

func testLocator(coords map[rgraph.RNodeID][2]int32) NodeLocator {
	return func(id rgraph.RNodeID) (int32, int32) {
		c := coords[id]
		return c[0], c[1]
	}
}

func TestRecomputeHPWLAndCenter(t *testing.T) {
	locate := testLocator(map[rgraph.RNodeID][2]int32{
		1: {0, 0},
		2: {4, 2},
	})

	n := New(rgraph.NetID(1), "net_a")
	c := &Connection{ID: 1, SourceRNode: 1, SinkRNode: 2}
	n.AddConnection(c, locate)

	if c.HPWL != 6 {
		t.Fatalf("Connection.HPWL = %v, want 6", c.HPWL)
	}
	if n.HPWL != 6 {
		t.Fatalf("NetWrapper.HPWL = %v, want 6", n.HPWL)
	}
	if n.XCenter != 2 || n.YCenter != 1 {
		t.Fatalf("center = (%v,%v), want (2,1)", n.XCenter, n.YCenter)
	}
}

func TestRecomputeClassifiesDirectConnections(t *testing.T) {
	locate := testLocator(map[rgraph.RNodeID][2]int32{
		1: {0, 0},
		2: {0, 0},
		3: {4, 2},
	})

	n := New(rgraph.NetID(1), "net_a")
	sameTile := &Connection{ID: 1, SourceRNode: 1, SinkRNode: 2}
	n.AddConnection(sameTile, locate)
	if !sameTile.Direct {
		t.Fatalf("same-tile connection Direct = false, want true")
	}

	crossTile := &Connection{ID: 2, SourceRNode: 1, SinkRNode: 3}
	n.AddConnection(crossTile, locate)
	if crossTile.Direct {
		t.Fatalf("cross-tile connection Direct = true, want false")
	}
}

func TestEnlargeBBox(t *testing.T) {
	locate := testLocator(map[rgraph.RNodeID][2]int32{1: {0, 0}, 2: {4, 2}})
	n := New(rgraph.NetID(1), "net_a")
	c := &Connection{ID: 1, SourceRNode: 1, SinkRNode: 2}
	n.AddConnection(c, locate)

	c.EnlargeBBox(1, 2)
	if c.BBox.Min[0] != -1 || c.BBox.Max[0] != 5 {
		t.Fatalf("BBox X = [%v,%v], want [-1,5]", c.BBox.Min[0], c.BBox.Max[0])
	}
	if c.BBox.Min[1] != -2 || c.BBox.Max[1] != 4 {
		t.Fatalf("BBox Y = [%v,%v], want [-2,4]", c.BBox.Min[1], c.BBox.Max[1])
	}
}

func TestCriticalityClamped(t *testing.T) {
	c := &Connection{}
	c.SetCriticality(5)
	if c.Criticality != MaxCriticality {
		t.Fatalf("Criticality = %v, want %v", c.Criticality, MaxCriticality)
	}
	c.SetCriticality(-1)
	if c.Criticality != 0 {
		t.Fatalf("Criticality = %v, want 0", c.Criticality)
	}
}

func TestSpanHistogram(t *testing.T) {
	conns := []*Connection{{HPWL: 2}, {HPWL: 2}, {HPWL: 5}}
	hist := SpanHistogram(conns)
	if hist[2] != 2 || hist[5] != 1 {
		t.Fatalf("hist = %+v, want {2:2, 5:1}", hist)
	}
}
