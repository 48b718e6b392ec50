package device

import (
	"path/filepath"
	"testing"
)

// buildTestGraph mirrors the teacher's buildTestGraph fixture style
// (pkg/ch/contractor_test.go): a small bidirectional grid, here expressed
// directly as node IDs rather than parsed from OSM edges.
//
//	0 --------- 1 --------- 2
//	|                       |
//	|                       |
//	|                       |
//	3 --------- 4 --------- 5
func buildTestGraph(t *testing.T) *Graph {
	t.Helper()
	down := map[NodeID][]NodeID{
		0: {1, 3}, 1: {0, 2}, 2: {1, 5},
		3: {0, 4}, 4: {3, 5}, 5: {2, 4},
	}
	intent := make([]IntentCode, 6)
	x := []int32{0, 1, 2, 0, 1, 2}
	y := []int32{0, 0, 0, 1, 1, 1}
	length := make([]int32, 6)
	return New(6, down, down, intent, x, y, length)
}

func TestGraphAdjacency(t *testing.T) {
	g := buildTestGraph(t)
	if got := g.DownhillNodes(0); len(got) != 2 {
		t.Fatalf("DownhillNodes(0) = %v, want 2 entries", got)
	}
	if got := g.UphillNodes(5); len(got) != 2 {
		t.Fatalf("UphillNodes(5) = %v, want 2 entries", got)
	}
	x, y := g.TileXY(4)
	if x != 1 || y != 1 {
		t.Fatalf("TileXY(4) = (%d,%d), want (1,1)", x, y)
	}
}

func TestRouteThrough(t *testing.T) {
	g := buildTestGraph(t)
	if g.IsRouteThrough(0, 1) {
		t.Fatal("expected (0,1) not a route-through by default")
	}
	g.SetRouteThrough(0, 1, true)
	if !g.IsRouteThrough(0, 1) {
		t.Fatal("expected (0,1) marked as a route-through")
	}
	g.SetRouteThrough(0, 1, false)
	if g.IsRouteThrough(0, 1) {
		t.Fatal("expected (0,1) route-through cleared")
	}
}

func TestPIPBetween(t *testing.T) {
	g := buildTestGraph(t)
	pip, ok := g.PIPBetween(0, 1)
	if !ok || pip.From != 0 || pip.To != 1 {
		t.Fatalf("PIPBetween(0,1) = %+v, %v", pip, ok)
	}
	if _, ok := g.PIPBetween(0, 5); ok {
		t.Fatal("expected no PIP between non-adjacent nodes")
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	g := buildTestGraph(t)
	path := filepath.Join(t.TempDir(), "device.bin")
	if err := WriteBinary(path, g); err != nil {
		t.Fatalf("WriteBinary: %v", err)
	}
	got, err := ReadBinary(path)
	if err != nil {
		t.Fatalf("ReadBinary: %v", err)
	}
	if got.NumNodes != g.NumNodes {
		t.Fatalf("NumNodes = %d, want %d", got.NumNodes, g.NumNodes)
	}
	if len(got.DownHead) != len(g.DownHead) {
		t.Fatalf("DownHead length = %d, want %d", len(got.DownHead), len(g.DownHead))
	}
	for i := range g.DownHead {
		if got.DownHead[i] != g.DownHead[i] {
			t.Fatalf("DownHead[%d] = %d, want %d", i, got.DownHead[i], g.DownHead[i])
		}
	}
}
