package router

import (
	"testing"

	"fpgaroute/pkg/costmodel"
	"fpgaroute/pkg/device"
	"fpgaroute/pkg/netwrapper"
	"fpgaroute/pkg/rgraph"
	"fpgaroute/pkg/routeconfig"

	"github.com/sirupsen/logrus"
)

// buildGridDevice builds a small 4x4 bidirectional grid of length-1 nodes
// and returns it with a map from (x, y) tile coordinates to node IDs.
func buildGridDevice(t *testing.T) (*device.Graph, map[[2]int32]device.NodeID) {
	t.Helper()
	const w, h = 4, 4
	coord := func(x, y int32) device.NodeID { return device.NodeID(y*w + x) }
	down := make(map[device.NodeID][]device.NodeID)
	for y := int32(0); y < h; y++ {
		for x := int32(0); x < w; x++ {
			n := coord(x, y)
			if x+1 < w {
				down[n] = append(down[n], coord(x+1, y))
				down[coord(x+1, y)] = append(down[coord(x+1, y)], n)
			}
			if y+1 < h {
				down[n] = append(down[n], coord(x, y+1))
				down[coord(x, y+1)] = append(down[coord(x, y+1)], n)
			}
		}
	}
	intent := make([]device.IntentCode, w*h)
	x := make([]int32, w*h)
	y := make([]int32, w*h)
	length := make([]int32, w*h)
	byCoord := make(map[[2]int32]device.NodeID, w*h)
	for yy := int32(0); yy < h; yy++ {
		for xx := int32(0); xx < w; xx++ {
			n := coord(xx, yy)
			x[n], y[n] = xx, yy
			length[n] = 1
			byCoord[[2]int32{xx, yy}] = n
		}
	}
	return device.New(uint32(w*h), down, down, intent, x, y, length), byCoord
}

func TestRouteConvergesOnUncongestedNet(t *testing.T) {
	dev, coord := buildGridDevice(t)
	cm := costmodel.New(dev, nil)
	cfg := routeconfig.Default()
	cfg.MaxIterations = 20

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	preserv := rgraph.NewPreservation(dev)
	rg2 := rgraph.NewRoutingGraph(dev, preserv, nil)
	r := New(rg2, preserv, cm, cfg, Collaborators{}, logger)

	net := netwrapper.New(rgraph.NetID(1), "net_a")
	source := rg2.Intern(coord[[2]int32{0, 0}], rgraph.PinFeedO)
	sink := rg2.Intern(coord[[2]int32{3, 3}], rgraph.PinFeedI)
	conn := &netwrapper.Connection{ID: 1, SourceRNode: source.ID, SinkRNode: sink.ID}
	net.AddConnection(conn, func(id rgraph.RNodeID) (int32, int32) {
		return rg2.Device().TileXY(rg2.ByID(id).Node)
	})
	conn.EnlargeBBox(cfg.BoundingBoxExtension, cfg.BoundingBoxExtension)

	report := r.Route([]*netwrapper.NetWrapper{net})

	if !report.Converged {
		t.Fatalf("expected convergence, report = %+v", report)
	}
	if report.OverusedAtEnd != 0 {
		t.Fatalf("OverusedAtEnd = %d, want 0", report.OverusedAtEnd)
	}
	if len(conn.Route) == 0 || conn.Route[0] != source.ID || conn.Route[len(conn.Route)-1] != sink.ID {
		t.Fatalf("Route = %v, want a path from source to sink", conn.Route)
	}
}

func TestRouteConvergesTwoNetsWithoutOveruse(t *testing.T) {
	dev, coord := buildGridDevice(t)
	preserv := rgraph.NewPreservation(dev)
	rg := rgraph.NewRoutingGraph(dev, preserv, nil)
	cm := costmodel.New(dev, nil)
	cfg := routeconfig.Default()
	cfg.MaxIterations = 30

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	r := New(rg, preserv, cm, cfg, Collaborators{}, logger)

	locate := func(id rgraph.RNodeID) (int32, int32) {
		return rg.Device().TileXY(rg.ByID(id).Node)
	}

	netA := netwrapper.New(rgraph.NetID(1), "net_a")
	srcA := rg.Intern(coord[[2]int32{0, 0}], rgraph.PinFeedO)
	sinkA := rg.Intern(coord[[2]int32{3, 0}], rgraph.PinFeedI)
	connA := &netwrapper.Connection{ID: 1, SourceRNode: srcA.ID, SinkRNode: sinkA.ID}
	netA.AddConnection(connA, locate)
	connA.EnlargeBBox(3, 3)

	netB := netwrapper.New(rgraph.NetID(2), "net_b")
	srcB := rg.Intern(coord[[2]int32{0, 3}], rgraph.PinFeedO)
	sinkB := rg.Intern(coord[[2]int32{3, 3}], rgraph.PinFeedI)
	connB := &netwrapper.Connection{ID: 2, SourceRNode: srcB.ID, SinkRNode: sinkB.ID}
	netB.AddConnection(connB, locate)
	connB.EnlargeBBox(3, 3)

	report := r.Route([]*netwrapper.NetWrapper{netA, netB})

	if !report.Converged {
		t.Fatalf("expected both nets to converge on a grid with ample alternate paths, report = %+v", report)
	}
	for _, rn := range rg.All() {
		if rn.Overuse() > 0 {
			t.Fatalf("rnode %d left overused after convergence", rn.ID)
		}
	}
}

// TestRouteSoftPreserveReleasesEveryNodeOwnedByNet builds a net whose only
// path crosses two nodes (1 and 2), both stale-reserved by a second net
// that itself never touches either of them. Both 1 and 2 lie inside net_a's
// bounding box, so unrouteReservedNets finds net_b through either of them,
// and a release that only frees the single node that happened to trigger
// rip-up (rather than every node the
// owning net holds) would leave the other preserved and net_a permanently
// blocked. Net_b is routed directly between 4 and 5, away from 1 and 2, so
// nothing about its own path depends on the release.
func TestRouteSoftPreserveReleasesEveryNodeOwnedByNet(t *testing.T) {
	down := map[device.NodeID][]device.NodeID{
		0: {1},
		1: {0, 2},
		2: {1, 3},
		3: {2},
		4: {5},
		5: {4},
	}
	const numNodes = 6
	intent := make([]device.IntentCode, numNodes)
	x := []int32{0, 1, 2, 3, 10, 11}
	y := []int32{0, 0, 0, 0, 0, 0}
	length := []int32{1, 1, 1, 1, 1, 1}
	dev := device.New(numNodes, down, down, intent, x, y, length)

	preserv := rgraph.NewPreservation(dev)
	rg := rgraph.NewRoutingGraph(dev, preserv, nil)
	cm := costmodel.New(dev, nil)
	cfg := routeconfig.Default()
	cfg.MaxIterations = 10

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	r := New(rg, preserv, cm, cfg, Collaborators{}, logger)

	locate := func(id rgraph.RNodeID) (int32, int32) {
		return rg.Device().TileXY(rg.ByID(id).Node)
	}

	netA := netwrapper.New(rgraph.NetID(1), "net_a")
	srcA := rg.Intern(0, rgraph.PinFeedO)
	sinkA := rg.Intern(3, rgraph.PinFeedI)
	connA := &netwrapper.Connection{ID: 1, SourceRNode: srcA.ID, SinkRNode: sinkA.ID}
	netA.AddConnection(connA, locate)
	connA.EnlargeBBox(3, 3)

	netB := netwrapper.New(rgraph.NetID(2), "net_b")
	srcB := rg.Intern(4, rgraph.PinFeedO)
	sinkB := rg.Intern(5, rgraph.PinFeedI)
	connB := &netwrapper.Connection{ID: 2, SourceRNode: srcB.ID, SinkRNode: sinkB.ID}
	netB.AddConnection(connB, locate)
	connB.EnlargeBBox(3, 3)

	preserv.Preserve(1, netB.ID)
	preserv.Preserve(2, netB.ID)

	report := r.Route([]*netwrapper.NetWrapper{netA, netB})

	if !report.Converged {
		t.Fatalf("expected convergence once net_b's stale reservation is fully released, report = %+v", report)
	}
	if len(connA.Route) == 0 {
		t.Fatalf("net_a never found a route across the released bridge nodes")
	}
	if _, ok := preserv.OwnerOf(1); ok {
		t.Fatalf("node 1 still preserved after rip-up")
	}
	if _, ok := preserv.OwnerOf(2); ok {
		t.Fatalf("node 2 still preserved after rip-up")
	}
}
