package pathsearch

import (
	"testing"

	"fpgaroute/pkg/costmodel"
	"fpgaroute/pkg/device"
	"fpgaroute/pkg/netwrapper"
	"fpgaroute/pkg/rgraph"

	"github.com/paulmach/orb"
)

// buildLineDevice builds a 1-D chain 0-1-2-3-4 (bidirectional), with node 4
// a PINFEED_I (sink) and node 0 a PINFEED_O (source).
func buildLineDevice(t *testing.T) *device.Graph {
	t.Helper()
	down := map[device.NodeID][]device.NodeID{
		0: {1}, 1: {0, 2}, 2: {1, 3}, 3: {2, 4}, 4: {3},
	}
	intent := make([]device.IntentCode, 5)
	intent[4] = device.IntentPinFeed
	x := []int32{0, 1, 2, 3, 4}
	y := []int32{0, 0, 0, 0, 0}
	length := []int32{1, 1, 1, 1, 1}
	return device.New(5, down, down, intent, x, y, length)
}

func locatorFor(rg *rgraph.RoutingGraph) netwrapper.NodeLocator {
	return func(id rgraph.RNodeID) (int32, int32) {
		return rg.Device().TileXY(rg.ByID(id).Node)
	}
}

func unboundedBBox() orb.Bound {
	return orb.Bound{Min: orb.Point{-1000, -1000}, Max: orb.Point{1000, 1000}}
}

func tinyBBox() orb.Bound {
	return orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 0}}
}

func TestSearchFindsDirectPath(t *testing.T) {
	dev := buildLineDevice(t)
	rg := rgraph.NewRoutingGraph(dev, rgraph.NewPreservation(dev), nil)
	cm := costmodel.New(dev, nil)
	s := New(rg, cm)

	source := rg.Intern(0, rgraph.PinFeedO)
	sink := rg.Intern(4, rgraph.PinFeedI)

	net := netwrapper.New(rgraph.NetID(1), "n")
	conn := &netwrapper.Connection{ID: 1, SourceRNode: source.ID, SinkRNode: sink.ID}
	net.AddConnection(conn, locatorFor(rg))
	conn.BBox = unboundedBBox()

	if !s.Search(net, conn, rgraph.NetID(1), 0, 0) {
		t.Fatal("expected Search to succeed on a clear line graph")
	}
	if len(conn.Route) == 0 || conn.Route[0] != source.ID || conn.Route[len(conn.Route)-1] != sink.ID {
		t.Fatalf("Route = %v, want path starting at source and ending at sink", conn.Route)
	}
}

func TestSearchFailsWhenBoundingBoxExcludesSink(t *testing.T) {
	dev := buildLineDevice(t)
	rg := rgraph.NewRoutingGraph(dev, rgraph.NewPreservation(dev), nil)
	cm := costmodel.New(dev, nil)
	s := New(rg, cm)

	source := rg.Intern(0, rgraph.PinFeedO)
	sink := rg.Intern(4, rgraph.PinFeedI)

	net := netwrapper.New(rgraph.NetID(1), "n")
	conn := &netwrapper.Connection{ID: 1, SourceRNode: source.ID, SinkRNode: sink.ID}
	net.AddConnection(conn, locatorFor(rg))
	conn.BBox = tinyBBox()

	if s.Search(net, conn, rgraph.NetID(1), 0, 0) {
		t.Fatal("expected Search to fail when the bbox excludes the path toward the sink")
	}
}

type sentinelDelay struct{ node device.NodeID }

func (d sentinelDelay) DelayOf(n device.NodeID) int16 {
	if n == d.node {
		return 20000
	}
	return 1
}
func (d sentinelDelay) IsLong(n device.NodeID) bool { return false }

func TestSearchSkipsLongDelaySentinelWire(t *testing.T) {
	dev := buildLineDevice(t)
	rg := rgraph.NewRoutingGraph(dev, rgraph.NewPreservation(dev), sentinelDelay{node: 1})
	cm := costmodel.New(dev, sentinelDelay{node: 1})
	s := New(rg, cm)

	source := rg.Intern(0, rgraph.PinFeedO)
	sink := rg.Intern(4, rgraph.PinFeedI)

	net := netwrapper.New(rgraph.NetID(1), "n")
	conn := &netwrapper.Connection{ID: 1, SourceRNode: source.ID, SinkRNode: sink.ID}
	net.AddConnection(conn, locatorFor(rg))
	conn.BBox = unboundedBBox()

	if s.Search(net, conn, rgraph.NetID(1), 0, 0) {
		t.Fatal("expected Search to fail once the only forward wire is masked by the delay sentinel")
	}
}

func TestSearchSkipsUnrelatedPinFeedI(t *testing.T) {
	// node 2 is forced into the rnode pool as PINFEED_I (a foreign sink on
	// the same chain); a non-SLR-crossing connection must not route
	// through it even though it lies on the only path to the real sink.
	dev := buildLineDevice(t)
	rg := rgraph.NewRoutingGraph(dev, rgraph.NewPreservation(dev), nil)
	cm := costmodel.New(dev, nil)
	s := New(rg, cm)

	source := rg.Intern(0, rgraph.PinFeedO)
	rg.Intern(2, rgraph.PinFeedI)
	sink := rg.Intern(4, rgraph.PinFeedI)

	net := netwrapper.New(rgraph.NetID(1), "n")
	conn := &netwrapper.Connection{ID: 1, SourceRNode: source.ID, SinkRNode: sink.ID}
	net.AddConnection(conn, locatorFor(rg))
	conn.BBox = unboundedBBox()

	if s.Search(net, conn, rgraph.NetID(1), 0, 0) {
		t.Fatal("expected Search to fail: node 2 is a foreign PINFEED_I and blocks the only path")
	}

	conn.CrossesSLR = true
	if !s.Search(net, conn, rgraph.NetID(1), 0, 0) {
		t.Fatal("expected Search to succeed once the connection is marked as crossing SLR")
	}
}
