// Package costmodel implements the per-node present/historical congestion
// costs, sharing factor, bias cost, and A*-style expected wire/timing cost
// described in §4.2.
package costmodel

import (
	"math"

	"fpgaroute/pkg/device"
	"fpgaroute/pkg/netwrapper"
	"fpgaroute/pkg/rgraph"
	"fpgaroute/pkg/routeconfig"
)

// baseCost is the flat per-node cost multiplier applied before historical/
// present/sharing scaling. RapidWright varies this by wire-type class; a
// single constant is sufficient for the node classes this module models.
const baseCost = 1.0

// extraLongWireDelayPs is added to a relaxation step's timing term when
// both the parent and child rnode are long wires (§4.2 "extra").
const extraLongWireDelayPs = 45

// Model holds the weights RouterLoop configures per run (§6): wirelength/
// timing trade-off, sharing exponent, and the present-congestion factor,
// which changes every iteration via update_cost_factors (§4.4) and is
// therefore passed into each call rather than stored here.
type Model struct {
	dev           *device.Graph
	delay         rgraph.DelayModel
	ShareExponent float64
	WLWeight      float64
	TimingWeight  float64
}

// New creates a Model bound to a device graph and delay estimator, with
// the conservative weight/exponent defaults a first run should make;
// ApplyConfig overrides them from a loaded routeconfig.Config.
func New(dev *device.Graph, delay rgraph.DelayModel) *Model {
	return &Model{dev: dev, delay: delay, ShareExponent: 1.0, WLWeight: 0.5, TimingWeight: 0.5}
}

// ApplyConfig copies the §6 weight/exponent options a loaded
// routeconfig.Config carries (wl_weight, timing_weight, share_exponent)
// onto the model, overriding whatever New set by default.
func (m *Model) ApplyConfig(cfg routeconfig.Config) {
	m.ShareExponent = cfg.ShareExponent
	m.WLWeight = cfg.WLWeight
	m.TimingWeight = cfg.TimingWeight
}

// ShareFactor computes sf(rnode, source) = 1 + share_weight *
// users_from_same_source(rnode), share_weight = (1-criticality)^ShareExponent
// (§4.2). An rnode already used by other connections of the same net is
// cheaper, encouraging fan-out reuse.
func (m *Model) ShareFactor(r *rgraph.RNode, net rgraph.NetID, criticality float64) float64 {
	shareWeight := math.Pow(1-criticality, m.ShareExponent)
	return 1 + shareWeight*float64(r.UsersFromSameSource(net))
}

// NodeCost computes the per-node cost term (§4.2):
//
//	node_cost = base * historical * present_for_this_connection / sf + bias
func (m *Model) NodeCost(r *rgraph.RNode, net *netwrapper.NetWrapper, routingNet rgraph.NetID, criticality, presentFactor float64) float64 {
	sf := m.ShareFactor(r, routingNet, criticality)

	present := r.PresentCost
	if r.UsersFromSameSource(routingNet) > 0 {
		present = 1 + float64(r.Overuse()+1)*presentFactor
	}

	cost := baseCost * r.HistoricalCost * present / sf
	cost += m.bias(r, net)
	return cost
}

// bias computes the bias term (§4.2), pulling route search gently toward
// the net's geometric centre so fan-out nets don't wander.
//
//	bias = 0.5 * base * (|x-xcenter| + |y-ycenter|) / (conn_count * hpwl)
func (m *Model) bias(r *rgraph.RNode, net *netwrapper.NetWrapper) float64 {
	if net == nil || net.ConnCount() == 0 || net.HPWL == 0 {
		return 0
	}
	x, y := m.dev.TileXY(r.Node)
	manhattan := math.Abs(float64(x)-net.XCenter) + math.Abs(float64(y)-net.YCenter)
	return 0.5 * baseCost * manhattan / (float64(net.ConnCount()) * net.HPWL)
}

// RelaxResult carries the two cost terms computed for a PathSearch
// expansion step (§4.2 "Path cost on relaxation").
type RelaxResult struct {
	Upstream float64
	Total    float64
}

// Relax computes the upstream/total cost of expanding from parent to child
// en route to sink, given the connection's criticality and the current
// present-congestion factor.
func (m *Model) Relax(parentUpstream float64, parent, child, sink *rgraph.RNode, net *netwrapper.NetWrapper, routingNet rgraph.NetID, criticality, presentFactor float64) RelaxResult {
	sf := m.ShareFactor(child, routingNet, criticality)
	nodeCost := m.NodeCost(child, net, routingNet, criticality, presentFactor)

	length := float64(m.dev.LengthOf(child.Node))

	var delay, extra float64
	if m.delay != nil {
		delay = float64(child.Delay)
		if m.delay.IsLong(parent.Node) && m.delay.IsLong(child.Node) {
			extra = extraLongWireDelayPs
		}
	}

	upstream := parentUpstream +
		(1-criticality)*nodeCost +
		(1-criticality)*(1-m.WLWeight)*length/sf +
		criticality*(1-m.TimingWeight)*(delay+extra)/100

	cx, cy := m.dev.TileXY(child.Node)
	sx, sy := m.dev.TileXY(sink.Node)
	dx := math.Abs(float64(sx) - float64(cx))
	dy := math.Abs(float64(sy) - float64(cy))

	total := upstream +
		(1-criticality)*m.WLWeight*(dx+dy)/sf +
		criticality*m.TimingWeight*(dx*0.32+dy*0.16)

	return RelaxResult{Upstream: upstream, Total: total}
}

// UpdateCostFactors walks every rnode in the graph, resetting present cost
// and bumping historical cost for overused nodes (§4.4 update_cost_factors).
// presentFactor is the caller-tracked RouterLoop state, already multiplied
// by present_multiplier for iterations after the first.
func UpdateCostFactors(all []*rgraph.RNode, presentFactor, historicalFactor float64) {
	for _, r := range all {
		overuse := r.Overuse()
		if overuse == 0 {
			r.PresentCost = 1 + presentFactor
		} else {
			r.PresentCost = 1 + float64(overuse+1)*presentFactor
			r.HistoricalCost += float64(overuse) * historicalFactor
		}
	}
}
