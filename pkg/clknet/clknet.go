// Package clknet defines the clock-router external collaborator (§6):
// route_clk(net, device) extends the preserved-node set with the clock
// tree's dedicated routing resources, which RouterLoop must never offer
// to ordinary signal nets.
package clknet

import (
	"fpgaroute/pkg/device"
	"fpgaroute/pkg/rgraph"
)

// Router routes a clock net onto the device's dedicated clock-distribution
// resources and preserves every node it uses. symmetric requests a
// balanced-skew tree (§6 symmetric_clk_routing) over the router's default
// least-cost tree.
type Router interface {
	RouteClock(net rgraph.NetID, dev *device.Graph, preserv *rgraph.Preservation, symmetric bool) error
}
