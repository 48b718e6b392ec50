// Package staticnet defines the static-net router external collaborator
// (§6): route_static(net, unavailable) -> {spi -> [node]}, used for GND/VCC
// distribution. Its output nodes are preserved the same way clknet's are.
package staticnet

import (
	"fpgaroute/pkg/device"
	"fpgaroute/pkg/rgraph"
)

// SitePin identifies a physical site pin a static net must reach.
type SitePin struct {
	Site string
	Pin  string
}

// Router routes a static (GND/VCC) net to every requested site pin,
// avoiding the unavailable node set, and returns the node path used for
// each site pin so the caller can preserve it.
type Router interface {
	RouteStatic(net rgraph.NetID, pins []SitePin, unavailable map[device.NodeID]bool, dev *device.Graph) (map[SitePin][]device.NodeID, error)
}
