package eco

import (
	"fmt"
	"strings"
)

// Connect attaches the listed pins to their requested nets (§4.7),
// creating a net that does not yet exist as a new signal net. At most
// one output pin per net is accepted; any other pins are treated as
// sinks.
func (d *Design) Connect(sm SiteModel, assignments map[string][]PinRef) error {
	for netName, pins := range assignments {
		if err := d.connectNet(sm, netName, pins); err != nil {
			return err
		}
	}
	return nil
}

func (d *Design) connectNet(sm SiteModel, netName string, pins []PinRef) error {
	n, ok := d.Nets[netName]
	if !ok {
		n = newNet(netName, SignalNet)
		d.Nets[netName] = n
	}

	var newSource *PinRef
	var inputs []PinRef
	for i := range pins {
		_, port, err := d.port(pins[i])
		if err != nil {
			return err
		}
		if port.Dir == Output {
			if newSource != nil {
				return fmt.Errorf("%w: %s", ErrMultipleSources, netName)
			}
			p := pins[i]
			newSource = &p
		} else {
			inputs = append(inputs, pins[i])
		}
	}

	if newSource != nil {
		if n.Source != nil && n.Source.String() != newSource.String() {
			d.log.WithFields(map[string]interface{}{
				"net": netName, "old_source": n.Source.String(), "new_source": newSource.String(),
			}).Warn("demoting existing net source")
			if err := d.disconnectOne(*n.Source); err != nil {
				return err
			}
		}
		if err := d.attachSource(sm, n, *newSource); err != nil {
			return err
		}
	}

	if err := d.resolvePhysicalNet(n); err != nil {
		return err
	}

	for _, in := range inputs {
		if err := d.attachSink(sm, n, in); err != nil {
			return err
		}
	}
	return nil
}

// resolvePhysicalNet locates or materializes the physical net backing a
// logical net (§4.7 step 3): constants map to the design's static nets;
// otherwise the net keeps its existing alias or takes its own name.
func (d *Design) resolvePhysicalNet(n *Net) error {
	switch n.Type {
	case GroundNet:
		n.PhysicalAlias = d.GroundNetName
		return nil
	case PowerNet:
		n.PhysicalAlias = d.PowerNetName
		return nil
	}
	if n.PhysicalAlias == "" {
		n.PhysicalAlias = n.Name
	}
	return nil
}

// attachSource re-homes or synthesizes the site pin driving net's new
// source leaf pin (§4.7 "Output leaf").
func (d *Design) attachSource(sm SiteModel, n *Net, pin PinRef) error {
	c, port, err := d.port(pin)
	if err != nil {
		return err
	}
	if err := d.crossHierarchy(n, c, port.Dir); err != nil {
		return err
	}
	port.Net = n.Name
	src := pin
	n.Source = &src

	if !c.Leaf {
		return nil
	}

	if existing := c.SitePins[pin.Port]; len(existing) > 0 {
		for _, spi := range append([]SitePinInst(nil), existing...) {
			d.unbindSitePin(c, pin.Port, spi)
			d.bindSitePin(c, pin.Port, spi, n.Name)
		}
		return nil
	}
	if sm == nil {
		return nil
	}
	if !c.Placed {
		return fmt.Errorf("%w: %s", ErrMissingPhysicalCell, pin)
	}

	_, err = d.RouteOutSitePinSource(sm, c.Site, c, pin.Port, n.Name)
	return err
}

// attachSink re-homes, or synthesizes, the site pin feeding net's new
// sink leaf pin (§4.7 "Input leaf").
func (d *Design) attachSink(sm SiteModel, n *Net, pin PinRef) error {
	c, port, err := d.port(pin)
	if err != nil {
		return err
	}
	if err := d.crossHierarchy(n, c, port.Dir); err != nil {
		return err
	}

	if existing := c.SitePins[pin.Port]; len(existing) > 0 {
		for _, spi := range append([]SitePinInst(nil), existing...) {
			for ownerNet := range d.sitePinOwnerNets(spi, pin.String()) {
				if ownerNet != n.Name {
					if refErr := d.refuse(c.Path, fmt.Errorf("%w: %s via %s (serves %s)", ErrSharedSitePinConflict, pin, spi, ownerNet)); refErr != nil {
						return refErr
					}
				}
			}
			if oldNetName := port.Net; oldNetName != "" && oldNetName != n.Name {
				if oldNet, ok := d.Nets[oldNetName]; ok {
					delete(oldNet.Sinks, pin.String())
					if len(oldNet.Sinks) == 0 && oldNet.Source == nil {
						oldNet.Routed = false
					}
				}
			}
			d.unbindSitePin(c, pin.Port, spi)
			d.bindSitePin(c, pin.Port, spi, n.Name)
		}
	} else if sm != nil {
		if !c.Placed {
			return fmt.Errorf("%w: %s", ErrMissingPhysicalCell, pin)
		}
		if _, err := d.CreateExitSitePin(sm, c.Site, c, pin.Port, n.Name); err != nil {
			return err
		}
	}

	port.Net = n.Name
	n.Sinks[pin.String()] = pin
	return nil
}

// crossHierarchy narrows n's established hierarchy scope for a newly
// attaching pin owned by cell c, materializing a bridge port at the new
// common ancestor when c lies outside the net's current scope (§4.7 step
// 2: "If the new pin lies in a different hierarchy than the net,
// materialize the connection through the hierarchy using a unique
// suffix"). A pin whose parent already is, or descends from, the net's
// scope needs no bridge: the scope already reaches it directly. When the
// two scopes share no common ancestor below the top level, no bridge is
// materialized and the scope is left unchanged.
func (d *Design) crossHierarchy(n *Net, c *Cell, dir Direction) error {
	if c.Parent == "" {
		return nil
	}
	if n.HierScope == "" {
		n.HierScope = c.Parent
		return nil
	}
	if n.HierScope == c.Parent || strings.HasPrefix(c.Parent, n.HierScope+"/") {
		return nil
	}

	scope := commonHierarchyPrefix(n.HierScope, c.Parent)
	if scope == "" {
		return nil
	}
	if _, err := d.MaterializeHierarchyBridge(scope, n.Name, dir); err != nil {
		return err
	}
	n.HierScope = scope
	return nil
}

// commonHierarchyPrefix returns the deepest hierarchical cell path that is
// an ancestor of both a and b, "" if they share none.
func commonHierarchyPrefix(a, b string) string {
	as := strings.Split(a, "/")
	bs := strings.Split(b, "/")
	n := len(as)
	if len(bs) < n {
		n = len(bs)
	}
	var common []string
	for i := 0; i < n; i++ {
		if as[i] != bs[i] {
			break
		}
		common = append(common, as[i])
	}
	return strings.Join(common, "/")
}

// MaterializeHierarchyBridge creates a uniquely-suffixed pass-through
// port on a hierarchical cell that forwards to net, used when a newly
// connected pin lives in a different hierarchy than the net it's
// joining (§4.7 "materialize the connection through the hierarchy using
// a unique suffix to avoid collisions with bus nets").
func (d *Design) MaterializeHierarchyBridge(hierCellPath, net string, dir Direction) (string, error) {
	c, err := d.cell(hierCellPath)
	if err != nil {
		return "", err
	}
	if c.Leaf {
		return "", fmt.Errorf("eco: %s is a leaf cell, cannot bridge hierarchy", hierCellPath)
	}
	portName := fmt.Sprintf("%s_bridge_%s", net, d.suffixGen.NextSuffix())
	internal := portName + "_internal"
	c.Ports[portName] = &Port{Dir: dir, Net: net, InternalNet: internal}
	if _, exists := d.Nets[internal]; !exists {
		d.Nets[internal] = newNet(internal, SignalNet)
	}
	return portName, nil
}
