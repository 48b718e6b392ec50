package eco

// affectedLeafPins resolves the set of leaf pins a disconnect of p must
// defer site pins for, plus the logical net name they hang off (§4.6
// step 1):
//
//   - leaf cell pin, input: just {p}.
//   - leaf cell pin, output: {p} plus every downstream sink reachable
//     through the net (disconnecting a driver tears down the whole
//     net's physical route).
//   - hierarchy port: follow the internal net inside the port's cell;
//     if it has a source, the affected set is the outer net's upstream
//     (source) leaf; otherwise the outer net's downstream (sink) leaves.
func (d *Design) affectedLeafPins(p PinRef) (leaves []PinRef, netName string, err error) {
	c, port, err := d.port(p)
	if err != nil {
		return nil, "", err
	}
	if port.Net == "" {
		return nil, "", nil
	}

	if c.Leaf {
		leaves = []PinRef{p}
		if port.Dir == Output {
			n, err := d.net(port.Net)
			if err != nil {
				return nil, "", err
			}
			for _, s := range n.Sinks {
				leaves = append(leaves, s)
			}
		}
		return leaves, port.Net, nil
	}

	internal, err := d.net(port.InternalNet)
	if err != nil {
		return nil, "", err
	}
	outerName := port.Net
	outer, err := d.net(outerName)
	if err != nil {
		return nil, "", err
	}
	if internal.Source != nil {
		if outer.Source != nil {
			leaves = append(leaves, *outer.Source)
		}
		return leaves, outerName, nil
	}
	for _, s := range outer.Sinks {
		leaves = append(leaves, s)
	}
	return leaves, outerName, nil
}

// Disconnect removes each referenced port instance from its logical
// net, deferring the physical site-pin teardown for batched removal
// (§4.6).
func (d *Design) Disconnect(pins []PinRef) error {
	for _, p := range pins {
		if err := d.disconnectOne(p); err != nil {
			return err
		}
	}
	return nil
}

func (d *Design) disconnectOne(p PinRef) error {
	c, port, err := d.port(p)
	if err != nil {
		return err
	}
	if port.Net == "" {
		return nil
	}

	leaves, netName, err := d.affectedLeafPins(p)
	if err != nil {
		return err
	}
	n, err := d.net(netName)
	if err != nil {
		return err
	}

	for _, leaf := range leaves {
		lc, err := d.cell(leaf.Cell)
		if err != nil || !lc.Leaf {
			continue
		}
		for _, spi := range append([]SitePinInst(nil), lc.SitePins[leaf.Port]...) {
			d.deferRemoval(n.PhysicalAlias, spi)
			d.unbindSitePin(lc, leaf.Port, spi)
		}
	}

	if c.Leaf {
		if port.Dir == Output {
			n.Source = nil
		} else {
			delete(n.Sinks, p.String())
		}
	}
	port.Net = ""
	d.log.WithFields(map[string]interface{}{"pin": p.String(), "net": netName}).Debug("disconnected")
	return nil
}
