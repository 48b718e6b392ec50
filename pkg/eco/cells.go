package eco

import "fmt"

// CreateCell materializes a new, unplaced leaf cell instance under
// parent, with the given port directions (§4.8 "dual constructors,
// placing unplaced leaf cells").
func (d *Design) CreateCell(path, parent, belType string, ports map[string]Direction) (*Cell, error) {
	if _, exists := d.Cells[path]; exists {
		return nil, fmt.Errorf("eco: cell already exists: %s", path)
	}
	c := &Cell{
		Path:     path,
		Parent:   parent,
		Leaf:     true,
		BELType:  belType,
		Ports:    make(map[string]*Port, len(ports)),
		SitePins: make(map[string][]SitePinInst),
	}
	for name, dir := range ports {
		c.Ports[name] = &Port{Dir: dir}
	}
	d.Cells[path] = c
	d.log.WithFields(map[string]interface{}{"cell": path, "type": belType}).Debug("created cell")
	return c, nil
}

// PlaceCell records the physical site a leaf cell occupies, needed by
// CreateExitSitePin/RouteOutSitePinSource to query the site model.
func (d *Design) PlaceCell(path, site string) error {
	c, err := d.cell(path)
	if err != nil {
		return err
	}
	c.Site = site
	c.Placed = true
	return nil
}

// CreateHierCell materializes a non-leaf cell instance (a module
// boundary), whose ports forward to an internal net inside its own
// scope rather than to site pins.
func (d *Design) CreateHierCell(path, parent string, ports map[string]Direction) (*Cell, error) {
	if _, exists := d.Cells[path]; exists {
		return nil, fmt.Errorf("eco: cell already exists: %s", path)
	}
	c := &Cell{
		Path:   path,
		Parent: parent,
		Leaf:   false,
		Ports:  make(map[string]*Port, len(ports)),
	}
	for name, dir := range ports {
		c.Ports[name] = &Port{Dir: dir}
	}
	d.Cells[path] = c
	return c, nil
}

// RemoveCell detaches every port of cellPath (and, recursively, of every
// non-constant leaf descendant) from its net, unplaces each non-constant
// leaf's physical cell by routing its incident site pins into deferred
// removals, and finally deletes the logical cell instances (§4.8).
// Constant leaves are left in place: their ports stay attached and their
// instances are not deleted.
func (d *Design) RemoveCell(cellPath string) error {
	c, err := d.cell(cellPath)
	if err != nil {
		return err
	}

	leaves := d.leafDescendants(c)
	for _, leaf := range leaves {
		if leaf.Const {
			continue
		}
		for portName, port := range leaf.Ports {
			if port.Net != "" {
				if err := d.Disconnect([]PinRef{{Cell: leaf.Path, Port: portName}}); err != nil {
					return err
				}
			}
		}
		leaf.Placed = false
		delete(d.Cells, leaf.Path)
	}

	for portName, port := range c.Ports {
		if port.Net != "" {
			if err := d.Disconnect([]PinRef{{Cell: c.Path, Port: portName}}); err != nil {
				return err
			}
		}
	}
	delete(d.Cells, cellPath)
	d.log.WithField("cell", cellPath).Info("removed cell")
	return nil
}

func (d *Design) leafDescendants(c *Cell) []*Cell {
	if c.Leaf {
		return []*Cell{c}
	}
	var out []*Cell
	prefix := c.Path + "/"
	for path, cell := range d.Cells {
		if cell.Leaf && len(path) > len(prefix) && path[:len(prefix)] == prefix {
			out = append(out, cell)
		}
	}
	return out
}

// CreateNet materializes an empty logical net shell, plus — when
// physical is true — a physical net of the same name (§4.8).
func (d *Design) CreateNet(name string, t NetType, physical bool) (*Net, error) {
	if _, exists := d.Nets[name]; exists {
		return nil, fmt.Errorf("eco: net already exists: %s", name)
	}
	n := newNet(name, t)
	if physical {
		n.PhysicalAlias = name
	}
	d.Nets[name] = n
	return n, nil
}
