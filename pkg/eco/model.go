// Package eco implements the ECO core (§4.6-4.9): disconnect, connect,
// create_cell/remove_cell/create_net, and the site-pin synthesis helpers
// create_exit_site_pin and route_out_site_pin_source. It is grounded on
// the teacher's pkg/graph/component.go old->new index remap pattern
// (FilterToComponent's oldToNew map) for the hierarchy-suffix
// materialization performed by Connect, using github.com/google/uuid for
// collision-free suffixes where the original walks a name-uniquing table.
package eco

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// Direction is a port's signal polarity.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "OUT"
	}
	return "IN"
}

// NetType distinguishes ordinary signal nets from the design's static
// (GND/VCC) and clock nets (§4.7 "constants GND/VCC map to the design's
// static nets").
type NetType int

const (
	SignalNet NetType = iota
	GroundNet
	PowerNet
	ClockNet
)

// SitePinInst is a physical, placed site pin: a logical-to-physical pin
// binding (§ GLOSSARY).
type SitePinInst struct {
	Site string
	Pin  string
}

func (s SitePinInst) String() string { return s.Site + "." + s.Pin }

// PinRef is a hierarchical pin reference, e.g.
// "processor/parity_muxcy_CARRY4_CARRY8/S[1]".
type PinRef struct {
	Cell string
	Port string
}

func (p PinRef) String() string {
	if p.Cell == "" {
		return p.Port
	}
	return p.Cell + "/" + p.Port
}

// Port is a named connection point on a Cell, bound to at most one net.
type Port struct {
	Dir Direction
	Net string // logical net name, "" if unconnected

	// InternalNet is set only on hierarchical (non-leaf) ports: the name
	// of the net inside the cell's own scope that this port forwards to
	// or from (§4.6 "follow the internal net inside the port's cell").
	InternalNet string
}

// Cell is either a leaf (BEL-backed) instance or a hierarchical
// container. Leaf cells additionally track the site pins currently
// mapped from each of their logical pins.
type Cell struct {
	Path   string
	Parent string
	Leaf   bool
	Const  bool // GND/VCC tie-off cell; remove_cell skips these (§4.8)
	Placed bool

	BELType string // e.g. "LUT6"
	Site    string // placed site name, "" if unplaced
	Ports   map[string]*Port

	// SitePins maps a leaf cell's logical pin name to the site pins
	// currently servicing it. Multiple site pins occur for shared-SPI
	// fan-out (e.g. an output bounced through more than one exit pin).
	SitePins map[string][]SitePinInst
}

// Net is a flattened logical net: one optional source leaf pin and any
// number of sink leaf pins, plus the physical net it currently aliases.
type Net struct {
	Name          string
	Type          NetType
	Source        *PinRef
	Sinks         map[string]PinRef // keyed by PinRef.String()
	PhysicalAlias string
	Routed        bool

	// HierScope is the hierarchical cell path every pin attached to this
	// net so far shares as a common ancestor (§4.7 step 2). It narrows
	// every time connectNet attaches a pin from outside the current
	// scope, at which point a hierarchy bridge is materialized at the
	// new, narrower common ancestor.
	HierScope string
}

func newNet(name string, t NetType) *Net {
	return &Net{Name: name, Type: t, Sinks: make(map[string]PinRef)}
}

// Design is the in-memory netlist ECO operates over.
type Design struct {
	Cells map[string]*Cell
	Nets  map[string]*Net

	// DeferredRemovals batches physical side-effects (§9 "Deferred
	// removals"): every ECO operator that detaches a site pin from a net
	// inserts it here instead of unrouting immediately, keyed by the
	// physical net name the pin belonged to.
	DeferredRemovals map[string]map[SitePinInst]bool

	// sitePinOwners tracks which (cell, logical pin) currently services
	// each site pin, so Connect can verify a shared SPI only ever
	// carries pins of one parent net before re-homing it (§4.7, §4.9
	// "shared site pin carries a different parent net").
	sitePinOwners map[SitePinInst]map[string]string

	// AllowPrefixes whitelists cell-instance-name prefixes for the
	// "warn_if_cell_inst_starts_with" escape hatch (§6, §9 open
	// question): a policy refusal on these instances downgrades to a
	// warning.
	AllowPrefixes []string

	GroundNetName string
	PowerNetName  string

	log       *logrus.Logger
	suffixGen SuffixGenerator
}

// NewDesign creates an empty design. groundNet/powerNet name the
// pre-existing GND/VCC static nets that connect's constant-net mapping
// resolves to.
func NewDesign(groundNet, powerNet string, log *logrus.Logger) *Design {
	if log == nil {
		log = logrus.New()
	}
	d := &Design{
		Cells:            make(map[string]*Cell),
		Nets:             make(map[string]*Net),
		DeferredRemovals: make(map[string]map[SitePinInst]bool),
		sitePinOwners:    make(map[SitePinInst]map[string]string),
		GroundNetName:    groundNet,
		PowerNetName:     powerNet,
		log:              log,
		suffixGen:        uuidSuffixGenerator{},
	}
	d.Nets[groundNet] = newNet(groundNet, GroundNet)
	d.Nets[powerNet] = newNet(powerNet, PowerNet)
	return d
}

// ErrPinNotFound, ErrNetNotFound, ErrCellNotFound surface "invalid
// input" (§7): the hierarchical reference does not resolve.
var (
	ErrPinNotFound           = errors.New("eco: pin not found")
	ErrNetNotFound           = errors.New("eco: net not found")
	ErrCellNotFound          = errors.New("eco: cell not found")
	ErrMultipleSources       = errors.New("eco: net already has a source")
	ErrSharedSitePinConflict = errors.New("eco: shared site pin carries a different parent net")
	ErrStructuralInconsistency = errors.New("eco: structural inconsistency after mutation")
	ErrMissingPhysicalCell   = errors.New("eco: missing physical cell for leaf pin")
)

func (d *Design) cell(path string) (*Cell, error) {
	c, ok := d.Cells[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCellNotFound, path)
	}
	return c, nil
}

func (d *Design) port(p PinRef) (*Cell, *Port, error) {
	c, err := d.cell(p.Cell)
	if err != nil {
		return nil, nil, err
	}
	port, ok := c.Ports[p.Port]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrPinNotFound, p)
	}
	return c, port, nil
}

func (d *Design) net(name string) (*Net, error) {
	n, ok := d.Nets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNetNotFound, name)
	}
	return n, nil
}

func (d *Design) deferRemoval(physNet string, spi SitePinInst) {
	if physNet == "" {
		return
	}
	set, ok := d.DeferredRemovals[physNet]
	if !ok {
		set = make(map[SitePinInst]bool)
		d.DeferredRemovals[physNet] = set
	}
	set[spi] = true
}

// DeferredFor returns the sorted (by Site then Pin) deferred-removal
// set for a physical net, for assertions and for the scheduler's
// batched teardown.
func (d *Design) DeferredFor(physNet string) []SitePinInst {
	set := d.DeferredRemovals[physNet]
	out := make([]SitePinInst, 0, len(set))
	for spi := range set {
		out = append(out, spi)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Site != out[j].Site {
			return out[i].Site < out[j].Site
		}
		return out[i].Pin < out[j].Pin
	})
	return out
}

func (d *Design) isAllowed(cellPath string) bool {
	for _, prefix := range d.AllowPrefixes {
		if len(cellPath) >= len(prefix) && cellPath[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

// refuse surfaces a policy refusal (§7, §4.9): a hard error unless the
// cell instance matches an allow-prefix, in which case it's logged as a
// warning and treated as permitted.
func (d *Design) refuse(cellPath string, err error) error {
	if d.isAllowed(cellPath) {
		d.log.WithField("cell", cellPath).Warnf("policy refusal waived by allow-prefix: %v", err)
		return nil
	}
	return err
}

// bindSitePin records that leaf's logical pin now occupies spi, servicing
// net. It registers ownership so a later Connect can check whether a
// shared site pin still serves a single parent net.
func (d *Design) bindSitePin(leaf *Cell, pinName string, spi SitePinInst, net string) {
	leaf.SitePins[pinName] = append(leaf.SitePins[pinName], spi)
	owners, ok := d.sitePinOwners[spi]
	if !ok {
		owners = make(map[string]string)
		d.sitePinOwners[spi] = owners
	}
	owners[PinRef{Cell: leaf.Path, Port: pinName}.String()] = net
}

// unbindSitePin removes the (leaf, pinName) -> spi binding and its
// ownership record.
func (d *Design) unbindSitePin(leaf *Cell, pinName string, spi SitePinInst) {
	pins := leaf.SitePins[pinName]
	for i, s := range pins {
		if s == spi {
			leaf.SitePins[pinName] = append(pins[:i], pins[i+1:]...)
			break
		}
	}
	if owners, ok := d.sitePinOwners[spi]; ok {
		delete(owners, PinRef{Cell: leaf.Path, Port: pinName}.String())
		if len(owners) == 0 {
			delete(d.sitePinOwners, spi)
		}
	}
}

// sitePinOwnerNets returns the distinct parent net names currently
// serviced through spi, excluding the given pin itself.
func (d *Design) sitePinOwnerNets(spi SitePinInst, except string) map[string]bool {
	nets := make(map[string]bool)
	for pin, net := range d.sitePinOwners[spi] {
		if pin == except {
			continue
		}
		nets[net] = true
	}
	return nets
}
