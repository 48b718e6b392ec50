package eco

import "fmt"

// SiteModel is the external collaborator create_exit_site_pin and
// route_out_site_pin_source walk to find, and reconfigure, the
// intra-site routing between a BEL pin and a site pin (§4.7). It is
// injected the same way RouterLoop's clock/static/timing collaborators
// are (§6): ECO owns no placement or site-wire data itself.
type SiteModel interface {
	// CandidatePins returns every site pin reachable from belPin
	// through the site's current intra-site routing, nearest first.
	CandidatePins(site, belPin string) []SitePinInst
	// IsIdle reports whether spi's sitewire currently carries no net.
	IsIdle(spi SitePinInst) bool
	// FirstReconfigurableUpstream finds the nearest reconfigurable
	// site-PIP (a BEL mux) upstream of belPin on its sitewire.
	FirstReconfigurableUpstream(site, belPin string) (muxBelPin string, ok bool)
	// UnrouteSitePIP disconnects the site-PIP currently selecting
	// muxBelPin's input, preserving whatever net already occupies its
	// input sitewire.
	UnrouteSitePIP(site, muxBelPin string) error

	// LUT6O5Conflict reports whether spi is the shared MUX output pin
	// and is currently occupied by the O6 path, blocking O5 (§4.7
	// special case).
	LUT6O5Conflict(site string, spi SitePinInst) bool
	// MoveO6ToDedicatedPin unroutes OUTMUX's current O6 selection, homes
	// the O6 consumer onto the BEL's dedicated `?_O` pin, and
	// reconfigures OUTMUX to select D5 so O5 can route out `?MUX`.
	MoveO6ToDedicatedPin(site string) error
}

// CreateExitSitePin synthesizes a site pin for an input leaf pin that
// currently has none (§4.7 "create_exit_site_pin (sink)"). It follows
// intra-site wires from the BEL pin to a candidate site pin; if none is
// reachable through current intra-site routing, it rips up the nearest
// reconfigurable site-PIP upstream and retries once.
func (d *Design) CreateExitSitePin(sm SiteModel, site string, leaf *Cell, pinName, net string) (SitePinInst, error) {
	spi, ok := firstIdle(sm, site, leaf.Path, pinName)
	if ok {
		d.bindSitePin(leaf, pinName, spi, net)
		return spi, nil
	}

	muxBelPin, ok := sm.FirstReconfigurableUpstream(site, pinName)
	if !ok {
		return SitePinInst{}, fmt.Errorf("eco: no exit site pin reachable from %s/%s", leaf.Path, pinName)
	}
	if err := sm.UnrouteSitePIP(site, muxBelPin); err != nil {
		return SitePinInst{}, err
	}

	spi, ok = firstIdle(sm, site, leaf.Path, pinName)
	if !ok {
		return SitePinInst{}, fmt.Errorf("eco: no exit site pin reachable from %s/%s after site-PIP rip-up", leaf.Path, pinName)
	}
	d.bindSitePin(leaf, pinName, spi, net)
	return spi, nil
}

func firstIdle(sm SiteModel, site, cellPath, pinName string) (SitePinInst, bool) {
	for _, spi := range sm.CandidatePins(site, pinName) {
		if sm.IsIdle(spi) {
			return spi, true
		}
	}
	return SitePinInst{}, false
}

// RouteOutSitePinSource synthesizes a site pin for an output leaf pin
// (§4.7 "route_out_site_pin_source (output)"): choose the first free
// corresponding site pin, handling the LUT6/LUT5 O6-blocks-O5 special
// case by bouncing the O6 consumer to its dedicated pin first.
func (d *Design) RouteOutSitePinSource(sm SiteModel, site string, leaf *Cell, pinName, net string) (SitePinInst, error) {
	candidates := sm.CandidatePins(site, pinName)
	for _, spi := range candidates {
		if sm.IsIdle(spi) {
			d.bindSitePin(leaf, pinName, spi, net)
			return spi, nil
		}
		if pinName == "O5" && sm.LUT6O5Conflict(site, spi) {
			if err := sm.MoveO6ToDedicatedPin(site); err != nil {
				return SitePinInst{}, err
			}
			d.bindSitePin(leaf, pinName, spi, net)
			return spi, nil
		}
	}
	return SitePinInst{}, fmt.Errorf("eco: no free site pin to route %s/%s out", leaf.Path, pinName)
}
