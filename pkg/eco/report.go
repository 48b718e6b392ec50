package eco

import "sort"

// UnroutedNets returns, sorted, the names of every net that has a
// source and at least one sink but is not yet marked Routed — the
// routing-status report ECO's connect scenarios check against (§8
// scenario 5: "a routing-status report shows exactly 14 nets with
// routing errors").
func (d *Design) UnroutedNets() []string {
	var out []string
	for name, n := range d.Nets {
		if n.Source == nil || len(n.Sinks) == 0 {
			continue
		}
		if !n.Routed {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// MarkRouted flags a net as physically routed, called by the scheduler
// once RouterLoop reports its connections converged.
func (d *Design) MarkRouted(netName string, routed bool) error {
	n, err := d.net(netName)
	if err != nil {
		return err
	}
	n.Routed = routed
	return nil
}
