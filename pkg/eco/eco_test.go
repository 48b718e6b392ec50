package eco

import (
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDesign(t *testing.T) *Design {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return NewDesign("GND", "VCC", log)
}

// scenario 1: disconnect internal sink — no site pins, nothing deferred.
func TestDisconnectInternalSinkDefersNothing(t *testing.T) {
	d := newTestDesign(t)
	path := "processor/parity_muxcy_CARRY4_CARRY8"
	_, err := d.CreateCell(path, "processor", "CARRY8", map[string]Direction{"S1": Input, "O": Output})
	require.NoError(t, err)
	_, err = d.CreateNet("carry_s1", SignalNet, true)
	require.NoError(t, err)
	require.NoError(t, d.Connect(nil, map[string][]PinRef{
		"carry_s1": {{Cell: path, Port: "S1"}},
	}))

	require.NoError(t, d.Disconnect([]PinRef{{Cell: path, Port: "S1"}}))
	assert.Empty(t, d.DeferredFor("carry_s1"))

	n, err := d.net("carry_s1")
	require.NoError(t, err)
	assert.Empty(t, n.Sinks)
}

// scenario 2: disconnect an externally routed 2-pin input — exactly one
// site pin lands in deferred removals.
func TestDisconnectExternalInputDefersItsSitePin(t *testing.T) {
	d := newTestDesign(t)
	cellPath := "processor/t_state1_flop"
	_, err := d.CreateCell(cellPath, "processor", "FDRE", map[string]Direction{"D": Input, "Q": Output})
	require.NoError(t, err)
	require.NoError(t, d.PlaceCell(cellPath, "SLICE_X13Y237"))
	_, err = d.CreateNet("t_state1_d", SignalNet, true)
	require.NoError(t, err)
	require.NoError(t, d.Connect(nil, map[string][]PinRef{
		"t_state1_d": {{Cell: cellPath, Port: "D"}},
	}))
	cell, err := d.cell(cellPath)
	require.NoError(t, err)
	spi := SitePinInst{Site: "SLICE_X13Y237", Pin: "E_I"}
	d.bindSitePin(cell, "D", spi, "t_state1_d")

	require.NoError(t, d.Disconnect([]PinRef{{Cell: cellPath, Port: "D"}}))

	got := d.DeferredFor("t_state1_d")
	require.Len(t, got, 1)
	assert.Equal(t, spi, got[0])
}

// scenario 3: disconnecting an externally routed multi-pin output
// defers the source site pin plus every sink's.
func TestDisconnectExternalOutputDefersSourceAndAllSinks(t *testing.T) {
	d := newTestDesign(t)
	srcPath := "processor/alu_mux_sel0_flop"
	sinkPaths := []string{"processor/sink_a", "processor/sink_b", "processor/sink_c"}

	_, err := d.CreateCell(srcPath, "processor", "FDRE", map[string]Direction{"Q": Output})
	require.NoError(t, err)
	require.NoError(t, d.PlaceCell(srcPath, "SLICE_X16Y239"))
	for _, p := range sinkPaths {
		_, err := d.CreateCell(p, "processor", "LUT6", map[string]Direction{"I0": Input})
		require.NoError(t, err)
	}
	_, err = d.CreateNet("alu_mux_sel0", SignalNet, true)
	require.NoError(t, err)

	pins := []PinRef{{Cell: srcPath, Port: "Q"}}
	for _, p := range sinkPaths {
		pins = append(pins, PinRef{Cell: p, Port: "I0"})
	}
	require.NoError(t, d.Connect(nil, map[string][]PinRef{"alu_mux_sel0": pins}))

	srcCell, err := d.cell(srcPath)
	require.NoError(t, err)
	outSpi := SitePinInst{Site: "SLICE_X16Y239", Pin: "EQ"}
	d.bindSitePin(srcCell, "Q", outSpi, "alu_mux_sel0")

	sinkSpis := []SitePinInst{
		{Site: "SLICE_X15Y235", Pin: "G6"},
		{Site: "SLICE_X15Y235", Pin: "F6"},
		{Site: "SLICE_X16Y239", Pin: "B6"},
	}
	expect := map[SitePinInst]bool{outSpi: true}
	for i, p := range sinkPaths {
		c, err := d.cell(p)
		require.NoError(t, err)
		d.bindSitePin(c, "I0", sinkSpis[i], "alu_mux_sel0")
		expect[sinkSpis[i]] = true
	}

	require.NoError(t, d.Disconnect([]PinRef{{Cell: srcPath, Port: "Q"}}))

	got := d.DeferredFor("alu_mux_sel0")
	require.Len(t, got, len(expect))
	for _, spi := range got {
		assert.True(t, expect[spi], "unexpected deferred site pin %v", spi)
	}
}

// scenario 4: disconnect against GND net.
func TestDisconnectAgainstGroundNetDefersUnderGND(t *testing.T) {
	d := newTestDesign(t)
	path := "processor/address_loop[10].output_data.pc_vector_mux_lut"
	_, err := d.CreateCell(path, "processor", "LUT6", map[string]Direction{"I0": Input})
	require.NoError(t, err)
	require.NoError(t, d.PlaceCell(path, "SLICE_X13Y237"))
	require.NoError(t, d.Connect(nil, map[string][]PinRef{
		"GND": {{Cell: path, Port: "I0"}},
	}))
	cell, err := d.cell(path)
	require.NoError(t, err)
	spi := SitePinInst{Site: "SLICE_X13Y237", Pin: "G1"}
	d.bindSitePin(cell, "I0", spi, "GND")

	require.NoError(t, d.Disconnect([]PinRef{{Cell: path, Port: "I0"}}))

	got := d.DeferredFor("GND")
	require.Len(t, got, 1)
	assert.Equal(t, spi, got[0])
}

// scenario 5 (scaled down): connecting previously-disconnected inputs to
// brand new nets makes each (new net, pin) leaf set equal, and a
// routing-status report flags every newly connected net as having a
// routing error (unrouted).
func TestConnectPreviouslyDisconnectedInputsToNewNets(t *testing.T) {
	d := newTestDesign(t)
	const count = 14
	assignments := make(map[string][]PinRef, count)
	for i := 0; i < count; i++ {
		srcPath := fmt.Sprintf("base_mb_i/inst/data_addr_bit%d", i)
		_, err := d.CreateCell(srcPath, "base_mb_i/inst", "FDRE", map[string]Direction{"Q": Output})
		require.NoError(t, err)
		probePath := fmt.Sprintf("ila_0/inst/probe%d", i)
		_, err = d.CreateCell(probePath, "ila_0/inst", "ILA_PROBE", map[string]Direction{"probe": Input})
		require.NoError(t, err)
		netName := fmt.Sprintf("base_mb_i/.../Data_Addr[0][%d]", 74+i)
		assignments[netName] = []PinRef{{Cell: srcPath, Port: "Q"}, {Cell: probePath, Port: "probe"}}
	}

	require.NoError(t, d.Connect(nil, assignments))

	for netName, pins := range assignments {
		n, err := d.net(netName)
		require.NoError(t, err)
		require.Len(t, n.Sinks, 1)
		sinkPin := pins[1]
		assert.Equal(t, sinkPin.String(), n.Sinks[sinkPin.String()].String())
	}

	unrouted := d.UnroutedNets()
	assert.Len(t, unrouted, count)
}

// A shared site pin that still serves a different net's pin is refused
// unless the cell instance is on the allow-prefix list (§4.9).
func TestConnectRefusesSharedSitePinConflictUnlessAllowlisted(t *testing.T) {
	d := newTestDesign(t)
	cellA := "processor/shared_user_a"
	cellB := "processor/shared_user_b"
	_, err := d.CreateCell(cellA, "processor", "LUT6", map[string]Direction{"I0": Input})
	require.NoError(t, err)
	_, err = d.CreateCell(cellB, "processor", "LUT6", map[string]Direction{"I1": Input})
	require.NoError(t, err)
	_, err = d.CreateNet("net_a", SignalNet, true)
	require.NoError(t, err)
	_, err = d.CreateNet("net_b", SignalNet, true)
	require.NoError(t, err)

	require.NoError(t, d.Connect(nil, map[string][]PinRef{"net_a": {{Cell: cellA, Port: "I0"}}}))
	spi := SitePinInst{Site: "SLICE_X1Y1", Pin: "A1"}
	ca, err := d.cell(cellA)
	require.NoError(t, err)
	d.bindSitePin(ca, "I0", spi, "net_a")

	cb, err := d.cell(cellB)
	require.NoError(t, err)
	d.bindSitePin(cb, "I1", spi, "net_a")

	err = d.Connect(nil, map[string][]PinRef{"net_b": {{Cell: cellB, Port: "I1"}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSharedSitePinConflict)

	d.AllowPrefixes = []string{cellB}
	require.NoError(t, d.Connect(nil, map[string][]PinRef{"net_b": {{Cell: cellB, Port: "I1"}}}))
}

// round trip: disconnect(pins) then connect(net -> pins) restores the
// net's leaf-pin set (§8).
func TestDisconnectConnectRoundTripRestoresLeafSet(t *testing.T) {
	d := newTestDesign(t)
	srcPath := "top/driver"
	sinkPath := "top/sink"
	_, err := d.CreateCell(srcPath, "top", "FDRE", map[string]Direction{"Q": Output})
	require.NoError(t, err)
	_, err = d.CreateCell(sinkPath, "top", "LUT6", map[string]Direction{"I0": Input})
	require.NoError(t, err)
	_, err = d.CreateNet("rt_net", SignalNet, true)
	require.NoError(t, err)
	require.NoError(t, d.Connect(nil, map[string][]PinRef{
		"rt_net": {{Cell: srcPath, Port: "Q"}, {Cell: sinkPath, Port: "I0"}},
	}))

	before := map[string]bool{}
	for k := range d.Nets["rt_net"].Sinks {
		before[k] = true
	}
	srcBefore := d.Nets["rt_net"].Source.String()

	require.NoError(t, d.Disconnect([]PinRef{
		{Cell: srcPath, Port: "Q"}, {Cell: sinkPath, Port: "I0"},
	}))
	require.NoError(t, d.Connect(nil, map[string][]PinRef{
		"rt_net": {{Cell: srcPath, Port: "Q"}, {Cell: sinkPath, Port: "I0"}},
	}))

	after := map[string]bool{}
	for k := range d.Nets["rt_net"].Sinks {
		after[k] = true
	}
	assert.Equal(t, before, after)
	assert.Equal(t, srcBefore, d.Nets["rt_net"].Source.String())
}

// create_cell/remove_cell is an identity on the set of hierarchical
// cell instances (§8).
func TestCreateThenRemoveCellIsIdentity(t *testing.T) {
	d := newTestDesign(t)
	before := len(d.Cells)

	_, err := d.CreateCell("top/scratch", "top", "LUT6", map[string]Direction{"I0": Input, "O": Output})
	require.NoError(t, err)
	require.NoError(t, d.RemoveCell("top/scratch"))

	assert.Len(t, d.Cells, before)
}

type fakeSiteModel struct {
	candidates map[string][]SitePinInst
	idle       map[SitePinInst]bool
	o5Conflict map[string]bool
	moved      map[string]bool
	upstream   map[string]string // site/belPin -> mux bel pin
	unrouted   map[string]bool   // site/muxBelPin -> true once unrouted
	freesOnUnroute map[string]SitePinInst // site/muxBelPin -> spi freed by unrouting it
}

func newFakeSiteModel() *fakeSiteModel {
	return &fakeSiteModel{
		candidates:     map[string][]SitePinInst{},
		idle:           map[SitePinInst]bool{},
		o5Conflict:     map[string]bool{},
		moved:          map[string]bool{},
		upstream:       map[string]string{},
		unrouted:       map[string]bool{},
		freesOnUnroute: map[string]SitePinInst{},
	}
}

func (f *fakeSiteModel) CandidatePins(site, belPin string) []SitePinInst {
	return f.candidates[site+"/"+belPin]
}
func (f *fakeSiteModel) IsIdle(spi SitePinInst) bool { return f.idle[spi] }
func (f *fakeSiteModel) FirstReconfigurableUpstream(site, belPin string) (string, bool) {
	mux, ok := f.upstream[site+"/"+belPin]
	return mux, ok
}
func (f *fakeSiteModel) UnrouteSitePIP(site, muxBelPin string) error {
	key := site + "/" + muxBelPin
	f.unrouted[key] = true
	if spi, ok := f.freesOnUnroute[key]; ok {
		f.idle[spi] = true
	}
	return nil
}
func (f *fakeSiteModel) LUT6O5Conflict(site string, spi SitePinInst) bool {
	return f.o5Conflict[site]
}
func (f *fakeSiteModel) MoveO6ToDedicatedPin(site string) error {
	f.moved[site] = true
	f.o5Conflict[site] = false
	return nil
}

// A LUT6 O6 path blocking LUT5 O5 is resolved by moving O6 to its
// dedicated pin and routing O5 out MUX (§4.7 special case, §8).
func TestRouteOutSitePinSourceResolvesLUT6BlocksLUT5(t *testing.T) {
	d := newTestDesign(t)
	site := "SLICE_X4Y8"
	muxSpi := SitePinInst{Site: site, Pin: "AMUX"}
	sm := newFakeSiteModel()
	sm.candidates[site+"/O5"] = []SitePinInst{muxSpi}
	sm.idle[muxSpi] = false
	sm.o5Conflict[site] = true

	_, err := d.CreateCell("slice/lut5", "slice", "LUT5", map[string]Direction{"O5": Output})
	require.NoError(t, err)
	require.NoError(t, d.PlaceCell("slice/lut5", site))
	cell, err := d.cell("slice/lut5")
	require.NoError(t, err)

	got, err := d.RouteOutSitePinSource(sm, site, cell, "O5", "o5_net")
	require.NoError(t, err)
	assert.Equal(t, muxSpi, got)
	assert.True(t, sm.moved[site])
	assert.False(t, sm.o5Conflict[site])
}

func TestCreateExitSitePinRipsUpUpstreamSitePIPWhenNoneIdle(t *testing.T) {
	d := newTestDesign(t)
	site := "SLICE_X2Y2"
	spi := SitePinInst{Site: site, Pin: "A1"}
	sm := newFakeSiteModel()
	sm.candidates[site+"/I0"] = []SitePinInst{spi}

	_, err := d.CreateCell("slice/lut", "slice", "LUT6", map[string]Direction{"I0": Input})
	require.NoError(t, err)
	require.NoError(t, d.PlaceCell("slice/lut", site))
	cell, err := d.cell("slice/lut")
	require.NoError(t, err)

	_, err = d.CreateExitSitePin(sm, site, cell, "I0", "some_net")
	require.Error(t, err)

	sm.upstream[site+"/I0"] = "A6MUX"
	sm.freesOnUnroute[site+"/A6MUX"] = spi
	got, err := d.CreateExitSitePin(sm, site, cell, "I0", "some_net")
	require.NoError(t, err)
	assert.Equal(t, spi, got)
	assert.True(t, sm.unrouted[site+"/A6MUX"])
}
