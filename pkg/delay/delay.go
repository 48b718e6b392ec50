// Package delay provides the DelayModel external collaborator (§6):
// assigning a node's routing delay once, at rnode creation, and flagging
// long wires for the cost model's "extra" penalty (§4.2). The teacher passes a single
// concrete Router implementation into its engine (pkg/routing/engine.go
// NewEngine); fpgaroute mirrors that shape for every external model it
// wires into the router.
package delay

import "fpgaroute/pkg/device"

// Model assigns delay and long-wire classification from a device graph's
// own length/intent metadata. It satisfies rgraph.DelayModel.
type Model struct {
	dev *device.Graph

	// LongWireLengthThreshold is the minimum node length (INT tiles)
	// classified as "long" for the §4.2 extra-45ps rule.
	LongWireLengthThreshold int32

	// UTurnSentinel records the raw delay value of mask_cross_rclk
	// sentinel nodes (§4.3). Neither DelayOf nor PathSearch reads it;
	// PathSearch filters on its own fixed 10000ps threshold.
	UTurnSentinel int16
}

// New creates a delay Model bound to dev, with a default long-wire
// threshold matching the device's VLONG/HLONG intent classes.
func New(dev *device.Graph) *Model {
	return &Model{dev: dev, LongWireLengthThreshold: 12, UTurnSentinel: 10000}
}

// DelayOf estimates a node's routing delay in picoseconds from its
// derived length (15ps per INT tile, 1ps for zero-length nodes), with
// VLONG/HLONG wires getting the fixed 300ps long-wire delay. It never
// returns a sentinel value.
func (m *Model) DelayOf(node device.NodeID) int16 {
	intent := m.dev.IntentOf(node)
	if intent == device.IntentVLong || intent == device.IntentHLong {
		return 300
	}
	length := m.dev.LengthOf(node)
	if length == 0 {
		return 1
	}
	return int16(length * 15)
}

// IsLong reports whether node is classified as a long wire for the
// cost model's extra-delay rule (§4.2).
func (m *Model) IsLong(node device.NodeID) bool {
	intent := m.dev.IntentOf(node)
	if intent == device.IntentVLong || intent == device.IntentHLong {
		return true
	}
	return m.dev.LengthOf(node) >= m.LongWireLengthThreshold
}
