package pipeline

import (
	"github.com/sarchlab/r3ksim/insts"
	"github.com/sarchlab/r3ksim/timing/latency"
)

// HazardUnit tracks the multiply/divide unit interlock.
//
// A multiply or divide makes the unit busy for a number of cycles given by
// the latency table. An MFHI or MFLO that executes while the unit is busy
// blocks the pipeline until the count reaches zero. MTHI and MTLO are not
// interlocked.
type HazardUnit struct {
	// BusyCycles is the remaining busy time of the multiply/divide unit.
	BusyCycles uint32

	// Blocked is set while an MFHI/MFLO waits for the unit.
	Blocked bool

	table *latency.Table
}

// NewHazardUnit creates a new hazard unit using the given latency table.
func NewHazardUnit(table *latency.Table) *HazardUnit {
	if table == nil {
		table = latency.NewTable()
	}
	return &HazardUnit{table: table}
}

// Busy reports whether the multiply/divide unit is still computing.
func (h *HazardUnit) Busy() bool {
	return h.BusyCycles > 0
}

// Start marks the unit busy for the operation inst, whose rs operand is rs.
// Starting an operation while the unit is busy restarts the count.
func (h *HazardUnit) Start(inst insts.Instruction, rs uint32) {
	h.BusyCycles = h.table.BusyCycles(inst, rs)
}

// Tick advances the busy count by one cycle.
func (h *HazardUnit) Tick() {
	if h.BusyCycles > 0 {
		h.BusyCycles--
	}
}

// TryReadHiLo reports whether Hi/Lo may be read this cycle. It sets Blocked
// when the unit is busy.
func (h *HazardUnit) TryReadHiLo() bool {
	if h.Busy() {
		h.Blocked = true
		return false
	}
	return true
}

// Reset clears the interlock state.
func (h *HazardUnit) Reset() {
	h.BusyCycles = 0
	h.Blocked = false
}
