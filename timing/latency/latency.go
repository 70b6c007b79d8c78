// Package latency provides the multiply/divide timing model of the R3000A.
//
// The cycle counts are configurable via TimingConfig.
package latency

import "github.com/sarchlab/r3ksim/insts"

// Multiplier magnitude class boundaries.
const (
	shortMultiplierLimit  = 0x800    // 11 bits
	mediumMultiplierLimit = 0x100000 // 20 bits
)

// Table provides busy-time lookups for the multiply/divide unit.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default R3000A timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// Config returns the timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}

// MultiplyCycles returns the busy time of a multiply whose rs operand is
// rs. Signed multiplies classify the one's complement of negative values.
func (t *Table) MultiplyCycles(rs uint32, signed bool) uint32 {
	m := rs
	if signed {
		m ^= uint32(int32(rs) >> 31)
	}
	switch {
	case m < shortMultiplierLimit:
		return t.config.MultiplyShortCycles
	case m < mediumMultiplierLimit:
		return t.config.MultiplyMediumCycles
	default:
		return t.config.MultiplyLongCycles
	}
}

// DivideCycles returns the busy time of DIV and DIVU.
func (t *Table) DivideCycles() uint32 {
	return t.config.DivideCycles
}

// BusyCycles returns the multiply/divide busy time started by inst, or 0
// for instructions that do not use the unit. rs is the value of the rs
// operand.
func (t *Table) BusyCycles(inst insts.Instruction, rs uint32) uint32 {
	switch inst.Op {
	case insts.OpMULT:
		return t.MultiplyCycles(rs, true)
	case insts.OpMULTU:
		return t.MultiplyCycles(rs, false)
	case insts.OpDIV, insts.OpDIVU:
		return t.DivideCycles()
	default:
		return 0
	}
}
