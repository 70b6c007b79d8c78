// Package emu provides the architectural state of the R3000A core: the
// register file, the system-control coprocessor, the memory port contract
// and the pure arithmetic used by the pipeline stages.
package emu

// NumRegs is the number of general-purpose registers.
const NumRegs = 32

// RegFile represents the R3000A register file.
// It contains 32 general-purpose registers and the Hi/Lo pair written by
// multiply and divide.
type RegFile struct {
	// R holds general-purpose registers R0-R31.
	// R[0] is hardwired to zero and always reads as 0.
	R [NumRegs]uint32

	// Hi holds the high word of a product or the remainder of a divide.
	Hi uint32

	// Lo holds the low word of a product or the quotient of a divide.
	Lo uint32
}

// Read reads a register value. Register 0 and out-of-range indices return 0.
func (r *RegFile) Read(reg uint8) uint32 {
	if reg == 0 || reg >= NumRegs {
		return 0
	}
	return r.R[reg]
}

// Write writes a value to a register. Writes to register 0 are ignored.
func (r *RegFile) Write(reg uint8, value uint32) {
	if reg == 0 || reg >= NumRegs {
		return
	}
	r.R[reg] = value
}

// Reset zeroes every register, including Hi and Lo.
func (r *RegFile) Reset() {
	*r = RegFile{}
}
