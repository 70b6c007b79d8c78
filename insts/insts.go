// Package insts provides R3000A instruction definitions and decoding.
//
// This package implements decoding of MIPS-I machine code into structured
// instruction representations, the decode-legality classification used by
// the pipeline's decode stage, and encoders for building programs:
//   - ALU and shift instructions, immediate forms, LUI
//   - Multiply/divide and the Hi/Lo moves
//   - Loads and stores, including the unaligned LWL/LWR/SWL/SWR
//   - Branches and jumps, SYSCALL, BREAK
//   - Coprocessor 0 moves and RFE; COP1-3 encodings are recognised so the
//     coprocessor-usability check can be applied
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x20210001) // ADDI r1, r1, 1
//	fmt.Printf("Op: %v, Rt: %d, Rs: %d, Imm: %d\n", inst.Op, inst.Rt, inst.Rs, inst.SImm())
package insts

// Op represents a decoded R3000A operation.
type Op uint8

// R3000A operations.
const (
	OpInvalid Op = iota

	// Shifts
	OpSLL
	OpSRL
	OpSRA
	OpSLLV
	OpSRLV
	OpSRAV

	// Register ALU
	OpADD
	OpADDU
	OpSUB
	OpSUBU
	OpAND
	OpOR
	OpXOR
	OpNOR
	OpSLT
	OpSLTU

	// Immediate ALU
	OpADDI
	OpADDIU
	OpSLTI
	OpSLTIU
	OpANDI
	OpORI
	OpXORI
	OpLUI

	// Multiply/divide
	OpMFHI
	OpMTHI
	OpMFLO
	OpMTLO
	OpMULT
	OpMULTU
	OpDIV
	OpDIVU

	// Branches and jumps
	OpJ
	OpJAL
	OpJR
	OpJALR
	OpBEQ
	OpBNE
	OpBLEZ
	OpBGTZ
	OpBLTZ
	OpBGEZ
	OpBLTZAL
	OpBGEZAL

	// Exceptions
	OpSYSCALL
	OpBREAK

	// Loads and stores
	OpLB
	OpLH
	OpLWL
	OpLW
	OpLBU
	OpLHU
	OpLWR
	OpSB
	OpSH
	OpSWL
	OpSW
	OpSWR

	// Coprocessors
	OpMFC0
	OpMTC0
	OpRFE
	OpCOP   // COP1/COP3 and their LWC/SWC forms; never usable
	OpCOP2  // vector coprocessor operation or register move
	OpLWC2
	OpSWC2

	numOps
)

var opNames = [numOps]string{
	OpInvalid: "invalid",
	OpSLL: "sll", OpSRL: "srl", OpSRA: "sra",
	OpSLLV: "sllv", OpSRLV: "srlv", OpSRAV: "srav",
	OpADD: "add", OpADDU: "addu", OpSUB: "sub", OpSUBU: "subu",
	OpAND: "and", OpOR: "or", OpXOR: "xor", OpNOR: "nor",
	OpSLT: "slt", OpSLTU: "sltu",
	OpADDI: "addi", OpADDIU: "addiu", OpSLTI: "slti", OpSLTIU: "sltiu",
	OpANDI: "andi", OpORI: "ori", OpXORI: "xori", OpLUI: "lui",
	OpMFHI: "mfhi", OpMTHI: "mthi", OpMFLO: "mflo", OpMTLO: "mtlo",
	OpMULT: "mult", OpMULTU: "multu", OpDIV: "div", OpDIVU: "divu",
	OpJ: "j", OpJAL: "jal", OpJR: "jr", OpJALR: "jalr",
	OpBEQ: "beq", OpBNE: "bne", OpBLEZ: "blez", OpBGTZ: "bgtz",
	OpBLTZ: "bltz", OpBGEZ: "bgez", OpBLTZAL: "bltzal", OpBGEZAL: "bgezal",
	OpSYSCALL: "syscall", OpBREAK: "break",
	OpLB: "lb", OpLH: "lh", OpLWL: "lwl", OpLW: "lw",
	OpLBU: "lbu", OpLHU: "lhu", OpLWR: "lwr",
	OpSB: "sb", OpSH: "sh", OpSWL: "swl", OpSW: "sw", OpSWR: "swr",
	OpMFC0: "mfc0", OpMTC0: "mtc0", OpRFE: "rfe",
	OpCOP: "cop", OpCOP2: "cop2", OpLWC2: "lwc2", OpSWC2: "swc2",
}

// String returns the assembler mnemonic of the operation.
func (op Op) String() string {
	if op < numOps {
		return opNames[op]
	}
	return "invalid"
}

// Format represents an instruction encoding format.
type Format uint8

// Instruction formats.
const (
	FormatUnknown Format = iota
	FormatR              // register: opcode rs rt rd shamt funct
	FormatI              // immediate: opcode rs rt imm16
	FormatJ              // jump: opcode target26
	FormatCop            // coprocessor
)

// Primary opcodes (bits 31-26).
const (
	opcSpecial = 0x00
	opcRegImm  = 0x01
	opcJ       = 0x02
	opcJAL     = 0x03
	opcBEQ     = 0x04
	opcBNE     = 0x05
	opcBLEZ    = 0x06
	opcBGTZ    = 0x07
	opcADDI    = 0x08
	opcADDIU   = 0x09
	opcSLTI    = 0x0A
	opcSLTIU   = 0x0B
	opcANDI    = 0x0C
	opcORI     = 0x0D
	opcXORI    = 0x0E
	opcLUI     = 0x0F
	opcCOP0    = 0x10
	opcCOP2    = 0x12
	opcLB      = 0x20
	opcLH      = 0x21
	opcLWL     = 0x22
	opcLW      = 0x23
	opcLBU     = 0x24
	opcLHU     = 0x25
	opcLWR     = 0x26
	opcSB      = 0x28
	opcSH      = 0x29
	opcSWL     = 0x2A
	opcSW      = 0x2B
	opcSWR     = 0x2E
	opcLWC0    = 0x30
	opcSWC0    = 0x38
)

// SPECIAL function codes (bits 5-0).
const (
	fnSLL     = 0x00
	fnSRL     = 0x02
	fnSRA     = 0x03
	fnSLLV    = 0x04
	fnSRLV    = 0x06
	fnSRAV    = 0x07
	fnJR      = 0x08
	fnJALR    = 0x09
	fnSYSCALL = 0x0C
	fnBREAK   = 0x0D
	fnMFHI    = 0x10
	fnMTHI    = 0x11
	fnMFLO    = 0x12
	fnMTLO    = 0x13
	fnMULT    = 0x18
	fnMULTU   = 0x19
	fnDIV     = 0x1A
	fnDIVU    = 0x1B
	fnADD     = 0x20
	fnADDU    = 0x21
	fnSUB     = 0x22
	fnSUBU    = 0x23
	fnAND     = 0x24
	fnOR      = 0x25
	fnXOR     = 0x26
	fnNOR     = 0x27
	fnSLT     = 0x2A
	fnSLTU    = 0x2B
)

// Coprocessor rs field values.
const (
	copMF = 0x00
	copMT = 0x04
	copCO = 0x10 // bit 4 set: coprocessor operation

	cop0FnRFE = 0x10
)
