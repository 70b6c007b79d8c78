package insts

// Instruction represents a decoded R3000A instruction.
type Instruction struct {
	// Op is the decoded operation.
	Op Op

	// Format is the encoding format.
	Format Format

	// Word is the raw instruction word.
	Word uint32

	// Register fields.
	Rs uint8
	Rt uint8
	Rd uint8

	// Shamt is the constant shift amount (bits 10-6).
	Shamt uint8

	// Imm is the raw 16-bit immediate.
	Imm uint16

	// Target is the 26-bit jump target field.
	Target uint32

	// Cop is the coprocessor number for coprocessor encodings, -1 otherwise.
	Cop int8
}

// SImm returns the immediate sign-extended to 32 bits.
func (i Instruction) SImm() uint32 {
	return uint32(int32(int16(i.Imm)))
}

// ZImm returns the immediate zero-extended to 32 bits.
func (i Instruction) ZImm() uint32 {
	return uint32(i.Imm)
}

// BranchTarget returns the target of a PC-relative branch located at pc.
func (i Instruction) BranchTarget(pc uint32) uint32 {
	return pc + 4 + i.SImm()<<2
}

// JumpTarget returns the target of a J/JAL located at pc.
func (i Instruction) JumpTarget(pc uint32) uint32 {
	return (pc+4)&0xF0000000 | i.Target<<2
}

// IsLoad reports whether the instruction reads data memory.
func (i Instruction) IsLoad() bool {
	switch i.Op {
	case OpLB, OpLH, OpLWL, OpLW, OpLBU, OpLHU, OpLWR:
		return true
	}
	return false
}

// IsStore reports whether the instruction writes data memory.
func (i Instruction) IsStore() bool {
	switch i.Op {
	case OpSB, OpSH, OpSWL, OpSW, OpSWR:
		return true
	}
	return false
}

// IsBranch reports whether the instruction has a branch-delay slot.
func (i Instruction) IsBranch() bool {
	switch i.Op {
	case OpJ, OpJAL, OpJR, OpJALR, OpBEQ, OpBNE, OpBLEZ, OpBGTZ,
		OpBLTZ, OpBGEZ, OpBLTZAL, OpBGEZAL:
		return true
	}
	return false
}

// Unimplemented reports whether the instruction belongs to a class the core
// does not implement.
func (i Instruction) Unimplemented() bool {
	return i.Op == OpCOP2 || i.Op == OpLWC2 || i.Op == OpSWC2
}

// Decoder decodes R3000A instruction words.
type Decoder struct{}

// NewDecoder creates a new instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit instruction word. Undefined encodings decode to
// OpInvalid.
func (d *Decoder) Decode(word uint32) Instruction {
	inst := Instruction{
		Word:   word,
		Rs:     uint8(word >> 21 & 0x1F),
		Rt:     uint8(word >> 16 & 0x1F),
		Rd:     uint8(word >> 11 & 0x1F),
		Shamt:  uint8(word >> 6 & 0x1F),
		Imm:    uint16(word),
		Target: word & 0x03FFFFFF,
		Cop:    -1,
	}

	opcode := word >> 26
	switch {
	case opcode == opcSpecial:
		inst.Format = FormatR
		inst.Op = decodeSpecial(word & 0x3F)
	case opcode == opcRegImm:
		inst.Format = FormatI
		inst.Op = decodeRegImm(inst.Rt)
	case opcode == opcJ || opcode == opcJAL:
		inst.Format = FormatJ
		inst.Op = OpJ
		if opcode == opcJAL {
			inst.Op = OpJAL
		}
	case opcode >= opcCOP0 && opcode <= opcCOP0+3:
		inst.Format = FormatCop
		inst.Cop = int8(opcode & 3)
		inst.Op = decodeCop(int(inst.Cop), inst.Rs, word&0x3F)
	case opcode >= opcLWC0 && opcode <= opcLWC0+3,
		opcode >= opcSWC0 && opcode <= opcSWC0+3:
		inst.Format = FormatI
		inst.Cop = int8(opcode & 3)
		inst.Op = decodeCopLoadStore(int(inst.Cop), opcode < opcSWC0)
	default:
		inst.Format = FormatI
		inst.Op = primaryOps[opcode]
	}

	return inst
}

var primaryOps = [64]Op{
	opcBEQ: OpBEQ, opcBNE: OpBNE, opcBLEZ: OpBLEZ, opcBGTZ: OpBGTZ,
	opcADDI: OpADDI, opcADDIU: OpADDIU, opcSLTI: OpSLTI, opcSLTIU: OpSLTIU,
	opcANDI: OpANDI, opcORI: OpORI, opcXORI: OpXORI, opcLUI: OpLUI,
	opcLB: OpLB, opcLH: OpLH, opcLWL: OpLWL, opcLW: OpLW,
	opcLBU: OpLBU, opcLHU: OpLHU, opcLWR: OpLWR,
	opcSB: OpSB, opcSH: OpSH, opcSWL: OpSWL, opcSW: OpSW, opcSWR: OpSWR,
}

var specialOps = [64]Op{
	fnSLL: OpSLL, fnSRL: OpSRL, fnSRA: OpSRA,
	fnSLLV: OpSLLV, fnSRLV: OpSRLV, fnSRAV: OpSRAV,
	fnJR: OpJR, fnJALR: OpJALR,
	fnSYSCALL: OpSYSCALL, fnBREAK: OpBREAK,
	fnMFHI: OpMFHI, fnMTHI: OpMTHI, fnMFLO: OpMFLO, fnMTLO: OpMTLO,
	fnMULT: OpMULT, fnMULTU: OpMULTU, fnDIV: OpDIV, fnDIVU: OpDIVU,
	fnADD: OpADD, fnADDU: OpADDU, fnSUB: OpSUB, fnSUBU: OpSUBU,
	fnAND: OpAND, fnOR: OpOR, fnXOR: OpXOR, fnNOR: OpNOR,
	fnSLT: OpSLT, fnSLTU: OpSLTU,
}

func decodeSpecial(funct uint32) Op {
	return specialOps[funct]
}

// decodeRegImm decodes the BcondZ group. Every rt value is defined: bit 0
// selects GEZ, and rt 0x10/0x11 additionally link.
func decodeRegImm(rt uint8) Op {
	ge := rt&1 != 0
	link := rt&0x1E == 0x10
	switch {
	case ge && link:
		return OpBGEZAL
	case ge:
		return OpBGEZ
	case link:
		return OpBLTZAL
	default:
		return OpBLTZ
	}
}

func decodeCop(cop int, rs uint8, funct uint32) Op {
	switch cop {
	case 0:
		switch {
		case rs == copMF:
			return OpMFC0
		case rs == copMT:
			return OpMTC0
		case rs&copCO != 0 && funct == cop0FnRFE:
			return OpRFE
		}
		return OpInvalid
	case 2:
		return OpCOP2
	default:
		return OpCOP
	}
}

func decodeCopLoadStore(cop int, load bool) Op {
	switch cop {
	case 0:
		return OpInvalid
	case 2:
		if load {
			return OpLWC2
		}
		return OpSWC2
	default:
		return OpCOP
	}
}

// Legality is the decode-stage classification of an instruction.
type Legality uint8

// Decode-legality classes.
const (
	Legal Legality = iota
	Illegal
	CoprocessorUnusable
)

// String returns the name of the legality class.
func (l Legality) String() string {
	switch l {
	case Legal:
		return "Legal"
	case Illegal:
		return "Illegal"
	case CoprocessorUnusable:
		return "CoprocessorUnusable"
	}
	return "Legality(?)"
}

// CoprocessorChecker reports coprocessor usability in the current mode.
type CoprocessorChecker interface {
	IsCoprocessorAvailable(n int) bool
}

// Classify returns the decode-legality class of inst. Coprocessor
// usability is checked before the coprocessor sub-operation is validated.
func Classify(inst Instruction, cop CoprocessorChecker) Legality {
	if inst.Cop >= 0 && !cop.IsCoprocessorAvailable(int(inst.Cop)) {
		return CoprocessorUnusable
	}
	if inst.Op == OpInvalid {
		return Illegal
	}
	return Legal
}
