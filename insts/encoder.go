package insts

// EncodeR builds a SPECIAL-group register instruction.
func EncodeR(funct uint32, rs, rt, rd, shamt uint8) uint32 {
	return opcSpecial<<26 | uint32(rs)<<21 | uint32(rt)<<16 |
		uint32(rd)<<11 | uint32(shamt)<<6 | funct&0x3F
}

// EncodeI builds an immediate-format instruction.
func EncodeI(opcode uint32, rs, rt uint8, imm uint16) uint32 {
	return opcode<<26 | uint32(rs)<<21 | uint32(rt)<<16 | uint32(imm)
}

// EncodeJump builds a jump-format instruction. target is the byte address;
// its low two bits and top four bits are dropped.
func EncodeJump(opcode uint32, target uint32) uint32 {
	return opcode<<26 | target>>2&0x03FFFFFF
}

// EncodeCop builds a coprocessor register-move instruction.
func EncodeCop(cop uint32, rs, rt, rd uint8) uint32 {
	return (opcCOP0+cop)<<26 | uint32(rs)<<21 | uint32(rt)<<16 | uint32(rd)<<11
}

// NOP is the canonical no-op (SLL r0, r0, 0).
const NOP uint32 = 0

// ALU, register form.

func EncodeADD(rd, rs, rt uint8) uint32  { return EncodeR(fnADD, rs, rt, rd, 0) }
func EncodeADDU(rd, rs, rt uint8) uint32 { return EncodeR(fnADDU, rs, rt, rd, 0) }
func EncodeSUB(rd, rs, rt uint8) uint32  { return EncodeR(fnSUB, rs, rt, rd, 0) }
func EncodeSUBU(rd, rs, rt uint8) uint32 { return EncodeR(fnSUBU, rs, rt, rd, 0) }
func EncodeAND(rd, rs, rt uint8) uint32  { return EncodeR(fnAND, rs, rt, rd, 0) }
func EncodeOR(rd, rs, rt uint8) uint32   { return EncodeR(fnOR, rs, rt, rd, 0) }
func EncodeXOR(rd, rs, rt uint8) uint32  { return EncodeR(fnXOR, rs, rt, rd, 0) }
func EncodeNOR(rd, rs, rt uint8) uint32  { return EncodeR(fnNOR, rs, rt, rd, 0) }
func EncodeSLT(rd, rs, rt uint8) uint32  { return EncodeR(fnSLT, rs, rt, rd, 0) }
func EncodeSLTU(rd, rs, rt uint8) uint32 { return EncodeR(fnSLTU, rs, rt, rd, 0) }

// Shifts.

func EncodeSLL(rd, rt, sa uint8) uint32  { return EncodeR(fnSLL, 0, rt, rd, sa) }
func EncodeSRL(rd, rt, sa uint8) uint32  { return EncodeR(fnSRL, 0, rt, rd, sa) }
func EncodeSRA(rd, rt, sa uint8) uint32  { return EncodeR(fnSRA, 0, rt, rd, sa) }
func EncodeSLLV(rd, rt, rs uint8) uint32 { return EncodeR(fnSLLV, rs, rt, rd, 0) }
func EncodeSRLV(rd, rt, rs uint8) uint32 { return EncodeR(fnSRLV, rs, rt, rd, 0) }
func EncodeSRAV(rd, rt, rs uint8) uint32 { return EncodeR(fnSRAV, rs, rt, rd, 0) }

// Multiply/divide.

func EncodeMULT(rs, rt uint8) uint32  { return EncodeR(fnMULT, rs, rt, 0, 0) }
func EncodeMULTU(rs, rt uint8) uint32 { return EncodeR(fnMULTU, rs, rt, 0, 0) }
func EncodeDIV(rs, rt uint8) uint32   { return EncodeR(fnDIV, rs, rt, 0, 0) }
func EncodeDIVU(rs, rt uint8) uint32  { return EncodeR(fnDIVU, rs, rt, 0, 0) }
func EncodeMFHI(rd uint8) uint32      { return EncodeR(fnMFHI, 0, 0, rd, 0) }
func EncodeMFLO(rd uint8) uint32      { return EncodeR(fnMFLO, 0, 0, rd, 0) }
func EncodeMTHI(rs uint8) uint32      { return EncodeR(fnMTHI, rs, 0, 0, 0) }
func EncodeMTLO(rs uint8) uint32      { return EncodeR(fnMTLO, rs, 0, 0, 0) }

// Immediate forms.

func EncodeADDI(rt, rs uint8, imm int16) uint32  { return EncodeI(opcADDI, rs, rt, uint16(imm)) }
func EncodeADDIU(rt, rs uint8, imm int16) uint32 { return EncodeI(opcADDIU, rs, rt, uint16(imm)) }
func EncodeSLTI(rt, rs uint8, imm int16) uint32  { return EncodeI(opcSLTI, rs, rt, uint16(imm)) }
func EncodeSLTIU(rt, rs uint8, imm int16) uint32 { return EncodeI(opcSLTIU, rs, rt, uint16(imm)) }
func EncodeANDI(rt, rs uint8, imm uint16) uint32 { return EncodeI(opcANDI, rs, rt, imm) }
func EncodeORI(rt, rs uint8, imm uint16) uint32  { return EncodeI(opcORI, rs, rt, imm) }
func EncodeXORI(rt, rs uint8, imm uint16) uint32 { return EncodeI(opcXORI, rs, rt, imm) }
func EncodeLUI(rt uint8, imm uint16) uint32      { return EncodeI(opcLUI, 0, rt, imm) }

// Branches take the offset in instructions relative to the delay slot.

func EncodeBEQ(rs, rt uint8, off int16) uint32 { return EncodeI(opcBEQ, rs, rt, uint16(off)) }
func EncodeBNE(rs, rt uint8, off int16) uint32 { return EncodeI(opcBNE, rs, rt, uint16(off)) }
func EncodeBLEZ(rs uint8, off int16) uint32    { return EncodeI(opcBLEZ, rs, 0, uint16(off)) }
func EncodeBGTZ(rs uint8, off int16) uint32    { return EncodeI(opcBGTZ, rs, 0, uint16(off)) }
func EncodeBLTZ(rs uint8, off int16) uint32    { return EncodeI(opcRegImm, rs, 0x00, uint16(off)) }
func EncodeBGEZ(rs uint8, off int16) uint32    { return EncodeI(opcRegImm, rs, 0x01, uint16(off)) }
func EncodeBLTZAL(rs uint8, off int16) uint32  { return EncodeI(opcRegImm, rs, 0x10, uint16(off)) }
func EncodeBGEZAL(rs uint8, off int16) uint32  { return EncodeI(opcRegImm, rs, 0x11, uint16(off)) }

// Jumps.

func EncodeJ(target uint32) uint32      { return EncodeJump(opcJ, target) }
func EncodeJAL(target uint32) uint32    { return EncodeJump(opcJAL, target) }
func EncodeJR(rs uint8) uint32          { return EncodeR(fnJR, rs, 0, 0, 0) }
func EncodeJALR(rd, rs uint8) uint32    { return EncodeR(fnJALR, rs, 0, rd, 0) }
func EncodeSYSCALL(code uint32) uint32  { return code&0xFFFFF<<6 | fnSYSCALL }
func EncodeBREAK(code uint32) uint32    { return code&0xFFFFF<<6 | fnBREAK }

// Loads and stores: (rt, offset(base)).

func EncodeLB(rt, base uint8, off int16) uint32  { return EncodeI(opcLB, base, rt, uint16(off)) }
func EncodeLH(rt, base uint8, off int16) uint32  { return EncodeI(opcLH, base, rt, uint16(off)) }
func EncodeLWL(rt, base uint8, off int16) uint32 { return EncodeI(opcLWL, base, rt, uint16(off)) }
func EncodeLW(rt, base uint8, off int16) uint32  { return EncodeI(opcLW, base, rt, uint16(off)) }
func EncodeLBU(rt, base uint8, off int16) uint32 { return EncodeI(opcLBU, base, rt, uint16(off)) }
func EncodeLHU(rt, base uint8, off int16) uint32 { return EncodeI(opcLHU, base, rt, uint16(off)) }
func EncodeLWR(rt, base uint8, off int16) uint32 { return EncodeI(opcLWR, base, rt, uint16(off)) }
func EncodeSB(rt, base uint8, off int16) uint32  { return EncodeI(opcSB, base, rt, uint16(off)) }
func EncodeSH(rt, base uint8, off int16) uint32  { return EncodeI(opcSH, base, rt, uint16(off)) }
func EncodeSWL(rt, base uint8, off int16) uint32 { return EncodeI(opcSWL, base, rt, uint16(off)) }
func EncodeSW(rt, base uint8, off int16) uint32  { return EncodeI(opcSW, base, rt, uint16(off)) }
func EncodeSWR(rt, base uint8, off int16) uint32 { return EncodeI(opcSWR, base, rt, uint16(off)) }

// Coprocessor 0.

func EncodeMFC0(rt, rd uint8) uint32 { return EncodeCop(0, copMF, rt, rd) }
func EncodeMTC0(rt, rd uint8) uint32 { return EncodeCop(0, copMT, rt, rd) }
func EncodeRFE() uint32              { return opcCOP0<<26 | 1<<25 | cop0FnRFE }
