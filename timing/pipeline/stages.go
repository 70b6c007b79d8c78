package pipeline

import (
	"fmt"

	"github.com/sarchlab/r3ksim/emu"
	"github.com/sarchlab/r3ksim/insts"
	"github.com/sarchlab/r3ksim/timing/cache"
)

// Fault is an exception raised by a stage, before it is attributed to an
// instruction.
type Fault struct {
	Kind     emu.ExceptionKind
	BadVAddr uint32
}

// kseg1Base is the start of the uncached kernel segment.
const kseg1Base = 0xA0000000

// FetchStage reads instruction words, through the instruction cache when
// one is configured.
type FetchStage struct {
	port   emu.MemoryPort
	icache *cache.ICache
}

// NewFetchStage creates a new fetch stage. icache may be nil.
func NewFetchStage(port emu.MemoryPort, icache *cache.ICache) *FetchStage {
	return &FetchStage{port: port, icache: icache}
}

// Fetch reads the instruction at pc. KSEG1 fetches bypass the cache.
func (s *FetchStage) Fetch(pc uint32) uint32 {
	if s.icache != nil && pc < kseg1Base {
		word, _ := s.icache.Fetch(emu.Physical(pc))
		return word
	}
	return s.port.Read(pc, emu.Word)
}

// DecodeStage classifies instructions, resolves branches and applies the
// coprocessor 0 operations that take effect at decode.
type DecodeStage struct {
	cop0 *emu.ExceptionUnit
	port emu.MemoryPort
}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage(cop0 *emu.ExceptionUnit, port emu.MemoryPort) *DecodeStage {
	return &DecodeStage{cop0: cop0, port: port}
}

// DecodeResult holds the result of the decode stage.
type DecodeResult struct {
	// Fault is set when the instruction raises an exception at decode.
	Fault *Fault

	// Err is set for conditions the simulator cannot continue past.
	Err error

	// Branch resolution.
	IsBranch     bool
	BranchTaken  bool
	BranchTarget uint32

	// Write is a link or MFC0 result.
	Write PendingWrite
}

// Decode processes inst located at pc. rs and rt are the operand values
// visible at decode.
func (s *DecodeStage) Decode(inst insts.Instruction, pc, rs, rt uint32) DecodeResult {
	var result DecodeResult

	switch insts.Classify(inst, s.cop0) {
	case insts.Illegal:
		result.Fault = &Fault{Kind: emu.ExcReservedInstruction}
		return result
	case insts.CoprocessorUnusable:
		result.Fault = &Fault{Kind: emu.ExcCoprocessorUnusable}
		return result
	}

	if inst.Unimplemented() {
		result.Err = fmt.Errorf("%w: %s at 0x%08X", emu.ErrUnimplemented, inst.Op, pc)
		return result
	}

	switch inst.Op {
	case insts.OpBEQ:
		s.branch(&result, inst, pc, rs == rt)
	case insts.OpBNE:
		s.branch(&result, inst, pc, rs != rt)
	case insts.OpBLEZ:
		s.branch(&result, inst, pc, int32(rs) <= 0)
	case insts.OpBGTZ:
		s.branch(&result, inst, pc, int32(rs) > 0)
	case insts.OpBLTZ:
		s.branch(&result, inst, pc, int32(rs) < 0)
	case insts.OpBGEZ:
		s.branch(&result, inst, pc, int32(rs) >= 0)
	case insts.OpBLTZAL:
		s.branch(&result, inst, pc, int32(rs) < 0)
		result.Write = link(31, pc)
	case insts.OpBGEZAL:
		s.branch(&result, inst, pc, int32(rs) >= 0)
		result.Write = link(31, pc)

	case insts.OpJ, insts.OpJAL:
		result.IsBranch = true
		result.BranchTaken = true
		result.BranchTarget = inst.JumpTarget(pc)
		if inst.Op == insts.OpJAL {
			result.Write = link(31, pc)
		}

	case insts.OpJR, insts.OpJALR:
		if rs&3 != 0 || !s.port.VerifyInstructionAddress(rs) {
			result.Fault = &Fault{Kind: emu.ExcAddressErrorLoad, BadVAddr: rs}
			return result
		}
		result.IsBranch = true
		result.BranchTaken = true
		result.BranchTarget = rs
		if inst.Op == insts.OpJALR {
			result.Write = link(inst.Rd, pc)
		}

	case insts.OpMTC0:
		if err := s.cop0.Write(inst.Rd, rt); err != nil {
			result.Err = fmt.Errorf("MTC0 at 0x%08X: %w", pc, err)
		}
	case insts.OpMFC0:
		if inst.Rt != 0 {
			result.Write = PendingWrite{
				Valid:   true,
				Reg:     inst.Rt,
				Value:   s.cop0.Read(inst.Rd),
				Delayed: true,
			}
		}
	case insts.OpRFE:
		s.cop0.ReturnFromException()
	}

	return result
}

func (s *DecodeStage) branch(result *DecodeResult, inst insts.Instruction, pc uint32, taken bool) {
	result.IsBranch = true
	result.BranchTaken = taken
	result.BranchTarget = inst.BranchTarget(pc)
}

// link returns the return-address write of a branch at pc.
func link(reg uint8, pc uint32) PendingWrite {
	if reg == 0 {
		return PendingWrite{}
	}
	return PendingWrite{Valid: true, Reg: reg, Value: pc + 8}
}

// ExecuteStage performs ALU operations and drives the multiply/divide unit.
type ExecuteStage struct {
	regFile *emu.RegFile
	hazard  *HazardUnit
}

// NewExecuteStage creates a new execute stage.
func NewExecuteStage(regFile *emu.RegFile, hazard *HazardUnit) *ExecuteStage {
	return &ExecuteStage{regFile: regFile, hazard: hazard}
}

// ExecuteResult holds the result of the execute stage.
type ExecuteResult struct {
	// Write is the ALU result, if any.
	Write PendingWrite

	// Fault is set for overflow, SYSCALL and BREAK.
	Fault *Fault

	// Blocked is set when an MFHI/MFLO must wait for the multiply/divide
	// unit. Nothing else in the result is meaningful then.
	Blocked bool

	// Operands latched for the memory stage.
	Base       uint32
	StoreValue uint32
}

// Execute runs inst with operand values rs and rt.
func (s *ExecuteStage) Execute(inst insts.Instruction, rs, rt uint32) ExecuteResult {
	var result ExecuteResult

	rd := func(v uint32) { result.Write = regWrite(inst.Rd, v) }
	rtw := func(v uint32) { result.Write = regWrite(inst.Rt, v) }
	overflow := func() { result.Fault = &Fault{Kind: emu.ExcArithmeticOverflow} }

	switch inst.Op {
	case insts.OpSLL:
		rd(rt << inst.Shamt)
	case insts.OpSRL:
		rd(rt >> inst.Shamt)
	case insts.OpSRA:
		rd(emu.ShiftRightArithmetic(rt, uint32(inst.Shamt)))
	case insts.OpSLLV:
		rd(rt << (rs & 31))
	case insts.OpSRLV:
		rd(rt >> (rs & 31))
	case insts.OpSRAV:
		rd(emu.ShiftRightArithmetic(rt, rs&31))

	case insts.OpADD:
		if v, ovf := emu.AddOverflow(rs, rt); ovf {
			overflow()
		} else {
			rd(v)
		}
	case insts.OpADDU:
		rd(rs + rt)
	case insts.OpSUB:
		if v, ovf := emu.SubOverflow(rs, rt); ovf {
			overflow()
		} else {
			rd(v)
		}
	case insts.OpSUBU:
		rd(rs - rt)
	case insts.OpAND:
		rd(rs & rt)
	case insts.OpOR:
		rd(rs | rt)
	case insts.OpXOR:
		rd(rs ^ rt)
	case insts.OpNOR:
		rd(^(rs | rt))
	case insts.OpSLT:
		rd(emu.SetLessThan(rs, rt))
	case insts.OpSLTU:
		rd(emu.SetLessThanUnsigned(rs, rt))

	case insts.OpADDI:
		if v, ovf := emu.AddOverflow(rs, inst.SImm()); ovf {
			overflow()
		} else {
			rtw(v)
		}
	case insts.OpADDIU:
		rtw(rs + inst.SImm())
	case insts.OpSLTI:
		rtw(emu.SetLessThan(rs, inst.SImm()))
	case insts.OpSLTIU:
		rtw(emu.SetLessThanUnsigned(rs, inst.SImm()))
	case insts.OpANDI:
		rtw(rs & inst.ZImm())
	case insts.OpORI:
		rtw(rs | inst.ZImm())
	case insts.OpXORI:
		rtw(rs ^ inst.ZImm())
	case insts.OpLUI:
		rtw(inst.ZImm() << 16)

	case insts.OpMULT:
		s.regFile.Hi, s.regFile.Lo = emu.Mult(rs, rt)
		s.hazard.Start(inst, rs)
	case insts.OpMULTU:
		s.regFile.Hi, s.regFile.Lo = emu.Multu(rs, rt)
		s.hazard.Start(inst, rs)
	case insts.OpDIV:
		s.regFile.Hi, s.regFile.Lo = emu.Div(rs, rt)
		s.hazard.Start(inst, rs)
	case insts.OpDIVU:
		s.regFile.Hi, s.regFile.Lo = emu.Divu(rs, rt)
		s.hazard.Start(inst, rs)
	case insts.OpMFHI:
		if !s.hazard.TryReadHiLo() {
			result.Blocked = true
			return result
		}
		rd(s.regFile.Hi)
	case insts.OpMFLO:
		if !s.hazard.TryReadHiLo() {
			result.Blocked = true
			return result
		}
		rd(s.regFile.Lo)
	case insts.OpMTHI:
		s.regFile.Hi = rs
	case insts.OpMTLO:
		s.regFile.Lo = rs

	case insts.OpSYSCALL:
		result.Fault = &Fault{Kind: emu.ExcSyscall}
	case insts.OpBREAK:
		result.Fault = &Fault{Kind: emu.ExcBreakpoint}

	default:
		if inst.IsLoad() || inst.IsStore() {
			result.Base = rs
			result.StoreValue = rt
		}
	}

	return result
}

func regWrite(reg uint8, value uint32) PendingWrite {
	if reg == 0 {
		return PendingWrite{}
	}
	return PendingWrite{Valid: true, Reg: reg, Value: value}
}

// MemoryStage performs loads and stores.
type MemoryStage struct {
	port   emu.MemoryPort
	cop0   *emu.ExceptionUnit
	icache *cache.ICache
}

// NewMemoryStage creates a new memory stage. icache may be nil.
func NewMemoryStage(port emu.MemoryPort, cop0 *emu.ExceptionUnit, icache *cache.ICache) *MemoryStage {
	return &MemoryStage{port: port, cop0: cop0, icache: icache}
}

// MemoryResult holds the result of the memory stage.
type MemoryResult struct {
	// Write is the loaded value. It is always Delayed.
	Write PendingWrite

	// Fault is set for address errors.
	Fault *Fault
}

// alignMask returns the address bits that must be clear for op.
func alignMask(op insts.Op) uint32 {
	switch op {
	case insts.OpLH, insts.OpLHU, insts.OpSH:
		return 1
	case insts.OpLW, insts.OpSW:
		return 3
	}
	return 0
}

// Access performs the memory operation of the instruction in slot, using
// the operands latched by Execute.
func (s *MemoryStage) Access(slot *Slot) MemoryResult {
	var result MemoryResult
	inst := slot.Inst
	ea := slot.Base + inst.SImm()

	if ea&alignMask(inst.Op) != 0 || !s.port.VerifyDataAddress(ea) {
		kind := emu.ExcAddressErrorLoad
		if inst.IsStore() {
			kind = emu.ExcAddressErrorStore
		}
		result.Fault = &Fault{Kind: kind, BadVAddr: ea}
		return result
	}

	if inst.IsLoad() {
		result.Write = s.load(inst, ea, slot.StoreValue)
		return result
	}

	s.store(inst, ea, slot.StoreValue)
	return result
}

func (s *MemoryStage) load(inst insts.Instruction, ea, rt uint32) PendingWrite {
	var value uint32
	switch inst.Op {
	case insts.OpLB:
		value = uint32(int32(int8(s.port.Read(ea, emu.Byte))))
	case insts.OpLBU:
		value = s.port.Read(ea, emu.Byte) & 0xFF
	case insts.OpLH:
		value = uint32(int32(int16(s.port.Read(ea, emu.Half))))
	case insts.OpLHU:
		value = s.port.Read(ea, emu.Half) & 0xFFFF
	case insts.OpLW:
		value = s.port.Read(ea, emu.Word)
	case insts.OpLWL:
		value = emu.LoadLeft(rt, s.port.Read(ea&^3, emu.Word), ea&3)
	case insts.OpLWR:
		value = emu.LoadRight(rt, s.port.Read(ea&^3, emu.Word), ea&3)
	}

	if inst.Rt == 0 {
		return PendingWrite{}
	}
	return PendingWrite{Valid: true, Reg: inst.Rt, Value: value, Delayed: true}
}

func (s *MemoryStage) store(inst insts.Instruction, ea, rt uint32) {
	if s.cop0.CacheIsolated() {
		if s.icache != nil {
			s.icache.Invalidate(emu.Physical(ea))
		}
		return
	}

	switch inst.Op {
	case insts.OpSB:
		s.port.Write(ea, rt&0xFF, emu.Byte)
	case insts.OpSH:
		s.port.Write(ea, rt&0xFFFF, emu.Half)
	case insts.OpSW:
		s.port.Write(ea, rt, emu.Word)
	case insts.OpSWL:
		mem := s.port.Read(ea&^3, emu.Word)
		s.port.Write(ea&^3, emu.StoreLeft(mem, rt, ea&3), emu.Word)
	case insts.OpSWR:
		mem := s.port.Read(ea&^3, emu.Word)
		s.port.Write(ea&^3, emu.StoreRight(mem, rt, ea&3), emu.Word)
	}
}

// WritebackStage commits staged register writes.
type WritebackStage struct {
	regFile *emu.RegFile
}

// NewWritebackStage creates a new writeback stage.
func NewWritebackStage(regFile *emu.RegFile) *WritebackStage {
	return &WritebackStage{regFile: regFile}
}

// Writeback commits the pending write of slot. It reports whether the slot
// held an instruction, which then retires.
func (s *WritebackStage) Writeback(slot *Slot) bool {
	if !slot.Valid {
		return false
	}
	if slot.Pending.Valid {
		s.regFile.Write(slot.Pending.Reg, slot.Pending.Value)
		slot.Pending = PendingWrite{}
	}
	return true
}
