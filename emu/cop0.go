package emu

import "fmt"

// CP0 register indices.
const (
	CP0BPC      = 3
	CP0BDA      = 5
	CP0JumpDest = 6
	CP0DCIC     = 7
	CP0BadVAddr = 8
	CP0BDAM     = 9
	CP0BPCM     = 11
	CP0Status   = 12
	CP0Cause    = 13
	CP0EPC      = 14
	CP0PRId     = 15
)

// Status register bits.
const (
	StatusIEc = 1 << 0 // current interrupt enable
	StatusKUc = 1 << 1 // current mode, 1 = user
	StatusIsC = 1 << 16
	StatusBEV = 1 << 22
	StatusCU0 = 1 << 28

	statusModeMask = 0x3F
	statusIMSW     = 0x300 // software interrupt mask bits
)

// Cause register bits.
const (
	causeExcCodeShift = 2
	causeExcCodeMask  = 0x1F << causeExcCodeShift
	causeIPSW         = 0x300 // software interrupt pending, externally writable
	causeCEShift      = 28
	causeCEMask       = 0x3 << causeCEShift
	CauseBT           = 1 << 30
	CauseBD           = 1 << 31
)

// Reset-time constants.
const (
	// ResetVector is the address of the first instruction after reset.
	ResetVector uint32 = 0xBFC00000

	// DefaultPRId is the processor revision reported by R3000A parts.
	DefaultPRId uint32 = 0x00000002

	// ResetStatus is the Status image after reset: boot vectors selected,
	// kernel mode, interrupts disabled.
	ResetStatus uint32 = StatusBEV
)

// Exception vectors, selected by Status.BEV and the exception kind.
const (
	VectorGeneralRAM    uint32 = 0x80000080
	VectorBreakpointRAM uint32 = 0x80000040
	VectorGeneralROM    uint32 = 0xBFC00180
	VectorBreakpointROM uint32 = 0xBFC00140
)

// ExceptionUnit models coprocessor 0: exception state, the privilege-mode
// stack and the inert breakpoint registers.
type ExceptionUnit struct {
	Status   uint32
	Cause    uint32
	EPC      uint32
	BadVAddr uint32
	JumpDest uint32

	prid uint32

	// Breakpoint registers are stored but have no effect.
	bpc, bda, dcic, bdam, bpcm uint32
}

// NewExceptionUnit creates a CP0 in its reset state.
func NewExceptionUnit(prid uint32) *ExceptionUnit {
	u := &ExceptionUnit{prid: prid}
	u.Reset()
	return u
}

// Reset restores the startup image.
func (u *ExceptionUnit) Reset() {
	prid := u.prid
	*u = ExceptionUnit{prid: prid, Status: ResetStatus}
}

// PRId returns the processor revision identifier.
func (u *ExceptionUnit) PRId() uint32 {
	return u.prid
}

// SetException records a fault and pushes the privilege-mode stack.
// The caller passes the resume address in epc, already pointing at the
// branch when inBranchDelay is set.
func (u *ExceptionUnit) SetException(
	kind ExceptionKind,
	epc uint32,
	instruction uint32,
	inBranchDelay bool,
	faultAddr uint32,
) {
	if kind.IsAddressError() {
		u.BadVAddr = faultAddr
	}
	u.EPC = epc

	cause := u.Cause &^ (causeExcCodeMask | causeCEMask | CauseBD | CauseBT)
	cause |= uint32(kind) << causeExcCodeShift & causeExcCodeMask
	cause |= (instruction >> 26 & 0x3) << causeCEShift
	if inBranchDelay {
		cause |= CauseBD
	}
	u.Cause = cause

	// Kernel mode with interrupts disabled is pushed; the oldest pair is lost.
	mode := u.Status & statusModeMask
	u.Status = u.Status&^statusModeMask | (mode<<2)&statusModeMask
}

// SetBranchTarget records whether the branch owning a faulting delay slot
// was taken, and where it was going.
func (u *ExceptionUnit) SetBranchTarget(taken bool, dest uint32) {
	if taken {
		u.Cause |= CauseBT
		u.JumpDest = dest
		return
	}
	u.Cause &^= CauseBT
}

// ExceptionKind returns the code of the most recent exception.
func (u *ExceptionUnit) ExceptionKind() ExceptionKind {
	return ExceptionKind((u.Cause & causeExcCodeMask) >> causeExcCodeShift)
}

// GetExceptionVector returns the handler address for the most recent
// exception.
func (u *ExceptionUnit) GetExceptionVector() uint32 {
	brk := u.ExceptionKind() == ExcBreakpoint
	if u.Status&StatusBEV != 0 {
		if brk {
			return VectorBreakpointROM
		}
		return VectorGeneralROM
	}
	if brk {
		return VectorBreakpointRAM
	}
	return VectorGeneralRAM
}

// ReturnFromException pops the privilege-mode stack. PC and Cause are not
// touched.
func (u *ExceptionUnit) ReturnFromException() {
	u.Status = u.Status&^statusModeMask | (u.Status>>2)&statusModeMask
}

// KernelMode reports whether the processor currently runs in kernel mode.
func (u *ExceptionUnit) KernelMode() bool {
	return u.Status&StatusKUc == 0
}

// IsCoprocessorAvailable reports whether instructions for coprocessor n may
// execute in the current mode.
func (u *ExceptionUnit) IsCoprocessorAvailable(n int) bool {
	switch n {
	case 0:
		if u.KernelMode() {
			return true
		}
		return u.Status&StatusCU0 != 0
	case 2:
		return u.Status&(StatusCU0<<2) != 0
	default:
		return false
	}
}

// CacheIsolated reports whether data stores are isolated from memory.
func (u *ExceptionUnit) CacheIsolated() bool {
	return u.Status&StatusIsC != 0
}

// InterruptPending reports whether a software interrupt should be taken.
func (u *ExceptionUnit) InterruptPending() bool {
	if u.Status&StatusIEc == 0 {
		return false
	}
	return u.Cause&u.Status&statusIMSW != 0
}

// Read returns the value of a CP0 register. Unmapped indices read as 0.
func (u *ExceptionUnit) Read(reg uint8) uint32 {
	switch reg {
	case CP0BPC:
		return u.bpc
	case CP0BDA:
		return u.bda
	case CP0JumpDest:
		return u.JumpDest
	case CP0DCIC:
		return u.dcic
	case CP0BadVAddr:
		return u.BadVAddr
	case CP0BDAM:
		return u.bdam
	case CP0BPCM:
		return u.bpcm
	case CP0Status:
		return u.Status
	case CP0Cause:
		return u.Cause
	case CP0EPC:
		return u.EPC
	case CP0PRId:
		return u.prid
	default:
		return 0
	}
}

// Write stores a value into a CP0 register as MTC0 does. Read-only and
// unmapped registers ignore the write. A nonzero write to BPC or BDA
// returns an error wrapping ErrUnsupported.
func (u *ExceptionUnit) Write(reg uint8, value uint32) error {
	switch reg {
	case CP0BPC:
		u.bpc = value
		if value != 0 {
			return fmt.Errorf("%w: BPC write 0x%08X", ErrUnsupported, value)
		}
	case CP0BDA:
		u.bda = value
		if value != 0 {
			return fmt.Errorf("%w: BDA write 0x%08X", ErrUnsupported, value)
		}
	case CP0DCIC:
		u.dcic = value
	case CP0BDAM:
		u.bdam = value
	case CP0BPCM:
		u.bpcm = value
	case CP0Status:
		u.Status = value
	case CP0Cause:
		u.Cause = u.Cause&^causeIPSW | value&causeIPSW
	}
	return nil
}
