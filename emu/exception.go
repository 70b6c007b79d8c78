package emu

import "fmt"

// ExceptionKind is the 5-bit exception code written to Cause bits 2-6.
type ExceptionKind uint8

// R3000A exception codes.
const (
	ExcInterrupt           ExceptionKind = 0x00
	ExcAddressErrorLoad    ExceptionKind = 0x04 // also raised by bad instruction fetch targets
	ExcAddressErrorStore   ExceptionKind = 0x05
	ExcSyscall             ExceptionKind = 0x08
	ExcBreakpoint          ExceptionKind = 0x09
	ExcReservedInstruction ExceptionKind = 0x0A
	ExcCoprocessorUnusable ExceptionKind = 0x0B
	ExcArithmeticOverflow  ExceptionKind = 0x0C
)

var exceptionNames = map[ExceptionKind]string{
	ExcInterrupt:           "Interrupt",
	ExcAddressErrorLoad:    "AddressErrorLoad",
	ExcAddressErrorStore:   "AddressErrorStore",
	ExcSyscall:             "Syscall",
	ExcBreakpoint:          "Breakpoint",
	ExcReservedInstruction: "ReservedInstruction",
	ExcCoprocessorUnusable: "CoprocessorUnusable",
	ExcArithmeticOverflow:  "ArithmeticOverflow",
}

// String returns the name of the exception kind.
func (k ExceptionKind) String() string {
	if name, ok := exceptionNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Exception(%d)", uint8(k))
}

// IsAddressError reports whether the kind records BadVAddr.
func (k ExceptionKind) IsAddressError() bool {
	return k == ExcAddressErrorLoad || k == ExcAddressErrorStore
}

// Exception is a fault raised by a pipeline stage. It lives for at most the
// few cycles it takes the pipeline to drain before it is handed to the
// ExceptionUnit.
type Exception struct {
	// Kind is the exception code.
	Kind ExceptionKind

	// PC is the address execution resumes at after the handler returns.
	// For a fault in a branch-delay slot this is the branch's address.
	PC uint32

	// Instruction is the recorded faulting instruction word (the branch
	// when InBranchDelaySlot is set).
	Instruction uint32

	// InBranchDelaySlot is set when the faulting instruction occupied the
	// delay slot of a branch or jump.
	InBranchDelaySlot bool

	// BranchTaken and BranchTarget describe the branch owning the delay
	// slot, when InBranchDelaySlot is set.
	BranchTaken  bool
	BranchTarget uint32

	// BadVAddr is the offending address for address-error kinds.
	BadVAddr uint32
}

// String formats the exception for logs.
func (e Exception) String() string {
	s := fmt.Sprintf("%s at 0x%08X", e.Kind, e.PC)
	if e.InBranchDelaySlot {
		s += " (delay slot)"
	}
	if e.Kind.IsAddressError() {
		s += fmt.Sprintf(" addr=0x%08X", e.BadVAddr)
	}
	return s
}
