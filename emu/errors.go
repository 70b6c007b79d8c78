package emu

import "errors"

// Host-fatal conditions. These mean the emulation does not model a feature
// the guest relies on; they are never delivered to the guest as exceptions.
var (
	// ErrUnimplemented is returned when the guest executes an instruction
	// class the core does not implement (COP2 vector instructions).
	ErrUnimplemented = errors.New("unimplemented instruction")

	// ErrUnsupported is returned when the guest programs a feature the core
	// accepts but does not model (hardware breakpoints).
	ErrUnsupported = errors.New("unsupported feature")
)
