// Package core assembles the register file, coprocessor 0 and pipeline into
// a single R3000A CPU that a machine model can step cycle by cycle.
package core

import (
	"fmt"
	"strings"

	"github.com/sarchlab/r3ksim/emu"
	"github.com/sarchlab/r3ksim/timing/pipeline"
)

// Stats counts what the core has done since reset. Stalls are Hi/Lo
// interlock cycles; Flushes are instructions squashed by exceptions.
type Stats struct {
	Cycles, Instructions uint64
	Stalls               uint64
	Exceptions, Flushes  uint64
}

// CPI is Cycles over Instructions, or zero before the first retirement.
func (s Stats) CPI() float64 {
	if s.Instructions > 0 {
		return float64(s.Cycles) / float64(s.Instructions)
	}
	return 0
}

// State is a snapshot of the architectural state.
type State struct {
	PC       uint32
	R        [emu.NumRegs]uint32
	Hi, Lo   uint32
	Status   uint32
	Cause    uint32
	EPC      uint32
	BadVAddr uint32
}

// regNames are the conventional MIPS register names.
var regNames = [emu.NumRegs]string{
	"zero", "at", "v0", "v1", "a0", "a1", "a2", "a3",
	"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7",
	"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7",
	"t8", "t9", "k0", "k1", "gp", "sp", "fp", "ra",
}

// RegName returns the conventional name of register r.
func RegName(r int) string {
	if r < 0 || r >= emu.NumRegs {
		return fmt.Sprintf("r%d", r)
	}
	return regNames[r]
}

// Format renders the snapshot as a register dump with the given number of
// registers per row.
func (s State) Format(perRow int) string {
	if perRow < 1 {
		perRow = 1
	}

	var b strings.Builder
	fmt.Fprintf(&b, "pc   %08X  hi   %08X  lo   %08X\n", s.PC, s.Hi, s.Lo)
	fmt.Fprintf(&b, "sr   %08X  cause %08X epc  %08X  badv %08X\n",
		s.Status, s.Cause, s.EPC, s.BadVAddr)
	for i, v := range s.R {
		fmt.Fprintf(&b, "%-4s %08X", regNames[i], v)
		if (i+1)%perRow == 0 || i == len(s.R)-1 {
			b.WriteByte('\n')
		} else {
			b.WriteString("  ")
		}
	}
	return b.String()
}

// Core owns the register file and coprocessor 0 and drives a five-stage
// pipeline against a caller-supplied memory port.
type Core struct {
	Pipeline *pipeline.Pipeline

	regs *emu.RegFile
	cop0 *emu.ExceptionUnit
	port emu.MemoryPort
}

// NewCore creates a new Core in its reset state.
func NewCore(port emu.MemoryPort, opts ...pipeline.PipelineOption) *Core {
	c := &Core{
		regs: &emu.RegFile{},
		cop0: emu.NewExceptionUnit(emu.DefaultPRId),
		port: port,
	}
	c.Pipeline = pipeline.NewPipeline(c.regs, c.cop0, port, opts...)
	return c
}

// PC returns the address of the next fetch.
func (c *Core) PC() uint32 {
	return c.Pipeline.PC()
}

// SetPC redirects the next fetch to pc. Instructions already in flight
// still complete; call Flush first to drop them.
func (c *Core) SetPC(pc uint32) {
	c.Pipeline.SetPC(pc)
}

// Flush drops every instruction that has not yet retired.
func (c *Core) Flush() {
	c.Pipeline.Flush()
}

// ReadReg returns general-purpose register r.
func (c *Core) ReadReg(r uint8) uint32 {
	return c.regs.Read(r)
}

// WriteReg sets general-purpose register r. Writes to r0 are ignored.
func (c *Core) WriteReg(r uint8, value uint32) {
	c.regs.Write(r, value)
}

// ReadCP0 returns coprocessor 0 register reg.
func (c *Core) ReadCP0(reg uint8) uint32 {
	return c.cop0.Read(reg)
}

// WriteCP0 writes coprocessor 0 register reg with MTC0 semantics.
func (c *Core) WriteCP0(reg uint8, value uint32) error {
	return c.cop0.Write(reg, value)
}

// Snapshot returns the current architectural state.
func (c *Core) Snapshot() State {
	return State{
		PC:       c.Pipeline.PC(),
		R:        c.regs.R,
		Hi:       c.regs.Hi,
		Lo:       c.regs.Lo,
		Status:   c.cop0.Status,
		Cause:    c.cop0.Cause,
		EPC:      c.cop0.EPC,
		BadVAddr: c.cop0.BadVAddr,
	}
}

// Step executes one pipeline cycle. It returns an error only for
// host-fatal conditions.
func (c *Core) Step() error {
	return c.Pipeline.Step()
}

// Halted reports whether an exception handler or a fatal error stopped
// the core.
func (c *Core) Halted() bool {
	return c.Pipeline.Halted()
}

// ExitCode is the code the halting handler returned.
func (c *Core) ExitCode() uint32 {
	return c.Pipeline.ExitCode()
}

// Err returns the error that halted the core, if any.
func (c *Core) Err() error {
	return c.Pipeline.Err()
}

func (c *Core) Stats() Stats {
	ps := c.Pipeline.Stats()
	return Stats{
		Cycles:       ps.Cycles,
		Instructions: ps.Instructions,
		Stalls:       ps.Stalls,
		Exceptions:   ps.Exceptions,
		Flushes:      ps.Flushes,
	}
}

// Run steps until the core halts and returns its exit code.
func (c *Core) Run() (uint32, error) {
	return c.Pipeline.Run()
}

// RunCycles steps at most n cycles. It reports whether the core is still
// running afterwards.
func (c *Core) RunCycles(n uint64) bool {
	return c.Pipeline.RunCycles(n)
}

// Reset restores the power-on state. Memory is not touched.
func (c *Core) Reset() {
	c.Pipeline.Reset()
}
