// Package pipeline provides the 5-stage R3000A pipeline for cycle-stepped
// simulation.
//
// The five stages are held in a ring of slots. Each tick the ring rotates
// by one position, so an instruction's slot never moves; only its depth
// (distance from Fetch) grows. Depth 0 is Fetch and depth 4 is Writeback.
package pipeline

import (
	"github.com/sarchlab/r3ksim/emu"
	"github.com/sarchlab/r3ksim/insts"
)

// Stage depths within the slot ring.
const (
	FetchDepth = iota
	DecodeDepth
	ExecuteDepth
	MemoryDepth
	WritebackDepth

	// NumStages is the number of pipeline stages.
	NumStages
)

// StageName returns the name of the stage at depth.
func StageName(depth int) string {
	switch depth {
	case FetchDepth:
		return "Fetch"
	case DecodeDepth:
		return "Decode"
	case ExecuteDepth:
		return "Execute"
	case MemoryDepth:
		return "Memory"
	case WritebackDepth:
		return "Writeback"
	}
	return "?"
}

// PendingWrite is a register write staged by an in-flight instruction. It
// is committed to the register file when the owning slot is written back.
type PendingWrite struct {
	// Valid indicates a write is staged.
	Valid bool

	// Reg is the destination register. Never 0.
	Reg uint8

	// Value is the value to be written.
	Value uint32

	// Delayed marks load and MFC0 results. A delayed write is invisible to
	// the instruction immediately following its producer.
	Delayed bool
}

// Slot holds the state of one in-flight instruction.
type Slot struct {
	// Valid indicates the slot holds an instruction.
	Valid bool

	// SavedPC is the address the instruction was fetched from.
	SavedPC uint32

	// Instruction is the raw instruction word.
	Instruction uint32

	// Inst is the decoded instruction, filled in by Decode.
	Inst insts.Instruction

	// Branch-delay-slot bookkeeping, filled in when the preceding
	// instruction decodes as a branch.
	IsBranchDelaySlot bool
	BranchTaken       bool
	BranchTarget      uint32

	// Base and StoreValue are the rs and rt operands latched by Execute for
	// loads and stores. LWL/LWR use StoreValue as the merge source.
	Base       uint32
	StoreValue uint32

	// Pending is the register write this instruction will commit.
	Pending PendingWrite

	// cp0Before is the coprocessor 0 state from before this instruction's
	// MTC0 or RFE. It is restored if the instruction is squashed.
	cp0Before *emu.ExceptionUnit
}

// Clear resets the slot to the empty state.
func (s *Slot) Clear() {
	*s = Slot{}
}

// slotRing is the circular buffer of pipeline slots. The slot at depth d
// lives at index (cursor - d) mod NumStages.
type slotRing struct {
	slots  [NumStages]Slot
	cursor int
}

func (r *slotRing) advance() {
	r.cursor = (r.cursor + 1) % NumStages
}

func (r *slotRing) at(depth int) *Slot {
	return &r.slots[(r.cursor-depth+NumStages)%NumStages]
}

func (r *slotRing) clear() {
	for i := range r.slots {
		r.slots[i].Clear()
	}
	r.cursor = 0
}
