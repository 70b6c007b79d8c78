package pipeline

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/sarchlab/r3ksim/emu"
	"github.com/sarchlab/r3ksim/insts"
	"github.com/sarchlab/r3ksim/timing/cache"
	"github.com/sarchlab/r3ksim/timing/latency"
)

// Statistics counts pipeline events since the last Reset.
type Statistics struct {
	Cycles       uint64
	Instructions uint64 // retired through Writeback

	// Stalls counts ticks in which Decode waited for Hi/Lo. The tick that
	// resumes issue is not included.
	Stalls uint64

	Exceptions uint64
	Flushes    uint64 // younger instructions squashed at delivery
}

// CPI is cycles per retired instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions > 0 {
		return float64(s.Cycles) / float64(s.Instructions)
	}
	return 0
}

// ExceptionResult tells the pipeline what to do after an exception handler
// has observed a delivered exception.
type ExceptionResult struct {
	// Halt stops the pipeline.
	Halt bool
	// ExitCode is reported by ExitCode when Halt is set.
	ExitCode uint32
}

// ExceptionHandler observes exceptions after CP0 has been updated and the
// PC redirected to the vector.
type ExceptionHandler interface {
	HandleException(exc emu.Exception) ExceptionResult
}

// ExceptionHandlerFunc adapts a function to ExceptionHandler.
type ExceptionHandlerFunc func(exc emu.Exception) ExceptionResult

// HandleException calls f.
func (f ExceptionHandlerFunc) HandleException(exc emu.Exception) ExceptionResult {
	return f(exc)
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithExceptionHandler installs a handler that observes delivered
// exceptions.
func WithExceptionHandler(handler ExceptionHandler) PipelineOption {
	return func(p *Pipeline) {
		p.exceptionHandler = handler
	}
}

// WithLatencyTable sets the multiply/divide latency table.
func WithLatencyTable(table *latency.Table) PipelineOption {
	return func(p *Pipeline) {
		p.latencyTable = table
	}
}

// WithICache enables the instruction cache with the given configuration.
func WithICache(config cache.Config) PipelineOption {
	return func(p *Pipeline) {
		p.icache = cache.New(config, cache.NewPortBacking(p.port))
	}
}

// WithLogger sets the logger. Exceptions are logged at V(1) and interlock
// stalls at V(2).
func WithLogger(log logr.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.log = log
	}
}

// WithResetVector overrides the address fetched from after Reset.
func WithResetVector(pc uint32) PipelineOption {
	return func(p *Pipeline) {
		p.resetVector = pc
	}
}

// pendingTrap is an exception waiting for the older instructions to drain.
type pendingTrap struct {
	exc emu.Exception

	// remaining is the number of completed ticks before delivery.
	remaining int
}

// Pipeline is the R3000A's five-stage integer pipeline. Each Step ticks
// Fetch, Writeback, Memory, Execute and Decode in that order over a ring of
// in-flight slots.
type Pipeline struct {
	ring slotRing

	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage

	hazard       *HazardUnit
	latencyTable *latency.Table
	decoder      *insts.Decoder
	icache       *cache.ICache

	regFile *emu.RegFile
	cop0    *emu.ExceptionUnit
	port    emu.MemoryPort

	exceptionHandler ExceptionHandler

	// pc is the address of the next fetch.
	pc          uint32
	resetVector uint32

	trap          *pendingTrap
	lastException *emu.Exception

	stats Statistics

	// Execution state
	halted   bool
	exitCode uint32
	err      error

	log logr.Logger
}

// NewPipeline creates a new 5-stage pipeline in its reset state. regFile
// and cop0 are owned by the pipeline from then on.
func NewPipeline(
	regFile *emu.RegFile,
	cop0 *emu.ExceptionUnit,
	port emu.MemoryPort,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		regFile:     regFile,
		cop0:        cop0,
		port:        port,
		decoder:     insts.NewDecoder(),
		resetVector: emu.ResetVector,
		log:         logr.Discard(),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.hazard = NewHazardUnit(p.latencyTable)
	p.fetchStage = NewFetchStage(port, p.icache)
	p.decodeStage = NewDecodeStage(cop0, port)
	p.executeStage = NewExecuteStage(regFile, p.hazard)
	p.memoryStage = NewMemoryStage(port, cop0, p.icache)
	p.writebackStage = NewWritebackStage(regFile)

	p.Reset()
	return p
}

// PC returns the address of the next instruction fetch.
func (p *Pipeline) PC() uint32 {
	return p.pc
}

// SetPC redirects the next fetch. Instructions already in flight are not
// affected.
func (p *Pipeline) SetPC(pc uint32) {
	p.pc = pc
}

// RegFile returns the register file.
func (p *Pipeline) RegFile() *emu.RegFile {
	return p.regFile
}

// CP0 returns the exception unit.
func (p *Pipeline) CP0() *emu.ExceptionUnit {
	return p.cop0
}

// Hazard returns the multiply/divide interlock.
func (p *Pipeline) Hazard() *HazardUnit {
	return p.hazard
}

// Slot returns a copy of the slot at the given depth.
func (p *Pipeline) Slot(depth int) Slot {
	return *p.ring.at(depth)
}

// Stats returns the pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}

// LastException returns the most recently delivered exception, or nil.
func (p *Pipeline) LastException() *emu.Exception {
	return p.lastException
}

// Halted reports whether the pipeline has stopped, either through an
// exception handler or a host-fatal error.
func (p *Pipeline) Halted() bool {
	return p.halted
}

// ExitCode returns the exit code set by the exception handler.
func (p *Pipeline) ExitCode() uint32 {
	return p.exitCode
}

// Err returns the host-fatal error that halted the pipeline, if any.
func (p *Pipeline) Err() error {
	return p.err
}

// LatencyTable returns the multiply/divide latency table.
func (p *Pipeline) LatencyTable() *latency.Table {
	return p.hazard.table
}

// ICacheStats returns I-cache statistics, or empty if I-cache not enabled.
func (p *Pipeline) ICacheStats() cache.Statistics {
	if p.icache != nil {
		return p.icache.Stats()
	}
	return cache.Statistics{}
}

// UseICache returns true if I-cache is enabled.
func (p *Pipeline) UseICache() bool {
	return p.icache != nil
}

// Run steps the pipeline until it halts and returns the exit code.
func (p *Pipeline) Run() (uint32, error) {
	for !p.halted {
		if err := p.Step(); err != nil {
			return 0, err
		}
	}
	return p.exitCode, nil
}

// RunCycles steps the pipeline for the specified number of cycles.
// Returns true if still running, false if halted.
func (p *Pipeline) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles && !p.halted; i++ {
		_ = p.Step()
	}
	return !p.halted
}

// Step advances the pipeline by one clock cycle.
//
// A normal tick rotates the slot ring and runs the stages in the order
// Fetch, Writeback, Memory, Execute, Decode. Older stages therefore see the
// state of the previous cycle and the first stage to fault, in that order,
// wins. While an MFHI/MFLO is blocked on the multiply/divide unit nothing
// moves; when the unit frees up the blocked tick is finished from Execute.
//
// Step returns an error only for host-fatal conditions; guest exceptions
// are delivered through CP0.
func (p *Pipeline) Step() error {
	if p.halted {
		return p.err
	}

	p.stats.Cycles++
	p.hazard.Tick()

	if p.hazard.Blocked {
		if p.hazard.Busy() {
			p.stats.Stalls++
			p.log.V(2).Info("hi/lo interlock", "busy", p.hazard.BusyCycles)
			return nil
		}
		p.hazard.Blocked = false
		p.finishTick(false)
		return p.err
	}

	p.ring.advance()
	p.fetch()
	p.writeback()
	faulted := p.memory()
	p.finishTick(faulted)

	return p.err
}

// finishTick runs Execute and Decode unless an older stage already faulted,
// then counts down any pending exception.
func (p *Pipeline) finishTick(faulted bool) {
	if !faulted {
		var blocked bool
		faulted, blocked = p.execute()
		if blocked {
			p.log.V(2).Info("hi/lo interlock", "pc", hex(p.ring.at(ExecuteDepth).SavedPC),
				"busy", p.hazard.BusyCycles)
			return
		}
	}
	if !faulted && !p.halted {
		faulted = p.decode()
	}
	if p.halted {
		return
	}
	p.drainTrap(faulted)
}

func (p *Pipeline) fetch() {
	slot := p.ring.at(FetchDepth)
	slot.Clear()

	// The pipeline drains while an exception is pending.
	if p.trap != nil {
		return
	}

	slot.Valid = true
	slot.SavedPC = p.pc
	slot.Instruction = p.fetchStage.Fetch(p.pc)
	p.pc += 4
}

func (p *Pipeline) writeback() {
	if p.writebackStage.Writeback(p.ring.at(WritebackDepth)) {
		p.stats.Instructions++
	}
}

func (p *Pipeline) memory() bool {
	slot := p.ring.at(MemoryDepth)
	if !slot.Valid || !(slot.Inst.IsLoad() || slot.Inst.IsStore()) {
		return false
	}

	result := p.memoryStage.Access(slot)
	if result.Fault != nil {
		p.raise(MemoryDepth, *result.Fault)
		return true
	}
	if result.Write.Valid {
		slot.Pending = result.Write
	}
	return false
}

func (p *Pipeline) execute() (faulted, blocked bool) {
	slot := p.ring.at(ExecuteDepth)
	if !slot.Valid {
		return false, false
	}

	inst := slot.Inst
	mergesRt := inst.Op == insts.OpLWL || inst.Op == insts.OpLWR
	rs := p.readReg(ExecuteDepth, inst.Rs, false)
	rt := p.readReg(ExecuteDepth, inst.Rt, mergesRt)

	result := p.executeStage.Execute(inst, rs, rt)
	if result.Blocked {
		return false, true
	}
	if result.Fault != nil {
		p.raise(ExecuteDepth, *result.Fault)
		return true, false
	}

	slot.Base = result.Base
	slot.StoreValue = result.StoreValue
	if result.Write.Valid {
		slot.Pending = result.Write
	}
	return false, false
}

func (p *Pipeline) decode() bool {
	slot := p.ring.at(DecodeDepth)
	if !slot.Valid {
		return false
	}

	if p.cop0.InterruptPending() {
		p.raise(DecodeDepth, Fault{Kind: emu.ExcInterrupt})
		return true
	}

	inst := p.decoder.Decode(slot.Instruction)
	slot.Inst = inst

	rs := p.readReg(DecodeDepth, inst.Rs, false)
	rt := p.readReg(DecodeDepth, inst.Rt, false)

	var before *emu.ExceptionUnit
	if inst.Op == insts.OpMTC0 || inst.Op == insts.OpRFE {
		saved := *p.cop0
		before = &saved
	}

	result := p.decodeStage.Decode(inst, slot.SavedPC, rs, rt)
	if result.Err != nil {
		p.halt(result.Err, slot.SavedPC)
		return true
	}
	if result.Fault != nil {
		p.raise(DecodeDepth, *result.Fault)
		return true
	}

	slot.Pending = result.Write
	slot.cp0Before = before

	if result.IsBranch {
		delay := p.ring.at(FetchDepth)
		delay.IsBranchDelaySlot = true
		delay.BranchTaken = result.BranchTaken
		delay.BranchTarget = result.BranchTarget
		if result.BranchTaken {
			p.pc = result.BranchTarget
		}
	}

	return false
}

// readReg returns the value of reg as seen by the instruction at depth.
// Pending writes of older in-flight instructions are visible, nearest
// first, except a delayed write held by the immediately older instruction
// unless seeDelayed is set.
func (p *Pipeline) readReg(depth int, reg uint8, seeDelayed bool) uint32 {
	if reg == 0 {
		return 0
	}
	for d := depth + 1; d < NumStages; d++ {
		slot := p.ring.at(d)
		w := slot.Pending
		if !slot.Valid || !w.Valid || w.Reg != reg {
			continue
		}
		if w.Delayed && d == depth+1 && !seeDelayed {
			continue
		}
		return w.Value
	}
	return p.regFile.Read(reg)
}

// raise records a fault for the instruction at depth and squashes it along
// with everything younger. Delivery waits until the older instructions
// have left the pipeline.
func (p *Pipeline) raise(depth int, f Fault) {
	slot := p.ring.at(depth)
	exc := emu.Exception{
		Kind:        f.Kind,
		PC:          slot.SavedPC,
		Instruction: slot.Instruction,
		BadVAddr:    f.BadVAddr,
	}
	if slot.IsBranchDelaySlot {
		branch := p.ring.at(depth + 1)
		exc.PC = branch.SavedPC
		exc.Instruction = branch.Instruction
		exc.InBranchDelaySlot = true
		exc.BranchTaken = slot.BranchTaken
		exc.BranchTarget = slot.BranchTarget
	}

	p.undoCP0(depth)

	for d := FetchDepth; d <= depth; d++ {
		s := p.ring.at(d)
		if d < depth && s.Valid {
			p.stats.Flushes++
		}
		s.Clear()
	}

	if p.trap != nil {
		p.log.V(1).Info("exception replaced by older fault",
			"dropped", p.trap.exc.String(), "kind", exc.Kind.String())
	}
	p.trap = &pendingTrap{exc: exc, remaining: MemoryDepth - depth}
}

// undoCP0 rolls coprocessor 0 back past every MTC0 and RFE that decoded
// at or below depth. Those instructions are about to be squashed and will
// run again after the handler returns.
func (p *Pipeline) undoCP0(depth int) {
	for d := depth; d >= DecodeDepth; d-- {
		if s := p.ring.at(d); s.Valid && s.cp0Before != nil {
			*p.cop0 = *s.cp0Before
			return
		}
	}
}

// drainTrap counts down the pending exception and delivers it once every
// older instruction has retired.
func (p *Pipeline) drainTrap(raisedThisTick bool) {
	if p.trap == nil {
		return
	}
	if !raisedThisTick {
		p.trap.remaining--
	}
	if p.trap.remaining > 0 {
		return
	}

	exc := p.trap.exc
	p.trap = nil

	p.cop0.SetException(exc.Kind, exc.PC, exc.Instruction, exc.InBranchDelaySlot, exc.BadVAddr)
	if exc.InBranchDelaySlot {
		p.cop0.SetBranchTarget(exc.BranchTaken, exc.BranchTarget)
	}
	p.pc = p.cop0.GetExceptionVector()

	p.stats.Exceptions++
	p.lastException = &exc
	p.log.V(1).Info("exception", "exception", exc.String(), "vector", hex(p.pc))

	if p.exceptionHandler != nil {
		result := p.exceptionHandler.HandleException(exc)
		if result.Halt {
			p.halted = true
			p.exitCode = result.ExitCode
		}
	}
}

func (p *Pipeline) halt(err error, pc uint32) {
	p.halted = true
	p.err = err
	p.log.Error(err, "pipeline halted", "pc", hex(pc))
}

// Flush discards every instruction that has not retired, along with any
// undelivered exception. Coprocessor 0 changes made by the discarded
// instructions are rolled back; their register writes are lost.
func (p *Pipeline) Flush() {
	p.undoCP0(MemoryDepth)
	p.ring.clear()
	p.trap = nil
	p.hazard.Blocked = false
}

// Reset restores the startup state: empty pipeline, CP0 and register file
// reset, PC at the reset vector.
func (p *Pipeline) Reset() {
	p.ring.clear()
	p.regFile.Reset()
	p.cop0.Reset()
	p.hazard.Reset()
	if p.icache != nil {
		p.icache.Reset()
	}
	p.pc = p.resetVector
	p.trap = nil
	p.lastException = nil
	p.stats = Statistics{}
	p.halted = false
	p.exitCode = 0
	p.err = nil
}

func hex(v uint32) string {
	return fmt.Sprintf("0x%08X", v)
}
