// Package benchmarks measures the R3000A core's interlocks and exception
// overheads with small hand-assembled programs.
package benchmarks

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/go-logr/logr"

	"github.com/sarchlab/r3ksim/emu"
	"github.com/sarchlab/r3ksim/timing/cache"
	"github.com/sarchlab/r3ksim/timing/latency"
	"github.com/sarchlab/r3ksim/timing/pipeline"
)

// ProgramBase is where benchmark programs are loaded. It lies in cached
// KSEG0 so the instruction cache sees every fetch.
const ProgramBase uint32 = 0x80010000

// DataBase is a scratch area benchmarks may load from and store to.
const DataBase uint32 = 0x80020000

// DefaultMaxCycles bounds a benchmark that never reaches its BREAK.
const DefaultMaxCycles = 1_000_000

// Result is the outcome of one benchmark run.
type Result struct {
	Name                string        `json:"name"`
	Description         string        `json:"description"`
	SimulatedCycles     uint64        `json:"simulated_cycles"`
	InstructionsRetired uint64        `json:"instructions_retired"`
	CPI                 float64       `json:"cpi"`
	StallCycles         uint64        `json:"stall_cycles"`
	Exceptions          uint64        `json:"exceptions"`
	PipelineFlushes     uint64        `json:"pipeline_flushes"`
	ICacheHits          uint64        `json:"icache_hits,omitempty"`
	ICacheMisses        uint64        `json:"icache_misses,omitempty"`
	ExitCode            uint32        `json:"exit_code"`
	WallTime            time.Duration `json:"wall_time_ns"`

	// Halted is false when the run hit the cycle limit.
	Halted bool `json:"halted"`

	// Error is set when the core stopped on a host-fatal condition.
	Error string `json:"error,omitempty"`
}

// A Benchmark is a program loaded at ProgramBase that ends with BREAK,
// leaving its exit code in v0.
type Benchmark struct {
	Name         string
	Description  string
	Program      []byte
	ExpectedExit uint32

	// Setup runs after reset and before the first cycle.
	Setup func(regFile *emu.RegFile, memory *emu.Memory)
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	EnableICache bool

	// Timing overrides the multiply/divide cycle counts. Nil uses the
	// R3000A defaults.
	Timing *latency.TimingConfig

	// MaxCycles bounds each run. Zero uses DefaultMaxCycles.
	MaxCycles uint64

	Logger  logr.Logger
	Output  io.Writer
	Verbose bool
}

// DefaultConfig returns the harness defaults: instruction cache on,
// results to stdout.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		EnableICache: true,
		MaxCycles:    DefaultMaxCycles,
		Logger:       logr.Discard(),
		Output:       os.Stdout,
	}
}

// Harness runs a list of benchmarks, each on a fresh core.
type Harness struct {
	config  HarnessConfig
	benches []Benchmark
}

// NewHarness creates a harness, filling unset config fields with defaults.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.MaxCycles == 0 {
		config.MaxCycles = DefaultMaxCycles
	}
	if config.Logger.GetSink() == nil {
		config.Logger = logr.Discard()
	}
	return &Harness{config: config}
}

// AddBenchmark appends b to the run list.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benches = append(h.benches, b)
}

// AddBenchmarks appends bs to the run list.
func (h *Harness) AddBenchmarks(bs []Benchmark) {
	h.benches = append(h.benches, bs...)
}

// RunAll runs every benchmark in order.
func (h *Harness) RunAll() []Result {
	results := make([]Result, len(h.benches))
	for i, b := range h.benches {
		results[i] = h.run(b)
	}
	return results
}

// haltOnBreak stops the pipeline when a BREAK is delivered and reports v0
// as the exit code. Other exceptions go to the guest's handler.
func haltOnBreak(regFile *emu.RegFile) pipeline.ExceptionHandler {
	return pipeline.ExceptionHandlerFunc(func(exc emu.Exception) pipeline.ExceptionResult {
		if exc.Kind != emu.ExcBreakpoint {
			return pipeline.ExceptionResult{}
		}
		return pipeline.ExceptionResult{Halt: true, ExitCode: regFile.Read(2)}
	})
}

func (h *Harness) pipelineOptions(regFile *emu.RegFile, name string) []pipeline.PipelineOption {
	opts := []pipeline.PipelineOption{
		pipeline.WithResetVector(ProgramBase),
		pipeline.WithExceptionHandler(haltOnBreak(regFile)),
		pipeline.WithLogger(h.config.Logger.WithValues("benchmark", name)),
	}
	if h.config.EnableICache {
		opts = append(opts, pipeline.WithICache(cache.DefaultICacheConfig()))
	}
	if h.config.Timing != nil {
		opts = append(opts, pipeline.WithLatencyTable(latency.NewTableWithConfig(h.config.Timing)))
	}
	return opts
}

func (h *Harness) run(b Benchmark) Result {
	regFile := &emu.RegFile{}
	memory := emu.NewMemory()
	memory.LoadBytes(ProgramBase, b.Program)

	pipe := pipeline.NewPipeline(regFile, emu.NewExceptionUnit(emu.DefaultPRId),
		memory, h.pipelineOptions(regFile, b.Name)...)

	// NewPipeline resets the register file, so seed it afterwards.
	regFile.Write(29, 0x801FFF00)
	if b.Setup != nil {
		b.Setup(regFile, memory)
	}

	begin := time.Now()
	pipe.RunCycles(h.config.MaxCycles)
	elapsed := time.Since(begin)

	st := pipe.Stats()
	r := Result{
		Name:                b.Name,
		Description:         b.Description,
		SimulatedCycles:     st.Cycles,
		InstructionsRetired: st.Instructions,
		CPI:                 st.CPI(),
		StallCycles:         st.Stalls,
		Exceptions:          st.Exceptions,
		PipelineFlushes:     st.Flushes,
		ExitCode:            pipe.ExitCode(),
		Halted:              pipe.Halted(),
		WallTime:            elapsed,
	}
	if err := pipe.Err(); err != nil {
		r.Error = err.Error()
	}
	if pipe.UseICache() {
		ic := pipe.ICacheStats()
		r.ICacheHits, r.ICacheMisses = ic.Hits, ic.Misses
	}

	if h.config.Verbose {
		_, _ = fmt.Fprintf(h.config.Output, "ran %s: %d cycles\n", b.Name, st.Cycles)
	}
	return r
}

// PrintResults writes an aligned table, one benchmark per row.
func (h *Harness) PrintResults(results []Result) {
	out := h.config.Output
	_, _ = fmt.Fprintln(out, "=== R3000A Timing Benchmark Results ===")
	_, _ = fmt.Fprintln(out)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "Benchmark\tCycles\tInsts\tCPI\tStalls\tExcs\tFlushes\tI$ hit/miss\tExit")
	for _, r := range results {
		exit := fmt.Sprint(r.ExitCode)
		switch {
		case r.Error != "":
			exit = "error"
		case !r.Halted:
			exit = "limit"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%.3f\t%d\t%d\t%d\t%d/%d\t%s\n",
			r.Name, r.SimulatedCycles, r.InstructionsRetired, r.CPI, r.StallCycles,
			r.Exceptions, r.PipelineFlushes, r.ICacheHits, r.ICacheMisses, exit)
	}
	_ = tw.Flush()
	_, _ = fmt.Fprintln(out)

	for _, r := range results {
		if r.Error != "" {
			_, _ = fmt.Fprintf(out, "%s: %s\n", r.Name, r.Error)
		}
	}
}

// PrintCSV writes one CSV row per benchmark after a header row.
func (h *Harness) PrintCSV(results []Result) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,instructions,cpi,stalls,exceptions,flushes,icache_hits,icache_misses,exit_code")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.3f,%d,%d,%d,%d,%d,%d\n",
			r.Name, r.SimulatedCycles, r.InstructionsRetired, r.CPI, r.StallCycles,
			r.Exceptions, r.PipelineFlushes, r.ICacheHits, r.ICacheMisses, r.ExitCode)
	}
}

// BuildProgram assembles instruction words into little-endian bytes.
func BuildProgram(instrs ...uint32) []byte {
	program := make([]byte, 4*len(instrs))
	for i, inst := range instrs {
		binary.LittleEndian.PutUint32(program[4*i:], inst)
	}
	return program
}

// Report is the JSON document written by PrintJSON.
type Report struct {
	Timestamp     string               `json:"timestamp"`
	ICacheEnabled bool                 `json:"icache_enabled"`
	Timing        latency.TimingConfig `json:"timing"`
	Results       []Result             `json:"results"`
	Summary       Summary              `json:"summary"`
}

// Summary aggregates a set of results.
type Summary struct {
	Benchmarks   int           `json:"benchmarks"`
	Failed       int           `json:"failed"`
	Cycles       uint64        `json:"cycles"`
	Instructions uint64        `json:"instructions"`
	AverageCPI   float64       `json:"average_cpi"`
	WallTime     time.Duration `json:"wall_time_ns"`
}

// Summarize aggregates results. A run fails when it did not halt cleanly
// or halted with an exit code other than its benchmark's.
func (h *Harness) Summarize(results []Result) Summary {
	want := make(map[string]uint32, len(h.benches))
	for _, b := range h.benches {
		want[b.Name] = b.ExpectedExit
	}

	s := Summary{Benchmarks: len(results)}
	for _, r := range results {
		s.Cycles += r.SimulatedCycles
		s.Instructions += r.InstructionsRetired
		s.WallTime += r.WallTime

		code, known := want[r.Name]
		if !r.Halted || r.Error != "" || (known && r.ExitCode != code) {
			s.Failed++
		}
	}
	if s.Instructions > 0 {
		s.AverageCPI = float64(s.Cycles) / float64(s.Instructions)
	}
	return s
}

// PrintJSON writes results, configuration and summary as indented JSON.
func (h *Harness) PrintJSON(results []Result) error {
	timing := latency.DefaultTimingConfig()
	if h.config.Timing != nil {
		timing = h.config.Timing
	}

	enc := json.NewEncoder(h.config.Output)
	enc.SetIndent("", "  ")
	return enc.Encode(Report{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		ICacheEnabled: h.config.EnableICache,
		Timing:        *timing,
		Results:       results,
		Summary:       h.Summarize(results),
	})
}
