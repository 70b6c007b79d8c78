// Package main provides the r3ksim command, which runs a boot ROM and/or a
// MIPS executable on the cycle-stepped R3000A core.
//
// Usage:
//
//	r3ksim [flags]
//
// With only -bios the core boots from the reset vector. With only -exe the
// program starts at its entry point with gp and sp from the image. With
// both, the ROM runs until it jumps to the shell entry and the executable
// is side-loaded there.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/pprof"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"golang.org/x/term"

	"github.com/sarchlab/r3ksim/emu"
	"github.com/sarchlab/r3ksim/loader"
	"github.com/sarchlab/r3ksim/timing/cache"
	"github.com/sarchlab/r3ksim/timing/core"
	"github.com/sarchlab/r3ksim/timing/latency"
	"github.com/sarchlab/r3ksim/timing/pipeline"
)

// ShellEntry is where a boot ROM hands control to the shell. An executable
// given alongside a ROM is side-loaded when execution first reaches it.
const ShellEntry uint32 = 0x80030000

// Exit statuses for conditions other than a guest exit code.
const (
	exitUsage = 64
	exitFatal = 70
)

type options struct {
	bios       string
	exe        string
	config     string
	cycles     uint64
	icache     bool
	haltBreak  bool
	dump       bool
	verbosity  int
	cpuProfile string
	memProfile string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("r3ksim", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	fs.StringVar(&o.bios, "bios", "", "Path to a raw boot ROM image")
	fs.StringVar(&o.exe, "exe", "", "Path to a MIPS ELF32 or PS-X EXE executable")
	fs.StringVar(&o.config, "config", "", "Path to timing configuration (JSON or YAML)")
	fs.Uint64Var(&o.cycles, "cycles", 10_000_000, "Maximum cycles to run (0 = until halt)")
	fs.BoolVar(&o.icache, "icache", false, "Model the 4KB instruction cache")
	fs.BoolVar(&o.haltBreak, "halt-on-break", true, "Stop on BREAK with v0 as the exit code")
	fs.BoolVar(&o.dump, "dump", true, "Print statistics and registers on exit")
	fs.IntVar(&o.verbosity, "v", 0, "Log verbosity (1 = exceptions, 2 = interlocks)")
	fs.StringVar(&o.cpuProfile, "cpuprofile", "", "Write CPU profile to file")
	fs.StringVar(&o.memProfile, "memprofile", "", "Write memory profile to file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.bios == "" && o.exe == "" {
		fs.Usage()
		return nil, errors.New("one of -bios or -exe is required")
	}
	return o, nil
}

func newLogger(w io.Writer, verbosity int) logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			_, _ = fmt.Fprintf(w, "%s: %s\n", prefix, args)
			return
		}
		_, _ = fmt.Fprintln(w, args)
	}, funcr.Options{Verbosity: verbosity})
}

// registersPerRow fits the register dump to the terminal width.
func registersPerRow(w io.Writer) int {
	const entryWidth = 15

	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 4
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width < entryWidth {
		return 4
	}
	return min(width/entryWidth, 8)
}

// setEntryState points the core at a loaded executable.
func setEntryState(c *core.Core, prog *loader.Program) {
	c.SetPC(prog.EntryPoint)
	if prog.InitialGP != 0 {
		c.WriteReg(28, prog.InitialGP)
	}
	c.WriteReg(29, prog.InitialSP)
	c.WriteReg(30, prog.InitialSP)
}

func run(args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	if o.cpuProfile != "" {
		f, err := os.Create(o.cpuProfile)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error creating CPU profile: %v\n", err)
			return exitFatal
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error starting CPU profile: %v\n", err)
			return exitFatal
		}
		defer pprof.StopCPUProfile()
	}

	log := newLogger(stderr, o.verbosity)
	memory := emu.NewMemory()

	var rom, exe *loader.Program
	if o.bios != "" {
		if rom, err = loader.LoadROM(o.bios); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error loading ROM: %v\n", err)
			return exitFatal
		}
		rom.LoadIntoMemory(memory)
	}
	if o.exe != "" {
		if exe, err = loader.Load(o.exe); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error loading program: %v\n", err)
			return exitFatal
		}
	}

	var c *core.Core
	opts := []pipeline.PipelineOption{pipeline.WithLogger(log)}
	if o.haltBreak {
		opts = append(opts, pipeline.WithExceptionHandler(pipeline.ExceptionHandlerFunc(
			func(exc emu.Exception) pipeline.ExceptionResult {
				if exc.Kind != emu.ExcBreakpoint {
					return pipeline.ExceptionResult{}
				}
				return pipeline.ExceptionResult{Halt: true, ExitCode: c.ReadReg(2)}
			})))
	}
	if o.icache {
		opts = append(opts, pipeline.WithICache(cache.DefaultICacheConfig()))
	}
	if o.config != "" {
		cfg, err := latency.LoadConfig(o.config)
		if err == nil {
			err = cfg.Validate()
		}
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error loading timing config: %v\n", err)
			return exitFatal
		}
		opts = append(opts, pipeline.WithLatencyTable(latency.NewTableWithConfig(cfg)))
	}

	c = core.NewCore(memory, opts...)

	pending := exe
	if exe != nil && rom == nil {
		exe.LoadIntoMemory(memory)
		setEntryState(c, exe)
		pending = nil
	}
	if exe != nil {
		log.V(1).Info("program loaded", "format", exe.Format.String(),
			"entry", fmt.Sprintf("0x%08X", exe.EntryPoint), "segments", len(exe.Segments))
	}

	for n := uint64(0); (o.cycles == 0 || n < o.cycles) && !c.Halted(); n++ {
		if pending != nil && c.PC() == ShellEntry {
			// The jump into the shell and its delay slot are still in flight.
			c.Flush()
			pending.LoadIntoMemory(memory)
			setEntryState(c, pending)
			log.V(1).Info("side-loaded executable", "entry", fmt.Sprintf("0x%08X", pending.EntryPoint))
			pending = nil
		}
		if err := c.Step(); err != nil {
			break
		}
	}

	if o.dump {
		printReport(stdout, c)
	}

	if o.memProfile != "" {
		if err := writeHeapProfile(o.memProfile); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error writing memory profile: %v\n", err)
		}
	}

	if err := c.Err(); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFatal
	}
	if c.Halted() {
		return int(c.ExitCode() & 0xFF)
	}
	return 0
}

func printReport(w io.Writer, c *core.Core) {
	stats := c.Stats()
	if c.Halted() && c.Err() == nil {
		_, _ = fmt.Fprintf(w, "Exit code: %d\n", c.ExitCode())
	} else if !c.Halted() {
		_, _ = fmt.Fprintln(w, "Cycle limit reached")
	}
	_, _ = fmt.Fprintf(w, "Cycles:       %d\n", stats.Cycles)
	_, _ = fmt.Fprintf(w, "Instructions: %d\n", stats.Instructions)
	_, _ = fmt.Fprintf(w, "CPI:          %.3f\n", stats.CPI())
	_, _ = fmt.Fprintf(w, "Stalls:       %d\n", stats.Stalls)
	_, _ = fmt.Fprintf(w, "Exceptions:   %d\n", stats.Exceptions)
	_, _ = fmt.Fprintf(w, "Flushes:      %d\n", stats.Flushes)
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprint(w, c.Snapshot().Format(registersPerRow(w)))
}

func writeHeapProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return pprof.WriteHeapProfile(f)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
