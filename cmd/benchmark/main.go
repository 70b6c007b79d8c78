// Command benchmark runs the r3ksim timing microbenchmarks and reports
// cycles, stalls and exception overheads.
//
// Usage:
//
//	go run ./cmd/benchmark [-csv | -json] [-core] [-no-icache] [-config timing.yaml] [-v N]
//
// With -v 1 every delivered exception is logged to stderr, with -v 2 also
// every Hi/Lo interlock cycle.
//
// The exit status is 1 when any benchmark fails to halt with its expected
// exit code.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"

	"github.com/sarchlab/r3ksim/benchmarks"
	"github.com/sarchlab/r3ksim/timing/latency"
)

const (
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"
)

func newLogger(w io.Writer, verbosity int) logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			_, _ = fmt.Fprintf(w, "%s: %s\n", prefix, args)
			return
		}
		_, _ = fmt.Fprintln(w, args)
	}, funcr.Options{Verbosity: verbosity})
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("benchmark", flag.ContinueOnError)
	fs.SetOutput(stderr)
	csv := fs.Bool("csv", false, "write CSV rows")
	asJSON := fs.Bool("json", false, "write a JSON report")
	coreOnly := fs.Bool("core", false, "run the core subset only")
	noICache := fs.Bool("no-icache", false, "fetch straight from memory")
	configPath := fs.String("config", "", "timing configuration (JSON or YAML)")
	verbosity := fs.Int("v", 0, "log verbosity (1 = exceptions, 2 = interlocks)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	format := formatTable
	switch {
	case *asJSON:
		format = formatJSON
	case *csv:
		format = formatCSV
	}

	config := benchmarks.DefaultConfig()
	config.EnableICache = !*noICache
	config.Output = stdout
	config.Logger = newLogger(stderr, *verbosity)

	if *configPath != "" {
		timing, err := latency.LoadConfig(*configPath)
		if err == nil {
			err = timing.Validate()
		}
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "timing config: %v\n", err)
			return 1
		}
		config.Timing = timing
	}

	suite := benchmarks.GetMicrobenchmarks()
	if *coreOnly {
		suite = benchmarks.GetCoreBenchmarks()
	}

	harness := benchmarks.NewHarness(config)
	harness.AddBenchmarks(suite)

	if format == formatTable {
		_, _ = fmt.Fprintf(stdout, "R3000A timing benchmarks (icache=%v)\n\n", config.EnableICache)
	}

	results := harness.RunAll()
	summary := harness.Summarize(results)

	switch format {
	case formatJSON:
		if err := harness.PrintJSON(results); err != nil {
			_, _ = fmt.Fprintf(stderr, "write report: %v\n", err)
			return 1
		}
	case formatCSV:
		harness.PrintCSV(results)
	default:
		harness.PrintResults(results)
		_, _ = fmt.Fprintf(stdout, "%d benchmarks, %d failed, average CPI %.3f\n",
			summary.Benchmarks, summary.Failed, summary.AverageCPI)
	}

	if summary.Failed > 0 {
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
