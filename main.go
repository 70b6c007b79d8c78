// Package main provides the entry point for r3ksim.
// r3ksim is a cycle-stepped MIPS R3000A core simulator.
//
// For the full CLI, use: go run ./cmd/r3ksim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("r3ksim - MIPS R3000A Core Simulator")
	fmt.Println("")
	fmt.Println("Usage: r3ksim [-bios rom.bin] [-exe program] [options]")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -cycles    Maximum cycles to run")
	fmt.Println("  -config    Path to timing configuration (JSON or YAML)")
	fmt.Println("  -icache    Model the instruction cache")
	fmt.Println("  -v         Log verbosity")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/r3ksim' for the full CLI.")
	fmt.Println("Run 'go run ./cmd/benchmark' for the timing benchmarks.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/r3ksim' instead.")
	}
}
