package benchmarks

import (
	"github.com/sarchlab/r3ksim/emu"
	"github.com/sarchlab/r3ksim/insts"
)

// Register numbers used by the benchmark programs.
const (
	regV0 = 2
	regA0 = 4
	regA1 = 5
	regK0 = 26
	regRA = 31
)

// GetMicrobenchmarks returns the standard set of microbenchmarks. Each one
// isolates a single timing behavior of the core.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		loadStoreChain(),
		multiplyStall(),
		multiplyOverlap(),
		divideStall(),
		branchLoop(),
		functionCalls(),
		syscallRoundTrip(),
	}
}

// GetCoreBenchmarks returns a minimal set for quick validation: an
// interlocked multiply, a loop and the exception round trip.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		multiplyStall(),
		branchLoop(),
		syscallRoundTrip(),
	}
}

func arithmeticSequential() Benchmark {
	instrs := make([]uint32, 0, 21)
	for i := 0; i < 4; i++ {
		for r := uint8(2); r <= 6; r++ {
			instrs = append(instrs, insts.EncodeADDIU(r, r, 1))
		}
	}
	instrs = append(instrs, insts.EncodeBREAK(0))

	return Benchmark{
		Name:         "arithmetic_sequential",
		Description:  "20 ADDIUs across 5 registers - measures ALU throughput",
		Program:      BuildProgram(instrs...),
		ExpectedExit: 4,
	}
}

func dependencyChain() Benchmark {
	return Benchmark{
		Name:         "dependency_chain",
		Description:  "20 dependent ADDIUs (v0 = v0 + 1) - measures result forwarding",
		Program:      buildDependencyChain(20),
		ExpectedExit: 20,
	}
}

func buildDependencyChain(n int) []byte {
	instrs := make([]uint32, 0, n+1)
	for i := 0; i < n; i++ {
		instrs = append(instrs, insts.EncodeADDIU(regV0, regV0, 1))
	}
	instrs = append(instrs, insts.EncodeBREAK(0))
	return BuildProgram(instrs...)
}

// loadStoreChain stores v0 and immediately reloads it. Each SW sits in the
// previous LW's delay slot and reads the old v0, which holds the same value.
func loadStoreChain() Benchmark {
	instrs := []uint32{
		insts.EncodeLUI(1, uint16(DataBase>>16)),
		insts.EncodeADDIU(regV0, 0, 42),
	}
	for i := int16(0); i < 10; i++ {
		instrs = append(instrs,
			insts.EncodeSW(regV0, 1, 4*i),
			insts.EncodeLW(regV0, 1, 4*i),
		)
	}
	instrs = append(instrs, insts.NOP, insts.EncodeBREAK(0))

	return Benchmark{
		Name:         "load_store_chain",
		Description:  "10 store/load pairs to sequential words - measures load-delay handling",
		Program:      BuildProgram(instrs...),
		ExpectedExit: 42,
	}
}

func multiplyStall() Benchmark {
	instrs := make([]uint32, 0, 9)
	for i := 0; i < 4; i++ {
		instrs = append(instrs,
			insts.EncodeMULT(regA0, regA1),
			insts.EncodeMFLO(regV0),
		)
	}
	instrs = append(instrs, insts.EncodeBREAK(0))

	return Benchmark{
		Name:        "multiply_stall",
		Description: "4 MULTs each read back at once by MFLO - measures the Hi/Lo interlock",
		Setup: func(regFile *emu.RegFile, memory *emu.Memory) {
			regFile.Write(regA0, 6)
			regFile.Write(regA1, 7)
		},
		Program:      BuildProgram(instrs...),
		ExpectedExit: 42,
	}
}

func multiplyOverlap() Benchmark {
	return Benchmark{
		Name:        "multiply_overlap",
		Description: "MULT with 5 independent instructions before MFLO - hides the multiply",
		Setup: func(regFile *emu.RegFile, memory *emu.Memory) {
			regFile.Write(regA0, 6)
			regFile.Write(regA1, 7)
		},
		Program: BuildProgram(
			insts.EncodeMULT(regA0, regA1),
			insts.EncodeADDIU(8, 0, 1),
			insts.EncodeADDIU(9, 0, 2),
			insts.EncodeADDIU(10, 0, 3),
			insts.EncodeADDIU(11, 0, 4),
			insts.EncodeADDIU(12, 0, 5),
			insts.EncodeMFLO(regV0),
			insts.EncodeBREAK(0),
		),
		ExpectedExit: 42,
	}
}

func divideStall() Benchmark {
	return Benchmark{
		Name:        "divide_stall",
		Description: "DIV read back at once by MFLO - measures the full divide time",
		Setup: func(regFile *emu.RegFile, memory *emu.Memory) {
			regFile.Write(regA0, 84)
			regFile.Write(regA1, 2)
		},
		Program: BuildProgram(
			insts.EncodeDIV(regA0, regA1),
			insts.EncodeMFLO(regV0),
			insts.EncodeBREAK(0),
		),
		ExpectedExit: 42,
	}
}

// branchLoop counts a0 down from 10 with the decrement feeding BNE
// directly.
func branchLoop() Benchmark {
	return Benchmark{
		Name:        "branch_loop",
		Description: "10-iteration counted loop with a NOP delay slot - measures branch overhead",
		Program: BuildProgram(
			insts.EncodeADDIU(regA0, 0, 10),
			insts.EncodeADDIU(regV0, regV0, 1), // loop:
			insts.EncodeADDIU(regA0, regA0, -1),
			insts.EncodeBNE(regA0, 0, -3),
			insts.NOP,
			insts.EncodeBREAK(0),
		),
		ExpectedExit: 10,
	}
}

func functionCalls() Benchmark {
	const calls = 5
	fn := ProgramBase + 4*(2*calls+1)

	instrs := make([]uint32, 0, 2*calls+4)
	for i := 0; i < calls; i++ {
		instrs = append(instrs, insts.EncodeJAL(fn), insts.NOP)
	}
	instrs = append(instrs,
		insts.EncodeBREAK(0),
		insts.EncodeADDIU(regV0, regV0, 1), // fn:
		insts.EncodeJR(regRA),
		insts.NOP,
	)

	return Benchmark{
		Name:         "function_calls",
		Description:  "5 JAL/JR call-return pairs - measures call overhead",
		Program:      BuildProgram(instrs...),
		ExpectedExit: calls,
	}
}

// syscallRoundTrip installs a minimal handler at the RAM general vector
// that returns past the SYSCALL, then traps four times.
func syscallRoundTrip() Benchmark {
	instrs := []uint32{insts.EncodeMTC0(0, emu.CP0Status)}
	for i := 0; i < 4; i++ {
		instrs = append(instrs,
			insts.EncodeSYSCALL(0),
			insts.EncodeADDIU(regV0, regV0, 1),
		)
	}
	instrs = append(instrs, insts.EncodeBREAK(0))

	handler := BuildProgram(
		insts.EncodeMFC0(regK0, emu.CP0EPC),
		insts.NOP,
		insts.EncodeADDIU(regK0, regK0, 4),
		insts.EncodeJR(regK0),
		insts.EncodeRFE(),
	)

	return Benchmark{
		Name:        "syscall_round_trip",
		Description: "4 SYSCALLs through a RAM handler and RFE - measures exception overhead",
		Setup: func(regFile *emu.RegFile, memory *emu.Memory) {
			memory.LoadBytes(emu.VectorGeneralRAM, handler)
		},
		Program:      BuildProgram(instrs...),
		ExpectedExit: 4,
	}
}
