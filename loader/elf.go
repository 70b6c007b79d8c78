// Package loader provides program loading for little-endian MIPS images:
// ELF32 executables, PS-X EXE executables and raw ROM dumps.
package loader

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/r3ksim/emu"
)

// SegmentFlags records the access rights a segment was linked with. The
// core has no MMU, so they are informational.
type SegmentFlags uint32

// Segment access rights.
const (
	SegmentFlagExecute SegmentFlags = 1 << iota
	SegmentFlagWrite
	SegmentFlagRead
)

// DefaultStackTop is the initial stack pointer when the image names none.
// It sits at the top of the 2 MiB main RAM window in KSEG0.
const DefaultStackTop uint32 = 0x801FFFF0

// Format identifies the container a program was loaded from.
type Format int

// Supported formats.
const (
	FormatUnknown Format = iota
	FormatELF
	FormatEXE
	FormatROM
)

func (f Format) String() string {
	switch f {
	case FormatELF:
		return "elf"
	case FormatEXE:
		return "ps-x exe"
	case FormatROM:
		return "rom"
	default:
		return "unknown"
	}
}

// ErrUnknownFormat is returned by Load when the file matches no known
// container.
var ErrUnknownFormat = errors.New("unknown program format")

// Segment is a region copied to VirtAddr before execution. MemSize may
// exceed len(Data); the difference is zero-filled.
type Segment struct {
	VirtAddr uint32
	Data     []byte
	MemSize  uint32
	Flags    SegmentFlags
}

// Program is an executable image plus the register state it expects at
// its entry point. InitialGP is zero when the image does not name one.
type Program struct {
	Format     Format
	EntryPoint uint32
	Segments   []Segment
	InitialSP  uint32
	InitialGP  uint32
}

// LoadIntoMemory copies every segment into mem and zero-fills the part
// of each segment not backed by file data.
func (p *Program) LoadIntoMemory(mem *emu.Memory) {
	for _, seg := range p.Segments {
		mem.LoadBytes(seg.VirtAddr, seg.Data)
		for off := uint32(len(seg.Data)); off < seg.MemSize; off++ {
			mem.Write8(seg.VirtAddr+off, 0)
		}
	}
}

// Size returns the total in-memory size of all segments.
func (p *Program) Size() uint64 {
	var total uint64
	for _, seg := range p.Segments {
		total += uint64(seg.MemSize)
	}
	return total
}

// Load reads the file at path and dispatches on its magic bytes. Files
// that are neither ELF nor PS-X EXE are rejected with ErrUnknownFormat;
// raw ROM images must be loaded with LoadROM.
func Load(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open program: %w", err)
	}
	defer func() { _ = f.Close() }()

	magic := make([]byte, len(exeMagic))
	n, err := io.ReadFull(f, magic)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	magic = magic[:n]

	switch {
	case bytes.HasPrefix(magic, []byte(elf.ELFMAG)):
		return LoadELF(path)
	case bytes.Equal(magic, []byte(exeMagic)):
		return LoadEXE(path)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
}

// LoadELF parses a little-endian MIPS ELF32 executable.
func LoadELF(path string) (*Program, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ELF: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.Class != elf.ELFCLASS32 {
		return nil, fmt.Errorf("not a 32-bit ELF file")
	}

	if f.Data != elf.ELFDATA2LSB {
		return nil, fmt.Errorf("not a little-endian ELF file")
	}

	if f.Machine != elf.EM_MIPS {
		return nil, fmt.Errorf("not a MIPS ELF file (machine type: %v)", f.Machine)
	}

	prog := &Program{
		Format:     FormatELF,
		EntryPoint: uint32(f.Entry),
		InitialSP:  DefaultStackTop,
		InitialGP:  lookupGP(f),
	}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		if phdr.Memsz < phdr.Filesz {
			return nil, fmt.Errorf("segment at 0x%x: memsz %d smaller than filesz %d",
				phdr.Vaddr, phdr.Memsz, phdr.Filesz)
		}

		data := make([]byte, phdr.Filesz)
		if _, err := io.ReadFull(phdr.Open(), data); err != nil {
			return nil, fmt.Errorf("segment at 0x%x: %w", phdr.Vaddr, err)
		}

		prog.Segments = append(prog.Segments, Segment{
			VirtAddr: uint32(phdr.Vaddr),
			Data:     data,
			MemSize:  uint32(phdr.Memsz),
			Flags:    convertFlags(phdr.Flags),
		})
	}

	return prog, nil
}

func convertFlags(pf elf.ProgFlag) SegmentFlags {
	var flags SegmentFlags
	if pf&elf.PF_X != 0 {
		flags |= SegmentFlagExecute
	}
	if pf&elf.PF_W != 0 {
		flags |= SegmentFlagWrite
	}
	if pf&elf.PF_R != 0 {
		flags |= SegmentFlagRead
	}
	return flags
}

// lookupGP returns the value of the _gp symbol, or zero when the image is
// stripped.
func lookupGP(f *elf.File) uint32 {
	syms, err := f.Symbols()
	if err != nil {
		return 0
	}
	for _, s := range syms {
		if s.Name == "_gp" {
			return uint32(s.Value)
		}
	}
	return 0
}
