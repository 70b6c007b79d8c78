package loader

import (
	"encoding/binary"
	"fmt"
	"os"
)

const (
	exeMagic      = "PS-X EXE"
	exeHeaderSize = 0x800

	exeOffPC    = 0x10
	exeOffGP    = 0x14
	exeOffText  = 0x18
	exeOffTSize = 0x1C
	exeOffBss   = 0x28
	exeOffBSize = 0x2C
	exeOffStack = 0x30
	exeOffSSize = 0x34
)

// LoadEXE parses a PS-X EXE executable. The text image follows the
// 2 KiB header and is loaded at the header's text address.
func LoadEXE(path string) (*Program, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open EXE file: %w", err)
	}
	return ParseEXE(raw)
}

// ParseEXE parses a PS-X EXE image held in memory.
func ParseEXE(raw []byte) (*Program, error) {
	if len(raw) < exeHeaderSize {
		return nil, fmt.Errorf("EXE too short: %d bytes, header needs %d",
			len(raw), exeHeaderSize)
	}
	if string(raw[:len(exeMagic)]) != exeMagic {
		return nil, fmt.Errorf("not a PS-X EXE file")
	}

	word := func(off int) uint32 {
		return binary.LittleEndian.Uint32(raw[off : off+4])
	}

	textAddr := word(exeOffText)
	textSize := word(exeOffTSize)
	if textSize%4 != 0 {
		return nil, fmt.Errorf("EXE text size 0x%x is not word aligned", textSize)
	}

	body := raw[exeHeaderSize:]
	if uint64(textSize) > uint64(len(body)) {
		return nil, fmt.Errorf("EXE text truncated: header says 0x%x bytes, file has 0x%x",
			textSize, len(body))
	}

	prog := &Program{
		Format:     FormatEXE,
		EntryPoint: word(exeOffPC),
		InitialGP:  word(exeOffGP),
		InitialSP:  DefaultStackTop,
		Segments: []Segment{{
			VirtAddr: textAddr,
			Data:     append([]byte(nil), body[:textSize]...),
			MemSize:  textSize,
			Flags:    SegmentFlagRead | SegmentFlagWrite | SegmentFlagExecute,
		}},
	}

	if bss, size := word(exeOffBss), word(exeOffBSize); size != 0 {
		prog.Segments = append(prog.Segments, Segment{
			VirtAddr: bss,
			MemSize:  size,
			Flags:    SegmentFlagRead | SegmentFlagWrite,
		})
	}

	if sp := word(exeOffStack); sp != 0 {
		prog.InitialSP = sp + word(exeOffSSize)
	}

	return prog, nil
}
