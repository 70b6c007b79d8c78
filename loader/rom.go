package loader

import (
	"fmt"
	"os"

	"github.com/sarchlab/r3ksim/emu"
)

// MaxROMSize is the size of the boot ROM window.
const MaxROMSize = 512 * 1024

// LoadROM reads a raw boot ROM image. The image is mapped at the reset
// vector and execution starts at its first word.
func LoadROM(path string) (*Program, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ROM file: %w", err)
	}
	return ParseROM(raw)
}

// ParseROM wraps a raw boot ROM image held in memory.
func ParseROM(raw []byte) (*Program, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty ROM image")
	}
	if len(raw) > MaxROMSize {
		return nil, fmt.Errorf("ROM image too large: %d bytes, limit %d",
			len(raw), MaxROMSize)
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("ROM image size %d is not word aligned", len(raw))
	}

	return &Program{
		Format:     FormatROM,
		EntryPoint: emu.ResetVector,
		InitialSP:  DefaultStackTop,
		Segments: []Segment{{
			VirtAddr: emu.ResetVector,
			Data:     append([]byte(nil), raw...),
			MemSize:  uint32(len(raw)),
			Flags:    SegmentFlagRead | SegmentFlagExecute,
		}},
	}, nil
}
