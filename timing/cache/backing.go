package cache

import (
	"github.com/sarchlab/r3ksim/emu"
)

// PortBacking refills lines through the core's memory port.
type PortBacking struct {
	port emu.MemoryPort
}

// NewPortBacking adapts port to a BackingStore.
func NewPortBacking(port emu.MemoryPort) *PortBacking {
	return &PortBacking{port: port}
}

// FetchLine reads len(line) consecutive words starting at base.
func (m *PortBacking) FetchLine(base uint32, line []uint32) {
	for i := range line {
		line[i] = m.port.Read(base+uint32(4*i), emu.Word)
	}
}
