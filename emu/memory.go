package emu

// AccessSize is the width of a memory access in bytes.
type AccessSize uint8

// Access widths.
const (
	Byte AccessSize = 1
	Half AccessSize = 2
	Word AccessSize = 4
)

// MemoryPort is the bus seen by the core. Reads and writes complete
// immediately; the core never retries an access.
type MemoryPort interface {
	// Read returns the value at addr, zero-extended to 32 bits.
	Read(addr uint32, size AccessSize) uint32
	// Write stores the low size bytes of value at addr.
	Write(addr uint32, value uint32, size AccessSize)
	// VerifyInstructionAddress reports whether addr may be fetched from.
	VerifyInstructionAddress(addr uint32) bool
	// VerifyDataAddress reports whether addr may be loaded from or stored to.
	VerifyDataAddress(addr uint32) bool
}

const (
	pageBits = 12
	pageSize = 1 << pageBits
	pageMask = pageSize - 1

	// physicalMask folds KUSEG, KSEG0 and KSEG1 onto the same physical space.
	physicalMask = 0x1FFFFFFF
)

// Memory is a sparse little-endian memory implementing MemoryPort.
// Unwritten locations read as zero and every address is legal.
type Memory struct {
	pages map[uint32]*[pageSize]byte
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{pages: make(map[uint32]*[pageSize]byte)}
}

// Physical maps a logical address onto the physical address space. The
// top three address bits select the segment and are discarded.
func Physical(addr uint32) uint32 {
	return addr & physicalMask
}

func (m *Memory) page(addr uint32, create bool) *[pageSize]byte {
	key := Physical(addr) >> pageBits
	p, ok := m.pages[key]
	if !ok && create {
		p = new([pageSize]byte)
		m.pages[key] = p
	}
	return p
}

// Read8 reads one byte.
func (m *Memory) Read8(addr uint32) byte {
	p := m.page(addr, false)
	if p == nil {
		return 0
	}
	return p[addr&pageMask]
}

// Write8 writes one byte.
func (m *Memory) Write8(addr uint32, value byte) {
	m.page(addr, true)[addr&pageMask] = value
}

// Read32 reads a little-endian word.
func (m *Memory) Read32(addr uint32) uint32 {
	return m.Read(addr, Word)
}

// Write32 writes a little-endian word.
func (m *Memory) Write32(addr uint32, value uint32) {
	m.Write(addr, value, Word)
}

// Read implements MemoryPort.
func (m *Memory) Read(addr uint32, size AccessSize) uint32 {
	var v uint32
	for i := uint32(0); i < uint32(size); i++ {
		v |= uint32(m.Read8(addr+i)) << (8 * i)
	}
	return v
}

// Write implements MemoryPort.
func (m *Memory) Write(addr uint32, value uint32, size AccessSize) {
	for i := uint32(0); i < uint32(size); i++ {
		m.Write8(addr+i, byte(value>>(8*i)))
	}
}

// LoadBytes copies data into memory starting at addr.
func (m *Memory) LoadBytes(addr uint32, data []byte) {
	for i, b := range data {
		m.Write8(addr+uint32(i), b)
	}
}

// VerifyInstructionAddress implements MemoryPort; every address is legal.
func (m *Memory) VerifyInstructionAddress(uint32) bool { return true }

// VerifyDataAddress implements MemoryPort; every address is legal.
func (m *Memory) VerifyDataAddress(uint32) bool { return true }

// Reset discards all contents.
func (m *Memory) Reset() {
	m.pages = make(map[uint32]*[pageSize]byte)
}
