package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/r3ksim/emu"
)

var _ = Describe("Memory", func() {
	var memory *emu.Memory

	BeforeEach(func() {
		memory = emu.NewMemory()
	})

	It("should read unwritten locations as zero", func() {
		Expect(memory.Read32(0x1234)).To(BeZero())
		Expect(memory.Read8(0xFFFFFFFF)).To(BeZero())
	})

	It("should store words little-endian", func() {
		memory.Write32(0x100, 0x11223344)

		Expect(memory.Read8(0x100)).To(Equal(byte(0x44)))
		Expect(memory.Read8(0x103)).To(Equal(byte(0x11)))
		Expect(memory.Read(0x102, emu.Half)).To(Equal(uint32(0x1122)))
	})

	It("should only write the low bytes of narrow stores", func() {
		memory.Write32(0x100, 0xFFFFFFFF)
		memory.Write(0x101, 0xABCD, emu.Byte)
		Expect(memory.Read32(0x100)).To(Equal(uint32(0xFFFFCDFF)))
	})

	It("should alias the kernel segments onto physical memory", func() {
		memory.Write32(0x80001000, 0xCAFEBABE)

		Expect(memory.Read32(0x00001000)).To(Equal(uint32(0xCAFEBABE)))
		Expect(memory.Read32(0xA0001000)).To(Equal(uint32(0xCAFEBABE)))
		Expect(emu.Physical(0xBFC00000)).To(Equal(uint32(0x1FC00000)))
	})

	It("should handle accesses that straddle pages", func() {
		memory.Write32(0x0FFE, 0xA1B2C3D4)
		Expect(memory.Read32(0x0FFE)).To(Equal(uint32(0xA1B2C3D4)))
	})

	It("should load byte images", func() {
		memory.LoadBytes(0x200, []byte{1, 2, 3, 4})
		Expect(memory.Read32(0x200)).To(Equal(uint32(0x04030201)))
	})

	It("should accept every address", func() {
		Expect(memory.VerifyInstructionAddress(0x1)).To(BeTrue())
		Expect(memory.VerifyDataAddress(0xFFFFFFFF)).To(BeTrue())
	})

	It("should forget contents on Reset", func() {
		memory.Write32(0x100, 1)
		memory.Reset()
		Expect(memory.Read32(0x100)).To(BeZero())
	})
})
