package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/r3ksim/emu"
)

var _ = Describe("ALU", func() {
	DescribeTable("AddOverflow",
		func(a, b, sum uint32, overflow bool) {
			got, ovf := emu.AddOverflow(a, b)
			Expect(got).To(Equal(sum))
			Expect(ovf).To(Equal(overflow))
		},
		Entry("small", uint32(1), uint32(2), uint32(3), false),
		Entry("positive wrap", uint32(0x7FFFFFFF), uint32(1), uint32(0x80000000), true),
		Entry("negative wrap", uint32(0x80000000), uint32(0xFFFFFFFF), uint32(0x7FFFFFFF), true),
		Entry("mixed signs", uint32(0x7FFFFFFF), uint32(0x80000000), uint32(0xFFFFFFFF), false),
		Entry("minus one plus one", uint32(0xFFFFFFFF), uint32(1), uint32(0), false),
	)

	DescribeTable("SubOverflow",
		func(a, b, diff uint32, overflow bool) {
			got, ovf := emu.SubOverflow(a, b)
			Expect(got).To(Equal(diff))
			Expect(ovf).To(Equal(overflow))
		},
		Entry("small", uint32(5), uint32(3), uint32(2), false),
		Entry("min minus one", uint32(0x80000000), uint32(1), uint32(0x7FFFFFFF), true),
		Entry("max minus minus one", uint32(0x7FFFFFFF), uint32(0xFFFFFFFF), uint32(0x80000000), true),
		Entry("zero minus min", uint32(0), uint32(0x80000000), uint32(0x80000000), true),
	)

	It("should compare signed and unsigned", func() {
		Expect(emu.SetLessThan(0xFFFFFFFF, 1)).To(Equal(uint32(1)))
		Expect(emu.SetLessThanUnsigned(0xFFFFFFFF, 1)).To(BeZero())
		Expect(emu.SetLessThan(1, 1)).To(BeZero())
	})

	It("should shift right arithmetically", func() {
		Expect(emu.ShiftRightArithmetic(0x80000000, 4)).To(Equal(uint32(0xF8000000)))
		Expect(emu.ShiftRightArithmetic(0x40000000, 4)).To(Equal(uint32(0x04000000)))
		Expect(emu.ShiftRightArithmetic(0x80000000, 33)).To(Equal(uint32(0xC0000000)))
	})

	Describe("multiply", func() {
		It("should produce signed 64-bit products", func() {
			hi, lo := emu.Mult(0xFFFFFFFF, 2)
			Expect(hi).To(Equal(uint32(0xFFFFFFFF)))
			Expect(lo).To(Equal(uint32(0xFFFFFFFE)))
		})

		It("should produce unsigned 64-bit products", func() {
			hi, lo := emu.Multu(0xFFFFFFFF, 2)
			Expect(hi).To(Equal(uint32(1)))
			Expect(lo).To(Equal(uint32(0xFFFFFFFE)))
		})
	})

	Describe("divide", func() {
		It("should truncate towards zero", func() {
			hi, lo := emu.Div(uint32(0xFFFFFFF9), 2) // -7 / 2
			Expect(int32(lo)).To(Equal(int32(-3)))
			Expect(int32(hi)).To(Equal(int32(-1)))
		})

		It("should return the hardware values for a zero divisor", func() {
			hi, lo := emu.Div(5, 0)
			Expect(hi).To(Equal(uint32(5)))
			Expect(lo).To(Equal(uint32(0xFFFFFFFF)))

			hi, lo = emu.Div(0xFFFFFFFB, 0)
			Expect(hi).To(Equal(uint32(0xFFFFFFFB)))
			Expect(lo).To(Equal(uint32(1)))

			hi, lo = emu.Divu(9, 0)
			Expect(hi).To(Equal(uint32(9)))
			Expect(lo).To(Equal(uint32(0xFFFFFFFF)))
		})

		It("should not trap on the most negative value divided by -1", func() {
			hi, lo := emu.Div(0x80000000, 0xFFFFFFFF)
			Expect(hi).To(BeZero())
			Expect(lo).To(Equal(uint32(0x80000000)))
		})

		It("should divide unsigned", func() {
			hi, lo := emu.Divu(0xFFFFFFFF, 16)
			Expect(hi).To(Equal(uint32(15)))
			Expect(lo).To(Equal(uint32(0x0FFFFFFF)))
		})
	})

	Describe("unaligned merges", func() {
		const (
			reg = uint32(0x11223344)
			mem = uint32(0xAABBCCDD)
		)

		DescribeTable("LoadLeft",
			func(offset, want uint32) {
				Expect(emu.LoadLeft(reg, mem, offset)).To(Equal(want))
			},
			Entry("0", uint32(0), uint32(0xDD223344)),
			Entry("1", uint32(1), uint32(0xCCDD3344)),
			Entry("2", uint32(2), uint32(0xBBCCDD44)),
			Entry("3", uint32(3), uint32(0xAABBCCDD)),
		)

		DescribeTable("LoadRight",
			func(offset, want uint32) {
				Expect(emu.LoadRight(reg, mem, offset)).To(Equal(want))
			},
			Entry("0", uint32(0), uint32(0xAABBCCDD)),
			Entry("1", uint32(1), uint32(0x11AABBCC)),
			Entry("2", uint32(2), uint32(0x1122AABB)),
			Entry("3", uint32(3), uint32(0x112233AA)),
		)

		DescribeTable("StoreLeft",
			func(offset, want uint32) {
				Expect(emu.StoreLeft(mem, reg, offset)).To(Equal(want))
			},
			Entry("0", uint32(0), uint32(0xAABBCC11)),
			Entry("1", uint32(1), uint32(0xAABB1122)),
			Entry("2", uint32(2), uint32(0xAA112233)),
			Entry("3", uint32(3), uint32(0x11223344)),
		)

		DescribeTable("StoreRight",
			func(offset, want uint32) {
				Expect(emu.StoreRight(mem, reg, offset)).To(Equal(want))
			},
			Entry("0", uint32(0), uint32(0x11223344)),
			Entry("1", uint32(1), uint32(0x223344DD)),
			Entry("2", uint32(2), uint32(0x3344CCDD)),
			Entry("3", uint32(3), uint32(0x44BBCCDD)),
		)
	})
})
