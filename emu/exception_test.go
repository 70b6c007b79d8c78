package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/r3ksim/emu"
)

var _ = Describe("Exception", func() {
	It("should name the exception kinds", func() {
		Expect(emu.ExcArithmeticOverflow.String()).To(Equal("ArithmeticOverflow"))
		Expect(emu.ExceptionKind(0x1F).String()).To(Equal("Exception(31)"))
	})

	It("should identify address errors", func() {
		Expect(emu.ExcAddressErrorLoad.IsAddressError()).To(BeTrue())
		Expect(emu.ExcAddressErrorStore.IsAddressError()).To(BeTrue())
		Expect(emu.ExcSyscall.IsAddressError()).To(BeFalse())
	})

	It("should format for logs", func() {
		exc := emu.Exception{
			Kind:              emu.ExcAddressErrorLoad,
			PC:                0x80010000,
			InBranchDelaySlot: true,
			BadVAddr:          0x1001,
		}
		Expect(exc.String()).To(Equal(
			"AddressErrorLoad at 0x80010000 (delay slot) addr=0x00001001"))
	})
})
