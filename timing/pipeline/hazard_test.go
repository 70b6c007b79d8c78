package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/r3ksim/insts"
	"github.com/sarchlab/r3ksim/timing/latency"
	"github.com/sarchlab/r3ksim/timing/pipeline"
)

var _ = Describe("HazardUnit", func() {
	var (
		hazardUnit *pipeline.HazardUnit
		decoder    *insts.Decoder
	)

	BeforeEach(func() {
		hazardUnit = pipeline.NewHazardUnit(latency.NewTable())
		decoder = insts.NewDecoder()
	})

	It("should start idle", func() {
		Expect(hazardUnit.Busy()).To(BeFalse())
		Expect(hazardUnit.TryReadHiLo()).To(BeTrue())
		Expect(hazardUnit.Blocked).To(BeFalse())
	})

	It("should take the multiply time from the rs magnitude", func() {
		mult := decoder.Decode(insts.EncodeMULT(1, 2))

		hazardUnit.Start(mult, 5)
		Expect(hazardUnit.BusyCycles).To(Equal(uint32(6)))

		hazardUnit.Start(mult, 0x12345)
		Expect(hazardUnit.BusyCycles).To(Equal(uint32(9)))

		hazardUnit.Start(mult, 0x7FFFFFFF)
		Expect(hazardUnit.BusyCycles).To(Equal(uint32(13)))
	})

	It("should classify small negative multipliers as short", func() {
		mult := decoder.Decode(insts.EncodeMULT(1, 2))
		hazardUnit.Start(mult, 0xFFFFFFFF)
		Expect(hazardUnit.BusyCycles).To(Equal(uint32(6)))
	})

	It("should not treat MULTU operands as signed", func() {
		multu := decoder.Decode(insts.EncodeMULTU(1, 2))
		hazardUnit.Start(multu, 0xFFFFFFFF)
		Expect(hazardUnit.BusyCycles).To(Equal(uint32(13)))
	})

	It("should block Hi/Lo reads until the count expires", func() {
		hazardUnit.Start(decoder.Decode(insts.EncodeDIV(1, 2)), 100)
		Expect(hazardUnit.BusyCycles).To(Equal(uint32(36)))

		Expect(hazardUnit.TryReadHiLo()).To(BeFalse())
		Expect(hazardUnit.Blocked).To(BeTrue())

		for i := 0; i < 35; i++ {
			hazardUnit.Tick()
		}
		Expect(hazardUnit.Busy()).To(BeTrue())

		hazardUnit.Tick()
		Expect(hazardUnit.Busy()).To(BeFalse())
		Expect(hazardUnit.TryReadHiLo()).To(BeTrue())
	})

	It("should not underflow when ticking idle", func() {
		hazardUnit.Tick()
		Expect(hazardUnit.BusyCycles).To(BeZero())
	})

	It("should clear state on Reset", func() {
		hazardUnit.Start(decoder.Decode(insts.EncodeDIVU(1, 2)), 1)
		hazardUnit.TryReadHiLo()
		hazardUnit.Reset()

		Expect(hazardUnit.Busy()).To(BeFalse())
		Expect(hazardUnit.Blocked).To(BeFalse())
	})
})
