package latency_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/r3ksim/insts"
	"github.com/sarchlab/r3ksim/timing/latency"
)

var _ = Describe("Latency", func() {
	var (
		table   *latency.Table
		decoder *insts.Decoder
	)

	BeforeEach(func() {
		table = latency.NewTable()
		decoder = insts.NewDecoder()
	})

	Describe("NewTable", func() {
		It("should use the R3000A cycle counts", func() {
			config := table.Config()
			Expect(config.MultiplyShortCycles).To(Equal(uint32(6)))
			Expect(config.MultiplyMediumCycles).To(Equal(uint32(9)))
			Expect(config.MultiplyLongCycles).To(Equal(uint32(13)))
			Expect(config.DivideCycles).To(Equal(uint32(36)))
		})
	})

	DescribeTable("Multiply Latencies",
		func(rs uint32, signed bool, want uint32) {
			Expect(table.MultiplyCycles(rs, signed)).To(Equal(want))
		},
		Entry("zero", uint32(0), true, uint32(6)),
		Entry("just under 11 bits", uint32(0x7FF), false, uint32(6)),
		Entry("11 bits", uint32(0x800), false, uint32(9)),
		Entry("just under 20 bits", uint32(0xFFFFF), false, uint32(9)),
		Entry("20 bits", uint32(0x100000), false, uint32(13)),
		Entry("signed -1", uint32(0xFFFFFFFF), true, uint32(6)),
		Entry("signed -0x800", uint32(0xFFFFF800), true, uint32(6)),
		Entry("signed -0x801", uint32(0xFFFFF7FF), true, uint32(9)),
		Entry("signed most negative", uint32(0x80000000), true, uint32(13)),
		Entry("unsigned -1", uint32(0xFFFFFFFF), false, uint32(13)),
	)

	Describe("BusyCycles", func() {
		It("should time multiplies by the rs magnitude", func() {
			Expect(table.BusyCycles(decoder.Decode(insts.EncodeMULT(1, 2)), 3)).To(Equal(uint32(6)))
			Expect(table.BusyCycles(decoder.Decode(insts.EncodeMULTU(1, 2)), 0x12345)).To(Equal(uint32(9)))
		})

		It("should use a fixed divide time", func() {
			Expect(table.BusyCycles(decoder.Decode(insts.EncodeDIV(1, 2)), 0)).To(Equal(uint32(36)))
			Expect(table.BusyCycles(decoder.Decode(insts.EncodeDIVU(1, 2)), 1<<31)).To(Equal(uint32(36)))
		})

		It("should return 0 for instructions that do not use the unit", func() {
			Expect(table.BusyCycles(decoder.Decode(insts.EncodeADDU(1, 2, 3)), 0)).To(BeZero())
			Expect(table.BusyCycles(decoder.Decode(insts.EncodeMFLO(1)), 0)).To(BeZero())
		})
	})

	Describe("NewTableWithConfig", func() {
		It("should take every count from the config", func() {
			config := &latency.TimingConfig{
				MultiplyShortCycles:  1,
				MultiplyMediumCycles: 2,
				MultiplyLongCycles:   3,
				DivideCycles:         4,
			}
			table = latency.NewTableWithConfig(config)

			Expect(table.MultiplyCycles(0x10, false)).To(Equal(uint32(1)))
			Expect(table.MultiplyCycles(0x1000, false)).To(Equal(uint32(2)))
			Expect(table.MultiplyCycles(0x10000000, false)).To(Equal(uint32(3)))
			Expect(table.DivideCycles()).To(Equal(uint32(4)))
		})
	})
})

var _ = Describe("TimingConfig", func() {
	It("should accept the defaults", func() {
		Expect(latency.DefaultTimingConfig().Validate()).To(Succeed())
	})

	Describe("Validation", func() {
		It("should reject zero multiply time", func() {
			config := latency.DefaultTimingConfig()
			config.MultiplyShortCycles = 0
			Expect(config.Validate()).NotTo(Succeed())
		})

		It("should reject zero divide time", func() {
			config := latency.DefaultTimingConfig()
			config.DivideCycles = 0
			Expect(config.Validate()).NotTo(Succeed())
		})

		It("should reject unordered multiply classes", func() {
			config := latency.DefaultTimingConfig()
			config.MultiplyMediumCycles = 20
			Expect(config.Validate()).NotTo(Succeed())

			config = latency.DefaultTimingConfig()
			config.MultiplyShortCycles = 10
			Expect(config.Validate()).NotTo(Succeed())
		})
	})

	It("should clone without aliasing", func() {
		base := latency.DefaultTimingConfig()
		base.Clone().DivideCycles = 100
		Expect(base.DivideCycles).To(Equal(uint32(36)))
	})

	Describe("LoadConfig and SaveConfig", func() {
		var tempDir string

		BeforeEach(func() {
			tempDir = GinkgoT().TempDir()
		})

		It("should save and load JSON config", func() {
			original := latency.DefaultTimingConfig()
			original.DivideCycles = 40

			path := filepath.Join(tempDir, "timing.json")
			Expect(original.SaveConfig(path)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(original))
		})

		It("should save and load YAML config", func() {
			original := latency.DefaultTimingConfig()
			original.MultiplyLongCycles = 17

			path := filepath.Join(tempDir, "timing.yaml")
			Expect(original.SaveConfig(path)).To(Succeed())

			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring("multiply_long_cycles: 17"))

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(original))
		})

		It("should keep defaults for fields missing from the file", func() {
			path := filepath.Join(tempDir, "partial.yml")
			Expect(os.WriteFile(path, []byte("divide_cycles: 20\n"), 0644)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.DivideCycles).To(Equal(uint32(20)))
			Expect(loaded.MultiplyShortCycles).To(Equal(uint32(6)))
		})

		It("should fail on a missing file", func() {
			_, err := latency.LoadConfig(filepath.Join(tempDir, "absent.json"))
			Expect(err).To(HaveOccurred())
		})

		It("should fail on malformed JSON", func() {
			path := filepath.Join(tempDir, "broken.json")
			Expect(os.WriteFile(path, []byte("{divide_cycles"), 0o644)).To(Succeed())

			_, err := latency.LoadConfig(path)
			Expect(err).To(HaveOccurred())
		})
	})
})
