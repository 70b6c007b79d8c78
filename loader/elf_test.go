package loader_test

import (
	"encoding/binary"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/r3ksim/emu"
	"github.com/sarchlab/r3ksim/insts"
	"github.com/sarchlab/r3ksim/loader"
)

const (
	machineMIPS = 8
	machine386  = 3
)

// testSegment describes one program header for buildELF32.
type testSegment struct {
	ptype   uint32
	flags   uint32
	vaddr   uint32
	data    []byte
	memSize uint32
}

func loadSegment(vaddr uint32, flags uint32, data []byte) testSegment {
	return testSegment{ptype: 1, flags: flags, vaddr: vaddr, data: data, memSize: uint32(len(data))}
}

func codeBytes(words ...uint32) []byte {
	out := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[4*i:], w)
	}
	return out
}

// buildELF32 writes a little-endian ELF32 executable with the given
// program headers and no section headers.
func buildELF32(path string, machine uint16, entry uint32, segs ...testSegment) {
	const ehsize, phentsize = 52, 32

	header := make([]byte, ehsize)
	copy(header[0:4], []byte{0x7f, 'E', 'L', 'F'})
	header[4] = 1 // ELFCLASS32
	header[5] = 1 // little endian
	header[6] = 1 // version
	binary.LittleEndian.PutUint16(header[16:18], 2) // executable
	binary.LittleEndian.PutUint16(header[18:20], machine)
	binary.LittleEndian.PutUint32(header[20:24], 1)
	binary.LittleEndian.PutUint32(header[24:28], entry)
	binary.LittleEndian.PutUint32(header[28:32], ehsize) // phoff
	binary.LittleEndian.PutUint16(header[40:42], ehsize)
	binary.LittleEndian.PutUint16(header[42:44], phentsize)
	binary.LittleEndian.PutUint16(header[44:46], uint16(len(segs)))

	offset := uint32(ehsize + phentsize*len(segs))
	phdrs := make([]byte, 0, phentsize*len(segs))
	var payload []byte
	for _, s := range segs {
		ph := make([]byte, phentsize)
		binary.LittleEndian.PutUint32(ph[0:4], s.ptype)
		binary.LittleEndian.PutUint32(ph[4:8], offset)
		binary.LittleEndian.PutUint32(ph[8:12], s.vaddr)
		binary.LittleEndian.PutUint32(ph[12:16], s.vaddr)
		binary.LittleEndian.PutUint32(ph[16:20], uint32(len(s.data)))
		binary.LittleEndian.PutUint32(ph[20:24], s.memSize)
		binary.LittleEndian.PutUint32(ph[24:28], s.flags)
		binary.LittleEndian.PutUint32(ph[28:32], 0x1000)
		phdrs = append(phdrs, ph...)
		payload = append(payload, s.data...)
		offset += uint32(len(s.data))
	}

	out := append(header, phdrs...)
	out = append(out, payload...)
	Expect(os.WriteFile(path, out, 0644)).To(Succeed())
}

// buildELF64 writes a bare ELF64 header to test rejection.
func buildELF64(path string) {
	header := make([]byte, 64)
	copy(header[0:4], []byte{0x7f, 'E', 'L', 'F'})
	header[4] = 2 // ELFCLASS64
	header[5] = 1
	header[6] = 1
	binary.LittleEndian.PutUint16(header[16:18], 2)
	binary.LittleEndian.PutUint16(header[18:20], machineMIPS)
	binary.LittleEndian.PutUint32(header[20:24], 1)
	binary.LittleEndian.PutUint64(header[32:40], 64)
	binary.LittleEndian.PutUint16(header[52:54], 64)
	binary.LittleEndian.PutUint16(header[54:56], 56)
	Expect(os.WriteFile(path, header, 0644)).To(Succeed())
}

// buildBigEndianELF32 writes a bare big-endian MIPS ELF32 header.
func buildBigEndianELF32(path string) {
	header := make([]byte, 52)
	copy(header[0:4], []byte{0x7f, 'E', 'L', 'F'})
	header[4] = 1
	header[5] = 2 // big endian
	header[6] = 1
	binary.BigEndian.PutUint16(header[16:18], 2)
	binary.BigEndian.PutUint16(header[18:20], machineMIPS)
	binary.BigEndian.PutUint32(header[20:24], 1)
	binary.BigEndian.PutUint16(header[40:42], 52)
	binary.BigEndian.PutUint16(header[42:44], 32)
	Expect(os.WriteFile(path, header, 0644)).To(Succeed())
}

var _ = Describe("ELF Loader", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "elf-loader-test")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	Describe("LoadELF", func() {
		Context("with a valid MIPS ELF32 binary", func() {
			var (
				elfPath string
				code    []byte
			)

			BeforeEach(func() {
				elfPath = filepath.Join(tempDir, "test.elf")
				code = codeBytes(
					insts.EncodeADDIU(2, 0, 42),
					insts.EncodeBREAK(0),
				)
				buildELF32(elfPath, machineMIPS, 0x80010000,
					loadSegment(0x80010000, 0x5, code))
			})

			It("should load without error", func() {
				prog, err := loader.LoadELF(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog).NotTo(BeNil())
				Expect(prog.Format).To(Equal(loader.FormatELF))
			})

			It("should extract the correct entry point", func() {
				prog, err := loader.LoadELF(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.EntryPoint).To(Equal(uint32(0x80010000)))
			})

			It("should keep segment contents and permissions", func() {
				prog, err := loader.LoadELF(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Segments).To(HaveLen(1))

				seg := prog.Segments[0]
				Expect(seg.VirtAddr).To(Equal(uint32(0x80010000)))
				Expect(seg.Data).To(Equal(code))
				Expect(seg.Flags & loader.SegmentFlagExecute).NotTo(BeZero())
				Expect(seg.Flags & loader.SegmentFlagRead).NotTo(BeZero())
				Expect(seg.Flags & loader.SegmentFlagWrite).To(BeZero())
			})

			It("should default the stack pointer into main RAM", func() {
				prog, err := loader.LoadELF(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.InitialSP).To(Equal(loader.DefaultStackTop))
				Expect(prog.InitialGP).To(BeZero())
			})

			It("should be found by Load", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Format).To(Equal(loader.FormatELF))
			})
		})

		Context("with an invalid file", func() {
			It("should return error for non-existent file", func() {
				_, err := loader.LoadELF("/nonexistent/path/to/file.elf")
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("failed to open"))
			})

			It("should return error for non-ELF file", func() {
				notElfPath := filepath.Join(tempDir, "not-elf.bin")
				Expect(os.WriteFile(notElfPath, []byte("not an elf file"), 0644)).To(Succeed())

				_, err := loader.LoadELF(notElfPath)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("ELF"))
			})

			It("should return error for empty file", func() {
				emptyPath := filepath.Join(tempDir, "empty.elf")
				Expect(os.WriteFile(emptyPath, []byte{}, 0644)).To(Succeed())

				_, err := loader.LoadELF(emptyPath)
				Expect(err).To(HaveOccurred())
			})
		})

		It("should reject a non-MIPS ELF", func() {
			elfPath := filepath.Join(tempDir, "x86.elf")
			buildELF32(elfPath, machine386, 0x1000)

			_, err := loader.LoadELF(elfPath)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("not a MIPS"))
		})

		It("should reject a 64-bit ELF", func() {
			elfPath := filepath.Join(tempDir, "elf64.elf")
			buildELF64(elfPath)

			_, err := loader.LoadELF(elfPath)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("not a 32-bit"))
		})

		It("should reject a big-endian ELF", func() {
			elfPath := filepath.Join(tempDir, "be.elf")
			buildBigEndianELF32(elfPath)

			_, err := loader.LoadELF(elfPath)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("little-endian"))
		})
	})

	Describe("Multi-segment ELFs", func() {
		It("should load code and data segments", func() {
			elfPath := filepath.Join(tempDir, "multi-segment.elf")
			code := codeBytes(insts.NOP, insts.NOP)
			data := []byte{0x01, 0x02, 0x03, 0x04}
			buildELF32(elfPath, machineMIPS, 0x80010000,
				loadSegment(0x80010000, 0x5, code),
				loadSegment(0x80020000, 0x6, data))

			prog, err := loader.LoadELF(elfPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Segments).To(HaveLen(2))

			Expect(prog.Segments[0].Data).To(Equal(code))
			Expect(prog.Segments[1].VirtAddr).To(Equal(uint32(0x80020000)))
			Expect(prog.Segments[1].Data).To(Equal(data))
			Expect(prog.Segments[1].Flags & loader.SegmentFlagWrite).NotTo(BeZero())
		})
	})

	Describe("BSS segments", func() {
		It("should keep Memsz larger than Filesz", func() {
			elfPath := filepath.Join(tempDir, "bss.elf")
			seg := loadSegment(0x80030000, 0x6, []byte{1, 2, 3, 4})
			seg.memSize = 1024
			buildELF32(elfPath, machineMIPS, 0x80010000, seg)

			prog, err := loader.LoadELF(elfPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Segments[0].Data).To(HaveLen(4))
			Expect(prog.Segments[0].MemSize).To(Equal(uint32(1024)))
			Expect(prog.Size()).To(Equal(uint64(1024)))
		})

		It("should handle segments with zero file size", func() {
			elfPath := filepath.Join(tempDir, "zero-filesz.elf")
			seg := loadSegment(0x80040000, 0x6, nil)
			seg.memSize = 4096
			buildELF32(elfPath, machineMIPS, 0x80010000, seg)

			prog, err := loader.LoadELF(elfPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Segments[0].Data).To(BeEmpty())
			Expect(prog.Segments[0].MemSize).To(Equal(uint32(4096)))
		})

		It("should reject a segment smaller in memory than on disk", func() {
			elfPath := filepath.Join(tempDir, "bad-memsz.elf")
			seg := loadSegment(0x80040000, 0x6, []byte{1, 2, 3, 4})
			seg.memSize = 2
			buildELF32(elfPath, machineMIPS, 0x80010000, seg)

			_, err := loader.LoadELF(elfPath)
			Expect(err).To(MatchError(ContainSubstring("memsz")))
		})
	})

	Describe("ELFs with no loadable segments", func() {
		It("should return an empty segment list", func() {
			elfPath := filepath.Join(tempDir, "no-load.elf")
			note := testSegment{ptype: 4, flags: 0x4}
			buildELF32(elfPath, machineMIPS, 0x80010000, note)

			prog, err := loader.LoadELF(elfPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Segments).To(BeEmpty())
			Expect(prog.EntryPoint).To(Equal(uint32(0x80010000)))
		})
	})

	Describe("LoadIntoMemory", func() {
		It("should copy data and zero the BSS tail", func() {
			elfPath := filepath.Join(tempDir, "mem.elf")
			seg := loadSegment(0x80030000, 0x6, codeBytes(0xDEADBEEF))
			seg.memSize = 16
			buildELF32(elfPath, machineMIPS, 0x80010000, seg)

			prog, err := loader.LoadELF(elfPath)
			Expect(err).NotTo(HaveOccurred())

			mem := emu.NewMemory()
			mem.Write32(0x80030008, 0xFFFFFFFF)
			prog.LoadIntoMemory(mem)

			Expect(mem.Read32(0x80030000)).To(Equal(uint32(0xDEADBEEF)))
			Expect(mem.Read32(0x80030008)).To(BeZero())
			// KSEG1 aliases the same physical bytes.
			Expect(mem.Read32(0xA0030000)).To(Equal(uint32(0xDEADBEEF)))
		})
	})
})
