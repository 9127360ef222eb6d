package loader_test

import (
	"encoding/binary"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gbasim/cartridge"
	"github.com/sarchlab/gbasim/loader"
	"github.com/sarchlab/gbasim/memory"
)

var _ = Describe("ELF Loader", func() {
	var tempDir string

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()
	})

	Describe("Load", func() {
		Context("with a valid ARM ELF binary", func() {
			var elfPath string

			BeforeEach(func() {
				elfPath = filepath.Join(tempDir, "test.elf")
				createARMELF(elfPath, 0x03000000, testSegment{
					addr:  0x03000000,
					flags: 0x5,
					data: []byte{
						0x2A, 0x00, 0xA0, 0xE3, // mov r0, #42
						0x1E, 0xFF, 0x2F, 0xE1, // bx lr
					},
				})
			})

			It("should extract the entry point", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.EntryPoint).To(Equal(uint32(0x03000000)))
				Expect(prog.Thumb).To(BeFalse())
				Expect(prog.Cartridge).To(BeNil())
			})

			It("should set up the initial stack pointer", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.InitialSP).To(Equal(uint32(loader.DefaultStackTop)))
			})

			It("should report permissions", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Segments).To(HaveLen(1))
				Expect(prog.Segments[0].Flags & loader.SegmentFlagExecute).NotTo(BeZero())
				Expect(prog.Segments[0].Flags & loader.SegmentFlagWrite).To(BeZero())
			})
		})

		It("should mark a THUMB entry point", func() {
			elfPath := filepath.Join(tempDir, "thumb.elf")
			createARMELF(elfPath, 0x03000001, testSegment{
				addr: 0x03000000, data: []byte{0x2A, 0x20}, flags: 0x5, // movs r0, #42
			})

			prog, err := loader.Load(elfPath)

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Thumb).To(BeTrue())
			Expect(prog.EntryPoint).To(Equal(uint32(0x03000000)))
		})

		It("should load multiple PT_LOAD segments", func() {
			elfPath := filepath.Join(tempDir, "multi-segment.elf")
			codeData := []byte{0x2A, 0x00, 0xA0, 0xE3}
			dataData := []byte{0x01, 0x02, 0x03, 0x04}
			createARMELF(elfPath, 0x08000000,
				testSegment{addr: 0x08000000, data: codeData, flags: 0x5},
				testSegment{addr: 0x02000000, data: dataData, flags: 0x6},
			)

			prog, err := loader.Load(elfPath)

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Segments).To(HaveLen(2))
			Expect(prog.Segments[0].Data).To(Equal(codeData))
			Expect(prog.Segments[1].Addr).To(Equal(uint32(0x02000000)))
			Expect(prog.Segments[1].Data).To(Equal(dataData))
			Expect(prog.Segments[1].Flags & loader.SegmentFlagWrite).NotTo(BeZero())
		})

		It("should handle BSS segments where Memsz > Filesz", func() {
			elfPath := filepath.Join(tempDir, "bss.elf")
			createARMELF(elfPath, 0x03000000, testSegment{
				addr: 0x03000100, data: []byte{1, 2, 3, 4}, memSize: 1024, flags: 0x6,
			})

			prog, err := loader.Load(elfPath)

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Segments[0].Data).To(HaveLen(4))
			Expect(prog.Segments[0].MemSize).To(Equal(uint32(1024)))
		})

		Context("with an invalid file", func() {
			It("should return error for non-existent file", func() {
				_, err := loader.Load("/nonexistent/path/to/file.elf")
				Expect(err).To(MatchError(ContainSubstring("failed to open")))
			})

			It("should treat a non-ELF file as a ROM", func() {
				path := filepath.Join(tempDir, "not-elf.bin")
				Expect(os.WriteFile(path, []byte("not an elf file"), 0o644)).To(Succeed())

				_, err := loader.Load(path)
				Expect(err).To(MatchError(cartridge.ErrIncompleteHeader))
			})

			It("should return error for a truncated ELF", func() {
				path := filepath.Join(tempDir, "truncated.elf")
				Expect(os.WriteFile(path, []byte{0x7f, 'E', 'L', 'F', 1}, 0o644)).To(Succeed())

				_, err := loader.Load(path)
				Expect(err).To(MatchError(ContainSubstring("failed to parse ELF")))
			})
		})

		It("should reject a non-ARM machine", func() {
			elfPath := filepath.Join(tempDir, "x86.elf")
			createELFHeaderOnly(elfPath, 1, 3) // EM_386

			_, err := loader.Load(elfPath)
			Expect(err).To(MatchError(ContainSubstring("not an ARM")))
		})

		It("should reject a 64-bit ELF", func() {
			elfPath := filepath.Join(tempDir, "elf64.elf")
			createELFHeaderOnly(elfPath, 2, 183)

			_, err := loader.Load(elfPath)
			Expect(err).To(MatchError(ContainSubstring("not a 32-bit")))
		})
	})

	Describe("GBA ROMs", func() {
		It("should map the ROM at the GamePak entry", func() {
			path := filepath.Join(tempDir, "game.gba")
			rom := make([]byte, 0x200)
			copy(rom[0xA0:], "LOADER")
			Expect(os.WriteFile(path, rom, 0o644)).To(Succeed())

			prog, err := loader.Load(path)

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.EntryPoint).To(Equal(uint32(0x08000000)))
			Expect(prog.Cartridge.Header.Title).To(Equal("LOADER"))
			Expect(prog.Segments).To(HaveLen(1))
			Expect(prog.Segments[0].MemSize).To(Equal(uint32(0x200)))
		})
	})

	Describe("LoadInto", func() {
		It("should write segments and zero BSS", func() {
			elfPath := filepath.Join(tempDir, "load.elf")
			createARMELF(elfPath, 0x03000000,
				testSegment{addr: 0x03000000, data: []byte{0x2A, 0x00, 0xA0, 0xE3}, memSize: 8, flags: 0x7},
			)
			prog, err := loader.Load(elfPath)
			Expect(err).NotTo(HaveOccurred())

			m := memory.NewMap()
			Expect(m.Write32(0x03000004, 0xFFFFFFFF)).To(Succeed())

			Expect(prog.LoadInto(m)).To(Succeed())
			Expect(m.Read32(0x03000000)).To(Equal(uint32(0xE3A0002A)))
			Expect(m.Read32(0x03000004)).To(BeZero())
		})

		It("should install a GamePak image as the ROM", func() {
			rom := make([]byte, 0x200)
			rom[0] = 0xAB
			prog, err := loader.LoadROM(rom)
			Expect(err).NotTo(HaveOccurred())

			m := memory.NewMap()
			Expect(prog.LoadInto(m)).To(Succeed())
			Expect(m.ROMSize()).To(Equal(0x200))
			Expect(m.Read8(0x0A000000)).To(Equal(uint8(0xAB)))
		})

		It("should fail on an unmapped segment", func() {
			prog := &loader.Program{Segments: []loader.Segment{
				{Addr: 0x10000000, Data: []byte{1}, MemSize: 1},
			}}

			Expect(prog.LoadInto(memory.NewMap())).To(MatchError(memory.ErrUnmapped))
		})
	})
})

type testSegment struct {
	addr    uint32
	data    []byte
	memSize uint32
	flags   uint32
}

// createARMELF writes a little-endian ELF32 ARM executable with one
// PT_LOAD program header per segment.
func createARMELF(path string, entry uint32, segs ...testSegment) {
	const ehSize, phSize = 52, 32

	elfHeader := make([]byte, ehSize)
	copy(elfHeader[0:4], []byte{0x7f, 'E', 'L', 'F'})
	elfHeader[4] = 1                                                   // 32-bit
	elfHeader[5] = 1                                                   // little endian
	elfHeader[6] = 1                                                   // version
	binary.LittleEndian.PutUint16(elfHeader[16:18], 2)                 // executable
	binary.LittleEndian.PutUint16(elfHeader[18:20], 40)                // ARM
	binary.LittleEndian.PutUint32(elfHeader[20:24], 1)                 // version
	binary.LittleEndian.PutUint32(elfHeader[24:28], entry)             // entry
	binary.LittleEndian.PutUint32(elfHeader[28:32], ehSize)            // phoff
	binary.LittleEndian.PutUint16(elfHeader[40:42], ehSize)            // ehsize
	binary.LittleEndian.PutUint16(elfHeader[42:44], phSize)            // phentsize
	binary.LittleEndian.PutUint16(elfHeader[44:46], uint16(len(segs))) // phnum
	binary.LittleEndian.PutUint16(elfHeader[46:48], 40)                // shentsize

	offset := uint32(ehSize + phSize*len(segs))
	var progHeaders, contents []byte
	for _, seg := range segs {
		memSize := seg.memSize
		if memSize == 0 {
			memSize = uint32(len(seg.data))
		}

		ph := make([]byte, phSize)
		binary.LittleEndian.PutUint32(ph[0:4], 1) // PT_LOAD
		binary.LittleEndian.PutUint32(ph[4:8], offset)
		binary.LittleEndian.PutUint32(ph[8:12], seg.addr)
		binary.LittleEndian.PutUint32(ph[12:16], seg.addr)
		binary.LittleEndian.PutUint32(ph[16:20], uint32(len(seg.data)))
		binary.LittleEndian.PutUint32(ph[20:24], memSize)
		binary.LittleEndian.PutUint32(ph[24:28], seg.flags)
		binary.LittleEndian.PutUint32(ph[28:32], 4)

		progHeaders = append(progHeaders, ph...)
		contents = append(contents, seg.data...)
		offset += uint32(len(seg.data))
	}

	file, _ := os.Create(path)
	defer func() { _ = file.Close() }()

	_, _ = file.Write(elfHeader)
	_, _ = file.Write(progHeaders)
	_, _ = file.Write(contents)
}

// createELFHeaderOnly writes an ELF header with no program headers to test
// rejection. class is 1 for 32-bit and 2 for 64-bit.
func createELFHeaderOnly(path string, class byte, machine uint16) {
	elfHeader := make([]byte, 64)

	copy(elfHeader[0:4], []byte{0x7f, 'E', 'L', 'F'})
	elfHeader[4] = class                                     // class
	elfHeader[5] = 1                                         // little endian
	elfHeader[6] = 1                                         // version
	binary.LittleEndian.PutUint16(elfHeader[16:18], 2)       // executable
	binary.LittleEndian.PutUint16(elfHeader[18:20], machine) // machine
	binary.LittleEndian.PutUint32(elfHeader[20:24], 1)       // version

	file, _ := os.Create(path)
	defer func() { _ = file.Close() }()
	_, _ = file.Write(elfHeader)
}
