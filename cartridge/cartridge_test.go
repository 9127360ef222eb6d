package cartridge_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gbasim/cartridge"
)

// makeROM builds a ROM image with a valid header of the given size.
func makeROM(size int) []byte {
	rom := make([]byte, size)
	copy(rom[0xA0:], "GBA Tests")
	copy(rom[0xAC:], "1337")
	copy(rom[0xB0:], "JS")
	rom[0xB2] = cartridge.FixedValue
	rom[0xBD] = cartridge.ComputeChecksum(rom)
	return rom
}

var _ = Describe("Parse", func() {
	It("should read the header fields", func() {
		rom := makeROM(0x200)
		rom[0xBC] = 3
		rom[0xBD] = cartridge.ComputeChecksum(rom)

		h, err := cartridge.Parse(rom)

		Expect(err).NotTo(HaveOccurred())
		Expect(h.Title).To(Equal("GBA Tests"))
		Expect(h.GameCode).To(Equal("1337"))
		Expect(h.MakerCode).To(Equal("JS"))
		Expect(h.Fixed).To(Equal(uint8(cartridge.FixedValue)))
		Expect(h.UnitCode).To(BeZero())
		Expect(h.Version).To(Equal(uint8(3)))
		Expect(h.Checksum).To(Equal(cartridge.ComputeChecksum(rom)))
		Expect(h.String()).To(ContainSubstring("GBA Tests"))
	})

	It("should compute the complement check", func() {
		rom := make([]byte, cartridge.HeaderSize)
		Expect(cartridge.ComputeChecksum(rom)).To(Equal(uint8(0xE7)))

		rom[0xA0] = 0x01
		Expect(cartridge.ComputeChecksum(rom)).To(Equal(uint8(0xE6)))
	})

	It("should accept a header of exactly 192 bytes", func() {
		_, err := cartridge.Parse(makeROM(cartridge.HeaderSize))
		Expect(err).NotTo(HaveOccurred())
	})

	It("should reject a short image", func() {
		_, err := cartridge.Parse(make([]byte, 191))

		Expect(err).To(MatchError(cartridge.ErrIncompleteHeader))
		var headerErr *cartridge.IncompleteHeaderError
		Expect(err).To(BeAssignableToTypeOf(headerErr))
		Expect(err.Error()).To(ContainSubstring("got 191 bytes"))
	})

	Context("with a bad checksum", func() {
		var (
			buf *bytes.Buffer
			old *slog.Logger
		)

		BeforeEach(func() {
			buf = &bytes.Buffer{}
			old = slog.Default()
			slog.SetDefault(slog.New(slog.NewTextHandler(buf, nil)))
		})

		AfterEach(func() {
			slog.SetDefault(old)
		})

		It("should warn and still succeed", func() {
			rom := makeROM(0x200)
			rom[0xBD]++

			h, err := cartridge.Parse(rom)

			Expect(err).NotTo(HaveOccurred())
			Expect(h.Title).To(Equal("GBA Tests"))
			Expect(buf.String()).To(ContainSubstring("level=WARN"))
			Expect(buf.String()).To(ContainSubstring("invalid header checksum"))
		})
	})
})

var _ = Describe("Load", func() {
	It("should keep the ROM image", func() {
		rom := makeROM(0x400)

		cart, err := cartridge.Load(rom)

		Expect(err).NotTo(HaveOccurred())
		Expect(cart.Size()).To(Equal(0x400))
		Expect(cart.Header.GameCode).To(Equal("1337"))
	})

	It("should read a ROM from disk", func() {
		path := filepath.Join(GinkgoT().TempDir(), "test.gba")
		Expect(os.WriteFile(path, makeROM(0x400), 0o644)).To(Succeed())

		cart, err := cartridge.LoadFile(path)

		Expect(err).NotTo(HaveOccurred())
		Expect(cart.ROM).To(HaveLen(0x400))
	})

	It("should report a missing file", func() {
		_, err := cartridge.LoadFile("/nonexistent/game.gba")
		Expect(err).To(MatchError(ContainSubstring("failed to read ROM")))
	})

	It("should name the file on a header error", func() {
		path := filepath.Join(GinkgoT().TempDir(), "short.gba")
		Expect(os.WriteFile(path, []byte("short"), 0o644)).To(Succeed())

		_, err := cartridge.LoadFile(path)

		Expect(err).To(MatchError(cartridge.ErrIncompleteHeader))
		Expect(err.Error()).To(ContainSubstring("short.gba"))
	})
})
