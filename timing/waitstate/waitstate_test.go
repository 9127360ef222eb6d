package waitstate_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gbasim/emu"
	"github.com/sarchlab/gbasim/memory"
	"github.com/sarchlab/gbasim/timing/waitstate"
)

var _ emu.WaitStates = (*waitstate.Table)(nil)

var _ = Describe("Table", func() {
	var table *waitstate.Table

	BeforeEach(func() {
		table = waitstate.NewTable()
	})

	DescribeTable("access cycles with power-on settings",
		func(addr uint32, width int, sequential bool, want uint64) {
			Expect(table.AccessCycles(addr, width, sequential, false)).To(Equal(want))
		},
		Entry("BIOS word", uint32(0x00000000), 4, false, uint64(1)),
		Entry("IWRAM word", uint32(0x03000000), 4, false, uint64(1)),
		Entry("IO word", uint32(0x04000000), 4, false, uint64(1)),
		Entry("EWRAM halfword", uint32(0x02000000), 2, false, uint64(3)),
		Entry("EWRAM word", uint32(0x02000000), 4, true, uint64(6)),
		Entry("VRAM word", uint32(0x06000000), 4, false, uint64(2)),
		Entry("WS0 N halfword", uint32(0x08000000), 2, false, uint64(5)),
		Entry("WS0 S halfword", uint32(0x08000002), 2, true, uint64(3)),
		Entry("WS0 N word", uint32(0x08000000), 4, false, uint64(8)),
		Entry("WS0 S word", uint32(0x08000004), 4, true, uint64(6)),
		Entry("WS1 S halfword", uint32(0x0A000002), 2, true, uint64(5)),
		Entry("WS2 S halfword", uint32(0x0C000002), 2, true, uint64(9)),
		Entry("SRAM byte", uint32(0x0E000000), 1, false, uint64(5)),
		Entry("SRAM word", uint32(0x0E000000), 4, false, uint64(5)),
	)

	It("should report region waits", func() {
		Expect(table.Waits(memory.RegionIWRAM, false)).To(BeZero())
		Expect(table.Waits(memory.RegionEWRAM, false)).To(Equal(uint64(2)))
		Expect(table.Waits(memory.RegionROM2, false)).To(Equal(uint64(4)))
	})

	It("should not attach a prefetch buffer by default", func() {
		Expect(table.Prefetch()).To(BeNil())
		Expect(table.Config()).To(Equal(waitstate.DefaultConfig()))
	})

	It("should honour bus width overrides", func() {
		cfg := waitstate.DefaultConfig()
		cfg.BusWidths = map[string]int{"EWRAM": 4}
		table = waitstate.NewTableWithConfig(cfg)

		Expect(table.AccessCycles(0x02000000, 4, false, false)).To(Equal(uint64(3)))
	})

	Context("with prefetch enabled", func() {
		BeforeEach(func() {
			cfg := waitstate.DefaultConfig()
			cfg.Prefetch = true
			table = waitstate.NewTableWithConfig(cfg)
		})

		It("should make buffered ROM fetches wait-free", func() {
			Expect(table.AccessCycles(0x08000000, 2, false, true)).To(Equal(uint64(5)))
			Expect(table.AccessCycles(0x08000002, 2, true, true)).To(Equal(uint64(1)))
			Expect(table.AccessCycles(0x08000004, 4, true, true)).To(Equal(uint64(2)))
			Expect(table.Prefetch().Stats().Hits).To(Equal(uint64(2)))
		})

		It("should flush the buffer on a ROM data access", func() {
			table.AccessCycles(0x08000000, 2, false, true)
			table.AccessCycles(0x08000100, 4, false, false)

			Expect(table.AccessCycles(0x08000002, 2, true, true)).To(Equal(uint64(3)))
		})

		It("should ignore fetches outside the ROM", func() {
			table.AccessCycles(0x03000000, 4, false, true)
			Expect(table.Prefetch().Stats().Lookups).To(BeZero())
		})
	})
})

var _ = Describe("Config", func() {
	It("should validate the defaults", func() {
		Expect(waitstate.DefaultConfig().Validate()).To(Succeed())
	})

	DescribeTable("invalid settings",
		func(mutate func(*waitstate.Config), msg string) {
			cfg := waitstate.DefaultConfig()
			mutate(cfg)
			Expect(cfg.Validate()).To(MatchError(ContainSubstring(msg)))
		},
		Entry("SRAM wait", func(c *waitstate.Config) { c.SRAMWait = 5 }, "sram_wait"),
		Entry("N wait", func(c *waitstate.Config) { c.WS1N = 1 }, "ws1_n"),
		Entry("WS0 S wait", func(c *waitstate.Config) { c.WS0S = 4 }, "ws0_s"),
		Entry("WS1 S wait", func(c *waitstate.Config) { c.WS1S = 2 }, "ws1_s"),
		Entry("WS2 S wait", func(c *waitstate.Config) { c.WS2S = 4 }, "ws2_s"),
		Entry("unknown region", func(c *waitstate.Config) {
			c.BusWidths = map[string]int{"Cartridge": 2}
		}, "unknown region"),
		Entry("bad width", func(c *waitstate.Config) {
			c.BusWidths = map[string]int{"VRAM": 3}
		}, "VRAM width"),
	)

	It("should decode WAITCNT", func() {
		cfg := waitstate.FromWAITCNT(0x4317)

		Expect(cfg.SRAMWait).To(Equal(uint64(8)))
		Expect(cfg.WS0N).To(Equal(uint64(3)))
		Expect(cfg.WS0S).To(Equal(uint64(1)))
		Expect(cfg.WS1N).To(Equal(uint64(4)))
		Expect(cfg.WS1S).To(Equal(uint64(4)))
		Expect(cfg.WS2N).To(Equal(uint64(8)))
		Expect(cfg.WS2S).To(Equal(uint64(8)))
		Expect(cfg.Prefetch).To(BeTrue())
		Expect(cfg.Validate()).To(Succeed())
	})

	It("should match the defaults for WAITCNT zero", func() {
		Expect(waitstate.FromWAITCNT(0)).To(Equal(waitstate.DefaultConfig()))
	})

	It("should clone deeply", func() {
		cfg := waitstate.DefaultConfig()
		cfg.BusWidths = map[string]int{"EWRAM": 4}

		clone := cfg.Clone()
		clone.BusWidths["EWRAM"] = 2
		clone.WS0N = 8

		Expect(cfg.BusWidths["EWRAM"]).To(Equal(4))
		Expect(cfg.WS0N).To(Equal(uint64(4)))
	})

	Describe("files", func() {
		var dir string

		BeforeEach(func() {
			dir = GinkgoT().TempDir()
		})

		It("should round-trip through JSON", func() {
			path := filepath.Join(dir, "waits.json")
			cfg := waitstate.FromWAITCNT(0x4317)

			Expect(cfg.SaveConfig(path)).To(Succeed())
			loaded, err := waitstate.LoadConfig(path)

			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(cfg))
		})

		It("should keep defaults for missing fields", func() {
			path := filepath.Join(dir, "partial.json")
			Expect(os.WriteFile(path, []byte(`{"ws0_s": 1}`), 0o644)).To(Succeed())

			loaded, err := waitstate.LoadConfig(path)

			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.WS0S).To(Equal(uint64(1)))
			Expect(loaded.WS0N).To(Equal(uint64(4)))
		})

		It("should report parse errors", func() {
			path := filepath.Join(dir, "bad.json")
			Expect(os.WriteFile(path, []byte(`{`), 0o644)).To(Succeed())

			_, err := waitstate.LoadConfig(path)
			Expect(err).To(MatchError(ContainSubstring("failed to parse")))
		})

		It("should report a missing file", func() {
			_, err := waitstate.LoadConfig(filepath.Join(dir, "missing.json"))
			Expect(err).To(MatchError(ContainSubstring("failed to read")))
		})
	})
})
