package memory

// RegionID identifies one area of the GBA address space.
type RegionID uint8

// Regions, in address order. The GamePak ROM is visible three times, once
// per wait-state setting.
const (
	RegionUnmapped RegionID = iota
	RegionBIOS
	RegionEWRAM
	RegionIWRAM
	RegionIO
	RegionPalette
	RegionVRAM
	RegionOAM
	RegionROM0
	RegionROM1
	RegionROM2
	RegionSRAM
)

// Region sizes.
const (
	BIOSSize    = 16 * 1024
	EWRAMSize   = 256 * 1024
	IWRAMSize   = 32 * 1024
	IOSize      = 1024
	PaletteSize = 1024
	VRAMSize    = 96 * 1024
	OAMSize     = 1024
	ROMSize     = 32 * 1024 * 1024
	SRAMSize    = 64 * 1024
)

// Region base addresses.
const (
	BIOSBase    uint32 = 0x00000000
	EWRAMBase   uint32 = 0x02000000
	IWRAMBase   uint32 = 0x03000000
	IOBase      uint32 = 0x04000000
	PaletteBase uint32 = 0x05000000
	VRAMBase    uint32 = 0x06000000
	OAMBase     uint32 = 0x07000000
	ROMBase     uint32 = 0x08000000
	SRAMBase    uint32 = 0x0E000000
)

var regionNames = [...]string{
	RegionUnmapped: "unmapped",
	RegionBIOS:     "BIOS",
	RegionEWRAM:    "EWRAM",
	RegionIWRAM:    "IWRAM",
	RegionIO:       "IO",
	RegionPalette:  "Palette",
	RegionVRAM:     "VRAM",
	RegionOAM:      "OAM",
	RegionROM0:     "ROM(WS0)",
	RegionROM1:     "ROM(WS1)",
	RegionROM2:     "ROM(WS2)",
	RegionSRAM:     "SRAM",
}

func (r RegionID) String() string {
	if int(r) < len(regionNames) {
		return regionNames[r]
	}
	return "unknown"
}

// IsROM reports whether the region is one of the GamePak ROM mirrors.
func (r RegionID) IsROM() bool {
	return r == RegionROM0 || r == RegionROM1 || r == RegionROM2
}

// BusWidth returns the width in bytes of the data bus serving the region.
func (r RegionID) BusWidth() int {
	switch r {
	case RegionEWRAM, RegionPalette, RegionVRAM, RegionROM0, RegionROM1, RegionROM2:
		return 2
	case RegionSRAM:
		return 1
	default:
		return 4
	}
}

// Decode returns the region addr falls in.
func Decode(addr uint32) RegionID {
	switch addr >> 24 {
	case 0x00:
		if addr < BIOSSize {
			return RegionBIOS
		}
	case 0x02:
		return RegionEWRAM
	case 0x03:
		return RegionIWRAM
	case 0x04:
		if addr&0xFFFFFF < IOSize {
			return RegionIO
		}
	case 0x05:
		return RegionPalette
	case 0x06:
		return RegionVRAM
	case 0x07:
		return RegionOAM
	case 0x08, 0x09:
		return RegionROM0
	case 0x0A, 0x0B:
		return RegionROM1
	case 0x0C, 0x0D:
		return RegionROM2
	case 0x0E:
		return RegionSRAM
	}
	return RegionUnmapped
}
