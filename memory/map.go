// Package memory provides the GBA memory map.
package memory

import (
	"encoding/binary"
	"fmt"
	"log/slog"
)

// Map is the GBA address space. It implements emu.Bus.
//
// Addresses passed to the 16- and 32-bit accessors are expected to be
// aligned to the access width, which the core guarantees. Writes to the
// BIOS and ROM are ignored.
type Map struct {
	bios    []byte
	ewram   []byte
	iwram   []byte
	io      []byte
	palette []byte
	vram    []byte
	oam     []byte
	rom     []byte
	sram    []byte
}

// NewMap creates a memory map with all RAM cleared and no ROM loaded.
func NewMap() *Map {
	return &Map{
		bios:    make([]byte, BIOSSize),
		ewram:   make([]byte, EWRAMSize),
		iwram:   make([]byte, IWRAMSize),
		io:      make([]byte, IOSize),
		palette: make([]byte, PaletteSize),
		vram:    make([]byte, VRAMSize),
		oam:     make([]byte, OAMSize),
		sram:    make([]byte, SRAMSize),
	}
}

// Region returns the region addr falls in.
func (m *Map) Region(addr uint32) RegionID {
	return Decode(addr)
}

// ROMSize returns the size of the loaded ROM image.
func (m *Map) ROMSize() int {
	return len(m.rom)
}

// LoadBIOS copies a BIOS image to address 0.
func (m *Map) LoadBIOS(data []byte) error {
	if len(data) > BIOSSize {
		return fmt.Errorf("failed to load BIOS of %d bytes: %w", len(data), ErrTooLarge)
	}
	clear(m.bios)
	copy(m.bios, data)
	return nil
}

// LoadROM installs a GamePak ROM image. It becomes visible at all three
// ROM mirrors.
func (m *Map) LoadROM(data []byte) error {
	if len(data) > ROMSize {
		return fmt.Errorf("failed to load ROM of %d bytes: %w", len(data), ErrTooLarge)
	}
	m.rom = append([]byte(nil), data...)
	return nil
}

// Load copies data into memory starting at addr, bypassing the read-only
// protection of the BIOS and ROM. The ROM grows to hold data written past
// its current end.
func (m *Map) Load(addr uint32, data []byte) error {
	for i, b := range data {
		a := addr + uint32(i)

		if Decode(a).IsROM() {
			off := int(a & (ROMSize - 1))
			if off >= len(m.rom) {
				m.rom = append(m.rom, make([]byte, off+1-len(m.rom))...)
			}
			m.rom[off] = b
			continue
		}

		buf, off, _ := m.locate(a)
		if buf == nil {
			return fmt.Errorf("failed to load %d bytes at 0x%08X: %w",
				len(data), addr, &AccessError{Addr: a, Width: 1, Write: true})
		}
		buf[off] = b
	}
	return nil
}

// locate returns the backing storage and offset for addr. A nil buffer
// means the address is unmapped or past the end of the ROM.
func (m *Map) locate(addr uint32) ([]byte, uint32, RegionID) {
	id := Decode(addr)

	switch id {
	case RegionBIOS:
		return m.bios, addr, id
	case RegionEWRAM:
		return m.ewram, addr & (EWRAMSize - 1), id
	case RegionIWRAM:
		return m.iwram, addr & (IWRAMSize - 1), id
	case RegionIO:
		return m.io, addr & (IOSize - 1), id
	case RegionPalette:
		return m.palette, addr & (PaletteSize - 1), id
	case RegionVRAM:
		// 96 KiB in a 128 KiB window; the last 32 KiB repeat the
		// preceding 32 KiB.
		off := addr & 0x1FFFF
		if off >= VRAMSize {
			off -= 0x8000
		}
		return m.vram, off, id
	case RegionOAM:
		return m.oam, addr & (OAMSize - 1), id
	case RegionROM0, RegionROM1, RegionROM2:
		off := addr & (ROMSize - 1)
		if int(off) >= len(m.rom) {
			return nil, off, id
		}
		return m.rom, off, id
	case RegionSRAM:
		return m.sram, addr & (SRAMSize - 1), id
	default:
		return nil, 0, id
	}
}

// openBusROM returns what a read past the end of the ROM observes: the
// halfword address on the GamePak bus.
func openBusROM(off uint32) uint16 {
	return uint16(off >> 1)
}

// Read8 reads a byte.
func (m *Map) Read8(addr uint32) (uint8, error) {
	buf, off, id := m.locate(addr)
	switch {
	case buf != nil:
		return buf[off], nil
	case id.IsROM():
		return uint8(openBusROM(off) >> (8 * (off & 1))), nil
	default:
		return 0, &AccessError{Addr: addr, Width: 1}
	}
}

// Read16 reads a little-endian halfword.
func (m *Map) Read16(addr uint32) (uint16, error) {
	buf, off, id := m.locate(addr)
	switch {
	case id == RegionSRAM:
		return uint16(buf[off]) * 0x0101, nil
	case buf != nil && int(off)+2 <= len(buf):
		return binary.LittleEndian.Uint16(buf[off:]), nil
	case id.IsROM():
		return openBusROM(off), nil
	default:
		return 0, &AccessError{Addr: addr, Width: 2}
	}
}

// Read32 reads a little-endian word.
func (m *Map) Read32(addr uint32) (uint32, error) {
	buf, off, id := m.locate(addr)
	switch {
	case id == RegionSRAM:
		return uint32(buf[off]) * 0x01010101, nil
	case buf != nil && int(off)+4 <= len(buf):
		return binary.LittleEndian.Uint32(buf[off:]), nil
	case id.IsROM():
		lo, _ := m.Read16(addr)
		hi, _ := m.Read16(addr + 2)
		return uint32(hi)<<16 | uint32(lo), nil
	default:
		return 0, &AccessError{Addr: addr, Width: 4}
	}
}

// writable returns the storage for a write, or nil when the write is to be
// dropped. ok is false for unmapped addresses.
func (m *Map) writable(addr uint32) (buf []byte, off uint32, ok bool) {
	buf, off, id := m.locate(addr)
	switch {
	case id == RegionUnmapped:
		return nil, 0, false
	case id == RegionBIOS || id.IsROM():
		slog.Debug("memory: write to read-only region ignored",
			"region", id, "addr", fmt.Sprintf("0x%08X", addr))
		return nil, 0, true
	default:
		return buf, off, true
	}
}

// Write8 writes a byte.
func (m *Map) Write8(addr uint32, value uint8) error {
	buf, off, ok := m.writable(addr)
	if !ok {
		return &AccessError{Addr: addr, Width: 1, Write: true}
	}
	if buf != nil {
		buf[off] = value
	}
	return nil
}

// Write16 writes a little-endian halfword. SRAM sits on an 8-bit bus and
// keeps only the low byte.
func (m *Map) Write16(addr uint32, value uint16) error {
	buf, off, ok := m.writable(addr)
	if !ok {
		return &AccessError{Addr: addr, Width: 2, Write: true}
	}
	switch {
	case buf == nil:
	case Decode(addr) == RegionSRAM:
		buf[off] = uint8(value)
	default:
		binary.LittleEndian.PutUint16(buf[off:], value)
	}
	return nil
}

// Write32 writes a little-endian word. SRAM sits on an 8-bit bus and keeps
// only the low byte.
func (m *Map) Write32(addr uint32, value uint32) error {
	buf, off, ok := m.writable(addr)
	if !ok {
		return &AccessError{Addr: addr, Width: 4, Write: true}
	}
	switch {
	case buf == nil:
	case Decode(addr) == RegionSRAM:
		buf[off] = uint8(value)
	default:
		binary.LittleEndian.PutUint32(buf[off:], value)
	}
	return nil
}
