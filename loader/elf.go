// Package loader loads guest programs: ARM ELF executables and GBA ROM
// images.
package loader

import (
	"bytes"
	"debug/elf"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/gbasim/cartridge"
	"github.com/sarchlab/gbasim/memory"
)

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// DefaultStackTop is the User/System stack pointer set up by the BIOS.
const DefaultStackTop = 0x03007F00

// ROMEntry is where a GamePak image starts executing.
const ROMEntry = memory.ROMBase

// Segment represents a loadable segment.
type Segment struct {
	// Addr is the address where this segment should be loaded.
	Addr uint32
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data) for BSS).
	MemSize uint32
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Program is a loaded program ready for execution.
type Program struct {
	// EntryPoint is the address where execution should begin.
	EntryPoint uint32
	// Segments contains all loadable segments.
	Segments []Segment
	// InitialSP is the initial stack pointer value.
	InitialSP uint32
	// Thumb is set when the entry point is THUMB code.
	Thumb bool
	// Cartridge is set for GamePak images.
	Cartridge *cartridge.Cartridge
}

var elfMagic = []byte{0x7f, 'E', 'L', 'F'}

// Load reads an ARM ELF executable or a GBA ROM image. Files that start
// with the ELF magic are parsed as ELF; anything else is taken to be a
// ROM.
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	if bytes.HasPrefix(data, elfMagic) {
		return LoadELF(bytes.NewReader(data))
	}
	return LoadROM(data)
}

// LoadROM wraps a GamePak image as a program mapped at ROMEntry.
func LoadROM(data []byte) (*Program, error) {
	cart, err := cartridge.Load(data)
	if err != nil {
		return nil, err
	}

	return &Program{
		EntryPoint: ROMEntry,
		InitialSP:  DefaultStackTop,
		Cartridge:  cart,
		Segments: []Segment{{
			Addr:    ROMEntry,
			Data:    cart.ROM,
			MemSize: uint32(len(cart.ROM)),
			Flags:   SegmentFlagRead | SegmentFlagExecute,
		}},
	}, nil
}

// LoadELF parses a 32-bit little-endian ARM ELF executable.
func LoadELF(r io.ReaderAt) (*Program, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.Class != elf.ELFCLASS32 {
		return nil, fmt.Errorf("not a 32-bit ELF file")
	}

	if f.Data != elf.ELFDATA2LSB {
		return nil, fmt.Errorf("not a little-endian ELF file")
	}

	if f.Machine != elf.EM_ARM {
		return nil, fmt.Errorf("not an ARM ELF file (machine type: %v)", f.Machine)
	}

	// Bit 0 of the entry selects THUMB, as with BX.
	entry := uint32(f.Entry)
	prog := &Program{
		EntryPoint: entry &^ 1,
		InitialSP:  DefaultStackTop,
		Thumb:      entry&1 != 0,
	}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		data := make([]byte, phdr.Filesz)
		if phdr.Filesz > 0 {
			n, err := phdr.ReadAt(data, 0)
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Vaddr, err)
			}
			if uint64(n) != phdr.Filesz {
				return nil, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
					phdr.Vaddr, n, phdr.Filesz)
			}
		}

		var flags SegmentFlags
		if phdr.Flags&elf.PF_X != 0 {
			flags |= SegmentFlagExecute
		}
		if phdr.Flags&elf.PF_W != 0 {
			flags |= SegmentFlagWrite
		}
		if phdr.Flags&elf.PF_R != 0 {
			flags |= SegmentFlagRead
		}

		prog.Segments = append(prog.Segments, Segment{
			Addr:    uint32(phdr.Vaddr),
			Data:    data,
			MemSize: uint32(phdr.Memsz),
			Flags:   flags,
		})
	}

	return prog, nil
}

// LoadInto copies the program into m. GamePak images are installed as the
// ROM; ELF segments are written at their addresses with BSS zeroed.
func (p *Program) LoadInto(m *memory.Map) error {
	if p.Cartridge != nil {
		return m.LoadROM(p.Cartridge.ROM)
	}

	for _, seg := range p.Segments {
		image := seg.Data
		if seg.MemSize > uint32(len(image)) {
			image = make([]byte, seg.MemSize)
			copy(image, seg.Data)
		}

		if err := m.Load(seg.Addr, image); err != nil {
			return fmt.Errorf("failed to load segment at 0x%08X: %w", seg.Addr, err)
		}
	}

	return nil
}
