// Package cartridge parses GamePak ROM images.
package cartridge

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
)

// HeaderSize is the size of the cartridge header at the start of the ROM.
const HeaderSize = 0xC0

// FixedValue is the value required at offset 0xB2.
const FixedValue = 0x96

const (
	titleOffset    = 0xA0
	gameCodeOffset = 0xAC
	makerOffset    = 0xB0
	fixedOffset    = 0xB2
	unitOffset     = 0xB3
	versionOffset  = 0xBC
	checksumOffset = 0xBD
)

// ErrIncompleteHeader is wrapped by IncompleteHeaderError.
var ErrIncompleteHeader = errors.New("incomplete ROM header")

// IncompleteHeaderError reports a ROM image shorter than the header.
type IncompleteHeaderError struct {
	Len int
}

func (e *IncompleteHeaderError) Error() string {
	return fmt.Sprintf("%v: got %d bytes, need %d", ErrIncompleteHeader, e.Len, HeaderSize)
}

func (e *IncompleteHeaderError) Unwrap() error {
	return ErrIncompleteHeader
}

// Header holds the fields of the GamePak header.
type Header struct {
	// Title is the game title with trailing NUL padding removed.
	Title string
	// GameCode is the four-character game code.
	GameCode string
	// MakerCode is the two-character maker code.
	MakerCode string
	// Fixed is the byte at 0xB2; genuine carts hold FixedValue.
	Fixed uint8
	// UnitCode is 0 for current GBA models.
	UnitCode uint8
	// Version is the software version.
	Version uint8
	// Checksum is the complement check stored in the header.
	Checksum uint8
}

// Parse reads the header from the first HeaderSize bytes of data. A
// checksum mismatch is logged but does not fail the parse.
func Parse(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, &IncompleteHeaderError{Len: len(data)}
	}

	h := &Header{
		Title:     string(bytes.TrimRight(data[titleOffset:gameCodeOffset], "\x00")),
		GameCode:  string(data[gameCodeOffset:makerOffset]),
		MakerCode: string(data[makerOffset:fixedOffset]),
		Fixed:     data[fixedOffset],
		UnitCode:  data[unitOffset],
		Version:   data[versionOffset],
		Checksum:  data[checksumOffset],
	}

	if sum := ComputeChecksum(data); sum != h.Checksum {
		slog.Warn("cartridge: invalid header checksum",
			"computed", fmt.Sprintf("0x%02X", sum),
			"stored", fmt.Sprintf("0x%02X", h.Checksum),
		)
	}

	if h.Fixed != FixedValue {
		Trace("unexpected fixed header byte", "value", fmt.Sprintf("0x%02X", h.Fixed))
	}

	return h, nil
}

// ComputeChecksum returns the complement check over bytes 0xA0 to 0xBC of
// a header. data must hold at least HeaderSize bytes.
func ComputeChecksum(data []byte) uint8 {
	var sum uint8
	for _, b := range data[titleOffset:checksumOffset] {
		sum -= b
	}
	return sum - 0x19
}

// String returns a one-line summary of the header.
func (h *Header) String() string {
	return fmt.Sprintf("%q [%s] maker %s v%d", h.Title, h.GameCode, h.MakerCode, h.Version)
}
