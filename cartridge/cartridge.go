package cartridge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// LevelTrace is the log level for header diagnostics.
const LevelTrace = slog.LevelInfo + 1

// Trace logs at LevelTrace through the default logger.
func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, "cartridge: "+msg, args...)
}

// Cartridge is a parsed GamePak image.
type Cartridge struct {
	Header *Header
	ROM    []byte
}

// Load parses the header of a ROM image. The image is kept as given.
func Load(data []byte) (*Cartridge, error) {
	h, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return &Cartridge{Header: h, ROM: data}, nil
}

// LoadFile reads a ROM image from disk.
func LoadFile(path string) (*Cartridge, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ROM: %w", err)
	}

	cart, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return cart, nil
}

// Size returns the ROM size in bytes.
func (c *Cartridge) Size() int {
	return len(c.ROM)
}
