package waitstate

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/gbasim/memory"
)

// Config holds the wait-state settings of the GBA memory system. The
// GamePak values mirror the fields of the WAITCNT register.
type Config struct {
	// SRAMWait is the wait for GamePak SRAM accesses. Default: 4.
	SRAMWait uint64 `json:"sram_wait"`

	// WS0N and WS0S are the non-sequential and sequential waits for the
	// first ROM mirror. Default: 4 and 2.
	WS0N uint64 `json:"ws0_n"`
	WS0S uint64 `json:"ws0_s"`

	// WS1N and WS1S are the waits for the second ROM mirror. Default: 4
	// and 4.
	WS1N uint64 `json:"ws1_n"`
	WS1S uint64 `json:"ws1_s"`

	// WS2N and WS2S are the waits for the third ROM mirror. Default: 4
	// and 8.
	WS2N uint64 `json:"ws2_n"`
	WS2S uint64 `json:"ws2_s"`

	// EWRAMWait is the wait for on-board work RAM. Default: 2.
	EWRAMWait uint64 `json:"ewram_wait"`

	// Prefetch enables the GamePak prefetch buffer.
	Prefetch bool `json:"prefetch"`

	// BusWidths overrides the data bus width in bytes of a region, keyed
	// by region name ("EWRAM", "ROM(WS0)", ...).
	BusWidths map[string]int `json:"bus_widths,omitempty"`
}

// DefaultConfig returns the power-on settings (WAITCNT = 0).
func DefaultConfig() *Config {
	return &Config{
		SRAMWait:  4,
		WS0N:      4,
		WS0S:      2,
		WS1N:      4,
		WS1S:      4,
		WS2N:      4,
		WS2S:      8,
		EWRAMWait: 2,
	}
}

// FromWAITCNT decodes a WAITCNT register value.
func FromWAITCNT(value uint16) *Config {
	nWaits := [4]uint64{4, 3, 2, 8}

	c := DefaultConfig()
	c.SRAMWait = nWaits[value&3]
	c.WS0N = nWaits[value>>2&3]
	c.WS0S = pick(value>>4&1 != 0, 1, 2)
	c.WS1N = nWaits[value>>5&3]
	c.WS1S = pick(value>>7&1 != 0, 1, 4)
	c.WS2N = nWaits[value>>8&3]
	c.WS2S = pick(value>>10&1 != 0, 1, 8)
	c.Prefetch = value>>14&1 != 0
	return c
}

func pick(cond bool, a, b uint64) uint64 {
	if cond {
		return a
	}
	return b
}

// LoadConfig loads a Config from a JSON file. Fields missing from the file
// keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read wait-state config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse wait-state config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize wait-state config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write wait-state config file: %w", err)
	}

	return nil
}

func oneOf(v uint64, allowed ...uint64) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// Validate checks that every value is one the hardware can be set to.
func (c *Config) Validate() error {
	if !oneOf(c.SRAMWait, 2, 3, 4, 8) {
		return fmt.Errorf("sram_wait must be 2, 3, 4 or 8")
	}
	if !oneOf(c.WS0N, 2, 3, 4, 8) || !oneOf(c.WS1N, 2, 3, 4, 8) || !oneOf(c.WS2N, 2, 3, 4, 8) {
		return fmt.Errorf("ws0_n, ws1_n and ws2_n must be 2, 3, 4 or 8")
	}
	if !oneOf(c.WS0S, 1, 2) {
		return fmt.Errorf("ws0_s must be 1 or 2")
	}
	if !oneOf(c.WS1S, 1, 4) {
		return fmt.Errorf("ws1_s must be 1 or 4")
	}
	if !oneOf(c.WS2S, 1, 8) {
		return fmt.Errorf("ws2_s must be 1 or 8")
	}

	for name, width := range c.BusWidths {
		if _, ok := regionByName(name); !ok {
			return fmt.Errorf("bus_widths: unknown region %q", name)
		}
		if width != 1 && width != 2 && width != 4 {
			return fmt.Errorf("bus_widths: %s width must be 1, 2 or 4", name)
		}
	}

	return nil
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	if c.BusWidths != nil {
		clone.BusWidths = make(map[string]int, len(c.BusWidths))
		for k, v := range c.BusWidths {
			clone.BusWidths[k] = v
		}
	}
	return &clone
}

func regionByName(name string) (memory.RegionID, bool) {
	for id := memory.RegionBIOS; id <= memory.RegionSRAM; id++ {
		if id.String() == name {
			return id, true
		}
	}
	return memory.RegionUnmapped, false
}
