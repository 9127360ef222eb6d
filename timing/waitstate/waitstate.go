// Package waitstate charges GBA bus cycles per memory access.
//
// Each access costs one cycle plus the wait states of the region it
// touches. An access wider than the region's data bus is split, with the
// second half always sequential.
package waitstate

import (
	"github.com/sarchlab/gbasim/memory"
	"github.com/sarchlab/gbasim/timing/prefetch"
)

// Table implements emu.WaitStates.
type Table struct {
	config   *Config
	widths   [memory.RegionSRAM + 1]int
	prefetch *prefetch.Buffer
}

// NewTable creates a table with the power-on wait states.
func NewTable() *Table {
	return NewTableWithConfig(DefaultConfig())
}

// NewTableWithConfig creates a table from config. A prefetch buffer is
// attached when config enables it.
func NewTableWithConfig(config *Config) *Table {
	t := &Table{config: config}

	for id := range t.widths {
		t.widths[id] = memory.RegionID(id).BusWidth()
	}
	for name, width := range config.BusWidths {
		if id, ok := regionByName(name); ok {
			t.widths[id] = width
		}
	}

	if config.Prefetch {
		t.prefetch = prefetch.New(prefetch.DefaultConfig())
	}

	return t
}

// Config returns the table's configuration.
func (t *Table) Config() *Config {
	return t.config
}

// Prefetch returns the prefetch buffer, or nil when prefetch is disabled.
func (t *Table) Prefetch() *prefetch.Buffer {
	return t.prefetch
}

// Waits returns the wait states of one bus access to region.
func (t *Table) Waits(region memory.RegionID, sequential bool) uint64 {
	switch region {
	case memory.RegionEWRAM:
		return t.config.EWRAMWait
	case memory.RegionROM0:
		return pick(sequential, t.config.WS0S, t.config.WS0N)
	case memory.RegionROM1:
		return pick(sequential, t.config.WS1S, t.config.WS1N)
	case memory.RegionROM2:
		return pick(sequential, t.config.WS2S, t.config.WS2N)
	case memory.RegionSRAM:
		return t.config.SRAMWait
	default:
		return 0
	}
}

// AccessCycles returns the cycles of one access of width bytes at addr.
func (t *Table) AccessCycles(addr uint32, width int, sequential, fetch bool) uint64 {
	region := memory.Decode(addr)

	if region.IsROM() && t.prefetch != nil {
		if !fetch {
			t.prefetch.Flush()
		} else if t.prefetch.Access(addr) {
			return t.accesses(region, width)
		}
	}

	n := t.accesses(region, width)
	return n + t.Waits(region, sequential) + (n-1)*t.Waits(region, true)
}

// accesses returns how many bus accesses a transfer of width bytes takes.
// SRAM wide accesses touch a single byte.
func (t *Table) accesses(region memory.RegionID, width int) uint64 {
	if region == memory.RegionSRAM {
		return 1
	}

	bus := t.widths[region]
	if width <= bus {
		return 1
	}
	return uint64(width / bus)
}
