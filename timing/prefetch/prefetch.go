// Package prefetch models the GamePak prefetch buffer using Akita cache
// components.
//
// The buffer holds recently fetched ROM lines. Opcode fetches that hit a
// buffered line complete without ROM wait states; misses pay the full
// access and bring the line in.
package prefetch

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds prefetch buffer parameters.
type Config struct {
	// Lines is the number of buffered lines.
	Lines int
	// LineSize in bytes.
	LineSize int
}

// DefaultConfig returns a buffer of eight halfwords, as on the GBA.
func DefaultConfig() Config {
	return Config{
		Lines:    1,
		LineSize: 16,
	}
}

// Statistics holds buffer statistics.
type Statistics struct {
	Lookups   uint64
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Flushes   uint64
}

// Buffer is a fully associative prefetch buffer with LRU replacement.
type Buffer struct {
	config    Config
	directory *akitacache.DirectoryImpl
	stats     Statistics
}

// New creates a prefetch buffer.
func New(config Config) *Buffer {
	return &Buffer{
		config: config,
		directory: akitacache.NewDirectory(
			1,
			config.Lines,
			config.LineSize,
			akitacache.NewLRUVictimFinder(),
		),
	}
}

// Config returns the buffer configuration.
func (b *Buffer) Config() Config {
	return b.config
}

// Stats returns buffer statistics.
func (b *Buffer) Stats() Statistics {
	return b.stats
}

func (b *Buffer) lineAddr(addr uint32) uint64 {
	return uint64(addr) &^ uint64(b.config.LineSize-1)
}

// Access looks up addr and reports whether it hit. A miss fills the line.
func (b *Buffer) Access(addr uint32) bool {
	b.stats.Lookups++
	line := b.lineAddr(addr)

	block := b.directory.Lookup(0, line)
	if block != nil && block.IsValid {
		b.stats.Hits++
		b.directory.Visit(block)
		return true
	}

	b.stats.Misses++

	victim := b.directory.FindVictim(line)
	if victim == nil {
		return false
	}

	if victim.IsValid {
		b.stats.Evictions++
	}

	victim.Tag = line
	victim.IsValid = true
	b.directory.Visit(victim)

	return false
}

// Contains reports whether addr is buffered without touching LRU state or
// statistics.
func (b *Buffer) Contains(addr uint32) bool {
	block := b.directory.Lookup(0, b.lineAddr(addr))
	return block != nil && block.IsValid
}

// Flush drops all buffered lines. The GamePak stops prefetching when the
// CPU makes a data access to the ROM.
func (b *Buffer) Flush() {
	b.stats.Flushes++
	for _, set := range b.directory.GetSets() {
		for _, block := range set.Blocks {
			block.IsValid = false
		}
	}
}

// Reset invalidates all lines and clears statistics.
func (b *Buffer) Reset() {
	b.directory.Reset()
	b.stats = Statistics{}
}
