// Package emu provides functional ARM7TDMI emulation.
package emu

// Bus is the memory interface the core fetches and transfers data through.
// Addresses passed to the bus are already aligned to the access width.
// Errors are returned to the caller of Step and never raise an exception.
type Bus interface {
	Read8(addr uint32) (uint8, error)
	Read16(addr uint32) (uint16, error)
	Read32(addr uint32) (uint32, error)
	Write8(addr uint32, value uint8) error
	Write16(addr uint32, value uint16) error
	Write32(addr uint32, value uint32) error
}

// WaitStates reports the bus cost of a memory access. It is the hook through
// which the memory system owns wait-state policy.
type WaitStates interface {
	// AccessCycles returns the total cycles for one access of width bytes.
	// sequential is true for S cycles. fetch is true for opcode fetches.
	AccessCycles(addr uint32, width int, sequential, fetch bool) uint64
}

// zeroWait charges one cycle per access.
type zeroWait struct{}

func (zeroWait) AccessCycles(uint32, int, bool, bool) uint64 { return 1 }

// cycleCounter accumulates the cycles spent by the current step.
type cycleCounter struct {
	waits WaitStates

	cycles uint64

	// nextFetchSeq is false after a data access or a pipeline refill,
	// making the following opcode fetch non-sequential.
	nextFetchSeq bool
}

func (c *cycleCounter) fetch(addr uint32, width int) {
	c.cycles += c.waits.AccessCycles(addr, width, c.nextFetchSeq, true)
	c.nextFetchSeq = true
}

func (c *cycleCounter) data(addr uint32, width int, sequential bool) {
	c.cycles += c.waits.AccessCycles(addr, width, sequential, false)
	c.nextFetchSeq = false
}

func (c *cycleCounter) internal(n uint64) {
	c.cycles += n
}

// refill charges the N+S fetches that reload the pipeline at addr.
func (c *cycleCounter) refill(addr uint32, width int) {
	c.cycles += c.waits.AccessCycles(addr, width, false, true)
	c.cycles += c.waits.AccessCycles(addr+uint32(width), width, true, true)
	c.nextFetchSeq = true
}
