// Package core provides the cycle-level CPU core model. It drives the
// functional emulator from an Akita ticking component, holding each
// instruction for as many cycles as its bus accesses cost.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/gbasim/emu"
)

// DefaultFreq is the ARM7TDMI clock of the GBA, 2^24 Hz.
const DefaultFreq = 16777216 * sim.Hz

// LevelTrace is the log level for per-instruction timing traces.
const LevelTrace = slog.LevelInfo + 1

// Trace logs at LevelTrace through the default logger.
func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Stalls is the number of cycles spent waiting on a multi-cycle
	// instruction or exception entry.
	Stalls uint64
	// Exceptions is the number of exceptions taken.
	Exceptions uint64
}

// Core is an Akita component that executes one emulator step per
// instruction and then stalls until the step's cycles have elapsed.
type Core struct {
	*sim.TickingComponent

	engine   sim.Engine
	emulator *emu.Emulator

	// remaining counts the cycles left on the current instruction.
	remaining uint64
	halted    bool
	err       error
	stats     Stats
}

// Emulator returns the functional emulator driven by the core.
func (c *Core) Emulator() *emu.Emulator {
	return c.emulator
}

// Tick advances the core by one cycle.
func (c *Core) Tick() (madeProgress bool) {
	if c.halted {
		return false
	}

	c.stats.Cycles++

	if c.remaining > 0 {
		c.remaining--
		c.stats.Stalls++
		return true
	}

	pc := c.emulator.Reg(emu.RegPC)
	result := c.step()
	if result.Err != nil {
		c.stats.Cycles--
		c.halt(result.Err)
		return false
	}

	if result.Exception != nil {
		c.stats.Exceptions++
	} else {
		c.stats.Instructions++
	}

	if result.Cycles > 0 {
		c.remaining = result.Cycles - 1
	}

	Trace("retire",
		"core", c.Name(),
		"pc", fmt.Sprintf("0x%08X", pc),
		"cycles", result.Cycles,
	)

	return true
}

// step runs one emulator step, reporting an invariant panic as a fatal
// error instead of unwinding the engine.
func (c *Core) step() (result emu.StepResult) {
	defer emu.RecoverFault(&result.Err)
	return c.emulator.Step()
}

func (c *Core) halt(err error) {
	c.halted = true
	if !errors.Is(err, emu.ErrMaxInstructions) {
		c.err = err
	}
}

// Halted returns true once the core has stopped.
func (c *Core) Halted() bool {
	return c.halted
}

// Err returns the error that stopped the core. Reaching the instruction
// limit is not an error.
func (c *Core) Err() error {
	return c.err
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	return c.stats
}

// Start schedules the first tick.
func (c *Core) Start() {
	c.TickNow()
}

// Run starts the core and runs the engine until the core halts.
func (c *Core) Run() error {
	c.Start()
	if err := c.engine.Run(); err != nil {
		return fmt.Errorf("engine failed: %w", err)
	}
	return c.err
}

// Reset clears core state and resets the emulator.
func (c *Core) Reset() {
	c.emulator.Reset()
	c.remaining = 0
	c.halted = false
	c.err = nil
	c.stats = Stats{}
}
