package core

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/gbasim/emu"
)

// Builder can create new cores.
type Builder struct {
	engine          sim.Engine
	freq            sim.Freq
	bus             emu.Bus
	waits           emu.WaitStates
	maxInstructions uint64
}

// NewBuilder returns a builder at the GBA clock.
func NewBuilder() Builder {
	return Builder{
		freq: DefaultFreq,
	}
}

// WithEngine sets the engine.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the core.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithBus sets the memory the core executes from.
func (b Builder) WithBus(bus emu.Bus) Builder {
	b.bus = bus
	return b
}

// WithWaitStates sets the wait-state policy charged per access.
func (b Builder) WithWaitStates(waits emu.WaitStates) Builder {
	b.waits = waits
	return b
}

// WithMaxInstructions stops the core after n instructions.
func (b Builder) WithMaxInstructions(n uint64) Builder {
	b.maxInstructions = n
	return b
}

// Build creates a core.
func (b Builder) Build(name string) *Core {
	if b.engine == nil {
		panic("core: engine is required")
	}
	if b.bus == nil {
		panic("core: bus is required")
	}

	var opts []emu.EmulatorOption
	if b.waits != nil {
		opts = append(opts, emu.WithWaitStates(b.waits))
	}
	if b.maxInstructions > 0 {
		opts = append(opts, emu.WithMaxInstructions(b.maxInstructions))
	}

	c := &Core{
		engine:   b.engine,
		emulator: emu.NewEmulator(b.bus, opts...),
	}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	return c
}
