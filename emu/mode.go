// Package emu provides functional ARM7TDMI emulation.
package emu

import (
	"errors"
	"fmt"
)

// Mode is a processor mode, encoded as the PSR mode field.
type Mode uint8

// Processor modes.
const (
	ModeUser       Mode = 0b10000
	ModeFIQ        Mode = 0b10001
	ModeIRQ        Mode = 0b10010
	ModeSupervisor Mode = 0b10011
	ModeAbort      Mode = 0b10111
	ModeUndefined  Mode = 0b11011
	ModeSystem     Mode = 0b11111
)

// Modes lists every valid processor mode.
var Modes = []Mode{
	ModeUser, ModeFIQ, ModeIRQ, ModeSupervisor, ModeAbort, ModeUndefined, ModeSystem,
}

// ErrInvalidMode is returned when a 5-bit pattern is not a processor mode.
var ErrInvalidMode = errors.New("invalid processor mode")

// DecodeMode converts a PSR mode field to a Mode.
func DecodeMode(bits uint32) (Mode, error) {
	switch m := Mode(bits); m {
	case ModeUser, ModeFIQ, ModeIRQ, ModeSupervisor, ModeAbort, ModeUndefined, ModeSystem:
		return m, nil
	default:
		return 0, fmt.Errorf("%w: %#05b", ErrInvalidMode, bits)
	}
}

// String returns the conventional three-letter mode name.
func (m Mode) String() string {
	switch m {
	case ModeUser:
		return "USR"
	case ModeFIQ:
		return "FIQ"
	case ModeIRQ:
		return "IRQ"
	case ModeSupervisor:
		return "SVC"
	case ModeAbort:
		return "ABT"
	case ModeUndefined:
		return "UND"
	case ModeSystem:
		return "SYS"
	default:
		return fmt.Sprintf("Mode(%#05b)", uint8(m))
	}
}

// HasSPSR reports whether the mode has a saved program status register.
func (m Mode) HasSPSR() bool {
	return m != ModeUser && m != ModeSystem
}

// Privileged reports whether the mode may write the PSR control field.
func (m Mode) Privileged() bool {
	return m != ModeUser
}

// State is the instruction set state.
type State uint8

// Instruction set states.
const (
	StateARM   State = 0
	StateThumb State = 1
)

// StateFromBool converts the PSR T bit to a State.
func StateFromBool(t bool) State {
	if t {
		return StateThumb
	}
	return StateARM
}

// Bool returns the PSR T bit for the state.
func (s State) Bool() bool {
	return s == StateThumb
}

// InstructionWidth returns the size in bytes of one instruction.
func (s State) InstructionWidth() uint32 {
	if s == StateThumb {
		return 2
	}
	return 4
}

// String returns the state name.
func (s State) String() string {
	if s == StateThumb {
		return "THUMB"
	}
	return "ARM"
}
