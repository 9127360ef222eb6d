// Package emu provides functional ARM7TDMI emulation.
package emu

import (
	"strings"

	"github.com/sarchlab/gbasim/bitfield"
)

// Psr is a program status register value.
type Psr uint32

// PSR bit positions.
const (
	psrModeEnd  = 5
	psrState    = 5
	psrFIQ      = 6
	psrIRQ      = 7
	psrOverflow = 28
	psrCarry    = 29
	psrZero     = 30
	psrSign     = 31
)

// PSR field masks.
const (
	PsrFlagsMask   uint32 = 0xF0000000
	PsrControlMask uint32 = 0x000000FF
)

// Mode returns the processor mode. An invalid mode field cannot be produced
// by correct emulation and panics with an InvariantViolation.
func (p Psr) Mode() Mode {
	m, err := DecodeMode(bitfield.Bits(uint32(p), 0, psrModeEnd))
	if err != nil {
		violate("psr mode", "%v (psr %#08x)", err, uint32(p))
	}
	return m
}

// State returns the instruction set state.
func (p Psr) State() State {
	return StateFromBool(bitfield.Bit(uint32(p), psrState))
}

// FIQDisabled reports whether FIQ is masked.
func (p Psr) FIQDisabled() bool { return bitfield.Bit(uint32(p), psrFIQ) }

// IRQDisabled reports whether IRQ is masked.
func (p Psr) IRQDisabled() bool { return bitfield.Bit(uint32(p), psrIRQ) }

// Overflow returns the V flag.
func (p Psr) Overflow() bool { return bitfield.Bit(uint32(p), psrOverflow) }

// Carry returns the C flag.
func (p Psr) Carry() bool { return bitfield.Bit(uint32(p), psrCarry) }

// Zero returns the Z flag.
func (p Psr) Zero() bool { return bitfield.Bit(uint32(p), psrZero) }

// Sign returns the N flag.
func (p Psr) Sign() bool { return bitfield.Bit(uint32(p), psrSign) }

// WithMode returns p with the mode field replaced.
func (p Psr) WithMode(m Mode) Psr {
	return Psr(bitfield.SetBits(uint32(p), 0, psrModeEnd, uint32(m)))
}

// WithState returns p with the T bit replaced.
func (p Psr) WithState(s State) Psr {
	return p.with(psrState, s.Bool())
}

// WithFIQDisabled returns p with the F bit replaced.
func (p Psr) WithFIQDisabled(v bool) Psr { return p.with(psrFIQ, v) }

// WithIRQDisabled returns p with the I bit replaced.
func (p Psr) WithIRQDisabled(v bool) Psr { return p.with(psrIRQ, v) }

// WithOverflow returns p with the V flag replaced.
func (p Psr) WithOverflow(v bool) Psr { return p.with(psrOverflow, v) }

// WithCarry returns p with the C flag replaced.
func (p Psr) WithCarry(v bool) Psr { return p.with(psrCarry, v) }

// WithZero returns p with the Z flag replaced.
func (p Psr) WithZero(v bool) Psr { return p.with(psrZero, v) }

// WithSign returns p with the N flag replaced.
func (p Psr) WithSign(v bool) Psr { return p.with(psrSign, v) }

// WithFlags returns p with all four condition flags replaced.
func (p Psr) WithFlags(n, z, c, v bool) Psr {
	return p.WithSign(n).WithZero(z).WithCarry(c).WithOverflow(v)
}

func (p Psr) with(bit uint, v bool) Psr {
	return Psr(bitfield.SetBit(uint32(p), bit, v))
}

// String renders the PSR as flags, masks, state and mode, with clear bits
// in lower case, e.g. "nZCv IF A SVC".
func (p Psr) String() string {
	var sb strings.Builder
	flag := func(set bool, c byte) {
		if set {
			sb.WriteByte(c)
		} else {
			sb.WriteByte(c + 'a' - 'A')
		}
	}

	flag(p.Sign(), 'N')
	flag(p.Zero(), 'Z')
	flag(p.Carry(), 'C')
	flag(p.Overflow(), 'V')
	sb.WriteByte(' ')
	flag(p.IRQDisabled(), 'I')
	flag(p.FIQDisabled(), 'F')
	sb.WriteByte(' ')
	if p.State() == StateThumb {
		sb.WriteByte('T')
	} else {
		sb.WriteByte('A')
	}
	sb.WriteByte(' ')

	if m, err := DecodeMode(bitfield.Bits(uint32(p), 0, psrModeEnd)); err == nil {
		sb.WriteString(m.String())
	} else {
		sb.WriteString("???")
	}

	return sb.String()
}
