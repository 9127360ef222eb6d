// Package emu provides functional ARM7TDMI emulation.
package emu

import (
	"math/bits"

	"github.com/sarchlab/gbasim/bitfield"
	"github.com/sarchlab/gbasim/insts"
)

// BarrelShift applies a shifter operation to value and returns the result
// and the shifter carry-out.
//
// With byRegister false, amount is a 5-bit immediate and the zero encodings
// are special: LSR #0 and ASR #0 mean a shift by 32, and ROR #0 is RRX.
// With byRegister true, amount is the bottom byte of a register. A zero
// amount leaves value and carry unchanged, and amounts of 32 and above
// follow the architectural rules.
func BarrelShift(value uint32, typ insts.ShiftType, amount uint32, byRegister, carryIn bool) (uint32, bool) {
	if byRegister {
		return shiftByRegister(value, typ, amount&0xFF, carryIn)
	}
	return shiftByImmediate(value, typ, amount&0x1F, carryIn)
}

func shiftByImmediate(value uint32, typ insts.ShiftType, amount uint32, carryIn bool) (uint32, bool) {
	switch typ {
	case insts.ShiftLSL:
		if amount == 0 {
			return value, carryIn
		}
		return value << amount, bitAt(value, 32-amount)
	case insts.ShiftLSR:
		if amount == 0 {
			return 0, bitAt(value, 31)
		}
		return value >> amount, bitAt(value, amount-1)
	case insts.ShiftASR:
		if amount == 0 {
			return signFill(value), bitAt(value, 31)
		}
		return uint32(int32(value) >> amount), bitAt(value, amount-1)
	default:
		if amount == 0 {
			var c uint32
			if carryIn {
				c = 1 << 31
			}
			return c | value>>1, bitAt(value, 0)
		}
		return bits.RotateLeft32(value, -int(amount)), bitAt(value, amount-1)
	}
}

func shiftByRegister(value uint32, typ insts.ShiftType, amount uint32, carryIn bool) (uint32, bool) {
	if amount == 0 {
		return value, carryIn
	}

	switch typ {
	case insts.ShiftLSL:
		switch {
		case amount < 32:
			return value << amount, bitAt(value, 32-amount)
		case amount == 32:
			return 0, bitAt(value, 0)
		default:
			return 0, false
		}
	case insts.ShiftLSR:
		switch {
		case amount < 32:
			return value >> amount, bitAt(value, amount-1)
		case amount == 32:
			return 0, bitAt(value, 31)
		default:
			return 0, false
		}
	case insts.ShiftASR:
		if amount >= 32 {
			return signFill(value), bitAt(value, 31)
		}
		return uint32(int32(value) >> amount), bitAt(value, amount-1)
	default:
		amount &= 31
		if amount == 0 {
			return value, bitAt(value, 31)
		}
		return bits.RotateLeft32(value, -int(amount)), bitAt(value, amount-1)
	}
}

// RotateImmediate expands an 8-bit immediate rotated right by rotate bits.
// The carry-out is bit 31 of the result when rotate is non-zero.
func RotateImmediate(imm uint32, rotate uint8, carryIn bool) (uint32, bool) {
	if rotate == 0 {
		return imm, carryIn
	}
	v := bits.RotateLeft32(imm, -int(rotate))
	return v, bitAt(v, 31)
}

func bitAt(v uint32, i uint32) bool {
	return bitfield.Bit(v, uint(i))
}

func signFill(v uint32) uint32 {
	return uint32(int32(v) >> 31)
}
