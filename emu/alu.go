// Package emu provides functional ARM7TDMI emulation.
package emu

import (
	"github.com/sarchlab/gbasim/insts"
)

// ALU implements the ARM7TDMI arithmetic, logic and multiply operations.
type ALU struct {
	regFile *RegFile
}

// NewALU creates a new ALU connected to the given register file.
func NewALU(regFile *RegFile) *ALU {
	return &ALU{regFile: regFile}
}

// DataProcessing computes one of the sixteen data-processing operations.
// When setFlags is true the CPSR flags are updated: arithmetic operations
// write N, Z, C and V; logical operations write N and Z and take C from
// the shifter carry, leaving V unchanged.
func (a *ALU) DataProcessing(op insts.Op, op1, op2 uint32, shifterCarry, setFlags bool) uint32 {
	carryIn := a.regFile.CPSR.Carry()

	var (
		result uint32
		c, v   bool
	)

	switch op {
	case insts.OpAND, insts.OpTST:
		result = op1 & op2
	case insts.OpEOR, insts.OpTEQ:
		result = op1 ^ op2
	case insts.OpORR:
		result = op1 | op2
	case insts.OpMOV:
		result = op2
	case insts.OpBIC:
		result = op1 &^ op2
	case insts.OpMVN:
		result = ^op2
	case insts.OpSUB, insts.OpCMP:
		result, c, v = addWithCarry(op1, ^op2, true)
	case insts.OpRSB:
		result, c, v = addWithCarry(op2, ^op1, true)
	case insts.OpADD, insts.OpCMN:
		result, c, v = addWithCarry(op1, op2, false)
	case insts.OpADC:
		result, c, v = addWithCarry(op1, op2, carryIn)
	case insts.OpSBC:
		result, c, v = addWithCarry(op1, ^op2, carryIn)
	case insts.OpRSC:
		result, c, v = addWithCarry(op2, ^op1, carryIn)
	default:
		violate("alu", "%v is not a data-processing operation", op)
	}

	if setFlags {
		if op.IsLogical() {
			a.setLogicFlags(result, shifterCarry)
		} else {
			a.setArithFlags(result, c, v)
		}
	}

	return result
}

// addWithCarry returns x + y + carry with the carry-out and signed overflow.
func addWithCarry(x, y uint32, carry bool) (uint32, bool, bool) {
	var cin uint64
	if carry {
		cin = 1
	}
	sum := uint64(x) + uint64(y) + cin
	result := uint32(sum)
	c := sum>>32 != 0
	v := ((x^result)&(y^result))>>31 != 0
	return result, c, v
}

// setArithFlags sets N, Z, C and V for arithmetic operations.
func (a *ALU) setArithFlags(result uint32, c, v bool) {
	a.regFile.CPSR = a.regFile.CPSR.WithFlags(result>>31 == 1, result == 0, c, v)
}

// setLogicFlags sets N and Z from the result and C from the shifter.
func (a *ALU) setLogicFlags(result uint32, carry bool) {
	a.regFile.CPSR = a.regFile.CPSR.
		WithSign(result>>31 == 1).
		WithZero(result == 0).
		WithCarry(carry)
}

// Multiply computes Rm * Rs (+ Rn) and returns the result with the number
// of internal cycles spent. Flag-setting writes N and Z; C is left as is.
func (a *ALU) Multiply(rm, rs, rn uint32, accumulate, setFlags bool) (uint32, uint64) {
	result := rm * rs
	cycles := multiplierCycles(rs, true)
	if accumulate {
		result += rn
		cycles++
	}

	if setFlags {
		a.regFile.CPSR = a.regFile.CPSR.WithSign(result>>31 == 1).WithZero(result == 0)
	}

	return result, cycles
}

// MultiplyLong computes the 64-bit product Rm * Rs (+ acc), signed or
// unsigned, and returns it with the number of internal cycles spent.
func (a *ALU) MultiplyLong(rm, rs uint32, acc uint64, signed, accumulate, setFlags bool) (uint64, uint64) {
	var result uint64
	if signed {
		result = uint64(int64(int32(rm)) * int64(int32(rs)))
	} else {
		result = uint64(rm) * uint64(rs)
	}

	cycles := multiplierCycles(rs, signed) + 1
	if accumulate {
		result += acc
		cycles++
	}

	if setFlags {
		a.regFile.CPSR = a.regFile.CPSR.WithSign(result>>63 == 1).WithZero(result == 0)
	}

	return result, cycles
}

// multiplierCycles returns m, the number of 8-bit multiplier steps the
// early-terminating multiplier needs for rs.
func multiplierCycles(rs uint32, signed bool) uint64 {
	for m, mask := uint64(1), uint32(0xFFFFFF00); m < 4; m, mask = m+1, mask<<8 {
		top := rs & mask
		if top == 0 || (signed && top == mask) {
			return m
		}
	}
	return 4
}
