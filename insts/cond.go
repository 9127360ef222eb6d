// Package insts provides ARM7TDMI instruction definitions and decoding.
package insts

import (
	"errors"
	"fmt"
)

// Cond represents an ARM condition code.
type Cond uint8

// ARM condition codes.
const (
	CondEQ Cond = 0b0000 // Equal (Z == 1)
	CondNE Cond = 0b0001 // Not Equal (Z == 0)
	CondCS Cond = 0b0010 // Carry Set / Unsigned higher or same (C == 1)
	CondCC Cond = 0b0011 // Carry Clear / Unsigned lower (C == 0)
	CondMI Cond = 0b0100 // Minus / Negative (N == 1)
	CondPL Cond = 0b0101 // Plus / Positive or zero (N == 0)
	CondVS Cond = 0b0110 // Overflow (V == 1)
	CondVC Cond = 0b0111 // No overflow (V == 0)
	CondHI Cond = 0b1000 // Unsigned higher (C == 1 && Z == 0)
	CondLS Cond = 0b1001 // Unsigned lower or same (C == 0 || Z == 1)
	CondGE Cond = 0b1010 // Signed greater than or equal (N == V)
	CondLT Cond = 0b1011 // Signed less than (N != V)
	CondGT Cond = 0b1100 // Signed greater than (Z == 0 && N == V)
	CondLE Cond = 0b1101 // Signed less than or equal (Z == 1 || N != V)
	CondAL Cond = 0b1110 // Always (unconditional)
	CondNV Cond = 0b1111 // Never (reserved on ARMv4)
)

// CondHS and CondLO are the unsigned-comparison aliases.
const (
	CondHS = CondCS
	CondLO = CondCC
)

// ErrInvalidCond is returned when a value does not fit in a condition field.
var ErrInvalidCond = errors.New("invalid condition code")

var condNames = [16]string{
	"EQ", "NE", "CS", "CC", "MI", "PL", "VS", "VC",
	"HI", "LS", "GE", "LT", "GT", "LE", "AL", "NV",
}

// DecodeCond converts a 4-bit field value to a Cond.
func DecodeCond(v uint32) (Cond, error) {
	if v > 0xF {
		return 0, fmt.Errorf("%w: %#x", ErrInvalidCond, v)
	}
	return Cond(v), nil
}

// String returns the assembler suffix of the condition.
func (c Cond) String() string {
	if c > CondNV {
		return fmt.Sprintf("Cond(%d)", uint8(c))
	}
	return condNames[c]
}

// Eval evaluates the condition against a flag snapshot.
//
// NV is reserved on the ARM7TDMI and its behavior differs between
// architecture revisions. It is evaluated as never taken.
func (c Cond) Eval(n, z, carry, v bool) bool {
	switch c {
	case CondEQ:
		return z
	case CondNE:
		return !z
	case CondCS:
		return carry
	case CondCC:
		return !carry
	case CondMI:
		return n
	case CondPL:
		return !n
	case CondVS:
		return v
	case CondVC:
		return !v
	case CondHI:
		return carry && !z
	case CondLS:
		return !carry || z
	case CondGE:
		return n == v
	case CondLT:
		return n != v
	case CondGT:
		return !z && n == v
	case CondLE:
		return z || n != v
	case CondAL:
		return true
	default:
		return false
	}
}
