// Package bitfield provides single-bit and multi-bit field access over
// unsigned integers of any width.
//
// All operations are pure shift/mask sequences. Index and range
// preconditions are only checked when built with the debug tag:
//
//	go test -tags debug ./...
package bitfield

import (
	"fmt"
	"math/bits"
)

// Unsigned is the set of integer types the field operations accept.
type Unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint
}

// Violation is the panic value raised by a debug build when a field
// operation is called outside its preconditions.
type Violation struct {
	Op  string
	Msg string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("bitfield: %s: %s", v.Op, v.Msg)
}

// Width returns the bit width of T.
func Width[T Unsigned]() uint {
	var zero T
	return uint(bits.OnesCount64(uint64(^zero)))
}

// Bit reports whether bit i of x is set.
func Bit[T Unsigned](x T, i uint) bool {
	if checked {
		checkIndex[T]("Bit", i)
	}
	return (x>>i)&1 == 1
}

// SetBit returns x with bit i set to v.
func SetBit[T Unsigned](x T, i uint, v bool) T {
	if checked {
		checkIndex[T]("SetBit", i)
	}
	var b T
	if v {
		b = 1
	}
	return x&^(T(1)<<i) | b<<i
}

// Bits returns bits [start, end) of x, right-aligned.
func Bits[T Unsigned](x T, start, end uint) T {
	if checked {
		checkRange[T]("Bits", start, end)
	}
	w := Width[T]()
	return (x << (w - end)) >> (w - end + start)
}

// SetBits returns x with bits [start, end) replaced by value.
// value must fit in end-start bits.
func SetBits[T Unsigned](x T, start, end uint, value T) T {
	if checked {
		checkRange[T]("SetBits", start, end)
		checkFits[T]("SetBits", start, end, value)
	}
	mask := fieldMask[T](start, end)
	return x&^mask | (value<<start)&mask
}

// Mask returns a value with bits [start, end) set.
func Mask[T Unsigned](start, end uint) T {
	if checked {
		checkRange[T]("Mask", start, end)
	}
	return fieldMask[T](start, end)
}

func fieldMask[T Unsigned](start, end uint) T {
	var ones T = ^T(0)
	w := Width[T]()
	return (ones << (w - end)) >> (w - end + start) << start
}

func checkIndex[T Unsigned](op string, i uint) {
	if w := Width[T](); i >= w {
		panic(&Violation{Op: op, Msg: fmt.Sprintf("index %d out of range for %d-bit value", i, w)})
	}
}

func checkRange[T Unsigned](op string, start, end uint) {
	if w := Width[T](); start >= end || end > w {
		panic(&Violation{Op: op, Msg: fmt.Sprintf("range [%d, %d) invalid for %d-bit value", start, end, w)})
	}
}

func checkFits[T Unsigned](op string, start, end uint, value T) {
	w := Width[T]()
	n := end - start
	if n < w && value>>n != 0 {
		panic(&Violation{Op: op, Msg: fmt.Sprintf("value %#x does not fit in %d bits", uint64(value), n)})
	}
}
