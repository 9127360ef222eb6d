// Package emu provides functional ARM7TDMI emulation.
package emu

import (
	"errors"
	"fmt"
)

// ExceptionKind identifies an exception.
type ExceptionKind uint8

// Exception kinds, in vector order.
const (
	ExceptionReset ExceptionKind = iota
	ExceptionUndefined
	ExceptionSWI
	ExceptionPrefetchAbort
	ExceptionDataAbort
	ExceptionIRQ
	ExceptionFIQ
)

// ErrInvalidVector is returned for an address that is not an exception vector.
var ErrInvalidVector = errors.New("not an exception vector")

type exceptionInfo struct {
	name       string
	vector     uint32
	mode       Mode
	disableFIQ bool
}

var exceptionTable = [...]exceptionInfo{
	ExceptionReset:         {"Reset", 0x00, ModeSupervisor, true},
	ExceptionUndefined:     {"Undefined", 0x04, ModeUndefined, false},
	ExceptionSWI:           {"SWI", 0x08, ModeSupervisor, false},
	ExceptionPrefetchAbort: {"PrefetchAbort", 0x0C, ModeAbort, false},
	ExceptionDataAbort:     {"DataAbort", 0x10, ModeAbort, false},
	ExceptionIRQ:           {"IRQ", 0x18, ModeIRQ, false},
	ExceptionFIQ:           {"FIQ", 0x1C, ModeFIQ, true},
}

// DecodeExceptionKind returns the exception whose vector is at addr.
func DecodeExceptionKind(addr uint32) (ExceptionKind, error) {
	for k, info := range exceptionTable {
		if info.vector == addr {
			return ExceptionKind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: 0x%08X", ErrInvalidVector, addr)
}

func (k ExceptionKind) info() exceptionInfo {
	if int(k) >= len(exceptionTable) {
		violate("exception kind", "unknown exception %d", uint8(k))
	}
	return exceptionTable[k]
}

// Vector returns the address the exception jumps to.
func (k ExceptionKind) Vector() uint32 { return k.info().vector }

// Mode returns the mode the exception is taken in.
func (k ExceptionKind) Mode() Mode { return k.info().mode }

// DisablesFIQ reports whether entry masks FIQ as well as IRQ.
func (k ExceptionKind) DisablesFIQ() bool { return k.info().disableFIQ }

// String returns the exception name.
func (k ExceptionKind) String() string {
	if int(k) >= len(exceptionTable) {
		return fmt.Sprintf("ExceptionKind(%d)", uint8(k))
	}
	return exceptionTable[k].name
}

// enterException performs exception entry as one transition: the CPSR is
// saved in the target mode's SPSR, the mode is switched, ARM state is
// forced, IRQ (and for Reset and FIQ, FIQ) is masked, lr is written to
// the target mode's R14, and R15 is set to the vector.
func (e *Emulator) enterException(kind ExceptionKind, lr uint32) {
	info := kind.info()
	old := e.regFile.CPSR

	cpsr := old.WithMode(info.mode).WithState(StateARM).WithIRQDisabled(true)
	if info.disableFIQ {
		cpsr = cpsr.WithFIQDisabled(true)
	}

	e.regFile.SetSPSR(info.mode, old)
	e.regFile.CPSR = cpsr
	e.regFile.Write(RegLR, lr, info.mode)
	e.branchUnit.Jump(info.vector)
	e.stats.Exceptions++

	e.trace("exception",
		"kind", kind,
		"lr", fmt.Sprintf("0x%08X", lr),
		"from", old,
	)
}

// exceptionReturnAddr returns the value written to LR for an exception
// taken at the current step boundary, where R15 holds the address of the
// next instruction to execute.
func (e *Emulator) exceptionReturnAddr(kind ExceptionKind) uint32 {
	pc := e.regFile.PC()
	switch kind {
	case ExceptionIRQ, ExceptionFIQ, ExceptionPrefetchAbort:
		return pc + 4
	case ExceptionDataAbort:
		return pc + 8
	default:
		return pc
	}
}

// EnterException takes an exception at the current step boundary. For the
// abort kinds R15 is taken to hold the aborted instruction.
func (e *Emulator) EnterException(kind ExceptionKind) {
	e.enterException(kind, e.exceptionReturnAddr(kind))
}
