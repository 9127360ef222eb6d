// Package emu provides functional ARM7TDMI emulation.
package emu

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/gbasim/insts"
)

// StepResult represents the result of a single step.
type StepResult struct {
	// Cycles is the number of cycles the step consumed, including wait
	// states reported by the WaitStates hook.
	Cycles uint64

	// Exception is set when the step took an exception entry instead of
	// executing an instruction.
	Exception *ExceptionKind

	// Err is set if a bus access failed or the instruction limit was hit.
	Err error
}

// Stats holds execution statistics.
type Stats struct {
	Instructions uint64
	Skipped      uint64 // Instructions whose condition failed
	Exceptions   uint64
	Cycles       uint64
}

// Direct-boot stack pointers, as left by the GBA BIOS.
const (
	BootSPSupervisor uint32 = 0x03007FE0
	BootSPIRQ        uint32 = 0x03007FA0
	BootSPUser       uint32 = 0x03007F00
)

// Emulator executes ARM7TDMI instructions functionally.
type Emulator struct {
	regFile *RegFile
	bus     Bus
	decoder *insts.Decoder
	logger  *slog.Logger

	// Execution units
	alu        *ALU
	lsu        *LoadStoreUnit
	branchUnit *BranchUnit
	counter    *cycleCounter

	// Signals latched for the next step boundary
	pendingReset bool
	pendingIRQ   bool
	pendingFIQ   bool

	// Address of the instruction being executed
	execAddr uint32

	stats           Stats
	maxInstructions uint64 // 0 means no limit
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithWaitStates sets the wait-state hook used to cost bus accesses.
func WithWaitStates(w WaitStates) EmulatorOption {
	return func(e *Emulator) {
		e.counter.waits = w
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// WithLogger sets the logger used for trace output.
func WithLogger(l *slog.Logger) EmulatorOption {
	return func(e *Emulator) {
		e.logger = l
	}
}

// NewEmulator creates a new ARM7TDMI emulator on the given bus. The core
// starts in the reset state with R15 at the reset vector.
func NewEmulator(bus Bus, opts ...EmulatorOption) *Emulator {
	regFile := NewRegFile()
	counter := &cycleCounter{waits: zeroWait{}}

	e := &Emulator{
		regFile: regFile,
		bus:     bus,
		decoder: insts.NewDecoder(),
		logger:  slog.Default(),
		counter: counter,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.alu = NewALU(regFile)
	e.lsu = NewLoadStoreUnit(regFile, bus, counter)
	e.branchUnit = NewBranchUnit(regFile, counter)

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Bus returns the emulator's bus.
func (e *Emulator) Bus() Bus {
	return e.bus
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.stats.Instructions
}

// Stats returns execution statistics.
func (e *Emulator) Stats() Stats {
	return e.stats
}

// Reg returns register i of the current mode. R15 reads as the address of
// the next instruction to execute.
func (e *Emulator) Reg(i uint8) uint32 {
	return e.regFile.ReadReg(i)
}

// SetReg writes register i of the current mode.
func (e *Emulator) SetReg(i uint8, v uint32) {
	e.regFile.WriteReg(i, v)
}

// CPSR returns the current program status register.
func (e *Emulator) CPSR() Psr {
	return e.regFile.CPSR
}

// SetCPSR replaces the current program status register.
func (e *Emulator) SetCPSR(p Psr) {
	e.regFile.CPSR = p
}

// SPSR returns the saved program status register of the current mode.
// It panics with an InvariantViolation in User and System mode.
func (e *Emulator) SPSR() Psr {
	return e.regFile.CurrentSPSR()
}

// RaiseIRQ latches an IRQ request. It is taken at the next step boundary
// at which IRQ is unmasked.
func (e *Emulator) RaiseIRQ() {
	e.pendingIRQ = true
}

// RaiseFIQ latches an FIQ request. It is taken at the next step boundary
// at which FIQ is unmasked.
func (e *Emulator) RaiseFIQ() {
	e.pendingFIQ = true
}

// RaiseReset latches a reset request for the next step boundary.
func (e *Emulator) RaiseReset() {
	e.pendingReset = true
}

// IRQPending reports whether an IRQ request is latched.
func (e *Emulator) IRQPending() bool {
	return e.pendingIRQ
}

// FIQPending reports whether an FIQ request is latched.
func (e *Emulator) FIQPending() bool {
	return e.pendingFIQ
}

// Reset returns the core to its power-on state: all registers cleared,
// Supervisor mode, ARM state, interrupts masked, R15 at the reset vector.
func (e *Emulator) Reset() {
	e.regFile.Reset()
	e.pendingReset = false
	e.pendingIRQ = false
	e.pendingFIQ = false
	e.stats = Stats{}
	e.counter.nextFetchSeq = false
}

// SkipBIOS sets up the register state the GBA BIOS leaves behind and
// starts execution at entry in System mode.
func (e *Emulator) SkipBIOS(entry uint32) {
	e.regFile.Reset()
	e.regFile.Write(RegSP, BootSPSupervisor, ModeSupervisor)
	e.regFile.Write(RegSP, BootSPIRQ, ModeIRQ)
	e.regFile.Write(RegSP, BootSPUser, ModeSystem)
	e.regFile.CPSR = Psr(0).WithMode(ModeSystem)
	e.regFile.SetPC(entry)
}

// Step takes a pending exception or executes a single instruction.
func (e *Emulator) Step() StepResult {
	if e.maxInstructions > 0 && e.stats.Instructions >= e.maxInstructions {
		return StepResult{Err: ErrMaxInstructions}
	}

	e.counter.cycles = 0

	if kind, ok := e.pendingException(); ok {
		e.EnterException(kind)
		return e.finish(StepResult{Exception: &kind})
	}

	var err error
	if e.regFile.CPSR.State() == StateThumb {
		err = e.stepThumb()
	} else {
		err = e.stepARM()
	}

	return e.finish(StepResult{Err: err})
}

func (e *Emulator) finish(r StepResult) StepResult {
	r.Cycles = e.counter.cycles
	e.stats.Cycles += r.Cycles
	return r
}

// pendingException picks the latched signal to service, in priority order
// Reset, FIQ, IRQ, honouring the CPSR masks.
func (e *Emulator) pendingException() (ExceptionKind, bool) {
	cpsr := e.regFile.CPSR
	switch {
	case e.pendingReset:
		e.pendingReset = false
		return ExceptionReset, true
	case e.pendingFIQ && !cpsr.FIQDisabled():
		e.pendingFIQ = false
		return ExceptionFIQ, true
	case e.pendingIRQ && !cpsr.IRQDisabled():
		e.pendingIRQ = false
		return ExceptionIRQ, true
	default:
		return 0, false
	}
}

// Run executes instructions until an error occurs or the instruction limit
// is reached.
func (e *Emulator) Run() error {
	for {
		result := e.Step()
		if result.Err != nil {
			return result.Err
		}
	}
}

// stepARM fetches, conditions and executes one ARM instruction.
func (e *Emulator) stepARM() error {
	addr := e.regFile.PC()
	word, err := e.bus.Read32(addr)
	e.counter.fetch(addr, 4)
	if err != nil {
		return fmt.Errorf("fetch at 0x%08X: %w", addr, err)
	}

	e.execAddr = addr
	e.regFile.SetPC(addr + 4)
	e.stats.Instructions++

	cond := insts.Cond(word >> 28)
	if !CheckCondition(cond, e.regFile.CPSR) {
		e.stats.Skipped++
		return nil
	}

	return e.execute(e.decoder.Decode(word))
}

// stepThumb fetches and executes one THUMB instruction.
func (e *Emulator) stepThumb() error {
	addr := e.regFile.PC()
	half, err := e.bus.Read16(addr)
	e.counter.fetch(addr, 2)
	if err != nil {
		return fmt.Errorf("fetch at 0x%08X: %w", addr, err)
	}

	e.execAddr = addr
	e.regFile.SetPC(addr + 2)
	e.stats.Instructions++

	inst := e.decoder.DecodeThumb(half)
	if inst.Cond != insts.CondAL && !CheckCondition(inst.Cond, e.regFile.CPSR) {
		e.stats.Skipped++
		return nil
	}

	return e.execute(inst)
}

// width returns the instruction width of the current state.
func (e *Emulator) width() uint32 {
	return e.regFile.CPSR.State().InstructionWidth()
}

// pcOperand returns the value R15 reads as when used as an operand: the
// address of the executing instruction plus two instruction widths.
func (e *Emulator) pcOperand() uint32 {
	return e.execAddr + 2*e.width()
}

// readOperand reads a register as an instruction operand.
func (e *Emulator) readOperand(reg uint8) uint32 {
	if reg == RegPC {
		return e.pcOperand()
	}
	return e.regFile.ReadReg(reg)
}

// writeResult writes a register written by an instruction. A write to R15
// is a branch and refills the pipeline.
func (e *Emulator) writeResult(reg uint8, value uint32) {
	if reg == RegPC {
		e.branchUnit.Jump(value)
		return
	}
	e.regFile.WriteReg(reg, value)
}

// restoreCPSR copies the current SPSR to CPSR for exception return. In a
// mode without an SPSR the CPSR is left unchanged.
func (e *Emulator) restoreCPSR() {
	if !e.regFile.Mode().HasSPSR() {
		return
	}
	e.regFile.CPSR = e.regFile.CurrentSPSR()
}

// execute dispatches a decoded instruction.
func (e *Emulator) execute(inst *insts.Instruction) error {
	switch inst.Format {
	case insts.FormatDataProc:
		e.executeDataProc(inst)
	case insts.FormatPSRTransfer:
		e.executePSRTransfer(inst)
	case insts.FormatMultiply:
		e.executeMultiply(inst)
	case insts.FormatMultiplyLong:
		e.executeMultiplyLong(inst)
	case insts.FormatSingleTransfer:
		return e.executeSingleTransfer(inst)
	case insts.FormatHalfwordTransfer:
		return e.executeHalfwordTransfer(inst)
	case insts.FormatBlockTransfer:
		return e.executeBlockTransfer(inst)
	case insts.FormatSwap:
		return e.executeSwap(inst)
	case insts.FormatBranch:
		e.executeBranch(inst)
	case insts.FormatBranchExchange:
		e.branchUnit.BX(e.readOperand(inst.Rm))
	case insts.FormatLongBranch:
		e.executeLongBranch(inst)
	case insts.FormatSoftwareInterrupt:
		e.enterException(ExceptionSWI, e.execAddr+e.width())
	default:
		e.enterException(ExceptionUndefined, e.execAddr+e.width())
	}
	return nil
}
