// Package emu provides functional ARM7TDMI emulation.
package emu

import (
	"github.com/sarchlab/gbasim/insts"
)

// CheckCondition evaluates a condition code against the flags of psr.
// NV is reserved on ARMv4 and is treated as never taken.
func CheckCondition(cond insts.Cond, psr Psr) bool {
	return cond.Eval(psr.Sign(), psr.Zero(), psr.Carry(), psr.Overflow())
}

// BranchUnit implements the ARM7TDMI branch operations.
type BranchUnit struct {
	regFile *RegFile
	counter *cycleCounter
}

// NewBranchUnit creates a new BranchUnit connected to the given register file.
func NewBranchUnit(regFile *RegFile, counter *cycleCounter) *BranchUnit {
	return &BranchUnit{regFile: regFile, counter: counter}
}

// Jump writes R15 and charges the pipeline refill.
func (b *BranchUnit) Jump(target uint32) {
	b.regFile.SetPC(target)
	b.counter.refill(b.regFile.PC(), int(b.regFile.CPSR.State().InstructionWidth()))
}

// B branches to the PC operand plus offset. The PC operand is the address
// of the branch plus two instruction widths.
func (b *BranchUnit) B(pcOperand uint32, offset int32) {
	b.Jump(uint32(int64(pcOperand) + int64(offset)))
}

// BL saves the return address in LR, then branches like B.
func (b *BranchUnit) BL(pcOperand uint32, offset int32, returnAddr uint32) {
	b.regFile.WriteReg(RegLR, returnAddr)
	b.B(pcOperand, offset)
}

// BX branches to target, selecting THUMB state when bit 0 is set.
func (b *BranchUnit) BX(target uint32) {
	b.regFile.CPSR = b.regFile.CPSR.WithState(StateFromBool(target&1 == 1))
	b.Jump(target)
}

// BLHigh performs the first half of a THUMB long branch with link.
func (b *BranchUnit) BLHigh(pcOperand uint32, offset int32) {
	b.regFile.WriteReg(RegLR, uint32(int64(pcOperand)+int64(offset)))
}

// BLLow performs the second half of a THUMB long branch with link.
// nextAddr is the address of the following instruction.
func (b *BranchUnit) BLLow(offset uint32, nextAddr uint32) {
	target := b.regFile.ReadReg(RegLR) + offset
	b.regFile.WriteReg(RegLR, nextAddr|1)
	b.Jump(target)
}
