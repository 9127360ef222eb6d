// Package emu provides functional ARM7TDMI emulation.
package emu

import (
	"github.com/sarchlab/gbasim/insts"
)

// executeLongBranch executes one half of the THUMB BL pair. The halves are
// independent instructions; an interrupt may be taken between them with the
// partial target held in LR.
func (e *Emulator) executeLongBranch(inst *insts.Instruction) {
	switch inst.Op {
	case insts.OpBLHigh:
		e.branchUnit.BLHigh(e.pcOperand(), inst.BranchOffset)
	case insts.OpBLLow:
		e.branchUnit.BLLow(inst.Imm, e.execAddr+2)
	default:
		violate("long branch", "unexpected %v", inst.Op)
	}
}
