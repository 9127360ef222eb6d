// Package emu provides functional ARM7TDMI emulation.
package emu

import (
	"math/bits"

	"github.com/sarchlab/gbasim/insts"
)

const psrThumbBit uint32 = 1 << psrState

// readShiftedOperand reads a register operand. R15 reads one word further
// ahead when an ARM instruction shifts by a register, and is word-aligned
// for the THUMB PC-relative forms.
func (e *Emulator) readShiftedOperand(inst *insts.Instruction, reg uint8) uint32 {
	if reg != RegPC {
		return e.regFile.ReadReg(reg)
	}

	v := e.pcOperand()
	if inst.ShiftByReg && !inst.Thumb {
		v += 4
	}
	if inst.AlignPC {
		v &^= 3
	}
	return v
}

// storeValue reads a register to be stored. A stored R15 is the address of
// the instruction plus 12.
func (e *Emulator) storeValue(reg uint8, mode Mode) uint32 {
	if reg == RegPC {
		return e.pcOperand() + 4
	}
	return e.regFile.Read(reg, mode)
}

// operand2 computes the second operand of a data-processing instruction and
// the shifter carry-out.
func (e *Emulator) operand2(inst *insts.Instruction) (uint32, bool) {
	carry := e.regFile.CPSR.Carry()

	if inst.ImmOperand {
		return RotateImmediate(inst.Imm, inst.Rotate, carry)
	}

	amount := uint32(inst.ShiftAmount)
	if inst.ShiftByReg {
		amount = e.regFile.ReadReg(inst.Rs) & 0xFF
		e.counter.internal(1)
	}

	return BarrelShift(e.readShiftedOperand(inst, inst.Rm), inst.ShiftType, amount, inst.ShiftByReg, carry)
}

func (e *Emulator) executeDataProc(inst *insts.Instruction) {
	op2, shifterCarry := e.operand2(inst)
	op1 := e.readShiftedOperand(inst, inst.Rn)

	// With S set and Rd = R15 the SPSR is restored instead of the flags
	// being written.
	restore := inst.SetFlags && inst.Rd == RegPC && !inst.Op.IsCompare()
	setFlags := inst.SetFlags && !restore

	result := e.alu.DataProcessing(inst.Op, op1, op2, shifterCarry, setFlags)

	if inst.Op.IsCompare() {
		return
	}

	if restore {
		e.restoreCPSR()
	}
	e.writeResult(inst.Rd, result)
}

func (e *Emulator) executePSRTransfer(inst *insts.Instruction) {
	mode := e.regFile.Mode()

	if inst.Op == insts.OpMRS {
		psr := e.regFile.CPSR
		if inst.UseSPSR && mode.HasSPSR() {
			psr = e.regFile.SPSR(mode)
		}
		e.regFile.WriteReg(inst.Rd, uint32(psr))
		return
	}

	var value uint32
	if inst.ImmOperand {
		value, _ = RotateImmediate(inst.Imm, inst.Rotate, false)
	} else {
		value = e.regFile.ReadReg(inst.Rm)
	}

	var mask uint32
	if inst.FieldMask&insts.FieldFlags != 0 {
		mask |= PsrFlagsMask
	}
	if inst.FieldMask&insts.FieldControl != 0 && mode.Privileged() {
		mask |= PsrControlMask
	}

	if inst.UseSPSR {
		if !mode.HasSPSR() {
			return
		}
		old := uint32(e.regFile.SPSR(mode))
		e.regFile.SetSPSR(mode, Psr(old&^mask|value&mask))
		return
	}

	// The T bit only changes through BX and exception entry or return.
	mask &^= psrThumbBit
	old := uint32(e.regFile.CPSR)
	e.regFile.CPSR = Psr(old&^mask | value&mask)
}

func (e *Emulator) executeMultiply(inst *insts.Instruction) {
	rm := e.regFile.ReadReg(inst.Rm)
	rs := e.regFile.ReadReg(inst.Rs)
	rn := e.regFile.ReadReg(inst.Rn)

	result, cycles := e.alu.Multiply(rm, rs, rn, inst.Accumulate, inst.SetFlags)
	e.counter.internal(cycles)
	e.regFile.WriteReg(inst.Rd, result)
}

func (e *Emulator) executeMultiplyLong(inst *insts.Instruction) {
	rm := e.regFile.ReadReg(inst.Rm)
	rs := e.regFile.ReadReg(inst.Rs)
	acc := uint64(e.regFile.ReadReg(inst.RdHi))<<32 | uint64(e.regFile.ReadReg(inst.RdLo))

	result, cycles := e.alu.MultiplyLong(rm, rs, acc, inst.Signed, inst.Accumulate, inst.SetFlags)
	e.counter.internal(cycles)
	e.regFile.WriteReg(inst.RdLo, uint32(result))
	e.regFile.WriteReg(inst.RdHi, uint32(result>>32))
}

// transferAddress returns the address of a single or halfword transfer and
// the base value to write back.
func (e *Emulator) transferAddress(inst *insts.Instruction, offset uint32) (addr, writeback uint32) {
	base := e.readShiftedOperand(inst, inst.Rn)

	updated := base - offset
	if inst.Up {
		updated = base + offset
	}

	if inst.PreIndex {
		return updated, updated
	}
	return base, updated
}

// writesBack reports whether a single or halfword transfer updates its base.
// Post-indexed transfers always write back.
func writesBack(inst *insts.Instruction) bool {
	return (!inst.PreIndex || inst.Writeback) && inst.Rn != RegPC
}

func (e *Emulator) executeSingleTransfer(inst *insts.Instruction) error {
	offset := inst.Imm
	if !inst.ImmOperand {
		offset, _ = BarrelShift(e.regFile.ReadReg(inst.Rm), inst.ShiftType,
			uint32(inst.ShiftAmount), false, e.regFile.CPSR.Carry())
	}

	addr, newBase := e.transferAddress(inst, offset)

	if !inst.Load {
		value := e.storeValue(inst.Rd, e.regFile.Mode())

		var err error
		if inst.Byte {
			err = e.lsu.StoreByte(addr, value)
		} else {
			err = e.lsu.StoreWord(addr, value, false)
		}
		if err != nil {
			return err
		}

		if writesBack(inst) {
			e.regFile.WriteReg(inst.Rn, newBase)
		}
		return nil
	}

	var (
		value uint32
		err   error
	)
	if inst.Byte {
		value, err = e.lsu.LoadByte(addr)
	} else {
		value, err = e.lsu.LoadWord(addr, false)
	}
	if err != nil {
		return err
	}
	e.counter.internal(1)

	// The loaded value wins over the written-back base.
	if writesBack(inst) {
		e.regFile.WriteReg(inst.Rn, newBase)
	}
	e.writeResult(inst.Rd, value)
	return nil
}

func (e *Emulator) executeHalfwordTransfer(inst *insts.Instruction) error {
	offset := inst.Imm
	if !inst.ImmOperand {
		offset = e.regFile.ReadReg(inst.Rm)
	}

	addr, newBase := e.transferAddress(inst, offset)

	if !inst.Load {
		if err := e.lsu.StoreHalf(addr, e.storeValue(inst.Rd, e.regFile.Mode())); err != nil {
			return err
		}
		if writesBack(inst) {
			e.regFile.WriteReg(inst.Rn, newBase)
		}
		return nil
	}

	var (
		value uint32
		err   error
	)
	switch inst.Op {
	case insts.OpLDRH:
		value, err = e.lsu.LoadHalf(addr)
	case insts.OpLDRSB:
		value, err = e.lsu.LoadSignedByte(addr)
	default:
		value, err = e.lsu.LoadSignedHalf(addr)
	}
	if err != nil {
		return err
	}
	e.counter.internal(1)

	if writesBack(inst) {
		e.regFile.WriteReg(inst.Rn, newBase)
	}
	e.writeResult(inst.Rd, value)
	return nil
}

func (e *Emulator) executeSwap(inst *insts.Instruction) error {
	addr := e.regFile.ReadReg(inst.Rn)
	source := e.regFile.ReadReg(inst.Rm)

	var (
		old uint32
		err error
	)
	if inst.Byte {
		old, err = e.lsu.LoadByte(addr)
		if err == nil {
			err = e.lsu.StoreByte(addr, source)
		}
	} else {
		old, err = e.lsu.LoadWord(addr, false)
		if err == nil {
			err = e.lsu.StoreWord(addr, source, false)
		}
	}
	if err != nil {
		return err
	}

	e.counter.internal(1)
	e.writeResult(inst.Rd, old)
	return nil
}

// blockLayout returns the lowest address a block transfer touches, the
// written-back base, and the register list actually transferred. An empty
// list transfers R15 and moves the base by 0x40.
func blockLayout(inst *insts.Instruction, base uint32) (start, newBase uint32, list uint16) {
	list = inst.RegList
	size := uint32(bits.OnesCount16(list)) * 4
	if list == 0 {
		list = 1 << RegPC
		size = 0x40
	}

	switch {
	case inst.Up && !inst.PreIndex: // IA
		start, newBase = base, base+size
	case inst.Up: // IB
		start, newBase = base+4, base+size
	case !inst.PreIndex: // DA
		start, newBase = base-size+4, base-size
	default: // DB
		start, newBase = base-size, base-size
	}

	return start, newBase, list
}

func (e *Emulator) executeBlockTransfer(inst *insts.Instruction) error {
	mode := e.regFile.Mode()
	start, newBase, list := blockLayout(inst, e.regFile.ReadReg(inst.Rn))

	loadsPC := inst.Load && list&(1<<RegPC) != 0

	// With the S bit, registers come from the User bank unless an LDM
	// loads R15, in which case the SPSR is restored afterwards.
	bank := mode
	if inst.UserBank && !loadsPC {
		bank = ModeUser
	}

	if inst.Load {
		return e.loadMultiple(inst, start, newBase, list, bank)
	}
	return e.storeMultiple(inst, start, newBase, list, bank)
}

func (e *Emulator) storeMultiple(inst *insts.Instruction, addr, newBase uint32, list uint16, bank Mode) error {
	first := firstReg(list)
	for reg := uint8(0); reg < 16; reg++ {
		if list&(1<<reg) == 0 {
			continue
		}

		// The base is updated after the first store, so a base that is
		// not first in the list is stored with its new value.
		v := e.storeValue(reg, bank)
		if inst.Writeback && reg == inst.Rn && reg != first && bank == e.regFile.Mode() {
			v = newBase
		}

		if err := e.lsu.StoreWord(addr, v, reg != first); err != nil {
			return err
		}
		addr += 4
	}

	if inst.Writeback {
		e.regFile.WriteReg(inst.Rn, newBase)
	}
	return nil
}

func (e *Emulator) loadMultiple(inst *insts.Instruction, addr, newBase uint32, list uint16, bank Mode) error {
	var values [16]uint32
	for reg := uint8(0); reg < 16; reg++ {
		if list&(1<<reg) == 0 {
			continue
		}

		v, err := e.lsu.LoadWordAligned(addr, reg != firstReg(list))
		if err != nil {
			return err
		}
		values[reg] = v
		addr += 4
	}

	// A loaded base overrides the written-back value.
	if inst.Writeback {
		e.regFile.WriteReg(inst.Rn, newBase)
	}
	for reg := uint8(0); reg < RegPC; reg++ {
		if list&(1<<reg) != 0 {
			e.regFile.Write(reg, values[reg], bank)
		}
	}

	e.counter.internal(1)

	if list&(1<<RegPC) != 0 {
		if inst.UserBank {
			e.restoreCPSR()
		}
		e.branchUnit.Jump(values[RegPC])
	}
	return nil
}

// firstReg returns the lowest register in a non-empty list.
func firstReg(list uint16) uint8 {
	return uint8(bits.TrailingZeros16(list))
}

func (e *Emulator) executeBranch(inst *insts.Instruction) {
	if inst.Link {
		e.branchUnit.BL(e.pcOperand(), inst.BranchOffset, e.execAddr+e.width())
		return
	}
	e.branchUnit.B(e.pcOperand(), inst.BranchOffset)
}
