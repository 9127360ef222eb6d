// Package insts provides ARM7TDMI instruction definitions and decoding.
package insts

import (
	"github.com/sarchlab/gbasim/bitfield"
)

// Registers with a fixed role in THUMB encodings.
const (
	regSP = 13
	regLR = 14
	regPC = 15
)

// DecodeThumb decodes a 16-bit THUMB instruction into the ARM operation it
// is defined in terms of.
func (d *Decoder) DecodeThumb(half uint16) *Instruction {
	inst := &Instruction{
		Op:     OpUndefined,
		Format: FormatUndefined,
		Cond:   CondAL,
		Raw:    uint32(half),
		Thumb:  true,
	}

	// Masks are checked from most to least specific.
	switch {
	case half&0xF000 == 0xF000:
		d.decodeLongBranch(half, inst)
	case half&0xF800 == 0xE000:
		d.decodeUnconditionalBranch(half, inst)
	case half&0xFF00 == 0xDF00:
		d.decodeThumbSWI(half, inst)
	case half&0xF000 == 0xD000:
		d.decodeConditionalBranch(half, inst)
	case half&0xF000 == 0xC000:
		d.decodeMultipleLoadStore(half, inst)
	case half&0xF600 == 0xB400:
		d.decodePushPop(half, inst)
	case half&0xFF00 == 0xB000:
		d.decodeAddOffsetToSP(half, inst)
	case half&0xF000 == 0xA000:
		d.decodeLoadAddress(half, inst)
	case half&0xF000 == 0x9000:
		d.decodeSPRelativeLoadStore(half, inst)
	case half&0xF000 == 0x8000:
		d.decodeLoadStoreHalfword(half, inst)
	case half&0xE000 == 0x6000:
		d.decodeLoadStoreImmOffset(half, inst)
	case half&0xF200 == 0x5200:
		d.decodeLoadStoreSignExtended(half, inst)
	case half&0xF200 == 0x5000:
		d.decodeLoadStoreRegOffset(half, inst)
	case half&0xF800 == 0x4800:
		d.decodePCRelativeLoad(half, inst)
	case half&0xFC00 == 0x4400:
		d.decodeHiRegisterOps(half, inst)
	case half&0xFC00 == 0x4000:
		d.decodeALUOperations(half, inst)
	case half&0xE000 == 0x2000:
		d.decodeMoveCompareAddSubImm(half, inst)
	case half&0xF800 == 0x1800:
		d.decodeAddSubtract(half, inst)
	case half&0xE000 == 0x0000:
		d.decodeMoveShiftedRegister(half, inst)
	}

	return inst
}

func low3(half uint16, start uint) uint8 {
	return uint8(bitfield.Bits(half, start, start+3))
}

// decodeMoveShiftedRegister decodes format 1.
// Format: 000 | op2 | offset5 | Rs | Rd  =>  MOVS Rd, Rs, <shift> #offset5
func (d *Decoder) decodeMoveShiftedRegister(half uint16, inst *Instruction) {
	inst.ThumbFormat = 1
	inst.Format = FormatDataProc
	inst.Op = OpMOV
	inst.SetFlags = true
	inst.ShiftType = ShiftType(bitfield.Bits(half, 11, 13))
	inst.ShiftAmount = uint8(bitfield.Bits(half, 6, 11))
	inst.Rm = low3(half, 3)
	inst.Rd = low3(half, 0)
}

// decodeAddSubtract decodes format 2.
// Format: 00011 | I | op | Rn/imm3 | Rs | Rd  =>  ADDS/SUBS Rd, Rs, Rn/#imm3
func (d *Decoder) decodeAddSubtract(half uint16, inst *Instruction) {
	inst.ThumbFormat = 2
	inst.Format = FormatDataProc
	inst.SetFlags = true
	inst.ImmOperand = bitfield.Bit(half, 10)
	inst.Rn = low3(half, 3)
	inst.Rd = low3(half, 0)

	if inst.ImmOperand {
		inst.Imm = uint32(bitfield.Bits(half, 6, 9))
	} else {
		inst.Rm = low3(half, 6)
	}

	if bitfield.Bit(half, 9) {
		inst.Op = OpSUB
	} else {
		inst.Op = OpADD
	}
}

// decodeMoveCompareAddSubImm decodes format 3.
// Format: 001 | op2 | Rd | offset8  =>  MOVS/CMP/ADDS/SUBS Rd, #offset8
func (d *Decoder) decodeMoveCompareAddSubImm(half uint16, inst *Instruction) {
	inst.ThumbFormat = 3
	inst.Format = FormatDataProc
	inst.SetFlags = true
	inst.ImmOperand = true
	inst.Rd = low3(half, 8)
	inst.Rn = inst.Rd
	inst.Imm = uint32(bitfield.Bits(half, 0, 8))

	switch bitfield.Bits(half, 11, 13) {
	case 0:
		inst.Op = OpMOV
	case 1:
		inst.Op = OpCMP
	case 2:
		inst.Op = OpADD
	case 3:
		inst.Op = OpSUB
	}
}

// thumbALUOps maps the format 4 opcode to its ARM data-processing
// equivalent. Shifts, NEG and MUL are rewritten by decodeALUOperations.
var thumbALUOps = [16]Op{
	OpAND, OpEOR, OpMOV, OpMOV, OpMOV, OpADC, OpSBC, OpMOV,
	OpTST, OpRSB, OpCMP, OpCMN, OpORR, OpMUL, OpBIC, OpMVN,
}

// decodeALUOperations decodes format 4.
// Format: 010000 | op4 | Rs | Rd
func (d *Decoder) decodeALUOperations(half uint16, inst *Instruction) {
	inst.ThumbFormat = 4
	inst.Format = FormatDataProc
	inst.SetFlags = true

	op := bitfield.Bits(half, 6, 10)
	rs := low3(half, 3)
	rd := low3(half, 0)

	inst.Op = thumbALUOps[op]
	inst.Rd = rd
	inst.Rn = rd
	inst.Rm = rs

	switch op {
	case 0x2, 0x3, 0x4, 0x7: // LSL, LSR, ASR, ROR => MOVS Rd, Rd, <shift> Rs
		inst.Rm = rd
		inst.Rs = rs
		inst.ShiftByReg = true
		inst.ShiftType = [...]ShiftType{0x2: ShiftLSL, 0x3: ShiftLSR, 0x4: ShiftASR, 0x7: ShiftROR}[op]
	case 0x9: // NEG => RSBS Rd, Rs, #0
		inst.Rn = rs
		inst.ImmOperand = true
		inst.Imm = 0
	case 0xD: // MUL => MULS Rd, Rs, Rd
		inst.Format = FormatMultiply
		inst.Rm = rs
		inst.Rs = rd
	}
}

// decodeHiRegisterOps decodes format 5.
// Format: 010001 | op2 | H1 | H2 | Rs/Hs | Rd/Hd
func (d *Decoder) decodeHiRegisterOps(half uint16, inst *Instruction) {
	inst.ThumbFormat = 5
	rs := low3(half, 3)
	rd := low3(half, 0)
	if bitfield.Bit(half, 6) {
		rs += 8
	}
	if bitfield.Bit(half, 7) {
		rd += 8
	}

	inst.Format = FormatDataProc
	inst.Rd = rd
	inst.Rn = rd
	inst.Rm = rs

	switch bitfield.Bits(half, 8, 10) {
	case 0:
		inst.Op = OpADD
	case 1:
		inst.Op = OpCMP
		inst.SetFlags = true
	case 2:
		inst.Op = OpMOV
	case 3:
		inst.Format = FormatBranchExchange
		inst.Op = OpBX
	}
}

// decodePCRelativeLoad decodes format 6.
// Format: 01001 | Rd | word8  =>  LDR Rd, [PC, #word8<<2]
func (d *Decoder) decodePCRelativeLoad(half uint16, inst *Instruction) {
	inst.ThumbFormat = 6
	inst.Format = FormatSingleTransfer
	inst.Op = OpLDR
	inst.Load = true
	inst.PreIndex = true
	inst.Up = true
	inst.ImmOperand = true
	inst.AlignPC = true
	inst.Rn = regPC
	inst.Rd = low3(half, 8)
	inst.Imm = uint32(bitfield.Bits(half, 0, 8)) << 2
}

// decodeLoadStoreRegOffset decodes format 7.
// Format: 0101 | L | B | 0 | Ro | Rb | Rd
func (d *Decoder) decodeLoadStoreRegOffset(half uint16, inst *Instruction) {
	inst.ThumbFormat = 7
	inst.Format = FormatSingleTransfer
	inst.PreIndex = true
	inst.Up = true
	inst.Load = bitfield.Bit(half, 11)
	inst.Byte = bitfield.Bit(half, 10)
	inst.Rm = low3(half, 6)
	inst.Rn = low3(half, 3)
	inst.Rd = low3(half, 0)

	switch {
	case inst.Load && inst.Byte:
		inst.Op = OpLDRB
	case inst.Load:
		inst.Op = OpLDR
	case inst.Byte:
		inst.Op = OpSTRB
	default:
		inst.Op = OpSTR
	}
}

// decodeLoadStoreSignExtended decodes format 8.
// Format: 0101 | H | S | 1 | Ro | Rb | Rd
func (d *Decoder) decodeLoadStoreSignExtended(half uint16, inst *Instruction) {
	inst.ThumbFormat = 8
	inst.Format = FormatHalfwordTransfer
	inst.PreIndex = true
	inst.Up = true
	inst.Rm = low3(half, 6)
	inst.Rn = low3(half, 3)
	inst.Rd = low3(half, 0)

	h := bitfield.Bit(half, 11)
	s := bitfield.Bit(half, 10)
	inst.Signed = s
	inst.Half = h
	inst.Load = s || h

	switch {
	case !s && !h:
		inst.Op = OpSTRH
		inst.Half = true
	case !s:
		inst.Op = OpLDRH
	case !h:
		inst.Op = OpLDRSB
	default:
		inst.Op = OpLDRSH
	}
}

// decodeLoadStoreImmOffset decodes format 9.
// Format: 011 | B | L | offset5 | Rb | Rd
func (d *Decoder) decodeLoadStoreImmOffset(half uint16, inst *Instruction) {
	inst.ThumbFormat = 9
	inst.Format = FormatSingleTransfer
	inst.PreIndex = true
	inst.Up = true
	inst.ImmOperand = true
	inst.Byte = bitfield.Bit(half, 12)
	inst.Load = bitfield.Bit(half, 11)
	inst.Rn = low3(half, 3)
	inst.Rd = low3(half, 0)

	offset := uint32(bitfield.Bits(half, 6, 11))
	if inst.Byte {
		inst.Imm = offset
	} else {
		inst.Imm = offset << 2
	}

	switch {
	case inst.Load && inst.Byte:
		inst.Op = OpLDRB
	case inst.Load:
		inst.Op = OpLDR
	case inst.Byte:
		inst.Op = OpSTRB
	default:
		inst.Op = OpSTR
	}
}

// decodeLoadStoreHalfword decodes format 10.
// Format: 1000 | L | offset5 | Rb | Rd
func (d *Decoder) decodeLoadStoreHalfword(half uint16, inst *Instruction) {
	inst.ThumbFormat = 10
	inst.Format = FormatHalfwordTransfer
	inst.PreIndex = true
	inst.Up = true
	inst.ImmOperand = true
	inst.Half = true
	inst.Load = bitfield.Bit(half, 11)
	inst.Imm = uint32(bitfield.Bits(half, 6, 11)) << 1
	inst.Rn = low3(half, 3)
	inst.Rd = low3(half, 0)

	if inst.Load {
		inst.Op = OpLDRH
	} else {
		inst.Op = OpSTRH
	}
}

// decodeSPRelativeLoadStore decodes format 11.
// Format: 1001 | L | Rd | word8
func (d *Decoder) decodeSPRelativeLoadStore(half uint16, inst *Instruction) {
	inst.ThumbFormat = 11
	inst.Format = FormatSingleTransfer
	inst.PreIndex = true
	inst.Up = true
	inst.ImmOperand = true
	inst.Load = bitfield.Bit(half, 11)
	inst.Rn = regSP
	inst.Rd = low3(half, 8)
	inst.Imm = uint32(bitfield.Bits(half, 0, 8)) << 2

	if inst.Load {
		inst.Op = OpLDR
	} else {
		inst.Op = OpSTR
	}
}

// decodeLoadAddress decodes format 12.
// Format: 1010 | SP | Rd | word8  =>  ADD Rd, PC/SP, #word8<<2
func (d *Decoder) decodeLoadAddress(half uint16, inst *Instruction) {
	inst.ThumbFormat = 12
	inst.Format = FormatDataProc
	inst.Op = OpADD
	inst.ImmOperand = true
	inst.Rd = low3(half, 8)
	inst.Imm = uint32(bitfield.Bits(half, 0, 8)) << 2

	if bitfield.Bit(half, 11) {
		inst.Rn = regSP
	} else {
		inst.Rn = regPC
		inst.AlignPC = true
	}
}

// decodeAddOffsetToSP decodes format 13.
// Format: 10110000 | S | sword7  =>  ADD/SUB SP, SP, #sword7<<2
func (d *Decoder) decodeAddOffsetToSP(half uint16, inst *Instruction) {
	inst.ThumbFormat = 13
	inst.Format = FormatDataProc
	inst.ImmOperand = true
	inst.Rd = regSP
	inst.Rn = regSP
	inst.Imm = uint32(bitfield.Bits(half, 0, 7)) << 2

	if bitfield.Bit(half, 7) {
		inst.Op = OpSUB
	} else {
		inst.Op = OpADD
	}
}

// decodePushPop decodes format 14.
// Format: 1011 | L | 10 | R | Rlist
// PUSH is STMDB SP!, {Rlist, LR}; POP is LDMIA SP!, {Rlist, PC}.
func (d *Decoder) decodePushPop(half uint16, inst *Instruction) {
	inst.ThumbFormat = 14
	inst.Format = FormatBlockTransfer
	inst.Load = bitfield.Bit(half, 11)
	inst.Writeback = true
	inst.Rn = regSP
	inst.RegList = uint16(bitfield.Bits(half, 0, 8))

	extra := bitfield.Bit(half, 8)
	if inst.Load {
		inst.Op = OpLDM
		inst.Up = true
		if extra {
			inst.RegList |= 1 << regPC
		}
	} else {
		inst.Op = OpSTM
		inst.PreIndex = true
		if extra {
			inst.RegList |= 1 << regLR
		}
	}
}

// decodeMultipleLoadStore decodes format 15.
// Format: 1100 | L | Rb | Rlist  =>  LDMIA/STMIA Rb!, {Rlist}
func (d *Decoder) decodeMultipleLoadStore(half uint16, inst *Instruction) {
	inst.ThumbFormat = 15
	inst.Format = FormatBlockTransfer
	inst.Load = bitfield.Bit(half, 11)
	inst.Up = true
	inst.Writeback = true
	inst.Rn = low3(half, 8)
	inst.RegList = uint16(bitfield.Bits(half, 0, 8))

	if inst.Load {
		inst.Op = OpLDM
	} else {
		inst.Op = OpSTM
	}
}

// decodeConditionalBranch decodes format 16.
// Format: 1101 | cond | soffset8
func (d *Decoder) decodeConditionalBranch(half uint16, inst *Instruction) {
	inst.ThumbFormat = 16
	cond := Cond(bitfield.Bits(half, 8, 12))
	if cond == CondAL {
		// Undefined on ARMv4T.
		return
	}

	inst.Format = FormatBranch
	inst.Op = OpB
	inst.Cond = cond
	inst.BranchOffset = signExtend(uint32(bitfield.Bits(half, 0, 8)), 8) << 1
}

// decodeThumbSWI decodes format 17.
// Format: 11011111 | value8
func (d *Decoder) decodeThumbSWI(half uint16, inst *Instruction) {
	inst.ThumbFormat = 17
	inst.Format = FormatSoftwareInterrupt
	inst.Op = OpSWI
	inst.Imm = uint32(bitfield.Bits(half, 0, 8))
}

// decodeUnconditionalBranch decodes format 18.
// Format: 11100 | offset11
func (d *Decoder) decodeUnconditionalBranch(half uint16, inst *Instruction) {
	inst.ThumbFormat = 18
	inst.Format = FormatBranch
	inst.Op = OpB
	inst.BranchOffset = signExtend(uint32(bitfield.Bits(half, 0, 11)), 11) << 1
}

// decodeLongBranch decodes format 19.
// Format: 1111 | H | offset11
// The H=0 half adds the high part of the offset to PC into LR. The H=1
// half branches to LR plus the low part and leaves the return address in LR.
func (d *Decoder) decodeLongBranch(half uint16, inst *Instruction) {
	inst.ThumbFormat = 19
	inst.Format = FormatLongBranch
	offset := uint32(bitfield.Bits(half, 0, 11))

	if bitfield.Bit(half, 11) {
		inst.Op = OpBLLow
		inst.Imm = offset << 1
		return
	}

	inst.Op = OpBLHigh
	inst.BranchOffset = signExtend(offset, 11) << 12
}
