// Package insts provides ARM7TDMI instruction definitions and decoding.
package insts

import (
	"fmt"

	"github.com/sarchlab/gbasim/bitfield"
)

// Op represents an ARM7TDMI operation.
type Op uint16

// Operations. The sixteen data-processing operations are declared in
// opcode order so that OpAND+opcode yields the operation.
const (
	OpUndefined Op = iota
	OpAND
	OpEOR
	OpSUB
	OpRSB
	OpADD
	OpADC
	OpSBC
	OpRSC
	OpTST
	OpTEQ
	OpCMP
	OpCMN
	OpORR
	OpMOV
	OpBIC
	OpMVN
	OpMUL
	OpMLA
	OpUMULL
	OpUMLAL
	OpSMULL
	OpSMLAL
	OpLDR
	OpSTR
	OpLDRB
	OpSTRB
	OpLDRH
	OpSTRH
	OpLDRSB
	OpLDRSH
	OpLDM
	OpSTM
	OpSWP
	OpSWPB
	OpB
	OpBL
	OpBX
	OpBLHigh // THUMB long branch, first half
	OpBLLow  // THUMB long branch, second half
	OpSWI
	OpMRS
	OpMSR
)

var opNames = [...]string{
	OpUndefined: "UND",
	OpAND:       "AND", OpEOR: "EOR", OpSUB: "SUB", OpRSB: "RSB",
	OpADD: "ADD", OpADC: "ADC", OpSBC: "SBC", OpRSC: "RSC",
	OpTST: "TST", OpTEQ: "TEQ", OpCMP: "CMP", OpCMN: "CMN",
	OpORR: "ORR", OpMOV: "MOV", OpBIC: "BIC", OpMVN: "MVN",
	OpMUL: "MUL", OpMLA: "MLA",
	OpUMULL: "UMULL", OpUMLAL: "UMLAL", OpSMULL: "SMULL", OpSMLAL: "SMLAL",
	OpLDR: "LDR", OpSTR: "STR", OpLDRB: "LDRB", OpSTRB: "STRB",
	OpLDRH: "LDRH", OpSTRH: "STRH", OpLDRSB: "LDRSB", OpLDRSH: "LDRSH",
	OpLDM: "LDM", OpSTM: "STM",
	OpSWP: "SWP", OpSWPB: "SWPB",
	OpB: "B", OpBL: "BL", OpBX: "BX",
	OpBLHigh: "BL.H", OpBLLow: "BL.L",
	OpSWI: "SWI",
	OpMRS: "MRS", OpMSR: "MSR",
}

// String returns the mnemonic of the operation.
func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", uint16(o))
}

// IsCompare reports whether the operation only updates flags.
func (o Op) IsCompare() bool {
	return o >= OpTST && o <= OpCMN
}

// IsLogical reports whether the operation takes C from the shifter.
func (o Op) IsLogical() bool {
	switch o {
	case OpAND, OpEOR, OpTST, OpTEQ, OpORR, OpMOV, OpBIC, OpMVN:
		return true
	default:
		return false
	}
}

// Format represents an instruction class.
type Format uint8

// Instruction formats.
const (
	FormatUnknown          Format = iota
	FormatDataProc                // Data processing
	FormatPSRTransfer             // MRS / MSR
	FormatMultiply                // MUL / MLA
	FormatMultiplyLong            // UMULL / UMLAL / SMULL / SMLAL
	FormatSingleTransfer          // LDR / STR / LDRB / STRB
	FormatHalfwordTransfer        // LDRH / STRH / LDRSB / LDRSH
	FormatBlockTransfer           // LDM / STM
	FormatSwap                    // SWP / SWPB
	FormatBranch                  // B / BL
	FormatBranchExchange          // BX
	FormatLongBranch              // THUMB BL pair
	FormatSoftwareInterrupt       // SWI
	FormatCoprocessor             // CDP / LDC / STC / MCR / MRC
	FormatUndefined               // Architecturally undefined
)

// ShiftType represents a barrel shifter operation.
type ShiftType uint8

// Shift types.
const (
	ShiftLSL ShiftType = 0b00 // Logical shift left
	ShiftLSR ShiftType = 0b01 // Logical shift right
	ShiftASR ShiftType = 0b10 // Arithmetic shift right
	ShiftROR ShiftType = 0b11 // Rotate right (RRX when the immediate amount is 0)
)

// MSR field mask bits. The extension and status fields cover reserved
// PSR bits and have no effect.
const (
	FieldControl uint8 = 1 << 0 // PSR[7:0]
	FieldFlags   uint8 = 1 << 3 // PSR[31:24]
)

// Instruction represents a decoded ARM or THUMB instruction.
type Instruction struct {
	Op     Op     // Operation
	Format Format // Instruction class
	Cond   Cond   // Condition code (AL for unconditional THUMB formats)
	Raw    uint32 // Encoded word or halfword

	Thumb       bool  // Decoded from a THUMB halfword
	ThumbFormat uint8 // THUMB format number 1-19

	// Registers
	Rd   uint8 // Destination register
	Rn   uint8 // First operand / base register
	Rm   uint8 // Second operand / offset register
	Rs   uint8 // Shift amount or multiplier register
	RdHi uint8 // High destination for long multiply
	RdLo uint8 // Low destination for long multiply

	SetFlags bool // S bit

	// Immediate operand
	ImmOperand bool   // Operand 2 / offset is an immediate
	Imm        uint32 // Immediate value before rotation
	Rotate     uint8  // Right rotation applied to Imm, in bits

	// Register operand shift
	ShiftType   ShiftType
	ShiftAmount uint8 // Immediate shift amount
	ShiftByReg  bool  // Shift amount is taken from Rs

	// Data transfer
	Load      bool
	PreIndex  bool
	Up        bool
	Writeback bool
	Byte      bool
	Signed    bool
	Half      bool
	UserBank  bool   // LDM/STM S bit
	RegList   uint16 // LDM/STM register list
	AlignPC   bool   // R15 as base is read word-aligned (THUMB PC-relative forms)

	// Multiply
	Accumulate bool

	// Branch
	BranchOffset int32
	Link         bool

	// PSR transfer
	UseSPSR   bool
	FieldMask uint8
}

// Decoder decodes ARM and THUMB machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new ARM7TDMI instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit ARM instruction word.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{
		Op:     OpUndefined,
		Format: FormatUnknown,
		Cond:   Cond(bitfield.Bits(word, 28, 32)),
		Raw:    word,
	}

	switch {
	case d.isBranchExchange(word):
		d.decodeBranchExchange(word, inst)
	case d.isBlockTransfer(word):
		d.decodeBlockTransfer(word, inst)
	case d.isBranch(word):
		d.decodeBranch(word, inst)
	case d.isSoftwareInterrupt(word):
		inst.Format = FormatSoftwareInterrupt
		inst.Op = OpSWI
		inst.Imm = bitfield.Bits(word, 0, 24)
	case d.isCoprocessor(word):
		inst.Format = FormatCoprocessor
	case d.isUndefined(word):
		inst.Format = FormatUndefined
	case d.isSingleTransfer(word):
		d.decodeSingleTransfer(word, inst)
	case d.isSwap(word):
		d.decodeSwap(word, inst)
	case d.isMultiply(word):
		d.decodeMultiply(word, inst)
	case d.isMultiplyLong(word):
		d.decodeMultiplyLong(word, inst)
	case d.isHalfwordTransfer(word):
		d.decodeHalfwordTransfer(word, inst)
	case d.isMRS(word):
		d.decodeMRS(word, inst)
	case d.isMSR(word):
		d.decodeMSR(word, inst)
	case d.isDataProcessing(word):
		d.decodeDataProcessing(word, inst)
	default:
		inst.Format = FormatUndefined
	}

	return inst
}

// isBranchExchange checks for BX.
// Format: cond | 0001 0010 1111 1111 1111 0001 | Rm
func (d *Decoder) isBranchExchange(word uint32) bool {
	return word&0x0FFFFFF0 == 0x012FFF10
}

func (d *Decoder) decodeBranchExchange(word uint32, inst *Instruction) {
	inst.Format = FormatBranchExchange
	inst.Op = OpBX
	inst.Rm = uint8(bitfield.Bits(word, 0, 4))
}

// isBlockTransfer checks for LDM/STM.
// Format: cond | 100 | P | U | S | W | L | Rn | register list
func (d *Decoder) isBlockTransfer(word uint32) bool {
	return word&0x0E000000 == 0x08000000
}

func (d *Decoder) decodeBlockTransfer(word uint32, inst *Instruction) {
	inst.Format = FormatBlockTransfer
	inst.PreIndex = bitfield.Bit(word, 24)
	inst.Up = bitfield.Bit(word, 23)
	inst.UserBank = bitfield.Bit(word, 22)
	inst.Writeback = bitfield.Bit(word, 21)
	inst.Load = bitfield.Bit(word, 20)
	inst.Rn = uint8(bitfield.Bits(word, 16, 20))
	inst.RegList = uint16(bitfield.Bits(word, 0, 16))

	if inst.Load {
		inst.Op = OpLDM
	} else {
		inst.Op = OpSTM
	}
}

// isBranch checks for B/BL.
// Format: cond | 101 | L | offset24
func (d *Decoder) isBranch(word uint32) bool {
	return word&0x0E000000 == 0x0A000000
}

func (d *Decoder) decodeBranch(word uint32, inst *Instruction) {
	inst.Format = FormatBranch
	inst.Link = bitfield.Bit(word, 24)
	inst.BranchOffset = signExtend(bitfield.Bits(word, 0, 24), 24) << 2

	if inst.Link {
		inst.Op = OpBL
	} else {
		inst.Op = OpB
	}
}

// isSoftwareInterrupt checks for SWI.
// Format: cond | 1111 | comment24
func (d *Decoder) isSoftwareInterrupt(word uint32) bool {
	return word&0x0F000000 == 0x0F000000
}

// isCoprocessor checks for CDP, MCR, MRC, LDC and STC.
// No coprocessor is attached, so these are taken as undefined.
func (d *Decoder) isCoprocessor(word uint32) bool {
	return word&0x0E000000 == 0x0C000000 || word&0x0F000000 == 0x0E000000
}

// isUndefined checks for the architecturally undefined space.
// Format: cond | 011 | xxxx xxxx xxxx xxxx xxxx | 1 | xxxx
func (d *Decoder) isUndefined(word uint32) bool {
	return word&0x0E000010 == 0x06000010
}

// isSingleTransfer checks for LDR/STR/LDRB/STRB.
// Format: cond | 01 | I | P | U | B | W | L | Rn | Rd | offset12
func (d *Decoder) isSingleTransfer(word uint32) bool {
	return word&0x0C000000 == 0x04000000
}

func (d *Decoder) decodeSingleTransfer(word uint32, inst *Instruction) {
	inst.Format = FormatSingleTransfer
	inst.ImmOperand = !bitfield.Bit(word, 25)
	inst.PreIndex = bitfield.Bit(word, 24)
	inst.Up = bitfield.Bit(word, 23)
	inst.Byte = bitfield.Bit(word, 22)
	inst.Writeback = bitfield.Bit(word, 21)
	inst.Load = bitfield.Bit(word, 20)
	inst.Rn = uint8(bitfield.Bits(word, 16, 20))
	inst.Rd = uint8(bitfield.Bits(word, 12, 16))

	if inst.ImmOperand {
		inst.Imm = bitfield.Bits(word, 0, 12)
	} else {
		inst.Rm = uint8(bitfield.Bits(word, 0, 4))
		inst.ShiftType = ShiftType(bitfield.Bits(word, 5, 7))
		inst.ShiftAmount = uint8(bitfield.Bits(word, 7, 12))
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

// isSwap checks for SWP/SWPB.
// Format: cond | 00010 | B | 00 | Rn | Rd | 0000 1001 | Rm
func (d *Decoder) isSwap(word uint32) bool {
	return word&0x0FB00FF0 == 0x01000090
}

func (d *Decoder) decodeSwap(word uint32, inst *Instruction) {
	inst.Format = FormatSwap
	inst.Byte = bitfield.Bit(word, 22)
	inst.Rn = uint8(bitfield.Bits(word, 16, 20))
	inst.Rd = uint8(bitfield.Bits(word, 12, 16))
	inst.Rm = uint8(bitfield.Bits(word, 0, 4))

	if inst.Byte {
		inst.Op = OpSWPB
	} else {
		inst.Op = OpSWP
	}
}

// isMultiply checks for MUL/MLA.
// Format: cond | 000000 | A | S | Rd | Rn | Rs | 1001 | Rm
func (d *Decoder) isMultiply(word uint32) bool {
	return word&0x0FC000F0 == 0x00000090
}

func (d *Decoder) decodeMultiply(word uint32, inst *Instruction) {
	inst.Format = FormatMultiply
	inst.Accumulate = bitfield.Bit(word, 21)
	inst.SetFlags = bitfield.Bit(word, 20)
	inst.Rd = uint8(bitfield.Bits(word, 16, 20))
	inst.Rn = uint8(bitfield.Bits(word, 12, 16))
	inst.Rs = uint8(bitfield.Bits(word, 8, 12))
	inst.Rm = uint8(bitfield.Bits(word, 0, 4))

	if inst.Accumulate {
		inst.Op = OpMLA
	} else {
		inst.Op = OpMUL
	}
}

// isMultiplyLong checks for UMULL/UMLAL/SMULL/SMLAL.
// Format: cond | 00001 | U | A | S | RdHi | RdLo | Rs | 1001 | Rm
func (d *Decoder) isMultiplyLong(word uint32) bool {
	return word&0x0F8000F0 == 0x00800090
}

func (d *Decoder) decodeMultiplyLong(word uint32, inst *Instruction) {
	inst.Format = FormatMultiplyLong
	inst.Signed = bitfield.Bit(word, 22)
	inst.Accumulate = bitfield.Bit(word, 21)
	inst.SetFlags = bitfield.Bit(word, 20)
	inst.RdHi = uint8(bitfield.Bits(word, 16, 20))
	inst.RdLo = uint8(bitfield.Bits(word, 12, 16))
	inst.Rs = uint8(bitfield.Bits(word, 8, 12))
	inst.Rm = uint8(bitfield.Bits(word, 0, 4))

	switch {
	case inst.Signed && inst.Accumulate:
		inst.Op = OpSMLAL
	case inst.Signed:
		inst.Op = OpSMULL
	case inst.Accumulate:
		inst.Op = OpUMLAL
	default:
		inst.Op = OpUMULL
	}
}

// isHalfwordTransfer checks for LDRH/STRH/LDRSB/LDRSH.
// Register offset: cond | 000 | P | U | 0 | W | L | Rn | Rd | 0000 | 1 | S | H | 1 | Rm
// Immediate offset: cond | 000 | P | U | 1 | W | L | Rn | Rd | imm4 | 1 | S | H | 1 | imm4
func (d *Decoder) isHalfwordTransfer(word uint32) bool {
	if word&0x60 == 0 {
		return false
	}
	return word&0x0E400F90 == 0x00000090 || word&0x0E400090 == 0x00400090
}

func (d *Decoder) decodeHalfwordTransfer(word uint32, inst *Instruction) {
	inst.Format = FormatHalfwordTransfer
	inst.PreIndex = bitfield.Bit(word, 24)
	inst.Up = bitfield.Bit(word, 23)
	inst.ImmOperand = bitfield.Bit(word, 22)
	inst.Writeback = bitfield.Bit(word, 21)
	inst.Load = bitfield.Bit(word, 20)
	inst.Rn = uint8(bitfield.Bits(word, 16, 20))
	inst.Rd = uint8(bitfield.Bits(word, 12, 16))
	inst.Signed = bitfield.Bit(word, 6)
	inst.Half = bitfield.Bit(word, 5)

	if inst.ImmOperand {
		inst.Imm = bitfield.Bits(word, 8, 12)<<4 | bitfield.Bits(word, 0, 4)
	} else {
		inst.Rm = uint8(bitfield.Bits(word, 0, 4))
	}

	switch {
	case !inst.Load && !inst.Signed:
		inst.Op = OpSTRH
	case !inst.Load:
		// Doubleword transfers arrived with ARMv5TE.
		inst.Op = OpUndefined
		inst.Format = FormatUndefined
	case !inst.Signed:
		inst.Op = OpLDRH
	case inst.Half:
		inst.Op = OpLDRSH
	default:
		inst.Op = OpLDRSB
	}
}

// isMRS checks for MRS.
// Format: cond | 00010 | Ps | 001111 | Rd | 0000 0000 0000
func (d *Decoder) isMRS(word uint32) bool {
	return word&0x0FBF0FFF == 0x010F0000
}

func (d *Decoder) decodeMRS(word uint32, inst *Instruction) {
	inst.Format = FormatPSRTransfer
	inst.Op = OpMRS
	inst.UseSPSR = bitfield.Bit(word, 22)
	inst.Rd = uint8(bitfield.Bits(word, 12, 16))
}

// isMSR checks for MSR with register or immediate source.
// Format: cond | 00 | I | 10 | Pd | 10 | mask | 1111 | source
func (d *Decoder) isMSR(word uint32) bool {
	return word&0x0DB0F000 == 0x0120F000
}

func (d *Decoder) decodeMSR(word uint32, inst *Instruction) {
	inst.Format = FormatPSRTransfer
	inst.Op = OpMSR
	inst.ImmOperand = bitfield.Bit(word, 25)
	inst.UseSPSR = bitfield.Bit(word, 22)
	inst.FieldMask = uint8(bitfield.Bits(word, 16, 20))

	if inst.ImmOperand {
		inst.Imm = bitfield.Bits(word, 0, 8)
		inst.Rotate = uint8(bitfield.Bits(word, 8, 12) * 2)
	} else {
		inst.Rm = uint8(bitfield.Bits(word, 0, 4))
	}
}

// isDataProcessing checks for the data-processing space.
// Format: cond | 00 | I | opcode | S | Rn | Rd | operand2
func (d *Decoder) isDataProcessing(word uint32) bool {
	return word&0x0C000000 == 0
}

func (d *Decoder) decodeDataProcessing(word uint32, inst *Instruction) {
	inst.Format = FormatDataProc
	inst.Op = OpAND + Op(bitfield.Bits(word, 21, 25))
	inst.ImmOperand = bitfield.Bit(word, 25)
	inst.SetFlags = bitfield.Bit(word, 20) || inst.Op.IsCompare()
	inst.Rn = uint8(bitfield.Bits(word, 16, 20))
	inst.Rd = uint8(bitfield.Bits(word, 12, 16))

	if inst.ImmOperand {
		inst.Imm = bitfield.Bits(word, 0, 8)
		inst.Rotate = uint8(bitfield.Bits(word, 8, 12) * 2)
		return
	}

	inst.Rm = uint8(bitfield.Bits(word, 0, 4))
	inst.ShiftType = ShiftType(bitfield.Bits(word, 5, 7))
	inst.ShiftByReg = bitfield.Bit(word, 4)
	if inst.ShiftByReg {
		inst.Rs = uint8(bitfield.Bits(word, 8, 12))
	} else {
		inst.ShiftAmount = uint8(bitfield.Bits(word, 7, 12))
	}
}

// signExtend sign-extends the low width bits of v.
func signExtend(v uint32, width uint) int32 {
	shift := 32 - width
	return int32(v<<shift) >> shift
}
