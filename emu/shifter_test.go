package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gbasim/emu"
	"github.com/sarchlab/gbasim/insts"
)

var _ = Describe("BarrelShift", func() {
	type shiftCase struct {
		value     uint32
		typ       insts.ShiftType
		amount    uint32
		byReg     bool
		carryIn   bool
		want      uint32
		wantCarry bool
	}

	DescribeTable("immediate shifts",
		func(c shiftCase) {
			v, carry := emu.BarrelShift(c.value, c.typ, c.amount, c.byReg, c.carryIn)
			Expect(v).To(Equal(c.want))
			Expect(carry).To(Equal(c.wantCarry))
		},
		Entry("LSL #0 passes value and carry", shiftCase{0x80000001, insts.ShiftLSL, 0, false, true, 0x80000001, true}),
		Entry("LSL #1", shiftCase{0x80000001, insts.ShiftLSL, 1, false, false, 0x00000002, true}),
		Entry("LSL #31", shiftCase{0x00000003, insts.ShiftLSL, 31, false, false, 0x80000000, true}),
		Entry("LSR #0 means LSR #32", shiftCase{0x80000000, insts.ShiftLSR, 0, false, false, 0, true}),
		Entry("LSR #4", shiftCase{0x000000F8, insts.ShiftLSR, 4, false, false, 0x0000000F, true}),
		Entry("ASR #0 means ASR #32, negative", shiftCase{0x80000000, insts.ShiftASR, 0, false, false, 0xFFFFFFFF, true}),
		Entry("ASR #0 means ASR #32, positive", shiftCase{0x7FFFFFFF, insts.ShiftASR, 0, false, true, 0, false}),
		Entry("ASR #1", shiftCase{0x80000003, insts.ShiftASR, 1, false, false, 0xC0000001, true}),
		Entry("ROR #0 is RRX with carry", shiftCase{0x00000001, insts.ShiftROR, 0, false, true, 0x80000000, true}),
		Entry("ROR #0 is RRX without carry", shiftCase{0x00000002, insts.ShiftROR, 0, false, false, 0x00000001, false}),
		Entry("ROR #8", shiftCase{0x000000FF, insts.ShiftROR, 8, false, false, 0xFF000000, true}),
	)

	DescribeTable("register shifts",
		func(c shiftCase) {
			v, carry := emu.BarrelShift(c.value, c.typ, c.amount, true, c.carryIn)
			Expect(v).To(Equal(c.want))
			Expect(carry).To(Equal(c.wantCarry))
		},
		Entry("amount 0 keeps value and carry", shiftCase{0x12345678, insts.ShiftLSR, 0, true, true, 0x12345678, true}),
		Entry("only the bottom byte counts", shiftCase{0x12345678, insts.ShiftLSL, 0x100, true, false, 0x12345678, false}),
		Entry("LSL 32", shiftCase{0x00000001, insts.ShiftLSL, 32, true, false, 0, true}),
		Entry("LSL 33", shiftCase{0xFFFFFFFF, insts.ShiftLSL, 33, true, true, 0, false}),
		Entry("LSR 32", shiftCase{0x80000000, insts.ShiftLSR, 32, true, false, 0, true}),
		Entry("LSR 40", shiftCase{0xFFFFFFFF, insts.ShiftLSR, 40, true, true, 0, false}),
		Entry("ASR 32", shiftCase{0x80000000, insts.ShiftASR, 32, true, false, 0xFFFFFFFF, true}),
		Entry("ASR 100", shiftCase{0x40000000, insts.ShiftASR, 100, true, true, 0, false}),
		Entry("ROR 32", shiftCase{0x80000001, insts.ShiftROR, 32, true, false, 0x80000001, true}),
		Entry("ROR 36", shiftCase{0x000000F0, insts.ShiftROR, 36, true, false, 0x0000000F, false}),
	)
})

var _ = Describe("RotateImmediate", func() {
	It("should keep the carry when not rotated", func() {
		v, carry := emu.RotateImmediate(0xFF, 0, true)
		Expect(v).To(Equal(uint32(0xFF)))
		Expect(carry).To(BeTrue())
	})

	It("should take the carry from bit 31 when rotated", func() {
		v, carry := emu.RotateImmediate(0x02, 2, false)
		Expect(v).To(Equal(uint32(0x80000000)))
		Expect(carry).To(BeTrue())

		v, carry = emu.RotateImmediate(0x04, 30, true)
		Expect(v).To(Equal(uint32(0x10)))
		Expect(carry).To(BeFalse())
	})
})
