package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gbasim/emu"
	"github.com/sarchlab/gbasim/insts"
)

var _ = Describe("ALU", func() {
	var (
		regFile *emu.RegFile
		alu     *emu.ALU
	)

	flags := func() (n, z, c, v bool) {
		p := regFile.CPSR
		return p.Sign(), p.Zero(), p.Carry(), p.Overflow()
	}

	BeforeEach(func() {
		regFile = emu.NewRegFile()
		alu = emu.NewALU(regFile)
	})

	Describe("arithmetic", func() {
		It("should add and set carry on unsigned overflow", func() {
			result := alu.DataProcessing(insts.OpADD, 0xFFFFFFFF, 1, false, true)
			Expect(result).To(BeZero())

			n, z, c, v := flags()
			Expect([]bool{n, z, c, v}).To(Equal([]bool{false, true, true, false}))
		})

		It("should set V on signed overflow", func() {
			result := alu.DataProcessing(insts.OpADD, 0x7FFFFFFF, 1, false, true)
			Expect(result).To(Equal(uint32(0x80000000)))

			n, z, c, v := flags()
			Expect([]bool{n, z, c, v}).To(Equal([]bool{true, false, false, true}))
		})

		It("should set C as not-borrow on subtraction", func() {
			alu.DataProcessing(insts.OpSUB, 5, 3, false, true)
			_, _, c, _ := flags()
			Expect(c).To(BeTrue())

			alu.DataProcessing(insts.OpSUB, 3, 5, false, true)
			n, _, c, _ := flags()
			Expect(c).To(BeFalse())
			Expect(n).To(BeTrue())
		})

		It("should compare equal values as Z and C", func() {
			alu.DataProcessing(insts.OpCMP, 7, 7, false, true)
			n, z, c, v := flags()
			Expect([]bool{n, z, c, v}).To(Equal([]bool{false, true, true, false}))
		})

		It("should reverse subtract", func() {
			Expect(alu.DataProcessing(insts.OpRSB, 3, 10, false, false)).To(Equal(uint32(7)))
		})

		It("should use the carry for ADC, SBC and RSC", func() {
			regFile.CPSR = regFile.CPSR.WithCarry(true)
			Expect(alu.DataProcessing(insts.OpADC, 1, 2, false, false)).To(Equal(uint32(4)))
			Expect(alu.DataProcessing(insts.OpSBC, 10, 3, false, false)).To(Equal(uint32(7)))
			Expect(alu.DataProcessing(insts.OpRSC, 3, 10, false, false)).To(Equal(uint32(7)))

			regFile.CPSR = regFile.CPSR.WithCarry(false)
			Expect(alu.DataProcessing(insts.OpSBC, 10, 3, false, false)).To(Equal(uint32(6)))
			Expect(alu.DataProcessing(insts.OpRSC, 3, 10, false, false)).To(Equal(uint32(6)))
		})

		It("should negate through CMN", func() {
			alu.DataProcessing(insts.OpCMN, 1, 0xFFFFFFFF, false, true)
			_, z, c, _ := flags()
			Expect(z).To(BeTrue())
			Expect(c).To(BeTrue())
		})
	})

	Describe("logical", func() {
		It("should take C from the shifter and leave V alone", func() {
			regFile.CPSR = regFile.CPSR.WithOverflow(true)

			result := alu.DataProcessing(insts.OpAND, 0xF0, 0x0F, true, true)
			Expect(result).To(BeZero())

			n, z, c, v := flags()
			Expect([]bool{n, z, c, v}).To(Equal([]bool{false, true, true, true}))
		})

		DescribeTable("results",
			func(op insts.Op, op1, op2, want uint32) {
				Expect(alu.DataProcessing(op, op1, op2, false, false)).To(Equal(want))
			},
			Entry("EOR", insts.OpEOR, uint32(0xFF00), uint32(0x0FF0), uint32(0xF0F0)),
			Entry("ORR", insts.OpORR, uint32(0xFF00), uint32(0x00FF), uint32(0xFFFF)),
			Entry("BIC", insts.OpBIC, uint32(0xFFFF), uint32(0x00F0), uint32(0xFF0F)),
			Entry("MOV", insts.OpMOV, uint32(0x1234), uint32(0x5678), uint32(0x5678)),
			Entry("MVN", insts.OpMVN, uint32(0), uint32(0), uint32(0xFFFFFFFF)),
		)

		It("should not write flags without S", func() {
			before := regFile.CPSR
			alu.DataProcessing(insts.OpORR, 0, 0, true, false)
			Expect(regFile.CPSR).To(Equal(before))
		})
	})

	It("should panic for non data-processing operations", func() {
		Expect(func() { alu.DataProcessing(insts.OpLDR, 0, 0, false, false) }).
			To(PanicWith(BeAssignableToTypeOf(&emu.InvariantViolation{})))
	})

	Describe("Multiply", func() {
		It("should multiply and accumulate", func() {
			result, cycles := alu.Multiply(3, 4, 5, true, false)
			Expect(result).To(Equal(uint32(17)))
			Expect(cycles).To(Equal(uint64(2)))
		})

		It("should terminate early based on the multiplier", func() {
			_, m1 := alu.Multiply(1, 0xFF, 0, false, false)
			_, m2 := alu.Multiply(1, 0xFFFF, 0, false, false)
			_, m3 := alu.Multiply(1, 0xFFFFFF, 0, false, false)
			_, m4 := alu.Multiply(1, 0x7FFFFFFF, 0, false, false)
			_, neg := alu.Multiply(1, 0xFFFFFF80, 0, false, false)

			Expect([]uint64{m1, m2, m3, m4, neg}).To(Equal([]uint64{1, 2, 3, 4, 1}))
		})

		It("should set N and Z but keep C", func() {
			regFile.CPSR = regFile.CPSR.WithCarry(true)
			alu.Multiply(0, 5, 0, false, true)

			_, z, c, _ := flags()
			Expect(z).To(BeTrue())
			Expect(c).To(BeTrue())
		})
	})

	Describe("MultiplyLong", func() {
		It("should produce unsigned 64-bit products", func() {
			result, _ := alu.MultiplyLong(0xFFFFFFFF, 0xFFFFFFFF, 0, false, false, false)
			Expect(result).To(Equal(uint64(0xFFFFFFFE00000001)))
		})

		It("should produce signed 64-bit products", func() {
			result, _ := alu.MultiplyLong(0xFFFFFFFE, 3, 0, true, false, true)
			Expect(int64(result)).To(Equal(int64(-6)))

			n, z, _, _ := flags()
			Expect(n).To(BeTrue())
			Expect(z).To(BeFalse())
		})

		It("should accumulate", func() {
			result, cycles := alu.MultiplyLong(2, 3, 0x100000000, false, true, false)
			Expect(result).To(Equal(uint64(0x100000006)))
			Expect(cycles).To(Equal(uint64(3)))
		})
	})
})
