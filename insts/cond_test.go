package insts_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gbasim/insts"
)

// expectedCond is the reference truth table for the condition codes.
func expectedCond(c insts.Cond, n, z, carry, v bool) bool {
	switch c {
	case insts.CondEQ:
		return z
	case insts.CondNE:
		return !z
	case insts.CondCS:
		return carry
	case insts.CondCC:
		return !carry
	case insts.CondMI:
		return n
	case insts.CondPL:
		return !n
	case insts.CondVS:
		return v
	case insts.CondVC:
		return !v
	case insts.CondHI:
		return carry && !z
	case insts.CondLS:
		return !carry || z
	case insts.CondGE:
		return n == v
	case insts.CondLT:
		return n != v
	case insts.CondGT:
		return !z && n == v
	case insts.CondLE:
		return z || n != v
	case insts.CondAL:
		return true
	}
	return false
}

var _ = Describe("Cond", func() {
	Describe("Eval", func() {
		It("should match the truth table for every code and flag combination", func() {
			cases := 0
			for code := 0; code < 16; code++ {
				for flags := 0; flags < 16; flags++ {
					n := flags&8 != 0
					z := flags&4 != 0
					c := flags&2 != 0
					v := flags&1 != 0
					cond := insts.Cond(code)
					Expect(cond.Eval(n, z, c, v)).To(Equal(expectedCond(cond, n, z, c, v)),
						"cond %v with N=%v Z=%v C=%v V=%v", cond, n, z, c, v)
					cases++
				}
			}
			Expect(cases).To(Equal(256))
		})

		It("should never take NV", func() {
			for flags := 0; flags < 16; flags++ {
				Expect(insts.CondNV.Eval(flags&8 != 0, flags&4 != 0, flags&2 != 0, flags&1 != 0)).
					To(BeFalse())
			}
		})

		It("should always take AL", func() {
			Expect(insts.CondAL.Eval(false, false, false, false)).To(BeTrue())
			Expect(insts.CondAL.Eval(true, true, true, true)).To(BeTrue())
		})
	})

	Describe("DecodeCond", func() {
		It("should accept every 4-bit value", func() {
			for v := uint32(0); v < 16; v++ {
				c, err := insts.DecodeCond(v)
				Expect(err).NotTo(HaveOccurred())
				Expect(uint32(c)).To(Equal(v))
			}
		})

		It("should reject wider values", func() {
			_, err := insts.DecodeCond(16)
			Expect(errors.Is(err, insts.ErrInvalidCond)).To(BeTrue())
		})
	})

	Describe("String", func() {
		It("should return the assembler suffix", func() {
			Expect(insts.CondEQ.String()).To(Equal("EQ"))
			Expect(insts.CondHS.String()).To(Equal("CS"))
			Expect(insts.CondNV.String()).To(Equal("NV"))
		})
	})
})
