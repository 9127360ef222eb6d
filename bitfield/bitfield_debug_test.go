//go:build debug

package bitfield_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gbasim/bitfield"
)

var _ = Describe("Bitfield preconditions", func() {
	violation := BeAssignableToTypeOf(&bitfield.Violation{})

	It("should reject a bit index past the width", func() {
		Expect(func() { bitfield.Bit(uint8(0), 8) }).To(PanicWith(violation))
		Expect(func() { bitfield.SetBit(uint16(0), 16, true) }).To(PanicWith(violation))
	})

	It("should reject an empty or inverted range", func() {
		Expect(func() { bitfield.Bits(uint32(0), 4, 4) }).To(PanicWith(violation))
		Expect(func() { bitfield.Bits(uint32(0), 5, 4) }).To(PanicWith(violation))
	})

	It("should reject a range past the width", func() {
		Expect(func() { bitfield.Bits(uint32(0), 0, 33) }).To(PanicWith(violation))
	})

	It("should reject a value wider than the field", func() {
		Expect(func() { bitfield.SetBits(uint32(0), 0, 4, 0x10) }).To(PanicWith(violation))
	})

	It("should accept a value that exactly fills the field", func() {
		Expect(bitfield.SetBits(uint32(0), 0, 4, 0xF)).To(Equal(uint32(0xF)))
	})
})
