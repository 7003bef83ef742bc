package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/m68kcore/emu"
)

var _ = Describe("RegFile", func() {
	var r *emu.RegFile

	BeforeEach(func() {
		r = &emu.RegFile{}
	})

	It("should read back data and address registers", func() {
		for i := 0; i < 8; i++ {
			r.SetD(i, uint32(0x1000+i))
			r.SetA(i, uint32(0x2000+i))
		}
		for i := 0; i < 8; i++ {
			Expect(r.D(i)).To(Equal(uint32(0x1000 + i)))
			Expect(r.A(i)).To(Equal(uint32(0x2000 + i)))
		}
	})

	Context("with an out-of-range register index", func() {
		It("should panic with a RegisterIndexError", func() {
			Expect(func() { r.D(8) }).To(PanicWith(BeAssignableToTypeOf(&emu.RegisterIndexError{})))
			Expect(func() { r.SetA(-1, 0) }).To(Panic())
		})

		It("should name the register in the message", func() {
			err := &emu.RegisterIndexError{Kind: "A", Index: 9}
			Expect(err.Error()).To(Equal("register A9 out of range"))
		})
	})

	Describe("stack pointers", func() {
		It("should map A7 to the supervisor stack in supervisor state", func() {
			r.SetSR(0x2700)
			r.SetA(7, 0x8000)
			Expect(r.SSP()).To(Equal(uint32(0x8000)))
			Expect(r.USP()).To(Equal(uint32(0)))
		})

		It("should map A7 to the user stack in user state", func() {
			r.SetSR(0x0000)
			r.SetA(7, 0x4000)
			Expect(r.USP()).To(Equal(uint32(0x4000)))
			Expect(r.SSP()).To(Equal(uint32(0)))
		})

		It("should keep the active stack when the user stack is set in supervisor state", func() {
			r.SetSR(0x2000)
			r.SetA(7, 0x9000)
			r.SetUSP(0x1234)
			Expect(r.A(7)).To(Equal(uint32(0x9000)))
			Expect(r.USP()).To(Equal(uint32(0x1234)))
		})

		It("should keep the active stack when the supervisor stack is set in user state", func() {
			r.SetSR(0x0000)
			r.SetA(7, 0x3000)
			r.SetSSP(0x7000)
			Expect(r.A(7)).To(Equal(uint32(0x3000)))
			Expect(r.SSP()).To(Equal(uint32(0x7000)))
		})

		It("should preserve both stacks across mode switches", func() {
			r.SetSR(0x2000)
			r.SetA(7, 0xAAAA)
			r.SetSR(0x0000)
			r.SetA(7, 0x5555)

			Expect(r.A(7)).To(Equal(uint32(0x5555)))
			r.SetSR(0x2000)
			Expect(r.A(7)).To(Equal(uint32(0xAAAA)))
			Expect(r.USP()).To(Equal(uint32(0x5555)))
			Expect(r.SSP()).To(Equal(uint32(0xAAAA)))
		})
	})

	Describe("SetFlags", func() {
		It("should clamp the interrupt mask to three bits", func() {
			r.SetFlags(emu.Flags{Mask: 0xF, Supervisor: true})
			Expect(r.SR()).To(Equal(uint16(0x2700)))
			Expect(r.Supervisor()).To(BeTrue())
		})
	})
})
