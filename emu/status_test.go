package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/m68kcore/emu"
)

var _ = Describe("Status register codec", func() {
	Describe("DecodeSR", func() {
		It("should extract each condition flag from its bit", func() {
			Expect(emu.DecodeSR(0x0001).C).To(BeTrue())
			Expect(emu.DecodeSR(0x0002).V).To(BeTrue())
			Expect(emu.DecodeSR(0x0004).Z).To(BeTrue())
			Expect(emu.DecodeSR(0x0008).N).To(BeTrue())
			Expect(emu.DecodeSR(0x0010).X).To(BeTrue())
		})

		It("should extract the interrupt mask and supervisor bit", func() {
			f := emu.DecodeSR(0x2500)
			Expect(f.Mask).To(Equal(uint8(5)))
			Expect(f.Supervisor).To(BeTrue())
			Expect(f.C || f.V || f.Z || f.N || f.X).To(BeFalse())
		})

		It("should ignore reserved bits", func() {
			Expect(emu.DecodeSR(0xFFFF)).To(Equal(emu.DecodeSR(emu.SRMask)))
			Expect(emu.DecodeSR(0x80E0)).To(Equal(emu.Flags{}))
		})
	})

	Describe("Encode", func() {
		It("should produce the power-on word", func() {
			f := emu.Flags{Mask: 7, Supervisor: true}
			Expect(f.Encode()).To(Equal(uint16(0x2700)))
		})

		It("should set bit 2 only when Z is set", func() {
			Expect(emu.Flags{Z: true}.Encode()).To(Equal(uint16(0x0004)))
			Expect(emu.Flags{Z: false}.Encode()).To(Equal(uint16(0x0000)))
		})
	})

	It("should round-trip every flag combination", func() {
		for bits := 0; bits < 1<<9; bits++ {
			f := emu.Flags{
				C:          bits&0x01 != 0,
				V:          bits&0x02 != 0,
				Z:          bits&0x04 != 0,
				N:          bits&0x08 != 0,
				X:          bits&0x10 != 0,
				Mask:       uint8(bits>>5) & 7,
				Supervisor: bits&0x100 != 0,
			}
			Expect(emu.DecodeSR(f.Encode())).To(Equal(f))
		}
	})

	It("should round-trip every packed word on the preserved bits", func() {
		for w := 0; w <= 0xFFFF; w++ {
			sr := uint16(w)
			Expect(emu.DecodeSR(sr).Encode()).To(Equal(sr & emu.SRMask))
		}
	})

	Describe("WithCCR", func() {
		It("should replace the condition codes and keep the system byte", func() {
			f := emu.DecodeSR(0x2315)
			g := f.WithCCR(0x0A)
			Expect(g.Encode()).To(Equal(uint16(0x230A)))
			Expect(g.CCR()).To(Equal(uint8(0x0A)))
		})
	})

	DescribeTable("condition tests",
		func(sr uint16, cond emu.Condition, expected bool) {
			Expect(emu.DecodeSR(sr).Test(cond)).To(Equal(expected))
		},
		Entry("T always", uint16(0x00), emu.CondT, true),
		Entry("F never", uint16(0x1F), emu.CondF, false),
		Entry("HI with C and Z clear", uint16(0x00), emu.CondHI, true),
		Entry("HI with Z set", uint16(0x04), emu.CondHI, false),
		Entry("LS with C set", uint16(0x01), emu.CondLS, true),
		Entry("CC with C clear", uint16(0x00), emu.CondCC, true),
		Entry("CS with C set", uint16(0x01), emu.CondCS, true),
		Entry("NE with Z clear", uint16(0x00), emu.CondNE, true),
		Entry("EQ with Z set", uint16(0x04), emu.CondEQ, true),
		Entry("VC with V set", uint16(0x02), emu.CondVC, false),
		Entry("VS with V set", uint16(0x02), emu.CondVS, true),
		Entry("PL with N clear", uint16(0x00), emu.CondPL, true),
		Entry("MI with N set", uint16(0x08), emu.CondMI, true),
		Entry("GE with N and V set", uint16(0x0A), emu.CondGE, true),
		Entry("LT with N set and V clear", uint16(0x08), emu.CondLT, true),
		Entry("GT with Z set", uint16(0x04), emu.CondGT, false),
		Entry("GT with N and V clear", uint16(0x00), emu.CondGT, true),
		Entry("LE with Z set", uint16(0x04), emu.CondLE, true),
		Entry("LE with N set and V clear", uint16(0x08), emu.CondLE, true),
	)
})
