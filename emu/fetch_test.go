package emu_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/m68kcore/emu"
)

var _ = Describe("Fetch table", func() {
	var (
		c   *emu.Core
		rom []byte
	)

	BeforeEach(func() {
		c = emu.NewCore()
		rom = make([]byte, 2*emu.FetchBankSize)
		for i := range rom {
			rom[i] = byte(i)
		}
	})

	Describe("MapFetchRange", func() {
		It("should resolve every address of the range to host offset plus distance", func() {
			const low, high = 0x020000, 0x03FFFF
			Expect(c.MapFetchRange(low, high, rom, 0)).To(Succeed())

			for _, a := range []uint32{low, low + 1, 0x02ABCD, 0x030000, high} {
				idx, err := c.FetchTable().Resolve(a)
				Expect(err).NotTo(HaveOccurred())
				Expect(idx).To(Equal(int(a - low)))
			}
		})

		It("should honour a non-zero host offset", func() {
			Expect(c.MapFetchRange(0x100000, 0x10FFFF, rom, 0x8000)).To(Succeed())
			idx, err := c.FetchTable().Resolve(0x100010)
			Expect(err).NotTo(HaveOccurred())
			Expect(idx).To(Equal(0x8010))
		})

		It("should mirror addresses above the 24-bit bus", func() {
			Expect(c.MapFetchRange(0, 0xFFFF, rom, 0)).To(Succeed())
			idx, err := c.FetchTable().Resolve(0xFF000042)
			Expect(err).NotTo(HaveOccurred())
			Expect(idx).To(Equal(0x42))
		})

		It("should reject inverted ranges", func() {
			err := c.MapFetchRange(0x20000, 0x10000, rom, 0)
			Expect(err).To(MatchError(emu.ErrInvalidRange))
		})

		It("should reject host offsets outside the region", func() {
			Expect(c.MapFetchRange(0, 0xFFFF, rom, len(rom))).To(MatchError(emu.ErrInvalidRange))
			Expect(c.MapFetchRange(0, 0xFFFF, rom, -1)).To(MatchError(emu.ErrInvalidRange))
		})
	})

	Describe("unmapped banks", func() {
		It("should report a fetch error instead of dereferencing", func() {
			_, err := c.FetchTable().Resolve(0x500000)
			Expect(err).To(MatchError(emu.ErrUnmappedFetch))

			var fe *emu.FetchError
			Expect(errors.As(err, &fe)).To(BeTrue())
			Expect(fe.Addr).To(Equal(uint32(0x500000)))
		})

		It("should fail FetchWord and leave the PC alone", func() {
			c.SetPC(0x500000)
			_, err := c.FetchWord()
			Expect(err).To(MatchError(emu.ErrUnmappedFetch))
			Expect(c.PC()).To(Equal(uint32(0x500000)))
		})

		It("should fail fetches past the end of a short host region", func() {
			short := []byte{0x4E, 0x71}
			Expect(c.MapFetchRange(0, 0xFFFF, short, 0)).To(Succeed())
			c.SetPC(0)
			Expect(c.FetchWord()).To(Equal(uint16(0x4E71)))
			_, err := c.FetchWord()
			Expect(err).To(MatchError(emu.ErrUnmappedFetch))
		})

		It("should stop resolving after UnmapFetchRange", func() {
			Expect(c.MapFetchRange(0, 0x1FFFF, rom, 0)).To(Succeed())
			c.UnmapFetchRange(0x10000, 0x1FFFF)
			Expect(c.FetchTable().Mapped(0x00FFFF)).To(BeTrue())
			Expect(c.FetchTable().Mapped(0x010000)).To(BeFalse())
		})
	})

	Describe("program counter", func() {
		BeforeEach(func() {
			Expect(c.MapFetchRange(0, 0x1FFFF, rom, 0)).To(Succeed())
		})

		It("should round-trip logical addresses", func() {
			for _, a := range []uint32{0, 2, 0x8000, 0xFFFE, 0x10000, 0x1FFFE} {
				c.SetPC(a)
				Expect(c.PC()).To(Equal(a))
			}
		})

		It("should fetch big-endian words and advance", func() {
			c.SetPC(0x10)
			Expect(c.FetchWord()).To(Equal(uint16(0x1011)))
			Expect(c.PC()).To(Equal(uint32(0x12)))
			Expect(c.FetchLong()).To(Equal(uint32(0x12131415)))
			Expect(c.PC()).To(Equal(uint32(0x16)))
		})

		It("should peek without moving", func() {
			c.SetPC(0x20)
			Expect(c.PeekWord(2)).To(Equal(uint16(0x2223)))
			Expect(c.PC()).To(Equal(uint32(0x20)))
		})

		It("should rebase when crossing into the next bank", func() {
			other := make([]byte, emu.FetchBankSize)
			other[0], other[1] = 0xAB, 0xCD
			Expect(c.MapFetchRange(0x10000, 0x1FFFF, other, 0)).To(Succeed())

			c.SetPC(0xFFFE)
			Expect(c.FetchWord()).To(Equal(uint16(0xFEFF)))
			Expect(c.PC()).To(Equal(uint32(0x10000)))
			Expect(c.FetchWord()).To(Equal(uint16(0xABCD)))
		})

		It("should rebase the PC when its bank is remapped", func() {
			c.SetPC(0x4)
			other := []byte{0, 0, 0, 0, 0x60, 0xFE}
			Expect(c.MapFetchRange(0, 0xFFFF, other, 0)).To(Succeed())
			Expect(c.PC()).To(Equal(uint32(0x4)))
			Expect(c.FetchWord()).To(Equal(uint16(0x60FE)))
		})
	})
})
