package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/m68kcore/emu"
)

type recordingHook struct {
	ctxs []sim.HookCtx
}

func (h *recordingHook) Func(ctx sim.HookCtx) {
	h.ctxs = append(h.ctxs, ctx)
}

var _ = Describe("Memory dispatcher", func() {
	var c *emu.Core

	BeforeEach(func() {
		c = emu.NewCore()
	})

	Context("with no handlers installed", func() {
		It("should read zero everywhere", func() {
			for _, addr := range []uint32{0, 1, 0x1234, 0xFFFFFE, 0xFFFFFFFF} {
				Expect(c.Read8(addr)).To(Equal(uint8(0)))
				Expect(c.Read16(addr)).To(Equal(uint16(0)))
				Expect(c.Read32(addr)).To(Equal(uint32(0)))
			}
		})

		It("should discard writes without touching state", func() {
			backing := newRAM(0x100)
			before := c.Registers()

			c.Write8(0x10, 0xAA)
			c.Write16(0x20, 0xBBBB)
			c.Write32(0x30, 0xCCCCCCCC)

			Expect(backing.writes).To(BeZero())
			Expect(backing.data).To(Equal(make([]byte, 0x100)))
			Expect(c.Registers()).To(Equal(before))
			Expect(c.Read32(0x30)).To(BeZero())
		})

		It("should autovector interrupts", func() {
			var got int32
			c.SetReadWord(emu.ReadFunc(func(addr uint32) uint32 {
				got = int32(addr / 4)
				return 0
			}))
			c.SetSR(0x2000)
			c.SetA(7, 0x1000)
			c.SetIRQ(3)
			c.SetExecutor(emu.StepFunc(func(*emu.Core) (int32, error) { return 4, nil }))
			_, _ = c.Exec(0)
			Expect(got).To(Equal(emu.AutovectorBase + 3))
		})
	})

	Context("with a bus installed", func() {
		var mem *ram

		BeforeEach(func() {
			mem = newRAM(0x1000)
			c.SetBus(mem)
		})

		It("should route byte and word accesses", func() {
			c.Write8(0x11, 0x5A)
			c.Write16(0x20, 0xBEEF)
			Expect(mem.data[0x11]).To(Equal(byte(0x5A)))
			Expect(mem.word(0x20)).To(Equal(uint16(0xBEEF)))
			Expect(c.Read8(0x11)).To(Equal(uint8(0x5A)))
			Expect(c.Read16(0x20)).To(Equal(uint16(0xBEEF)))
		})

		It("should compose long reads high word first", func() {
			mem.putLong(0x40, 0x12345678)
			Expect(c.Read32(0x40)).To(Equal(uint32(0x12345678)))
		})

		It("should split long writes high word first", func() {
			c.Write32(0x80, 0xCAFEF00D)
			Expect(mem.word(0x80)).To(Equal(uint16(0xCAFE)))
			Expect(mem.word(0x82)).To(Equal(uint16(0xF00D)))
		})

		It("should restore the safe defaults when the bus is removed", func() {
			mem.putLong(0x40, 0x12345678)
			c.SetBus(nil)
			Expect(c.Read32(0x40)).To(BeZero())
			c.Write16(0x40, 0)
			Expect(mem.long(0x40)).To(Equal(uint32(0x12345678)))
		})
	})

	Describe("individual slots", func() {
		It("should mask long reads from word handlers that return wide values", func() {
			c.SetReadWord(emu.ReadFunc(func(addr uint32) uint32 {
				if addr == 0 {
					return 0x1111
				}
				return 0xFFFF2222
			}))
			Expect(c.Read32(0)).To(Equal(uint32(0x11112222)))
		})

		It("should only replace the slot given", func() {
			var bytes, words []uint32
			c.SetWriteByte(emu.WriteFunc(func(_ uint32, d uint32) { bytes = append(bytes, d) }))
			c.SetWriteWord(emu.WriteFunc(func(_ uint32, d uint32) { words = append(words, d) }))

			c.Write8(0, 1)
			c.Write16(0, 2)
			c.SetWriteByte(nil)
			c.Write8(0, 3)

			Expect(bytes).To(Equal([]uint32{1}))
			Expect(words).To(Equal([]uint32{2}))
		})

		It("should call the reset observer only through ResetDevices", func() {
			calls := 0
			mem := newRAM(0x100)
			c.SetBus(mem)
			c.SetResetCallback(emu.ResetFunc(func() { calls++ }))

			c.Reset()
			Expect(calls).To(BeZero())

			c.ResetDevices()
			Expect(calls).To(Equal(1))
		})
	})

	Describe("hooks", func() {
		It("should report accesses to attached hooks", func() {
			hook := &recordingHook{}
			c.SetBus(newRAM(0x100))
			c.AcceptHook(hook)

			c.Write16(0x10, 0x4E71)
			_ = c.Read16(0x10)

			Expect(hook.ctxs).To(HaveLen(2))
			Expect(hook.ctxs[0].Pos).To(BeIdenticalTo(emu.HookPosMemWrite))
			Expect(hook.ctxs[1].Pos).To(BeIdenticalTo(emu.HookPosMemRead))
			Expect(hook.ctxs[1].Item).To(Equal(emu.MemAccess{Addr: 0x10, Size: 2, Value: 0x4E71}))
		})
	})
})
