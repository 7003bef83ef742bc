// Package emu provides the 68000 interpreter control plane.
package emu

import "github.com/sarchlab/akita/v4/sim"

// AutovectorBase is the vector number of the level 0 autovector. A level n
// interrupt without a host vector uses vector AutovectorBase+n.
const AutovectorBase int32 = 0x18

// MemoryReader serves one read slot of the dispatcher (byte or word).
type MemoryReader interface {
	// Read returns the value at addr, zero-extended to 32 bits.
	Read(addr uint32) uint32
}

// MemoryWriter serves one write slot of the dispatcher (byte or word).
type MemoryWriter interface {
	// Write stores the low byte or word of data at addr.
	Write(addr uint32, data uint32)
}

// InterruptAcknowledger maps an interrupt level to a vector number.
type InterruptAcknowledger interface {
	Acknowledge(level int32) int32
}

// ResetObserver is notified when the RESET instruction asserts the
// external reset line.
type ResetObserver interface {
	NotifyReset()
}

// Bus is a host memory that serves all four access slots at once.
type Bus interface {
	Read8(addr uint32) uint8
	Read16(addr uint32) uint16
	Write8(addr uint32, value uint8)
	Write16(addr uint32, value uint16)
}

// ReadFunc adapts a function to MemoryReader.
type ReadFunc func(addr uint32) uint32

// Read calls f(addr).
func (f ReadFunc) Read(addr uint32) uint32 { return f(addr) }

// WriteFunc adapts a function to MemoryWriter.
type WriteFunc func(addr uint32, data uint32)

// Write calls f(addr, data).
func (f WriteFunc) Write(addr uint32, data uint32) { f(addr, data) }

// AcknowledgeFunc adapts a function to InterruptAcknowledger.
type AcknowledgeFunc func(level int32) int32

// Acknowledge calls f(level).
func (f AcknowledgeFunc) Acknowledge(level int32) int32 { return f(level) }

// ResetFunc adapts a function to ResetObserver.
type ResetFunc func()

// NotifyReset calls f().
func (f ResetFunc) NotifyReset() { f() }

type nopReader struct{}

func (nopReader) Read(uint32) uint32 { return 0 }

type nopWriter struct{}

func (nopWriter) Write(uint32, uint32) {}

type nopReset struct{}

func (nopReset) NotifyReset() {}

// AutovectorAcknowledger returns AutovectorBase+level for every interrupt.
// It is the default acknowledger.
type AutovectorAcknowledger struct{}

// Acknowledge returns the autovector for level.
func (AutovectorAcknowledger) Acknowledge(level int32) int32 {
	return AutovectorBase + level
}

// MemAccess is the hook item for memory accesses through the dispatcher.
type MemAccess struct {
	Addr  uint32
	Size  int
	Value uint32
}

// dispatcher holds the handler slots. None of them is ever nil.
type dispatcher struct {
	readByte  MemoryReader
	readWord  MemoryReader
	writeByte MemoryWriter
	writeWord MemoryWriter
	intAck    InterruptAcknowledger
	resetCB   ResetObserver
}

func defaultDispatcher() dispatcher {
	return dispatcher{
		readByte:  nopReader{},
		readWord:  nopReader{},
		writeByte: nopWriter{},
		writeWord: nopWriter{},
		intAck:    AutovectorAcknowledger{},
		resetCB:   nopReset{},
	}
}

// SetReadByte installs the byte read handler. Nil restores the default.
func (c *Core) SetReadByte(r MemoryReader) {
	if r == nil {
		r = nopReader{}
	}
	c.mem.readByte = r
}

// SetReadWord installs the word read handler. Nil restores the default.
func (c *Core) SetReadWord(r MemoryReader) {
	if r == nil {
		r = nopReader{}
	}
	c.mem.readWord = r
}

// SetWriteByte installs the byte write handler. Nil restores the default.
func (c *Core) SetWriteByte(w MemoryWriter) {
	if w == nil {
		w = nopWriter{}
	}
	c.mem.writeByte = w
}

// SetWriteWord installs the word write handler. Nil restores the default.
func (c *Core) SetWriteWord(w MemoryWriter) {
	if w == nil {
		w = nopWriter{}
	}
	c.mem.writeWord = w
}

// SetInterruptCallback installs the interrupt acknowledge handler.
// Nil restores the autovector default.
func (c *Core) SetInterruptCallback(a InterruptAcknowledger) {
	if a == nil {
		a = AutovectorAcknowledger{}
	}
	c.mem.intAck = a
}

// SetResetCallback installs the reset observer. Nil restores the no-op.
func (c *Core) SetResetCallback(o ResetObserver) {
	if o == nil {
		o = nopReset{}
	}
	c.mem.resetCB = o
}

// SetBus routes all four memory slots to b.
func (c *Core) SetBus(b Bus) {
	if b == nil {
		c.SetReadByte(nil)
		c.SetReadWord(nil)
		c.SetWriteByte(nil)
		c.SetWriteWord(nil)
		return
	}
	c.mem.readByte = ReadFunc(func(addr uint32) uint32 { return uint32(b.Read8(addr)) })
	c.mem.readWord = ReadFunc(func(addr uint32) uint32 { return uint32(b.Read16(addr)) })
	c.mem.writeByte = WriteFunc(func(addr uint32, data uint32) { b.Write8(addr, uint8(data)) })
	c.mem.writeWord = WriteFunc(func(addr uint32, data uint32) { b.Write16(addr, uint16(data)) })
}

// Read8 reads a byte through the byte read handler.
func (c *Core) Read8(addr uint32) uint8 {
	v := uint8(c.mem.readByte.Read(addr))
	c.traceAccess(HookPosMemRead, addr, 1, uint32(v))
	return v
}

// Read16 reads a word through the word read handler.
func (c *Core) Read16(addr uint32) uint16 {
	v := uint16(c.mem.readWord.Read(addr))
	c.traceAccess(HookPosMemRead, addr, 2, uint32(v))
	return v
}

// Read32 reads a long word as two word reads, high word first.
func (c *Core) Read32(addr uint32) uint32 {
	hi := c.mem.readWord.Read(addr)
	lo := c.mem.readWord.Read(addr + 2)
	v := hi<<16 | lo&0xFFFF
	c.traceAccess(HookPosMemRead, addr, 4, v)
	return v
}

// Write8 writes a byte through the byte write handler.
func (c *Core) Write8(addr uint32, value uint8) {
	c.traceAccess(HookPosMemWrite, addr, 1, uint32(value))
	c.mem.writeByte.Write(addr, uint32(value))
}

// Write16 writes a word through the word write handler.
func (c *Core) Write16(addr uint32, value uint16) {
	c.traceAccess(HookPosMemWrite, addr, 2, uint32(value))
	c.mem.writeWord.Write(addr, uint32(value))
}

// Write32 writes a long word as two word writes, high word first.
func (c *Core) Write32(addr uint32, value uint32) {
	c.traceAccess(HookPosMemWrite, addr, 4, value)
	c.mem.writeWord.Write(addr, value>>16)
	c.mem.writeWord.Write(addr+2, value&0xFFFF)
}

func (c *Core) traceAccess(pos *sim.HookPos, addr uint32, size int, value uint32) {
	if c.NumHooks() == 0 {
		return
	}
	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    pos,
		Item:   MemAccess{Addr: addr, Size: size, Value: value},
	})
}
