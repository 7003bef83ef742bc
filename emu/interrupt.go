// Package emu provides the 68000 interpreter control plane.
package emu

import (
	"strings"

	"github.com/sarchlab/akita/v4/sim"
)

// Status is the host-side operating mode of the core. It is not visible to
// the emulated program.
type Status uint32

// Operating mode bits.
const (
	// StatusRunning is set while Exec is inside a slice.
	StatusRunning Status = 1 << 0
	// StatusHalted is set after a fatal condition (double bus fault).
	StatusHalted Status = 1 << 1
	// StatusWaiting is set by the STOP instruction until an interrupt.
	StatusWaiting Status = 1 << 2
	// StatusDisabled is only set during the warm-up run in NewCore.
	StatusDisabled Status = 1 << 4
)

func (s Status) String() string {
	if s == 0 {
		return "idle"
	}
	var parts []string
	if s&StatusRunning != 0 {
		parts = append(parts, "running")
	}
	if s&StatusHalted != 0 {
		parts = append(parts, "halted")
	}
	if s&StatusWaiting != 0 {
		parts = append(parts, "waiting")
	}
	if s&StatusDisabled != 0 {
		parts = append(parts, "disabled")
	}
	return strings.Join(parts, "|")
}

// InterruptCycles is the cost charged for entering an interrupt handler.
const InterruptCycles int32 = 44

// InterruptEvent is the hook item for a serviced interrupt.
type InterruptEvent struct {
	Level  int32
	Vector int32
	// PC is the interrupted program counter pushed on the stack.
	PC uint32
}

// SetIRQ sets the interrupt request line to level (0 = no request). A
// running slice is cut short so the request is seen at the next instruction
// boundary; Halted and Waiting are always cleared.
func (c *Core) SetIRQ(level int32) {
	if level < 0 {
		level = 0
	} else if level > 7 {
		level = 7
	}

	if level == 7 && c.irqLevel != 7 {
		c.nmiEdge = true
	}
	c.irqLevel = level

	if c.status&StatusRunning != 0 {
		c.cycleSup += c.cycleIO
		c.cycleIO = 0
	}
	c.status &^= StatusHalted | StatusWaiting

	c.logger.Debug("irq line set", "level", level)
}

// IRQLevel returns the current interrupt request level.
func (c *Core) IRQLevel() int32 {
	return c.irqLevel
}

// Status returns the operating mode bits.
func (c *Core) Status() Status {
	return c.status
}

// Halt stops the core until the next interrupt request or reset. A running
// slice ends after the current instruction and is spent idle.
func (c *Core) Halt() {
	c.status |= StatusHalted
}

// Wait puts the core in the STOP state until an interrupt is taken. A
// running slice ends after the current instruction and is spent idle.
func (c *Core) Wait() {
	c.status |= StatusWaiting
}

// CyclesRemaining returns the cycles left in the current slice.
func (c *Core) CyclesRemaining() int32 {
	return c.cycleIO
}

// CycleSurplus returns the cycles set aside by an interrupt request that
// preempted the current slice.
func (c *Core) CycleSurplus() int32 {
	return c.cycleSup
}

// ConsumeCycles charges n extra cycles to the current slice.
func (c *Core) ConsumeCycles(n int32) {
	c.cycleIO -= n
}

// Cycles returns the total number of cycles executed since the last reset.
func (c *Core) Cycles() uint64 {
	return c.cycles
}

// interruptPending reports whether the request line beats the mask. Level 7
// is non-maskable but only taken once per rising edge.
func (c *Core) interruptPending() bool {
	if c.irqLevel == 0 {
		return false
	}
	if c.irqLevel == 7 {
		return c.nmiEdge || c.flags.Mask < 7
	}
	return c.irqLevel > int32(c.flags.Mask)
}

func (c *Core) checkInterrupt() bool {
	if c.status&StatusHalted != 0 || !c.interruptPending() {
		return false
	}
	c.serviceInterrupt(c.irqLevel)
	return true
}

// serviceInterrupt performs the group 1 exception entry: the old SR and the
// PC go on the supervisor stack, the mask is raised to level and the handler
// address is read from the vector table.
func (c *Core) serviceInterrupt(level int32) {
	c.nmiEdge = false
	vector := c.mem.intAck.Acknowledge(level)

	oldSR := c.SR()
	pc := c.PC()

	f := c.flags
	f.Supervisor = true
	f.Mask = uint8(level)
	c.flags = f

	sp := c.ssp - 4
	c.Write32(sp, pc)
	sp -= 2
	c.Write16(sp, oldSR)
	c.ssp = sp

	c.SetPC(c.Read32(uint32(vector&0xFF) * 4))
	c.status &^= StatusWaiting
	c.cycleIO -= InterruptCycles

	c.logger.Debug("interrupt serviced", "level", level, "vector", vector)
	if c.NumHooks() > 0 {
		c.InvokeHook(sim.HookCtx{
			Domain: c,
			Pos:    HookPosInterrupt,
			Item:   InterruptEvent{Level: level, Vector: vector, PC: pc},
		})
	}
}
