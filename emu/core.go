// Package emu provides the 68000 interpreter control plane.
package emu

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/akita/v4/sim"
)

// Hook positions invoked by the core.
var (
	// HookPosReset is invoked after Reset loaded the reset vector.
	HookPosReset = &sim.HookPos{Name: "Reset"}
	// HookPosInterrupt is invoked after an interrupt was serviced.
	HookPosInterrupt = &sim.HookPos{Name: "Interrupt"}
	// HookPosMemRead is invoked on every read through the dispatcher.
	HookPosMemRead = &sim.HookPos{Name: "MemRead"}
	// HookPosMemWrite is invoked on every write through the dispatcher.
	HookPosMemWrite = &sim.HookPos{Name: "MemWrite"}
)

// Executor runs one instruction on the core and returns its cycle cost.
// Instruction decode and semantics live outside this package.
type Executor interface {
	Step(c *Core) (int32, error)
}

// Preparer is implemented by executors that need a warm-up pass before the
// first slice, such as building an opcode dispatch table.
type Preparer interface {
	Prepare(c *Core)
}

// StepFunc adapts a function to Executor.
type StepFunc func(c *Core) (int32, error)

// Step calls f(c).
func (f StepFunc) Step(c *Core) (int32, error) { return f(c) }

// Core is the processor state of one 68000. It is not safe for concurrent
// use; a host running several CPUs creates one Core per CPU.
type Core struct {
	*sim.HookableBase
	RegFile

	// pc is the host-relative program counter, basePC + logical address.
	pc     int64
	basePC int64
	pcBank *fetchEntry

	status   Status
	irqLevel int32
	nmiEdge  bool

	cycleToDo int32
	cycleIO   int32
	cycleSup  int32
	cycles    uint64

	mem      dispatcher
	fetch    FetchTable
	executor Executor
	logger   *slog.Logger
}

// CoreOption is a functional option for configuring the Core.
type CoreOption func(*Core)

// WithBus routes all memory slots to b.
func WithBus(b Bus) CoreOption {
	return func(c *Core) {
		c.SetBus(b)
	}
}

// WithReadByte sets the byte read handler.
func WithReadByte(r MemoryReader) CoreOption {
	return func(c *Core) {
		c.SetReadByte(r)
	}
}

// WithReadWord sets the word read handler.
func WithReadWord(r MemoryReader) CoreOption {
	return func(c *Core) {
		c.SetReadWord(r)
	}
}

// WithWriteByte sets the byte write handler.
func WithWriteByte(w MemoryWriter) CoreOption {
	return func(c *Core) {
		c.SetWriteByte(w)
	}
}

// WithWriteWord sets the word write handler.
func WithWriteWord(w MemoryWriter) CoreOption {
	return func(c *Core) {
		c.SetWriteWord(w)
	}
}

// WithInterruptCallback sets the interrupt acknowledge handler.
func WithInterruptCallback(a InterruptAcknowledger) CoreOption {
	return func(c *Core) {
		c.SetInterruptCallback(a)
	}
}

// WithResetCallback sets the reset observer.
func WithResetCallback(o ResetObserver) CoreOption {
	return func(c *Core) {
		c.SetResetCallback(o)
	}
}

// WithExecutor sets the instruction executor driven by Exec.
func WithExecutor(x Executor) CoreOption {
	return func(c *Core) {
		c.executor = x
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) CoreOption {
	return func(c *Core) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCore creates a zeroed core with default handlers and an empty fetch
// table, then applies opts. If the executor implements Preparer, it is
// given one warm-up pass with the core disabled.
func NewCore(opts ...CoreOption) *Core {
	c := &Core{
		HookableBase: &sim.HookableBase{},
		mem:          defaultDispatcher(),
		logger:       slog.New(slog.DiscardHandler),
	}
	c.SetPC(0)

	for _, opt := range opts {
		opt(c)
	}

	if p, ok := c.executor.(Preparer); ok {
		c.status |= StatusDisabled
		p.Prepare(c)
		c.status &^= StatusDisabled
	}

	return c
}

// SetExecutor replaces the instruction executor.
func (c *Core) SetExecutor(x Executor) {
	c.executor = x
}

// Reset puts the core in its power-on state: registers, flags, mode bits,
// interrupt line and cycle counters are cleared, the CPU enters supervisor
// state with all interrupts masked, and SSP and PC are loaded from the long
// words at 0 and 4. Handlers and the fetch table are kept. The reset
// observer is not called; see ResetDevices.
//
// When called by the executor during Exec, the current slice keeps running.
func (c *Core) Reset() Status {
	running := c.status & StatusRunning

	c.RegFile = RegFile{}
	c.flags.Z = false
	c.flags.Mask = 7
	c.flags.Supervisor = true
	c.irqLevel = 0
	c.nmiEdge = false
	c.status = running
	c.cycles = 0
	if running == 0 {
		c.cycleToDo, c.cycleIO, c.cycleSup = 0, 0, 0
	}

	c.ssp = c.Read32(0)
	c.SetPC(c.Read32(4))

	c.logger.Debug("reset",
		"ssp", fmt.Sprintf("0x%08X", c.ssp),
		"pc", fmt.Sprintf("0x%08X", c.PC()))
	if !c.fetch.Mapped(c.PC()) {
		c.logger.Warn("reset vector points at unmapped fetch bank",
			"pc", fmt.Sprintf("0x%08X", c.PC()))
	}
	if c.NumHooks() > 0 {
		c.InvokeHook(sim.HookCtx{Domain: c, Pos: HookPosReset, Item: c.Registers()})
	}

	return c.status
}

// ResetDevices calls the reset observer. Executors call it for the RESET
// instruction, which resets external devices but not the CPU.
func (c *Core) ResetDevices() {
	c.mem.resetCB.NotifyReset()
}

// Registers returns a snapshot of the programmer-visible registers.
func (c *Core) Registers() Registers {
	regs := c.snapshot()
	regs.PC = c.PC()
	return regs
}

// Exec runs the executor for a slice of cycles and returns the number of
// cycles actually executed, which may overshoot by the cost of the last
// instruction. Pending interrupts are serviced at instruction boundaries.
// A halted or waiting core spends the slice idle.
func (c *Core) Exec(cycles int32) (int32, error) {
	if c.status&StatusRunning != 0 {
		return 0, ErrReentrantExec
	}
	if c.status&StatusDisabled != 0 {
		return 0, nil
	}
	if c.executor == nil {
		return 0, ErrNoExecutor
	}

	c.status |= StatusRunning
	c.cycleToDo = cycles
	c.cycleIO = cycles
	c.cycleSup = 0

	var err error
	for {
		c.checkInterrupt()
		if c.status&(StatusHalted|StatusWaiting) != 0 {
			c.cycleIO += c.cycleSup
			c.cycleSup = 0
			if c.cycleIO > 0 {
				c.cycleIO = 0
			}
			break
		}

		for c.cycleIO > 0 && c.status&(StatusHalted|StatusWaiting) == 0 {
			pc := c.PC()
			n, stepErr := c.executor.Step(c)
			if stepErr != nil {
				err = fmt.Errorf("step at 0x%06X: %w", pc, stepErr)
				break
			}
			c.cycleIO -= n
		}
		if err != nil {
			c.cycleIO += c.cycleSup
			c.cycleSup = 0
			break
		}
		if c.status&(StatusHalted|StatusWaiting) != 0 {
			continue
		}

		if c.cycleSup == 0 {
			break
		}
		c.cycleIO += c.cycleSup
		c.cycleSup = 0
		if c.cycleIO <= 0 {
			c.checkInterrupt()
			break
		}
	}

	done := c.cycleToDo - c.cycleIO
	c.cycles += uint64(done)
	c.cycleToDo, c.cycleIO = 0, 0
	c.status &^= StatusRunning
	return done, err
}
