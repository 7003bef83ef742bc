package main

import (
	"github.com/sarchlab/m68kcore/emu"
)

// Opcode words the probe gives meaning to. Everything else is skipped as a
// single-word instruction.
const (
	opReset = 0x4E70
	opNop   = 0x4E71
	opStop  = 0x4E72
	opRTE   = 0x4E73
	opBra   = 0x6000
)

// probe is a minimal executor that walks the instruction stream through the
// fetch table. It understands just enough control flow to run vector tables
// and idle loops: NOP, STOP, RESET, RTE and short BRA.
type probe struct {
	costs        [1 << 16]int32
	instructions uint64
	prepared     bool
}

func (p *probe) Prepare(*emu.Core) {
	for op := range p.costs {
		p.costs[op] = 4
	}
	p.costs[opReset] = 132
	p.costs[opStop] = 4
	p.costs[opRTE] = 20
	for disp := 0; disp < 0x100; disp++ {
		p.costs[opBra|disp] = 10
	}
	p.prepared = true
}

func (p *probe) Step(c *emu.Core) (int32, error) {
	if !p.prepared {
		p.Prepare(c)
	}

	pc := c.PC()
	op, err := c.FetchWord()
	if err != nil {
		return 0, err
	}
	p.instructions++
	cost := p.costs[op]

	switch {
	case op == opNop:
	case op == opReset:
		c.ResetDevices()
	case op == opStop:
		imm, err := c.FetchWord()
		if err != nil {
			return 0, err
		}
		c.SetSR(imm)
		c.Wait()
	case op == opRTE:
		sp := c.SSP()
		sr := c.Read16(sp)
		ret := c.Read32(sp + 2)
		c.SetSSP(sp + 6)
		c.SetSR(sr)
		c.SetPC(ret)
	case op&0xFF00 == opBra:
		disp := int32(int8(op))
		if disp == 0 {
			ext, err := c.FetchWord()
			if err != nil {
				return 0, err
			}
			disp = int32(int16(ext))
		}
		c.SetPC(uint32(int32(pc+2) + disp))
	}

	return cost, nil
}
