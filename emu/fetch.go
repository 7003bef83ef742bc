// Package emu provides the 68000 interpreter control plane.
package emu

import "fmt"

// Fetch table geometry. The 24-bit address bus is split into FetchBanks
// banks of FetchBankSize bytes; address bits above the bus are mirrors.
const (
	FetchBits     = 8
	FetchShift    = 24 - FetchBits
	FetchBanks    = 1 << FetchBits
	FetchMask     = FetchBanks - 1
	FetchBankSize = 1 << FetchShift
)

// fetchEntry maps one bank to host memory. Host index = base + address.
type fetchEntry struct {
	mem    []byte
	base   int64
	mapped bool
}

// FetchTable translates logical addresses to indices into host memory
// regions for the instruction fetch path.
type FetchTable struct {
	banks [FetchBanks]fetchEntry
}

func bankOf(addr uint32) int {
	return int(addr>>FetchShift) & FetchMask
}

// Map installs host memory for every bank covering [low, high]. hostOffset
// is the index in mem of the first byte of low's bank.
func (t *FetchTable) Map(low, high uint32, mem []byte, hostOffset int) error {
	if low > high {
		return fmt.Errorf("%w: low 0x%X above high 0x%X", ErrInvalidRange, low, high)
	}
	if hostOffset < 0 || hostOffset >= len(mem) {
		return fmt.Errorf("%w: host offset %d outside region of %d bytes",
			ErrInvalidRange, hostOffset, len(mem))
	}

	i := bankOf(low)
	j := bankOf(high)
	base := int64(hostOffset) - int64(i)<<FetchShift
	for ; i <= j; i++ {
		t.banks[i] = fetchEntry{mem: mem, base: base, mapped: true}
	}
	return nil
}

// Unmap removes the mapping of every bank covering [low, high].
func (t *FetchTable) Unmap(low, high uint32) {
	for i := bankOf(low); i <= bankOf(high); i++ {
		t.banks[i] = fetchEntry{}
	}
}

// Mapped reports whether the bank containing addr is mapped.
func (t *FetchTable) Mapped(addr uint32) bool {
	return t.banks[bankOf(addr)].mapped
}

// Resolve returns the host index of addr.
func (t *FetchTable) Resolve(addr uint32) (int, error) {
	e := &t.banks[bankOf(addr)]
	if !e.mapped {
		return 0, &FetchError{Addr: addr, Err: ErrUnmappedFetch}
	}
	return int(e.base + int64(addr&busMask)), nil
}

// Word reads a big-endian word at addr from host memory.
func (t *FetchTable) Word(addr uint32) (uint16, error) {
	e := &t.banks[bankOf(addr)]
	return e.word(addr)
}

const busMask = 1<<24 - 1

func (e *fetchEntry) word(addr uint32) (uint16, error) {
	if !e.mapped {
		return 0, &FetchError{Addr: addr, Err: ErrUnmappedFetch}
	}
	idx := e.base + int64(addr&busMask)
	if idx < 0 || idx+1 >= int64(len(e.mem)) {
		return 0, &FetchError{
			Addr: addr,
			Err:  fmt.Errorf("%w: host index %d outside region", ErrUnmappedFetch, idx),
		}
	}
	return uint16(e.mem[idx])<<8 | uint16(e.mem[idx+1]), nil
}

// MapFetchRange installs host memory for instruction fetch over [low, high].
func (c *Core) MapFetchRange(low, high uint32, mem []byte, hostOffset int) error {
	if err := c.fetch.Map(low, high, mem, hostOffset); err != nil {
		return err
	}
	c.logger.Debug("fetch range mapped",
		"low", fmt.Sprintf("0x%06X", low),
		"high", fmt.Sprintf("0x%06X", high),
		"size", len(mem))
	if bankOf(c.PC()) >= bankOf(low) && bankOf(c.PC()) <= bankOf(high) {
		c.SetPC(c.PC())
	}
	return nil
}

// UnmapFetchRange removes fetch mappings over [low, high].
func (c *Core) UnmapFetchRange(low, high uint32) {
	pc := c.PC()
	c.fetch.Unmap(low, high)
	if bankOf(pc) >= bankOf(low) && bankOf(pc) <= bankOf(high) {
		c.SetPC(pc)
	}
}

// FetchTable exposes the core's fetch table.
func (c *Core) FetchTable() *FetchTable {
	return &c.fetch
}

// SetPC sets the program counter to a logical address and loads the bank
// base from the fetch table. Unmapped banks are allowed here; fetching from
// them fails.
func (c *Core) SetPC(addr uint32) {
	c.pcBank = &c.fetch.banks[bankOf(addr)]
	c.basePC = c.pcBank.base
	c.pc = c.basePC + int64(addr)
}

// PC returns the logical program counter.
func (c *Core) PC() uint32 {
	return uint32(c.pc - c.basePC)
}

// FetchWord reads the word at the program counter and advances it by two.
// On failure the program counter is left unchanged.
func (c *Core) FetchWord() (uint16, error) {
	addr := c.PC()
	w, err := c.pcBank.word(addr)
	if err != nil {
		c.logger.Warn("instruction fetch fault", "pc", fmt.Sprintf("0x%06X", addr))
		return 0, err
	}
	c.advancePC(addr + 2)
	return w, nil
}

// FetchLong reads the long word at the program counter and advances it by
// four.
func (c *Core) FetchLong() (uint32, error) {
	pc := c.PC()
	hi, err := c.FetchWord()
	if err != nil {
		return 0, err
	}
	lo, err := c.FetchWord()
	if err != nil {
		c.SetPC(pc)
		return 0, err
	}
	return uint32(hi)<<16 | uint32(lo), nil
}

// PeekWord reads the word at PC+offset without moving the program counter.
func (c *Core) PeekWord(offset int32) (uint16, error) {
	return c.fetch.Word(uint32(int32(c.PC()) + offset))
}

func (c *Core) advancePC(next uint32) {
	if next&(FetchBankSize-1) == 0 {
		c.SetPC(next)
		return
	}
	c.pc = c.basePC + int64(next)
}
