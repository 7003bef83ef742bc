// Package bus provides a region-mapped system bus for hosting a 68000 core.
package bus

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/sarchlab/akita/v4/mem/mem"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/m68kcore/emu"
)

// AddrMask limits addresses to the 24-bit 68000 bus.
const AddrMask = 1<<24 - 1

var (
	// ErrOverlap is returned when a new region overlaps an existing one.
	ErrOverlap = errors.New("region overlaps an existing region")
	// ErrInvalidRegion is returned for empty, misplaced or unnamed regions.
	ErrInvalidRegion = errors.New("invalid region")
	// ErrUnmapped is returned when Load touches an address with no region.
	ErrUnmapped = errors.New("address not mapped")
)

// HookPosBusAccess is invoked on every access served by the bus.
var HookPosBusAccess = &sim.HookPos{Name: "BusAccess"}

// Kind selects the backing and behaviour of a region.
type Kind string

// Region kinds.
const (
	// KindROM is read-only, fetchable memory. CPU writes are discarded.
	KindROM Kind = "rom"
	// KindRAM is read-write, fetchable memory.
	KindRAM Kind = "ram"
	// KindStorage is read-write memory backed by an akita storage. It is
	// not fetchable.
	KindStorage Kind = "storage"
)

// Fetchable reports whether regions of kind k can be installed in a fetch
// table.
func (k Kind) Fetchable() bool {
	return k == KindROM || k == KindRAM
}

// Region is one contiguous window of the address space.
type Region struct {
	Name string
	Kind Kind
	Base uint32
	Size uint32

	data    []byte
	storage *mem.Storage
}

// End returns the last address covered by the region.
func (r *Region) End() uint32 {
	return r.Base + r.Size - 1
}

func (r *Region) contains(addr uint32) bool {
	return addr >= r.Base && addr-r.Base < r.Size
}

// Bytes returns the host memory of a ROM or RAM region, nil for storage.
func (r *Region) Bytes() []byte {
	return r.data
}

func (r *Region) read(off uint32) (uint8, error) {
	if r.storage == nil {
		return r.data[off], nil
	}
	b, err := r.storage.Read(uint64(off), 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Region) write(off uint32, v uint8) error {
	if r.storage == nil {
		r.data[off] = v
		return nil
	}
	return r.storage.Write(uint64(off), []byte{v})
}

// Access is the hook item for an access served by the bus.
type Access struct {
	Addr   uint32
	Size   int
	Value  uint32
	Write  bool
	Region string
}

// Stats counts bus traffic.
type Stats struct {
	Reads     uint64
	Writes    uint64
	Unmapped  uint64
	Discarded uint64
	Resets    uint64
}

// Bus routes CPU accesses to memory regions. It implements emu.Bus and
// emu.ResetObserver.
type Bus struct {
	*sim.HookableBase

	regions []*Region
	stats   Stats
	logger  *slog.Logger
}

// Option is a functional option for configuring the Bus.
type Option func(*Bus)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		HookableBase: &sim.HookableBase{},
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AddROM maps data read-only at base.
func (b *Bus) AddROM(name string, base uint32, data []byte) (*Region, error) {
	r := &Region{Name: name, Kind: KindROM, Base: base, Size: uint32(len(data)), data: data}
	return r, b.add(r)
}

// AddRAM maps size bytes of zeroed RAM at base.
func (b *Bus) AddRAM(name string, base, size uint32) (*Region, error) {
	r := &Region{Name: name, Kind: KindRAM, Base: base, Size: size, data: make([]byte, size)}
	return r, b.add(r)
}

// AddStorage maps size bytes backed by an akita storage at base.
func (b *Bus) AddStorage(name string, base, size uint32) (*Region, error) {
	r := &Region{
		Name:    name,
		Kind:    KindStorage,
		Base:    base,
		Size:    size,
		storage: mem.NewStorage(uint64(size)),
	}
	return r, b.add(r)
}

func (b *Bus) add(r *Region) error {
	if err := checkRegion(r.Name, r.Kind, r.Base, r.Size); err != nil {
		return err
	}
	for _, o := range b.regions {
		if o.Name == r.Name {
			return fmt.Errorf("%w: duplicate name %q", ErrInvalidRegion, r.Name)
		}
		if r.Base <= o.End() && o.Base <= r.End() {
			return fmt.Errorf("%w: %q [0x%06X-0x%06X] and %q [0x%06X-0x%06X]",
				ErrOverlap, r.Name, r.Base, r.End(), o.Name, o.Base, o.End())
		}
	}

	b.regions = append(b.regions, r)
	sort.Slice(b.regions, func(i, j int) bool {
		return b.regions[i].Base < b.regions[j].Base
	})

	b.logger.Debug("region mapped",
		"name", r.Name,
		"kind", string(r.Kind),
		"base", fmt.Sprintf("0x%06X", r.Base),
		"size", r.Size)
	return nil
}

func checkRegion(name string, kind Kind, base, size uint32) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidRegion)
	case kind != KindROM && kind != KindRAM && kind != KindStorage:
		return fmt.Errorf("%w: %q has unknown kind %q", ErrInvalidRegion, name, kind)
	case size == 0:
		return fmt.Errorf("%w: %q is empty", ErrInvalidRegion, name)
	case uint64(base)+uint64(size) > AddrMask+1:
		return fmt.Errorf("%w: %q extends past the 24-bit bus", ErrInvalidRegion, name)
	case kind.Fetchable() && base%emu.FetchBankSize != 0:
		return fmt.Errorf("%w: %q base 0x%06X is not aligned to a fetch bank",
			ErrInvalidRegion, name, base)
	}
	return nil
}

// Region returns the region called name.
func (b *Bus) Region(name string) (*Region, bool) {
	for _, r := range b.regions {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// Regions returns all regions ordered by base address.
func (b *Bus) Regions() []*Region {
	return append([]*Region(nil), b.regions...)
}

func (b *Bus) lookup(addr uint32) *Region {
	i := sort.Search(len(b.regions), func(i int) bool {
		return b.regions[i].End() >= addr
	})
	if i < len(b.regions) && b.regions[i].contains(addr) {
		return b.regions[i]
	}
	return nil
}

func (b *Bus) peek(addr uint32) (uint8, *Region) {
	addr &= AddrMask
	r := b.lookup(addr)
	if r == nil {
		b.stats.Unmapped++
		return 0, nil
	}
	v, err := r.read(addr - r.Base)
	if err != nil {
		b.logger.Warn("storage read failed", "region", r.Name, "err", err)
		return 0, r
	}
	return v, r
}

func (b *Bus) poke(addr uint32, v uint8) *Region {
	addr &= AddrMask
	r := b.lookup(addr)
	if r == nil {
		b.stats.Unmapped++
		return nil
	}
	if r.Kind == KindROM {
		b.stats.Discarded++
		return r
	}
	if err := r.write(addr-r.Base, v); err != nil {
		b.logger.Warn("storage write failed", "region", r.Name, "err", err)
	}
	return r
}

// Read8 reads a byte. Unmapped addresses read as zero.
func (b *Bus) Read8(addr uint32) uint8 {
	v, r := b.peek(addr)
	b.stats.Reads++
	b.trace(addr, 1, uint32(v), false, r)
	return v
}

// Read16 reads a big-endian word.
func (b *Bus) Read16(addr uint32) uint16 {
	hi, r := b.peek(addr)
	lo, _ := b.peek(addr + 1)
	v := uint16(hi)<<8 | uint16(lo)
	b.stats.Reads++
	b.trace(addr, 2, uint32(v), false, r)
	return v
}

// Write8 writes a byte. Writes to ROM or unmapped addresses are dropped.
func (b *Bus) Write8(addr uint32, value uint8) {
	r := b.poke(addr, value)
	b.stats.Writes++
	b.trace(addr, 1, uint32(value), true, r)
}

// Write16 writes a big-endian word.
func (b *Bus) Write16(addr uint32, value uint16) {
	r := b.poke(addr, uint8(value>>8))
	b.poke(addr+1, uint8(value))
	b.stats.Writes++
	b.trace(addr, 2, uint32(value), true, r)
}

func (b *Bus) trace(addr uint32, size int, value uint32, write bool, r *Region) {
	if b.NumHooks() == 0 {
		return
	}
	a := Access{Addr: addr & AddrMask, Size: size, Value: value, Write: write}
	if r != nil {
		a.Region = r.Name
	}
	b.InvokeHook(sim.HookCtx{Domain: b, Pos: HookPosBusAccess, Item: a})
}

// Load copies data to addr, ignoring ROM write protection. It is meant for
// placing program images before the core starts.
func (b *Bus) Load(addr uint32, data []byte) error {
	for i, v := range data {
		a := (addr + uint32(i)) & AddrMask
		r := b.lookup(a)
		if r == nil {
			return fmt.Errorf("%w: load at 0x%06X", ErrUnmapped, a)
		}
		if err := r.write(a-r.Base, v); err != nil {
			return fmt.Errorf("failed to load into %q: %w", r.Name, err)
		}
	}
	return nil
}

// MapFetch installs every ROM and RAM region in the fetch table of c.
func (b *Bus) MapFetch(c *emu.Core) error {
	for _, r := range b.regions {
		if !r.Kind.Fetchable() {
			continue
		}
		if err := c.MapFetchRange(r.Base, r.End(), r.data, 0); err != nil {
			return fmt.Errorf("failed to map %q for fetch: %w", r.Name, err)
		}
	}
	return nil
}

// Attach routes all memory slots and the reset line of c to the bus and
// installs its fetchable regions.
func (b *Bus) Attach(c *emu.Core) error {
	c.SetBus(b)
	c.SetResetCallback(b)
	return b.MapFetch(c)
}

// NotifyReset records an external reset. Memory contents are kept.
func (b *Bus) NotifyReset() {
	b.stats.Resets++
	b.logger.Debug("bus reset")
}

// Stats returns the traffic counters.
func (b *Bus) Stats() Stats {
	return b.stats
}

// ResetStats clears the traffic counters.
func (b *Bus) ResetStats() {
	b.stats = Stats{}
}
