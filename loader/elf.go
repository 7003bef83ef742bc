// Package loader provides program image loading for 68000 hosts.
package loader

import (
	"debug/elf"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// DefaultStackTop is the initial supervisor stack pointer used when the
// image carries no vector table. The first push lands at the top of the
// 24-bit bus.
const DefaultStackTop = 0x01000000

// VectorTableSize is the size of the reset vector: initial SSP and PC.
const VectorTableSize = 8

// Segment represents a loadable segment of a program image.
type Segment struct {
	// Addr is the bus address where this segment should be loaded.
	Addr uint32
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data) for BSS).
	MemSize uint32
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Program represents a loaded program image ready to be placed on a bus.
type Program struct {
	// EntryPoint is the address where execution should begin.
	EntryPoint uint32
	// Segments contains all loadable segments of the image.
	Segments []Segment
	// InitialSP is the initial supervisor stack pointer.
	InitialSP uint32
}

// Writer accepts image bytes at bus addresses.
type Writer interface {
	Load(addr uint32, data []byte) error
}

// Load parses a 68000 ELF32 big-endian executable.
func Load(path string) (*Program, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.Class != elf.ELFCLASS32 {
		return nil, fmt.Errorf("not a 32-bit ELF file")
	}
	if f.Data != elf.ELFDATA2MSB {
		return nil, fmt.Errorf("not a big-endian ELF file")
	}
	if f.Machine != elf.EM_68K {
		return nil, fmt.Errorf("not a 68000 ELF file (machine type: %v)", f.Machine)
	}

	prog := &Program{
		EntryPoint: uint32(f.Entry),
		InitialSP:  DefaultStackTop,
	}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		data := make([]byte, phdr.Filesz)
		if phdr.Filesz > 0 {
			n, err := phdr.ReadAt(data, 0)
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Paddr, err)
			}
			if uint64(n) != phdr.Filesz {
				return nil, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
					phdr.Paddr, n, phdr.Filesz)
			}
		}

		var flags SegmentFlags
		if phdr.Flags&elf.PF_X != 0 {
			flags |= SegmentFlagExecute
		}
		if phdr.Flags&elf.PF_W != 0 {
			flags |= SegmentFlagWrite
		}
		if phdr.Flags&elf.PF_R != 0 {
			flags |= SegmentFlagRead
		}

		// Bare-metal images link at their load address.
		prog.Segments = append(prog.Segments, Segment{
			Addr:    uint32(phdr.Paddr),
			Data:    data,
			MemSize: uint32(phdr.Memsz),
			Flags:   flags,
		})
	}

	return prog, nil
}

// LoadRaw reads a flat binary to be placed at base. An image placed at 0
// starts with its own vector table, which provides the entry point and
// stack pointer.
func LoadRaw(path string, base uint32) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read raw image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("raw image %s is empty", path)
	}

	prog := &Program{
		EntryPoint: base,
		InitialSP:  DefaultStackTop,
		Segments: []Segment{{
			Addr:    base,
			Data:    data,
			MemSize: uint32(len(data)),
			Flags:   SegmentFlagRead | SegmentFlagWrite | SegmentFlagExecute,
		}},
	}

	if base == 0 && len(data) >= VectorTableSize {
		prog.InitialSP = binary.BigEndian.Uint32(data[0:4])
		prog.EntryPoint = binary.BigEndian.Uint32(data[4:8])
	}

	return prog, nil
}

// HasVectors reports whether a segment covers the reset vector.
func (p *Program) HasVectors() bool {
	for _, seg := range p.Segments {
		if seg.Addr == 0 && seg.MemSize >= VectorTableSize {
			return true
		}
	}
	return false
}

// LoadInto copies every segment to w and zero-fills BSS. If the image has no
// vector table, the reset vector is seeded with InitialSP and EntryPoint so
// that a core reset starts the program.
func (p *Program) LoadInto(w Writer) error {
	for _, seg := range p.Segments {
		if err := w.Load(seg.Addr, seg.Data); err != nil {
			return fmt.Errorf("failed to load segment at 0x%06X: %w", seg.Addr, err)
		}
		if seg.MemSize > uint32(len(seg.Data)) {
			bss := make([]byte, seg.MemSize-uint32(len(seg.Data)))
			if err := w.Load(seg.Addr+uint32(len(seg.Data)), bss); err != nil {
				return fmt.Errorf("failed to clear bss at 0x%06X: %w", seg.Addr, err)
			}
		}
	}

	if p.HasVectors() {
		return nil
	}

	vec := make([]byte, VectorTableSize)
	binary.BigEndian.PutUint32(vec[0:4], p.InitialSP)
	binary.BigEndian.PutUint32(vec[4:8], p.EntryPoint)
	if err := w.Load(0, vec); err != nil {
		return fmt.Errorf("failed to seed reset vector: %w", err)
	}
	return nil
}
