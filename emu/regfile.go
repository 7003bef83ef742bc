// Package emu provides the 68000 interpreter control plane.
package emu

import (
	"fmt"
	"strings"
)

// RegFile represents the 68000 register file.
// It contains eight data registers, seven address registers and the two
// stack pointers. A7 is not stored separately: it selects the supervisor
// or user stack pointer according to the S flag.
type RegFile struct {
	d [8]uint32
	a [7]uint32

	ssp uint32
	usp uint32

	flags Flags
}

func checkIndex(kind string, n int) {
	if n < 0 || n > 7 {
		panic(&RegisterIndexError{Kind: kind, Index: n})
	}
}

// D reads data register n.
func (r *RegFile) D(n int) uint32 {
	checkIndex("D", n)
	return r.d[n]
}

// SetD writes data register n.
func (r *RegFile) SetD(n int, value uint32) {
	checkIndex("D", n)
	r.d[n] = value
}

// A reads address register n. A(7) is the active stack pointer.
func (r *RegFile) A(n int) uint32 {
	checkIndex("A", n)
	if n == 7 {
		return *r.activeSP()
	}
	return r.a[n]
}

// SetA writes address register n. SetA(7, v) writes the active stack pointer.
func (r *RegFile) SetA(n int, value uint32) {
	checkIndex("A", n)
	if n == 7 {
		*r.activeSP() = value
		return
	}
	r.a[n] = value
}

func (r *RegFile) activeSP() *uint32 {
	if r.flags.Supervisor {
		return &r.ssp
	}
	return &r.usp
}

// USP reads the user stack pointer, whichever mode is active.
func (r *RegFile) USP() uint32 {
	return r.usp
}

// SetUSP writes the user stack pointer. In supervisor mode the active
// stack pointer is not affected.
func (r *RegFile) SetUSP(value uint32) {
	r.usp = value
}

// SSP reads the supervisor stack pointer, whichever mode is active.
func (r *RegFile) SSP() uint32 {
	return r.ssp
}

// SetSSP writes the supervisor stack pointer. In user mode the active
// stack pointer is not affected.
func (r *RegFile) SetSSP(value uint32) {
	r.ssp = value
}

// SR returns the packed status register.
func (r *RegFile) SR() uint16 {
	return r.flags.Encode()
}

// SetSR loads the status register from its packed form. Changing the S bit
// switches which stack pointer A7 refers to.
func (r *RegFile) SetSR(sr uint16) {
	r.flags = DecodeSR(sr)
}

// Flags returns the unpacked status register.
func (r *RegFile) Flags() Flags {
	return r.flags
}

// SetFlags replaces the unpacked status register.
func (r *RegFile) SetFlags(f Flags) {
	f.Mask &= 7
	r.flags = f
}

// Supervisor reports whether the CPU is in supervisor state.
func (r *RegFile) Supervisor() bool {
	return r.flags.Supervisor
}

// Registers is a snapshot of the programmer-visible registers.
type Registers struct {
	D   [8]uint32
	A   [8]uint32
	USP uint32
	SSP uint32
	PC  uint32
	SR  uint16
}

// String formats the snapshot as a register dump.
func (r Registers) String() string {
	var sb strings.Builder
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&sb, "D%d=%08X  A%d=%08X\n", i, r.D[i], i, r.A[i])
	}
	f := DecodeSR(r.SR)
	fmt.Fprintf(&sb, "PC=%08X  SR=%04X  USP=%08X  SSP=%08X\n", r.PC, r.SR, r.USP, r.SSP)
	fmt.Fprintf(&sb, "X=%d N=%d Z=%d V=%d C=%d  I=%d S=%d\n",
		b2i(f.X), b2i(f.N), b2i(f.Z), b2i(f.V), b2i(f.C), f.Mask, b2i(f.Supervisor))
	return sb.String()
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (r *RegFile) snapshot() Registers {
	regs := Registers{
		D:   r.d,
		USP: r.usp,
		SSP: r.ssp,
		SR:  r.SR(),
	}
	copy(regs.A[:7], r.a[:])
	regs.A[7] = *r.activeSP()
	return regs
}
