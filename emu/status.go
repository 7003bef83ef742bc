// Package emu provides the 68000 interpreter control plane.
package emu

// Status register bits.
const (
	// SRCarry is the carry flag (C).
	SRCarry uint16 = 1 << 0
	// SROverflow is the overflow flag (V).
	SROverflow uint16 = 1 << 1
	// SRZero is the zero flag (Z).
	SRZero uint16 = 1 << 2
	// SRNegative is the negative flag (N).
	SRNegative uint16 = 1 << 3
	// SRExtend is the extend flag (X).
	SRExtend uint16 = 1 << 4
	// SRSupervisor is the supervisor state bit (S).
	SRSupervisor uint16 = 1 << 13

	// SRMaskShift is the position of the 3-bit interrupt mask.
	SRMaskShift = 8
	// SRInterruptMask covers interrupt mask bits I0-I2.
	SRInterruptMask uint16 = 7 << SRMaskShift

	// CCRMask covers the five condition code bits.
	CCRMask uint16 = 0x1F
	// SRMask covers every bit the codec preserves.
	SRMask = CCRMask | SRInterruptMask | SRSupervisor
)

// Flags is the unpacked form of the status register.
type Flags struct {
	// C is the carry flag.
	C bool
	// V is the overflow flag.
	V bool
	// Z is the zero flag.
	Z bool
	// N is the negative flag.
	N bool
	// X is the extend flag.
	X bool
	// Mask is the interrupt priority mask (0-7).
	Mask uint8
	// Supervisor is true in supervisor state.
	Supervisor bool
}

// DecodeSR unpacks a status register word. Reserved bits are ignored.
func DecodeSR(sr uint16) Flags {
	return Flags{
		C:          sr&SRCarry != 0,
		V:          sr&SROverflow != 0,
		Z:          sr&SRZero != 0,
		N:          sr&SRNegative != 0,
		X:          sr&SRExtend != 0,
		Mask:       uint8(sr>>SRMaskShift) & 7,
		Supervisor: sr&SRSupervisor != 0,
	}
}

// Encode packs the flags into a status register word. Reserved bits are zero.
func (f Flags) Encode() uint16 {
	sr := uint16(f.Mask&7) << SRMaskShift
	sr |= uint16(f.CCR())
	if f.Supervisor {
		sr |= SRSupervisor
	}
	return sr
}

// CCR returns the condition code register (the low five bits of SR).
func (f Flags) CCR() uint8 {
	var ccr uint8
	if f.C {
		ccr |= uint8(SRCarry)
	}
	if f.V {
		ccr |= uint8(SROverflow)
	}
	if f.Z {
		ccr |= uint8(SRZero)
	}
	if f.N {
		ccr |= uint8(SRNegative)
	}
	if f.X {
		ccr |= uint8(SRExtend)
	}
	return ccr
}

// WithCCR returns a copy of f with the condition codes replaced by ccr.
// The system byte is left untouched.
func (f Flags) WithCCR(ccr uint8) Flags {
	sys := f.Encode() &^ CCRMask
	return DecodeSR(sys | uint16(ccr)&CCRMask)
}

// Condition is a 4-bit 68000 condition code as found in Bcc, Scc and DBcc.
type Condition uint8

// Condition codes.
const (
	CondT  Condition = 0x0 // true
	CondF  Condition = 0x1 // false
	CondHI Condition = 0x2 // high
	CondLS Condition = 0x3 // low or same
	CondCC Condition = 0x4 // carry clear
	CondCS Condition = 0x5 // carry set
	CondNE Condition = 0x6 // not equal
	CondEQ Condition = 0x7 // equal
	CondVC Condition = 0x8 // overflow clear
	CondVS Condition = 0x9 // overflow set
	CondPL Condition = 0xA // plus
	CondMI Condition = 0xB // minus
	CondGE Condition = 0xC // greater or equal
	CondLT Condition = 0xD // less than
	CondGT Condition = 0xE // greater than
	CondLE Condition = 0xF // less or equal
)

// Test evaluates a condition code against the flags.
// Only the low four bits of cond are used.
func (f Flags) Test(cond Condition) bool {
	switch cond & 0xF {
	case CondT:
		return true
	case CondF:
		return false
	case CondHI:
		return !f.C && !f.Z
	case CondLS:
		return f.C || f.Z
	case CondCC:
		return !f.C
	case CondCS:
		return f.C
	case CondNE:
		return !f.Z
	case CondEQ:
		return f.Z
	case CondVC:
		return !f.V
	case CondVS:
		return f.V
	case CondPL:
		return !f.N
	case CondMI:
		return f.N
	case CondGE:
		return f.N == f.V
	case CondLT:
		return f.N != f.V
	case CondGT:
		return !f.Z && f.N == f.V
	default: // CondLE
		return f.Z || f.N != f.V
	}
}
