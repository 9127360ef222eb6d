// Package emu provides functional ARM7TDMI emulation.
package emu

// Register aliases.
const (
	RegSP uint8 = 13
	RegLR uint8 = 14
	RegPC uint8 = 15
)

// ResetCPSR is the CPSR after reset: Supervisor mode, ARM state, IRQ and
// FIQ masked.
const ResetCPSR Psr = 0xD3

// RegFile represents the ARM7TDMI register file.
//
// User and System mode share R0-R15. FIQ mode banks R8-R14. Supervisor,
// Abort, IRQ and Undefined banks only R13-R14. R15 is shared by all modes.
// Each mode except User and System has its own SPSR.
type RegFile struct {
	// usr holds R0-R15 as seen from User and System mode.
	usr [16]uint32

	// fiq holds R8_fiq-R14_fiq.
	fiq [7]uint32

	// svc, abt, irq and und hold R13 and R14 of their modes.
	svc [2]uint32
	abt [2]uint32
	irq [2]uint32
	und [2]uint32

	spsrFIQ Psr
	spsrSVC Psr
	spsrABT Psr
	spsrIRQ Psr
	spsrUND Psr

	// CPSR is the current program status register.
	CPSR Psr
}

// NewRegFile creates a register file in the reset state.
func NewRegFile() *RegFile {
	r := &RegFile{}
	r.Reset()
	return r
}

// Reset clears every register and sets CPSR to ResetCPSR.
func (r *RegFile) Reset() {
	*r = RegFile{CPSR: ResetCPSR}
}

// Mode returns the current processor mode.
func (r *RegFile) Mode() Mode {
	return r.CPSR.Mode()
}

// SwitchMode changes the current mode. The outgoing mode's banked registers
// are preserved and the incoming mode's bank becomes visible.
func (r *RegFile) SwitchMode(m Mode) {
	if _, err := DecodeMode(uint32(m)); err != nil {
		violate("switch mode", "%v", err)
	}
	r.CPSR = r.CPSR.WithMode(m)
}

func (r *RegFile) slot(reg uint8, mode Mode) *uint32 {
	if reg > 15 {
		violate("register index", "r%d does not exist", reg)
	}

	switch {
	case reg < 8 || reg == RegPC:
		return &r.usr[reg]
	case mode == ModeFIQ:
		return &r.fiq[reg-8]
	case reg < 13:
		return &r.usr[reg]
	}

	switch mode {
	case ModeUser, ModeSystem:
		return &r.usr[reg]
	case ModeSupervisor:
		return &r.svc[reg-13]
	case ModeAbort:
		return &r.abt[reg-13]
	case ModeIRQ:
		return &r.irq[reg-13]
	case ModeUndefined:
		return &r.und[reg-13]
	default:
		violate("register bank", "no bank for mode %v", mode)
		return nil
	}
}

// Read reads a register as seen from the given mode.
func (r *RegFile) Read(reg uint8, mode Mode) uint32 {
	return *r.slot(reg, mode)
}

// Write writes a register as seen from the given mode. Writes to R15 are
// forced to the alignment of the current state.
func (r *RegFile) Write(reg uint8, value uint32, mode Mode) {
	if reg == RegPC {
		r.SetPC(value)
		return
	}
	*r.slot(reg, mode) = value
}

// ReadReg reads a register in the current mode.
func (r *RegFile) ReadReg(reg uint8) uint32 {
	return r.Read(reg, r.Mode())
}

// WriteReg writes a register in the current mode.
func (r *RegFile) WriteReg(reg uint8, value uint32) {
	r.Write(reg, value, r.Mode())
}

// PC returns R15.
func (r *RegFile) PC() uint32 {
	return r.usr[RegPC]
}

// SetPC writes R15, clearing bit 0 in THUMB state and bits 0-1 in ARM state.
func (r *RegFile) SetPC(value uint32) {
	if r.CPSR.State() == StateThumb {
		r.usr[RegPC] = value &^ 1
	} else {
		r.usr[RegPC] = value &^ 3
	}
}

func (r *RegFile) spsrSlot(mode Mode) *Psr {
	switch mode {
	case ModeFIQ:
		return &r.spsrFIQ
	case ModeSupervisor:
		return &r.spsrSVC
	case ModeAbort:
		return &r.spsrABT
	case ModeIRQ:
		return &r.spsrIRQ
	case ModeUndefined:
		return &r.spsrUND
	default:
		violate("spsr access", "mode %v has no SPSR", mode)
		return nil
	}
}

// SPSR returns the saved PSR of the given mode. User and System mode have
// no SPSR and panic with an InvariantViolation.
func (r *RegFile) SPSR(mode Mode) Psr {
	return *r.spsrSlot(mode)
}

// SetSPSR writes the saved PSR of the given mode. User and System mode have
// no SPSR and panic with an InvariantViolation.
func (r *RegFile) SetSPSR(mode Mode, value Psr) {
	*r.spsrSlot(mode) = value
}

// CurrentSPSR returns the SPSR of the current mode.
func (r *RegFile) CurrentSPSR() Psr {
	return r.SPSR(r.Mode())
}

// SetCurrentSPSR writes the SPSR of the current mode.
func (r *RegFile) SetCurrentSPSR(value Psr) {
	r.SetSPSR(r.Mode(), value)
}
