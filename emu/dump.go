// Package emu provides functional ARM7TDMI emulation.
package emu

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sarchlab/gbasim/bitfield"
)

// DumpRegisters renders the visible registers, the CPSR and, in modes that
// have one, the SPSR as a table.
func (e *Emulator) DumpRegisters(w io.Writer) error {
	mode, err := DecodeMode(bitfield.Bits(uint32(e.regFile.CPSR), 0, psrModeEnd))
	if err != nil {
		return fmt.Errorf("cannot dump registers: %w", err)
	}

	regTable := table.NewWriter()
	regTable.SetTitle(fmt.Sprintf("Registers (%v, %v)", mode, e.regFile.CPSR.State()))
	regTable.AppendHeader(table.Row{"Row", "R0/R4/R8/R12", "R1/R5/R9/SP", "R2/R6/R10/LR", "R3/R7/R11/PC"})

	for row := 0; row < 4; row++ {
		regRow := table.Row{fmt.Sprintf("Row%d", row)}
		for col := 0; col < 4; col++ {
			reg := uint8(row*4 + col)
			regRow = append(regRow, fmt.Sprintf("%08X", e.regFile.Read(reg, mode)))
		}
		regTable.AppendRow(regRow)
	}

	psrTable := table.NewWriter()
	psrTable.SetTitle("Status")
	psrTable.AppendHeader(table.Row{"Register", "Value", "Decoded"})
	psrTable.AppendRow(table.Row{"CPSR", fmt.Sprintf("%08X", uint32(e.regFile.CPSR)), e.regFile.CPSR})
	if mode.HasSPSR() {
		spsr := e.regFile.SPSR(mode)
		psrTable.AppendRow(table.Row{"SPSR", fmt.Sprintf("%08X", uint32(spsr)), spsr})
	}

	if _, err := fmt.Fprintln(w, regTable.Render()); err != nil {
		return fmt.Errorf("failed to write register table: %w", err)
	}
	if _, err := fmt.Fprintln(w, psrTable.Render()); err != nil {
		return fmt.Errorf("failed to write status table: %w", err)
	}
	return nil
}
