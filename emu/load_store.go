// Package emu provides functional ARM7TDMI emulation.
package emu

import (
	"fmt"
	"math/bits"
)

// LoadStoreUnit performs data transfers through the bus, applying the
// ARM7TDMI alignment rules and charging each access to the step.
type LoadStoreUnit struct {
	regFile *RegFile
	bus     Bus
	counter *cycleCounter
}

// NewLoadStoreUnit creates a new LoadStoreUnit.
func NewLoadStoreUnit(regFile *RegFile, bus Bus, counter *cycleCounter) *LoadStoreUnit {
	return &LoadStoreUnit{regFile: regFile, bus: bus, counter: counter}
}

// LoadWord reads the word containing addr. A misaligned address rotates the
// word right so that the addressed byte lands in bits 0-7.
func (l *LoadStoreUnit) LoadWord(addr uint32, sequential bool) (uint32, error) {
	aligned := addr &^ 3
	v, err := l.bus.Read32(aligned)
	l.counter.data(aligned, 4, sequential)
	if err != nil {
		return 0, fmt.Errorf("load word at 0x%08X: %w", addr, err)
	}
	return bits.RotateLeft32(v, -int(8*(addr&3))), nil
}

// LoadWordAligned reads the word at addr with the low bits ignored, as
// block transfers do.
func (l *LoadStoreUnit) LoadWordAligned(addr uint32, sequential bool) (uint32, error) {
	return l.LoadWord(addr&^3, sequential)
}

// LoadHalf reads an unsigned halfword. A misaligned address rotates the
// halfword right by 8 bits across the whole register.
func (l *LoadStoreUnit) LoadHalf(addr uint32) (uint32, error) {
	aligned := addr &^ 1
	v, err := l.bus.Read16(aligned)
	l.counter.data(aligned, 2, false)
	if err != nil {
		return 0, fmt.Errorf("load halfword at 0x%08X: %w", addr, err)
	}
	return bits.RotateLeft32(uint32(v), -int(8*(addr&1))), nil
}

// LoadSignedHalf reads a sign-extended halfword. A misaligned address loads
// a sign-extended byte instead.
func (l *LoadStoreUnit) LoadSignedHalf(addr uint32) (uint32, error) {
	if addr&1 == 1 {
		return l.LoadSignedByte(addr)
	}
	v, err := l.bus.Read16(addr)
	l.counter.data(addr, 2, false)
	if err != nil {
		return 0, fmt.Errorf("load signed halfword at 0x%08X: %w", addr, err)
	}
	return uint32(int32(int16(v))), nil
}

// LoadByte reads a zero-extended byte.
func (l *LoadStoreUnit) LoadByte(addr uint32) (uint32, error) {
	v, err := l.bus.Read8(addr)
	l.counter.data(addr, 1, false)
	if err != nil {
		return 0, fmt.Errorf("load byte at 0x%08X: %w", addr, err)
	}
	return uint32(v), nil
}

// LoadSignedByte reads a sign-extended byte.
func (l *LoadStoreUnit) LoadSignedByte(addr uint32) (uint32, error) {
	v, err := l.LoadByte(addr)
	if err != nil {
		return 0, err
	}
	return uint32(int32(int8(v))), nil
}

// StoreWord writes a word to the word-aligned address containing addr.
func (l *LoadStoreUnit) StoreWord(addr, value uint32, sequential bool) error {
	aligned := addr &^ 3
	err := l.bus.Write32(aligned, value)
	l.counter.data(aligned, 4, sequential)
	if err != nil {
		return fmt.Errorf("store word at 0x%08X: %w", addr, err)
	}
	return nil
}

// StoreHalf writes the low halfword of value to the halfword-aligned
// address containing addr.
func (l *LoadStoreUnit) StoreHalf(addr, value uint32) error {
	aligned := addr &^ 1
	err := l.bus.Write16(aligned, uint16(value))
	l.counter.data(aligned, 2, false)
	if err != nil {
		return fmt.Errorf("store halfword at 0x%08X: %w", addr, err)
	}
	return nil
}

// StoreByte writes the low byte of value.
func (l *LoadStoreUnit) StoreByte(addr, value uint32) error {
	err := l.bus.Write8(addr, uint8(value))
	l.counter.data(addr, 1, false)
	if err != nil {
		return fmt.Errorf("store byte at 0x%08X: %w", addr, err)
	}
	return nil
}
