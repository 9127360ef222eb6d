//go:build debug

package bitfield

const checked = true
