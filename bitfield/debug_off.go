//go:build !debug

package bitfield

const checked = false
