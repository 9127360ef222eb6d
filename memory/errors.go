package memory

import (
	"errors"
	"fmt"
)

// ErrUnmapped is wrapped by every access to an address no region decodes.
var ErrUnmapped = errors.New("unmapped address")

// ErrTooLarge is returned when an image does not fit its region.
var ErrTooLarge = errors.New("image too large for region")

// AccessError describes a failed bus access.
type AccessError struct {
	Addr  uint32
	Width int
	Write bool
}

func (e *AccessError) Error() string {
	kind := "read"
	if e.Write {
		kind = "write"
	}
	return fmt.Sprintf("%v%d at 0x%08X: %v", kind, 8*e.Width, e.Addr, ErrUnmapped)
}

// Unwrap returns ErrUnmapped.
func (e *AccessError) Unwrap() error {
	return ErrUnmapped
}
