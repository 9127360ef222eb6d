// Package emu provides functional ARM7TDMI emulation.
package emu

import (
	"errors"
	"fmt"
)

// InvariantViolation is the panic value raised when the core reaches a
// state that correct emulation cannot produce, or when a caller breaks the
// contract of a component. It is never returned as an error.
type InvariantViolation struct {
	What   string
	Detail string
}

func (v *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violated: %s: %s", v.What, v.Detail)
}

func violate(what, format string, args ...any) {
	panic(&InvariantViolation{What: what, Detail: fmt.Sprintf(format, args...)})
}

// ErrMaxInstructions is returned by Step once the instruction limit is hit.
var ErrMaxInstructions = errors.New("max instructions reached")

// ErrFatalFault wraps an InvariantViolation recovered by a driver, such as
// guest code writing an invalid mode into the CPSR.
var ErrFatalFault = errors.New("fatal emulation fault")

// RecoverFault converts an InvariantViolation panic into an error wrapping
// ErrFatalFault. It must be deferred directly. Other panics propagate.
func RecoverFault(err *error) {
	r := recover()
	if r == nil {
		return
	}

	v, ok := r.(*InvariantViolation)
	if !ok {
		panic(r)
	}
	*err = fmt.Errorf("%w: %w", ErrFatalFault, v)
}
