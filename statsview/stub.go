//go:build !statsview

package statsview

import "io"

// Address is where the stats server would listen.
const Address = ""

// Launch does nothing without the statsview build tag.
func Launch(_ io.Writer) {
}

// Stop does nothing without the statsview build tag.
func Stop() {
}

// Available returns false without the statsview build tag.
func Available() bool {
	return false
}
