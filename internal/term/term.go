// Package term answers whether an output stream is an interactive terminal.
package term

import "io"

type fder interface {
	Fd() uintptr
}

// IsTerminal reports whether w is backed by a terminal device.
// Writers without a file descriptor (buffers, pipes wrapped in other
// writers) are never terminals.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(fder)
	if !ok {
		return false
	}
	return isTerminal(f.Fd())
}
