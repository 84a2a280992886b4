package reporter

import "errors"

var (
	// ErrUnknownFormat indicates an unsupported output format name.
	ErrUnknownFormat = errors.New("reporter: unknown format")
)
