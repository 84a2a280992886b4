package sigtest

import "errors"

var (
	// ErrHookName indicates a hook table was created without a name.
	ErrHookName = errors.New("sigtest: hook table name cannot be empty")

	// ErrNilHooks indicates a nil hook table was registered.
	ErrNilHooks = errors.New("sigtest: hook table is nil")
)
