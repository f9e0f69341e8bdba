package kit

import "errors"

var (
	// ErrStartupTimeout is the cause recorded when storage, connectivity and the setup
	// completed hook together exceed the startup timeout.
	ErrStartupTimeout = errors.New("startup timeout exceeded")
	// ErrSyncTimeout is the cause recorded when blocking startup gives up waiting for
	// synchronization.
	ErrSyncTimeout = errors.New("synchronization timeout exceeded")
)
