//go:build !windows

package signals

import (
	"os"
	"syscall"
)

var (
	shutdownSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	reloadSignals   = []os.Signal{syscall.SIGHUP}
)
