// Package lifecycle holds process-wide state flags read by the health handler.
package lifecycle

import "sync/atomic"

var (
	shuttingDown atomic.Bool
	dataReady    atomic.Bool
)

// SetShuttingDown sets the shutdown flag. Call when SIGTERM/SIGINT received.
func SetShuttingDown(v bool) {
	shuttingDown.Store(v)
}

// IsShuttingDown returns true if the process is draining and should not receive new traffic.
func IsShuttingDown() bool {
	return shuttingDown.Load()
}

// SetDataReady records whether the merged dataset has been loaded.
func SetDataReady(v bool) {
	dataReady.Store(v)
}

// IsDataReady reports whether the merged dataset has been loaded at least once.
func IsDataReady() bool {
	return dataReady.Load()
}
