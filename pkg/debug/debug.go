// Package debug provides conditional diagnostic logging for bundlescope.
//
// Diagnostics are enabled by setting the BSC_DEBUG environment variable:
//
//	BSC_DEBUG=1 bsc stats.json
//
// When enabled, messages are written to stderr with timestamps. When
// disabled (default), all functions are no-ops with zero overhead.
//
// The store also routes its non-fatal usage reports here (unknown node
// IDs, nil listeners, swallowed persistence errors), so none of those
// conditions ever surface to the UI layer.
package debug

import (
	"log"
	"os"
	"time"
)

var (
	// enabled is true when BSC_DEBUG env var is set
	enabled bool
	// logger writes to stderr with [BSC_DEBUG] prefix
	logger *log.Logger
)

func init() {
	if os.Getenv("BSC_DEBUG") != "" {
		enabled = true
		logger = log.New(os.Stderr, "[BSC_DEBUG] ", log.Ltime|log.Lmicroseconds)
	}
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	return enabled
}

// SetEnabled allows programmatic control of debug logging.
func SetEnabled(e bool) {
	enabled = e
	if e && logger == nil {
		logger = log.New(os.Stderr, "[BSC_DEBUG] ", log.Ltime|log.Lmicroseconds)
	}
}

// Log writes a debug message if debug logging is enabled.
// Uses printf-style formatting.
func Log(format string, args ...any) {
	if !enabled {
		return
	}
	logger.Printf(format, args...)
}

// LogTiming writes a timing message if debug logging is enabled.
func LogTiming(name string, d time.Duration) {
	if !enabled {
		return
	}
	logger.Printf("%s took %v", name, d)
}

// Usage reports a non-fatal caller mistake. It logs like Log but is kept
// separate so usage reports are greppable in debug output.
func Usage(format string, args ...any) {
	if !enabled {
		return
	}
	logger.Printf("usage: "+format, args...)
}
