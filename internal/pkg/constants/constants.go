// Package constants provides shared constants used across lexfst components.
package constants

import "time"

// Shutdown and reload timing
const (
	// GracefulShutdownTimeout is the time the lookup server gets to drain
	// in-flight requests
	GracefulShutdownTimeout = 5 * time.Second

	// ReadHeaderTimeout bounds how long a client may take to send headers
	ReadHeaderTimeout = 5 * time.Second

	// ReloadDebounce coalesces bursts of file events into one reload
	ReloadDebounce = 250 * time.Millisecond

	// ReloadPollInterval is the fallback check interval when file
	// notifications are unavailable
	ReloadPollInterval = 2 * time.Second
)

// Channel buffer sizes
const (
	// SignalChannelBuffer is the buffer size for OS signal channels
	SignalChannelBuffer = 1

	// ReloadChannelBuffer is the buffer size for pending reload requests.
	// One pending request is enough since a reload always reads the latest file.
	ReloadChannelBuffer = 1
)

// Input limits
const (
	// MaxDictionaryLineSize is the longest TSV line accepted by default (16MB)
	MaxDictionaryLineSize = 16 * 1024 * 1024

	// MaxQueryLength is the longest key accepted by the lookup server
	MaxQueryLength = 64 * 1024
)

// Defaults
const (
	// DefaultListenAddr is the lookup server's default address
	DefaultListenAddr = ":8080"

	// FileExtension is the conventional extension of compiled dictionaries
	FileExtension = ".fst"
)
