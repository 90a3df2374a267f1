package differ

import "time"

// DiffConfig holds configuration for line diffing
type DiffConfig struct {
	// DiffTimeout bounds the edit script search. Zero searches until the
	// script is minimal.
	DiffTimeout time.Duration
}

// DefaultDiffConfig returns default configuration
func DefaultDiffConfig() DiffConfig {
	return DiffConfig{
		DiffTimeout: 0,
	}
}
