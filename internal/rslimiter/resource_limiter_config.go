package rslimiter

import "time"

// ResourceLimiterConfig holds configuration for the resource limiter
type ResourceLimiterConfig struct {
	MaxMemoryMB        int64         // Application heap limit in MB
	MaxGoroutines      int           // Maximum number of goroutines
	CheckInterval      time.Duration // How often to check resource usage
	MemoryThreshold    float64       // Fraction of MaxMemoryMB that triggers a warning
	SystemMemThreshold float64       // Fraction of host memory that counts as exceeded
	EnableAutoShutdown bool          // Invoke the exceeded callback when a limit is crossed
}

// DefaultResourceLimiterConfig returns default configuration
func DefaultResourceLimiterConfig() ResourceLimiterConfig {
	return ResourceLimiterConfig{
		MaxMemoryMB:        2048,
		MaxGoroutines:      10000,
		CheckInterval:      30 * time.Second,
		MemoryThreshold:    0.8,
		SystemMemThreshold: 0.95,
		EnableAutoShutdown: false,
	}
}
