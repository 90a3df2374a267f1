package rslimiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ResourceLimiter periodically samples resource usage for long-running
// commands, warns when the heap nears its limit and reports exceeded limits
// through a callback.
type ResourceLimiter struct {
	config     ResourceLimiterConfig
	logger     zerolog.Logger
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
	isRunning  bool
	onExceeded func(reason string)
}

// NewResourceLimiter creates a new resource limiter
func NewResourceLimiter(config ResourceLimiterConfig, logger zerolog.Logger) *ResourceLimiter {
	defaults := DefaultResourceLimiterConfig()
	if config.CheckInterval <= 0 {
		config.CheckInterval = defaults.CheckInterval
	}
	if config.MemoryThreshold <= 0 {
		config.MemoryThreshold = defaults.MemoryThreshold
	}
	if config.SystemMemThreshold <= 0 {
		config.SystemMemThreshold = defaults.SystemMemThreshold
	}

	return &ResourceLimiter{
		config: config,
		logger: logger.With().Str("component", "ResourceLimiter").Logger(),
	}
}

// SetExceededCallback sets the function called when auto shutdown is enabled
// and a limit is crossed
func (rl *ResourceLimiter) SetExceededCallback(callback func(reason string)) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.onExceeded = callback
}

// Start begins monitoring resource usage
func (rl *ResourceLimiter) Start() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.isRunning {
		return
	}
	rl.isRunning = true

	ctx, cancel := context.WithCancel(context.Background())
	rl.cancel = cancel
	rl.wg.Add(1)
	go rl.monitor(ctx)

	rl.logger.Debug().
		Int64("max_memory_mb", rl.config.MaxMemoryMB).
		Int("max_goroutines", rl.config.MaxGoroutines).
		Dur("check_interval", rl.config.CheckInterval).
		Msg("Resource limiter started")
}

// Stop stops the resource monitor
func (rl *ResourceLimiter) Stop() {
	rl.mu.Lock()
	if !rl.isRunning {
		rl.mu.Unlock()
		return
	}
	rl.isRunning = false
	cancel := rl.cancel
	rl.mu.Unlock()

	cancel()
	rl.wg.Wait()
}

// IsRunning reports whether the monitor loop is active
func (rl *ResourceLimiter) IsRunning() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.isRunning
}

// Check returns a description of the first exceeded limit in usage, or ""
func (rl *ResourceLimiter) Check(usage ResourceUsage) string {
	if rl.config.MaxMemoryMB > 0 && usage.AllocMB > rl.config.MaxMemoryMB {
		return fmt.Sprintf("application memory %dMB exceeds limit %dMB", usage.AllocMB, rl.config.MaxMemoryMB)
	}
	if rl.config.MaxGoroutines > 0 && usage.Goroutines > rl.config.MaxGoroutines {
		return fmt.Sprintf("goroutines %d exceed limit %d", usage.Goroutines, rl.config.MaxGoroutines)
	}
	if usage.SystemMemUsedPercent/100.0 > rl.config.SystemMemThreshold {
		return fmt.Sprintf("system memory %.1f%% exceeds threshold %.1f%%", usage.SystemMemUsedPercent, rl.config.SystemMemThreshold*100)
	}
	return ""
}

func (rl *ResourceLimiter) monitor(ctx context.Context) {
	defer rl.wg.Done()

	ticker := time.NewTicker(rl.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evaluate(GetResourceUsage())
		}
	}
}

func (rl *ResourceLimiter) evaluate(usage ResourceUsage) {
	warnAt := int64(float64(rl.config.MaxMemoryMB) * rl.config.MemoryThreshold)
	if rl.config.MaxMemoryMB > 0 && usage.AllocMB > warnAt {
		rl.logger.Warn().
			Int64("current_mb", usage.AllocMB).
			Int64("threshold_mb", warnAt).
			Msg("Memory usage approaching limit")
	}

	reason := rl.Check(usage)
	if reason == "" {
		rl.logger.Debug().Object("resources", usage).Msg("Current resource usage")
		return
	}

	rl.logger.Error().Str("reason", reason).Object("resources", usage).Msg("Resource limit exceeded")
	if !rl.config.EnableAutoShutdown {
		return
	}

	rl.mu.Lock()
	callback := rl.onExceeded
	rl.mu.Unlock()
	if callback != nil {
		callback(reason)
	}
}
