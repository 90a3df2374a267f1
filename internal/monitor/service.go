package monitor

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/aleister1102/filecompare/internal/common"
	"github.com/aleister1102/filecompare/internal/config"
	"github.com/aleister1102/filecompare/internal/models"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Runner compares two files on disk.
type Runner interface {
	CompareFilePaths(ctx context.Context, pathA, pathB string, cfg models.ComparisonConfig) (models.ComparisonResult, error)
}

// CycleResult is emitted once per comparison cycle. ChangedPaths is empty for
// the initial comparison.
type CycleResult struct {
	CycleID      string
	ChangedPaths []string
	Result       models.ComparisonResult
	Err          error
}

// FileMonitorService re-runs a comparison whenever either watched file
// changes, after a quiet period.
type FileMonitorService struct {
	cfg        config.MonitorConfig
	runner     Runner
	pathA      string
	pathB      string
	compareCfg models.ComparisonConfig
	tracker    *CycleTracker
	results    chan CycleResult
	started    atomic.Bool
	running    atomic.Bool
	logger     zerolog.Logger
}

// NewFileMonitorService creates a monitor for the pair pathA, pathB.
func NewFileMonitorService(
	cfg config.MonitorConfig,
	runner Runner,
	pathA, pathB string,
	compareCfg models.ComparisonConfig,
	logger zerolog.Logger,
) (*FileMonitorService, error) {
	if runner == nil {
		return nil, common.NewValidationError("runner", nil, "runner cannot be nil")
	}

	absA, err := filepath.Abs(pathA)
	if err != nil {
		return nil, common.WrapError(err, "failed to resolve path: "+pathA)
	}
	absB, err := filepath.Abs(pathB)
	if err != nil {
		return nil, common.WrapError(err, "failed to resolve path: "+pathB)
	}

	return &FileMonitorService{
		cfg:        cfg,
		runner:     runner,
		pathA:      absA,
		pathB:      absB,
		compareCfg: compareCfg,
		tracker:    NewCycleTracker(cfg.MaxCycles),
		results:    make(chan CycleResult, 16),
		logger:     logger.With().Str("component", "FileMonitorService").Logger(),
	}, nil
}

// Results delivers one CycleResult per comparison. It is closed when Run
// returns.
func (s *FileMonitorService) Results() <-chan CycleResult {
	return s.results
}

// IsRunning reports whether Run is active.
func (s *FileMonitorService) IsRunning() bool {
	return s.running.Load()
}

// Run compares the pair once, then watches the directories holding both
// files and re-compares after each debounced change. It returns when ctx
// ends or the configured number of cycles has run. A service runs once.
func (s *FileMonitorService) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("monitor has already been started")
	}
	s.running.Store(true)
	defer s.running.Store(false)
	defer close(s.results)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return common.WrapError(err, "failed to create file watcher")
	}
	defer watcher.Close()

	for _, dir := range uniqueDirs(s.pathA, s.pathB) {
		if err := watcher.Add(dir); err != nil {
			return common.WrapError(err, "failed to watch directory: "+dir)
		}
	}
	s.logger.Info().Str("file_a", s.pathA).Str("file_b", s.pathB).Dur("debounce", s.cfg.Debounce()).Msg("Watching files for changes")

	if !s.runCycle(ctx) {
		return nil
	}

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !s.isWatched(event) {
				continue
			}
			s.tracker.AddChangedPath(filepath.Clean(event.Name))
			debounce.Reset(s.cfg.Debounce())

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn().Err(err).Msg("File watcher error")

		case <-debounce.C:
			if !s.tracker.HasChanges() {
				continue
			}
			if !s.runCycle(ctx) {
				return nil
			}
		}
	}
}

// runCycle runs and emits one comparison. It returns false when watching
// should stop.
func (s *FileMonitorService) runCycle(ctx context.Context) bool {
	cycleID, changed := s.tracker.StartCycle()

	result, err := s.runner.CompareFilePaths(ctx, s.pathA, s.pathB, s.compareCfg)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		s.logger.Warn().Err(err).Str("cycle_id", cycleID).Msg("Comparison failed")
	} else {
		s.logger.Debug().
			Str("cycle_id", cycleID).
			Strs("changed", changed).
			Float64("similarity", result.Stats.Similarity).
			Msg("Comparison cycle complete")
	}

	select {
	case s.results <- CycleResult{CycleID: cycleID, ChangedPaths: changed, Result: result, Err: err}:
	case <-ctx.Done():
		return false
	}
	return s.tracker.ShouldContinue()
}

func (s *FileMonitorService) isWatched(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(event.Name)
	return name == s.pathA || name == s.pathB
}

func uniqueDirs(paths ...string) []string {
	seen := make(map[string]struct{}, len(paths))
	var dirs []string
	for _, p := range paths {
		dir := filepath.Dir(p)
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		dirs = append(dirs, dir)
	}
	return dirs
}
