package monitor

import (
	"fmt"
	"sort"
	"sync"
)

// CycleTracker tracks which watched paths changed within a comparison cycle
type CycleTracker struct {
	changedPaths   map[string]struct{}
	currentCycleID string
	mutex          sync.RWMutex
	maxCycles      int
	currentCycle   int
}

// NewCycleTracker creates a new CycleTracker. maxCycles of 0 means unlimited.
func NewCycleTracker(maxCycles int) *CycleTracker {
	return &CycleTracker{
		changedPaths: make(map[string]struct{}),
		maxCycles:    maxCycles,
	}
}

// StartCycle begins a new cycle and returns its id and the paths that
// changed since the previous one.
func (ct *CycleTracker) StartCycle() (string, []string) {
	ct.mutex.Lock()
	defer ct.mutex.Unlock()

	ct.currentCycle++
	ct.currentCycleID = fmt.Sprintf("cycle-%d", ct.currentCycle)
	changed := ct.sortedChangedPaths()
	ct.changedPaths = make(map[string]struct{})
	return ct.currentCycleID, changed
}

// ShouldContinue returns false once the maximum number of cycles has run.
func (ct *CycleTracker) ShouldContinue() bool {
	ct.mutex.RLock()
	defer ct.mutex.RUnlock()
	if ct.maxCycles == 0 {
		return true
	}
	return ct.currentCycle < ct.maxCycles
}

// AddChangedPath records a change to path for the upcoming cycle
func (ct *CycleTracker) AddChangedPath(path string) {
	if path == "" {
		return
	}

	ct.mutex.Lock()
	defer ct.mutex.Unlock()
	ct.changedPaths[path] = struct{}{}
}

// HasChanges returns true if a path changed since the last cycle started
func (ct *CycleTracker) HasChanges() bool {
	ct.mutex.RLock()
	defer ct.mutex.RUnlock()
	return len(ct.changedPaths) > 0
}

// GetCurrentCycleID returns the current cycle ID
func (ct *CycleTracker) GetCurrentCycleID() string {
	ct.mutex.RLock()
	defer ct.mutex.RUnlock()
	return ct.currentCycleID
}

// CycleCount returns how many cycles have started
func (ct *CycleTracker) CycleCount() int {
	ct.mutex.RLock()
	defer ct.mutex.RUnlock()
	return ct.currentCycle
}

func (ct *CycleTracker) sortedChangedPaths() []string {
	paths := make([]string, 0, len(ct.changedPaths))
	for p := range ct.changedPaths {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
