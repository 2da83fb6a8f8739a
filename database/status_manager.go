package database

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"discord-archiver/models"
)

// maxRunHistory bounds the number of runs kept in the status file.
const maxRunHistory = 20

// StatusManager manages the backup status file.
type StatusManager struct {
	statusFile string
	mutex      sync.Mutex
	status     *models.DBStatus
	now        func() time.Time
}

// NewStatusManager creates a new status manager. An existing status file is loaded so
// that the run history survives restarts.
func NewStatusManager(statusFile string) *StatusManager {
	sm := &StatusManager{
		statusFile: statusFile,
		status:     &models.DBStatus{},
		now:        time.Now,
	}

	if data, err := os.ReadFile(statusFile); err == nil {
		var status models.DBStatus
		if json.Unmarshal(data, &status) == nil {
			sm.status = &status
		}
	}
	return sm
}

// StartRun records the beginning of a run.
func (sm *StatusManager) StartRun(runID, kind string) *models.RunStatus {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	run := &models.RunStatus{
		RunID:     runID,
		Kind:      kind,
		StartedAt: sm.now().UTC(),
		Counts:    map[string]int{},
	}
	sm.status.Runs = append(sm.status.Runs, run)
	if len(sm.status.Runs) > maxRunHistory {
		sm.status.Runs = sm.status.Runs[len(sm.status.Runs)-maxRunHistory:]
	}
	return run
}

// FinishRun stamps the outcome of a run started with StartRun.
func (sm *StatusManager) FinishRun(run *models.RunStatus, counts map[string]int, runErr error) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	finishedAt := sm.now().UTC()
	run.FinishedAt = &finishedAt
	for kind, n := range counts {
		run.Counts[kind] = n
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
}

// Runs returns a snapshot of the recorded runs, oldest first.
func (sm *StatusManager) Runs() []models.RunStatus {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	runs := make([]models.RunStatus, 0, len(sm.status.Runs))
	for _, run := range sm.status.Runs {
		runs = append(runs, *run)
	}
	return runs
}

// Save commits the current status to the JSON file.
func (sm *StatusManager) Save() error {
	if sm.statusFile == "" {
		return nil
	}

	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.status.LastUpdated = sm.now().UTC()

	// Ensure the directory exists.
	dir := filepath.Dir(sm.statusFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create status directory: %w", err)
	}

	data, err := json.MarshalIndent(sm.status, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	// Write the file, overwriting it if it exists.
	if err := os.WriteFile(sm.statusFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write status file: %w", err)
	}

	return nil
}
