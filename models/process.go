package models

import "time"

// LoggerProcess is a history checkpoint: the window [FromDate, ToDate) of a channel's
// messages. A nil FinishedAt means the window was started but never fully drained.
type LoggerProcess struct {
	ChannelID  string     `db:"channel_id"`
	FromDate   time.Time  `db:"from_date"`
	ToDate     time.Time  `db:"to_date"`
	FinishedAt *time.Time `db:"finished_at"`
}

// Finished reports whether the window was drained.
func (p *LoggerProcess) Finished() bool {
	return p.FinishedAt != nil
}

// RunStatus summarises one backup or resync run for the status file.
type RunStatus struct {
	RunID      string         `json:"run_id"`
	Kind       string         `json:"kind"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Counts     map[string]int `json:"counts"`
	Error      string         `json:"error,omitempty"`
}

// DBStatus is the content of the status file.
type DBStatus struct {
	LastUpdated time.Time    `json:"last_updated"`
	Runs        []*RunStatus `json:"runs"`
}
