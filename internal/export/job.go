package export

import "time"

// ── Job ────────────────────────────────────────────────────
// A saved export definition: one Request plus how it is triggered.
// Jobs persist across runs; ad-hoc exports never touch the store.

// TriggerType determines how a job is started.
type TriggerType string

const (
	TriggerManual    TriggerType = "manual"
	TriggerSchedule  TriggerType = "schedule"   // TriggerConfig holds a cron expression
	TriggerFileWatch TriggerType = "file_watch" // TriggerConfig holds a path; empty = the source location
)

// Job holds the configuration for a repeatable export.
type Job struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Request       Request     `json:"request"`
	TriggerType   TriggerType `json:"triggerType"`
	TriggerConfig string      `json:"triggerConfig"`
	Enabled       bool        `json:"enabled"`
	LastRunAt     time.Time   `json:"lastRunAt"`
	LastStatus    string      `json:"lastStatus"` // "succeeded" | "no_data" | "failed" | "running" | ""
	LastError     string      `json:"lastError"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// WatchPath returns the filesystem path a file_watch job observes.
func (j *Job) WatchPath() string {
	if j.TriggerConfig != "" {
		return j.TriggerConfig
	}
	return j.Request.Location
}

// RunLog is a historical record of one job run.
type RunLog struct {
	ID         string    `json:"id"`
	JobID      string    `json:"jobId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Status     Status    `json:"status"`
	Records    int       `json:"records"`
	OutputPath string    `json:"outputPath,omitempty"`
	Error      string    `json:"error,omitempty"`
}
