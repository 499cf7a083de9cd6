package storage

import (
	"database/sql"
	"fmt"
	"time"

	"fcexport/internal/export"

	"github.com/google/uuid"
)

// ExportStore implements persistence for saved export jobs and run logs.
type ExportStore struct {
	db *DB
}

// NewExportStore creates a new ExportStore.
func NewExportStore(db *DB) *ExportStore {
	return &ExportStore{db: db}
}

// ── Job CRUD ───────────────────────────────────────────────

func (s *ExportStore) CreateJob(job *export.Job) error {
	now := time.Now()
	job.ID = uuid.New().String()
	job.CreatedAt = now
	job.UpdatedAt = now

	_, err := s.db.conn.Exec(
		`INSERT INTO export_jobs (id, name, location, layer, output_dir, format, file_name,
		 trigger_type, trigger_config, enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Name, job.Request.Location, job.Request.Layer,
		job.Request.OutputDir, string(job.Request.Format), job.Request.Name,
		job.TriggerType, job.TriggerConfig, job.Enabled,
		job.CreatedAt, job.UpdatedAt,
	)
	return err
}

func (s *ExportStore) GetJob(id string) (*export.Job, error) {
	job := &export.Job{}
	err := s.db.conn.QueryRow(
		`SELECT id, name, location, layer, output_dir, format, file_name,
		 trigger_type, trigger_config, enabled,
		 last_run_at, last_status, last_error, created_at, updated_at
		 FROM export_jobs WHERE id = ?`, id,
	).Scan(
		&job.ID, &job.Name, &job.Request.Location, &job.Request.Layer,
		&job.Request.OutputDir, &job.Request.Format, &job.Request.Name,
		&job.TriggerType, &job.TriggerConfig, &job.Enabled,
		&job.LastRunAt, &job.LastStatus, &job.LastError,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("export job not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *ExportStore) UpdateJob(job *export.Job) error {
	job.UpdatedAt = time.Now()
	_, err := s.db.conn.Exec(
		`UPDATE export_jobs SET name=?, location=?, layer=?, output_dir=?, format=?,
		 file_name=?, trigger_type=?, trigger_config=?, enabled=?, updated_at=? WHERE id=?`,
		job.Name, job.Request.Location, job.Request.Layer,
		job.Request.OutputDir, string(job.Request.Format), job.Request.Name,
		job.TriggerType, job.TriggerConfig, job.Enabled,
		job.UpdatedAt, job.ID,
	)
	return err
}

func (s *ExportStore) UpdateJobStatus(id, status, errMsg string) error {
	_, err := s.db.conn.Exec(
		`UPDATE export_jobs SET last_run_at=?, last_status=?, last_error=?, updated_at=? WHERE id=?`,
		time.Now(), status, errMsg, time.Now(), id,
	)
	return err
}

func (s *ExportStore) DeleteJob(id string) error {
	// Delete run logs first.
	if _, err := s.db.conn.Exec(`DELETE FROM export_runs WHERE job_id = ?`, id); err != nil {
		return err
	}
	_, err := s.db.conn.Exec(`DELETE FROM export_jobs WHERE id = ?`, id)
	return err
}

func (s *ExportStore) ListJobs() ([]export.Job, error) {
	return s.queryJobs(
		`SELECT id, name, location, layer, output_dir, format, file_name,
		 trigger_type, trigger_config, enabled,
		 last_run_at, last_status, last_error, created_at, updated_at
		 FROM export_jobs ORDER BY created_at ASC`,
	)
}

// ListEnabledTriggeredJobs returns jobs that are enabled with a
// schedule or file-watch trigger.
func (s *ExportStore) ListEnabledTriggeredJobs() ([]export.Job, error) {
	return s.queryJobs(
		`SELECT id, name, location, layer, output_dir, format, file_name,
		 trigger_type, trigger_config, enabled,
		 last_run_at, last_status, last_error, created_at, updated_at
		 FROM export_jobs WHERE enabled = 1 AND trigger_type IN ('schedule', 'file_watch')
		 ORDER BY created_at ASC`,
	)
}

func (s *ExportStore) queryJobs(query string, args ...any) ([]export.Job, error) {
	rows, err := s.db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []export.Job
	for rows.Next() {
		var job export.Job
		if err := rows.Scan(
			&job.ID, &job.Name, &job.Request.Location, &job.Request.Layer,
			&job.Request.OutputDir, &job.Request.Format, &job.Request.Name,
			&job.TriggerType, &job.TriggerConfig, &job.Enabled,
			&job.LastRunAt, &job.LastStatus, &job.LastError,
			&job.CreatedAt, &job.UpdatedAt,
		); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ── Run Logs ───────────────────────────────────────────────

func (s *ExportStore) CreateRun(run *export.RunLog) error {
	run.ID = uuid.New().String()
	_, err := s.db.conn.Exec(
		`INSERT INTO export_runs (id, job_id, started_at, finished_at, status, records, output_path, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.JobID, run.StartedAt, run.FinishedAt, run.Status, run.Records, run.OutputPath, run.Error,
	)
	return err
}

func (s *ExportStore) ListRuns(jobID string, limit int) ([]export.RunLog, error) {
	rows, err := s.db.conn.Query(
		`SELECT id, job_id, started_at, finished_at, status, records, output_path, error
		 FROM export_runs WHERE job_id = ? ORDER BY started_at DESC LIMIT ?`,
		jobID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []export.RunLog
	for rows.Next() {
		var r export.RunLog
		if err := rows.Scan(&r.ID, &r.JobID, &r.StartedAt, &r.FinishedAt, &r.Status, &r.Records, &r.OutputPath, &r.Error); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
