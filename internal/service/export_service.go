package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/browser"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"fcexport/internal/export"
	"fcexport/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Export Service — business logic for feature-class exports
// ─────────────────────────────────────────────────────────────

// Status event names and messages mirrored to whatever surface the
// emitter feeds. EventStatus carries a human-readable progress string.
const (
	EventStatus       = "export:status"
	EventJobCompleted = "export:job-completed"

	statusInProgress = "Export in Progress"
	statusNoData     = "No data to export"
)

// ExportService runs ad-hoc exports and manages saved export jobs,
// their schedules, and file watchers. The job store is optional: a nil
// store supports ad-hoc exports only.
type ExportService struct {
	store       *storage.ExportStore
	emitter     EventEmitter
	engine      *export.Engine
	log         *logrus.Logger
	runningJobs runGuard

	// watcher / cron lifecycle
	watchCancel context.CancelFunc
	watcher     *fsnotify.Watcher
	cronSched   *cron.Cron
}

// NewExportService creates an ExportService ready for use.
func NewExportService(store *storage.ExportStore, emitter EventEmitter, log *logrus.Logger) *ExportService {
	if log == nil {
		log = logrus.New()
	}
	return &ExportService{
		store:   store,
		emitter: emitter,
		engine:  &export.Engine{},
		log:     log,
	}
}

// ── Ad-hoc Export ──────────────────────────────────────────

// Run executes one export request synchronously, emitting status
// events as it goes. The returned Result is non-nil even on failure.
func (s *ExportService) Run(ctx context.Context, req export.Request) (*export.Result, error) {
	s.emitter.Emit(ctx, EventStatus, statusInProgress)

	res, err := s.engine.Run(ctx, req)
	switch {
	case err != nil:
		s.log.WithFields(logrus.Fields{
			"layer": req.Layer,
			"kind":  string(export.FaultKindOf(err)),
		}).WithError(err).Error("export failed")
		s.emitter.Emit(ctx, EventStatus, "Error: "+res.Error)
	case res.Status == export.StatusNoData:
		s.log.WithField("layer", req.Layer).Info("no records in layer, nothing written")
		s.emitter.Emit(ctx, EventStatus, statusNoData)
	default:
		s.log.WithFields(logrus.Fields{
			"layer":   req.Layer,
			"records": res.Records,
			"output":  res.OutputPath,
		}).Info("export complete")
		s.emitter.Emit(ctx, EventStatus, "Export successful: "+res.OutputPath)
	}
	return res, err
}

// Preview reads up to maxRows normalized records without writing a file.
func (s *ExportService) Preview(ctx context.Context, location, layer string, maxRows int) ([]export.Record, *export.Schema, error) {
	previewCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return s.engine.Preview(previewCtx, location, layer, maxRows)
}

// ListSourceTypes returns the available source descriptors.
func (s *ExportService) ListSourceTypes() []export.SourceSpec {
	return export.ListSources()
}

// ── Job CRUD ───────────────────────────────────────────────

type CreateExportJobInput struct {
	Name          string `json:"name"`
	Location      string `json:"location"`
	Layer         string `json:"layer"`
	OutputDir     string `json:"outputDir"`
	Format        string `json:"format"`
	FileName      string `json:"fileName"`
	TriggerType   string `json:"triggerType"`
	TriggerConfig string `json:"triggerConfig"`
	Enabled       bool   `json:"enabled"`
}

func (input CreateExportJobInput) request() (export.Request, error) {
	format, err := export.ParseFormat(input.Format)
	if err != nil {
		return export.Request{}, err
	}
	return export.Request{
		Location:  input.Location,
		Layer:     input.Layer,
		OutputDir: input.OutputDir,
		Format:    format,
		Name:      input.FileName,
	}, nil
}

func (s *ExportService) CreateJob(ctx context.Context, input CreateExportJobInput) (*export.Job, error) {
	if s.store == nil {
		return nil, fmt.Errorf("no job store configured")
	}
	req, err := input.request()
	if err != nil {
		return nil, err
	}

	job := &export.Job{
		Name:          input.Name,
		Request:       req,
		TriggerType:   export.TriggerType(input.TriggerType),
		TriggerConfig: input.TriggerConfig,
		Enabled:       input.Enabled,
	}
	if job.TriggerType == "" {
		job.TriggerType = export.TriggerManual
	}
	if job.Name == "" {
		job.Name = req.Layer
	}

	if err := s.store.CreateJob(job); err != nil {
		return nil, fmt.Errorf("create export job: %w", err)
	}
	s.RestartWatchers(ctx)
	return job, nil
}

func (s *ExportService) GetJob(id string) (*export.Job, error) {
	if s.store == nil {
		return nil, fmt.Errorf("no job store configured")
	}
	return s.store.GetJob(id)
}

func (s *ExportService) ListJobs() ([]export.Job, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.ListJobs()
}

func (s *ExportService) UpdateJob(ctx context.Context, id string, input CreateExportJobInput) error {
	if s.store == nil {
		return fmt.Errorf("no job store configured")
	}
	job, err := s.store.GetJob(id)
	if err != nil {
		return err
	}
	req, err := input.request()
	if err != nil {
		return err
	}
	job.Name = input.Name
	job.Request = req
	job.TriggerType = export.TriggerType(input.TriggerType)
	job.TriggerConfig = input.TriggerConfig
	job.Enabled = input.Enabled

	if err := s.store.UpdateJob(job); err != nil {
		return err
	}
	s.RestartWatchers(ctx)
	return nil
}

func (s *ExportService) DeleteJob(ctx context.Context, id string) error {
	if s.store == nil {
		return fmt.Errorf("no job store configured")
	}
	err := s.store.DeleteJob(id)
	if err == nil {
		s.RestartWatchers(ctx)
	}
	return err
}

// ── Run ────────────────────────────────────────────────────

// RunJob executes a saved export job synchronously, records a run log,
// and emits a completion event.
func (s *ExportService) RunJob(ctx context.Context, id string) (*export.Result, error) {
	if s.store == nil {
		return nil, fmt.Errorf("no job store configured")
	}
	// Prevent concurrent execution of the same job.
	if !s.runningJobs.TryLock(id) {
		return nil, fmt.Errorf("job %s is already running", id)
	}
	defer s.runningJobs.Unlock(id)

	job, err := s.store.GetJob(id)
	if err != nil {
		return nil, err
	}

	s.store.UpdateJobStatus(id, "running", "")

	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	start := time.Now()
	result, runErr := s.Run(runCtx, job.Request)

	runLog := &export.RunLog{
		JobID:      id,
		StartedAt:  start,
		FinishedAt: time.Now(),
		Status:     result.Status,
		Records:    result.Records,
		OutputPath: result.OutputPath,
	}
	if runErr != nil {
		runLog.Error = runErr.Error()
	}
	s.store.CreateRun(runLog)

	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	s.store.UpdateJobStatus(id, string(result.Status), errMsg)

	s.emitter.Emit(ctx, EventJobCompleted, map[string]string{
		"jobId":  id,
		"status": string(result.Status),
	})

	return result, runErr
}

// ListRuns returns the last 50 run logs for a job.
func (s *ExportService) ListRuns(jobID string) ([]export.RunLog, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.ListRuns(jobID, 50)
}

// ── Output folder ──────────────────────────────────────────

// RevealOutput opens the directory containing an exported file in the
// platform's file manager.
func (s *ExportService) RevealOutput(path string) error {
	dir := filepath.Dir(path)
	if err := browser.OpenURL("file://" + dir); err != nil {
		return fmt.Errorf("open output folder: %w", err)
	}
	return nil
}

// ── Watchers (cron + file_watch) ──────────────────────────

// RestartWatchers tears down the current watcher/cron and rebuilds them from scratch.
func (s *ExportService) RestartWatchers(ctx context.Context) {
	s.stopWatchers()

	if s.store == nil {
		return
	}
	jobs, err := s.store.ListEnabledTriggeredJobs()
	if err != nil {
		s.log.WithError(err).Error("watcher: failed to list jobs")
		return
	}

	// ── Cron jobs ──
	var cronJobs []struct {
		jobID string
		expr  string
	}
	for _, j := range jobs {
		if j.TriggerType == export.TriggerSchedule && j.TriggerConfig != "" {
			cronJobs = append(cronJobs, struct {
				jobID string
				expr  string
			}{jobID: j.ID, expr: j.TriggerConfig})
		}
	}

	if len(cronJobs) > 0 {
		c := cron.New()
		for _, cj := range cronJobs {
			jid := cj.jobID
			_, err := c.AddFunc(cj.expr, func() {
				s.log.WithField("job", jid).Info("cron: running export job")
				if _, err := s.RunJob(ctx, jid); err != nil {
					s.log.WithField("job", jid).WithError(err).Error("cron: export job failed")
				}
			})
			if err != nil {
				s.log.WithFields(logrus.Fields{
					"job":  cj.jobID,
					"expr": cj.expr,
				}).WithError(err).Error("cron: invalid expression")
			}
		}
		c.Start()
		s.cronSched = c
		s.log.WithField("count", len(cronJobs)).Info("cron: scheduled export jobs")
	}

	// ── File watchers ──
	type watchEntry struct {
		jobID string
		path  string
	}
	var entries []watchEntry
	for _, j := range jobs {
		if j.TriggerType == export.TriggerFileWatch && j.WatchPath() != "" {
			entries = append(entries, watchEntry{jobID: j.ID, path: j.WatchPath()})
		}
	}

	if len(entries) == 0 {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.log.WithError(err).Error("watcher: failed to create watcher")
		return
	}
	s.watcher = watcher

	pathToJob := make(map[string]string)
	watchedDirs := make(map[string]bool)
	for _, e := range entries {
		absPath, err := filepath.Abs(e.path)
		if err != nil {
			s.log.WithField("path", e.path).WithError(err).Error("watcher: bad path")
			continue
		}
		pathToJob[absPath] = e.jobID

		dir := filepath.Dir(absPath)
		if !watchedDirs[dir] {
			if err := watcher.Add(dir); err != nil {
				s.log.WithField("dir", dir).WithError(err).Error("watcher: failed to watch dir")
			} else {
				watchedDirs[dir] = true
			}
		}
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	s.watchCancel = cancel

	go func() {
		timers := make(map[string]*time.Timer)
		for {
			select {
			case <-watchCtx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				absPath, _ := filepath.Abs(event.Name)
				jobID, ok := pathToJob[absPath]
				if !ok {
					continue
				}
				// Debounce: a save can fire several events in a burst.
				if t, exists := timers[jobID]; exists {
					t.Stop()
				}
				jid := jobID
				timers[jobID] = time.AfterFunc(500*time.Millisecond, func() {
					s.log.WithFields(logrus.Fields{
						"path": absPath,
						"job":  jid,
					}).Info("watcher: source changed, re-exporting")
					if _, err := s.RunJob(ctx, jid); err != nil {
						s.log.WithField("job", jid).WithError(err).Error("watcher: export failed")
					}
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.log.WithError(err).Error("watcher: error")
			}
		}
	}()

	s.log.WithField("count", len(pathToJob)).Info("watcher: watching source files")
}

// WaitRunning blocks until all running jobs finish or ctx is cancelled.
// Used for graceful shutdown.
func (s *ExportService) WaitRunning(ctx context.Context) {
	s.runningJobs.WaitAll(ctx)
}

// Stop tears down all watchers and schedulers.
func (s *ExportService) Stop() {
	s.stopWatchers()
}

func (s *ExportService) stopWatchers() {
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
	if s.cronSched != nil {
		s.cronSched.Stop()
		s.cronSched = nil
	}
}
