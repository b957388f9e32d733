// Package scheduler runs the reconciliation jobs on fixed intervals.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	fulfillmentapp "github.com/erp/fulfillment/internal/application/fulfillment"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
)

// ---------------------------------------------------------------------------
// Job Types
// ---------------------------------------------------------------------------

// RunStatus represents the outcome of a job run
type RunStatus string

const (
	RunStatusRunning  RunStatus = "RUNNING"
	RunStatusSuccess  RunStatus = "SUCCESS"
	RunStatusSkipped  RunStatus = "SKIPPED"
	RunStatusPartial  RunStatus = "PARTIAL"
	RunStatusFailed   RunStatus = "FAILED"
	RunStatusPanicked RunStatus = "PANICKED"
)

// JobFunc runs one reconciliation pass.
type JobFunc func(ctx context.Context) (*fulfillmentapp.SyncReport, error)

// Job is a named entry point run every Interval.
type Job struct {
	Name     string
	Interval time.Duration
	Run      JobFunc
}

// JobRun records one execution of a job
type JobRun struct {
	ID          uuid.UUID
	Job         string
	Status      RunStatus
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
	Report      *fulfillmentapp.SyncReport
}

func newJobRun(job string) *JobRun {
	return &JobRun{
		ID:        uuid.New(),
		Job:       job,
		Status:    RunStatusRunning,
		StartedAt: time.Now(),
	}
}

// Complete marks the run finished with report
func (r *JobRun) Complete(report *fulfillmentapp.SyncReport) {
	now := time.Now()
	r.CompletedAt = &now
	r.Report = report

	switch {
	case report == nil:
		r.Status = RunStatusSuccess
	case report.Skipped:
		r.Status = RunStatusSkipped
	case report.Failed > 0 && report.Updated == 0 && report.Processed == report.Failed:
		r.Status = RunStatusFailed
	case report.Failed > 0:
		r.Status = RunStatusPartial
	default:
		r.Status = RunStatusSuccess
	}
}

// Fail marks the run as failed
func (r *JobRun) Fail(status RunStatus, err string) {
	now := time.Now()
	r.Status = status
	r.CompletedAt = &now
	r.Error = err
}

// Duration returns how long the run took, or zero while running
func (r *JobRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

// Config holds scheduler configuration
type Config struct {
	// Enabled indicates if the interval loops are started
	Enabled bool
	// JobTimeout is the maximum time a single run can take
	JobTimeout time.Duration
	// RunOnStart runs every job once immediately after Start
	RunOnStart bool
	// HistorySize is the number of runs kept for monitoring
	HistorySize int
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		JobTimeout:  10 * time.Minute,
		HistorySize: 100,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.HistorySize < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// Scheduler
// ---------------------------------------------------------------------------

// Scheduler runs registered jobs on their intervals. A job never overlaps
// with itself inside one process; cross-process exclusion is the job's own
// concern. Panics inside a job are recovered and recorded as failed runs.
type Scheduler struct {
	config  Config
	logger  *zap.Logger
	metrics *telemetry.ReconciliationMetrics

	jobs      map[string]Job
	order     []string
	inFlight  map[string]bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	// Run history for monitoring (in-memory, limited size)
	historyMu sync.RWMutex
	history   []*JobRun
}

// NewScheduler creates a new scheduler
func NewScheduler(config Config, logger *zap.Logger) (*Scheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		config:   config,
		logger:   logger.Named("scheduler"),
		jobs:     make(map[string]Job),
		inFlight: make(map[string]bool),
		history:  make([]*JobRun, 0, config.HistorySize),
	}, nil
}

// SetMetrics sets the metrics recorder (optional)
func (s *Scheduler) SetMetrics(m *telemetry.ReconciliationMetrics) {
	s.metrics = m
}

// Register adds a job. Jobs must be registered before Start.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" || job.Run == nil || job.Interval <= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidJob, job.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return ErrSchedulerRunning
	}
	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateJob, job.Name)
	}
	s.jobs[job.Name] = job
	s.order = append(s.order, job.Name)
	return nil
}

// Jobs returns registered job names in registration order
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Start starts one interval loop per registered job
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Scheduler disabled, no jobs started")
		return nil
	}
	s.isRunning = true
	jobs := make([]Job, 0, len(s.order))
	for _, name := range s.order {
		jobs = append(jobs, s.jobs[name])
	}
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, job := range jobs {
		s.wg.Add(1)
		go s.loop(ctx, job)
	}

	s.logger.Info("Scheduler started",
		zap.Int("jobs", len(jobs)),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels the loops and waits for in-flight runs
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// RunNow runs a registered job synchronously, outside its interval.
func (s *Scheduler) RunNow(ctx context.Context, name string) (*JobRun, error) {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrJobNotFound, name)
	}
	return s.execute(ctx, job)
}

// loop runs job on every tick until ctx is done
func (s *Scheduler) loop(ctx context.Context, job Job) {
	defer s.wg.Done()

	s.logger.Debug("Job loop started",
		zap.String("job", job.Name),
		zap.Duration("interval", job.Interval),
	)

	if s.config.RunOnStart {
		_, _ = s.execute(ctx, job)
	}

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Job loop stopping", zap.String("job", job.Name))
			return
		case <-ticker.C:
			if _, err := s.execute(ctx, job); err != nil && !errors.Is(err, ErrJobAlreadyRunning) {
				s.logger.Debug("Job run ended with error", zap.String("job", job.Name), zap.Error(err))
			}
		}
	}
}

// execute runs a single job once, guarding against overlap and panics
func (s *Scheduler) execute(ctx context.Context, job Job) (*JobRun, error) {
	s.mu.Lock()
	if s.inFlight[job.Name] {
		s.mu.Unlock()
		s.logger.Info("Job still running, tick skipped", zap.String("job", job.Name))
		return nil, ErrJobAlreadyRunning
	}
	s.inFlight[job.Name] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inFlight, job.Name)
		s.mu.Unlock()
	}()

	run := newJobRun(job.Name)
	log := logger.ForJob(s.logger, job.Name, run.ID.String())

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()
	jobCtx = logger.WithJob(logger.WithContext(jobCtx, log), job.Name)

	log.Info("Job run started")

	report, err := s.invoke(jobCtx, job)
	switch {
	case err == nil:
		run.Complete(report)
	case isPanic(err):
		run.Fail(RunStatusPanicked, err.Error())
	default:
		run.Fail(RunStatusFailed, err.Error())
	}

	if s.metrics != nil {
		s.metrics.RecordJobRun(ctx, job.Name, run.Duration(), err)
	}

	fields := []zap.Field{
		zap.String("status", string(run.Status)),
		zap.Duration("duration", run.Duration()),
	}
	if report != nil {
		fields = append(fields,
			zap.Int("processed", report.Processed),
			zap.Int("updated", report.Updated),
			zap.Int("failed", report.Failed),
			zap.Bool("skipped", report.Skipped),
		)
		if report.SkipReason != "" {
			fields = append(fields, zap.String("skip_reason", report.SkipReason))
		}
	}
	if err != nil {
		log.Error("Job run failed", append(fields, zap.Error(err))...)
	} else {
		log.Info("Job run completed", fields...)
	}

	s.addToHistory(run)
	return run, err
}

// panicError wraps a value recovered from a job.
type panicError struct {
	value any
	stack []byte
}

func (p *panicError) Error() string {
	return fmt.Sprintf("job panicked: %v", p.value)
}

func isPanic(err error) bool {
	var pe *panicError
	return errors.As(err, &pe)
}

func (s *Scheduler) invoke(ctx context.Context, job Job) (report *fulfillmentapp.SyncReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			pe := &panicError{value: r, stack: debug.Stack()}
			s.logger.Error("Job panic recovered",
				zap.String("job", job.Name),
				zap.Any("panic", r),
				zap.ByteString("stack", pe.stack),
			)
			report, err = nil, pe
		}
	}()
	telemetry.WithJobLabels(ctx, job.Name, func(ctx context.Context) {
		report, err = job.Run(ctx)
	})
	return report, err
}

// addToHistory adds a finished run to history
func (s *Scheduler) addToHistory(run *JobRun) {
	if s.config.HistorySize == 0 {
		return
	}
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append([]*JobRun{run}, s.history...)
	if len(s.history) > s.config.HistorySize {
		s.history = s.history[:s.config.HistorySize]
	}
}

// GetRunHistory returns recent runs, newest first
func (s *Scheduler) GetRunHistory(limit int) []*JobRun {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	result := make([]*JobRun, limit)
	copy(result, s.history[:limit])
	return result
}

// GetRunHistoryByJob returns recent runs of one job
func (s *Scheduler) GetRunHistoryByJob(job string, limit int) []*JobRun {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	result := make([]*JobRun, 0, limit)
	for _, run := range s.history {
		if run.Job == job {
			result = append(result, run)
			if len(result) >= limit {
				break
			}
		}
	}
	return result
}
