package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/casa/wms/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// JobStatus represents the status of a scheduled job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// JobKind names the work a job performs
type JobKind string

const (
	// JobKindBackfill runs the consistency sweep over items and workflows
	JobKindBackfill JobKind = "WMS_BACKFILL"
)

// Job represents a scheduled background job
type Job struct {
	ID          uuid.UUID
	Kind        JobKind
	Status      JobStatus
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	RetryCount  int
	MaxRetries  int
	NextRetryAt *time.Time
}

// NewJob creates a new job instance
func NewJob(kind JobKind, maxRetries int) *Job {
	return &Job{
		ID:         uuid.New(),
		Kind:       kind,
		Status:     JobStatusPending,
		MaxRetries: maxRetries,
	}
}

// Start marks the job running and clears the previous attempt's error.
func (j *Job) Start() {
	now := time.Now()
	j.Status, j.StartedAt, j.Error = JobStatusRunning, &now, ""
}

func (j *Job) Complete() { j.settle(JobStatusSuccess, "") }

func (j *Job) Fail(err string) { j.settle(JobStatusFailed, err) }

func (j *Job) settle(status JobStatus, errMsg string) {
	now := time.Now()
	j.Status, j.CompletedAt, j.Error = status, &now, errMsg
}

// ShouldRetry reports whether a failed job has attempts left.
func (j *Job) ShouldRetry() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry puts the job back to pending, runnable after delay.
func (j *Job) ScheduleRetry(delay time.Duration) {
	next := time.Now().Add(delay)
	j.RetryCount++
	j.Status, j.NextRetryAt, j.Error = JobStatusPending, &next, ""
}

func (j *Job) fields() []zap.Field {
	return []zap.Field{
		zap.String("job_id", j.ID.String()),
		zap.String("job_kind", string(j.Kind)),
	}
}

// JobExecutor is the interface for executing jobs
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) error
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	MaxConcurrentJobs int
	QueueSize         int
	JobTimeout        time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		MaxConcurrentJobs: 2,
		QueueSize:         16,
		JobTimeout:        5 * time.Minute,
		RetryAttempts:     3,
		RetryDelay:        30 * time.Second,
	}
}

// SchedulerConfigFrom maps application settings onto the worker pool
func SchedulerConfigFrom(cfg config.SchedulerConfig) SchedulerConfig {
	out := DefaultSchedulerConfig()
	if cfg.MaxConcurrentJobs > 0 {
		out.MaxConcurrentJobs = cfg.MaxConcurrentJobs
	}
	if cfg.JobTimeout > 0 {
		out.JobTimeout = cfg.JobTimeout
	}
	if cfg.RetryAttempts >= 0 {
		out.RetryAttempts = cfg.RetryAttempts
	}
	if cfg.RetryDelay > 0 {
		out.RetryDelay = cfg.RetryDelay
	}
	return out
}

// Validate checks the pool settings
func (c SchedulerConfig) Validate() error {
	if c.MaxConcurrentJobs <= 0 {
		return fmt.Errorf("%w: max concurrent jobs must be positive", ErrInvalidConfig)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("%w: queue size must be positive", ErrInvalidConfig)
	}
	if c.JobTimeout <= 0 {
		return fmt.Errorf("%w: job timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// Scheduler runs submitted jobs on a fixed pool of workers. A failed job
// goes back on the queue until its retries run out. At most one job per
// kind is tracked by SubmitIfIdle.
type Scheduler struct {
	config   SchedulerConfig
	executor JobExecutor
	logger   *zap.Logger
	jobs     chan *Job

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	workers  *errgroup.Group
	inFlight map[JobKind]int
	onFinish func(job *Job)
}

func NewScheduler(config SchedulerConfig, executor JobExecutor, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultSchedulerConfig().QueueSize
	}
	return &Scheduler{
		config:   config,
		executor: executor,
		logger:   logger,
		jobs:     make(chan *Job, config.QueueSize),
		inFlight: make(map[JobKind]int),
	}
}

// OnJobFinished registers fn to run once a job succeeds or gives up.
func (s *Scheduler) OnJobFinished(fn func(job *Job)) {
	s.mu.Lock()
	s.onFinish = fn
	s.mu.Unlock()
}

// Start launches the workers. Starting a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.config.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.workers = new(errgroup.Group)
	for id := range s.config.MaxConcurrentJobs {
		s.workers.Go(func() error {
			s.work(ctx, id)
			return nil
		})
	}
	s.running = true

	s.logger.Info("Job scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels running jobs and waits for the workers until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	workers := s.workers
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Job scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Job scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SubmitJob queues job without blocking.
func (s *Scheduler) SubmitJob(job *Job) error {
	return s.submit(job, false)
}

// SubmitIfIdle is SubmitJob, except that it refuses while another job of
// the same kind is pending or running.
func (s *Scheduler) SubmitIfIdle(job *Job) error {
	return s.submit(job, true)
}

func (s *Scheduler) submit(job *Job, exclusive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case !s.running:
		return ErrSchedulerNotRunning
	case exclusive && s.inFlight[job.Kind] > 0:
		return ErrJobAlreadyQueued
	}
	select {
	case s.jobs <- job:
		s.inFlight[job.Kind]++
		s.logger.Debug("Job submitted", job.fields()...)
		return nil
	default:
		return ErrJobQueueFull
	}
}

func (s *Scheduler) work(ctx context.Context, id int) {
	log := s.logger.With(zap.Int("worker_id", id))
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.jobs:
			s.process(ctx, job, log.With(job.fields()...))
		}
	}
}

func (s *Scheduler) process(ctx context.Context, job *Job, log *zap.Logger) {
	if !waitUntil(ctx, job.NextRetryAt) {
		s.finish(job)
		return
	}

	job.Start()
	log.Info("Processing job", zap.Int("attempt", job.RetryCount+1))

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	err := s.executor.Execute(jobCtx, job)
	cancel()

	if err == nil {
		job.Complete()
		log.Info("Job completed successfully")
		s.finish(job)
		return
	}

	job.Fail(err.Error())
	log.Error("Job failed", zap.Error(err))
	if job.ShouldRetry() && ctx.Err() == nil && s.requeue(job, log) {
		return
	}
	s.finish(job)
}

// requeue returns a failed job to the queue for its next attempt. The job
// is left as it was when the queue is full. Once sent, job belongs to
// whichever worker receives it.
func (s *Scheduler) requeue(job *Job, log *zap.Logger) bool {
	failed := *job
	job.ScheduleRetry(s.config.RetryDelay)
	retry := []zap.Field{zap.Int("retry_count", job.RetryCount), zap.Int("max_retries", job.MaxRetries)}
	select {
	case s.jobs <- job:
		log.Info("Job scheduled for retry", retry...)
		return true
	default:
		*job = failed
		log.Warn("Failed to re-queue job for retry")
		return false
	}
}

// waitUntil blocks until t, returning false if ctx ends first.
func waitUntil(ctx context.Context, t *time.Time) bool {
	if t == nil {
		return true
	}
	timer := time.NewTimer(time.Until(*t))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (s *Scheduler) finish(job *Job) {
	s.mu.Lock()
	if s.inFlight[job.Kind] > 0 {
		s.inFlight[job.Kind]--
	}
	onFinish := s.onFinish
	s.mu.Unlock()

	if onFinish != nil {
		onFinish(job)
	}
}
