package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"expensetracker/internal/log"
	"expensetracker/internal/monitor"

	"github.com/robfig/cron/v3"
)

// Scanner runs one due-expense scan for the current day.
type Scanner interface {
	ForceCheck(ctx context.Context) (monitor.ScanReport, error)
}

// Job is a named cron trigger for the due scan.
type Job struct {
	Name string
	Spec string
}

// DefaultJobs are the three triggers of the due-expense scan.
var DefaultJobs = []Job{
	{Name: "hourly_due_expense_check", Spec: "0 8-20 * * *"},
	{Name: "midnight_due_check", Spec: "1 0 * * *"},
	{Name: "morning_due_notification", Spec: "0 9 * * *"},
}

const tickTimeout = 10 * time.Minute

// JobStatus is a snapshot of one registered job.
type JobStatus struct {
	Name    string    `json:"name"`
	Spec    string    `json:"spec"`
	NextRun time.Time `json:"next_run"`
	PrevRun time.Time `json:"prev_run,omitempty"`
}

// Status is a snapshot of the scheduler.
type Status struct {
	Running  bool        `json:"running"`
	Location string      `json:"location"`
	Jobs     []JobStatus `json:"jobs"`
}

// Scheduler fires the due scan on cron triggers.
type Scheduler struct {
	cron    *cron.Cron
	scanner Scanner
	loc     *time.Location
	logger  *log.Logger
	jobs    []Job
	entries map[string]cron.EntryID

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	running bool
}

// New registers DefaultJobs against scanner in loc.
func New(scanner Scanner, loc *time.Location, logger *log.Logger) (*Scheduler, error) {
	return NewWithJobs(scanner, loc, logger, DefaultJobs)
}

// NewWithJobs registers the given jobs. An invalid spec is an error.
func NewWithJobs(scanner Scanner, loc *time.Location, logger *log.Logger, jobs []Job) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentScheduler)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		scanner: scanner,
		loc:     loc,
		logger:  logger,
		jobs:    jobs,
		entries: make(map[string]cron.EntryID, len(jobs)),
		ctx:     ctx,
		cancel:  cancel,
	}
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger})),
	)

	for _, job := range jobs {
		job := job
		id, err := s.cron.AddFunc(job.Spec, func() { s.run(job.Name) })
		if err != nil {
			cancel()
			return nil, fmt.Errorf("register job %s (%q): %w", job.Name, job.Spec, err)
		}
		s.entries[job.Name] = id
	}
	return s, nil
}

// Start begins firing jobs. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	s.logger.Info("Scheduler started", "location", s.loc.String(), "jobs", len(s.jobs))
}

// Stop prevents new ticks and waits for a running tick to finish or for ctx
// to expire, in which case the running tick is cancelled.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.cancel()
		s.logger.InfoContext(ctx, "Scheduler stopped")
		return nil
	case <-ctx.Done():
		s.cancel()
		s.logger.WarnContext(ctx, "Scheduler stop timed out, running scan cancelled")
		return ctx.Err()
	}
}

// Status reports whether the scheduler is running and when each job fires next.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	st := Status{Running: running, Location: s.loc.String()}
	for _, job := range s.jobs {
		entry := s.cron.Entry(s.entries[job.Name])
		js := JobStatus{Name: job.Name, Spec: job.Spec, NextRun: entry.Next, PrevRun: entry.Prev}
		if !running && entry.Schedule != nil {
			js.NextRun = entry.Schedule.Next(time.Now().In(s.loc))
		}
		st.Jobs = append(st.Jobs, js)
	}
	return st
}

func (s *Scheduler) run(name string) {
	logger := s.logger.With(log.FieldJob, name)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Scheduled scan panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	ctx, cancel := context.WithTimeout(s.ctx, tickTimeout)
	defer cancel()

	start := time.Now()
	report, err := s.scanner.ForceCheck(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Scheduled scan failed", log.FieldError, err, log.FieldDuration, time.Since(start).Milliseconds())
		return
	}
	logger.InfoContext(ctx, "Scheduled scan finished",
		log.FieldScanDate, report.Date,
		"due_sent", report.DueSent,
		"overdue_sent", report.OverdueSent,
		"failed", report.Failed,
		log.FieldDuration, time.Since(start).Milliseconds())
}

// cronLogger adapts the application logger to cron.Logger.
type cronLogger struct {
	logger *log.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, log.FieldError, err)...)
}
