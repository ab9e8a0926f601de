package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/notify"

	"golang.org/x/sync/singleflight"
)

// Store is the read side the monitor needs.
type Store interface {
	ListEligible(ctx context.Context, on core.Date) ([]core.RecurringExpense, error)
	ListEligibleOverdue(ctx context.Context, on core.Date) ([]core.RecurringExpense, error)
	GetUser(ctx context.Context, id int64) (core.User, error)
}

// Composer turns a per-user summary into a notification.
type Composer interface {
	Due(s core.DueSummary) (notify.Notification, error)
	Overdue(s core.DueSummary) (notify.Notification, error)
}

// ScanReport describes the outcome of one scan.
type ScanReport struct {
	Date        string        `json:"date"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration_ns"`
	Eligible    int           `json:"eligible"`
	Overdue     int           `json:"overdue"`
	Users       int           `json:"users"`
	DueSent     int           `json:"due_sent"`
	OverdueSent int           `json:"overdue_sent"`
	Skipped     int           `json:"skipped"`
	Failed      int           `json:"failed"`
}

const defaultScanTimeout = 10 * time.Minute

// Monitor finds due recurring expenses and tells their owners about them.
type Monitor struct {
	store      Store
	composer   Composer
	dispatcher notify.Dispatcher
	policy     Policy
	loc        *time.Location
	now        func() time.Time
	logger     *log.Logger
	timeout    time.Duration

	group singleflight.Group

	mu      sync.Mutex
	last    ScanReport
	scanned bool
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithPolicy replaces the default AlwaysNotify policy.
func WithPolicy(p Policy) Option {
	return func(m *Monitor) { m.policy = p }
}

// WithLocation sets the zone used to decide what "today" is.
func WithLocation(loc *time.Location) Option {
	return func(m *Monitor) { m.loc = loc }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// WithScanTimeout bounds a single scan. Callers that stop waiting do not
// shorten it. Non-positive values keep the default.
func WithScanTimeout(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Monitor) { m.logger = l.WithComponent(log.ComponentMonitor) }
}

func New(store Store, composer Composer, dispatcher notify.Dispatcher, opts ...Option) *Monitor {
	m := &Monitor{
		store:      store,
		composer:   composer,
		dispatcher: dispatcher,
		policy:     AlwaysNotify{},
		loc:        time.UTC,
		now:        time.Now,
		logger:     log.New(log.Config{Component: log.ComponentMonitor}),
		timeout:    defaultScanTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Today returns the current calendar day in the monitor's location.
func (m *Monitor) Today() core.Date {
	return core.DateOf(m.now().In(m.loc))
}

// ForceCheck runs a scan for today.
func (m *Monitor) ForceCheck(ctx context.Context) (ScanReport, error) {
	return m.Scan(ctx, m.Today())
}

// LastReport returns the most recent completed scan, if any.
func (m *Monitor) LastReport() (ScanReport, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, m.scanned
}

// Scan notifies every user with eligible items as of today. Concurrent scans
// for the same day share a single run. The shared run is detached from the
// callers' cancellation; a caller whose ctx ends gets ctx.Err() while the
// run carries on for the others.
func (m *Monitor) Scan(ctx context.Context, today core.Date) (ScanReport, error) {
	ch := m.group.DoChan(today.String(), func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
		defer cancel()
		return m.scan(runCtx, today)
	})

	select {
	case res := <-ch:
		if res.Shared {
			m.logger.DebugContext(ctx, "Joined in-flight scan", log.FieldScanDate, today.String())
		}
		report, _ := res.Val.(ScanReport)
		return report, res.Err
	case <-ctx.Done():
		m.logger.WarnContext(ctx, "Stopped waiting for scan; it continues in the background",
			log.FieldScanDate, today.String(),
			log.FieldError, ctx.Err())
		return ScanReport{}, ctx.Err()
	}
}

func (m *Monitor) scan(ctx context.Context, today core.Date) (report ScanReport, err error) {
	report = ScanReport{Date: today.String(), StartedAt: m.now()}
	defer func() {
		report.Duration = m.now().Sub(report.StartedAt)
		m.mu.Lock()
		m.last, m.scanned = report, true
		m.mu.Unlock()
	}()

	eligible, err := m.store.ListEligible(ctx, today)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to load due recurring expenses", log.FieldScanDate, today.String(), log.FieldError, err)
		return report, fmt.Errorf("list eligible: %w", err)
	}
	report.Eligible = len(eligible)

	groups := core.GroupByUser(eligible)
	report.Users = len(groups)
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		switch m.notifyDue(ctx, g, today) {
		case outcomeSent:
			report.DueSent++
		case outcomeSkipped:
			report.Skipped++
		case outcomeFailed:
			report.Failed++
		}
	}

	overdue, err := m.store.ListEligibleOverdue(ctx, today)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to load overdue recurring expenses", log.FieldScanDate, today.String(), log.FieldError, err)
		return report, fmt.Errorf("list overdue: %w", err)
	}
	report.Overdue = len(overdue)

	for _, g := range core.GroupByUser(overdue) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		switch m.notifyOverdue(ctx, g, today) {
		case outcomeSent:
			report.OverdueSent++
		case outcomeSkipped:
			report.Skipped++
		case outcomeFailed:
			report.Failed++
		}
	}

	m.logger.InfoContext(ctx, "Due expense scan complete",
		log.FieldScanDate, report.Date,
		"eligible", report.Eligible,
		"overdue", report.Overdue,
		"users", report.Users,
		"due_sent", report.DueSent,
		"overdue_sent", report.OverdueSent,
		"skipped", report.Skipped,
		"failed", report.Failed)
	return report, nil
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeSkipped
	outcomeFailed
)

func (m *Monitor) notifyDue(ctx context.Context, g core.UserGroup, today core.Date) outcome {
	logger := m.logger.With(log.FieldUserID, g.UserID, "items", len(g.Items))

	done, err := m.policy.AlreadyNotified(ctx, g.UserID, g.Items, today)
	if err != nil {
		logger.ErrorContext(ctx, "Notification policy failed", log.FieldError, err)
		return outcomeFailed
	}
	if done {
		logger.DebugContext(ctx, "User already notified today")
		return outcomeSkipped
	}

	if err := m.deliver(ctx, g, today, m.composer.Due); err != nil {
		logger.ErrorContext(ctx, "Failed to send due notification", log.FieldError, err)
		return outcomeFailed
	}
	if err := m.policy.MarkNotified(ctx, g.Items, today); err != nil {
		logger.WarnContext(ctx, "Failed to record notification marker", log.FieldError, err)
	}
	logger.InfoContext(ctx, "Due notification sent")
	return outcomeSent
}

func (m *Monitor) notifyOverdue(ctx context.Context, g core.UserGroup, today core.Date) outcome {
	logger := m.logger.With(log.FieldUserID, g.UserID, "items", len(g.Items))

	send, err := m.policy.ShouldSendOverdueReminder(ctx, g.UserID, g.Items, today)
	if err != nil {
		logger.ErrorContext(ctx, "Notification policy failed", log.FieldError, err)
		return outcomeFailed
	}
	if !send {
		logger.DebugContext(ctx, "Overdue reminder not due yet")
		return outcomeSkipped
	}

	if err := m.deliver(ctx, g, today, m.composer.Overdue); err != nil {
		logger.ErrorContext(ctx, "Failed to send overdue reminder", log.FieldError, err)
		return outcomeFailed
	}
	if err := m.policy.MarkOverdueReminded(ctx, g.Items, today); err != nil {
		logger.WarnContext(ctx, "Failed to record reminder marker", log.FieldError, err)
	}
	logger.InfoContext(ctx, "Overdue reminder sent")
	return outcomeSent
}

func (m *Monitor) deliver(ctx context.Context, g core.UserGroup, today core.Date, compose func(core.DueSummary) (notify.Notification, error)) error {
	user, err := m.store.GetUser(ctx, g.UserID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	n, err := compose(core.BuildDueSummary(user, g.Items, today))
	if err != nil {
		return fmt.Errorf("compose: %w", err)
	}
	if m.dispatcher == nil {
		return errors.New("no dispatcher configured")
	}
	if err := m.dispatcher.Send(ctx, n); err != nil {
		return fmt.Errorf("dispatch %s: %w", n.Kind, err)
	}
	return nil
}
