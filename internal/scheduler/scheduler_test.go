package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"expensetracker/internal/log"
	"expensetracker/internal/monitor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingScanner struct {
	calls atomic.Int32
	err   error
	panic bool
}

func (s *countingScanner) ForceCheck(ctx context.Context) (monitor.ScanReport, error) {
	s.calls.Add(1)
	if s.panic {
		panic("boom")
	}
	return monitor.ScanReport{Date: "2024-02-01"}, s.err
}

func TestNew_RegistersDefaultJobs(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	s, err := New(&countingScanner{}, loc, log.Discard())
	require.NoError(t, err)

	st := s.Status()
	assert.False(t, st.Running)
	assert.Equal(t, "IST", st.Location)
	require.Len(t, st.Jobs, 3)

	names := []string{st.Jobs[0].Name, st.Jobs[1].Name, st.Jobs[2].Name}
	assert.Equal(t, []string{"hourly_due_expense_check", "midnight_due_check", "morning_due_notification"}, names)

	for _, job := range st.Jobs {
		require.False(t, job.NextRun.IsZero(), job.Name)
		next := job.NextRun.In(loc)
		switch job.Name {
		case "hourly_due_expense_check":
			assert.Zero(t, next.Minute())
			assert.True(t, next.Hour() >= 8 && next.Hour() <= 20, "hour %d", next.Hour())
		case "midnight_due_check":
			assert.Equal(t, 0, next.Hour())
			assert.Equal(t, 1, next.Minute())
		case "morning_due_notification":
			assert.Equal(t, 9, next.Hour())
			assert.Zero(t, next.Minute())
		}
	}
}

func TestNew_InvalidSpec(t *testing.T) {
	_, err := NewWithJobs(&countingScanner{}, time.UTC, log.Discard(), []Job{{Name: "bad", Spec: "every tuesday"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

func TestRun_RecoversAndLogsFailures(t *testing.T) {
	tests := []struct {
		name    string
		scanner *countingScanner
	}{
		{"success", &countingScanner{}},
		{"error", &countingScanner{err: errors.New("database is locked")}},
		{"panic", &countingScanner{panic: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.scanner, time.UTC, log.Discard())
			require.NoError(t, err)

			assert.NotPanics(t, func() { s.run("hourly_due_expense_check") })
			assert.EqualValues(t, 1, tt.scanner.calls.Load())
		})
	}
}

func TestStartStop(t *testing.T) {
	scanner := &countingScanner{}
	s, err := NewWithJobs(scanner, time.UTC, log.Discard(), []Job{{Name: "tick", Spec: "@every 1s"}})
	require.NoError(t, err)

	s.Start()
	s.Start()
	assert.True(t, s.Status().Running)

	assert.Eventually(t, func() bool { return scanner.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.Status().Running)
}
