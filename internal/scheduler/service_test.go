package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReporter struct {
	calls int
	err   error
}

func (r *countingReporter) RunReport(ctx context.Context) error {
	r.calls++
	return r.err
}

type countingSweeper struct {
	calls int
}

func (s *countingSweeper) Sweep(ctx context.Context) (int64, error) {
	s.calls++
	return 0, nil
}

func TestReportExpression(t *testing.T) {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

	for _, schedule := range []string{"daily", "weekly", ""} {
		_, err := parser.Parse(ReportExpression(schedule))
		assert.NoError(t, err, schedule)
	}
	_, err := parser.Parse(hourlySweep)
	assert.NoError(t, err)

	assert.Equal(t, dailyReport, ReportExpression("daily"))
	assert.Equal(t, weeklyReport, ReportExpression("weekly"))
}

func TestService_StartRegistersJobs(t *testing.T) {
	service := NewService("daily", &countingReporter{}, &countingSweeper{})
	require.NoError(t, service.Start())
	defer service.Stop()

	assert.Len(t, service.cron.Entries(), 2)
}

func TestService_StartWithoutReporter(t *testing.T) {
	service := NewService("weekly", nil, &countingSweeper{})
	require.NoError(t, service.Start())
	defer service.Stop()

	assert.Len(t, service.cron.Entries(), 1)
}

func TestService_Jobs(t *testing.T) {
	reporter := &countingReporter{err: errors.New("webhook down")}
	sweeper := &countingSweeper{}
	service := NewService("weekly", reporter, sweeper)

	service.runReport()
	service.runSweep()

	assert.Equal(t, 1, reporter.calls)
	assert.Equal(t, 1, sweeper.calls)
}
