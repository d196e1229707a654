package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/converse-demo/converse/internal/models"
	"github.com/converse-demo/converse/internal/store"
)

type mockStats struct {
	mock.Mock
}

func (m *mockStats) StatsSince(ctx context.Context, since time.Time) (*store.RunStats, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.RunStats), args.Error(1)
}

func (m *mockStats) TotalsSince(ctx context.Context, since time.Time) (*store.UsageTotals, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.UsageTotals), args.Error(1)
}

func (m *mockStats) TopUsersSince(ctx context.Context, since time.Time, limit int) ([]models.UserUsage, error) {
	args := m.Called(ctx, since, limit)
	return args.Get(0).([]models.UserUsage), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendReport(report *models.UsageReport) error {
	return m.Called(report).Error(0)
}

var fixedNow = time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)

func TestService_BuildReport(t *testing.T) {
	stats := &mockStats{}
	since := fixedNow.Add(-7 * 24 * time.Hour)

	stats.On("TotalsSince", mock.Anything, since).Return(&store.UsageTotals{Runs: 6, Messages: 80}, nil)
	stats.On("StatsSince", mock.Anything, since).Return(&store.RunStats{Completed: 6, Abandoned: 2, AvgQueryTimeMs: 1234.6}, nil)
	stats.On("TopUsersSince", mock.Anything, since, topUsersLimit).Return([]models.UserUsage{{UserID: 1, MemberID: "U1", Runs: 6, Messages: 80}}, nil)

	service := NewService("weekly", stats, stats, &mockNotifier{})
	service.now = func() time.Time { return fixedNow }

	report, err := service.BuildReport(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "weekly", report.Period)
	assert.Equal(t, since, report.Since)
	assert.Equal(t, 6, report.TotalRuns)
	assert.Equal(t, 80, report.TotalMessages)
	assert.Equal(t, int64(1235), report.AvgQueryTimeMs)
	assert.Equal(t, 2, report.AbandonedRuns)
	assert.Len(t, report.TopUsers, 1)
	stats.AssertExpectations(t)
}

func TestService_Window(t *testing.T) {
	assert.Equal(t, 24*time.Hour, NewService("daily", nil, nil, nil).Window())
	assert.Equal(t, 7*24*time.Hour, NewService("weekly", nil, nil, nil).Window())
}

func TestService_RunReport(t *testing.T) {
	stats := &mockStats{}
	stats.On("TotalsSince", mock.Anything, mock.Anything).Return(&store.UsageTotals{}, nil)
	stats.On("StatsSince", mock.Anything, mock.Anything).Return(&store.RunStats{}, nil)
	stats.On("TopUsersSince", mock.Anything, mock.Anything, mock.Anything).Return([]models.UserUsage{}, nil)

	notifier := &mockNotifier{}
	notifier.On("SendReport", mock.AnythingOfType("*models.UsageReport")).Return(nil).Once()

	service := NewService("daily", stats, stats, notifier)
	require.NoError(t, service.RunReport(context.Background()))
	notifier.AssertExpectations(t)
}

func TestService_RunReportErrors(t *testing.T) {
	t.Run("aggregation failure", func(t *testing.T) {
		stats := &mockStats{}
		stats.On("TotalsSince", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

		notifier := &mockNotifier{}
		service := NewService("daily", stats, stats, notifier)

		err := service.RunReport(context.Background())
		require.Error(t, err)
		notifier.AssertNotCalled(t, "SendReport", mock.Anything)
	})

	t.Run("delivery failure", func(t *testing.T) {
		stats := &mockStats{}
		stats.On("TotalsSince", mock.Anything, mock.Anything).Return(&store.UsageTotals{}, nil)
		stats.On("StatsSince", mock.Anything, mock.Anything).Return(&store.RunStats{}, nil)
		stats.On("TopUsersSince", mock.Anything, mock.Anything, mock.Anything).Return([]models.UserUsage{}, nil)

		notifier := &mockNotifier{}
		notifier.On("SendReport", mock.Anything).Return(errors.New("webhook down"))

		service := NewService("daily", stats, stats, notifier)
		err := service.RunReport(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to send report")
	})
}
