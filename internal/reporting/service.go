// Package reporting aggregates run analytics into periodic usage reports.
package reporting

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/converse-demo/converse/internal/models"
	"github.com/converse-demo/converse/internal/notifications"
	"github.com/converse-demo/converse/internal/store"
)

const topUsersLimit = 5

// HistoryStats aggregates history rows
type HistoryStats interface {
	StatsSince(ctx context.Context, since time.Time) (*store.RunStats, error)
}

// UsageStats aggregates analytics rows
type UsageStats interface {
	TotalsSince(ctx context.Context, since time.Time) (*store.UsageTotals, error)
	TopUsersSince(ctx context.Context, since time.Time, limit int) ([]models.UserUsage, error)
}

// Service builds and sends usage reports
type Service struct {
	period              string
	history             HistoryStats
	usage               UsageStats
	notificationService notifications.NotificationInterface
	now                 func() time.Time
}

// NewService creates a new reporting service for a "daily" or "weekly" period
func NewService(period string, history HistoryStats, usage UsageStats, notificationService notifications.NotificationInterface) *Service {
	return &Service{
		period:              period,
		history:             history,
		usage:               usage,
		notificationService: notificationService,
		now:                 time.Now,
	}
}

// Window is the length of time a report covers
func (s *Service) Window() time.Duration {
	if s.period == "daily" {
		return 24 * time.Hour
	}
	return 7 * 24 * time.Hour
}

// BuildReport aggregates the current reporting window
func (s *Service) BuildReport(ctx context.Context) (*models.UsageReport, error) {
	now := s.now().UTC()
	since := now.Add(-s.Window())

	totals, err := s.usage.TotalsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to total analytics: %w", err)
	}

	stats, err := s.history.StatsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate history: %w", err)
	}

	top, err := s.usage.TopUsersSince(ctx, since, topUsersLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank users: %w", err)
	}

	return &models.UsageReport{
		GeneratedAt:    now,
		Period:         s.period,
		Since:          since,
		TotalRuns:      int(totals.Runs),
		TotalMessages:  int(totals.Messages),
		AvgQueryTimeMs: int64(math.Round(stats.AvgQueryTimeMs)),
		AbandonedRuns:  int(stats.Abandoned),
		TopUsers:       top,
	}, nil
}

// RunReport builds the report for the current window and sends it
func (s *Service) RunReport(ctx context.Context) error {
	start := time.Now()
	logrus.Infof("Starting %s usage report", s.period)

	report, err := s.BuildReport(ctx)
	if err != nil {
		return err
	}

	if err := s.notificationService.SendReport(report); err != nil {
		return fmt.Errorf("failed to send report: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"runs":     report.TotalRuns,
		"messages": report.TotalMessages,
		"duration": time.Since(start).String(),
	}).Info("Usage report sent")
	return nil
}
