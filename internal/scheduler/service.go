package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	dailyReport  = "0 0 9 * * *"   // daily at 9 AM UTC
	weeklyReport = "0 0 9 * * MON" // Monday at 9 AM UTC
	hourlySweep  = "0 15 * * * *"
	jobTimeout   = 10 * time.Minute
)

// Reporter builds and sends a usage report
type Reporter interface {
	RunReport(ctx context.Context) error
}

// Sweeper removes history left open by crashed runs
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// Service handles scheduling of background jobs
type Service struct {
	schedule string
	reporter Reporter
	sweeper  Sweeper
	cron     *cron.Cron
}

// NewService creates a new scheduler service. reporter may be nil when no
// notification channel is configured.
func NewService(schedule string, reporter Reporter, sweeper Sweeper) *Service {
	return &Service{
		schedule: schedule,
		reporter: reporter,
		sweeper:  sweeper,
		cron:     cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC)),
	}
}

// ReportExpression is the cron expression of the report job
func ReportExpression(schedule string) string {
	if schedule == "daily" {
		return dailyReport
	}
	return weeklyReport
}

// Start registers the jobs and starts the scheduler
func (s *Service) Start() error {
	if s.reporter != nil {
		if _, err := s.cron.AddFunc(ReportExpression(s.schedule), s.runReport); err != nil {
			return err
		}
	}

	if _, err := s.cron.AddFunc(hourlySweep, s.runSweep); err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with %s reports (plus hourly history cleanup)", s.schedule)
	return nil
}

func (s *Service) runReport() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	logrus.Info("Starting scheduled usage report")
	if err := s.reporter.RunReport(ctx); err != nil {
		logrus.Errorf("Scheduled usage report failed: %v", err)
	}
}

func (s *Service) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.sweeper.Sweep(ctx); err != nil {
		logrus.Errorf("History cleanup failed: %v", err)
	}
}

// Stop stops the scheduler and waits for running jobs
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		logrus.Info("Scheduler stopped")
	}
}
