package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/converse-demo/converse/internal/models"
	"github.com/converse-demo/converse/internal/notifications"
	"github.com/converse-demo/converse/internal/reporting"
	"github.com/converse-demo/converse/internal/store"
)

var (
	reportPeriod string
	reportSend   bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build the usage report and print or send it",
	Long: `Build the usage report for the last day or week.

By default the report is printed. With --send it goes to the configured
Teams webhook and email recipients instead.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportPeriod, "period", "", "Report period (daily, weekly); defaults to REPORT_SCHEDULE")
	reportCmd.Flags().BoolVar(&reportSend, "send", false, "Send the report to the configured channels")
}

// terminalNotifier prints reports instead of sending them
type terminalNotifier struct{}

var _ notifications.NotificationInterface = (*terminalNotifier)(nil)

func (t *terminalNotifier) SendReport(report *models.UsageReport) error {
	if jsonOutput {
		return printJSON(report)
	}

	fmt.Println(strings.Repeat("=", 60))
	fmt.Println(boldStyle.Render("Conversation generation usage (" + report.Period + ")"))
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Since:          %s\n", report.Since.Format("2006-01-02 15:04 UTC"))
	fmt.Printf("Generated:      %s\n", report.GeneratedAt.Format("2006-01-02 15:04 UTC"))
	fmt.Printf("Runs:           %d\n", report.TotalRuns)
	fmt.Printf("Messages:       %d\n", report.TotalMessages)
	fmt.Printf("Avg run time:   %s\n", time.Duration(report.AvgQueryTimeMs)*time.Millisecond)
	if report.AbandonedRuns > 0 {
		fmt.Println(warnStyle.Render(fmt.Sprintf("Abandoned runs: %d", report.AbandonedRuns)))
	}

	if len(report.TopUsers) > 0 {
		fmt.Println()
		fmt.Println(boldStyle.Render("Top users"))
		for i, u := range report.TopUsers {
			who := u.MemberID
			if who == "" {
				who = fmt.Sprintf("user %d", u.UserID)
			}
			fmt.Printf("  %d. %-14s %d runs, %d messages\n", i+1, who, u.Runs, u.Messages)
		}
	}
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	period := reportPeriod
	if period == "" {
		period = a.cfg.ReportSchedule
	}

	var notifier notifications.NotificationInterface = &terminalNotifier{}
	if reportSend {
		if !a.cfg.NotificationsEnabled() {
			return fmt.Errorf("no notification channel configured: set TEAMS_WEBHOOK_URL or NOTIFICATION_EMAIL")
		}
		notifier = notifications.NewService(a.cfg)
	}

	reporter := reporting.NewService(period, store.NewHistoryRepository(a.repo), store.NewAnalyticsRepository(a.repo), notifier)
	if err := reporter.RunReport(ctx); err != nil {
		return err
	}
	if reportSend && !jsonOutput {
		fmt.Println(passStyle.Render("Report sent"))
	}
	return nil
}
