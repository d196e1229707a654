package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/converse-demo/converse/internal/config"
	"github.com/converse-demo/converse/internal/models"
)

// mailSender is satisfied by *gomail.Dialer
type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Service handles sending notifications via various channels
type Service struct {
	config *config.Config
	client *resty.Client
	mailer mailSender
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message
type TeamsMessage struct {
	Type     string         `json:"@type"`
	Context  string         `json:"@context"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Sections []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle    string      `json:"activityTitle,omitempty"`
	ActivitySubtitle string      `json:"activitySubtitle,omitempty"`
	ActivityText     string      `json:"activityText,omitempty"`
	Facts            []TeamsFact `json:"facts,omitempty"`
	Markdown         bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
		mailer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
	}
}

// SendReport sends a report via configured notification channels
func (s *Service) SendReport(report *models.UsageReport) error {
	var errors []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.sendToTeams(report); err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Info("Successfully sent report to Teams")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(report); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Info("Successfully sent report via email")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (s *Service) sendToTeams(report *models.UsageReport) error {
	message := s.buildTeamsMessage(report)

	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func periodTitle(period string) string {
	if period == "" {
		return ""
	}
	return strings.ToUpper(period[:1]) + period[1:]
}

func (s *Service) buildTeamsMessage(report *models.UsageReport) *TeamsMessage {
	message := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   fmt.Sprintf("Converse Usage Report - %s", periodTitle(report.Period)),
		Text: fmt.Sprintf("%d runs generated %d messages since %s",
			report.TotalRuns, report.TotalMessages, report.Since.Format("Jan 2")),
	}

	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Summary",
		Facts: []TeamsFact{
			{Name: "Completed Runs", Value: fmt.Sprintf("%d", report.TotalRuns)},
			{Name: "Messages Posted", Value: fmt.Sprintf("%d", report.TotalMessages)},
			{Name: "Average Run Time", Value: formatMillis(report.AvgQueryTimeMs)},
			{Name: "Abandoned Runs", Value: fmt.Sprintf("%d", report.AbandonedRuns)},
			{Name: "Generated", Value: report.GeneratedAt.Format("2006-01-02 15:04:05 UTC")},
		},
		Markdown: true,
	})

	if len(report.TopUsers) > 0 {
		var lines []string
		for i, user := range report.TopUsers {
			lines = append(lines, fmt.Sprintf("%d. **%s** - %d messages in %d runs",
				i+1, userLabel(user), user.Messages, user.Runs))
		}

		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Top Users",
			ActivityText:  strings.Join(lines, "\n\n"),
			Markdown:      true,
		})
	}

	return message
}

func (s *Service) sendEmail(report *models.UsageReport) error {
	subject := fmt.Sprintf("Converse Usage Report - %s (%d messages)",
		periodTitle(report.Period), report.TotalMessages)

	htmlBody, err := s.buildEmailHTML(report)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", s.buildEmailText(report))
	m.AddAlternative("text/html", htmlBody)

	if err := s.mailer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

var emailTemplate = template.Must(template.New("email").Funcs(template.FuncMap{
	"title":  periodTitle,
	"millis": formatMillis,
	"user":   userLabel,
}).Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Converse Usage Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #4a154b; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        table { border-collapse: collapse; }
        td, th { padding: 6px 12px; border-bottom: 1px solid #ddd; text-align: left; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Converse Usage Report</h1>
        <p>{{.Period | title}} report generated on {{.GeneratedAt.Format "January 2, 2006 at 3:04 PM UTC"}}</p>
    </div>

    <div class="summary">
        <h2>Summary</h2>
        <p><strong>Completed Runs:</strong> {{.TotalRuns}}</p>
        <p><strong>Messages Posted:</strong> {{.TotalMessages}}</p>
        <p><strong>Average Run Time:</strong> {{millis .AvgQueryTimeMs}}</p>
        <p><strong>Abandoned Runs:</strong> {{.AbandonedRuns}}</p>
    </div>

    {{if .TopUsers}}
    <h2>Top Users</h2>
    <table>
        <tr><th>User</th><th>Runs</th><th>Messages</th></tr>
        {{range .TopUsers}}
        <tr><td>{{user .}}</td><td>{{.Runs}}</td><td>{{.Messages}}</td></tr>
        {{end}}
    </table>
    {{end}}

    <hr>
    <p><small>This report was generated automatically by Converse.</small></p>
</body>
</html>
`))

func (s *Service) buildEmailHTML(report *models.UsageReport) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, report); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Service) buildEmailText(report *models.UsageReport) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("Converse Usage Report - %s\n", periodTitle(report.Period)))
	text.WriteString(fmt.Sprintf("Generated: %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC")))

	text.WriteString("SUMMARY\n")
	text.WriteString("=======\n")
	text.WriteString(fmt.Sprintf("Completed Runs: %d\n", report.TotalRuns))
	text.WriteString(fmt.Sprintf("Messages Posted: %d\n", report.TotalMessages))
	text.WriteString(fmt.Sprintf("Average Run Time: %s\n", formatMillis(report.AvgQueryTimeMs)))
	text.WriteString(fmt.Sprintf("Abandoned Runs: %d\n", report.AbandonedRuns))

	if len(report.TopUsers) > 0 {
		text.WriteString("\nTOP USERS\n")
		text.WriteString("=========\n")
		for i, user := range report.TopUsers {
			text.WriteString(fmt.Sprintf("%d. %s - %d messages in %d runs\n", i+1, userLabel(user), user.Messages, user.Runs))
		}
	}

	text.WriteString("\n---\nThis report was generated automatically by Converse.\n")

	return text.String()
}

func formatMillis(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Round(time.Second).String()
}

func userLabel(user models.UserUsage) string {
	if user.MemberID != "" {
		return user.MemberID
	}
	return fmt.Sprintf("user %d", user.UserID)
}
