// Package notifications delivers usage reports to Teams and email.
package notifications

import "github.com/converse-demo/converse/internal/models"

// NotificationInterface defines the contract for notification services
type NotificationInterface interface {
	SendReport(report *models.UsageReport) error
}
