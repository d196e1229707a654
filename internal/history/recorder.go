// Package history brackets a generation run with its bookkeeping rows.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/converse-demo/converse/internal/models"
)

// HistoryStore persists history rows
type HistoryStore interface {
	Create(ctx context.Context, record *models.HistoryRecord) error
	SetQueryTime(ctx context.Context, id uint, ms int64) error
	Delete(ctx context.Context, id uint) error
}

// AnalyticsStore appends analytics rows
type AnalyticsStore interface {
	Create(ctx context.Context, record *models.AnalyticsRecord) error
}

// Run is an open history bracket
type Run struct {
	ID        uint
	ChannelID string
	UserID    uint
	StartedAt time.Time
}

// Recorder opens and closes history brackets
type Recorder struct {
	history   HistoryStore
	analytics AnalyticsStore
	now       func() time.Time
}

// NewRecorder creates a new recorder
func NewRecorder(history HistoryStore, analytics AnalyticsStore) *Recorder {
	return &Recorder{
		history:   history,
		analytics: analytics,
		now:       time.Now,
	}
}

// Open inserts a history row with a null query time. definitionID may be nil.
func (r *Recorder) Open(ctx context.Context, channelID string, userID uint, definitionID *uint) (*Run, error) {
	started := r.now()
	record := &models.HistoryRecord{
		ConversationID: definitionID,
		ChannelID:      channelID,
		UserID:         userID,
		CreatedAt:      started.UTC(),
	}
	if err := r.history.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"history_id": record.ID,
		"channel":    channelID,
	}).Debug("Opened history")

	return &Run{
		ID:        record.ID,
		ChannelID: channelID,
		UserID:    userID,
		StartedAt: started,
	}, nil
}

// Close stamps the elapsed time on the history row and appends one
// analytics row for messagesSent. It returns the elapsed time.
func (r *Recorder) Close(ctx context.Context, run *Run, messagesSent int) (time.Duration, error) {
	elapsed := r.now().Sub(run.StartedAt)
	if err := r.history.SetQueryTime(ctx, run.ID, elapsed.Milliseconds()); err != nil {
		return elapsed, fmt.Errorf("failed to close history %d: %w", run.ID, err)
	}

	if err := r.analytics.Create(ctx, &models.AnalyticsRecord{
		UserID:    run.UserID,
		Messages:  messagesSent,
		CreatedAt: r.now().UTC(),
	}); err != nil {
		return elapsed, fmt.Errorf("failed to write analytics for history %d: %w", run.ID, err)
	}

	logrus.WithFields(logrus.Fields{
		"history_id": run.ID,
		"messages":   messagesSent,
		"elapsed":    elapsed.String(),
	}).Info("Closed history")

	return elapsed, nil
}

// Discard deletes the history row of a run that did not complete. Messages
// already posted stay on the platform.
func (r *Recorder) Discard(ctx context.Context, run *Run) error {
	if run == nil {
		return nil
	}
	if err := r.history.Delete(ctx, run.ID); err != nil {
		return fmt.Errorf("failed to discard history %d: %w", run.ID, err)
	}
	logrus.WithField("history_id", run.ID).Warn("Discarded history of aborted run")
	return nil
}
