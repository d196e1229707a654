// Package posting puts generated messages and reactions on the platform.
package posting

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/converse-demo/converse/internal/models"
	"github.com/converse-demo/converse/internal/platform"
)

// MessagePoster posts a message and returns its platform timestamp
type MessagePoster interface {
	PostMessage(ctx context.Context, channelID string, msg platform.OutgoingMessage) (string, error)
}

// MessageStore records posted messages
type MessageStore interface {
	Create(ctx context.Context, record *models.MessageRecord) error
}

// Result is the outcome of a single post
type Result struct {
	Timestamp string
	Err       error
}

// OK reports whether the message reached the platform
func (r Result) OK() bool {
	return r.Err == nil && r.Timestamp != ""
}

// Poster posts messages under a participant's display identity
type Poster struct {
	platform MessagePoster
	messages MessageStore
}

// NewPoster creates a new poster
func NewPoster(p MessagePoster, messages MessageStore) *Poster {
	return &Poster{platform: p, messages: messages}
}

// Post sends body as participant. A non-empty threadTS posts into that
// thread. On success a message row is recorded against historyID, which may
// be zero for messages outside a run.
func (p *Poster) Post(ctx context.Context, channelID, body string, participant models.Participant, threadTS string, historyID uint) Result {
	eventType := platform.EventMessagePosted
	if threadTS != "" {
		eventType = platform.EventReplyPosted
	}

	ts, err := p.platform.PostMessage(ctx, channelID, platform.OutgoingMessage{
		Text:     body,
		Username: participant.PostingName(),
		IconURL:  participant.Avatar,
		ThreadTS: threadTS,
		Metadata: &platform.Metadata{
			EventType: eventType,
			ActorID:   participant.ID,
			ActorName: participant.PostingName(),
			Avatar:    participant.Avatar,
		},
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"channel":   channelID,
			"author":    participant.ID,
			"thread_ts": threadTS,
		}).Errorf("Failed to post message: %v", err)
		return Result{Err: fmt.Errorf("%w: %v", models.ErrPosting, err)}
	}

	record := &models.MessageRecord{MessageTS: ts, HistoryID: historyID}
	if err := p.messages.Create(ctx, record); err != nil {
		// the message is live; only the bookkeeping is short
		logrus.WithFields(logrus.Fields{
			"channel":    channelID,
			"ts":         ts,
			"history_id": historyID,
		}).Errorf("Failed to record message: %v", err)
	}

	return Result{Timestamp: ts}
}
