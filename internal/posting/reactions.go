package posting

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

// ReactionAdder adds a named emoji reaction to a message
type ReactionAdder interface {
	AddReaction(ctx context.Context, channelID, timestamp, name string) error
}

// ReactionResult lists which reactions landed
type ReactionResult struct {
	Applied []string
	Failed  []string
}

// ReactionApplier applies reactions best-effort
type ReactionApplier struct {
	platform ReactionAdder
}

// NewReactionApplier creates a new reaction applier
func NewReactionApplier(p ReactionAdder) *ReactionApplier {
	return &ReactionApplier{platform: p}
}

// NormalizeReaction strips surrounding colon delimiters and whitespace
func NormalizeReaction(name string) string {
	return strings.Trim(strings.TrimSpace(name), ":")
}

// Apply adds each reaction to the message independently. Failures are
// logged and do not stop the remaining reactions.
func (a *ReactionApplier) Apply(ctx context.Context, channelID, timestamp string, names []string) ReactionResult {
	var result ReactionResult
	for _, raw := range names {
		name := NormalizeReaction(raw)
		if name == "" {
			continue
		}
		if err := a.platform.AddReaction(ctx, channelID, timestamp, name); err != nil {
			logrus.WithFields(logrus.Fields{
				"channel":  channelID,
				"ts":       timestamp,
				"reaction": name,
			}).Warnf("Failed to add reaction: %v", err)
			result.Failed = append(result.Failed, name)
			continue
		}
		result.Applied = append(result.Applied, name)
	}
	return result
}
