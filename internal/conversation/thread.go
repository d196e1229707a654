package conversation

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/converse-demo/converse/internal/generation"
	"github.com/converse-demo/converse/internal/history"
	"github.com/converse-demo/converse/internal/identity"
	"github.com/converse-demo/converse/internal/models"
	"github.com/converse-demo/converse/internal/platform"
)

// ExtendThread adds replies to an existing thread. Authors of earlier
// generated messages are recovered from their provenance metadata so the
// service sees who said what.
func (s *Service) ExtendThread(ctx context.Context, channelID, threadTS, initiatingUser string) (*models.GenerationSummary, error) {
	if threadTS == "" {
		return nil, &models.ValidationError{Field: "thread_ts", Reason: "is required"}
	}
	if initiatingUser == "" {
		return nil, &models.ValidationError{Field: "user", Reason: "is required"}
	}

	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	info, err := platform.EnsureMembership(ctx, s.platform, channelID)
	if err != nil {
		return nil, err
	}

	user, err := s.ResolveUser(ctx, initiatingUser)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrUnrecoverable, err)
	}

	return s.withHistory(ctx, channelID, user, nil, func(ctx context.Context, run *history.Run) (*models.GenerationSummary, error) {
		return s.extend(ctx, run, info, threadTS)
	})
}

func (s *Service) extend(ctx context.Context, run *history.Run, info *models.ChannelInfo, threadTS string) (*models.GenerationSummary, error) {
	thread, err := s.platform.ThreadMessages(ctx, run.ChannelID, threadTS)
	if err != nil {
		return nil, fmt.Errorf("failed to read thread %s: %w", threadTS, err)
	}
	if len(thread) == 0 {
		return nil, fmt.Errorf("thread %s has no messages", threadTS)
	}

	humans, err := platform.HumanParticipants(ctx, s.platform, run.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve participants: %w", err)
	}
	if len(humans) == 0 {
		return nil, fmt.Errorf("channel %s has no human members to post as", run.ChannelID)
	}

	st := &runState{
		run:       run,
		channelID: run.ChannelID,
		pool:      humans,
		pacer:     s.newPacer(),
		purpose:   info.Purpose,
		topic:     info.Topic,
		rng:       s.newRand(),
		summary:   &models.GenerationSummary{Participants: len(humans)},
	}

	replies, err := s.generator.GenerateReplies(ctx, generation.ReplyRequest{
		ChannelPurpose: st.purpose,
		ChannelTopic:   st.topic,
		Thread:         thread,
		ParticipantIDs: identity.IDs(humans),
		Count:          generation.ReasonableCount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate replies: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"channel":   st.channelID,
		"thread_ts": threadTS,
		"replies":   len(replies),
	}).Info("Extending thread")

	for j, reply := range replies {
		if err := s.postReply(ctx, st, 0, j, threadTS, reply); err != nil {
			return nil, err
		}
	}
	return st.summary, nil
}
