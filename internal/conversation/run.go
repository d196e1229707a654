package conversation

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/converse-demo/converse/internal/generation"
	"github.com/converse-demo/converse/internal/history"
	"github.com/converse-demo/converse/internal/identity"
	"github.com/converse-demo/converse/internal/models"
	"github.com/converse-demo/converse/internal/pacing"
	"github.com/converse-demo/converse/internal/platform"
)

// runState is the per-run working set. The participant pool is fixed once
// resolved.
type runState struct {
	run       *history.Run
	channelID string
	params    models.GenerationParameters
	pool      []models.Participant
	pacer     pacing.Pacer
	purpose   string
	topic     string
	topics    []string
	rng       *rand.Rand
	summary   *models.GenerationSummary
	progress  ProgressFunc
}

// RunGeneration validates raw, makes sure the bot can post into channelID
// and generates a conversation there on behalf of initiatingUser.
//
// Validation and membership failures are returned before any history is
// written. Anything else that stops the run discards its history row and
// is returned wrapped in models.ErrUnrecoverable; messages already posted
// stay on the platform.
func (s *Service) RunGeneration(ctx context.Context, raw models.RawParameters, channelID, initiatingUser string, progress ProgressFunc) (*models.GenerationSummary, error) {
	params, err := raw.Validate()
	if err != nil {
		return nil, err
	}
	if initiatingUser == "" {
		return nil, &models.ValidationError{Field: "user", Reason: "is required"}
	}

	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	progress.report(Progress{Stage: StageStarting, Detail: "checking channel access"})
	info, err := platform.EnsureMembership(ctx, s.platform, channelID)
	if err != nil {
		return nil, err
	}

	user, err := s.ResolveUser(ctx, initiatingUser)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrUnrecoverable, err)
	}

	return s.withHistory(ctx, channelID, user, params.DefinitionID, func(ctx context.Context, run *history.Run) (*models.GenerationSummary, error) {
		return s.generate(ctx, run, info, params, progress)
	})
}

// RunDefinition runs a stored conversation definition
func (s *Service) RunDefinition(ctx context.Context, definitionID uint, channelID, initiatingUser string, progress ProgressFunc) (*models.GenerationSummary, error) {
	if s.definitions == nil {
		return nil, fmt.Errorf("conversation definitions are not configured")
	}

	def, err := s.definitions.GetByID(ctx, definitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load definition %d: %w", definitionID, err)
	}
	if def == nil {
		return nil, &models.ValidationError{Field: "definition_id", Reason: fmt.Sprintf("definition %d does not exist", definitionID)}
	}

	raw := def.Parameters.Data()
	raw.DefinitionID = &def.ID
	return s.RunGeneration(ctx, raw, channelID, initiatingUser, progress)
}

// withHistory opens a history row, runs body and closes the row with the
// number of messages body posted. If body fails, or the row cannot be
// closed, the row is deleted again.
func (s *Service) withHistory(ctx context.Context, channelID string, user *models.User, definitionID *uint, body func(context.Context, *history.Run) (*models.GenerationSummary, error)) (*models.GenerationSummary, error) {
	run, err := s.recorder.Open(ctx, channelID, user.ID, definitionID)
	if err != nil {
		s.recordRun(nil, err)
		return nil, fmt.Errorf("%w: %w", models.ErrUnrecoverable, err)
	}

	summary, err := body(ctx, run)
	if err == nil {
		summary.Duration, err = s.recorder.Close(ctx, run, summary.MessagesSent())
	}
	if err != nil {
		// the caller's context may already be done; the row still has to go
		if discardErr := s.recorder.Discard(context.WithoutCancel(ctx), run); discardErr != nil {
			logrus.Errorf("Failed to discard history %d: %v", run.ID, discardErr)
		}
		s.recordRun(nil, err)
		logrus.WithFields(logrus.Fields{
			"channel":    channelID,
			"history_id": run.ID,
		}).Errorf("Generation run aborted: %v", err)
		return nil, fmt.Errorf("%w: %w", models.ErrUnrecoverable, err)
	}

	summary.HistoryID = run.ID
	summary.ChannelID = channelID

	if s.archive != nil {
		if err := s.archive.ArchiveTranscript(ctx, summary); err != nil {
			logrus.WithField("history_id", run.ID).Warnf("Failed to archive transcript: %v", err)
		}
	}

	s.recordRun(summary, nil)
	logrus.WithFields(logrus.Fields{
		"channel":    channelID,
		"history_id": run.ID,
		"posts":      summary.PostsSent,
		"replies":    summary.RepliesSent,
		"duration":   summary.FormattedDuration(),
	}).Info("Generation run completed")

	return summary, nil
}

func (s *Service) generate(ctx context.Context, run *history.Run, info *models.ChannelInfo, params models.GenerationParameters, progress ProgressFunc) (*models.GenerationSummary, error) {
	humans, err := platform.HumanParticipants(ctx, s.platform, run.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve participants: %w", err)
	}
	if len(humans) == 0 {
		return nil, fmt.Errorf("channel %s has no human members to post as", run.ChannelID)
	}

	rng := s.newRand()
	st := &runState{
		run:       run,
		channelID: run.ChannelID,
		params:    params,
		pool:      sampleParticipants(rng, humans, params.Participants),
		pacer:     s.newPacer(),
		rng:       rng,
		summary:   &models.GenerationSummary{},
		progress:  progress,
	}
	st.summary.Participants = len(st.pool)

	st.purpose, st.topic = s.syncChannelDetails(ctx, info, params)
	st.topics = params.Topics
	if len(st.topics) == 0 && st.topic != "" {
		st.topics = []string{st.topic}
	}
	st.summary.Topics = st.topics

	if params.Canvas {
		progress.report(Progress{Stage: StageCanvas, Detail: "writing channel canvas"})
		st.summary.CanvasStatus = s.applyCanvas(ctx, info, st.purpose, st.topic, firstParticipants(st.pool, maxCanvasParticipants), rng)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	st.summary.PostsPlanned = sampleRange(rng, params.Posts)
	logrus.WithFields(logrus.Fields{
		"channel":      st.channelID,
		"history_id":   run.ID,
		"participants": len(st.pool),
		"posts":        st.summary.PostsPlanned,
	}).Info("Starting generation")

	for i := 0; i < st.summary.PostsPlanned; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.runPost(ctx, st, i); err != nil {
			return nil, err
		}
		progress.report(Progress{
			Stage:        StagePosting,
			PostsDone:    i + 1,
			PostsPlanned: st.summary.PostsPlanned,
			RepliesSent:  st.summary.RepliesSent,
		})
	}

	progress.report(Progress{
		Stage:        StageDone,
		PostsDone:    st.summary.PostsSent,
		PostsPlanned: st.summary.PostsPlanned,
		RepliesSent:  st.summary.RepliesSent,
	})
	return st.summary, nil
}

// runPost generates, posts and extends one root post. Per-item failures are
// recorded on the summary; only context errors are returned.
func (s *Service) runPost(ctx context.Context, st *runState, index int) error {
	log := logrus.WithFields(logrus.Fields{
		"channel":    st.channelID,
		"post_index": index,
	})

	post, err := s.generator.GeneratePost(ctx, generation.PostRequest{
		Params:         st.params,
		ParticipantIDs: identity.IDs(st.pool),
		Author:         st.pool[st.rng.Intn(len(st.pool))].ID,
		Topic:          pickTopic(st.rng, st.topics),
		ChannelPurpose: st.purpose,
		ChannelTopic:   st.topic,
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Errorf("Failed to generate post: %v", err)
		s.skip(st, models.ItemResult{Kind: models.ItemPost, PostIndex: index, Status: models.ItemFailed}, "generation", err)
		return nil
	}

	item := models.ItemResult{
		Kind:        models.ItemPost,
		PostIndex:   index,
		AuthorToken: post.Author,
		Message:     post.Message,
	}

	author, err := identity.Resolve(post.Author, st.pool)
	if err != nil {
		log.WithField("author", post.Author).Warnf("Skipping post: %v", err)
		item.Status = models.ItemSkipped
		s.skip(st, item, "identity", err)
		return nil
	}
	item.AuthorID = author.ID

	if err := st.pacer.Wait(ctx); err != nil {
		return err
	}
	result := s.poster.Post(ctx, st.channelID, post.Message, author, "", st.run.ID)
	if !result.OK() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		item.Status = models.ItemFailed
		s.skip(st, item, "posting", result.Err)
		return nil
	}

	st.summary.PostsSent++
	s.collectors.messages.WithLabelValues(string(models.ItemPost)).Inc()
	reactions := s.reactions.Apply(ctx, st.channelID, result.Timestamp, post.Reactions)

	item.Status = models.ItemPosted
	item.Timestamp = result.Timestamp
	item.Reactions = reactions.Applied
	item.FailedReactions = reactions.Failed
	st.summary.Items = append(st.summary.Items, item)

	count := sampleRange(st.rng, st.params.Replies)
	if count == 0 {
		return nil
	}

	replies, err := s.generator.GenerateReplies(ctx, generation.ReplyRequest{
		ChannelPurpose: st.purpose,
		ChannelTopic:   st.topic,
		Thread: []models.ThreadMessage{{
			Text:       post.Message,
			AuthorType: "user",
			AuthorID:   author.ID,
			Timestamp:  result.Timestamp,
		}},
		ParticipantIDs: identity.IDs(st.pool),
		Count:          count,
		Tone:           st.params.Tone,
		EmojiDensity:   st.params.EmojiDensity,
		CustomPrompt:   st.params.CustomPrompt,
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Errorf("Failed to generate replies: %v", err)
		s.skip(st, models.ItemResult{
			Kind:            models.ItemReply,
			PostIndex:       index,
			ThreadTimestamp: result.Timestamp,
			Status:          models.ItemFailed,
		}, "generation", err)
		return nil
	}

	for j, reply := range replies {
		if err := s.postReply(ctx, st, index, j, result.Timestamp, reply); err != nil {
			return err
		}
	}
	return nil
}

// postReply posts one reply into threadTS. Only context errors are returned.
func (s *Service) postReply(ctx context.Context, st *runState, postIndex, replyIndex int, threadTS string, reply models.GeneratedReply) error {
	item := models.ItemResult{
		Kind:            models.ItemReply,
		PostIndex:       postIndex,
		ReplyIndex:      replyIndex,
		AuthorToken:     reply.Author,
		ThreadTimestamp: threadTS,
		Message:         reply.Message,
	}

	author, err := identity.Resolve(reply.Author, st.pool)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"channel":     st.channelID,
			"post_index":  postIndex,
			"reply_index": replyIndex,
			"author":      reply.Author,
		}).Warnf("Skipping reply: %v", err)
		item.Status = models.ItemSkipped
		s.skip(st, item, "identity", err)
		return nil
	}
	item.AuthorID = author.ID

	if err := st.pacer.Wait(ctx); err != nil {
		return err
	}
	result := s.poster.Post(ctx, st.channelID, reply.Message, author, threadTS, st.run.ID)
	if !result.OK() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		item.Status = models.ItemFailed
		s.skip(st, item, "posting", result.Err)
		return nil
	}

	st.summary.RepliesSent++
	s.collectors.messages.WithLabelValues(string(models.ItemReply)).Inc()
	reactions := s.reactions.Apply(ctx, st.channelID, result.Timestamp, reply.Reactions)

	item.Status = models.ItemPosted
	item.Timestamp = result.Timestamp
	item.Reactions = reactions.Applied
	item.FailedReactions = reactions.Failed
	st.summary.Items = append(st.summary.Items, item)
	return nil
}

func (s *Service) skip(st *runState, item models.ItemResult, reason string, err error) {
	if err != nil {
		item.Error = err.Error()
	}
	if item.Status == "" {
		item.Status = models.ItemSkipped
	}
	st.summary.Items = append(st.summary.Items, item)
	s.collectors.skipped.WithLabelValues(string(item.Kind), reason).Inc()
}

// syncChannelDetails pushes a requested purpose or topic to the channel and
// returns the values generation should use. Updates are best-effort.
func (s *Service) syncChannelDetails(ctx context.Context, info *models.ChannelInfo, params models.GenerationParameters) (purpose, topic string) {
	purpose, topic = info.Purpose, info.Topic

	if params.ChannelPurpose != "" && params.ChannelPurpose != info.Purpose {
		if err := s.platform.SetPurpose(ctx, info.ID, params.ChannelPurpose); err != nil {
			logrus.WithField("channel", info.ID).Warnf("Failed to set channel purpose: %v", err)
		}
		purpose = params.ChannelPurpose
	}
	if params.ChannelTopic != "" && params.ChannelTopic != info.Topic {
		if err := s.platform.SetTopic(ctx, info.ID, params.ChannelTopic); err != nil {
			logrus.WithField("channel", info.ID).Warnf("Failed to set channel topic: %v", err)
		}
		topic = params.ChannelTopic
	}
	return purpose, topic
}

// ResolveUser maps a platform member id to an internal user, creating the
// user on first sight
func (s *Service) ResolveUser(ctx context.Context, memberID string) (*models.User, error) {
	if memberID == "" {
		return nil, &models.ValidationError{Field: "user", Reason: "is required"}
	}

	user, err := s.users.GetByMemberID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user %s: %w", memberID, err)
	}
	if user != nil {
		return user, nil
	}

	user = &models.User{MemberID: memberID}
	if profile, err := s.platform.UserInfo(ctx, memberID); err != nil {
		logrus.Warnf("Failed to read profile of %s: %v", memberID, err)
	} else {
		user.TeamID = profile.TeamID
		user.EnterpriseID = profile.EnterpriseID
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", memberID, err)
	}
	return user, nil
}
