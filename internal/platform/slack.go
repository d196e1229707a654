package platform

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"

	"github.com/converse-demo/converse/internal/models"
)

// SlackPlatform implements Platform on top of slack-go
type SlackPlatform struct {
	api SlackAPI

	mu        sync.Mutex
	botUserID string
}

var _ Platform = (*SlackPlatform)(nil)

// NewSlackPlatform creates a Slack-backed platform. apiURL must end in a slash.
func NewSlackPlatform(token, apiURL string, debug bool) *SlackPlatform {
	client := slack.New(
		token,
		slack.OptionAPIURL(apiURL),
		slack.OptionDebug(debug),
	)
	return newSlackPlatform(client)
}

func newSlackPlatform(api SlackAPI) *SlackPlatform {
	return &SlackPlatform{api: api}
}

// BotUserID returns the bot's own member id. A successful lookup is cached
// for the lifetime of the platform; concurrent runs share it.
func (s *SlackPlatform) BotUserID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.botUserID != "" {
		return s.botUserID, nil
	}
	resp, err := s.api.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to identify bot user: %w", err)
	}
	s.botUserID = resp.UserID
	return s.botUserID, nil
}

func (s *SlackPlatform) ChannelInfo(ctx context.Context, channelID string) (*models.ChannelInfo, error) {
	ch, err := s.getChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return channelInfoFrom(ch), nil
}

func (s *SlackPlatform) getChannel(ctx context.Context, channelID string) (*slack.Channel, error) {
	ch, err := s.api.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{
		ChannelID:         channelID,
		IncludeNumMembers: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get channel info for %s: %w", channelID, err)
	}
	return ch, nil
}

func channelInfoFrom(ch *slack.Channel) *models.ChannelInfo {
	info := &models.ChannelInfo{
		ID:         ch.ID,
		Name:       ch.Name,
		Topic:      ch.Topic.Value,
		Purpose:    ch.Purpose.Value,
		IsPrivate:  ch.IsPrivate,
		NumMembers: ch.NumMembers,
	}
	if ch.Properties != nil {
		info.CanvasID = ch.Properties.Canvas.FileId
	}
	return info
}

func (s *SlackPlatform) ChannelMembers(ctx context.Context, channelID string) ([]string, error) {
	params := &slack.GetUsersInConversationParameters{ChannelID: channelID, Limit: 200}

	var members []string
	for {
		ids, cursor, err := s.api.GetUsersInConversationContext(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to list members of %s: %w", channelID, err)
		}
		members = append(members, ids...)
		if cursor == "" {
			return members, nil
		}
		params.Cursor = cursor
	}
}

func (s *SlackPlatform) JoinChannel(ctx context.Context, channelID string) error {
	if _, _, _, err := s.api.JoinConversationContext(ctx, channelID); err != nil {
		return fmt.Errorf("failed to join %s: %w", channelID, err)
	}
	logrus.Infof("Joined channel %s", channelID)
	return nil
}

func (s *SlackPlatform) SetPurpose(ctx context.Context, channelID, purpose string) error {
	if _, err := s.api.SetPurposeOfConversationContext(ctx, channelID, purpose); err != nil {
		return fmt.Errorf("failed to set purpose of %s: %w", channelID, err)
	}
	return nil
}

func (s *SlackPlatform) SetTopic(ctx context.Context, channelID, topic string) error {
	if _, err := s.api.SetTopicOfConversationContext(ctx, channelID, topic); err != nil {
		return fmt.Errorf("failed to set topic of %s: %w", channelID, err)
	}
	return nil
}

func (s *SlackPlatform) CreateChannel(ctx context.Context, name string, private bool) (*models.ChannelInfo, error) {
	ch, err := s.api.CreateConversationContext(ctx, slack.CreateConversationParams{
		ChannelName: name,
		IsPrivate:   private,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create channel %s: %w", name, err)
	}
	return channelInfoFrom(ch), nil
}

func (s *SlackPlatform) UserInfo(ctx context.Context, userID string) (*models.Participant, error) {
	u, err := s.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info for %s: %w", userID, err)
	}

	realName := u.RealName
	if realName == "" {
		realName = u.Profile.RealName
	}
	return &models.Participant{
		ID:           u.ID,
		Name:         u.Name,
		RealName:     realName,
		DisplayName:  u.Profile.DisplayName,
		Title:        u.Profile.Title,
		Avatar:       u.Profile.Image192,
		IsBot:        u.IsBot || u.ID == "USLACKBOT",
		TeamID:       u.TeamID,
		EnterpriseID: u.Enterprise.EnterpriseID,
	}, nil
}

func (s *SlackPlatform) PostMessage(ctx context.Context, channelID string, msg OutgoingMessage) (string, error) {
	_, ts, err := s.api.PostMessageContext(ctx, channelID, messageOptions(msg)...)
	if err != nil {
		return "", fmt.Errorf("failed to post to %s: %w", channelID, err)
	}
	return ts, nil
}

func messageOptions(msg OutgoingMessage) []slack.MsgOption {
	opts := []slack.MsgOption{slack.MsgOptionText(msg.Text, false)}
	if msg.Username != "" {
		opts = append(opts, slack.MsgOptionUsername(msg.Username))
	}
	if msg.IconURL != "" {
		opts = append(opts, slack.MsgOptionIconURL(msg.IconURL))
	}
	if msg.ThreadTS != "" {
		opts = append(opts, slack.MsgOptionTS(msg.ThreadTS))
	}
	if msg.Metadata != nil {
		opts = append(opts, slack.MsgOptionMetadata(slack.SlackMetadata{
			EventType: msg.Metadata.EventType,
			EventPayload: map[string]interface{}{
				"actor_id":   msg.Metadata.ActorID,
				"actor_name": msg.Metadata.ActorName,
				"avatar":     msg.Metadata.Avatar,
			},
		}))
	}
	return opts
}

func (s *SlackPlatform) AddReaction(ctx context.Context, channelID, timestamp, name string) error {
	if err := s.api.AddReactionContext(ctx, name, slack.NewRefToMessage(channelID, timestamp)); err != nil {
		return fmt.Errorf("failed to add reaction %s: %w", name, err)
	}
	return nil
}

// ThreadMessages reads a thread including message metadata. Bot-posted
// messages are re-identified from the provenance actor id when present.
func (s *SlackPlatform) ThreadMessages(ctx context.Context, channelID, threadTS string) ([]models.ThreadMessage, error) {
	params := &slack.GetConversationRepliesParameters{
		ChannelID:          channelID,
		Timestamp:          threadTS,
		Inclusive:          true,
		Limit:              200,
		IncludeAllMetadata: true,
	}

	var thread []models.ThreadMessage
	for {
		msgs, hasMore, cursor, err := s.api.GetConversationRepliesContext(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to read thread %s in %s: %w", threadTS, channelID, err)
		}
		for _, msg := range msgs {
			thread = append(thread, threadMessageFrom(msg))
		}
		if !hasMore || cursor == "" {
			return thread, nil
		}
		params.Cursor = cursor
	}
}

func threadMessageFrom(msg slack.Message) models.ThreadMessage {
	tm := models.ThreadMessage{
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
	}

	if msg.SubType != slack.MsgSubTypeBotMessage {
		tm.AuthorType = "user"
		tm.AuthorID = msg.User
		return tm
	}

	tm.AuthorType = "bot"
	switch msg.Metadata.EventType {
	case EventMessagePosted, EventReplyPosted:
		if actor, ok := msg.Metadata.EventPayload["actor_id"].(string); ok {
			tm.AuthorID = actor
		}
	}
	return tm
}

func (s *SlackPlatform) ChannelCanvasID(ctx context.Context, channelID string) (string, error) {
	ch, err := s.getChannel(ctx, channelID)
	if err != nil {
		return "", err
	}
	return channelInfoFrom(ch).CanvasID, nil
}

func (s *SlackPlatform) CreateChannelCanvas(ctx context.Context, channelID string, canvas models.Canvas) (string, error) {
	id, err := s.api.CreateChannelCanvasContext(ctx, channelID, markdownContent(canvas.Body))
	if err != nil {
		return "", fmt.Errorf("failed to create canvas in %s: %w", channelID, err)
	}
	return id, nil
}

func (s *SlackPlatform) EditCanvas(ctx context.Context, canvasID string, canvas models.Canvas) error {
	err := s.api.EditCanvasContext(ctx, slack.EditCanvasParams{
		CanvasID: canvasID,
		Changes: []slack.CanvasChange{
			{Operation: "replace", DocumentContent: markdownContent(canvas.Body)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to edit canvas %s: %w", canvasID, err)
	}
	return nil
}

func markdownContent(body string) slack.DocumentContent {
	return slack.DocumentContent{Type: "markdown", Markdown: body}
}
