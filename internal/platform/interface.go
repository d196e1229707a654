// Package platform wraps the messaging platform the bot posts into.
package platform

import (
	"context"

	"github.com/converse-demo/converse/internal/models"
)

// Provenance event types stamped on every generated message
const (
	EventMessagePosted = "converse_message_posted"
	EventReplyPosted   = "converse_reply_posted"
)

// Metadata is the provenance bag attached to a generated message
type Metadata struct {
	EventType string
	ActorID   string
	ActorName string
	Avatar    string
}

// OutgoingMessage is a message posted under a participant's display identity
type OutgoingMessage struct {
	Text     string
	Username string
	IconURL  string
	ThreadTS string
	Metadata *Metadata
}

// Platform is the subset of messaging platform operations the bot needs
type Platform interface {
	BotUserID(ctx context.Context) (string, error)

	// Channels
	ChannelInfo(ctx context.Context, channelID string) (*models.ChannelInfo, error)
	ChannelMembers(ctx context.Context, channelID string) ([]string, error)
	JoinChannel(ctx context.Context, channelID string) error
	SetPurpose(ctx context.Context, channelID, purpose string) error
	SetTopic(ctx context.Context, channelID, topic string) error
	CreateChannel(ctx context.Context, name string, private bool) (*models.ChannelInfo, error)

	// Users
	UserInfo(ctx context.Context, userID string) (*models.Participant, error)

	// Messages
	PostMessage(ctx context.Context, channelID string, msg OutgoingMessage) (string, error)
	AddReaction(ctx context.Context, channelID, timestamp, name string) error
	ThreadMessages(ctx context.Context, channelID, threadTS string) ([]models.ThreadMessage, error)

	// Canvases
	ChannelCanvasID(ctx context.Context, channelID string) (string, error)
	CreateChannelCanvas(ctx context.Context, channelID string, canvas models.Canvas) (string, error)
	EditCanvas(ctx context.Context, canvasID string, canvas models.Canvas) error
}
