package platform

import (
	"context"

	"github.com/slack-go/slack"
)

// SlackAPI abstracts the subset of slack.Client methods used by SlackPlatform.
// This allows tests to substitute a mock implementation without a live Slack connection.
type SlackAPI interface {
	AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error)

	// Messaging
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	AddReactionContext(ctx context.Context, name string, item slack.ItemRef) error
	GetConversationRepliesContext(ctx context.Context, params *slack.GetConversationRepliesParameters) ([]slack.Message, bool, string, error)

	// Conversations
	GetConversationInfoContext(ctx context.Context, input *slack.GetConversationInfoInput) (*slack.Channel, error)
	GetUsersInConversationContext(ctx context.Context, params *slack.GetUsersInConversationParameters) ([]string, string, error)
	JoinConversationContext(ctx context.Context, channelID string) (*slack.Channel, string, []string, error)
	SetPurposeOfConversationContext(ctx context.Context, channelID, purpose string) (*slack.Channel, error)
	SetTopicOfConversationContext(ctx context.Context, channelID, topic string) (*slack.Channel, error)
	CreateConversationContext(ctx context.Context, params slack.CreateConversationParams) (*slack.Channel, error)

	// Users
	GetUserInfoContext(ctx context.Context, userID string) (*slack.User, error)

	// Canvases
	CreateChannelCanvasContext(ctx context.Context, channelID string, documentContent slack.DocumentContent) (string, error)
	EditCanvasContext(ctx context.Context, params slack.EditCanvasParams) error
}

var _ SlackAPI = (*slack.Client)(nil)
