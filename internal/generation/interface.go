// Package generation talks to the language-model service that writes the
// demo content.
package generation

import (
	"context"
	"encoding/json"

	"github.com/converse-demo/converse/internal/models"
)

// ReasonableCount lets the service choose how many replies to write
const ReasonableCount = -1

// PostRequest asks for one root post
type PostRequest struct {
	Params         models.GenerationParameters
	ParticipantIDs []string
	Author         string // suggested author id
	Topic          string
	ChannelPurpose string
	ChannelTopic   string
}

// ReplyRequest asks for replies to an existing thread
type ReplyRequest struct {
	ChannelPurpose string
	ChannelTopic   string
	Thread         []models.ThreadMessage
	ParticipantIDs []string
	Count          int // exact count, or ReasonableCount
	Tone           models.Tone
	EmojiDensity   models.EmojiDensity
	CustomPrompt   string
}

// CanvasRequest asks for a channel canvas
type CanvasRequest struct {
	ChannelName    string
	Purpose        string
	Topic          string
	ParticipantIDs []string
}

// Generator produces structured demo content
type Generator interface {
	GeneratePost(ctx context.Context, req PostRequest) (models.GeneratedPost, error)
	GenerateReplies(ctx context.Context, req ReplyRequest) ([]models.GeneratedReply, error)
	GenerateCanvas(ctx context.Context, req CanvasRequest) (models.Canvas, error)
	GenerateChannelSet(ctx context.Context, customerName, useCase string) ([]models.ChannelSpec, error)
	DesignChannel(ctx context.Context, name, topic, description string) (models.ChannelDesign, error)
}

// Tool is a structured-output schema the service is forced to call
type Tool struct {
	Name        string
	Description string
	Properties  map[string]interface{}
	Required    []string
}

// InputSchema renders the tool's JSON schema
func (t Tool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": t.Properties,
		"required":   t.Required,
	}
}

// ToolCall is one forced-tool request
type ToolCall struct {
	System    string
	Prompt    string
	Tool      Tool
	MaxTokens int
}

// Backend performs a ToolCall and returns the tool input object the model produced
type Backend interface {
	Name() string
	Invoke(ctx context.Context, call ToolCall) (json.RawMessage, error)
}
