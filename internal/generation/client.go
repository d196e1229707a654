package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/converse-demo/converse/internal/models"
)

const retryMaxElapsed = 90 * time.Second

// Client builds prompts and tool schemas and decodes the structured output
type Client struct {
	backend    Backend
	maxTokens  int
	maxRetries int

	// newBackOff returns a fresh policy per call; BackOff values are stateful
	newBackOff func() backoff.BackOff
}

var _ Generator = (*Client)(nil)

// NewClient creates a generation client on top of backend
func NewClient(backend Backend, maxTokens, maxRetries int) *Client {
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		backend:    backend,
		maxTokens:  maxTokens,
		maxRetries: maxRetries,
		newBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = time.Second
			bo.MaxElapsedTime = retryMaxElapsed
			return bo
		},
	}
}

func (c *Client) GeneratePost(ctx context.Context, req PostRequest) (models.GeneratedPost, error) {
	if len(req.ParticipantIDs) == 0 {
		return models.GeneratedPost{}, &models.ValidationError{Field: "participants", Reason: "must not be empty"}
	}

	prompt, err := renderPrompt("post", postPromptData{
		PostRequest:  req,
		Industry:     req.Params.Industry,
		CompanyName:  req.Params.CompanyName,
		Sentences:    req.Params.PostLength.Sentences(),
		Tone:         req.Params.Tone,
		EmojiDensity: req.Params.EmojiDensity,
		CustomPrompt: req.Params.CustomPrompt,
	})
	if err != nil {
		return models.GeneratedPost{}, err
	}

	var post models.GeneratedPost
	if err := c.call(ctx, ToolCall{System: conversationSystem, Prompt: prompt, Tool: createPostTool}, "post", &post); err != nil {
		return models.GeneratedPost{}, err
	}
	if !post.Valid() {
		return models.GeneratedPost{}, fmt.Errorf("%w: post is missing an author or message", models.ErrGeneration)
	}
	return post, nil
}

func (c *Client) GenerateReplies(ctx context.Context, req ReplyRequest) ([]models.GeneratedReply, error) {
	if len(req.ParticipantIDs) == 0 {
		return nil, &models.ValidationError{Field: "participants", Reason: "must not be empty"}
	}

	prompt, err := renderPrompt("replies", req)
	if err != nil {
		return nil, err
	}

	var replies []models.GeneratedReply
	if err := c.call(ctx, ToolCall{System: conversationSystem, Prompt: prompt, Tool: extendThreadTool}, "replies", &replies); err != nil {
		return nil, err
	}

	valid := replies[:0]
	for i, reply := range replies {
		if !reply.Valid() {
			logrus.WithField("reply_index", i).Warn("Dropping generated reply without author or message")
			continue
		}
		valid = append(valid, reply)
	}
	return valid, nil
}

func (c *Client) GenerateCanvas(ctx context.Context, req CanvasRequest) (models.Canvas, error) {
	prompt, err := renderPrompt("canvas", req)
	if err != nil {
		return models.Canvas{}, err
	}

	var canvas models.Canvas
	if err := c.call(ctx, ToolCall{System: architectSystem, Prompt: prompt, Tool: createCanvasTool}, "canvas", &canvas); err != nil {
		return models.Canvas{}, err
	}
	if canvas.Body == "" {
		return models.Canvas{}, fmt.Errorf("%w: canvas body is empty", models.ErrGeneration)
	}
	return canvas, nil
}

func (c *Client) GenerateChannelSet(ctx context.Context, customerName, useCase string) ([]models.ChannelSpec, error) {
	prompt, err := renderPrompt("channels", channelsPromptData{CustomerName: customerName, UseCase: useCase})
	if err != nil {
		return nil, err
	}

	var channels []models.ChannelSpec
	if err := c.call(ctx, ToolCall{System: architectSystem, Prompt: prompt, Tool: createChannelsTool}, "channels", &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

func (c *Client) DesignChannel(ctx context.Context, name, topic, description string) (models.ChannelDesign, error) {
	prompt, err := renderPrompt("design", designPromptData{Name: name, Topic: topic, Description: description})
	if err != nil {
		return models.ChannelDesign{}, err
	}

	var design models.ChannelDesign
	if err := c.call(ctx, ToolCall{System: designerSystem, Prompt: prompt, Tool: designChannelTool}, "", &design); err != nil {
		return models.ChannelDesign{}, err
	}
	return design, nil
}

// call invokes the backend with retry and decodes field (or the whole tool
// input when field is empty) into out. Every failure wraps ErrGeneration.
func (c *Client) call(ctx context.Context, call ToolCall, field string, out interface{}) error {
	call.MaxTokens = c.maxTokens

	var input json.RawMessage
	bo := backoff.WithMaxRetries(c.newBackOff(), uint64(c.maxRetries))
	err := backoff.Retry(func() error {
		var err error
		input, err = c.backend.Invoke(ctx, call)
		if err != nil && isRetryable(err) {
			logrus.Warnf("Generation call %s via %s failed, retrying: %v", call.Tool.Name, c.backend.Name(), err)
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", models.ErrGeneration, call.Tool.Name, err)
	}

	raw := []byte(input)
	if field != "" {
		value := gjson.GetBytes(input, field)
		if !value.Exists() {
			return fmt.Errorf("%w: %s output has no %q field", models.ErrGeneration, call.Tool.Name, field)
		}
		raw = []byte(value.Raw)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: malformed %s output: %v", models.ErrGeneration, call.Tool.Name, err)
	}
	return nil
}

// StatusError is a non-2xx response from the generation service
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("generation service returned status %d: %s", e.StatusCode, e.Body)
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return retryableStatus(statusErr.StatusCode)
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.StatusCode)
	}

	return false
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
