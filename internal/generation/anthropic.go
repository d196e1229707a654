package generation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicBackend calls the Messages API directly with a forced tool choice
type AnthropicBackend struct {
	client anthropic.Client
	model  anthropic.Model
}

var _ Backend = (*AnthropicBackend)(nil)

// NewAnthropicBackend creates a backend for model. Retries are handled by
// Client, so the SDK's own retries are disabled.
func NewAnthropicBackend(apiKey, model string, opts ...option.RequestOption) *AnthropicBackend {
	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)
	return &AnthropicBackend{
		client: anthropic.NewClient(opts...),
		model:  anthropic.Model(model),
	}
}

func (a *AnthropicBackend) Name() string {
	return "anthropic"
}

func (a *AnthropicBackend) Invoke(ctx context.Context, call ToolCall) (json.RawMessage, error) {
	params := anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: int64(call.MaxTokens),
		System:    []anthropic.TextBlockParam{{Text: call.System}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(call.Prompt)),
		},
		Tools: []anthropic.ToolUnionParam{{
			OfTool: &anthropic.ToolParam{
				Name:        call.Tool.Name,
				Description: anthropic.String(call.Tool.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: call.Tool.Properties,
					Required:   call.Tool.Required,
				},
			},
		}},
		ToolChoice: anthropic.ToolChoiceParamOfTool(call.Tool.Name),
	}

	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	for _, block := range message.Content {
		if block.Type == "tool_use" && block.Name == call.Tool.Name {
			return block.Input, nil
		}
	}
	return nil, fmt.Errorf("response has no %s tool_use block", call.Tool.Name)
}
