package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

// devxpInputPath is where the forced tool input sits in a DevXP response
const devxpInputPath = "content.0.content.0.input"

// DevXPBackend calls the DevXP chat proxy
type DevXPBackend struct {
	url    string
	apiKey string
	source string
	client *resty.Client
}

var _ Backend = (*DevXPBackend)(nil)

type devxpMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type devxpTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

type devxpToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type devxpRequest struct {
	Messages   []devxpMessage  `json:"messages"`
	Source     string          `json:"source"`
	MaxTokens  int             `json:"max_tokens"`
	Tools      []devxpTool     `json:"tools"`
	ToolChoice devxpToolChoice `json:"tool_choice"`
}

// NewDevXPBackend creates a DevXP backend posting to url
func NewDevXPBackend(url, apiKey, source string, timeout time.Duration) *DevXPBackend {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &DevXPBackend{
		url:    url,
		apiKey: apiKey,
		source: source,
		client: resty.New().SetTimeout(timeout),
	}
}

func (d *DevXPBackend) Name() string {
	return "devxp"
}

func (d *DevXPBackend) Invoke(ctx context.Context, call ToolCall) (json.RawMessage, error) {
	payload := devxpRequest{
		Messages: []devxpMessage{
			{Role: "system", Content: call.System},
			{Role: "user", Content: call.Prompt},
		},
		Source:    d.source,
		MaxTokens: call.MaxTokens,
		Tools: []devxpTool{{
			Name:        call.Tool.Name,
			Description: call.Tool.Description,
			InputSchema: call.Tool.InputSchema(),
		}},
		ToolChoice: devxpToolChoice{Type: "tool", Name: call.Tool.Name},
	}

	req := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload)
	if d.apiKey != "" {
		req.SetAuthToken(d.apiKey)
	}

	resp, err := req.Post(d.url)
	if err != nil {
		return nil, fmt.Errorf("failed to call DevXP: %w", err)
	}
	if resp.IsError() {
		return nil, &StatusError{StatusCode: resp.StatusCode(), Body: truncate(resp.String(), 200)}
	}

	input := gjson.GetBytes(resp.Body(), devxpInputPath)
	if !input.IsObject() {
		return nil, fmt.Errorf("DevXP response has no tool input at %s", devxpInputPath)
	}
	return json.RawMessage(input.Raw), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
