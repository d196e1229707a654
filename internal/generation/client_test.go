package generation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/converse-demo/converse/internal/models"
)

// fakeBackend replays canned outputs and records every call
type fakeBackend struct {
	outputs []string
	errs    []error
	calls   []ToolCall
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Invoke(ctx context.Context, call ToolCall) (json.RawMessage, error) {
	i := len(f.calls)
	f.calls = append(f.calls, call)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.outputs) {
		return json.RawMessage(f.outputs[i]), nil
	}
	return json.RawMessage(f.outputs[len(f.outputs)-1]), nil
}

func newTestClient(backend Backend, retries int) *Client {
	c := NewClient(backend, 1000, retries)
	c.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return c
}

func testParams() models.GenerationParameters {
	return models.GenerationParameters{
		Industry:     "Retail",
		CompanyName:  "Acme",
		PostLength:   models.PostLengthShort,
		Tone:         models.ToneCasual,
		EmojiDensity: models.EmojiFew,
		CustomPrompt: "Mention the spring sale.",
	}
}

func TestClient_GeneratePost(t *testing.T) {
	backend := &fakeBackend{outputs: []string{
		`{"post": {"author": "<@U1>", "message": "Sale starts Monday :tada:", "reacjis": ":tada:"}}`,
	}}
	c := newTestClient(backend, 0)

	post, err := c.GeneratePost(context.Background(), PostRequest{
		Params:         testParams(),
		ParticipantIDs: []string{"U1", "U2"},
		Author:         "U1",
		Topic:          "spring sale",
		ChannelPurpose: "Store operations",
		ChannelTopic:   "Q2",
	})
	require.NoError(t, err)
	assert.Equal(t, "<@U1>", post.Author)
	assert.Equal(t, models.Reactions{":tada:"}, post.Reactions)

	require.Len(t, backend.calls, 1)
	call := backend.calls[0]
	assert.Equal(t, toolCreatePost, call.Tool.Name)
	assert.Equal(t, 1000, call.MaxTokens)
	assert.Contains(t, call.Prompt, "AUTHOR: <@U1>")
	assert.Contains(t, call.Prompt, "<@U1>, <@U2>")
	assert.Contains(t, call.Prompt, "1 to 2 sentences")
	assert.Contains(t, call.Prompt, "Retail industry, at a company called Acme")
	assert.Contains(t, call.Prompt, "Mention the spring sale.")
}

func TestClient_GeneratePost_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{name: "missing field", output: `{"message": "hi"}`},
		{name: "missing author", output: `{"post": {"message": "hi"}}`},
		{name: "wrong type", output: `{"post": "hi"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(&fakeBackend{outputs: []string{tt.output}}, 0)
			_, err := c.GeneratePost(context.Background(), PostRequest{Params: testParams(), ParticipantIDs: []string{"U1"}})
			assert.ErrorIs(t, err, models.ErrGeneration)
		})
	}
}

func TestClient_GeneratePost_EmptyParticipants(t *testing.T) {
	backend := &fakeBackend{outputs: []string{`{}`}}
	c := newTestClient(backend, 0)

	_, err := c.GeneratePost(context.Background(), PostRequest{Params: testParams()})
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Empty(t, backend.calls)
}

func TestClient_Retries(t *testing.T) {
	t.Run("retryable status is retried", func(t *testing.T) {
		backend := &fakeBackend{
			errs:    []error{&StatusError{StatusCode: 503}, &StatusError{StatusCode: 429}},
			outputs: []string{"", "", `{"post": {"author": "U1", "message": "hi"}}`},
		}
		c := newTestClient(backend, 2)

		_, err := c.GeneratePost(context.Background(), PostRequest{Params: testParams(), ParticipantIDs: []string{"U1"}})
		require.NoError(t, err)
		assert.Len(t, backend.calls, 3)
	})

	t.Run("client error is permanent", func(t *testing.T) {
		backend := &fakeBackend{errs: []error{&StatusError{StatusCode: 400}}, outputs: []string{`{}`}}
		c := newTestClient(backend, 3)

		_, err := c.GeneratePost(context.Background(), PostRequest{Params: testParams(), ParticipantIDs: []string{"U1"}})
		assert.ErrorIs(t, err, models.ErrGeneration)
		assert.Len(t, backend.calls, 1)
	})

	t.Run("retries are bounded", func(t *testing.T) {
		backend := &fakeBackend{
			errs:    []error{&StatusError{StatusCode: 500}, &StatusError{StatusCode: 500}, &StatusError{StatusCode: 500}},
			outputs: []string{`{}`},
		}
		c := newTestClient(backend, 1)

		_, err := c.GeneratePost(context.Background(), PostRequest{Params: testParams(), ParticipantIDs: []string{"U1"}})
		assert.ErrorIs(t, err, models.ErrGeneration)
		assert.Len(t, backend.calls, 2)
	})
}

func TestClient_GenerateReplies(t *testing.T) {
	backend := &fakeBackend{outputs: []string{`{"replies": [
		{"author": "U2", "message": "On it", "reacjis": ["eyes"]},
		{"author": "", "message": "orphan"},
		{"author": "U1", "message": "Thanks!"}
	]}`}}
	c := newTestClient(backend, 0)

	replies, err := c.GenerateReplies(context.Background(), ReplyRequest{
		ChannelPurpose: "Store operations",
		Thread:         []models.ThreadMessage{{Text: "Sale starts Monday", AuthorType: "bot", AuthorID: "U1"}},
		ParticipantIDs: []string{"U1", "U2"},
		Count:          3,
	})
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Equal(t, "U2", replies[0].Author)
	assert.Equal(t, "U1", replies[1].Author)

	prompt := backend.calls[0].Prompt
	assert.Contains(t, prompt, "exactly 3 additional replies")
	assert.Contains(t, prompt, "- <@U1>: Sale starts Monday")
}

func TestClient_GenerateReplies_ReasonableCount(t *testing.T) {
	backend := &fakeBackend{outputs: []string{`{"replies": []}`}}
	c := newTestClient(backend, 0)

	replies, err := c.GenerateReplies(context.Background(), ReplyRequest{ParticipantIDs: []string{"U1"}, Count: ReasonableCount})
	require.NoError(t, err)
	assert.Empty(t, replies)
	assert.Contains(t, backend.calls[0].Prompt, "a reasonable number of additional replies")
}

func TestClient_GenerateCanvas(t *testing.T) {
	backend := &fakeBackend{outputs: []string{`{"canvas": {"title": "Launch hub", "body": "# Launch hub\n* Owner: <@U1>"}}`}}
	c := newTestClient(backend, 0)

	canvas, err := c.GenerateCanvas(context.Background(), CanvasRequest{ChannelName: "launch", ParticipantIDs: []string{"U1"}})
	require.NoError(t, err)
	assert.Equal(t, "Launch hub", canvas.Title)
	assert.Equal(t, toolCreateCanvas, backend.calls[0].Tool.Name)
	assert.Equal(t, architectSystem, backend.calls[0].System)
}

func TestClient_GenerateChannelSet(t *testing.T) {
	backend := &fakeBackend{outputs: []string{`{"channels": [
		{"name": "acme-support", "description": "Support escalations", "is_private": 0},
		{"name": "acme-exec", "description": "Exec sync", "topic": "Weekly", "is_private": 1}
	]}`}}
	c := newTestClient(backend, 0)

	channels, err := c.GenerateChannelSet(context.Background(), "Acme", "customer support")
	require.NoError(t, err)
	require.Len(t, channels, 2)
	assert.False(t, channels[0].Private())
	assert.True(t, channels[1].Private())
	assert.Contains(t, backend.calls[0].Prompt, "the company called Acme: customer support")
}

func TestClient_DesignChannel(t *testing.T) {
	backend := &fakeBackend{outputs: []string{`{
		"canvas": "yes", "topics": ["launch"], "num_participants": "2-3", "num_posts": "5-10",
		"post_length": "short", "tone": "casual", "emoji_density": "many", "thread_replies": "0-2"
	}`}}
	c := newTestClient(backend, 0)

	design, err := c.DesignChannel(context.Background(), "launch", "Q3", "Launch coordination")
	require.NoError(t, err)

	raw := design.RawParameters()
	assert.True(t, raw.Canvas)
	params, err := raw.Validate()
	require.NoError(t, err)
	assert.Equal(t, models.Range{Min: 5, Max: 10}, params.Posts)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, isRetryable(nil))
	assert.False(t, isRetryable(context.Canceled))
	assert.False(t, isRetryable(errors.New("boom")))
	assert.True(t, isRetryable(&StatusError{StatusCode: 502}))
	assert.False(t, isRetryable(&StatusError{StatusCode: 404}))
}
