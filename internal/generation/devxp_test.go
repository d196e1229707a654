package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevXPBackend_Invoke(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content": [{"content": [{"type": "tool_use", "input": {"post": {"author": "U1", "message": "hi"}}}]}]}`))
	}))
	defer server.Close()

	backend := NewDevXPBackend(server.URL, "secret", "converse_demo_app", 5*time.Second)
	input, err := backend.Invoke(context.Background(), ToolCall{
		System:    conversationSystem,
		Prompt:    "write a post",
		Tool:      createPostTool,
		MaxTokens: 2000,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"post": {"author": "U1", "message": "hi"}}`, string(input))

	assert.Equal(t, "converse_demo_app", received["source"])
	assert.Equal(t, float64(2000), received["max_tokens"])
	assert.Equal(t, map[string]interface{}{"type": "tool", "name": toolCreatePost}, received["tool_choice"])

	messages := received["messages"].([]interface{})
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])
	assert.Equal(t, "write a post", messages[1].(map[string]interface{})["content"])

	tools := received["tools"].([]interface{})
	require.Len(t, tools, 1)
	schema := tools[0].(map[string]interface{})["input_schema"].(map[string]interface{})
	assert.Equal(t, "object", schema["type"])
}

func TestDevXPBackend_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{name: "server error", status: http.StatusBadGateway, body: `bad gateway`, wantStatus: http.StatusBadGateway},
		{name: "unexpected shape", status: http.StatusOK, body: `{"content": []}`},
		{name: "input not an object", status: http.StatusOK, body: `{"content": [{"content": [{"input": "text"}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			backend := NewDevXPBackend(server.URL, "", "converse_demo_app", time.Second)
			_, err := backend.Invoke(context.Background(), ToolCall{Tool: createPostTool})
			require.Error(t, err)

			var statusErr *StatusError
			if tt.wantStatus != 0 {
				require.ErrorAs(t, err, &statusErr)
				assert.Equal(t, tt.wantStatus, statusErr.StatusCode)
				assert.True(t, isRetryable(err))
			} else {
				assert.False(t, isRetryable(err))
			}
		})
	}
}
