package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiagozs/go-llmchat/internal/config"
)

const streamBody = `data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o","choices":[{"index":0,"delta":{"role":"assistant","content":"hel"},"finish_reason":null}]}

data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o","choices":[{"index":0,"delta":{"content":"lo"},"finish_reason":"stop"}]}

data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o","choices":[],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}

data: [DONE]

`

type capturedRequest struct {
	Model    string `json:"model"`
	Stream   bool   `json:"stream"`
	Messages []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
}

func newStreamServer(t *testing.T, got *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if got != nil {
			_ = json.Unmarshal(body, got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, streamBody)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAISendStreamsAndReportsUsage(t *testing.T) {
	var got capturedRequest
	srv := newStreamServer(t, &got)

	var out bytes.Buffer
	b, err := NewOpenAI(OpenAIOptions{
		APIKey:  "test",
		Model:   "gpt-4o",
		BaseURL: srv.URL + "/",
		System:  "be brief",
		Out:     &out,
	})
	require.NoError(t, err)

	history := []Turn{{Role: RoleUser, Content: "hi"}, {Role: RoleAssistant, Content: "hey"}}
	reply, err := b.Send(context.Background(), "  say hello \n", history)
	require.NoError(t, err)

	assert.Equal(t, "hello", reply.Text)
	require.NotNil(t, reply.Usage)
	assert.Equal(t, int64(5), reply.Usage.TotalTokens)
	assert.Equal(t, "(gpt-4o): hello", out.String())

	assert.True(t, got.Stream)
	require.Len(t, got.Messages, 4)
	roles := []string{got.Messages[0].Role, got.Messages[1].Role, got.Messages[2].Role, got.Messages[3].Role}
	assert.Equal(t, []string{"system", "user", "assistant", "user"}, roles)
	assert.JSONEq(t, `"say hello"`, string(got.Messages[3].Content))
}

func TestOpenAISendImageUsesDataURL(t *testing.T) {
	var got capturedRequest
	srv := newStreamServer(t, &got)

	b, err := NewOpenAI(OpenAIOptions{APIKey: "test", Model: "gpt-4o", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	_, err = b.SendImage(context.Background(), "describe", "image/png", "AAAA")
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Contains(t, string(got.Messages[0].Content), "data:image/png;base64,AAAA")
	assert.Contains(t, string(got.Messages[0].Content), "describe")
}

func TestOpenAISendHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
	}))
	defer srv.Close()

	b, err := NewOpenAI(OpenAIOptions{APIKey: "test", Model: "gpt-4o", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	_, err = b.Send(context.Background(), "hi", nil)
	require.Error(t, err)
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	_, err := NewOpenAI(OpenAIOptions{Model: "gpt-4o"})
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestFactoryUnknownBackend(t *testing.T) {
	cfg := config.Defaults()
	cfg.Backend = "claude"
	_, err := New(context.Background(), cfg, io.Discard, nil)
	assert.ErrorIs(t, err, config.ErrUnknownBackend)
}

func TestToGeminiHistory(t *testing.T) {
	history := []Turn{
		{Role: RoleAssistant, Content: "orphan"},
		{Role: RoleSystem, Content: "ignored"},
		{Role: RoleUser, Content: "q1"},
		{Role: RoleAssistant, Content: "a1"},
	}
	got := toGeminiHistory(history)
	require.Len(t, got, 2)
	assert.Equal(t, "user", got[0].Role)
	assert.Equal(t, genai.Text("q1"), got[0].Parts[0])
	assert.Equal(t, "model", got[1].Role)
	assert.Equal(t, genai.Text("a1"), got[1].Parts[0])
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("a"), genai.Blob{MIMEType: "image/png"}, genai.Text("b")}}},
			nil,
		},
	}
	assert.Equal(t, "ab", responseText(resp))
}

func TestWithRetries(t *testing.T) {
	calls := 0
	err := withRetries(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	sentinel := errors.New("down")
	err = withRetries(context.Background(), 0, time.Millisecond, func() error {
		calls++
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestWithRetriesStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := withRetries(ctx, 5, time.Hour, func() error {
		calls++
		return errors.New("fail")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestUsageString(t *testing.T) {
	var u *Usage
	assert.Equal(t, "None", u.String())
	u = &Usage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3}
	assert.Equal(t, "prompt_tokens=1 completion_tokens=2 total_tokens=3", u.String())
}
