package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"philo-chat-go/internal/config"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chunkRecorder struct {
	chunks []string
}

func (r *chunkRecorder) WriteMessage(_ int, data []byte) error {
	r.chunks = append(r.chunks, string(data))
	return nil
}

type capturedRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, req capturedRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var req capturedRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		handler(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(url string) config.LLMConfig {
	return config.LLMConfig{Provider: "openai", APIKey: "test-key", BaseURL: url + "/v1", Model: "test-model"}
}

func TestOpenAIClient_Complete(t *testing.T) {
	var got capturedRequest
	srv := newTestServer(t, func(w http.ResponseWriter, req capturedRequest) {
		got = req
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  Know thyself.  "},"finish_reason":"stop"}]}`)
	})

	client, err := NewClient(context.Background(), testConfig(srv.URL))
	require.NoError(t, err)

	temp := 0.5
	maxTokens := 64
	out, err := client.Complete(context.Background(), []Message{
		{Role: "user", Content: "prime"},
		{Role: "user", Content: "Who are you?"},
	}, &GenerationParams{Temperature: &temp, MaxTokens: &maxTokens})
	require.NoError(t, err)

	assert.Equal(t, "Know thyself.", out)
	assert.Equal(t, "test-model", got.Model)
	assert.False(t, got.Stream)
	assert.Len(t, got.Messages, 2)
	assert.InDelta(t, 0.5, got.Temperature, 1e-6)
	assert.Equal(t, 64, got.MaxTokens)
}

func TestOpenAIClient_CompleteEmptyAndErrors(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ capturedRequest) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"1","object":"chat.completion","choices":[]}`)
	})
	client := NewOpenAIClient(testConfig(srv.URL))
	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	assert.ErrorIs(t, err, ErrEmptyResponse)

	failing := newTestServer(t, func(w http.ResponseWriter, _ capturedRequest) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
	})
	client = NewOpenAIClient(testConfig(failing.URL))
	_, err = client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slow down")
}

func TestOpenAIClient_Stream(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, req capturedRequest) {
		assert.True(t, req.Stream)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"The unexamined ", "life is not ", "worth living."} {
			fmt.Fprintf(w, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	client := NewOpenAIClient(testConfig(srv.URL))
	rec := &chunkRecorder{}
	out, err := client.Stream(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil, rec)
	require.NoError(t, err)
	assert.Equal(t, "The unexamined life is not worth living.", out)
	assert.Equal(t, []string{"The unexamined ", "life is not ", "worth living."}, rec.chunks)
}

func TestParamsFromConfig(t *testing.T) {
	assert.Nil(t, ParamsFromConfig(config.LLMGenerationConfig{}))

	gp := ParamsFromConfig(config.LLMGenerationConfig{Temperature: 0.7, MaxTokens: 100})
	require.NotNil(t, gp)
	assert.InDelta(t, 0.7, *gp.Temperature, 1e-9)
	assert.Nil(t, gp.TopP)
	assert.Equal(t, 100, *gp.MaxTokens)
}

func TestNewClientUnknownProvider(t *testing.T) {
	_, err := NewClient(context.Background(), config.LLMConfig{Provider: "nope"})
	assert.Error(t, err)
}
