package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Contains(t, r.URL.Path, ":generateContent")

		var req geminiGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "how are you", req.Contents[0].Parts[0].Text)
		require.NotNil(t, req.SystemInstruction)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"candidates": [{"content": {"parts": [{"text": "I'm doing well."}], "role": "model"}, "finishReason": "STOP"}],
			"usageMetadata": {"totalTokenCount": 42}
		}`))
	}))
	defer server.Close()

	provider := NewGeminiProvider(&ProviderConfig{
		Endpoint: server.URL,
		APIKey:   "test-key",
		Model:    "gemini-1.5-flash",
	})

	resp, err := provider.Generate(context.Background(), &GenerateRequest{
		SystemPrompt: "be supportive",
		Prompt:       "how are you",
	})
	require.NoError(t, err)

	assert.Equal(t, "I'm doing well.", resp.Text)
	assert.Equal(t, 42, resp.TokensUsed)
}

func TestGeminiNotConfigured(t *testing.T) {
	provider := NewGeminiProvider(&ProviderConfig{Model: "gemini-1.5-flash"})

	assert.False(t, provider.Available())

	_, err := provider.Generate(context.Background(), &GenerateRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGeminiHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider := NewGeminiProvider(&ProviderConfig{
		Endpoint: server.URL,
		APIKey:   "test-key",
		Model:    "gemini-1.5-flash",
	})

	_, err := provider.Generate(context.Background(), &GenerateRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestOpenAIGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var req openaiChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "  hello there  "}, "finish_reason": "stop"}],
			"usage": {"total_tokens": 17}
		}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider(&ProviderConfig{
		Endpoint: server.URL,
		APIKey:   "test-key",
		Model:    "gpt-4o-mini",
	})

	resp, err := provider.Generate(context.Background(), &GenerateRequest{
		SystemPrompt: "be supportive",
		Prompt:       "hi",
	})
	require.NoError(t, err)

	assert.Equal(t, "hello there", resp.Text, "response should be trimmed")
	assert.Equal(t, 17, resp.TokensUsed)
}

func TestOpenAIEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openaiChatResponse{})
	}))
	defer server.Close()

	provider := NewOpenAIProvider(&ProviderConfig{
		Endpoint: server.URL,
		APIKey:   "test-key",
		Model:    "gpt-4o-mini",
	})

	_, err := provider.Generate(context.Background(), &GenerateRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestDefaultConfig(t *testing.T) {
	gemini := DefaultConfig("gemini")
	assert.Equal(t, "gemini-1.5-flash", gemini.Model)
	assert.NotEmpty(t, gemini.Endpoint)

	openai := DefaultConfig("openai")
	assert.Equal(t, "gpt-4o-mini", openai.Model)
}
