package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpstreamClient_Success(t *testing.T) {
	var gotAuth, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"pong"}}],"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`))
	}))
	defer server.Close()

	cfg := testAIConfig()
	cfg.BaseURL = server.URL
	client := NewUpstreamClient(cfg)
	require.True(t, client.Ready())

	resp, err := client.Do(context.Background(), map[string]interface{}{"model": "qwen-turbo"})
	require.NoError(t, err)
	assert.Equal(t, "pong", ExtractContent(resp))
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "/compatible-mode/v1/chat/completions", gotPath)
}

func TestUpstreamClient_ErrorCarriesBodyNotSecret(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad model"}`))
	}))
	defer server.Close()

	cfg := testAIConfig()
	cfg.BaseURL = server.URL
	client := NewUpstreamClient(cfg)

	_, err := client.Do(context.Background(), map[string]interface{}{"model": "nope"})
	require.Error(t, err)

	var upstreamErr *UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, http.StatusBadRequest, upstreamErr.StatusCode)
	assert.Contains(t, upstreamErr.Body, "bad model")
	assert.NotContains(t, err.Error(), "sk-test")
}

func TestUpstreamClient_NotConfigured(t *testing.T) {
	cfg := testAIConfig()
	cfg.APIKey = ""
	client := NewUpstreamClient(cfg)

	assert.False(t, client.Ready())
	_, err := client.Do(context.Background(), map[string]interface{}{})
	assert.Error(t, err)
}
