package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// CompletionClient 能为一轮发送取得模型回复的协作方
type CompletionClient interface {
	Complete(ctx context.Context, model string, enableWeb bool, messages []openai.ChatCompletionMessage) (string, error)
}

// completionRequest 网关补全接口的请求体
type completionRequest struct {
	Model     string                         `json:"model,omitempty"`
	EnableWeb bool                           `json:"enable_web"`
	Messages  []openai.ChatCompletionMessage `json:"messages"`
}

// completionResponse 网关补全接口的响应体
type completionResponse struct {
	Content string `json:"content"`
	Error   string `json:"error,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// GatewayClient 通过网关HTTP接口取得补全的客户端
type GatewayClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewGatewayClient 创建网关客户端，token是用户自己的访问令牌
func NewGatewayClient(baseURL string, token string, timeout time.Duration) *GatewayClient {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &GatewayClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// Complete 请求一次补全
func (g *GatewayClient) Complete(ctx context.Context, model string, enableWeb bool, messages []openai.ChatCompletionMessage) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model:     model,
		EnableWeb: enableWeb,
		Messages:  messages,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode completion request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat/completions", g.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.token)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var parsed completionResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response (HTTP %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		if parsed.Detail != "" {
			return "", fmt.Errorf("completion failed (HTTP %d): %s: %s", resp.StatusCode, parsed.Error, parsed.Detail)
		}
		return "", fmt.Errorf("completion failed (HTTP %d): %s", resp.StatusCode, parsed.Error)
	}

	return parsed.Content, nil
}
