package gateway

import (
	"context"
	"fmt"

	"github.com/aihub/chat-go/internal/config"
	"github.com/aihub/chat-go/internal/logger"
	"github.com/aihub/chat-go/internal/metrics"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// 请求形态名称
const (
	ShapeNativeSearch = "native-search"
	ShapeGenericTool  = "generic-tool"
	ShapePlain        = "plain"
)

// Attempt 一次协商尝试：形态名称加完整请求载荷
type Attempt struct {
	Shape   string
	Payload map[string]interface{}
}

// Completer 能执行一次上游补全请求的客户端
type Completer interface {
	Do(ctx context.Context, payload map[string]interface{}) (*ChatResponse, error)
}

// BuildAttempts 构造按序尝试的请求形态列表
// 各家模型开启联网搜索的语法不同：原生开关形态只对已知模型家族生成，
// 之后是通用工具声明形态，最后永远以无工具形态兜底
func BuildAttempts(cfg *config.AIConfig, model string, enableWeb bool, messages []openai.ChatCompletionMessage) []Attempt {
	base := func() map[string]interface{} {
		payload := map[string]interface{}{
			"model":    model,
			"messages": messages,
		}
		if cfg.MaxTokens > 0 {
			payload["max_tokens"] = cfg.MaxTokens
		}
		if cfg.Temperature > 0 {
			payload["temperature"] = cfg.Temperature
		}
		return payload
	}

	if !enableWeb {
		return []Attempt{{Shape: ShapePlain, Payload: base()}}
	}

	var attempts []Attempt

	if cfg.HasNativeSearch(model) {
		payload := base()
		payload["enable_search"] = true
		attempts = append(attempts, Attempt{Shape: ShapeNativeSearch, Payload: payload})
	}

	toolPayload := base()
	toolPayload["tools"] = []map[string]interface{}{
		{
			"type": "function",
			"function": map[string]interface{}{
				"name":        "web_search",
				"description": "Search the web for up-to-date information",
				"parameters": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"query": map[string]interface{}{
							"type":        "string",
							"description": "The search query",
						},
					},
					"required": []string{"query"},
				},
			},
		},
	}
	attempts = append(attempts, Attempt{Shape: ShapeGenericTool, Payload: toolPayload})

	attempts = append(attempts, Attempt{Shape: ShapePlain, Payload: base()})
	return attempts
}

// Negotiator 按序尝试多个请求形态，首个成功即返回
type Negotiator struct {
	client Completer
	logger *zap.Logger
}

// NewNegotiator 创建协商器
func NewNegotiator(client Completer) *Negotiator {
	return &Negotiator{
		client: client,
		logger: logger.GetLogger(),
	}
}

// Complete 依次执行尝试列表，返回首个成功响应的补全文本
// 全部失败时返回最后一次尝试的错误
func (n *Negotiator) Complete(ctx context.Context, attempts []Attempt) (string, error) {
	if len(attempts) == 0 {
		return "", fmt.Errorf("no attempts to execute")
	}

	var lastErr error
	for _, attempt := range attempts {
		resp, err := n.client.Do(ctx, attempt.Payload)
		if err == nil {
			metrics.NegotiationAttempts.WithLabelValues(attempt.Shape, "success").Inc()
			return ExtractContent(resp), nil
		}

		metrics.NegotiationAttempts.WithLabelValues(attempt.Shape, "failure").Inc()
		n.logger.Warn("Completion attempt failed",
			zap.String("shape", attempt.Shape),
			zap.Error(err))
		lastErr = err
	}

	return "", fmt.Errorf("all completion attempts failed: %w", lastErr)
}

// ExtractContent 提取首个补全选项的消息文本，缺失字段一律按空串处理
func ExtractContent(resp *ChatResponse) string {
	if resp == nil || len(resp.Choices) == 0 {
		return ""
	}
	return resp.Choices[0].Message.Content
}
