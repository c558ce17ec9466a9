package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/aihub/chat-go/internal/config"
	"github.com/aihub/chat-go/internal/gateway"
	"github.com/aihub/chat-go/internal/logger"
	"github.com/aihub/chat-go/internal/metrics"
	"github.com/go-playground/validator/v10"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

var validate = validator.New()

// completionRequest 补全请求体
type completionRequest struct {
	Model     string                         `json:"model"`
	EnableWeb bool                           `json:"enable_web"`
	Messages  []openai.ChatCompletionMessage `json:"messages" validate:"required,min=1"`
}

// ChatController 补全网关控制器
// 持有上游密钥，客户端只携带自己的用户凭证
type ChatController struct {
	BaseController
}

var chatNegotiator *gateway.Negotiator
var chatUpstream *gateway.UpstreamClient

// InitChatGateway 注入上游客户端与协商器
func InitChatGateway(upstream *gateway.UpstreamClient, negotiator *gateway.Negotiator) {
	chatUpstream = upstream
	chatNegotiator = negotiator
}

// Complete 处理一次补全请求
func (c *ChatController) Complete() {
	userID, ok := c.authenticate()
	if !ok {
		metrics.ChatRequests.WithLabelValues(strconv.Itoa(http.StatusUnauthorized)).Inc()
		return
	}

	var req completionRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		metrics.ChatRequests.WithLabelValues(strconv.Itoa(http.StatusBadRequest)).Inc()
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		metrics.ChatRequests.WithLabelValues(strconv.Itoa(http.StatusBadRequest)).Inc()
		c.JSONError(http.StatusBadRequest, "messages must not be empty")
		return
	}

	if chatUpstream == nil || !chatUpstream.Ready() {
		metrics.ChatRequests.WithLabelValues(strconv.Itoa(http.StatusInternalServerError)).Inc()
		c.JSONError(http.StatusInternalServerError, "upstream not configured")
		return
	}

	cfg := config.GetAppConfig()
	model := cfg.AI.ResolveModel(req.Model)

	attempts := gateway.BuildAttempts(&cfg.AI, model, req.EnableWeb, req.Messages)
	content, err := chatNegotiator.Complete(c.Ctx.Request.Context(), attempts)
	if err != nil {
		logger.Error("Completion failed",
			zap.Uint("user_id", userID),
			zap.String("model", model),
			zap.Bool("enable_web", req.EnableWeb),
			zap.Error(err))

		status := http.StatusInternalServerError
		detail := ""
		var upstreamErr *gateway.UpstreamError
		if errors.As(err, &upstreamErr) {
			detail = upstreamErr.Body
		}
		metrics.ChatRequests.WithLabelValues(strconv.Itoa(status)).Inc()
		c.JSON(status, map[string]interface{}{
			"error":  "completion failed",
			"detail": detail,
		})
		return
	}

	metrics.ChatRequests.WithLabelValues(strconv.Itoa(http.StatusOK)).Inc()
	c.JSON(http.StatusOK, map[string]interface{}{
		"content": content,
	})
}

// Models 返回允许的模型列表与默认模型
func (c *ChatController) Models() {
	if _, ok := c.authenticate(); !ok {
		return
	}
	cfg := config.GetAppConfig()
	c.JSONSuccess(map[string]interface{}{
		"models":  cfg.AI.AllowedModels,
		"default": cfg.AI.DefaultModel,
	})
}
