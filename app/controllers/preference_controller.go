package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/aihub/chat-go/internal/config"
	"github.com/aihub/chat-go/internal/prefs"
)

// PreferenceController 用户偏好控制器
type PreferenceController struct {
	BaseController
}

var prefsService *prefs.Service

// InitPreferences 注入偏好服务
func InitPreferences(service *prefs.Service) {
	prefsService = service
}

// Get 读取当前用户偏好
func (c *PreferenceController) Get() {
	userID, ok := c.authenticate()
	if !ok {
		return
	}

	p, err := prefsService.Load(c.Ctx.Request.Context(), userID)
	if err != nil {
		c.JSONError(http.StatusInternalServerError, "failed to load preferences")
		return
	}
	if p.Model == "" {
		p.Model = config.GetAppConfig().AI.DefaultModel
	}
	c.JSONSuccess(p)
}

// Update 更新偏好，缺省字段保持原值
func (c *PreferenceController) Update() {
	userID, ok := c.authenticate()
	if !ok {
		return
	}

	var req struct {
		Model     *string `json:"model"`
		WebSearch *bool   `json:"web_search"`
	}
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := c.Ctx.Request.Context()
	cfg := config.GetAppConfig()

	if req.Model != nil {
		// 列表外的模型直接拒绝，而不是静默回退
		resolved := cfg.AI.ResolveModel(*req.Model)
		if resolved != *req.Model {
			c.JSONError(http.StatusBadRequest, "model not allowed")
			return
		}
		if err := prefsService.SetModel(ctx, userID, *req.Model); err != nil {
			c.JSONError(http.StatusInternalServerError, "failed to save preferences")
			return
		}
	}
	if req.WebSearch != nil {
		if err := prefsService.SetWebSearch(ctx, userID, *req.WebSearch); err != nil {
			c.JSONError(http.StatusInternalServerError, "failed to save preferences")
			return
		}
	}

	p, err := prefsService.Load(ctx, userID)
	if err != nil {
		c.JSONError(http.StatusInternalServerError, "failed to load preferences")
		return
	}
	c.JSONSuccess(p)
}
