package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aihub/chat-go/internal/chat"
	"github.com/aihub/chat-go/internal/repository"
)

// ConversationController 对话管理控制器
type ConversationController struct {
	BaseController
}

var conversationRepo *repository.ConversationRepository

// InitConversations 注入对话仓库
func InitConversations(repo *repository.ConversationRepository) {
	conversationRepo = repo
}

// List 列出当前用户的对话，grouped=true时按最近活跃时间分组
func (c *ConversationController) List() {
	userID, ok := c.authenticate()
	if !ok {
		return
	}

	conversations, err := conversationRepo.ListConversations(c.Ctx.Request.Context(), userID)
	if err != nil {
		c.JSONError(http.StatusInternalServerError, "failed to list conversations")
		return
	}

	if grouped, _ := c.GetBool("grouped"); grouped {
		c.JSONSuccess(chat.GroupByRecency(conversations, time.Now()))
		return
	}
	c.JSONSuccess(conversations)
}

// Create 创建新对话（无标题，首条消息到达时生成）
func (c *ConversationController) Create() {
	userID, ok := c.authenticate()
	if !ok {
		return
	}

	conversation, err := conversationRepo.CreateConversation(c.Ctx.Request.Context(), userID)
	if err != nil {
		c.JSONError(http.StatusInternalServerError, "failed to create conversation")
		return
	}
	c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    conversation,
	})
}

// Get 获取单个对话
func (c *ConversationController) Get() {
	userID, ok := c.authenticate()
	if !ok {
		return
	}

	id := c.Ctx.Input.Param(":id")
	conversation, err := conversationRepo.GetConversation(c.Ctx.Request.Context(), id, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSONError(http.StatusNotFound, "conversation not found")
			return
		}
		c.JSONError(http.StatusInternalServerError, "failed to get conversation")
		return
	}
	c.JSONSuccess(conversation)
}

// Messages 获取对话的完整消息历史（时间正序）
func (c *ConversationController) Messages() {
	userID, ok := c.authenticate()
	if !ok {
		return
	}

	id := c.Ctx.Input.Param(":id")
	messages, err := conversationRepo.ListMessages(c.Ctx.Request.Context(), id, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSONError(http.StatusNotFound, "conversation not found")
			return
		}
		c.JSONError(http.StatusInternalServerError, "failed to list messages")
		return
	}
	c.JSONSuccess(messages)
}

// Delete 删除对话及其全部消息
func (c *ConversationController) Delete() {
	userID, ok := c.authenticate()
	if !ok {
		return
	}

	id := c.Ctx.Input.Param(":id")
	if err := conversationRepo.DeleteConversation(c.Ctx.Request.Context(), id, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSONError(http.StatusNotFound, "conversation not found")
			return
		}
		c.JSONError(http.StatusInternalServerError, "failed to delete conversation")
		return
	}
	c.JSONSuccess(map[string]interface{}{"deleted": id})
}

// SetTitle 设置标题，仅在标题尚未设置时生效
func (c *ConversationController) SetTitle() {
	userID, ok := c.authenticate()
	if !ok {
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil || req.Title == "" {
		c.JSONError(http.StatusBadRequest, "title is required")
		return
	}

	id := c.Ctx.Input.Param(":id")
	applied, err := conversationRepo.SetTitleIfUnset(c.Ctx.Request.Context(), id, userID, req.Title)
	if err != nil {
		c.JSONError(http.StatusInternalServerError, "failed to set title")
		return
	}
	c.JSONSuccess(map[string]interface{}{"applied": applied})
}
