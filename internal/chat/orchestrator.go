package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aihub/chat-go/internal/attachment"
	"github.com/aihub/chat-go/internal/config"
	"github.com/aihub/chat-go/internal/kafka"
	"github.com/aihub/chat-go/internal/logger"
	"github.com/aihub/chat-go/internal/metrics"
	"github.com/aihub/chat-go/internal/models"
	"github.com/aihub/chat-go/internal/prefs"
	"go.uber.org/zap"
)

// ErrEmptyTurn 没有正文也没有附件的发送被拒绝
var ErrEmptyTurn = errors.New("nothing to send")

// Orchestrator 驱动一轮完整的发送流程
// 流程顺序固定：闸门→组装→乐观落库用户消息→标题→取回复→渐进渲染→落库助手消息
type Orchestrator struct {
	store      *Store
	session    *Session
	processor  *attachment.Processor
	completion CompletionClient
	prefsSvc   *prefs.Service
	renderer   *Renderer
	cfg        *config.Config
	logger     *zap.Logger
	userID     uint

	staged     []*attachment.Attachment
	rejections []attachment.Rejection
}

// NewOrchestrator 创建发送编排器
func NewOrchestrator(store *Store, processor *attachment.Processor, completion CompletionClient, prefsSvc *prefs.Service, renderer *Renderer, cfg *config.Config, userID uint) *Orchestrator {
	return &Orchestrator{
		store:      store,
		session:    NewSession(),
		processor:  processor,
		completion: completion,
		prefsSvc:   prefsSvc,
		renderer:   renderer,
		cfg:        cfg,
		logger:     logger.GetLogger(),
		userID:     userID,
	}
}

// Store 暴露对话状态（列表、条目快照）
func (o *Orchestrator) Store() *Store {
	return o.store
}

// Session 暴露会话状态机
func (o *Orchestrator) Session() *Session {
	return o.session
}

// Stage 处理一批待发送文件并暂存结果
// 超出每轮上限或超出体积限制的文件以拒绝原因返回，其余文件即使提取失败也会被接受
func (o *Orchestrator) Stage(ctx context.Context, files []attachment.File) []attachment.Rejection {
	accepted, rejected := o.processor.ProcessBatch(ctx, files, len(o.staged))
	o.staged = append(o.staged, accepted...)
	o.rejections = append(o.rejections, rejected...)
	return rejected
}

// Staged 当前暂存的附件
func (o *Orchestrator) Staged() []*attachment.Attachment {
	return o.staged
}

// RemoveStaged 移除一个暂存附件
func (o *Orchestrator) RemoveStaged(id string) {
	for i, att := range o.staged {
		if att.ID == id {
			o.staged = append(o.staged[:i], o.staged[i+1:]...)
			return
		}
	}
}

// ClearStaged 清空暂存附件与拒绝记录
func (o *Orchestrator) ClearStaged() {
	o.staged = nil
	o.rejections = nil
}

// Send 发送一轮对话
// 取回复失败时用户消息保留在对话里，不自动重试；渲染完成后才落库助手消息
func (o *Orchestrator) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" && len(o.staged) == 0 {
		return ErrEmptyTurn
	}

	if err := o.session.BeginSend(); err != nil {
		return err
	}
	defer o.session.EndSend()

	attachments := o.staged
	o.staged = nil
	o.rejections = nil

	conversationID, err := o.store.EnsureConversation(ctx)
	if err != nil {
		o.restoreStaged(attachments)
		metrics.TurnsSent.WithLabelValues("failure").Inc()
		return err
	}

	prior := o.store.PersistedMessages()
	persisted, units := AssembleTurn(prior, text, attachments, o.cfg.Upload.MaxExtractChars)

	meta, err := attachmentsMeta(attachments)
	if err != nil {
		o.restoreStaged(attachments)
		metrics.TurnsSent.WithLabelValues("failure").Inc()
		return err
	}

	userMsg, err := o.store.InsertUserMessage(ctx, persisted, meta)
	if err != nil {
		o.restoreStaged(attachments)
		metrics.TurnsSent.WithLabelValues("failure").Inc()
		return err
	}

	if err := o.store.TitleIfUnset(ctx, conversationID, persisted); err != nil {
		// 标题失败不阻断发送
		o.logger.Warn("Failed to set conversation title",
			zap.String("conversation_id", conversationID),
			zap.Error(err))
	}

	preferences, err := o.prefsSvc.Load(ctx, o.userID)
	if err != nil {
		o.logger.Warn("Failed to load preferences, using defaults", zap.Error(err))
	}
	model := o.cfg.AI.ResolveModel(preferences.Model)

	content, err := o.completion.Complete(ctx, model, preferences.WebSearch, units)
	if err != nil {
		// 用户消息已经落库，留在对话里
		metrics.TurnsSent.WithLabelValues("failure").Inc()
		return fmt.Errorf("failed to get completion: %w", err)
	}

	localID := o.store.InsertAssistantPlaceholder()
	o.renderer.Reveal(ctx, content, func(partial string) {
		o.store.UpdatePlaceholder(localID, partial)
	})

	o.session.BeginReconcile()
	if _, err := o.store.ReconcileAssistant(ctx, localID, content); err != nil {
		metrics.TurnsSent.WithLabelValues("partial").Inc()
		return err
	}

	metrics.TurnsSent.WithLabelValues("success").Inc()
	o.audit(conversationID, model, preferences.WebSearch, userMsg, content, len(attachments))
	return nil
}

// DeleteConversation 确认后删除对话
func (o *Orchestrator) DeleteConversation(ctx context.Context, id string) error {
	if !o.session.RequestDelete() {
		return ErrSendInFlight
	}
	defer o.session.ResolveDelete()
	return o.store.DeleteConversation(ctx, id)
}

func (o *Orchestrator) restoreStaged(attachments []*attachment.Attachment) {
	o.staged = append(attachments, o.staged...)
}

// audit 异步发送轮次审计事件，失败只记日志
func (o *Orchestrator) audit(conversationID, model string, webSearch bool, userMsg *models.Message, content string, attachmentCount int) {
	event := &kafka.TurnEvent{
		ConversationID: conversationID,
		UserID:         o.userID,
		Model:          model,
		WebSearch:      webSearch,
		UserContent:    userMsg.Content,
		AssistantChars: len([]rune(content)),
		Attachments:    attachmentCount,
		Outcome:        "success",
	}
	go func() {
		if err := kafka.SendTurnEvent(event); err != nil {
			o.logger.Warn("Failed to send turn audit event", zap.Error(err))
		}
	}()
}

// attachmentsMeta 附件元数据的持久化表示
func attachmentsMeta(attachments []*attachment.Attachment) (string, error) {
	if len(attachments) == 0 {
		return "", nil
	}
	metas := make([]models.AttachmentMeta, len(attachments))
	for i, att := range attachments {
		metas[i] = att.Meta()
	}
	data, err := json.Marshal(metas)
	if err != nil {
		return "", fmt.Errorf("failed to encode attachment metadata: %w", err)
	}
	return string(data), nil
}
