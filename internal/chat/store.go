package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aihub/chat-go/internal/logger"
	"github.com/aihub/chat-go/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 标题由首条用户消息截断生成
const (
	maxTitleRunes = 60
	titleEllipsis = "…"
)

// Repository 对话持久化协作方
type Repository interface {
	CreateConversation(ctx context.Context, userID uint) (*models.Conversation, error)
	GetConversation(ctx context.Context, id string, userID uint) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID uint) ([]models.Conversation, error)
	SetTitleIfUnset(ctx context.Context, id string, userID uint, title string) (bool, error)
	DeleteConversation(ctx context.Context, id string, userID uint) error
	InsertMessage(ctx context.Context, userID uint, message *models.Message) (*models.Message, error)
	ListMessages(ctx context.Context, conversationID string, userID uint) ([]models.Message, error)
}

// Store 客户端侧的对话状态
// 持有当前用户的对话列表与活跃对话的消息条目，是这些状态的唯一写入方
type Store struct {
	repo   Repository
	userID uint
	logger *zap.Logger

	mu            sync.Mutex
	activeID      string
	conversations []models.Conversation
	entries       []Entry
}

// NewStore 创建对话状态存储
func NewStore(repo Repository, userID uint) *Store {
	return &Store{
		repo:   repo,
		userID: userID,
		logger: logger.GetLogger(),
	}
}

// ActiveConversation 当前活跃对话id，空串表示没有
func (s *Store) ActiveConversation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Entries 活跃对话消息条目快照
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]Entry, len(s.entries))
	copy(snapshot, s.entries)
	return snapshot
}

// PersistedMessages 活跃对话中已持久化的消息（发给模型的历史）
func (s *Store) PersistedMessages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var messages []models.Message
	for _, entry := range s.entries {
		if entry.State == EntryPersisted {
			messages = append(messages, entry.Message)
		}
	}
	return messages
}

// Conversations 对话列表快照（最近活跃在前）
func (s *Store) Conversations() []models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]models.Conversation, len(s.conversations))
	copy(snapshot, s.conversations)
	return snapshot
}

// RefreshConversations 从仓库重新加载对话列表
func (s *Store) RefreshConversations(ctx context.Context) error {
	conversations, err := s.repo.ListConversations(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("failed to refresh conversations: %w", err)
	}
	s.mu.Lock()
	s.conversations = conversations
	s.mu.Unlock()
	return nil
}

// EnsureConversation 返回活跃对话id，没有则创建并设为活跃
// 同一轮send内幂等：已有活跃对话时绝不新建
func (s *Store) EnsureConversation(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.activeID != "" {
		id := s.activeID
		s.mu.Unlock()
		return id, nil
	}
	s.mu.Unlock()

	conversation, err := s.repo.CreateConversation(ctx, s.userID)
	if err != nil {
		return "", fmt.Errorf("failed to create conversation: %w", err)
	}

	s.mu.Lock()
	s.activeID = conversation.ID
	s.entries = nil
	s.conversations = append([]models.Conversation{*conversation}, s.conversations...)
	s.mu.Unlock()

	s.logger.Info("Created new conversation",
		zap.String("conversation_id", conversation.ID),
		zap.Uint("user_id", s.userID))
	return conversation.ID, nil
}

// SelectConversation 切换活跃对话并加载其消息
func (s *Store) SelectConversation(ctx context.Context, id string) error {
	messages, err := s.repo.ListMessages(ctx, id, s.userID)
	if err != nil {
		return fmt.Errorf("failed to load messages: %w", err)
	}

	entries := make([]Entry, len(messages))
	for i, msg := range messages {
		entries[i] = Entry{State: EntryPersisted, Message: msg}
	}

	s.mu.Lock()
	s.activeID = id
	s.entries = entries
	s.mu.Unlock()
	return nil
}

// InsertUserMessage 乐观插入用户消息
// 持久化成功后占位条目原位替换为规范记录；失败则移除条目并返回错误，本轮可见失败、不自动重试
func (s *Store) InsertUserMessage(ctx context.Context, content string, attachmentsMeta string) (*models.Message, error) {
	s.mu.Lock()
	conversationID := s.activeID
	localID := uuid.NewString()
	optimistic := models.Message{
		ID:             localID,
		ConversationID: conversationID,
		Role:           "user",
		Content:        content,
		Attachments:    attachmentsMeta,
		CreatedAt:      time.Now(),
	}
	s.entries = append(s.entries, Entry{State: EntryPending, Message: optimistic})
	index := len(s.entries) - 1
	s.mu.Unlock()

	persisted, err := s.repo.InsertMessage(ctx, s.userID, &models.Message{
		ConversationID: conversationID,
		Role:           "user",
		Content:        content,
		Attachments:    attachmentsMeta,
		CreatedAt:      optimistic.CreatedAt,
	})
	if err != nil {
		s.removeEntry(localID)
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}

	s.replaceEntry(index, localID, *persisted)
	s.touchConversation(conversationID, persisted.CreatedAt)
	return persisted, nil
}

// InsertAssistantPlaceholder 插入助手消息占位条目，返回本地id供渐进渲染更新
func (s *Store) InsertAssistantPlaceholder() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	localID := uuid.NewString()
	s.entries = append(s.entries, Entry{
		State: EntryPending,
		Message: models.Message{
			ID:             localID,
			ConversationID: s.activeID,
			Role:           "assistant",
			CreatedAt:      time.Now(),
		},
	})
	return localID
}

// UpdatePlaceholder 更新占位条目的可见内容（渐进渲染专用，不触碰持久化）
func (s *Store) UpdatePlaceholder(localID string, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].State == EntryPending && s.entries[i].Message.ID == localID {
			s.entries[i].Message.Content = content
			return
		}
	}
}

// ReconcileAssistant 用规范记录原子替换助手占位条目
// 持久化失败时占位条目保留最后渲染的内容，尽力而为、不重排队
func (s *Store) ReconcileAssistant(ctx context.Context, localID string, finalContent string) (*models.Message, error) {
	s.mu.Lock()
	conversationID := s.activeID
	s.mu.Unlock()

	persisted, err := s.repo.InsertMessage(ctx, s.userID, &models.Message{
		ConversationID: conversationID,
		Role:           "assistant",
		Content:        finalContent,
		CreatedAt:      time.Now(),
	})
	if err != nil {
		s.logger.Error("Failed to persist assistant message, keeping placeholder",
			zap.String("local_id", localID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to save assistant message: %w", err)
	}

	s.mu.Lock()
	for i := range s.entries {
		if s.entries[i].State == EntryPending && s.entries[i].Message.ID == localID {
			s.entries[i] = Entry{State: EntryPersisted, Message: *persisted}
			break
		}
	}
	s.mu.Unlock()

	s.touchConversation(conversationID, persisted.CreatedAt)
	return persisted, nil
}

// TitleIfUnset 标题未设置时从首条消息内容截断生成
func (s *Store) TitleIfUnset(ctx context.Context, conversationID string, candidate string) error {
	title := truncateTitle(candidate)
	if title == "" {
		return nil
	}

	applied, err := s.repo.SetTitleIfUnset(ctx, conversationID, s.userID, title)
	if err != nil {
		return fmt.Errorf("failed to set title: %w", err)
	}
	if !applied {
		return nil
	}

	s.mu.Lock()
	for i := range s.conversations {
		if s.conversations[i].ID == conversationID {
			t := title
			s.conversations[i].Title = &t
			break
		}
	}
	s.mu.Unlock()
	return nil
}

// DeleteConversation 删除对话；失败时本地状态不变
// 删除的是活跃对话时回退到最近活跃的对话，没有则回到无活跃状态
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	if err := s.repo.DeleteConversation(ctx, id, s.userID); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	s.mu.Lock()
	remaining := s.conversations[:0]
	for _, c := range s.conversations {
		if c.ID != id {
			remaining = append(remaining, c)
		}
	}
	s.conversations = remaining

	wasActive := s.activeID == id
	var nextID string
	if wasActive {
		s.activeID = ""
		s.entries = nil
		if len(s.conversations) > 0 {
			// 列表保持最近活跃在前
			nextID = s.conversations[0].ID
		}
	}
	s.mu.Unlock()

	if nextID != "" {
		if err := s.SelectConversation(ctx, nextID); err != nil {
			s.logger.Warn("Failed to load fallback conversation",
				zap.String("conversation_id", nextID),
				zap.Error(err))
		}
	}
	return nil
}

func (s *Store) removeEntry(localID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].Message.ID == localID {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return
		}
	}
}

func (s *Store) replaceEntry(index int, localID string, persisted models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < len(s.entries) && s.entries[index].Message.ID == localID {
		s.entries[index] = Entry{State: EntryPersisted, Message: persisted}
		return
	}
	// 下标已漂移时按本地id查找
	for i := range s.entries {
		if s.entries[i].Message.ID == localID {
			s.entries[i] = Entry{State: EntryPersisted, Message: persisted}
			return
		}
	}
}

func (s *Store) touchConversation(id string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.conversations {
		if s.conversations[i].ID == id {
			s.conversations[i].UpdatedAt = at
			break
		}
	}
}

// truncateTitle 截断到60个字符，截断时追加省略号
func truncateTitle(s string) string {
	runes := []rune(s)
	if len(runes) <= maxTitleRunes {
		return s
	}
	return string(runes[:maxTitleRunes]) + titleEllipsis
}
