package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aihub/chat-go/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound 记录不存在或不属于当前用户
var ErrNotFound = errors.New("record not found or access denied")

// ConversationRepository 对话持久化仓库
// 所有查询都以user_id限定，跨用户访问一律视为不存在
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository 创建对话仓库
func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// CreateConversation 创建新对话（无标题，由首条消息生成）
func (r *ConversationRepository) CreateConversation(ctx context.Context, userID uint) (*models.Conversation, error) {
	now := time.Now()
	conversation := &models.Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(conversation).Error; err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conversation, nil
}

// GetConversation 获取对话
func (r *ConversationRepository) GetConversation(ctx context.Context, id string, userID uint) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&conversation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conversation, nil
}

// ListConversations 按最近活跃倒序返回用户的对话列表
func (r *ConversationRepository) ListConversations(ctx context.Context, userID uint) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return conversations, nil
}

// SetTitleIfUnset 仅在标题为空时设置标题
// 条件直接下推到UPDATE语句，保证并发send下只有一次生效
func (r *ConversationRepository) SetTitleIfUnset(ctx context.Context, id string, userID uint, title string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ? AND user_id = ? AND title IS NULL", id, userID).
		Update("title", title)
	if result.Error != nil {
		return false, fmt.Errorf("failed to set conversation title: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteConversation 删除对话及其全部消息
func (r *ConversationRepository) DeleteConversation(ctx context.Context, id string, userID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Conversation{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete conversation: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("conversation_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return fmt.Errorf("failed to delete conversation messages: %w", err)
		}
		return nil
	})
}

// InsertMessage 保存消息并推进父对话的updated_at到消息时间
func (r *ConversationRepository) InsertMessage(ctx context.Context, userID uint, message *models.Message) (*models.Message, error) {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 先确认对话归属
		var count int64
		if err := tx.Model(&models.Conversation{}).
			Where("id = ? AND user_id = ?", message.ConversationID, userID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to verify conversation ownership: %w", err)
		}
		if count == 0 {
			return ErrNotFound
		}

		if err := tx.Create(message).Error; err != nil {
			return fmt.Errorf("failed to save message: %w", err)
		}

		if err := tx.Model(&models.Conversation{}).
			Where("id = ?", message.ConversationID).
			Update("updated_at", message.CreatedAt).Error; err != nil {
			return fmt.Errorf("failed to touch conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return message, nil
}

// ListMessages 按创建时间升序返回对话消息
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID string, userID uint) ([]models.Message, error) {
	if _, err := r.GetConversation(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}
