package models

import (
	"time"
)

// Conversation 对话表
// Title为空指针表示尚未由首条用户消息生成标题
type Conversation struct {
	ID        string    `gorm:"primaryKey;column:id;size:36" json:"id"`
	UserID    uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	Title     *string   `gorm:"column:title;size:80" json:"title"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;index" json:"updated_at"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// Message 对话消息表
// Attachments仅保存附件元数据（文件名/类型/大小），不保存二进制内容
type Message struct {
	ID             string    `gorm:"primaryKey;column:id;size:36" json:"id"`
	ConversationID string    `gorm:"column:conversation_id;size:36;not null;index" json:"conversation_id"`
	Role           string    `gorm:"column:role;size:20;not null" json:"role"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	Attachments    string    `gorm:"type:jsonb;column:attachments" json:"attachments,omitempty"`
	CreatedAt      time.Time `gorm:"column:created_at;not null;index" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}

// AttachmentMeta 持久化的附件描述（名称、类型、大小）
type AttachmentMeta struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	Size      int64  `json:"size"`
}
