package chat

import (
	"github.com/aihub/chat-go/internal/models"
)

// EntryState 消息条目的两种身份
type EntryState int

const (
	// EntryPending 乐观插入，尚未拿到持久化记录
	EntryPending EntryState = iota
	// EntryPersisted 已被仓库返回的规范记录替换
	EntryPersisted
)

// Entry 视图侧的消息条目
// Pending条目的Message.ID是本地生成的占位id，Persisted条目持有规范记录
type Entry struct {
	State   EntryState
	Message models.Message
}
