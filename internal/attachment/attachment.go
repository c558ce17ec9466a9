package attachment

import (
	"github.com/aihub/chat-go/internal/models"
)

// Kind 附件类别
type Kind string

const (
	KindImage  Kind = "image"
	KindText   Kind = "text"
	KindBinary Kind = "binary"
)

// File 一次send中用户选择的原始文件
type File struct {
	Name      string
	MediaType string
	Data      []byte
}

// Attachment 处理后的附件（仅存活于一次send）
// Text为空表示没有提取到文本；ImageData仅在图片附件上出现
type Attachment struct {
	ID        string
	Filename  string
	MediaType string
	Size      int64
	Kind      Kind
	Text      string
	ImageData string
}

// Meta 转换为可持久化的附件元数据（不含内容）
func (a *Attachment) Meta() models.AttachmentMeta {
	return models.AttachmentMeta{
		Name:      a.Filename,
		MediaType: a.MediaType,
		Size:      a.Size,
	}
}

// Rejection 单个文件的拒绝原因（用户可见）
type Rejection struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}
