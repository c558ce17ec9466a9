package chat

import (
	"fmt"
	"strings"

	"github.com/aihub/chat-go/internal/attachment"
	"github.com/aihub/chat-go/internal/models"
	"github.com/sashabaranov/go-openai"
)

// 没有正文时发给模型的占位说明
const noTextPlaceholder = "Please review the attached files."

// AssembleTurn 组装一轮发送
// 返回要持久化的用户消息正文，以及发给模型的完整消息列表：
// 历史消息按原顺序映射，之后是本轮的合并文本单元，图片作为尾部单元追加，绝不穿插
func AssembleTurn(prior []models.Message, text string, attachments []*attachment.Attachment, maxExtractChars int) (string, []openai.ChatCompletionMessage) {
	text = strings.TrimSpace(text)

	persisted := text
	if persisted == "" && len(attachments) > 0 {
		names := make([]string, len(attachments))
		for i, att := range attachments {
			names[i] = att.Filename
		}
		persisted = "Attached files: " + strings.Join(names, ", ")
	}

	units := make([]openai.ChatCompletionMessage, 0, len(prior)+1)
	for _, msg := range prior {
		units = append(units, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	if len(attachments) == 0 {
		units = append(units, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: text,
		})
		return persisted, units
	}

	// 合并文本单元：用户正文 + 每个有提取文本的附件一个带标签的段落
	var combined strings.Builder
	if text != "" {
		combined.WriteString(text)
	} else {
		combined.WriteString(noTextPlaceholder)
	}
	for _, att := range attachments {
		if att.Text == "" {
			continue
		}
		combined.WriteString(fmt.Sprintf("\n\n--- File: %s ---\n", att.Filename))
		combined.WriteString(truncateRunes(att.Text, maxExtractChars))
	}
	// 没有提取到文本的附件只告知名称/类型/大小
	for _, att := range attachments {
		if att.Text == "" && att.ImageData == "" {
			combined.WriteString(fmt.Sprintf("\n\n--- File: %s (%s, %d bytes, content not extracted) ---", att.Filename, att.MediaType, att.Size))
		}
	}

	var imageParts []openai.ChatMessagePart
	for _, att := range attachments {
		if att.ImageData == "" {
			continue
		}
		imageParts = append(imageParts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL: att.ImageData,
			},
		})
	}

	if len(imageParts) == 0 {
		units = append(units, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: combined.String(),
		})
		return persisted, units
	}

	parts := make([]openai.ChatMessagePart, 0, len(imageParts)+1)
	parts = append(parts, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeText,
		Text: combined.String(),
	})
	parts = append(parts, imageParts...)

	units = append(units, openai.ChatCompletionMessage{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: parts,
	})
	return persisted, units
}

// truncateRunes 按字符数截断，限制单个附件文本对请求体积的放大
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
