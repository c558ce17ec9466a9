package chat

import (
	"context"
	"time"
)

// 渐进渲染的目标步数与步间隔
const (
	revealSteps    = 120
	revealInterval = 25 * time.Millisecond
)

// Renderer 把完整回复按固定节奏渐进揭示
// 回复是一次性拿到的，揭示只是展示节奏，不是流式传输
type Renderer struct {
	interval time.Duration
}

// NewRenderer 创建渲染器，interval<=0时使用默认节奏
func NewRenderer(interval time.Duration) *Renderer {
	if interval <= 0 {
		interval = revealInterval
	}
	return &Renderer{interval: interval}
}

// Reveal 按前缀逐步调用emit，最后一次必然是完整文本
// 每步揭示ceil(len/120)个字符（至少1个），字符按rune计数不会截断多字节字符
// ctx取消时立即补发完整文本后返回
func (r *Renderer) Reveal(ctx context.Context, text string, emit func(partial string)) {
	runes := []rune(text)
	if len(runes) == 0 {
		emit(text)
		return
	}

	chunk := (len(runes) + revealSteps - 1) / revealSteps
	if chunk < 1 {
		chunk = 1
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for shown := chunk; shown < len(runes); shown += chunk {
		select {
		case <-ctx.Done():
			emit(text)
			return
		case <-ticker.C:
			emit(string(runes[:shown]))
		}
	}
	emit(text)
}
