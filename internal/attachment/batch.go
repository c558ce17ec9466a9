package attachment

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ProcessBatch 处理一批新选择的文件
// current为本次send已有的附件数；超出单轮上限的文件与超大文件逐个拒绝，
// 其余文件并发处理，结果按原始选择顺序返回
func (p *Processor) ProcessBatch(ctx context.Context, files []File, current int) ([]*Attachment, []Rejection) {
	var rejections []Rejection

	allowed := p.cfg.MaxFilesPerTurn - current
	if allowed < 0 {
		allowed = 0
	}
	if len(files) > allowed {
		for _, file := range files[allowed:] {
			rejections = append(rejections, Rejection{
				Filename: file.Name,
				Reason:   fmt.Sprintf("attachment limit reached (max %d files per message)", p.cfg.MaxFilesPerTurn),
			})
		}
		files = files[:allowed]
	}

	accepted := make([]File, 0, len(files))
	for _, file := range files {
		if int64(len(file.Data)) > p.cfg.MaxFileSize {
			rejections = append(rejections, Rejection{
				Filename: file.Name,
				Reason:   fmt.Sprintf("file exceeds %s limit", formatSizeLimit(p.cfg.MaxFileSize)),
			})
			continue
		}
		accepted = append(accepted, file)
	}

	// 并发处理，按下标写回保持原始顺序
	results := make([]*Attachment, len(accepted))
	var wg sync.WaitGroup
	for i, file := range accepted {
		wg.Add(1)
		go func(i int, file File) {
			defer wg.Done()
			results[i] = p.Process(ctx, file)
		}(i, file)
	}
	wg.Wait()

	if len(rejections) > 0 {
		p.logger.Info("Attachment batch partially rejected",
			zap.Int("accepted", len(results)),
			zap.Int("rejected", len(rejections)))
	}

	return results, rejections
}

// formatSizeLimit 整MiB的限制按MiB展示，其余按字节展示，避免整除截断误导用户
func formatSizeLimit(limit int64) string {
	const mib = 1024 * 1024
	if limit >= mib && limit%mib == 0 {
		return fmt.Sprintf("%d MiB", limit/mib)
	}
	return fmt.Sprintf("%d bytes", limit)
}
