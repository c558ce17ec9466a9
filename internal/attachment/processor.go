package attachment

import (
	"context"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aihub/chat-go/internal/config"
	"github.com/aihub/chat-go/internal/logger"
	"github.com/aihub/chat-go/internal/ocr"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const docxMediaType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

var textMediaTypes = []string{
	"application/json",
	"application/xml",
	"application/csv",
}

var textExtensions = []string{".txt", ".md", ".json", ".csv"}

// Processor 附件处理器
// 按类型分发提取策略，提取失败一律降级为仅保留元数据
type Processor struct {
	cfg    *config.UploadConfig
	ocr    *ocr.Client
	logger *zap.Logger
}

// NewProcessor 创建附件处理器，ocrClient可为nil（OCR未启用）
func NewProcessor(cfg *config.UploadConfig, ocrClient *ocr.Client) *Processor {
	return &Processor{
		cfg:    cfg,
		ocr:    ocrClient,
		logger: logger.GetLogger(),
	}
}

// Process 处理单个文件，永不失败：提取出错时返回仅含元数据的附件
func (p *Processor) Process(ctx context.Context, file File) *Attachment {
	record := &Attachment{
		ID:        uuid.NewString(),
		Filename:  file.Name,
		MediaType: file.MediaType,
		Size:      int64(len(file.Data)),
	}

	mediaType := strings.ToLower(strings.TrimSpace(file.MediaType))
	ext := strings.ToLower(filepath.Ext(file.Name))

	switch {
	case strings.HasPrefix(mediaType, "image/"):
		record.Kind = KindImage
		record.ImageData = fmt.Sprintf("data:%s;base64,%s", mediaType, base64.StdEncoding.EncodeToString(file.Data))
		// OCR尽力而为，失败等同于图片里没有文字
		if p.ocr != nil {
			text, err := p.ocr.ExtractText(ctx, file.Data, mediaType)
			if err != nil {
				p.logger.Warn("OCR extraction failed",
					zap.String("filename", file.Name),
					zap.Error(err))
			} else {
				record.Text = text
			}
		}

	case isTextMediaType(mediaType) || containsString(textExtensions, ext):
		record.Kind = KindText
		record.Text = string(file.Data)

	case mediaType == "application/pdf" || ext == ".pdf":
		record.Kind = KindText
		text, err := extractPDFText(file.Data)
		if err != nil {
			p.logger.Warn("PDF extraction failed",
				zap.String("filename", file.Name),
				zap.Error(err))
		} else {
			record.Text = text
		}

	case mediaType == docxMediaType || ext == ".docx":
		record.Kind = KindText
		text, err := extractDocxText(file.Data)
		if err != nil {
			p.logger.Warn("DOCX extraction failed",
				zap.String("filename", file.Name),
				zap.Error(err))
		} else {
			record.Text = text
		}

	default:
		// 未知类型：仅保留元数据，模型只会看到文件名/类型/大小
		record.Kind = KindBinary
	}

	return record
}

func isTextMediaType(mediaType string) bool {
	if strings.HasPrefix(mediaType, "text/") {
		return true
	}
	return containsString(textMediaTypes, mediaType)
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
