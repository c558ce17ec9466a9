package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/aihub/chat-go/internal/config"
)

// 支持OCR的图片类型
var supportedMimeTypes = []string{
	"image/png",
	"image/jpeg",
	"image/jpg",
	"image/gif",
	"image/bmp",
	"image/webp",
}

// Client 封装tesseract命令行的文字识别客户端
type Client struct {
	cfg *config.OCRConfig
}

// NewClient 创建OCR客户端，未启用时返回nil
func NewClient(cfg *config.OCRConfig) *Client {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	return &Client{cfg: cfg}
}

// Supported 判断媒体类型是否支持识别
func (c *Client) Supported(mimeType string) bool {
	mimeType = strings.ToLower(mimeType)
	for _, t := range supportedMimeTypes {
		if t == mimeType {
			return true
		}
	}
	return false
}

// ExtractText 识别图片中的文字
func (c *Client) ExtractText(ctx context.Context, image []byte, mimeType string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("OCR client not enabled")
	}
	if !c.Supported(mimeType) {
		return "", fmt.Errorf("unsupported MIME type: %s", mimeType)
	}

	tmpFile, err := os.CreateTemp("", "ocr_*.png")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)
	tmpFile.Close()

	if err := os.WriteFile(tmpPath, image, 0644); err != nil {
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}

	// tesseract输出到<outPath>.txt
	outPath := strings.TrimSuffix(tmpPath, filepath.Ext(tmpPath))

	args := []string{tmpPath, outPath}
	if c.cfg.Languages != "" {
		args = append(args, "-l", c.cfg.Languages)
	}
	if c.cfg.DataPath != "" {
		args = append(args, "--tessdata-dir", c.cfg.DataPath)
	}

	cmd := exec.CommandContext(ctx, c.cfg.TesseractPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract failed: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}

	outFile := outPath + ".txt"
	defer os.Remove(outFile)

	data, err := os.ReadFile(outFile)
	if err != nil {
		return "", fmt.Errorf("failed to read OCR output: %w", err)
	}

	return strings.TrimSpace(string(data)), nil
}
