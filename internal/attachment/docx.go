package attachment

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/unidoc/unioffice/document"
)

// extractDocxText 提取Word文档正文
// 段落内空白折叠为单个空格，段落边界转换为换行
func extractDocxText(data []byte) (string, error) {
	doc, err := document.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse DOCX: %w", err)
	}
	defer doc.Close()

	var paragraphs []string
	for _, para := range doc.Paragraphs() {
		var runText strings.Builder
		for _, run := range para.Runs() {
			runText.WriteString(run.Text())
		}
		text := collapseWhitespace(runText.String())
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	}

	return strings.Join(paragraphs, "\n"), nil
}

// collapseWhitespace 折叠连续空白为单个空格并去除首尾空白
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
