package document

import (
	"fmt"
	"io"
	"os"

	"github.com/fyerfyer/stockplan-extract/internal/models"
)

// PlainTextParser 版面文本解析器
// 输入为已重建的版面文本，原样返回
type PlainTextParser struct{}

// NewPlainTextParser 创建一个新的版面文本解析器
func NewPlainTextParser() Parser {
	return &PlainTextParser{}
}

// Parse 读取版面文本文件
func (p *PlainTextParser) Parse(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("%w: failed to open text file: %v", models.ErrDecode, err)
	}
	defer file.Close()

	return p.ParseReader(file, filePath)
}

// ParseReader 从Reader读取版面文本
func (p *PlainTextParser) ParseReader(r io.Reader, filename string) (string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read %s: %v", models.ErrDecode, filename, err)
	}
	return string(content), nil
}
