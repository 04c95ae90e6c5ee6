package document

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fyerfyer/stockplan-extract/internal/models"
)

// Parser 文档解析器接口
// 负责将输入文件转换为带制表符和换行符的版面文本
type Parser interface {
	// Parse 解析文档，返回版面文本
	Parse(filePath string) (string, error)

	// ParseReader 从Reader解析文档，返回版面文本
	// filename用于确定文档类型
	ParseReader(r io.Reader, filename string) (string, error)
}

// ContentType 表示文档的内容类型
type ContentType string

const (
	// PDF 文档类型
	PDF ContentType = "pdf"
	// LayoutText 已重建的版面文本，用于回放和调试
	LayoutText ContentType = "layout"
	// Unknown 未知类型
	Unknown ContentType = "unknown"
)

// LayoutDumpSuffix 调试输出的版面文本文件后缀，这类文件不作为输入
const LayoutDumpSuffix = ".layout.txt"

// ParserFactory 解析器工厂函数，根据文件类型创建对应的解析器
func ParserFactory(filePath string, opts ...PDFOption) (Parser, error) {
	switch DetectContentType(filePath) {
	case PDF:
		return NewPDFParser(opts...), nil
	case LayoutText:
		return NewPlainTextParser(), nil
	default:
		return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedFile, filepath.Ext(filePath))
	}
}

// DetectContentType 根据文件扩展名检测内容类型
func DetectContentType(filePath string) ContentType {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".pdf":
		return PDF
	case ".txt":
		return LayoutText
	default:
		return Unknown
	}
}

// Supported 判断文件是否可以被处理
// 以LayoutDumpSuffix结尾的调试输出不作为输入
func Supported(filePath string) bool {
	if strings.HasSuffix(strings.ToLower(filePath), LayoutDumpSuffix) {
		return false
	}
	return DetectContentType(filePath) != Unknown
}
