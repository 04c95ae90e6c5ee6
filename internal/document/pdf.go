package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fyerfyer/stockplan-extract/internal/layout"
	"github.com/fyerfyer/stockplan-extract/internal/models"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFParser PDF文档解析器
type PDFParser struct {
	validate bool
}

// PDFOption PDF解析器选项
type PDFOption func(*PDFParser)

// WithValidation 解析前使用pdfcpu校验文档结构
func WithValidation(enable bool) PDFOption {
	return func(p *PDFParser) {
		p.validate = enable
	}
}

// NewPDFParser 创建一个新的PDF解析器
func NewPDFParser(opts ...PDFOption) Parser {
	p := &PDFParser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse 读取PDF文件并重建版面文本
func (p *PDFParser) Parse(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read %s: %v", models.ErrDecode, filePath, err)
	}
	return p.parseBytes(data)
}

// ParseReader 从Reader读取PDF并重建版面文本
func (p *PDFParser) ParseReader(r io.Reader, filename string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read %s: %v", models.ErrDecode, filename, err)
	}
	return p.parseBytes(data)
}

func (p *PDFParser) parseBytes(data []byte) (string, error) {
	if p.validate {
		if _, err := Inspect(data); err != nil {
			return "", err
		}
	}

	src, err := NewPDFSource(data)
	if err != nil {
		return "", err
	}

	text, err := layout.Reconstruct(src)
	if err != nil {
		if errors.Is(err, layout.ErrWrite) {
			return "", fmt.Errorf("%w: %v", models.ErrLayoutWrite, err)
		}
		return "", err
	}
	return text, nil
}

// Info PDF结构信息
type Info struct {
	PageCount int
}

// Inspect 使用pdfcpu读取并校验PDF结构
func Inspect(data []byte) (Info, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return Info{}, fmt.Errorf("%w: failed to read PDF: %v", models.ErrDecode, err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return Info{}, fmt.Errorf("%w: invalid PDF: %v", models.ErrDecode, err)
	}

	return Info{PageCount: ctx.PageCount}, nil
}
