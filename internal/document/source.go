package document

import (
	"bytes"
	"fmt"
	"math"

	"github.com/fyerfyer/stockplan-extract/internal/layout"
	"github.com/fyerfyer/stockplan-extract/internal/models"
	"github.com/ledongthuc/pdf"
)

const (
	// 与上一字形基线偏差超过该比例视为新单词
	baselineTolerance = 0.01
	// 与上一字形末端距离超过该比例视为新单词
	wordGapRatio = 0.3
	// Parent链的最大深度
	maxParentDepth = 32
)

// 找不到MediaBox时使用的页面大小
var letterPage = layout.Rect{LLX: 0, LLY: 0, URX: 612, URY: 792}

// PDFSource 将PDF页面内容转换为字形事件流
type PDFSource struct {
	reader *pdf.Reader
}

// NewPDFSource 从内存中的PDF数据创建事件源
func NewPDFSource(data []byte) (src *PDFSource, err error) {
	defer func() {
		if r := recover(); r != nil {
			src, err = nil, fmt.Errorf("%w: %v", models.ErrDecode, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDecode, err)
	}
	return &PDFSource{reader: reader}, nil
}

// NumPage 返回页数
func (s *PDFSource) NumPage() int {
	return s.reader.NumPage()
}

// Emit 按页面顺序向sink发送事件
// 解码过程中的panic会被转换为ErrDecode
func (s *PDFSource) Emit(sink layout.Sink) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", models.ErrDecode, r)
		}
	}()

	for i := 1; i <= s.reader.NumPage(); i++ {
		page := s.reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		if err := sink.BeginPage(mediaBox(page)); err != nil {
			return err
		}
		if err := emitGlyphs(sink, page.Content().Text); err != nil {
			return err
		}
		if err := sink.EndPage(); err != nil {
			return err
		}
	}
	return nil
}

// emitGlyphs 按几何位置将字形分组为单词并依次发送
func emitGlyphs(sink layout.Sink, texts []pdf.Text) error {
	open := false
	var prevEnd, prevY float64

	for _, t := range texts {
		fs := t.FontSize
		if fs <= 0 {
			fs = 1
		}

		if !open || startsWord(t, prevEnd, prevY, fs) {
			if open {
				if err := sink.EndWord(); err != nil {
					return err
				}
			}
			if err := sink.BeginWord(); err != nil {
				return err
			}
			open = true
		}

		ev := layout.CharacterEvent{
			Text:      t.S,
			Transform: layout.Translate(t.X, t.Y),
			FontSize:  fs,
			Advance:   t.W / fs,
		}
		if err := sink.Glyph(ev); err != nil {
			return err
		}

		prevEnd = t.X + t.W
		prevY = t.Y
	}

	if open {
		return sink.EndWord()
	}
	return nil
}

func startsWord(t pdf.Text, prevEnd, prevY, fs float64) bool {
	if math.Abs(t.Y-prevY) > baselineTolerance*fs {
		return true
	}
	return math.Abs(t.X-prevEnd) > wordGapRatio*fs
}

// mediaBox 查找页面的MediaBox，可继承自父节点
func mediaBox(page pdf.Page) layout.Rect {
	v := page.V
	for depth := 0; depth < maxParentDepth && !v.IsNull(); depth++ {
		box := v.Key("MediaBox")
		if box.Len() == 4 {
			return layout.Rect{
				LLX: box.Index(0).Float64(),
				LLY: box.Index(1).Float64(),
				URX: box.Index(2).Float64(),
				URY: box.Index(3).Float64(),
			}
		}
		v = v.Key("Parent")
	}
	return letterPage
}
