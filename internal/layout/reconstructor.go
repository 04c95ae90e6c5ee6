package layout

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

const (
	// ColumnSeparator 同一行中不同列之间的分隔符
	ColumnSeparator = "\t"
	// LineSeparator 行分隔符
	LineSeparator = "\n"
)

// 分隔判定阈值，均以有效字号为单位
const (
	verticalJumpRatio = 1.5
	wrapBackRatio     = 0.5
	rightStepRatio    = 0.1
)

// ErrWrite 输出缓冲写入失败
var ErrWrite = errors.New("layout output write failed")

// Cursor 版面重建的游标状态
type Cursor struct {
	LastEnd     float64 // 上一个字形的右边缘x
	LastY       float64 // 上一个字形的y
	FirstOfWord bool    // 当前字形是否为单词首字形
	Started     bool    // 文档中是否已经输出过字形
	Flip        Matrix  // 当前页的垂直翻转矩阵
}

// Separator 单词首字形之前需要插入的分隔
type Separator struct {
	Newlines int  // 换行数量，0-2，2表示空行
	Tab      bool // 是否插入列分隔符
}

// String 返回分隔符的文本形式
func (s Separator) String() string {
	if s.Newlines > 0 {
		return strings.Repeat(LineSeparator, s.Newlines)
	}
	if s.Tab {
		return ColumnSeparator
	}
	return ""
}

// Decide 根据游标和当前字形位置决定分隔符
// 换行规则可以叠加：既大幅下移又回到左侧时产生空行，用于分隔段落
// 已换行时不再插入列分隔符
func Decide(c Cursor, x, y, fontSize float64) Separator {
	var sep Separator
	dy := math.Abs(y - c.LastY)

	// 垂直跳跃：新的一行
	if dy > fontSize*verticalJumpRatio {
		sep.Newlines++
	}

	// 向左下方移动：换行回绕
	if x < c.LastEnd && dy > fontSize*wrapBackRatio {
		sep.Newlines++
	}

	// 向右且向上：进入下一个版面列
	if x > c.LastEnd && y < c.LastY {
		sep.Newlines++
	}

	if sep.Newlines > 2 {
		sep.Newlines = 2
	}

	// 同一行向右移动了足够距离：下一列
	if sep.Newlines == 0 && x > c.LastEnd+fontSize*rightStepRatio {
		sep.Tab = true
	}

	return sep
}

// EffectiveFontSize 计算经过变换后的有效字号
// 取变换后字号向量两个分量的几何平均，兼容旋转和非等比缩放
func EffectiveFontSize(trm Matrix, fontSize float64) float64 {
	vx, vy := trm.ApplyVector(fontSize, fontSize)
	return math.Sqrt(math.Abs(vx * vy))
}

// Reconstructor 版面重建器
// 消费字符事件流，输出以换行分隔行、以制表符分隔列的文本
type Reconstructor struct {
	w      io.Writer
	cursor Cursor
	pages  int
	glyphs int
}

// NewReconstructor 创建版面重建器
func NewReconstructor(w io.Writer) *Reconstructor {
	return &Reconstructor{
		w:      w,
		cursor: Cursor{Flip: Identity()},
	}
}

// BeginPage 根据页面高度设置翻转矩阵
func (r *Reconstructor) BeginPage(box Rect) error {
	r.cursor.Flip = FlipFor(box)
	r.pages++
	return nil
}

// EndPage 页面结束，无需处理
func (r *Reconstructor) EndPage() error {
	return nil
}

// BeginWord 标记下一个字形为单词首字形
func (r *Reconstructor) BeginWord() error {
	r.cursor.FirstOfWord = true
	return nil
}

// EndWord 单词结束，无需处理
func (r *Reconstructor) EndWord() error {
	return nil
}

// Glyph 处理一个字形
func (r *Reconstructor) Glyph(ev CharacterEvent) error {
	x, y := ev.Transform.Multiply(r.cursor.Flip).Origin()
	fontSize := EffectiveFontSize(ev.Transform, ev.FontSize)

	if r.cursor.FirstOfWord && r.cursor.Started {
		if sep := Decide(r.cursor, x, y, fontSize).String(); sep != "" {
			if err := r.write(sep); err != nil {
				return err
			}
		}
	}

	if err := r.write(ev.Text); err != nil {
		return err
	}

	r.cursor.FirstOfWord = false
	r.cursor.Started = true
	r.cursor.LastY = y
	r.cursor.LastEnd = x + ev.Advance*fontSize
	r.glyphs++
	return nil
}

// Cursor 返回当前游标状态的副本
func (r *Reconstructor) Cursor() Cursor {
	return r.cursor
}

// Pages 已处理的页数
func (r *Reconstructor) Pages() int {
	return r.pages
}

// Glyphs 已处理的字形数
func (r *Reconstructor) Glyphs() int {
	return r.glyphs
}

func (r *Reconstructor) write(s string) error {
	if _, err := io.WriteString(r.w, s); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

// Reconstruct 便捷函数：驱动事件源并返回重建后的文本
func Reconstruct(src Source) (string, error) {
	var b strings.Builder
	rec := NewReconstructor(&b)
	if err := src.Emit(rec); err != nil {
		return "", err
	}
	return b.String(), nil
}
