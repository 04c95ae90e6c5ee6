package layout

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var letterPage = Rect{LLX: 0, LLY: 0, URX: 612, URY: 792}

// word 测试用单词：起点坐标 + 文本，每个字形宽度0.5em
type word struct {
	x, y float64
	text string
}

// script 按顺序回放单词的事件源
type script struct {
	box      Rect
	fontSize float64
	words    []word
}

func (s script) Emit(sink Sink) error {
	if err := sink.BeginPage(s.box); err != nil {
		return err
	}
	for _, w := range s.words {
		if err := sink.BeginWord(); err != nil {
			return err
		}
		x := w.x
		for _, ch := range w.text {
			err := sink.Glyph(CharacterEvent{
				Text:      string(ch),
				Transform: Translate(x, w.y),
				FontSize:  s.fontSize,
				Advance:   0.5,
			})
			if err != nil {
				return err
			}
			x += 0.5 * s.fontSize
		}
		if err := sink.EndWord(); err != nil {
			return err
		}
	}
	return sink.EndPage()
}

func run(t *testing.T, words ...word) string {
	t.Helper()
	text, err := Reconstruct(script{box: letterPage, fontSize: 10, words: words})
	require.NoError(t, err)
	return text
}

func TestReconstruct_ContiguousGlyphsHaveNoSeparators(t *testing.T) {
	// 每个字形都作为独立单词，x恰好等于上一个字形的右边缘
	words := []word{
		{72, 700, "A"},
		{77, 700, "w"},
		{82, 700, "a"},
		{87, 700, "r"},
		{92, 700, "d"},
	}
	assert.Equal(t, "Award", run(t, words...))
}

func TestReconstruct_RightwardStepInsertsOneTab(t *testing.T) {
	// "Award"右边缘为97，阈值为97+1
	text := run(t, word{72, 700, "Award"}, word{98.5, 700, "01/01/2020"})
	assert.Equal(t, "Award\t01/01/2020", text)

	// 恰好在阈值上不插入分隔符
	text = run(t, word{72, 700, "Award"}, word{98, 700, "Date"})
	assert.Equal(t, "AwardDate", text)
}

func TestReconstruct_VerticalJumpInsertsOneNewline(t *testing.T) {
	// 下移20pt（大于1.5倍字号）且位于右侧
	text := run(t, word{72, 700, "Fee"}, word{200, 680, "2.50"})
	assert.Equal(t, "Fee\n2.50", text)
}

func TestReconstruct_VerticalJumpWrappingBackIsBlankLine(t *testing.T) {
	text := run(t, word{300, 700, "1234.56"}, word{72, 680, "Calculation"})
	assert.Equal(t, "1234.56\n\nCalculation", text)
}

func TestReconstruct_WrapBackOnNextRow(t *testing.T) {
	// 下移12pt：超过0.5倍字号但未超过1.5倍字号
	text := run(t, word{72, 700, "Total"}, word{72, 688, "Participant"})
	assert.Equal(t, "Total\nParticipant", text)
}

func TestReconstruct_ColumnRestart(t *testing.T) {
	// 向右并略微向上移动
	text := run(t, word{72, 700, "Left"}, word{300, 708, "Right"})
	assert.Equal(t, "Left\nRight", text)
}

func TestReconstruct_FirstGlyphNeverSeparated(t *testing.T) {
	text := run(t, word{500, 20, "Only"})
	assert.Equal(t, "Only", text)
}

func TestReconstruct_IntraWordGapsIgnored(t *testing.T) {
	var b strings.Builder
	rec := NewReconstructor(&b)
	require.NoError(t, rec.BeginPage(letterPage))
	require.NoError(t, rec.BeginWord())
	require.NoError(t, rec.Glyph(CharacterEvent{Text: "a", Transform: Translate(10, 700), FontSize: 10, Advance: 0.5}))
	require.NoError(t, rec.Glyph(CharacterEvent{Text: "b", Transform: Translate(400, 300), FontSize: 10, Advance: 0.5}))
	assert.Equal(t, "ab", b.String())
	assert.Equal(t, 2, rec.Glyphs())
	assert.Equal(t, 1, rec.Pages())
}

func TestReconstruct_Deterministic(t *testing.T) {
	words := []word{
		{72, 700, "Release"}, {112, 700, "Summary"},
		{72, 680, "Award"}, {200, 680, "01/01/2020"},
		{72, 668, "Release"}, {200, 668, "01/15/2020"},
	}
	first := run(t, words...)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, run(t, words...))
	}
}

func TestReconstruct_FlipUsesPageHeight(t *testing.T) {
	rec := NewReconstructor(io.Discard)
	require.NoError(t, rec.BeginPage(Rect{LLX: 0, LLY: 100, URX: 600, URY: 900}))
	require.NoError(t, rec.BeginWord())
	require.NoError(t, rec.Glyph(CharacterEvent{Text: "x", Transform: Translate(50, 700), FontSize: 10, Advance: 0.5}))

	c := rec.Cursor()
	assert.InDelta(t, 100.0, c.LastY, 1e-9)
	assert.InDelta(t, 55.0, c.LastEnd, 1e-9)
}

func TestReconstruct_WriteFailure(t *testing.T) {
	rec := NewReconstructor(failingWriter{})
	require.NoError(t, rec.BeginPage(letterPage))
	require.NoError(t, rec.BeginWord())
	err := rec.Glyph(CharacterEvent{Text: "x", Transform: Translate(1, 1), FontSize: 10, Advance: 0.5})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrWrite))
}

func TestEffectiveFontSize(t *testing.T) {
	assert.InDelta(t, 10.0, EffectiveFontSize(Identity(), 10), 1e-9)
	assert.InDelta(t, 20.0, EffectiveFontSize(Scale(2, 2), 10), 1e-9)
	// 旋转90度不改变有效字号
	assert.InDelta(t, 10.0, EffectiveFontSize(Matrix{0, 1, -1, 0, 0, 0}, 10), 1e-9)
	// 非等比缩放取几何平均
	assert.InDelta(t, 20.0, EffectiveFontSize(Scale(4, 1), 10), 1e-9)
}

func TestDecide(t *testing.T) {
	c := Cursor{LastEnd: 100, LastY: 50, Started: true}

	tests := []struct {
		name string
		x, y float64
		want Separator
	}{
		{"same row contiguous", 100, 50, Separator{}},
		{"same row small gap", 100.5, 50, Separator{}},
		{"same row column", 120, 50, Separator{Tab: true}},
		{"next row right", 120, 70, Separator{Newlines: 1}},
		{"next row left", 10, 70, Separator{Newlines: 2}},
		{"wrapped line", 10, 58, Separator{Newlines: 1}},
		{"next column up", 300, 40, Separator{Newlines: 1}},
		{"overlap same row", 90, 50, Separator{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(c, tt.x, tt.y, 10))
		})
	}
}

func TestMatrixMultiply(t *testing.T) {
	m := Translate(10, 20).Multiply(FlipFor(letterPage))
	x, y := m.Origin()
	assert.Equal(t, 10.0, x)
	assert.Equal(t, 772.0, y)

	px, py := Scale(2, 3).Multiply(Translate(1, 1)).Apply(1, 1)
	assert.Equal(t, 3.0, px)
	assert.Equal(t, 4.0, py)
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}
