package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/fyerfyer/stockplan-extract/internal/section"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Format 输出格式
type Format string

const (
	// FormatCSV 逗号分隔
	FormatCSV Format = "csv"
	// FormatMarkdown Markdown表格
	FormatMarkdown Format = "markdown"
	// FormatHTML HTML表格
	FormatHTML Format = "html"
)

// ParseFormat 解析输出格式名称，空字符串默认为CSV
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", name)
	}
}

// Table 一种文档类型的输出表
type Table struct {
	Schema Schema
	Rows   [][]string
}

// Tables 按文档类型分组收集输出行
type Tables struct {
	byKind map[section.Kind]*Table
}

// NewTables 创建空的分组表
func NewTables() *Tables {
	return &Tables{byKind: make(map[section.Kind]*Table)}
}

// Append 追加一行，未知类型会被忽略
func (t *Tables) Append(kind section.Kind, row []string) bool {
	schema, ok := SchemaFor(kind)
	if !ok {
		return false
	}
	tbl, ok := t.byKind[kind]
	if !ok {
		tbl = &Table{Schema: schema}
		t.byKind[kind] = tbl
	}
	tbl.Rows = append(tbl.Rows, row)
	return true
}

// List 按注册顺序返回有数据的表
func (t *Tables) List() []Table {
	var out []Table
	for _, s := range Schemas() {
		if tbl, ok := t.byKind[s.Kind]; ok && len(tbl.Rows) > 0 {
			out = append(out, *tbl)
		}
	}
	return out
}

// Write 按指定格式输出所有表，每张表之后空一行
func Write(w io.Writer, format Format, tables []Table) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, tables)
	case FormatMarkdown:
		_, err := io.WriteString(w, renderMarkdown(tables))
		return err
	case FormatHTML:
		return writeHTML(w, tables)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func writeCSV(w io.Writer, tables []Table) error {
	for _, tbl := range tables {
		cw := csv.NewWriter(w)
		if err := cw.Write(tbl.Schema.Headers()); err != nil {
			return fmt.Errorf("failed to write %s header: %w", tbl.Schema.Kind, err)
		}
		if err := cw.WriteAll(tbl.Rows); err != nil {
			return fmt.Errorf("failed to write %s rows: %w", tbl.Schema.Kind, err)
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

func renderMarkdown(tables []Table) string {
	var b strings.Builder
	for _, tbl := range tables {
		headers := tbl.Schema.Headers()
		writeMarkdownRow(&b, headers)
		b.WriteString("|")
		for range headers {
			b.WriteString(" --- |")
		}
		b.WriteString("\n")
		for _, row := range tbl.Rows {
			writeMarkdownRow(&b, row)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeMarkdownRow(b *strings.Builder, cells []string) {
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" ")
		b.WriteString(strings.ReplaceAll(c, "|", `\|`))
		b.WriteString(" |")
	}
	b.WriteString("\n")
}

func writeHTML(w io.Writer, tables []Table) error {
	// Markdown解析器有状态，每次渲染都新建
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})

	out := markdown.ToHTML([]byte(renderMarkdown(tables)), p, renderer)
	_, err := w.Write(out)
	return err
}
