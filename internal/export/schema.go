package export

import (
	"fmt"
	"strings"

	"github.com/fyerfyer/stockplan-extract/internal/models"
	"github.com/fyerfyer/stockplan-extract/internal/record"
	"github.com/fyerfyer/stockplan-extract/internal/section"
)

// Column 输出列与FieldMap中字段的对应关系
type Column struct {
	Header  string // 输出列名
	Section string // 段落名
	Field   string // 字段名
}

// Schema 某一文档类型的固定输出结构
type Schema struct {
	Kind    section.Kind
	Columns []Column
}

// 释放确认书
var rsuSchema = Schema{
	Kind: section.KindRSU,
	Columns: []Column{
		{"Award Date", "Release Summary", "Award Date"},
		{"Release Date", "Release Summary", "Release Date"},
		{"Shares Released", "Release Summary", "Shares Released"},
		{"Market Value Per Share", "Release Summary", "Market Value Per Share"},
		{"Sale Price Per Share", "Release Summary", "Sale Price Per Share"},
		{"Market Value", "Calculation of Gain", "Market Value"},
		{"Shares Sold", "Stock Distribution", "Shares Sold"},
		{"Shares Issued", "Stock Distribution", "Shares Issued"},
		{"Total Sale Price", "Cash Distribution", "Total Sale Price"},
		{"Total Tax", "Cash Distribution", "Total Tax"},
		{"Fee", "Cash Distribution", "Fee"},
		{"Total Due Participant", "Cash Distribution", "Total Due Participant"},
	},
}

// 购买确认书
var esppSchema = Schema{
	Kind: section.KindESPP,
	Columns: []Column{
		{"Grant Date", "Purchase Summary", "Grant Date"},
		{"Purchase Begin Date", "Purchase Summary", "Purchase Begin Date"},
		{"Purchase Date", "Purchase Summary", "Purchase Date"},
		{"Shares Purchased", "Shares Purchased to Date in Current Offering", "Shares Purchased"},
		{"Previous Carry Forward", "Contributions", "Previous Carry Forward"},
		{"Current Contributions", "Contributions", "Current Contributions"},
		{"Total Contributions", "Contributions", "Total Contributions"},
		{"Total Price", "Contributions", "Total Price"},
		{"Amount Refunded", "Contributions", "Amount Refunded"},
		{"Grant Date Market Value", "Calculation of Shares Purchased", "Grant Date Market Value"},
		{"Purchase Value per Share", "Calculation of Shares Purchased", "Purchase Value per Share"},
		{"Purchase Price per Share", "Calculation of Shares Purchased", "Purchase Price per Share"},
		{"Total Value", "Calculation of Gain", "Total Value"},
		{"Taxable Gain", "Calculation of Gain", "Taxable Gain"},
	},
}

// 输出顺序即注册顺序
var schemas = []Schema{rsuSchema, esppSchema}

// Schemas 返回所有已知文档类型的输出结构
func Schemas() []Schema {
	return schemas
}

// SchemaFor 查找文档类型对应的输出结构
func SchemaFor(kind section.Kind) (Schema, bool) {
	for _, s := range schemas {
		if s.Kind == kind {
			return s, true
		}
	}
	return Schema{}, false
}

// Headers 返回表头
func (s Schema) Headers() []string {
	headers := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		headers[i] = c.Header
	}
	return headers
}

// IncompleteRecordError 文档缺少输出所需的段落或字段
type IncompleteRecordError struct {
	Kind    section.Kind
	Missing []string
}

// Error 实现error接口
func (e *IncompleteRecordError) Error() string {
	return fmt.Sprintf("incomplete %s record: missing %s", e.Kind, strings.Join(e.Missing, ", "))
}

// Unwrap 支持errors.Is(err, models.ErrIncompleteRecord)
func (e *IncompleteRecordError) Unwrap() error {
	return models.ErrIncompleteRecord
}

// Render 按输出结构从FieldMap中取出一行
// 所有缺失字段会一并报告
func (s Schema) Render(fields record.FieldMap) ([]string, error) {
	row := make([]string, len(s.Columns))
	var missing []string

	for i, c := range s.Columns {
		v, err := fields.Lookup(c.Section, c.Field)
		if err != nil {
			missing = append(missing, c.Section+"/"+c.Field)
			continue
		}
		row[i] = v
	}

	if len(missing) > 0 {
		return nil, &IncompleteRecordError{Kind: s.Kind, Missing: missing}
	}
	return row, nil
}
