package record

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fyerfyer/stockplan-extract/internal/section"
)

var (
	// ErrSectionAbsent 段落不存在
	ErrSectionAbsent = errors.New("section absent")

	// ErrFieldAbsent 字段不存在
	ErrFieldAbsent = errors.New("field absent")
)

// FieldMap 段落名 -> 字段名 -> 值
type FieldMap map[string]map[string]string

// Lookup 查找字段，缺失时返回可恢复的错误
func (m FieldMap) Lookup(sectionName, field string) (string, error) {
	fields, ok := m[sectionName]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrSectionAbsent, sectionName)
	}
	value, ok := fields[field]
	if !ok {
		return "", fmt.Errorf("%w: %q in section %q", ErrFieldAbsent, field, sectionName)
	}
	return value, nil
}

// Dangling 段落末尾没有后续行的续行标记
type Dangling struct {
	Section string `json:"section"`
	Key     string `json:"key"`
}

// Record 文档组装结果
type Record struct {
	Kind     section.Kind `json:"kind"`
	Fields   FieldMap     `json:"fields"`
	Dangling []Dangling   `json:"dangling,omitempty"`
}

// Assemble 将文档的段落列表合并为FieldMap
// 同名段落按出现顺序合并，同一字段后写入者覆盖先写入者
func Assemble(doc section.Document) Record {
	rec := Record{
		Kind:   doc.Kind,
		Fields: make(FieldMap),
	}

	for _, s := range doc.Sections {
		entry, ok := rec.Fields[s.Name]
		if !ok {
			entry = make(map[string]string)
			rec.Fields[s.Name] = entry
		}

		for i := 0; i < len(s.Body); i++ {
			pair := s.Body[i]
			if pair.Value != "" {
				entry[pair.Key] = pair.Value
				continue
			}

			// 值为空：与下一行合并为一个逻辑字段
			if i+1 >= len(s.Body) {
				rec.Dangling = append(rec.Dangling, Dangling{Section: s.Name, Key: pair.Key})
				continue
			}
			i++
			cont := s.Body[i]
			if strings.HasPrefix(cont.Key, "(") {
				// 括号注释不属于字段名
				entry[pair.Key] = cont.Value
			} else {
				entry[pair.Key+" "+cont.Key] = cont.Value
			}
		}
	}

	return rec
}
