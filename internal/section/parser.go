package section

import (
	"fmt"
	"strings"
)

const columnSeparator = "\t"

// Pair 一个键值对，值为空表示续行标记
type Pair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Section 命名的键值对块
type Section struct {
	Name string `json:"name"`
	Body []Pair `json:"body"`
}

// Document 解析后的文档
type Document struct {
	Kind     Kind      `json:"kind"`
	Sections []Section `json:"sections"`
	Warnings []string  `json:"warnings,omitempty"`
}

// state 解析状态机的状态
type state int

const (
	stateScanning state = iota // 寻找下一个段落名
	stateBody                  // 读取段落内容
	stateDone                  // 输入耗尽
)

// parser 逐行解析的状态机
type parser struct {
	lines []string
	pos   int

	sections []Section
	warnings []string

	name string
	body []Pair
}

// Parse 将版面重建后的文本解析为段落列表
func Parse(text string) Document {
	text = strings.TrimSuffix(text, "\n")
	return ParseLines(strings.Split(text, "\n"))
}

// ParseLines 解析已拆分的行
func ParseLines(lines []string) Document {
	p := &parser{lines: make([]string, len(lines))}
	for i, l := range lines {
		p.lines[i] = strings.TrimSpace(l)
	}

	kind := KindUnknown
	st := stateScanning
	for st != stateDone {
		switch st {
		case stateScanning:
			st, kind = p.scan(kind)
		case stateBody:
			st = p.readBody()
		}
	}

	return Document{
		Kind:     kind,
		Sections: p.sections,
		Warnings: p.warnings,
	}
}

// next 取下一行
func (p *parser) next() (string, bool) {
	if p.pos >= len(p.lines) {
		return "", false
	}
	l := p.lines[p.pos]
	p.pos++
	return l, true
}

// peek 查看下一行但不消费
func (p *parser) peek() (string, bool) {
	if p.pos >= len(p.lines) {
		return "", false
	}
	return p.lines[p.pos], true
}

func (p *parser) skipBlankLines() {
	for p.pos < len(p.lines) && p.lines[p.pos] == "" {
		p.pos++
	}
}

// scan 寻找段落名；抬头行只记录类型，首次识别的类型不会被覆盖
func (p *parser) scan(kind Kind) (state, Kind) {
	for {
		l, ok := p.next()
		if !ok {
			return stateDone, kind
		}

		if k, isHeader := Classify(l); isHeader {
			if kind == KindUnknown {
				kind = k
			}
			continue
		}

		if _, skip := boilerplate[l]; skip || l == "" {
			continue
		}

		p.skipBlankLines()
		p.name = l
		return stateBody, kind
	}
}

// readBody 读取段落内容直到遇到结束段落的空行
func (p *parser) readBody() state {
	for {
		l, ok := p.next()
		if !ok {
			// 输入在段落中途结束，仍然保留已读取的内容
			p.warnings = append(p.warnings,
				fmt.Sprintf("section %q still open at end of input, flushed %d pairs", p.name, len(p.body)))
			p.closeSection()
			return stateDone
		}

		if l == "" {
			// 段落内部的空隙：下一行仍是键值行
			if next, ok := p.peek(); ok && strings.Contains(next, columnSeparator) {
				continue
			}
			p.closeSection()
			return stateScanning
		}

		fields := strings.Split(l, columnSeparator)
		pair := Pair{Key: strings.TrimSpace(fields[0])}
		if len(fields) > 1 {
			pair.Value = strings.TrimSpace(fields[1])
		}
		p.body = append(p.body, pair)
	}
}

func (p *parser) closeSection() {
	p.sections = append(p.sections, Section{Name: p.name, Body: p.body})
	p.name = ""
	p.body = nil
}
