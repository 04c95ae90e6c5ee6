package section

import (
	"fmt"
	"strings"
)

// Kind 文档类型
type Kind int

const (
	// KindUnknown 未识别的文档
	KindUnknown Kind = iota
	// KindRSU 限制性股票释放确认书
	KindRSU
	// KindESPP 员工购股计划购买确认书
	KindESPP
)

// 文档抬头与类型的对应关系
var headerKinds = map[string]Kind{
	"EMPLOYEE STOCK PLAN RELEASE CONFIRMATION":  KindRSU,
	"EMPLOYEE STOCK PLAN PURCHASE CONFIRMATION": KindESPP,
}

// 扫描阶段直接丢弃的模板行
var boilerplate = map[string]struct{}{
	"Release Details":  {},
	"Registration:":    {},
	"Purchase Details": {},
}

// String 返回类型名称
func (k Kind) String() string {
	switch k {
	case KindRSU:
		return "rsu"
	case KindESPP:
		return "espp"
	default:
		return "unknown"
	}
}

// MarshalText 实现encoding.TextMarshaler
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText 实现encoding.TextUnmarshaler
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind 将名称解析为文档类型
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "rsu":
		return KindRSU, nil
	case "espp":
		return KindESPP, nil
	case "unknown", "":
		return KindUnknown, nil
	default:
		return KindUnknown, fmt.Errorf("unknown document kind: %s", name)
	}
}

// Classify 根据抬头行识别文档类型
func Classify(line string) (Kind, bool) {
	kind, ok := headerKinds[line]
	return kind, ok
}
