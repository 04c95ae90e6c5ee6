package layout

// CharacterEvent 单个字形的绘制事件
// 由字符事件源逐个产生，处理后立即丢弃
type CharacterEvent struct {
	Text      string  // 字形对应的文本
	Transform Matrix  // 字形渲染矩阵
	FontSize  float64 // 名义字号
	Advance   float64 // 字形步进宽度（以em为单位，即字宽/1000）
}

// Sink 字符事件接收者
// 事件源按页、按单词驱动回调
type Sink interface {
	// BeginPage 开始新的一页，携带页面边界框
	BeginPage(box Rect) error

	// EndPage 当前页结束
	EndPage() error

	// BeginWord 开始新的单词
	BeginWord() error

	// EndWord 当前单词结束
	EndWord() error

	// Glyph 输出一个字形
	Glyph(ev CharacterEvent) error
}

// Source 字符事件源
type Source interface {
	// Emit 将整个文档的事件依次推送给sink
	Emit(sink Sink) error
}
