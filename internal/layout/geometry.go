package layout

// Matrix 二维仿射变换矩阵 [a b c d e f]
// 采用PDF的行向量约定：[x y 1] × M
type Matrix [6]float64

// Identity 返回单位矩阵
func Identity() Matrix {
	return Matrix{1, 0, 0, 1, 0, 0}
}

// Translate 返回平移矩阵
func Translate(tx, ty float64) Matrix {
	return Matrix{1, 0, 0, 1, tx, ty}
}

// Scale 返回缩放矩阵
func Scale(sx, sy float64) Matrix {
	return Matrix{sx, 0, 0, sy, 0, 0}
}

// Multiply 先应用m再应用other
func (m Matrix) Multiply(other Matrix) Matrix {
	return Matrix{
		m[0]*other[0] + m[1]*other[2],
		m[0]*other[1] + m[1]*other[3],
		m[2]*other[0] + m[3]*other[2],
		m[2]*other[1] + m[3]*other[3],
		m[4]*other[0] + m[5]*other[2] + other[4],
		m[4]*other[1] + m[5]*other[3] + other[5],
	}
}

// Apply 变换一个点
func (m Matrix) Apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// ApplyVector 变换一个向量（忽略平移分量）
func (m Matrix) ApplyVector(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y, m[1]*x + m[3]*y
}

// Origin 返回矩阵平移分量，即原点变换后的位置
func (m Matrix) Origin() (float64, float64) {
	return m[4], m[5]
}

// Rect 页面边界框（PDF坐标系，左下角为原点）
type Rect struct {
	LLX, LLY float64
	URX, URY float64
}

// Height 返回边界框高度
func (r Rect) Height() float64 {
	return r.URY - r.LLY
}

// FlipFor 根据页面高度生成垂直翻转矩阵
// 翻转后y轴向下增长
func FlipFor(box Rect) Matrix {
	return Matrix{1, 0, 0, -1, 0, box.Height()}
}
