package feature

// MinMaxScaler Min-Max 归一化（按列）
// 公式: x' = (x - min) / (max - min)
// 特点: 拟合数据的每一列缩放到 [0, 1] 区间；常数列（max == min）统一映射为 0
//
// 拟合后的 Min/Max 是向量化产物的一部分，用户画像向量复用同一组参数。
type MinMaxScaler struct {
	Min []float64 // 每列最小值
	Max []float64 // 每列最大值
}

// FitMinMax 在行向量集合上拟合每一列的最小值与最大值。
// rows 需要等长；空集合返回维度为 0 的 scaler。
func FitMinMax(rows [][]float64) *MinMaxScaler {
	if len(rows) == 0 {
		return &MinMaxScaler{}
	}
	dim := len(rows[0])
	s := &MinMaxScaler{
		Min: make([]float64, dim),
		Max: make([]float64, dim),
	}
	copy(s.Min, rows[0])
	copy(s.Max, rows[0])
	for _, row := range rows[1:] {
		for j := 0; j < dim && j < len(row); j++ {
			if row[j] < s.Min[j] {
				s.Min[j] = row[j]
			}
			if row[j] > s.Max[j] {
				s.Max[j] = row[j]
			}
		}
	}
	return s
}

// Dimension 返回拟合时的列数。
func (s *MinMaxScaler) Dimension() int {
	return len(s.Min)
}

// NormalizeValue 归一化第 col 列的单个值（不截断）。
func (s *MinMaxScaler) NormalizeValue(col int, value float64) float64 {
	if col < 0 || col >= len(s.Min) {
		return value
	}
	rangeVal := s.Max[col] - s.Min[col]
	if rangeVal > 0 {
		return (value - s.Min[col]) / rangeVal
	}
	return 0
}

// Transform 归一化整行，返回新切片。
func (s *MinMaxScaler) Transform(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = s.NormalizeValue(j, v)
	}
	return out
}

// FitTransform 拟合并归一化所有行。
func FitTransform(rows [][]float64) (*MinMaxScaler, [][]float64) {
	s := FitMinMax(rows)
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = s.Transform(row)
	}
	return s, out
}

// clip 将值截断到 [0, 1]。
func clip(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
