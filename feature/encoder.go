package feature

// LabelEncoder Label 编码（标签编码）
// 将类别值映射为稠密整数（0, 1, 2, ...），未知值为 -1。
type LabelEncoder struct {
	Labels map[string]int // 类别值 -> 整数
	Values []string       // 整数 -> 类别值
}

// NewLabelEncoder 按给定顺序分配编号；重复值保留第一次出现的位置。
func NewLabelEncoder(values []string) *LabelEncoder {
	e := &LabelEncoder{
		Labels: make(map[string]int, len(values)),
		Values: make([]string, 0, len(values)),
	}
	for _, v := range values {
		if _, ok := e.Labels[v]; ok {
			continue
		}
		e.Labels[v] = len(e.Values)
		e.Values = append(e.Values, v)
	}
	return e
}

// Index 返回值对应的编号，未知值返回 -1。
func (e *LabelEncoder) Index(value string) int {
	if idx, ok := e.Labels[value]; ok {
		return idx
	}
	return -1
}

// Size 返回类别数。
func (e *LabelEncoder) Size() int {
	return len(e.Values)
}

// OneHotEncoder One-Hot 编码（独热编码）
// 将类别特征转换为二进制向量，每个类别对应一个维度；未知类别编码为全 0。
type OneHotEncoder struct {
	*LabelEncoder
}

// NewOneHotEncoder 创建 One-Hot 编码器，槽位按 values 顺序分配。
func NewOneHotEncoder(values []string) *OneHotEncoder {
	return &OneHotEncoder{LabelEncoder: NewLabelEncoder(values)}
}

// Encode 返回长度为 Size() 的独热向量。
func (e *OneHotEncoder) Encode(value string) []float64 {
	vec := make([]float64, e.Size())
	if idx := e.Index(value); idx >= 0 {
		vec[idx] = 1
	}
	return vec
}
