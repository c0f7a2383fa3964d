package feature

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// tokenPattern 由字母、数字、下划线组成的单词；单字符标签（如 "x"）同样是词项。
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Analyze 将文档切分为词项：转小写后提取 tokenPattern 匹配。
func Analyze(doc string) []string {
	return tokenPattern.FindAllString(strings.ToLower(doc), -1)
}

// TFIDFModel 是在服务标签语料上拟合的 TF-IDF 模型。
//
// 公式：
//
//	tf(t, d)  = 词项 t 在文档 d 中的出现次数
//	idf(t)    = ln((1 + n) / (1 + df(t))) + 1
//	w(t, d)   = tf * idf，随后对每个文档做 L2 归一化
//
// 词表按词项字典序编号，同一语料多次拟合结果一致。
// 模型需要在向量化之后继续存活，用户画像构建依赖它的词表。
type TFIDFModel struct {
	Vocabulary map[string]int // 词项 -> 列号
	Terms      []string       // 列号 -> 词项
	IDF        []float64
	Documents  int
}

// FitTFIDF 在语料上拟合模型，并返回每个文档的权重向量。
func FitTFIDF(docs []string) (*TFIDFModel, [][]float64) {
	tokenized := make([][]string, len(docs))
	df := make(map[string]int)
	for i, doc := range docs {
		tokens := Analyze(doc)
		tokenized[i] = tokens
		seen := make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}

	terms := make([]string, 0, len(df))
	for t := range df {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	m := &TFIDFModel{
		Vocabulary: make(map[string]int, len(terms)),
		Terms:      terms,
		IDF:        make([]float64, len(terms)),
		Documents:  len(docs),
	}
	n := float64(len(docs))
	for i, t := range terms {
		m.Vocabulary[t] = i
		m.IDF[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}

	weights := make([][]float64, len(docs))
	for i, tokens := range tokenized {
		weights[i] = m.weigh(tokens)
	}
	return m, weights
}

// Size 返回词表大小。
func (m *TFIDFModel) Size() int {
	return len(m.Terms)
}

// Index 返回词项的列号，不在词表中返回 -1。
func (m *TFIDFModel) Index(term string) int {
	if idx, ok := m.Vocabulary[term]; ok {
		return idx
	}
	return -1
}

// Transform 使用已拟合的词表与 IDF 计算文档的权重向量；没有命中词表时为全 0。
func (m *TFIDFModel) Transform(doc string) []float64 {
	return m.weigh(Analyze(doc))
}

func (m *TFIDFModel) weigh(tokens []string) []float64 {
	vec := make([]float64, len(m.Terms))
	for _, t := range tokens {
		if idx, ok := m.Vocabulary[t]; ok {
			vec[idx]++
		}
	}
	var norm float64
	for i, tf := range vec {
		if tf == 0 {
			continue
		}
		vec[i] = tf * m.IDF[i]
		norm += vec[i] * vec[i]
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
