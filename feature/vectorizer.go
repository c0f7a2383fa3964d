package feature

import (
	"sort"

	"github.com/rushteam/svcrec/core"
)

// 数值尾部的三个槽位：地点索引、浏览量、价格。
const numericSlots = 3

// CatalogFeatures 是一次向量化的完整产物。
//
// 向量布局：
//
//	[类目 one-hot (C)] ⧺ [标签 TF-IDF (V)] ⧺ [地点索引, 浏览量, 价格]
//
// 所有列在拼接后按列做 Min-Max 归一化。类目槽位、地点索引、TF-IDF 词表和归一化参数
// 只在本次产物内有效，重新向量化会整体失效并替换。
type CatalogFeatures struct {
	Categories *OneHotEncoder // category_map：按类目枚举顺序
	Locations  *LabelEncoder  // location_map：按地点标签字典序
	Tags       *TFIDFModel
	Scaler     *MinMaxScaler

	ServiceIDs []string
	Vectors    [][]float64 // 已归一化，与 ServiceIDs 一一对应

	index map[string]int
}

// Vectorize 将服务目录转换为同一特征空间内的定长向量。
// 服务为空时返回 core.ErrEmptyCatalog。
func Vectorize(categories []core.Category, services []core.Service) (*CatalogFeatures, error) {
	if len(services) == 0 {
		return nil, core.ErrEmptyCatalog
	}

	// 1. 类目槽位
	catIDs := make([]string, 0, len(categories))
	for _, c := range categories {
		catIDs = append(catIDs, c.ID)
	}
	catEnc := NewOneHotEncoder(catIDs)

	// 2. 标签 TF-IDF
	docs := make([]string, len(services))
	for i := range services {
		docs[i] = services[i].TagText()
	}
	model, tagWeights := FitTFIDF(docs)

	// 3. 地点索引：按标签排序保证可复现
	locEnc := NewLabelEncoder(distinctLocations(services))

	// 4. 拼接
	raw := make([][]float64, len(services))
	ids := make([]string, len(services))
	for i := range services {
		svc := &services[i]
		vec := make([]float64, 0, catEnc.Size()+model.Size()+numericSlots)
		vec = append(vec, catEnc.Encode(svc.CategoryID)...)
		vec = append(vec, tagWeights[i]...)
		vec = append(vec, float64(locEnc.Index(svc.Location)), svc.Views, svc.Price)
		raw[i] = vec
		ids[i] = svc.ID
	}

	// 5. 按列归一化
	scaler, vectors := FitTransform(raw)

	f := &CatalogFeatures{
		Categories: catEnc,
		Locations:  locEnc,
		Tags:       model,
		Scaler:     scaler,
		ServiceIDs: ids,
		Vectors:    vectors,
		index:      make(map[string]int, len(ids)),
	}
	for i, id := range ids {
		if _, ok := f.index[id]; !ok {
			f.index[id] = i
		}
	}
	return f, nil
}

func distinctLocations(services []core.Service) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for i := range services {
		loc := services[i].Location
		if _, ok := seen[loc]; ok {
			continue
		}
		seen[loc] = struct{}{}
		out = append(out, loc)
	}
	sort.Strings(out)
	return out
}

// Dimension 返回向量维度。
func (f *CatalogFeatures) Dimension() int {
	return f.Categories.Size() + f.Tags.Size() + numericSlots
}

// TagOffset 标签块起始列。
func (f *CatalogFeatures) TagOffset() int {
	return f.Categories.Size()
}

// NumericOffset 数值尾部（地点索引）起始列。
func (f *CatalogFeatures) NumericOffset() int {
	return f.Categories.Size() + f.Tags.Size()
}

// CategoryMap 返回类目 ID -> 槽位。
func (f *CatalogFeatures) CategoryMap() map[string]int {
	return f.Categories.Labels
}

// LocationMap 返回地点 -> 索引。
func (f *CatalogFeatures) LocationMap() map[string]int {
	return f.Locations.Labels
}

// Vector 返回服务的归一化向量。
func (f *CatalogFeatures) Vector(serviceID string) ([]float64, bool) {
	i, ok := f.index[serviceID]
	if !ok {
		return nil, false
	}
	return f.Vectors[i], true
}

// Len 返回向量个数。
func (f *CatalogFeatures) Len() int {
	return len(f.Vectors)
}

// ScaleUserVector 用目录拟合的 Min-Max 参数归一化用户向量。
//
// 类目、标签、地点列复用目录参数并截断到 [0, 1]；未见过的地点（-1）因此落到 0。
// 浏览量、价格两列没有用户侧含义，保持为 0，不参与余弦计算。
func (f *CatalogFeatures) ScaleUserVector(raw []float64) []float64 {
	out := make([]float64, len(raw))
	limit := f.NumericOffset() + 1
	for j := 0; j < len(raw) && j < limit; j++ {
		out[j] = clip(f.Scaler.NormalizeValue(j, raw[j]))
	}
	return out
}
