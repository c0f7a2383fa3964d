package store

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/rushteam/svcrec/core"
)

// DefaultCollection 服务向量集合名。
const DefaultCollection = "services"

// MemoryVectorService 是内存实现的近邻索引（暴力检索）。
//
// 特点：
//   - 纯内存实现，随快照重建
//   - 支持余弦距离、欧氏距离、内积等度量，默认余弦
//   - 结果按距离递增；距离相同时按插入顺序（即目录枚举顺序）排列，查询结果确定
//   - 线程安全
type MemoryVectorService struct {
	mu          sync.RWMutex
	collections map[string]*collection // collection name -> collection data
}

type collection struct {
	name      string
	dimension int
	metric    string
	ids       []string             // 插入顺序
	vectors   map[string][]float64 // item ID -> vector
}

// NewMemoryVectorService 创建内存向量服务实例。
func NewMemoryVectorService() *MemoryVectorService {
	return &MemoryVectorService{
		collections: make(map[string]*collection),
	}
}

// NewNeighborIndex 用一组服务向量构建余弦近邻索引。
// 没有任何向量时返回 core.ErrEmptyIndex。
func NewNeighborIndex(ctx context.Context, ids []string, vectors [][]float64) (*MemoryVectorService, error) {
	if len(vectors) == 0 {
		return nil, core.ErrEmptyIndex
	}
	idx := NewMemoryVectorService()
	if err := idx.CreateCollection(ctx, &core.VectorCreateCollectionRequest{
		Name:      DefaultCollection,
		Dimension: len(vectors[0]),
		Metric:    string(core.MetricCosine),
	}); err != nil {
		return nil, err
	}
	if err := idx.Insert(ctx, &core.VectorInsertRequest{
		Collection: DefaultCollection,
		Vectors:    vectors,
		IDs:        ids,
	}); err != nil {
		return nil, err
	}
	return idx, nil
}

func (m *MemoryVectorService) Name() string { return "memory_vector" }

// Search 实现 core.VectorService 接口
func (m *MemoryVectorService) Search(ctx context.Context, req *core.VectorSearchRequest) (*core.VectorSearchResult, error) {
	if req == nil {
		return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "vector search request is nil")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	col, ok := m.collections[req.Collection]
	if !ok {
		return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeNotFound, "collection not found: "+req.Collection)
	}
	if len(col.ids) == 0 {
		return nil, core.ErrEmptyIndex
	}

	if len(req.Vector) != col.dimension {
		return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "vector dimension mismatch")
	}

	topK := req.TopK
	if topK <= 0 {
		topK = 10
	}

	metric := req.Metric
	if metric == "" {
		metric = col.metric
	}
	if !core.ValidateVectorMetric(metric) {
		metric = string(core.MetricCosine)
	}

	items := make([]core.VectorSearchItem, 0, len(col.ids))
	for _, id := range col.ids {
		itemVector := col.vectors[id]
		var score, distance float64
		switch core.MetricType(metric) {
		case core.MetricEuclidean:
			distance = euclideanDistance(req.Vector, itemVector)
			score = 1.0 / (1.0 + distance)
		case core.MetricInnerProduct:
			score = innerProduct(req.Vector, itemVector)
			distance = -score
		default:
			score = cosineSimilarity(req.Vector, itemVector)
			distance = 1.0 - score
		}
		items = append(items, core.VectorSearchItem{
			ID:       id,
			Score:    score,
			Distance: distance,
		})
	}

	// 按距离递增，稳定排序保证相同距离按插入顺序
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Distance < items[j].Distance
	})

	if len(items) > topK {
		items = items[:topK]
	}

	return &core.VectorSearchResult{Items: items}, nil
}

// Close 实现 core.VectorService 接口
func (m *MemoryVectorService) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections = make(map[string]*collection)
	return nil
}

// Insert 实现 core.VectorDatabaseService 接口；已存在的 ID 原位覆盖。
func (m *MemoryVectorService) Insert(ctx context.Context, req *core.VectorInsertRequest) error {
	if req == nil {
		return core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "insert request is nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	col, ok := m.collections[req.Collection]
	if !ok {
		return core.NewDomainError(core.ModuleVector, core.ErrorCodeNotFound, "collection not found: "+req.Collection)
	}

	if len(req.Vectors) != len(req.IDs) {
		return core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "vectors and ids length mismatch")
	}

	for i, vector := range req.Vectors {
		if len(vector) != col.dimension {
			return core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "vector dimension mismatch")
		}
		id := req.IDs[i]
		if _, exists := col.vectors[id]; !exists {
			col.ids = append(col.ids, id)
		}
		col.vectors[id] = vector
	}

	return nil
}

// CreateCollection 实现 core.VectorDatabaseService 接口
func (m *MemoryVectorService) CreateCollection(ctx context.Context, req *core.VectorCreateCollectionRequest) error {
	if req == nil {
		return core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "create collection request is nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if req.Name == "" {
		return core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "collection name is required")
	}

	if req.Dimension <= 0 {
		return core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "dimension must be greater than 0")
	}

	if _, exists := m.collections[req.Name]; exists {
		return core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "collection already exists: "+req.Name)
	}

	metric := req.Metric
	if !core.ValidateVectorMetric(metric) {
		metric = string(core.MetricCosine)
	}

	m.collections[req.Name] = &collection{
		name:      req.Name,
		dimension: req.Dimension,
		metric:    metric,
		vectors:   make(map[string][]float64),
	}

	return nil
}

// Size 返回集合中的向量数。
func (m *MemoryVectorService) Size(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	col, ok := m.collections[collection]
	if !ok {
		return 0
	}
	return len(col.ids)
}

// 相似度计算函数

// cosineSimilarity 计算余弦相似度；任一向量为零向量时为 0（距离为 1）
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// euclideanDistance 计算欧氏距离
func euclideanDistance(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.MaxFloat64
	}

	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}

	return math.Sqrt(sum)
}

// innerProduct 计算内积
func innerProduct(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}

	return sum
}

// 确保实现了接口
var (
	_ core.VectorService         = (*MemoryVectorService)(nil)
	_ core.VectorDatabaseService = (*MemoryVectorService)(nil)
)
