package core

import "context"

// VectorService 是向量检索服务的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 遵循依赖倒置原则：领域层定义接口，基础设施层实现接口
//
// 使用场景：
//   - 画像召回：根据用户画像向量检索最近的服务向量
//
// 注意：
//   - 此接口只包含 Search 方法，专注于召回场景
//   - 构建索引（CreateCollection、Insert）请使用 core.VectorDatabaseService
//
// 实现：
//   - store.MemoryVectorService（暴力余弦检索，结果确定）
type VectorService interface {
	// Search 向量搜索
	Search(ctx context.Context, req *VectorSearchRequest) (*VectorSearchResult, error)

	// Close 关闭连接
	Close() error
}

// VectorSearchRequest 向量搜索请求
type VectorSearchRequest struct {
	// Collection 集合名称
	Collection string

	// Vector 查询向量
	Vector []float64

	// TopK 返回 TopK 个最相似的结果
	TopK int

	// Metric 距离度量方式：cosine / euclidean / inner_product
	Metric string

	// Filter 元数据过滤条件（可选）
	Filter map[string]interface{}
}

// VectorSearchItem 单个向量搜索结果项
type VectorSearchItem struct {
	// ID 服务 ID
	ID string

	// Score 相似度分数
	Score float64

	// Distance 距离（cosine 下为 1 - 余弦相似度）
	Distance float64
}

// VectorSearchResult 向量搜索结果
type VectorSearchResult struct {
	// Items 搜索结果项列表（按距离递增）
	Items []VectorSearchItem
}

// ValidateVectorMetric 验证距离度量类型
func ValidateVectorMetric(metric string) bool {
	switch metric {
	case "cosine", "euclidean", "inner_product":
		return true
	default:
		return false
	}
}

// MetricType 距离度量类型（用于类型安全）
// 注意：验证函数统一使用 core.ValidateVectorMetric
type MetricType string

const (
	MetricCosine       MetricType = "cosine"
	MetricEuclidean    MetricType = "euclidean"
	MetricInnerProduct MetricType = "inner_product"
)
