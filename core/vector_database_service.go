package core

import "context"

// VectorDatabaseService 是完整的向量数据库服务接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 嵌入 VectorService（召回场景接口），符合接口组合原则
//   - 提供建索引所需的操作（建集合 + 批量插入）
//
// 使用场景对比：
//
//  1. 召回场景（推荐使用 VectorService）：
//     ```go
//     var vectorService VectorService = index
//     result, err := vectorService.Search(ctx, &VectorSearchRequest{
//         Collection: "services",
//         Vector:     profile.Vector,
//         TopK:       10,
//         Metric:     "cosine",
//     })
//     ```
//
//  2. 数据管理场景（使用 VectorDatabaseService）：
//     ```go
//     var dbService VectorDatabaseService = index
//     // 创建集合
//     err := dbService.CreateCollection(ctx, &VectorCreateCollectionRequest{
//         Name:      "services",
//         Dimension: features.Dimension(),
//         Metric:    "cosine",
//     })
//     // 插入向量
//     err = dbService.Insert(ctx, &VectorInsertRequest{
//         Collection: "services",
//         Vectors:    features.Vectors,
//         IDs:        features.ServiceIDs,
//     })
//     // 也可以使用 Search（因为嵌入了 VectorService）
//     result, err := dbService.Search(ctx, &VectorSearchRequest{...})
//     ```
//
// 实现：
//   - store.MemoryVectorService 实现此接口（内存近邻索引）
//   - 其他向量数据库（Milvus、Faiss 等）也可以实现此接口
type VectorDatabaseService interface {
	// 嵌入召回场景接口
	// 基础设施层接口扩展领域层接口，而不是相反
	VectorService

	// Insert 插入向量
	Insert(ctx context.Context, req *VectorInsertRequest) error

	// CreateCollection 创建集合
	CreateCollection(ctx context.Context, req *VectorCreateCollectionRequest) error
}

// VectorInsertRequest 向量插入请求
type VectorInsertRequest struct {
	// Collection 集合名称
	Collection string

	// Vectors 向量列表
	Vectors [][]float64

	// IDs 对应的物品 ID 列表
	IDs []string

	// Metadata 元数据
	Metadata []map[string]interface{}
}

// VectorCreateCollectionRequest 创建集合请求
type VectorCreateCollectionRequest struct {
	// Name 集合名称
	Name string

	// Dimension 向量维度
	Dimension int

	// Metric 距离度量方式
	Metric string
}
