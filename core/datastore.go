package core

import "context"

// DataStore 是推荐核心依赖的只读数据网关。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（datastore）实现
//   - 每次调用都是一次同步读取，结果完全物化到内存后才进入计算
//   - 不存在的记录不是错误：FindService 返回 (nil, nil)
//
// 实现：
//   - datastore.Memory：测试/开发
//   - datastore.Mongo：MongoDB 集合
//   - datastore.Postgres：gorm + PostgreSQL
type DataStore interface {
	// Name 返回数据源名称（用于日志/监控）
	Name() string

	// ListCategories 按稳定顺序返回所有类目
	ListCategories(ctx context.Context) ([]Category, error)

	// ListServices 按稳定顺序返回所有服务
	ListServices(ctx context.Context) ([]Service, error)

	// FindService 按 ID 查找服务，不存在时返回 (nil, nil)
	FindService(ctx context.Context, id string) (*Service, error)

	// ListInteractions 返回用户的全部交互
	ListInteractions(ctx context.Context, userID string) ([]Interaction, error)

	// ListOrderLines 返回所有订单明细（展开后的行）
	ListOrderLines(ctx context.Context) ([]OrderLine, error)

	// ListUsers 返回最多 limit 个用户 ID（仅离线评估使用），limit <= 0 表示不限
	ListUsers(ctx context.Context, limit int) ([]string, error)
}
