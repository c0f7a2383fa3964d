package recall

import (
	"context"
	"fmt"
	"sort"

	"github.com/rushteam/svcrec/core"
	"github.com/rushteam/svcrec/pipeline"
	"github.com/rushteam/svcrec/pkg/utils"
)

// DefaultHotKey 热门服务有序集合的 key，分数为浏览量。
const DefaultHotKey = "hot:services"

// Hot 是热门召回源：按浏览量降序返回服务。
//   - 优先读取 Store 中的有序集合（ZRange，按分数降序）
//   - 有序集合为空或读取失败时，回退到 Catalog 全量服务按浏览量排序
//
// Hot 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用。
type Hot struct {
	Store   core.KeyValueStore
	Key     string // 默认 DefaultHotKey
	Catalog core.DataStore
	Limit   int // rctx.Limit 未设置时使用，<= 0 时为 5
}

func (r *Hot) Name() string        { return "recall.hot" }
func (r *Hot) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *Hot) Process(ctx context.Context, rctx *core.RecommendContext, _ []*core.Item) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口
func (r *Hot) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	def := r.Limit
	if def <= 0 {
		def = 5
	}
	limit := limitOf(rctx, def)

	if r.Store != nil {
		members, err := r.Store.ZRange(ctx, r.key(), 0, int64(limit-1))
		if err == nil && len(members) > 0 {
			out := make([]*core.Item, 0, len(members))
			for _, id := range members {
				out = append(out, hotItem(id, 0))
			}
			return out, nil
		}
	}

	if r.Catalog == nil {
		return nil, nil
	}
	services, err := r.Catalog.ListServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	SortByViews(services)
	if len(services) > limit {
		services = services[:limit]
	}
	out := make([]*core.Item, 0, len(services))
	for i := range services {
		out = append(out, hotItem(services[i].ID, services[i].Views))
	}
	return out, nil
}

func (r *Hot) key() string {
	if r.Key == "" {
		return DefaultHotKey
	}
	return r.Key
}

func hotItem(id string, views float64) *core.Item {
	it := core.NewItem(id)
	it.Score = views
	it.PutLabel("recall_source", utils.Label{Value: "hot", Source: "recall"})
	return it
}

// SortByViews 按浏览量降序排序（稳定，同浏览量保持目录顺序）。
func SortByViews(services []core.Service) {
	sort.SliceStable(services, func(i, j int) bool {
		return services[i].Views > services[j].Views
	})
}

// PublishHot 用目录整体替换热门有序集合（分数为浏览量）。
// 替换是原子的，失败时旧集合保持不变。
func PublishHot(ctx context.Context, kv core.KeyValueStore, key string, services []core.Service) error {
	if key == "" {
		key = DefaultHotKey
	}
	members := make([]core.ScoredMember, 0, len(services))
	for i := range services {
		members = append(members, core.ScoredMember{Member: services[i].ID, Score: services[i].Views})
	}
	if err := kv.ZReplace(ctx, key, members); err != nil {
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}
