package feature

import (
	"context"
	"fmt"

	"github.com/rushteam/svcrec/core"
	"github.com/rushteam/svcrec/pipeline"
)

// MetaService 是 Item.Meta 中保存完整服务的 key。
const MetaService = "service"

// EnrichNode 是服务属性注入节点：按 ID 解析服务，把属性写入 Item.Meta，
// 供后续过滤表达式和结果组装使用。
//
// 解析不到的服务直接丢弃（不是错误）；数据源读取失败返回错误。
type EnrichNode struct {
	Catalog core.DataStore

	// OnMissing 服务解析不到时回调（可选）
	OnMissing func(id string)
}

func (n *EnrichNode) Name() string        { return "feature.enrich" }
func (n *EnrichNode) Kind() pipeline.Kind { return pipeline.KindFilter }

func (n *EnrichNode) Process(
	ctx context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.Catalog == nil {
		return items, nil
	}
	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		svc, err := n.Catalog.FindService(ctx, it.ID)
		if err != nil {
			return nil, fmt.Errorf("resolve service %s: %w", it.ID, err)
		}
		if svc == nil {
			if n.OnMissing != nil {
				n.OnMissing(it.ID)
			}
			continue
		}
		if it.Meta == nil {
			it.Meta = make(map[string]any)
		}
		full := core.NewServiceItem(svc)
		for k, v := range full.Meta {
			it.Meta[k] = v
		}
		it.Meta[MetaService] = svc
		out = append(out, it)
	}
	return out, nil
}

// ServiceOf 取出 EnrichNode 写入的服务。
func ServiceOf(it *core.Item) (*core.Service, bool) {
	if it == nil || it.Meta == nil {
		return nil, false
	}
	svc, ok := it.Meta[MetaService].(*core.Service)
	return svc, ok && svc != nil
}
