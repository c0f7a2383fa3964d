package filter

import (
	"context"

	"github.com/rushteam/svcrec/core"
	"github.com/rushteam/svcrec/pipeline"
)

// FilterNode 是过滤 Node，可以组合多个过滤器进行过滤。
// 如果任何一个过滤器返回 true，该服务就会被过滤掉；过滤器出错时记录并保留该服务。
type FilterNode struct {
	Filters []Filter

	// OnError 过滤器出错时回调（可选）
	OnError func(f Filter, item *core.Item, err error)
}

func (n *FilterNode) Name() string {
	return "filter.node"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}

	out := make([]*core.Item, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}

		filtered := false
		for _, f := range n.Filters {
			ok, err := f.ShouldFilter(ctx, rctx, item)
			if err != nil {
				if n.OnError != nil {
					n.OnError(f, item, err)
				}
				continue
			}
			if ok {
				filtered = true
				break
			}
		}
		if !filtered {
			out = append(out, item)
		}
	}

	return out, nil
}
