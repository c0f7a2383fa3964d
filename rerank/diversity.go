package rerank

import (
	"context"

	"github.com/rushteam/svcrec/core"
	"github.com/rushteam/svcrec/pipeline"
)

// Diversity 限制同一类目的服务数量，保持原有顺序。
// 类目取自 Item.Meta["category"]（由 feature.enrich 写入），没有类目的服务不受限制。
type Diversity struct {
	// MaxPerCategory 每个类目最多保留的数量，<= 0 时为 1
	MaxPerCategory int
}

func (n *Diversity) Name() string {
	return "rerank.diversity"
}

func (n *Diversity) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	limit := n.MaxPerCategory
	if limit <= 0 {
		limit = 1
	}

	counts := make(map[string]int)
	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		cat, _ := it.Meta["category"].(string)
		if cat == "" {
			out = append(out, it)
			continue
		}
		if counts[cat] >= limit {
			continue
		}
		counts[cat]++
		out = append(out, it)
	}
	return out, nil
}
