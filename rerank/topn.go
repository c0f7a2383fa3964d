package rerank

import (
	"context"

	"github.com/rushteam/svcrec/core"
	"github.com/rushteam/svcrec/pipeline"
)

// TopNNode 是一个 Top-N 截断节点，放在过滤之后，保证返回数量不超过请求数。
//
// 示例：
//
//	pipeline := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &recall.Fallback{...},    // 近邻召回，无画像走热门
//	        &filter.FilterNode{...},  // 过滤
//	        &rerank.TopNNode{},       // 截取 rctx.Limit 个
//	    },
//	}
type TopNNode struct {
	// N 要保留的数量；N <= 0 时取 rctx.Limit，两者都未设置则不截断
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	limit := n.N
	if limit <= 0 && rctx != nil {
		limit = rctx.Limit
	}
	if limit <= 0 || len(items) <= limit {
		return items, nil
	}
	return items[:limit], nil
}
