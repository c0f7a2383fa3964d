package recall

import (
	"context"

	"github.com/rushteam/svcrec/core"
)

// Source 表示一个召回源（近邻 / 热门）。
// 召回源同时实现 pipeline.Node，可以直接放进 Pipeline。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}

// limitOf 本次请求的召回数：优先取 rctx.Limit，否则取 def。
func limitOf(rctx *core.RecommendContext, def int) int {
	if rctx != nil && rctx.Limit > 0 {
		return rctx.Limit
	}
	return def
}
