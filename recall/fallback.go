package recall

import (
	"context"
	"errors"

	"github.com/rushteam/svcrec/core"
	"github.com/rushteam/svcrec/pipeline"
	"github.com/rushteam/svcrec/pkg/utils"
)

// Fallback 先执行 Primary；Primary 返回 core.ErrNoProfile 或结果为空时改用 Secondary。
// 其他错误直接返回。
type Fallback struct {
	Primary   Source
	Secondary Source

	// OnFallback 发生兜底时回调（可选，用于打点）
	OnFallback func(rctx *core.RecommendContext, reason string)
}

func (f *Fallback) Name() string        { return "recall.fallback" }
func (f *Fallback) Kind() pipeline.Kind { return pipeline.KindRecall }

func (f *Fallback) Process(ctx context.Context, rctx *core.RecommendContext, _ []*core.Item) ([]*core.Item, error) {
	return f.Recall(ctx, rctx)
}

func (f *Fallback) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	items, err := f.Primary.Recall(ctx, rctx)
	reason := ""
	switch {
	case errors.Is(err, core.ErrNoProfile):
		reason = "no_profile"
	case err != nil:
		return nil, err
	case len(items) == 0:
		reason = "empty"
	default:
		return items, nil
	}

	if f.Secondary == nil {
		return nil, err
	}
	if f.OnFallback != nil {
		f.OnFallback(rctx, reason)
	}
	if rctx != nil {
		rctx.PutLabel("fallback", utils.Label{Value: reason, Source: f.Primary.Name()})
	}
	items, err = f.Secondary.Recall(ctx, rctx)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		it.PutLabel("fallback", utils.Label{Value: reason, Source: f.Primary.Name()})
	}
	return items, nil
}
