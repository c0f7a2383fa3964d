package filter

import (
	"context"

	"github.com/rushteam/svcrec/core"
	"github.com/rushteam/svcrec/pkg/dsl"
)

// ExprFilter 用 CEL 表达式过滤服务。
// Invert 为 false 时表达式为 true 的服务被过滤；为 true 时只保留表达式为 true 的服务。
//
// 示例：保留价格不超过请求参数的服务
//
//	filter.NewExprFilter(`item.meta.price <= rctx.params.max_price`, true)
type ExprFilter struct {
	Program *dsl.Program
	Invert  bool
}

// NewExprFilter 编译表达式并创建过滤器。
func NewExprFilter(expr string, invert bool) (*ExprFilter, error) {
	p, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &ExprFilter{Program: p, Invert: invert}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

func (f *ExprFilter) ShouldFilter(_ context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	ok, err := f.Program.Evaluate(item, rctx)
	if err != nil {
		return false, err
	}
	if f.Invert {
		return !ok, nil
	}
	return ok, nil
}
