package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/svcrec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("item", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.Variable("rctx", cel.DynType),
	)
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Program 是编译好的表达式，可在多个 goroutine 中复用。
//
// 表达式语法（CEL 标准语法）：
//   - 服务属性：item.meta.price <= 100.0 / item.meta.location == "NY"
//   - 标签：label.recall_source == "hot"
//   - 请求参数：item.meta.price <= rctx.params.max_price
//   - 逻辑：item.meta.category == "C1" && item.score > 0.5
//   - 包含："plumbing" in item.meta.tags
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式。
func Compile(expr string) (*Program, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Program{expr: expr, prg: prg}, nil
}

// String 返回原始表达式。
func (p *Program) String() string { return p.expr }

// Evaluate 对单个服务求值，表达式必须返回布尔值。
func (p *Program) Evaluate(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	out, _, err := p.prg.Eval(buildInput(item, rctx))
	if err != nil {
		// 访问不存在的 key 会报错，应先用 has() 或 != null 判断
		return false, fmt.Errorf("eval error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// Eval 是一次性求值的便捷封装：每次调用都会重新编译表达式。
type Eval struct {
	item *core.Item
	rctx *core.RecommendContext
}

// NewEval 创建一个新的 DSL 解释器。
func NewEval(item *core.Item, rctx *core.RecommendContext) *Eval {
	return &Eval{item: item, rctx: rctx}
}

// Evaluate 解析并执行表达式；空表达式视为 true。
func (e *Eval) Evaluate(expr string) (bool, error) {
	if expr == "" {
		return true, nil
	}
	p, err := Compile(expr)
	if err != nil {
		return false, err
	}
	return p.Evaluate(e.item, e.rctx)
}

// buildInput 构建 CEL 表达式的输入数据
func buildInput(it *core.Item, rctx *core.RecommendContext) map[string]interface{} {
	labels := make(map[string]interface{})
	label := make(map[string]interface{})
	item := map[string]interface{}{}
	if it != nil {
		for k, v := range it.Labels {
			labels[k] = map[string]interface{}{
				"value":  v.Value,
				"source": v.Source,
			}
			label[k] = v.Value
		}
		meta := it.Meta
		if meta == nil {
			meta = map[string]any{}
		}
		item = map[string]interface{}{
			"id":     it.ID,
			"score":  it.Score,
			"meta":   meta,
			"labels": labels,
		}
	}

	ctx := map[string]interface{}{}
	if rctx != nil {
		params := rctx.Params
		if params == nil {
			params = map[string]any{}
		}
		ctx = map[string]interface{}{
			"user_id": rctx.UserID,
			"scene":   rctx.Scene,
			"limit":   int64(rctx.Limit),
			"params":  params,
		}
		if rctx.User != nil {
			ctx["preferred_location"] = rctx.User.PreferredLocation
		}
	}

	return map[string]interface{}{
		"item":  item,
		"label": label,
		"rctx":  ctx,
	}
}
