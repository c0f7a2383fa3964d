package pipeline

import (
	"context"
	"time"

	"github.com/rushteam/svcrec/core"
)

// Observer 在每个 Node 执行后回调，用于打点。
type Observer func(node Node, in, out int, cost time.Duration, err error)

// Pipeline 把一次推荐拆成顺序执行的 Node 链，不做内部并发。
type Pipeline struct {
	Name     string
	Nodes    []Node
	Observer Observer
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		start := time.Now()
		next, err := node.Process(ctx, rctx, cur)
		if p.Observer != nil {
			p.Observer(node, len(cur), len(next), time.Since(start), err)
		}
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}
