package recall

import (
	"context"

	"github.com/rushteam/svcrec/core"
	"github.com/rushteam/svcrec/pipeline"
	"github.com/rushteam/svcrec/pkg/utils"
)

// ANN 是画像向量近邻召回源：用用户画像向量在近邻索引中检索最相似的服务。
//
// 没有画像向量时返回 core.ErrNoProfile，由 Fallback 转到热门召回。
// 结果按余弦距离递增，距离相同按目录顺序。
type ANN struct {
	Index      core.VectorService
	Collection string // 默认 "services"
	TopK       int    // rctx.Limit 未设置时使用，<= 0 时为 10
	Metric     string // 默认 cosine

	// UserVectorExtractor 从 RecommendContext 提取用户向量（可选，默认取画像 Vector）
	UserVectorExtractor func(rctx *core.RecommendContext) []float64
}

func (r *ANN) Name() string        { return "recall.profile" }
func (r *ANN) Kind() pipeline.Kind { return pipeline.KindRecall }

func (r *ANN) Process(ctx context.Context, rctx *core.RecommendContext, _ []*core.Item) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

func (r *ANN) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if r.Index == nil {
		return nil, core.ErrNotTrained
	}

	var userVector []float64
	if r.UserVectorExtractor != nil {
		userVector = r.UserVectorExtractor(rctx)
	} else {
		userVector = rctx.UserVector()
	}
	if len(userVector) == 0 {
		return nil, core.ErrNoProfile
	}

	collection := r.Collection
	if collection == "" {
		collection = "services"
	}
	metric := r.Metric
	if metric == "" {
		metric = string(core.MetricCosine)
	}
	topK := r.TopK
	if topK <= 0 {
		topK = 10
	}

	res, err := r.Index.Search(ctx, &core.VectorSearchRequest{
		Collection: collection,
		Vector:     userVector,
		TopK:       limitOf(rctx, topK),
		Metric:     metric,
	})
	if err != nil {
		return nil, err
	}

	out := make([]*core.Item, 0, len(res.Items))
	for _, hit := range res.Items {
		it := core.NewItem(hit.ID)
		it.Score = hit.Score
		it.Meta["distance"] = hit.Distance
		it.PutLabel("recall_source", utils.Label{Value: "ann", Source: "recall"})
		it.PutLabel("ann_metric", utils.Label{Value: metric, Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}
