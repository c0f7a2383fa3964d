package builders

import (
	"fmt"

	"github.com/rushteam/svcrec/config"
	"github.com/rushteam/svcrec/core"
	"github.com/rushteam/svcrec/feature"
	"github.com/rushteam/svcrec/filter"
	"github.com/rushteam/svcrec/pipeline"
	"github.com/rushteam/svcrec/pkg/conv"
	"github.com/rushteam/svcrec/pkg/logging"
	"github.com/rushteam/svcrec/pkg/metrics"
	"github.com/rushteam/svcrec/recall"
	"github.com/rushteam/svcrec/rerank"
)

func init() {
	config.Register("recall.profile", BuildProfileNode)
	config.Register("recall.hot", BuildHotNode)
	config.Register("feature.enrich", BuildEnrichNode)
	config.Register("filter", BuildFilterNode)
	config.Register("rerank.topn", BuildTopNNode)
	config.Register("rerank.diversity", BuildDiversityNode)
}

// BuildProfileNode 画像近邻召回；fallback 为 true（默认）时无画像转热门。
func BuildProfileNode(cfg map[string]interface{}, deps *pipeline.Dependencies) (pipeline.Node, error) {
	ann := &recall.ANN{
		Index:      deps.Index,
		Collection: conv.ConfigGet(cfg, "collection", deps.Collection),
		TopK:       int(conv.ConfigGetInt64(cfg, "top_k", 0)),
		Metric:     conv.ConfigGet(cfg, "metric", string(core.MetricCosine)),
	}
	// 近邻按余弦（角度）距离检索，与服务向量的构造方式绑定
	if ann.Metric != string(core.MetricCosine) {
		return nil, fmt.Errorf("unsupported metric: %s", ann.Metric)
	}
	if !conv.ConfigGet(cfg, "fallback", true) {
		return ann, nil
	}
	return &recall.Fallback{
		Primary:   ann,
		Secondary: buildHot(cfg, deps),
		OnFallback: func(rctx *core.RecommendContext, reason string) {
			metrics.Fallbacks.WithLabelValues(reason).Inc()
			logging.Debug().Str("user", rctx.UserID).Str("reason", reason).Msg("popularity fallback")
		},
	}, nil
}

// BuildHotNode 热门召回。
func BuildHotNode(cfg map[string]interface{}, deps *pipeline.Dependencies) (pipeline.Node, error) {
	return buildHot(cfg, deps), nil
}

func buildHot(cfg map[string]interface{}, deps *pipeline.Dependencies) *recall.Hot {
	return &recall.Hot{
		Store:   deps.Store,
		Key:     deps.HotKey,
		Catalog: deps.Catalog,
		Limit:   int(conv.ConfigGetInt64(cfg, "limit", 0)),
	}
}

// BuildEnrichNode 服务属性注入，丢弃解析不到的服务。
func BuildEnrichNode(_ map[string]interface{}, deps *pipeline.Dependencies) (pipeline.Node, error) {
	if deps.Catalog == nil {
		return nil, fmt.Errorf("feature.enrich requires a catalog")
	}
	return &feature.EnrichNode{
		Catalog: deps.Catalog,
		OnMissing: func(id string) {
			logging.Debug().Str("service", id).Msg("skip unresolvable service")
		},
	}, nil
}

// BuildFilterNode 组合过滤器：blacklist（item_ids / key）、expr（expr / keep）。
func BuildFilterNode(cfg map[string]interface{}, deps *pipeline.Dependencies) (pipeline.Node, error) {
	filtersConfig, ok := cfg["filters"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}
	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]interface{})
		if !ok {
			continue
		}
		filterType := conv.ConfigGet(filterMap, "type", "")
		switch filterType {
		case "blacklist":
			ids := conv.SliceAnyToString(filterMap["item_ids"])
			if ids == nil {
				ids = []string{}
			}
			key := conv.ConfigGet(filterMap, "key", "")
			var adapter *filter.StoreAdapter
			if key != "" && deps.Store != nil {
				adapter = filter.NewStoreAdapter(deps.Store)
			}
			filters = append(filters, filter.NewBlacklistFilter(ids, adapter, key))
		case "expr":
			expr := conv.ConfigGet(filterMap, "expr", "")
			if expr == "" {
				return nil, fmt.Errorf("expr filter requires expr")
			}
			f, err := filter.NewExprFilter(expr, conv.ConfigGet(filterMap, "keep", false))
			if err != nil {
				return nil, fmt.Errorf("expr filter: %w", err)
			}
			filters = append(filters, f)
		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}
	return &filter.FilterNode{
		Filters: filters,
		OnError: func(f filter.Filter, item *core.Item, err error) {
			logging.Warn().Err(err).Str("filter", f.Name()).Str("service", item.ID).Msg("filter error")
		},
	}, nil
}

// BuildTopNNode 截断；n 未配置时取请求数。
func BuildTopNNode(cfg map[string]interface{}, _ *pipeline.Dependencies) (pipeline.Node, error) {
	return &rerank.TopNNode{N: int(conv.ConfigGetInt64(cfg, "n", 0))}, nil
}

// BuildDiversityNode 类目打散：max_per_category 默认 1。
func BuildDiversityNode(cfg map[string]interface{}, _ *pipeline.Dependencies) (pipeline.Node, error) {
	return &rerank.Diversity{MaxPerCategory: int(conv.ConfigGetInt64(cfg, "max_per_category", 1))}, nil
}
