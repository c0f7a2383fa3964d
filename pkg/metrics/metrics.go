// Package metrics 定义推荐服务的 Prometheus 指标。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recommendations 推荐请求数，outcome: ok / error
	Recommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "svcrec_recommendations_total",
			Help: "Total number of recommendation requests",
		},
		[]string{"outcome"},
	)

	// Fallbacks 热门兜底次数，reason: no_profile / empty
	Fallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "svcrec_fallbacks_total",
			Help: "Total number of popularity fallbacks",
		},
		[]string{"reason"},
	)

	// NodeDuration Pipeline 各 Node 耗时
	NodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "svcrec_pipeline_node_duration_seconds",
			Help:    "Duration of pipeline nodes in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"node", "kind"},
	)

	// RebuildDuration 快照重建/规则挖掘耗时，stage: vectorize / index / rules
	RebuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "svcrec_rebuild_duration_seconds",
			Help:    "Duration of snapshot rebuild stages in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	// RebuildErrors 重建失败次数
	RebuildErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "svcrec_rebuild_errors_total",
			Help: "Total number of failed rebuilds",
		},
		[]string{"stage"},
	)

	// CatalogServices 当前快照中的服务数
	CatalogServices = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "svcrec_catalog_services",
			Help: "Number of service vectors in the current snapshot",
		},
	)

	// AssociationRules 当前规则表中有规则的物品数
	AssociationRules = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "svcrec_association_items",
			Help: "Number of items with association rules",
		},
	)

	// EvalPrecision 最近一次离线评估的 Precision@K
	EvalPrecision = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "svcrec_eval_precision",
			Help: "Mean Precision@K of the last evaluation",
		},
	)
)

// ObserveStage 记录阶段耗时。
func ObserveStage(stage string, start time.Time) {
	RebuildDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
