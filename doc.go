// Package svcrec 是服务市场的推荐引擎。
//
// 设计要点：
// - Snapshot-first: 服务向量、近邻索引、画像缓存、关联规则保存在一个快照中，重建后原子替换
// - Pipeline-first: 在线推荐通过 Node 串联（画像近邻召回 → 热门兜底 → 属性注入 → 过滤 → 截断）
// - Labels-first: 召回来源、兜底原因以 Label 透传，便于解释与观测
//
// 入口见 recommender.Engine，HTTP 服务见 cmd/server。
package svcrec

import "github.com/rushteam/svcrec/pipeline"

// 轻量 facade：便于直接 import "svcrec" 使用 Pipeline 抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall = pipeline.KindRecall
	KindFilter = pipeline.KindFilter
	KindReRank = pipeline.KindReRank
)
