// Package profile 根据用户的加权交互构建用户画像向量。
package profile

import (
	"context"
	"fmt"
	"sort"

	"github.com/rushteam/svcrec/core"
	"github.com/rushteam/svcrec/feature"
)

// DefaultTopTags 画像中保留的标签数。
const DefaultTopTags = 10

// Builder 聚合用户交互，生成与服务向量同一坐标空间的画像。
//
// 流程：
//  1. 读取用户全部交互；没有交互返回 core.ErrNoProfile
//  2. 解析交互指向的服务，无法解析的跳过
//  3. 按行为类型加权，累积类目、标签、地点权重
//  4. 类目块、Top 标签块按总权重归一；偏好地点映射为索引
//  5. 用目录的 Min-Max 参数归一化得到查询向量
type Builder struct {
	Store    core.DataStore
	Features *feature.CatalogFeatures

	// TopTags 保留的标签数，<= 0 时使用 DefaultTopTags
	TopTags int
}

// NewBuilder 创建画像构建器。
func NewBuilder(store core.DataStore, features *feature.CatalogFeatures) *Builder {
	return &Builder{
		Store:    store,
		Features: features,
		TopTags:  DefaultTopTags,
	}
}

// Build 为用户构建画像。
func (b *Builder) Build(ctx context.Context, userID string) (*core.UserProfile, error) {
	if b.Store == nil || b.Features == nil {
		return nil, core.ErrNotTrained
	}

	interactions, err := b.Store.ListInteractions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	if len(interactions) == 0 {
		return nil, core.ErrNoProfile
	}

	p := core.NewUserProfile(userID)
	for _, inter := range interactions {
		svc, err := b.Store.FindService(ctx, inter.ServiceID)
		if err != nil {
			return nil, fmt.Errorf("find service %s: %w", inter.ServiceID, err)
		}
		if svc == nil {
			continue
		}
		p.AddInteraction(svc, inter.ActionType.Weight())
	}
	if p.TotalWeight == 0 {
		return nil, core.ErrNoProfile
	}

	b.vectorize(p)
	return p, nil
}

func (b *Builder) vectorize(p *core.UserProfile) {
	f := b.Features
	raw := make([]float64, f.Dimension())

	// 类目块
	for catID, w := range p.CategoryWeights {
		if idx := f.Categories.Index(catID); idx >= 0 {
			raw[idx] = w / p.TotalWeight
		}
	}

	// 标签块：Top N 标签经同一分词器映射到词表，词表外的丢弃
	tagOffset := f.TagOffset()
	for _, tw := range topWeights(p.TagWeights, b.topTags()) {
		v := tw.weight / p.TotalWeight
		for _, term := range feature.Analyze(tw.key) {
			idx := f.Tags.Index(term)
			if idx < 0 {
				continue
			}
			if v > raw[tagOffset+idx] {
				raw[tagOffset+idx] = v
			}
		}
	}

	// 偏好地点
	if best := topWeights(p.LocationWeights, 1); len(best) > 0 {
		p.PreferredLocation = best[0].key
		p.LocationIndex = f.Locations.Index(p.PreferredLocation)
	}
	raw[f.NumericOffset()] = float64(p.LocationIndex)
	// 浏览量、价格两列没有用户侧对应，保持为 0

	p.RawVector = raw
	p.Vector = f.ScaleUserVector(raw)
}

func (b *Builder) topTags() int {
	if b.TopTags <= 0 {
		return DefaultTopTags
	}
	return b.TopTags
}

type keyWeight struct {
	key    string
	weight float64
}

// topWeights 按权重降序取前 n 个；权重相同按 key 字典序，保证结果确定。
func topWeights(m map[string]float64, n int) []keyWeight {
	out := make([]keyWeight, 0, len(m))
	for k, w := range m {
		out = append(out, keyWeight{key: k, weight: w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].weight != out[j].weight {
			return out[i].weight > out[j].weight
		}
		return out[i].key < out[j].key
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
