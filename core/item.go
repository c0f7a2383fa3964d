package core

import "github.com/rushteam/svcrec/pkg/utils"

// Item 是推荐链路中的统一承载结构：服务 ID、分数、元信息、标签。
// Labels 用于解释与策略驱动；Score 用于排序决策。
type Item struct {
	ID     string
	Score  float64
	Meta   map[string]any
	Labels map[string]utils.Label
}

func NewItem(id string) *Item {
	return &Item{
		ID:     id,
		Score:  0,
		Meta:   make(map[string]any),
		Labels: make(map[string]utils.Label),
	}
}

// NewServiceItem 以服务属性填充 Meta，供过滤表达式使用。
func NewServiceItem(svc *Service) *Item {
	it := NewItem(svc.ID)
	it.Meta["title"] = svc.Title
	it.Meta["category"] = svc.CategoryID
	it.Meta["location"] = svc.Location
	it.Meta["views"] = svc.Views
	it.Meta["price"] = svc.Price
	it.Meta["tags"] = append([]string(nil), svc.Tags...)
	return it
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}
