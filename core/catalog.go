package core

import (
	"strings"
	"time"
)

// Category 是服务类目。类目在一次向量化过程中按枚举顺序分配稠密槽位。
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Service 是目录中的可推荐服务（只读）。
type Service struct {
	ID         string   `json:"id"`
	CategoryID string   `json:"category"`
	Title      string   `json:"title"`
	Tags       []string `json:"tags"`
	Location   string   `json:"location"`
	Views      float64  `json:"views"`
	Price      float64  `json:"price"`
}

// TagText 返回以空格拼接的标签串，作为 TF-IDF 的文档。
func (s *Service) TagText() string {
	return strings.Join(s.Tags, " ")
}

// NormalizedTitle 返回用于购物篮的物品标识（去空白、小写）。
func (s *Service) NormalizedTitle() string {
	return NormalizeItemName(s.Title)
}

// NormalizeItemName 统一物品名称：去除首尾空白并转为小写。
func NormalizeItemName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ActionType 是用户交互行为类型。
type ActionType string

const (
	ActionBook   ActionType = "book"
	ActionReview ActionType = "review"
	ActionCart   ActionType = "cart"
	ActionView   ActionType = "view"
	ActionSearch ActionType = "search"
)

// DefaultActionWeight 是未知行为类型的权重。
const DefaultActionWeight = 0.1

// actionWeights 行为权重表：下单 > 评价 > 加购 > 浏览 > 搜索
var actionWeights = map[ActionType]float64{
	ActionBook:   1.0,
	ActionReview: 0.8,
	ActionCart:   0.6,
	ActionView:   0.4,
	ActionSearch: 0.2,
}

// Weight 返回行为类型对应的权重，未知类型返回 DefaultActionWeight。
func (a ActionType) Weight() float64 {
	if w, ok := actionWeights[a]; ok {
		return w
	}
	return DefaultActionWeight
}

// Known 判断是否为已知行为类型。
func (a ActionType) Known() bool {
	_, ok := actionWeights[a]
	return ok
}

// Interaction 是不可变的用户行为日志。Timestamp 不参与计算。
type Interaction struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	ServiceID  string     `json:"serviceId"`
	ActionType ActionType `json:"actionType"`
	Timestamp  time.Time  `json:"timestamp"`
}

// OrderLine 是订单中的一个明细行（已展开），只用于关联规则挖掘。
type OrderLine struct {
	OrderID   string `json:"orderId"`
	ServiceID string `json:"serviceId"`
}
