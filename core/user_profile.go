package core

import "time"

// UserProfile 是用户画像：由加权交互聚合而成，与服务向量处于同一坐标空间。
//
// 设计要点：
//
//	维度          作用
//	类目权重      类目 one-hot 块（按总权重归一）
//	标签权重      TF-IDF 块（取 Top10 标签）
//	偏好地点      地点索引槽位
//	Vector        用于近邻检索的查询向量
//
// 画像按用户缓存，不会自动失效；新交互产生后需要调用方显式重建。
type UserProfile struct {
	UserID string

	// 聚合后的原始权重（未归一）
	CategoryWeights map[string]float64
	TagWeights      map[string]float64
	LocationWeights map[string]float64
	TotalWeight     float64

	// PreferredLocation 权重最高的地点；LocationIndex 为其在向量化时的索引，未见过为 -1
	PreferredLocation string
	LocationIndex     int

	// RawVector 未归一化的画像向量：[类目块, 标签块, 地点索引, 0, 0]
	RawVector []float64

	// Vector 用目录 Min-Max 参数归一化后的查询向量
	Vector []float64

	// Interactions 参与计算的交互数（已跳过无法解析的服务）
	Interactions int

	UpdateTime time.Time
}

// NewUserProfile 创建一个空的用户画像。
func NewUserProfile(userID string) *UserProfile {
	return &UserProfile{
		UserID:          userID,
		CategoryWeights: make(map[string]float64),
		TagWeights:      make(map[string]float64),
		LocationWeights: make(map[string]float64),
		LocationIndex:   -1,
		UpdateTime:      time.Now(),
	}
}

// AddInteraction 以权重 w 累积一次交互对应服务的类目、标签、地点。
func (p *UserProfile) AddInteraction(svc *Service, w float64) {
	if p.CategoryWeights == nil {
		p.CategoryWeights = make(map[string]float64)
	}
	if p.TagWeights == nil {
		p.TagWeights = make(map[string]float64)
	}
	if p.LocationWeights == nil {
		p.LocationWeights = make(map[string]float64)
	}
	p.TotalWeight += w
	p.CategoryWeights[svc.CategoryID] += w
	for _, tag := range svc.Tags {
		p.TagWeights[tag] += w
	}
	p.LocationWeights[svc.Location] += w
	p.Interactions++
	p.UpdateTime = time.Now()
}

// GetCategoryWeight 获取类目的归一化权重。
func (p *UserProfile) GetCategoryWeight(categoryID string) float64 {
	if p.TotalWeight == 0 || p.CategoryWeights == nil {
		return 0
	}
	return p.CategoryWeights[categoryID] / p.TotalWeight
}

