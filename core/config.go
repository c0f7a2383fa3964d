package core

// RecommendConfig 是推荐核心的配置接口，用于提供默认值。
type RecommendConfig interface {
	// DefaultNeighbors 近邻索引默认的 k
	DefaultNeighbors() int

	// DefaultRecommendations 每次推荐默认返回的服务数
	DefaultRecommendations() int

	// DefaultTopTags 用户画像保留的标签数
	DefaultTopTags() int

	// DefaultMinSupport 关联规则最小支持度
	DefaultMinSupport() float64

	// DefaultMinConfidence 关联规则最小置信度
	DefaultMinConfidence() float64

	// DefaultEvalUsers 离线评估抽样的用户数
	DefaultEvalUsers() int

	// DefaultEvalK Precision@K 的 K
	DefaultEvalK() int
}

// DefaultRecommendConfig 是默认的推荐配置实现。
type DefaultRecommendConfig struct{}

func (c *DefaultRecommendConfig) DefaultNeighbors() int { return 10 }

func (c *DefaultRecommendConfig) DefaultRecommendations() int { return 5 }

func (c *DefaultRecommendConfig) DefaultTopTags() int { return 10 }

func (c *DefaultRecommendConfig) DefaultMinSupport() float64 { return 0.2 }

func (c *DefaultRecommendConfig) DefaultMinConfidence() float64 { return 0.3 }

func (c *DefaultRecommendConfig) DefaultEvalUsers() int { return 10 }

func (c *DefaultRecommendConfig) DefaultEvalK() int { return 5 }

var _ RecommendConfig = (*DefaultRecommendConfig)(nil)
