package core

import "github.com/rushteam/svcrec/pkg/utils"

// RecommendContext 承载用户/场景/请求信息，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	UserID string
	Scene  string

	// Limit 本次请求需要的结果数
	Limit int

	// User 是用户画像；为空表示尚未构建或没有画像
	User *UserProfile

	// Labels 是用户级标签，可驱动整个 Pipeline 行为
	Labels map[string]utils.Label

	// Params 请求级上下文参数（如 max_price、location 等），过滤表达式可读取
	Params map[string]any
}

// UserVector 返回画像中的查询向量，没有画像时返回 nil。
func (rctx *RecommendContext) UserVector() []float64 {
	if rctx == nil || rctx.User == nil {
		return nil
	}
	return rctx.User.Vector
}

// PutLabel 写入用户级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取用户级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
