// Package evaluate 离线评估推荐效果（Precision@K）。
package evaluate

import (
	"context"
	"fmt"

	"github.com/rushteam/svcrec/core"
)

// Recommender 为用户生成 k 个推荐服务 ID。
type Recommender interface {
	RecommendIDs(ctx context.Context, userID string, k int) ([]string, error)
}

// RecommenderFunc 适配函数为 Recommender。
type RecommenderFunc func(ctx context.Context, userID string, k int) ([]string, error)

func (f RecommenderFunc) RecommendIDs(ctx context.Context, userID string, k int) ([]string, error) {
	return f(ctx, userID, k)
}

// UserResult 单个用户的评估结果。
type UserResult struct {
	UserID      string
	Relevant    int // 真实交互过的服务数
	Recommended int
	Hits        int
	Precision   float64
}

// Report 一次评估的汇总。Skipped 为没有真实交互、未参与平均的用户。
type Report struct {
	K         int
	Precision float64
	Users     []UserResult
	Skipped   []string
}

// Evaluator 计算 Precision@K：
//
//	precision(u) = |top-k ∩ truth(u)| / k
//	score        = mean(precision(u))，只统计 truth 非空的用户
//
// 没有合格用户时得分为 0。
type Evaluator struct {
	Store       core.DataStore
	Recommender Recommender
}

// New 创建评估器。
func New(store core.DataStore, rec Recommender) *Evaluator {
	return &Evaluator{Store: store, Recommender: rec}
}

// Precision 返回平均 Precision@K。
func (e *Evaluator) Precision(ctx context.Context, userIDs []string, k int) (float64, error) {
	r, err := e.Run(ctx, userIDs, k)
	if err != nil {
		return 0, err
	}
	return r.Precision, nil
}

// Run 逐用户评估并返回明细。k <= 0 返回 core.ErrInvalidInput。
func (e *Evaluator) Run(ctx context.Context, userIDs []string, k int) (*Report, error) {
	if k <= 0 {
		return nil, fmt.Errorf("precision@%d: %w", k, core.ErrInvalidInput)
	}
	report := &Report{K: k}

	var sum float64
	for _, userID := range userIDs {
		truth, err := e.groundTruth(ctx, userID)
		if err != nil {
			return nil, err
		}
		if len(truth) == 0 {
			report.Skipped = append(report.Skipped, userID)
			continue
		}

		recs, err := e.Recommender.RecommendIDs(ctx, userID, k)
		if err != nil {
			return nil, fmt.Errorf("recommend for %s: %w", userID, err)
		}
		if len(recs) > k {
			recs = recs[:k]
		}
		hits := 0
		for _, id := range recs {
			if _, ok := truth[id]; ok {
				hits++
			}
		}
		p := float64(hits) / float64(k)
		sum += p
		report.Users = append(report.Users, UserResult{
			UserID:      userID,
			Relevant:    len(truth),
			Recommended: len(recs),
			Hits:        hits,
			Precision:   p,
		})
	}

	if len(report.Users) > 0 {
		report.Precision = sum / float64(len(report.Users))
	}
	return report, nil
}

func (e *Evaluator) groundTruth(ctx context.Context, userID string) (map[string]struct{}, error) {
	interactions, err := e.Store.ListInteractions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list interactions for %s: %w", userID, err)
	}
	truth := make(map[string]struct{}, len(interactions))
	for _, in := range interactions {
		if in.ServiceID != "" {
			truth[in.ServiceID] = struct{}{}
		}
	}
	return truth, nil
}
