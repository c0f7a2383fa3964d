package association

import (
	"context"
	"fmt"

	"github.com/rushteam/svcrec/core"
)

// 默认阈值
const (
	DefaultMinSupport    = 0.2
	DefaultMinConfidence = 0.3
)

// Miner 从订单明细挖掘关联规则。
type Miner struct {
	Store         core.DataStore
	MinSupport    float64
	MinConfidence float64
}

// NewMiner 使用默认阈值创建 Miner。
func NewMiner(store core.DataStore) *Miner {
	return &Miner{
		Store:         store,
		MinSupport:    DefaultMinSupport,
		MinConfidence: DefaultMinConfidence,
	}
}

// MineStats 一次挖掘的统计。
type MineStats struct {
	Lines        int `json:"lines"`         // 订单明细总数
	SkippedLines int `json:"skipped_lines"` // 缺少订单号/服务号、服务不存在或标题为空
	Baskets      int `json:"baskets"`
	Itemsets     int `json:"itemsets"`
	Rules        int `json:"rules"` // 1→1 规则数（单向）
}

// Mine 构建购物篮、运行 Apriori 并生成双向规则表。
func (m *Miner) Mine(ctx context.Context) (*RuleTable, MineStats, error) {
	var stats MineStats
	baskets, err := m.Baskets(ctx, &stats)
	if err != nil {
		return nil, stats, err
	}
	stats.Baskets = len(baskets)

	frequent := Apriori(baskets, m.MinSupport, 0)
	stats.Itemsets = len(frequent)
	rules := GenerateRules(frequent, m.MinConfidence)
	for _, r := range rules {
		if len(r.Antecedent) == 1 && len(r.Consequent) == 1 {
			stats.Rules++
		}
	}
	return BuildRuleTable(rules), stats, nil
}

// Baskets 按订单号分组订单明细，物品标识为规范化后的服务标题，篮内去重。
// 篮子按订单首次出现的顺序返回。
func (m *Miner) Baskets(ctx context.Context, stats *MineStats) ([][]string, error) {
	lines, err := m.Store.ListOrderLines(ctx)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	if stats == nil {
		stats = &MineStats{}
	}
	stats.Lines = len(lines)

	titles := make(map[string]string)
	var order []string
	baskets := make(map[string][]string)
	for _, line := range lines {
		if line.OrderID == "" || line.ServiceID == "" {
			stats.SkippedLines++
			continue
		}
		title, ok := titles[line.ServiceID]
		if !ok {
			svc, err := m.Store.FindService(ctx, line.ServiceID)
			if err != nil {
				return nil, fmt.Errorf("find service %s: %w", line.ServiceID, err)
			}
			if svc != nil {
				title = svc.NormalizedTitle()
			}
			titles[line.ServiceID] = title
		}
		if title == "" {
			stats.SkippedLines++
			continue
		}
		basket, seen := baskets[line.OrderID]
		if !seen {
			order = append(order, line.OrderID)
		}
		if !contains(basket, title) {
			baskets[line.OrderID] = append(basket, title)
		}
	}

	out := make([][]string, 0, len(order))
	for _, id := range order {
		out = append(out, baskets[id])
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
