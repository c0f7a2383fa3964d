package association

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/goccy/go-json"

	"github.com/rushteam/svcrec/core"
)

// DefaultTableKey 规则表在 core.Store 中的 key。
const DefaultTableKey = "rules:table"

// Related 是规则表中的一项：相关物品及置信度。
type Related struct {
	Item       string  `json:"item"`
	Confidence float64 `json:"confidence"`
}

// RuleTable 物品名 -> 相关物品列表。
//
// 表是对称的：每条 1→1 规则 base→add 同时写入 base 与 add 两侧，置信度相同。
// 同一物品下完全相同的 (item, confidence) 只保留一次；写入顺序保留，用于同置信度时的排序。
type RuleTable struct {
	entries map[string][]Related
}

// NewRuleTable 创建空表。
func NewRuleTable() *RuleTable {
	return &RuleTable{entries: make(map[string][]Related)}
}

// BuildRuleTable 从规则中取出前件、后件都只有一个物品的规则，构建双向表。
// 置信度保留两位小数。
func BuildRuleTable(rules []Rule) *RuleTable {
	t := NewRuleTable()
	for _, r := range rules {
		if len(r.Antecedent) != 1 || len(r.Consequent) != 1 {
			continue
		}
		base, add := r.Antecedent[0], r.Consequent[0]
		conf := roundConfidence(r.Confidence)
		t.add(base, add, conf)
		t.add(add, base, conf)
	}
	return t
}

func (t *RuleTable) add(item, other string, conf float64) {
	for _, rel := range t.entries[item] {
		if rel.Item == other && rel.Confidence == conf {
			return
		}
	}
	t.entries[item] = append(t.entries[item], Related{Item: other, Confidence: conf})
}

// Lookup 返回物品的相关列表，按置信度降序（稳定）。名称先去空白并转小写。
func (t *RuleTable) Lookup(name string) []Related {
	if t == nil {
		return nil
	}
	list := t.entries[core.NormalizeItemName(name)]
	if len(list) == 0 {
		return nil
	}
	out := append([]Related(nil), list...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

// Related 返回相关物品名，未知物品返回空列表。
// 同一物品可能以两个方向的置信度各出现一次，名称只保留置信度最高的那次。
func (t *RuleTable) Related(name string) []string {
	list := t.Lookup(name)
	out := make([]string, 0, len(list))
	seen := make(map[string]struct{}, len(list))
	for _, rel := range list {
		if _, ok := seen[rel.Item]; ok {
			continue
		}
		seen[rel.Item] = struct{}{}
		out = append(out, rel.Item)
	}
	return out
}

// Len 返回有规则的物品数。
func (t *RuleTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Items 返回有规则的物品名（字典序）。
func (t *RuleTable) Items() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.entries))
	for k := range t.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (t *RuleTable) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.entries)
}

func (t *RuleTable) UnmarshalJSON(data []byte) error {
	entries := make(map[string][]Related)
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	t.entries = entries
	return nil
}

// Save 将规则表以 JSON 写入 store。
func (t *RuleTable) Save(ctx context.Context, store core.Store, key string) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode rule table: %w", err)
	}
	return store.Set(ctx, key, data)
}

// LoadRuleTable 从 store 读取规则表；key 不存在时返回 core.ErrStoreNotFound。
func LoadRuleTable(ctx context.Context, store core.Store, key string) (*RuleTable, error) {
	data, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	t := NewRuleTable()
	if err := json.Unmarshal(data, t); err != nil {
		return nil, core.NewDomainError(core.ModuleRules, core.ErrorCodeInvalidInput, "decode rule table: "+err.Error())
	}
	return t, nil
}

func roundConfidence(c float64) float64 {
	return math.Round(c*100) / 100
}
