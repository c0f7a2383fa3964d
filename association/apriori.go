// Package association 从多服务订单中挖掘关联规则，构建双向的"相关服务"表。
package association

import (
	"sort"
	"strings"
)

// Itemset 是按字典序排列的物品集合。
type Itemset []string

func (s Itemset) key() string {
	return strings.Join(s, "\x00")
}

// FrequentItemset 频繁项集及其支持度。
type FrequentItemset struct {
	Items   Itemset
	Support float64
}

// Rule 是一条有向规则 Antecedent → Consequent。
type Rule struct {
	Antecedent Itemset
	Consequent Itemset
	Support    float64
	Confidence float64
	Lift       float64
}

// Apriori 逐层生成频繁项集。
//
// 支持度 = 包含项集的购物篮数 / 购物篮总数，>= minSupport 视为频繁。
// 结果按项集长度、再按字典序排列；maxLength <= 0 表示不限长度。
func Apriori(baskets [][]string, minSupport float64, maxLength int) []FrequentItemset {
	if len(baskets) == 0 {
		return nil
	}
	n := float64(len(baskets))

	sets := make([]map[string]struct{}, len(baskets))
	counts := make(map[string]int)
	for i, b := range baskets {
		sets[i] = make(map[string]struct{}, len(b))
		for _, item := range b {
			if _, ok := sets[i][item]; ok {
				continue
			}
			sets[i][item] = struct{}{}
			counts[item]++
		}
	}

	var level []Itemset
	var out []FrequentItemset
	items := make([]string, 0, len(counts))
	for item := range counts {
		items = append(items, item)
	}
	sort.Strings(items)
	for _, item := range items {
		sup := float64(counts[item]) / n
		if sup >= minSupport {
			level = append(level, Itemset{item})
			out = append(out, FrequentItemset{Items: Itemset{item}, Support: sup})
		}
	}

	for length := 2; len(level) > 0 && (maxLength <= 0 || length <= maxLength); length++ {
		candidates := nextCandidates(level)
		level = level[:0:0]
		for _, c := range candidates {
			count := 0
			for _, set := range sets {
				if containsAll(set, c) {
					count++
				}
			}
			sup := float64(count) / n
			if sup >= minSupport {
				level = append(level, c)
				out = append(out, FrequentItemset{Items: c, Support: sup})
			}
		}
	}
	return out
}

// nextCandidates 合并前 k-1 项相同的频繁 k 项集，并剪掉含非频繁子集的候选。
func nextCandidates(prev []Itemset) []Itemset {
	known := make(map[string]struct{}, len(prev))
	for _, s := range prev {
		known[s.key()] = struct{}{}
	}
	var out []Itemset
	for i := 0; i < len(prev); i++ {
		for j := i + 1; j < len(prev); j++ {
			a, b := prev[i], prev[j]
			k := len(a)
			if !samePrefix(a, b, k-1) {
				continue
			}
			c := make(Itemset, 0, k+1)
			c = append(c, a...)
			c = append(c, b[k-1])
			sort.Strings(c)
			if allSubsetsKnown(c, known) {
				out = append(out, c)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key() < out[j].key() })
	return out
}

func samePrefix(a, b Itemset, n int) bool {
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func allSubsetsKnown(c Itemset, known map[string]struct{}) bool {
	for skip := range c {
		sub := make(Itemset, 0, len(c)-1)
		sub = append(sub, c[:skip]...)
		sub = append(sub, c[skip+1:]...)
		if _, ok := known[sub.key()]; !ok {
			return false
		}
	}
	return true
}

func containsAll(set map[string]struct{}, items Itemset) bool {
	for _, it := range items {
		if _, ok := set[it]; !ok {
			return false
		}
	}
	return true
}

// GenerateRules 为每个长度 >= 2 的频繁项集枚举非空真子集作为前件。
// 置信度 = support(项集) / support(前件)，>= minConfidence 的规则保留。
// 前件按长度递增、同长度按字典序枚举。
func GenerateRules(frequent []FrequentItemset, minConfidence float64) []Rule {
	support := make(map[string]float64, len(frequent))
	for _, f := range frequent {
		support[f.Items.key()] = f.Support
	}

	var rules []Rule
	for _, f := range frequent {
		if len(f.Items) < 2 {
			continue
		}
		for size := 1; size < len(f.Items); size++ {
			for _, base := range combinations(f.Items, size) {
				baseSup, ok := support[base.key()]
				if !ok || baseSup == 0 {
					continue
				}
				conf := f.Support / baseSup
				if conf < minConfidence {
					continue
				}
				add := difference(f.Items, base)
				var lift float64
				if addSup := support[add.key()]; addSup > 0 {
					lift = conf / addSup
				}
				rules = append(rules, Rule{
					Antecedent: base,
					Consequent: add,
					Support:    f.Support,
					Confidence: conf,
					Lift:       lift,
				})
			}
		}
	}
	return rules
}

// combinations 返回 items 中长度为 k 的全部组合（保持 items 的顺序）。
func combinations(items Itemset, k int) []Itemset {
	var out []Itemset
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		c := make(Itemset, k)
		for i, j := range idx {
			c[i] = items[j]
		}
		out = append(out, c)

		i := k - 1
		for i >= 0 && idx[i] == len(items)-k+i {
			i--
		}
		if i < 0 {
			return out
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

func difference(all, sub Itemset) Itemset {
	skip := make(map[string]struct{}, len(sub))
	for _, s := range sub {
		skip[s] = struct{}{}
	}
	out := make(Itemset, 0, len(all)-len(sub))
	for _, s := range all {
		if _, ok := skip[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}
