package analyzer

import (
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/model"
)

// maxInfluenceEntries 影响力排名的返回上限
const maxInfluenceEntries = 10

// reverseExcludedFields 反向分析中不算借款维度的字段
var reverseExcludedFields = []string{
	"Sheet", "SourceType", "Program",
	"Base_Price", "LLPA_Adjustments", "Final_Price",
	"AAA_Final_Price", "Margin", "Investors", "Max_Margin",
}

// DimensionStats 单个维度在命中子集上的取值分布
type DimensionStats struct {
	ValueCounts map[string]int `json:"value_counts"`
	TopValue    string         `json:"top_value"`
	TopCount    int            `json:"top_count"`
}

// InfluenceEntry 单个维度的影响力评分
type InfluenceEntry struct {
	Module         string  `json:"Module"`
	TopCondition   string  `json:"Top_Condition"`
	Frequency      int     `json:"Frequency"`
	InfluenceScore float64 `json:"Influence_Score"`
}

// ReverseReport 反向定价分析结果
type ReverseReport struct {
	TotalMatchingScenarios int                        `json:"Total_Matching_Scenarios"`
	TargetMarginRange      string                     `json:"Target_Margin_Range"`
	DimensionAnalysis      map[string]*DimensionStats `json:"Dimension_Analysis,omitempty"`
	TopModulesByInfluence  []InfluenceEntry           `json:"Top_Modules_By_Influence,omitempty"`
	Error                  string                     `json:"Error,omitempty"`
}

// ReverseAnalyzer 反向定价分析器
// 找出"哪些借款维度最能把利润推进目标区间"
type ReverseAnalyzer struct {
	results []*model.PricingResult
}

// NewReverseAnalyzer 创建分析器
func NewReverseAnalyzer(results []*model.PricingResult) *ReverseAnalyzer {
	return &ReverseAnalyzer{results: results}
}

// AnalyzeTargetMargin 分析利润落在 [min, max] 内的场景
// investor 非空时只看该投资人的利润，否则任一投资人命中即算
func (a *ReverseAnalyzer) AnalyzeTargetMargin(minMargin, maxMargin float64, investor string) *ReverseReport {
	rangeText := fmt.Sprintf("%.3f - %.3f", minMargin, maxMargin)

	matches := a.filterByMarginRange(minMargin, maxMargin, investor)
	log.Printf("目标利润区间 %s 命中 %d 个场景", rangeText, len(matches))

	if len(matches) == 0 {
		return &ReverseReport{
			TargetMarginRange: rangeText,
			Error:             "目标利润区间内没有场景",
		}
	}

	dimensionAnalysis := analyzeByDimension(matches)
	return &ReverseReport{
		TotalMatchingScenarios: len(matches),
		TargetMarginRange:      rangeText,
		DimensionAnalysis:      dimensionAnalysis,
		TopModulesByInfluence:  topModulesByInfluence(dimensionAnalysis),
	}
}

// filterByMarginRange 过滤出利润命中目标区间的基准表结果
func (a *ReverseAnalyzer) filterByMarginRange(minMargin, maxMargin float64, investor string) []*model.PricingResult {
	matches := make([]*model.PricingResult, 0)

	for _, r := range a.results {
		if len(r.Investors) == 0 {
			continue
		}

		if investor != "" {
			q, ok := r.Investors[investor]
			if ok && minMargin <= q.Margin && q.Margin <= maxMargin {
				matches = append(matches, r)
			}
			continue
		}

		for _, q := range r.Investors {
			if minMargin <= q.Margin && q.Margin <= maxMargin {
				matches = append(matches, r)
				break
			}
		}
	}

	return matches
}

// analyzeByDimension 统计命中子集上各借款维度的取值频次
func analyzeByDimension(matches []*model.PricingResult) map[string]*DimensionStats {
	dims := make(map[string]struct{})
	for _, r := range matches {
		for key := range r.Flatten() {
			if !isReverseExcluded(key) {
				dims[key] = struct{}{}
			}
		}
	}

	out := make(map[string]*DimensionStats, len(dims))
	for dim := range dims {
		counts := make(map[string]int)
		for _, r := range matches {
			if v, ok := dimensionValue(r, dim); ok {
				counts[v]++
			}
		}
		if len(counts) == 0 {
			continue
		}

		topValue, topCount := topValueOf(counts)
		out[dim] = &DimensionStats{
			ValueCounts: counts,
			TopValue:    topValue,
			TopCount:    topCount,
		}
	}
	return out
}

// topModulesByInfluence 影响力 = 主导值占比 × (1 − 熵/4)
// 同时奖励"单一取值主导"与"低多样性"，按得分降序取前 10
func topModulesByInfluence(dimensionAnalysis map[string]*DimensionStats) []InfluenceEntry {
	entries := make([]InfluenceEntry, 0, len(dimensionAnalysis))

	for dim, stats := range dimensionAnalysis {
		total := 0
		for _, c := range stats.ValueCounts {
			total += c
		}
		if total == 0 {
			continue
		}

		entropy := 0.0
		for _, c := range stats.ValueCounts {
			p := float64(c) / float64(total)
			entropy -= p * math.Log2(p)
		}

		dominance := float64(stats.TopCount) / float64(total)
		entries = append(entries, InfluenceEntry{
			Module:         dim,
			TopCondition:   stats.TopValue,
			Frequency:      stats.TopCount,
			InfluenceScore: dominance * (1 - entropy/4),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].InfluenceScore != entries[j].InfluenceScore {
			return entries[i].InfluenceScore > entries[j].InfluenceScore
		}
		return entries[i].Module < entries[j].Module
	})

	if len(entries) > maxInfluenceEntries {
		entries = entries[:maxInfluenceEntries]
	}
	return entries
}

// topValueOf 频次最高的取值；并列取值字典序靠前者
func topValueOf(counts map[string]int) (string, int) {
	values := make([]string, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	sort.Strings(values)

	top := ""
	topCount := 0
	for _, v := range values {
		if counts[v] > topCount {
			topCount = counts[v]
			top = v
		}
	}
	return top, topCount
}

func isReverseExcluded(field string) bool {
	for _, f := range reverseExcludedFields {
		if f == field {
			return true
		}
	}
	return false
}
