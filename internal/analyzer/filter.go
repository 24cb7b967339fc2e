package analyzer

import (
	"fmt"
	"log"
	"sort"
	"strconv"

	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/model"
)

// RateRange 利率维度上的闭区间过滤
type RateRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Filters 过滤条件：若干等值过滤加至多一个利率区间过滤
type Filters struct {
	Equals    map[string]string `json:"equals"`
	RateRange *RateRange        `json:"rate_range,omitempty"`
}

// InvestorStats 单个投资人在过滤子集上的利润分布
type InvestorStats struct {
	Count int     `json:"count"`
	Avg   float64 `json:"avg"`
	Max   float64 `json:"max"`
}

// FilterReport 过滤聚合分析结果
type FilterReport struct {
	SampleSize         int                       `json:"SampleSize"`
	Scope              string                    `json:"Scope"`
	AverageMargin      *float64                  `json:"Average_Margin,omitempty"`
	MaxMargin          *float64                  `json:"Max_Margin,omitempty"`
	MinMargin          *float64                  `json:"Min_Margin,omitempty"`
	AverageMaxMargin   *float64                  `json:"Average_MaxMargin,omitempty"`
	TopInvestor        string                    `json:"Top_Investor_By_Margin,omitempty"`
	MarginDistribution map[string]*InvestorStats `json:"Margin_Distribution,omitempty"`
	Error              string                    `json:"Error,omitempty"`
}

// Analyzer 过滤聚合分析器，只读消费定价结果序列
type Analyzer struct {
	results    []*model.PricingResult
	dimensions []string
}

// NewAnalyzer 创建分析器并汇总可过滤维度
func NewAnalyzer(results []*model.PricingResult) *Analyzer {
	a := &Analyzer{results: results}
	a.dimensions = a.extractDimensions()
	return a
}

// extractDimensions 可过滤维度 = 全部结果键的并集减去定价衍生字段
func (a *Analyzer) extractDimensions() []string {
	seen := make(map[string]struct{})
	for _, r := range a.results {
		for key := range r.Flatten() {
			if !model.IsExcludedFilterField(key) {
				seen[key] = struct{}{}
			}
		}
	}

	dims := make([]string, 0, len(seen))
	for d := range seen {
		dims = append(dims, d)
	}
	sort.Strings(dims)
	return dims
}

// Dimensions 返回全部可过滤维度
func (a *Analyzer) Dimensions() []string {
	return a.dimensions
}

// DimensionValues 某维度在结果中出现过的全部取值（排序后）
func (a *Analyzer) DimensionValues(dim string) []string {
	seen := make(map[string]struct{})
	for _, r := range a.results {
		if v, ok := dimensionValue(r, dim); ok {
			seen[v] = struct{}{}
		}
	}

	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

// FilterAndAnalyze 过滤结果并统计利润分布
// 未知维度名只警告并忽略，绝不报错
func (a *Analyzer) FilterAndAnalyze(f Filters) *FilterReport {
	filtered := a.applyFilters(f)
	if len(filtered) == 0 {
		return &FilterReport{Error: "没有结果匹配当前过滤条件"}
	}

	report := &FilterReport{
		SampleSize: len(filtered),
		Scope:      formatScope(f),
	}
	a.analyzeMargins(filtered, report)
	report.MarginDistribution = analyzeByInvestor(filtered)
	return report
}

// applyFilters 依次应用等值过滤与利率区间过滤
func (a *Analyzer) applyFilters(f Filters) []*model.PricingResult {
	filtered := a.results

	keys := make([]string, 0, len(f.Equals))
	for dim := range f.Equals {
		keys = append(keys, dim)
	}
	sort.Strings(keys)

	for _, dim := range keys {
		if !a.knownDimension(dim) {
			log.Printf("过滤维度 %s 不存在，忽略", dim)
			continue
		}
		want := f.Equals[dim]
		next := filtered[:0:0]
		for _, r := range filtered {
			if v, ok := dimensionValue(r, dim); ok && v == want {
				next = append(next, r)
			}
		}
		filtered = next
	}

	if f.RateRange != nil {
		next := filtered[:0:0]
		for _, r := range filtered {
			if f.RateRange.Min <= r.Rate && r.Rate <= f.RateRange.Max {
				next = append(next, r)
			}
		}
		filtered = next
	}

	return filtered
}

func (a *Analyzer) knownDimension(dim string) bool {
	for _, d := range a.dimensions {
		if d == dim {
			return true
		}
	}
	return false
}

// analyzeMargins 统计利润均值、极值与最优投资人
func (a *Analyzer) analyzeMargins(results []*model.PricingResult, report *FilterReport) {
	var margins []float64
	var maxMargins []float64
	maxMarginCounts := make(map[string]int)

	for _, r := range results {
		if m, ok := r.MarginValue(); ok {
			margins = append(margins, m)
		}
		if r.MaxMargin != nil {
			maxMargins = append(maxMargins, r.MaxMargin.Value)
			maxMarginCounts[r.MaxMargin.Investor]++
		}
	}

	if len(margins) > 0 {
		avg := mean(margins)
		mx, mn := margins[0], margins[0]
		for _, m := range margins[1:] {
			if m > mx {
				mx = m
			}
			if m < mn {
				mn = m
			}
		}
		report.AverageMargin = &avg
		report.MaxMargin = &mx
		report.MinMargin = &mn
	}

	if len(maxMargins) > 0 {
		avg := mean(maxMargins)
		report.AverageMaxMargin = &avg
		report.TopInvestor = topByCount(maxMarginCounts)
	}
}

// analyzeByInvestor 按投资人统计过滤子集上的利润分布
func analyzeByInvestor(results []*model.PricingResult) map[string]*InvestorStats {
	type acc struct {
		count int
		sum   float64
		max   float64
	}
	accs := make(map[string]*acc)

	for _, r := range results {
		for investor, q := range r.Investors {
			s, ok := accs[investor]
			if !ok {
				s = &acc{max: q.Margin}
				accs[investor] = s
			}
			s.count++
			s.sum += q.Margin
			if q.Margin > s.max {
				s.max = q.Margin
			}
		}
	}

	if len(accs) == 0 {
		return nil
	}

	out := make(map[string]*InvestorStats, len(accs))
	for investor, s := range accs {
		out[investor] = &InvestorStats{
			Count: s.count,
			Avg:   s.sum / float64(s.count),
			Max:   s.max,
		}
	}
	return out
}

// formatScope 过滤范围的展示文本
func formatScope(f Filters) string {
	if len(f.Equals) == 0 && f.RateRange == nil {
		return "All scenarios"
	}

	keys := make([]string, 0, len(f.Equals))
	for dim := range f.Equals {
		keys = append(keys, dim)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	for _, dim := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", dim, f.Equals[dim]))
	}
	if f.RateRange != nil {
		parts = append(parts, fmt.Sprintf("Rate: %v to %v", f.RateRange.Min, f.RateRange.Max))
	}

	scope := parts[0]
	for _, p := range parts[1:] {
		scope += ", " + p
	}
	return scope
}

// dimensionValue 取结果在某维度上的取值（统一为字符串形态）
func dimensionValue(r *model.PricingResult, dim string) (string, bool) {
	switch dim {
	case "Program":
		return r.Program, true
	case "Rate":
		return strconv.FormatFloat(r.Rate, 'f', -1, 64), true
	}
	v, ok := r.Conditions[dim]
	return v, ok
}

// topByCount 出现次数最多者；并列取名字典序靠前者
func topByCount(counts map[string]int) string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	top := ""
	topCount := 0
	for _, name := range names {
		if counts[name] > topCount {
			topCount = counts[name]
			top = name
		}
	}
	return top
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
