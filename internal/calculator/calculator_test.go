package calculator

import (
	"math"
	"testing"

	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/model"
)

func ficoModule(low, high float64) *model.Module {
	table := model.NewAdjustmentTable([]string{"<=70%", ">=70.01%"})
	table.AddRow("<700", []model.RangeAdjustment{
		{Range: "<=70%", Value: low, Valid: true},
		{Range: ">=70.01%", Value: high, Valid: true},
	})
	return &model.Module{Name: "1. FICO", Dimension: "FICO", Position: 1, Table: table}
}

// pairStore 基准表与对比表各一张，同构但调整值不同
func pairStore() *model.RuleStore {
	rs := model.NewRuleStore()
	rs.Add(&model.SheetRuleSet{
		Name:       "S-AAA Prime",
		Source:     model.SourceAAA,
		Modules:    []*model.Module{ficoModule(0.25, 0.5)},
		BasePrices: map[float64]float64{5.0: 100.0},
	})
	rs.Add(&model.SheetRuleSet{
		Name:       "S-InvA",
		Source:     model.SourceInvestor,
		Modules:    []*model.Module{ficoModule(0.75, 1.0)},
		BasePrices: map[float64]float64{5.0: 100.0},
	})
	return rs
}

func scenario(sheet string, source model.SourceType, conditions map[string]string) *model.Scenario {
	return &model.Scenario{
		Sheet:      sheet,
		Program:    model.ProgramFromSheetName(sheet),
		SourceType: source,
		Rate:       5.0,
		Conditions: conditions,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPrice_InvestorMarginAgainstBenchmark(t *testing.T) {
	t.Parallel()

	c := NewCalculator(pairStore())
	s := scenario("S-InvA", model.SourceInvestor, map[string]string{"FICO": "<700", "LTV": "65"})

	r := c.Price(s)
	if r == nil {
		t.Fatalf("price returned nil")
	}
	if !almostEqual(r.BasePrice, 100.0) || !almostEqual(r.LLPAAdjustments, 0.75) {
		t.Fatalf("base=%v adj=%v, want 100.0 / 0.75", r.BasePrice, r.LLPAAdjustments)
	}
	if !almostEqual(r.FinalPrice, 100.75) {
		t.Fatalf("final=%v, want 100.75", r.FinalPrice)
	}

	if r.AAAFinalPrice == nil || r.Margin == nil {
		t.Fatalf("comparison result missing benchmark fields")
	}
	if !almostEqual(*r.AAAFinalPrice, 100.25) {
		t.Fatalf("aaa final=%v, want 100.25", *r.AAAFinalPrice)
	}
	if !almostEqual(*r.Margin, 0.5) {
		t.Fatalf("margin=%v, want 0.5", *r.Margin)
	}
}

func TestPrice_BenchmarkCarriesInvestorQuotes(t *testing.T) {
	t.Parallel()

	c := NewCalculator(pairStore())
	s := scenario("S-AAA Prime", model.SourceAAA, map[string]string{"FICO": "<700", "LTV": "65"})

	r := c.Price(s)
	if r == nil {
		t.Fatalf("price returned nil")
	}
	if !almostEqual(r.FinalPrice, 100.25) {
		t.Fatalf("final=%v, want 100.25", r.FinalPrice)
	}

	q, ok := r.Investors["InvA"]
	if !ok {
		t.Fatalf("InvA quote missing: %v", r.Investors)
	}
	if !almostEqual(q.FinalPrice, 100.75) || !almostEqual(q.Margin, 0.5) {
		t.Fatalf("quote=%+v, want final 100.75 margin 0.5", q)
	}

	if r.MaxMargin == nil || r.MaxMargin.Investor != "InvA" || !almostEqual(r.MaxMargin.Value, 0.5) {
		t.Fatalf("max margin=%+v, want InvA 0.5", r.MaxMargin)
	}
}

func TestPrice_MissingBasePriceReturnsNil(t *testing.T) {
	t.Parallel()

	c := NewCalculator(pairStore())
	s := scenario("S-InvA", model.SourceInvestor, map[string]string{"FICO": "<700", "LTV": "65"})
	s.Rate = 6.0

	if r := c.Price(s); r != nil {
		t.Fatalf("expected nil for missing base price, got %+v", r)
	}
}

func TestPrice_UnmatchedConditionContributesZero(t *testing.T) {
	t.Parallel()

	c := NewCalculator(pairStore())
	s := scenario("S-InvA", model.SourceInvestor, map[string]string{"FICO": "820+", "LTV": "65"})

	r := c.Price(s)
	if r == nil {
		t.Fatalf("unmatched condition should not void the scenario")
	}
	if !almostEqual(r.LLPAAdjustments, 0) || !almostEqual(r.FinalPrice, 100.0) {
		t.Fatalf("adj=%v final=%v, want 0 / 100.0", r.LLPAAdjustments, r.FinalPrice)
	}
}

func TestMatchRange_SourceOrderPrecedence(t *testing.T) {
	t.Parallel()

	// 两个重叠区间，LTV 63 同时命中；按源表列顺序先到先得
	table := model.NewAdjustmentTable([]string{"60-70%", "<=65%"})
	table.AddRow("<700", []model.RangeAdjustment{
		{Range: "60-70%", Value: 0.1, Valid: true},
		{Range: "<=65%", Value: 0.9, Valid: true},
	})
	m := &model.Module{Name: "1. FICO", Dimension: "FICO", Position: 1, Table: table}

	rs := model.NewRuleStore()
	rs.Add(&model.SheetRuleSet{
		Name:       "S-AAA Prime",
		Source:     model.SourceAAA,
		Modules:    []*model.Module{m},
		BasePrices: map[float64]float64{5.0: 100.0},
	})

	c := NewCalculator(rs)
	r := c.Price(scenario("S-AAA Prime", model.SourceAAA, map[string]string{"FICO": "<700", "LTV": "63"}))
	if r == nil {
		t.Fatalf("price returned nil")
	}
	if !almostEqual(r.LLPAAdjustments, 0.1) {
		t.Fatalf("adj=%v, want 0.1 (first declared range wins)", r.LLPAAdjustments)
	}
}

func TestMatchRange_ExactKeyMatch(t *testing.T) {
	t.Parallel()

	// LTV 条件本身就是区间记法时按键精确匹配
	c := NewCalculator(pairStore())
	r := c.Price(scenario("S-InvA", model.SourceInvestor, map[string]string{"FICO": "<700", "LTV": "<=70%"}))
	if r == nil {
		t.Fatalf("price returned nil")
	}
	if !almostEqual(r.LLPAAdjustments, 0.75) {
		t.Fatalf("adj=%v, want 0.75", r.LLPAAdjustments)
	}
}

func TestMatchRange_BlankCellIsMissingNotZero(t *testing.T) {
	t.Parallel()

	table := model.NewAdjustmentTable([]string{"<=70%", ">=70.01%"})
	table.AddRow("<700", []model.RangeAdjustment{
		{Range: "<=70%", Valid: false},
		{Range: ">=70.01%", Value: 0.5, Valid: true},
	})
	m := &model.Module{Name: "1. FICO", Dimension: "FICO", Position: 1, Table: table}

	rs := model.NewRuleStore()
	rs.Add(&model.SheetRuleSet{
		Name:       "S-AAA Prime",
		Source:     model.SourceAAA,
		Modules:    []*model.Module{m},
		BasePrices: map[float64]float64{5.0: 100.0},
	})

	c := NewCalculator(rs)
	// LTV 65 只落在空格区间：跳过空格后无其他命中，贡献 0
	r := c.Price(scenario("S-AAA Prime", model.SourceAAA, map[string]string{"FICO": "<700", "LTV": "65"}))
	if r == nil {
		t.Fatalf("price returned nil")
	}
	if !almostEqual(r.LLPAAdjustments, 0) {
		t.Fatalf("adj=%v, want 0 (blank cell skipped)", r.LLPAAdjustments)
	}
}

func TestMaxMargin_TieBreaksLexicographically(t *testing.T) {
	t.Parallel()

	rs := model.NewRuleStore()
	rs.Add(&model.SheetRuleSet{
		Name:       "S-AAA Prime",
		Source:     model.SourceAAA,
		Modules:    []*model.Module{ficoModule(0.25, 0.5)},
		BasePrices: map[float64]float64{5.0: 100.0},
	})
	// 两个投资人完全同构，利润并列
	for _, name := range []string{"S-Zeta", "S-Alpha"} {
		rs.Add(&model.SheetRuleSet{
			Name:       name,
			Source:     model.SourceInvestor,
			Modules:    []*model.Module{ficoModule(0.75, 1.0)},
			BasePrices: map[float64]float64{5.0: 100.0},
		})
	}

	c := NewCalculator(rs)
	r := c.Price(scenario("S-AAA Prime", model.SourceAAA, map[string]string{"FICO": "<700", "LTV": "65"}))
	if r == nil || r.MaxMargin == nil {
		t.Fatalf("benchmark result missing max margin")
	}
	if r.MaxMargin.Investor != "Alpha" {
		t.Fatalf("tie-break investor=%q, want Alpha", r.MaxMargin.Investor)
	}
}

func TestPriceAll_SkipsVoidScenarios(t *testing.T) {
	t.Parallel()

	c := NewCalculator(pairStore())
	good := scenario("S-InvA", model.SourceInvestor, map[string]string{"FICO": "<700", "LTV": "65"})
	bad := scenario("S-InvA", model.SourceInvestor, map[string]string{"FICO": "<700", "LTV": "65"})
	bad.Rate = 9.9

	results := c.PriceAll([]*model.Scenario{good, bad})
	if len(results) != 1 {
		t.Fatalf("results=%d, want 1", len(results))
	}
}
