package analyzer

import (
	"math"
	"testing"

	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/model"
)

func comparisonResult(fico string, rate, margin float64) *model.PricingResult {
	m := margin
	return &model.PricingResult{
		Scenario: model.Scenario{
			Sheet:      "S-InvA",
			Program:    "Prime",
			SourceType: model.SourceInvestor,
			Rate:       rate,
			Conditions: map[string]string{"FICO": fico, "LTV": "65"},
		},
		BasePrice:  100.0,
		FinalPrice: 100.0 + m,
		Margin:     &m,
	}
}

func benchmarkResult(fico string, rate float64, quotes map[string]model.InvestorQuote) *model.PricingResult {
	r := &model.PricingResult{
		Scenario: model.Scenario{
			Sheet:      "S-AAA Prime",
			Program:    "Prime",
			SourceType: model.SourceAAA,
			Rate:       rate,
			Conditions: map[string]string{"FICO": fico, "LTV": "65"},
		},
		BasePrice:  100.0,
		FinalPrice: 100.0,
		Investors:  quotes,
	}

	var best *model.MaxMargin
	for name, q := range quotes {
		if best == nil || q.Margin > best.Value || (q.Margin == best.Value && name < best.Investor) {
			best = &model.MaxMargin{Investor: name, Value: q.Margin}
		}
	}
	r.MaxMargin = best
	return r
}

func TestDimensions_ExcludesDerivedFields(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer([]*model.PricingResult{comparisonResult("<700", 5.0, 0.5)})
	dims := a.Dimensions()

	want := map[string]bool{"FICO": true, "LTV": true, "Program": true, "Rate": true}
	if len(dims) != len(want) {
		t.Fatalf("dims=%v, want keys %v", dims, want)
	}
	for _, d := range dims {
		if !want[d] {
			t.Fatalf("unexpected dimension %q", d)
		}
	}
}

func TestFilterAndAnalyze_NoFilters(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer([]*model.PricingResult{
		comparisonResult("<700", 5.0, 0.5),
		comparisonResult("700+", 5.0, 1.5),
	})
	report := a.FilterAndAnalyze(Filters{})

	if report.Error != "" {
		t.Fatalf("unexpected error: %s", report.Error)
	}
	if report.SampleSize != 2 || report.Scope != "All scenarios" {
		t.Fatalf("report=%+v, want 2 / All scenarios", report)
	}
	if report.AverageMargin == nil || math.Abs(*report.AverageMargin-1.0) > 1e-9 {
		t.Fatalf("avg margin=%v, want 1.0", report.AverageMargin)
	}
	if *report.MaxMargin != 1.5 || *report.MinMargin != 0.5 {
		t.Fatalf("max=%v min=%v, want 1.5 / 0.5", *report.MaxMargin, *report.MinMargin)
	}
}

func TestFilterAndAnalyze_EqualsFilter(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer([]*model.PricingResult{
		comparisonResult("<700", 5.0, 0.5),
		comparisonResult("700+", 5.0, 1.5),
	})
	report := a.FilterAndAnalyze(Filters{Equals: map[string]string{"FICO": "700+"}})

	if report.SampleSize != 1 {
		t.Fatalf("sample=%d, want 1", report.SampleSize)
	}
	if *report.AverageMargin != 1.5 {
		t.Fatalf("avg=%v, want 1.5", *report.AverageMargin)
	}
	if report.Scope != "FICO: 700+" {
		t.Fatalf("scope=%q", report.Scope)
	}
}

func TestFilterAndAnalyze_RateRange(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer([]*model.PricingResult{
		comparisonResult("<700", 4.5, 0.5),
		comparisonResult("<700", 5.0, 1.0),
		comparisonResult("<700", 5.5, 1.5),
	})
	report := a.FilterAndAnalyze(Filters{RateRange: &RateRange{Min: 4.5, Max: 5.0}})

	// 区间端点均含
	if report.SampleSize != 2 {
		t.Fatalf("sample=%d, want 2", report.SampleSize)
	}
}

func TestFilterAndAnalyze_UnknownDimensionIgnored(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer([]*model.PricingResult{comparisonResult("<700", 5.0, 0.5)})
	report := a.FilterAndAnalyze(Filters{Equals: map[string]string{"NoSuchDim": "x"}})

	if report.Error != "" || report.SampleSize != 1 {
		t.Fatalf("unknown dimension should be ignored, got %+v", report)
	}
}

func TestFilterAndAnalyze_EmptyMatchReportsError(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer([]*model.PricingResult{comparisonResult("<700", 5.0, 0.5)})
	report := a.FilterAndAnalyze(Filters{Equals: map[string]string{"FICO": "760+"}})

	if report.Error == "" {
		t.Fatalf("expected error for empty match")
	}
}

func TestFilterAndAnalyze_BenchmarkAggregates(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer([]*model.PricingResult{
		benchmarkResult("<700", 5.0, map[string]model.InvestorQuote{
			"InvA": {FinalPrice: 100.5, Margin: 0.5},
			"InvB": {FinalPrice: 101.0, Margin: 1.0},
		}),
		benchmarkResult("700+", 5.0, map[string]model.InvestorQuote{
			"InvA": {FinalPrice: 100.25, Margin: 0.25},
			"InvB": {FinalPrice: 100.75, Margin: 0.75},
		}),
	})
	report := a.FilterAndAnalyze(Filters{})

	if report.AverageMaxMargin == nil || math.Abs(*report.AverageMaxMargin-0.875) > 1e-9 {
		t.Fatalf("avg max margin=%v, want 0.875", report.AverageMaxMargin)
	}
	if report.TopInvestor != "InvB" {
		t.Fatalf("top investor=%q, want InvB", report.TopInvestor)
	}

	stats, ok := report.MarginDistribution["InvA"]
	if !ok {
		t.Fatalf("InvA distribution missing")
	}
	if stats.Count != 2 || math.Abs(stats.Avg-0.375) > 1e-9 || stats.Max != 0.5 {
		t.Fatalf("InvA stats=%+v, want count 2 avg 0.375 max 0.5", stats)
	}
}
