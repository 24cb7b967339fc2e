package analyzer

import (
	"testing"

	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/model"
)

func TestFindMarginOutliers_BoundariesAcceptable(t *testing.T) {
	t.Parallel()

	results := []*model.PricingResult{
		benchmarkResult("<700", 5.0, map[string]model.InvestorQuote{
			"InvLow":    {Margin: 0.3},  // 低于下限
			"InvMin":    {Margin: 0.5},  // 恰在下限
			"InvMax":    {Margin: 2.0},  // 恰在上限
			"InvHigh":   {Margin: 2.25}, // 高于上限
			"InvMiddle": {Margin: 1.0},
		}),
	}

	d := NewAnomalyDetector(results)
	anomalies := d.FindMarginOutliers(0.5, 2.0)

	if len(anomalies) != 2 {
		t.Fatalf("anomalies=%d, want 2 (boundaries are acceptable)", len(anomalies))
	}

	byInvestor := make(map[string]*Anomaly)
	for _, a := range anomalies {
		byInvestor[a.Investor] = a
	}

	low, ok := byInvestor["InvLow"]
	if !ok || low.Status != StatusTooLow {
		t.Fatalf("InvLow anomaly=%+v, want status %q", low, StatusTooLow)
	}
	high, ok := byInvestor["InvHigh"]
	if !ok || high.Status != StatusTooHigh {
		t.Fatalf("InvHigh anomaly=%+v, want status %q", high, StatusTooHigh)
	}
	if high.AcceptableRange != "0.500 - 2.000" {
		t.Fatalf("acceptable range=%q, want 0.500 - 2.000", high.AcceptableRange)
	}
}

func TestFindMarginOutliers_ContextExcludesQuoteFields(t *testing.T) {
	t.Parallel()

	results := []*model.PricingResult{
		benchmarkResult("<700", 5.0, map[string]model.InvestorQuote{
			"InvA": {Margin: 5.0},
		}),
	}

	anomalies := NewAnomalyDetector(results).FindMarginOutliers(0.5, 2.0)
	if len(anomalies) != 1 {
		t.Fatalf("anomalies=%d, want 1", len(anomalies))
	}

	ctx := anomalies[0].Context
	if _, ok := ctx["Investors"]; ok {
		t.Fatalf("context should not carry Investors")
	}
	if _, ok := ctx["Max_Margin"]; ok {
		t.Fatalf("context should not carry Max_Margin")
	}
	if ctx["FICO"] != "<700" || ctx["Program"] != "Prime" {
		t.Fatalf("scenario context missing: %v", ctx)
	}
}

func TestFindMarginOutliers_Stats(t *testing.T) {
	t.Parallel()

	results := []*model.PricingResult{
		benchmarkResult("<700", 5.0, map[string]model.InvestorQuote{
			"InvA": {Margin: 0.1},
			"InvB": {Margin: 3.0},
		}),
		benchmarkResult("700+", 5.0, map[string]model.InvestorQuote{
			"InvA": {Margin: 0.2},
		}),
	}

	d := NewAnomalyDetector(results)
	d.FindMarginOutliers(0.5, 2.0)
	stats := d.Stats()

	if stats.Total != 3 || stats.TooLow != 2 || stats.TooHigh != 1 {
		t.Fatalf("stats=%+v, want total 3 low 2 high 1", stats)
	}
	if stats.InvestorCounts["InvA"] != 2 || stats.InvestorCounts["InvB"] != 1 {
		t.Fatalf("investor counts=%v", stats.InvestorCounts)
	}

	if got := len(d.ByStatus(StatusTooLow)); got != 2 {
		t.Fatalf("too-low=%d, want 2", got)
	}
}

func TestFindMarginOutliers_ComparisonResultsSkipped(t *testing.T) {
	t.Parallel()

	// 对比表结果没有投资人报价映射，不参与异常检测
	anomalies := NewAnomalyDetector([]*model.PricingResult{
		comparisonResult("<700", 5.0, 9.9),
	}).FindMarginOutliers(0.5, 2.0)

	if len(anomalies) != 0 {
		t.Fatalf("anomalies=%d, want 0", len(anomalies))
	}
}
