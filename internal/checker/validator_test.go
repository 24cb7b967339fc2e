package checker

import (
	"reflect"
	"testing"

	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/model"
)

func moduleNamed(name string, rangeKeys []string, conditions ...string) *model.Module {
	table := model.NewAdjustmentTable(rangeKeys)
	for _, c := range conditions {
		cells := make([]model.RangeAdjustment, len(rangeKeys))
		for i, k := range rangeKeys {
			cells[i] = model.RangeAdjustment{Range: k, Value: 0.25, Valid: true}
		}
		table.AddRow(c, cells)
	}
	return &model.Module{Name: name, Dimension: model.DimensionFromModule(name), Table: table}
}

func benchmarkSheet() *model.SheetRuleSet {
	return &model.SheetRuleSet{
		Name:   "S-AAA Prime",
		Source: model.SourceAAA,
		Modules: []*model.Module{
			moduleNamed("1. FICO", []string{"<=70%", ">=70.01%"}, "<700", "700+"),
			moduleNamed("2. DSCR", []string{"<=70%", ">=70.01%"}, "<1.0", ">=1.0"),
		},
		BasePrices: map[float64]float64{5.0: 100.0, 5.125: 99.5},
	}
}

func cloneAsInvestor(name string) *model.SheetRuleSet {
	b := benchmarkSheet()
	return &model.SheetRuleSet{
		Name:       name,
		Source:     model.SourceInvestor,
		Modules:    b.Modules,
		BasePrices: b.BasePrices,
	}
}

func TestValidateAll_IdenticalStructurePasses(t *testing.T) {
	t.Parallel()

	rs := model.NewRuleStore()
	rs.Add(benchmarkSheet())
	rs.Add(cloneAsInvestor("S-InvA"))

	report := NewValidator(rs).ValidateAll()
	if report.Summary.Error != "" {
		t.Fatalf("unexpected error: %s", report.Summary.Error)
	}
	if report.Summary.TotalSheets != 1 || report.Summary.SheetsWithIssues != 0 {
		t.Fatalf("summary=%+v, want 1 sheet, 0 issues", report.Summary)
	}
	if len(report.Details) != 0 {
		t.Fatalf("details should be empty: %v", report.Details)
	}
}

func TestValidateAll_MissingBenchmarkReportsError(t *testing.T) {
	t.Parallel()

	rs := model.NewRuleStore()
	rs.Add(cloneAsInvestor("S-InvA"))

	report := NewValidator(rs).ValidateAll()
	if report.Summary.Error == "" {
		t.Fatalf("expected top-level error without benchmark sheet")
	}
}

func TestValidateAll_MissingAndExtraModules(t *testing.T) {
	t.Parallel()

	inv := cloneAsInvestor("S-InvA")
	inv.Modules = []*model.Module{
		inv.Modules[0],
		moduleNamed("3. Prepay", []string{"<=70%", ">=70.01%"}, "3yr"),
	}

	rs := model.NewRuleStore()
	rs.Add(benchmarkSheet())
	rs.Add(inv)

	report := NewValidator(rs).ValidateAll()
	issues, ok := report.Details["S-InvA"]
	if !ok {
		t.Fatalf("issues for S-InvA missing")
	}
	if !reflect.DeepEqual(issues.MissingModules, []string{"2. DSCR"}) {
		t.Fatalf("missing=%v, want [2. DSCR]", issues.MissingModules)
	}
	if !reflect.DeepEqual(issues.ExtraModules, []string{"3. Prepay"}) {
		t.Fatalf("extra=%v, want [3. Prepay]", issues.ExtraModules)
	}
}

func TestValidateAll_WrongModuleOrder(t *testing.T) {
	t.Parallel()

	b := benchmarkSheet()
	inv := cloneAsInvestor("S-InvA")
	inv.Modules = []*model.Module{b.Modules[1], b.Modules[0]}

	rs := model.NewRuleStore()
	rs.Add(b)
	rs.Add(inv)

	report := NewValidator(rs).ValidateAll()
	issues, ok := report.Details["S-InvA"]
	if !ok || !issues.WrongModuleOrder {
		t.Fatalf("expected wrong_module_order, got %+v", issues)
	}
}

func TestValidateAll_RangeKeyDiff(t *testing.T) {
	t.Parallel()

	inv := cloneAsInvestor("S-InvA")
	inv.Modules = []*model.Module{
		moduleNamed("1. FICO", []string{"<=70%", "70.01-80%"}, "<700", "700+"),
		inv.Modules[1],
	}

	rs := model.NewRuleStore()
	rs.Add(benchmarkSheet())
	rs.Add(inv)

	report := NewValidator(rs).ValidateAll()
	issues, ok := report.Details["S-InvA"]
	if !ok || !issues.LTVColumnsMismatch {
		t.Fatalf("expected ltv mismatch, got %+v", issues)
	}

	diff, ok := issues.LTVDetails["1. FICO"]
	if !ok {
		t.Fatalf("diff for 1. FICO missing: %v", issues.LTVDetails)
	}
	if !reflect.DeepEqual(diff.MissingLTVRanges, []string{">=70.01%"}) {
		t.Fatalf("missing ranges=%v, want [>=70.01%%]", diff.MissingLTVRanges)
	}
	if !reflect.DeepEqual(diff.ExtraLTVRanges, []string{"70.01-80%"}) {
		t.Fatalf("extra ranges=%v, want [70.01-80%%]", diff.ExtraLTVRanges)
	}
	if _, ok := issues.LTVDetails["2. DSCR"]; ok {
		t.Fatalf("identical module should not appear in diff")
	}
}

func TestValidateAll_MissingRates(t *testing.T) {
	t.Parallel()

	inv := cloneAsInvestor("S-InvA")
	inv.BasePrices = map[float64]float64{5.0: 100.0}

	rs := model.NewRuleStore()
	rs.Add(benchmarkSheet())
	rs.Add(inv)

	report := NewValidator(rs).ValidateAll()
	issues, ok := report.Details["S-InvA"]
	if !ok {
		t.Fatalf("issues for S-InvA missing")
	}
	if issues.BasePriceMissing != 1 {
		t.Fatalf("base_price_missing_rows=%d, want 1", issues.BasePriceMissing)
	}
	if !reflect.DeepEqual(issues.MissingRates, []float64{5.125}) {
		t.Fatalf("missing rates=%v, want [5.125]", issues.MissingRates)
	}
}
