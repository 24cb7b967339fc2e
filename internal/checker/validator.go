package checker

import (
	"log"
	"sort"

	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/model"
)

// ValidationReport 结构一致性校验报告
type ValidationReport struct {
	Summary ValidationSummary       `json:"summary"`
	Details map[string]*SheetIssues `json:"details"`
}

// ValidationSummary 汇总计数
type ValidationSummary struct {
	TotalSheets      int    `json:"total_sheets"`
	SheetsWithIssues int    `json:"sheets_with_issues"`
	Error            string `json:"error,omitempty"`
}

// SheetIssues 单个对比表未通过的检查项（只含失败项）
type SheetIssues struct {
	MissingModules     []string                    `json:"missing_modules,omitempty"`
	ExtraModules       []string                    `json:"extra_modules,omitempty"`
	WrongModuleOrder   bool                        `json:"wrong_module_order,omitempty"`
	LTVColumnsMismatch bool                        `json:"ltv_columns_mismatch,omitempty"`
	LTVDetails         map[string]*ModuleRangeDiff `json:"ltv_details,omitempty"` // 模块 → 区间差异
	BasePriceMissing   int                         `json:"base_price_missing_rows,omitempty"`
	MissingRates       []float64                   `json:"missing_rates,omitempty"`
}

// ModuleRangeDiff 单个共有模块的区间键差异
type ModuleRangeDiff struct {
	MissingLTVRanges []string `json:"missing_ltv_ranges,omitempty"`
	ExtraLTVRanges   []string `json:"extra_ltv_ranges,omitempty"`
}

// Empty 是否没有任何问题
func (s *SheetIssues) Empty() bool {
	return len(s.MissingModules) == 0 &&
		len(s.ExtraModules) == 0 &&
		!s.WrongModuleOrder &&
		!s.LTVColumnsMismatch &&
		len(s.MissingRates) == 0
}

// Validator 结构校验器：逐个对比表与基准表做结构 diff
type Validator struct {
	store *model.RuleStore
}

// NewValidator 创建校验器
func NewValidator(store *model.RuleStore) *Validator {
	return &Validator{store: store}
}

// ValidateAll 校验全部对比表
// 基准表缺失时报告顶层错误，绝不 panic
func (v *Validator) ValidateAll() *ValidationReport {
	investors := v.store.InvestorSheets()
	report := &ValidationReport{
		Summary: ValidationSummary{TotalSheets: len(investors)},
		Details: make(map[string]*SheetIssues),
	}

	benchmark, ok := v.store.BenchmarkSheet()
	if !ok {
		report.Summary.Error = "未找到基准（AAA）工作表"
		return report
	}

	benchmarkModules := benchmark.ModuleNames()
	benchmarkRanges := sheetRangeKeys(benchmark)
	benchmarkRates := benchmark.Rates()

	for _, sheet := range investors {
		issues := v.validateSheet(sheet, benchmarkModules, benchmarkRanges, benchmarkRates)
		if !issues.Empty() {
			report.Details[sheet.Name] = issues
			report.Summary.SheetsWithIssues++
		}
	}

	log.Printf("结构校验完成：%d/%d 个对比表存在问题", report.Summary.SheetsWithIssues, len(investors))
	return report
}

// validateSheet 对单个对比表执行全部检查，每项独立报告
func (v *Validator) validateSheet(sheet *model.SheetRuleSet, benchmarkModules []string, benchmarkRanges map[string]map[string]struct{}, benchmarkRates []float64) *SheetIssues {
	issues := &SheetIssues{}
	sheetModules := sheet.ModuleNames()

	issues.MissingModules = difference(benchmarkModules, sheetModules)
	issues.ExtraModules = difference(sheetModules, benchmarkModules)

	if !moduleOrderOK(sheetModules, benchmarkModules) {
		issues.WrongModuleOrder = true
	}

	if diffs := rangeDiffs(sheetRangeKeys(sheet), benchmarkRanges); len(diffs) > 0 {
		issues.LTVColumnsMismatch = true
		issues.LTVDetails = diffs
	}

	missingRates := missingFloat(benchmarkRates, sheet.Rates())
	if len(missingRates) > 0 {
		issues.BasePriceMissing = len(missingRates)
		issues.MissingRates = missingRates
	}

	return issues
}

// sheetRangeKeys 按模块汇总工作表的区间键集合
func sheetRangeKeys(sheet *model.SheetRuleSet) map[string]map[string]struct{} {
	out := make(map[string]map[string]struct{}, len(sheet.Modules))
	for _, m := range sheet.Modules {
		keys := make(map[string]struct{}, len(m.Table.RangeKeys))
		for _, k := range m.Table.RangeKeys {
			keys[k] = struct{}{}
		}
		out[m.Name] = keys
	}
	return out
}

// moduleOrderOK 基准模块顺序定义全序；对比表与基准的交集
// 必须是该序的非降子序列，出现逆序即失败
func moduleOrderOK(sheetModules, benchmarkModules []string) bool {
	position := make(map[string]int, len(benchmarkModules))
	for i, m := range benchmarkModules {
		position[m] = i
	}

	prev := -1
	for _, m := range sheetModules {
		pos, ok := position[m]
		if !ok {
			continue
		}
		if pos < prev {
			return false
		}
		prev = pos
	}
	return true
}

// rangeDiffs 逐个共有模块做区间键集合差
func rangeDiffs(sheetRanges, benchmarkRanges map[string]map[string]struct{}) map[string]*ModuleRangeDiff {
	diffs := make(map[string]*ModuleRangeDiff)

	for module, benchmarkKeys := range benchmarkRanges {
		sheetKeys, ok := sheetRanges[module]
		if !ok {
			// 模块缺失由 missing_modules 报告
			continue
		}

		d := &ModuleRangeDiff{}
		for k := range benchmarkKeys {
			if _, ok := sheetKeys[k]; !ok {
				d.MissingLTVRanges = append(d.MissingLTVRanges, k)
			}
		}
		for k := range sheetKeys {
			if _, ok := benchmarkKeys[k]; !ok {
				d.ExtraLTVRanges = append(d.ExtraLTVRanges, k)
			}
		}

		if len(d.MissingLTVRanges) > 0 || len(d.ExtraLTVRanges) > 0 {
			sort.Strings(d.MissingLTVRanges)
			sort.Strings(d.ExtraLTVRanges)
			diffs[module] = d
		}
	}

	return diffs
}

// difference 取 a 中不在 b 里的元素（保持 a 的顺序）
func difference(a, b []string) []string {
	inB := make(map[string]struct{}, len(b))
	for _, x := range b {
		inB[x] = struct{}{}
	}

	var out []string
	for _, x := range a {
		if _, ok := inB[x]; !ok {
			out = append(out, x)
		}
	}
	return out
}

// missingFloat 取基准利率中对比表缺少的部分（升序）
func missingFloat(benchmark, sheet []float64) []float64 {
	inSheet := make(map[float64]struct{}, len(sheet))
	for _, r := range sheet {
		inSheet[r] = struct{}{}
	}

	var out []float64
	for _, r := range benchmark {
		if _, ok := inSheet[r]; !ok {
			out = append(out, r)
		}
	}
	return out
}
