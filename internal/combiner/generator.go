package combiner

import (
	"log"
	"sort"

	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/model"
)

// DefaultRateLadder 基准基础价格表为空时的兜底利率梯子（显式降级模式）
var DefaultRateLadder = []float64{4.5, 4.625, 4.75, 4.875, 5.0, 5.125, 5.25, 5.375, 5.5}

// Generator 场景生成器
// 对同一规则集合，生成结果是确定且幂等的
type Generator struct {
	store           *model.RuleStore
	dimensionValues map[string][]string // 维度 → 排序后的条件域
}

// NewGenerator 创建生成器并汇总维度域
func NewGenerator(store *model.RuleStore) *Generator {
	g := &Generator{store: store}
	g.dimensionValues = g.extractDimensionValues()
	log.Printf("场景生成器初始化：%d 个工作表，%d 个维度", len(store.Order), len(g.dimensionValues))
	return g
}

// extractDimensionValues 汇总全部工作表观察到的维度域
// 域是全局合并而非按表：对比表缺少某条件时仍为其生成场景，
// 覆盖缺口体现为定价时的"无匹配"，而不是被排除的场景
func (g *Generator) extractDimensionValues() map[string][]string {
	seen := make(map[string]map[string]struct{})

	for _, name := range g.store.Order {
		rs := g.store.Sheets[name]
		if rs == nil {
			continue
		}
		for _, m := range rs.Modules {
			if m.Dimension == "" {
				continue
			}
			values, ok := seen[m.Dimension]
			if !ok {
				values = make(map[string]struct{})
				seen[m.Dimension] = values
			}
			for _, condition := range m.Table.Conditions {
				values[condition] = struct{}{}
			}
		}
	}

	out := make(map[string][]string, len(seen))
	for dim, values := range seen {
		sorted := make([]string, 0, len(values))
		for v := range values {
			sorted = append(sorted, v)
		}
		sort.Strings(sorted)
		out[dim] = sorted
	}
	return out
}

// DimensionValues 返回各维度的条件域（排序后）
func (g *Generator) DimensionValues() map[string][]string {
	return g.dimensionValues
}

// GenerateAll 生成全部候选场景：维度域的完整笛卡尔积 × 利率轴 × 工作表
// 组合数是各维度域大小之积，对维度数是指数的；完整枚举是正确性
// 要求，这里不截断也不抽样，只靠观测数据中每个域都很小才可行
func (g *Generator) GenerateAll() []*model.Scenario {
	rates := g.rateAxis()
	base := g.generateBaseCombos()

	scenarios := make([]*model.Scenario, 0, len(base)*len(rates)*len(g.store.Order))

	for _, sheetName := range g.store.Order {
		rs := g.store.Sheets[sheetName]
		if rs == nil {
			continue
		}

		program := model.ProgramFromSheetName(sheetName)
		source := model.SourceInvestor
		if rs.IsBenchmark() {
			source = model.SourceAAA
		}

		for _, combo := range base {
			for _, rate := range rates {
				conditions := make(map[string]string, len(combo))
				for k, v := range combo {
					conditions[k] = v
				}
				s := &model.Scenario{
					Sheet:      sheetName,
					Program:    program,
					SourceType: source,
					Rate:       rate,
					Conditions: conditions,
				}
				if !g.isValidScenario(s) {
					continue
				}
				scenarios = append(scenarios, s)
			}
		}
	}

	log.Printf("生成 %d 个场景", len(scenarios))
	return scenarios
}

// generateBaseCombos 按排序后的维度逐个展开笛卡尔积
func (g *Generator) generateBaseCombos() []map[string]string {
	dims := make([]string, 0, len(g.dimensionValues))
	for dim := range g.dimensionValues {
		dims = append(dims, dim)
	}
	sort.Strings(dims)

	combos := []map[string]string{{}}
	for _, dim := range dims {
		values := g.dimensionValues[dim]
		next := make([]map[string]string, 0, len(combos)*len(values))
		for _, combo := range combos {
			for _, v := range values {
				expanded := make(map[string]string, len(combo)+1)
				for k, cv := range combo {
					expanded[k] = cv
				}
				expanded[dim] = v
				next = append(next, expanded)
			}
		}
		combos = next
	}
	return combos
}

// rateAxis 利率轴取自基准表的基础价格表
// 基准表缺失或基础价格表为空时回退默认梯子，并记日志标明降级
func (g *Generator) rateAxis() []float64 {
	benchmark, ok := g.store.BenchmarkSheet()
	if !ok {
		log.Printf("未找到基准工作表，使用默认利率梯子")
		return DefaultRateLadder
	}

	rates := benchmark.Rates()
	if len(rates) == 0 {
		log.Printf("基准表基础价格为空，使用默认利率梯子")
		return DefaultRateLadder
	}
	return rates
}

// isValidScenario 业务规则校验挂钩
// 当前全部放行；保留给未来的组合排除规则（策略点，不是缺陷）
func (g *Generator) isValidScenario(_ *model.Scenario) bool {
	return true
}
