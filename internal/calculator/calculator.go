package calculator

import (
	"log"
	"sort"

	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/model"
)

// Calculator 价格计算器
// 对每个场景解析基础价格与命中的 LLPA 调整之和，并派生
// 基准表与对比表之间的利润
type Calculator struct {
	store     *model.RuleStore
	benchmark *model.SheetRuleSet // 可能为 nil
}

// NewCalculator 创建计算器
func NewCalculator(store *model.RuleStore) *Calculator {
	c := &Calculator{store: store}
	if benchmark, ok := store.BenchmarkSheet(); ok {
		c.benchmark = benchmark
	} else {
		log.Printf("规则集合中未找到基准工作表，利润字段将不可用")
	}
	return c
}

// PriceAll 计算全部场景的价格，跳过缺少前提的场景
func (c *Calculator) PriceAll(scenarios []*model.Scenario) []*model.PricingResult {
	results := make([]*model.PricingResult, 0, len(scenarios))
	for _, s := range scenarios {
		if r := c.Price(s); r != nil {
			results = append(results, r)
		}
	}
	log.Printf("价格计算完成：%d/%d 个场景有结果", len(results), len(scenarios))
	return results
}

// Price 计算单个场景的定价结果
// 基础价格缺失等前提不满足时返回 nil（缺失而非错误），不中断批次
func (c *Calculator) Price(s *model.Scenario) *model.PricingResult {
	rs, ok := c.store.Sheet(s.Sheet)
	if !ok {
		log.Printf("工作表 %s 不在规则集合中", s.Sheet)
		return nil
	}

	base, adj, ok := c.compute(rs, s)
	if !ok {
		return nil
	}

	r := &model.PricingResult{
		Scenario:        *s,
		BasePrice:       base,
		LLPAAdjustments: adj,
		FinalPrice:      base + adj,
	}

	if rs.IsBenchmark() {
		c.attachInvestorQuotes(r, s)
	} else {
		c.attachBenchmarkMargin(r, s)
	}

	return r
}

// compute 解析某工作表下的基础价格与调整和
// ok 为 false 表示基础价格缺失（该场景整体作废）
func (c *Calculator) compute(rs *model.SheetRuleSet, s *model.Scenario) (base, adj float64, ok bool) {
	base, ok = rs.BasePrices[s.Rate]
	if !ok {
		log.Printf("工作表 %s 无利率 %v 的基础价格", rs.Name, s.Rate)
		return 0, 0, false
	}

	for _, m := range rs.Modules {
		v, matched := c.moduleAdjustment(rs.Name, m, s)
		if matched {
			adj += v
		}
	}
	return base, adj, true
}

// moduleAdjustment 单个模块对场景的调整值
// 维度、条件或区间未命中都只贡献 0 并记日志，不算错误
func (c *Calculator) moduleAdjustment(sheet string, m *model.Module, s *model.Scenario) (float64, bool) {
	condition, ok := s.Conditions[m.Dimension]
	if !ok {
		log.Printf("场景缺少维度 %s（工作表 %s）", m.Dimension, sheet)
		return 0, false
	}

	row, ok := m.Table.Row(condition)
	if !ok {
		log.Printf("模块 %s 无条件 %s（工作表 %s）", m.Name, condition, sheet)
		return 0, false
	}

	return c.matchRange(sheet, m, row, s)
}

// matchRange 按区间键匹配场景的 LTV 数值
// 先做区间键与观测 LTV 的精确相等（遗留格式），再按源表列顺序
// 取第一个包含该值的区间；先到先得，不做重叠消解
func (c *Calculator) matchRange(sheet string, m *model.Module, row []model.RangeAdjustment, s *model.Scenario) (float64, bool) {
	rawLTV, hasRaw := s.Conditions[model.LTVDimension]
	ltv, hasLTV := s.LTVValue()

	if hasRaw {
		normalized := model.NormalizeRangeKey(rawLTV)
		for _, cell := range row {
			if cell.Range == normalized {
				return cellValue(cell, sheet, m)
			}
		}
	}
	if hasLTV {
		for _, cell := range row {
			r, err := model.ParseLTVRange(cell.Range)
			if err != nil {
				continue
			}
			if r.Kind == model.RangeExact && r.Contains(ltv) {
				return cellValue(cell, sheet, m)
			}
		}
		for _, cell := range row {
			if !cell.Valid {
				continue
			}
			r, err := model.ParseLTVRange(cell.Range)
			if err != nil {
				continue
			}
			if r.Contains(ltv) {
				return cell.Value, true
			}
		}
		log.Printf("模块 %s 无匹配 LTV %v 的区间（工作表 %s）", m.Name, ltv, sheet)
		return 0, false
	}

	log.Printf("场景缺少 LTV 数值，模块 %s 不参与调整（工作表 %s）", m.Name, sheet)
	return 0, false
}

// cellValue 精确命中后的取值；命中空格按缺失处理
func cellValue(cell model.RangeAdjustment, sheet string, m *model.Module) (float64, bool) {
	if !cell.Valid {
		log.Printf("模块 %s 区间 %s 命中但调整值缺失（工作表 %s）", m.Name, cell.Range, sheet)
		return 0, false
	}
	return cell.Value, true
}

// attachBenchmarkMargin 对比表场景：换成基准表重算同一场景并取差
func (c *Calculator) attachBenchmarkMargin(r *model.PricingResult, s *model.Scenario) {
	if c.benchmark == nil {
		return
	}

	base, adj, ok := c.compute(c.benchmark, s)
	if !ok {
		return
	}

	aaaFinal := base + adj
	margin := r.FinalPrice - aaaFinal
	r.AAAFinalPrice = &aaaFinal
	r.Margin = &margin
}

// attachInvestorQuotes 基准表场景：对每个对比表重算并挑出利润最高者
// 并列时取投资人名字典序靠前者，保证结果确定
func (c *Calculator) attachInvestorQuotes(r *model.PricingResult, s *model.Scenario) {
	investors := make(map[string]model.InvestorQuote)

	for _, inv := range c.store.InvestorSheets() {
		base, adj, ok := c.compute(inv, s)
		if !ok {
			continue
		}
		final := base + adj
		investors[model.InvestorFromSheetName(inv.Name)] = model.InvestorQuote{
			FinalPrice: final,
			Margin:     final - r.FinalPrice,
		}
	}

	if len(investors) == 0 {
		return
	}

	r.Investors = investors
	r.MaxMargin = maxMarginOf(investors)
}

// maxMarginOf 按名字典序遍历，严格更大才替换
func maxMarginOf(investors map[string]model.InvestorQuote) *model.MaxMargin {
	names := make([]string, 0, len(investors))
	for name := range investors {
		names = append(names, name)
	}
	sort.Strings(names)

	var best *model.MaxMargin
	for _, name := range names {
		q := investors[name]
		if best == nil || q.Margin > best.Value {
			best = &model.MaxMargin{Investor: name, Value: q.Margin}
		}
	}
	return best
}
