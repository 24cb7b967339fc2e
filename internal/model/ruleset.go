package model

import (
	"sort"
	"strings"
)

// SourceType 工作簿来源类型
type SourceType string

const (
	SourceAAA      SourceType = "AAA"      // 基准工作簿
	SourceInvestor SourceType = "Investor" // 投资人（对比）工作簿
)

// RangeAdjustment 某条件在单个 LTV 区间上的调整值
// Valid 为 false 表示原表中该格为空；缺失与 0 调整在语义上不同
type RangeAdjustment struct {
	Range string  `json:"range"`
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

// AdjustmentTable 单个模块的调整表，保持源表的行列顺序
// 区间匹配按 RangeKeys 的声明顺序，先到先得
type AdjustmentTable struct {
	RangeKeys  []string                     `json:"range_keys"` // 区间键，按源表列顺序
	Conditions []string                     `json:"conditions"` // 条件标签，按源表行顺序
	Rows       map[string][]RangeAdjustment `json:"rows"`       // 条件 → 各区间的调整值
}

// NewAdjustmentTable 创建空调整表
func NewAdjustmentTable(rangeKeys []string) *AdjustmentTable {
	return &AdjustmentTable{
		RangeKeys:  rangeKeys,
		Conditions: []string{},
		Rows:       make(map[string][]RangeAdjustment),
	}
}

// AddRow 追加一个条件行（cells 与 RangeKeys 列顺序一致）
func (t *AdjustmentTable) AddRow(condition string, cells []RangeAdjustment) {
	if _, ok := t.Rows[condition]; !ok {
		t.Conditions = append(t.Conditions, condition)
	}
	t.Rows[condition] = cells
}

// Row 按条件取一行调整值
func (t *AdjustmentTable) Row(condition string) ([]RangeAdjustment, bool) {
	cells, ok := t.Rows[condition]
	return cells, ok
}

// Module 工作表内的一个调整模块（如 "1. FICO/LTV"）
type Module struct {
	Name      string           `json:"name"`      // 原始模块名（含序号前缀）
	Dimension string           `json:"dimension"` // 去掉序号后的维度名
	Position  int              `json:"position"`  // 模块在工作表中的出现顺序
	Table     *AdjustmentTable `json:"table"`
}

// DimensionFromModule 从模块名推导维度名
// "1. FICO/LTV" → "FICO/LTV"；没有序号前缀时返回去空白后的原名
// 对任何可解析表头都返回非空维度，绝不静默丢弃模块
func DimensionFromModule(name string) string {
	parts := strings.SplitN(name, ".", 2)
	if len(parts) == 2 {
		return strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(name)
}

// SheetRuleSet 单个工作表的完整定价规则
type SheetRuleSet struct {
	Name       string              `json:"name"`    // 标准化后的工作表名（S-AAA.../S-...）
	Source     SourceType          `json:"source"`
	Modules    []*Module           `json:"modules"` // 按源顺序
	BasePrices map[float64]float64 `json:"-"`       // 利率 → 基础价格（JSON 不支持数值键，序列化由存储层处理）
}

// Module 按模块名查找
func (s *SheetRuleSet) Module(name string) (*Module, bool) {
	for _, m := range s.Modules {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// ModuleNames 按源顺序返回模块名列表
func (s *SheetRuleSet) ModuleNames() []string {
	names := make([]string, 0, len(s.Modules))
	for _, m := range s.Modules {
		names = append(names, m.Name)
	}
	return names
}

// Rates 返回基础价格表中的全部利率（升序）
func (s *SheetRuleSet) Rates() []float64 {
	rates := make([]float64, 0, len(s.BasePrices))
	for r := range s.BasePrices {
		rates = append(rates, r)
	}
	sort.Float64s(rates)
	return rates
}

// IsBenchmark 是否为基准（AAA）工作表
func (s *SheetRuleSet) IsBenchmark() bool {
	return strings.HasPrefix(s.Name, BenchmarkSheetPrefix)
}

const (
	// BenchmarkSheetPrefix 基准表前缀，区分基准/对比的唯一信号
	BenchmarkSheetPrefix = "S-AAA"
	// SheetPrefix 对比表前缀
	SheetPrefix = "S-"
)

// StandardizeSheetName 标准化工作表名：去空白并按来源补前缀
func StandardizeSheetName(name string, source SourceType) string {
	clean := strings.TrimSpace(name)
	switch source {
	case SourceAAA:
		if !strings.HasPrefix(clean, BenchmarkSheetPrefix) {
			return BenchmarkSheetPrefix + " " + clean
		}
	case SourceInvestor:
		if !strings.HasPrefix(clean, SheetPrefix) {
			return SheetPrefix + clean
		}
	}
	return clean
}

// ProgramFromSheetName 从标准化工作表名提取产品名（去掉前缀）
func ProgramFromSheetName(name string) string {
	if strings.HasPrefix(name, BenchmarkSheetPrefix) {
		return strings.TrimSpace(name[len(BenchmarkSheetPrefix):])
	}
	if strings.HasPrefix(name, SheetPrefix) {
		return strings.TrimSpace(name[len(SheetPrefix):])
	}
	return strings.TrimSpace(name)
}

// InvestorFromSheetName 从对比表名提取投资人名
func InvestorFromSheetName(name string) string {
	if strings.HasPrefix(name, SheetPrefix) {
		return strings.TrimSpace(name[len(SheetPrefix):])
	}
	return strings.TrimSpace(name)
}

// RuleStore 一次分析会话内全部工作表的规则集合
// 构建完成后只读；恰有一个基准表与零到多个对比表
type RuleStore struct {
	Sheets map[string]*SheetRuleSet `json:"sheets"`
	Order  []string                 `json:"order"` // 录入顺序
}

// NewRuleStore 创建空规则集合
func NewRuleStore() *RuleStore {
	return &RuleStore{
		Sheets: make(map[string]*SheetRuleSet),
		Order:  []string{},
	}
}

// Add 加入一个工作表规则集（同名覆盖，不重复记序）
func (r *RuleStore) Add(rs *SheetRuleSet) {
	if _, ok := r.Sheets[rs.Name]; !ok {
		r.Order = append(r.Order, rs.Name)
	}
	r.Sheets[rs.Name] = rs
}

// Sheet 按标准化表名查找
func (r *RuleStore) Sheet(name string) (*SheetRuleSet, bool) {
	rs, ok := r.Sheets[name]
	return rs, ok
}

// SheetNames 按录入顺序返回全部表名
func (r *RuleStore) SheetNames() []string {
	return append([]string{}, r.Order...)
}

// BenchmarkSheet 查找基准表
func (r *RuleStore) BenchmarkSheet() (*SheetRuleSet, bool) {
	for _, name := range r.Order {
		if rs := r.Sheets[name]; rs != nil && rs.IsBenchmark() {
			return rs, true
		}
	}
	return nil, false
}

// InvestorSheets 按录入顺序返回全部对比表
func (r *RuleStore) InvestorSheets() []*SheetRuleSet {
	out := make([]*SheetRuleSet, 0, len(r.Order))
	for _, name := range r.Order {
		if rs := r.Sheets[name]; rs != nil && !rs.IsBenchmark() {
			out = append(out, rs)
		}
	}
	return out
}
