package parser

import (
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/model"
)

// reModuleHeader 模块标题格式：序号、点、空白、文本（如 "2. DSCR"）
var reModuleHeader = regexp.MustCompile(`^\d+\.\s+\S`)

// basePricePhrase 基础价格表的识别短语（不区分大小写）
const basePricePhrase = "base price"

// Extractor 定价规则提取器
// 将单个工作表的原始网格提取为标准化规则集；任何不可解析的
// 模块或表格都跳过并记日志，绝不中断整个工作簿
type Extractor struct{}

// NewExtractor 创建提取器
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractWorkbook 解析整个工作簿，返回各工作表的规则集
// 工作表名按来源标准化（基准补 "S-AAA " 前缀，投资人补 "S-"）
func (e *Extractor) ExtractWorkbook(wb *excelize.File, source model.SourceType) []*model.SheetRuleSet {
	out := make([]*model.SheetRuleSet, 0)

	for _, sheetName := range wb.GetSheetList() {
		rows, err := wb.GetRows(sheetName)
		if err != nil {
			log.Printf("读取工作表失败，跳过: %s: %v", sheetName, err)
			continue
		}
		if len(rows) == 0 {
			log.Printf("跳过空工作表: %s", sheetName)
			continue
		}

		rs := e.ExtractGrid(rows)
		if rs == nil {
			log.Printf("工作表 %s 未发现调整表或基础价格表，跳过", sheetName)
			continue
		}

		rs.Name = model.StandardizeSheetName(sheetName, source)
		rs.Source = source
		out = append(out, rs)
	}

	return out
}

// ExtractGrid 从原始网格提取单个工作表的规则集
// 调整表与基础价格表均未发现时返回 nil
func (e *Extractor) ExtractGrid(rows [][]string) *model.SheetRuleSet {
	modules := e.extractModules(rows)
	basePrices := e.extractBasePrices(rows)

	if len(modules) == 0 && len(basePrices) == 0 {
		return nil
	}

	return &model.SheetRuleSet{
		Modules:    modules,
		BasePrices: basePrices,
	}
}

// moduleBlock 一个模块标题到下一个标题之间的行区间
type moduleBlock struct {
	name  string
	start int // 标题行
	end   int // 不含
}

// extractModules 扫描网格中的全部调整模块
func (e *Extractor) extractModules(rows [][]string) []*model.Module {
	blocks := e.findModuleBlocks(rows)

	modules := make([]*model.Module, 0, len(blocks))
	for _, b := range blocks {
		table := e.extractTable(rows, b)
		if table == nil {
			// 无区间表头行的退化模块不是规则表
			log.Printf("模块 %s 未找到 LTV 区间表头行，丢弃", b.name)
			continue
		}
		modules = append(modules, &model.Module{
			Name:      b.name,
			Dimension: model.DimensionFromModule(b.name),
			Position:  len(modules) + 1,
			Table:     table,
		})
	}

	return modules
}

// findModuleBlocks 按模块标题切分网格
func (e *Extractor) findModuleBlocks(rows [][]string) []moduleBlock {
	blocks := make([]moduleBlock, 0)

	for i, row := range rows {
		name, ok := moduleHeaderInRow(row)
		if !ok {
			continue
		}
		if n := len(blocks); n > 0 {
			blocks[n-1].end = i
		}
		blocks = append(blocks, moduleBlock{name: name, start: i, end: len(rows)})
	}

	return blocks
}

// moduleHeaderInRow 在一行内查找模块标题单元格
func moduleHeaderInRow(row []string) (string, bool) {
	for _, cell := range row {
		cell = strings.TrimSpace(cell)
		if reModuleHeader.MatchString(cell) {
			return cell, true
		}
	}
	return "", false
}

// extractTable 提取单个模块块内的调整表
// 返回 nil 表示块内没有可用的区间表头行
func (e *Extractor) extractTable(rows [][]string, b moduleBlock) *model.AdjustmentTable {
	headerRow, rangeCols := e.findRangeHeaderRow(rows, b)
	if headerRow < 0 {
		return nil
	}

	keys := make([]string, 0, len(rangeCols))
	for _, rc := range rangeCols {
		keys = append(keys, rc.key)
	}
	table := model.NewAdjustmentTable(keys)

	for i := headerRow + 1; i < b.end; i++ {
		row := rows[i]
		condition := getCell(row, 0)
		if condition == "" {
			continue
		}

		cells := make([]model.RangeAdjustment, 0, len(rangeCols))
		for _, rc := range rangeCols {
			// 空格不能按 0 处理：缺失与零调整语义不同
			v, ok := parseNumeric(getCell(row, rc.col))
			cells = append(cells, model.RangeAdjustment{
				Range: rc.key,
				Value: v,
				Valid: ok,
			})
		}
		table.AddRow(condition, cells)
	}

	return table
}

// rangeColumn 区间键列
type rangeColumn struct {
	col int
	key string // 标准化后的区间键（含 %）
}

// findRangeHeaderRow 查找区间表头行：块内第一个含 ≥2 个区间记法单元格的行
func (e *Extractor) findRangeHeaderRow(rows [][]string, b moduleBlock) (int, []rangeColumn) {
	for i := b.start; i < b.end; i++ {
		cols := make([]rangeColumn, 0)
		for c, cell := range rows[i] {
			cell = strings.TrimSpace(cell)
			if cell == "" || !model.IsRangeKey(cell) {
				continue
			}
			cols = append(cols, rangeColumn{col: c, key: model.NormalizeRangeKey(cell)})
		}
		if len(cols) >= 2 {
			return i, cols
		}
	}
	return -1, nil
}

// extractBasePrices 提取基础价格表（利率 → 基础价格）
// 每个工作表至多一张
func (e *Extractor) extractBasePrices(rows [][]string) map[float64]float64 {
	headerRow := findBasePriceHeaderRow(rows)
	if headerRow < 0 {
		return nil
	}

	priceCol := findBasePriceColumn(rows[headerRow])
	if priceCol < 0 {
		return nil
	}

	rateCol := findRateColumn(rows)
	if rateCol < 0 {
		log.Printf("找到基础价格表头但未找到利率列，丢弃基础价格表")
		return nil
	}

	prices := make(map[float64]float64)
	for i := headerRow + 1; i < len(rows); i++ {
		rate, okRate := parseNumeric(getCell(rows[i], rateCol))
		price, okPrice := parseNumeric(getCell(rows[i], priceCol))
		if !okRate || !okPrice {
			continue
		}
		prices[rate] = price
	}

	if len(prices) == 0 {
		return nil
	}
	return prices
}

// findBasePriceHeaderRow 查找含 "base price" 短语的表头行
func findBasePriceHeaderRow(rows [][]string) int {
	for i, row := range rows {
		for _, cell := range row {
			if strings.Contains(strings.ToLower(strings.TrimSpace(cell)), basePricePhrase) {
				return i
			}
		}
	}
	return -1
}

// findBasePriceColumn 在表头行内定位价格列
func findBasePriceColumn(header []string) int {
	for c, cell := range header {
		if strings.Contains(strings.ToLower(strings.TrimSpace(cell)), basePricePhrase) {
			return c
		}
	}
	return -1
}

// findRateColumn 定位利率列：列内任意单元格含 "rate" 即认定
func findRateColumn(rows [][]string) int {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	for c := 0; c < width; c++ {
		for _, row := range rows {
			if strings.Contains(strings.ToLower(getCell(row, c)), "rate") {
				return c
			}
		}
	}
	return -1
}

func getCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseNumeric 把单元格文本强转为数值；失败表示缺失
func parseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
