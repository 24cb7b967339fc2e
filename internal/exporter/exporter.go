package exporter

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/analyzer"
	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/model"
)

// Exporter 定价结果导出器
// 把扁平化的定价结果、异常清单与影响力报告写成 Excel 或 CSV，
// 列顺序确定，同一份数据两次导出字节级一致
type Exporter struct{}

// NewExporter 创建导出器
func NewExporter() *Exporter {
	return &Exporter{}
}

// 固定前导列：维度列之前
var leadingColumns = []string{"Sheet", "Program", "SourceType", "Rate"}

// 固定尾部列：维度列之后，按此顺序输出（结果中不存在的列跳过）
var trailingColumns = []string{
	"Base_Price",
	"LLPA_Adjustments",
	"Final_Price",
	"AAA_Final_Price",
	"Margin",
	"Investors",
	"Max_Margin",
}

// ResultColumns 计算结果表的列顺序：
// 固定前导列 + 排序后的维度列 + 出现过的尾部列
func ResultColumns(results []*model.PricingResult) []string {
	dimSet := map[string]bool{}
	present := map[string]bool{}
	for _, r := range results {
		for key := range r.Flatten() {
			present[key] = true
			if !model.IsExcludedFilterField(key) && !isLeadingColumn(key) {
				dimSet[key] = true
			}
		}
	}

	dims := make([]string, 0, len(dimSet))
	for dim := range dimSet {
		dims = append(dims, dim)
	}
	sort.Strings(dims)

	columns := make([]string, 0, len(leadingColumns)+len(dims)+len(trailingColumns))
	columns = append(columns, leadingColumns...)
	columns = append(columns, dims...)
	for _, col := range trailingColumns {
		if present[col] {
			columns = append(columns, col)
		}
	}
	return columns
}

func isLeadingColumn(key string) bool {
	for _, col := range leadingColumns {
		if col == key {
			return true
		}
	}
	return false
}

// ExportResults 导出定价结果为 Excel 工作簿
func (e *Exporter) ExportResults(results []*model.PricingResult) (*excelize.File, error) {
	columns := ResultColumns(results)
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, renderRow(r.Flatten(), columns))
	}
	return buildWorkbook("Pricing Results", columns, rows)
}

// ExportResultsCSV 导出定价结果为 CSV 字节
func (e *Exporter) ExportResultsCSV(results []*model.PricingResult) ([]byte, error) {
	columns := ResultColumns(results)
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, renderRow(r.Flatten(), columns))
	}
	return writeCSV(columns, rows)
}

// AnomalyColumns 异常清单的列顺序：场景上下文列 + 固定结论列
func AnomalyColumns(anomalies []*analyzer.Anomaly) []string {
	contextSet := map[string]bool{}
	for _, a := range anomalies {
		for key := range a.Context {
			contextSet[key] = true
		}
	}

	context := make([]string, 0, len(contextSet))
	for key := range contextSet {
		context = append(context, key)
	}
	sort.Strings(context)

	return append(context, "Investor", "Margin", "Status", "Acceptable_Range")
}

// ExportAnomalies 导出利润异常清单为 Excel 工作簿
func (e *Exporter) ExportAnomalies(anomalies []*analyzer.Anomaly) (*excelize.File, error) {
	columns := AnomalyColumns(anomalies)
	rows := make([][]string, 0, len(anomalies))
	for _, a := range anomalies {
		rows = append(rows, renderRow(anomalyRecord(a), columns))
	}
	return buildWorkbook("Margin Anomalies", columns, rows)
}

// ExportAnomaliesCSV 导出利润异常清单为 CSV 字节
func (e *Exporter) ExportAnomaliesCSV(anomalies []*analyzer.Anomaly) ([]byte, error) {
	columns := AnomalyColumns(anomalies)
	rows := make([][]string, 0, len(anomalies))
	for _, a := range anomalies {
		rows = append(rows, renderRow(anomalyRecord(a), columns))
	}
	return writeCSV(columns, rows)
}

func anomalyRecord(a *analyzer.Anomaly) map[string]interface{} {
	record := make(map[string]interface{}, len(a.Context)+4)
	for key, value := range a.Context {
		record[key] = value
	}
	record["Investor"] = a.Investor
	record["Margin"] = a.Margin
	record["Status"] = a.Status
	record["Acceptable_Range"] = a.AcceptableRange
	return record
}

// 影响力报告的固定列
var influenceColumns = []string{"Module", "Top_Condition", "Frequency", "Influence_Score"}

// ExportInfluence 导出反向影响力报告为 Excel 工作簿
func (e *Exporter) ExportInfluence(report *analyzer.ReverseReport) (*excelize.File, error) {
	return buildWorkbook("Module Influence", influenceColumns, influenceRows(report))
}

// ExportInfluenceCSV 导出反向影响力报告为 CSV 字节
func (e *Exporter) ExportInfluenceCSV(report *analyzer.ReverseReport) ([]byte, error) {
	return writeCSV(influenceColumns, influenceRows(report))
}

func influenceRows(report *analyzer.ReverseReport) [][]string {
	rows := make([][]string, 0, len(report.TopModulesByInfluence))
	for _, entry := range report.TopModulesByInfluence {
		rows = append(rows, []string{
			entry.Module,
			entry.TopCondition,
			strconv.Itoa(entry.Frequency),
			formatFloat(entry.InfluenceScore),
		})
	}
	return rows
}

// buildWorkbook 按表头 + 数据行写出一个单表工作簿
func buildWorkbook(sheet string, columns []string, rows [][]string) (*excelize.File, error) {
	f := excelize.NewFile()
	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, sheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("重命名工作表失败: %w", err)
	}

	header := make([]interface{}, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("写入表头失败: %w", err)
	}

	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("写入第 %d 行失败: %w", i+2, err)
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

// renderRow 按列顺序取值渲染一行；缺失的列留空
func renderRow(record map[string]interface{}, columns []string) []string {
	row := make([]string, len(columns))
	for i, col := range columns {
		value, ok := record[col]
		if !ok {
			continue
		}
		row[i] = renderValue(value)
	}
	return row
}

func renderValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return formatFloat(v)
	case int:
		return strconv.Itoa(v)
	default:
		// 结构化字段（Investors、Max_Margin）序列化为紧凑 JSON
		blob, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(blob)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
