package analyzer

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"

	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/model"
)

const (
	// StatusTooLow 利润低于可接受下限
	StatusTooLow = "Too Low"
	// StatusTooHigh 利润高于可接受上限
	StatusTooHigh = "Too High"
)

// Anomaly 单条利润异常，携带完整场景上下文
type Anomaly struct {
	Investor        string
	Margin          float64
	Status          string
	AcceptableRange string
	Context         map[string]interface{} // 场景字段（不含 Investors/Max_Margin）
}

// MarshalJSON 异常与场景上下文展开为同一层映射
func (a *Anomaly) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(a.Context)+4)
	for k, v := range a.Context {
		out[k] = v
	}
	out["Investor"] = a.Investor
	out["Margin"] = a.Margin
	out["Status"] = a.Status
	out["Acceptable_Range"] = a.AcceptableRange
	return json.Marshal(out)
}

// AnomalyStats 异常统计
type AnomalyStats struct {
	Total          int            `json:"total_anomalies"`
	TooHigh        int            `json:"high_margin_anomalies"`
	TooLow         int            `json:"low_margin_anomalies"`
	InvestorCounts map[string]int `json:"investor_counts"`
}

// AnomalyDetector 利润异常检测器
// 只读消费定价结果序列中基准表来源的 Investors 映射
type AnomalyDetector struct {
	results   []*model.PricingResult
	anomalies []*Anomaly
	stats     AnomalyStats
}

// NewAnomalyDetector 创建检测器
func NewAnomalyDetector(results []*model.PricingResult) *AnomalyDetector {
	return &AnomalyDetector{results: results}
}

// FindMarginOutliers 找出利润落在 [min, max] 之外的投资人报价
// 边界值本身可接受：恰好等于 min 或 max 不算异常
func (d *AnomalyDetector) FindMarginOutliers(minMargin, maxMargin float64) []*Anomaly {
	d.anomalies = d.anomalies[:0]
	rangeText := fmt.Sprintf("%.3f - %.3f", minMargin, maxMargin)

	for _, r := range d.results {
		if len(r.Investors) == 0 {
			continue
		}

		names := make([]string, 0, len(r.Investors))
		for name := range r.Investors {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, investor := range names {
			margin := r.Investors[investor].Margin
			switch {
			case margin < minMargin:
				d.addAnomaly(r, investor, margin, StatusTooLow, rangeText)
			case margin > maxMargin:
				d.addAnomaly(r, investor, margin, StatusTooHigh, rangeText)
			}
		}
	}

	d.calculateStats()
	log.Printf("发现 %d 条利润异常", len(d.anomalies))
	return d.anomalies
}

// addAnomaly 记录一条异常，附带去掉投资人字段的场景上下文
func (d *AnomalyDetector) addAnomaly(r *model.PricingResult, investor string, margin float64, status, rangeText string) {
	context := r.Flatten()
	delete(context, "Investors")
	delete(context, "Max_Margin")

	d.anomalies = append(d.anomalies, &Anomaly{
		Investor:        investor,
		Margin:          margin,
		Status:          status,
		AcceptableRange: rangeText,
		Context:         context,
	})
}

// calculateStats 汇总异常统计
func (d *AnomalyDetector) calculateStats() {
	stats := AnomalyStats{
		Total:          len(d.anomalies),
		InvestorCounts: make(map[string]int),
	}
	for _, a := range d.anomalies {
		switch a.Status {
		case StatusTooHigh:
			stats.TooHigh++
		case StatusTooLow:
			stats.TooLow++
		}
		stats.InvestorCounts[a.Investor]++
	}
	d.stats = stats
}

// Stats 返回最近一次检测的统计
func (d *AnomalyDetector) Stats() AnomalyStats {
	return d.stats
}

// ByStatus 按状态过滤异常
func (d *AnomalyDetector) ByStatus(status string) []*Anomaly {
	out := make([]*Anomaly, 0)
	for _, a := range d.anomalies {
		if a.Status == status {
			out = append(out, a)
		}
	}
	return out
}
