package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// LTVDimension 场景中承载 LTV 数值的维度名
const LTVDimension = "LTV"

// Scenario 一个完整指定的借款场景
// 生成后不再修改；定价字段挂在单独的 PricingResult 上
type Scenario struct {
	Sheet      string            `json:"Sheet"`
	Program    string            `json:"Program"`
	SourceType SourceType        `json:"SourceType"`
	Rate       float64           `json:"Rate"`
	Conditions map[string]string `json:"-"` // 维度 → 条件
}

// Clone 复制场景（用于换表重算）
func (s *Scenario) Clone() *Scenario {
	conditions := make(map[string]string, len(s.Conditions))
	for k, v := range s.Conditions {
		conditions[k] = v
	}
	return &Scenario{
		Sheet:      s.Sheet,
		Program:    s.Program,
		SourceType: s.SourceType,
		Rate:       s.Rate,
		Conditions: conditions,
	}
}

// LTVValue 取场景的 LTV 数值；条件缺失或不可解析时返回 false
func (s *Scenario) LTVValue() (float64, bool) {
	raw, ok := s.Conditions[LTVDimension]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(raw), "%"), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// InvestorQuote 基准场景下单个投资人的最终价与利润
type InvestorQuote struct {
	FinalPrice float64 `json:"Final_Price"`
	Margin     float64 `json:"Margin"`
}

// MaxMargin 利润最高的投资人
type MaxMargin struct {
	Investor string  `json:"investor"`
	Value    float64 `json:"value"`
}

// PricingResult 场景加上计算得到的定价字段
// SourceType 区分两个变体：对比表场景带 AAA_Final_Price/Margin，
// 基准表场景带 Investors/Max_Margin
type PricingResult struct {
	Scenario

	BasePrice       float64 `json:"Base_Price"`
	LLPAAdjustments float64 `json:"LLPA_Adjustments"`
	FinalPrice      float64 `json:"Final_Price"`

	// 对比表场景
	AAAFinalPrice *float64 `json:"AAA_Final_Price,omitempty"`
	Margin        *float64 `json:"Margin,omitempty"`

	// 基准表场景
	Investors map[string]InvestorQuote `json:"Investors,omitempty"`
	MaxMargin *MaxMargin               `json:"Max_Margin,omitempty"`
}

// MarginValue 结果的代表利润：对比表取 Margin，基准表取 Max_Margin
func (r *PricingResult) MarginValue() (float64, bool) {
	if r.Margin != nil {
		return *r.Margin, true
	}
	if r.MaxMargin != nil {
		return r.MaxMargin.Value, true
	}
	return 0, false
}

// Flatten 展开为扁平映射：维度键与定价字段并列
// 下游报表与导出只消费这一种形态
func (r *PricingResult) Flatten() map[string]interface{} {
	out := make(map[string]interface{}, len(r.Conditions)+10)
	for dim, cond := range r.Conditions {
		out[dim] = cond
	}
	out["Sheet"] = r.Sheet
	out["Program"] = r.Program
	out["SourceType"] = string(r.SourceType)
	out["Rate"] = r.Rate
	out["Base_Price"] = r.BasePrice
	out["LLPA_Adjustments"] = r.LLPAAdjustments
	out["Final_Price"] = r.FinalPrice
	if r.AAAFinalPrice != nil {
		out["AAA_Final_Price"] = *r.AAAFinalPrice
	}
	if r.Margin != nil {
		out["Margin"] = *r.Margin
	}
	if r.Investors != nil {
		out["Investors"] = r.Investors
	}
	if r.MaxMargin != nil {
		out["Max_Margin"] = r.MaxMargin
	}
	return out
}

// MarshalJSON 按扁平映射序列化
func (r *PricingResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Flatten())
}

// ExcludedFilterFields 过滤分析中排除的定价衍生字段
var ExcludedFilterFields = []string{
	"Sheet",
	"SourceType",
	"Base_Price",
	"LLPA_Adjustments",
	"Final_Price",
	"AAA_Final_Price",
	"Margin",
	"Investors",
	"Max_Margin",
}

// IsExcludedFilterField 字段是否在过滤维度之外
func IsExcludedFilterField(field string) bool {
	for _, f := range ExcludedFilterFields {
		if f == field {
			return true
		}
	}
	return false
}
