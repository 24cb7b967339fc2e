package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/analyzer"
	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/checker"
)

// Validate 校验投资人工作表与基准的结构一致性
// GET /api/v1/sessions/:id/validation
func (h *Handler) Validate(c *gin.Context) {
	sess, ok := h.sessionByID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, checker.NewValidator(sess.Rules).ValidateAll())
}

// FilterAnalysis 过滤聚合分析
// POST /api/v1/sessions/:id/analysis/filter
func (h *Handler) FilterAnalysis(c *gin.Context) {
	sess, ok := h.sessionByID(c)
	if !ok {
		return
	}

	var filters analyzer.Filters
	if err := c.ShouldBindJSON(&filters); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}

	report := analyzer.NewAnalyzer(sess.Results).FilterAndAnalyze(filters)
	c.JSON(http.StatusOK, report)
}

// AnomalyRequest 利润异常检测请求；不传边界时使用配置的可接受区间
type AnomalyRequest struct {
	MinMargin *float64 `json:"min_margin"`
	MaxMargin *float64 `json:"max_margin"`
}

// AnomalyResponse 利润异常检测响应
type AnomalyResponse struct {
	Anomalies []*analyzer.Anomaly   `json:"anomalies"`
	Stats     analyzer.AnomalyStats `json:"stats"`
}

// DetectAnomalies 检测利润越界的投资人报价
// POST /api/v1/sessions/:id/analysis/anomalies
func (h *Handler) DetectAnomalies(c *gin.Context) {
	sess, ok := h.sessionByID(c)
	if !ok {
		return
	}

	var req AnomalyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}

	minMargin, maxMargin := h.anomalyBounds(req)
	if minMargin > maxMargin {
		c.JSON(http.StatusBadRequest, gin.H{"error": "利润下限不能大于上限"})
		return
	}

	detector := analyzer.NewAnomalyDetector(sess.Results)
	anomalies := detector.FindMarginOutliers(minMargin, maxMargin)

	c.JSON(http.StatusOK, AnomalyResponse{
		Anomalies: anomalies,
		Stats:     detector.Stats(),
	})
}

func (h *Handler) anomalyBounds(req AnomalyRequest) (float64, float64) {
	pricing := h.pricing()
	minMargin := pricing.AcceptableMinMargin
	maxMargin := pricing.AcceptableMaxMargin
	if req.MinMargin != nil {
		minMargin = *req.MinMargin
	}
	if req.MaxMargin != nil {
		maxMargin = *req.MaxMargin
	}
	return minMargin, maxMargin
}

// ReverseRequest 反向影响力分析请求；不传区间时使用配置的目标利润区间
type ReverseRequest struct {
	MinMargin *float64 `json:"min_margin"`
	MaxMargin *float64 `json:"max_margin"`
	Investor  string   `json:"investor"` // 为空时匹配任一投资人
}

// ReverseAnalysis 反向影响力分析：定位把利润推进目标区间的模块条件
// POST /api/v1/sessions/:id/analysis/reverse
func (h *Handler) ReverseAnalysis(c *gin.Context) {
	sess, ok := h.sessionByID(c)
	if !ok {
		return
	}

	var req ReverseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}

	pricing := h.pricing()
	minMargin := pricing.TargetMinMargin
	maxMargin := pricing.TargetMaxMargin
	if req.MinMargin != nil {
		minMargin = *req.MinMargin
	}
	if req.MaxMargin != nil {
		maxMargin = *req.MaxMargin
	}
	if minMargin > maxMargin {
		c.JSON(http.StatusBadRequest, gin.H{"error": "利润下限不能大于上限"})
		return
	}

	report := analyzer.NewReverseAnalyzer(sess.Results).AnalyzeTargetMargin(minMargin, maxMargin, req.Investor)
	c.JSON(http.StatusOK, report)
}
