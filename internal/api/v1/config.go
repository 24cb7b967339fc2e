package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/config"
)

// ConfigResponse 配置响应
type ConfigResponse struct {
	AcceptableMinMargin float64 `json:"acceptableMinMargin"` // 可接受利润下限
	AcceptableMaxMargin float64 `json:"acceptableMaxMargin"` // 可接受利润上限
	TargetMinMargin     float64 `json:"targetMinMargin"`     // 目标利润下限
	TargetMaxMargin     float64 `json:"targetMaxMargin"`     // 目标利润上限
}

// UpdateConfigRequest 更新配置请求
type UpdateConfigRequest struct {
	// 使用 map 允许部分更新
	Updates map[string]float64 `json:"updates"`
}

// GetConfig 获取定价配置
// GET /api/v1/config
func (h *Handler) GetConfig(c *gin.Context) {
	pricing := h.pricing()
	c.JSON(http.StatusOK, ConfigResponse{
		AcceptableMinMargin: pricing.AcceptableMinMargin,
		AcceptableMaxMargin: pricing.AcceptableMaxMargin,
		TargetMinMargin:     pricing.TargetMinMargin,
		TargetMaxMargin:     pricing.TargetMaxMargin,
	})
}

// UpdateConfig 更新定价配置
// PATCH /api/v1/config
// 先在副本上套用全部更新项，任一键非法则整个请求拒绝，不留下半套配置
func (h *Handler) UpdateConfig(c *gin.Context) {
	var req UpdateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}

	h.cfgMu.Lock()
	defer h.cfgMu.Unlock()

	staged := h.cfg.Pricing
	for key, value := range req.Updates {
		switch key {
		case "acceptable_min_margin":
			staged.AcceptableMinMargin = value
		case "acceptable_max_margin":
			staged.AcceptableMaxMargin = value
		case "target_min_margin":
			staged.TargetMinMargin = value
		case "target_max_margin":
			staged.TargetMaxMargin = value
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "未知配置项: " + key})
			return
		}
	}

	h.cfg.Pricing = staged
	if err := config.SaveConfig(h.cfg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存配置失败: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "配置更新成功"})
}
