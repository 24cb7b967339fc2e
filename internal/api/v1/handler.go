package v1

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/config"
	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/session"
	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/store"
)

// Handler V1 API 处理器
type Handler struct {
	cfgMu     sync.RWMutex // 保护 cfg：PATCH /config 与各分析端点并发读写
	cfg       *config.AppConfig
	manager   *session.Manager
	store     *store.Store // 可为 nil（不持久化）
	downloads *exportDownloadStore
}

// NewHandler 创建 V1 API 处理器
func NewHandler(cfg *config.AppConfig, manager *session.Manager, store *store.Store) *Handler {
	return &Handler{
		cfg:       cfg,
		manager:   manager,
		store:     store,
		downloads: newExportDownloadStore(),
	}
}

// RegisterRoutes 注册 V1 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)

	// 配置管理
	router.GET("/config", h.GetConfig)
	router.PATCH("/config", h.UpdateConfig)

	// 会话管理
	router.POST("/sessions", h.CreateSession)
	router.GET("/sessions", h.ListSessions)
	router.GET("/sessions/:id", h.GetSession)
	router.DELETE("/sessions/:id", h.DeleteSession)

	// 定价结果查询
	router.GET("/sessions/:id/results", h.ListResults)
	router.GET("/sessions/:id/dimensions", h.GetDimensions)

	// 结构校验
	router.GET("/sessions/:id/validation", h.Validate)

	// 分析
	router.POST("/sessions/:id/analysis/filter", h.FilterAnalysis)
	router.POST("/sessions/:id/analysis/anomalies", h.DetectAnomalies)
	router.POST("/sessions/:id/analysis/reverse", h.ReverseAnalysis)

	// 数据导出
	router.POST("/sessions/:id/export", h.Export)
	router.GET("/export/download/:token", h.DownloadExport)
}

// pricing 取定价配置快照
func (h *Handler) pricing() config.PricingConfig {
	h.cfgMu.RLock()
	defer h.cfgMu.RUnlock()
	return h.cfg.Pricing
}

// sessionByID 取会话；不在内存时尝试从持久化存储恢复
func (h *Handler) sessionByID(c *gin.Context) (*session.Session, bool) {
	id := c.Param("id")

	if sess, ok := h.manager.Get(id); ok {
		return sess, true
	}

	sess, err := h.manager.Resume(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "会话不存在: " + id})
		return nil, false
	}
	return sess, true
}
