package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StatusResponse 系统状态响应
type StatusResponse struct {
	ActiveSessions    int     `json:"activeSessions"`    // 内存中的会话数
	PersistedSessions int     `json:"persistedSessions"` // 已持久化的会话数
	PersistenceOn     bool    `json:"persistenceOn"`     // 持久化是否启用
	AcceptableMin     float64 `json:"acceptableMinMargin"`
	AcceptableMax     float64 `json:"acceptableMaxMargin"`
	TargetMin         float64 `json:"targetMinMargin"`
	TargetMax         float64 `json:"targetMaxMargin"`
}

// GetStatus 获取系统状态
// GET /api/v1/status
func (h *Handler) GetStatus(c *gin.Context) {
	persisted := 0
	if h.store != nil {
		if infos, err := h.store.ListSessions(); err == nil {
			persisted = len(infos)
		}
	}

	pricing := h.pricing()
	c.JSON(http.StatusOK, StatusResponse{
		ActiveSessions:    len(h.manager.List()),
		PersistedSessions: persisted,
		PersistenceOn:     h.store != nil,
		AcceptableMin:     pricing.AcceptableMinMargin,
		AcceptableMax:     pricing.AcceptableMaxMargin,
		TargetMin:         pricing.TargetMinMargin,
		TargetMax:         pricing.TargetMaxMargin,
	})
}
