package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/model"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// ResultsResponse 定价结果分页响应
type ResultsResponse struct {
	Total   int                    `json:"total"`
	Offset  int                    `json:"offset"`
	Limit   int                    `json:"limit"`
	Results []*model.PricingResult `json:"results"`
}

// ListResults 分页查询会话的定价结果
// GET /api/v1/sessions/:id/results?offset=0&limit=100
func (h *Handler) ListResults(c *gin.Context) {
	sess, ok := h.sessionByID(c)
	if !ok {
		return
	}

	offset := parseIntQuery(c, "offset", 0)
	limit := parseIntQuery(c, "limit", defaultPageSize)
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	total := len(sess.Results)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, ResultsResponse{
		Total:   total,
		Offset:  offset,
		Limit:   limit,
		Results: sess.Results[offset:end],
	})
}

// GetDimensions 查询会话的可过滤维度及条件域
// GET /api/v1/sessions/:id/dimensions
func (h *Handler) GetDimensions(c *gin.Context) {
	sess, ok := h.sessionByID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"dimensions": sess.Dimensions})
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
