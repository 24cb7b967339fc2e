package v1

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// CreateSession 上传基准与投资人两个工作簿并创建分析会话
// POST /api/v1/sessions
func (h *Handler) CreateSession(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的表单数据"})
		return
	}

	benchmark, err := openUploadedWorkbook(form, "benchmark")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "基准工作簿: " + err.Error()})
		return
	}
	defer benchmark.Close()

	investor, err := openUploadedWorkbook(form, "investor")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "投资人工作簿: " + err.Error()})
		return
	}
	defer investor.Close()

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		name = "未命名会话"
	}

	sess, err := h.manager.CreateSession(name, benchmark, investor)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, sess.Summarize())
}

// openUploadedWorkbook 按表单字段名打开上传的 xlsx
func openUploadedWorkbook(form *multipart.Form, field string) (*excelize.File, error) {
	files := form.File[field]
	if len(files) == 0 {
		return nil, fmt.Errorf("未找到上传文件 %s", field)
	}

	src, err := files[0].Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return excelize.OpenReader(src)
}

// SessionListResponse 会话列表响应
type SessionListResponse struct {
	Active    interface{} `json:"active"`    // 内存中的会话摘要
	Persisted interface{} `json:"persisted"` // 持久化存储中的会话
}

// ListSessions 列出会话（内存 + 持久化）
// GET /api/v1/sessions
func (h *Handler) ListSessions(c *gin.Context) {
	resp := SessionListResponse{
		Active:    h.manager.List(),
		Persisted: []interface{}{},
	}

	if h.store != nil {
		infos, err := h.store.ListSessions()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "读取持久化会话失败"})
			return
		}
		resp.Persisted = infos
	}

	c.JSON(http.StatusOK, resp)
}

// GetSession 获取会话摘要
// GET /api/v1/sessions/:id
func (h *Handler) GetSession(c *gin.Context) {
	sess, ok := h.sessionByID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Summarize())
}

// DeleteSession 删除会话
// DELETE /api/v1/sessions/:id
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.manager.Delete(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "删除会话失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "会话已删除"})
}
