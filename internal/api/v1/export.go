package v1

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/analyzer"
	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/exporter"
	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/session"
)

const (
	exportTypeResults   = "results"
	exportTypeAnomalies = "anomalies"
	exportTypeInfluence = "influence"

	exportFormatXLSX = "xlsx"
	exportFormatCSV  = "csv"

	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeCSV  = "text/csv; charset=utf-8"

	exportDownloadTTL = 10 * time.Minute
)

// ExportRequest 导出请求
type ExportRequest struct {
	Type   string `json:"type"`   // results | anomalies | influence
	Format string `json:"format"` // xlsx | csv，默认 xlsx

	// anomalies / influence 的利润区间；不传时使用配置默认值
	MinMargin *float64 `json:"min_margin"`
	MaxMargin *float64 `json:"max_margin"`
	Investor  string   `json:"investor"` // 仅 influence 使用
}

// Export 导出会话数据并返回一次性下载地址
// POST /api/v1/sessions/:id/export
func (h *Handler) Export(c *gin.Context) {
	sess, ok := h.sessionByID(c)
	if !ok {
		return
	}

	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}
	if req.Format == "" {
		req.Format = exportFormatXLSX
	}
	if req.Format != exportFormatXLSX && req.Format != exportFormatCSV {
		c.JSON(http.StatusBadRequest, gin.H{"error": "不支持的导出格式: " + req.Format})
		return
	}

	filePath, err := h.writeExportFile(sess, req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "导出失败: " + err.Error()})
		return
	}

	fileName := fmt.Sprintf("%s_%s.%s", sess.Name, req.Type, req.Format)
	contentType := contentTypeXLSX
	if req.Format == exportFormatCSV {
		contentType = contentTypeCSV
	}

	token := h.downloads.put(filePath, fileName, contentType, exportDownloadTTL)
	c.JSON(http.StatusOK, gin.H{
		"downloadUrl": "/api/v1/export/download/" + token,
		"fileName":    fileName,
	})
}

// writeExportFile 渲染导出内容并写入临时文件
func (h *Handler) writeExportFile(sess *session.Session, req ExportRequest) (string, error) {
	exp := exporter.NewExporter()

	tempPath := filepath.Join(os.TempDir(),
		fmt.Sprintf("pricing_export_%d_%d.%s", time.Now().UnixNano(), os.Getpid(), req.Format))

	switch req.Type {
	case exportTypeResults:
		if req.Format == exportFormatCSV {
			blob, err := exp.ExportResultsCSV(sess.Results)
			if err != nil {
				return "", err
			}
			return tempPath, os.WriteFile(tempPath, blob, 0644)
		}
		f, err := exp.ExportResults(sess.Results)
		if err != nil {
			return "", err
		}
		return tempPath, saveWorkbook(f, tempPath)

	case exportTypeAnomalies:
		minMargin, maxMargin := h.anomalyBounds(AnomalyRequest{MinMargin: req.MinMargin, MaxMargin: req.MaxMargin})
		anomalies := analyzer.NewAnomalyDetector(sess.Results).FindMarginOutliers(minMargin, maxMargin)
		if req.Format == exportFormatCSV {
			blob, err := exp.ExportAnomaliesCSV(anomalies)
			if err != nil {
				return "", err
			}
			return tempPath, os.WriteFile(tempPath, blob, 0644)
		}
		f, err := exp.ExportAnomalies(anomalies)
		if err != nil {
			return "", err
		}
		return tempPath, saveWorkbook(f, tempPath)

	case exportTypeInfluence:
		pricing := h.pricing()
		minMargin := pricing.TargetMinMargin
		maxMargin := pricing.TargetMaxMargin
		if req.MinMargin != nil {
			minMargin = *req.MinMargin
		}
		if req.MaxMargin != nil {
			maxMargin = *req.MaxMargin
		}
		report := analyzer.NewReverseAnalyzer(sess.Results).AnalyzeTargetMargin(minMargin, maxMargin, req.Investor)
		if req.Format == exportFormatCSV {
			blob, err := exp.ExportInfluenceCSV(report)
			if err != nil {
				return "", err
			}
			return tempPath, os.WriteFile(tempPath, blob, 0644)
		}
		f, err := exp.ExportInfluence(report)
		if err != nil {
			return "", err
		}
		return tempPath, saveWorkbook(f, tempPath)

	default:
		return "", fmt.Errorf("不支持的导出类型: %s", req.Type)
	}
}

func saveWorkbook(f *excelize.File, path string) error {
	defer f.Close()
	return f.SaveAs(path)
}

// DownloadExport 下载导出文件（一次性）
// GET /api/v1/export/download/:token
func (h *Handler) DownloadExport(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 token"})
		return
	}

	item, ok := h.downloads.get(token)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "下载链接已失效"})
		return
	}

	if _, err := os.Stat(item.filePath); err != nil {
		h.downloads.delete(token)
		c.JSON(http.StatusNotFound, gin.H{"error": "导出文件不存在"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", item.fileName))
	c.Header("Content-Type", item.contentType)
	c.File(item.filePath)

	h.downloads.delete(token)
	_ = os.Remove(item.filePath)
}
