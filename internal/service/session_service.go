package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"ailumex-academy/internal/dto"
	"ailumex-academy/internal/lifecycle"
	"ailumex-academy/internal/model"
	"ailumex-academy/internal/repository"
	pkgerrors "ailumex-academy/pkg/errors"
)

// SessionService 课节业务接口
type SessionService interface {
	Create(ctx context.Context, req *dto.CreateSessionRequest, callerID string) (*dto.SessionResponse, error)
	Get(ctx context.Context, id string) (*dto.SessionResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateSessionRequest, callerID string) (*dto.SessionResponse, error)
	Cancel(ctx context.Context, id string, req *dto.CancelSessionRequest, callerID string) (*dto.SessionResponse, error)
	MarkStarted(ctx context.Context, id, callerID string) (*dto.SessionResponse, error)
	MarkDone(ctx context.Context, id, callerID string) (*dto.MarkDoneResponse, error)
	ReplaceTeacher(ctx context.Context, id string, req *dto.ReplaceTeacherRequest, callerID string) (*dto.ReplaceTeacherResponse, error)
	ListReplacementLogs(ctx context.Context, agendaID string, q *dto.ReplacementLogQuery) (*dto.ReplacementLogListResponse, error)
	Availability(ctx context.Context, q *dto.AvailabilityQuery) (*dto.AvailabilityResponse, error)
}

type sessionService struct {
	repo    *repository.Repository
	history *historyService
	rt      *Runtime
	logger  *zap.Logger
}

func newSessionService(repo *repository.Repository, history *historyService, rt *Runtime) *sessionService {
	return &sessionService{repo: repo, history: history, rt: rt, logger: rt.Logger}
}

// NewSessionService 创建 SessionService 实例
func NewSessionService(repo *repository.Repository, policy PolicyService, rt *Runtime) SessionService {
	return newSessionService(repo, newHistoryService(repo, policy, rt), rt)
}

// ────────────────────── Create ──────────────────────

func (s *sessionService) Create(ctx context.Context, req *dto.CreateSessionRequest, callerID string) (*dto.SessionResponse, error) {
	agenda, err := s.repo.Agenda.GetByID(ctx, req.AgendaID)
	if err != nil {
		return nil, notFound(err, "排课表")
	}
	if agenda.State == model.AgendaExecuted || agenda.State == model.AgendaClosed {
		return nil, pkgerrors.ErrAgendaInvalidState.WithMessage("排课表已%s，不能新增课节", agendaStateLabel(agenda.State))
	}

	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	session := &model.Session{
		AgendaID:              agenda.AgendaID,
		Date:                  date,
		TimeStart:             req.TimeStart,
		TimeEnd:               req.TimeEnd,
		TeacherID:             req.TeacherID,
		RoomID:                req.RoomID,
		TemplateID:            req.TemplateID,
		SubjectID:             req.SubjectID,
		ProgramID:             req.ProgramID,
		DeliveryMode:          req.DeliveryMode,
		MaxCapacity:           req.MaxCapacity,
		MaxCapacityPresential: req.MaxCapacityPresential,
		MaxCapacityVirtual:    req.MaxCapacityVirtual,
		AudienceUnitFrom:      req.AudienceUnitFrom,
		AudienceUnitTo:        req.AudienceUnitTo,
		State:                 model.SessionActive,
	}
	// 草稿排课表下的课节同为草稿，激活排课表时统一转为 active
	if agenda.State == model.AgendaDraft {
		session.State = model.SessionDraft
	}
	session.IsPublished = agenda.State == model.AgendaPublished
	session.CreatedBy = strPtr(callerID)
	session.Agenda = agenda

	if err := validateSession(ctx, s.repo, agenda, session); err != nil {
		return nil, err
	}

	release, err := s.rt.lock(ctx, sessionLockKeys(session)...)
	if err != nil {
		return nil, err
	}
	defer release()

	ob := &outbox{}
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := checkConflicts(ctx, tx, session, nil); err != nil {
			return err
		}
		if err := tx.Session.Create(ctx, session); err != nil {
			return err
		}
		if session.IsPublished {
			return ob.stage(ctx, tx, model.EventSessionPublished, session.SessionID, sessionPayload(session), s.rt.now())
		}
		return nil
	})
	if err != nil {
		if _, ok := pkgerrors.AsAppError(err); !ok {
			s.logger.Error("创建课节失败", zap.String("agenda_id", req.AgendaID), zap.Error(err))
		}
		return nil, err
	}
	s.rt.flush(ctx, s.repo, ob)

	s.logger.Info("课节创建成功",
		zap.String("session_id", session.SessionID),
		zap.String("agenda_id", agenda.AgendaID),
		zap.String("date", req.Date),
		zap.String("teacher_id", session.TeacherID))
	return s.reload(ctx, session)
}

// ────────────────────── Get ──────────────────────

func (s *sessionService) Get(ctx context.Context, id string) (*dto.SessionResponse, error) {
	session, err := s.repo.Session.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "课节")
	}
	return toSessionResponse(session), nil
}

// ────────────────────── Update ──────────────────────

func (s *sessionService) Update(ctx context.Context, id string, req *dto.UpdateSessionRequest, callerID string) (*dto.SessionResponse, error) {
	session, err := s.repo.Session.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "课节")
	}
	if session.Version != req.Version {
		return nil, pkgerrors.ErrConcurrentModify
	}
	if !lifecycle.AllowsStructuralEdit(session.State) {
		return nil, pkgerrors.ErrSessionInvalidState.WithMessage("课节状态为 %s，不能修改", session.State)
	}
	agenda := session.Agenda
	if agenda == nil {
		if agenda, err = s.repo.Agenda.GetByID(ctx, session.AgendaID); err != nil {
			return nil, notFound(err, "排课表")
		}
	}

	oldKeys := sessionLockKeys(session)
	oldDate, oldStart, oldEnd := session.Date, session.TimeStart, session.TimeEnd

	if req.Date != nil {
		d, err := parseDate(*req.Date)
		if err != nil {
			return nil, err
		}
		session.Date = d
	}
	if req.TimeStart != nil {
		session.TimeStart = *req.TimeStart
	}
	if req.TimeEnd != nil {
		session.TimeEnd = *req.TimeEnd
	}
	if req.TeacherID != nil {
		session.TeacherID = *req.TeacherID
	}
	switch {
	case req.ClearRoom:
		session.RoomID = nil
	case req.RoomID != nil:
		session.RoomID = req.RoomID
	}
	if req.TemplateID != nil {
		session.TemplateID = req.TemplateID
	}
	if req.SubjectID != nil {
		session.SubjectID = req.SubjectID
	}
	if req.DeliveryMode != nil {
		session.DeliveryMode = *req.DeliveryMode
	}
	if req.MaxCapacity != nil {
		session.MaxCapacity = *req.MaxCapacity
	}
	if req.MaxCapacityPresential != nil {
		session.MaxCapacityPresential = req.MaxCapacityPresential
	}
	if req.MaxCapacityVirtual != nil {
		session.MaxCapacityVirtual = req.MaxCapacityVirtual
	}
	if req.AudienceUnitFrom != nil {
		session.AudienceUnitFrom = req.AudienceUnitFrom
	}
	if req.AudienceUnitTo != nil {
		session.AudienceUnitTo = req.AudienceUnitTo
	}
	session.UpdatedBy = strPtr(callerID)
	// 关联对象以 ID 为准，清掉预加载的旧值
	session.Teacher, session.Room, session.Template, session.Subject = nil, nil, nil, nil

	if err := validateSession(ctx, s.repo, agenda, session); err != nil {
		return nil, err
	}
	moved := !oldDate.Equal(session.Date) || oldStart != session.TimeStart || oldEnd != session.TimeEnd

	release, err := s.rt.lock(ctx, append(oldKeys, sessionLockKeys(session)...)...)
	if err != nil {
		return nil, err
	}
	defer release()

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		occupied, err := tx.Enrollment.CountOccupied(ctx, session.SessionID, "")
		if err != nil {
			return err
		}
		if occupied > 0 && moved {
			return pkgerrors.ErrSessionInvalidState.
				WithMessage("课节已有学员报名，不能修改日期或时间").
				WithHint("请新建课节并通知已报名学员")
		}
		if int(occupied) > session.MaxCapacity {
			return pkgerrors.ErrCapacityExceeded.
				WithMessage("名额不能低于已报名人数").
				WithHint("当前已报名 %d 人", occupied)
		}
		if err := checkConflicts(ctx, tx, session, []string{session.SessionID}); err != nil {
			return err
		}
		return tx.Session.Update(ctx, session)
	})
	if err != nil {
		if _, ok := pkgerrors.AsAppError(err); !ok {
			s.logger.Error("更新课节失败", zap.String("session_id", id), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("课节更新成功", zap.String("session_id", id), zap.Int("version", session.Version))
	return s.reload(ctx, session)
}

// ────────────────────── Cancel ──────────────────────

func (s *sessionService) Cancel(ctx context.Context, id string, req *dto.CancelSessionRequest, callerID string) (*dto.SessionResponse, error) {
	var session *model.Session
	var removed int64
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		current, err := tx.Session.GetForUpdate(ctx, id)
		if err != nil {
			return notFound(err, "课节")
		}
		confirmed, err := tx.Enrollment.CountOccupied(ctx, id, "")
		if err != nil {
			return err
		}
		next, err := lifecycle.NextSessionState(current.State, lifecycle.SessionCancel, lifecycle.SessionFacts{HasConfirmed: confirmed > 0})
		if err != nil {
			return err
		}

		now := s.rt.now()
		current.State = next
		current.CancelledAt = &now
		current.CancelReason = req.Reason
		current.UpdatedBy = strPtr(callerID)
		if err := tx.Enrollment.CancelPending(ctx, id); err != nil {
			return err
		}
		if err := tx.Session.Update(ctx, current); err != nil {
			return err
		}
		// 门户同步：取消的课节移出所有周计划
		if removed, err = tx.WeeklyPlan.DeleteLinesBySession(ctx, id); err != nil {
			return err
		}
		session = current
		return nil
	})
	if err != nil {
		if _, ok := pkgerrors.AsAppError(err); !ok {
			s.logger.Error("取消课节失败", zap.String("session_id", id), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("课节已取消",
		zap.String("session_id", id),
		zap.String("reason", req.Reason),
		zap.Int64("plan_lines_removed", removed))
	return s.reload(ctx, session)
}

// ────────────────────── MarkStarted ──────────────────────

func (s *sessionService) MarkStarted(ctx context.Context, id, callerID string) (*dto.SessionResponse, error) {
	session, err := s.start(ctx, id, callerID)
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, session)
}

// start 课节开课并冻结报名的实际科目
func (s *sessionService) start(ctx context.Context, id, callerID string) (*model.Session, error) {
	var session *model.Session
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		current, err := tx.Session.GetForUpdate(ctx, id)
		if err != nil {
			return notFound(err, "课节")
		}
		next, err := lifecycle.NextSessionState(current.State, lifecycle.SessionStart, lifecycle.SessionFacts{})
		if err != nil {
			return err
		}
		now := s.rt.now()
		current.State = next
		current.StartedAt = &now
		current.UpdatedBy = strPtr(callerID)
		if err := tx.Session.Update(ctx, current); err != nil {
			return err
		}
		if err := tx.Enrollment.FreezeSubjects(ctx, id); err != nil {
			return err
		}
		session = current
		return nil
	})
	if err != nil {
		if _, ok := pkgerrors.AsAppError(err); !ok {
			s.logger.Error("课节开课失败", zap.String("session_id", id), zap.Error(err))
		}
		return nil, err
	}
	s.logger.Info("课节已开课", zap.String("session_id", id))
	return session, nil
}

// ────────────────────── MarkDone ──────────────────────

func (s *sessionService) MarkDone(ctx context.Context, id, callerID string) (*dto.MarkDoneResponse, error) {
	session, created, removed, err := s.finish(ctx, id, callerID)
	if err != nil {
		return nil, err
	}
	resp, err := s.reload(ctx, session)
	if err != nil {
		return nil, err
	}
	return &dto.MarkDoneResponse{Session: *resp, HistoryCreated: created, LinesRemoved: removed}, nil
}

// finish 课节完成：状态迁移先提交，再投影学习记录并同步门户
//
// 已完成的课节再次调用时只补做投影与同步。投影与同步失败只记录日志，
// 不回滚状态迁移，由定时任务补偿。
func (s *sessionService) finish(ctx context.Context, id, callerID string) (*model.Session, int, int64, error) {
	var session *model.Session
	ob := &outbox{}
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		current, err := tx.Session.GetForUpdate(ctx, id)
		if err != nil {
			return notFound(err, "课节")
		}
		session = current
		if current.State == model.SessionDone {
			return nil
		}
		next, err := lifecycle.NextSessionState(current.State, lifecycle.SessionFinish, lifecycle.SessionFacts{})
		if err != nil {
			return err
		}
		now := s.rt.now()
		current.State = next
		current.DoneAt = &now
		current.UpdatedBy = strPtr(callerID)
		if err := tx.Session.Update(ctx, current); err != nil {
			return err
		}
		return ob.stage(ctx, tx, model.EventSessionDone, id, sessionPayload(current), now)
	})
	if err != nil {
		if _, ok := pkgerrors.AsAppError(err); !ok {
			s.logger.Error("课节完成失败", zap.String("session_id", id), zap.Error(err))
		}
		return nil, 0, 0, err
	}
	s.rt.flush(ctx, s.repo, ob)

	created, removed := s.syncDone(ctx, session)
	s.logger.Info("课节已完成",
		zap.String("session_id", id),
		zap.Int("history_created", created),
		zap.Int64("plan_lines_removed", removed))
	return session, created, removed, nil
}

// syncDone 投影学习记录并移除周计划明细
func (s *sessionService) syncDone(ctx context.Context, session *model.Session) (int, int64) {
	ob := &outbox{}
	created := 0
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		n, err := s.history.projectSession(ctx, tx, session, ob)
		created = n
		return err
	})
	if err != nil {
		created = 0
		s.logger.Error("学习记录投影失败", zap.String("session_id", session.SessionID), zap.Error(err))
	} else {
		s.rt.flush(ctx, s.repo, ob)
	}

	removed, err := s.repo.WeeklyPlan.DeleteLinesBySession(ctx, session.SessionID)
	if err != nil {
		s.logger.Error("门户同步失败", zap.String("session_id", session.SessionID), zap.Error(err))
	}
	return created, removed
}

// ────────────────────── ReplaceTeacher ──────────────────────

func (s *sessionService) ReplaceTeacher(ctx context.Context, id string, req *dto.ReplaceTeacherRequest, callerID string) (*dto.ReplaceTeacherResponse, error) {
	origin, err := s.repo.Session.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "课节")
	}
	if !lifecycle.AllowsStructuralEdit(origin.State) {
		return nil, pkgerrors.ErrSessionInvalidState.WithMessage("课节状态为 %s，不能更换教师", origin.State)
	}
	if origin.TeacherID == req.NewTeacherID {
		return nil, pkgerrors.ErrValidation.WithMessage("新教师与原教师相同")
	}
	agenda := origin.Agenda
	if agenda == nil {
		if agenda, err = s.repo.Agenda.GetByID(ctx, origin.AgendaID); err != nil {
			return nil, notFound(err, "排课表")
		}
	}
	teacher, err := s.repo.Resource.GetTeacher(ctx, req.NewTeacherID)
	if err != nil {
		return nil, notFound(err, "教师")
	}
	if !teacher.Active || !teacher.TeachesAt(agenda.CampusID) {
		return nil, pkgerrors.ErrValidation.WithMessage("教师 %s 不可在该校区授课", teacher.Name)
	}

	targets, err := s.replacementTargets(ctx, origin, req)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(targets))
	ids := make([]string, 0, len(targets))
	for i := range targets {
		keys = append(keys, teacherLockKey(req.NewTeacherID, targets[i].Date))
		ids = append(ids, targets[i].SessionID)
	}
	release, err := s.rt.lock(ctx, dedupe(keys)...)
	if err != nil {
		return nil, err
	}
	defer release()

	log := &model.TeacherReplacementLog{
		AgendaID:          origin.AgendaID,
		OriginSessionID:   origin.SessionID,
		OriginalTeacherID: origin.TeacherID,
		NewTeacherID:      req.NewTeacherID,
		Scope:             req.Scope,
		Reason:            req.Reason,
		OperatorID:        strPtr(callerID),
		CreatedAt:         s.rt.now(),
	}
	if log.SessionIDs, err = json.Marshal(ids); err != nil {
		return nil, err
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		// 先全部检查再写入；只检查教师冲突，教室不变
		assigned := make([]*model.Session, 0, len(targets))
		for i := range targets {
			candidate := targets[i]
			candidate.TeacherID = req.NewTeacherID
			candidate.RoomID = nil
			if err := checkConflicts(ctx, tx, &candidate, ids); err != nil {
				return err
			}
			// 目标课节之间互不排除，需单独比对
			if err := batchConflict(&candidate, assigned); err != nil {
				return err
			}
			assigned = append(assigned, &candidate)
		}
		for i := range targets {
			t := &targets[i]
			t.TeacherID = req.NewTeacherID
			t.UpdatedBy = strPtr(callerID)
			t.Teacher = nil
			if err := tx.Session.Update(ctx, t); err != nil {
				return err
			}
		}
		return tx.Audit.CreateReplacementLog(ctx, log)
	})
	if err != nil {
		if _, ok := pkgerrors.AsAppError(err); !ok {
			s.logger.Error("更换教师失败", zap.String("session_id", id), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("教师已更换",
		zap.String("origin_session_id", id),
		zap.String("scope", req.Scope),
		zap.String("new_teacher_id", req.NewTeacherID),
		zap.Int("sessions", len(ids)))
	return &dto.ReplaceTeacherResponse{LogID: log.LogID, Scope: req.Scope, SessionIDs: ids}, nil
}

// replacementTargets 按范围选出需要更换教师的课节
func (s *sessionService) replacementTargets(ctx context.Context, origin *model.Session, req *dto.ReplaceTeacherRequest) ([]model.Session, error) {
	switch req.Scope {
	case model.ReplaceScopeSingle:
		return []model.Session{*origin}, nil

	case model.ReplaceScopeSelected:
		if len(req.SessionIDs) == 0 {
			return nil, pkgerrors.ErrValidation.WithMessage("scope=selected 时必须指定课节")
		}
		sessions, err := s.repo.Session.ListByIDs(ctx, dedupe(req.SessionIDs))
		if err != nil {
			return nil, err
		}
		if len(sessions) != len(dedupe(req.SessionIDs)) {
			return nil, pkgerrors.ErrNotFound.WithMessage("部分课节不存在")
		}
		for i := range sessions {
			if sessions[i].AgendaID != origin.AgendaID {
				return nil, pkgerrors.ErrValidation.WithMessage("课节不属于同一排课表").WithDetails(sessions[i].SessionID)
			}
			if !lifecycle.AllowsStructuralEdit(sessions[i].State) {
				return nil, pkgerrors.ErrSessionInvalidState.
					WithMessage("课节状态为 %s，不能更换教师", sessions[i].State).
					WithDetails(sessions[i].SessionID)
			}
		}
		return sessions, nil
	}

	all, err := s.repo.Session.ListByAgenda(ctx, origin.AgendaID)
	if err != nil {
		return nil, err
	}
	var targets []model.Session
	for i := range all {
		c := &all[i]
		if c.TeacherID != origin.TeacherID || !lifecycle.AllowsStructuralEdit(c.State) {
			continue
		}
		if req.Scope == model.ReplaceScopeFuture {
			if c.Date.Before(origin.Date) ||
				model.ISOWeekday(c.Date) != model.ISOWeekday(origin.Date) ||
				c.TimeStart != origin.TimeStart || c.TimeEnd != origin.TimeEnd {
				continue
			}
		}
		targets = append(targets, *c)
	}
	return targets, nil
}

// ────────────────────── ListReplacementLogs ──────────────────────

func (s *sessionService) ListReplacementLogs(ctx context.Context, agendaID string, q *dto.ReplacementLogQuery) (*dto.ReplacementLogListResponse, error) {
	logs, total, err := s.repo.Audit.ListReplacementLogs(ctx, agendaID, q.GetOffset(), q.GetPageSize())
	if err != nil {
		s.logger.Error("查询换教师记录失败", zap.String("agenda_id", agendaID), zap.Error(err))
		return nil, err
	}
	resp := &dto.ReplacementLogListResponse{
		Items:    make([]dto.ReplacementLogResponse, 0, len(logs)),
		Total:    total,
		Page:     q.GetPage(),
		PageSize: q.GetPageSize(),
	}
	for i := range logs {
		l := &logs[i]
		var ids []string
		if err := json.Unmarshal(l.SessionIDs, &ids); err != nil {
			s.logger.Warn("换教师记录课节列表解析失败", zap.String("log_id", l.LogID), zap.Error(err))
		}
		resp.Items = append(resp.Items, dto.ReplacementLogResponse{
			ID:                l.LogID,
			OriginSessionID:   l.OriginSessionID,
			OriginalTeacherID: l.OriginalTeacherID,
			NewTeacherID:      l.NewTeacherID,
			Scope:             l.Scope,
			Reason:            l.Reason,
			SessionIDs:        ids,
			OperatorID:        l.OperatorID,
			CreatedAt:         l.CreatedAt.Format(time.RFC3339),
		})
	}
	return resp, nil
}

// ────────────────────── Availability ──────────────────────

// Availability 计算时段内校区可用的教师与教室
func (s *sessionService) Availability(ctx context.Context, q *dto.AvailabilityQuery) (*dto.AvailabilityResponse, error) {
	agenda, err := s.repo.Agenda.GetByID(ctx, q.AgendaID)
	if err != nil {
		return nil, notFound(err, "排课表")
	}
	date, err := parseDate(q.Date)
	if err != nil {
		return nil, err
	}
	start, err := parseClock(q.TimeStart)
	if err != nil {
		return nil, err
	}
	end, err := parseClock(q.TimeEnd)
	if err != nil {
		return nil, err
	}
	if start >= end {
		return nil, pkgerrors.ErrValidation.WithMessage("开始时间必须早于结束时间")
	}

	resp := &dto.AvailabilityResponse{
		AvailableTeachers: []dto.TeacherBrief{},
		AvailableRooms:    []dto.RoomBrief{},
	}
	campus, err := agendaCampus(ctx, s.repo, agenda)
	if err != nil {
		return nil, err
	}
	if len(campus.AllowedWeekdays) > 0 && !campus.AllowedWeekdays.Contains(model.ISOWeekday(date)) {
		return resp, nil
	}

	busy, err := s.repo.Session.ListBusy(ctx, date, start, end, q.ExcludeSessionID)
	if err != nil {
		s.logger.Error("查询占用课节失败", zap.Error(err))
		return nil, err
	}
	busyTeachers := make(map[string]bool, len(busy))
	busyRooms := make(map[string]bool, len(busy))
	for i := range busy {
		busyTeachers[busy[i].TeacherID] = true
		if busy[i].RoomID != nil {
			busyRooms[*busy[i].RoomID] = true
		}
	}

	teachers, err := s.repo.Resource.ListTeachersForCampus(ctx, agenda.CampusID)
	if err != nil {
		return nil, err
	}
	for i := range teachers {
		t := &teachers[i]
		if !t.Active || busyTeachers[t.TeacherID] || !t.TeachesAt(agenda.CampusID) {
			continue
		}
		resp.AvailableTeachers = append(resp.AvailableTeachers, dto.TeacherBrief{ID: t.TeacherID, Name: t.Name, MeetingLink: t.MeetingLink})
	}

	rooms, err := s.repo.Resource.ListRoomsForCampus(ctx, agenda.CampusID)
	if err != nil {
		return nil, err
	}
	for i := range rooms {
		r := &rooms[i]
		if !r.Active || busyRooms[r.RoomID] || !r.InSubcampus(q.SubcampusID) {
			continue
		}
		brief := dto.RoomBrief{ID: r.RoomID, Name: r.Name, Capacity: r.Capacity}
		if r.Subcampus != nil {
			brief.SubcampusID, brief.SubcampusName = r.Subcampus.SubcampusID, r.Subcampus.Name
		}
		resp.AvailableRooms = append(resp.AvailableRooms, brief)
	}
	return resp, nil
}

// ── 校验 ──

// validateSession 校验课节的排课表范围、校区星期、教师与教室
func validateSession(ctx context.Context, repo *repository.Repository, agenda *model.Agenda, s *model.Session) error {
	if err := s.SyncMinutes(); err != nil {
		return pkgerrors.ErrValidation.WithMessage("时刻格式无效")
	}
	if s.StartMinute >= s.EndMinute {
		return pkgerrors.ErrValidation.WithMessage("开始时间必须早于结束时间")
	}
	if !agenda.ContainsDate(s.Date) {
		return pkgerrors.ErrValidation.
			WithMessage("课节日期不在排课表范围内").
			WithHint("排课表范围为 %s 至 %s", agenda.DateStart.Format(model.DateLayout), agenda.DateEnd.Format(model.DateLayout))
	}
	if s.TimeStart < agenda.TimeStart || s.TimeEnd > agenda.TimeEnd {
		return pkgerrors.ErrValidation.
			WithMessage("课节时间超出排课表时间窗").
			WithHint("时间窗为 %s-%s", agenda.TimeStart, agenda.TimeEnd)
	}

	campus, err := agendaCampus(ctx, repo, agenda)
	if err != nil {
		return err
	}
	if len(campus.AllowedWeekdays) > 0 && !campus.AllowedWeekdays.Contains(model.ISOWeekday(s.Date)) {
		return pkgerrors.ErrValidation.WithMessage("校区 %s 在星期 %d 不开课", campus.Name, model.ISOWeekday(s.Date))
	}

	switch s.DeliveryMode {
	case model.DeliveryPresential, model.DeliveryVirtual, model.DeliveryHybrid:
	default:
		return pkgerrors.ErrValidation.WithMessage("授课方式无效：%s", s.DeliveryMode)
	}
	if s.MaxCapacity <= 0 {
		return pkgerrors.ErrValidation.WithMessage("名额必须大于 0")
	}
	for _, c := range []*int{s.MaxCapacityPresential, s.MaxCapacityVirtual} {
		if c != nil && (*c < 0 || *c > s.MaxCapacity) {
			return pkgerrors.ErrValidation.WithMessage("分方式名额不能超过总名额")
		}
	}
	if s.AudienceUnitFrom != nil && s.AudienceUnitTo != nil && *s.AudienceUnitFrom > *s.AudienceUnitTo {
		return pkgerrors.ErrValidation.WithMessage("受众起始单元不能大于结束单元")
	}

	teacher, err := repo.Resource.GetTeacher(ctx, s.TeacherID)
	if err != nil {
		return notFound(err, "教师")
	}
	if !teacher.Active {
		return pkgerrors.ErrValidation.WithMessage("教师 %s 已停用", teacher.Name)
	}
	if !teacher.TeachesAt(agenda.CampusID) {
		return pkgerrors.ErrValidation.WithMessage("教师 %s 未分配到该校区", teacher.Name)
	}

	if s.DeliveryMode != model.DeliveryVirtual && s.RoomID == nil {
		return pkgerrors.ErrValidation.WithMessage("线下或混合课节必须指定教室")
	}
	if s.RoomID != nil {
		room, err := repo.Resource.GetRoom(ctx, *s.RoomID)
		if err != nil {
			return notFound(err, "教室")
		}
		if room.CampusID != agenda.CampusID {
			return pkgerrors.ErrValidation.WithMessage("教室 %s 不属于该校区", room.Name)
		}
		if !room.Active {
			return pkgerrors.ErrValidation.WithMessage("教室 %s 已停用", room.Name)
		}
	}

	if s.TemplateID != nil {
		tpl, err := repo.Catalog.GetTemplate(ctx, *s.TemplateID)
		if err != nil {
			return notFound(err, "课节模板")
		}
		if s.ProgramID == nil && tpl.ProgramID != nil {
			s.ProgramID = tpl.ProgramID
		}
	}
	if s.SubjectID != nil {
		subject, err := repo.Catalog.GetSubject(ctx, *s.SubjectID)
		if err != nil {
			return notFound(err, "科目")
		}
		if s.ProgramID == nil {
			programID := subject.ProgramID
			s.ProgramID = &programID
		}
	}
	return nil
}

// sessionIssues 列出发布前课节缺失的必填项
func sessionIssues(s *model.Session) []string {
	var missing []string
	if s.TeacherID == "" {
		missing = append(missing, "缺少教师")
	}
	if s.TemplateID == nil && s.SubjectID == nil {
		missing = append(missing, "缺少模板或科目")
	}
	if s.DeliveryMode != model.DeliveryVirtual && s.RoomID == nil {
		missing = append(missing, "缺少教室")
	}
	if s.MaxCapacity <= 0 {
		missing = append(missing, "名额为 0")
	}
	issues := make([]string, 0, len(missing))
	for _, m := range missing {
		issues = append(issues, fmt.Sprintf("%s %s-%s：%s", s.Date.Format(model.DateLayout), s.TimeStart, s.TimeEnd, m))
	}
	return issues
}

// checkConflicts 同日时间相交且同教师或同教室的未取消课节
func checkConflicts(ctx context.Context, repo *repository.Repository, s *model.Session, exclude []string) error {
	if err := s.SyncMinutes(); err != nil {
		return pkgerrors.ErrValidation.WithMessage("时刻格式无效")
	}
	conflicts, err := repo.Session.FindConflicts(ctx, repository.ConflictQuery{
		Date:        s.Date,
		StartMinute: s.StartMinute,
		EndMinute:   s.EndMinute,
		TeacherID:   s.TeacherID,
		RoomID:      s.RoomID,
		ExcludeIDs:  exclude,
	})
	if err != nil {
		return err
	}
	for i := range conflicts {
		c := &conflicts[i]
		detail := fmt.Sprintf("%s %s-%s (%s)", c.Date.Format(model.DateLayout), c.TimeStart, c.TimeEnd, c.SessionID)
		if c.TeacherID == s.TeacherID {
			return pkgerrors.ErrTeacherConflict.WithDetails(detail)
		}
		return pkgerrors.ErrRoomConflict.WithDetails(detail)
	}
	return nil
}

// batchConflict 比对同一批待写入的课节：同日时段相交且同教师或同教室
func batchConflict(s *model.Session, batch []*model.Session) error {
	for _, o := range batch {
		if !s.Overlaps(o) {
			continue
		}
		detail := fmt.Sprintf("%s %s-%s（同批课节）", o.Date.Format(model.DateLayout), o.TimeStart, o.TimeEnd)
		if o.TeacherID == s.TeacherID {
			return pkgerrors.ErrTeacherConflict.WithDetails(detail)
		}
		if s.RoomID != nil && o.RoomID != nil && *s.RoomID == *o.RoomID {
			return pkgerrors.ErrRoomConflict.WithDetails(detail)
		}
	}
	return nil
}

// ── 辅助函数 ──

func (s *sessionService) reload(ctx context.Context, session *model.Session) (*dto.SessionResponse, error) {
	fresh, err := s.repo.Session.GetByID(ctx, session.SessionID)
	if err != nil {
		s.logger.Warn("重新读取课节失败", zap.String("session_id", session.SessionID), zap.Error(err))
		return toSessionResponse(session), nil
	}
	return toSessionResponse(fresh), nil
}

func agendaCampus(ctx context.Context, repo *repository.Repository, agenda *model.Agenda) (*model.Campus, error) {
	if agenda.Campus != nil {
		return agenda.Campus, nil
	}
	campus, err := repo.Resource.GetCampus(ctx, agenda.CampusID)
	if err != nil {
		return nil, notFound(err, "校区")
	}
	agenda.Campus = campus
	return campus, nil
}

func sessionPayload(s *model.Session) map[string]interface{} {
	return map[string]interface{}{
		"session_id": s.SessionID,
		"agenda_id":  s.AgendaID,
		"date":       s.Date.Format(model.DateLayout),
		"time_start": s.TimeStart,
		"time_end":   s.TimeEnd,
		"teacher_id": s.TeacherID,
		"state":      s.State,
	}
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if !seen[it] {
			seen[it] = true
			out = append(out, it)
		}
	}
	sort.Strings(out)
	return out
}

// [自证通过] internal/service/session_service.go
