package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ailumex-academy/internal/dto"
	"ailumex-academy/internal/lifecycle"
	"ailumex-academy/internal/model"
	"ailumex-academy/internal/repository"
	pkgerrors "ailumex-academy/pkg/errors"
)

// maxAgendaSpanDays 排课表日期跨度上限
const maxAgendaSpanDays = 365

// AgendaService 排课表业务接口
type AgendaService interface {
	Create(ctx context.Context, req *dto.CreateAgendaRequest, callerID string) (*dto.AgendaResponse, error)
	Get(ctx context.Context, id string) (*dto.AgendaResponse, error)
	ListSessions(ctx context.Context, id string) ([]dto.SessionResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateAgendaRequest, callerID string) (*dto.AgendaResponse, error)
	Activate(ctx context.Context, id, callerID string) (*dto.AgendaResponse, error)
	Publish(ctx context.Context, id, callerID string) (*dto.PublishAgendaResponse, error)
	Unpublish(ctx context.Context, id, callerID string) (*dto.AgendaResponse, error)
	Close(ctx context.Context, id, callerID string) (*dto.AgendaResponse, error)
	Delete(ctx context.Context, id string) error
	Duplicate(ctx context.Context, id string, req *dto.DuplicateAgendaRequest, callerID string) (*dto.DuplicationResponse, error)
}

type agendaService struct {
	repo   *repository.Repository
	rt     *Runtime
	logger *zap.Logger
}

// NewAgendaService 创建 AgendaService 实例
func NewAgendaService(repo *repository.Repository, rt *Runtime) AgendaService {
	return newAgendaService(repo, rt)
}

func newAgendaService(repo *repository.Repository, rt *Runtime) *agendaService {
	return &agendaService{repo: repo, rt: rt, logger: rt.Logger}
}

// ────────────────────── Create ──────────────────────

func (s *agendaService) Create(ctx context.Context, req *dto.CreateAgendaRequest, callerID string) (*dto.AgendaResponse, error) {
	campus, err := s.repo.Resource.GetCampus(ctx, req.CampusID)
	if err != nil {
		return nil, notFound(err, "校区")
	}
	if !campus.Active {
		return nil, pkgerrors.ErrValidation.WithMessage("校区 %s 已停用", campus.Name)
	}

	agenda := &model.Agenda{
		Name:      req.Name,
		CampusID:  campus.CampusID,
		TimeStart: req.TimeStart,
		TimeEnd:   req.TimeEnd,
		State:     model.AgendaDraft,
	}
	if agenda.DateStart, agenda.DateEnd, err = parseRange(req.DateStart, req.DateEnd); err != nil {
		return nil, err
	}
	if err := validateWindow(campus, agenda.TimeStart, agenda.TimeEnd); err != nil {
		return nil, err
	}
	agenda.Code = agendaCode(campus, agenda.DateStart)
	agenda.CreatedBy = strPtr(callerID)

	if err := s.repo.Agenda.Create(ctx, agenda); err != nil {
		if _, ok := pkgerrors.AsAppError(err); !ok {
			s.logger.Error("创建排课表失败", zap.String("campus_id", req.CampusID), zap.Error(err))
		}
		return nil, err
	}
	agenda.Campus = campus

	s.logger.Info("排课表创建成功",
		zap.String("agenda_id", agenda.AgendaID),
		zap.String("code", agenda.Code))
	return toAgendaResponse(agenda, 0), nil
}

// ────────────────────── Get ──────────────────────

func (s *agendaService) Get(ctx context.Context, id string) (*dto.AgendaResponse, error) {
	agenda, err := s.repo.Agenda.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "排课表")
	}
	sessions, err := s.repo.Session.ListByAgenda(ctx, id)
	if err != nil {
		s.logger.Error("查询排课表课节失败", zap.String("agenda_id", id), zap.Error(err))
		return nil, err
	}
	return toAgendaResponse(agenda, len(sessions)), nil
}

func (s *agendaService) ListSessions(ctx context.Context, id string) ([]dto.SessionResponse, error) {
	if _, err := s.repo.Agenda.GetByID(ctx, id); err != nil {
		return nil, notFound(err, "排课表")
	}
	sessions, err := s.repo.Session.ListByAgenda(ctx, id)
	if err != nil {
		s.logger.Error("查询排课表课节失败", zap.String("agenda_id", id), zap.Error(err))
		return nil, err
	}
	result := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		result = append(result, *toSessionResponse(&sessions[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *agendaService) Update(ctx context.Context, id string, req *dto.UpdateAgendaRequest, callerID string) (*dto.AgendaResponse, error) {
	agenda, err := s.repo.Agenda.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "排课表")
	}
	if agenda.Version != req.Version {
		return nil, pkgerrors.ErrConcurrentModify
	}
	sessions, err := s.repo.Session.ListByAgenda(ctx, id)
	if err != nil {
		return nil, err
	}

	structural := req.CampusID != nil || req.DateStart != nil || req.DateEnd != nil || req.TimeStart != nil || req.TimeEnd != nil
	if structural {
		if !agenda.AllowsStructuralEdit() || anyStarted(sessions) {
			return nil, pkgerrors.ErrAgendaLocked
		}
	}

	if req.Name != nil {
		agenda.Name = *req.Name
	}
	if req.CampusID != nil && *req.CampusID != agenda.CampusID {
		if len(liveSessions(sessions)) > 0 {
			return nil, pkgerrors.ErrAgendaLocked.WithMessage("排课表已有课节，不能更换校区")
		}
		campus, err := s.repo.Resource.GetCampus(ctx, *req.CampusID)
		if err != nil {
			return nil, notFound(err, "校区")
		}
		agenda.CampusID, agenda.Campus = campus.CampusID, campus
	}
	dateStart := agenda.DateStart.Format(model.DateLayout)
	dateEnd := agenda.DateEnd.Format(model.DateLayout)
	if req.DateStart != nil {
		dateStart = *req.DateStart
	}
	if req.DateEnd != nil {
		dateEnd = *req.DateEnd
	}
	if agenda.DateStart, agenda.DateEnd, err = parseRange(dateStart, dateEnd); err != nil {
		return nil, err
	}
	if req.TimeStart != nil {
		agenda.TimeStart = *req.TimeStart
	}
	if req.TimeEnd != nil {
		agenda.TimeEnd = *req.TimeEnd
	}
	campus, err := agendaCampus(ctx, s.repo, agenda)
	if err != nil {
		return nil, err
	}
	if err := validateWindow(campus, agenda.TimeStart, agenda.TimeEnd); err != nil {
		return nil, err
	}

	// 现有课节必须仍落在新的日期与时间范围内
	var outside []string
	for _, sess := range liveSessions(sessions) {
		if !agenda.ContainsDate(sess.Date) || sess.TimeStart < agenda.TimeStart || sess.TimeEnd > agenda.TimeEnd {
			outside = append(outside, fmt.Sprintf("%s %s-%s", sess.Date.Format(model.DateLayout), sess.TimeStart, sess.TimeEnd))
		}
	}
	if len(outside) > 0 {
		return nil, pkgerrors.ErrValidation.WithMessage("已有课节超出新的排课范围").WithDetails(outside...)
	}

	agenda.UpdatedBy = strPtr(callerID)
	if err := s.repo.Agenda.Update(ctx, agenda); err != nil {
		if _, ok := pkgerrors.AsAppError(err); !ok {
			s.logger.Error("更新排课表失败", zap.String("agenda_id", id), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("排课表更新成功", zap.String("agenda_id", id), zap.Int("version", agenda.Version))
	return toAgendaResponse(agenda, len(sessions)), nil
}

// ────────────────────── Activate ──────────────────────

func (s *agendaService) Activate(ctx context.Context, id, callerID string) (*dto.AgendaResponse, error) {
	var agenda *model.Agenda
	var count int
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		a, err := tx.Agenda.GetByID(ctx, id)
		if err != nil {
			return notFound(err, "排课表")
		}
		next, err := lifecycle.NextAgendaState(a.State, lifecycle.AgendaActivate, lifecycle.AgendaFacts{})
		if err != nil {
			return err
		}
		sessions, err := tx.Session.ListByAgenda(ctx, id)
		if err != nil {
			return err
		}
		if issues := collectIssues(sessions); len(issues) > 0 {
			return pkgerrors.ErrValidation.WithMessage("存在不完整的课节，无法激活").WithDetails(issues...)
		}
		for i := range sessions {
			sess := &sessions[i]
			if sess.State != model.SessionDraft {
				continue
			}
			state, err := lifecycle.NextSessionState(sess.State, lifecycle.SessionActivate, lifecycle.SessionFacts{})
			if err != nil {
				return err
			}
			sess.State = state
			sess.UpdatedBy = strPtr(callerID)
			if err := tx.Session.Update(ctx, sess); err != nil {
				return err
			}
		}
		a.State = next
		a.UpdatedBy = strPtr(callerID)
		if err := tx.Agenda.Update(ctx, a); err != nil {
			return err
		}
		agenda, count = a, len(sessions)
		return nil
	})
	if err != nil {
		s.logFailure("激活排课表失败", id, err)
		return nil, err
	}
	s.logger.Info("排课表已激活", zap.String("agenda_id", id), zap.Int("sessions", count))
	return toAgendaResponse(agenda, count), nil
}

// ────────────────────── Publish ──────────────────────

// Publish 发布排课表并提升课节状态；已发布时为空操作
func (s *agendaService) Publish(ctx context.Context, id, callerID string) (*dto.PublishAgendaResponse, error) {
	var agenda *model.Agenda
	var count, published int
	noop := false
	ob := &outbox{}
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		a, err := tx.Agenda.GetByID(ctx, id)
		if err != nil {
			return notFound(err, "排课表")
		}
		sessions, err := tx.Session.ListByAgenda(ctx, id)
		if err != nil {
			return err
		}
		agenda, count = a, len(sessions)
		if a.State == model.AgendaPublished {
			noop = true
			return nil
		}
		next, err := lifecycle.NextAgendaState(a.State, lifecycle.AgendaPublish, lifecycle.AgendaFacts{})
		if err != nil {
			return err
		}
		if issues := collectIssues(sessions); len(issues) > 0 {
			return pkgerrors.ErrValidation.WithMessage("存在不完整的课节，无法发布").WithDetails(issues...)
		}

		now := s.rt.now()
		for i := range sessions {
			sess := &sessions[i]
			if sess.IsTerminal() {
				continue
			}
			occupied, err := tx.Enrollment.CountOccupied(ctx, sess.SessionID, "")
			if err != nil {
				return err
			}
			state := lifecycle.PublishedState(sess.State, occupied > 0)
			if state == sess.State && sess.IsPublished {
				continue
			}
			newly := !sess.IsPublished
			sess.State = state
			sess.IsPublished = true
			sess.UpdatedBy = strPtr(callerID)
			if err := tx.Session.Update(ctx, sess); err != nil {
				return err
			}
			if newly {
				published++
				if err := ob.stage(ctx, tx, model.EventSessionPublished, sess.SessionID, sessionPayload(sess), now); err != nil {
					return err
				}
			}
		}

		a.State = next
		a.PublishedAt = &now
		a.UpdatedBy = strPtr(callerID)
		return tx.Agenda.Update(ctx, a)
	})
	if err != nil {
		s.logFailure("发布排课表失败", id, err)
		return nil, err
	}
	s.rt.flush(ctx, s.repo, ob)

	if noop {
		s.logger.Info("排课表已处于发布状态", zap.String("agenda_id", id))
	} else {
		s.logger.Info("排课表已发布", zap.String("agenda_id", id), zap.Int("published", published))
	}
	return &dto.PublishAgendaResponse{Agenda: *toAgendaResponse(agenda, count), Published: published, NoOp: noop}, nil
}

// ────────────────────── Unpublish ──────────────────────

func (s *agendaService) Unpublish(ctx context.Context, id, callerID string) (*dto.AgendaResponse, error) {
	var agenda *model.Agenda
	var count int
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		a, err := tx.Agenda.GetByID(ctx, id)
		if err != nil {
			return notFound(err, "排课表")
		}
		sessions, err := tx.Session.ListByAgenda(ctx, id)
		if err != nil {
			return err
		}
		next, err := lifecycle.NextAgendaState(a.State, lifecycle.AgendaUnpublish, lifecycle.AgendaFacts{
			HasStartedSession: anyInProgress(sessions),
		})
		if err != nil {
			return err
		}
		for i := range sessions {
			sess := &sessions[i]
			if sess.IsTerminal() || !sess.IsPublished {
				continue
			}
			sess.IsPublished = false
			sess.UpdatedBy = strPtr(callerID)
			if err := tx.Session.Update(ctx, sess); err != nil {
				return err
			}
		}
		a.State = next
		a.UpdatedBy = strPtr(callerID)
		if err := tx.Agenda.Update(ctx, a); err != nil {
			return err
		}
		agenda, count = a, len(sessions)
		return nil
	})
	if err != nil {
		s.logFailure("取消发布排课表失败", id, err)
		return nil, err
	}
	s.logger.Info("排课表已取消发布", zap.String("agenda_id", id))
	return toAgendaResponse(agenda, count), nil
}

// ────────────────────── Close / Delete ──────────────────────

func (s *agendaService) Close(ctx context.Context, id, callerID string) (*dto.AgendaResponse, error) {
	agenda, err := s.repo.Agenda.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "排课表")
	}
	next, err := lifecycle.NextAgendaState(agenda.State, lifecycle.AgendaClose, lifecycle.AgendaFacts{})
	if err != nil {
		return nil, err
	}
	now := s.rt.now()
	agenda.State = next
	agenda.ClosedAt = &now
	agenda.UpdatedBy = strPtr(callerID)
	if err := s.repo.Agenda.Update(ctx, agenda); err != nil {
		s.logFailure("关闭排课表失败", id, err)
		return nil, err
	}
	s.logger.Info("排课表已关闭", zap.String("agenda_id", id))
	return toAgendaResponse(agenda, 0), nil
}

// Delete 只允许删除已关闭的排课表，课节与报名级联删除
func (s *agendaService) Delete(ctx context.Context, id string) error {
	agenda, err := s.repo.Agenda.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "排课表")
	}
	if agenda.State != model.AgendaClosed {
		return pkgerrors.ErrAgendaInvalidState.
			WithMessage("只有已关闭的排课表可以删除").
			WithHint("请先关闭排课表")
	}
	if err := s.repo.Agenda.Delete(ctx, id); err != nil {
		s.logger.Error("删除排课表失败", zap.String("agenda_id", id), zap.Error(err))
		return err
	}
	s.logger.Info("排课表已删除", zap.String("agenda_id", id), zap.String("code", agenda.Code))
	return nil
}

// markExecuted 将已结束的发布排课表置为 executed，逐个处理
func (s *agendaService) markExecuted(ctx context.Context, today time.Time) (int, error) {
	agendas, err := s.repo.Agenda.ListPublishedEndedBefore(ctx, today)
	if err != nil {
		return 0, err
	}
	done := 0
	for i := range agendas {
		a := &agendas[i]
		next, err := lifecycle.NextAgendaState(a.State, lifecycle.AgendaExecute, lifecycle.AgendaFacts{
			EndedBeforeToday: model.DateOnly(a.DateEnd).Before(model.DateOnly(today)),
		})
		if err != nil {
			s.logger.Warn("排课表不满足执行完毕条件", zap.String("agenda_id", a.AgendaID), zap.Error(err))
			continue
		}
		now := s.rt.now()
		a.State = next
		a.ExecutedAt = &now
		if err := s.repo.Agenda.Update(ctx, a); err != nil {
			s.logger.Error("更新排课表状态失败", zap.String("agenda_id", a.AgendaID), zap.Error(err))
			continue
		}
		done++
	}
	return done, nil
}

// ────────────────────── Duplicate ──────────────────────

// duplicateInstance 复制计划中的一个课节实例
type duplicateInstance struct {
	session *model.Session
	problem error
}

// Duplicate 按星期把源排课表的课节复制到新的日期区间
//
// skip_conflicts=false 时先整体预检（含同批课节之间），有任何冲突则不创建；
// 逐个课节写入，调用方取消时返回已完成部分的汇总。
func (s *agendaService) Duplicate(ctx context.Context, id string, req *dto.DuplicateAgendaRequest, callerID string) (*dto.DuplicationResponse, error) {
	source, err := s.repo.Agenda.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "排课表")
	}
	dateStart, dateEnd, err := parseRange(req.DateStart, req.DateEnd)
	if err != nil {
		return nil, err
	}
	campus, err := agendaCampus(ctx, s.repo, source)
	if err != nil {
		return nil, err
	}
	sessions, err := s.repo.Session.ListByAgenda(ctx, id)
	if err != nil {
		return nil, err
	}

	target := &model.Agenda{
		Code:             agendaCode(campus, dateStart),
		Name:             source.Name,
		CampusID:         source.CampusID,
		DateStart:        dateStart,
		DateEnd:          dateEnd,
		TimeStart:        source.TimeStart,
		TimeEnd:          source.TimeEnd,
		State:            model.AgendaDraft,
		DuplicatedFromID: &source.AgendaID,
		Campus:           campus,
	}
	if req.Name != nil {
		target.Name = *req.Name
	}
	target.CreatedBy = strPtr(callerID)

	instances := expandInstances(sessions, target)
	var reasons []string
	accepted := make([]*model.Session, 0, len(instances))
	for _, inst := range instances {
		inst.problem = validateSession(ctx, s.repo, target, inst.session)
		if inst.problem == nil {
			inst.problem = checkConflicts(ctx, s.repo, inst.session, nil)
		}
		// 不同源课节可能落到同一目标时段
		if inst.problem == nil {
			inst.problem = batchConflict(inst.session, accepted)
		}
		if inst.problem == nil {
			accepted = append(accepted, inst.session)
		}
		if inst.problem != nil {
			reasons = append(reasons, instanceReason(inst))
		}
	}
	if !req.SkipConflicts && len(reasons) > 0 {
		first := firstProblem(instances)
		if appErr, ok := pkgerrors.AsAppError(first); ok {
			return nil, appErr.WithMessage("复制存在冲突，未创建任何课节").WithDetails(reasons...)
		}
		return nil, first
	}

	if err := s.repo.Agenda.Create(ctx, target); err != nil {
		s.logFailure("创建复制排课表失败", id, err)
		return nil, err
	}

	report := &model.AgendaDuplication{
		SourceAgendaID: source.AgendaID,
		TargetAgendaID: target.AgendaID,
		OperatorID:     strPtr(callerID),
	}
	for _, inst := range instances {
		if inst.problem != nil {
			report.Skipped++
			continue
		}
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}
		inst.session.AgendaID = target.AgendaID
		inst.session.CreatedBy = strPtr(callerID)
		if err := s.createCopy(ctx, inst.session); err != nil {
			if _, ok := pkgerrors.AsAppError(err); !ok {
				if ctx.Err() != nil {
					report.Cancelled = true
					break
				}
				s.logger.Error("复制课节失败", zap.String("agenda_id", target.AgendaID), zap.Error(err))
			}
			inst.problem = err
			reasons = append(reasons, instanceReason(inst))
			report.Skipped++
			continue
		}
		report.Created++
	}

	if reasons == nil {
		reasons = []string{}
	}
	if report.Reasons, err = json.Marshal(reasons); err != nil {
		return nil, err
	}
	report.CreatedAt = s.rt.now()
	// 调用方取消后仍然保存汇总
	if err := s.repo.Agenda.CreateDuplication(context.WithoutCancel(ctx), report); err != nil {
		s.logger.Error("保存复制报告失败", zap.String("agenda_id", target.AgendaID), zap.Error(err))
	}

	s.logger.Info("排课表复制完成",
		zap.String("source_agenda_id", id),
		zap.String("target_agenda_id", target.AgendaID),
		zap.Int("created", report.Created),
		zap.Int("skipped", report.Skipped),
		zap.Bool("cancelled", report.Cancelled))
	return &dto.DuplicationResponse{
		SourceAgendaID: id,
		Agenda:         *toAgendaResponse(target, report.Created),
		Created:        report.Created,
		Skipped:        report.Skipped,
		Cancelled:      report.Cancelled,
		Reasons:        reasons,
	}, nil
}

// createCopy 在资源锁与单独事务内写入一个复制课节
func (s *agendaService) createCopy(ctx context.Context, session *model.Session) error {
	release, err := s.rt.lock(ctx, sessionLockKeys(session)...)
	if err != nil {
		return err
	}
	defer release()
	return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := checkConflicts(ctx, tx, session, nil); err != nil {
			return err
		}
		return tx.Session.Create(ctx, session)
	})
}

// expandInstances 源课节按星期展开到目标日期区间，相同签名只保留一个
func expandInstances(sessions []model.Session, target *model.Agenda) []*duplicateInstance {
	seen := make(map[string]bool)
	var out []*duplicateInstance
	for i := range sessions {
		src := &sessions[i]
		if src.State == model.SessionCancelled {
			continue
		}
		weekday := model.ISOWeekday(src.Date)
		for d := model.DateOnly(target.DateStart); !d.After(model.DateOnly(target.DateEnd)); d = d.AddDate(0, 0, 1) {
			if model.ISOWeekday(d) != weekday {
				continue
			}
			key := signature(src, d)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, &duplicateInstance{session: copySession(src, d)})
		}
	}
	return out
}

func copySession(src *model.Session, date time.Time) *model.Session {
	cp := &model.Session{
		Date:                  date,
		TimeStart:             src.TimeStart,
		TimeEnd:               src.TimeEnd,
		TeacherID:             src.TeacherID,
		RoomID:                src.RoomID,
		TemplateID:            src.TemplateID,
		SubjectID:             src.SubjectID,
		ProgramID:             src.ProgramID,
		DeliveryMode:          src.DeliveryMode,
		MaxCapacity:           src.MaxCapacity,
		MaxCapacityPresential: src.MaxCapacityPresential,
		MaxCapacityVirtual:    src.MaxCapacityVirtual,
		AudienceUnitFrom:      src.AudienceUnitFrom,
		AudienceUnitTo:        src.AudienceUnitTo,
		State:                 model.SessionDraft,
	}
	return cp
}

func signature(s *model.Session, date time.Time) string {
	room, tpl, subject := "", "", ""
	if s.RoomID != nil {
		room = *s.RoomID
	}
	if s.TemplateID != nil {
		tpl = *s.TemplateID
	}
	if s.SubjectID != nil {
		subject = *s.SubjectID
	}
	return strings.Join([]string{date.Format(model.DateLayout), s.TimeStart, s.TimeEnd, s.TeacherID, room, tpl, subject}, "|")
}

func instanceReason(inst *duplicateInstance) string {
	s := inst.session
	return fmt.Sprintf("%s %s-%s：%s", s.Date.Format(model.DateLayout), s.TimeStart, s.TimeEnd, problemText(inst.problem))
}

func problemText(err error) string {
	if appErr, ok := pkgerrors.AsAppError(err); ok {
		if appErr.Code == pkgerrors.CodeValidationFailed {
			return appErr.Message
		}
		return string(appErr.Code)
	}
	return err.Error()
}

func firstProblem(instances []*duplicateInstance) error {
	for _, inst := range instances {
		if inst.problem != nil {
			return inst.problem
		}
	}
	return nil
}

// ── 辅助函数 ──

func (s *agendaService) logFailure(msg, id string, err error) {
	if _, ok := pkgerrors.AsAppError(err); ok {
		return
	}
	s.logger.Error(msg, zap.String("agenda_id", id), zap.Error(err))
}

// agendaCode 生成排课表编码 AG-<校区编码>-<yyyymmdd>-<8 位随机>
func agendaCode(campus *model.Campus, start time.Time) string {
	return fmt.Sprintf("AG-%s-%s-%s", campus.Code, start.Format("20060102"), uuid.NewString()[:8])
}

func parseRange(from, to string) (time.Time, time.Time, error) {
	start, err := parseDate(from)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDate(to)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, pkgerrors.ErrValidation.WithMessage("结束日期不能早于开始日期")
	}
	if end.Sub(start) > maxAgendaSpanDays*24*time.Hour {
		return time.Time{}, time.Time{}, pkgerrors.ErrValidation.WithMessage("日期跨度不能超过 %d 天", maxAgendaSpanDays)
	}
	return start, end, nil
}

// validateWindow 时间窗必须在校区营业时间内
func validateWindow(campus *model.Campus, start, end string) error {
	if _, err := parseClock(start); err != nil {
		return err
	}
	if _, err := parseClock(end); err != nil {
		return err
	}
	if start >= end {
		return pkgerrors.ErrValidation.WithMessage("开始时间必须早于结束时间")
	}
	if start < campus.OpenTime || end > campus.CloseTime {
		return pkgerrors.ErrValidation.
			WithMessage("时间窗超出校区营业时间").
			WithHint("校区 %s 营业时间为 %s-%s", campus.Name, campus.OpenTime, campus.CloseTime)
	}
	return nil
}

func collectIssues(sessions []model.Session) []string {
	var issues []string
	for i := range sessions {
		if sessions[i].IsTerminal() {
			continue
		}
		issues = append(issues, sessionIssues(&sessions[i])...)
	}
	return issues
}

func liveSessions(sessions []model.Session) []*model.Session {
	out := make([]*model.Session, 0, len(sessions))
	for i := range sessions {
		if sessions[i].State != model.SessionCancelled {
			out = append(out, &sessions[i])
		}
	}
	return out
}

func anyStarted(sessions []model.Session) bool {
	for i := range sessions {
		if sessions[i].State == model.SessionStarted || sessions[i].State == model.SessionDone {
			return true
		}
	}
	return false
}

func anyInProgress(sessions []model.Session) bool {
	for i := range sessions {
		if sessions[i].State == model.SessionStarted {
			return true
		}
	}
	return false
}

func agendaStateLabel(state string) string {
	switch state {
	case model.AgendaExecuted:
		return "执行完毕"
	case model.AgendaClosed:
		return "关闭"
	case model.AgendaPublished:
		return "发布"
	}
	return state
}

// [自证通过] internal/service/agenda_service.go
