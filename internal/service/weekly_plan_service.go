package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"ailumex-academy/internal/dto"
	"ailumex-academy/internal/lifecycle"
	"ailumex-academy/internal/model"
	"ailumex-academy/internal/repository"
	pkgerrors "ailumex-academy/pkg/errors"
)

// WeeklyPlanService 学员门户周计划业务接口
//
// studentID 为空表示运营人员代为操作，不校验计划归属。
type WeeklyPlanService interface {
	GetOrCreate(ctx context.Context, studentID string, q *dto.PlanQuery) (*dto.WeeklyPlanResponse, error)
	Available(ctx context.Context, planID, studentID string) ([]dto.BookableSessionResponse, error)
	AddLine(ctx context.Context, planID, studentID string, req *dto.AddPlanLineRequest, callerID string) (*dto.PlanLineResponse, error)
	RemoveLine(ctx context.Context, lineID, studentID, callerID string) (*dto.RemovePlanLineResponse, error)
}

type weeklyPlanService struct {
	repo        *repository.Repository
	policy      PolicyService
	enrollments *enrollmentService
	rt          *Runtime
	logger      *zap.Logger
}

func newWeeklyPlanService(repo *repository.Repository, policy PolicyService, enrollments *enrollmentService, rt *Runtime) *weeklyPlanService {
	return &weeklyPlanService{repo: repo, policy: policy, enrollments: enrollments, rt: rt, logger: rt.Logger}
}

// NewWeeklyPlanService 创建 WeeklyPlanService 实例
func NewWeeklyPlanService(repo *repository.Repository, policy PolicyService, rt *Runtime) WeeklyPlanService {
	history := newHistoryService(repo, policy, rt)
	return newWeeklyPlanService(repo, policy, newEnrollmentService(repo, policy, history, rt), rt)
}

// ────────────────────── GetOrCreate ──────────────────────

func (s *weeklyPlanService) GetOrCreate(ctx context.Context, studentID string, q *dto.PlanQuery) (*dto.WeeklyPlanResponse, error) {
	day, err := parseDate(q.Week)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.Student.GetByID(ctx, studentID); err != nil {
		return nil, notFound(err, "学员")
	}
	weekStart := model.WeekStart(day)

	plan, err := s.repo.WeeklyPlan.GetByStudentWeek(ctx, studentID, weekStart)
	if err != nil {
		s.logger.Error("查询周计划失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}

	if plan == nil {
		plan = &model.WeeklyPlan{
			StudentID:      studentID,
			WeekStart:      weekStart,
			WeekEnd:        weekStart.AddDate(0, 0, 6),
			FilterCampusID: q.CampusID,
			FilterCity:     q.City,
		}
		plan.CreatedBy = strPtr(studentID)
		if err := s.repo.WeeklyPlan.Create(ctx, plan); err != nil {
			if !errors.Is(err, pkgerrors.ErrConcurrentModify) {
				s.logger.Error("创建周计划失败", zap.String("student_id", studentID), zap.Error(err))
				return nil, err
			}
			// 并发请求已创建同一周的计划
			plan, err = s.repo.WeeklyPlan.GetByStudentWeek(ctx, studentID, weekStart)
			if err != nil || plan == nil {
				return nil, pkgerrors.ErrConcurrentModify
			}
		}
		return toWeeklyPlanResponse(plan), nil
	}

	if filtersChanged(plan, q) {
		plan.FilterCampusID, plan.FilterCity = q.CampusID, q.City
		if err := s.repo.WeeklyPlan.UpdateFilters(ctx, plan); err != nil {
			s.logger.Error("更新周计划筛选条件失败", zap.String("plan_id", plan.PlanID), zap.Error(err))
			return nil, err
		}
	}
	return toWeeklyPlanResponse(plan), nil
}

func filtersChanged(p *model.WeeklyPlan, q *dto.PlanQuery) bool {
	if q.CampusID == nil && q.City == nil {
		return false
	}
	return !sameStr(p.FilterCampusID, q.CampusID) || !sameStr(p.FilterCity, q.City)
}

func sameStr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// ────────────────────── Available ──────────────────────

// Available 列出本周可预约课节，并预演校验链给出实际科目或拒绝原因
func (s *weeklyPlanService) Available(ctx context.Context, planID, studentID string) ([]dto.BookableSessionResponse, error) {
	plan, err := s.ownedPlan(ctx, planID, studentID)
	if err != nil {
		return nil, err
	}
	policy, err := s.policy.Current(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := loadSnapshot(ctx, s.repo, plan.StudentID, "", policy)
	if err != nil {
		return nil, err
	}

	sessions, err := s.repo.Session.ListBookable(ctx, repository.WeekQuery{
		From:     plan.WeekStart,
		To:       plan.WeekEnd,
		CampusID: plan.FilterCampusID,
		City:     plan.FilterCity,
	})
	if err != nil {
		s.logger.Error("查询可预约课节失败", zap.String("plan_id", planID), zap.Error(err))
		return nil, err
	}

	inPlan := make(map[string]bool, len(plan.Lines))
	for i := range plan.Lines {
		inPlan[plan.Lines[i].SessionID] = true
	}

	now := s.rt.now()
	result := make([]dto.BookableSessionResponse, 0, len(sessions))
	for i := range sessions {
		session := &sessions[i]
		if inPlan[session.SessionID] {
			continue
		}
		item := dto.BookableSessionResponse{Session: *toSessionResponse(session)}
		subject, err := s.validateLine(ctx, plan, session, snap, now)
		if err != nil {
			appErr, ok := pkgerrors.AsAppError(err)
			if !ok {
				return nil, err
			}
			item.RejectCode = string(appErr.Code)
			item.RejectHint = appErr.Hint
		} else {
			item.Bookable = true
			item.EffectiveSubject = toSubjectBrief(subject)
		}
		result = append(result, item)
	}
	return result, nil
}

// ────────────────────── AddLine ──────────────────────

func (s *weeklyPlanService) AddLine(ctx context.Context, planID, studentID string, req *dto.AddPlanLineRequest, callerID string) (*dto.PlanLineResponse, error) {
	plan, err := s.ownedPlan(ctx, planID, studentID)
	if err != nil {
		return nil, err
	}

	release, err := s.rt.lock(ctx, planLockKey(plan.StudentID))
	if err != nil {
		return nil, err
	}
	defer release()

	// 持锁后重新读取明细
	if plan, err = s.repo.WeeklyPlan.GetByID(ctx, planID); err != nil {
		return nil, notFound(err, "周计划")
	}

	session, err := s.repo.Session.GetByID(ctx, req.SessionID)
	if err != nil {
		return nil, notFound(err, "课节")
	}
	for i := range plan.Lines {
		if plan.Lines[i].SessionID == session.SessionID {
			return nil, pkgerrors.ErrEnrollmentExists.WithMessage("该课节已在本周计划中")
		}
	}

	policy, err := s.policy.Current(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := loadSnapshot(ctx, s.repo, plan.StudentID, sessionProgram(session), policy)
	if err != nil {
		return nil, err
	}
	if snap.student.IsSuspended() {
		return nil, pkgerrors.ErrStudentSuspended
	}

	now := s.rt.now()
	subject, err := s.validateLine(ctx, plan, session, snap, now)
	if err != nil {
		return nil, err
	}

	ob := &outbox{}
	line := &model.WeeklyPlanLine{
		PlanID:             plan.PlanID,
		SessionID:          session.SessionID,
		EffectiveSubjectID: &subject.SubjectID,
		CreatedAt:          now,
		CreatedBy:          strPtr(callerID),
	}
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		e, err := s.enrollments.seat(ctx, tx, session.SessionID, snap.student, subject.SubjectID, "", callerID)
		if err != nil {
			return err
		}
		line.EnrollmentID = &e.EnrollmentID
		if err := tx.WeeklyPlan.CreateLine(ctx, line); err != nil {
			return err
		}
		return ob.stage(ctx, tx, model.EventPlanLineCreated, line.LineID, map[string]interface{}{
			"line_id":              line.LineID,
			"plan_id":              plan.PlanID,
			"student_id":           plan.StudentID,
			"session_id":           session.SessionID,
			"effective_subject_id": subject.SubjectID,
		}, now)
	})
	if err != nil {
		if _, ok := pkgerrors.AsAppError(err); !ok {
			s.logger.Error("加入周计划失败",
				zap.String("plan_id", planID),
				zap.String("session_id", req.SessionID),
				zap.Error(err))
		}
		return nil, err
	}
	s.rt.flush(ctx, s.repo, ob)

	s.logger.Info("课节已加入周计划",
		zap.String("plan_id", planID),
		zap.String("session_id", session.SessionID),
		zap.String("subject", subject.Code))

	line.Session = session
	line.EffectiveSubject = subject
	resp := toPlanLineResponse(line)
	return &resp, nil
}

// validateLine 依次执行预约校验链，返回实际科目或第一个失败的结构化错误
func (s *weeklyPlanService) validateLine(ctx context.Context, plan *model.WeeklyPlan, session *model.Session, snap *studentSnapshot, now time.Time) (*model.Subject, error) {
	// 1. 课节状态
	switch session.State {
	case model.SessionCancelled:
		return nil, pkgerrors.ErrSessionCancelled
	case model.SessionStarted, model.SessionDone:
		return nil, pkgerrors.ErrSessionFinished
	}
	if !session.IsPublished || !lifecycle.IsBookable(session.State) {
		return nil, pkgerrors.ErrSessionNotPublished
	}

	// 2. 周范围
	if !plan.ContainsDate(session.Date) {
		return nil, pkgerrors.ErrOutOfWeekRange.WithHint("本周计划范围为 %s 至 %s",
			plan.WeekStart.Format(model.DateLayout), plan.WeekEnd.Format(model.DateLayout))
	}

	// 3. 预约截止
	lead := time.Duration(snap.policy.MinAnticipationMinutes) * time.Minute
	if session.StartsAt(bookingLocation(snap.student, session)).Sub(now) < lead {
		return nil, pkgerrors.ErrBookingWindow.WithHint("需在课节开始前 %d 分钟完成预约", snap.policy.MinAnticipationMinutes)
	}

	// 4. 实际科目
	subject, err := resolveFor(ctx, s.repo, snap, session, true, false)
	if err != nil {
		return nil, err
	}

	// 5. 防重复
	for i := range snap.history {
		h := &snap.history[i]
		if h.SubjectID == subject.SubjectID && h.Taken() {
			return nil, pkgerrors.ErrAlreadyCompleted.WithHint("%s 已有出勤记录", subject.Name)
		}
	}
	others := otherLines(plan, session.SessionID)
	for _, l := range others {
		if l.EffectiveSubjectID != nil && *l.EffectiveSubjectID == subject.SubjectID {
			return nil, pkgerrors.ErrAlreadyCompleted.WithMessage("本周计划中已安排 %s", subject.Name)
		}
	}

	// 6. 报读计划（bcheck 不受限）
	if subject.Category != model.CategoryBcheck {
		ok, err := s.repo.Student.PlanIncludesSubject(ctx, snap.student.StudentID, subject.SubjectID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, pkgerrors.ErrEnrollmentMissing.WithHint("%s 不在学员的学习计划中", subject.Name)
		}
	}

	// 7. 前置科目
	completed := snap.completed()
	for i := range subject.Prerequisites {
		p := &subject.Prerequisites[i]
		if p.Category == model.CategoryBcheck {
			if takenInHistory(snap.history, p.SubjectID) || lineWithSubject(others, p.SubjectID) {
				continue
			}
			return nil, pkgerrors.ErrMissingBcheck.WithHint("请先预约 %s", p.Name)
		}
		if !completed[p.SubjectID] {
			return nil, pkgerrors.ErrMissingPrerequisites.WithDetails(p.Name)
		}
	}

	// 8. 每周最多一个 bcheck
	if subject.Category == model.CategoryBcheck {
		for _, l := range others {
			if l.EffectiveSubject != nil && l.EffectiveSubject.Category == model.CategoryBcheck {
				return nil, pkgerrors.ErrBcheckWeeklyLimit.WithHint("本周已预约 %s", l.EffectiveSubject.Name)
			}
		}
	}

	// 9. 实践课需要本单元 bcheck
	if subject.Category == model.CategoryBskills || subject.Category == model.CategoryConversationClub {
		if !bcheckPresent(snap.history, others, subject.Unit()) {
			if subject.Unit() > 0 {
				return nil, pkgerrors.ErrBcheckRequired.WithHint("请先预约第 %d 单元的 bcheck", subject.Unit())
			}
			return nil, pkgerrors.ErrBcheckRequired.WithHint("请先预约一个 bcheck")
		}
	}

	// 10. 口试模块门槛
	if subject.Category == model.CategoryOralTest {
		if _, err := resolveFor(ctx, s.repo, snap, session, true, true); err != nil {
			return nil, err
		}
	}

	// 11. 口试进度门槛
	if subject.Category != model.CategoryOralTest && subject.Unit() > 0 {
		for _, b := range oralBoundaries(snap.policy, snap.maxUnit) {
			if b >= subject.Unit() {
				break
			}
			if !oralTestTaken(snap.history, snap.programID, b) {
				start, _ := blockOf(b, snap.policy)
				return nil, pkgerrors.ErrOralTestPending.WithHint("请先完成第 %d-%d 单元的口试", start, b)
			}
		}
	}

	// 12. 时间重叠
	for _, l := range others {
		if l.Session != nil && !l.Session.IsTerminal() && l.Session.Overlaps(session) {
			return nil, pkgerrors.ErrTimeOverlap.WithDetails(l.Session.Date.Format(model.DateLayout) + " " + l.Session.TimeStart + "-" + l.Session.TimeEnd)
		}
	}

	return subject, nil
}

// ────────────────────── RemoveLine ──────────────────────

func (s *weeklyPlanService) RemoveLine(ctx context.Context, lineID, studentID, callerID string) (*dto.RemovePlanLineResponse, error) {
	line, err := s.repo.WeeklyPlan.GetLine(ctx, lineID)
	if err != nil {
		return nil, notFound(err, "周计划明细")
	}
	plan, err := s.ownedPlan(ctx, line.PlanID, studentID)
	if err != nil {
		return nil, err
	}

	release, err := s.rt.lock(ctx, planLockKey(plan.StudentID))
	if err != nil {
		return nil, err
	}
	defer release()

	if plan, err = s.repo.WeeklyPlan.GetByID(ctx, line.PlanID); err != nil {
		return nil, notFound(err, "周计划")
	}
	root := findLine(plan.Lines, lineID)
	if root == nil {
		return nil, pkgerrors.ErrNotFound.WithMessage("周计划明细不存在")
	}
	if root.Session != nil && (root.Session.State == model.SessionStarted || root.Session.State == model.SessionDone) {
		return nil, pkgerrors.ErrSessionFinished.WithMessage("课节已开始或已结束，不能移出周计划")
	}

	ids := cascadeClosure(plan.Lines, lineID)
	now := s.rt.now()
	ob := &outbox{}
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		for _, id := range ids {
			l := findLine(plan.Lines, id)
			if l.EnrollmentID != nil {
				if err := s.enrollments.unseat(ctx, tx, *l.EnrollmentID, callerID); err != nil {
					return err
				}
			}
			if err := ob.stage(ctx, tx, model.EventPlanLineRemoved, l.LineID, map[string]interface{}{
				"line_id":    l.LineID,
				"plan_id":    plan.PlanID,
				"student_id": plan.StudentID,
				"session_id": l.SessionID,
				"cascade_of": cascadeOf(l.LineID, lineID),
			}, now); err != nil {
				return err
			}
		}
		return tx.WeeklyPlan.DeleteLines(ctx, ids)
	})
	if err != nil {
		if _, ok := pkgerrors.AsAppError(err); !ok {
			s.logger.Error("移出周计划失败", zap.String("line_id", lineID), zap.Error(err))
		}
		return nil, err
	}
	s.rt.flush(ctx, s.repo, ob)

	s.logger.Info("周计划明细已移除",
		zap.String("line_id", lineID),
		zap.Int("cascaded", len(ids)-1))
	return &dto.RemovePlanLineResponse{Removed: ids[:1], Cascaded: append([]string{}, ids[1:]...)}, nil
}

// cascadeClosure 计算移除明细后需要一并移除的依赖明细
//
// 依赖关系：明细的实际科目以已移除科目为前置。bcheck 不触发级联；
// 已开课或已完成课节的明细不参与级联。返回值首元素为 rootID。
func cascadeClosure(lines []model.WeeklyPlanLine, rootID string) []string {
	root := findLine(lines, rootID)
	removed := []string{rootID}
	if root == nil || root.EffectiveSubject == nil || root.EffectiveSubject.Category == model.CategoryBcheck {
		return removed
	}

	gone := map[string]bool{root.EffectiveSubject.SubjectID: true}
	inSet := map[string]bool{rootID: true}
	for changed := true; changed; {
		changed = false
		for i := range lines {
			l := &lines[i]
			if inSet[l.LineID] || l.EffectiveSubject == nil {
				continue
			}
			if l.Session != nil && (l.Session.State == model.SessionStarted || l.Session.State == model.SessionDone) {
				continue
			}
			for j := range l.EffectiveSubject.Prerequisites {
				if !gone[l.EffectiveSubject.Prerequisites[j].SubjectID] {
					continue
				}
				inSet[l.LineID] = true
				removed = append(removed, l.LineID)
				if l.EffectiveSubject.Category != model.CategoryBcheck {
					gone[l.EffectiveSubject.SubjectID] = true
				}
				changed = true
				break
			}
		}
	}
	return removed
}

// ── 辅助函数 ──

func (s *weeklyPlanService) ownedPlan(ctx context.Context, planID, studentID string) (*model.WeeklyPlan, error) {
	plan, err := s.repo.WeeklyPlan.GetByID(ctx, planID)
	if err != nil {
		return nil, notFound(err, "周计划")
	}
	if studentID != "" && plan.StudentID != studentID {
		return nil, pkgerrors.ErrForbidden
	}
	return plan, nil
}

func findLine(lines []model.WeeklyPlanLine, id string) *model.WeeklyPlanLine {
	for i := range lines {
		if lines[i].LineID == id {
			return &lines[i]
		}
	}
	return nil
}

func cascadeOf(lineID, rootID string) string {
	if lineID == rootID {
		return ""
	}
	return rootID
}

// otherLines 计划中除该课节外的明细
func otherLines(plan *model.WeeklyPlan, sessionID string) []*model.WeeklyPlanLine {
	out := make([]*model.WeeklyPlanLine, 0, len(plan.Lines))
	for i := range plan.Lines {
		if plan.Lines[i].SessionID != sessionID {
			out = append(out, &plan.Lines[i])
		}
	}
	return out
}

func lineWithSubject(lines []*model.WeeklyPlanLine, subjectID string) bool {
	for _, l := range lines {
		if l.EffectiveSubjectID != nil && *l.EffectiveSubjectID == subjectID {
			return true
		}
	}
	return false
}

func takenInHistory(history []model.AcademicHistory, subjectID string) bool {
	for i := range history {
		if history[i].SubjectID == subjectID && history[i].Taken() {
			return true
		}
	}
	return false
}

// bcheckPresent 学习记录中出席过该单元 bcheck，或本周计划中有覆盖该单元的 bcheck
// unit 为 0 时任意 bcheck 均可
func bcheckPresent(history []model.AcademicHistory, lines []*model.WeeklyPlanLine, unit int) bool {
	for i := range history {
		h := &history[i]
		if h.SubjectCategory == model.CategoryBcheck && h.Attended() && (unit == 0 || h.Unit() == unit) {
			return true
		}
	}
	for _, l := range lines {
		if l.EffectiveSubject == nil || l.EffectiveSubject.Category != model.CategoryBcheck {
			continue
		}
		if unit == 0 || l.EffectiveSubject.Unit() == unit {
			return true
		}
	}
	return false
}

// oralBoundaries 口试模块边界；未配置时按模块大小推算
func oralBoundaries(p *model.BookingPolicy, maxUnit int) []int {
	if len(p.OralBlockBoundaries) > 0 {
		return p.OralBlockBoundaries
	}
	size := p.BlockSizeDefault
	if size <= 0 {
		size = 4
	}
	var out []int
	for b := size; b <= maxUnit; b += size {
		out = append(out, b)
	}
	return out
}

func blockOf(end int, p *model.BookingPolicy) (int, int) {
	size := p.BlockSizeDefault
	if size <= 0 {
		size = 4
	}
	start := end - size + 1
	if start < 1 {
		start = 1
	}
	return start, end
}

// oralTestTaken 是否有以 end 为模块末单元的口试出勤或缺勤记录
func oralTestTaken(history []model.AcademicHistory, programID string, end int) bool {
	for i := range history {
		h := &history[i]
		if h.SubjectCategory != model.CategoryOralTest || !h.Taken() {
			continue
		}
		if h.UnitBlockEnd == nil || *h.UnitBlockEnd != end {
			continue
		}
		if programID == "" || h.ProgramID == nil || *h.ProgramID == programID {
			return true
		}
	}
	return false
}

// bookingLocation 预约截止按学员时区计算，未设置时取校区时区
func bookingLocation(student *model.Student, session *model.Session) *time.Location {
	if student != nil && student.Timezone != "" {
		return model.LoadLocation(student.Timezone)
	}
	if session.Agenda != nil && session.Agenda.Campus != nil {
		return session.Agenda.Campus.Location()
	}
	return time.UTC
}

// [自证通过] internal/service/weekly_plan_service.go
