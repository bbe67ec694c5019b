package service

import (
	"time"

	"ailumex-academy/internal/dto"
	"ailumex-academy/internal/model"
)

// ── 模型 → 响应 DTO ──

func toAgendaResponse(a *model.Agenda, sessionCount int) *dto.AgendaResponse {
	resp := &dto.AgendaResponse{
		ID:               a.AgendaID,
		Code:             a.Code,
		Name:             a.Name,
		CampusID:         a.CampusID,
		DateStart:        a.DateStart.Format(model.DateLayout),
		DateEnd:          a.DateEnd.Format(model.DateLayout),
		TimeStart:        a.TimeStart,
		TimeEnd:          a.TimeEnd,
		State:            a.State,
		Version:          a.Version,
		DuplicatedFromID: a.DuplicatedFromID,
		PublishedAt:      formatTime(a.PublishedAt),
		SessionCount:     sessionCount,
		CreatedAt:        a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        a.UpdatedAt.Format(time.RFC3339),
	}
	if a.Campus != nil {
		resp.CampusName = a.Campus.Name
	}
	return resp
}

func toSubjectBrief(s *model.Subject) *dto.SubjectBrief {
	if s == nil {
		return nil
	}
	return &dto.SubjectBrief{
		ID:             s.SubjectID,
		Code:           s.Code,
		Name:           s.Name,
		Category:       s.Category,
		UnitNumber:     s.UnitNumber,
		BskillNumber:   s.BskillNumber,
		UnitBlockStart: s.UnitBlockStart,
		UnitBlockEnd:   s.UnitBlockEnd,
	}
}

func toSessionResponse(s *model.Session) *dto.SessionResponse {
	resp := &dto.SessionResponse{
		ID:                    s.SessionID,
		AgendaID:              s.AgendaID,
		Date:                  s.Date.Format(model.DateLayout),
		TimeStart:             s.TimeStart,
		TimeEnd:               s.TimeEnd,
		TeacherID:             s.TeacherID,
		RoomID:                s.RoomID,
		TemplateID:            s.TemplateID,
		Subject:               toSubjectBrief(s.Subject),
		DeliveryMode:          s.DeliveryMode,
		MaxCapacity:           s.MaxCapacity,
		MaxCapacityPresential: s.MaxCapacityPresential,
		MaxCapacityVirtual:    s.MaxCapacityVirtual,
		AudienceUnitFrom:      s.AudienceUnitFrom,
		AudienceUnitTo:        s.AudienceUnitTo,
		State:                 s.State,
		IsPublished:           s.IsPublished,
		Version:               s.Version,
		CancelReason:          s.CancelReason,
	}
	if s.Teacher != nil {
		resp.Teacher = &dto.TeacherBrief{ID: s.Teacher.TeacherID, Name: s.Teacher.Name, MeetingLink: s.Teacher.MeetingLink}
	}
	if s.Room != nil {
		resp.RoomName = s.Room.Name
	}
	if s.Template != nil {
		resp.TemplateName = s.Template.Name
	}
	return resp
}

func toEnrollmentResponse(e *model.SessionEnrollment) *dto.EnrollmentResponse {
	return &dto.EnrollmentResponse{
		ID:               e.EnrollmentID,
		SessionID:        e.SessionID,
		StudentID:        e.StudentID,
		State:            e.State,
		DeliveryMode:     e.DeliveryMode,
		EffectiveSubject: toSubjectBrief(e.EffectiveSubject),
		SubjectFrozen:    e.SubjectFrozen,
		AttendanceAt:     formatTime(e.AttendanceMarkedAt),
	}
}

func toHistoryResponse(h *model.AcademicHistory) dto.HistoryResponse {
	return dto.HistoryResponse{
		ID:               h.HistoryID,
		StudentID:        h.StudentID,
		SessionID:        h.SessionID,
		SubjectID:        h.SubjectID,
		SubjectName:      h.SubjectName,
		SubjectCategory:  h.SubjectCategory,
		UnitNumber:       h.UnitNumber,
		BskillNumber:     h.BskillNumber,
		UnitBlockStart:   h.UnitBlockStart,
		UnitBlockEnd:     h.UnitBlockEnd,
		SessionDate:      h.SessionDate.Format(model.DateLayout),
		DeliveryMode:     h.DeliveryMode,
		AttendanceStatus: h.AttendanceStatus,
		Grade:            h.Grade,
		Notes:            h.Notes,
		GradedAt:         formatTime(h.GradedAt),
	}
}

func toPlanLineResponse(l *model.WeeklyPlanLine) dto.PlanLineResponse {
	resp := dto.PlanLineResponse{
		ID:               l.LineID,
		SessionID:        l.SessionID,
		EffectiveSubject: toSubjectBrief(l.EffectiveSubject),
		EnrollmentID:     l.EnrollmentID,
	}
	if l.Session != nil {
		resp.Date = l.Session.Date.Format(model.DateLayout)
		resp.TimeStart = l.Session.TimeStart
		resp.TimeEnd = l.Session.TimeEnd
		resp.SessionState = l.Session.State
	}
	return resp
}

func toWeeklyPlanResponse(p *model.WeeklyPlan) *dto.WeeklyPlanResponse {
	resp := &dto.WeeklyPlanResponse{
		ID:             p.PlanID,
		StudentID:      p.StudentID,
		WeekStart:      p.WeekStart.Format(model.DateLayout),
		WeekEnd:        p.WeekEnd.Format(model.DateLayout),
		FilterCampusID: p.FilterCampusID,
		FilterCity:     p.FilterCity,
		Lines:          make([]dto.PlanLineResponse, 0, len(p.Lines)),
	}
	for i := range p.Lines {
		resp.Lines = append(resp.Lines, toPlanLineResponse(&p.Lines[i]))
	}
	return resp
}

func toPolicyResponse(p *model.BookingPolicy) *dto.BookingPolicyResponse {
	return &dto.BookingPolicyResponse{
		MinAnticipationMinutes: p.MinAnticipationMinutes,
		OralTestMinGrade:       p.OralTestMinGrade,
		PairSizeDefault:        p.PairSizeDefault,
		BlockSizeDefault:       p.BlockSizeDefault,
		MaxUnitDefault:         p.MaxUnitDefault,
		OralBlockBoundaries:    []int(p.OralBlockBoundaries),
		UpdatedAt:              p.UpdatedAt.Format(time.RFC3339),
	}
}

// [自证通过] internal/service/convert.go
