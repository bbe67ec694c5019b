package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"ailumex-academy/internal/model"
	"ailumex-academy/internal/repository"
	pkgerrors "ailumex-academy/pkg/errors"
)

// ── 内存数据集 ──

// memStore 各 mock repository 共享的数据，模拟预加载、唯一约束与乐观锁
type memStore struct {
	seq int

	programs           map[string]*model.Program
	subjects           map[string]*model.Subject
	templates          map[string]*model.Template
	campuses           map[string]*model.Campus
	rooms              map[string]*model.Room
	teachers           map[string]*model.Teacher
	students           map[string]*model.Student
	programEnrollments map[string]*model.ProgramEnrollment // key: student_id
	planSubjects       map[string]map[string]bool         // student_id → subject_id
	agendas            map[string]*model.Agenda
	sessions           map[string]*model.Session
	enrollments        map[string]*model.SessionEnrollment
	histories          map[string]*model.AcademicHistory
	plans              map[string]*model.WeeklyPlan
	lines              map[string]*model.WeeklyPlanLine
	policy             *model.BookingPolicy
	replacementLogs    []model.TeacherReplacementLog
	duplications       []model.AgendaDuplication
	outbox             []*model.OutboxEvent
	leases             map[string]*model.CronJobLease
}

func newMemStore() *memStore {
	return &memStore{
		programs:           make(map[string]*model.Program),
		subjects:           make(map[string]*model.Subject),
		templates:          make(map[string]*model.Template),
		campuses:           make(map[string]*model.Campus),
		rooms:              make(map[string]*model.Room),
		teachers:           make(map[string]*model.Teacher),
		students:           make(map[string]*model.Student),
		programEnrollments: make(map[string]*model.ProgramEnrollment),
		planSubjects:       make(map[string]map[string]bool),
		agendas:            make(map[string]*model.Agenda),
		sessions:           make(map[string]*model.Session),
		enrollments:        make(map[string]*model.SessionEnrollment),
		histories:          make(map[string]*model.AcademicHistory),
		plans:              make(map[string]*model.WeeklyPlan),
		lines:              make(map[string]*model.WeeklyPlanLine),
		leases:             make(map[string]*model.CronJobLease),
	}
}

// nextID 生成按创建顺序可排序的 ID
func (st *memStore) nextID(prefix string) string {
	st.seq++
	return fmt.Sprintf("%s-%04d", prefix, st.seq)
}

// repository 组装 db 为空的 Repository，Transaction 直接执行回调
func (st *memStore) repository() *repository.Repository {
	return &repository.Repository{
		Catalog:    &mockCatalogRepo{st},
		Resource:   &mockResourceRepo{st},
		Student:    &mockStudentRepo{st},
		Agenda:     &mockAgendaRepo{st},
		Session:    &mockSessionRepo{st},
		Enrollment: &mockEnrollmentRepo{st},
		History:    &mockHistoryRepo{st},
		WeeklyPlan: &mockWeeklyPlanRepo{st},
		Policy:     &mockPolicyRepo{st},
		Audit:      &mockAuditRepo{st},
		Outbox:     &mockOutboxRepo{st},
		CronJob:    &mockCronJobRepo{st},
	}
}

// ── 预加载辅助 ──

func (st *memStore) subjectCopy(id string) *model.Subject {
	s, ok := st.subjects[id]
	if !ok {
		return nil
	}
	cp := *s
	cp.Prerequisites = append([]model.Subject(nil), s.Prerequisites...)
	return &cp
}

func (st *memStore) agendaWith(a *model.Agenda) *model.Agenda {
	cp := *a
	cp.Sessions = nil
	cp.Campus = nil
	if c, ok := st.campuses[a.CampusID]; ok {
		campus := *c
		cp.Campus = &campus
	}
	return &cp
}

func (st *memStore) sessionWith(s *model.Session) model.Session {
	cp := *s
	if a, ok := st.agendas[s.AgendaID]; ok {
		cp.Agenda = st.agendaWith(a)
	}
	if t, ok := st.teachers[s.TeacherID]; ok {
		teacher := *t
		cp.Teacher = &teacher
	}
	if s.RoomID != nil {
		if r, ok := st.rooms[*s.RoomID]; ok {
			room := *r
			cp.Room = &room
		}
	}
	if s.TemplateID != nil {
		if t, ok := st.templates[*s.TemplateID]; ok {
			tpl := *t
			cp.Template = &tpl
		}
	}
	if s.SubjectID != nil {
		cp.Subject = st.subjectCopy(*s.SubjectID)
	}
	return cp
}

func (st *memStore) enrollmentWith(e *model.SessionEnrollment) model.SessionEnrollment {
	cp := *e
	if s, ok := st.sessions[e.SessionID]; ok {
		session := *s
		cp.Session = &session
	}
	if e.EffectiveSubjectID != nil {
		cp.EffectiveSubject = st.subjectCopy(*e.EffectiveSubjectID)
	}
	if s, ok := st.students[e.StudentID]; ok {
		student := *s
		cp.Student = &student
	}
	return cp
}

func (st *memStore) lineWith(l *model.WeeklyPlanLine) model.WeeklyPlanLine {
	cp := *l
	if s, ok := st.sessions[l.SessionID]; ok {
		session := *s
		cp.Session = &session
	}
	if l.EffectiveSubjectID != nil {
		cp.EffectiveSubject = st.subjectCopy(*l.EffectiveSubjectID)
	}
	return cp
}

func (st *memStore) linesWhere(match func(l *model.WeeklyPlanLine) bool) []model.WeeklyPlanLine {
	ids := make([]string, 0, len(st.lines))
	for id, l := range st.lines {
		if match(l) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	out := make([]model.WeeklyPlanLine, 0, len(ids))
	for _, id := range ids {
		out = append(out, st.lineWith(st.lines[id]))
	}
	return out
}

func (st *memStore) sessionsWhere(match func(s *model.Session) bool) []model.Session {
	var list []*model.Session
	for _, s := range st.sessions {
		if match(s) {
			list = append(list, s)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].Date.Equal(list[j].Date) {
			return list[i].Date.Before(list[j].Date)
		}
		if list[i].StartMinute != list[j].StartMinute {
			return list[i].StartMinute < list[j].StartMinute
		}
		return list[i].SessionID < list[j].SessionID
	})
	out := make([]model.Session, 0, len(list))
	for _, s := range list {
		out = append(out, st.sessionWith(s))
	}
	return out
}

// ── Mock CatalogRepository ──

type mockCatalogRepo struct{ st *memStore }

func (m *mockCatalogRepo) GetProgram(_ context.Context, id string) (*model.Program, error) {
	p, ok := m.st.programs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockCatalogRepo) GetSubject(_ context.Context, id string) (*model.Subject, error) {
	if s := m.st.subjectCopy(id); s != nil {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCatalogRepo) ListSubjects(_ context.Context, programID string) ([]model.Subject, error) {
	ids := make([]string, 0, len(m.st.subjects))
	for id, s := range m.st.subjects {
		if programID == "" || s.ProgramID == programID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	out := make([]model.Subject, 0, len(ids))
	for _, id := range ids {
		out = append(out, *m.st.subjectCopy(id))
	}
	return out, nil
}

func (m *mockCatalogRepo) GetTemplate(_ context.Context, id string) (*model.Template, error) {
	t, ok := m.st.templates[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

// ── Mock ResourceRepository ──

type mockResourceRepo struct{ st *memStore }

func (m *mockResourceRepo) GetCampus(_ context.Context, id string) (*model.Campus, error) {
	c, ok := m.st.campuses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockResourceRepo) GetRoom(_ context.Context, id string) (*model.Room, error) {
	r, ok := m.st.rooms[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockResourceRepo) GetTeacher(_ context.Context, id string) (*model.Teacher, error) {
	t, ok := m.st.teachers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *mockResourceRepo) ListTeachersForCampus(_ context.Context, campusID string) ([]model.Teacher, error) {
	var out []model.Teacher
	for _, t := range m.st.teachers {
		if t.TeachesAt(campusID) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TeacherID < out[j].TeacherID })
	return out, nil
}

func (m *mockResourceRepo) ListRoomsForCampus(_ context.Context, campusID string) ([]model.Room, error) {
	var out []model.Room
	for _, r := range m.st.rooms {
		if r.CampusID == campusID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out, nil
}

// ── Mock StudentRepository ──

type mockStudentRepo struct{ st *memStore }

func (m *mockStudentRepo) GetByID(_ context.Context, id string) (*model.Student, error) {
	s, ok := m.st.students[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	if s.ProgramID != nil {
		if p, ok := m.st.programs[*s.ProgramID]; ok {
			program := *p
			cp.Program = &program
		}
	}
	return &cp, nil
}

func (m *mockStudentRepo) GetActiveProgramEnrollment(_ context.Context, studentID string) (*model.ProgramEnrollment, error) {
	pe, ok := m.st.programEnrollments[studentID]
	if !ok || pe.State != "active" {
		return nil, nil
	}
	cp := *pe
	return &cp, nil
}

func (m *mockStudentRepo) PlanIncludesSubject(_ context.Context, studentID, subjectID string) (bool, error) {
	pe, ok := m.st.programEnrollments[studentID]
	if !ok || pe.State != "active" {
		return false, nil
	}
	return m.st.planSubjects[studentID][subjectID], nil
}

// ── Mock AgendaRepository ──

type mockAgendaRepo struct{ st *memStore }

func (m *mockAgendaRepo) Create(_ context.Context, agenda *model.Agenda) error {
	if agenda.AgendaID == "" {
		agenda.AgendaID = m.st.nextID("agenda")
	}
	agenda.Version = 1
	cp := *agenda
	cp.Campus, cp.Sessions = nil, nil
	m.st.agendas[agenda.AgendaID] = &cp
	return nil
}

func (m *mockAgendaRepo) GetByID(_ context.Context, id string) (*model.Agenda, error) {
	a, ok := m.st.agendas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.st.agendaWith(a), nil
}

func (m *mockAgendaRepo) Update(_ context.Context, agenda *model.Agenda) error {
	stored, ok := m.st.agendas[agenda.AgendaID]
	if !ok || stored.Version != agenda.Version {
		return pkgerrors.ErrOptimisticLock
	}
	agenda.Version++
	cp := *agenda
	cp.Campus, cp.Sessions = nil, nil
	m.st.agendas[agenda.AgendaID] = &cp
	return nil
}

func (m *mockAgendaRepo) Delete(_ context.Context, id string) error {
	delete(m.st.agendas, id)
	for sid, s := range m.st.sessions {
		if s.AgendaID == id {
			delete(m.st.sessions, sid)
		}
	}
	return nil
}

func (m *mockAgendaRepo) ListPublishedEndedBefore(_ context.Context, day time.Time) ([]model.Agenda, error) {
	var out []model.Agenda
	for _, a := range m.st.agendas {
		if a.State == model.AgendaPublished && model.DateOnly(a.DateEnd).Before(model.DateOnly(day)) {
			out = append(out, *m.st.agendaWith(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgendaID < out[j].AgendaID })
	return out, nil
}

func (m *mockAgendaRepo) CreateDuplication(_ context.Context, report *model.AgendaDuplication) error {
	if report.DuplicationID == "" {
		report.DuplicationID = m.st.nextID("dup")
	}
	m.st.duplications = append(m.st.duplications, *report)
	return nil
}

// ── Mock SessionRepository ──

type mockSessionRepo struct{ st *memStore }

func stripSession(s *model.Session) *model.Session {
	cp := *s
	cp.Agenda, cp.Teacher, cp.Room, cp.Template, cp.Subject = nil, nil, nil, nil, nil
	return &cp
}

func (m *mockSessionRepo) Create(_ context.Context, session *model.Session) error {
	if err := session.SyncMinutes(); err != nil {
		return err
	}
	if session.SessionID == "" {
		session.SessionID = m.st.nextID("session")
	}
	session.Version = 1
	m.st.sessions[session.SessionID] = stripSession(session)
	return nil
}

func (m *mockSessionRepo) GetByID(_ context.Context, id string) (*model.Session, error) {
	s, ok := m.st.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := m.st.sessionWith(s)
	return &cp, nil
}

func (m *mockSessionRepo) GetForUpdate(_ context.Context, id string) (*model.Session, error) {
	s, ok := m.st.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	if a, ok := m.st.agendas[s.AgendaID]; ok {
		cp.Agenda = m.st.agendaWith(a)
	}
	return &cp, nil
}

func (m *mockSessionRepo) Update(_ context.Context, session *model.Session) error {
	if err := session.SyncMinutes(); err != nil {
		return err
	}
	stored, ok := m.st.sessions[session.SessionID]
	if !ok || stored.Version != session.Version {
		return pkgerrors.ErrOptimisticLock
	}
	session.Version++
	m.st.sessions[session.SessionID] = stripSession(session)
	return nil
}

func (m *mockSessionRepo) ListByAgenda(_ context.Context, agendaID string) ([]model.Session, error) {
	list := m.st.sessionsWhere(func(s *model.Session) bool { return s.AgendaID == agendaID })
	for i := range list {
		list[i].Agenda = nil
	}
	return list, nil
}

func (m *mockSessionRepo) ListByIDs(_ context.Context, ids []string) ([]model.Session, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return m.st.sessionsWhere(func(s *model.Session) bool { return want[s.SessionID] }), nil
}

func (m *mockSessionRepo) FindConflicts(_ context.Context, q repository.ConflictQuery) ([]model.Session, error) {
	excluded := make(map[string]bool, len(q.ExcludeIDs))
	for _, id := range q.ExcludeIDs {
		excluded[id] = true
	}
	return m.st.sessionsWhere(func(s *model.Session) bool {
		if excluded[s.SessionID] || s.State == model.SessionCancelled {
			return false
		}
		if !model.DateOnly(s.Date).Equal(model.DateOnly(q.Date)) {
			return false
		}
		if !(s.StartMinute < q.EndMinute && q.StartMinute < s.EndMinute) {
			return false
		}
		if s.TeacherID == q.TeacherID {
			return true
		}
		return q.RoomID != nil && s.RoomID != nil && *s.RoomID == *q.RoomID
	}), nil
}

func (m *mockSessionRepo) ListBusy(_ context.Context, date time.Time, startMinute, endMinute int, excludeID string) ([]model.Session, error) {
	return m.st.sessionsWhere(func(s *model.Session) bool {
		return s.SessionID != excludeID &&
			s.State != model.SessionCancelled &&
			model.DateOnly(s.Date).Equal(model.DateOnly(date)) &&
			s.StartMinute < endMinute && startMinute < s.EndMinute
	}), nil
}

func (m *mockSessionRepo) ListStartable(_ context.Context, from, to time.Time) ([]model.Session, error) {
	return m.st.sessionsWhere(func(s *model.Session) bool {
		d := model.DateOnly(s.Date)
		return s.IsPublished &&
			(s.State == model.SessionActive || s.State == model.SessionWithEnrollment) &&
			!d.Before(model.DateOnly(from)) && !d.After(model.DateOnly(to))
	}), nil
}

func (m *mockSessionRepo) ListStarted(_ context.Context, upTo time.Time) ([]model.Session, error) {
	return m.st.sessionsWhere(func(s *model.Session) bool {
		return s.State == model.SessionStarted && !model.DateOnly(s.Date).After(model.DateOnly(upTo))
	}), nil
}

func (m *mockSessionRepo) ListDoneSince(_ context.Context, since time.Time) ([]model.Session, error) {
	return m.st.sessionsWhere(func(s *model.Session) bool {
		return s.State == model.SessionDone && !model.DateOnly(s.Date).Before(model.DateOnly(since))
	}), nil
}

func (m *mockSessionRepo) ListBookable(_ context.Context, q repository.WeekQuery) ([]model.Session, error) {
	return m.st.sessionsWhere(func(s *model.Session) bool {
		d := model.DateOnly(s.Date)
		if !s.IsPublished || (s.State != model.SessionActive && s.State != model.SessionWithEnrollment) {
			return false
		}
		if d.Before(model.DateOnly(q.From)) || d.After(model.DateOnly(q.To)) {
			return false
		}
		agenda, ok := m.st.agendas[s.AgendaID]
		if !ok {
			return false
		}
		if q.CampusID != nil && agenda.CampusID != *q.CampusID {
			return false
		}
		if q.City != nil {
			campus, ok := m.st.campuses[agenda.CampusID]
			if !ok || campus.City != *q.City {
				return false
			}
		}
		return true
	}), nil
}

// ── Mock EnrollmentRepository ──

type mockEnrollmentRepo struct{ st *memStore }

func stripEnrollment(e *model.SessionEnrollment) *model.SessionEnrollment {
	cp := *e
	cp.Session, cp.Student, cp.EffectiveSubject = nil, nil, nil
	return &cp
}

func (m *mockEnrollmentRepo) Create(_ context.Context, e *model.SessionEnrollment) error {
	for _, other := range m.st.enrollments {
		if other.SessionID == e.SessionID && other.StudentID == e.StudentID {
			return pkgerrors.ErrEnrollmentExists
		}
	}
	if e.EnrollmentID == "" {
		e.EnrollmentID = m.st.nextID("enrollment")
	}
	m.st.enrollments[e.EnrollmentID] = stripEnrollment(e)
	return nil
}

func (m *mockEnrollmentRepo) GetByID(_ context.Context, id string) (*model.SessionEnrollment, error) {
	e, ok := m.st.enrollments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := m.st.enrollmentWith(e)
	return &cp, nil
}

func (m *mockEnrollmentRepo) GetBySessionAndStudent(_ context.Context, sessionID, studentID string) (*model.SessionEnrollment, error) {
	for _, e := range m.st.enrollments {
		if e.SessionID == sessionID && e.StudentID == studentID {
			cp := m.st.enrollmentWith(e)
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockEnrollmentRepo) Update(_ context.Context, e *model.SessionEnrollment) error {
	if _, ok := m.st.enrollments[e.EnrollmentID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.st.enrollments[e.EnrollmentID] = stripEnrollment(e)
	return nil
}

func (m *mockEnrollmentRepo) list(match func(e *model.SessionEnrollment) bool) []model.SessionEnrollment {
	var ids []string
	for id, e := range m.st.enrollments {
		if match(e) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	out := make([]model.SessionEnrollment, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.st.enrollmentWith(m.st.enrollments[id]))
	}
	return out
}

func (m *mockEnrollmentRepo) ListBySession(_ context.Context, sessionID string) ([]model.SessionEnrollment, error) {
	return m.list(func(e *model.SessionEnrollment) bool { return e.SessionID == sessionID }), nil
}

func (m *mockEnrollmentRepo) CountOccupied(_ context.Context, sessionID, deliveryMode string) (int64, error) {
	var n int64
	for _, e := range m.st.enrollments {
		if e.SessionID != sessionID || !e.OccupiesSeat() {
			continue
		}
		if deliveryMode != "" && e.DeliveryMode != deliveryMode {
			continue
		}
		n++
	}
	return n, nil
}

func (m *mockEnrollmentRepo) ListOccupiedByStudentOn(_ context.Context, studentID string, date time.Time) ([]model.SessionEnrollment, error) {
	return m.list(func(e *model.SessionEnrollment) bool {
		if e.StudentID != studentID || !e.OccupiesSeat() {
			return false
		}
		s, ok := m.st.sessions[e.SessionID]
		return ok && s.State != model.SessionCancelled && model.DateOnly(s.Date).Equal(model.DateOnly(date))
	}), nil
}

func (m *mockEnrollmentRepo) FreezeSubjects(_ context.Context, sessionID string) error {
	for _, e := range m.st.enrollments {
		if e.SessionID == sessionID {
			e.SubjectFrozen = true
		}
	}
	return nil
}

func (m *mockEnrollmentRepo) CancelPending(_ context.Context, sessionID string) error {
	for _, e := range m.st.enrollments {
		if e.SessionID == sessionID && e.State == model.EnrollmentPending {
			e.State = model.EnrollmentCancelled
		}
	}
	return nil
}

// ── Mock HistoryRepository ──

type mockHistoryRepo struct{ st *memStore }

func (m *mockHistoryRepo) CreateIfAbsent(_ context.Context, h *model.AcademicHistory) (bool, error) {
	if h.SessionID != nil {
		for _, other := range m.st.histories {
			if other.StudentID == h.StudentID && other.SessionID != nil && *other.SessionID == *h.SessionID {
				return false, nil
			}
		}
	}
	if h.HistoryID == "" {
		h.HistoryID = m.st.nextID("history")
	}
	cp := *h
	m.st.histories[h.HistoryID] = &cp
	return true, nil
}

func (m *mockHistoryRepo) GetByID(_ context.Context, id string) (*model.AcademicHistory, error) {
	h, ok := m.st.histories[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *h
	return &cp, nil
}

func (m *mockHistoryRepo) GetBySessionAndStudent(_ context.Context, sessionID, studentID string) (*model.AcademicHistory, error) {
	for _, h := range m.st.histories {
		if h.StudentID == studentID && h.SessionID != nil && *h.SessionID == sessionID {
			cp := *h
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockHistoryRepo) ListByStudent(_ context.Context, studentID string) ([]model.AcademicHistory, error) {
	var out []model.AcademicHistory
	for _, h := range m.st.histories {
		if h.StudentID == studentID {
			out = append(out, *h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SessionDate.Equal(out[j].SessionDate) {
			return out[i].SessionDate.Before(out[j].SessionDate)
		}
		return out[i].HistoryID < out[j].HistoryID
	})
	return out, nil
}

func (m *mockHistoryRepo) UpdateAttendance(_ context.Context, h *model.AcademicHistory) error {
	stored, ok := m.st.histories[h.HistoryID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.AttendanceStatus = h.AttendanceStatus
	stored.AttendanceBy = h.AttendanceBy
	stored.AttendanceAt = h.AttendanceAt
	return nil
}

func (m *mockHistoryRepo) UpdateGrade(_ context.Context, h *model.AcademicHistory) error {
	stored, ok := m.st.histories[h.HistoryID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Grade = h.Grade
	stored.Notes = h.Notes
	stored.GradedBy = h.GradedBy
	stored.GradedAt = h.GradedAt
	return nil
}

// ── Mock WeeklyPlanRepository ──

type mockWeeklyPlanRepo struct{ st *memStore }

func (m *mockWeeklyPlanRepo) withLines(p *model.WeeklyPlan) *model.WeeklyPlan {
	cp := *p
	cp.Lines = m.st.linesWhere(func(l *model.WeeklyPlanLine) bool { return l.PlanID == p.PlanID })
	return &cp
}

func (m *mockWeeklyPlanRepo) Create(_ context.Context, plan *model.WeeklyPlan) error {
	for _, p := range m.st.plans {
		if p.StudentID == plan.StudentID && model.DateOnly(p.WeekStart).Equal(model.DateOnly(plan.WeekStart)) {
			return pkgerrors.ErrConcurrentModify
		}
	}
	if plan.PlanID == "" {
		plan.PlanID = m.st.nextID("plan")
	}
	cp := *plan
	cp.Lines = nil
	m.st.plans[plan.PlanID] = &cp
	return nil
}

func (m *mockWeeklyPlanRepo) GetByID(_ context.Context, id string) (*model.WeeklyPlan, error) {
	p, ok := m.st.plans[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.withLines(p), nil
}

func (m *mockWeeklyPlanRepo) GetByStudentWeek(_ context.Context, studentID string, weekStart time.Time) (*model.WeeklyPlan, error) {
	for _, p := range m.st.plans {
		if p.StudentID == studentID && model.DateOnly(p.WeekStart).Equal(model.DateOnly(weekStart)) {
			return m.withLines(p), nil
		}
	}
	return nil, nil
}

func (m *mockWeeklyPlanRepo) UpdateFilters(_ context.Context, plan *model.WeeklyPlan) error {
	stored, ok := m.st.plans[plan.PlanID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.FilterCampusID, stored.FilterCity = plan.FilterCampusID, plan.FilterCity
	return nil
}

func (m *mockWeeklyPlanRepo) CreateLine(_ context.Context, line *model.WeeklyPlanLine) error {
	for _, l := range m.st.lines {
		if l.PlanID == line.PlanID && l.SessionID == line.SessionID {
			return pkgerrors.ErrEnrollmentExists.WithMessage("该课节已在本周计划中")
		}
	}
	if line.LineID == "" {
		line.LineID = m.st.nextID("line")
	}
	cp := *line
	cp.Session, cp.EffectiveSubject = nil, nil
	m.st.lines[line.LineID] = &cp
	return nil
}

func (m *mockWeeklyPlanRepo) GetLine(_ context.Context, id string) (*model.WeeklyPlanLine, error) {
	l, ok := m.st.lines[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := m.st.lineWith(l)
	return &cp, nil
}

func (m *mockWeeklyPlanRepo) ListLines(_ context.Context, planID string) ([]model.WeeklyPlanLine, error) {
	return m.st.linesWhere(func(l *model.WeeklyPlanLine) bool { return l.PlanID == planID }), nil
}

func (m *mockWeeklyPlanRepo) ListLinesByStudent(_ context.Context, studentID string) ([]model.WeeklyPlanLine, error) {
	return m.st.linesWhere(func(l *model.WeeklyPlanLine) bool {
		p, ok := m.st.plans[l.PlanID]
		return ok && p.StudentID == studentID
	}), nil
}

func (m *mockWeeklyPlanRepo) DeleteLines(_ context.Context, ids []string) error {
	for _, id := range ids {
		delete(m.st.lines, id)
	}
	return nil
}

func (m *mockWeeklyPlanRepo) DeleteLinesBySession(_ context.Context, sessionID string) (int64, error) {
	var n int64
	for id, l := range m.st.lines {
		if l.SessionID == sessionID {
			delete(m.st.lines, id)
			n++
		}
	}
	return n, nil
}

func (m *mockWeeklyPlanRepo) ListStaleLines(_ context.Context, endedBefore time.Time) ([]model.WeeklyPlanLine, error) {
	return m.st.linesWhere(func(l *model.WeeklyPlanLine) bool {
		s, ok := m.st.sessions[l.SessionID]
		if !ok {
			return false
		}
		return s.IsTerminal() || model.DateOnly(s.Date).Before(model.DateOnly(endedBefore))
	}), nil
}

// ── Mock BookingPolicyRepository ──

type mockPolicyRepo struct{ st *memStore }

func (m *mockPolicyRepo) Get(_ context.Context) (*model.BookingPolicy, error) {
	if m.st.policy == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m.st.policy
	return &cp, nil
}

func (m *mockPolicyRepo) Save(_ context.Context, policy *model.BookingPolicy) error {
	cp := *policy
	m.st.policy = &cp
	return nil
}

// ── Mock AuditRepository ──

type mockAuditRepo struct{ st *memStore }

func (m *mockAuditRepo) CreateReplacementLog(_ context.Context, log *model.TeacherReplacementLog) error {
	if log.LogID == "" {
		log.LogID = m.st.nextID("log")
	}
	m.st.replacementLogs = append(m.st.replacementLogs, *log)
	return nil
}

func (m *mockAuditRepo) ListReplacementLogs(_ context.Context, agendaID string, offset, limit int) ([]model.TeacherReplacementLog, int64, error) {
	var all []model.TeacherReplacementLog
	for _, l := range m.st.replacementLogs {
		if l.AgendaID == agendaID {
			all = append(all, l)
		}
	}
	total := int64(len(all))
	if offset >= len(all) {
		return []model.TeacherReplacementLog{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// ── Mock OutboxRepository ──

type mockOutboxRepo struct{ st *memStore }

func (m *mockOutboxRepo) Create(_ context.Context, event *model.OutboxEvent) error {
	cp := *event
	m.st.outbox = append(m.st.outbox, &cp)
	return nil
}

func (m *mockOutboxRepo) ListPending(_ context.Context, limit int) ([]model.OutboxEvent, error) {
	var out []model.OutboxEvent
	for _, ev := range m.st.outbox {
		if ev.PublishedAt == nil && len(out) < limit {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (m *mockOutboxRepo) MarkPublished(_ context.Context, ids []string, at time.Time) error {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for _, ev := range m.st.outbox {
		if want[ev.EventID] {
			t := at
			ev.PublishedAt = &t
		}
	}
	return nil
}

func (m *mockOutboxRepo) IncrementAttempts(_ context.Context, id string) error {
	for _, ev := range m.st.outbox {
		if ev.EventID == id {
			ev.Attempts++
		}
	}
	return nil
}

// ── Mock CronJobRepository ──

type mockCronJobRepo struct{ st *memStore }

func (m *mockCronJobRepo) TryAcquire(_ context.Context, job, owner string, ttl time.Duration, now time.Time) (bool, error) {
	lease, ok := m.st.leases[job]
	if ok && lease.Owner != owner && now.Before(lease.LockedUntil) {
		return false, nil
	}
	m.st.leases[job] = &model.CronJobLease{JobName: job, Owner: owner, LockedUntil: now.Add(ttl), UpdatedAt: now}
	return true, nil
}

func (m *mockCronJobRepo) Release(_ context.Context, job, owner, result string, now time.Time) error {
	lease, ok := m.st.leases[job]
	if !ok || lease.Owner != owner {
		return nil
	}
	lease.LockedUntil = now
	lease.LastRunAt = &now
	lease.LastResult = result
	return nil
}
