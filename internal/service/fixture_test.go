package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"ailumex-academy/config"
	"ailumex-academy/internal/dto"
	"ailumex-academy/internal/model"
)

// testNow 固定时钟：2026-03-02（周一）08:00 UTC
var testNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

const (
	testProgram = "prog-1"
	testAgenda  = "agenda-1"
	testCampus  = "campus-1"
	testWeek    = "2026-03-02"
)

func intP(v int) *int           { return &v }
func sp(v string) *string       { return &v }
func gradeP(v float64) *float64 { return &v }

// ── 基础设施替身 ──

type recordingPublisher struct {
	fail     bool
	messages [][]byte
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, payload []byte) error {
	if p.fail {
		return errors.New("redis 不可用")
	}
	p.messages = append(p.messages, payload)
	return nil
}

type recordingLocker struct {
	keys [][]string
}

func (l *recordingLocker) LockAll(_ context.Context, keys []string, _ time.Duration) (func(), error) {
	l.keys = append(l.keys, append([]string(nil), keys...))
	return func() {}, nil
}

// ── 测试夹具 ──

type fixture struct {
	st     *memStore
	pub    *recordingPublisher
	locker *recordingLocker
	svc    *Service
}

func testBooking() config.BookingConfig {
	return config.BookingConfig{
		MinAnticipationMinutes: 60,
		OralTestMinGrade:       70,
		PairSizeDefault:        2,
		BlockSizeDefault:       4,
		MaxUnitDefault:         8,
		OralBlockBoundaries:    []int{4, 8},
	}
}

// newFixture 单校区、单项目（1-8 单元）、三名学员、一张已发布排课表
func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := newMemStore()
	seedCatalog(st)
	seedResources(st)
	seedStudents(st, "stu-1", "stu-2", "stu-3")

	st.agendas[testAgenda] = &model.Agenda{
		AgendaID:       testAgenda,
		Code:           "AG-C1-20260202-test0001",
		Name:           "二月至三月",
		CampusID:       testCampus,
		DateStart:      time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
		DateEnd:        time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		TimeStart:      "07:00",
		TimeEnd:        "21:00",
		State:          model.AgendaPublished,
		VersionedModel: model.VersionedModel{Version: 1},
	}

	pub := &recordingPublisher{}
	locker := &recordingLocker{}
	rt := NewRuntime(locker, pub, zap.NewNop())
	rt.Clock = func() time.Time { return testNow }
	cfg := &config.Config{
		Booking: testBooking(),
		Cron:    config.CronConfig{ScavengeAfter: 24 * time.Hour},
	}
	return &fixture{st: st, pub: pub, locker: locker, svc: NewService(cfg, st.repository(), rt)}
}

func seedCatalog(st *memStore) {
	st.programs[testProgram] = &model.Program{ProgramID: testProgram, Code: "ENG", Name: "English", MaxUnit: 8}
	for u := 1; u <= 8; u++ {
		bcheck := model.Subject{
			SubjectID:  fmt.Sprintf("bcheck-%d", u),
			ProgramID:  testProgram,
			Code:       fmt.Sprintf("BC%02d", u),
			Name:       fmt.Sprintf("Bcheck U%d", u),
			Category:   model.CategoryBcheck,
			UnitNumber: intP(u),
			Active:     true,
		}
		st.subjects[bcheck.SubjectID] = &bcheck
		for s := 1; s <= 4; s++ {
			id := fmt.Sprintf("bskill-%d-%d", u, s)
			st.subjects[id] = &model.Subject{
				SubjectID:     id,
				ProgramID:     testProgram,
				Code:          fmt.Sprintf("BS%02d%d", u, s),
				Name:          fmt.Sprintf("Bskill U%d S%d", u, s),
				Category:      model.CategoryBskills,
				UnitNumber:    intP(u),
				BskillNumber:  intP(s),
				Active:        true,
				Prerequisites: []model.Subject{bcheck},
			}
		}
	}
	for _, b := range [][2]int{{1, 4}, {5, 8}} {
		id := fmt.Sprintf("oral-%d-%d", b[0], b[1])
		st.subjects[id] = &model.Subject{
			SubjectID:      id,
			ProgramID:      testProgram,
			Code:           fmt.Sprintf("OT%02d", b[1]),
			Name:           fmt.Sprintf("Oral %d-%d", b[0], b[1]),
			Category:       model.CategoryOralTest,
			UnitBlockStart: intP(b[0]),
			UnitBlockEnd:   intP(b[1]),
			Active:         true,
		}
	}

	st.templates["tpl-bcheck"] = &model.Template{
		TemplateID: "tpl-bcheck", ProgramID: sp(testProgram), Name: "Bcheck",
		SubjectCategory: model.CategoryBcheck, MappingMode: model.MappingPair,
	}
	st.templates["tpl-bskills"] = &model.Template{
		TemplateID: "tpl-bskills", ProgramID: sp(testProgram), Name: "Bskills",
		SubjectCategory: model.CategoryBskills, MappingMode: model.MappingPerUnit,
	}
	st.templates["tpl-oral"] = &model.Template{
		TemplateID: "tpl-oral", ProgramID: sp(testProgram), Name: "Oral test",
		SubjectCategory: model.CategoryOralTest, MappingMode: model.MappingBlock,
	}
}

func seedResources(st *memStore) {
	st.campuses[testCampus] = &model.Campus{
		CampusID:        testCampus,
		Code:            "C1",
		Name:            "Centro",
		City:            "Bogota",
		Timezone:        "UTC",
		AllowedWeekdays: model.IntArray{1, 2, 3, 4, 5},
		OpenTime:        "07:00",
		CloseTime:       "21:00",
		Active:          true,
	}
	for i := 1; i <= 3; i++ {
		id := fmt.Sprintf("room-%d", i)
		st.rooms[id] = &model.Room{RoomID: id, CampusID: testCampus, Name: fmt.Sprintf("Aula %d", i), Capacity: 20, Active: true}
		tid := fmt.Sprintf("teacher-%d", i)
		st.teachers[tid] = &model.Teacher{TeacherID: tid, Name: fmt.Sprintf("Teacher %d", i), Active: true}
	}
}

func seedStudents(st *memStore, ids ...string) {
	for _, id := range ids {
		st.students[id] = &model.Student{
			StudentID:     id,
			Name:          "Student " + id,
			ProgramID:     sp(testProgram),
			AccountStatus: model.AccountActive,
		}
		st.programEnrollments[id] = &model.ProgramEnrollment{
			ProgramEnrollmentID: "pe-" + id,
			StudentID:           id,
			ProgramID:           testProgram,
			StudyPlanID:         "sp-1",
			State:               "active",
		}
		included := make(map[string]bool, len(st.subjects))
		for sid := range st.subjects {
			included[sid] = true
		}
		st.planSubjects[id] = included
	}
}

// ── 数据构造 ──

type sessionOpt func(*model.Session)

func withTeacher(id string) sessionOpt { return func(s *model.Session) { s.TeacherID = id } }
func withRoom(id string) sessionOpt    { return func(s *model.Session) { s.RoomID = sp(id) } }
func withState(st string) sessionOpt   { return func(s *model.Session) { s.State = st } }
func withCapacity(n int) sessionOpt    { return func(s *model.Session) { s.MaxCapacity = n } }
func inAgenda(id string) sessionOpt    { return func(s *model.Session) { s.AgendaID = id } }

func withAudience(from, to int) sessionOpt {
	return func(s *model.Session) { s.AudienceUnitFrom, s.AudienceUnitTo = intP(from), intP(to) }
}

func withSubject(id string) sessionOpt {
	return func(s *model.Session) { s.TemplateID, s.SubjectID = nil, sp(id) }
}

func unpublished() sessionOpt { return func(s *model.Session) { s.IsPublished = false } }

// addSession 直接写入一个已发布的 active 课节（默认 teacher-1 / room-1，线下 10 人）
func (fx *fixture) addSession(t *testing.T, id, date, start, end, templateID string, opts ...sessionOpt) *model.Session {
	t.Helper()
	d, err := time.Parse(model.DateLayout, date)
	if err != nil {
		t.Fatalf("日期格式错误: %v", err)
	}
	s := &model.Session{
		SessionID:    id,
		AgendaID:     testAgenda,
		Date:         d,
		TimeStart:    start,
		TimeEnd:      end,
		TeacherID:    "teacher-1",
		RoomID:       sp("room-1"),
		ProgramID:    sp(testProgram),
		DeliveryMode: model.DeliveryPresential,
		MaxCapacity:  10,
		State:        model.SessionActive,
		IsPublished:  true,
	}
	if templateID != "" {
		s.TemplateID = sp(templateID)
	}
	s.Version = 1
	for _, opt := range opts {
		opt(s)
	}
	if err := s.SyncMinutes(); err != nil {
		t.Fatalf("时刻格式错误: %v", err)
	}
	fx.st.sessions[id] = s
	return s
}

// addHistory 写入一条学习记录，科目字段按目录冗余
func (fx *fixture) addHistory(studentID, subjectID, status string) *model.AcademicHistory {
	sub := fx.st.subjects[subjectID]
	id := fx.st.nextID("history")
	h := &model.AcademicHistory{
		HistoryID:        id,
		StudentID:        studentID,
		SubjectID:        subjectID,
		ProgramID:        sp(testProgram),
		SubjectCategory:  sub.Category,
		SubjectName:      sub.Name,
		UnitNumber:       sub.UnitNumber,
		BskillNumber:     sub.BskillNumber,
		UnitBlockStart:   sub.UnitBlockStart,
		UnitBlockEnd:     sub.UnitBlockEnd,
		SessionDate:      testNow.AddDate(0, 0, -14),
		AttendanceStatus: status,
	}
	fx.st.histories[id] = h
	return h
}

// completeUnits 学员出席 1..upTo 单元的 bcheck 与全部技能课
func (fx *fixture) completeUnits(studentID string, upTo int) {
	for u := 1; u <= upTo; u++ {
		fx.addHistory(studentID, fmt.Sprintf("bcheck-%d", u), model.AttendanceAttended)
		for s := 1; s <= 4; s++ {
			fx.addHistory(studentID, fmt.Sprintf("bskill-%d-%d", u, s), model.AttendanceAttended)
		}
	}
}

func (fx *fixture) addEnrollment(id, sessionID, studentID, state, subjectID string) *model.SessionEnrollment {
	e := &model.SessionEnrollment{
		EnrollmentID:       id,
		SessionID:          sessionID,
		StudentID:          studentID,
		State:              state,
		EffectiveSubjectID: sp(subjectID),
		DeliveryMode:       model.DeliveryPresential,
	}
	fx.st.enrollments[id] = e
	return e
}

// plan 获取或创建学员本周（testWeek）的周计划
func (fx *fixture) plan(t *testing.T, studentID string) string {
	t.Helper()
	resp, err := fx.svc.WeeklyPlan.GetOrCreate(context.Background(), studentID, &dto.PlanQuery{Week: testWeek})
	if err != nil {
		t.Fatalf("创建周计划应成功: %v", err)
	}
	return resp.ID
}

// addLine 以学员身份加入课节，必须成功
func (fx *fixture) addLine(t *testing.T, planID, studentID, sessionID string) *dto.PlanLineResponse {
	t.Helper()
	resp, err := fx.svc.WeeklyPlan.AddLine(context.Background(), planID, studentID, &dto.AddPlanLineRequest{SessionID: sessionID}, studentID)
	if err != nil {
		t.Fatalf("加入课节 %s 应成功: %v", sessionID, err)
	}
	return resp
}

func (fx *fixture) sessionState(id string) string {
	return fx.st.sessions[id].State
}

// [自证通过] internal/service/fixture_test.go
