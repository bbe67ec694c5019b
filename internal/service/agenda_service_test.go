package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ailumex-academy/internal/dto"
	"ailumex-academy/internal/model"
	pkgerrors "ailumex-academy/pkg/errors"
)

// addAgenda 在 testCampus 下写入一张 2026-04 的排课表
func (fx *fixture) addAgenda(id, state string) *model.Agenda {
	a := &model.Agenda{
		AgendaID:  id,
		Code:      "AG-C1-20260401-" + id,
		CampusID:  testCampus,
		DateStart: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		DateEnd:   time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC),
		TimeStart: "07:00",
		TimeEnd:   "21:00",
		State:     state,
	}
	a.Version = 1
	fx.st.agendas[id] = a
	return a
}

// ────────────────────── Create / Update ──────────────────────

func TestCreateAgenda(t *testing.T) {
	fx := newFixture(t)
	resp, err := fx.svc.Agenda.Create(context.Background(), &dto.CreateAgendaRequest{
		CampusID:  testCampus,
		Name:      "四月",
		DateStart: "2026-04-01",
		DateEnd:   "2026-04-30",
		TimeStart: "08:00",
		TimeEnd:   "20:00",
	}, "ops-1")
	if err != nil {
		t.Fatalf("创建排课表应成功: %v", err)
	}
	if resp.State != model.AgendaDraft {
		t.Errorf("新排课表应为 draft，实际 %s", resp.State)
	}
	if !strings.HasPrefix(resp.Code, "AG-C1-20260401-") {
		t.Errorf("编码格式不符，实际 %s", resp.Code)
	}
}

func TestCreateAgenda_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  dto.CreateAgendaRequest
	}{
		{"结束早于开始", dto.CreateAgendaRequest{CampusID: testCampus, DateStart: "2026-04-30", DateEnd: "2026-04-01", TimeStart: "08:00", TimeEnd: "20:00"}},
		{"超出营业时间", dto.CreateAgendaRequest{CampusID: testCampus, DateStart: "2026-04-01", DateEnd: "2026-04-30", TimeStart: "06:00", TimeEnd: "20:00"}},
		{"跨度超过一年", dto.CreateAgendaRequest{CampusID: testCampus, DateStart: "2026-01-01", DateEnd: "2027-06-01", TimeStart: "08:00", TimeEnd: "20:00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			_, err := fx.svc.Agenda.Create(context.Background(), &tt.req, "ops-1")
			if !errors.Is(err, pkgerrors.ErrValidation) {
				t.Errorf("期望 ErrValidation，实际: %v", err)
			}
		})
	}
}

func TestUpdateAgenda_PublishedStructureLocked(t *testing.T) {
	fx := newFixture(t)
	end := "2026-04-15"
	_, err := fx.svc.Agenda.Update(context.Background(), testAgenda, &dto.UpdateAgendaRequest{Version: 1, DateEnd: &end}, "ops-1")
	if !errors.Is(err, pkgerrors.ErrAgendaLocked) {
		t.Errorf("期望 ErrAgendaLocked，实际: %v", err)
	}

	name := "改名"
	resp, err := fx.svc.Agenda.Update(context.Background(), testAgenda, &dto.UpdateAgendaRequest{Version: 1, Name: &name}, "ops-1")
	if err != nil {
		t.Fatalf("修改名称应成功: %v", err)
	}
	if resp.Name != name || resp.Version != 2 {
		t.Errorf("期望名称 %s、版本 2，实际 %s / %d", name, resp.Name, resp.Version)
	}
}

func TestUpdateAgenda_StaleVersion(t *testing.T) {
	fx := newFixture(t)
	name := "改名"
	_, err := fx.svc.Agenda.Update(context.Background(), testAgenda, &dto.UpdateAgendaRequest{Version: 7, Name: &name}, "ops-1")
	if !errors.Is(err, pkgerrors.ErrConcurrentModify) {
		t.Errorf("期望 ErrConcurrentModify，实际: %v", err)
	}
}

func TestUpdateAgenda_SessionsMustStayInside(t *testing.T) {
	fx := newFixture(t)
	fx.addAgenda("agenda-apr", model.AgendaActive)
	fx.addSession(t, "s-1", "2026-04-20", "09:00", "10:00", "tpl-bcheck", inAgenda("agenda-apr"), unpublished())

	end := "2026-04-15"
	_, err := fx.svc.Agenda.Update(context.Background(), "agenda-apr", &dto.UpdateAgendaRequest{Version: 1, DateEnd: &end}, "ops-1")
	if !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("期望 ErrValidation，实际: %v", err)
	}
}

// ────────────────────── 生命周期 ──────────────────────

func TestActivateAgenda_PromotesDraftSessions(t *testing.T) {
	fx := newFixture(t)
	fx.addAgenda("agenda-apr", model.AgendaDraft)
	fx.addSession(t, "s-1", "2026-04-07", "09:00", "10:00", "tpl-bcheck", inAgenda("agenda-apr"), withState(model.SessionDraft), unpublished())

	resp, err := fx.svc.Agenda.Activate(context.Background(), "agenda-apr", "ops-1")
	if err != nil {
		t.Fatalf("激活排课表应成功: %v", err)
	}
	if resp.State != model.AgendaActive {
		t.Errorf("期望 active，实际 %s", resp.State)
	}
	if got := fx.sessionState("s-1"); got != model.SessionActive {
		t.Errorf("草稿课节应转为 active，实际 %s", got)
	}
}

func TestPublishAgenda(t *testing.T) {
	fx := newFixture(t)
	fx.addAgenda("agenda-apr", model.AgendaActive)
	fx.addSession(t, "s-1", "2026-04-07", "09:00", "10:00", "tpl-bcheck", inAgenda("agenda-apr"), unpublished())
	fx.addSession(t, "s-2", "2026-04-08", "09:00", "10:00", "tpl-bcheck", inAgenda("agenda-apr"), unpublished())
	fx.st.sessions["s-2"].RoomID = nil
	ctx := context.Background()

	_, err := fx.svc.Agenda.Publish(ctx, "agenda-apr", "ops-1")
	if !errors.Is(err, pkgerrors.ErrValidation) {
		t.Fatalf("缺少教室时期望 ErrValidation，实际: %v", err)
	}
	if fx.st.agendas["agenda-apr"].State != model.AgendaActive {
		t.Fatal("校验失败时排课表状态不应改变")
	}

	fx.st.sessions["s-2"].RoomID = sp("room-2")
	resp, err := fx.svc.Agenda.Publish(ctx, "agenda-apr", "ops-1")
	if err != nil {
		t.Fatalf("发布应成功: %v", err)
	}
	if resp.NoOp || resp.Published != 2 || resp.Agenda.State != model.AgendaPublished {
		t.Errorf("期望发布 2 个课节，实际 %+v", resp)
	}
	for _, id := range []string{"s-1", "s-2"} {
		if !fx.st.sessions[id].IsPublished {
			t.Errorf("%s 应已发布", id)
		}
	}
	if len(fx.pub.messages) != 2 {
		t.Errorf("期望广播 2 个 session.published 事件，实际 %d", len(fx.pub.messages))
	}

	again, err := fx.svc.Agenda.Publish(ctx, "agenda-apr", "ops-1")
	if err != nil {
		t.Fatalf("重复发布应成功: %v", err)
	}
	if !again.NoOp || again.Published != 0 {
		t.Errorf("重复发布应为空操作，实际 %+v", again)
	}
}

func TestPublishAgenda_DraftMustActivateFirst(t *testing.T) {
	fx := newFixture(t)
	fx.addAgenda("agenda-apr", model.AgendaDraft)

	_, err := fx.svc.Agenda.Publish(context.Background(), "agenda-apr", "ops-1")
	if !errors.Is(err, pkgerrors.ErrAgendaInvalidState) {
		t.Errorf("期望 ErrAgendaInvalidState，实际: %v", err)
	}
}

func TestUnpublishAgenda(t *testing.T) {
	fx := newFixture(t)
	fx.addSession(t, "s-1", "2026-03-03", "09:00", "10:00", "tpl-bcheck")
	fx.addSession(t, "s-2", "2026-03-02", "07:00", "08:00", "tpl-bcheck", withState(model.SessionStarted), withTeacher("teacher-2"))
	ctx := context.Background()

	if _, err := fx.svc.Agenda.Unpublish(ctx, testAgenda, "ops-1"); !errors.Is(err, pkgerrors.ErrAgendaInvalidState) {
		t.Fatalf("有进行中课节时期望 ErrAgendaInvalidState，实际: %v", err)
	}

	fx.st.sessions["s-2"].State = model.SessionDone
	resp, err := fx.svc.Agenda.Unpublish(ctx, testAgenda, "ops-1")
	if err != nil {
		t.Fatalf("取消发布应成功: %v", err)
	}
	if resp.State != model.AgendaActive {
		t.Errorf("期望 active，实际 %s", resp.State)
	}
	if fx.st.sessions["s-1"].IsPublished {
		t.Error("未结束课节应取消发布")
	}
}

func TestCloseAndDeleteAgenda(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	if err := fx.svc.Agenda.Delete(ctx, testAgenda); !errors.Is(err, pkgerrors.ErrAgendaInvalidState) {
		t.Fatalf("未关闭时删除期望 ErrAgendaInvalidState，实际: %v", err)
	}
	resp, err := fx.svc.Agenda.Close(ctx, testAgenda, "ops-1")
	if err != nil {
		t.Fatalf("关闭应成功: %v", err)
	}
	if resp.State != model.AgendaClosed {
		t.Errorf("期望 closed，实际 %s", resp.State)
	}
	if _, err := fx.svc.Agenda.Close(ctx, testAgenda, "ops-1"); !errors.Is(err, pkgerrors.ErrAgendaInvalidState) {
		t.Errorf("重复关闭期望 ErrAgendaInvalidState，实际: %v", err)
	}
	if err := fx.svc.Agenda.Delete(ctx, testAgenda); err != nil {
		t.Fatalf("删除已关闭排课表应成功: %v", err)
	}
	if _, ok := fx.st.agendas[testAgenda]; ok {
		t.Error("排课表应已删除")
	}
}

// ────────────────────── Duplicate ──────────────────────

func duplicateSource(t *testing.T, fx *fixture) {
	t.Helper()
	fx.addSession(t, "src-tue", "2026-02-03", "09:00", "10:00", "tpl-bcheck")
	fx.addSession(t, "src-thu", "2026-02-05", "14:00", "15:00", "tpl-bskills", withTeacher("teacher-2"), withRoom("room-2"))
	fx.addSession(t, "src-gone", "2026-02-04", "14:00", "15:00", "tpl-bskills", withState(model.SessionCancelled))
}

func TestDuplicateAgenda(t *testing.T) {
	fx := newFixture(t)
	duplicateSource(t, fx)
	name := "四月复制"

	resp, err := fx.svc.Agenda.Duplicate(context.Background(), testAgenda, &dto.DuplicateAgendaRequest{
		DateStart: "2026-04-06",
		DateEnd:   "2026-04-19",
		Name:      &name,
	}, "ops-1")
	if err != nil {
		t.Fatalf("复制应成功: %v", err)
	}
	if resp.Created != 4 || resp.Skipped != 0 || len(resp.Reasons) != 0 {
		t.Errorf("期望创建 4 个课节，实际 %+v", resp)
	}
	if resp.Agenda.State != model.AgendaDraft || resp.Agenda.Name != name {
		t.Errorf("目标排课表应为 draft 且使用新名称，实际 %s / %s", resp.Agenda.State, resp.Agenda.Name)
	}
	if resp.Agenda.DuplicatedFromID == nil || *resp.Agenda.DuplicatedFromID != testAgenda {
		t.Error("目标排课表应记录来源")
	}

	copies := fx.st.sessionsWhere(func(s *model.Session) bool { return s.AgendaID == resp.Agenda.ID })
	if len(copies) != 4 {
		t.Fatalf("期望 4 个复制课节，实际 %d", len(copies))
	}
	for _, c := range copies {
		if c.State != model.SessionDraft || c.IsPublished {
			t.Errorf("复制课节应为未发布草稿，实际 %s / %v", c.State, c.IsPublished)
		}
	}
	if copies[0].Date.Format(model.DateLayout) != "2026-04-07" || copies[0].TimeStart != "09:00" {
		t.Errorf("首个复制课节期望 2026-04-07 09:00，实际 %s %s", copies[0].Date.Format(model.DateLayout), copies[0].TimeStart)
	}
	if len(fx.st.duplications) != 1 || fx.st.duplications[0].Created != 4 {
		t.Errorf("应保存复制报告，实际 %+v", fx.st.duplications)
	}
}

func TestDuplicateAgenda_ConflictAbortsWithoutCreating(t *testing.T) {
	fx := newFixture(t)
	duplicateSource(t, fx)
	fx.addAgenda("agenda-other", model.AgendaPublished)
	fx.addSession(t, "busy", "2026-04-07", "09:30", "10:30", "tpl-bcheck", inAgenda("agenda-other"), withRoom("room-3"))
	agendas := len(fx.st.agendas)

	_, err := fx.svc.Agenda.Duplicate(context.Background(), testAgenda, &dto.DuplicateAgendaRequest{
		DateStart: "2026-04-06",
		DateEnd:   "2026-04-19",
	}, "ops-1")
	if !errors.Is(err, pkgerrors.ErrTeacherConflict) {
		t.Fatalf("期望 ErrTeacherConflict，实际: %v", err)
	}
	appErr, _ := pkgerrors.AsAppError(err)
	if appErr == nil || len(appErr.Details) != 1 {
		t.Errorf("错误详情应列出 1 个冲突，实际 %+v", appErr)
	}
	if len(fx.st.agendas) != agendas {
		t.Error("存在冲突时不应创建排课表")
	}
}

func TestDuplicateAgenda_SkipConflicts(t *testing.T) {
	fx := newFixture(t)
	duplicateSource(t, fx)
	fx.addAgenda("agenda-other", model.AgendaPublished)
	fx.addSession(t, "busy", "2026-04-07", "09:30", "10:30", "tpl-bcheck", inAgenda("agenda-other"), withRoom("room-3"))

	resp, err := fx.svc.Agenda.Duplicate(context.Background(), testAgenda, &dto.DuplicateAgendaRequest{
		DateStart:     "2026-04-06",
		DateEnd:       "2026-04-19",
		SkipConflicts: true,
	}, "ops-1")
	if err != nil {
		t.Fatalf("跳过冲突的复制应成功: %v", err)
	}
	if resp.Created != 3 || resp.Skipped != 1 || len(resp.Reasons) != 1 {
		t.Errorf("期望创建 3、跳过 1，实际 %+v", resp)
	}
	if !strings.Contains(resp.Reasons[0], "2026-04-07") {
		t.Errorf("跳过原因应包含日期，实际 %s", resp.Reasons[0])
	}
}

func TestDuplicateAgenda_CancelledContextKeepsReport(t *testing.T) {
	fx := newFixture(t)
	duplicateSource(t, fx)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := fx.svc.Agenda.Duplicate(ctx, testAgenda, &dto.DuplicateAgendaRequest{
		DateStart: "2026-04-06",
		DateEnd:   "2026-04-19",
	}, "ops-1")
	if err != nil {
		t.Fatalf("取消时应返回已完成部分: %v", err)
	}
	if !resp.Cancelled || resp.Created != 0 {
		t.Errorf("期望 cancelled 且未创建课节，实际 %+v", resp)
	}
	if len(fx.st.duplications) != 1 || !fx.st.duplications[0].Cancelled {
		t.Error("取消后仍应保存复制报告")
	}
}

// 两个周二源课节同教师同时段、不同教室，复制到只含一个周二的区间时互相冲突
func sameSlotSources(t *testing.T, fx *fixture) {
	t.Helper()
	fx.addSession(t, "tue-1", "2026-02-03", "09:00", "10:00", "tpl-bcheck")
	fx.addSession(t, "tue-2", "2026-02-10", "09:00", "10:00", "tpl-bcheck", withRoom("room-2"))
}

func TestDuplicateAgenda_CopiesCollidingWithEachOtherAbort(t *testing.T) {
	fx := newFixture(t)
	sameSlotSources(t, fx)
	agendas := len(fx.st.agendas)
	sessions := len(fx.st.sessions)

	_, err := fx.svc.Agenda.Duplicate(context.Background(), testAgenda, &dto.DuplicateAgendaRequest{
		DateStart: "2026-04-06",
		DateEnd:   "2026-04-12",
	}, "ops-1")
	if !errors.Is(err, pkgerrors.ErrTeacherConflict) {
		t.Fatalf("期望 ErrTeacherConflict，实际: %v", err)
	}
	if len(fx.st.agendas) != agendas {
		t.Error("同批冲突时不应创建目标排课表")
	}
	if len(fx.st.sessions) != sessions {
		t.Errorf("同批冲突时不应写入任何课节，实际新增 %d", len(fx.st.sessions)-sessions)
	}
	if len(fx.st.duplications) != 0 {
		t.Error("中止的复制不应保存报告")
	}
}

func TestDuplicateAgenda_CopiesCollidingWithEachOtherSkipped(t *testing.T) {
	fx := newFixture(t)
	sameSlotSources(t, fx)

	resp, err := fx.svc.Agenda.Duplicate(context.Background(), testAgenda, &dto.DuplicateAgendaRequest{
		DateStart:     "2026-04-06",
		DateEnd:       "2026-04-12",
		SkipConflicts: true,
	}, "ops-1")
	if err != nil {
		t.Fatalf("跳过冲突的复制应成功: %v", err)
	}
	if resp.Created != 1 || resp.Skipped != 1 {
		t.Errorf("期望创建 1、跳过 1，实际 %+v", resp)
	}
	if len(resp.Reasons) != 1 || !strings.Contains(resp.Reasons[0], "teacher_conflict") {
		t.Errorf("跳过原因应为教师冲突，实际 %v", resp.Reasons)
	}
}

// [自证通过] internal/service/agenda_service_test.go
