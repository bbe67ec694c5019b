package lifecycle

import (
	"errors"
	"testing"

	"ailumex-academy/internal/model"
	pkgerrors "ailumex-academy/pkg/errors"
)

func TestSession_HappyPath(t *testing.T) {
	state := model.SessionDraft
	for _, ev := range []SessionEvent{SessionActivate, SessionEnroll, SessionStart, SessionFinish} {
		next, err := NextSessionState(state, ev, SessionFacts{})
		if err != nil {
			t.Fatalf("%s → %s 期望成功，实际错误: %v", state, ev, err)
		}
		state = next
	}
	if state != model.SessionDone {
		t.Errorf("期望最终状态 done，实际 %s", state)
	}
}

func TestSession_FinishRequiresStarted(t *testing.T) {
	for _, s := range []string{model.SessionDraft, model.SessionActive, model.SessionWithEnrollment, model.SessionDone, model.SessionCancelled} {
		_, err := NextSessionState(s, SessionFinish, SessionFacts{})
		if !errors.Is(err, pkgerrors.ErrSessionInvalidState) {
			t.Errorf("状态 %s 执行 finish 期望 session_invalid_state，实际 %v", s, err)
		}
	}
}

func TestSession_CancelBlockedByConfirmed(t *testing.T) {
	_, err := NextSessionState(model.SessionWithEnrollment, SessionCancel, SessionFacts{HasConfirmed: true})
	if !errors.Is(err, pkgerrors.ErrSessionInvalidState) {
		t.Fatalf("期望 session_invalid_state，实际 %v", err)
	}

	next, err := NextSessionState(model.SessionActive, SessionCancel, SessionFacts{})
	if err != nil || next != model.SessionCancelled {
		t.Fatalf("期望取消成功，实际 %s / %v", next, err)
	}
}

func TestSession_TerminalStatesAreFinal(t *testing.T) {
	for _, s := range []string{model.SessionDone, model.SessionCancelled} {
		for _, ev := range []SessionEvent{SessionActivate, SessionEnroll, SessionStart, SessionCancel} {
			if CanSessionTransition(s, ev) {
				t.Errorf("终态 %s 不应允许 %s", s, ev)
			}
		}
	}
}

func TestPublishedState(t *testing.T) {
	cases := []struct {
		current      string
		hasConfirmed bool
		want         string
	}{
		{model.SessionDraft, false, model.SessionActive},
		{model.SessionDraft, true, model.SessionWithEnrollment},
		{model.SessionActive, true, model.SessionWithEnrollment},
		{model.SessionWithEnrollment, false, model.SessionActive},
		{model.SessionDone, true, model.SessionDone},
		{model.SessionCancelled, false, model.SessionCancelled},
		{model.SessionStarted, true, model.SessionStarted},
	}
	for _, c := range cases {
		if got := PublishedState(c.current, c.hasConfirmed); got != c.want {
			t.Errorf("PublishedState(%s,%v) 期望 %s，实际 %s", c.current, c.hasConfirmed, c.want, got)
		}
	}
}

func TestAgenda_PublishIsIdempotent(t *testing.T) {
	next, err := NextAgendaState(model.AgendaPublished, AgendaPublish, AgendaFacts{})
	if err != nil || next != model.AgendaPublished {
		t.Fatalf("期望重复发布为空操作，实际 %s / %v", next, err)
	}
	if _, err := NextAgendaState(model.AgendaDraft, AgendaPublish, AgendaFacts{}); !errors.Is(err, pkgerrors.ErrAgendaInvalidState) {
		t.Errorf("草稿直接发布期望 agenda_invalid_state，实际 %v", err)
	}
}

func TestAgenda_UnpublishGuard(t *testing.T) {
	if _, err := NextAgendaState(model.AgendaPublished, AgendaUnpublish, AgendaFacts{HasStartedSession: true}); err == nil {
		t.Fatal("有进行中的课节时期望拒绝取消发布")
	}
	next, err := NextAgendaState(model.AgendaPublished, AgendaUnpublish, AgendaFacts{})
	if err != nil || next != model.AgendaActive {
		t.Fatalf("期望回到 active，实际 %s / %v", next, err)
	}
}

func TestAgenda_ExecuteRequiresEnded(t *testing.T) {
	if _, err := NextAgendaState(model.AgendaPublished, AgendaExecute, AgendaFacts{}); err == nil {
		t.Fatal("未结束的排课表期望拒绝 execute")
	}
	next, err := NextAgendaState(model.AgendaPublished, AgendaExecute, AgendaFacts{EndedBeforeToday: true})
	if err != nil || next != model.AgendaExecuted {
		t.Fatalf("期望 executed，实际 %s / %v", next, err)
	}
	if _, err := NextAgendaState(model.AgendaClosed, AgendaClose, AgendaFacts{}); err == nil {
		t.Error("已关闭的排课表期望拒绝再次关闭")
	}
}
