// Package lifecycle 定义课节与排课表的状态迁移表。
//
// 迁移规则（含守卫条件）集中在表中，服务层只提交事件与事实，
// 不在各处散落状态判断。
package lifecycle

import (
	"ailumex-academy/internal/model"
	pkgerrors "ailumex-academy/pkg/errors"
)

// SessionEvent 课节事件
type SessionEvent string

const (
	SessionActivate SessionEvent = "activate"
	SessionEnroll   SessionEvent = "enroll"
	SessionRelease  SessionEvent = "release" // 最后一个确认报名被取消
	SessionStart    SessionEvent = "start"
	SessionFinish   SessionEvent = "finish"
	SessionCancel   SessionEvent = "cancel"
)

// SessionFacts 守卫条件所需的事实
type SessionFacts struct {
	HasConfirmed bool
}

type sessionTransition struct {
	to    string
	guard func(SessionFacts) error
}

// sessionTable[事件][当前状态] → 迁移
var sessionTable = map[SessionEvent]map[string]sessionTransition{
	SessionActivate: {
		model.SessionDraft:          {to: model.SessionActive},
		model.SessionActive:         {to: model.SessionActive},
		model.SessionWithEnrollment: {to: model.SessionWithEnrollment},
	},
	SessionEnroll: {
		model.SessionActive:         {to: model.SessionWithEnrollment},
		model.SessionWithEnrollment: {to: model.SessionWithEnrollment},
	},
	SessionRelease: {
		model.SessionWithEnrollment: {to: model.SessionActive, guard: noConfirmed},
		model.SessionActive:         {to: model.SessionActive},
	},
	SessionStart: {
		model.SessionActive:         {to: model.SessionStarted},
		model.SessionWithEnrollment: {to: model.SessionStarted},
	},
	SessionFinish: {
		model.SessionStarted: {to: model.SessionDone},
	},
	SessionCancel: {
		model.SessionDraft:          {to: model.SessionCancelled, guard: noConfirmed},
		model.SessionActive:         {to: model.SessionCancelled, guard: noConfirmed},
		model.SessionWithEnrollment: {to: model.SessionCancelled, guard: noConfirmed},
		model.SessionStarted:        {to: model.SessionCancelled, guard: noConfirmed},
	},
}

func noConfirmed(f SessionFacts) error {
	if f.HasConfirmed {
		return pkgerrors.ErrSessionInvalidState.
			WithMessage("课节存在已确认的报名，不能直接取消").
			WithHint("请先取消或转移已确认的报名")
	}
	return nil
}

// NextSessionState 计算事件触发后的课节状态
func NextSessionState(current string, ev SessionEvent, facts SessionFacts) (string, error) {
	tr, ok := sessionTable[ev][current]
	if !ok {
		return "", pkgerrors.ErrSessionInvalidState.WithMessage("课节状态 %s 不允许执行 %s", current, ev)
	}
	if tr.guard != nil {
		if err := tr.guard(facts); err != nil {
			return "", err
		}
	}
	return tr.to, nil
}

// CanSessionTransition 仅判断迁移是否存在（不执行守卫）
func CanSessionTransition(current string, ev SessionEvent) bool {
	_, ok := sessionTable[ev][current]
	return ok
}

// PublishedState 发布时的课节状态：终态与已开课保持不变，
// 其余有确认报名的变为 with_enrollment，否则为 active
func PublishedState(current string, hasConfirmed bool) string {
	switch current {
	case model.SessionDone, model.SessionCancelled, model.SessionStarted:
		return current
	}
	if hasConfirmed {
		return model.SessionWithEnrollment
	}
	return model.SessionActive
}

// AllowsStructuralEdit 开课、完成、取消后不允许修改课节结构
func AllowsStructuralEdit(state string) bool {
	switch state {
	case model.SessionStarted, model.SessionDone, model.SessionCancelled:
		return false
	}
	return true
}

// IsBookable 周计划可预约的课节状态
func IsBookable(state string) bool {
	return state == model.SessionActive || state == model.SessionWithEnrollment
}
