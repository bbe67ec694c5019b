package lifecycle

import (
	"ailumex-academy/internal/model"
	pkgerrors "ailumex-academy/pkg/errors"
)

// AgendaEvent 排课表事件
type AgendaEvent string

const (
	AgendaActivate  AgendaEvent = "activate"
	AgendaPublish   AgendaEvent = "publish"
	AgendaUnpublish AgendaEvent = "unpublish"
	AgendaExecute   AgendaEvent = "execute"
	AgendaClose     AgendaEvent = "close"
)

// AgendaFacts 守卫条件所需的事实
type AgendaFacts struct {
	HasStartedSession bool
	EndedBeforeToday  bool
}

type agendaTransition struct {
	to    string
	guard func(AgendaFacts) error
}

var agendaTable = map[AgendaEvent]map[string]agendaTransition{
	AgendaActivate: {
		model.AgendaDraft: {to: model.AgendaActive},
	},
	AgendaPublish: {
		model.AgendaActive:    {to: model.AgendaPublished},
		model.AgendaPublished: {to: model.AgendaPublished},
	},
	AgendaUnpublish: {
		model.AgendaPublished: {to: model.AgendaActive, guard: func(f AgendaFacts) error {
			if f.HasStartedSession {
				return pkgerrors.ErrAgendaInvalidState.
					WithMessage("排课表中有课节正在进行，不能取消发布")
			}
			return nil
		}},
	},
	AgendaExecute: {
		model.AgendaPublished: {to: model.AgendaExecuted, guard: func(f AgendaFacts) error {
			if !f.EndedBeforeToday {
				return pkgerrors.ErrAgendaInvalidState.WithMessage("排课表尚未结束")
			}
			return nil
		}},
	},
	AgendaClose: {
		model.AgendaDraft:     {to: model.AgendaClosed},
		model.AgendaActive:    {to: model.AgendaClosed},
		model.AgendaPublished: {to: model.AgendaClosed},
		model.AgendaExecuted:  {to: model.AgendaClosed},
	},
}

// NextAgendaState 计算事件触发后的排课表状态
func NextAgendaState(current string, ev AgendaEvent, facts AgendaFacts) (string, error) {
	tr, ok := agendaTable[ev][current]
	if !ok {
		return "", pkgerrors.ErrAgendaInvalidState.WithMessage("排课表状态 %s 不允许执行 %s", current, ev)
	}
	if tr.guard != nil {
		if err := tr.guard(facts); err != nil {
			return "", err
		}
	}
	return tr.to, nil
}
