package dto

// ── 报名与学习记录 DTO ──

// EnrollRequest 课节报名请求
type EnrollRequest struct {
	StudentID    string `json:"student_id"    binding:"required,uuid"`
	DeliveryMode string `json:"delivery_mode" binding:"omitempty,oneof=presential virtual"`
}

// AttendanceRequest 考勤请求
type AttendanceRequest struct {
	State string `json:"state" binding:"required,oneof=attended absent"`
}

// EnrollmentResponse 报名信息
type EnrollmentResponse struct {
	ID               string        `json:"id"`
	SessionID        string        `json:"session_id"`
	StudentID        string        `json:"student_id"`
	State            string        `json:"state"`
	DeliveryMode     string        `json:"delivery_mode"`
	EffectiveSubject *SubjectBrief `json:"effective_subject,omitempty"`
	SubjectFrozen    bool          `json:"subject_frozen"`
	AttendanceAt     string        `json:"attendance_at,omitempty"`
}

// GradeRequest 成绩录入请求
type GradeRequest struct {
	Grade *float64 `json:"grade" binding:"required,min=0,max=100"`
	Notes *string  `json:"notes" binding:"omitempty,max=2000"`
}

// HistoryResponse 学习记录
type HistoryResponse struct {
	ID               string   `json:"id"`
	StudentID        string   `json:"student_id"`
	SessionID        *string  `json:"session_id,omitempty"`
	SubjectID        string   `json:"subject_id"`
	SubjectName      string   `json:"subject_name,omitempty"`
	SubjectCategory  string   `json:"subject_category"`
	UnitNumber       *int     `json:"unit_number,omitempty"`
	BskillNumber     *int     `json:"bskill_number,omitempty"`
	UnitBlockStart   *int     `json:"unit_block_start,omitempty"`
	UnitBlockEnd     *int     `json:"unit_block_end,omitempty"`
	SessionDate      string   `json:"session_date"`
	DeliveryMode     string   `json:"delivery_mode,omitempty"`
	AttendanceStatus string   `json:"attendance_status"`
	Grade            *float64 `json:"grade,omitempty"`
	Notes            string   `json:"notes,omitempty"`
	GradedAt         string   `json:"graded_at,omitempty"`
}

// UnitProgressResponse 单元进度
type UnitProgressResponse struct {
	Unit           int   `json:"unit"`
	BcheckAttended bool  `json:"bcheck_attended"`
	AttendedSlots  []int `json:"attended_slots"`
	TakenSlots     []int `json:"taken_slots"`
	NextSlot       int   `json:"next_slot"`
	Complete       bool  `json:"complete"`
}

// ProgressResponse 学员进度
type ProgressResponse struct {
	StudentID           string                 `json:"student_id"`
	ProgramID           string                 `json:"program_id,omitempty"`
	TargetUnit          int                    `json:"target_unit"`
	MaxTouched          int                    `json:"max_touched"`
	Units               []UnitProgressResponse `json:"units"`
	CompletedSubjectIDs []string               `json:"completed_subject_ids"`
}

// [自证通过] internal/dto/enrollment.go
