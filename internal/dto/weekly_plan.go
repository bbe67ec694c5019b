package dto

// ── 学员门户周计划 DTO ──

// PlanQuery 获取周计划参数
type PlanQuery struct {
	Week     string  `form:"week"      binding:"required,datetime=2006-01-02"` // 周内任意一天
	CampusID *string `form:"campus_id" binding:"omitempty,uuid"`
	City     *string `form:"city"      binding:"omitempty,max=80"`
}

// AddPlanLineRequest 加入课节请求
type AddPlanLineRequest struct {
	SessionID string `json:"session_id" binding:"required,uuid"`
}

// PlanLineResponse 周计划明细
type PlanLineResponse struct {
	ID               string        `json:"id"`
	SessionID        string        `json:"session_id"`
	Date             string        `json:"date,omitempty"`
	TimeStart        string        `json:"time_start,omitempty"`
	TimeEnd          string        `json:"time_end,omitempty"`
	SessionState     string        `json:"session_state,omitempty"`
	EffectiveSubject *SubjectBrief `json:"effective_subject,omitempty"`
	EnrollmentID     *string       `json:"enrollment_id,omitempty"`
}

// WeeklyPlanResponse 周计划
type WeeklyPlanResponse struct {
	ID             string             `json:"id"`
	StudentID      string             `json:"student_id"`
	WeekStart      string             `json:"week_start"`
	WeekEnd        string             `json:"week_end"`
	FilterCampusID *string            `json:"filter_campus_id,omitempty"`
	FilterCity     *string            `json:"filter_city,omitempty"`
	Lines          []PlanLineResponse `json:"lines"`
}

// BookableSessionResponse 可预约课节及对该学员的实际科目预览
type BookableSessionResponse struct {
	Session          SessionResponse `json:"session"`
	EffectiveSubject *SubjectBrief   `json:"effective_subject,omitempty"`
	Bookable         bool            `json:"bookable"`
	RejectCode       string          `json:"reject_code,omitempty"`
	RejectHint       string          `json:"reject_hint,omitempty"`
}

// RemovePlanLineResponse 移除结果（含级联移除的明细）
type RemovePlanLineResponse struct {
	Removed  []string `json:"removed"`
	Cascaded []string `json:"cascaded"`
}

// [自证通过] internal/dto/weekly_plan.go
