package dto

// ── 课节模块 DTO ──

// CreateSessionRequest 创建课节请求
type CreateSessionRequest struct {
	AgendaID              string  `json:"agenda_id"               binding:"required,uuid"`
	Date                  string  `json:"date"                    binding:"required,datetime=2006-01-02"`
	TimeStart             string  `json:"time_start"              binding:"required,datetime=15:04"`
	TimeEnd               string  `json:"time_end"                binding:"required,datetime=15:04"`
	TeacherID             string  `json:"teacher_id"              binding:"required,uuid"`
	RoomID                *string `json:"room_id"                 binding:"omitempty,uuid"`
	TemplateID            *string `json:"template_id"             binding:"omitempty,uuid"`
	SubjectID             *string `json:"subject_id"              binding:"omitempty,uuid"`
	ProgramID             *string `json:"program_id"              binding:"omitempty,uuid"`
	DeliveryMode          string  `json:"delivery_mode"           binding:"required,oneof=presential virtual hybrid"`
	MaxCapacity           int     `json:"max_capacity"            binding:"required,min=1,max=500"`
	MaxCapacityPresential *int    `json:"max_capacity_presential" binding:"omitempty,min=0"`
	MaxCapacityVirtual    *int    `json:"max_capacity_virtual"    binding:"omitempty,min=0"`
	AudienceUnitFrom      *int    `json:"audience_unit_from"      binding:"omitempty,min=1"`
	AudienceUnitTo        *int    `json:"audience_unit_to"        binding:"omitempty,min=1"`
}

// UpdateSessionRequest 更新课节请求（字段为空表示不修改）
type UpdateSessionRequest struct {
	Version               int     `json:"version"                 binding:"required,min=1"`
	Date                  *string `json:"date"                    binding:"omitempty,datetime=2006-01-02"`
	TimeStart             *string `json:"time_start"              binding:"omitempty,datetime=15:04"`
	TimeEnd               *string `json:"time_end"                binding:"omitempty,datetime=15:04"`
	TeacherID             *string `json:"teacher_id"              binding:"omitempty,uuid"`
	RoomID                *string `json:"room_id"                 binding:"omitempty,uuid"`
	ClearRoom             bool    `json:"clear_room"`
	TemplateID            *string `json:"template_id"             binding:"omitempty,uuid"`
	SubjectID             *string `json:"subject_id"              binding:"omitempty,uuid"`
	DeliveryMode          *string `json:"delivery_mode"           binding:"omitempty,oneof=presential virtual hybrid"`
	MaxCapacity           *int    `json:"max_capacity"            binding:"omitempty,min=1,max=500"`
	MaxCapacityPresential *int    `json:"max_capacity_presential" binding:"omitempty,min=0"`
	MaxCapacityVirtual    *int    `json:"max_capacity_virtual"    binding:"omitempty,min=0"`
	AudienceUnitFrom      *int    `json:"audience_unit_from"      binding:"omitempty,min=1"`
	AudienceUnitTo        *int    `json:"audience_unit_to"        binding:"omitempty,min=1"`
}

// CancelSessionRequest 取消课节请求
type CancelSessionRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// ReplaceTeacherRequest 更换教师请求
type ReplaceTeacherRequest struct {
	NewTeacherID string   `json:"new_teacher_id" binding:"required,uuid"`
	Reason       string   `json:"reason"         binding:"omitempty,max=500"`
	Scope        string   `json:"scope"          binding:"required,oneof=single future all selected"`
	SessionIDs   []string `json:"session_ids"    binding:"omitempty,dive,uuid"` // scope=selected 时必填
}

// AvailabilityQuery 可用资源查询参数
type AvailabilityQuery struct {
	AgendaID         string `form:"agenda_id"          binding:"required,uuid"`
	Date             string `form:"date"               binding:"required,datetime=2006-01-02"`
	TimeStart        string `form:"time_start"         binding:"required,datetime=15:04"`
	TimeEnd          string `form:"time_end"           binding:"required,datetime=15:04"`
	ExcludeSessionID string `form:"exclude_session_id" binding:"omitempty,uuid"`
	SubcampusID      string `form:"subcampus_id"       binding:"omitempty,uuid"`
}

// TeacherBrief 教师简要信息
type TeacherBrief struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MeetingLink string `json:"meeting_link,omitempty"`
}

// RoomBrief 教室简要信息
type RoomBrief struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Capacity      int    `json:"capacity"`
	SubcampusID   string `json:"subcampus_id,omitempty"`
	SubcampusName string `json:"subcampus_name,omitempty"`
}

// AvailabilityResponse 可用资源
type AvailabilityResponse struct {
	AvailableTeachers []TeacherBrief `json:"available_teachers"`
	AvailableRooms    []RoomBrief    `json:"available_rooms"`
}

// SubjectBrief 科目简要信息
type SubjectBrief struct {
	ID             string `json:"id"`
	Code           string `json:"code"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	UnitNumber     *int   `json:"unit_number,omitempty"`
	BskillNumber   *int   `json:"bskill_number,omitempty"`
	UnitBlockStart *int   `json:"unit_block_start,omitempty"`
	UnitBlockEnd   *int   `json:"unit_block_end,omitempty"`
}

// SessionResponse 课节信息
type SessionResponse struct {
	ID                    string        `json:"id"`
	AgendaID              string        `json:"agenda_id"`
	Date                  string        `json:"date"`
	TimeStart             string        `json:"time_start"`
	TimeEnd               string        `json:"time_end"`
	Teacher               *TeacherBrief `json:"teacher,omitempty"`
	TeacherID             string        `json:"teacher_id"`
	RoomID                *string       `json:"room_id,omitempty"`
	RoomName              string        `json:"room_name,omitempty"`
	TemplateID            *string       `json:"template_id,omitempty"`
	TemplateName          string        `json:"template_name,omitempty"`
	Subject               *SubjectBrief `json:"subject,omitempty"`
	DeliveryMode          string        `json:"delivery_mode"`
	MaxCapacity           int           `json:"max_capacity"`
	MaxCapacityPresential *int          `json:"max_capacity_presential,omitempty"`
	MaxCapacityVirtual    *int          `json:"max_capacity_virtual,omitempty"`
	AudienceUnitFrom      *int          `json:"audience_unit_from,omitempty"`
	AudienceUnitTo        *int          `json:"audience_unit_to,omitempty"`
	State                 string        `json:"state"`
	IsPublished           bool          `json:"is_published"`
	Version               int           `json:"version"`
	CancelReason          string        `json:"cancel_reason,omitempty"`
}

// MarkDoneResponse 完成课节结果
type MarkDoneResponse struct {
	Session        SessionResponse `json:"session"`
	HistoryCreated int             `json:"history_created"`
	LinesRemoved   int64           `json:"lines_removed"`
}

// ReplaceTeacherResponse 更换教师结果
type ReplaceTeacherResponse struct {
	LogID      string   `json:"log_id"`
	Scope      string   `json:"scope"`
	SessionIDs []string `json:"session_ids"`
}

// ReplacementLogQuery 换教师记录分页参数，page 从 1 开始
type ReplacementLogQuery struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

const defaultLogPageSize = 20

func (q *ReplacementLogQuery) GetPage() int {
	return max(q.Page, 1)
}

func (q *ReplacementLogQuery) GetPageSize() int {
	if q.PageSize == 0 {
		return defaultLogPageSize
	}
	return q.PageSize
}

func (q *ReplacementLogQuery) GetOffset() int {
	return (q.GetPage() - 1) * q.GetPageSize()
}

// ReplacementLogResponse 换教师记录
type ReplacementLogResponse struct {
	ID                string   `json:"id"`
	OriginSessionID   string   `json:"origin_session_id"`
	OriginalTeacherID string   `json:"original_teacher_id"`
	NewTeacherID      string   `json:"new_teacher_id"`
	Scope             string   `json:"scope"`
	Reason            string   `json:"reason,omitempty"`
	SessionIDs        []string `json:"session_ids"`
	OperatorID        *string  `json:"operator_id,omitempty"`
	CreatedAt         string   `json:"created_at"`
}

// ReplacementLogListResponse 换教师记录分页
type ReplacementLogListResponse struct {
	Items    []ReplacementLogResponse `json:"items"`
	Total    int64                    `json:"total"`
	Page     int                      `json:"page"`
	PageSize int                      `json:"page_size"`
}

// [自证通过] internal/dto/session.go
