package model

// ── 科目类别 ──

const (
	CategoryBcheck           = "bcheck"
	CategoryBskills          = "bskills"
	CategoryOralTest         = "oral_test"
	CategoryRegular          = "regular"
	CategoryElective         = "elective"
	CategoryConversationClub = "conversation_club"
)

// ── 模板映射方式 ──

const (
	MappingPerUnit = "per_unit"
	MappingPair    = "pair"
	MappingBlock   = "block"
	MappingFixed   = "fixed"
)

// Program 课程项目，对应 programs
type Program struct {
	ProgramID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"program_id"`
	Code      string `gorm:"type:varchar(30);not null;uniqueIndex"          json:"code"`
	Name      string `gorm:"type:varchar(120);not null"                     json:"name"`
	MaxUnit   int    `gorm:"not null;default:20"                            json:"max_unit"`
	BaseModel
}

func (Program) TableName() string { return "programs" }

// Phase 阶段，对应 phases
type Phase struct {
	PhaseID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"phase_id"`
	ProgramID string `gorm:"type:uuid;not null"                             json:"program_id"`
	Name      string `gorm:"type:varchar(120);not null"                     json:"name"`
	Sequence  int    `gorm:"not null;default:1"                             json:"sequence"`
	BaseModel
}

func (Phase) TableName() string { return "phases" }

// Level 级别，对应 levels，覆盖一段连续单元
type Level struct {
	LevelID   string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"level_id"`
	ProgramID string  `gorm:"type:uuid;not null"                             json:"program_id"`
	PhaseID   *string `gorm:"type:uuid"                                      json:"phase_id,omitempty"`
	Name      string  `gorm:"type:varchar(120);not null"                     json:"name"`
	UnitFrom  int     `gorm:"not null"                                       json:"unit_from"`
	UnitTo    int     `gorm:"not null"                                       json:"unit_to"`
	BaseModel
}

func (Level) TableName() string { return "levels" }

// Subject 科目，对应 subjects
//
// bskills 需要 UnitNumber + BskillNumber(1-4)；oral_test 需要 UnitBlockStart/End；
// 其余类别按 UnitNumber 定位。前置科目构成有向无环图。
type Subject struct {
	SubjectID      string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"subject_id"`
	ProgramID      string  `gorm:"type:uuid;not null;index"                       json:"program_id"`
	LevelID        *string `gorm:"type:uuid"                                      json:"level_id,omitempty"`
	PhaseID        *string `gorm:"type:uuid"                                      json:"phase_id,omitempty"`
	Code           string  `gorm:"type:varchar(40);not null"                      json:"code"`
	Name           string  `gorm:"type:varchar(160);not null"                     json:"name"`
	Category       string  `gorm:"type:varchar(30);not null"                      json:"category"`
	UnitNumber     *int    `json:"unit_number,omitempty"`
	BskillNumber   *int    `json:"bskill_number,omitempty"`
	UnitBlockStart *int    `json:"unit_block_start,omitempty"`
	UnitBlockEnd   *int    `json:"unit_block_end,omitempty"`
	Active         bool    `gorm:"not null;default:true"                          json:"active"`
	BaseModel

	// 关联
	Prerequisites []Subject `gorm:"many2many:subject_prerequisites;joinForeignKey:SubjectID;joinReferences:PrerequisiteID" json:"prerequisites,omitempty"`
}

func (Subject) TableName() string { return "subjects" }

// Unit 返回单元号（未设置时为 0）
func (s *Subject) Unit() int {
	if s == nil || s.UnitNumber == nil {
		return 0
	}
	return *s.UnitNumber
}

// Slot 返回 bskill 序号（未设置时为 0）
func (s *Subject) Slot() int {
	if s == nil || s.BskillNumber == nil {
		return 0
	}
	return *s.BskillNumber
}

// HasPrerequisite 判断 id 是否为该科目的直接前置
func (s *Subject) HasPrerequisite(id string) bool {
	for i := range s.Prerequisites {
		if s.Prerequisites[i].SubjectID == id {
			return true
		}
	}
	return false
}

// Template 课节模板，对应 session_templates
// 描述一个通用课节如何针对具体学员推导出实际科目
type Template struct {
	TemplateID       string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"template_id"`
	ProgramID        *string `gorm:"type:uuid"                                      json:"program_id,omitempty"`
	Name             string  `gorm:"type:varchar(120);not null"                     json:"name"`
	SubjectCategory  string  `gorm:"type:varchar(30);not null"                      json:"subject_category"`
	MappingMode      string  `gorm:"type:varchar(20);not null"                      json:"mapping_mode"` // per_unit | pair | block | fixed
	PairSize         *int    `json:"pair_size,omitempty"`
	BlockSize        *int    `json:"block_size,omitempty"`
	FixedSubjectID   *string `gorm:"type:uuid"                                      json:"fixed_subject_id,omitempty"`
	AllowNextPending bool    `gorm:"not null;default:false"                         json:"allow_next_pending"`
	BaseModel
}

func (Template) TableName() string { return "session_templates" }

// [自证通过] internal/model/catalog.go
