package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// Code 对外稳定的业务错误码
type Code string

const (
	CodeSessionInvalidState   Code = "session_invalid_state"
	CodeSessionNotPublished   Code = "session_not_published"
	CodeSessionCancelled      Code = "session_cancelled"
	CodeSessionFinished       Code = "session_finished"
	CodeOutOfWeekRange        Code = "out_of_week_range"
	CodeBookingWindow         Code = "booking_window"
	CodeNoEffectiveSubject    Code = "no_effective_subject"
	CodeBcheckRequired        Code = "bcheck_required"
	CodeMissingBcheck         Code = "missing_bcheck"
	CodeBcheckRequiredForOral Code = "bcheck_required_for_oral"
	CodeOralTestPending       Code = "oral_test_pending"
	CodeUnitComplete          Code = "unit_complete"
	CodeAlreadyCompleted      Code = "already_completed"
	CodeMissingPrerequisites  Code = "missing_prerequisites"
	CodeEnrollmentMissing     Code = "enrollment_missing"
	CodeTimeOverlap           Code = "time_overlap"
	CodeBcheckWeeklyLimit     Code = "bcheck_weekly_limit"
	CodeTeacherConflict       Code = "teacher_conflict"
	CodeRoomConflict          Code = "room_conflict"
	CodeCapacityExceeded      Code = "capacity_exceeded"
	CodeConcurrentModify      Code = "concurrent_modification"
	CodeCatalogMisconfig      Code = "catalog_misconfiguration"

	CodeNotFound           Code = "not_found"
	CodeValidationFailed   Code = "validation_failed"
	CodeAgendaInvalidState Code = "agenda_invalid_state"
	CodeAgendaLocked       Code = "agenda_locked"
	CodeEnrollmentExists   Code = "enrollment_exists"
	CodeStudentSuspended   Code = "student_suspended"
	CodeForbidden          Code = "forbidden"
)

// AppError 结构化业务错误
//
// Code 稳定且可被调用方依赖；Message 面向用户；Hint 给出下一步操作建议；
// Details 列举具体的违规项（如发布校验失败的课节）。
type AppError struct {
	Code    Code     `json:"code"`
	Message string   `json:"message"`
	Hint    string   `json:"hint,omitempty"`
	Details []string `json:"details,omitempty"`
}

// New 创建业务错误
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Hint != "" {
		b.WriteString(" (")
		b.WriteString(e.Hint)
		b.WriteString(")")
	}
	if len(e.Details) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Details, "; "))
		b.WriteString("]")
	}
	return b.String()
}

// Is 按错误码比较，带 Hint/Details 的副本与哨兵错误视为同一错误
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithHint 返回附带下一步建议的副本
func (e *AppError) WithHint(format string, args ...interface{}) *AppError {
	cp := *e
	cp.Hint = fmt.Sprintf(format, args...)
	return &cp
}

// WithMessage 返回替换了消息的副本
func (e *AppError) WithMessage(format string, args ...interface{}) *AppError {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// WithDetails 返回附带违规明细的副本
func (e *AppError) WithDetails(details ...string) *AppError {
	cp := *e
	cp.Details = append(append([]string(nil), e.Details...), details...)
	return &cp
}

// CodeOf 提取错误链中的业务错误码，非业务错误返回空串
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	if errors.Is(err, ErrOptimisticLock) {
		return CodeConcurrentModify
	}
	return ""
}

// AsAppError 提取错误链中的业务错误
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	if errors.Is(err, ErrOptimisticLock) {
		return ErrConcurrentModify, true
	}
	return nil, false
}

// ── 哨兵错误 ──

var (
	ErrSessionInvalidState   = New(CodeSessionInvalidState, "当前课节状态不允许该操作")
	ErrSessionNotPublished   = New(CodeSessionNotPublished, "课节尚未发布")
	ErrSessionCancelled      = New(CodeSessionCancelled, "课节已取消")
	ErrSessionFinished       = New(CodeSessionFinished, "课节已开始或已结束")
	ErrOutOfWeekRange        = New(CodeOutOfWeekRange, "课节日期不在该周计划范围内")
	ErrBookingWindow         = New(CodeBookingWindow, "已超过预约截止时间")
	ErrNoEffectiveSubject    = New(CodeNoEffectiveSubject, "无法确定该课节对应的科目")
	ErrBcheckRequired        = New(CodeBcheckRequired, "需要先完成或预约本单元的 bcheck")
	ErrMissingBcheck         = New(CodeMissingBcheck, "缺少前置 bcheck")
	ErrBcheckRequiredForOral = New(CodeBcheckRequiredForOral, "口试前需出席本模块最后一个单元的 bcheck")
	ErrOralTestPending       = New(CodeOralTestPending, "需要先完成上一模块的口试")
	ErrUnitComplete          = New(CodeUnitComplete, "本单元的技能课已全部完成")
	ErrAlreadyCompleted      = New(CodeAlreadyCompleted, "该科目已完成")
	ErrMissingPrerequisites  = New(CodeMissingPrerequisites, "前置科目未完成")
	ErrEnrollmentMissing     = New(CodeEnrollmentMissing, "未报读包含该科目的课程计划")
	ErrTimeOverlap           = New(CodeTimeOverlap, "与已预约的课节时间重叠")
	ErrBcheckWeeklyLimit     = New(CodeBcheckWeeklyLimit, "每周最多预约一个 bcheck")
	ErrTeacherConflict       = New(CodeTeacherConflict, "教师在该时段已有课节")
	ErrRoomConflict          = New(CodeRoomConflict, "教室在该时段已被占用")
	ErrCapacityExceeded      = New(CodeCapacityExceeded, "课节名额已满")
	ErrConcurrentModify      = New(CodeConcurrentModify, "数据已被其他操作修改，请刷新后重试")
	ErrCatalogMisconfig      = New(CodeCatalogMisconfig, "科目目录配置缺失")

	ErrNotFound           = New(CodeNotFound, "记录不存在")
	ErrValidation         = New(CodeValidationFailed, "参数校验失败")
	ErrAgendaInvalidState = New(CodeAgendaInvalidState, "当前排课表状态不允许该操作")
	ErrAgendaLocked       = New(CodeAgendaLocked, "排课表已发布或已有课节开课，不可修改结构")
	ErrEnrollmentExists   = New(CodeEnrollmentExists, "学员已报名该课节")
	ErrStudentSuspended   = New(CodeStudentSuspended, "学员账号已暂停，无法预约")
	ErrForbidden          = New(CodeForbidden, "无权操作该资源")
)

// [自证通过] pkg/errors/errors.go
