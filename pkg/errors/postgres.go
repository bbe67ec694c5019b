package errors

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE
const (
	sqlStateUniqueViolation    = "23505"
	sqlStateExclusionViolation = "23P01"
)

// 约束名 → 业务错误（与 migrations 中的约束命名保持一致）
var constraintErrors = map[string]*AppError{
	"sessions_teacher_no_overlap":    ErrTeacherConflict,
	"sessions_room_no_overlap":       ErrRoomConflict,
	"uq_session_enrollments_student": ErrEnrollmentExists,
	"uq_weekly_plan_lines_session":   ErrEnrollmentExists.WithMessage("该课节已在本周计划中"),
	"uq_academic_histories_session":  ErrAlreadyCompleted.WithMessage("该课节的学习记录已存在"),
	"uq_weekly_plans_student_week":   ErrConcurrentModify,
	"uq_agendas_code":                ErrConcurrentModify.WithMessage("排课表编码冲突，请重试"),
}

// FromDB 将数据库约束冲突翻译为业务错误，其他错误原样返回
func FromDB(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	if pgErr.Code != sqlStateUniqueViolation && pgErr.Code != sqlStateExclusionViolation {
		return err
	}
	if appErr, ok := constraintErrors[strings.ToLower(pgErr.ConstraintName)]; ok {
		return appErr
	}
	if pgErr.Code == sqlStateExclusionViolation {
		if strings.Contains(pgErr.ConstraintName, "room") {
			return ErrRoomConflict
		}
		return ErrTeacherConflict
	}
	return err
}
