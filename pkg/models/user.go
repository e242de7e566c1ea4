package models

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role 用户角色（与数据库中的 role 列一致）
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleViewer Role = "VIEWER"
)

// ParseRole validates a raw role string coming from a token or the database.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleOwner, RoleAdmin, RoleViewer:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role: %q", s)
}

// User represents a user in the system
type User struct {
	ID             int64     `json:"id" db:"id"`
	Email          string    `json:"email" db:"email"`
	Password       string    `json:"-" db:"password_hash"` // Never return password in JSON
	Role           Role      `json:"role" db:"role"`
	OrganizationID int64     `json:"organization_id" db:"organization_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Principal 已认证调用方（从 JWT claims 解出，随每个请求显式传递）
// 所有授权判断只依赖这三个字段，不读取任何全局会话状态。
type Principal struct {
	UserID         int64 `json:"user_id"`
	Role           Role  `json:"role"`
	OrganizationID int64 `json:"organization_id"`
}

// UserLoginRequest represents the request payload for user login
type UserLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserLoginResponse represents the response payload for user login
type UserLoginResponse struct {
	User         User   `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// RefreshTokenRequest represents the request payload for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenClaims represents the JWT token claims
type TokenClaims struct {
	UserID         int64  `json:"user_id"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	OrganizationID int64  `json:"organization_id"`
	Type           string `json:"type"` // "access" or "refresh"
	Exp            int64  `json:"exp"`
	Iat            int64  `json:"iat"`
}

// Principal 将 claims 转换为授权层使用的 Principal
func (c *TokenClaims) Principal() (Principal, error) {
	role, err := ParseRole(c.Role)
	if err != nil {
		return Principal{}, err
	}
	return Principal{
		UserID:         c.UserID,
		Role:           role,
		OrganizationID: c.OrganizationID,
	}, nil
}

// GetExpirationTime implements jwt.Claims interface
func (c *TokenClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Exp, 0)), nil
}

// GetIssuedAt implements jwt.Claims interface
func (c *TokenClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Iat, 0)), nil
}

// GetNotBefore implements jwt.Claims interface
func (c *TokenClaims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetIssuer implements jwt.Claims interface
func (c *TokenClaims) GetIssuer() (string, error) {
	return "", nil
}

// GetSubject implements jwt.Claims interface
func (c *TokenClaims) GetSubject() (string, error) {
	return fmt.Sprintf("%d", c.UserID), nil
}

// GetAudience implements jwt.Claims interface
func (c *TokenClaims) GetAudience() (jwt.ClaimStrings, error) {
	return nil, nil
}
