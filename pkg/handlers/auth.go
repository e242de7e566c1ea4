package handlers

import (
	"net/http"
	"strings"

	"taskboard-backend/pkg/config"
	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/logs"
	"taskboard-backend/pkg/models"
	"taskboard-backend/pkg/utils"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	jwt    *utils.JWTService
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg *config.Config, db database.DatabaseInterface) *AuthHandler {
	return &AuthHandler{
		config: cfg,
		db:     db,
		jwt:    utils.NewJWTService(cfg.JWTSecret),
	}
}

// Login 邮箱+密码登录
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.UserLoginRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		utils.WriteValidationErrorResponse(w, "Email and password are required", "")
		return
	}

	user, err := h.db.GetUserByEmail(req.Email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			// 不区分"用户不存在"与"密码错误"，避免探测账号
			utils.WriteUnauthorizedResponse(w, "Invalid credentials")
			return
		}
		logs.Logger.WithError(err).Error("login lookup failed")
		utils.WriteInternalServerErrorResponse(w, "Login failed")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		utils.WriteUnauthorizedResponse(w, "Invalid credentials")
		return
	}

	accessToken, refreshToken, expiresIn, err := h.jwt.GenerateTokenPair(user)
	if err != nil {
		logs.Logger.WithError(err).Error("token generation failed")
		utils.WriteInternalServerErrorResponse(w, "Login failed")
		return
	}

	logs.Logger.WithField("user_id", user.ID).WithField("role", string(user.Role)).Info("user logged in")

	utils.WriteSuccessResponse(w, models.UserLoginResponse{
		User:         *user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	})
}

// RefreshToken 用刷新令牌换新的访问令牌
// POST /api/auth/refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshTokenRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if req.RefreshToken == "" {
		utils.WriteValidationErrorResponse(w, "refresh_token is required", "")
		return
	}

	accessToken, expiresIn, err := h.jwt.RefreshAccessToken(req.RefreshToken)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Invalid refresh token")
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"access_token": accessToken,
		"expires_in":   expiresIn,
	})
}
