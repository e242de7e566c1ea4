package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"taskboard-backend/pkg/config"
	"taskboard-backend/pkg/logs"
	"taskboard-backend/pkg/models"
	"taskboard-backend/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey 用于在context中存储认证信息的键
type ContextKey string

const (
	PrincipalContextKey ContextKey = "principal"
)

// AuthMiddleware JWT认证中间件
// 验证 access token 并把 Principal 放进 context，后续的角色门禁
// 和服务层都从这里取调用方身份。
func AuthMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 从Authorization头获取token
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.WriteUnauthorizedResponse(w, "Missing authorization header")
				return
			}

			// 检查Bearer前缀
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				utils.WriteUnauthorizedResponse(w, "Invalid authorization header format")
				return
			}

			// 解析和验证JWT token
			token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
				// 验证签名方法
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(cfg.JWTSecret), nil
			})

			if err != nil {
				logs.Logger.WithField("path", r.URL.Path).WithError(err).Debug("token parsing failed")
				utils.WriteUnauthorizedResponse(w, "Invalid token")
				return
			}

			if !token.Valid {
				utils.WriteUnauthorizedResponse(w, "Invalid token")
				return
			}

			claims, ok := token.Claims.(*models.TokenClaims)
			if !ok {
				utils.WriteUnauthorizedResponse(w, "Invalid token claims")
				return
			}

			// 只接受access token
			if claims.Type != "access" {
				utils.WriteUnauthorizedResponse(w, "Invalid token type")
				return
			}

			// 检查token是否过期
			if time.Now().Unix() > claims.Exp {
				utils.WriteUnauthorizedResponse(w, "Token expired")
				return
			}

			principal, err := claims.Principal()
			if err != nil {
				logs.Logger.WithField("user_id", claims.UserID).WithError(err).Warn("token carries invalid role")
				utils.WriteUnauthorizedResponse(w, "Invalid token claims")
				return
			}

			// 将调用方身份添加到请求context中
			ctx := context.WithValue(r.Context(), PrincipalContextKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipalFromContext 从context中获取调用方身份
func GetPrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	principal, ok := ctx.Value(PrincipalContextKey).(models.Principal)
	return principal, ok
}

// RequirePrincipal 要求调用方必须已认证的辅助函数
func RequirePrincipal(ctx context.Context) (models.Principal, error) {
	principal, ok := GetPrincipalFromContext(ctx)
	if !ok {
		return models.Principal{}, fmt.Errorf("not authenticated")
	}
	return principal, nil
}

// RequireRoles 角色门禁中间件：调用方角色不在白名单内直接返回403。
// 必须挂在 AuthMiddleware 之后。
func RequireRoles(roles ...models.Role) func(http.Handler) http.Handler {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := GetPrincipalFromContext(r.Context())
			if !ok {
				utils.WriteUnauthorizedResponse(w, "Not authenticated")
				return
			}

			if _, ok := allowed[principal.Role]; !ok {
				utils.WriteForbiddenResponse(w, "Insufficient role")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
