package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/brezcode/brezcode-platform-sub008/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type apiError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

// JWTConfig holds the HS256 secret and optional issuer/audience checks.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

// trainerClaims carries the platform role in app_metadata.role
// (trainer by default, reviewer or admin for feedback access).
type trainerClaims struct {
	jwt.RegisteredClaims
	AppMetadata map[string]any `json:"app_metadata"`
}

func abortAuth(c *gin.Context, status int, code utils.Code, msg string) {
	c.AbortWithStatusJSON(status, apiError{Code: code, Message: msg})
}

func JWTAuth(cfg JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Secret == "" {
			abortAuth(c, http.StatusInternalServerError, utils.CodeInternal, "SUPABASE_JWT_SECRET is not set")
			return
		}

		raw, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		raw = strings.TrimSpace(raw)
		if !found || raw == "" {
			// browsers cannot set headers on websocket upgrades
			raw = c.Query("access_token")
		}
		if raw == "" {
			abortAuth(c, http.StatusUnauthorized, utils.CodeUnauthorized, "missing bearer token")
			return
		}

		claims := &trainerClaims{}
		tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			return []byte(cfg.Secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || tok == nil || !tok.Valid {
			abortAuth(c, http.StatusUnauthorized, utils.CodeUnauthorized, "invalid token")
			return
		}

		if cfg.Issuer != "" && claims.Issuer != cfg.Issuer {
			abortAuth(c, http.StatusUnauthorized, utils.CodeUnauthorized, "invalid token issuer")
			return
		}
		if cfg.Audience != "" && !slices.Contains(claims.Audience, cfg.Audience) {
			abortAuth(c, http.StatusUnauthorized, utils.CodeUnauthorized, "invalid token audience")
			return
		}
		if claims.Subject == "" {
			abortAuth(c, http.StatusUnauthorized, utils.CodeUnauthorized, "missing subject")
			return
		}

		role := RoleTrainer
		if s, ok := claims.AppMetadata["role"].(string); ok && s != "" {
			role = s
		}

		c.Set("user_id", claims.Subject)
		c.Set("role", role)
		c.Next()
	}
}
