package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/brezcode/brezcode-platform-sub008/internal/models"
	"github.com/brezcode/brezcode-platform-sub008/internal/utils"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

func writeError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)

	var ae *utils.AppError
	if errors.As(err, &ae) {
		c.JSON(status, APIError{
			Code:    ae.Code,
			Message: ae.Message,
		})
		return
	}

	c.JSON(status, APIError{
		Code:    utils.CodeInternal,
		Message: http.StatusText(status),
	})
}

func requireUserID(c *gin.Context) (string, bool) {
	if v, ok := c.Get("user_id"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}

	writeError(c, utils.E(utils.CodeUnauthorized, "Auth", "unauthorized", nil))
	return "", false
}

func roleOf(c *gin.Context) string {
	v, _ := c.Get("role")
	s, _ := v.(string)
	return strings.ToLower(s)
}

// canAccess lets trainers reach their own sessions and reviewers reach all.
func canAccess(c *gin.Context, userID string, sess *models.Session) bool {
	if sess.UserID == userID {
		return true
	}
	switch roleOf(c) {
	case "admin", "reviewer":
		return true
	}
	return false
}

// requestID prefers the body field over the Idempotency-Key header.
func requestID(c *gin.Context, fromBody string) string {
	if v := strings.TrimSpace(fromBody); v != "" {
		return v
	}
	return strings.TrimSpace(c.GetHeader("Idempotency-Key"))
}
