package middleware

import (
	"net/http"
	"strings"

	"github.com/brezcode/brezcode-platform-sub008/internal/utils"
	"github.com/gin-gonic/gin"
)

const (
	RoleTrainer  = "trainer"
	RoleReviewer = "reviewer"
	RoleAdmin    = "admin"
)

// RequireRole lets the request through only when the role set by JWTAuth is
// one of allowed. Comparison ignores case.
func RequireRole(allowed ...string) gin.HandlerFunc {
	allow := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			allow[a] = true
		}
	}

	return func(c *gin.Context) {
		role := strings.ToLower(strings.TrimSpace(c.GetString("role")))
		if !allow[role] {
			abortAuth(c, http.StatusForbidden, utils.CodeForbidden, "forbidden")
			return
		}
		c.Next()
	}
}

// RequireReviewer admits reviewers and admins.
func RequireReviewer() gin.HandlerFunc { return RequireRole(RoleReviewer, RoleAdmin) }
