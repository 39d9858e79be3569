package routes

import (
	"github.com/brezcode/brezcode-platform-sub008/internal/api/handlers"
	"github.com/brezcode/brezcode-platform-sub008/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

type Deps struct {
	Scenario *handlers.ScenarioHandler
	Session  *handlers.SessionHandler
	Feedback *handlers.FeedbackHandler
	WS       *handlers.WSHandler

	JWT middleware.JWTConfig
	// Auth replaces JWT verification when set.
	Auth gin.HandlerFunc
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	auth := d.Auth
	if auth == nil {
		auth = middleware.JWTAuth(d.JWT)
	}
	api := r.Group("/")
	api.Use(auth)

	api.GET("/scenarios", d.Scenario.List)
	api.GET("/scenarios/:scenario_id", d.Scenario.Get)

	api.POST("/sessions", d.Session.Create)
	api.GET("/sessions/:session_id", d.Session.Get)
	api.POST("/sessions/:session_id/advance", d.Session.Advance)
	api.POST("/sessions/:session_id/complete", d.Session.Complete)

	review := api.Group("/sessions/:session_id/messages/:message_id")
	review.Use(middleware.RequireReviewer())
	review.POST("/corrections", d.Feedback.Submit)
	review.POST("/voice-corrections", d.Feedback.SubmitVoice)

	api.GET("/ws/sessions/:session_id", d.WS.SessionWS)
}
