package handlers

import (
	"net/http"

	"github.com/brezcode/brezcode-platform-sub008/internal/models"
	"github.com/brezcode/brezcode-platform-sub008/internal/services"
	"github.com/brezcode/brezcode-platform-sub008/internal/utils"
	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	svc    services.SessionService
	engine services.TurnEngine
}

func NewSessionHandler(svc services.SessionService, engine services.TurnEngine) *SessionHandler {
	return &SessionHandler{svc: svc, engine: engine}
}

type CreateSessionRequest struct {
	AvatarID   string `json:"avatar_id" binding:"required"`
	ScenarioID string `json:"scenario_id" binding:"required"`
}

type AdvanceSessionRequest struct {
	SelectedChoice string `json:"selected_choice"`
	RequestID      string `json:"request_id"`
}

func (h *SessionHandler) Create(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "SessionHandler.Create", "invalid request body", err))
		return
	}

	sess, err := h.svc.Create(c.Request.Context(), userID, req.AvatarID, req.ScenarioID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (h *SessionHandler) Get(c *gin.Context) {
	sess, ok := h.authorized(c, "SessionHandler.Get")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *SessionHandler) Advance(c *gin.Context) {
	sess, ok := h.authorized(c, "SessionHandler.Advance")
	if !ok {
		return
	}

	var req AdvanceSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, utils.E(utils.CodeInvalidArgument, "SessionHandler.Advance", "invalid request body", err))
			return
		}
	}

	updated, err := h.engine.Advance(c.Request.Context(), services.AdvanceRequest{
		SessionID:      sess.SessionID,
		SelectedChoice: req.SelectedChoice,
		RequestID:      requestID(c, req.RequestID),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *SessionHandler) Complete(c *gin.Context) {
	sess, ok := h.authorized(c, "SessionHandler.Complete")
	if !ok {
		return
	}

	done, err := h.svc.Complete(c.Request.Context(), sess.SessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, done)
}

// authorized loads the session in the path and checks the caller may use it.
func (h *SessionHandler) authorized(c *gin.Context, op string) (*models.Session, bool) {
	userID, ok := requireUserID(c)
	if !ok {
		return nil, false
	}
	sess, err := h.svc.Get(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	if !canAccess(c, userID, sess) {
		writeError(c, utils.E(utils.CodeForbidden, op, "forbidden", nil))
		return nil, false
	}
	return sess, true
}
