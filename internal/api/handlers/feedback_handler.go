package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/brezcode/brezcode-platform-sub008/internal/services"
	"github.com/brezcode/brezcode-platform-sub008/internal/utils"
	"github.com/gin-gonic/gin"
)

const maxAudioBytes = 10 << 20

type FeedbackHandler struct {
	svc services.FeedbackService
}

func NewFeedbackHandler(svc services.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{svc: svc}
}

type SubmitCorrectionRequest struct {
	Comment   string `json:"comment" binding:"required"`
	Rating    int    `json:"rating" binding:"required"`
	RequestID string `json:"request_id"`
}

type CorrectionResponse struct {
	*services.CorrectionResult
	Warning string `json:"warning,omitempty"`
}

func (h *FeedbackHandler) Submit(c *gin.Context) {
	reviewerID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req SubmitCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "FeedbackHandler.Submit", "invalid request body", err))
		return
	}

	res, err := h.svc.SubmitCorrection(c.Request.Context(), services.CorrectionRequest{
		SessionID:  c.Param("session_id"),
		MessageID:  c.Param("message_id"),
		ReviewerID: reviewerID,
		Comment:    req.Comment,
		Rating:     req.Rating,
		RequestID:  requestID(c, req.RequestID),
	})
	writeCorrection(c, res, err)
}

// SubmitVoice takes a multipart form with an "audio" file, "rating" and an
// optional "language" (BCP-47, default en-US).
func (h *FeedbackHandler) SubmitVoice(c *gin.Context) {
	const op = "FeedbackHandler.SubmitVoice"
	reviewerID, ok := requireUserID(c)
	if !ok {
		return
	}

	rating, err := strconv.Atoi(c.PostForm("rating"))
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "rating must be a number", err))
		return
	}
	fh, err := c.FormFile("audio")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "audio file is required", err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "unreadable audio file", err))
		return
	}
	defer f.Close()
	audio, err := io.ReadAll(io.LimitReader(f, maxAudioBytes+1))
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "unreadable audio file", err))
		return
	}
	if len(audio) > maxAudioBytes {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "audio file exceeds 10 MiB", nil))
		return
	}

	language := c.DefaultPostForm("language", "en-US")
	res, err := h.svc.SubmitVoiceCorrection(c.Request.Context(), services.CorrectionRequest{
		SessionID:  c.Param("session_id"),
		MessageID:  c.Param("message_id"),
		ReviewerID: reviewerID,
		Rating:     rating,
		RequestID:  requestID(c, c.PostForm("request_id")),
	}, audio, language)
	writeCorrection(c, res, err)
}

// writeCorrection answers 200 on a partial failure: the correction is stored
// and only the learned response is behind.
func writeCorrection(c *gin.Context, res *services.CorrectionResult, err error) {
	if err != nil && !(utils.IsPartial(err) && res != nil) {
		writeError(c, err)
		return
	}
	out := CorrectionResponse{CorrectionResult: res}
	if err != nil {
		out.Warning = "correction saved but the learned response was not updated"
	}
	c.JSON(http.StatusOK, out)
}
