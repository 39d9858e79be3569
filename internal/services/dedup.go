package services

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/brezcode/brezcode-platform-sub008/internal/models"
	"github.com/brezcode/brezcode-platform-sub008/internal/repositories"
	"github.com/brezcode/brezcode-platform-sub008/internal/utils"
	"github.com/sirupsen/logrus"
)

const (
	opAdvance    = "advance"
	opCorrection = "correction"
)

// requestDedup replays outcomes of client request ids seen within the last
// window operations of a session. Callers must hold the session lock.
type requestDedup struct {
	log    repositories.RequestLog
	window int
	logger *logrus.Logger
}

// replay decodes a remembered outcome into dst and reports whether one existed.
func (d *requestDedup) replay(ctx context.Context, op, sessionID, requestID string, dst any) (bool, error) {
	if d == nil || d.log == nil || requestID == "" || d.window <= 0 {
		return false, nil
	}
	rec, err := d.log.Lookup(ctx, sessionID, requestID)
	if errors.Is(err, utils.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, utils.E(utils.CodeStoreUnavailable, op, "request log unavailable", err)
	}
	if rec.Operation != op {
		return false, utils.E(utils.CodeInvalidArgument, op, "request_id already used for a different operation", nil)
	}
	if err := json.Unmarshal(rec.Result, dst); err != nil {
		return false, utils.E(utils.CodeInternal, op, "corrupt request log entry", err)
	}
	return true, nil
}

// remember is best effort: the operation already committed.
func (d *requestDedup) remember(ctx context.Context, op, sessionID, requestID string, result any) {
	if d == nil || d.log == nil || requestID == "" || d.window <= 0 {
		return
	}
	b, err := json.Marshal(result)
	if err == nil {
		err = d.log.Record(ctx, &models.RequestRecord{
			SessionID: sessionID,
			RequestID: requestID,
			Operation: op,
			Result:    b,
		}, d.window)
	}
	if err != nil && d.logger != nil {
		d.logger.WithError(err).WithFields(logrus.Fields{
			"session_id": sessionID,
			"request_id": requestID,
		}).Warn("failed to remember request id")
	}
}
