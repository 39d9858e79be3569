package services

import (
	"bytes"
	"context"
	"encoding/json"
	"path"

	"github.com/brezcode/brezcode-platform-sub008/internal/models"
	"github.com/brezcode/brezcode-platform-sub008/internal/storage"
)

// TranscriptArchiver uploads completed sessions as JSON documents.
type TranscriptArchiver struct {
	uploader storage.Uploader
	prefix   string
}

func NewTranscriptArchiver(u storage.Uploader, prefix string) *TranscriptArchiver {
	if prefix == "" {
		prefix = "transcripts"
	}
	return &TranscriptArchiver{uploader: u, prefix: prefix}
}

func (a *TranscriptArchiver) Archive(ctx context.Context, s *models.Session) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	name := path.Join(a.prefix, s.AvatarID, s.SessionID+".json")
	return a.uploader.Upload(ctx, name, "application/json", bytes.NewReader(b))
}
