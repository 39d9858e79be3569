package services

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/brezcode/brezcode-platform-sub008/internal/models"
)

type recordingUploader struct {
	name string
	body []byte
}

func (u *recordingUploader) Upload(_ context.Context, name, _ string, r io.Reader) (string, error) {
	u.name = name
	b, err := io.ReadAll(r)
	u.body = b
	return "gs://bucket/" + name, err
}

func TestTranscriptArchive(t *testing.T) {
	up := &recordingUploader{}
	a := NewTranscriptArchiver(up, "transcripts/")
	s := &models.Session{SessionID: "s1", AvatarID: "dr_sakura", Status: models.SessionCompleted}

	where, err := a.Archive(context.Background(), s)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if up.name != "transcripts/dr_sakura/s1.json" || where != "gs://bucket/transcripts/dr_sakura/s1.json" {
		t.Fatalf("stored at %q (%q)", up.name, where)
	}
	var got models.Session
	if err := json.Unmarshal(up.body, &got); err != nil || got.SessionID != "s1" {
		t.Fatalf("body = %s", up.body)
	}
}
