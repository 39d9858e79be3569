package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"github.com/brezcode/brezcode-platform-sub008/internal/utils"
	"google.golang.org/api/option"
)

// GCSBucket reads scenario catalogs from and archives transcripts to one bucket.
// Objects stay private.
type GCSBucket struct {
	client *gcs.Client
	bucket string
}

func NewGCSBucket(ctx context.Context, bucket, credentialsFile string) (*GCSBucket, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	c, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GCSBucket{client: c, bucket: bucket}, nil
}

func (b *GCSBucket) Close() error { return b.client.Close() }

func (b *GCSBucket) Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (string, error) {
	w := b.client.Bucket(b.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return fmt.Sprintf("gs://%s/%s", b.bucket, objectName), nil
}

func (b *GCSBucket) Open(ctx context.Context, objectName string) (io.ReadCloser, error) {
	r, err := b.client.Bucket(b.bucket).Object(objectName).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, utils.ErrNotFound
	}
	return r, err
}
