package storage

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
)

// GCSStore writes artifacts to a Cloud Storage bucket using application
// default credentials.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore creates a client for bucket.
func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket name is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

func (g *GCSStore) Put(ctx context.Context, key string, data []byte) error {
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = ContentType(key)

	if _, err := w.Write(data); err != nil {
		w.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("write gs://%s/%s: %w", g.bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize gs://%s/%s: %w", g.bucket, key, err)
	}
	return nil
}

func (g *GCSStore) Close() error {
	return g.client.Close()
}
