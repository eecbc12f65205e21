// Package storage persists forecast artifacts to a local directory or a
// Google Cloud Storage bucket under date-partitioned keys.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/couchcryptid/sounding-forecast/internal/domain"
)

// Store writes artifacts by object key.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Close() error
}

// Mode selects the Store backend.
type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCS   Mode = "gcs"
)

// New creates a Store for mode.
func New(ctx context.Context, mode Mode, localDir, bucket string) (Store, error) {
	switch mode {
	case ModeLocal:
		if localDir == "" {
			localDir = "artifacts-out"
		}
		s, err := NewLocalStore(localDir)
		if err != nil {
			return nil, fmt.Errorf("init local storage: %w", err)
		}
		return s, nil
	case ModeGCS:
		s, err := NewGCSStore(ctx, bucket)
		if err != nil {
			return nil, fmt.Errorf("init gcs storage: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported storage mode: %q", mode)
	}
}

// ArtifactKey returns "{year}/{month}/{day}/{name}" with unpadded components.
func ArtifactKey(d domain.Date, name string) string {
	return fmt.Sprintf("%d/%d/%d/%s", d.Year, int(d.Month), d.Day, name)
}

// ContentType determines the MIME type from the file extension.
func ContentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".txt":
		return "text/plain"
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	case ".parquet":
		return "application/vnd.apache.parquet"
	default:
		return "application/octet-stream"
	}
}
