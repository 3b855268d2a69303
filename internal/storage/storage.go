package storage

import (
	"context"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// ImageStore hands out read URLs for workout catalog images. Uploading and
// deleting images belongs to catalog administration, not to scheduling.
type ImageStore interface {
	// PresignedImageURL creates a temporary URL that allows GET requests
	// for viewing an object directly from the storage provider.
	PresignedImageURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)
}

// NoopImageStore is used when no bucket is configured; images are simply omitted.
type NoopImageStore struct{}

func (NoopImageStore) PresignedImageURL(context.Context, string, time.Duration) (string, error) {
	return "", nil
}
