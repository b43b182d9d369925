package interfaces

import (
	"context"
	"time"
)

// ObjectSigner issues time-limited URLs for objects in the statement bucket.
type ObjectSigner interface {
	// SignedWriteURL returns a PUT URL bound to key and contentType.
	SignedWriteURL(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)
	// SignedReadURL returns a GET URL for key.
	SignedReadURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}
