package storage

import (
	"context"
	"io"
)

// Provider stores finished export artifacts.
type Provider interface {
	// Store copies r to the object named key and returns its URL.
	// The key is the relative path/filename for the object.
	Store(ctx context.Context, key string, r io.Reader) (string, error)

	// Open opens the stored object for reading.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// URL returns a viewable/downloadable URL for the stored item.
	URL(key string) string
}
