package repository

import (
	"context"
	"io"
)

// MediaObject describes a stored upload.
type MediaObject struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// MediaRepository stores module media in object storage.
type MediaRepository interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*MediaObject, error)
	Remove(ctx context.Context, key string) error
	// KeyFromURL returns the object key of a URL served from this store
	KeyFromURL(url string) (string, bool)
	Ping(ctx context.Context) error
}
