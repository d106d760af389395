package storage

import (
	"context"
	"strings"

	"golang.org/x/xerrors"
)

type Storage interface {
	// Put stores data with the given key and returns the storage URL
	Put(ctx context.Context, key string, data []byte) (string, error)
	// Get retrieves data from the given storage URL
	Get(ctx context.Context, url string) ([]byte, error)
}

// ForURL returns a backend able to Get the given URL: s3://bucket/key, http(s)://...
// or a local path (optionally prefixed with file://).
func ForURL(ctx context.Context, url string) (Storage, error) {
	switch {
	case strings.HasPrefix(url, "s3://"):
		bucket, _, _ := strings.Cut(strings.TrimPrefix(url, "s3://"), "/")
		if bucket == "" {
			return nil, xerrors.Errorf("missing bucket in %s", url)
		}
		return NewS3Storage(ctx, S3Config{
			Bucket: bucket,
		})
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		return NewHTTPStorage(ctx, HTTPConfig{})
	default:
		return NewFileStorage(ctx, FileConfig{})
	}
}

// New returns the backend named kind rooted at location, which is a directory for
// "file", a bucket for "s3" and a base URL for "http".
func New(ctx context.Context, kind string, location string) (Storage, error) {
	switch kind {
	case "file":
		return NewFileStorage(ctx, FileConfig{
			Directory: location,
		})
	case "s3":
		if location == "" {
			return nil, xerrors.New("missing bucket for s3 storage")
		}
		return NewS3Storage(ctx, S3Config{
			Bucket: location,
		})
	case "http":
		if location == "" {
			return nil, xerrors.New("missing base URL for http storage")
		}
		return NewHTTPStorage(ctx, HTTPConfig{
			BaseURL: location,
		})
	default:
		return nil, xerrors.Errorf("unknown storage backend: %s", kind)
	}
}
