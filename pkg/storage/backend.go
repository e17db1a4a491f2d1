// Package storage persists run artifacts (reports, tombstones, audit logs)
// to the local filesystem or to S3.
package storage

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned by Get when no blob exists under the key.
var ErrNotFound = errors.New("blob not found")

// BlobStore defines the interface for abstract storage backends.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// ParseS3URI splits s3://bucket/prefix. ok is false for anything else.
func ParseS3URI(uri string) (bucket, prefix string, ok bool) {
	rest, found := strings.CutPrefix(uri, "s3://")
	if !found || rest == "" {
		return "", "", false
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	return bucket, strings.Trim(prefix, "/"), bucket != ""
}

// Open returns an S3Store for s3:// targets and a LocalStore rooted at target
// otherwise. client is only used for S3 targets.
func Open(target string, client S3API) BlobStore {
	if bucket, prefix, ok := ParseS3URI(target); ok {
		return &S3Store{Client: client, Bucket: bucket, Prefix: prefix}
	}
	return NewLocalStore(target)
}
