// Package storage keeps rendered documents and hands out time-limited
// download links for them.
package storage

import (
	"context"
	"io"
	"time"

	"github.com/smallbiznis/mywill/internal/errs"
)

const DefaultURLTTL = time.Hour

var (
	ErrNotFound     = errs.New(errs.KindNotFound, "file_not_found")
	ErrInvalidKey   = errs.New(errs.KindValidationFailed, "invalid_storage_key")
	ErrInvalidToken = errs.New(errs.KindUnauthorized, "invalid_download_token")
)

type Provider interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// SignedURL returns an absolute download URL for key valid for ttl.
	SignedURL(key string, ttl time.Duration) (string, error)
	// Verify checks a download token previously minted for key.
	Verify(key, token string) error
}
