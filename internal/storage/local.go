package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/mywill/internal/auth/token"
	"github.com/smallbiznis/mywill/internal/config"
	"go.uber.org/zap"
)

// Local stores objects as files below root.
type Local struct {
	root      string
	publicURL string
	tokens    *token.Issuer
	log       *zap.Logger
}

func NewLocal(cfg config.Config, tokens *token.Issuer, log *zap.Logger) (Provider, error) {
	return newLocal(cfg.StorageRoot, cfg.PublicURL, tokens, log)
}

func newLocal(root, publicURL string, tokens *token.Issuer, log *zap.Logger) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, err
	}
	return &Local{
		root:      abs,
		publicURL: strings.TrimRight(publicURL, "/"),
		tokens:    tokens,
		log:       log.Named("storage.local"),
	}, nil
}

func (l *Local) Put(ctx context.Context, key, contentType string, r io.Reader) (int64, error) {
	target, err := l.resolve(key)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return 0, err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		return 0, err
	}

	l.log.Debug("stored object", zap.String("key", key), zap.String("content_type", contentType), zap.Int64("size", n))
	return n, nil
}

func (l *Local) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	target, err := l.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(target)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

func (l *Local) Delete(ctx context.Context, key string) error {
	target, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (l *Local) SignedURL(key string, ttl time.Duration) (string, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = DefaultURLTTL
	}
	raw, _, err := l.tokens.Issue(token.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: clean},
		Purpose:          token.PurposeDownload,
	}, ttl)
	if err != nil {
		return "", err
	}
	return l.publicURL + "/files/" + clean + "?token=" + url.QueryEscape(raw), nil
}

func (l *Local) Verify(key, raw string) error {
	clean, err := cleanKey(key)
	if err != nil {
		return err
	}
	claims, err := l.tokens.Parse(raw, token.PurposeDownload)
	if err != nil || claims.Subject != clean {
		return ErrInvalidToken
	}
	return nil
}

func (l *Local) resolve(key string) (string, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.root, filepath.FromSlash(clean)), nil
}

// cleanKey rejects keys that are empty, absolute or escape the root.
func cleanKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	clean := path.Clean(key)
	if clean != key || clean == "." || strings.HasPrefix(clean, "../") || clean == ".." {
		return "", ErrInvalidKey
	}
	return clean, nil
}
