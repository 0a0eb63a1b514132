// Package token issues and verifies the HMAC-signed JWTs used for sessions,
// password resets and document download links.
package token

import (
	"crypto/rand"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/mywill/internal/clock"
	"github.com/smallbiznis/mywill/internal/config"
	"github.com/smallbiznis/mywill/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

const issuerName = "mywill"

type Purpose string

const (
	PurposeSession       Purpose = "session"
	PurposePasswordReset Purpose = "password_reset"
	PurposeDownload      Purpose = "download"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrNoSecret     = errors.New("AUTH_JWT_SECRET is required in production")
)

// Claims are the registered claims plus the caller's tenant, role and the token purpose.
type Claims struct {
	jwt.RegisteredClaims
	TenantID string  `json:"tid,omitempty"`
	Role     string  `json:"role,omitempty"`
	Purpose  Purpose `json:"pur"`
}

type Issuer struct {
	secret []byte
	clock  clock.Clock
}

// NewIssuer uses AUTH_JWT_SECRET. Outside production a random per-process key is
// generated when it is unset, which invalidates sessions on restart.
func NewIssuer(cfg config.Config, clk clock.Clock, log *zap.Logger) (*Issuer, error) {
	secret := []byte(cfg.AuthJWTSecret)
	if len(secret) == 0 {
		if cfg.IsProduction() {
			return nil, ErrNoSecret
		}
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
		log.Warn("AUTH_JWT_SECRET not set, using an ephemeral signing key")
	}
	return New(secret, clk), nil
}

func New(secret []byte, clk clock.Clock) *Issuer {
	return &Issuer{secret: secret, clock: clk}
}

// Issue signs claims valid for ttl and returns the token with its expiry.
func (i *Issuer) Issue(claims Claims, ttl time.Duration) (string, time.Time, error) {
	now := i.clock.Now()
	expiresAt := now.Add(ttl)

	claims.Issuer = issuerName
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.NotBefore = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(expiresAt)
	if claims.ID == "" {
		claims.ID = correlation.NewID()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse verifies raw and checks it was issued for purpose.
func (i *Issuer) Parse(raw string, purpose Purpose) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuerName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if claims.Purpose != purpose {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
