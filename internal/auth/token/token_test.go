package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/mywill/internal/clock"
	"github.com/smallbiznis/mywill/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIssueAndParse(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	issuer := New([]byte("test-secret"), clk)

	raw, exp, err := issuer.Issue(Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "123"},
		TenantID:         "456",
		Role:             "broker",
		Purpose:          PurposeSession,
	}, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, clk.Now().Add(time.Hour), exp)

	claims, err := issuer.Parse(raw, PurposeSession)
	require.NoError(t, err)
	assert.Equal(t, "123", claims.Subject)
	assert.Equal(t, "456", claims.TenantID)
	assert.Equal(t, "broker", claims.Role)
	assert.NotEmpty(t, claims.ID)

	t.Run("wrong purpose", func(t *testing.T) {
		_, err := issuer.Parse(raw, PurposeDownload)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := New([]byte("other"), clk).Parse(raw, PurposeSession)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		clk.Advance(2 * time.Hour)
		_, err := issuer.Parse(raw, PurposeSession)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})
}

func TestNewIssuerRequiresSecretInProduction(t *testing.T) {
	_, err := NewIssuer(config.Config{Environment: "production"}, clock.SystemClock{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrNoSecret)

	issuer, err := NewIssuer(config.Config{Environment: "development"}, clock.SystemClock{}, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, issuer.secret, 32)
}
