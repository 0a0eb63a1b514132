package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNilLimiterAllows(t *testing.T) {
	var l *AuthLimiter
	ok, retry := l.Allow(context.Background(), "login", "a@b.uk", "127.0.0.1")
	assert.True(t, ok)
	assert.Zero(t, retry)

	ok, _ = (&AuthLimiter{}).Allow(context.Background(), "login", "a@b.uk", "127.0.0.1")
	assert.True(t, ok)
}

func TestUnconfiguredBucket(t *testing.T) {
	var b *TokenBucket
	_, err := b.Allow(context.Background(), "k", 1, 1)
	assert.Error(t, err)
	assert.Nil(t, NewTokenBucket(nil))
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 120*time.Second, bucketTTL(1.0/12, 5))
	assert.Equal(t, 2*time.Second, bucketTTL(100, 10))
}

func TestScriptResultConversion(t *testing.T) {
	assert.Equal(t, int64(1), toInt64(int64(1)))
	assert.Equal(t, int64(3), toInt64("3.7"))
	assert.Equal(t, 0.5, toFloat64("0.5"))
	assert.Equal(t, 2.0, toFloat64(int64(2)))
	assert.Zero(t, toFloat64(nil))
}
