package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestValidateRuntime(t *testing.T) {
	assert.NoError(t, ValidateRuntime(DefaultRuntime()))

	rt := DefaultRuntime()
	rt.DefaultPricing.RevenueSplitBroker = 80
	rt.DefaultPricing.RevenueSplitPlatform = 15
	assert.Error(t, ValidateRuntime(rt))

	rt = DefaultRuntime()
	rt.DefaultPricing.TrustWillPrice = -1
	assert.Error(t, ValidateRuntime(rt))
}

func TestNewRuntimeHolderDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	h, err := NewRuntimeHolder(zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, DefaultRuntime(), h.Get())
}

func TestNewRuntimeHolderReadsFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	content := []byte(`features:
  advanced_reporting: false
default_pricing:
  single_will_price: 22000
  mirror_will_price: 38000
  trust_will_price: 80000
  revenue_split_broker: 85
  revenue_split_platform: 15
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "runtime.yaml"), content, 0o600))

	h, err := NewRuntimeHolder(zap.NewNop())
	require.NoError(t, err)

	rt := h.Get()
	assert.False(t, rt.Features.AdvancedReporting)
	assert.Equal(t, int64(22000), rt.DefaultPricing.SingleWillPrice)
	assert.Equal(t, 85, rt.DefaultPricing.RevenueSplitBroker)
}

func TestNewRuntimeHolderRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	content := []byte("default_pricing:\n  revenue_split_broker: 80\n  revenue_split_platform: 15\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "runtime.yaml"), content, 0o600))

	_, err := NewRuntimeHolder(zap.NewNop())
	assert.Error(t, err)
}
