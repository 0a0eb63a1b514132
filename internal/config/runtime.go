package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Runtime holds settings that can change without a restart.
type Runtime struct {
	Features       Features       `mapstructure:"features"`
	DefaultPricing DefaultPricing `mapstructure:"default_pricing"`
}

type Features struct {
	AIAssistant       bool `mapstructure:"ai_assistant"`
	AIIntake          bool `mapstructure:"ai_intake"`
	AdvancedReporting bool `mapstructure:"advanced_reporting"`
}

// DefaultPricing is applied to tenants that have no pricing row yet. Amounts are pence.
type DefaultPricing struct {
	SingleWillPrice      int64 `mapstructure:"single_will_price"`
	MirrorWillPrice      int64 `mapstructure:"mirror_will_price"`
	TrustWillPrice       int64 `mapstructure:"trust_will_price"`
	RevenueSplitBroker   int   `mapstructure:"revenue_split_broker"`
	RevenueSplitPlatform int   `mapstructure:"revenue_split_platform"`
}

func DefaultRuntime() Runtime {
	return Runtime{
		Features: Features{AdvancedReporting: true},
		DefaultPricing: DefaultPricing{
			SingleWillPrice:      20000,
			MirrorWillPrice:      35000,
			TrustWillPrice:       75000,
			RevenueSplitBroker:   90,
			RevenueSplitPlatform: 10,
		},
	}
}

// RuntimeHolder serves the latest valid Runtime snapshot.
type RuntimeHolder struct {
	current atomic.Value // holds Runtime
}

// StaticRuntime wraps a fixed snapshot, mostly for tests.
func StaticRuntime(rt Runtime) *RuntimeHolder {
	h := &RuntimeHolder{}
	h.current.Store(rt)
	return h
}

// NewRuntimeHolder reads runtime.yaml when present and watches it for changes.
func NewRuntimeHolder(log *zap.Logger) (*RuntimeHolder, error) {
	v := viper.New()
	v.SetConfigName("runtime")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/mywill")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MYWILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultRuntime()
	v.SetDefault("features.ai_assistant", defaults.Features.AIAssistant)
	v.SetDefault("features.ai_intake", defaults.Features.AIIntake)
	v.SetDefault("features.advanced_reporting", defaults.Features.AdvancedReporting)
	v.SetDefault("default_pricing.single_will_price", defaults.DefaultPricing.SingleWillPrice)
	v.SetDefault("default_pricing.mirror_will_price", defaults.DefaultPricing.MirrorWillPrice)
	v.SetDefault("default_pricing.trust_will_price", defaults.DefaultPricing.TrustWillPrice)
	v.SetDefault("default_pricing.revenue_split_broker", defaults.DefaultPricing.RevenueSplitBroker)
	v.SetDefault("default_pricing.revenue_split_platform", defaults.DefaultPricing.RevenueSplitPlatform)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	var rt Runtime
	if err := v.Unmarshal(&rt); err != nil {
		return nil, err
	}
	if err := ValidateRuntime(rt); err != nil {
		return nil, err
	}

	holder := StaticRuntime(rt)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated Runtime
		if err := v.Unmarshal(&updated); err != nil {
			log.Warn("runtime config reload failed", zap.Error(err))
			return
		}
		if err := ValidateRuntime(updated); err != nil {
			log.Warn("invalid runtime config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("runtime config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *RuntimeHolder) Get() Runtime {
	return h.current.Load().(Runtime)
}

func ValidateRuntime(rt Runtime) error {
	p := rt.DefaultPricing
	if p.SingleWillPrice < 0 || p.MirrorWillPrice < 0 || p.TrustWillPrice < 0 {
		return errors.New("default_pricing prices must not be negative")
	}
	if p.RevenueSplitBroker < 0 || p.RevenueSplitPlatform < 0 {
		return errors.New("default_pricing splits must not be negative")
	}
	if p.RevenueSplitBroker+p.RevenueSplitPlatform != 100 {
		return fmt.Errorf("default_pricing splits must total 100, got %d", p.RevenueSplitBroker+p.RevenueSplitPlatform)
	}
	return nil
}
