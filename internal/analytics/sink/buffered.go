package sink

import (
	"context"
	"sync"

	"github.com/smallbiznis/mywill/internal/analytics/domain"
	"github.com/smallbiznis/mywill/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultCapacity       = 1000
	DefaultFlushThreshold = 100
)

type Config struct {
	Capacity       int
	FlushThreshold int
}

func (c Config) withDefaults() Config {
	if c.Capacity <= 0 {
		c.Capacity = DefaultCapacity
	}
	if c.FlushThreshold <= 0 || c.FlushThreshold > c.Capacity {
		c.FlushThreshold = min(DefaultFlushThreshold, c.Capacity)
	}
	return c
}

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Repo    domain.Repository
	Metrics *metrics.Metrics `optional:"true"`
	Config  Config           `optional:"true"`
}

// Buffered holds events in memory until the flush threshold is reached.
// The buffer never grows past Capacity; overflow is dropped and counted.
type Buffered struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    domain.Repository
	metrics *metrics.Metrics
	cfg     Config

	mu     sync.Mutex
	buffer []domain.Event

	// serializes writers so a failed batch is requeued ahead of later ones
	flushMu sync.Mutex
}

func New(p Params) *Buffered {
	cfg := p.Config.withDefaults()
	return &Buffered{
		db:      p.DB,
		log:     p.Log.Named("analytics.sink"),
		repo:    p.Repo,
		metrics: p.Metrics,
		cfg:     cfg,
		buffer:  make([]domain.Event, 0, cfg.FlushThreshold),
	}
}

// AsSink exposes the buffered sink through the domain interface.
func AsSink(b *Buffered) domain.Sink {
	return b
}

func (b *Buffered) Track(ctx context.Context, event domain.Event) {
	if b == nil {
		return
	}

	b.mu.Lock()
	if len(b.buffer) >= b.cfg.Capacity {
		b.mu.Unlock()
		b.metrics.RecordAnalyticsDropped(ctx, 1)
		b.log.Warn("analytics buffer full, event dropped",
			zap.String("event", event.EventType),
			zap.String("tenant_id", event.TenantID.String()),
		)
		return
	}
	b.buffer = append(b.buffer, event)
	ready := len(b.buffer) >= b.cfg.FlushThreshold
	b.mu.Unlock()

	if !ready {
		return
	}
	if err := b.Flush(context.WithoutCancel(ctx)); err != nil {
		b.log.Warn("analytics flush failed", zap.Error(err))
	}
}

func (b *Buffered) Flush(ctx context.Context) error {
	if b == nil {
		return nil
	}
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.mu.Lock()
	batch := b.buffer
	b.buffer = make([]domain.Event, 0, b.cfg.FlushThreshold)
	b.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	if err := b.repo.InsertBatch(ctx, b.db, batch); err != nil {
		b.requeue(ctx, batch)
		return err
	}
	b.log.Debug("analytics batch persisted", zap.Int("events", len(batch)))
	return nil
}

// Len reports the number of buffered events.
func (b *Buffered) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffer)
}

// requeue puts a failed batch back in front of newer events, keeping the most
// recent Capacity events.
func (b *Buffered) requeue(ctx context.Context, batch []domain.Event) {
	b.mu.Lock()
	merged := append(batch, b.buffer...)
	dropped := 0
	if len(merged) > b.cfg.Capacity {
		dropped = len(merged) - b.cfg.Capacity
		merged = merged[dropped:]
	}
	b.buffer = merged
	b.mu.Unlock()

	if dropped > 0 {
		b.metrics.RecordAnalyticsDropped(ctx, dropped)
		b.log.Warn("analytics events dropped after failed flush", zap.Int("dropped", dropped))
	}
}

// Register flushes the buffer when the application stops.
func Register(lc fx.Lifecycle, b *Buffered) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return b.Flush(ctx)
		},
	})
}
