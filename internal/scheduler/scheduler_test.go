package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	analyticsdomain "github.com/smallbiznis/mywill/internal/analytics/domain"
	auditdomain "github.com/smallbiznis/mywill/internal/audit/domain"
	auditrepo "github.com/smallbiznis/mywill/internal/audit/repository"
	auditservice "github.com/smallbiznis/mywill/internal/audit/service"
	"github.com/smallbiznis/mywill/internal/clock"
	taskdomain "github.com/smallbiznis/mywill/internal/task/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type countingSink struct {
	mu      sync.Mutex
	flushes int
}

func (s *countingSink) Track(ctx context.Context, e analyticsdomain.Event) {}

func (s *countingSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

type fixture struct {
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	sink  *countingSink
	sched *Scheduler
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&taskdomain.Task{}, &auditdomain.AuditLog{}))

	node, _ := snowflake.NewNode(1)
	clk := clock.NewFakeClock(time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC))
	sink := &countingSink{}

	sched, err := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		AuditSvc: auditservice.NewService(auditservice.Params{
			DB: db, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: auditrepo.Provide(),
		}),
		Analytics: sink,
		Config:    cfg,
	})
	require.NoError(t, err)

	return &fixture{db: db, node: node, clock: clk, sink: sink, sched: sched}
}

func (f *fixture) insertTask(t *testing.T, tenantID snowflake.ID, status string, due *time.Time) snowflake.ID {
	t.Helper()
	now := f.clock.Now()
	task := taskdomain.Task{
		ID:        f.node.Generate(),
		TenantID:  tenantID,
		ClientID:  f.node.Generate(),
		Title:     "Chase signed instructions",
		Priority:  taskdomain.PriorityMedium,
		Status:    status,
		DueDate:   due,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.db.Create(&task).Error)
	return task.ID
}

func (f *fixture) status(t *testing.T, id snowflake.ID) string {
	t.Helper()
	var task taskdomain.Task
	require.NoError(t, f.db.First(&task, "id = ?", id).Error)
	return task.Status
}

func ptrTime(t time.Time) *time.Time { return &t }

func TestMarkOverdueTasks(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	tenantA := f.node.Generate()
	tenantB := f.node.Generate()
	yesterday := f.clock.Now().Add(-24 * time.Hour)
	tomorrow := f.clock.Now().Add(24 * time.Hour)

	pending := f.insertTask(t, tenantA, taskdomain.StatusPending, ptrTime(yesterday))
	inProgress := f.insertTask(t, tenantB, taskdomain.StatusInProgress, ptrTime(yesterday))
	completed := f.insertTask(t, tenantA, taskdomain.StatusCompleted, ptrTime(yesterday))
	future := f.insertTask(t, tenantA, taskdomain.StatusPending, ptrTime(tomorrow))
	undated := f.insertTask(t, tenantA, taskdomain.StatusPending, nil)

	require.NoError(t, f.sched.RunOnce(context.Background()))

	assert.Equal(t, taskdomain.StatusOverdue, f.status(t, pending))
	assert.Equal(t, taskdomain.StatusOverdue, f.status(t, inProgress))
	assert.Equal(t, taskdomain.StatusCompleted, f.status(t, completed))
	assert.Equal(t, taskdomain.StatusPending, f.status(t, future))
	assert.Equal(t, taskdomain.StatusPending, f.status(t, undated))

	var logs []auditdomain.AuditLog
	require.NoError(t, f.db.Order("entity_id").Find(&logs).Error)
	require.Len(t, logs, 2)
	for _, l := range logs {
		assert.Equal(t, auditdomain.EventUpdateTask, l.Event)
		assert.Equal(t, auditdomain.EntityTask, l.EntityType)
		assert.Equal(t, "scheduler", l.Meta["source"])
		assert.Nil(t, l.UserID)
		require.NotNil(t, l.TenantID)
	}

	t.Run("second run is a no-op", func(t *testing.T) {
		require.NoError(t, f.sched.RunOnce(context.Background()))
		var count int64
		require.NoError(t, f.db.Model(&auditdomain.AuditLog{}).Count(&count).Error)
		assert.EqualValues(t, 2, count)
	})

	t.Run("future task becomes overdue once its due date passes", func(t *testing.T) {
		f.clock.Advance(48 * time.Hour)
		require.NoError(t, f.sched.RunOnce(context.Background()))
		assert.Equal(t, taskdomain.StatusOverdue, f.status(t, future))
	})
}

func TestMarkOverdueTasksBatchSize(t *testing.T) {
	f := newFixture(t, Config{BatchSize: 1})
	tenantID := f.node.Generate()
	past := f.clock.Now().Add(-time.Hour)
	first := f.insertTask(t, tenantID, taskdomain.StatusPending, ptrTime(past.Add(-time.Hour)))
	second := f.insertTask(t, tenantID, taskdomain.StatusPending, ptrTime(past))

	require.NoError(t, f.sched.RunOnce(context.Background()))
	assert.Equal(t, taskdomain.StatusOverdue, f.status(t, first))
	assert.Equal(t, taskdomain.StatusPending, f.status(t, second))

	require.NoError(t, f.sched.RunOnce(context.Background()))
	assert.Equal(t, taskdomain.StatusOverdue, f.status(t, second))
}

func TestRunOnceFlushesAnalytics(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	require.NoError(t, f.sched.RunOnce(context.Background()))
	require.NoError(t, f.sched.RunOnce(context.Background()))

	assert.Equal(t, 2, f.sink.flushes)
}

func TestRunJobTimeoutIsSoft(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	err := f.sched.runJob(context.Background(), "slow", 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.NoError(t, err)

	boom := errors.New("boom")
	err = f.sched.runJob(context.Background(), "broken", time.Second, func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "broken")
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
