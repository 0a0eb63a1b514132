package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/mywill/internal/analytics/domain"
	"github.com/smallbiznis/mywill/internal/analytics/repository"
	"github.com/smallbiznis/mywill/internal/analytics/sink"
	authdomain "github.com/smallbiznis/mywill/internal/auth/domain"
	"github.com/smallbiznis/mywill/internal/clock"
	"github.com/smallbiznis/mywill/internal/config"
	"github.com/smallbiznis/mywill/internal/errs"
	"github.com/smallbiznis/mywill/internal/tenantcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db     *gorm.DB
	node   *snowflake.Node
	sink   *sink.Buffered
	svc    domain.Service
	tenant snowflake.ID
	ctx    context.Context
}

func setup(t *testing.T, rt config.Runtime) fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Event{}))

	node, _ := snowflake.NewNode(1)
	repo := repository.Provide()
	buf := sink.New(sink.Params{DB: db, Log: zap.NewNop(), Repo: repo})
	clk := clock.NewFakeClock(time.Date(2026, 3, 18, 12, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: clk,
		Runtime: config.StaticRuntime(rt), Repo: repo, Sink: buf,
	})

	tenantID := node.Generate()
	userID := node.Generate()
	ctx := tenantcontext.WithPrincipal(context.Background(), tenantcontext.Principal{
		TenantID: &tenantID, UserID: userID, Role: authdomain.RoleBroker,
	})
	return fixture{db: db, node: node, sink: buf, svc: svc, tenant: tenantID, ctx: ctx}
}

func ms(v int64) *int64 { return &v }

func TestTrackAndStepReport(t *testing.T) {
	f := setup(t, config.DefaultRuntime())

	events := []domain.TrackEventRequest{
		{Event: domain.EventStepCompleted, Step: "executors", TimeOnStepMs: ms(1000)},
		{Event: domain.EventStepCompleted, Step: "executors", TimeOnStepMs: ms(3000)},
		{Event: domain.EventStepAbandoned, Step: "executors", TimeOnStepMs: ms(9000)},
		{Event: domain.EventStepCompleted, Step: "personal_info"},
		{Event: domain.EventStepAbandoned, Step: "guardianship"},
		{Event: domain.EventWillCompleted, Metadata: map[string]any{"steps_completed": 5}},
		{Event: domain.EventUserInteraction, Metadata: map[string]any{"action": "click", "location": "wizard"}},
	}
	for _, e := range events {
		require.NoError(t, f.svc.Track(f.ctx, e))
	}
	assert.Equal(t, len(events), f.sink.Len())

	report, err := f.svc.StepReport(f.ctx, domain.StepReportRequest{})
	require.NoError(t, err)
	assert.Zero(t, f.sink.Len(), "report flushes the buffer first")
	assert.EqualValues(t, 1, report.WillsCompleted)

	require.Len(t, report.Steps, 3)
	assert.Equal(t, domain.StepStat{Step: "executors", Completed: 2, Abandoned: 1, CompletionRate: 66.67, AvgTimeOnStepMs: 2000}, report.Steps[0])
	assert.Equal(t, domain.StepStat{Step: "guardianship", Abandoned: 1}, report.Steps[1])
	assert.Equal(t, domain.StepStat{Step: "personal_info", Completed: 1, CompletionRate: 100}, report.Steps[2])

	require.Len(t, report.DropOffs, 3)
	assert.Equal(t, "guardianship", report.DropOffs[0].Step)
	assert.Equal(t, float64(100), report.DropOffs[0].AbandonmentRate)
	assert.Equal(t, "executors", report.DropOffs[1].Step)
	assert.Equal(t, 33.33, report.DropOffs[1].AbandonmentRate)
	assert.EqualValues(t, 3, report.DropOffs[1].TotalAttempts)
	assert.Equal(t, "personal_info", report.DropOffs[2].Step)
}

func TestStepReportIsTenantScoped(t *testing.T) {
	f := setup(t, config.DefaultRuntime())
	require.NoError(t, f.svc.Track(f.ctx, domain.TrackEventRequest{Event: domain.EventStepCompleted, Step: "residue"}))

	other := f.node.Generate()
	otherCtx := tenantcontext.WithPrincipal(context.Background(), tenantcontext.Principal{
		TenantID: &other, UserID: f.node.Generate(), Role: authdomain.RoleBroker,
	})
	report, err := f.svc.StepReport(otherCtx, domain.StepReportRequest{})
	require.NoError(t, err)
	assert.Empty(t, report.Steps)
	assert.Empty(t, report.DropOffs)
}

func TestStepReportRange(t *testing.T) {
	f := setup(t, config.DefaultRuntime())
	require.NoError(t, f.svc.Track(f.ctx, domain.TrackEventRequest{Event: domain.EventStepCompleted, Step: "residue"}))

	report, err := f.svc.StepReport(f.ctx, domain.StepReportRequest{Start: "2026-03-19"})
	require.NoError(t, err)
	assert.Empty(t, report.Steps)

	report, err = f.svc.StepReport(f.ctx, domain.StepReportRequest{Start: "2026-03-01", End: "2026-04-01"})
	require.NoError(t, err)
	assert.Len(t, report.Steps, 1)

	_, err = f.svc.StepReport(f.ctx, domain.StepReportRequest{Start: "2026-04-01", End: "2026-03-01"})
	assert.ErrorIs(t, err, errs.ErrValidationFailed)

	_, err = f.svc.StepReport(f.ctx, domain.StepReportRequest{Start: "yesterday"})
	assert.ErrorIs(t, err, errs.ErrValidationFailed)
}

func TestStepReportRequiresAdvancedReporting(t *testing.T) {
	rt := config.DefaultRuntime()
	rt.Features.AdvancedReporting = false
	f := setup(t, rt)

	_, err := f.svc.StepReport(f.ctx, domain.StepReportRequest{})
	assert.ErrorIs(t, err, domain.ErrReportingDisabled)
	assert.ErrorIs(t, err, errs.ErrForbidden)
}

func TestTrackValidation(t *testing.T) {
	f := setup(t, config.DefaultRuntime())

	cases := map[string]struct {
		req   domain.TrackEventRequest
		field string
	}{
		"unknown event":    {domain.TrackEventRequest{Event: "PAGE_VIEW"}, "event"},
		"step required":    {domain.TrackEventRequest{Event: domain.EventStepAbandoned, Step: "  "}, "step"},
		"negative time":    {domain.TrackEventRequest{Event: domain.EventStepCompleted, Step: "a", TimeOnStepMs: ms(-1)}, "time_on_step_ms"},
		"malformed willID": {domain.TrackEventRequest{Event: domain.EventWillCompleted, WillID: "abc"}, "will_id"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := f.svc.Track(f.ctx, tc.req)
			require.ErrorIs(t, err, errs.ErrValidationFailed)
			var verrs *errs.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, tc.field, verrs.Errors[0].Field)
		})
	}
	assert.Zero(t, f.sink.Len())
}

func TestTrackRequiresTenant(t *testing.T) {
	f := setup(t, config.DefaultRuntime())
	err := f.svc.Track(context.Background(), domain.TrackEventRequest{Event: domain.EventWillCompleted})
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
}
