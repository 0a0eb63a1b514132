package service

import (
	"cmp"
	"context"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mywill/internal/analytics/domain"
	"github.com/smallbiznis/mywill/internal/clock"
	"github.com/smallbiznis/mywill/internal/config"
	"github.com/smallbiznis/mywill/internal/errs"
	"github.com/smallbiznis/mywill/internal/tenantcontext"
	"github.com/smallbiznis/mywill/internal/validation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Runtime *config.RuntimeHolder
	Repo    domain.Repository
	Sink    domain.Sink
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	runtime *config.RuntimeHolder
	repo    domain.Repository
	sink    domain.Sink
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("analytics.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		runtime: p.Runtime,
		repo:    p.Repo,
		sink:    p.Sink,
	}
}

func (s *Service) Track(ctx context.Context, req domain.TrackEventRequest) error {
	tenantID, err := tenantcontext.TenantID(ctx)
	if err != nil {
		return err
	}

	req.Step = strings.TrimSpace(req.Step)
	verrs := validation.Check(req)
	if domain.IsStepEvent(req.Event) && req.Step == "" {
		verrs.Add("step", "required", "step is required for wizard step events")
	}
	var willID *snowflake.ID
	if raw := strings.TrimSpace(req.WillID); raw != "" {
		id, parseErr := snowflake.ParseString(raw)
		if parseErr != nil {
			verrs.Add("will_id", "invalid", "will_id must be a valid id")
		} else {
			willID = &id
		}
	}
	if err := verrs.Err(); err != nil {
		return err
	}

	event := domain.Event{
		ID:         s.genID.Generate(),
		TenantID:   tenantID,
		UserID:     tenantcontext.UserID(ctx),
		WillID:     willID,
		EventType:  req.Event,
		Step:       req.Step,
		OccurredAt: s.clock.Now().UTC(),
	}
	if domain.IsStepEvent(req.Event) {
		event.DurationMs = req.TimeOnStepMs
	}
	if len(req.Metadata) > 0 {
		event.Meta = datatypes.JSONMap(req.Metadata)
	}
	s.sink.Track(ctx, event)
	return nil
}

func (s *Service) StepReport(ctx context.Context, req domain.StepReportRequest) (domain.StepReport, error) {
	tenantID, err := tenantcontext.TenantID(ctx)
	if err != nil {
		return domain.StepReport{}, err
	}
	if !s.runtime.Get().Features.AdvancedReporting {
		return domain.StepReport{}, domain.ErrReportingDisabled
	}

	start, end, err := parseRange(req)
	if err != nil {
		return domain.StepReport{}, err
	}

	// buffered events count towards the report
	if err := s.sink.Flush(ctx); err != nil {
		s.log.Warn("analytics flush before report failed", zap.Error(err))
	}

	rows, err := s.repo.StepCounts(ctx, s.db, tenantID, start, end)
	if err != nil {
		return domain.StepReport{}, err
	}
	completedWills, err := s.repo.CountEvents(ctx, s.db, tenantID, domain.EventWillCompleted, start, end)
	if err != nil {
		return domain.StepReport{}, err
	}

	steps := BuildStepStats(rows)
	return domain.StepReport{
		Start:          start,
		End:            end,
		Steps:          steps,
		DropOffs:       DropOffs(steps),
		WillsCompleted: completedWills,
	}, nil
}

// BuildStepStats folds per-event-type counts into one stat per step, ordered by step.
// Average time only considers completed attempts that reported a duration.
func BuildStepStats(rows []domain.StepCount) []domain.StepStat {
	byStep := make(map[string]*domain.StepStat)
	durations := make(map[string][2]int64)
	order := make([]string, 0)

	for _, row := range rows {
		stat, ok := byStep[row.Step]
		if !ok {
			stat = &domain.StepStat{Step: row.Step}
			byStep[row.Step] = stat
			order = append(order, row.Step)
		}
		switch row.EventType {
		case domain.EventStepCompleted:
			stat.Completed += row.Count
			d := durations[row.Step]
			durations[row.Step] = [2]int64{d[0] + row.TotalDuration, d[1] + row.TimedCount}
		case domain.EventStepAbandoned:
			stat.Abandoned += row.Count
		}
	}

	slices.Sort(order)
	out := make([]domain.StepStat, 0, len(order))
	for _, step := range order {
		stat := byStep[step]
		if total := stat.Completed + stat.Abandoned; total > 0 {
			stat.CompletionRate = round2(float64(stat.Completed) / float64(total) * 100)
		}
		if d := durations[step]; d[1] > 0 {
			stat.AvgTimeOnStepMs = round2(float64(d[0]) / float64(d[1]))
		}
		out = append(out, *stat)
	}
	return out
}

// DropOffs ranks steps by abandonment rate, highest first.
func DropOffs(steps []domain.StepStat) []domain.DropOff {
	out := make([]domain.DropOff, 0, len(steps))
	for _, stat := range steps {
		total := stat.Completed + stat.Abandoned
		if total == 0 {
			continue
		}
		out = append(out, domain.DropOff{
			Step:            stat.Step,
			AbandonmentRate: round2(100 - stat.CompletionRate),
			TotalAttempts:   total,
		})
	}
	slices.SortStableFunc(out, func(a, b domain.DropOff) int {
		if c := cmp.Compare(b.AbandonmentRate, a.AbandonmentRate); c != 0 {
			return c
		}
		return cmp.Compare(a.Step, b.Step)
	})
	return out
}

func parseRange(req domain.StepReportRequest) (*time.Time, *time.Time, error) {
	var start, end *time.Time
	if raw := strings.TrimSpace(req.Start); raw != "" {
		t, err := validation.ParseDateOrTime(raw)
		if err != nil {
			return nil, nil, errs.Invalid("start", "invalid", "start must be a date or RFC3339 time")
		}
		start = &t
	}
	if raw := strings.TrimSpace(req.End); raw != "" {
		t, err := validation.ParseDateOrTime(raw)
		if err != nil {
			return nil, nil, errs.Invalid("end", "invalid", "end must be a date or RFC3339 time")
		}
		end = &t
	}
	if start != nil && end != nil && !end.After(*start) {
		return nil, nil, errs.Invalid("end", "range", "end must be after start")
	}
	return start, end, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
