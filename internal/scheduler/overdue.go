package scheduler

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/mywill/internal/audit/domain"
	taskdomain "github.com/smallbiznis/mywill/internal/task/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var openTaskStatuses = []string{taskdomain.StatusPending, taskdomain.StatusInProgress}

type overdueCandidate struct {
	ID       snowflake.ID
	TenantID snowflake.ID
}

// MarkOverdueTasksJob moves open tasks whose due date has passed to overdue,
// one audited transaction per task.
func (s *Scheduler) MarkOverdueTasksJob(ctx context.Context) error {
	now := s.clock.Now()
	run := jobRunFromContext(ctx)

	var candidates []overdueCandidate
	if err := s.db.WithContext(ctx).Raw(
		`SELECT id, tenant_id FROM tasks
		WHERE status IN ? AND due_date IS NOT NULL AND due_date < ?
		ORDER BY due_date ASC, id ASC
		LIMIT ?`,
		openTaskStatuses, now, s.cfg.BatchSize,
	).Scan(&candidates).Error; err != nil {
		return err
	}

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		marked, err := s.markOverdue(ctx, c, now)
		if err != nil {
			run.IncError()
			s.logger(ctx).Warn("mark task overdue failed",
				zap.String("task_id", c.ID.String()),
				zap.String("tenant_id", c.TenantID.String()),
				zap.Error(err),
			)
			continue
		}
		if marked {
			run.AddProcessed(1)
		}
	}
	return nil
}

func (s *Scheduler) markOverdue(ctx context.Context, c overdueCandidate, now time.Time) (bool, error) {
	marked := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(
			`UPDATE tasks SET status = ?, updated_at = ?
			WHERE id = ? AND tenant_id = ? AND status IN ?`,
			taskdomain.StatusOverdue, now, c.ID, c.TenantID, openTaskStatuses,
		)
		if res.Error != nil {
			return res.Error
		}
		// a broker changed it since the scan
		if res.RowsAffected == 0 {
			return nil
		}
		marked = true

		tenantID := c.TenantID
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			TenantID:   &tenantID,
			Event:      auditdomain.EventUpdateTask,
			EntityType: auditdomain.EntityTask,
			EntityID:   c.ID.String(),
			Meta: map[string]any{
				"updated_fields": []string{"status"},
				"status":         taskdomain.StatusOverdue,
				"source":         "scheduler",
			},
		})
	})
	return marked, err
}
