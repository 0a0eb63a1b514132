package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	analyticsdomain "github.com/smallbiznis/mywill/internal/analytics/domain"
	auditdomain "github.com/smallbiznis/mywill/internal/audit/domain"
	authdomain "github.com/smallbiznis/mywill/internal/auth/domain"
	clientdomain "github.com/smallbiznis/mywill/internal/client/domain"
	documentdomain "github.com/smallbiznis/mywill/internal/document/domain"
	notedomain "github.com/smallbiznis/mywill/internal/note/domain"
	pricingdomain "github.com/smallbiznis/mywill/internal/pricing/domain"
	taskdomain "github.com/smallbiznis/mywill/internal/task/domain"
	tenantdomain "github.com/smallbiznis/mywill/internal/tenant/domain"
	willdomain "github.com/smallbiznis/mywill/internal/will/domain"
	"gorm.io/gorm"
)

const migrationsDir = "sql"

//go:embed sql/*.sql
var embeddedMigrations embed.FS

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// Models lists every persisted type, in dependency order.
func Models() []any {
	return []any{
		&tenantdomain.Tenant{},
		&authdomain.User{},
		&clientdomain.Client{},
		&notedomain.Note{},
		&taskdomain.Task{},
		&willdomain.Will{},
		&documentdomain.Document{},
		&pricingdomain.Pricing{},
		&auditdomain.AuditLog{},
		&analyticsdomain.Event{},
	}
}

// AutoMigrate builds the schema from the models for dialects without SQL migrations.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	return db.AutoMigrate(Models()...)
}
