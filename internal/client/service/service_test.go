package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/mywill/internal/audit/domain"
	auditrepo "github.com/smallbiznis/mywill/internal/audit/repository"
	auditservice "github.com/smallbiznis/mywill/internal/audit/service"
	authdomain "github.com/smallbiznis/mywill/internal/auth/domain"
	"github.com/smallbiznis/mywill/internal/client/domain"
	"github.com/smallbiznis/mywill/internal/client/repository"
	"github.com/smallbiznis/mywill/internal/clock"
	"github.com/smallbiznis/mywill/internal/errs"
	"github.com/smallbiznis/mywill/internal/tenantcontext"
	"github.com/smallbiznis/mywill/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*gorm.DB, domain.Service, context.Context, *snowflake.Node) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Client{}, &auditdomain.AuditLog{}))
	for _, table := range []string{"notes", "tasks", "wills"} {
		require.NoError(t, db.Exec(`CREATE TABLE IF NOT EXISTS `+table+` (
			id BIGINT PRIMARY KEY,
			tenant_id BIGINT NOT NULL,
			client_id BIGINT NOT NULL
		)`).Error)
	}

	node, _ := snowflake.NewNode(1)
	clk := clock.NewFakeClock(time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC))
	audit := auditservice.NewService(auditservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: auditrepo.Provide(),
	})
	svc := New(Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: repository.Provide(), AuditSvc: audit,
	})

	tenantID := node.Generate()
	ctx := tenantcontext.WithPrincipal(context.Background(), tenantcontext.Principal{
		TenantID: &tenantID, UserID: node.Generate(), Role: authdomain.RoleBroker,
	})
	return db, svc, ctx, node
}

func TestCreateClient(t *testing.T) {
	db, svc, ctx, _ := setup(t)

	client, err := svc.Create(ctx, domain.CreateClientRequest{
		FirstName:   " John ",
		LastName:    "Smith",
		DateOfBirth: "1970-06-15",
		Email:       "john@example.co.uk",
		Postcode:    "sw1a 1aa",
	})
	require.NoError(t, err)
	assert.Equal(t, "John", client.FirstName)
	assert.Equal(t, domain.DefaultCountry, client.Country)
	assert.Equal(t, domain.StatusActive, client.Status)
	assert.Equal(t, "SW1A 1AA", client.Postcode)
	require.NotNil(t, client.DateOfBirth)

	var audit auditdomain.AuditLog
	require.NoError(t, db.First(&audit, "event = ?", auditdomain.EventCreateClient).Error)
	assert.Equal(t, client.ID.String(), *audit.EntityID)

	t.Run("validation collects every field", func(t *testing.T) {
		_, err := svc.Create(ctx, domain.CreateClientRequest{
			Email:       "nope",
			DateOfBirth: "2030-01-01",
			Status:      "deceased",
		})
		var verrs *errs.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		fields := []string{}
		for _, fe := range verrs.Errors {
			fields = append(fields, fe.Field)
		}
		assert.ElementsMatch(t, []string{"first_name", "last_name", "email", "status", "date_of_birth"}, fields)

		var count int64
		db.Model(&domain.Client{}).Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("platform admin has no tenant", func(t *testing.T) {
		admin := tenantcontext.WithPrincipal(context.Background(), tenantcontext.Principal{
			UserID: 1, Role: authdomain.RolePlatformAdmin,
		})
		_, err := svc.Create(admin, domain.CreateClientRequest{FirstName: "A", LastName: "B"})
		assert.ErrorIs(t, err, errs.ErrForbidden)
	})
}

func TestGetAndUpdateClient(t *testing.T) {
	db, svc, ctx, node := setup(t)
	client, err := svc.Create(ctx, domain.CreateClientRequest{FirstName: "Jane", LastName: "Doe"})
	require.NoError(t, err)

	tenantID, _ := tenantcontext.TenantID(ctx)
	require.NoError(t, db.Exec(`INSERT INTO notes (id, tenant_id, client_id) VALUES (?, ?, ?)`, node.Generate(), tenantID, client.ID).Error)

	detail, err := svc.Get(ctx, client.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(1), detail.NoteCount)
	assert.Zero(t, detail.WillCount)

	city := "Leeds"
	status := domain.StatusInactive
	updated, err := svc.Update(ctx, client.ID.String(), domain.UpdateClientRequest{City: &city, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "Leeds", updated.City)
	assert.Equal(t, "Jane", updated.FirstName)

	var audit auditdomain.AuditLog
	require.NoError(t, db.First(&audit, "event = ?", auditdomain.EventUpdateClient).Error)
	assert.Equal(t, []any{"city", "status"}, audit.Meta["updated_fields"])

	t.Run("blank name rejected", func(t *testing.T) {
		blank := " "
		_, err := svc.Update(ctx, client.ID.String(), domain.UpdateClientRequest{FirstName: &blank})
		assert.ErrorIs(t, err, errs.ErrValidationFailed)
	})

	t.Run("other tenant sees not found", func(t *testing.T) {
		other := node.Generate()
		otherCtx := tenantcontext.WithPrincipal(context.Background(), tenantcontext.Principal{
			TenantID: &other, UserID: node.Generate(), Role: authdomain.RoleBroker,
		})
		_, err := svc.Get(otherCtx, client.ID.String())
		assert.ErrorIs(t, err, errs.ErrNotFound)
		_, err = svc.Update(otherCtx, client.ID.String(), domain.UpdateClientRequest{City: &city})
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("malformed id", func(t *testing.T) {
		_, err := svc.Get(ctx, "abc")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestListClients(t *testing.T) {
	_, svc, ctx, _ := setup(t)
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		_, err := svc.Create(ctx, domain.CreateClientRequest{FirstName: name, LastName: "Jones"})
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, domain.ListClientRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, page.Clients, 2)
	assert.True(t, page.HasMore)

	next, err := svc.List(ctx, domain.ListClientRequest{Pagination: pagination.Pagination{PageSize: 2, PageToken: page.NextPageToken}})
	require.NoError(t, err)
	require.Len(t, next.Clients, 1)
	assert.False(t, next.HasMore)

	found, err := svc.List(ctx, domain.ListClientRequest{Search: "car"})
	require.NoError(t, err)
	require.Len(t, found.Clients, 1)
	assert.Equal(t, "Carol", found.Clients[0].FirstName)

	_, err = svc.List(ctx, domain.ListClientRequest{Pagination: pagination.Pagination{PageToken: "!!"}})
	assert.ErrorIs(t, err, domain.ErrInvalidPageToken)
}
