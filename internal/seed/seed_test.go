package seed_test

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	authdomain "github.com/smallbiznis/mywill/internal/auth/domain"
	"github.com/smallbiznis/mywill/internal/auth/password"
	clientdomain "github.com/smallbiznis/mywill/internal/client/domain"
	"github.com/smallbiznis/mywill/internal/config"
	"github.com/smallbiznis/mywill/internal/migration"
	pricingdomain "github.com/smallbiznis/mywill/internal/pricing/domain"
	"github.com/smallbiznis/mywill/internal/seed"
	tenantdomain "github.com/smallbiznis/mywill/internal/tenant/domain"
	willdomain "github.com/smallbiznis/mywill/internal/will/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRunIsIdempotent(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(db))

	node, _ := snowflake.NewNode(1)
	opts := seed.Options{GenID: node, Pricing: config.DefaultRuntime().DefaultPricing}
	ctx := context.Background()

	require.NoError(t, seed.Run(ctx, db, opts))
	require.NoError(t, seed.Run(ctx, db, opts))

	count := func(model any) int64 {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		return n
	}
	assert.EqualValues(t, 2, count(&tenantdomain.Tenant{}))
	assert.EqualValues(t, 3, count(&authdomain.User{}))
	assert.EqualValues(t, 3, count(&clientdomain.Client{}))
	assert.EqualValues(t, 2, count(&pricingdomain.Pricing{}))
	assert.EqualValues(t, 1, count(&willdomain.Will{}))

	var admin authdomain.User
	require.NoError(t, db.Where("email = ?", seed.PlatformAdminEmail).First(&admin).Error)
	assert.Equal(t, authdomain.RolePlatformAdmin, admin.Role)
	assert.Nil(t, admin.TenantID)
	assert.True(t, password.Verify("admin123", admin.PasswordHash))

	var birch tenantdomain.Tenant
	require.NoError(t, db.Where("slug = ?", "birch-planning").First(&birch).Error)
	var pricing pricingdomain.Pricing
	require.NoError(t, db.Where("tenant_id = ?", birch.ID).First(&pricing).Error)
	assert.EqualValues(t, 22000, pricing.SingleWillPrice)
	assert.EqualValues(t, 38000, pricing.MirrorWillPrice)
	assert.EqualValues(t, 80000, pricing.TrustWillPrice)
	assert.Equal(t, 85, pricing.RevenueSplitBroker)
	assert.Equal(t, 15, pricing.RevenueSplitPlatform)

	var will willdomain.Will
	require.NoError(t, db.First(&will).Error)
	assert.Equal(t, willdomain.StatusDraft, will.Status)
	assert.Empty(t, will.Payload().MissingForApproval())
	assert.Contains(t, will.DraftMarkdown, "John Smith")
}

func TestRunRequiresGenerator(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	assert.Error(t, seed.Run(context.Background(), db, seed.Options{}))
}
