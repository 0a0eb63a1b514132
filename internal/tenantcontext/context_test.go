package tenantcontext

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/mywill/internal/auth/domain"
	"github.com/smallbiznis/mywill/internal/errs"
	"github.com/stretchr/testify/assert"
)

func TestTenantID(t *testing.T) {
	_, err := TenantID(context.Background())
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	admin := WithPrincipal(context.Background(), Principal{UserID: 1, Role: authdomain.RolePlatformAdmin})
	_, err = TenantID(admin)
	assert.ErrorIs(t, err, errs.ErrForbidden)

	tenant := snowflake.ID(77)
	broker := WithPrincipal(context.Background(), Principal{TenantID: &tenant, UserID: 2, Role: authdomain.RoleBroker})
	got, err := TenantID(broker)
	assert.NoError(t, err)
	assert.Equal(t, tenant, got)
	assert.Equal(t, snowflake.ID(2), *UserID(broker))
	assert.Nil(t, UserID(context.Background()))
}
