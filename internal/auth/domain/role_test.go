package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleOrdering(t *testing.T) {
	roles := Roles()
	for i := range roles {
		for j := range roles {
			want := 0
			if i < j {
				want = -1
			} else if i > j {
				want = 1
			}
			assert.Equal(t, want, roles[i].Compare(roles[j]), "%s vs %s", roles[i], roles[j])
		}
	}

	assert.True(t, RolePlatformAdmin.AtLeast(RoleBrokerAdmin))
	assert.True(t, RoleBrokerAdmin.AtLeast(RoleBrokerAdmin))
	assert.False(t, RoleBroker.AtLeast(RoleBrokerAdmin))
	assert.False(t, Role("guest").AtLeast(RoleBroker))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Broker_Admin ")
	assert.NoError(t, err)
	assert.Equal(t, RoleBrokerAdmin, r)

	_, err = ParseRole("owner")
	assert.ErrorIs(t, err, ErrInvalidRole)
}
