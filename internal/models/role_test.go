package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleRankIsStrictlyIncreasing(t *testing.T) {
	roles := Roles()
	for i := 1; i < len(roles); i++ {
		assert.Greater(t, roles[i].Rank(), roles[i-1].Rank(), "%s should outrank %s", roles[i], roles[i-1])
	}
	assert.Equal(t, 1, RoleStudent.Rank())
	assert.Equal(t, 5, RoleAdmin.Rank())
}

func TestUnknownRolesRankBelowStudent(t *testing.T) {
	for _, r := range []Role{"", "guest", "superuser", " "} {
		assert.Equal(t, 0, r.Rank(), "role %q", r)
		assert.Less(t, r.Rank(), RoleStudent.Rank())
		assert.False(t, r.Valid())
	}
}

func TestAtLeastMatrix(t *testing.T) {
	for _, user := range Roles() {
		for _, min := range Roles() {
			assert.Equal(t, user.Rank() >= min.Rank(), user.AtLeast(min), "user=%s min=%s", user, min)
		}
	}
	assert.False(t, RoleAdmin.AtLeast("owner"))
	assert.False(t, Role("owner").AtLeast(RoleStudent))
}

func TestRoleNamesAreCaseInsensitive(t *testing.T) {
	assert.Equal(t, RoleSecy, ParseRole("  SECY "))
	assert.Equal(t, 4, Role("Secy").Rank())
	assert.True(t, Role("VOLUNTEER").Matches(RoleVolunteer))
}
