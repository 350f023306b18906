package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoutePolicyStudentOnly(t *testing.T) {
	cases := []struct {
		name   string
		policy RoutePolicy
		want   bool
	}{
		{"min student", RoutePolicy{MinRole: RoleStudent}, true},
		{"allow exactly student", RoutePolicy{AllowedRoles: []Role{"Student"}}, true},
		{"allow student and volunteer", RoutePolicy{AllowedRoles: []Role{RoleStudent, RoleVolunteer}}, false},
		{"min volunteer", RoutePolicy{MinRole: RoleVolunteer}, false},
		{"no restriction", RoutePolicy{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.policy.StudentOnly())
		})
	}
}

func TestAvailabilityTeaches(t *testing.T) {
	a := &Availability{Grades: []int64{3, 4}}
	assert.True(t, a.Teaches(3))
	assert.False(t, a.Teaches(5))
	assert.True(t, (&Availability{}).Teaches(9))
}

func TestUserInfoCanAccessProject(t *testing.T) {
	assert.True(t, UserInfo{Role: RoleAdmin}.CanAccessProject("alpha"))
	assert.True(t, UserInfo{Role: RoleExe, ProjectKeys: []string{"alpha"}}.CanAccessProject("alpha"))
	assert.False(t, UserInfo{Role: RoleSecy, ProjectKeys: []string{"beta"}}.CanAccessProject("alpha"))
}
