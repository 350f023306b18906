package models

import "strings"

// Role is a portal role. Roles form a total order used for inherited route access.
type Role string

const (
	RoleStudent   Role = "student"
	RoleVolunteer Role = "volunteer"
	RoleExe       Role = "exe"
	RoleSecy      Role = "secy"
	RoleAdmin     Role = "admin"
)

var roleRanks = map[Role]int{
	RoleStudent:   1,
	RoleVolunteer: 2,
	RoleExe:       3,
	RoleSecy:      4,
	RoleAdmin:     5,
}

// Roles lists every known role from lowest to highest rank.
func Roles() []Role {
	return []Role{RoleStudent, RoleVolunteer, RoleExe, RoleSecy, RoleAdmin}
}

// ParseRole normalises case and surrounding whitespace. The result may still be unknown.
func ParseRole(raw string) Role {
	return Role(strings.ToLower(strings.TrimSpace(raw)))
}

// Rank returns the position of the role in the hierarchy, or 0 for unknown roles.
func (r Role) Rank() int {
	return roleRanks[ParseRole(string(r))]
}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	return r.Rank() > 0
}

// AtLeast reports whether r ranks at or above min. An unknown min never matches.
func (r Role) AtLeast(min Role) bool {
	minRank := min.Rank()
	return minRank > 0 && r.Rank() >= minRank
}

// Matches compares role names case-insensitively.
func (r Role) Matches(other Role) bool {
	return ParseRole(string(r)) == ParseRole(string(other))
}

// IsStaff reports whether the role signs in through the staff flow.
func (r Role) IsStaff() bool {
	return r.AtLeast(RoleVolunteer)
}
