package models

import (
	"time"

	"github.com/lib/pq"
)

// User represents an application user stored in the users table.
type User struct {
	ID           string         `db:"id" json:"id"`
	Email        string         `db:"email" json:"email"`
	PasswordHash string         `db:"password_hash" json:"-"`
	FullName     string         `db:"full_name" json:"fullName"`
	Role         Role           `db:"role" json:"role"`
	ProjectKeys  pq.StringArray `db:"project_keys" json:"projectKeys"`
	Active       bool           `db:"active" json:"active"`
	LastLogin    *time.Time     `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updatedAt"`
}

// Info returns the public projection of the user.
func (u *User) Info() UserInfo {
	return UserInfo{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		Role:        u.Role,
		ProjectKeys: append([]string(nil), u.ProjectKeys...),
	}
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	FullName    string   `json:"fullName"`
	Role        Role     `json:"role"`
	ProjectKeys []string `json:"projectKeys"`
}

// CanAccessProject reports whether the user may act within the given project.
// Admins span every project.
func (u UserInfo) CanAccessProject(projectKey string) bool {
	if u.Role.AtLeast(RoleAdmin) {
		return true
	}
	for _, key := range u.ProjectKeys {
		if key == projectKey {
			return true
		}
	}
	return false
}
