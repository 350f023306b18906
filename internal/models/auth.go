package models

import "github.com/golang-jwt/jwt/v5"

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string   `json:"accessToken"`
	ExpiresIn   int64    `json:"expiresIn"`
	User        UserInfo `json:"user"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID      string   `json:"user_id"`
	Role        Role     `json:"role"`
	Email       string   `json:"email"`
	FullName    string   `json:"full_name"`
	ProjectKeys []string `json:"project_keys"`
	jwt.RegisteredClaims
}

// Info projects the claims into the user shape used by the access gate.
func (c *JWTClaims) Info() UserInfo {
	return UserInfo{
		ID:          c.UserID,
		Email:       c.Email,
		FullName:    c.FullName,
		Role:        c.Role,
		ProjectKeys: c.ProjectKeys,
	}
}

// AuthStatus distinguishes an unresolved session from a resolved anonymous one.
type AuthStatus string

const (
	AuthLoading       AuthStatus = "loading"
	AuthAuthenticated AuthStatus = "authenticated"
	AuthAnonymous     AuthStatus = "anonymous"
)

// AuthState is the requester's session state. User is set only when authenticated.
type AuthState struct {
	Status AuthStatus `json:"status"`
	User   *UserInfo  `json:"user,omitempty"`
}

func LoadingState() AuthState   { return AuthState{Status: AuthLoading} }
func AnonymousState() AuthState { return AuthState{Status: AuthAnonymous} }

func AuthenticatedState(user UserInfo) AuthState {
	return AuthState{Status: AuthAuthenticated, User: &user}
}
