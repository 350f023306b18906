package models

// RoutePolicy is one row of the declarative route table.
type RoutePolicy struct {
	Path           string `json:"path"`
	MinRole        Role   `json:"minRole,omitempty"`
	AllowedRoles   []Role `json:"allowedRoles,omitempty"`
	UnauthRedirect string `json:"unauthRedirect,omitempty"`
}

// Restricted reports whether the policy names any role requirement.
func (p RoutePolicy) Restricted() bool {
	return p.MinRole != "" || len(p.AllowedRoles) > 0
}

// StudentOnly reports whether only students are meant to reach the route.
func (p RoutePolicy) StudentOnly() bool {
	if p.MinRole.Matches(RoleStudent) {
		return true
	}
	return len(p.AllowedRoles) == 1 && p.AllowedRoles[0].Matches(RoleStudent)
}

// AccessOutcome is the gate's verdict.
type AccessOutcome string

const (
	AccessPending  AccessOutcome = "pending"
	AccessAllow    AccessOutcome = "allow"
	AccessRedirect AccessOutcome = "redirect"
)

// AccessDecision is returned for every gated navigation.
type AccessDecision struct {
	Outcome      AccessOutcome `json:"outcome"`
	Target       string        `json:"target,omitempty"`
	From         string        `json:"from,omitempty"`
	Reason       string        `json:"reason,omitempty"`
	RequiredRole Role          `json:"requiredRole,omitempty"`
	AllowedRoles []Role        `json:"allowedRoles,omitempty"`
}

const (
	ReasonUnauthenticated = "unauthenticated"
	ReasonForbidden       = "forbidden"
)
