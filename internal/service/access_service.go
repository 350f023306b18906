package service

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sevaportal/portal-api/internal/models"
)

// AccessPaths are the client entry points the gate redirects to.
type AccessPaths struct {
	Login        string
	StudentLogin string
	Unauthorized string
}

func (p AccessPaths) withDefaults() AccessPaths {
	if p.Login == "" {
		p.Login = "/login"
	}
	if p.StudentLogin == "" {
		p.StudentLogin = "/student/login"
	}
	if p.Unauthorized == "" {
		p.Unauthorized = "/unauthorized"
	}
	return p
}

// DefaultRoutePolicies is the route table shipped with the portal.
func DefaultRoutePolicies() []models.RoutePolicy {
	return []models.RoutePolicy{
		{Path: "/student", AllowedRoles: []models.Role{models.RoleStudent}},
		{Path: "/volunteer", MinRole: models.RoleVolunteer},
		{Path: "/volunteer/availability", MinRole: models.RoleVolunteer},
		{Path: "/volunteer/sessions", MinRole: models.RoleVolunteer},
		{Path: "/doubts", AllowedRoles: []models.Role{models.RoleVolunteer, models.RoleSecy}},
		{Path: "/exe", MinRole: models.RoleExe},
		{Path: "/exe/schedule", MinRole: models.RoleExe},
		{Path: "/secy", MinRole: models.RoleSecy},
		{Path: "/admin", MinRole: models.RoleAdmin},
		{Path: "/profile"},
	}
}

// RouteTable resolves a requested path to its policy by longest path-segment prefix.
type RouteTable struct {
	policies []models.RoutePolicy
}

// NewRouteTable normalises paths and fills each policy's unauthenticated redirect.
func NewRouteTable(policies []models.RoutePolicy, paths AccessPaths) *RouteTable {
	paths = paths.withDefaults()
	table := make([]models.RoutePolicy, 0, len(policies))
	for _, p := range policies {
		p.Path = normalizePath(p.Path)
		if p.UnauthRedirect == "" {
			p.UnauthRedirect = loginTarget(p, paths)
		}
		table = append(table, p)
	}
	sort.SliceStable(table, func(i, j int) bool { return len(table[i].Path) > len(table[j].Path) })
	return &RouteTable{policies: table}
}

// Lookup returns the policy guarding path, or nil for public routes.
func (t *RouteTable) Lookup(path string) *models.RoutePolicy {
	if t == nil {
		return nil
	}
	path = normalizePath(path)
	for i := range t.policies {
		prefix := t.policies[i].Path
		if path == prefix || prefix == "/" || strings.HasPrefix(path, prefix+"/") {
			p := t.policies[i]
			return &p
		}
	}
	return nil
}

// Policies returns the table ordered by path.
func (t *RouteTable) Policies() []models.RoutePolicy {
	out := append([]models.RoutePolicy(nil), t.policies...)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func normalizePath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = "/" + strings.Trim(strings.TrimSpace(path), "/")
	return path
}

func loginTarget(policy models.RoutePolicy, paths AccessPaths) string {
	if policy.StudentOnly() {
		return paths.StudentLogin
	}
	return paths.Login
}

// AccessService decides whether a requester may open a client route.
type AccessService struct {
	table   *RouteTable
	paths   AccessPaths
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAccessService constructs the gate.
func NewAccessService(table *RouteTable, paths AccessPaths, metrics *MetricsService, logger *zap.Logger) *AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	paths = paths.withDefaults()
	if table == nil {
		table = NewRouteTable(DefaultRoutePolicies(), paths)
	}
	return &AccessService{table: table, paths: paths, metrics: metrics, logger: logger}
}

// Paths returns the configured entry points.
func (s *AccessService) Paths() AccessPaths {
	return s.paths
}

// Routes returns the route table.
func (s *AccessService) Routes() []models.RoutePolicy {
	return s.table.Policies()
}

// Check resolves the path's policy and decides.
func (s *AccessService) Check(state models.AuthState, requestedPath string) models.AccessDecision {
	decision := s.Decide(state, s.table.Lookup(requestedPath), requestedPath)
	s.metrics.RecordAccessDecision(decision)
	if decision.Outcome == models.AccessRedirect {
		s.logger.Debug("access redirected",
			zap.String("path", requestedPath),
			zap.String("target", decision.Target),
			zap.String("reason", decision.Reason))
	}
	return decision
}

// Decide is a pure function of the auth state and the route policy.
func (s *AccessService) Decide(state models.AuthState, policy *models.RoutePolicy, requestedPath string) models.AccessDecision {
	if state.Status == models.AuthLoading {
		return models.AccessDecision{Outcome: models.AccessPending}
	}
	if policy == nil {
		return models.AccessDecision{Outcome: models.AccessAllow}
	}

	if state.Status != models.AuthAuthenticated || state.User == nil {
		target := policy.UnauthRedirect
		if target == "" {
			target = loginTarget(*policy, s.paths)
		}
		return models.AccessDecision{
			Outcome: models.AccessRedirect,
			Target:  target,
			From:    requestedPath,
			Reason:  models.ReasonUnauthenticated,
		}
	}

	role := state.User.Role
	switch {
	case !policy.Restricted():
		return models.AccessDecision{Outcome: models.AccessAllow}
	case policy.MinRole != "":
		if role.AtLeast(policy.MinRole) {
			return models.AccessDecision{Outcome: models.AccessAllow}
		}
	default:
		for _, allowed := range policy.AllowedRoles {
			if role.Valid() && role.Matches(allowed) {
				return models.AccessDecision{Outcome: models.AccessAllow}
			}
		}
	}

	return models.AccessDecision{
		Outcome:      models.AccessRedirect,
		Target:       s.paths.Unauthorized,
		From:         requestedPath,
		Reason:       models.ReasonForbidden,
		RequiredRole: policy.MinRole,
		AllowedRoles: policy.AllowedRoles,
	}
}
