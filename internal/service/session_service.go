package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sevaportal/portal-api/internal/dto"
	"github.com/sevaportal/portal-api/internal/models"
	"github.com/sevaportal/portal-api/internal/repository"
	appErrors "github.com/sevaportal/portal-api/pkg/errors"
)

type sessionLifecycleStore interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
	UpdateLifecycle(ctx context.Context, session *models.Session) error
	ListByVolunteer(ctx context.Context, volunteerID string, filter models.SessionFilter) ([]models.Session, error)
}

type scheduleInvalidator interface {
	Invalidate(ctx context.Context, projectKey, date string)
}

// SessionService drives the check-in, check-out and report steps of a session.
type SessionService struct {
	sessions    sessionLifecycleStore
	invalidator scheduleInvalidator
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewSessionService constructs a SessionService.
func NewSessionService(sessions sessionLifecycleStore, invalidator scheduleInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SessionService{sessions: sessions, invalidator: invalidator, metrics: metrics, validator: validate, logger: logger, now: time.Now}
}

// CheckIn stamps the arrival time.
func (s *SessionService) CheckIn(ctx context.Context, actor models.UserInfo, sessionID string) (*models.Session, error) {
	return s.transition(ctx, actor, sessionID, "check_in", func(session *models.Session) error {
		return session.CheckIn(s.now().UTC())
	})
}

// CheckOut stamps the departure time.
func (s *SessionService) CheckOut(ctx context.Context, actor models.UserInfo, sessionID string) (*models.Session, error) {
	return s.transition(ctx, actor, sessionID, "check_out", func(session *models.Session) error {
		return session.CheckOut(s.now().UTC())
	})
}

// SubmitReport files the after-session summary once the session is checked out.
func (s *SessionService) SubmitReport(ctx context.Context, actor models.UserInfo, sessionID string, req dto.SubmitReportRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "summary is required")
	}
	return s.transition(ctx, actor, sessionID, "report", func(session *models.Session) error {
		return session.FileReport(req.Summary)
	})
}

func (s *SessionService) transition(ctx context.Context, actor models.UserInfo, sessionID, event string, apply func(*models.Session) error) (*models.Session, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if !canOperate(actor, session) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the assigned volunteer or project leadership can update this session")
	}

	if err := apply(session); err != nil {
		return nil, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrInvalidState, err.Error()),
			map[string]any{"state": session.State()})
	}

	if err := s.sessions.UpdateLifecycle(ctx, session); err != nil {
		if errors.Is(err, repository.ErrVersionMismatch) {
			return nil, appErrors.Clone(appErrors.ErrStaleVersion, "session was changed by someone else, reload and retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
	}

	s.metrics.RecordLifecycleEvent(event)
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, session.ProjectKey, session.Date)
	}
	s.logger.Info("session transition",
		zap.String("session_id", session.ID),
		zap.String("event", event),
		zap.String("state", string(session.State())),
		zap.String("actor", actor.ID))
	return session, nil
}

func canOperate(actor models.UserInfo, session *models.Session) bool {
	if actor.ID != "" && actor.ID == session.VolunteerID {
		return true
	}
	return actor.Role.AtLeast(models.RoleExe) && actor.CanAccessProject(session.ProjectKey)
}

// ListMine returns the sessions assigned to a volunteer.
func (s *SessionService) ListMine(ctx context.Context, volunteerID string, q dto.MySessionsQuery) ([]models.Session, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "dates must use YYYY-MM-DD")
	}
	sessions, err := s.sessions.ListByVolunteer(ctx, volunteerID, models.SessionFilter{
		ProjectKey: q.ProjectKey,
		Date:       q.Date,
		From:       q.From,
		To:         q.To,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	return sessions, nil
}

// Performance partitions a volunteer's sessions into completed and upcoming by derived state.
// A caller looking at someone else only sees sessions in projects they can access.
func (s *SessionService) Performance(ctx context.Context, actor models.UserInfo, volunteerID, projectKey string) (*dto.PerformanceResponse, error) {
	if projectKey != "" && actor.ID != volunteerID && !actor.CanAccessProject(projectKey) {
		return nil, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrForbidden, "no access to project"),
			map[string]any{"projectKey": projectKey})
	}
	listed, err := s.sessions.ListByVolunteer(ctx, volunteerID, models.SessionFilter{ProjectKey: projectKey})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}
	sessions := listed
	if actor.ID != volunteerID {
		sessions = make([]models.Session, 0, len(listed))
		for _, session := range listed {
			if actor.CanAccessProject(session.ProjectKey) {
				sessions = append(sessions, session)
			}
		}
	}

	resp := &dto.PerformanceResponse{
		VolunteerID: volunteerID,
		Completed:   []models.Session{},
		Upcoming:    []models.Session{},
	}
	for _, session := range sessions {
		if !session.Completed() {
			resp.Upcoming = append(resp.Upcoming, session)
			continue
		}
		resp.Completed = append(resp.Completed, session)
		if session.PendingReport() {
			resp.PendingReports++
		}
		resp.MinutesServed += int(session.CheckOutAt.Sub(*session.CheckInAt).Minutes())
	}
	resp.CompletedCount = len(resp.Completed)
	resp.UpcomingCount = len(resp.Upcoming)
	return resp, nil
}
