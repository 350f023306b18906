package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sevaportal/portal-api/internal/dto"
	"github.com/sevaportal/portal-api/internal/models"
	"github.com/sevaportal/portal-api/internal/repository"
	appErrors "github.com/sevaportal/portal-api/pkg/errors"
	"github.com/sevaportal/portal-api/pkg/jobs"
)

type sessionStore interface {
	ListByProjectDate(ctx context.Context, projectKey, date string) ([]models.Session, error)
	CountByProjectDate(ctx context.Context, projectKey, date string) (int, error)
	FindByID(ctx context.Context, id string) (*models.Session, error)
	FindByStudentOnDate(ctx context.Context, projectKey, date, studentID, excludeID string) (*models.Session, error)
	BulkCreate(ctx context.Context, sessions []models.Session) error
	UpdateStudents(ctx context.Context, id string, studentIDs []string, expectedVersion int) (int, error)
}

type availabilityReader interface {
	ListByProjectDate(ctx context.Context, projectKey, date string) ([]models.Availability, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) (bool, error)
}

// WarmJobType names the background job that rebuilds a project day's cached snapshot.
const WarmJobType = "schedule.warm"

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Student, error)
	ListUnassigned(ctx context.Context, projectKey, date string) ([]models.Student, error)
}

// ScheduleConfig tunes schedule creation.
type ScheduleConfig struct {
	DefaultStart   string
	DefaultEnd     string
	MinNoticeDays  int
	CacheTTL       time.Duration
	CacheKeyPrefix string
}

// ScheduleService builds project-day schedules and edits session membership.
type ScheduleService struct {
	sessions     sessionStore
	availability availabilityReader
	students     studentReader
	cache        *CacheService
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	cfg          ScheduleConfig
	warmer       jobEnqueuer
	now          func() time.Time

	genMu       sync.Mutex
	generations map[string]uint64
}

// NewScheduleService constructs a ScheduleService.
func NewScheduleService(sessions sessionStore, availability availabilityReader, students studentReader, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg ScheduleConfig) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.MinNoticeDays < 1 {
		cfg.MinNoticeDays = 1
	}
	if cfg.DefaultStart == "" {
		cfg.DefaultStart = "16:00"
	}
	if cfg.DefaultEnd == "" {
		cfg.DefaultEnd = "17:00"
	}
	if cfg.CacheKeyPrefix == "" {
		cfg.CacheKeyPrefix = "schedule"
	}
	return &ScheduleService{
		sessions:     sessions,
		availability: availability,
		students:     students,
		cache:        cache,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		cfg:          cfg,
		now:          time.Now,
		generations:  make(map[string]uint64),
	}
}

// EarliestDate returns the first date a schedule may be created for.
func (s *ScheduleService) EarliestDate() string {
	return models.EarliestDateKey(s.now(), s.cfg.MinNoticeDays)
}

// GetSchedule returns the sessions of a project day plus the students none of them hold.
func (s *ScheduleService) GetSchedule(ctx context.Context, q dto.ScheduleQuery) (*dto.ScheduleResponse, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "projectKey and date (YYYY-MM-DD) are required")
	}

	key := s.cacheKey(q.ProjectKey, q.Date)
	var cached dto.ScheduleResponse
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		cached.Cached = true
		return &cached, nil
	}
	return s.rebuildSnapshot(ctx, q, key)
}

// rebuildSnapshot loads a project day from the database and caches it unless the day was
// invalidated while the load was running.
func (s *ScheduleService) rebuildSnapshot(ctx context.Context, q dto.ScheduleQuery, key string) (*dto.ScheduleResponse, error) {
	gen := s.generation(key)

	sessions, err := s.sessions.ListByProjectDate(ctx, q.ProjectKey, q.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}
	unassigned, err := s.students.ListUnassigned(ctx, q.ProjectKey, q.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load unassigned students")
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	if unassigned == nil {
		unassigned = []models.Student{}
	}

	resp := &dto.ScheduleResponse{
		ProjectKey:         q.ProjectKey,
		Date:               q.Date,
		Sessions:           sessions,
		UnassignedStudents: unassigned,
	}
	if s.generation(key) == gen {
		_ = s.cache.Set(ctx, key, resp, s.cfg.CacheTTL)
	} else {
		s.logger.Debug("schedule snapshot superseded, not cached", zap.String("key", key))
	}
	return resp, nil
}

func (s *ScheduleService) generation(key string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[key]
}

func (s *ScheduleService) bumpGeneration(key string) {
	s.genMu.Lock()
	s.generations[key]++
	s.genMu.Unlock()
}

// ListAvailability returns the declarations for a project day in submission order.
func (s *ScheduleService) ListAvailability(ctx context.Context, q dto.ScheduleQuery) ([]models.Availability, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "projectKey and date (YYYY-MM-DD) are required")
	}
	items, err := s.availability.ListByProjectDate(ctx, q.ProjectKey, q.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	if items == nil {
		items = []models.Availability{}
	}
	return items, nil
}

// CreateSchedule assigns every unassigned student to an eligible available volunteer and
// persists one session per availability record. Running it twice for the same day creates
// a second set of sessions.
func (s *ScheduleService) CreateSchedule(ctx context.Context, req dto.CreateScheduleRequest) (*dto.CreateScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	if earliest := s.EarliestDate(); req.Date < earliest {
		return nil, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("schedule date must be %s or later", earliest)),
			map[string]any{"earliestDate": earliest})
	}
	if !req.Confirm {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "schedule creation must be confirmed")
	}

	start, end := req.StartTime, req.EndTime
	if start == "" {
		start = s.cfg.DefaultStart
	}
	if end == "" {
		end = s.cfg.DefaultEnd
	}
	startMin, err := models.ParseClock(start)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	endMin, err := models.ParseClock(end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if startMin >= endMin {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startTime must be before endTime")
	}

	existing, err := s.sessions.CountByProjectDate(ctx, req.ProjectKey, req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count existing sessions")
	}
	if existing > 0 {
		s.logger.Warn("creating schedule for a day that already has sessions",
			zap.String("project", req.ProjectKey),
			zap.String("date", req.Date),
			zap.Int("existing_sessions", existing))
	}

	availability, err := s.availability.ListByProjectDate(ctx, req.ProjectKey, req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	unassigned, err := s.students.ListUnassigned(ctx, req.ProjectKey, req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load unassigned students")
	}

	sessions, assigned := assignStudents(availability, unassigned)
	considered := make([]string, len(sessions))
	for i := range sessions {
		considered[i] = sessions[i].VolunteerID
		sessions[i].ProjectKey = req.ProjectKey
		sessions[i].Date = req.Date
		sessions[i].StartTime = start
		sessions[i].EndTime = end
	}

	if len(sessions) > 0 {
		if err := s.sessions.BulkCreate(ctx, sessions); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist schedule")
		}
	}
	s.Invalidate(ctx, req.ProjectKey, req.Date)
	s.metrics.RecordSessionsCreated(req.ProjectKey, len(sessions))

	s.logger.Info("schedule created",
		zap.String("project", req.ProjectKey),
		zap.String("date", req.Date),
		zap.Int("sessions", len(sessions)),
		zap.Int("students_assigned", assigned),
		zap.Int("students_unassigned", len(unassigned)-assigned))

	return &dto.CreateScheduleResponse{
		ProjectKey:           req.ProjectKey,
		Date:                 req.Date,
		SessionsCreated:      len(sessions),
		StudentsAssigned:     assigned,
		StudentsUnassigned:   len(unassigned) - assigned,
		VolunteersConsidered: len(availability),
		VolunteerIDs:         considered,
		ExistingSessions:     existing,
	}, nil
}

// assignStudents opens one session per availability record and hands each student to the
// least-loaded volunteer who teaches the student's grade. Ties go to the earlier record.
func assignStudents(availability []models.Availability, students []models.Student) ([]models.Session, int) {
	sessions := make([]models.Session, len(availability))
	for i, a := range availability {
		sessions[i] = models.Session{VolunteerID: a.VolunteerID, StudentIDs: []string{}}
	}

	assigned := 0
	for _, st := range students {
		best := -1
		for i := range availability {
			if !availability[i].Teaches(st.Grade) {
				continue
			}
			if best < 0 || len(sessions[i].StudentIDs) < len(sessions[best].StudentIDs) {
				best = i
			}
		}
		if best < 0 {
			continue
		}
		sessions[best].StudentIDs = append(sessions[best].StudentIDs, st.ID)
		assigned++
	}
	return sessions, assigned
}

// AddStudent puts a student into a session. Re-adding a member changes nothing.
func (s *ScheduleService) AddStudent(ctx context.Context, actor models.UserInfo, sessionID string, req dto.MembershipRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "studentId and version are required")
	}
	session, err := s.loadForEdit(ctx, actor, sessionID, req.Version)
	if err != nil {
		return nil, err
	}
	if session.HasStudent(req.StudentID) {
		return session, nil
	}
	if err := s.ensureAssignable(ctx, session, []string{req.StudentID}); err != nil {
		return nil, err
	}
	return s.writeMembership(ctx, session, session.WithStudent(req.StudentID))
}

// RemoveStudent takes a student out of a session. Removing a non-member changes nothing.
func (s *ScheduleService) RemoveStudent(ctx context.Context, actor models.UserInfo, sessionID string, req dto.MembershipRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "studentId and version are required")
	}
	session, err := s.loadForEdit(ctx, actor, sessionID, req.Version)
	if err != nil {
		return nil, err
	}
	if !session.HasStudent(req.StudentID) {
		return session, nil
	}
	return s.writeMembership(ctx, session, session.WithoutStudent(req.StudentID))
}

// ReplaceStudents overwrites the membership set, guarded by the session version.
func (s *ScheduleService) ReplaceStudents(ctx context.Context, actor models.UserInfo, sessionID string, req dto.ReplaceStudentsRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid membership payload")
	}
	session, err := s.loadForEdit(ctx, actor, sessionID, req.Version)
	if err != nil {
		return nil, err
	}
	ids := models.NormalizeStudentIDs(req.StudentIDs)
	var added []string
	for _, id := range ids {
		if !session.HasStudent(id) {
			added = append(added, id)
		}
	}
	if err := s.ensureAssignable(ctx, session, added); err != nil {
		return nil, err
	}
	return s.writeMembership(ctx, session, ids)
}

func (s *ScheduleService) loadForEdit(ctx context.Context, actor models.UserInfo, sessionID string, version int) (*models.Session, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if !actor.CanAccessProject(session.ProjectKey) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "session belongs to another project")
	}
	if session.Version != version {
		s.metrics.RecordMembershipConflict("stale_version")
		s.Invalidate(ctx, session.ProjectKey, session.Date)
		return nil, staleSession(session)
	}
	return session, nil
}

func (s *ScheduleService) ensureAssignable(ctx context.Context, session *models.Session, studentIDs []string) error {
	if len(studentIDs) == 0 {
		return nil
	}
	found, err := s.students.FindByIDs(ctx, studentIDs)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	known := make(map[string]models.Student, len(found))
	for _, st := range found {
		known[st.ID] = st
	}
	for _, id := range studentIDs {
		st, ok := known[id]
		if !ok {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %s not found", id))
		}
		if st.ProjectKey != session.ProjectKey {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %s is not enrolled in project %s", id, session.ProjectKey))
		}
		other, err := s.sessions.FindByStudentOnDate(ctx, session.ProjectKey, session.Date, id, session.ID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student sessions")
		}
		if other != nil {
			s.metrics.RecordMembershipConflict("double_booked")
			return appErrors.WithDetails(
				appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s is already in another session on %s", st.Name, session.Date)),
				map[string]any{"studentId": id, "sessionId": other.ID})
		}
	}
	return nil
}

func (s *ScheduleService) writeMembership(ctx context.Context, session *models.Session, studentIDs []string) (*models.Session, error) {
	version, err := s.sessions.UpdateStudents(ctx, session.ID, studentIDs, session.Version)
	if err != nil {
		if errors.Is(err, repository.ErrVersionMismatch) {
			s.metrics.RecordMembershipConflict("stale_version")
			s.Invalidate(ctx, session.ProjectKey, session.Date)
			return nil, staleSession(session)
		}
		if errors.Is(err, repository.ErrStudentConflict) {
			s.metrics.RecordMembershipConflict("double_booked")
			s.Invalidate(ctx, session.ProjectKey, session.Date)
			return nil, appErrors.WithDetails(
				appErrors.Clone(appErrors.ErrConflict, "a student is already in another session on "+session.Date),
				map[string]any{"sessionId": session.ID})
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session students")
	}
	session.StudentIDs = studentIDs
	session.Version = version
	session.UpdatedAt = s.now().UTC()
	s.Invalidate(ctx, session.ProjectKey, session.Date)
	return session, nil
}

func staleSession(session *models.Session) error {
	return appErrors.WithDetails(
		appErrors.Clone(appErrors.ErrStaleVersion, "session was changed by someone else, reload and retry"),
		map[string]any{"sessionId": session.ID})
}

func (s *ScheduleService) cacheKey(projectKey, date string) string {
	return fmt.Sprintf("%s:%s:%s", s.cfg.CacheKeyPrefix, projectKey, date)
}

// UseWarmer schedules a background snapshot rebuild after every invalidation.
func (s *ScheduleService) UseWarmer(q jobEnqueuer) {
	s.warmer = q
}

// Invalidate drops the cached snapshot of a project day. Loads already in flight for that
// day will not write their result back.
func (s *ScheduleService) Invalidate(ctx context.Context, projectKey, date string) {
	key := s.cacheKey(projectKey, date)
	s.bumpGeneration(key)
	_ = s.cache.Invalidate(ctx, key)
	if s.warmer == nil || !s.cache.Enabled() {
		return
	}
	if _, err := s.warmer.Enqueue(jobs.Job{
		Key:     key,
		Type:    WarmJobType,
		Payload: dto.ScheduleQuery{ProjectKey: projectKey, Date: date},
	}); err != nil {
		s.logger.Warn("schedule warm not queued", zap.String("key", key), zap.Error(err))
	}
}

// WarmSnapshot is the queue handler for WarmJobType.
func (s *ScheduleService) WarmSnapshot(ctx context.Context, job jobs.Job) error {
	q, ok := job.Payload.(dto.ScheduleQuery)
	if !ok {
		return fmt.Errorf("unexpected %s payload %T", job.Type, job.Payload)
	}
	_, err := s.rebuildSnapshot(ctx, q, s.cacheKey(q.ProjectKey, q.Date))
	return err
}
