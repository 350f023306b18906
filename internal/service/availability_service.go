package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/sevaportal/portal-api/internal/dto"
	"github.com/sevaportal/portal-api/internal/models"
	appErrors "github.com/sevaportal/portal-api/pkg/errors"
)

type availabilityStore interface {
	Upsert(ctx context.Context, availability *models.Availability) error
	FindByID(ctx context.Context, id string) (*models.Availability, error)
	ListByVolunteer(ctx context.Context, volunteerID, from string) ([]models.Availability, error)
	Delete(ctx context.Context, id string) error
}

// AvailabilityService manages volunteers' declared availability.
type AvailabilityService struct {
	repo          availabilityStore
	validator     *validator.Validate
	logger        *zap.Logger
	minNoticeDays int
	now           func() time.Time
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(repo availabilityStore, validate *validator.Validate, logger *zap.Logger, minNoticeDays int) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if minNoticeDays < 1 {
		minNoticeDays = 1
	}
	return &AvailabilityService{repo: repo, validator: validate, logger: logger, minNoticeDays: minNoticeDays, now: time.Now}
}

// Set creates or replaces the caller's availability for a project day.
func (s *AvailabilityService) Set(ctx context.Context, actor models.UserInfo, req dto.SetAvailabilityRequest) (*models.Availability, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	if !actor.CanAccessProject(req.ProjectKey) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you are not a member of this project")
	}
	if earliest := models.EarliestDateKey(s.now(), s.minNoticeDays); req.Date < earliest {
		return nil, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("availability date must be %s or later", earliest)),
			map[string]any{"earliestDate": earliest})
	}

	var note *string
	if req.Note != nil {
		if trimmed := strings.TrimSpace(*req.Note); trimmed != "" {
			note = &trimmed
		}
	}
	availability := &models.Availability{
		VolunteerID:   actor.ID,
		VolunteerName: actor.FullName,
		ProjectKey:    req.ProjectKey,
		Date:          req.Date,
		Grades:        normalizeGrades(req.Grades),
		Note:          note,
	}
	if err := s.repo.Upsert(ctx, availability); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save availability")
	}
	s.logger.Info("availability saved",
		zap.String("volunteer_id", actor.ID),
		zap.String("project", req.ProjectKey),
		zap.String("date", req.Date),
		zap.Int64s("grades", availability.Grades))
	return availability, nil
}

func normalizeGrades(grades []int) pq.Int64Array {
	seen := make(map[int]struct{}, len(grades))
	out := pq.Int64Array{}
	for _, g := range grades {
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, int64(g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Delete removes an availability record owned by the caller. Leadership may remove any record in their projects.
func (s *AvailabilityService) Delete(ctx context.Context, actor models.UserInfo, id string) error {
	availability, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "availability not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	owner := availability.VolunteerID == actor.ID
	lead := actor.Role.AtLeast(models.RoleExe) && actor.CanAccessProject(availability.ProjectKey)
	if !owner && !lead {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot remove another volunteer's availability")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "availability not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete availability")
	}
	return nil
}

// ListMine returns the caller's availability from today on.
func (s *AvailabilityService) ListMine(ctx context.Context, volunteerID string) ([]models.Availability, error) {
	items, err := s.repo.ListByVolunteer(ctx, volunteerID, models.EarliestDateKey(s.now(), 0))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	if items == nil {
		items = []models.Availability{}
	}
	return items, nil
}
