package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sevaportal/portal-api/internal/dto"
	"github.com/sevaportal/portal-api/internal/models"
	appErrors "github.com/sevaportal/portal-api/pkg/errors"
	"github.com/sevaportal/portal-api/pkg/export"
)

type rosterSource interface {
	GetSchedule(ctx context.Context, q dto.ScheduleQuery) (*dto.ScheduleResponse, error)
}

type volunteerDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type studentDirectory interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Student, error)
}

// ExportFile is a rendered roster ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders a project day's roster as CSV or PDF.
type ExportService struct {
	schedule   rosterSource
	volunteers volunteerDirectory
	students   studentDirectory
	renderers  map[string]export.Renderer
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to the CSV and PDF exporters.
func NewExportService(schedule rosterSource, volunteers volunteerDirectory, students studentDirectory, validate *validator.Validate, logger *zap.Logger, renderers ...export.Renderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if len(renderers) == 0 {
		renderers = []export.Renderer{export.NewCSVExporter(), export.NewPDFExporter()}
	}
	byExt := make(map[string]export.Renderer, len(renderers))
	for _, r := range renderers {
		byExt[r.Extension()] = r
	}
	return &ExportService{schedule: schedule, volunteers: volunteers, students: students, renderers: byExt, validator: validate, logger: logger}
}

// Roster builds the roster file for a project day.
func (s *ExportService) Roster(ctx context.Context, q dto.ExportQuery) (*ExportFile, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "projectKey, date and format (csv or pdf) are required")
	}
	format := q.Format
	if format == "" {
		format = "csv"
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %s", format))
	}

	day, err := s.schedule.GetSchedule(ctx, dto.ScheduleQuery{ProjectKey: q.ProjectKey, Date: q.Date})
	if err != nil {
		return nil, err
	}
	dataset, err := s.buildDataset(ctx, day)
	if err != nil {
		return nil, err
	}

	body, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}
	s.logger.Info("roster exported",
		zap.String("project", q.ProjectKey),
		zap.String("date", q.Date),
		zap.String("format", format),
		zap.Int("rows", len(dataset.Rows)))

	return &ExportFile{
		Filename:    fmt.Sprintf("roster_%s_%s.%s", sanitizeFilename(q.ProjectKey), q.Date, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func (s *ExportService) buildDataset(ctx context.Context, day *dto.ScheduleResponse) (export.Dataset, error) {
	var studentIDs []string
	for _, session := range day.Sessions {
		studentIDs = append(studentIDs, session.StudentIDs...)
	}
	students, err := s.students.FindByIDs(ctx, studentIDs)
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	studentNames := make(map[string]string, len(students))
	for _, st := range students {
		studentNames[st.ID] = fmt.Sprintf("%s (G%d)", st.Name, st.Grade)
	}

	volunteerNames := map[string]string{}
	rows := make([][]string, 0, len(day.Sessions)+len(day.UnassignedStudents))
	for _, session := range day.Sessions {
		name, ok := volunteerNames[session.VolunteerID]
		if !ok {
			name = session.VolunteerID
			if user, err := s.volunteers.FindByID(ctx, session.VolunteerID); err == nil {
				name = user.FullName
			} else {
				s.logger.Warn("roster volunteer lookup failed", zap.String("volunteer_id", session.VolunteerID), zap.Error(err))
			}
			volunteerNames[session.VolunteerID] = name
		}
		names := make([]string, 0, len(session.StudentIDs))
		for _, id := range session.StudentIDs {
			if n, ok := studentNames[id]; ok {
				names = append(names, n)
			} else {
				names = append(names, id)
			}
		}
		rows = append(rows, []string{
			name,
			session.StartTime + "-" + session.EndTime,
			fmt.Sprintf("%d", len(session.StudentIDs)),
			strings.Join(names, "; "),
			string(session.State()),
		})
	}
	for _, st := range day.UnassignedStudents {
		rows = append(rows, []string{"(unassigned)", "", "", fmt.Sprintf("%s (G%d)", st.Name, st.Grade), ""})
	}

	return export.Dataset{
		Title:   fmt.Sprintf("Roster %s %s", day.ProjectKey, day.Date),
		Headers: []string{"Volunteer", "Time", "Students", "Names", "State"},
		Rows:    rows,
	}, nil
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
