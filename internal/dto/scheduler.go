package dto

import "github.com/sevaportal/portal-api/internal/models"

// ScheduleQuery selects one project day.
type ScheduleQuery struct {
	ProjectKey string `form:"projectKey" json:"projectKey" validate:"required"`
	Date       string `form:"date" json:"date" validate:"required,datetime=2006-01-02"`
}

// ScheduleResponse is the day view used by the schedule editor.
type ScheduleResponse struct {
	ProjectKey         string           `json:"projectKey"`
	Date               string           `json:"date"`
	Sessions           []models.Session `json:"sessions"`
	UnassignedStudents []models.Student `json:"unassignedStudents"`
	Cached             bool             `json:"-"`
}

// CreateScheduleRequest asks the engine to build sessions for a future date.
// Confirm mirrors the operator's confirmation prompt and must be true.
type CreateScheduleRequest struct {
	ProjectKey string `json:"projectKey" validate:"required"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime  string `json:"startTime" validate:"omitempty,datetime=15:04"`
	EndTime    string `json:"endTime" validate:"omitempty,datetime=15:04"`
	Confirm    bool   `json:"confirm"`
}

// CreateScheduleResponse summarises a schedule run.
type CreateScheduleResponse struct {
	ProjectKey           string   `json:"projectKey"`
	Date                 string   `json:"date"`
	SessionsCreated      int      `json:"sessionsCreated"`
	StudentsAssigned     int      `json:"studentsAssigned"`
	StudentsUnassigned   int      `json:"studentsUnassigned"`
	VolunteersConsidered int      `json:"volunteersConsidered"`
	VolunteerIDs         []string `json:"volunteerIds"`
	ExistingSessions     int      `json:"existingSessions"`
}

// MembershipRequest adds or removes one student. Version must equal the session version last read.
type MembershipRequest struct {
	StudentID string `json:"studentId" validate:"required"`
	Version   int    `json:"version" validate:"required,min=1"`
}

// ReplaceStudentsRequest overwrites the whole membership set.
type ReplaceStudentsRequest struct {
	StudentIDs []string `json:"studentIds" validate:"dive,required"`
	Version    int      `json:"version" validate:"required,min=1"`
}

// ExportQuery selects the roster to render.
type ExportQuery struct {
	ProjectKey string `form:"projectKey" validate:"required"`
	Date       string `form:"date" validate:"required,datetime=2006-01-02"`
	Format     string `form:"format" validate:"omitempty,oneof=csv pdf"`
}
