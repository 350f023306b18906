package dto

import "github.com/sevaportal/portal-api/internal/models"

// SubmitReportRequest carries the after-session summary.
type SubmitReportRequest struct {
	Summary string `json:"summary" validate:"required,max=4000"`
}

// MySessionsQuery filters the volunteer's own sessions.
type MySessionsQuery struct {
	ProjectKey string `form:"projectKey"`
	Date       string `form:"date" validate:"omitempty,datetime=2006-01-02"`
	From       string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To         string `form:"to" validate:"omitempty,datetime=2006-01-02"`
}

// PerformanceResponse partitions a volunteer's sessions by derived state.
type PerformanceResponse struct {
	VolunteerID    string           `json:"volunteerId"`
	Completed      []models.Session `json:"completed"`
	Upcoming       []models.Session `json:"upcoming"`
	CompletedCount int              `json:"completedCount"`
	UpcomingCount  int              `json:"upcomingCount"`
	PendingReports int              `json:"pendingReports"`
	MinutesServed  int              `json:"minutesServed"`
}
