package dto

// SetAvailabilityRequest declares or replaces availability for one project day.
type SetAvailabilityRequest struct {
	ProjectKey string  `json:"projectKey" validate:"required"`
	Date       string  `json:"date" validate:"required,datetime=2006-01-02"`
	Grades     []int   `json:"grades" validate:"omitempty,dive,min=1,max=12"`
	Note       *string `json:"note" validate:"omitempty,max=500"`
}
