package models

import (
	"time"

	"github.com/lib/pq"
)

// Availability is a volunteer's declared willingness to teach on a future date.
type Availability struct {
	ID            string        `db:"id" json:"id"`
	VolunteerID   string        `db:"volunteer_id" json:"volunteerId"`
	VolunteerName string        `db:"volunteer_name" json:"volunteerName,omitempty"`
	ProjectKey    string        `db:"project_key" json:"projectKey"`
	Date          string        `db:"date" json:"date"`
	Grades        pq.Int64Array `db:"grades" json:"grades"`
	Note          *string       `db:"note" json:"note,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updatedAt"`
}

// Teaches reports whether the volunteer accepts the grade. No grades means any grade.
func (a *Availability) Teaches(grade int) bool {
	if len(a.Grades) == 0 {
		return true
	}
	for _, g := range a.Grades {
		if int(g) == grade {
			return true
		}
	}
	return false
}
