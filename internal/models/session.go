package models

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"
)

// SessionState is derived from check-in/out timestamps and the report flag; it is never stored.
type SessionState string

const (
	SessionScheduled  SessionState = "scheduled"
	SessionCheckedIn  SessionState = "checked_in"
	SessionCheckedOut SessionState = "checked_out"
	SessionReported   SessionState = "reported"
)

var (
	ErrAlreadyCheckedIn   = errors.New("session already checked in")
	ErrNotCheckedIn       = errors.New("session has not been checked in")
	ErrAlreadyCheckedOut  = errors.New("session already checked out")
	ErrCheckOutBeforeIn   = errors.New("check-out must be later than check-in")
	ErrNotCheckedOut      = errors.New("report requires a completed check-out")
	ErrReportAlreadyFiled = errors.New("report already submitted")
)

// Session is a scheduled teaching slot pairing one volunteer with a set of students.
type Session struct {
	ID              string         `db:"id" json:"id"`
	ProjectKey      string         `db:"project_key" json:"projectKey"`
	Date            string         `db:"date" json:"date"`
	StartTime       string         `db:"start_time" json:"startTime"`
	EndTime         string         `db:"end_time" json:"endTime"`
	VolunteerID     string         `db:"volunteer_id" json:"volunteerId"`
	StudentIDs      pq.StringArray `db:"student_ids" json:"studentIds"`
	CheckInAt       *time.Time     `db:"check_in_at" json:"checkInAt,omitempty"`
	CheckOutAt      *time.Time     `db:"check_out_at" json:"checkOutAt,omitempty"`
	Report          *string        `db:"report" json:"report,omitempty"`
	ReportSubmitted bool           `db:"report_submitted" json:"reportSubmitted"`
	Version         int            `db:"version" json:"version"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updatedAt"`
}

// State walks Scheduled -> CheckedIn -> CheckedOut -> Reported.
func (s *Session) State() SessionState {
	switch {
	case s.CheckOutAt != nil && s.ReportSubmitted:
		return SessionReported
	case s.CheckOutAt != nil:
		return SessionCheckedOut
	case s.CheckInAt != nil:
		return SessionCheckedIn
	default:
		return SessionScheduled
	}
}

// Completed reports whether the volunteer has finished the session.
func (s *Session) Completed() bool {
	state := s.State()
	return state == SessionCheckedOut || state == SessionReported
}

// PendingReport is true for a checked-out session still waiting on its report.
func (s *Session) PendingReport() bool {
	return s.State() == SessionCheckedOut
}

// CheckIn records the check-in time.
func (s *Session) CheckIn(at time.Time) error {
	if s.CheckInAt != nil {
		return ErrAlreadyCheckedIn
	}
	s.CheckInAt = &at
	return nil
}

// CheckOut records the check-out time.
func (s *Session) CheckOut(at time.Time) error {
	if s.CheckInAt == nil {
		return ErrNotCheckedIn
	}
	if s.CheckOutAt != nil {
		return ErrAlreadyCheckedOut
	}
	if !at.After(*s.CheckInAt) {
		return ErrCheckOutBeforeIn
	}
	s.CheckOutAt = &at
	return nil
}

// FileReport attaches the after-session summary.
func (s *Session) FileReport(summary string) error {
	if s.CheckOutAt == nil {
		return ErrNotCheckedOut
	}
	if s.ReportSubmitted {
		return ErrReportAlreadyFiled
	}
	s.Report = &summary
	s.ReportSubmitted = true
	return nil
}

// HasStudent reports membership.
func (s *Session) HasStudent(studentID string) bool {
	for _, id := range s.StudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}

// WithStudent returns the membership set with studentID appended, unchanged if already present.
func (s *Session) WithStudent(studentID string) []string {
	return NormalizeStudentIDs(append(append([]string(nil), s.StudentIDs...), studentID))
}

// WithoutStudent returns the membership set minus studentID.
func (s *Session) WithoutStudent(studentID string) []string {
	out := make([]string, 0, len(s.StudentIDs))
	for _, id := range s.StudentIDs {
		if id != studentID {
			out = append(out, id)
		}
	}
	return out
}

// NormalizeStudentIDs drops blanks and duplicates while keeping first-seen order.
func NormalizeStudentIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// MarshalJSON adds the derived state to the wire shape.
func (s Session) MarshalJSON() ([]byte, error) {
	type plain Session
	return json.Marshal(struct {
		plain
		State         SessionState `json:"state"`
		PendingReport bool         `json:"pendingReport"`
	}{plain: plain(s), State: s.State(), PendingReport: s.PendingReport()})
}

// SessionFilter narrows session listings.
type SessionFilter struct {
	ProjectKey  string
	Date        string
	VolunteerID string
	From        string
	To          string
}
