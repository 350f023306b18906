package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	s := &Session{ID: "s1"}
	assert.Equal(t, SessionScheduled, s.State())

	assert.ErrorIs(t, s.CheckOut(time.Now()), ErrNotCheckedIn)
	assert.ErrorIs(t, s.FileReport("notes"), ErrNotCheckedOut)

	t1 := time.Date(2026, 10, 20, 16, 0, 0, 0, time.UTC)
	require.NoError(t, s.CheckIn(t1))
	assert.Equal(t, SessionCheckedIn, s.State())
	assert.ErrorIs(t, s.CheckIn(t1.Add(time.Minute)), ErrAlreadyCheckedIn)

	assert.ErrorIs(t, s.CheckOut(t1), ErrCheckOutBeforeIn)
	require.NoError(t, s.CheckOut(t1.Add(time.Hour)))
	assert.Equal(t, SessionCheckedOut, s.State())
	assert.True(t, s.PendingReport())
	assert.True(t, s.Completed())
	assert.ErrorIs(t, s.CheckOut(t1.Add(2*time.Hour)), ErrAlreadyCheckedOut)

	require.NoError(t, s.FileReport("covered fractions"))
	assert.Equal(t, SessionReported, s.State())
	assert.False(t, s.PendingReport())
	assert.ErrorIs(t, s.FileReport("again"), ErrReportAlreadyFiled)
}

func TestReportFlagWithoutCheckoutStaysCheckedIn(t *testing.T) {
	now := time.Now()
	s := &Session{CheckInAt: &now, ReportSubmitted: true}
	assert.Equal(t, SessionCheckedIn, s.State())
	assert.False(t, s.Completed())
}

func TestAddThenRemoveRestoresMembership(t *testing.T) {
	s := &Session{StudentIDs: []string{"a", "b"}}
	before := append([]string(nil), s.StudentIDs...)

	s.StudentIDs = s.WithStudent("c")
	assert.Equal(t, []string{"a", "b", "c"}, []string(s.StudentIDs))

	s.StudentIDs = s.WithStudent("c")
	assert.Equal(t, []string{"a", "b", "c"}, []string(s.StudentIDs))

	s.StudentIDs = s.WithoutStudent("c")
	assert.Equal(t, before, []string(s.StudentIDs))
}

func TestNormalizeStudentIDs(t *testing.T) {
	assert.Equal(t, []string{"b", "a"}, NormalizeStudentIDs([]string{"b", "", "a", "b"}))
	assert.Empty(t, NormalizeStudentIDs(nil))
}

func TestSessionJSONCarriesDerivedState(t *testing.T) {
	now := time.Now()
	raw, err := json.Marshal(Session{ID: "s1", CheckInAt: &now, CheckOutAt: &now, StudentIDs: []string{"a"}})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "checked_out", decoded["state"])
	assert.Equal(t, true, decoded["pendingReport"])
	assert.Equal(t, "s1", decoded["id"])
	assert.Equal(t, []any{"a"}, decoded["studentIds"])
}
