package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sevaportal/portal-api/internal/dto"
	"github.com/sevaportal/portal-api/internal/models"
	"github.com/sevaportal/portal-api/internal/repository"
	appErrors "github.com/sevaportal/portal-api/pkg/errors"
	"github.com/sevaportal/portal-api/pkg/jobs"
)

type memSessionStore struct {
	sessions     []models.Session
	calls        int
	bulkErr      error
	listErr      error
	nextID       int
	lostRaces    int
	afterList    func()
	beforeUpdate func()
}

func (m *memSessionStore) ListByProjectDate(ctx context.Context, projectKey, date string) ([]models.Session, error) {
	m.calls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.Session
	for _, s := range m.sessions {
		if s.ProjectKey == projectKey && s.Date == date {
			out = append(out, s)
		}
	}
	if hook := m.afterList; hook != nil {
		m.afterList = nil
		hook()
	}
	return out, nil
}

func (m *memSessionStore) CountByProjectDate(ctx context.Context, projectKey, date string) (int, error) {
	m.calls++
	items, _ := m.ListByProjectDate(ctx, projectKey, date)
	m.calls--
	return len(items), nil
}

func (m *memSessionStore) FindByID(ctx context.Context, id string) (*models.Session, error) {
	m.calls++
	for _, s := range m.sessions {
		if s.ID == id {
			copied := s
			copied.StudentIDs = append([]string(nil), s.StudentIDs...)
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memSessionStore) FindByStudentOnDate(ctx context.Context, projectKey, date, studentID, excludeID string) (*models.Session, error) {
	m.calls++
	for _, s := range m.sessions {
		if s.ProjectKey == projectKey && s.Date == date && s.ID != excludeID && s.HasStudent(studentID) {
			copied := s
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memSessionStore) BulkCreate(ctx context.Context, sessions []models.Session) error {
	m.calls++
	if m.bulkErr != nil {
		return m.bulkErr
	}
	for i := range sessions {
		m.nextID++
		sessions[i].ID = fmt.Sprintf("s%d", m.nextID)
		sessions[i].Version = 1
		m.sessions = append(m.sessions, sessions[i])
	}
	return nil
}

func (m *memSessionStore) UpdateStudents(ctx context.Context, id string, studentIDs []string, expectedVersion int) (int, error) {
	m.calls++
	if hook := m.beforeUpdate; hook != nil {
		m.beforeUpdate = nil
		hook()
	}
	for i := range m.sessions {
		if m.sessions[i].ID != id {
			continue
		}
		for _, other := range m.sessions {
			if other.ID == id || other.ProjectKey != m.sessions[i].ProjectKey || other.Date != m.sessions[i].Date {
				continue
			}
			for _, st := range studentIDs {
				if other.HasStudent(st) {
					return 0, repository.ErrStudentConflict
				}
			}
		}
		if m.lostRaces > 0 {
			m.lostRaces--
			m.sessions[i].Version++
		}
		if m.sessions[i].Version != expectedVersion {
			return 0, repository.ErrVersionMismatch
		}
		m.sessions[i].StudentIDs = append([]string(nil), studentIDs...)
		m.sessions[i].Version++
		return m.sessions[i].Version, nil
	}
	return 0, repository.ErrVersionMismatch
}

type memAvailability struct {
	items []models.Availability
	calls int
}

func (m *memAvailability) ListByProjectDate(ctx context.Context, projectKey, date string) ([]models.Availability, error) {
	m.calls++
	var out []models.Availability
	for _, a := range m.items {
		if a.ProjectKey == projectKey && a.Date == date {
			out = append(out, a)
		}
	}
	return out, nil
}

type memStudents struct {
	students []models.Student
	sessions *memSessionStore
	calls    int
}

func (m *memStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	m.calls++
	for _, st := range m.students {
		if st.ID == id {
			copied := st
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memStudents) FindByIDs(ctx context.Context, ids []string) ([]models.Student, error) {
	m.calls++
	var out []models.Student
	for _, id := range ids {
		for _, st := range m.students {
			if st.ID == id {
				out = append(out, st)
			}
		}
	}
	return out, nil
}

func (m *memStudents) ListUnassigned(ctx context.Context, projectKey, date string) ([]models.Student, error) {
	m.calls++
	var out []models.Student
	for _, st := range m.students {
		if st.ProjectKey != projectKey {
			continue
		}
		held := false
		for _, s := range m.sessions.sessions {
			if s.ProjectKey == projectKey && s.Date == date && s.HasStudent(st.ID) {
				held = true
				break
			}
		}
		if !held {
			out = append(out, st)
		}
	}
	return out, nil
}

type memCache struct {
	entries map[string]any
	deleted []string
}

func (m *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	v, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*(dest.(*dto.ScheduleResponse)) = *(v.(*dto.ScheduleResponse))
	return nil
}

func (m *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.entries[key] = value
	return nil
}

func (m *memCache) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.entries, k)
	}
	m.deleted = append(m.deleted, keys...)
	return nil
}

type scheduleFixture struct {
	svc          *ScheduleService
	sessions     *memSessionStore
	availability *memAvailability
	students     *memStudents
	cache        *memCache
}

var fixedNow = time.Date(2026, 10, 15, 18, 30, 0, 0, time.UTC)

func newScheduleFixture() *scheduleFixture {
	sessions := &memSessionStore{}
	availability := &memAvailability{}
	students := &memStudents{sessions: sessions}
	cache := &memCache{entries: map[string]any{}}
	metrics := NewMetricsService()
	cacheSvc := NewCacheService(cache, metrics, time.Minute, zap.NewNop(), true)
	svc := NewScheduleService(sessions, availability, students, cacheSvc, metrics, validator.New(), zap.NewNop(), ScheduleConfig{})
	svc.now = func() time.Time { return fixedNow }
	return &scheduleFixture{svc: svc, sessions: sessions, availability: availability, students: students, cache: cache}
}

func (f *scheduleFixture) persistenceCalls() int {
	return f.sessions.calls + f.availability.calls + f.students.calls
}

var exe = models.UserInfo{ID: "e1", Role: models.RoleExe, ProjectKeys: []string{"alpha"}}

func TestCreateScheduleRejectsPastAndToday(t *testing.T) {
	f := newScheduleFixture()

	for _, date := range []string{"2026-10-14", "2026-10-15"} {
		_, err := f.svc.CreateSchedule(context.Background(), dto.CreateScheduleRequest{ProjectKey: "alpha", Date: date, Confirm: true})
		require.Error(t, err)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
		assert.Equal(t, "2026-10-16", appErr.Details["earliestDate"])
	}
	assert.Zero(t, f.persistenceCalls())
}

func TestCreateScheduleAcceptsTomorrow(t *testing.T) {
	f := newScheduleFixture()

	resp, err := f.svc.CreateSchedule(context.Background(), dto.CreateScheduleRequest{ProjectKey: "alpha", Date: "2026-10-16", Confirm: true})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.SessionsCreated)
}

func TestCreateScheduleRequiresConfirmation(t *testing.T) {
	f := newScheduleFixture()

	_, err := f.svc.CreateSchedule(context.Background(), dto.CreateScheduleRequest{ProjectKey: "alpha", Date: "2026-10-20"})
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	assert.Zero(t, f.persistenceCalls())
}

func TestCreateScheduleRejectsInvertedWindow(t *testing.T) {
	f := newScheduleFixture()

	_, err := f.svc.CreateSchedule(context.Background(), dto.CreateScheduleRequest{ProjectKey: "alpha", Date: "2026-10-20", StartTime: "17:00", EndTime: "16:00", Confirm: true})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Zero(t, f.persistenceCalls())
}

func TestCreateScheduleMatchesByGradeAndLoad(t *testing.T) {
	f := newScheduleFixture()
	f.availability.items = []models.Availability{
		{VolunteerID: "v1", ProjectKey: "alpha", Date: "2026-10-20", Grades: []int64{3, 4}},
		{VolunteerID: "v2", ProjectKey: "alpha", Date: "2026-10-20"},
		{VolunteerID: "v3", ProjectKey: "alpha", Date: "2026-10-20", Grades: []int64{12}},
	}
	f.students.students = []models.Student{
		{ID: "st1", Grade: 3, ProjectKey: "alpha"},
		{ID: "st2", Grade: 3, ProjectKey: "alpha"},
		{ID: "st3", Grade: 8, ProjectKey: "alpha"},
		{ID: "st4", Grade: 4, ProjectKey: "alpha"},
		{ID: "st5", Grade: 3, ProjectKey: "beta"},
	}

	resp, err := f.svc.CreateSchedule(context.Background(), dto.CreateScheduleRequest{ProjectKey: "alpha", Date: "2026-10-20", Confirm: true})
	require.NoError(t, err)

	assert.Equal(t, 3, resp.SessionsCreated)
	assert.Equal(t, 3, resp.VolunteersConsidered)
	assert.ElementsMatch(t, []string{"v1", "v2", "v3"}, resp.VolunteerIDs)
	assert.Equal(t, 4, resp.StudentsAssigned)
	assert.Equal(t, 0, resp.StudentsUnassigned)

	byVolunteer := map[string][]string{}
	for _, s := range f.sessions.sessions {
		byVolunteer[s.VolunteerID] = s.StudentIDs
		assert.Equal(t, "16:00", s.StartTime)
		assert.Equal(t, "17:00", s.EndTime)
	}
	assert.Equal(t, []string{"st1", "st4"}, byVolunteer["v1"])
	assert.Equal(t, []string{"st2", "st3"}, byVolunteer["v2"])
	assert.Empty(t, byVolunteer["v3"])
}

func TestCreateScheduleLeavesIneligibleStudentsUnassigned(t *testing.T) {
	f := newScheduleFixture()
	f.availability.items = []models.Availability{{VolunteerID: "v1", ProjectKey: "alpha", Date: "2026-10-20", Grades: []int64{3}}}
	f.students.students = []models.Student{{ID: "st1", Grade: 9, ProjectKey: "alpha"}}

	resp, err := f.svc.CreateSchedule(context.Background(), dto.CreateScheduleRequest{ProjectKey: "alpha", Date: "2026-10-20", Confirm: true})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.StudentsAssigned)
	assert.Equal(t, 1, resp.StudentsUnassigned)

	day, err := f.svc.GetSchedule(context.Background(), dto.ScheduleQuery{ProjectKey: "alpha", Date: "2026-10-20"})
	require.NoError(t, err)
	require.Len(t, day.UnassignedStudents, 1)
	assert.Equal(t, "st1", day.UnassignedStudents[0].ID)
}

func TestCreateScheduleTwiceDuplicatesSessions(t *testing.T) {
	f := newScheduleFixture()
	f.availability.items = []models.Availability{
		{VolunteerID: "v1", ProjectKey: "alpha", Date: "2026-10-20"},
		{VolunteerID: "v2", ProjectKey: "alpha", Date: "2026-10-20"},
	}
	req := dto.CreateScheduleRequest{ProjectKey: "alpha", Date: "2026-10-20", Confirm: true}

	first, err := f.svc.CreateSchedule(context.Background(), req)
	require.NoError(t, err)
	second, err := f.svc.CreateSchedule(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 2, first.SessionsCreated)
	assert.Equal(t, 2, second.SessionsCreated)
	assert.Equal(t, 2, second.ExistingSessions)
	assert.Len(t, f.sessions.sessions, 4)
}

func TestCreateSchedulePersistFailure(t *testing.T) {
	f := newScheduleFixture()
	f.availability.items = []models.Availability{{VolunteerID: "v1", ProjectKey: "alpha", Date: "2026-10-20"}}
	f.sessions.bulkErr = errors.New("tx aborted")

	_, err := f.svc.CreateSchedule(context.Background(), dto.CreateScheduleRequest{ProjectKey: "alpha", Date: "2026-10-20", Confirm: true})
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.sessions.sessions)
}

func TestGetScheduleUsesCacheUntilMutation(t *testing.T) {
	f := newScheduleFixture()
	f.sessions.sessions = []models.Session{{ID: "s1", ProjectKey: "alpha", Date: "2026-10-20", VolunteerID: "v1", StudentIDs: []string{}, Version: 1}}
	f.students.students = []models.Student{{ID: "st1", Name: "Ana", Grade: 3, ProjectKey: "alpha"}}
	q := dto.ScheduleQuery{ProjectKey: "alpha", Date: "2026-10-20"}

	first, err := f.svc.GetSchedule(context.Background(), q)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	loads := f.sessions.calls

	second, err := f.svc.GetSchedule(context.Background(), q)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, loads, f.sessions.calls)

	_, err = f.svc.AddStudent(context.Background(), exe, "s1", dto.MembershipRequest{StudentID: "st1", Version: 1})
	require.NoError(t, err)
	assert.Contains(t, f.cache.deleted, "schedule:alpha:2026-10-20")

	day, err := f.svc.GetSchedule(context.Background(), q)
	require.NoError(t, err)
	assert.Empty(t, day.UnassignedStudents)
	assert.Equal(t, []string{"st1"}, []string(day.Sessions[0].StudentIDs))
}

func TestGetScheduleDoesNotCacheLoadRacingAnEdit(t *testing.T) {
	f := membershipFixture()
	ctx := context.Background()
	q := dto.ScheduleQuery{ProjectKey: "alpha", Date: "2026-10-20"}
	f.sessions.afterList = func() {
		_, err := f.svc.AddStudent(ctx, exe, "s1", dto.MembershipRequest{StudentID: "st3", Version: 1})
		require.NoError(t, err)
	}

	raced, err := f.svc.GetSchedule(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 1, raced.Sessions[0].Version)
	assert.NotContains(t, f.cache.entries, "schedule:alpha:2026-10-20")

	reloaded, err := f.svc.GetSchedule(ctx, q)
	require.NoError(t, err)
	assert.False(t, reloaded.Cached)
	assert.Equal(t, 2, reloaded.Sessions[0].Version)
	assert.Equal(t, []string{"st1", "st2", "st3"}, []string(reloaded.Sessions[0].StudentIDs))

	_, err = f.svc.RemoveStudent(ctx, exe, "s1", dto.MembershipRequest{StudentID: "st3", Version: reloaded.Sessions[0].Version})
	require.NoError(t, err)
}

func TestWarmSnapshotReplacesStaleEntry(t *testing.T) {
	f := membershipFixture()
	key := "schedule:alpha:2026-10-20"
	f.cache.entries[key] = &dto.ScheduleResponse{ProjectKey: "alpha", Date: "2026-10-20", Sessions: []models.Session{{ID: "s1", Version: 0}}}

	err := f.svc.WarmSnapshot(context.Background(), jobs.Job{Key: key, Type: WarmJobType, Payload: dto.ScheduleQuery{ProjectKey: "alpha", Date: "2026-10-20"}})
	require.NoError(t, err)

	warmed := f.cache.entries[key].(*dto.ScheduleResponse)
	require.Len(t, warmed.Sessions, 2)
	assert.Equal(t, 1, warmed.Sessions[0].Version)
}

func TestStaleVersionDropsCachedDay(t *testing.T) {
	f := membershipFixture()
	key := "schedule:alpha:2026-10-20"
	f.cache.entries[key] = &dto.ScheduleResponse{ProjectKey: "alpha", Date: "2026-10-20"}

	_, err := f.svc.AddStudent(context.Background(), exe, "s1", dto.MembershipRequest{StudentID: "st3", Version: 7})
	assert.True(t, errors.Is(err, appErrors.ErrStaleVersion))
	assert.NotContains(t, f.cache.entries, key)
}

func TestGetScheduleLoadFailure(t *testing.T) {
	f := newScheduleFixture()
	f.sessions.listErr = errors.New("timeout")

	_, err := f.svc.GetSchedule(context.Background(), dto.ScheduleQuery{ProjectKey: "alpha", Date: "2026-10-20"})
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func membershipFixture() *scheduleFixture {
	f := newScheduleFixture()
	f.sessions.sessions = []models.Session{
		{ID: "s1", ProjectKey: "alpha", Date: "2026-10-20", VolunteerID: "v1", StudentIDs: []string{"st1", "st2"}, Version: 1},
		{ID: "s2", ProjectKey: "alpha", Date: "2026-10-20", VolunteerID: "v2", StudentIDs: []string{"st4"}, Version: 1},
	}
	f.students.students = []models.Student{
		{ID: "st1", Name: "A", Grade: 3, ProjectKey: "alpha"},
		{ID: "st2", Name: "B", Grade: 3, ProjectKey: "alpha"},
		{ID: "st3", Name: "C", Grade: 3, ProjectKey: "alpha"},
		{ID: "st4", Name: "D", Grade: 3, ProjectKey: "alpha"},
		{ID: "st9", Name: "Z", Grade: 3, ProjectKey: "beta"},
	}
	return f
}

func TestAddThenRemoveRestoresSet(t *testing.T) {
	f := membershipFixture()
	ctx := context.Background()

	added, err := f.svc.AddStudent(ctx, exe, "s1", dto.MembershipRequest{StudentID: "st3", Version: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"st1", "st2", "st3"}, []string(added.StudentIDs))
	assert.Equal(t, 2, added.Version)

	removed, err := f.svc.RemoveStudent(ctx, exe, "s1", dto.MembershipRequest{StudentID: "st3", Version: added.Version})
	require.NoError(t, err)
	assert.Equal(t, []string{"st1", "st2"}, []string(removed.StudentIDs))
	assert.Equal(t, 3, removed.Version)
}

func TestAddExistingMemberIsNoop(t *testing.T) {
	f := membershipFixture()

	session, err := f.svc.AddStudent(context.Background(), exe, "s1", dto.MembershipRequest{StudentID: "st1", Version: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, session.Version)
	assert.Equal(t, []string{"st1", "st2"}, []string(session.StudentIDs))
}

func TestRemoveNonMemberIsNoop(t *testing.T) {
	f := membershipFixture()

	session, err := f.svc.RemoveStudent(context.Background(), exe, "s1", dto.MembershipRequest{StudentID: "st3", Version: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, session.Version)
}

func TestAddRejectsStaleVersion(t *testing.T) {
	f := membershipFixture()
	ctx := context.Background()

	_, err := f.svc.AddStudent(ctx, exe, "s1", dto.MembershipRequest{StudentID: "st3", Version: 1})
	require.NoError(t, err)

	_, err = f.svc.RemoveStudent(ctx, exe, "s1", dto.MembershipRequest{StudentID: "st1", Version: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrStaleVersion))
	assert.Equal(t, []string{"st1", "st2", "st3"}, []string(f.sessions.sessions[0].StudentIDs))
}

func TestAddLosesRaceAtWrite(t *testing.T) {
	f := membershipFixture()
	f.sessions.lostRaces = 1

	_, err := f.svc.AddStudent(context.Background(), exe, "s1", dto.MembershipRequest{StudentID: "st3", Version: 1})
	assert.True(t, errors.Is(err, appErrors.ErrStaleVersion))
	assert.Equal(t, []string{"st1", "st2"}, []string(f.sessions.sessions[0].StudentIDs))
}

func TestAddRejectsDoubleBooking(t *testing.T) {
	f := membershipFixture()

	_, err := f.svc.AddStudent(context.Background(), exe, "s1", dto.MembershipRequest{StudentID: "st4", Version: 1})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "s2", appErr.Details["sessionId"])
}

func TestAddLosesDoubleBookingRaceAtWrite(t *testing.T) {
	f := membershipFixture()
	f.sessions.beforeUpdate = func() {
		f.sessions.sessions[1].StudentIDs = []string{"st4", "st3"}
		f.sessions.sessions[1].Version++
	}

	_, err := f.svc.AddStudent(context.Background(), exe, "s1", dto.MembershipRequest{StudentID: "st3", Version: 1})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "s1", appErr.Details["sessionId"])
	assert.Equal(t, []string{"st1", "st2"}, []string(f.sessions.sessions[0].StudentIDs))
	assert.Equal(t, 1, f.sessions.sessions[0].Version)
}

func TestAddRejectsForeignProjectStudent(t *testing.T) {
	f := membershipFixture()

	_, err := f.svc.AddStudent(context.Background(), exe, "s1", dto.MembershipRequest{StudentID: "st9", Version: 1})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.svc.AddStudent(context.Background(), exe, "s1", dto.MembershipRequest{StudentID: "ghost", Version: 1})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestMembershipRequiresProjectAccess(t *testing.T) {
	f := membershipFixture()
	outsider := models.UserInfo{ID: "e2", Role: models.RoleExe, ProjectKeys: []string{"beta"}}

	_, err := f.svc.AddStudent(context.Background(), outsider, "s1", dto.MembershipRequest{StudentID: "st3", Version: 1})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = f.svc.AddStudent(context.Background(), exe, "missing", dto.MembershipRequest{StudentID: "st3", Version: 1})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReplaceStudents(t *testing.T) {
	f := membershipFixture()

	session, err := f.svc.ReplaceStudents(context.Background(), exe, "s1", dto.ReplaceStudentsRequest{StudentIDs: []string{"st3", "st1", "st3"}, Version: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"st3", "st1"}, []string(session.StudentIDs))

	_, err = f.svc.ReplaceStudents(context.Background(), exe, "s1", dto.ReplaceStudentsRequest{StudentIDs: []string{"st4"}, Version: session.Version})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestListAvailability(t *testing.T) {
	f := newScheduleFixture()
	f.availability.items = []models.Availability{{ID: "a1", VolunteerID: "v1", ProjectKey: "alpha", Date: "2026-10-20"}}

	items, err := f.svc.ListAvailability(context.Background(), dto.ScheduleQuery{ProjectKey: "alpha", Date: "2026-10-20"})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	empty, err := f.svc.ListAvailability(context.Background(), dto.ScheduleQuery{ProjectKey: "alpha", Date: "2026-10-21"})
	require.NoError(t, err)
	assert.NotNil(t, empty)

	_, err = f.svc.ListAvailability(context.Background(), dto.ScheduleQuery{ProjectKey: "alpha", Date: "20-10-2026"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

type recordingQueue struct{ jobs []jobs.Job }

func (q *recordingQueue) Enqueue(job jobs.Job) (bool, error) {
	q.jobs = append(q.jobs, job)
	return true, nil
}

func TestInvalidateQueuesSnapshotWarm(t *testing.T) {
	f := membershipFixture()
	queue := &recordingQueue{}
	f.svc.UseWarmer(queue)

	_, err := f.svc.AddStudent(context.Background(), exe, "s1", dto.MembershipRequest{StudentID: "st3", Version: 1})
	require.NoError(t, err)

	require.Len(t, queue.jobs, 1)
	job := queue.jobs[0]
	assert.Equal(t, WarmJobType, job.Type)
	assert.Equal(t, "schedule:alpha:2026-10-20", job.Key)

	require.NoError(t, f.svc.WarmSnapshot(context.Background(), job))
	assert.Contains(t, f.cache.entries, "schedule:alpha:2026-10-20")
	assert.Error(t, f.svc.WarmSnapshot(context.Background(), jobs.Job{Type: WarmJobType, Payload: "alpha"}))
}
