package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendtrack/internal/model"
)

func seed(t *testing.T, s *Memory) (model.User, model.Course) {
	t.Helper()
	ctx := context.Background()
	u, err := s.SaveUser(ctx, model.User{Username: "ada", RollNumber: "R1", PasswordHash: "h"})
	require.NoError(t, err)
	c, err := s.SaveCourse(ctx, model.NewCourse("CS101", "Intro", "Turing", 10))
	require.NoError(t, err)
	return u, c
}

func TestMemoryUserUniqueness(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	u, _ := seed(t, s)
	assert.NotEmpty(t, u.ID)

	_, err := s.SaveUser(ctx, model.User{Username: "ada", RollNumber: "R2"})
	assert.True(t, errors.Is(err, ErrDuplicate))
	_, err = s.SaveUser(ctx, model.User{Username: "bob", RollNumber: "R1"})
	assert.True(t, errors.Is(err, ErrDuplicate))

	ok, err := s.ExistsByUsername(ctx, "ada")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.ExistsByRollNumber(ctx, "R9")
	require.NoError(t, err)
	assert.False(t, ok)

	// updating a user keeps its own username without tripping the check
	u.Section = "B"
	_, err = s.SaveUser(ctx, u)
	require.NoError(t, err)

	got, err := s.FindUserByRollNumber(ctx, "R1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "B", got.Section)

	missing, err := s.FindUserByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryEnrollmentIsASet(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	u, c := seed(t, s)

	require.NoError(t, s.AddEnrollment(ctx, c.ID, u.ID))
	require.NoError(t, s.AddEnrollment(ctx, c.ID, u.ID))

	got, err := s.FindCourseByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{u.ID}, got.StudentIDs)

	courses, err := s.FindCoursesForStudent(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, courses, 1)

	c.TotalClasses = 0
	_, err = s.SaveCourse(ctx, c)
	require.NoError(t, err)
	active, err := s.FindActiveCoursesForStudent(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, s.RemoveEnrollment(ctx, c.ID, u.ID))
	courses, err = s.FindCoursesForStudent(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, courses)
}

func TestMemoryAttendanceTripleIsUnique(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	u, c := seed(t, s)
	day := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

	a, err := s.SaveAttendance(ctx, model.NewAttendance(c.ID, u.ID, day, model.StatusPresent))
	require.NoError(t, err)

	_, err = s.SaveAttendance(ctx, model.NewAttendance(c.ID, u.ID, day, model.StatusAbsent))
	assert.True(t, errors.Is(err, ErrDuplicate))

	// a different time of day is a different key
	_, err = s.SaveAttendance(ctx, model.NewAttendance(c.ID, u.ID, day.Add(time.Hour), model.StatusAbsent))
	require.NoError(t, err)

	a.Status = model.StatusExcused
	_, err = s.SaveAttendance(ctx, a)
	require.NoError(t, err)

	found, err := s.FindAttendanceByKey(ctx, c.ID, u.ID, day)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, a.ID, found.ID)
	assert.Equal(t, model.StatusExcused, found.Status)
}

func TestMemoryWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	u, c := seed(t, s)
	day := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx Store) error {
		if _, err := tx.SaveAttendance(ctx, model.NewAttendance(c.ID, u.ID, day, model.StatusPresent)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	recs, err := s.FindAttendanceByCourseAndStudent(ctx, c.ID, u.ID)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestMemoryDateRangeIsInclusive(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	u, c := seed(t, s)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)

	for _, d := range []time.Time{start.AddDate(0, 0, -1), start, start.AddDate(0, 0, 1), end, end.AddDate(0, 0, 1)} {
		_, err := s.SaveAttendance(ctx, model.NewAttendance(c.ID, u.ID, d, model.StatusPresent))
		require.NoError(t, err)
	}

	got, err := s.FindAttendanceByStudentBetween(ctx, u.ID, start, end)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].Date.Equal(start))
	assert.True(t, got[2].Date.Equal(end))
}

func TestMemoryDeleteByCourse(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	u, c := seed(t, s)

	sched, err := model.NewSchedule(c.ID, model.Monday, "09:00", "10:00", "A1")
	require.NoError(t, err)
	_, err = s.SaveSchedule(ctx, sched)
	require.NoError(t, err)
	_, err = s.SaveAttendance(ctx, model.NewAttendance(c.ID, u.ID, time.Now().UTC(), model.StatusPresent))
	require.NoError(t, err)

	require.NoError(t, s.DeleteAttendanceByCourse(ctx, c.ID))
	require.NoError(t, s.DeleteSchedulesByCourse(ctx, c.ID))
	require.NoError(t, s.DeleteCourse(ctx, c.ID))

	got, err := s.FindCourseByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	scheds, err := s.FindSchedulesByCourse(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, scheds)
}
