package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func records(course, student string, statuses ...Status) []Attendance {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]Attendance, 0, len(statuses))
	for i, s := range statuses {
		out = append(out, NewAttendance(course, student, base.AddDate(0, 0, i), s))
	}
	return out
}

func TestAttendancePercentage(t *testing.T) {
	course := NewCourse("CS101", "Intro", "Ada", 10)
	course.ID = "c1"

	recs := records("c1", "s1",
		StatusPresent, StatusPresent, StatusPresent, StatusPresent,
		StatusAbsent, StatusAbsent, StatusAbsent,
		StatusExcused,
	)
	// other students and other courses must not leak in
	recs = append(recs, records("c1", "s2", StatusPresent, StatusPresent)...)
	recs = append(recs, records("c2", "s1", StatusPresent)...)

	assert.InDelta(t, 40.0, AttendancePercentage(course, "s1", recs), 1e-9)
	assert.InDelta(t, 20.0, AttendancePercentage(course, "s2", recs), 1e-9)

	course.TotalClasses = 0
	assert.Equal(t, 0.0, AttendancePercentage(course, "s1", recs))
	course.TotalClasses = -3
	assert.Equal(t, 0.0, AttendancePercentage(course, "s1", recs))
}

func TestSummarize(t *testing.T) {
	course := NewCourse("CS101", "Intro", "Ada", 10)
	course.ID = "c1"
	recs := records("c1", "s1", StatusPresent, StatusPresent, StatusAbsent, StatusExcused)

	s := Summarize(course, "s1", recs, DefaultThresholds())
	assert.Equal(t, 2, s.Present)
	assert.Equal(t, 1, s.Absent)
	assert.Equal(t, 1, s.Excused)
	assert.Equal(t, 10, s.TotalClasses)
	assert.InDelta(t, 20.0, s.Percentage, 1e-9)
	assert.Equal(t, StandingCritical, s.Standing)
}

func TestThresholdsClassify(t *testing.T) {
	th := DefaultThresholds()
	assert.Equal(t, StandingGood, th.Classify(75))
	assert.Equal(t, StandingGood, th.Classify(100))
	assert.Equal(t, StandingWarning, th.Classify(60))
	assert.Equal(t, StandingWarning, th.Classify(74.9))
	assert.Equal(t, StandingCritical, th.Classify(59.9))
}

func TestClassesToReachTarget(t *testing.T) {
	tests := []struct {
		name                    string
		attended, total, future int
		target                  float64
		want                    int
	}{
		{"already above", 9, 10, 0, 75, 0},
		{"needs some", 5, 10, 10, 75, 10},
		{"rounds up", 0, 3, 0, 50, 2},
		{"negative future ignored", 5, 10, -4, 75, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassesToReachTarget(tt.attended, tt.total, tt.future, tt.target))
		})
	}
}

func TestCourseEnrollmentIsASet(t *testing.T) {
	c := NewCourse("CS101", "Intro", "Ada", 10)
	assert.True(t, c.AddStudent("u1"))
	assert.False(t, c.AddStudent("u1"))
	assert.Equal(t, []string{"u1"}, c.StudentIDs)

	assert.True(t, c.RemoveStudent("u1"))
	assert.False(t, c.RemoveStudent("u1"))
	assert.Empty(t, c.StudentIDs)
}

func TestScheduleValidate(t *testing.T) {
	_, err := NewSchedule("c1", Monday, "09:00", "10:30", "A-101")
	require.NoError(t, err)

	_, err = NewSchedule("c1", Monday, "10:30", "09:00", "A-101")
	assert.Error(t, err)
	_, err = NewSchedule("c1", Monday, "10:00", "10:00", "A-101")
	assert.Error(t, err)
	_, err = NewSchedule("c1", Weekday("FUNDAY"), "09:00", "10:00", "A-101")
	assert.Error(t, err)
	_, err = NewSchedule("c1", Friday, "9am", "10:00", "A-101")
	assert.Error(t, err)
}

func TestParseStatusAndWeekday(t *testing.T) {
	s, err := ParseStatus("present")
	require.NoError(t, err)
	assert.Equal(t, StatusPresent, s)
	_, err = ParseStatus("late")
	assert.Error(t, err)

	d, err := ParseWeekday(" tuesday ")
	require.NoError(t, err)
	assert.Equal(t, Tuesday, d)
	assert.Equal(t, Wednesday, WeekdayOf(time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)))
}

func TestCalendarDay(t *testing.T) {
	in := time.Date(2024, 3, 5, 17, 45, 12, 99, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), CalendarDay(in))
}
