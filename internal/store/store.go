// Package store is the persistence contract for users, courses, schedules
// and attendance, with a Postgres and an in-memory implementation.
//
// Finders that look up a single entity return (nil, nil) when nothing
// matches; callers decide what a miss means.
package store

import (
	"context"
	"errors"
	"time"

	"attendtrack/internal/model"
)

// ErrDuplicate is returned when a write would violate a unique key:
// users.username, users.roll_number or attendance(course, student, date).
var ErrDuplicate = errors.New("store: duplicate key")

// UserStore persists users.
type UserStore interface {
	FindUserByID(ctx context.Context, id string) (*model.User, error)
	FindUserByUsername(ctx context.Context, username string) (*model.User, error)
	FindUserByRollNumber(ctx context.Context, rollNumber string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByRollNumber(ctx context.Context, rollNumber string) (bool, error)
	// SaveUser inserts when u.ID is empty, otherwise updates the row with that id.
	SaveUser(ctx context.Context, u model.User) (model.User, error)
}

// CourseStore persists courses and their enrollment set. SaveCourse never
// touches enrollment; reads always fill Course.StudentIDs.
type CourseStore interface {
	FindCourseByID(ctx context.Context, id string) (*model.Course, error)
	SaveCourse(ctx context.Context, c model.Course) (model.Course, error)
	DeleteCourse(ctx context.Context, id string) error
	// AddEnrollment is a no-op when the pair already exists.
	AddEnrollment(ctx context.Context, courseID, userID string) error
	RemoveEnrollment(ctx context.Context, courseID, userID string) error
	FindCoursesForStudent(ctx context.Context, userID string) ([]model.Course, error)
	// FindActiveCoursesForStudent is FindCoursesForStudent limited to total_classes > 0.
	FindActiveCoursesForStudent(ctx context.Context, userID string) ([]model.Course, error)
}

// ScheduleStore persists weekly course slots.
type ScheduleStore interface {
	FindScheduleByID(ctx context.Context, id string) (*model.Schedule, error)
	FindSchedulesByCourse(ctx context.Context, courseID string) ([]model.Schedule, error)
	SaveSchedule(ctx context.Context, s model.Schedule) (model.Schedule, error)
	DeleteSchedule(ctx context.Context, id string) error
	DeleteSchedulesByCourse(ctx context.Context, courseID string) error
}

// AttendanceStore persists attendance records.
type AttendanceStore interface {
	// SaveAttendance inserts when a.ID is empty and fails with ErrDuplicate if
	// the (course, student, date) triple is taken; otherwise it updates by id.
	SaveAttendance(ctx context.Context, a model.Attendance) (model.Attendance, error)
	FindAttendanceByCourseAndStudent(ctx context.Context, courseID, studentID string) ([]model.Attendance, error)
	// FindAttendanceByKey matches the date exactly.
	FindAttendanceByKey(ctx context.Context, courseID, studentID string, date time.Time) (*model.Attendance, error)
	// FindAttendanceByStudentBetween returns records with start <= date <= end across all courses.
	FindAttendanceByStudentBetween(ctx context.Context, studentID string, start, end time.Time) ([]model.Attendance, error)
	DeleteAttendanceByCourse(ctx context.Context, courseID string) error
}

// Store is the full contract. WithTx runs fn against a transactional view;
// if fn returns an error every write it made is rolled back.
type Store interface {
	UserStore
	CourseStore
	ScheduleStore
	AttendanceStore
	WithTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}
