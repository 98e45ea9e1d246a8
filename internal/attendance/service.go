// Package attendance is the attendance ledger: one record per
// (course, student, date), written by an idempotent upsert, plus the
// percentage and summary queries derived from those records.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"attendtrack/internal/apperr"
	"attendtrack/internal/model"
	"attendtrack/internal/store"
)

// CourseCatalog resolves courses. Misses fail with a CourseNotFoundError,
// unknown students with a UserNotFoundError.
type CourseCatalog interface {
	GetCourseByID(ctx context.Context, id string) (model.Course, error)
	GetActiveCoursesForStudent(ctx context.Context, userID string) ([]model.Course, error)
}

// UserDirectory resolves users. Misses fail with a UserNotFoundError.
type UserDirectory interface {
	GetUserByID(ctx context.Context, id string) (model.User, error)
}

// SummaryCache stores computed summaries between marks.
type SummaryCache interface {
	Get(ctx context.Context, courseID, studentID string) (*model.Summary, error)
	Set(ctx context.Context, s model.Summary) error
	Invalidate(ctx context.Context, courseID, studentID string) error
}

// Observer is told about every successful mark.
type Observer interface {
	ObserveMark(status model.Status, created bool)
}

// Service records and queries attendance.
type Service struct {
	store      store.Store
	courses    CourseCatalog
	users      UserDirectory
	cache      SummaryCache
	observer   Observer
	thresholds model.Thresholds
	log        *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables summary caching.
func WithCache(c SummaryCache) Option { return func(s *Service) { s.cache = c } }

// WithObserver reports marks to o.
func WithObserver(o Observer) Option { return func(s *Service) { s.observer = o } }

// WithThresholds overrides the standing bands.
func WithThresholds(t model.Thresholds) Option { return func(s *Service) { s.thresholds = t } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.log = l } }

// NewService creates a ledger over st.
func NewService(st store.Store, courses CourseCatalog, users UserDirectory, opts ...Option) *Service {
	s := &Service{
		store:      st,
		courses:    courses,
		users:      users,
		thresholds: model.DefaultThresholds(),
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "attendance")
	return s
}

// maxMarkAttempts bounds retries after losing an insert race on the triple key.
const maxMarkAttempts = 3

// MarkAttendance sets the status for (courseID, userID, date), inserting the
// record on first mark and updating it in place afterwards. Dates compare
// exactly; callers that want one record per day must pass a canonical time.
func (s *Service) MarkAttendance(ctx context.Context, courseID, userID string, date time.Time, status model.Status) (model.Attendance, error) {
	if !status.Valid() {
		return model.Attendance{}, apperr.Invalid(fmt.Errorf("unknown attendance status %q", status))
	}
	if date.IsZero() {
		return model.Attendance{}, apperr.Invalid(errors.New("date required"))
	}
	course, err := s.courses.GetCourseByID(ctx, courseID)
	if err != nil {
		return model.Attendance{}, err
	}
	student, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return model.Attendance{}, err
	}

	var (
		rec     model.Attendance
		created bool
	)
	for attempt := 1; ; attempt++ {
		err = s.store.WithTx(ctx, func(tx store.Store) error {
			existing, err := tx.FindAttendanceByKey(ctx, course.ID, student.ID, date)
			if err != nil {
				return err
			}
			if existing != nil {
				existing.Status = status
				created = false
				rec, err = tx.SaveAttendance(ctx, *existing)
				return err
			}
			created = true
			rec, err = tx.SaveAttendance(ctx, model.NewAttendance(course.ID, student.ID, date, status))
			return err
		})
		if err == nil || !errors.Is(err, store.ErrDuplicate) || attempt == maxMarkAttempts {
			break
		}
		// a concurrent mark inserted the triple first; the next pass updates it
		s.log.DebugContext(ctx, "attendance insert raced, retrying", "course_id", course.ID, "student_id", student.ID, "attempt", attempt)
	}
	if err != nil {
		return model.Attendance{}, fmt.Errorf("mark attendance: %w", err)
	}

	s.invalidate(ctx, course.ID, student.ID)
	if s.observer != nil {
		s.observer.ObserveMark(status, created)
	}
	s.log.InfoContext(ctx, "attendance marked",
		"attendance_id", rec.ID, "course_id", course.ID, "student_id", student.ID,
		"date", date, "status", status, "created", created)
	return rec, nil
}

// GetAttendanceForCourse lists the student's records on the course.
func (s *Service) GetAttendanceForCourse(ctx context.Context, courseID, userID string) ([]model.Attendance, error) {
	course, student, err := s.resolve(ctx, courseID, userID)
	if err != nil {
		return nil, err
	}
	recs, err := s.store.FindAttendanceByCourseAndStudent(ctx, course.ID, student.ID)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return recs, nil
}

// GetAttendanceForDateRange lists the student's records across all courses
// with start <= date <= end.
func (s *Service) GetAttendanceForDateRange(ctx context.Context, userID string, start, end time.Time) ([]model.Attendance, error) {
	student, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, apperr.Invalid(fmt.Errorf("range end %s is before start %s", end.Format(time.RFC3339), start.Format(time.RFC3339)))
	}
	recs, err := s.store.FindAttendanceByStudentBetween(ctx, student.ID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list attendance in range: %w", err)
	}
	return recs, nil
}

// AttendancePercentage is PRESENT records over the course's total classes,
// times 100, or 0 when the course has no classes.
func (s *Service) AttendancePercentage(ctx context.Context, courseID, userID string) (float64, error) {
	course, recs, err := s.courseRecords(ctx, courseID, userID)
	if err != nil {
		return 0, err
	}
	return model.AttendancePercentage(course, userID, recs), nil
}

// IsMarked reports whether the student has any record on the course for the
// calendar day containing day.
func (s *Service) IsMarked(ctx context.Context, courseID, userID string, day time.Time) (bool, error) {
	_, recs, err := s.courseRecords(ctx, courseID, userID)
	if err != nil {
		return false, err
	}
	want := model.CalendarDay(day)
	for _, r := range recs {
		if model.CalendarDay(r.Date).Equal(want) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) resolve(ctx context.Context, courseID, userID string) (model.Course, model.User, error) {
	course, err := s.courses.GetCourseByID(ctx, courseID)
	if err != nil {
		return model.Course{}, model.User{}, err
	}
	student, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return model.Course{}, model.User{}, err
	}
	return course, student, nil
}

// courseRecords reads the course and the student's records on it in one
// transaction so totals and counts come from the same snapshot.
func (s *Service) courseRecords(ctx context.Context, courseID, userID string) (model.Course, []model.Attendance, error) {
	if _, _, err := s.resolve(ctx, courseID, userID); err != nil {
		return model.Course{}, nil, err
	}
	var (
		course model.Course
		recs   []model.Attendance
	)
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		c, err := tx.FindCourseByID(ctx, courseID)
		if err != nil {
			return err
		}
		if c == nil {
			return apperr.CourseNotFound(courseID)
		}
		course = *c
		recs, err = tx.FindAttendanceByCourseAndStudent(ctx, courseID, userID)
		return err
	})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return model.Course{}, nil, err
		}
		return model.Course{}, nil, fmt.Errorf("load course attendance: %w", err)
	}
	return course, recs, nil
}

func (s *Service) invalidate(ctx context.Context, courseID, studentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, courseID, studentID); err != nil {
		s.log.WarnContext(ctx, "summary cache invalidate failed", "course_id", courseID, "student_id", studentID, "error", err)
	}
}
