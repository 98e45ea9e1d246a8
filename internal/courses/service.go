// Package courses is the course catalog: course records, enrollment and
// weekly schedules.
package courses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"attendtrack/internal/apperr"
	"attendtrack/internal/model"
	"attendtrack/internal/store"
)

// UserResolver resolves a user id or fails with a UserNotFoundError.
type UserResolver interface {
	GetUserByID(ctx context.Context, id string) (model.User, error)
}

// Patch carries the fields UpdateCourse may overwrite.
type Patch struct {
	Code         string
	Name         string
	Instructor   string
	TotalClasses int
}

// Service owns course and enrollment rules.
type Service struct {
	store store.Store
	users UserResolver
	log   *slog.Logger
}

// NewService creates a course service.
func NewService(st store.Store, users UserResolver, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: st, users: users, log: log.With("component", "courses")}
}

// CreateCourse stores c as given; code and name need not be unique.
func (s *Service) CreateCourse(ctx context.Context, c model.Course) (model.Course, error) {
	if err := c.Validate(); err != nil {
		return model.Course{}, apperr.Invalid(err)
	}
	c.ID = ""
	created, err := s.store.SaveCourse(ctx, c)
	if err != nil {
		return model.Course{}, fmt.Errorf("save course: %w", err)
	}
	s.log.InfoContext(ctx, "course created", "course_id", created.ID, "code", created.Code)
	return created, nil
}

// GetCourseByID fails with a CourseNotFoundError when id is unknown.
func (s *Service) GetCourseByID(ctx context.Context, id string) (model.Course, error) {
	c, err := s.store.FindCourseByID(ctx, id)
	if err != nil {
		return model.Course{}, fmt.Errorf("find course %s: %w", id, err)
	}
	if c == nil {
		return model.Course{}, apperr.CourseNotFound(id)
	}
	return *c, nil
}

// GetCoursesForStudent lists every course whose enrollment contains userID.
func (s *Service) GetCoursesForStudent(ctx context.Context, userID string) ([]model.Course, error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	courses, err := s.store.FindCoursesForStudent(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list courses for %s: %w", userID, err)
	}
	return courses, nil
}

// GetActiveCoursesForStudent is GetCoursesForStudent limited to courses with
// at least one scheduled class.
func (s *Service) GetActiveCoursesForStudent(ctx context.Context, userID string) ([]model.Course, error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	courses, err := s.store.FindActiveCoursesForStudent(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list active courses for %s: %w", userID, err)
	}
	return courses, nil
}

// EnrollStudent adds userID to the course. Enrolling twice is a no-op.
func (s *Service) EnrollStudent(ctx context.Context, courseID, userID string) (model.Course, error) {
	if _, err := s.GetCourseByID(ctx, courseID); err != nil {
		return model.Course{}, err
	}
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return model.Course{}, err
	}
	if err := s.store.AddEnrollment(ctx, courseID, userID); err != nil {
		return model.Course{}, fmt.Errorf("enroll %s in %s: %w", userID, courseID, err)
	}
	return s.GetCourseByID(ctx, courseID)
}

// UnenrollStudent removes userID from the course. Removing a non-member is a no-op.
func (s *Service) UnenrollStudent(ctx context.Context, courseID, userID string) (model.Course, error) {
	if _, err := s.GetCourseByID(ctx, courseID); err != nil {
		return model.Course{}, err
	}
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return model.Course{}, err
	}
	if err := s.store.RemoveEnrollment(ctx, courseID, userID); err != nil {
		return model.Course{}, fmt.Errorf("unenroll %s from %s: %w", userID, courseID, err)
	}
	return s.GetCourseByID(ctx, courseID)
}

// UpdateCourse overwrites code, name, instructor and total classes only.
func (s *Service) UpdateCourse(ctx context.Context, id string, p Patch) (model.Course, error) {
	c, err := s.GetCourseByID(ctx, id)
	if err != nil {
		return model.Course{}, err
	}
	c.Code = p.Code
	c.Name = p.Name
	c.Instructor = p.Instructor
	c.TotalClasses = p.TotalClasses
	if err := c.Validate(); err != nil {
		return model.Course{}, apperr.Invalid(err)
	}
	saved, err := s.store.SaveCourse(ctx, c)
	if err != nil {
		return model.Course{}, fmt.Errorf("save course: %w", err)
	}
	return saved, nil
}

// DeleteCourse removes the course together with its attendance records,
// schedules and enrollment, all in one transaction.
func (s *Service) DeleteCourse(ctx context.Context, id string) error {
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		c, err := tx.FindCourseByID(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return apperr.CourseNotFound(id)
		}
		if err := tx.DeleteAttendanceByCourse(ctx, id); err != nil {
			return fmt.Errorf("delete attendance: %w", err)
		}
		if err := tx.DeleteSchedulesByCourse(ctx, id); err != nil {
			return fmt.Errorf("delete schedules: %w", err)
		}
		return tx.DeleteCourse(ctx, id)
	})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete course %s: %w", id, err)
	}
	s.log.InfoContext(ctx, "course deleted", "course_id", id)
	return nil
}
