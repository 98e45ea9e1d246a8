package courses

import (
	"context"
	"fmt"

	"attendtrack/internal/apperr"
	"attendtrack/internal/model"
)

// AddSchedule attaches a weekly slot to a course. The start must be before
// the end; overlapping rooms are allowed.
func (s *Service) AddSchedule(ctx context.Context, courseID string, day model.Weekday, start, end, room string) (model.Schedule, error) {
	if _, err := s.GetCourseByID(ctx, courseID); err != nil {
		return model.Schedule{}, err
	}
	sched, err := model.NewSchedule(courseID, day, start, end, room)
	if err != nil {
		return model.Schedule{}, apperr.Invalid(err)
	}
	saved, err := s.store.SaveSchedule(ctx, sched)
	if err != nil {
		return model.Schedule{}, fmt.Errorf("save schedule: %w", err)
	}
	return saved, nil
}

// ListSchedules returns every slot of the course.
func (s *Service) ListSchedules(ctx context.Context, courseID string) ([]model.Schedule, error) {
	if _, err := s.GetCourseByID(ctx, courseID); err != nil {
		return nil, err
	}
	scheds, err := s.store.FindSchedulesByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return scheds, nil
}

// SchedulesForDay returns the slots of the course that meet on day.
func (s *Service) SchedulesForDay(ctx context.Context, courseID string, day model.Weekday) ([]model.Schedule, error) {
	all, err := s.ListSchedules(ctx, courseID)
	if err != nil {
		return nil, err
	}
	var out []model.Schedule
	for _, sc := range all {
		if sc.Day == day {
			out = append(out, sc)
		}
	}
	return out, nil
}

// RemoveSchedule deletes one slot.
func (s *Service) RemoveSchedule(ctx context.Context, id string) error {
	sc, err := s.store.FindScheduleByID(ctx, id)
	if err != nil {
		return fmt.Errorf("find schedule %s: %w", id, err)
	}
	if sc == nil {
		return fmt.Errorf("schedule %s: %w", id, apperr.ErrNotFound)
	}
	if err := s.store.DeleteSchedule(ctx, id); err != nil {
		return fmt.Errorf("delete schedule %s: %w", id, err)
	}
	return nil
}
