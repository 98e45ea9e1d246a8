package attendance

import (
	"context"
	"fmt"

	"attendtrack/internal/apperr"
	"attendtrack/internal/model"
)

// Summary returns counts, percentage and standing for the student on the
// course, served from the cache when one is configured. A cached entry
// computed against a different class total is recomputed.
func (s *Service) Summary(ctx context.Context, courseID, userID string) (model.Summary, error) {
	if s.cache != nil {
		course, _, err := s.resolve(ctx, courseID, userID)
		if err != nil {
			return model.Summary{}, err
		}
		cached, err := s.cache.Get(ctx, courseID, userID)
		switch {
		case err != nil:
			s.log.WarnContext(ctx, "summary cache read failed", "course_id", courseID, "student_id", userID, "error", err)
		case cached != nil && cached.TotalClasses == course.TotalClasses:
			return *cached, nil
		case cached != nil:
			s.log.DebugContext(ctx, "stale summary after course change", "course_id", courseID, "student_id", userID)
		}
	}
	return s.Refresh(ctx, courseID, userID)
}

// Refresh recomputes the summary from the store and, when caching, stores it.
func (s *Service) Refresh(ctx context.Context, courseID, userID string) (model.Summary, error) {
	course, recs, err := s.courseRecords(ctx, courseID, userID)
	if err != nil {
		return model.Summary{}, err
	}
	sum := model.Summarize(course, userID, recs, s.thresholds)
	if s.cache != nil {
		if err := s.cache.Set(ctx, sum); err != nil {
			s.log.WarnContext(ctx, "summary cache write failed", "course_id", courseID, "student_id", userID, "error", err)
		}
	}
	return sum, nil
}

// Overview summarizes every active course the student is enrolled in.
func (s *Service) Overview(ctx context.Context, userID string) ([]model.Summary, error) {
	courses, err := s.courses.GetActiveCoursesForStudent(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]model.Summary, 0, len(courses))
	for _, c := range courses {
		sum, err := s.Summary(ctx, c.ID, userID)
		if err != nil {
			return nil, fmt.Errorf("summarize course %s: %w", c.ID, err)
		}
		out = append(out, sum)
	}
	return out, nil
}

// Projection is the answer to "how many more classes must I attend".
type Projection struct {
	CourseID      string  `json:"course_id"`
	StudentID     string  `json:"student_id"`
	Attended      int     `json:"attended"`
	TotalClasses  int     `json:"total_classes"`
	FutureClasses int     `json:"future_classes"`
	Target        float64 `json:"target"`
	Needed        int     `json:"needed"`
	Reachable     bool    `json:"reachable"`
}

// ClassesToReachTarget projects how many of future upcoming classes the
// student must attend to reach target percent overall.
func (s *Service) ClassesToReachTarget(ctx context.Context, courseID, userID string, target float64, future int) (Projection, error) {
	if target < 0 || target > 100 {
		return Projection{}, apperr.Invalid(fmt.Errorf("target %.1f must be between 0 and 100", target))
	}
	sum, err := s.Summary(ctx, courseID, userID)
	if err != nil {
		return Projection{}, err
	}
	if future < 0 {
		future = 0
	}
	needed := model.ClassesToReachTarget(sum.Present, sum.TotalClasses, future, target)
	return Projection{
		CourseID:      courseID,
		StudentID:     userID,
		Attended:      sum.Present,
		TotalClasses:  sum.TotalClasses,
		FutureClasses: future,
		Target:        target,
		Needed:        needed,
		Reachable:     needed <= future,
	}, nil
}
