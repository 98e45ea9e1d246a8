package model

import "math"

// AttendancePercentage is PRESENT records for studentID on course, times 100,
// over course.TotalClasses. Records for other students or courses are
// ignored, and ABSENT and EXCUSED do not count as attended. A course with no
// scheduled classes yields 0.
func AttendancePercentage(course Course, studentID string, records []Attendance) float64 {
	if course.TotalClasses <= 0 {
		return 0
	}
	present := 0
	for _, r := range records {
		if r.CourseID == course.ID && r.StudentID == studentID && r.Status == StatusPresent {
			present++
		}
	}
	return float64(present) * 100 / float64(course.TotalClasses)
}

// Standing buckets a percentage against the configured thresholds.
type Standing string

const (
	StandingGood     Standing = "GOOD"
	StandingWarning  Standing = "WARNING"
	StandingCritical Standing = "CRITICAL"
)

// Thresholds are the lower bounds, in percent, of the GOOD and WARNING bands.
type Thresholds struct {
	Good    float64
	Warning float64
}

// DefaultThresholds matches the usual 75% attendance requirement.
func DefaultThresholds() Thresholds {
	return Thresholds{Good: 75, Warning: 60}
}

// Classify returns the standing for pct.
func (t Thresholds) Classify(pct float64) Standing {
	switch {
	case pct >= t.Good:
		return StandingGood
	case pct >= t.Warning:
		return StandingWarning
	default:
		return StandingCritical
	}
}

// Summary aggregates one student's records on one course.
type Summary struct {
	CourseID     string   `json:"course_id"`
	StudentID    string   `json:"student_id"`
	Present      int      `json:"present"`
	Absent       int      `json:"absent"`
	Excused      int      `json:"excused"`
	TotalClasses int      `json:"total_classes"`
	Percentage   float64  `json:"percentage"`
	Standing     Standing `json:"standing"`
}

// Summarize counts statuses for studentID on course and classifies the result.
func Summarize(course Course, studentID string, records []Attendance, th Thresholds) Summary {
	s := Summary{CourseID: course.ID, StudentID: studentID, TotalClasses: course.TotalClasses}
	for _, r := range records {
		if r.CourseID != course.ID || r.StudentID != studentID {
			continue
		}
		switch r.Status {
		case StatusPresent:
			s.Present++
		case StatusAbsent:
			s.Absent++
		case StatusExcused:
			s.Excused++
		}
	}
	s.Percentage = AttendancePercentage(course, studentID, records)
	s.Standing = th.Classify(s.Percentage)
	return s
}

// ClassesToReachTarget is how many of the future classes must be attended so
// that attended/(total+future) reaches target percent. It never goes below 0
// and may exceed future when the target is out of reach.
func ClassesToReachTarget(attended, total, future int, target float64) int {
	if future < 0 {
		future = 0
	}
	need := int(math.Ceil(target/100*float64(total+future))) - attended
	if need < 0 {
		return 0
	}
	return need
}
