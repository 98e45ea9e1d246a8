// Package model holds the attendance domain entities and the derived
// attendance math. Entities reference each other by id only; loading a
// related entity is always an explicit store call.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Status is the outcome recorded for one student on one class date.
type Status string

const (
	StatusPresent Status = "PRESENT"
	StatusAbsent  Status = "ABSENT"
	StatusExcused Status = "EXCUSED"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusExcused:
		return true
	default:
		return false
	}
}

// ParseStatus accepts the canonical names case-insensitively.
func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown attendance status %q", v)
	}
	return s, nil
}

// Weekday is the day a schedule entry repeats on.
type Weekday string

const (
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
	Friday    Weekday = "FRIDAY"
	Saturday  Weekday = "SATURDAY"
	Sunday    Weekday = "SUNDAY"
)

var weekdays = map[Weekday]time.Weekday{
	Monday:    time.Monday,
	Tuesday:   time.Tuesday,
	Wednesday: time.Wednesday,
	Thursday:  time.Thursday,
	Friday:    time.Friday,
	Saturday:  time.Saturday,
	Sunday:    time.Sunday,
}

// Valid reports whether d is one of MONDAY..SUNDAY.
func (d Weekday) Valid() bool {
	_, ok := weekdays[d]
	return ok
}

// ParseWeekday accepts the canonical names case-insensitively.
func ParseWeekday(v string) (Weekday, error) {
	d := Weekday(strings.ToUpper(strings.TrimSpace(v)))
	if !d.Valid() {
		return "", fmt.Errorf("unknown weekday %q", v)
	}
	return d, nil
}

// WeekdayOf returns the Weekday a calendar time falls on.
func WeekdayOf(t time.Time) Weekday {
	for d, wd := range weekdays {
		if wd == t.Weekday() {
			return d
		}
	}
	return ""
}

// User is a student account. PasswordHash never holds a plaintext credential.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	RollNumber   string    `json:"roll_number"`
	PasswordHash string    `json:"-"`
	Year         int       `json:"year"`
	Program      string    `json:"program"`
	Section      string    `json:"section"`
	CreatedAt    time.Time `json:"created_at"`
}

// Course is a class offering. StudentIDs is the enrollment set; it never
// contains the same id twice.
type Course struct {
	ID           string    `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Instructor   string    `json:"instructor"`
	TotalClasses int       `json:"total_classes"`
	StudentIDs   []string  `json:"student_ids"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewCourse builds a course with no enrollment.
func NewCourse(code, name, instructor string, totalClasses int) Course {
	return Course{Code: code, Name: name, Instructor: instructor, TotalClasses: totalClasses}
}

// Validate checks the fields a caller may set.
func (c Course) Validate() error {
	if c.TotalClasses < 0 {
		return fmt.Errorf("total classes must not be negative, got %d", c.TotalClasses)
	}
	return nil
}

// HasStudent reports whether userID is in the enrollment set.
func (c Course) HasStudent(userID string) bool {
	for _, id := range c.StudentIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// AddStudent adds userID to the enrollment set and reports whether it was new.
func (c *Course) AddStudent(userID string) bool {
	if c.HasStudent(userID) {
		return false
	}
	c.StudentIDs = append(c.StudentIDs, userID)
	return true
}

// RemoveStudent drops userID from the enrollment set and reports whether it was present.
func (c *Course) RemoveStudent(userID string) bool {
	for i, id := range c.StudentIDs {
		if id == userID {
			c.StudentIDs = append(c.StudentIDs[:i], c.StudentIDs[i+1:]...)
			return true
		}
	}
	return false
}

// Schedule is one weekly meeting slot of a course. Times are clock times
// expressed as "15:04".
type Schedule struct {
	ID        string  `json:"id"`
	CourseID  string  `json:"course_id"`
	Day       Weekday `json:"day"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	Room      string  `json:"room"`
}

const clockLayout = "15:04"

// NewSchedule builds and validates a schedule slot.
func NewSchedule(courseID string, day Weekday, start, end, room string) (Schedule, error) {
	s := Schedule{CourseID: courseID, Day: day, StartTime: start, EndTime: end, Room: room}
	return s, s.Validate()
}

// Validate requires a known day and a start strictly before the end.
func (s Schedule) Validate() error {
	if !s.Day.Valid() {
		return fmt.Errorf("unknown weekday %q", s.Day)
	}
	start, err := time.Parse(clockLayout, s.StartTime)
	if err != nil {
		return fmt.Errorf("start time %q: want HH:MM", s.StartTime)
	}
	end, err := time.Parse(clockLayout, s.EndTime)
	if err != nil {
		return fmt.Errorf("end time %q: want HH:MM", s.EndTime)
	}
	if !start.Before(end) {
		return fmt.Errorf("start time %s must be before end time %s", s.StartTime, s.EndTime)
	}
	return nil
}

// Attendance is the single record for a (course, student, date) triple.
type Attendance struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	StudentID string    `json:"student_id"`
	Date      time.Time `json:"date"`
	Status    Status    `json:"status"`
}

// NewAttendance builds a record for the given triple.
func NewAttendance(courseID, studentID string, date time.Time, status Status) Attendance {
	return Attendance{CourseID: courseID, StudentID: studentID, Date: date, Status: status}
}

// SameKey reports whether a and b share the exact (course, student, date) triple.
func (a Attendance) SameKey(b Attendance) bool {
	return a.CourseID == b.CourseID && a.StudentID == b.StudentID && a.Date.Equal(b.Date)
}

// CalendarDay truncates t to midnight UTC of its calendar date.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
