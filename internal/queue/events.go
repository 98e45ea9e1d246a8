package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"attendtrack/internal/model"
)

// TypeAttendanceMarked is published after every successful mark.
const TypeAttendanceMarked = "attendance.marked"

// AttendanceMarked is the body of a TypeAttendanceMarked message.
type AttendanceMarked struct {
	AttendanceID string       `json:"attendance_id"`
	CourseID     string       `json:"course_id"`
	StudentID    string       `json:"student_id"`
	Date         time.Time    `json:"date"`
	Status       model.Status `json:"status"`
}

// NewAttendanceMarked wraps a stored record as a message.
func NewAttendanceMarked(a model.Attendance) (Message, error) {
	body, err := json.Marshal(AttendanceMarked{
		AttendanceID: a.ID,
		CourseID:     a.CourseID,
		StudentID:    a.StudentID,
		Date:         a.Date,
		Status:       a.Status,
	})
	if err != nil {
		return Message{}, err
	}
	return Message{Type: TypeAttendanceMarked, Body: body}, nil
}

// DecodeAttendanceMarked parses the body of a TypeAttendanceMarked message.
func DecodeAttendanceMarked(msg Message) (AttendanceMarked, error) {
	if msg.Type != TypeAttendanceMarked {
		return AttendanceMarked{}, fmt.Errorf("unexpected message type %q", msg.Type)
	}
	var evt AttendanceMarked
	if err := json.Unmarshal(msg.Body, &evt); err != nil {
		return AttendanceMarked{}, fmt.Errorf("decode %s: %w", msg.Type, err)
	}
	return evt, nil
}
