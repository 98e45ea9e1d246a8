package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"attendtrack/internal/model"
)

type memData struct {
	users      map[string]model.User
	courses    map[string]model.Course
	enrollment map[string][]string
	schedules  map[string]model.Schedule
	attendance map[string]model.Attendance
	// insertion sequence per id, used for stable listing order
	seq  map[string]int64
	next int64
}

func newMemData() *memData {
	return &memData{
		users:      make(map[string]model.User),
		courses:    make(map[string]model.Course),
		enrollment: make(map[string][]string),
		schedules:  make(map[string]model.Schedule),
		attendance: make(map[string]model.Attendance),
		seq:        make(map[string]int64),
	}
}

func (d *memData) clone() *memData {
	c := newMemData()
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.courses {
		c.courses[k] = v
	}
	for k, v := range d.enrollment {
		c.enrollment[k] = append([]string(nil), v...)
	}
	for k, v := range d.schedules {
		c.schedules[k] = v
	}
	for k, v := range d.attendance {
		c.attendance[k] = v
	}
	for k, v := range d.seq {
		c.seq[k] = v
	}
	c.next = d.next
	return c
}

func (d *memData) stamp(id string) {
	d.next++
	d.seq[id] = d.next
}

// Memory is a mutex-guarded in-process Store for tests and single-node dev runs.
type Memory struct {
	mu   *sync.Mutex
	data **memData
	inTx bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	d := newMemData()
	return &Memory{mu: &sync.Mutex{}, data: &d}
}

func (m *Memory) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *Memory) d() *memData { return *m.data }

// WithTx serializes fn against every other caller and restores the previous
// state if fn fails.
func (m *Memory) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if m.inTx {
		return fn(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := m.d().clone()
	if err := fn(&Memory{mu: m.mu, data: m.data, inTx: true}); err != nil {
		*m.data = snapshot
		return err
	}
	return nil
}

// Ping always succeeds.
func (m *Memory) Ping(ctx context.Context) error { return nil }

// -------- Users --------

func (m *Memory) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	defer m.lock()()
	if u, ok := m.d().users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (m *Memory) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	defer m.lock()()
	return m.findUser(func(u model.User) bool { return u.Username == username }), nil
}

func (m *Memory) FindUserByRollNumber(ctx context.Context, rollNumber string) (*model.User, error) {
	defer m.lock()()
	return m.findUser(func(u model.User) bool { return u.RollNumber == rollNumber }), nil
}

func (m *Memory) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	u, err := m.FindUserByUsername(ctx, username)
	return u != nil, err
}

func (m *Memory) ExistsByRollNumber(ctx context.Context, rollNumber string) (bool, error) {
	u, err := m.FindUserByRollNumber(ctx, rollNumber)
	return u != nil, err
}

func (m *Memory) findUser(match func(model.User) bool) *model.User {
	for _, u := range m.d().users {
		if match(u) {
			return &u
		}
	}
	return nil
}

func (m *Memory) SaveUser(ctx context.Context, u model.User) (model.User, error) {
	defer m.lock()()
	d := m.d()
	if u.ID != "" {
		if _, ok := d.users[u.ID]; !ok {
			return model.User{}, fmt.Errorf("store: user %s does not exist", u.ID)
		}
	}
	for _, other := range d.users {
		if other.ID == u.ID {
			continue
		}
		if other.Username == u.Username {
			return model.User{}, fmt.Errorf("%w: users_username_key", ErrDuplicate)
		}
		if other.RollNumber == u.RollNumber {
			return model.User{}, fmt.Errorf("%w: users_roll_number_key", ErrDuplicate)
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
		u.CreatedAt = time.Now().UTC()
		d.stamp(u.ID)
	}
	d.users[u.ID] = u
	return u, nil
}

// -------- Courses --------

func (m *Memory) withStudents(c model.Course) model.Course {
	c.StudentIDs = append([]string{}, m.d().enrollment[c.ID]...)
	return c
}

func (m *Memory) FindCourseByID(ctx context.Context, id string) (*model.Course, error) {
	defer m.lock()()
	c, ok := m.d().courses[id]
	if !ok {
		return nil, nil
	}
	c = m.withStudents(c)
	return &c, nil
}

func (m *Memory) SaveCourse(ctx context.Context, c model.Course) (model.Course, error) {
	defer m.lock()()
	d := m.d()
	if c.ID == "" {
		c.ID = uuid.NewString()
		c.CreatedAt = time.Now().UTC()
		d.stamp(c.ID)
	} else if _, ok := d.courses[c.ID]; !ok {
		return model.Course{}, fmt.Errorf("store: course %s does not exist", c.ID)
	}
	c.StudentIDs = nil
	d.courses[c.ID] = c
	return m.withStudents(c), nil
}

func (m *Memory) DeleteCourse(ctx context.Context, id string) error {
	defer m.lock()()
	d := m.d()
	delete(d.courses, id)
	delete(d.enrollment, id)
	delete(d.seq, id)
	return nil
}

func (m *Memory) AddEnrollment(ctx context.Context, courseID, userID string) error {
	defer m.lock()()
	d := m.d()
	if _, ok := d.courses[courseID]; !ok {
		return fmt.Errorf("store: course %s does not exist", courseID)
	}
	if _, ok := d.users[userID]; !ok {
		return fmt.Errorf("store: user %s does not exist", userID)
	}
	for _, id := range d.enrollment[courseID] {
		if id == userID {
			return nil
		}
	}
	d.enrollment[courseID] = append(d.enrollment[courseID], userID)
	return nil
}

func (m *Memory) RemoveEnrollment(ctx context.Context, courseID, userID string) error {
	defer m.lock()()
	d := m.d()
	ids := d.enrollment[courseID]
	for i, id := range ids {
		if id == userID {
			d.enrollment[courseID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) FindCoursesForStudent(ctx context.Context, userID string) ([]model.Course, error) {
	defer m.lock()()
	return m.coursesFor(userID, false), nil
}

func (m *Memory) FindActiveCoursesForStudent(ctx context.Context, userID string) ([]model.Course, error) {
	defer m.lock()()
	return m.coursesFor(userID, true), nil
}

func (m *Memory) coursesFor(userID string, activeOnly bool) []model.Course {
	var out []model.Course
	for _, c := range m.d().courses {
		if activeOnly && c.TotalClasses <= 0 {
			continue
		}
		c = m.withStudents(c)
		if c.HasStudent(userID) {
			out = append(out, c)
		}
	}
	sortBySeq(m.d().seq, out, func(c model.Course) string { return c.ID })
	return out
}

// -------- Schedules --------

func (m *Memory) FindScheduleByID(ctx context.Context, id string) (*model.Schedule, error) {
	defer m.lock()()
	if s, ok := m.d().schedules[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (m *Memory) FindSchedulesByCourse(ctx context.Context, courseID string) ([]model.Schedule, error) {
	defer m.lock()()
	var out []model.Schedule
	for _, s := range m.d().schedules {
		if s.CourseID == courseID {
			out = append(out, s)
		}
	}
	sortBySeq(m.d().seq, out, func(s model.Schedule) string { return s.ID })
	return out, nil
}

func (m *Memory) SaveSchedule(ctx context.Context, s model.Schedule) (model.Schedule, error) {
	defer m.lock()()
	d := m.d()
	if _, ok := d.courses[s.CourseID]; !ok {
		return model.Schedule{}, fmt.Errorf("store: course %s does not exist", s.CourseID)
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
		d.stamp(s.ID)
	}
	d.schedules[s.ID] = s
	return s, nil
}

func (m *Memory) DeleteSchedule(ctx context.Context, id string) error {
	defer m.lock()()
	delete(m.d().schedules, id)
	delete(m.d().seq, id)
	return nil
}

func (m *Memory) DeleteSchedulesByCourse(ctx context.Context, courseID string) error {
	defer m.lock()()
	d := m.d()
	for id, s := range d.schedules {
		if s.CourseID == courseID {
			delete(d.schedules, id)
			delete(d.seq, id)
		}
	}
	return nil
}

// -------- Attendance --------

func (m *Memory) SaveAttendance(ctx context.Context, a model.Attendance) (model.Attendance, error) {
	defer m.lock()()
	d := m.d()
	if _, ok := d.courses[a.CourseID]; !ok {
		return model.Attendance{}, fmt.Errorf("store: course %s does not exist", a.CourseID)
	}
	if _, ok := d.users[a.StudentID]; !ok {
		return model.Attendance{}, fmt.Errorf("store: user %s does not exist", a.StudentID)
	}
	for _, other := range d.attendance {
		if other.ID != a.ID && other.SameKey(a) {
			return model.Attendance{}, fmt.Errorf("%w: attendance_course_student_date_key", ErrDuplicate)
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
		d.stamp(a.ID)
	} else if _, ok := d.attendance[a.ID]; !ok {
		return model.Attendance{}, fmt.Errorf("store: attendance %s does not exist", a.ID)
	}
	d.attendance[a.ID] = a
	return a, nil
}

func (m *Memory) FindAttendanceByCourseAndStudent(ctx context.Context, courseID, studentID string) ([]model.Attendance, error) {
	defer m.lock()()
	return m.filterAttendance(func(a model.Attendance) bool {
		return a.CourseID == courseID && a.StudentID == studentID
	}), nil
}

func (m *Memory) FindAttendanceByKey(ctx context.Context, courseID, studentID string, date time.Time) (*model.Attendance, error) {
	defer m.lock()()
	key := model.NewAttendance(courseID, studentID, date, "")
	for _, a := range m.d().attendance {
		if a.SameKey(key) {
			return &a, nil
		}
	}
	return nil, nil
}

func (m *Memory) FindAttendanceByStudentBetween(ctx context.Context, studentID string, start, end time.Time) ([]model.Attendance, error) {
	defer m.lock()()
	return m.filterAttendance(func(a model.Attendance) bool {
		return a.StudentID == studentID && !a.Date.Before(start) && !a.Date.After(end)
	}), nil
}

func (m *Memory) DeleteAttendanceByCourse(ctx context.Context, courseID string) error {
	defer m.lock()()
	d := m.d()
	for id, a := range d.attendance {
		if a.CourseID == courseID {
			delete(d.attendance, id)
			delete(d.seq, id)
		}
	}
	return nil
}

// filterAttendance returns matches ordered by date, then insertion.
func (m *Memory) filterAttendance(match func(model.Attendance) bool) []model.Attendance {
	d := m.d()
	var out []model.Attendance
	for _, a := range d.attendance {
		if match(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return d.seq[out[i].ID] < d.seq[out[j].ID]
	})
	return out
}

func sortBySeq[T any](seq map[string]int64, items []T, id func(T) string) {
	sort.Slice(items, func(i, j int) bool { return seq[id(items[i])] < seq[id(items[j])] })
}
