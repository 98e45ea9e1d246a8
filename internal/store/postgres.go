package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"attendtrack/internal/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres is the database/sql Store backed by the pgx driver.
type Postgres struct {
	db *sql.DB
	q  querier
}

// OpenPostgres opens a pool with sane defaults and pings it.
func OpenPostgres(ctx context.Context, connString string) (*Postgres, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	p := NewPostgres(db)
	return p, db.PingContext(ctx)
}

// NewPostgres wraps an already open handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, q: db}
}

// Close closes the underlying pool.
func (p *Postgres) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// Ping verifies connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	if p == nil || p.db == nil {
		return errors.New("store: postgres not connected")
	}
	return p.db.PingContext(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL,
	roll_number   TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	year          INTEGER NOT NULL DEFAULT 0,
	program       TEXT NOT NULL DEFAULT '',
	section       TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT users_username_key UNIQUE (username),
	CONSTRAINT users_roll_number_key UNIQUE (roll_number)
);

CREATE TABLE IF NOT EXISTS courses (
	id            TEXT PRIMARY KEY,
	code          TEXT NOT NULL,
	name          TEXT NOT NULL,
	instructor    TEXT NOT NULL,
	total_classes INTEGER NOT NULL CHECK (total_classes >= 0),
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS course_enrollments (
	course_id   TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
	user_id     TEXT NOT NULL REFERENCES users(id),
	enrolled_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (course_id, user_id)
);

CREATE TABLE IF NOT EXISTS schedules (
	id         TEXT PRIMARY KEY,
	course_id  TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
	day        TEXT NOT NULL,
	start_time TEXT NOT NULL,
	end_time   TEXT NOT NULL,
	room       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS attendance (
	id         TEXT PRIMARY KEY,
	course_id  TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
	student_id TEXT NOT NULL REFERENCES users(id),
	date       TIMESTAMPTZ NOT NULL,
	status     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT attendance_course_student_date_key UNIQUE (course_id, student_id, date)
);

CREATE INDEX IF NOT EXISTS idx_enrollments_user ON course_enrollments(user_id);
CREATE INDEX IF NOT EXISTS idx_schedules_course ON schedules(course_id);
CREATE INDEX IF NOT EXISTS idx_attendance_student_date ON attendance(student_id, date);
`

// Migrate creates the tables and indexes if they are missing.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.q.ExecContext(ctx, schema)
	return err
}

// WithTx runs fn inside a read-committed transaction. The unique key on the
// attendance triple backs concurrent upserts; the loser sees ErrDuplicate.
func (p *Postgres) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if _, nested := p.q.(*sql.Tx); nested {
		return fn(p)
	}
	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&Postgres{db: p.db, q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapErr(err)
	}
	return nil
}

// mapErr turns unique violations into ErrDuplicate.
func mapErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// -------- Users --------

const userColumns = `id, username, roll_number, password_hash, year, program, section, created_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.RollNumber, &u.PasswordHash, &u.Year, &u.Program, &u.Section, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (p *Postgres) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	return scanUser(p.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (p *Postgres) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return scanUser(p.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (p *Postgres) FindUserByRollNumber(ctx context.Context, rollNumber string) (*model.User, error) {
	return scanUser(p.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE roll_number = $1`, rollNumber))
}

func (p *Postgres) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := p.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	return exists, err
}

func (p *Postgres) ExistsByRollNumber(ctx context.Context, rollNumber string) (bool, error) {
	var exists bool
	err := p.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE roll_number = $1)`, rollNumber).Scan(&exists)
	return exists, err
}

func (p *Postgres) SaveUser(ctx context.Context, u model.User) (model.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
		row := p.q.QueryRowContext(ctx, `
			INSERT INTO users (id, username, roll_number, password_hash, year, program, section)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			RETURNING created_at
		`, u.ID, u.Username, u.RollNumber, u.PasswordHash, u.Year, u.Program, u.Section)
		if err := row.Scan(&u.CreatedAt); err != nil {
			return model.User{}, mapErr(err)
		}
		return u, nil
	}
	res, err := p.q.ExecContext(ctx, `
		UPDATE users
		SET username = $2, roll_number = $3, password_hash = $4, year = $5, program = $6, section = $7
		WHERE id = $1
	`, u.ID, u.Username, u.RollNumber, u.PasswordHash, u.Year, u.Program, u.Section)
	if err != nil {
		return model.User{}, mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.User{}, fmt.Errorf("store: user %s does not exist", u.ID)
	}
	return u, nil
}

// -------- Courses --------

const courseColumns = `c.id, c.code, c.name, c.instructor, c.total_classes, c.created_at`

func (p *Postgres) studentIDs(ctx context.Context, courseID string) ([]string, error) {
	rows, err := p.q.QueryContext(ctx, `
		SELECT user_id FROM course_enrollments
		WHERE course_id = $1
		ORDER BY enrolled_at, user_id
	`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (p *Postgres) FindCourseByID(ctx context.Context, id string) (*model.Course, error) {
	var c model.Course
	err := p.q.QueryRowContext(ctx, `SELECT `+courseColumns+` FROM courses c WHERE c.id = $1`, id).
		Scan(&c.ID, &c.Code, &c.Name, &c.Instructor, &c.TotalClasses, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if c.StudentIDs, err = p.studentIDs(ctx, c.ID); err != nil {
		return nil, err
	}
	return &c, nil
}

func (p *Postgres) SaveCourse(ctx context.Context, c model.Course) (model.Course, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
		row := p.q.QueryRowContext(ctx, `
			INSERT INTO courses (id, code, name, instructor, total_classes)
			VALUES ($1,$2,$3,$4,$5)
			RETURNING created_at
		`, c.ID, c.Code, c.Name, c.Instructor, c.TotalClasses)
		if err := row.Scan(&c.CreatedAt); err != nil {
			return model.Course{}, mapErr(err)
		}
	} else {
		res, err := p.q.ExecContext(ctx, `
			UPDATE courses SET code = $2, name = $3, instructor = $4, total_classes = $5
			WHERE id = $1
		`, c.ID, c.Code, c.Name, c.Instructor, c.TotalClasses)
		if err != nil {
			return model.Course{}, mapErr(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return model.Course{}, fmt.Errorf("store: course %s does not exist", c.ID)
		}
	}
	ids, err := p.studentIDs(ctx, c.ID)
	if err != nil {
		return model.Course{}, err
	}
	c.StudentIDs = ids
	return c, nil
}

func (p *Postgres) DeleteCourse(ctx context.Context, id string) error {
	if _, err := p.q.ExecContext(ctx, `DELETE FROM course_enrollments WHERE course_id = $1`, id); err != nil {
		return err
	}
	_, err := p.q.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	return err
}

func (p *Postgres) AddEnrollment(ctx context.Context, courseID, userID string) error {
	_, err := p.q.ExecContext(ctx, `
		INSERT INTO course_enrollments (course_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (course_id, user_id) DO NOTHING
	`, courseID, userID)
	return mapErr(err)
}

func (p *Postgres) RemoveEnrollment(ctx context.Context, courseID, userID string) error {
	_, err := p.q.ExecContext(ctx, `DELETE FROM course_enrollments WHERE course_id = $1 AND user_id = $2`, courseID, userID)
	return err
}

func (p *Postgres) FindCoursesForStudent(ctx context.Context, userID string) ([]model.Course, error) {
	return p.coursesFor(ctx, userID, false)
}

func (p *Postgres) FindActiveCoursesForStudent(ctx context.Context, userID string) ([]model.Course, error) {
	return p.coursesFor(ctx, userID, true)
}

func (p *Postgres) coursesFor(ctx context.Context, userID string, activeOnly bool) ([]model.Course, error) {
	query := `SELECT ` + courseColumns + `
		FROM courses c
		JOIN course_enrollments e ON e.course_id = c.id
		WHERE e.user_id = $1`
	if activeOnly {
		query += ` AND c.total_classes > 0`
	}
	query += ` ORDER BY c.created_at, c.id`

	rows, err := p.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	var courses []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Instructor, &c.TotalClasses, &c.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// enrollment is loaded after the cursor is closed; a tx can hold only one
	for i := range courses {
		if courses[i].StudentIDs, err = p.studentIDs(ctx, courses[i].ID); err != nil {
			return nil, err
		}
	}
	return courses, nil
}

// -------- Schedules --------

const scheduleColumns = `id, course_id, day, start_time, end_time, room`

func scanSchedule(row interface{ Scan(...any) error }) (model.Schedule, error) {
	var s model.Schedule
	err := row.Scan(&s.ID, &s.CourseID, &s.Day, &s.StartTime, &s.EndTime, &s.Room)
	return s, err
}

func (p *Postgres) FindScheduleByID(ctx context.Context, id string) (*model.Schedule, error) {
	s, err := scanSchedule(p.q.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (p *Postgres) FindSchedulesByCourse(ctx context.Context, courseID string) ([]model.Schedule, error) {
	rows, err := p.q.QueryContext(ctx, `
		SELECT `+scheduleColumns+` FROM schedules
		WHERE course_id = $1
		ORDER BY created_at, id
	`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (p *Postgres) SaveSchedule(ctx context.Context, s model.Schedule) (model.Schedule, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	_, err := p.q.ExecContext(ctx, `
		INSERT INTO schedules (id, course_id, day, start_time, end_time, room)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET
			day = EXCLUDED.day,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			room = EXCLUDED.room
	`, s.ID, s.CourseID, s.Day, s.StartTime, s.EndTime, s.Room)
	if err != nil {
		return model.Schedule{}, mapErr(err)
	}
	return s, nil
}

func (p *Postgres) DeleteSchedule(ctx context.Context, id string) error {
	_, err := p.q.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	return err
}

func (p *Postgres) DeleteSchedulesByCourse(ctx context.Context, courseID string) error {
	_, err := p.q.ExecContext(ctx, `DELETE FROM schedules WHERE course_id = $1`, courseID)
	return err
}

// -------- Attendance --------

const attendanceColumns = `id, course_id, student_id, date, status`

func (p *Postgres) queryAttendance(ctx context.Context, query string, args ...any) ([]model.Attendance, error) {
	rows, err := p.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.Attendance
	for rows.Next() {
		var a model.Attendance
		if err := rows.Scan(&a.ID, &a.CourseID, &a.StudentID, &a.Date, &a.Status); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (p *Postgres) SaveAttendance(ctx context.Context, a model.Attendance) (model.Attendance, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
		_, err := p.q.ExecContext(ctx, `
			INSERT INTO attendance (id, course_id, student_id, date, status)
			VALUES ($1,$2,$3,$4,$5)
		`, a.ID, a.CourseID, a.StudentID, a.Date, a.Status)
		if err != nil {
			return model.Attendance{}, mapErr(err)
		}
		return a, nil
	}
	res, err := p.q.ExecContext(ctx, `UPDATE attendance SET status = $2 WHERE id = $1`, a.ID, a.Status)
	if err != nil {
		return model.Attendance{}, mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Attendance{}, fmt.Errorf("store: attendance %s does not exist", a.ID)
	}
	return a, nil
}

func (p *Postgres) FindAttendanceByCourseAndStudent(ctx context.Context, courseID, studentID string) ([]model.Attendance, error) {
	return p.queryAttendance(ctx, `
		SELECT `+attendanceColumns+` FROM attendance
		WHERE course_id = $1 AND student_id = $2
		ORDER BY date, created_at
	`, courseID, studentID)
}

func (p *Postgres) FindAttendanceByKey(ctx context.Context, courseID, studentID string, date time.Time) (*model.Attendance, error) {
	res, err := p.queryAttendance(ctx, `
		SELECT `+attendanceColumns+` FROM attendance
		WHERE course_id = $1 AND student_id = $2 AND date = $3
	`, courseID, studentID, date)
	if err != nil || len(res) == 0 {
		return nil, err
	}
	return &res[0], nil
}

func (p *Postgres) FindAttendanceByStudentBetween(ctx context.Context, studentID string, start, end time.Time) ([]model.Attendance, error) {
	return p.queryAttendance(ctx, `
		SELECT `+attendanceColumns+` FROM attendance
		WHERE student_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date, created_at
	`, studentID, start, end)
}

func (p *Postgres) DeleteAttendanceByCourse(ctx context.Context, courseID string) error {
	_, err := p.q.ExecContext(ctx, `DELETE FROM attendance WHERE course_id = $1`, courseID)
	return err
}
