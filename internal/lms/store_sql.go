package lms

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// SQLStore persists entities in normalized tables; question lists live in a
// JSON column on the quiz row. Works against both the pgx and modernc sqlite
// drivers ($N placeholders, ON CONFLICT upserts).
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

/* ---------------- users ---------------- */

func (s *SQLStore) CreateUser(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id,name,email,password_hash,role,created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), time.Now().UnixMilli())
	if err != nil && isUniqueViolation(err) {
		return E(KindAlreadyExists, "email already registered")
	}
	return err
}

func (s *SQLStore) GetUser(ctx context.Context, id string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id,name,email,password_hash,role,reset_otp,reset_otp_expires,created_at FROM users WHERE id=$1`, id))
}

func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id,name,email,password_hash,role,reset_otp,reset_otp_expires,created_at FROM users WHERE email=$1`, email))
}

func (s *SQLStore) scanUser(row *sql.Row) (User, error) {
	var u User
	var role string
	var otp sql.NullString
	var otpExp sql.NullInt64
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &otp, &otpExp, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, E(KindNotFound, "user not found")
		}
		return User{}, err
	}
	u.Role = Role(role)
	u.ResetOTP = otp.String
	u.ResetOTPExpires = otpExp.Int64
	return u, nil
}

func (s *SQLStore) ListUsers(ctx context.Context, role Role) ([]User, error) {
	q := `SELECT id,name,email,role FROM users ORDER BY name`
	args := []any{}
	if role != "" {
		q = `SELECT id,name,email,role FROM users WHERE role=$1 ORDER BY name`
		args = append(args, string(role))
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []User{}
	for rows.Next() {
		var u User
		var r string
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &r); err != nil {
			return nil, err
		}
		u.Role = Role(r)
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateUser(ctx context.Context, u User) error {
	var otp any
	var otpExp any
	if u.ResetOTP != "" {
		otp = u.ResetOTP
	}
	if u.ResetOTPExpires != 0 {
		otpExp = u.ResetOTPExpires
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET name=$1, password_hash=$2, role=$3, reset_otp=$4, reset_otp_expires=$5 WHERE id=$6`,
		u.Name, u.PasswordHash, string(u.Role), otp, otpExp, u.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return E(KindNotFound, "user not found")
	}
	return nil
}

func (s *SQLStore) CountUsersByRole(ctx context.Context) (map[Role]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[Role]int{}
	for rows.Next() {
		var r string
		var n int
		if err := rows.Scan(&r, &n); err != nil {
			return nil, err
		}
		out[Role(r)] = n
	}
	return out, rows.Err()
}

/* ---------------- courses ---------------- */

func (s *SQLStore) CreateCourse(ctx context.Context, c Course) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO courses (id,title,description,teacher_id,created_at) VALUES ($1,$2,$3,$4,$5)`,
		c.ID, c.Title, c.Description, c.TeacherID, time.Now().UnixMilli())
	return err
}

func (s *SQLStore) GetCourse(ctx context.Context, id string) (Course, error) {
	var c Course
	err := s.db.QueryRowContext(ctx,
		`SELECT id,title,description,teacher_id,created_at FROM courses WHERE id=$1`, id).
		Scan(&c.ID, &c.Title, &c.Description, &c.TeacherID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Course{}, E(KindNotFound, "course not found")
		}
		return Course{}, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT student_id FROM course_students WHERE course_id=$1 ORDER BY student_id`, id)
	if err != nil {
		return Course{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var sid string
		if err := rows.Scan(&sid); err != nil {
			return Course{}, err
		}
		c.StudentIDs = append(c.StudentIDs, sid)
	}
	return c, rows.Err()
}

func (s *SQLStore) ListCourses(ctx context.Context, f CourseFilter) ([]Course, error) {
	q := `SELECT id,title,description,teacher_id,created_at FROM courses ORDER BY created_at`
	args := []any{}
	switch {
	case f.TeacherID != "":
		q = `SELECT id,title,description,teacher_id,created_at FROM courses WHERE teacher_id=$1 ORDER BY created_at`
		args = append(args, f.TeacherID)
	case f.StudentID != "":
		q = `SELECT c.id,c.title,c.description,c.teacher_id,c.created_at FROM courses c
			JOIN course_students cs ON cs.course_id=c.id WHERE cs.student_id=$1 ORDER BY c.created_at`
		args = append(args, f.StudentID)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Course{}
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.TeacherID, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteCourse(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM courses WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return E(KindNotFound, "course not found")
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM course_students WHERE course_id=$1`, id)
	return err
}

func (s *SQLStore) EnrollStudents(ctx context.Context, courseID string, studentIDs []string) (int, error) {
	added := 0
	for _, sid := range studentIDs {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO course_students (course_id,student_id) VALUES ($1,$2)
			 ON CONFLICT (course_id,student_id) DO NOTHING`, courseID, sid)
		if err != nil {
			return added, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}
	return added, nil
}

func (s *SQLStore) CountCourses(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM courses`).Scan(&n)
	return n, err
}

/* ---------------- lectures & views ---------------- */

func (s *SQLStore) CreateLecture(ctx context.Context, l Lecture) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lectures (id,course_id,title,description,file_path,file_type,difficulty,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		l.ID, l.CourseID, l.Title, l.Description, l.FilePath, l.FileType, l.Difficulty, time.Now().UnixMilli())
	return err
}

func (s *SQLStore) GetLecture(ctx context.Context, id string) (Lecture, error) {
	var l Lecture
	err := s.db.QueryRowContext(ctx,
		`SELECT id,course_id,title,description,file_path,file_type,difficulty,created_at FROM lectures WHERE id=$1`, id).
		Scan(&l.ID, &l.CourseID, &l.Title, &l.Description, &l.FilePath, &l.FileType, &l.Difficulty, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Lecture{}, E(KindNotFound, "lecture not found")
	}
	return l, err
}

func (s *SQLStore) ListLectures(ctx context.Context, courseID string) ([]Lecture, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,course_id,title,description,file_path,file_type,difficulty,created_at
		 FROM lectures WHERE course_id=$1 ORDER BY created_at`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Lecture{}
	for rows.Next() {
		var l Lecture
		if err := rows.Scan(&l.ID, &l.CourseID, &l.Title, &l.Description, &l.FilePath, &l.FileType, &l.Difficulty, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *SQLStore) AddView(ctx context.Context, v View) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO lecture_views (lecture_id,student_id,viewed_at) VALUES ($1,$2,$3)
		 ON CONFLICT (lecture_id,student_id) DO NOTHING`,
		v.LectureID, v.StudentID, v.ViewedAt)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLStore) HasViewed(ctx context.Context, lectureID, studentID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM lecture_views WHERE lecture_id=$1 AND student_id=$2`, lectureID, studentID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLStore) ListViews(ctx context.Context, lectureID string) ([]View, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT lecture_id,student_id,viewed_at FROM lecture_views WHERE lecture_id=$1 ORDER BY viewed_at`, lectureID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []View{}
	for rows.Next() {
		var v View
		if err := rows.Scan(&v.LectureID, &v.StudentID, &v.ViewedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLStore) CountLectureViews(ctx context.Context, courseID, studentID string) (int, int, error) {
	var viewed, total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lectures WHERE course_id=$1`, courseID).Scan(&total)
	if err != nil {
		return 0, 0, err
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lecture_views v JOIN lectures l ON l.id=v.lecture_id
		 WHERE l.course_id=$1 AND v.student_id=$2`, courseID, studentID).Scan(&viewed)
	return viewed, total, err
}

/* ---------------- quizzes & attempts ---------------- */

func (s *SQLStore) CreateQuiz(ctx context.Context, q Quiz) error {
	qj, err := json.Marshal(q.Questions)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO quizzes (id,course_id,lecture_id,title,questions_json,created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		q.ID, q.CourseID, q.LectureID, q.Title, string(qj), time.Now().UnixMilli())
	return err
}

func (s *SQLStore) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	var q Quiz
	var qjson string
	err := s.db.QueryRowContext(ctx,
		`SELECT id,course_id,lecture_id,title,questions_json,created_at FROM quizzes WHERE id=$1`, id).
		Scan(&q.ID, &q.CourseID, &q.LectureID, &q.Title, &qjson, &q.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quiz{}, E(KindNotFound, "quiz not found")
		}
		return Quiz{}, err
	}
	if err := json.Unmarshal([]byte(qjson), &q.Questions); err != nil {
		return Quiz{}, err
	}
	return q, nil
}

func (s *SQLStore) ListQuizzes(ctx context.Context, courseID, lectureID string) ([]Quiz, error) {
	q := `SELECT id,course_id,lecture_id,title,questions_json,created_at FROM quizzes ORDER BY created_at`
	args := []any{}
	switch {
	case lectureID != "":
		q = `SELECT id,course_id,lecture_id,title,questions_json,created_at FROM quizzes WHERE lecture_id=$1 ORDER BY created_at`
		args = append(args, lectureID)
	case courseID != "":
		q = `SELECT id,course_id,lecture_id,title,questions_json,created_at FROM quizzes WHERE course_id=$1 ORDER BY created_at`
		args = append(args, courseID)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Quiz{}
	for rows.Next() {
		var qu Quiz
		var qjson string
		if err := rows.Scan(&qu.ID, &qu.CourseID, &qu.LectureID, &qu.Title, &qjson, &qu.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(qjson), &qu.Questions); err != nil {
			return nil, err
		}
		out = append(out, qu)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListQuizzesWithAttempts(ctx context.Context, courseID string) ([]Quiz, error) {
	quizzes, err := s.ListQuizzes(ctx, courseID, "")
	if err != nil {
		return nil, err
	}
	for i := range quizzes {
		atts, err := s.ListAttempts(ctx, quizzes[i].ID)
		if err != nil {
			return nil, err
		}
		quizzes[i].Attempts = atts
	}
	return quizzes, nil
}

func (s *SQLStore) ListAttempts(ctx context.Context, quizID string) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT quiz_id,student_id,answers_json,score,created_at FROM quiz_attempts WHERE quiz_id=$1 ORDER BY created_at`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetAttempt(ctx context.Context, quizID, studentID string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT quiz_id,student_id,answers_json,score,created_at FROM quiz_attempts WHERE quiz_id=$1 AND student_id=$2`,
		quizID, studentID)
	var a Attempt
	var ajson string
	if err := row.Scan(&a.QuizID, &a.StudentID, &ajson, &a.Score, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, E(KindNotFound, "attempt not found")
		}
		return Attempt{}, err
	}
	if err := json.Unmarshal([]byte(ajson), &a.Answers); err != nil {
		return Attempt{}, err
	}
	return a, nil
}

func (s *SQLStore) AddAttempt(ctx context.Context, a Attempt) (bool, error) {
	aj, err := json.Marshal(a.Answers)
	if err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO quiz_attempts (quiz_id,student_id,answers_json,score,created_at) VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (quiz_id,student_id) DO NOTHING`,
		a.QuizID, a.StudentID, string(aj), a.Score, a.CreatedAt)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanAttempt(row rowScanner) (Attempt, error) {
	var a Attempt
	var ajson string
	if err := row.Scan(&a.QuizID, &a.StudentID, &ajson, &a.Score, &a.CreatedAt); err != nil {
		return Attempt{}, err
	}
	if err := json.Unmarshal([]byte(ajson), &a.Answers); err != nil {
		return Attempt{}, err
	}
	return a, nil
}

/* ---------------- assignments & submissions ---------------- */

func (s *SQLStore) CreateAssignment(ctx context.Context, a Assignment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO assignments (id,course_id,lecture_id,title,description,deadline,file_path,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, a.CourseID, a.LectureID, a.Title, a.Description, a.Deadline, a.FilePath, time.Now().UnixMilli())
	return err
}

func (s *SQLStore) GetAssignment(ctx context.Context, id string) (Assignment, error) {
	var a Assignment
	err := s.db.QueryRowContext(ctx,
		`SELECT id,course_id,lecture_id,title,description,deadline,file_path,created_at FROM assignments WHERE id=$1`, id).
		Scan(&a.ID, &a.CourseID, &a.LectureID, &a.Title, &a.Description, &a.Deadline, &a.FilePath, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Assignment{}, E(KindNotFound, "assignment not found")
		}
		return Assignment{}, err
	}
	subs, err := s.listSubmissions(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	a.Submissions = subs
	return a, nil
}

func (s *SQLStore) ListAssignments(ctx context.Context, courseID string) ([]Assignment, error) {
	q := `SELECT id,course_id,lecture_id,title,description,deadline,file_path,created_at
		 FROM assignments ORDER BY deadline`
	args := []any{}
	if courseID != "" {
		q = `SELECT id,course_id,lecture_id,title,description,deadline,file_path,created_at
			 FROM assignments WHERE course_id=$1 ORDER BY deadline`
		args = append(args, courseID)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Assignment{}
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.CourseID, &a.LectureID, &a.Title, &a.Description, &a.Deadline, &a.FilePath, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListAssignmentsWithSubmissions(ctx context.Context, courseID string) ([]Assignment, error) {
	list, err := s.ListAssignments(ctx, courseID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		subs, err := s.listSubmissions(ctx, list[i].ID)
		if err != nil {
			return nil, err
		}
		list[i].Submissions = subs
	}
	return list, nil
}

func (s *SQLStore) listSubmissions(ctx context.Context, assignmentID string) ([]Submission, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,assignment_id,student_id,file_path,submitted_at,grade,feedback,graded_at
		 FROM submissions WHERE assignment_id=$1 ORDER BY submitted_at`, assignmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func scanSubmission(row rowScanner) (Submission, error) {
	var sub Submission
	var grade sql.NullInt64
	var feedback sql.NullString
	var gradedAt sql.NullInt64
	if err := row.Scan(&sub.ID, &sub.AssignmentID, &sub.StudentID, &sub.FilePath, &sub.SubmittedAt, &grade, &feedback, &gradedAt); err != nil {
		return Submission{}, err
	}
	if grade.Valid {
		g := int(grade.Int64)
		sub.Grade = &g
	}
	if feedback.Valid {
		f := feedback.String
		sub.Feedback = &f
	}
	if gradedAt.Valid {
		t := gradedAt.Int64
		sub.GradedAt = &t
	}
	return sub, nil
}

func (s *SQLStore) AddSubmission(ctx context.Context, sub Submission) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO submissions (id,assignment_id,student_id,file_path,submitted_at) VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (assignment_id,student_id) DO NOTHING`,
		sub.ID, sub.AssignmentID, sub.StudentID, sub.FilePath, sub.SubmittedAt)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLStore) GetSubmissionByStudent(ctx context.Context, assignmentID, studentID string) (Submission, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,assignment_id,student_id,file_path,submitted_at,grade,feedback,graded_at
		 FROM submissions WHERE assignment_id=$1 AND student_id=$2`, assignmentID, studentID)
	sub, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Submission{}, E(KindNotFound, "no submission found")
		}
		return Submission{}, err
	}
	return sub, nil
}

func (s *SQLStore) ReplaceSubmissionFile(ctx context.Context, assignmentID, studentID, filePath string, at time.Time) (Submission, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE submissions SET file_path=$1, submitted_at=$2 WHERE assignment_id=$3 AND student_id=$4`,
		filePath, at.UnixMilli(), assignmentID, studentID)
	if err != nil {
		return Submission{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Submission{}, E(KindNotFound, "no submission found")
	}
	return s.GetSubmissionByStudent(ctx, assignmentID, studentID)
}

func (s *SQLStore) DeleteSubmission(ctx context.Context, assignmentID, studentID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM submissions WHERE assignment_id=$1 AND student_id=$2`, assignmentID, studentID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return E(KindNotFound, "no submission found")
	}
	return nil
}

func (s *SQLStore) GradeSubmission(ctx context.Context, assignmentID, submissionID string, grade *int, feedback *string, at time.Time) (Submission, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,assignment_id,student_id,file_path,submitted_at,grade,feedback,graded_at
		 FROM submissions WHERE id=$1 AND assignment_id=$2`, submissionID, assignmentID)
	sub, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Submission{}, E(KindNotFound, "submission not found")
		}
		return Submission{}, err
	}
	if grade != nil {
		sub.Grade = grade
	}
	if feedback != nil {
		sub.Feedback = feedback
	}
	ts := at.UnixMilli()
	sub.GradedAt = &ts

	var g any
	var f any
	if sub.Grade != nil {
		g = *sub.Grade
	}
	if sub.Feedback != nil {
		f = *sub.Feedback
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE submissions SET grade=$1, feedback=$2, graded_at=$3 WHERE id=$4`,
		g, f, ts, submissionID)
	if err != nil {
		return Submission{}, err
	}
	return sub, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // sqlite
		strings.Contains(msg, "duplicate key value") // postgres
}
