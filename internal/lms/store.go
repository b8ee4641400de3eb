package lms

import (
	"context"
	"time"
)

// CourseFilter scopes course listing by caller role.
type CourseFilter struct {
	TeacherID string // courses owned by this teacher
	StudentID string // courses this student is enrolled in
}

// Store is the content store: the sole source of truth for all entities.
// Implementations provide per-row atomic writes; the unique indexes on
// (lecture, student), (quiz, student) and (assignment, student) make the
// Add* methods insert-if-absent primitives, which is what closes the
// duplicate attempt/submission races.
type Store interface {
	// users
	CreateUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context, role Role) ([]User, error)
	UpdateUser(ctx context.Context, u User) error
	CountUsersByRole(ctx context.Context) (map[Role]int, error)

	// courses
	CreateCourse(ctx context.Context, c Course) error
	GetCourse(ctx context.Context, id string) (Course, error)
	ListCourses(ctx context.Context, f CourseFilter) ([]Course, error)
	// DeleteCourse removes the course row only. Dependent lectures, quizzes
	// and assignments are deliberately left in place (documented policy).
	DeleteCourse(ctx context.Context, id string) error
	EnrollStudents(ctx context.Context, courseID string, studentIDs []string) (added int, err error)
	CountCourses(ctx context.Context) (int, error)

	// lectures
	CreateLecture(ctx context.Context, l Lecture) error
	GetLecture(ctx context.Context, id string) (Lecture, error)
	ListLectures(ctx context.Context, courseID string) ([]Lecture, error)
	// AddView is idempotent; inserted reports whether a new row landed.
	AddView(ctx context.Context, v View) (inserted bool, err error)
	HasViewed(ctx context.Context, lectureID, studentID string) (bool, error)
	ListViews(ctx context.Context, lectureID string) ([]View, error)
	// CountLectureViews returns how many of the course's lectures the student
	// has viewed, and the course's total lecture count.
	CountLectureViews(ctx context.Context, courseID, studentID string) (viewed, total int, err error)

	// quizzes
	CreateQuiz(ctx context.Context, q Quiz) error
	// GetQuiz returns the quiz with questions but without attempts.
	GetQuiz(ctx context.Context, id string) (Quiz, error)
	ListQuizzes(ctx context.Context, courseID, lectureID string) ([]Quiz, error)
	// ListQuizzesWithAttempts returns every quiz (courseID=="" means all
	// courses) with questions and attempts populated, for analytics.
	ListQuizzesWithAttempts(ctx context.Context, courseID string) ([]Quiz, error)
	ListAttempts(ctx context.Context, quizID string) ([]Attempt, error)
	GetAttempt(ctx context.Context, quizID, studentID string) (Attempt, error)
	// AddAttempt is insert-if-absent on (quiz, student).
	AddAttempt(ctx context.Context, a Attempt) (inserted bool, err error)

	// assignments
	CreateAssignment(ctx context.Context, a Assignment) error
	// GetAssignment returns the assignment with its submissions.
	GetAssignment(ctx context.Context, id string) (Assignment, error)
	ListAssignments(ctx context.Context, courseID string) ([]Assignment, error)
	ListAssignmentsWithSubmissions(ctx context.Context, courseID string) ([]Assignment, error)
	// AddSubmission is insert-if-absent on (assignment, student).
	AddSubmission(ctx context.Context, s Submission) (inserted bool, err error)
	GetSubmissionByStudent(ctx context.Context, assignmentID, studentID string) (Submission, error)
	ReplaceSubmissionFile(ctx context.Context, assignmentID, studentID, filePath string, at time.Time) (Submission, error)
	DeleteSubmission(ctx context.Context, assignmentID, studentID string) error
	GradeSubmission(ctx context.Context, assignmentID, submissionID string, grade *int, feedback *string, at time.Time) (Submission, error)
}
