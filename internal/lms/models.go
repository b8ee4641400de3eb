package lms

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Identity is the request-scoped caller, resolved from the bearer token by the
// auth middleware and passed explicitly into every operation.
type Identity struct {
	UserID string
	Role   Role
}

type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`

	// one-time passcode for password reset; zero values mean "no reset pending"
	ResetOTP        string `json:"-"`
	ResetOTPExpires int64  `json:"-"`

	CreatedAt int64 `json:"created_at,omitempty"`
}

type Course struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	TeacherID   string   `json:"teacher_id"`
	StudentIDs  []string `json:"student_ids,omitempty"`
	CreatedAt   int64    `json:"created_at,omitempty"`
}

type Lecture struct {
	ID          string `json:"id"`
	CourseID    string `json:"course_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	FilePath    string `json:"file_path,omitempty"`
	FileType    string `json:"file_type"`   // video|pdf
	Difficulty  string `json:"difficulty"`  // easy|medium|hard
	CreatedAt   int64  `json:"created_at,omitempty"`
}

// View records that a student opened a lecture; at most one per
// (lecture, student), enforced by a unique index.
type View struct {
	LectureID string `json:"lecture_id"`
	StudentID string `json:"student_id"`
	ViewedAt  int64  `json:"viewed_at"`
}

type Question struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
}

// Unanswered is the sentinel answer index for a skipped question.
const Unanswered = -1

type Attempt struct {
	QuizID    string `json:"quiz_id"`
	StudentID string `json:"student_id"`
	Answers   []int  `json:"answers"`
	Score     int    `json:"score"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

type Quiz struct {
	ID        string     `json:"id"`
	CourseID  string     `json:"course_id"`
	LectureID string     `json:"lecture_id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions,omitempty"`
	Attempts  []Attempt  `json:"attempts,omitempty"`
	CreatedAt int64      `json:"created_at,omitempty"`
}

type Submission struct {
	ID           string  `json:"id"`
	AssignmentID string  `json:"assignment_id"`
	StudentID    string  `json:"student_id"`
	FilePath     string  `json:"file_path"`
	SubmittedAt  int64   `json:"submitted_at"`
	Grade        *int    `json:"grade,omitempty"`
	Feedback     *string `json:"feedback,omitempty"`
	GradedAt     *int64  `json:"graded_at,omitempty"`
}

type Assignment struct {
	ID          string       `json:"id"`
	CourseID    string       `json:"course_id"`
	LectureID   string       `json:"lecture_id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Deadline    int64        `json:"deadline"` // unix milliseconds
	FilePath    string       `json:"file_path,omitempty"`
	Submissions []Submission `json:"submissions,omitempty"`
	CreatedAt   int64        `json:"created_at,omitempty"`
}

// AttemptResult is what a student gets back from a quiz submission.
type AttemptResult struct {
	Score int `json:"score"`
	Total int `json:"total"`
}
