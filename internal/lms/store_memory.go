package lms

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a map-backed Store for tests and single-process dev runs.
// The mutex gives it the same insert-if-absent guarantees as the SQL unique
// indexes.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[string]User
	courses     map[string]Course
	enrollments map[string]map[string]bool // courseID -> studentID set
	lectures    map[string]Lecture
	views       map[string]map[string]View // lectureID -> studentID -> view
	quizzes     map[string]Quiz
	attempts    map[string]map[string]Attempt // quizID -> studentID -> attempt
	assignments map[string]Assignment
	submissions map[string]map[string]Submission // assignmentID -> studentID -> submission
	subSeq      int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       map[string]User{},
		courses:     map[string]Course{},
		enrollments: map[string]map[string]bool{},
		lectures:    map[string]Lecture{},
		views:       map[string]map[string]View{},
		quizzes:     map[string]Quiz{},
		attempts:    map[string]map[string]Attempt{},
		assignments: map[string]Assignment{},
		submissions: map[string]map[string]Submission{},
	}
}

/* users */

func (m *MemoryStore) CreateUser(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.users {
		if ex.Email == u.Email {
			return E(KindAlreadyExists, "email already registered")
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *MemoryStore) GetUser(_ context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, E(KindNotFound, "user not found")
	}
	return u, nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, E(KindNotFound, "user not found")
}

func (m *MemoryStore) ListUsers(_ context.Context, role Role) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []User{}
	for _, u := range m.users {
		if role == "" || u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) UpdateUser(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return E(KindNotFound, "user not found")
	}
	m.users[u.ID] = u
	return nil
}

func (m *MemoryStore) CountUsersByRole(_ context.Context) (map[Role]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := map[Role]int{}
	for _, u := range m.users {
		out[u.Role]++
	}
	return out, nil
}

/* courses */

func (m *MemoryStore) CreateCourse(_ context.Context, c Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().UnixMilli()
	}
	m.courses[c.ID] = c
	m.enrollments[c.ID] = map[string]bool{}
	return nil
}

func (m *MemoryStore) GetCourse(_ context.Context, id string) (Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.courses[id]
	if !ok {
		return Course{}, E(KindNotFound, "course not found")
	}
	for sid := range m.enrollments[id] {
		c.StudentIDs = append(c.StudentIDs, sid)
	}
	sort.Strings(c.StudentIDs)
	return c, nil
}

func (m *MemoryStore) ListCourses(_ context.Context, f CourseFilter) ([]Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Course{}
	for id, c := range m.courses {
		switch {
		case f.TeacherID != "" && c.TeacherID != f.TeacherID:
			continue
		case f.StudentID != "" && !m.enrollments[id][f.StudentID]:
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

func (m *MemoryStore) DeleteCourse(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[id]; !ok {
		return E(KindNotFound, "course not found")
	}
	delete(m.courses, id)
	delete(m.enrollments, id)
	return nil
}

func (m *MemoryStore) EnrollStudents(_ context.Context, courseID string, studentIDs []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.enrollments[courseID]
	if !ok {
		return 0, E(KindNotFound, "course not found")
	}
	added := 0
	for _, sid := range studentIDs {
		if !set[sid] {
			set[sid] = true
			added++
		}
	}
	return added, nil
}

func (m *MemoryStore) CountCourses(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.courses), nil
}

/* lectures & views */

func (m *MemoryStore) CreateLecture(_ context.Context, l Lecture) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.CreatedAt == 0 {
		l.CreatedAt = time.Now().UnixMilli()
	}
	m.lectures[l.ID] = l
	return nil
}

func (m *MemoryStore) GetLecture(_ context.Context, id string) (Lecture, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.lectures[id]
	if !ok {
		return Lecture{}, E(KindNotFound, "lecture not found")
	}
	return l, nil
}

func (m *MemoryStore) ListLectures(_ context.Context, courseID string) ([]Lecture, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Lecture{}
	for _, l := range m.lectures {
		if l.CourseID == courseID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

func (m *MemoryStore) AddView(_ context.Context, v View) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.views[v.LectureID]
	if !ok {
		set = map[string]View{}
		m.views[v.LectureID] = set
	}
	if _, exists := set[v.StudentID]; exists {
		return false, nil
	}
	set[v.StudentID] = v
	return true, nil
}

func (m *MemoryStore) HasViewed(_ context.Context, lectureID, studentID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.views[lectureID][studentID]
	return ok, nil
}

func (m *MemoryStore) ListViews(_ context.Context, lectureID string) ([]View, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []View{}
	for _, v := range m.views[lectureID] {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ViewedAt < out[j].ViewedAt })
	return out, nil
}

func (m *MemoryStore) CountLectureViews(_ context.Context, courseID, studentID string) (int, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	viewed, total := 0, 0
	for id, l := range m.lectures {
		if l.CourseID != courseID {
			continue
		}
		total++
		if _, ok := m.views[id][studentID]; ok {
			viewed++
		}
	}
	return viewed, total, nil
}

/* quizzes & attempts */

func (m *MemoryStore) CreateQuiz(_ context.Context, q Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.CreatedAt == 0 {
		q.CreatedAt = time.Now().UnixMilli()
	}
	q.Attempts = nil
	m.quizzes[q.ID] = q
	return nil
}

func (m *MemoryStore) GetQuiz(_ context.Context, id string) (Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quizzes[id]
	if !ok {
		return Quiz{}, E(KindNotFound, "quiz not found")
	}
	return q, nil
}

func (m *MemoryStore) ListQuizzes(_ context.Context, courseID, lectureID string) ([]Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Quiz{}
	for _, q := range m.quizzes {
		switch {
		case lectureID != "" && q.LectureID != lectureID:
			continue
		case courseID != "" && q.CourseID != courseID:
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

func (m *MemoryStore) ListQuizzesWithAttempts(ctx context.Context, courseID string) ([]Quiz, error) {
	quizzes, err := m.ListQuizzes(ctx, courseID, "")
	if err != nil {
		return nil, err
	}
	for i := range quizzes {
		atts, err := m.ListAttempts(ctx, quizzes[i].ID)
		if err != nil {
			return nil, err
		}
		quizzes[i].Attempts = atts
	}
	return quizzes, nil
}

func (m *MemoryStore) ListAttempts(_ context.Context, quizID string) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Attempt{}
	for _, a := range m.attempts[quizID] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

func (m *MemoryStore) GetAttempt(_ context.Context, quizID, studentID string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[quizID][studentID]
	if !ok {
		return Attempt{}, E(KindNotFound, "attempt not found")
	}
	return a, nil
}

func (m *MemoryStore) AddAttempt(_ context.Context, a Attempt) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.attempts[a.QuizID]
	if !ok {
		set = map[string]Attempt{}
		m.attempts[a.QuizID] = set
	}
	if _, exists := set[a.StudentID]; exists {
		return false, nil
	}
	set[a.StudentID] = a
	return true, nil
}

/* assignments & submissions */

func (m *MemoryStore) CreateAssignment(_ context.Context, a Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.CreatedAt == 0 {
		a.CreatedAt = time.Now().UnixMilli()
	}
	a.Submissions = nil
	m.assignments[a.ID] = a
	return nil
}

func (m *MemoryStore) GetAssignment(_ context.Context, id string) (Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assignments[id]
	if !ok {
		return Assignment{}, E(KindNotFound, "assignment not found")
	}
	for _, sub := range m.submissions[id] {
		a.Submissions = append(a.Submissions, sub)
	}
	sort.Slice(a.Submissions, func(i, j int) bool { return a.Submissions[i].SubmittedAt < a.Submissions[j].SubmittedAt })
	return a, nil
}

func (m *MemoryStore) ListAssignments(_ context.Context, courseID string) ([]Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Assignment{}
	for _, a := range m.assignments {
		if courseID == "" || a.CourseID == courseID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Deadline < out[j].Deadline })
	return out, nil
}

func (m *MemoryStore) ListAssignmentsWithSubmissions(ctx context.Context, courseID string) ([]Assignment, error) {
	list, err := m.ListAssignments(ctx, courseID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		a, err := m.GetAssignment(ctx, list[i].ID)
		if err != nil {
			return nil, err
		}
		list[i].Submissions = a.Submissions
	}
	return list, nil
}

func (m *MemoryStore) AddSubmission(_ context.Context, sub Submission) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.submissions[sub.AssignmentID]
	if !ok {
		set = map[string]Submission{}
		m.submissions[sub.AssignmentID] = set
	}
	if _, exists := set[sub.StudentID]; exists {
		return false, nil
	}
	set[sub.StudentID] = sub
	return true, nil
}

func (m *MemoryStore) GetSubmissionByStudent(_ context.Context, assignmentID, studentID string) (Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.submissions[assignmentID][studentID]
	if !ok {
		return Submission{}, E(KindNotFound, "no submission found")
	}
	return sub, nil
}

func (m *MemoryStore) ReplaceSubmissionFile(_ context.Context, assignmentID, studentID, filePath string, at time.Time) (Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.submissions[assignmentID][studentID]
	if !ok {
		return Submission{}, E(KindNotFound, "no submission found")
	}
	sub.FilePath = filePath
	sub.SubmittedAt = at.UnixMilli()
	m.submissions[assignmentID][studentID] = sub
	return sub, nil
}

func (m *MemoryStore) DeleteSubmission(_ context.Context, assignmentID, studentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.submissions[assignmentID][studentID]; !ok {
		return E(KindNotFound, "no submission found")
	}
	delete(m.submissions[assignmentID], studentID)
	return nil
}

func (m *MemoryStore) GradeSubmission(_ context.Context, assignmentID, submissionID string, grade *int, feedback *string, at time.Time) (Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for sid, sub := range m.submissions[assignmentID] {
		if sub.ID != submissionID {
			continue
		}
		if grade != nil {
			sub.Grade = grade
		}
		if feedback != nil {
			sub.Feedback = feedback
		}
		ts := at.UnixMilli()
		sub.GradedAt = &ts
		m.submissions[assignmentID][sid] = sub
		return sub, nil
	}
	return Submission{}, E(KindNotFound, "submission not found")
}
