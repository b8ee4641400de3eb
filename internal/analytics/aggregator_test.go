package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/classbridge/classbridge-lms/internal/analytics"
	"github.com/classbridge/classbridge-lms/internal/lms"
)

// seedCourse builds:
//
//	course c1 (Algebra, teacher t1, students s1+s2)
//	lectures l1, l2
//	quiz quiz1 on l1 (2 questions), quiz quiz2 on l2 (2 questions, no attempts)
//	assignment a1
func seedCourse(t *testing.T) (*analytics.Aggregator, *lms.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	store := lms.NewMemoryStore()

	require.NoError(t, store.CreateCourse(ctx, lms.Course{ID: "c1", Title: "Algebra", TeacherID: "t1", CreatedAt: 1}))
	_, err := store.EnrollStudents(ctx, "c1", []string{"s1", "s2"})
	require.NoError(t, err)

	require.NoError(t, store.CreateLecture(ctx, lms.Lecture{ID: "l1", CourseID: "c1", Title: "One", CreatedAt: 1}))
	require.NoError(t, store.CreateLecture(ctx, lms.Lecture{ID: "l2", CourseID: "c1", Title: "Two", CreatedAt: 2}))

	twoQuestions := []lms.Question{
		{Text: "first", Options: []string{"a", "b"}, CorrectOption: 0},
		{Text: "second", Options: []string{"a", "b"}, CorrectOption: 1},
	}
	require.NoError(t, store.CreateQuiz(ctx, lms.Quiz{ID: "quiz1", CourseID: "c1", LectureID: "l1", Title: "Quiz 1", Questions: twoQuestions, CreatedAt: 1}))
	require.NoError(t, store.CreateQuiz(ctx, lms.Quiz{ID: "quiz2", CourseID: "c1", LectureID: "l2", Title: "Quiz 2", Questions: twoQuestions, CreatedAt: 2}))

	require.NoError(t, store.CreateAssignment(ctx, lms.Assignment{ID: "a1", CourseID: "c1", Title: "Homework", Deadline: 9_999_999_999_999}))
	return analytics.NewAggregator(store), store
}

func addAttempt(t *testing.T, store *lms.MemoryStore, quizID, studentID string, answers []int, score int) {
	t.Helper()
	inserted, err := store.AddAttempt(context.Background(), lms.Attempt{
		QuizID: quizID, StudentID: studentID, Answers: answers, Score: score,
	})
	require.NoError(t, err)
	require.True(t, inserted)
}

func TestProgressNoActivity(t *testing.T) {
	ag, _ := seedCourse(t)
	p, err := ag.ComputeProgress(context.Background(), "c1", "s1")
	require.NoError(t, err)
	require.Equal(t, 0.0, p.LecturesPct)
	require.Equal(t, 0.0, p.QuizzesPct)
	require.Nil(t, p.AvgScore, "no attempts must read as no data, not zero")
	require.Equal(t, 0, p.AssignmentsSubmitted)
	require.Equal(t, 1, p.TotalAssignments)
}

func TestProgressHalfway(t *testing.T) {
	ag, store := seedCourse(t)
	ctx := context.Background()

	_, err := store.AddView(ctx, lms.View{LectureID: "l1", StudentID: "s1", ViewedAt: 1})
	require.NoError(t, err)
	addAttempt(t, store, "quiz1", "s1", []int{0, 0}, 1) // 1 of 2 correct

	p, err := ag.ComputeProgress(ctx, "c1", "s1")
	require.NoError(t, err)
	require.Equal(t, 50.0, p.LecturesPct)
	require.Equal(t, 50.0, p.QuizzesPct)
	require.NotNil(t, p.AvgScore)
	require.Equal(t, 50.0, *p.AvgScore)
}

func TestProgressUnknownCourse(t *testing.T) {
	ag, _ := seedCourse(t)
	_, err := ag.ComputeProgress(context.Background(), "nope", "s1")
	require.True(t, lms.IsKind(err, lms.KindNotFound))
}

func TestHeatmapZeroAttempts(t *testing.T) {
	ag, _ := seedCourse(t)
	cells, err := ag.ComputeHeatmap(context.Background(), "quiz2")
	require.NoError(t, err)
	require.Len(t, cells, 2)
	for _, c := range cells {
		require.Equal(t, 0.0, c.CorrectRate)
	}
}

func TestHeatmapRates(t *testing.T) {
	ag, store := seedCourse(t)
	addAttempt(t, store, "quiz1", "s1", []int{0, 0}, 1) // q1 right, q2 wrong
	addAttempt(t, store, "quiz1", "s2", []int{0, 1}, 2) // both right

	cells, err := ag.ComputeHeatmap(context.Background(), "quiz1")
	require.NoError(t, err)
	require.Len(t, cells, 2)
	require.Equal(t, 1, cells[0].QuestionNumber)
	require.Equal(t, "first", cells[0].QuestionText)
	require.Equal(t, 1.0, cells[0].CorrectRate)
	require.Equal(t, 0.5, cells[1].CorrectRate)
}

func TestHeatmapRounding(t *testing.T) {
	ag, store := seedCourse(t)
	addAttempt(t, store, "quiz1", "s1", []int{0, 0}, 1)
	addAttempt(t, store, "quiz1", "s2", []int{1, 0}, 0)
	addAttempt(t, store, "quiz1", "s3", []int{1, 0}, 0)

	cells, err := ag.ComputeHeatmap(context.Background(), "quiz1")
	require.NoError(t, err)
	require.Equal(t, 0.33, cells[0].CorrectRate) // 1/3 rounded to 2 decimals
}

func TestQuizStatsAverageOfAverages(t *testing.T) {
	ag, store := seedCourse(t)
	addAttempt(t, store, "quiz1", "s1", []int{0, 0}, 1)
	addAttempt(t, store, "quiz1", "s2", []int{0, 1}, 2)
	// quiz2 has no attempts and contributes 0 to the average

	stats, err := ag.ComputeQuizStats(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	require.Equal(t, "c1", stats[0].CourseID)
	require.Equal(t, "Algebra", stats[0].CourseTitle)
	require.Equal(t, 2, stats[0].QuizCount)
	require.Equal(t, 2, stats[0].TotalAttempts)
	// quiz1 mean raw score 1.5, quiz2 mean 0 -> (1.5+0)/2
	require.Equal(t, 0.75, stats[0].AvgScore)
}

func TestFindWeakest(t *testing.T) {
	ag, store := seedCourse(t)
	ctx := context.Background()
	addAttempt(t, store, "quiz1", "s1", []int{0, 0}, 1)
	addAttempt(t, store, "quiz1", "s2", []int{0, 1}, 2)

	// quiz2 questions sit at 0% (no attempts); strict < keeps the first one
	w, err := ag.FindWeakest(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, w)
	require.Equal(t, "Quiz 2", w.QuizTitle)
	require.Equal(t, 1, w.QuestionNumber)
	require.Equal(t, 0, w.CorrectRatePercent)
}

func TestFindWeakestNoQuestions(t *testing.T) {
	store := lms.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.CreateCourse(ctx, lms.Course{ID: "c9", Title: "Empty", TeacherID: "t1"}))
	ag := analytics.NewAggregator(store)

	w, err := ag.FindWeakest(ctx, "c9")
	require.NoError(t, err)
	require.Nil(t, w)
}

func TestAssignmentStats(t *testing.T) {
	ag, store := seedCourse(t)
	ctx := context.Background()

	inserted, err := store.AddSubmission(ctx, lms.Submission{
		ID: "sub1", AssignmentID: "a1", StudentID: "s1", FilePath: "f.pdf", SubmittedAt: 1,
	})
	require.NoError(t, err)
	require.True(t, inserted)

	stats, err := ag.ComputeAssignmentStats(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	require.Equal(t, 50.0, stats[0].SubmissionRate) // 1 of 2 enrolled
	require.Nil(t, stats[0].AvgGrade, "ungraded submissions carry no average")

	grade := 85
	_, err = store.GradeSubmission(ctx, "a1", "sub1", &grade, nil, timeAt(2))
	require.NoError(t, err)

	stats, err = ag.ComputeAssignmentStats(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, stats[0].AvgGrade)
	require.Equal(t, 85.0, *stats[0].AvgGrade)
}

func timeAt(ms int64) time.Time { return time.UnixMilli(ms) }

func TestSiteAnalytics(t *testing.T) {
	ag, store := seedCourse(t)
	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, lms.User{ID: "t1", Name: "T", Email: "t@x", Role: lms.RoleTeacher}))
	require.NoError(t, store.CreateUser(ctx, lms.User{ID: "s1", Name: "S1", Email: "s1@x", Role: lms.RoleStudent}))
	require.NoError(t, store.CreateUser(ctx, lms.User{ID: "s2", Name: "S2", Email: "s2@x", Role: lms.RoleStudent}))

	sa, err := ag.ComputeSiteAnalytics(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, sa.Users[lms.RoleTeacher])
	require.Equal(t, 2, sa.Users[lms.RoleStudent])
	require.Equal(t, 1, sa.TotalCourses)
	require.Len(t, sa.QuizStats, 1)
}
