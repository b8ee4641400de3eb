package lms_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/classbridge/classbridge-lms/internal/lms"
)

type recordedEvent struct {
	Type string
	Key  string
}

type captureSink struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (c *captureSink) Record(_ context.Context, typ, key string, _ any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, recordedEvent{Type: typ, Key: key})
}

func (c *captureSink) ofType(typ string) []recordedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []recordedEvent{}
	for _, e := range c.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func threeQuestions() []lms.Question {
	return []lms.Question{
		{Text: "q1", Options: []string{"a", "b", "c"}, CorrectOption: 0},
		{Text: "q2", Options: []string{"a", "b", "c"}, CorrectOption: 1},
		{Text: "q3", Options: []string{"a", "b"}, CorrectOption: 1},
	}
}

func TestScore(t *testing.T) {
	qs := threeQuestions()
	cases := []struct {
		name    string
		answers []int
		want    int
	}{
		{"all correct", []int{0, 1, 1}, 3},
		{"all wrong", []int{1, 0, 0}, 0},
		{"partial", []int{0, 0, 1}, 2},
		{"skipped counts as wrong", []int{0, lms.Unanswered, 1}, 2},
		{"out of range counts as wrong", []int{0, 99, -5}, 1},
		{"short answer slice", []int{0}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, lms.Score(qs, tc.answers))
		})
	}
}

// seedQuizWorld builds: course c1 owned by t1, lecture l1, quiz quiz1 with
// three questions, students s1 and s2 enrolled.
func seedQuizWorld(t *testing.T) (*lms.Service, *lms.MemoryStore, *captureSink) {
	t.Helper()
	ctx := context.Background()
	store := lms.NewMemoryStore()
	sink := &captureSink{}
	svc := lms.NewService(store, sink)

	require.NoError(t, store.CreateCourse(ctx, lms.Course{ID: "c1", Title: "Algebra", TeacherID: "t1"}))
	_, err := store.EnrollStudents(ctx, "c1", []string{"s1", "s2"})
	require.NoError(t, err)
	require.NoError(t, store.CreateLecture(ctx, lms.Lecture{ID: "l1", CourseID: "c1", Title: "Intro", FileType: "video", Difficulty: "easy"}))
	require.NoError(t, store.CreateQuiz(ctx, lms.Quiz{ID: "quiz1", CourseID: "c1", LectureID: "l1", Title: "Quiz 1", Questions: threeQuestions()}))
	return svc, store, sink
}

func student(id string) lms.Identity { return lms.Identity{UserID: id, Role: lms.RoleStudent} }

func TestRecordViewIdempotent(t *testing.T) {
	svc, store, _ := seedQuizWorld(t)
	ctx := context.Background()

	require.NoError(t, svc.RecordView(ctx, student("s1"), "l1"))
	require.NoError(t, svc.RecordView(ctx, student("s1"), "l1"))

	views, err := store.ListViews(ctx, "l1")
	require.NoError(t, err)
	require.Len(t, views, 1)
}

func TestRecordViewMissingLecture(t *testing.T) {
	svc, _, _ := seedQuizWorld(t)
	err := svc.RecordView(context.Background(), student("s1"), "nope")
	require.True(t, lms.IsKind(err, lms.KindNotFound))
}

func TestSubmitAttemptRequiresView(t *testing.T) {
	svc, _, _ := seedQuizWorld(t)
	_, err := svc.SubmitAttempt(context.Background(), student("s1"), "quiz1", []int{0, 1, 1})
	require.True(t, lms.IsKind(err, lms.KindPrerequisiteNotMet))
}

func TestSubmitAttemptScoresAndPersists(t *testing.T) {
	svc, store, sink := seedQuizWorld(t)
	ctx := context.Background()
	require.NoError(t, svc.RecordView(ctx, student("s1"), "l1"))

	res, err := svc.SubmitAttempt(ctx, student("s1"), "quiz1", []int{0, 0, 1})
	require.NoError(t, err)
	require.Equal(t, lms.AttemptResult{Score: 2, Total: 3}, res)

	a, err := store.GetAttempt(ctx, "quiz1", "s1")
	require.NoError(t, err)
	require.Equal(t, 2, a.Score)
	require.Equal(t, []int{0, 0, 1}, a.Answers)
	require.Len(t, sink.ofType("AttemptSubmitted"), 1)
}

func TestSubmitAttemptOnlyOnce(t *testing.T) {
	svc, store, _ := seedQuizWorld(t)
	ctx := context.Background()
	require.NoError(t, svc.RecordView(ctx, student("s1"), "l1"))

	_, err := svc.SubmitAttempt(ctx, student("s1"), "quiz1", []int{0, 1, 1})
	require.NoError(t, err)

	_, err = svc.SubmitAttempt(ctx, student("s1"), "quiz1", []int{1, 0, 0})
	require.True(t, lms.IsKind(err, lms.KindAlreadyAttempted))

	// the first attempt is untouched
	a, err := store.GetAttempt(ctx, "quiz1", "s1")
	require.NoError(t, err)
	require.Equal(t, 3, a.Score)
}

func TestSubmitAttemptAnswerCountMismatch(t *testing.T) {
	svc, _, _ := seedQuizWorld(t)
	ctx := context.Background()
	require.NoError(t, svc.RecordView(ctx, student("s1"), "l1"))

	_, err := svc.SubmitAttempt(ctx, student("s1"), "quiz1", []int{0, 1})
	require.True(t, lms.IsKind(err, lms.KindValidation))
}

func TestSubmitAttemptMissingQuiz(t *testing.T) {
	svc, _, _ := seedQuizWorld(t)
	_, err := svc.SubmitAttempt(context.Background(), student("s1"), "nope", nil)
	require.True(t, lms.IsKind(err, lms.KindNotFound))
}

func TestSubmitAttemptDanglingLecture(t *testing.T) {
	svc, store, sink := seedQuizWorld(t)
	ctx := context.Background()
	require.NoError(t, store.CreateQuiz(ctx, lms.Quiz{
		ID: "quiz2", CourseID: "c1", LectureID: "ghost", Title: "Broken", Questions: threeQuestions(),
	}))

	_, err := svc.SubmitAttempt(ctx, student("s1"), "quiz2", []int{0, 1, 1})
	require.True(t, lms.IsKind(err, lms.KindInvariantViolation))
	require.Len(t, sink.ofType("InvariantViolation"), 1)
}

func TestSubmitAttemptIndependentPerStudent(t *testing.T) {
	svc, _, _ := seedQuizWorld(t)
	ctx := context.Background()
	require.NoError(t, svc.RecordView(ctx, student("s1"), "l1"))
	require.NoError(t, svc.RecordView(ctx, student("s2"), "l1"))

	res1, err := svc.SubmitAttempt(ctx, student("s1"), "quiz1", []int{0, 1, 1})
	require.NoError(t, err)
	require.Equal(t, 3, res1.Score)

	res2, err := svc.SubmitAttempt(ctx, student("s2"), "quiz1", []int{1, 0, 0})
	require.NoError(t, err)
	require.Equal(t, 0, res2.Score)
}
