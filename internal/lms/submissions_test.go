package lms_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/classbridge/classbridge-lms/internal/lms"
)

// seedAssignmentWorld builds course c1 with assignment a1 whose deadline is
// exactly `deadline`. The returned service has a frozen clock the test can
// move by reassigning svc.Now.
func seedAssignmentWorld(t *testing.T, deadline int64) (*lms.Service, *lms.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	store := lms.NewMemoryStore()
	svc := lms.NewService(store, nil)

	require.NoError(t, store.CreateCourse(ctx, lms.Course{ID: "c1", Title: "Algebra", TeacherID: "t1"}))
	_, err := store.EnrollStudents(ctx, "c1", []string{"s1", "s2"})
	require.NoError(t, err)
	require.NoError(t, store.CreateAssignment(ctx, lms.Assignment{
		ID: "a1", CourseID: "c1", Title: "Homework 1", Deadline: deadline,
	}))
	return svc, store
}

func frozen(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestSubmitAtExactDeadlineAccepted(t *testing.T) {
	const deadline = int64(1_700_000_000_000)
	svc, _ := seedAssignmentWorld(t, deadline)
	svc.Now = frozen(deadline)

	sub, err := svc.SubmitAssignment(context.Background(), student("s1"), "a1", "assignments/a1/f.pdf")
	require.NoError(t, err)
	require.Equal(t, deadline, sub.SubmittedAt)
}

func TestSubmitOneMillisecondLateRejected(t *testing.T) {
	const deadline = int64(1_700_000_000_000)
	svc, _ := seedAssignmentWorld(t, deadline)
	svc.Now = frozen(deadline + 1)

	_, err := svc.SubmitAssignment(context.Background(), student("s1"), "a1", "assignments/a1/f.pdf")
	require.True(t, lms.IsKind(err, lms.KindDeadlinePassed))
}

func TestSecondSubmissionRejected(t *testing.T) {
	const deadline = int64(1_700_000_000_000)
	svc, _ := seedAssignmentWorld(t, deadline)
	svc.Now = frozen(deadline - 1000)
	ctx := context.Background()

	_, err := svc.SubmitAssignment(ctx, student("s1"), "a1", "assignments/a1/v1.pdf")
	require.NoError(t, err)

	_, err = svc.SubmitAssignment(ctx, student("s1"), "a1", "assignments/a1/v2.pdf")
	require.True(t, lms.IsKind(err, lms.KindAlreadyExists))
}

func TestEditReplacesFileAndRestamps(t *testing.T) {
	const deadline = int64(1_700_000_000_000)
	svc, _ := seedAssignmentWorld(t, deadline)
	ctx := context.Background()

	svc.Now = frozen(deadline - 5000)
	first, err := svc.SubmitAssignment(ctx, student("s1"), "a1", "assignments/a1/v1.pdf")
	require.NoError(t, err)

	svc.Now = frozen(deadline - 1000)
	edited, err := svc.EditSubmission(ctx, student("s1"), "a1", "assignments/a1/v2.pdf")
	require.NoError(t, err)
	require.Equal(t, "assignments/a1/v2.pdf", edited.FilePath)
	require.Greater(t, edited.SubmittedAt, first.SubmittedAt)
	require.Equal(t, first.ID, edited.ID)
}

func TestEditAfterDeadlineRejected(t *testing.T) {
	const deadline = int64(1_700_000_000_000)
	svc, _ := seedAssignmentWorld(t, deadline)
	ctx := context.Background()

	svc.Now = frozen(deadline - 1000)
	_, err := svc.SubmitAssignment(ctx, student("s1"), "a1", "assignments/a1/v1.pdf")
	require.NoError(t, err)

	svc.Now = frozen(deadline + 1)
	_, err = svc.EditSubmission(ctx, student("s1"), "a1", "assignments/a1/v2.pdf")
	require.True(t, lms.IsKind(err, lms.KindDeadlinePassed))
}

func TestEditWithoutSubmissionRejected(t *testing.T) {
	const deadline = int64(1_700_000_000_000)
	svc, _ := seedAssignmentWorld(t, deadline)
	svc.Now = frozen(deadline - 1000)

	_, err := svc.EditSubmission(context.Background(), student("s1"), "a1", "assignments/a1/v1.pdf")
	require.True(t, lms.IsKind(err, lms.KindNotFound))
}

func TestDeleteThenResubmit(t *testing.T) {
	const deadline = int64(1_700_000_000_000)
	svc, _ := seedAssignmentWorld(t, deadline)
	svc.Now = frozen(deadline - 1000)
	ctx := context.Background()

	_, err := svc.SubmitAssignment(ctx, student("s1"), "a1", "assignments/a1/v1.pdf")
	require.NoError(t, err)
	require.NoError(t, svc.DeleteSubmission(ctx, student("s1"), "a1"))

	// the (assignment, student) pair is back to not-submitted
	sub, err := svc.SubmitAssignment(ctx, student("s1"), "a1", "assignments/a1/v2.pdf")
	require.NoError(t, err)
	require.Equal(t, "assignments/a1/v2.pdf", sub.FilePath)
}

func TestDeleteAfterDeadlineRejected(t *testing.T) {
	const deadline = int64(1_700_000_000_000)
	svc, _ := seedAssignmentWorld(t, deadline)
	ctx := context.Background()

	svc.Now = frozen(deadline - 1000)
	_, err := svc.SubmitAssignment(ctx, student("s1"), "a1", "assignments/a1/v1.pdf")
	require.NoError(t, err)

	svc.Now = frozen(deadline + 1)
	require.True(t, lms.IsKind(svc.DeleteSubmission(ctx, student("s1"), "a1"), lms.KindDeadlinePassed))
}

func TestGradeSubmission(t *testing.T) {
	const deadline = int64(1_700_000_000_000)
	svc, _ := seedAssignmentWorld(t, deadline)
	svc.Now = frozen(deadline - 1000)
	ctx := context.Background()
	teacher := lms.Identity{UserID: "t1", Role: lms.RoleTeacher}

	sub, err := svc.SubmitAssignment(ctx, student("s1"), "a1", "assignments/a1/v1.pdf")
	require.NoError(t, err)

	grade := 85
	feedback := "solid work"
	graded, err := svc.GradeSubmission(ctx, teacher, "a1", sub.ID, &grade, &feedback)
	require.NoError(t, err)
	require.Equal(t, 85, *graded.Grade)
	require.Equal(t, "solid work", *graded.Feedback)
	require.NotNil(t, graded.GradedAt)

	// grading works past the deadline, and re-grading re-stamps
	svc.Now = frozen(deadline + 60_000)
	regrade := 90
	regraded, err := svc.GradeSubmission(ctx, teacher, "a1", sub.ID, &regrade, nil)
	require.NoError(t, err)
	require.Equal(t, 90, *regraded.Grade)
	require.Equal(t, "solid work", *regraded.Feedback)
	require.Greater(t, *regraded.GradedAt, *graded.GradedAt)
}

func TestGradeValidation(t *testing.T) {
	const deadline = int64(1_700_000_000_000)
	svc, _ := seedAssignmentWorld(t, deadline)
	svc.Now = frozen(deadline - 1000)
	ctx := context.Background()
	teacher := lms.Identity{UserID: "t1", Role: lms.RoleTeacher}

	sub, err := svc.SubmitAssignment(ctx, student("s1"), "a1", "assignments/a1/v1.pdf")
	require.NoError(t, err)

	over := 101
	_, err = svc.GradeSubmission(ctx, teacher, "a1", sub.ID, &over, nil)
	require.True(t, lms.IsKind(err, lms.KindValidation))

	under := -1
	_, err = svc.GradeSubmission(ctx, teacher, "a1", sub.ID, &under, nil)
	require.True(t, lms.IsKind(err, lms.KindValidation))

	_, err = svc.GradeSubmission(ctx, teacher, "a1", sub.ID, nil, nil)
	require.True(t, lms.IsKind(err, lms.KindValidation))
}
