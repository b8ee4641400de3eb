package report

import (
	"context"
	"strings"
	"time"

	"github.com/classbridge/classbridge-lms/internal/analytics"
	"github.com/classbridge/classbridge-lms/internal/lms"
)

// Reporter bounds every generator call with a timeout; the collaborator has
// unbounded latency and no implicit retry.
type Reporter struct {
	gen     TextGenerator
	timeout time.Duration
}

func NewReporter(gen TextGenerator, timeout time.Duration) *Reporter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Reporter{gen: gen, timeout: timeout}
}

// GradeQuiz asks the tutor to grade an answer vector and parses the reply.
func (r *Reporter) GradeQuiz(ctx context.Context, quiz lms.Quiz, answers []int) (QuizGrade, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	system, user := QuizGradePrompt(quiz, answers)
	raw, err := r.gen.Generate(ctx, system, user)
	if err != nil {
		return QuizGrade{}, err
	}
	return ParseQuizGrade(raw, len(quiz.Questions))
}

// CourseReport produces the combined quiz + assignment narrative.
func (r *Reporter) CourseReport(ctx context.Context, courseTitle string, perf []QuizPerformance, assigns []analytics.AssignmentStats) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	system, user := CourseReportPrompt(courseTitle, perf, assigns)
	out, err := r.gen.Generate(ctx, system, user)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// QuizReport produces the weak-question narrative for a course.
func (r *Reporter) QuizReport(ctx context.Context, courseTitle string, perf []QuizPerformance) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	system, user := QuizReportPrompt(courseTitle, perf)
	out, err := r.gen.Generate(ctx, system, user)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
