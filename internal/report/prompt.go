// Package report formats aggregated course statistics into prompts for an
// external text-generation service and parses its structured replies.
package report

import (
	"fmt"
	"strings"

	"github.com/classbridge/classbridge-lms/internal/analytics"
	"github.com/classbridge/classbridge-lms/internal/lms"
)

// QuizPerformance pairs a quiz title with its heatmap, the aggregator output
// the prompts are built from.
type QuizPerformance struct {
	QuizTitle string
	Cells     []analytics.HeatmapCell
}

const quizGradeSystem = `You are an AI tutor. Grade this quiz.
For each question return:
 - question (number)
 - correct (true/false)
 - explanation
 - tip (if incorrect)
Then give one overall "recommendation" (topics to review).

Return exactly one JSON object:
` + "```json" + `
{
  "feedback": [ { "question":1, "correct":true, "explanation":"...", "tip":"..." } ],
  "recommendation": "..."
}
` + "```"

// QuizGradePrompt lays out the student's answer against the key, question by
// question. Out-of-range selections render as an empty answer.
func QuizGradePrompt(quiz lms.Quiz, answers []int) (system, user string) {
	var b strings.Builder
	b.WriteString("Quiz Attempt:\n")
	for i, q := range quiz.Questions {
		student := ""
		if i < len(answers) && answers[i] >= 0 && answers[i] < len(q.Options) {
			student = q.Options[answers[i]]
		}
		correct := ""
		if q.CorrectOption >= 0 && q.CorrectOption < len(q.Options) {
			correct = q.Options[q.CorrectOption]
		}
		fmt.Fprintf(&b, "\nQ%d: %s\n- Student: %q\n- Correct: %q\n", i+1, q.Text, student, correct)
	}
	return quizGradeSystem, b.String()
}

const courseReportSystem = `You are an expert academic advisor.
Given both quiz correctness percentages and assignment submission/grade statistics
for a course, identify:
  1) Any quiz questions where a majority of students answered incorrectly (correct rate < 50%).
  2) Any assignments where submission rate < 50% or average grade < 60%.
For each item, output a bullet point with:
  - The quiz title and question number/text OR assignment title.
  - The relevant percentage(s).
  - A recommendation (e.g., "revisit lecture on X", "remind students to submit", etc.)
Return a single bullet-point report.`

// CourseReportPrompt combines quiz heatmaps and assignment rollups into the
// advisor prompt.
func CourseReportPrompt(courseTitle string, perf []QuizPerformance, assigns []analytics.AssignmentStats) (system, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\n\nQuiz Performance:\n", courseTitle)
	writeQuizLines(&b, perf)
	b.WriteString("\nAssignment Performance:\n")
	for _, a := range assigns {
		fmt.Fprintf(&b, "Assignment: %s\n  - Submission rate: %.0f%%\n", a.Title, a.SubmissionRate)
		if a.AvgGrade != nil {
			fmt.Fprintf(&b, "  - Average grade: %.0f%%\n", *a.AvgGrade)
		}
	}
	return courseReportSystem, b.String()
}

const quizReportSystem = `You are an expert academic advisor.
Given the per-question correct percentages for a course,
identify every question where the majority of students got it wrong
(i.e. correct rate < 50%).
For each such question, output:
  - Quiz title
  - Question number and text
  - Percentage correct
  - The lecture/module name that instructors should revisit (inferred from the question text).
Return a bullet-point report.`

// QuizReportPrompt lists every question's correct percentage for the course.
func QuizReportPrompt(courseTitle string, perf []QuizPerformance) (system, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\n\nPerformance:\n", courseTitle)
	writeQuizLines(&b, perf)
	return quizReportSystem, b.String()
}

func writeQuizLines(b *strings.Builder, perf []QuizPerformance) {
	for _, p := range perf {
		fmt.Fprintf(b, "Quiz: %s\n", p.QuizTitle)
		for _, c := range p.Cells {
			fmt.Fprintf(b, "  Q%d (%s): %.0f%% correct\n", c.QuestionNumber, c.QuestionText, c.CorrectRate*100)
		}
	}
}
