package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/classbridge/classbridge-lms/internal/analytics"
	authmw "github.com/classbridge/classbridge-lms/internal/auth/middleware"
	"github.com/classbridge/classbridge-lms/internal/lms"
	"github.com/classbridge/classbridge-lms/internal/report"
)

// QuizGradeHandler asks the language model to critique the calling student's
// submitted attempt, question by question. The numeric score still comes from
// the scoring engine; the model only adds feedback text.
func QuizGradeHandler(store lms.Store, rep *report.Reporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := authmw.IdentityFromContext(r.Context())
		var req struct {
			QuizID string `json:"quiz_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuizID == "" {
			http.Error(w, "quiz_id required", http.StatusBadRequest)
			return
		}
		quiz, err := store.GetQuiz(r.Context(), req.QuizID)
		if err != nil {
			writeErr(w, err)
			return
		}
		attempt, err := store.GetAttempt(r.Context(), req.QuizID, id.UserID)
		if err != nil {
			writeErr(w, err)
			return
		}
		grade, err := rep.GradeQuiz(r.Context(), quiz, attempt.Answers)
		if err != nil {
			http.Error(w, "report generation failed: "+err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, grade)
	}
}

// CourseReportHandler produces a narrative teacher report for the course:
// per-question heatmaps for every quiz plus assignment submission stats,
// summarized by the language model.
func CourseReportHandler(store lms.Store, ag *analytics.Aggregator, rep *report.Reporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		course, err := store.GetCourse(r.Context(), courseID)
		if err != nil {
			writeErr(w, err)
			return
		}
		if !requireCourseOwner(w, r, store, courseID) {
			return
		}
		perf, err := quizPerformance(r, store, ag, courseID)
		if err != nil {
			writeErr(w, err)
			return
		}
		assigns, err := ag.ComputeAssignmentStats(r.Context(), courseID)
		if err != nil {
			writeErr(w, err)
			return
		}
		text, err := rep.CourseReport(r.Context(), course.Title, perf, assigns)
		if err != nil {
			http.Error(w, "report generation failed: "+err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, map[string]string{"report": text})
	}
}

// QuizReportHandler is the quiz-only variant of the course report.
func QuizReportHandler(store lms.Store, ag *analytics.Aggregator, rep *report.Reporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		course, err := store.GetCourse(r.Context(), courseID)
		if err != nil {
			writeErr(w, err)
			return
		}
		if !requireCourseOwner(w, r, store, courseID) {
			return
		}
		perf, err := quizPerformance(r, store, ag, courseID)
		if err != nil {
			writeErr(w, err)
			return
		}
		text, err := rep.QuizReport(r.Context(), course.Title, perf)
		if err != nil {
			http.Error(w, "report generation failed: "+err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, map[string]string{"report": text})
	}
}

func quizPerformance(r *http.Request, store lms.Store, ag *analytics.Aggregator, courseID string) ([]report.QuizPerformance, error) {
	quizzes, err := store.ListQuizzes(r.Context(), courseID, "")
	if err != nil {
		return nil, err
	}
	perf := make([]report.QuizPerformance, 0, len(quizzes))
	for _, q := range quizzes {
		cells, err := ag.ComputeHeatmap(r.Context(), q.ID)
		if err != nil {
			return nil, err
		}
		perf = append(perf, report.QuizPerformance{QuizTitle: q.Title, Cells: cells})
	}
	return perf, nil
}
