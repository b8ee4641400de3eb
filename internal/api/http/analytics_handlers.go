package http

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/classbridge/classbridge-lms/internal/analytics"
	"github.com/classbridge/classbridge-lms/internal/audit"
	authmw "github.com/classbridge/classbridge-lms/internal/auth/middleware"
	"github.com/classbridge/classbridge-lms/internal/lms"
)

// ProgressHandler reports one student's standing in a course. Students get
// their own progress; teachers and admins may pass ?student_id=.
func ProgressHandler(ag *analytics.Aggregator, store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := authmw.IdentityFromContext(r.Context())
		courseID := chi.URLParam(r, "courseID")
		if !requireCourseAccess(w, r, store, courseID) {
			return
		}
		studentID := id.UserID
		if id.Role != lms.RoleStudent {
			studentID = r.URL.Query().Get("student_id")
			if studentID == "" {
				http.Error(w, "student_id required", http.StatusBadRequest)
				return
			}
		}
		p, err := ag.ComputeProgress(r.Context(), courseID, studentID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, p)
	}
}

// QuizStatsHandler rolls up quiz statistics per course. course_id "all"
// covers the whole site (admin dashboards).
func QuizStatsHandler(ag *analytics.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := r.URL.Query().Get("course_id")
		if courseID == "" {
			courseID = "all"
		}
		stats, err := ag.ComputeQuizStats(r.Context(), courseID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, stats)
	}
}

func HeatmapHandler(ag *analytics.Aggregator, store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := chi.URLParam(r, "quizID")
		q, err := store.GetQuiz(r.Context(), quizID)
		if err != nil {
			writeErr(w, err)
			return
		}
		if !requireCourseOwner(w, r, store, q.CourseID) {
			return
		}
		cells, err := ag.ComputeHeatmap(r.Context(), quizID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, cells)
	}
}

// HeatmapCSVHandler streams the per-question correct rates as a CSV download.
func HeatmapCSVHandler(ag *analytics.Aggregator, store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := chi.URLParam(r, "quizID")
		q, err := store.GetQuiz(r.Context(), quizID)
		if err != nil {
			writeErr(w, err)
			return
		}
		if !requireCourseOwner(w, r, store, q.CourseID) {
			return
		}
		cells, err := ag.ComputeHeatmap(r.Context(), quizID)
		if err != nil {
			writeErr(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "heatmap-"+quizID+".csv"))
		cw := csv.NewWriter(w)
		_ = cw.Write([]string{"question_number", "question_text", "correct_rate"})
		for _, c := range cells {
			_ = cw.Write([]string{
				strconv.Itoa(c.QuestionNumber),
				c.QuestionText,
				strconv.FormatFloat(c.CorrectRate, 'f', 2, 64),
			})
		}
		cw.Flush()
	}
}

// WeakestQuestionHandler returns the lowest correct-rate question in the
// course, or null when no quiz has questions.
func WeakestQuestionHandler(ag *analytics.Aggregator, store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		if !requireCourseOwner(w, r, store, courseID) {
			return
		}
		wq, err := ag.FindWeakest(r.Context(), courseID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, wq)
	}
}

func AssignmentStatsHandler(ag *analytics.Aggregator, store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		if !requireCourseOwner(w, r, store, courseID) {
			return
		}
		stats, err := ag.ComputeAssignmentStats(r.Context(), courseID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, stats)
	}
}

func SiteAnalyticsHandler(ag *analytics.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sa, err := ag.ComputeSiteAnalytics(r.Context())
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, sa)
	}
}

// RecentEventsHandler exposes the audit tail for admin dashboards.
func RecentEventsHandler(log *audit.EventLog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 100
		if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 1000 {
			limit = v
		}
		events, err := log.Recent(r.Context(), limit)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, events)
	}
}
