package http

import (
	"net/http"
	"sort"
	"time"

	authmw "github.com/classbridge/classbridge-lms/internal/auth/middleware"
	"github.com/classbridge/classbridge-lms/internal/lms"
)

type offlineCourse struct {
	Course      lms.Course          `json:"course"`
	Lectures    []lectureWithStatus `json:"lectures"`
	Quizzes     []quizView          `json:"quizzes"`
	Assignments []lms.Assignment    `json:"assignments"`
}

type offlineSnapshot struct {
	GeneratedAt int64           `json:"generated_at"`
	Courses     []offlineCourse `json:"courses"`
}

// OfflineSnapshotHandler bundles everything a student client needs to work
// without connectivity: enrolled courses with lectures, answer-key-stripped
// quizzes and assignments. Attempt and submission writes still need the
// server; the snapshot is read-only material.
func OfflineSnapshotHandler(store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := authmw.IdentityFromContext(r.Context())
		courses, err := store.ListCourses(r.Context(), lms.CourseFilter{StudentID: id.UserID})
		if err != nil {
			writeErr(w, err)
			return
		}
		snap := offlineSnapshot{GeneratedAt: time.Now().UnixMilli()}
		for _, c := range courses {
			oc := offlineCourse{Course: c}

			lectures, err := store.ListLectures(r.Context(), c.ID)
			if err != nil {
				writeErr(w, err)
				return
			}
			for _, l := range lectures {
				viewed, err := store.HasViewed(r.Context(), l.ID, id.UserID)
				if err != nil {
					writeErr(w, err)
					return
				}
				oc.Lectures = append(oc.Lectures, lectureWithStatus{Lecture: l, Viewed: viewed})
			}

			quizzes, err := store.ListQuizzes(r.Context(), c.ID, "")
			if err != nil {
				writeErr(w, err)
				return
			}
			for _, q := range quizzes {
				oc.Quizzes = append(oc.Quizzes, sanitizeQuiz(q))
			}

			assignments, err := store.ListAssignments(r.Context(), c.ID)
			if err != nil {
				writeErr(w, err)
				return
			}
			sort.SliceStable(assignments, func(i, j int) bool {
				return assignments[i].Deadline < assignments[j].Deadline
			})
			oc.Assignments = assignments

			snap.Courses = append(snap.Courses, oc)
		}
		writeJSON(w, snap)
	}
}
