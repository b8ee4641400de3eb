package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	authmw "github.com/classbridge/classbridge-lms/internal/auth/middleware"
	"github.com/classbridge/classbridge-lms/internal/lms"
)

type createQuizReq struct {
	Title     string         `json:"title" validate:"required,min=2"`
	LectureID string         `json:"lecture_id" validate:"required"`
	Questions []lms.Question `json:"questions" validate:"required,min=1,dive"`
}

func CreateQuizHandler(store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		if !requireCourseOwner(w, r, store, courseID) {
			return
		}
		var req createQuizReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, q := range req.Questions {
			if strings.TrimSpace(q.Text) == "" {
				http.Error(w, "question text required", http.StatusBadRequest)
				return
			}
			if len(q.Options) < 2 {
				http.Error(w, "each question needs at least 2 options", http.StatusBadRequest)
				return
			}
			if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
				http.Error(w, "correct_option out of range", http.StatusBadRequest)
				return
			}
		}
		l, err := store.GetLecture(r.Context(), req.LectureID)
		if err != nil {
			writeErr(w, err)
			return
		}
		if l.CourseID != courseID {
			http.Error(w, "lecture belongs to another course", http.StatusBadRequest)
			return
		}
		quiz := lms.Quiz{
			ID:        uuid.NewString(),
			CourseID:  courseID,
			LectureID: req.LectureID,
			Title:     strings.TrimSpace(req.Title),
			Questions: req.Questions,
			CreatedAt: time.Now().UnixMilli(),
		}
		if err := store.CreateQuiz(r.Context(), quiz); err != nil {
			writeErr(w, err)
			return
		}
		writeJSONStatus(w, http.StatusCreated, quiz)
	}
}

// questionView is a question with the answer key stripped, the shape students
// see before submitting.
type questionView struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

type quizView struct {
	ID        string         `json:"id"`
	CourseID  string         `json:"course_id"`
	LectureID string         `json:"lecture_id"`
	Title     string         `json:"title"`
	Questions []questionView `json:"questions,omitempty"`
	CreatedAt int64          `json:"created_at,omitempty"`
}

func sanitizeQuiz(q lms.Quiz) quizView {
	v := quizView{
		ID:        q.ID,
		CourseID:  q.CourseID,
		LectureID: q.LectureID,
		Title:     q.Title,
		CreatedAt: q.CreatedAt,
	}
	for _, question := range q.Questions {
		v.Questions = append(v.Questions, questionView{Text: question.Text, Options: question.Options})
	}
	return v
}

func ListQuizzesHandler(store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := authmw.IdentityFromContext(r.Context())
		courseID := chi.URLParam(r, "courseID")
		if !requireCourseAccess(w, r, store, courseID) {
			return
		}
		quizzes, err := store.ListQuizzes(r.Context(), courseID, r.URL.Query().Get("lecture_id"))
		if err != nil {
			writeErr(w, err)
			return
		}
		if id.Role != lms.RoleStudent {
			writeJSON(w, quizzes)
			return
		}
		out := make([]quizView, 0, len(quizzes))
		for _, q := range quizzes {
			out = append(out, sanitizeQuiz(q))
		}
		writeJSON(w, out)
	}
}

// GetQuizHandler returns the quiz. Students get questions without the answer
// key, plus their own attempt if they have one.
func GetQuizHandler(store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := authmw.IdentityFromContext(r.Context())
		q, err := store.GetQuiz(r.Context(), chi.URLParam(r, "quizID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		if !requireCourseAccess(w, r, store, q.CourseID) {
			return
		}
		if id.Role != lms.RoleStudent {
			writeJSON(w, q)
			return
		}
		view := sanitizeQuiz(q)
		resp := map[string]any{"quiz": view}
		if a, err := store.GetAttempt(r.Context(), q.ID, id.UserID); err == nil {
			resp["attempt"] = a
		}
		writeJSON(w, resp)
	}
}

type submitAttemptReq struct {
	Answers []int `json:"answers"`
}

// SubmitAttemptHandler scores and records the student's one allowed attempt.
func SubmitAttemptHandler(svc *lms.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := authmw.IdentityFromContext(r.Context())
		var req submitAttemptReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		res, err := svc.SubmitAttempt(r.Context(), id, chi.URLParam(r, "quizID"), req.Answers)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, res)
	}
}

// ListAttemptsHandler: teachers see every attempt on the quiz, students only
// their own.
func ListAttemptsHandler(store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := authmw.IdentityFromContext(r.Context())
		quizID := chi.URLParam(r, "quizID")
		q, err := store.GetQuiz(r.Context(), quizID)
		if err != nil {
			writeErr(w, err)
			return
		}
		if !requireCourseAccess(w, r, store, q.CourseID) {
			return
		}
		if id.Role == lms.RoleStudent {
			a, err := store.GetAttempt(r.Context(), quizID, id.UserID)
			if err != nil {
				writeErr(w, err)
				return
			}
			writeJSON(w, []lms.Attempt{a})
			return
		}
		attempts, err := store.ListAttempts(r.Context(), quizID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, attempts)
	}
}
