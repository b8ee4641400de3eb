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

type createCourseReq struct {
	Title       string `json:"title" validate:"required,min=2"`
	Description string `json:"description"`
	TeacherID   string `json:"teacher_id"` // admin only; teachers own what they create
}

func CreateCourseHandler(store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := authmw.IdentityFromContext(r.Context())
		var req createCourseReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		teacherID := id.UserID
		if id.Role == lms.RoleAdmin && req.TeacherID != "" {
			teacherID = req.TeacherID
		}
		c := lms.Course{
			ID:          uuid.NewString(),
			Title:       strings.TrimSpace(req.Title),
			Description: req.Description,
			TeacherID:   teacherID,
			CreatedAt:   time.Now().UnixMilli(),
		}
		if err := store.CreateCourse(r.Context(), c); err != nil {
			writeErr(w, err)
			return
		}
		writeJSONStatus(w, http.StatusCreated, c)
	}
}

// ListCoursesHandler scopes the listing by role: students see courses they
// are enrolled in, teachers see courses they own, admins see everything.
func ListCoursesHandler(store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := authmw.IdentityFromContext(r.Context())
		var f lms.CourseFilter
		switch id.Role {
		case lms.RoleStudent:
			f.StudentID = id.UserID
		case lms.RoleTeacher:
			f.TeacherID = id.UserID
		}
		courses, err := store.ListCourses(r.Context(), f)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, courses)
	}
}

func GetCourseHandler(store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := authmw.IdentityFromContext(r.Context())
		c, err := store.GetCourse(r.Context(), chi.URLParam(r, "courseID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		if !canAccessCourse(id, c) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		writeJSON(w, c)
	}
}

type enrollReq struct {
	StudentIDs []string `json:"student_ids"`
	Emails     []string `json:"emails"`
}

// EnrollStudentsHandler adds students to a course, by id or by email.
// Already-enrolled students are skipped, not errors.
func EnrollStudentsHandler(store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := authmw.IdentityFromContext(r.Context())
		courseID := chi.URLParam(r, "courseID")
		c, err := store.GetCourse(r.Context(), courseID)
		if err != nil {
			writeErr(w, err)
			return
		}
		if id.Role == lms.RoleTeacher && c.TeacherID != id.UserID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		var req enrollReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		ids := req.StudentIDs
		for _, email := range req.Emails {
			u, err := store.GetUserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(email)))
			if err != nil {
				http.Error(w, "no such user: "+email, http.StatusNotFound)
				return
			}
			if u.Role != lms.RoleStudent {
				http.Error(w, email+" is not a student", http.StatusBadRequest)
				return
			}
			ids = append(ids, u.ID)
		}
		if len(ids) == 0 {
			http.Error(w, "student_ids or emails required", http.StatusBadRequest)
			return
		}
		added, err := store.EnrollStudents(r.Context(), courseID, ids)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, map[string]int{"enrolled": added})
	}
}

// DeleteCourseHandler removes the course record. Lectures, quizzes and
// assignments under it stay (and become unreachable through course listings).
func DeleteCourseHandler(store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := authmw.IdentityFromContext(r.Context())
		courseID := chi.URLParam(r, "courseID")
		c, err := store.GetCourse(r.Context(), courseID)
		if err != nil {
			writeErr(w, err)
			return
		}
		if id.Role == lms.RoleTeacher && c.TeacherID != id.UserID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if err := store.DeleteCourse(r.Context(), courseID); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func canAccessCourse(id lms.Identity, c lms.Course) bool {
	switch id.Role {
	case lms.RoleAdmin:
		return true
	case lms.RoleTeacher:
		return c.TeacherID == id.UserID
	case lms.RoleStudent:
		for _, sid := range c.StudentIDs {
			if sid == id.UserID {
				return true
			}
		}
	}
	return false
}
