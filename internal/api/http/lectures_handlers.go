package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	authmw "github.com/classbridge/classbridge-lms/internal/auth/middleware"
	"github.com/classbridge/classbridge-lms/internal/lms"
	"github.com/classbridge/classbridge-lms/internal/storage"
)

const maxUploadBytes = 512 << 20 // lecture videos can be large

// CreateLectureHandler accepts multipart form data: title, description,
// file_type (video|pdf), difficulty (easy|medium|hard) and the media file.
func CreateLectureHandler(store lms.Store, bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		if !requireCourseOwner(w, r, store, courseID) {
			return
		}
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			http.Error(w, "bad multipart form", http.StatusBadRequest)
			return
		}
		title := strings.TrimSpace(r.FormValue("title"))
		fileType := r.FormValue("file_type")
		difficulty := r.FormValue("difficulty")
		if title == "" {
			http.Error(w, "title required", http.StatusBadRequest)
			return
		}
		if fileType != "video" && fileType != "pdf" {
			http.Error(w, "file_type must be video or pdf", http.StatusBadRequest)
			return
		}
		if difficulty != "easy" && difficulty != "medium" && difficulty != "hard" {
			http.Error(w, "difficulty must be easy, medium or hard", http.StatusBadRequest)
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file required", http.StatusBadRequest)
			return
		}
		defer f.Close()
		key, err := bs.Put(storage.LectureKey(courseID, hdr.Filename), f)
		if err != nil {
			http.Error(w, "file store failed", http.StatusInternalServerError)
			return
		}
		l := lms.Lecture{
			ID:          uuid.NewString(),
			CourseID:    courseID,
			Title:       title,
			Description: r.FormValue("description"),
			FilePath:    key,
			FileType:    fileType,
			Difficulty:  difficulty,
			CreatedAt:   time.Now().UnixMilli(),
		}
		if err := store.CreateLecture(r.Context(), l); err != nil {
			writeErr(w, err)
			return
		}
		writeJSONStatus(w, http.StatusCreated, l)
	}
}

type lectureWithStatus struct {
	lms.Lecture
	Viewed bool `json:"viewed"`
}

// ListLecturesHandler lists a course's lectures. For students each entry
// carries a viewed flag so the client can render progress.
func ListLecturesHandler(store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := authmw.IdentityFromContext(r.Context())
		courseID := chi.URLParam(r, "courseID")
		if !requireCourseAccess(w, r, store, courseID) {
			return
		}
		lectures, err := store.ListLectures(r.Context(), courseID)
		if err != nil {
			writeErr(w, err)
			return
		}
		if id.Role != lms.RoleStudent {
			writeJSON(w, lectures)
			return
		}
		out := make([]lectureWithStatus, 0, len(lectures))
		for _, l := range lectures {
			viewed, err := store.HasViewed(r.Context(), l.ID, id.UserID)
			if err != nil {
				writeErr(w, err)
				return
			}
			out = append(out, lectureWithStatus{Lecture: l, Viewed: viewed})
		}
		writeJSON(w, out)
	}
}

func GetLectureHandler(store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, err := store.GetLecture(r.Context(), chi.URLParam(r, "lectureID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		if !requireCourseAccess(w, r, store, l.CourseID) {
			return
		}
		writeJSON(w, l)
	}
}

// RecordViewHandler marks the lecture as viewed by the calling student.
// Replays are fine; the first view wins and later ones are no-ops.
func RecordViewHandler(svc *lms.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := authmw.IdentityFromContext(r.Context())
		if err := svc.RecordView(r.Context(), id, chi.URLParam(r, "lectureID")); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, map[string]bool{"viewed": true})
	}
}

// ListViewsHandler reports which students viewed the lecture (teacher view).
func ListViewsHandler(store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lectureID := chi.URLParam(r, "lectureID")
		l, err := store.GetLecture(r.Context(), lectureID)
		if err != nil {
			writeErr(w, err)
			return
		}
		if !requireCourseOwner(w, r, store, l.CourseID) {
			return
		}
		views, err := store.ListViews(r.Context(), lectureID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, views)
	}
}

// requireCourseAccess loads the course and checks the caller may read it,
// writing the error response itself on failure.
func requireCourseAccess(w http.ResponseWriter, r *http.Request, store lms.Store, courseID string) bool {
	id := authmw.IdentityFromContext(r.Context())
	c, err := store.GetCourse(r.Context(), courseID)
	if err != nil {
		writeErr(w, err)
		return false
	}
	if !canAccessCourse(id, c) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return false
	}
	return true
}

// requireCourseOwner is the write-side check: owning teacher or admin.
func requireCourseOwner(w http.ResponseWriter, r *http.Request, store lms.Store, courseID string) bool {
	id := authmw.IdentityFromContext(r.Context())
	c, err := store.GetCourse(r.Context(), courseID)
	if err != nil {
		writeErr(w, err)
		return false
	}
	if id.Role != lms.RoleAdmin && c.TeacherID != id.UserID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return false
	}
	return true
}
