package http

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	authmw "github.com/classbridge/classbridge-lms/internal/auth/middleware"
	"github.com/classbridge/classbridge-lms/internal/lms"
	"github.com/classbridge/classbridge-lms/internal/storage"
)

// CreateAssignmentHandler accepts multipart form data: title, description,
// lecture_id, deadline (unix milliseconds) and an optional template file.
func CreateAssignmentHandler(store lms.Store, bs storage.BlobStore) http.HandlerFunc {
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
		if title == "" {
			http.Error(w, "title required", http.StatusBadRequest)
			return
		}
		deadline, err := strconv.ParseInt(r.FormValue("deadline"), 10, 64)
		if err != nil || deadline <= 0 {
			http.Error(w, "deadline must be unix milliseconds", http.StatusBadRequest)
			return
		}
		lectureID := r.FormValue("lecture_id")
		if lectureID != "" {
			l, err := store.GetLecture(r.Context(), lectureID)
			if err != nil {
				writeErr(w, err)
				return
			}
			if l.CourseID != courseID {
				http.Error(w, "lecture belongs to another course", http.StatusBadRequest)
				return
			}
		}
		a := lms.Assignment{
			ID:          uuid.NewString(),
			CourseID:    courseID,
			LectureID:   lectureID,
			Title:       title,
			Description: r.FormValue("description"),
			Deadline:    deadline,
			CreatedAt:   time.Now().UnixMilli(),
		}
		if f, hdr, err := r.FormFile("file"); err == nil {
			defer f.Close()
			key, perr := bs.Put(storage.AssignmentKey(a.ID, hdr.Filename), f)
			if perr != nil {
				http.Error(w, "file store failed", http.StatusInternalServerError)
				return
			}
			a.FilePath = key
		}
		if err := store.CreateAssignment(r.Context(), a); err != nil {
			writeErr(w, err)
			return
		}
		writeJSONStatus(w, http.StatusCreated, a)
	}
}

// ListAssignmentsHandler lists a course's assignments ordered by deadline,
// soonest first.
func ListAssignmentsHandler(store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		if !requireCourseAccess(w, r, store, courseID) {
			return
		}
		assignments, err := store.ListAssignments(r.Context(), courseID)
		if err != nil {
			writeErr(w, err)
			return
		}
		sort.SliceStable(assignments, func(i, j int) bool {
			return assignments[i].Deadline < assignments[j].Deadline
		})
		writeJSON(w, assignments)
	}
}

// GetAssignmentHandler returns the assignment. Teachers see every submission;
// students see only their own.
func GetAssignmentHandler(store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := authmw.IdentityFromContext(r.Context())
		a, err := store.GetAssignment(r.Context(), chi.URLParam(r, "assignmentID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		if !requireCourseAccess(w, r, store, a.CourseID) {
			return
		}
		if id.Role == lms.RoleStudent {
			own := []lms.Submission{}
			for _, s := range a.Submissions {
				if s.StudentID == id.UserID {
					own = append(own, s)
				}
			}
			a.Submissions = own
		}
		writeJSON(w, a)
	}
}

// SubmitAssignmentHandler uploads the student's file and records the
// submission. If the submission is rejected (duplicate, past deadline) the
// uploaded blob is removed again.
func SubmitAssignmentHandler(svc *lms.Service, bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := authmw.IdentityFromContext(r.Context())
		assignmentID := chi.URLParam(r, "assignmentID")
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			http.Error(w, "bad multipart form", http.StatusBadRequest)
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file required", http.StatusBadRequest)
			return
		}
		defer f.Close()
		key, err := bs.Put(storage.AssignmentKey(assignmentID, hdr.Filename), f)
		if err != nil {
			http.Error(w, "file store failed", http.StatusInternalServerError)
			return
		}
		sub, err := svc.SubmitAssignment(r.Context(), id, assignmentID, key)
		if err != nil {
			_ = bs.Delete(key)
			writeErr(w, err)
			return
		}
		writeJSONStatus(w, http.StatusCreated, sub)
	}
}

// EditSubmissionHandler replaces the student's file before the deadline.
func EditSubmissionHandler(svc *lms.Service, bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := authmw.IdentityFromContext(r.Context())
		assignmentID := chi.URLParam(r, "assignmentID")
		prev, prevErr := svc.Store().GetSubmissionByStudent(r.Context(), assignmentID, id.UserID)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			http.Error(w, "bad multipart form", http.StatusBadRequest)
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file required", http.StatusBadRequest)
			return
		}
		defer f.Close()
		key, err := bs.Put(storage.AssignmentKey(assignmentID, hdr.Filename), f)
		if err != nil {
			http.Error(w, "file store failed", http.StatusInternalServerError)
			return
		}
		sub, err := svc.EditSubmission(r.Context(), id, assignmentID, key)
		if err != nil {
			_ = bs.Delete(key)
			writeErr(w, err)
			return
		}
		if prevErr == nil && prev.FilePath != "" {
			_ = bs.Delete(prev.FilePath)
		}
		writeJSON(w, sub)
	}
}

func DeleteSubmissionHandler(svc *lms.Service, bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := authmw.IdentityFromContext(r.Context())
		assignmentID := chi.URLParam(r, "assignmentID")
		prev, prevErr := svc.Store().GetSubmissionByStudent(r.Context(), assignmentID, id.UserID)
		if err := svc.DeleteSubmission(r.Context(), id, assignmentID); err != nil {
			writeErr(w, err)
			return
		}
		if prevErr == nil && prev.FilePath != "" {
			_ = bs.Delete(prev.FilePath)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type gradeReq struct {
	Grade    *int    `json:"grade"`
	Feedback *string `json:"feedback"`
}

func GradeSubmissionHandler(svc *lms.Service, store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := authmw.IdentityFromContext(r.Context())
		assignmentID := chi.URLParam(r, "assignmentID")
		a, err := store.GetAssignment(r.Context(), assignmentID)
		if err != nil {
			writeErr(w, err)
			return
		}
		if !requireCourseOwner(w, r, store, a.CourseID) {
			return
		}
		var req gradeReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		sub, err := svc.GradeSubmission(r.Context(), id, assignmentID, chi.URLParam(r, "submissionID"), req.Grade, req.Feedback)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, sub)
	}
}
