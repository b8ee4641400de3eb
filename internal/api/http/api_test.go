package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/classbridge/classbridge-lms/internal/analytics"
	api "github.com/classbridge/classbridge-lms/internal/api/http"
	authmw "github.com/classbridge/classbridge-lms/internal/auth/middleware"
	"github.com/classbridge/classbridge-lms/internal/lms"
	"github.com/classbridge/classbridge-lms/internal/rbac"
	"github.com/classbridge/classbridge-lms/internal/storage"
)

type env struct {
	srv   *httptest.Server
	store *lms.MemoryStore
}

// newEnv wires the real middleware chain (JWT, role refresh, RBAC) around the
// handlers under test, backed by the in-memory store.
func newEnv(t *testing.T) *env {
	t.Helper()
	store := lms.NewMemoryStore()
	svc := lms.NewService(store, nil)
	ag := analytics.NewAggregator(store)
	authSvc := authmw.NewAuthService("test-secret", time.Hour)
	bs, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Post("/auth/register", api.RegisterHandler(store))
	r.Post("/auth/login", api.LoginHandler(store, authSvc))
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(authSvc))
		pr.Use(authmw.AttachRoleFromStore(store))

		pr.Get("/auth/me", api.MeHandler(store))
		pr.With(rbac.Require("course:create")).Post("/courses", api.CreateCourseHandler(store))
		pr.With(rbac.Require("course:view")).Get("/courses", api.ListCoursesHandler(store))
		pr.With(rbac.Require("course:enroll")).Post("/courses/{courseID}/students", api.EnrollStudentsHandler(store))
		pr.With(rbac.Require("lecture:create")).Post("/courses/{courseID}/lectures", api.CreateLectureHandler(store, bs))
		pr.With(rbac.Require("lecture:view")).Get("/courses/{courseID}/lectures", api.ListLecturesHandler(store))
		pr.With(rbac.Require("lecture:view")).Post("/lectures/{lectureID}/view", api.RecordViewHandler(svc))
		pr.With(rbac.Require("quiz:create")).Post("/courses/{courseID}/quizzes", api.CreateQuizHandler(store))
		pr.With(rbac.Require("quiz:view")).Get("/quizzes/{quizID}", api.GetQuizHandler(store))
		pr.With(rbac.Require("quiz:attempt")).Post("/quizzes/{quizID}/attempt", api.SubmitAttemptHandler(svc))
		pr.With(rbac.Require("analytics:course")).Get("/quizzes/{quizID}/heatmap", api.HeatmapHandler(ag, store))
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &env{srv: srv, store: store}
}

func (e *env) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, out
}

func (e *env) signup(t *testing.T, name, email, role string) (token, userID string) {
	t.Helper()
	resp, body := e.do(t, "POST", "/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "secret123", "role": role,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = e.do(t, "POST", "/auth/login", "", map[string]string{
		"email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var login struct {
		Token string   `json:"token"`
		User  lms.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(body, &login))
	return login.Token, login.User.ID
}

func TestRegisterLoginMe(t *testing.T) {
	e := newEnv(t)
	token, _ := e.signup(t, "Ana", "ana@example.com", "student")

	resp, body := e.do(t, "GET", "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var u lms.User
	require.NoError(t, json.Unmarshal(body, &u))
	require.Equal(t, "ana@example.com", u.Email)
	require.NotContains(t, string(body), "password", "hashes never leave the server")
}

func TestLoginBadPassword(t *testing.T) {
	e := newEnv(t)
	e.signup(t, "Ana", "ana@example.com", "student")
	resp, _ := e.do(t, "POST", "/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStudentCannotCreateCourse(t *testing.T) {
	e := newEnv(t)
	token, _ := e.signup(t, "Ana", "ana@example.com", "student")
	resp, _ := e.do(t, "POST", "/courses", token, map[string]string{"title": "Nope"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCourseListingIsScoped(t *testing.T) {
	e := newEnv(t)
	teacher, teacherID := e.signup(t, "Tom", "tom@example.com", "teacher")
	studentTok, studentID := e.signup(t, "Ana", "ana@example.com", "student")

	resp, body := e.do(t, "POST", "/courses", teacher, map[string]string{"title": "Algebra"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var course lms.Course
	require.NoError(t, json.Unmarshal(body, &course))
	require.Equal(t, teacherID, course.TeacherID)

	// the student sees nothing until enrolled
	resp, body = e.do(t, "GET", "/courses", studentTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "[]\n", string(body))

	resp, _ = e.do(t, "POST", "/courses/"+course.ID+"/students", teacher, map[string]any{
		"student_ids": []string{studentID},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = e.do(t, "GET", "/courses", studentTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed []lms.Course
	require.NoError(t, json.Unmarshal(body, &listed))
	require.Len(t, listed, 1)
}

// quizFixture drives the full authoring flow over HTTP: course, lecture
// (multipart upload), enrollment and a two-question quiz.
func quizFixture(t *testing.T, e *env) (teacherTok, studentTok, quizID, lectureID string) {
	teacherTok, _ = e.signup(t, "Tom", "tom@example.com", "teacher")
	studentTok, studentID := e.signup(t, "Ana", "ana@example.com", "student")

	resp, body := e.do(t, "POST", "/courses", teacherTok, map[string]string{"title": "Algebra"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var course lms.Course
	require.NoError(t, json.Unmarshal(body, &course))

	resp, _ = e.do(t, "POST", "/courses/"+course.ID+"/students", teacherTok, map[string]any{
		"student_ids": []string{studentID},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// multipart lecture upload
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "Intro"))
	require.NoError(t, mw.WriteField("file_type", "pdf"))
	require.NoError(t, mw.WriteField("difficulty", "easy"))
	fw, err := mw.CreateFormFile("file", "intro.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest("POST", e.srv.URL+"/courses/"+course.ID+"/lectures", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+teacherTok)
	lresp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	lbody, _ := io.ReadAll(lresp.Body)
	lresp.Body.Close()
	require.Equal(t, http.StatusCreated, lresp.StatusCode, string(lbody))
	var lecture lms.Lecture
	require.NoError(t, json.Unmarshal(lbody, &lecture))

	resp, body = e.do(t, "POST", "/courses/"+course.ID+"/quizzes", teacherTok, map[string]any{
		"title":      "Quiz 1",
		"lecture_id": lecture.ID,
		"questions": []map[string]any{
			{"text": "first", "options": []string{"a", "b"}, "correct_option": 0},
			{"text": "second", "options": []string{"a", "b"}, "correct_option": 1},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var quiz lms.Quiz
	require.NoError(t, json.Unmarshal(body, &quiz))
	return teacherTok, studentTok, quiz.ID, lecture.ID
}

func TestQuizFlow(t *testing.T) {
	e := newEnv(t)
	_, studentTok, quizID, lectureID := quizFixture(t, e)

	// attempting before viewing the lecture is rejected
	resp, _ := e.do(t, "POST", "/quizzes/"+quizID+"/attempt", studentTok, map[string]any{"answers": []int{0, 1}})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = e.do(t, "POST", "/lectures/"+lectureID+"/view", studentTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := e.do(t, "POST", "/quizzes/"+quizID+"/attempt", studentTok, map[string]any{"answers": []int{0, 0}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var res lms.AttemptResult
	require.NoError(t, json.Unmarshal(body, &res))
	require.Equal(t, lms.AttemptResult{Score: 1, Total: 2}, res)

	// second attempt conflicts
	resp, _ = e.do(t, "POST", "/quizzes/"+quizID+"/attempt", studentTok, map[string]any{"answers": []int{0, 1}})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestStudentQuizViewHidesAnswerKey(t *testing.T) {
	e := newEnv(t)
	teacherTok, studentTok, quizID, _ := quizFixture(t, e)

	resp, body := e.do(t, "GET", "/quizzes/"+quizID, studentTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotContains(t, string(body), "correct_option")

	resp, body = e.do(t, "GET", "/quizzes/"+quizID, teacherTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "correct_option")
}

func TestHeatmapForbiddenForStudents(t *testing.T) {
	e := newEnv(t)
	teacherTok, studentTok, quizID, _ := quizFixture(t, e)

	resp, _ := e.do(t, "GET", "/quizzes/"+quizID+"/heatmap", studentTok, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := e.do(t, "GET", "/quizzes/"+quizID+"/heatmap", teacherTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cells []analytics.HeatmapCell
	require.NoError(t, json.Unmarshal(body, &cells))
	require.Len(t, cells, 2)
}

func TestMissingBearerRejected(t *testing.T) {
	e := newEnv(t)
	resp, _ := e.do(t, "GET", "/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
