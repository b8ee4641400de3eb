package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/classbridge/classbridge-lms/internal/analytics"
	api "github.com/classbridge/classbridge-lms/internal/api/http"
	"github.com/classbridge/classbridge-lms/internal/audit"
	"github.com/classbridge/classbridge-lms/internal/auth"
	authmw "github.com/classbridge/classbridge-lms/internal/auth/middleware"
	"github.com/classbridge/classbridge-lms/internal/config"
	"github.com/classbridge/classbridge-lms/internal/db"
	"github.com/classbridge/classbridge-lms/internal/lms"
	"github.com/classbridge/classbridge-lms/internal/rbac"
	"github.com/classbridge/classbridge-lms/internal/report"
	"github.com/classbridge/classbridge-lms/internal/storage"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	store := lms.NewSQLStore(dbh)
	events := audit.NewEventLog(dbh)
	svc := lms.NewService(store, events)
	ag := analytics.NewAggregator(store)

	// --- Auth ---
	authSvc := authmw.NewAuthService(cfg.AuthSecret, cfg.TokenTTL)
	reset := auth.NewPasswordReset(store, auth.LogMailer{})

	// --- Blob storage ---
	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	// --- Reporting bridge ---
	if cfg.GeminiAPIKey == "" {
		log.Printf("GEMINI_API_KEY not set; report endpoints will fail until configured")
	}
	reporter := report.NewReporter(report.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel), cfg.ReportTimeout)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public auth surface
	r.Post("/auth/register", api.RegisterHandler(store))
	r.Post("/auth/login", api.LoginHandler(store, authSvc))
	r.Post("/auth/forgot-password", api.RequestOTPHandler(reset))
	r.Post("/auth/verify-otp", api.VerifyOTPHandler(reset))
	r.Post("/auth/reset-password", api.ResetPasswordHandler(reset))

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(authSvc))
		pr.Use(authmw.AttachRoleFromStore(store))

		pr.Get("/auth/me", api.MeHandler(store))
		pr.Post("/auth/change-password", api.ChangePasswordHandler(store))

		pr.Route("/assets", func(ar chi.Router) {
			api.MountAssets(ar, bs)
		})

		// Users (teacher/admin)
		pr.With(rbac.Require("users:list")).
			Get("/users", api.ListUsersHandler(store))
		pr.With(rbac.Require("users:bulk_upsert")).
			Post("/users/bulk", api.BulkUpsertUsersHandler(store))

		// Courses
		pr.With(rbac.Require("course:create")).
			Post("/courses", api.CreateCourseHandler(store))
		pr.With(rbac.Require("course:view")).
			Get("/courses", api.ListCoursesHandler(store))
		pr.With(rbac.Require("course:view")).
			Get("/courses/{courseID}", api.GetCourseHandler(store))
		pr.With(rbac.Require("course:enroll")).
			Post("/courses/{courseID}/students", api.EnrollStudentsHandler(store))
		pr.With(rbac.Require("course:delete")).
			Delete("/courses/{courseID}", api.DeleteCourseHandler(store))

		// Lectures
		pr.With(rbac.Require("lecture:create")).
			Post("/courses/{courseID}/lectures", api.CreateLectureHandler(store, bs))
		pr.With(rbac.Require("lecture:view")).
			Get("/courses/{courseID}/lectures", api.ListLecturesHandler(store))
		pr.With(rbac.Require("lecture:view")).
			Get("/lectures/{lectureID}", api.GetLectureHandler(store))
		pr.With(rbac.Require("lecture:view")).
			Post("/lectures/{lectureID}/view", api.RecordViewHandler(svc))
		pr.With(rbac.Require("analytics:course")).
			Get("/lectures/{lectureID}/views", api.ListViewsHandler(store))

		// Quizzes
		pr.With(rbac.Require("quiz:create")).
			Post("/courses/{courseID}/quizzes", api.CreateQuizHandler(store))
		pr.With(rbac.Require("quiz:view")).
			Get("/courses/{courseID}/quizzes", api.ListQuizzesHandler(store))
		pr.With(rbac.Require("quiz:view")).
			Get("/quizzes/{quizID}", api.GetQuizHandler(store))
		pr.With(rbac.Require("quiz:attempt")).
			Post("/quizzes/{quizID}/attempt", api.SubmitAttemptHandler(svc))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/quizzes/{quizID}/attempts", api.ListAttemptsHandler(store))

		// Assignments
		pr.With(rbac.Require("assignment:create")).
			Post("/courses/{courseID}/assignments", api.CreateAssignmentHandler(store, bs))
		pr.With(rbac.Require("assignment:view")).
			Get("/courses/{courseID}/assignments", api.ListAssignmentsHandler(store))
		pr.With(rbac.Require("assignment:view")).
			Get("/assignments/{assignmentID}", api.GetAssignmentHandler(store))
		pr.With(rbac.Require("submission:create")).
			Post("/assignments/{assignmentID}/submissions", api.SubmitAssignmentHandler(svc, bs))
		pr.With(rbac.Require("submission:edit-own")).
			Put("/assignments/{assignmentID}/submissions", api.EditSubmissionHandler(svc, bs))
		pr.With(rbac.Require("submission:delete-own")).
			Delete("/assignments/{assignmentID}/submissions", api.DeleteSubmissionHandler(svc, bs))
		pr.With(rbac.Require("submission:grade")).
			Post("/assignments/{assignmentID}/submissions/{submissionID}/grade", api.GradeSubmissionHandler(svc, store))

		// Analytics
		pr.With(rbac.Require("course:view")).
			Get("/courses/{courseID}/progress", api.ProgressHandler(ag, store))
		pr.With(rbac.Require("analytics:course")).
			Get("/analytics/quiz-stats", api.QuizStatsHandler(ag))
		pr.With(rbac.Require("analytics:course")).
			Get("/quizzes/{quizID}/heatmap", api.HeatmapHandler(ag, store))
		pr.With(rbac.Require("analytics:course")).
			Get("/quizzes/{quizID}/heatmap.csv", api.HeatmapCSVHandler(ag, store))
		pr.With(rbac.Require("analytics:course")).
			Get("/courses/{courseID}/weakest-question", api.WeakestQuestionHandler(ag, store))
		pr.With(rbac.Require("analytics:course")).
			Get("/courses/{courseID}/assignment-stats", api.AssignmentStatsHandler(ag, store))
		pr.With(rbac.Require("analytics:site")).
			Get("/analytics/site", api.SiteAnalyticsHandler(ag))
		pr.With(rbac.Require("audit:view")).
			Get("/events", api.RecentEventsHandler(events))

		// Reporting bridge
		pr.With(rbac.Require("report:quiz-grade")).
			Post("/reports/quiz-grade", api.QuizGradeHandler(store, reporter))
		pr.With(rbac.Require("report:course")).
			Get("/courses/{courseID}/report", api.CourseReportHandler(store, ag, reporter))
		pr.With(rbac.Require("report:course")).
			Get("/courses/{courseID}/quiz-report", api.QuizReportHandler(store, ag, reporter))

		// Offline bundle
		pr.With(rbac.Require("offline:data")).
			Get("/offline/snapshot", api.OfflineSnapshotHandler(store))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (db=%s)", cfg.HTTPAddr, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
