package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/pathlight-learning/pathlight-lms/internal/api/http"
	"github.com/pathlight-learning/pathlight-lms/internal/attempt"
	auth "github.com/pathlight-learning/pathlight-lms/internal/auth/middleware"
	"github.com/pathlight-learning/pathlight-lms/internal/config"
	"github.com/pathlight-learning/pathlight-lms/internal/db"
	"github.com/pathlight-learning/pathlight-lms/internal/enrollment"
	"github.com/pathlight-learning/pathlight-lms/internal/eventlog"
	"github.com/pathlight-learning/pathlight-lms/internal/logx"
	"github.com/pathlight-learning/pathlight-lms/internal/practicetest"
	"github.com/pathlight-learning/pathlight-lms/internal/rbac"
	"github.com/pathlight-learning/pathlight-lms/internal/snapshot"
	"github.com/pathlight-learning/pathlight-lms/internal/store"
)

func main() {
	cfg := config.FromEnv()
	log := logx.New(cfg.LogLevel, cfg.Mode == config.ModeOffline)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Error("db open failed", "err", err)
		os.Exit(1)
	}

	st := store.NewSQL(dbh)
	if cfg.AdminUser != "" && cfg.AdminPassHash != "" {
		seedAdmin := auth.User{
			ID: "admin", Username: cfg.AdminUser, PassHash: cfg.AdminPassHash,
			Role: "admin", CreatedAt: time.Now().Unix(),
		}
		if err := st.CreateUser(ctx, seedAdmin); err != nil {
			log.Warn("admin bootstrap failed", "err", err)
		}
	}
	events := eventlog.NewRepo(dbh)
	builder := snapshot.NewBuilder(st, st, log)

	enrollSvc := enrollment.NewService(st, st, log)
	attemptSvc := attempt.NewService(st, st, builder, st, st, events, log)
	practiceSvc := practicetest.NewService(st, builder, st, st, events, log)

	authSvc := auth.NewAuthService(cfg.JWTSecret)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, st))

	// Protected API (JWT → role in context → RBAC)
	r.Route("/api", func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Use(auth.AttachRoleFromDB(dbh, cfg.AllowClaimFallback))

		// Student session flow
		pr.With(rbac.Require("attempt:start")).
			Post("/attempts/start", api.StartAttemptHandler(attemptSvc))
		pr.With(rbac.Require("attempt:start")).
			Post("/attempts/{attemptID}/timer", api.StartTimerHandler(attemptSvc))
		pr.With(rbac.Require("attempt:save")).
			Put("/attempts/{attemptID}/answers", api.SaveAnswersHandler(attemptSvc))
		pr.With(rbac.Require("attempt:submit")).
			Post("/attempts/{attemptID}/submit", api.SubmitAttemptHandler(attemptSvc))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts/{attemptID}", api.GetAttemptHandler(attemptSvc))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts", api.ListAttemptsHandler(attemptSvc))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts/{attemptID}/questions", api.AttemptQuestionsHandler(attemptSvc))

		// Highlights and notes
		pr.With(rbac.Require("attempt:save")).
			Put("/attempts/{attemptID}/questions/{questionID}/annotations", api.SaveAnnotationsHandler(attemptSvc))
		pr.With(rbac.Require("attempt:save")).
			Delete("/attempts/{attemptID}/questions/{questionID}/annotations/{area}/{highlightID}", api.DeleteAnnotationHandler(attemptSvc))

		// Manual grading
		pr.With(rbac.Require("attempt:grade")).
			Post("/attempts/{attemptID}/items/{itemIndex}/review", api.ReviewItemHandler(attemptSvc))

		// Full-length practice tests
		pr.With(rbac.Require("practice:start")).
			Post("/practice-tests/start", api.StartPracticeTestHandler(practiceSvc))
		pr.With(rbac.Require("practice:save")).
			Put("/practice-tests/{testAttemptID}/progress", api.SavePracticeProgressHandler(practiceSvc))
		pr.With(rbac.Require("practice:submit")).
			Post("/practice-tests/{testAttemptID}/submit", api.SubmitPracticeTestHandler(practiceSvc))
		pr.Get("/practice-tests/{testAttemptID}", api.GetPracticeTestHandler(practiceSvc))

		// Enrollment progress
		pr.With(rbac.Require("enrollment:update-own")).
			Post("/enrollments/{enrollmentID}/complete-content", api.CompleteContentHandler(enrollSvc))
		pr.With(rbac.Require("enrollment:update-own")).
			Post("/enrollments/{enrollmentID}/complete-module", api.CompleteModuleHandler(enrollSvc))
		pr.With(rbac.Require("enrollment:update-own")).
			Post("/enrollments/{enrollmentID}/recompute-progress", api.RecomputeProgressHandler(enrollSvc))
		pr.Get("/enrollments/{enrollmentID}", api.GetEnrollmentHandler(enrollSvc))

		// Authoring
		pr.Get("/courses/{courseID}", api.GetCourseHandler(st))
		pr.With(rbac.Require("course:publish")).
			Put("/courses/{courseID}", api.PutCourseHandler(st))
		pr.With(rbac.Require("course:publish")).
			Put("/questions/{questionID}", api.PutQuestionHandler(st))
		pr.With(rbac.Require("snapshot:rebuild")).
			Post("/modules/{moduleID}/rebuild-snapshot", api.RebuildSnapshotHandler(builder))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	log.Info("listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "db", cfg.DBDriver)
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Error("server exited", "err", err)
		os.Exit(1)
	}
}
