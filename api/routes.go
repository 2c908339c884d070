package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/applications"
	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/config"
	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/db"
	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/interviews"
	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/jobs"
	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/repository/sqlite"
	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/reviews"
	"github.com/abdulwedud33/intern-finder-v2-sub000/pkg/models"
)

// Store is everything the coordination services need from storage.
type Store interface {
	applications.Store
	interviews.Store
	reviews.Store
}

// Services bundles the coordination services behind the HTTP surface.
type Services struct {
	Applications *applications.Service
	Interviews   *interviews.Scheduler
	Reviews      *reviews.Service
	Validator    Validator
	DB           Pinger
}

// NewServices wires the services over store. A nil clock means time.Now.
func NewServices(cfg *config.Config, store Store, log *slog.Logger, clock func() time.Time) Services {
	if clock == nil {
		clock = time.Now
	}
	apps := applications.New(store, cfg.Applications, log).WithClock(clock)
	return Services{
		Applications: apps,
		Interviews:   interviews.New(store, apps, cfg.Interviews, log).WithClock(clock),
		Reviews:      reviews.New(store, cfg.Reviews, log).WithClock(clock),
		Validator:    defaultValidator(),
	}
}

// SetupRoutes builds the router over an open database, along with the task
// pool that repairs rating aggregates. The caller starts and stops the pool.
func SetupRoutes(cfg *config.Config, version, buildTime string, d *db.DB) (*mux.Router, *jobs.WorkerPool) {
	pool := jobs.NewWorkerPool(jobs.NewRepository(d), logger, cfg.TaskWorkers)

	svc := NewServices(cfg, sqlite.New(d, logger), logger, nil)
	svc.Reviews.WithRepair(pool)
	svc.DB = d.GetConn()
	pool.Handle(jobs.TypeRecomputeRating, jobs.RecomputeHandler(svc.Reviews))

	return NewRouter(cfg, version, buildTime, svc), pool
}

func NewRouter(cfg *config.Config, version, buildTime string, svc Services) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)
	if cfg.APITimeout > 0 {
		r.Use(timeoutMiddleware(cfg.APITimeout))
	}

	// Create handlers
	systemHandler := &SystemHandler{DB: svc.DB}
	applicationsHandler := NewApplicationsHandler(svc.Applications, svc.Interviews, svc.Validator)
	interviewsHandler := NewInterviewsHandler(svc.Interviews, svc.Validator)
	reviewsHandler := NewReviewsHandler(svc.Reviews, svc.Validator)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")

	// API v1 Protected routes
	apiV1 := r.PathPrefix("/v1").Subrouter()
	apiV1.Use(JWTAuthMiddlewareWithSecret(cfg.JWTSecret))

	// Applications endpoints
	apiV1.Handle("/applications", only(models.RoleIntern, applicationsHandler.Submit)).Methods("POST")
	apiV1.HandleFunc("/applications", applicationsHandler.List).Methods("GET")
	apiV1.HandleFunc("/applications/precheck", applicationsHandler.Precheck).Methods("GET")
	apiV1.HandleFunc("/applications/{id:[0-9]+}", applicationsHandler.Get).Methods("GET")
	apiV1.HandleFunc("/applications/{id:[0-9]+}", applicationsHandler.Delete).Methods("DELETE")
	apiV1.Handle("/applications/{id:[0-9]+}/status", only(models.RoleCompany, applicationsHandler.UpdateStatus)).Methods("PATCH")
	apiV1.Handle("/applications/{id:[0-9]+}/interviews", only(models.RoleCompany, applicationsHandler.ScheduleInterview)).Methods("POST")

	// Interviews endpoints
	apiV1.HandleFunc("/interviews", interviewsHandler.List).Methods("GET")
	apiV1.HandleFunc("/interviews/{id:[0-9]+}", interviewsHandler.Get).Methods("GET")
	apiV1.HandleFunc("/interviews/{id:[0-9]+}/status", interviewsHandler.UpdateStatus).Methods("PATCH")
	apiV1.Handle("/interviews/{id:[0-9]+}/schedule", only(models.RoleCompany, interviewsHandler.Reschedule)).Methods("PATCH")
	apiV1.Handle("/interviews/{id:[0-9]+}/feedback", only(models.RoleCompany, interviewsHandler.Feedback)).Methods("POST")

	// Reviews endpoints
	apiV1.HandleFunc("/reviews", reviewsHandler.Upsert).Methods("POST")
	apiV1.HandleFunc("/reviews", reviewsHandler.List).Methods("GET")
	apiV1.HandleFunc("/reviews/{id:[0-9]+}", reviewsHandler.Delete).Methods("DELETE")
	apiV1.HandleFunc("/ratings/{targetId:[0-9]+}", reviewsHandler.Rating).Methods("GET")

	return r
}

func only(role models.Role, h http.HandlerFunc) http.Handler {
	return RequireRole(role)(h)
}

// timeoutMiddleware bounds every request context by d.
func timeoutMiddleware(d time.Duration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, `{"error":{"code":"timeout","message":"request timed out"}}`)
	}
}
