package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/abdulwedud33/intern-finder-v2-sub000/api"
	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/config"
	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/repository/sqlite"
	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/storetest"
	"github.com/abdulwedud33/intern-finder-v2-sub000/pkg/models"
)

const testSecret = "route-test-secret"

var (
	companyA = models.Actor{ID: storetest.CompanyA, Role: models.RoleCompany}
	companyB = models.Actor{ID: storetest.CompanyB, Role: models.RoleCompany}
	internX  = models.Actor{ID: storetest.InternX, Role: models.RoleIntern}
	internY  = models.Actor{ID: storetest.InternY, Role: models.RoleIntern}
)

type server struct {
	router *mux.Router
	repo   *sqlite.SQLiteRepo
}

func newServer(t *testing.T) *server {
	t.Helper()
	api.SetLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))

	clock := storetest.NewClock(time.Date(2025, 2, 20, 9, 0, 0, 0, time.UTC))
	repo := storetest.Open(t, clock)

	cfg := config.Default()
	cfg.JWTSecret = testSecret
	svc := api.NewServices(cfg, repo, slog.New(slog.NewJSONHandler(io.Discard, nil)), clock.Now)
	return &server{router: api.NewRouter(cfg, "test", "now", svc), repo: repo}
}

func (s *server) do(t *testing.T, method, path string, actor *models.Actor, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if actor != nil {
		tok, err := api.IssueToken(testSecret, *actor, time.Hour)
		if err != nil {
			t.Fatalf("IssueToken: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

type apiError struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) apiError {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected %d got %d: %s", status, w.Code, w.Body.String())
	}
	e := decode[apiError](t, w)
	if e.Error.Code != code {
		t.Fatalf("expected code %q got %q", code, e.Error.Code)
	}
	return e
}

func TestRoutes_ApplicationToAcceptance(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodPost, "/v1/applications", &internX, `{"job_id": 10, "cover_letter": "I like Go"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("submit: expected 201 got %d: %s", w.Code, w.Body.String())
	}
	app := decode[models.Application](t, w)
	if app.Status != models.ApplicationUnderReview || app.CompanyID != storetest.CompanyA {
		t.Fatalf("unexpected application %+v", app)
	}

	w = s.do(t, http.MethodPost, "/v1/applications", &internX, `{"job_id": 10}`)
	expectError(t, w, http.StatusConflict, "duplicate_application")

	w = s.do(t, http.MethodGet, "/v1/applications/precheck?job_id=10", &internX, "")
	if w.Code != http.StatusOK {
		t.Fatalf("precheck: expected 200 got %d", w.Code)
	}
	if p := decode[models.Precheck](t, w); !p.Applied || p.ApplicationID != app.ID {
		t.Fatalf("unexpected precheck %+v", p)
	}

	// only the owning company may act on the application
	w = s.do(t, http.MethodPatch, fmt.Sprintf("/v1/applications/%d/status", app.ID), &companyB, `{"status": "interview"}`)
	expectError(t, w, http.StatusForbidden, "not_owner")

	w = s.do(t, http.MethodPost, fmt.Sprintf("/v1/applications/%d/interviews", app.ID), &companyA,
		`{"date": "2025-03-01T10:00:00Z", "type": "video", "duration": 45}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("schedule: expected 201 got %d: %s", w.Code, w.Body.String())
	}
	iv := decode[models.Interview](t, w)
	if iv.Duration != 45 || iv.InternID != storetest.InternX {
		t.Fatalf("unexpected interview %+v", iv)
	}

	w = s.do(t, http.MethodGet, fmt.Sprintf("/v1/applications/%d", app.ID), &internX, "")
	if got := decode[models.Application](t, w); got.Status != models.ApplicationInterview {
		t.Fatalf("expected interview status, got %s", got.Status)
	}

	w = s.do(t, http.MethodPost, fmt.Sprintf("/v1/interviews/%d/feedback", iv.ID), &companyA,
		`{"rating": 5, "recommendation": "hire", "strengths": ["sql"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("feedback: expected 200 got %d: %s", w.Code, w.Body.String())
	}
	if done := decode[models.Interview](t, w); done.Status != models.InterviewCompleted || done.Outcome != models.OutcomePassed {
		t.Fatalf("unexpected interview after feedback %+v", done)
	}

	w = s.do(t, http.MethodPost, fmt.Sprintf("/v1/interviews/%d/feedback", iv.ID), &companyA, `{"rating": 3, "recommendation": "maybe"}`)
	expectError(t, w, http.StatusConflict, "feedback_already_submitted")

	w = s.do(t, http.MethodGet, fmt.Sprintf("/v1/applications/%d", app.ID), &companyA, "")
	if got := decode[models.Application](t, w); got.Status != models.ApplicationAccepted {
		t.Fatalf("expected accepted, got %s", got.Status)
	}
}

func TestRoutes_RolesAndAuth(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodGet, "/v1/applications", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", w.Code)
	}

	w = s.do(t, http.MethodPost, "/v1/applications", &companyA, `{"job_id": 10}`)
	expectError(t, w, http.StatusForbidden, "role_violation")

	w = s.do(t, http.MethodPatch, "/v1/applications/1/status", &internX, `{"status": "accepted"}`)
	expectError(t, w, http.StatusForbidden, "role_violation")

	w = s.do(t, http.MethodGet, "/v1/applications/999", &internX, "")
	expectError(t, w, http.StatusNotFound, "application_not_found")
}

func TestRoutes_ValidationErrors(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodPost, "/v1/applications", &internX, `{"job_id": "ten"}`)
	e := expectError(t, w, http.StatusBadRequest, "invalid_input")
	if _, ok := e.Error.Fields["job_id"]; !ok {
		t.Fatalf("expected job_id field error, got %v", e.Error.Fields)
	}

	w = s.do(t, http.MethodPost, "/v1/applications", &internX, "")
	expectError(t, w, http.StatusBadRequest, "invalid_input")

	w = s.do(t, http.MethodGet, "/v1/applications/precheck", &internX, "")
	expectError(t, w, http.StatusBadRequest, "invalid_input")

	w = s.do(t, http.MethodGet, "/v1/applications?status=hired", &internX, "")
	expectError(t, w, http.StatusBadRequest, "invalid_input")

	w = s.do(t, http.MethodGet, "/v1/reviews", &internX, "")
	expectError(t, w, http.StatusBadRequest, "invalid_input")
}

func TestRoutes_ListScopedToCaller(t *testing.T) {
	s := newServer(t)

	for _, a := range []*models.Actor{&internX, &internY} {
		if w := s.do(t, http.MethodPost, "/v1/applications", a, `{"job_id": 10}`); w.Code != http.StatusCreated {
			t.Fatalf("submit: %d %s", w.Code, w.Body.String())
		}
	}

	type listing struct {
		Applications []models.Application `json:"applications"`
	}
	w := s.do(t, http.MethodGet, "/v1/applications", &internX, "")
	if got := decode[listing](t, w); len(got.Applications) != 1 || got.Applications[0].InternID != storetest.InternX {
		t.Fatalf("intern should see only their own application, got %+v", got.Applications)
	}
	w = s.do(t, http.MethodGet, "/v1/applications", &companyA, "")
	if got := decode[listing](t, w); len(got.Applications) != 2 {
		t.Fatalf("company should see both applications, got %d", len(got.Applications))
	}
	w = s.do(t, http.MethodGet, "/v1/applications", &companyB, "")
	if got := decode[listing](t, w); len(got.Applications) != 0 {
		t.Fatalf("other company should see nothing, got %d", len(got.Applications))
	}
}

func TestRoutes_InterviewLifecycle(t *testing.T) {
	s := newServer(t)

	app := decode[models.Application](t, s.do(t, http.MethodPost, "/v1/applications", &internX, `{"job_id": 10}`))
	w := s.do(t, http.MethodPost, fmt.Sprintf("/v1/applications/%d/interviews", app.ID), &companyA,
		`{"date": "2025-03-01T10:00:00Z", "type": "phone"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("schedule: %d %s", w.Code, w.Body.String())
	}
	iv := decode[models.Interview](t, w)

	w = s.do(t, http.MethodPatch, fmt.Sprintf("/v1/interviews/%d/schedule", iv.ID), &companyA, `{"date": "2025-03-02T10:00:00Z"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("reschedule: %d %s", w.Code, w.Body.String())
	}
	if got := decode[models.Interview](t, w); got.Status != models.InterviewRescheduled || !got.Date.Equal(time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected rescheduled interview %+v", got)
	}

	w = s.do(t, http.MethodPatch, fmt.Sprintf("/v1/interviews/%d/status", iv.ID), &internX, `{"status": "in_progress"}`)
	expectError(t, w, http.StatusForbidden, "role_violation")

	w = s.do(t, http.MethodPatch, fmt.Sprintf("/v1/interviews/%d/status", iv.ID), &internX, `{"status": "cancelled"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("cancel: %d %s", w.Code, w.Body.String())
	}
	if got := decode[models.Interview](t, w); got.Status != models.InterviewCancelled || got.CancelledBy == nil || *got.CancelledBy != storetest.InternX {
		t.Fatalf("unexpected cancelled interview %+v", got)
	}

	w = s.do(t, http.MethodGet, "/v1/interviews", &companyB, "")
	type listing struct {
		Interviews []models.Interview `json:"interviews"`
	}
	if got := decode[listing](t, w); len(got.Interviews) != 0 {
		t.Fatalf("other company should not see interviews, got %d", len(got.Interviews))
	}
	w = s.do(t, http.MethodGet, fmt.Sprintf("/v1/interviews/%d", iv.ID), &internY, "")
	expectError(t, w, http.StatusForbidden, "not_owner")
}

func TestRoutes_ReviewsAndRatings(t *testing.T) {
	s := newServer(t)
	storetest.Terminate(t, s.repo, storetest.InternX, storetest.CompanyA)

	body := `{"target_id": 1, "direction": "intern_to_company", "rating": 4, "content": "great mentors"}`
	w := s.do(t, http.MethodPost, "/v1/reviews", &internX, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("first review: expected 201 got %d: %s", w.Code, w.Body.String())
	}
	first := decode[models.Review](t, w)

	w = s.do(t, http.MethodPost, "/v1/reviews", &internX, strings.Replace(body, `"rating": 4`, `"rating": 2`, 1))
	if w.Code != http.StatusOK {
		t.Fatalf("second review: expected 200 got %d: %s", w.Code, w.Body.String())
	}
	if second := decode[models.Review](t, w); second.ID != first.ID || second.Rating != 2 {
		t.Fatalf("expected in-place update, got %+v", second)
	}

	w = s.do(t, http.MethodGet, "/v1/ratings/1", nil, "")
	expectError(t, w, http.StatusUnauthorized, "unauthorized")

	w = s.do(t, http.MethodGet, "/v1/ratings/1", &internY, "")
	if w.Code != http.StatusOK {
		t.Fatalf("rating: %d %s", w.Code, w.Body.String())
	}
	if agg := decode[models.RatingAggregate](t, w); agg.AverageRating != 2 || agg.ReviewCount != 1 {
		t.Fatalf("unexpected aggregate %+v", agg)
	}

	// intern Y never worked for company A
	w = s.do(t, http.MethodPost, "/v1/reviews", &internY, body)
	expectError(t, w, http.StatusForbidden, "not_eligible")

	w = s.do(t, http.MethodGet, "/v1/reviews?target_id=1", &companyB, "")
	type listing struct {
		Reviews []models.Review `json:"reviews"`
	}
	if got := decode[listing](t, w); len(got.Reviews) != 1 {
		t.Fatalf("expected one approved review, got %d", len(got.Reviews))
	}

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/v1/reviews/%d", first.ID), &internY, "")
	expectError(t, w, http.StatusForbidden, "not_owner")

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/v1/reviews/%d", first.ID), &internX, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d %s", w.Code, w.Body.String())
	}
	w = s.do(t, http.MethodGet, "/v1/ratings/1", &companyA, "")
	if agg := decode[models.RatingAggregate](t, w); agg.ReviewCount != 0 {
		t.Fatalf("expected aggregate reset after delete, got %+v", agg)
	}
}

func TestSetupRoutes_HealthAndTaskPool(t *testing.T) {
	api.SetLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	cfg := config.Default()
	cfg.JWTSecret = testSecret

	router, pool := api.SetupRoutes(cfg, "1.0.0", "today", storetest.OpenDB(t))
	pool.Start(context.Background())
	defer pool.Stop()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"service":"internfinder"`) {
		t.Fatalf("health: %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}

	tok, err := api.IssueToken(testSecret, internX, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/v1/ratings/77", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("rating for unknown target: %d %s", w.Code, w.Body.String())
	}
}
