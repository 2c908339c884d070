package api

import (
	"net/http"

	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/interviews"
	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/validation"
	"github.com/abdulwedud33/intern-finder-v2-sub000/pkg/models"
)

type InterviewsHandler struct {
	scheduler *interviews.Scheduler
	validator Validator
}

func NewInterviewsHandler(scheduler *interviews.Scheduler, v Validator) *InterviewsHandler {
	if v == nil {
		v = defaultValidator()
	}
	return &InterviewsHandler{scheduler: scheduler, validator: v}
}

// List handles GET /v1/interviews.
func (h *InterviewsHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	appID, err := queryID(r, "application_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := models.InterviewStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, r, validationField("status", "unknown interview status"))
		return
	}

	limit, offset := page(r)
	list, err := h.scheduler.List(r.Context(), actor, models.InterviewFilter{
		ApplicationID: appID,
		Status:        status,
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Interview{}
	}
	writeJSON(w, map[string]any{"interviews": list, "limit": limit, "offset": offset}, http.StatusOK)
}

// Get handles GET /v1/interviews/{id}.
func (h *InterviewsHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	iv, err := h.scheduler.Get(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, iv, http.StatusOK)
}

// UpdateStatus handles PATCH /v1/interviews/{id}/status. Interns may only
// cancel their own interviews; the scheduler enforces that.
func (h *InterviewsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeBody(r, h.validator, validation.InterviewStatus, &req); err != nil {
		writeError(w, r, err)
		return
	}

	iv, err := h.scheduler.UpdateStatus(r.Context(), id, actor, models.InterviewStatus(req.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, iv, http.StatusOK)
}

// Reschedule handles PATCH /v1/interviews/{id}/schedule. Company only.
func (h *InterviewsHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Date     string `json:"date"`
		Duration int    `json:"duration"`
	}
	if err := decodeBody(r, h.validator, validation.InterviewReschedule, &req); err != nil {
		writeError(w, r, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	iv, err := h.scheduler.Reschedule(r.Context(), id, actor.ID, date, req.Duration)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, iv, http.StatusOK)
}

type feedbackRequest struct {
	Rating         int      `json:"rating"`
	Notes          string   `json:"notes"`
	Strengths      []string `json:"strengths"`
	Improvements   []string `json:"improvements"`
	Recommendation string   `json:"recommendation"`
}

// Feedback handles POST /v1/interviews/{id}/feedback. Company only.
func (h *InterviewsHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req feedbackRequest
	if err := decodeBody(r, h.validator, validation.InterviewFeedback, &req); err != nil {
		writeError(w, r, err)
		return
	}

	iv, err := h.scheduler.SubmitFeedback(r.Context(), id, actor.ID, interviews.FeedbackRequest{
		Rating:         req.Rating,
		Notes:          req.Notes,
		Strengths:      req.Strengths,
		Improvements:   req.Improvements,
		Recommendation: models.Recommendation(req.Recommendation),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, iv, http.StatusOK)
}
