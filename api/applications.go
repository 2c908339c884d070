package api

import (
	"net/http"

	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/applications"
	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/interviews"
	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/validation"
	"github.com/abdulwedud33/intern-finder-v2-sub000/pkg/models"
)

type ApplicationsHandler struct {
	apps      *applications.Service
	scheduler *interviews.Scheduler
	validator Validator
}

func NewApplicationsHandler(apps *applications.Service, scheduler *interviews.Scheduler, v Validator) *ApplicationsHandler {
	if v == nil {
		v = defaultValidator()
	}
	return &ApplicationsHandler{apps: apps, scheduler: scheduler, validator: v}
}

type submitRequest struct {
	JobID       int64  `json:"job_id"`
	CoverLetter string `json:"cover_letter"`
	ResumeRef   string `json:"resume_ref"`
}

// Submit handles POST /v1/applications.
func (h *ApplicationsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	var req submitRequest
	if err := decodeBody(r, h.validator, validation.ApplicationSubmit, &req); err != nil {
		writeError(w, r, err)
		return
	}

	a, err := h.apps.Submit(r.Context(), actor, req.JobID, req.CoverLetter, req.ResumeRef)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, a, http.StatusCreated)
}

// Precheck handles GET /v1/applications/precheck?job_id=.
func (h *ApplicationsHandler) Precheck(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	jobID, err := queryID(r, "job_id")
	if err == nil && jobID == 0 {
		err = validationField("job_id", "is required")
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	p, err := h.apps.Precheck(r.Context(), actor, jobID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, p, http.StatusOK)
}

// List handles GET /v1/applications. The caller's own id always scopes the
// listing; job_id and status narrow it further.
func (h *ApplicationsHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	jobID, err := queryID(r, "job_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := models.ApplicationStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, r, validationField("status", "unknown application status"))
		return
	}

	limit, offset := page(r)
	list, err := h.apps.List(r.Context(), actor, models.ApplicationFilter{
		JobID:  jobID,
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Application{}
	}
	writeJSON(w, map[string]any{"applications": list, "limit": limit, "offset": offset}, http.StatusOK)
}

// Get handles GET /v1/applications/{id}.
func (h *ApplicationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.apps.Get(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, a, http.StatusOK)
}

// Delete handles DELETE /v1/applications/{id}.
func (h *ApplicationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.apps.Delete(r.Context(), actor, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// UpdateStatus handles PATCH /v1/applications/{id}/status. Company only.
func (h *ApplicationsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req statusRequest
	if err := decodeBody(r, h.validator, validation.ApplicationStatus, &req); err != nil {
		writeError(w, r, err)
		return
	}

	a, err := h.apps.Transition(r.Context(), id, actor.ID, models.ApplicationStatus(req.Status), req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, a, http.StatusOK)
}

type scheduleRequest struct {
	Date     string `json:"date"`
	Duration int    `json:"duration"`
	Type     string `json:"type"`
	Location string `json:"location"`
	Notes    string `json:"notes"`
}

// ScheduleInterview handles POST /v1/applications/{id}/interviews. Company only.
func (h *ApplicationsHandler) ScheduleInterview(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req scheduleRequest
	if err := decodeBody(r, h.validator, validation.InterviewSchedule, &req); err != nil {
		writeError(w, r, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	iv, err := h.scheduler.Schedule(r.Context(), id, actor.ID, interviews.ScheduleRequest{
		Date:     date,
		Duration: req.Duration,
		Type:     models.InterviewType(req.Type),
		Location: req.Location,
		Notes:    req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, iv, http.StatusCreated)
}
