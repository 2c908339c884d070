package api

import (
	"net/http"

	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/reviews"
	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/validation"
	"github.com/abdulwedud33/intern-finder-v2-sub000/pkg/models"
)

type ReviewsHandler struct {
	reviews   *reviews.Service
	validator Validator
}

func NewReviewsHandler(svc *reviews.Service, v Validator) *ReviewsHandler {
	if v == nil {
		v = defaultValidator()
	}
	return &ReviewsHandler{reviews: svc, validator: v}
}

type reviewRequest struct {
	TargetID  int64  `json:"target_id"`
	JobID     *int64 `json:"job_id"`
	Direction string `json:"direction"`
	Rating    int    `json:"rating"`
	Content   string `json:"content"`
}

// Upsert handles POST /v1/reviews. A new review answers 201, an update of
// the caller's existing review for the same key answers 200.
func (h *ReviewsHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	var req reviewRequest
	if err := decodeBody(r, h.validator, validation.Review, &req); err != nil {
		writeError(w, r, err)
		return
	}

	rv, created, err := h.reviews.Upsert(r.Context(), actor, reviews.UpsertRequest{
		TargetID:  req.TargetID,
		JobID:     req.JobID,
		Direction: models.Direction(req.Direction),
		Rating:    req.Rating,
		Content:   req.Content,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, rv, status)
}

// List handles GET /v1/reviews?target_id=. Only approved reviews are public.
func (h *ReviewsHandler) List(w http.ResponseWriter, r *http.Request) {
	targetID, err := queryID(r, "target_id")
	if err == nil && targetID == 0 {
		err = validationField("target_id", "is required")
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	list, err := h.reviews.ListForTarget(r.Context(), targetID, models.ReviewApproved)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Review{}
	}
	writeJSON(w, map[string]any{"reviews": list}, http.StatusOK)
}

// Delete handles DELETE /v1/reviews/{id}.
func (h *ReviewsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.reviews.Delete(r.Context(), actor, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Rating handles GET /v1/ratings/{targetId}.
func (h *ReviewsHandler) Rating(w http.ResponseWriter, r *http.Request) {
	targetID, err := pathID(r, "targetId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	agg, err := h.reviews.Aggregate(r.Context(), targetID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, agg, http.StatusOK)
}
