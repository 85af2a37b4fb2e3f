package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ianb/trivia-maker/internal/models"
	"github.com/ianb/trivia-maker/internal/repository"
	"github.com/ianb/trivia-maker/internal/services"
)

type GenerateHandler struct {
	review   *services.ReviewService
	feedback *repository.FeedbackRepo
}

func NewGenerateHandler(review *services.ReviewService, feedback *repository.FeedbackRepo) *GenerateHandler {
	return &GenerateHandler{review: review, feedback: feedback}
}

// Generate runs one generation round trip. The call blocks until the
// provider answers; concurrent attempts are rejected with a conflict.
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	candidates, err := h.review.Generate(r.Context(), req.Category, req.Instructions)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"candidates": candidates})
}

func (h *GenerateHandler) Queue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"candidates": h.review.Queue()})
}

func (h *GenerateHandler) Keep(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid candidate ID", r))
		return
	}

	card, err := h.review.Keep(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

func (h *GenerateHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid candidate ID", r))
		return
	}

	var req models.RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	applied, err := h.review.Reject(r.Context(), id, req.Annotation, req.Feedback)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if !applied {
		// Feedback entry was abandoned; the candidate stays pending.
		writeJSON(w, http.StatusOK, map[string]interface{}{"rejected": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rejected": true})
}

func (h *GenerateHandler) Discard(w http.ResponseWriter, r *http.Request) {
	h.review.Discard()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Review queue discarded"})
}

func (h *GenerateHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.review.Stats(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *GenerateHandler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	records, err := h.feedback.ListByCategory(r.Context(), category)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"feedback": records})
}

func (h *GenerateHandler) ClearFeedback(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	if err := h.feedback.ClearCategory(r.Context(), category); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Feedback cleared"})
}
