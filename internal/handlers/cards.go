package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ianb/trivia-maker/internal/models"
	"github.com/ianb/trivia-maker/internal/repository"
	"github.com/ianb/trivia-maker/internal/services"
)

type CardHandler struct {
	cards      *repository.CardRepo
	feedback   *repository.FeedbackRepo
	categories *services.CategoryService
}

func NewCardHandler(cards *repository.CardRepo, feedback *repository.FeedbackRepo, categories *services.CategoryService) *CardHandler {
	return &CardHandler{cards: cards, feedback: feedback, categories: categories}
}

func (h *CardHandler) List(w http.ResponseWriter, r *http.Request) {
	cards, err := h.cards.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cards": cards})
}

func (h *CardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	question := strings.TrimSpace(req.Question)
	answer := strings.TrimSpace(req.Answer)
	if question == "" || answer == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "question and answer are required", r))
		return
	}

	card := &models.Card{
		Question: question,
		Answer:   answer,
		Category: req.Category,
	}
	if err := h.cards.Create(r.Context(), card); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

func (h *CardHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid card ID", r))
		return
	}

	var req models.CardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	question := strings.TrimSpace(req.Question)
	answer := strings.TrimSpace(req.Answer)
	if question == "" || answer == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "question and answer are required", r))
		return
	}

	card := models.Card{
		ID:       id,
		Question: question,
		Answer:   answer,
		Category: req.Category,
	}
	if err := h.cards.Update(r.Context(), card); err != nil {
		handleServiceError(w, r, err)
		return
	}
	card.Category = models.NormalizeCategory(card.Category)
	writeJSON(w, http.StatusOK, card)
}

func (h *CardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid card ID", r))
		return
	}

	if err := h.cards.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Card deleted"})
}

func (h *CardHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.cards.Clear(r.Context()); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "All cards deleted"})
}

func (h *CardHandler) Categories(w http.ResponseWriter, r *http.Request) {
	infos, err := h.categories.List(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": infos})
}

// Export serializes the full card and feedback stores in the interchange
// shape also used by the browser app.
func (h *CardHandler) Export(w http.ResponseWriter, r *http.Request) {
	cards, err := h.cards.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	feedback, err := h.feedback.All(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	doc := models.ExportDocument{
		TriviaQuestions:   make([]models.ExportCard, len(cards)),
		RejectedQuestions: feedback,
	}
	for i, c := range cards {
		doc.TriviaQuestions[i] = models.ExportCard{
			Question: c.Question,
			Answer:   c.Answer,
			Category: models.NormalizeCategory(c.Category),
		}
	}

	w.Header().Set("Content-Disposition", `attachment; filename="trivia-cards.json"`)
	writeJSON(w, http.StatusOK, doc)
}

// Import merges an export document into the stores: cards are appended and
// feedback lists are concatenated per category. Nothing is replaced.
func (h *CardHandler) Import(w http.ResponseWriter, r *http.Request) {
	var doc models.ExportDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Failed to parse JSON document", r))
		return
	}
	if doc.TriviaQuestions == nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", `Invalid file format. Expected {"triviaQuestions": [...]}`, r))
		return
	}

	incoming := make([]models.Card, 0, len(doc.TriviaQuestions))
	for _, item := range doc.TriviaQuestions {
		incoming = append(incoming, models.Card{
			Question: item.Question,
			Answer:   item.Answer,
			Category: item.Category,
		})
	}

	if err := h.cards.Append(r.Context(), incoming); err != nil {
		handleServiceError(w, r, err)
		return
	}
	if err := h.feedback.Merge(r.Context(), doc.RejectedQuestions); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"imported_cards":               len(incoming),
		"imported_feedback_categories": len(doc.RejectedQuestions),
	})
}
