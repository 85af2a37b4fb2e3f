package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/ianb/trivia-maker/internal/models"
	"github.com/ianb/trivia-maker/internal/repository"
	"github.com/ianb/trivia-maker/internal/services"
)

type cardTestEnv struct {
	router   http.Handler
	cards    *repository.CardRepo
	feedback *repository.FeedbackRepo
}

func newCardTestEnv(t *testing.T) *cardTestEnv {
	t.Helper()

	store := repository.NewMemoryStore()
	cards := repository.NewCardRepo(store)
	feedback := repository.NewFeedbackRepo(store)
	handler := NewCardHandler(cards, feedback, services.NewCategoryService(cards, feedback))

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cards", func(r chi.Router) {
			r.Get("/", handler.List)
			r.Post("/", handler.Create)
			r.Delete("/", handler.Clear)
			r.Get("/export", handler.Export)
			r.Post("/import", handler.Import)
			r.Put("/{id}", handler.Update)
			r.Delete("/{id}", handler.Delete)
		})
		r.Get("/categories", handler.Categories)
	})

	return &cardTestEnv{router: r, cards: cards, feedback: feedback}
}

func (env *cardTestEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func TestCreateCard(t *testing.T) {
	env := newCardTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/v1/cards/", models.CardRequest{
		Question: "  What is H2O?  ",
		Answer:   "Water",
		Category: "Science",
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var card models.Card
	decodeBody(t, rr, &card)
	if card.Question != "What is H2O?" {
		t.Errorf("Expected trimmed question, got %q", card.Question)
	}
	if card.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("Expected assigned ID")
	}
}

func TestCreateCard_Validation(t *testing.T) {
	env := newCardTestEnv(t)

	tests := []struct {
		name string
		body models.CardRequest
	}{
		{"missing question", models.CardRequest{Answer: "A"}},
		{"missing answer", models.CardRequest{Question: "Q"}},
		{"whitespace question", models.CardRequest{Question: "   ", Answer: "A"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/api/v1/cards/", tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", rr.Code)
			}

			var resp models.ErrorResponse
			decodeBody(t, rr, &resp)
			if resp.Error.Code != "VALIDATION_ERROR" {
				t.Errorf("Expected VALIDATION_ERROR, got %q", resp.Error.Code)
			}
		})
	}
}

func TestUpdateCard(t *testing.T) {
	env := newCardTestEnv(t)
	ctx := context.Background()

	card := &models.Card{Question: "Old", Answer: "Old", Category: "Science"}
	env.cards.Create(ctx, card)

	rr := env.do(t, http.MethodPut, "/api/v1/cards/"+card.ID.String(), models.CardRequest{
		Question: "New Q",
		Answer:   "New A",
		Category: "History",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var updated models.Card
	decodeBody(t, rr, &updated)
	if updated.ID != card.ID {
		t.Error("Expected ID preserved")
	}
	if updated.Question != "New Q" || updated.Category != "History" {
		t.Errorf("Unexpected update result: %+v", updated)
	}
}

func TestUpdateCard_NotFound(t *testing.T) {
	env := newCardTestEnv(t)

	rr := env.do(t, http.MethodPut, "/api/v1/cards/3f2ab6b2-13f8-44a7-9a79-0a2b9d9ef0aa", models.CardRequest{
		Question: "Q", Answer: "A",
	})
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rr.Code)
	}
}

func TestUpdateCard_InvalidID(t *testing.T) {
	env := newCardTestEnv(t)

	rr := env.do(t, http.MethodPut, "/api/v1/cards/not-a-uuid", models.CardRequest{
		Question: "Q", Answer: "A",
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rr.Code)
	}
}

func TestDeleteAndClearCards(t *testing.T) {
	env := newCardTestEnv(t)
	ctx := context.Background()

	first := &models.Card{Question: "Q1", Answer: "A1"}
	env.cards.Create(ctx, first)
	env.cards.Create(ctx, &models.Card{Question: "Q2", Answer: "A2"})

	rr := env.do(t, http.MethodDelete, "/api/v1/cards/"+first.ID.String(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	remaining, _ := env.cards.List(ctx)
	if len(remaining) != 1 || remaining[0].Question != "Q2" {
		t.Errorf("Expected only Q2 left, got %+v", remaining)
	}

	rr = env.do(t, http.MethodDelete, "/api/v1/cards/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	remaining, _ = env.cards.List(ctx)
	if len(remaining) != 0 {
		t.Errorf("Expected empty store after clear, got %+v", remaining)
	}
}

func TestListCategories(t *testing.T) {
	env := newCardTestEnv(t)
	ctx := context.Background()

	env.cards.Create(ctx, &models.Card{Question: "Q1", Answer: "A1", Category: "Science"})
	env.feedback.Append(ctx, "Music", models.FeedbackRecord{Question: "Q", Answer: "A", Annotation: models.AnnotationTooEasy})

	rr := env.do(t, http.MethodGet, "/api/v1/categories?filter=sci", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	var resp struct {
		Categories []models.CategoryInfo `json:"categories"`
	}
	decodeBody(t, rr, &resp)
	if len(resp.Categories) != 1 || resp.Categories[0].Name != "Science" {
		t.Errorf("Expected filtered list with Science, got %+v", resp.Categories)
	}
	if resp.Categories[0].Color.Background == "" {
		t.Error("Expected category color assigned")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	env := newCardTestEnv(t)
	ctx := context.Background()

	env.cards.Create(ctx, &models.Card{Question: "Q1", Answer: "A1", Category: "Science"})
	env.feedback.Append(ctx, "Science", models.FeedbackRecord{Question: "Bad Q", Answer: "A", Annotation: models.AnnotationTooHard, UserFeedback: "nope"})

	rr := env.do(t, http.MethodGet, "/api/v1/cards/export", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if cd := rr.Header().Get("Content-Disposition"); cd != `attachment; filename="trivia-cards.json"` {
		t.Errorf("Expected attachment disposition, got %q", cd)
	}

	var doc models.ExportDocument
	decodeBody(t, rr, &doc)
	if len(doc.TriviaQuestions) != 1 || doc.TriviaQuestions[0].Question != "Q1" {
		t.Errorf("Unexpected export document: %+v", doc)
	}
	if len(doc.RejectedQuestions["Science"]) != 1 {
		t.Errorf("Expected rejected questions in export, got %+v", doc.RejectedQuestions)
	}

	// Import the same document into a fresh environment.
	fresh := newCardTestEnv(t)
	rr = fresh.do(t, http.MethodPost, "/api/v1/cards/import", doc)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	imported, _ := fresh.cards.List(ctx)
	if len(imported) != 1 || imported[0].Question != "Q1" {
		t.Errorf("Expected imported card, got %+v", imported)
	}
	records, _ := fresh.feedback.ListByCategory(ctx, "Science")
	if len(records) != 1 || records[0].UserFeedback != "nope" {
		t.Errorf("Expected imported feedback, got %+v", records)
	}
}

func TestImport_InvalidFormat(t *testing.T) {
	env := newCardTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/v1/cards/import", map[string]interface{}{"cards": []string{}})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing triviaQuestions, got %d", rr.Code)
	}
}

func TestImport_AppendsToExisting(t *testing.T) {
	env := newCardTestEnv(t)
	ctx := context.Background()

	env.cards.Create(ctx, &models.Card{Question: "Existing", Answer: "A"})

	doc := models.ExportDocument{
		TriviaQuestions: []models.ExportCard{{Question: "Imported", Answer: "A", Category: "Science"}},
	}
	rr := env.do(t, http.MethodPost, "/api/v1/cards/import", doc)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	cards, _ := env.cards.List(ctx)
	if len(cards) != 2 {
		t.Fatalf("Expected 2 cards after import, got %d", len(cards))
	}
	if cards[0].Question != "Existing" || cards[1].Question != "Imported" {
		t.Errorf("Expected import appended, got %+v", cards)
	}
}
