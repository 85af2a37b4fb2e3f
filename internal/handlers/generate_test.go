package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ianb/trivia-maker/internal/models"
	"github.com/ianb/trivia-maker/internal/repository"
	"github.com/ianb/trivia-maker/internal/services"
)

type stubGenerator struct {
	candidates []models.Candidate
	err        error
}

func (g *stubGenerator) Generate(ctx context.Context, token, prompt string) ([]models.Candidate, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.candidates, nil
}

type reviewTestEnv struct {
	router   http.Handler
	cards    *repository.CardRepo
	feedback *repository.FeedbackRepo
	gen      *stubGenerator
}

func newReviewTestEnv(t *testing.T) *reviewTestEnv {
	t.Helper()

	store := repository.NewMemoryStore()
	cards := repository.NewCardRepo(store)
	feedback := repository.NewFeedbackRepo(store)
	settings := repository.NewSettingsRepo(store)
	if err := settings.SaveToken(context.Background(), "sk-or-test"); err != nil {
		t.Fatalf("Failed to seed token: %v", err)
	}

	gen := &stubGenerator{candidates: []models.Candidate{
		{ID: uuid.New(), Question: "Q1", Answer: "A1"},
		{ID: uuid.New(), Question: "Q2", Answer: "A2"},
	}}
	review := services.NewReviewService(cards, feedback, settings, gen, nil)
	handler := NewGenerateHandler(review, feedback)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/generate", handler.Generate)
		r.Route("/review", func(r chi.Router) {
			r.Get("/", handler.Queue)
			r.Delete("/", handler.Discard)
			r.Post("/{id}/keep", handler.Keep)
			r.Post("/{id}/reject", handler.Reject)
		})
		r.Get("/stats", handler.Stats)
		r.Route("/feedback", func(r chi.Router) {
			r.Get("/{category}", handler.ListFeedback)
			r.Delete("/{category}", handler.ClearFeedback)
		})
	})

	return &reviewTestEnv{router: r, cards: cards, feedback: feedback, gen: gen}
}

func (env *reviewTestEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

func (env *reviewTestEnv) generate(t *testing.T, category string) []models.Candidate {
	t.Helper()

	rr := env.do(t, http.MethodPost, "/api/v1/generate", `{"category":"`+category+`"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Candidates []models.Candidate `json:"candidates"`
	}
	decodeBody(t, rr, &resp)
	return resp.Candidates
}

func TestGenerateEndpoint(t *testing.T) {
	env := newReviewTestEnv(t)

	candidates := env.generate(t, "Science")
	if len(candidates) != 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(candidates))
	}

	rr := env.do(t, http.MethodGet, "/api/v1/review/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	var resp struct {
		Candidates []models.Candidate `json:"candidates"`
	}
	decodeBody(t, rr, &resp)
	if len(resp.Candidates) != 2 {
		t.Errorf("Expected queue of 2, got %d", len(resp.Candidates))
	}
}

func TestGenerateEndpoint_NotConnected(t *testing.T) {
	env := newReviewTestEnv(t)
	env.gen.err = services.ErrNotConnected

	rr := env.do(t, http.MethodPost, "/api/v1/generate", `{"category":"Science"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rr.Code)
	}

	var resp models.ErrorResponse
	decodeBody(t, rr, &resp)
	if resp.Error.Code != "NOT_CONNECTED" {
		t.Errorf("Expected NOT_CONNECTED, got %q", resp.Error.Code)
	}
}

func TestGenerateEndpoint_ProviderErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"rate limited", services.ErrRateLimitExceeded, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"malformed", services.ErrMalformedResponse, http.StatusBadGateway, "MALFORMED_RESPONSE"},
		{"unavailable", services.ErrProviderUnavailable, http.StatusBadGateway, "PROVIDER_ERROR"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newReviewTestEnv(t)
			env.gen.err = tc.err

			rr := env.do(t, http.MethodPost, "/api/v1/generate", `{"category":"Science"}`)
			if rr.Code != tc.wantStatus {
				t.Errorf("Expected %d, got %d", tc.wantStatus, rr.Code)
			}

			var resp models.ErrorResponse
			decodeBody(t, rr, &resp)
			if resp.Error.Code != tc.wantCode {
				t.Errorf("Expected %q, got %q", tc.wantCode, resp.Error.Code)
			}
		})
	}
}

func TestKeepEndpoint(t *testing.T) {
	env := newReviewTestEnv(t)
	candidates := env.generate(t, "Science")

	rr := env.do(t, http.MethodPost, "/api/v1/review/"+candidates[0].ID.String()+"/keep", "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var card models.Card
	decodeBody(t, rr, &card)
	if card.Question != "Q1" || card.Category != "Science" {
		t.Errorf("Unexpected kept card: %+v", card)
	}

	stored, _ := env.cards.List(context.Background())
	if len(stored) != 1 {
		t.Errorf("Expected 1 stored card, got %d", len(stored))
	}

	// A second keep of the same candidate misses.
	rr = env.do(t, http.MethodPost, "/api/v1/review/"+candidates[0].ID.String()+"/keep", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for repeated keep, got %d", rr.Code)
	}
}

func TestRejectEndpoint(t *testing.T) {
	env := newReviewTestEnv(t)
	candidates := env.generate(t, "Science")

	rr := env.do(t, http.MethodPost, "/api/v1/review/"+candidates[0].ID.String()+"/reject",
		`{"annotation":"too-easy","feedback":"everyone knows this"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]bool
	decodeBody(t, rr, &resp)
	if !resp["rejected"] {
		t.Error("Expected rejected=true")
	}

	records, _ := env.feedback.ListByCategory(context.Background(), "Science")
	if len(records) != 1 || records[0].UserFeedback != "everyone knows this" {
		t.Errorf("Expected feedback record, got %+v", records)
	}
}

func TestRejectEndpoint_NullFeedbackCancels(t *testing.T) {
	env := newReviewTestEnv(t)
	candidates := env.generate(t, "Science")

	// JSON null means the user backed out of the feedback prompt.
	rr := env.do(t, http.MethodPost, "/api/v1/review/"+candidates[0].ID.String()+"/reject",
		`{"annotation":"too-easy","feedback":null}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]bool
	decodeBody(t, rr, &resp)
	if resp["rejected"] {
		t.Error("Expected rejected=false for cancelled rejection")
	}

	records, _ := env.feedback.ListByCategory(context.Background(), "Science")
	if len(records) != 0 {
		t.Errorf("Expected no feedback written, got %+v", records)
	}

	// Candidate is still pending.
	queue := env.do(t, http.MethodGet, "/api/v1/review/", "")
	var queueResp struct {
		Candidates []models.Candidate `json:"candidates"`
	}
	decodeBody(t, queue, &queueResp)
	if len(queueResp.Candidates) != 2 {
		t.Errorf("Expected candidate to stay pending, got %d", len(queueResp.Candidates))
	}
}

func TestRejectEndpoint_InvalidAnnotation(t *testing.T) {
	env := newReviewTestEnv(t)
	candidates := env.generate(t, "Science")

	rr := env.do(t, http.MethodPost, "/api/v1/review/"+candidates[0].ID.String()+"/reject",
		`{"annotation":"bogus","feedback":"x"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rr.Code)
	}
}

func TestDiscardEndpoint(t *testing.T) {
	env := newReviewTestEnv(t)
	env.generate(t, "Science")

	rr := env.do(t, http.MethodDelete, "/api/v1/review/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	queue := env.do(t, http.MethodGet, "/api/v1/review/", "")
	var resp struct {
		Candidates []models.Candidate `json:"candidates"`
	}
	decodeBody(t, queue, &resp)
	if len(resp.Candidates) != 0 {
		t.Errorf("Expected empty queue after discard, got %d", len(resp.Candidates))
	}
}

func TestStatsEndpoint(t *testing.T) {
	env := newReviewTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/v1/stats", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	var stats models.Stats
	decodeBody(t, rr, &stats)
	if stats.LongestGenerationMs != 0 {
		t.Errorf("Expected zero watermark, got %d", stats.LongestGenerationMs)
	}
}

func TestFeedbackEndpoints(t *testing.T) {
	env := newReviewTestEnv(t)
	ctx := context.Background()

	env.feedback.Append(ctx, "Science", models.FeedbackRecord{Question: "Q", Answer: "A", Annotation: models.AnnotationOther, UserFeedback: "meh"})

	rr := env.do(t, http.MethodGet, "/api/v1/feedback/Science", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	var resp struct {
		Feedback []models.FeedbackRecord `json:"feedback"`
	}
	decodeBody(t, rr, &resp)
	if len(resp.Feedback) != 1 || resp.Feedback[0].UserFeedback != "meh" {
		t.Errorf("Unexpected feedback listing: %+v", resp.Feedback)
	}

	rr = env.do(t, http.MethodDelete, "/api/v1/feedback/Science", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	records, _ := env.feedback.ListByCategory(ctx, "Science")
	if len(records) != 0 {
		t.Errorf("Expected cleared feedback, got %+v", records)
	}
}

func TestRejectRequest_NullVsEmptyDecoding(t *testing.T) {
	var withNull models.RejectRequest
	if err := json.Unmarshal([]byte(`{"annotation":"other","feedback":null}`), &withNull); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if withNull.Feedback != nil {
		t.Error("Expected nil feedback pointer for JSON null")
	}

	var withEmpty models.RejectRequest
	if err := json.Unmarshal([]byte(`{"annotation":"other","feedback":""}`), &withEmpty); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if withEmpty.Feedback == nil || *withEmpty.Feedback != "" {
		t.Error("Expected empty-string feedback pointer")
	}
}
