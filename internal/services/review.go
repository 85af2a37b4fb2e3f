package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ianb/trivia-maker/internal/models"
	"github.com/ianb/trivia-maker/internal/repository"
)

// Generator is the outbound generation call. Satisfied by OpenRouterClient;
// tests substitute a stub so the review logic runs without network access.
type Generator interface {
	Generate(ctx context.Context, token, prompt string) ([]models.Candidate, error)
}

// EventPublisher pushes generation lifecycle events to connected UIs. May be
// nil when no event fan-out is configured.
type EventPublisher interface {
	Publish(ctx context.Context, msg models.WSMessage)
}

// ReviewService orchestrates one generation at a time and holds the
// transient review queue. Candidates exist only between a generation
// response and the user's keep/reject decision; they are never persisted.
//
// Concurrency contract: a single generation may be in flight; each generate
// bumps a sequence number under the mutex, and a response that arrives after
// the queue was discarded or superseded compares sequence numbers and is
// thrown away instead of applied.
type ReviewService struct {
	cards    *repository.CardRepo
	feedback *repository.FeedbackRepo
	settings *repository.SettingsRepo
	client   Generator
	events   EventPublisher

	mu         sync.Mutex
	generating bool
	seq        uint64
	category   string // raw target category of the current queue
	queue      []models.Candidate
}

func NewReviewService(
	cards *repository.CardRepo,
	feedback *repository.FeedbackRepo,
	settings *repository.SettingsRepo,
	client Generator,
	events EventPublisher,
) *ReviewService {
	return &ReviewService{
		cards:    cards,
		feedback: feedback,
		settings: settings,
		client:   client,
		events:   events,
	}
}

// Generate builds the prompt from the category's cards and feedback, runs
// one generation request, and replaces the review queue with the result.
// Either a full schema-valid candidate list comes back or nothing does.
func (s *ReviewService) Generate(ctx context.Context, category, instructions string) ([]models.Candidate, error) {
	// A blank category is substituted with the default bucket for both the
	// lookup key and the text shown to the model; a non-blank category is
	// shown verbatim.
	promptCategory := category
	if strings.TrimSpace(category) == "" {
		promptCategory = models.UncategorizedCategory
	}

	s.mu.Lock()
	if s.generating {
		s.mu.Unlock()
		return nil, ErrGenerationInFlight
	}
	s.generating = true
	s.seq++
	mySeq := s.seq
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.generating = false
		s.mu.Unlock()
	}()

	token, ok, err := s.settings.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	if !ok {
		return nil, ErrNotConnected
	}

	key := models.NormalizeCategory(category)
	existing, err := s.cards.ListByCategory(ctx, key)
	if err != nil {
		return nil, err
	}
	records, err := s.feedback.ListByCategory(ctx, key)
	if err != nil {
		return nil, err
	}

	prompt := BuildGenerationPrompt(promptCategory, existing, records, instructions)

	s.publish(ctx, models.WSMessage{Type: "generation_started", Payload: map[string]string{"category": key}})

	start := time.Now()
	candidates, err := s.client.Generate(ctx, token, prompt)
	if err != nil {
		s.publish(ctx, models.WSMessage{Type: "generation_failed", Payload: map[string]string{"category": key}})
		return nil, err
	}
	duration := time.Since(start)

	if moved, err := s.settings.RecordGeneration(ctx, duration); err != nil {
		log.Printf("Failed to record generation duration: %v", err)
	} else if moved {
		log.Printf("New longest generation: %s", duration)
	}

	s.mu.Lock()
	if s.seq != mySeq {
		// The queue was discarded while this request was in flight. Drop the
		// result rather than resurrect a stale session.
		s.mu.Unlock()
		return nil, ErrGenerationSuperseded
	}
	s.category = category
	s.queue = candidates
	s.mu.Unlock()

	s.publish(ctx, models.WSMessage{
		Type:    "generation_completed",
		Payload: map[string]interface{}{"category": key, "count": len(candidates), "duration_ms": duration.Milliseconds()},
	})

	return s.Queue(), nil
}

// Queue returns a copy of the pending candidates.
func (s *ReviewService) Queue() []models.Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Candidate, len(s.queue))
	copy(out, s.queue)
	return out
}

// Keep files the candidate as a card under the generation's target category
// and removes it from the queue. Keeping is final.
//
// The candidate is claimed (removed) under the same lock acquisition that
// finds it, so a concurrent decision on the same candidate misses. It is
// restored only if the store write fails.
func (s *ReviewService) Keep(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil, ErrCandidateNotFound
	}
	candidate := s.queue[idx]
	category := s.category
	s.queue = append(s.queue[:idx], s.queue[idx+1:]...)
	s.mu.Unlock()

	card := &models.Card{
		Question: candidate.Question,
		Answer:   candidate.Answer,
		Category: models.NormalizeCategory(category),
	}
	if err := s.cards.Create(ctx, card); err != nil {
		// Store write failed; put the candidate back in play.
		s.restore(idx, candidate)
		return nil, err
	}
	return card, nil
}

// Reject files a feedback record and removes the candidate. A nil feedback
// pointer means the user abandoned the free-text prompt: the rejection is
// cancelled, nothing is written, and the candidate stays pending. Returns
// whether a decision was actually applied.
func (s *ReviewService) Reject(ctx context.Context, id uuid.UUID, annotation models.Annotation, feedback *string) (bool, error) {
	if !annotation.Valid() {
		return false, fmt.Errorf("%w: annotation must be too-easy, too-hard, or other", ErrInvalidInput)
	}

	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return false, ErrCandidateNotFound
	}
	if feedback == nil {
		// Cancelled: the candidate is never claimed.
		s.mu.Unlock()
		return false, nil
	}
	candidate := s.queue[idx]
	category := s.category
	s.queue = append(s.queue[:idx], s.queue[idx+1:]...)
	s.mu.Unlock()

	record := models.FeedbackRecord{
		Question:     candidate.Question,
		Answer:       candidate.Answer,
		Annotation:   annotation,
		UserFeedback: *feedback,
	}
	if err := s.feedback.Append(ctx, category, record); err != nil {
		s.restore(idx, candidate)
		return false, err
	}
	return true, nil
}

// Discard throws away the current queue. Bumping the sequence number also
// invalidates any generation still in flight.
func (s *ReviewService) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = nil
	s.category = ""
	s.seq++
}

func (s *ReviewService) Stats(ctx context.Context) (models.Stats, error) {
	longest, err := s.settings.LongestGeneration(ctx)
	if err != nil {
		return models.Stats{}, err
	}
	return models.Stats{LongestGenerationMs: longest.Milliseconds()}, nil
}

// indexOf must be called with the mutex held.
func (s *ReviewService) indexOf(id uuid.UUID) int {
	for i := range s.queue {
		if s.queue[i].ID == id {
			return i
		}
	}
	return -1
}

// restore puts a claimed candidate back after a failed store write. The queue
// may have shrunk in the meantime, so the index is clamped.
func (s *ReviewService) restore(idx int, candidate models.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx > len(s.queue) {
		idx = len(s.queue)
	}
	s.queue = append(s.queue[:idx], append([]models.Candidate{candidate}, s.queue[idx:]...)...)
}

func (s *ReviewService) publish(ctx context.Context, msg models.WSMessage) {
	if s.events != nil {
		s.events.Publish(ctx, msg)
	}
}
