package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ianb/trivia-maker/internal/models"
)

// CardRepo owns the ordered card collection. All mutations load the full
// list, modify it, and write it back as one value.
type CardRepo struct {
	store Store
}

func NewCardRepo(store Store) *CardRepo {
	return &CardRepo{store: store}
}

func (r *CardRepo) List(ctx context.Context) ([]models.Card, error) {
	data, ok, err := r.store.Load(ctx, cardsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load cards: %w", err)
	}
	if !ok {
		return []models.Card{}, nil
	}

	var cards []models.Card
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("failed to decode cards: %w", err)
	}
	if cards == nil {
		cards = []models.Card{}
	}
	return cards, nil
}

// ListByCategory returns the cards whose normalized category equals the
// normalized input, in stored order. Matching is case-sensitive.
func (r *CardRepo) ListByCategory(ctx context.Context, category string) ([]models.Card, error) {
	cards, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	key := models.NormalizeCategory(category)
	matched := []models.Card{}
	for _, c := range cards {
		if models.NormalizeCategory(c.Category) == key {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

// Create assigns an ID, normalizes the category, and appends the card.
func (r *CardRepo) Create(ctx context.Context, card *models.Card) error {
	cards, err := r.List(ctx)
	if err != nil {
		return err
	}

	card.ID = uuid.New()
	card.Category = models.NormalizeCategory(card.Category)
	cards = append(cards, *card)
	return r.save(ctx, cards)
}

// Update rewrites question/answer/category in place; identity is preserved.
func (r *CardRepo) Update(ctx context.Context, card models.Card) error {
	cards, err := r.List(ctx)
	if err != nil {
		return err
	}

	for i := range cards {
		if cards[i].ID == card.ID {
			cards[i].Question = card.Question
			cards[i].Answer = card.Answer
			cards[i].Category = models.NormalizeCategory(card.Category)
			return r.save(ctx, cards)
		}
	}
	return ErrNotFound
}

func (r *CardRepo) Delete(ctx context.Context, id uuid.UUID) error {
	cards, err := r.List(ctx)
	if err != nil {
		return err
	}

	for i := range cards {
		if cards[i].ID == id {
			cards = append(cards[:i], cards[i+1:]...)
			return r.save(ctx, cards)
		}
	}
	return ErrNotFound
}

func (r *CardRepo) Clear(ctx context.Context) error {
	return r.store.Delete(ctx, cardsKey)
}

// Append adds imported cards to the end of the collection, assigning fresh
// IDs. Existing cards are never replaced.
func (r *CardRepo) Append(ctx context.Context, incoming []models.Card) error {
	if len(incoming) == 0 {
		return nil
	}

	cards, err := r.List(ctx)
	if err != nil {
		return err
	}

	for _, c := range incoming {
		c.ID = uuid.New()
		c.Category = models.NormalizeCategory(c.Category)
		cards = append(cards, c)
	}
	return r.save(ctx, cards)
}

func (r *CardRepo) save(ctx context.Context, cards []models.Card) error {
	data, err := json.Marshal(cards)
	if err != nil {
		return fmt.Errorf("failed to encode cards: %w", err)
	}
	return r.store.Save(ctx, cardsKey, data)
}
