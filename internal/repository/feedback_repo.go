package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ianb/trivia-maker/internal/models"
)

// FeedbackRepo owns the rejected-question store: a map from category key to
// an ordered list of feedback records. Insertion order is meaningful (most
// recent last) because the prompt builder presents records in that order.
type FeedbackRepo struct {
	store Store
}

func NewFeedbackRepo(store Store) *FeedbackRepo {
	return &FeedbackRepo{store: store}
}

func (r *FeedbackRepo) All(ctx context.Context) (map[string][]models.FeedbackRecord, error) {
	data, ok, err := r.store.Load(ctx, feedbackKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback: %w", err)
	}
	if !ok {
		return map[string][]models.FeedbackRecord{}, nil
	}

	var feedback map[string][]models.FeedbackRecord
	if err := json.Unmarshal(data, &feedback); err != nil {
		return nil, fmt.Errorf("failed to decode feedback: %w", err)
	}
	if feedback == nil {
		feedback = map[string][]models.FeedbackRecord{}
	}
	return feedback, nil
}

func (r *FeedbackRepo) ListByCategory(ctx context.Context, category string) ([]models.FeedbackRecord, error) {
	feedback, err := r.All(ctx)
	if err != nil {
		return nil, err
	}

	records := feedback[models.NormalizeCategory(category)]
	if records == nil {
		records = []models.FeedbackRecord{}
	}
	return records, nil
}

func (r *FeedbackRepo) Append(ctx context.Context, category string, record models.FeedbackRecord) error {
	feedback, err := r.All(ctx)
	if err != nil {
		return err
	}

	key := models.NormalizeCategory(category)
	feedback[key] = append(feedback[key], record)
	return r.save(ctx, feedback)
}

// Merge concatenates imported feedback lists onto existing ones per category.
func (r *FeedbackRepo) Merge(ctx context.Context, incoming map[string][]models.FeedbackRecord) error {
	if len(incoming) == 0 {
		return nil
	}

	feedback, err := r.All(ctx)
	if err != nil {
		return err
	}

	for category, records := range incoming {
		key := models.NormalizeCategory(category)
		feedback[key] = append(feedback[key], records...)
	}
	return r.save(ctx, feedback)
}

func (r *FeedbackRepo) ClearCategory(ctx context.Context, category string) error {
	feedback, err := r.All(ctx)
	if err != nil {
		return err
	}

	delete(feedback, models.NormalizeCategory(category))
	if len(feedback) == 0 {
		return r.store.Delete(ctx, feedbackKey)
	}
	return r.save(ctx, feedback)
}

func (r *FeedbackRepo) save(ctx context.Context, feedback map[string][]models.FeedbackRecord) error {
	data, err := json.Marshal(feedback)
	if err != nil {
		return fmt.Errorf("failed to encode feedback: %w", err)
	}
	return r.store.Save(ctx, feedbackKey, data)
}
