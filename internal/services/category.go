package services

import (
	"context"
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/ianb/trivia-maker/internal/models"
	"github.com/ianb/trivia-maker/internal/repository"
)

// CategoryService derives the category listing from card categories and
// feedback keys. Categories are not stored entities: any string is a valid
// category and grouping is case-sensitive. Only the listing filter matches
// case-insensitively (dropdown behavior carried over from the original UI).
type CategoryService struct {
	cards    *repository.CardRepo
	feedback *repository.FeedbackRepo
}

func NewCategoryService(cards *repository.CardRepo, feedback *repository.FeedbackRepo) *CategoryService {
	return &CategoryService{cards: cards, feedback: feedback}
}

func (s *CategoryService) List(ctx context.Context, filter string) ([]models.CategoryInfo, error) {
	cards, err := s.cards.List(ctx)
	if err != nil {
		return nil, err
	}
	feedback, err := s.feedback.All(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, c := range cards {
		if c.Category != "" {
			seen[c.Category] = true
		}
	}
	for category := range feedback {
		if category != "" {
			seen[category] = true
		}
	}

	names := make([]string, 0, len(seen))
	lowerFilter := strings.ToLower(strings.TrimSpace(filter))
	for name := range seen {
		if lowerFilter != "" && !strings.Contains(strings.ToLower(name), lowerFilter) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	infos := make([]models.CategoryInfo, len(names))
	for i, name := range names {
		infos[i] = models.CategoryInfo{Name: name, Color: CategoryColor(name)}
	}
	return infos, nil
}

var categoryPalette = []models.CategoryColor{
	{Background: "#8B4513", Text: "#FFF"}, // Brown
	{Background: "#4A148C", Text: "#FFF"}, // Purple
	{Background: "#00695C", Text: "#FFF"}, // Teal
	{Background: "#B71C1C", Text: "#FFF"}, // Red
	{Background: "#0D47A1", Text: "#FFF"}, // Blue
	{Background: "#1B5E20", Text: "#FFF"}, // Green
	{Background: "#E65100", Text: "#FFF"}, // Orange
	{Background: "#4A148C", Text: "#FFF"}, // Deep Purple
	{Background: "#880E4F", Text: "#FFF"}, // Pink
	{Background: "#1A237E", Text: "#FFF"}, // Indigo
	{Background: "#BF360C", Text: "#FFF"}, // Deep Orange
	{Background: "#004D40", Text: "#FFF"}, // Dark Teal
}

// CategoryColor assigns a stable display color per category string. The hash
// runs over UTF-16 code units with 32-bit wraparound so existing category
// colors survive the migration from the browser app.
func CategoryColor(category string) models.CategoryColor {
	if category == "" {
		return models.CategoryColor{Background: "#9E9E9E", Text: "#FFF"}
	}

	var hash int32
	for _, unit := range utf16.Encode([]rune(category)) {
		hash = int32(unit) + ((hash << 5) - hash)
	}

	idx := int64(hash)
	if idx < 0 {
		idx = -idx
	}
	return categoryPalette[idx%int64(len(categoryPalette))]
}
