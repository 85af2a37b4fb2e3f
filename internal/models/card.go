package models

import (
	"strings"

	"github.com/google/uuid"
)

// UncategorizedCategory is the bucket for cards whose category is blank.
const UncategorizedCategory = "Uncategorized"

type Card struct {
	ID       uuid.UUID `json:"id"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Category string    `json:"category"`
}

type CardRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category"`
}

// NormalizeCategory returns the category key used for grouping and lookups.
// Blank or all-whitespace input maps to UncategorizedCategory; anything else
// is trimmed but otherwise preserved, including its case.
func NormalizeCategory(category string) string {
	trimmed := strings.TrimSpace(category)
	if trimmed == "" {
		return UncategorizedCategory
	}
	return trimmed
}

// ExportCard is the wire shape of a card in an export document. IDs are not
// exported; import assigns fresh ones.
type ExportCard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category"`
}

// ExportDocument is the top-level import/export shape.
type ExportDocument struct {
	TriviaQuestions   []ExportCard                `json:"triviaQuestions"`
	RejectedQuestions map[string][]FeedbackRecord `json:"rejectedQuestions,omitempty"`
}
