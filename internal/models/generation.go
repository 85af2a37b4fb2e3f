package models

import "github.com/google/uuid"

// Candidate is a generated question/answer pair awaiting a keep/reject
// decision. Candidates live only in the review queue and are never persisted.
type Candidate struct {
	ID       uuid.UUID `json:"id"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
}

type GenerateRequest struct {
	Category     string `json:"category"`
	Instructions string `json:"instructions"`
}

// RejectRequest carries the rejection annotation and the elicited free-text
// reason. Feedback is a pointer so a JSON null can signal that the user
// dismissed the feedback prompt: the rejection is then treated as cancelled
// and the candidate stays in the queue. An empty string is a real, empty
// reason.
type RejectRequest struct {
	Annotation Annotation `json:"annotation"`
	Feedback   *string    `json:"feedback"`
}

type Stats struct {
	LongestGenerationMs int64 `json:"longest_generation_ms"`
}

// WSMessage is the envelope for events pushed to websocket clients.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}
