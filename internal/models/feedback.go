package models

type Annotation string

const (
	AnnotationTooEasy Annotation = "too-easy"
	AnnotationTooHard Annotation = "too-hard"
	AnnotationOther   Annotation = "other"
)

func (a Annotation) Valid() bool {
	switch a {
	case AnnotationTooEasy, AnnotationTooHard, AnnotationOther:
		return true
	}
	return false
}

// FeedbackRecord is a stored rejection of a generated candidate. Records are
// append-only: they are never edited, only cleared per category.
type FeedbackRecord struct {
	Question     string     `json:"question"`
	Answer       string     `json:"answer"`
	Annotation   Annotation `json:"annotation"`
	UserFeedback string     `json:"userFeedback"`
}
