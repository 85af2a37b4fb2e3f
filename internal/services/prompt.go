package services

import (
	"fmt"
	"strings"

	"github.com/ianb/trivia-maker/internal/models"
)

// generationSystemPrompt is the fixed policy message sent with every
// generation request. The answerInQuestion clause drives the self-correction
// override applied in the client.
const generationSystemPrompt = `You are a trivia question generator. You are making questions with compact questions and a canonical answer. Answers should be short and clear (though you may include an explanation in parenthesis if there are multiple possible answers). If a question contains or strongly implies its own answer, set answerInQuestion to true and supply an alternateQuestion that asks for the same fact without leaking it.`

// BuildGenerationPrompt renders the user prompt for one generation request.
// It is a pure transform: identical inputs produce byte-identical output.
// Sections appear in fixed order and empty sections are omitted entirely.
// The category text is embedded verbatim; callers resolve blank categories
// to the default key before fetching cards and feedback.
func BuildGenerationPrompt(category string, existing []models.Card, feedback []models.FeedbackRecord, instructions string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Generate 5 trivia questions about \"%s\".\n\n", category)

	if len(existing) > 0 {
		b.WriteString("Here are the existing questions in this category (try to make new kinds of questions different than these):\n")
		for _, card := range existing {
			fmt.Fprintf(&b, "Q: %s  A: %s\n", card.Question, card.Answer)
		}
		b.WriteString("\n")
	}

	var tooEasy, tooHard, other []models.FeedbackRecord
	for _, rec := range feedback {
		switch rec.Annotation {
		case models.AnnotationTooEasy:
			tooEasy = append(tooEasy, rec)
		case models.AnnotationTooHard:
			tooHard = append(tooHard, rec)
		default:
			other = append(other, rec)
		}
	}

	writeAnnotatedBlock(&b, "Here are some questions that were rejected as too easy:\n", "too-easy", tooEasy)
	writeAnnotatedBlock(&b, "Here are some questions that were rejected as too hard:\n", "too-hard", tooHard)

	if len(other) > 0 {
		b.WriteString("Here are some questions that were rejected for other reasons:\n")
		for _, rec := range other {
			if rec.UserFeedback != "" {
				fmt.Fprintf(&b, "<rejected feedback=\"%s\">\n", escapeAttr(rec.UserFeedback))
				fmt.Fprintf(&b, "Q: %s  A: %s\n", rec.Question, rec.Answer)
				b.WriteString("</rejected>\n")
			} else {
				b.WriteString("<rejected-no-reason>\n")
				fmt.Fprintf(&b, "Q: %s  A: %s\n", rec.Question, rec.Answer)
				b.WriteString("</rejected-no-reason>\n")
			}
		}
		b.WriteString("\n")
	}

	if len(tooEasy) > 0 || len(tooHard) > 0 || len(other) > 0 {
		b.WriteString("You may generate a similar question to those that were rejected, so long as you incorporate the feedback.\n\n")
	}

	if trimmed := strings.TrimSpace(instructions); trimmed != "" {
		fmt.Fprintf(&b, "Additional instructions: %s\n\n", trimmed)
	}

	return b.String()
}

func writeAnnotatedBlock(b *strings.Builder, header, tag string, records []models.FeedbackRecord) {
	if len(records) == 0 {
		return
	}

	b.WriteString(header)
	for _, rec := range records {
		if rec.UserFeedback != "" {
			fmt.Fprintf(b, "<%s feedback=\"%s\">\n", tag, escapeAttr(rec.UserFeedback))
		} else {
			fmt.Fprintf(b, "<%s>\n", tag)
		}
		fmt.Fprintf(b, "Q: %s  A: %s\n", rec.Question, rec.Answer)
		fmt.Fprintf(b, "</%s>\n", tag)
	}
	b.WriteString("\n")
}

// escapeAttr keeps free-text feedback from breaking the quoted attribute
// delimiter. The blocks are plain text for the model, not parsed markup, so
// a backslash escape is enough to round-trip visually.
func escapeAttr(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
