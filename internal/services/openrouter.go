package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ianb/trivia-maker/internal/models"
)

// Package-level so tests can point the client at an httptest server.
var (
	openRouterBaseURL = "https://openrouter.ai/api/v1"
	openRouterAuthURL = "https://openrouter.ai/auth"
)

// OpenRouterClient performs the chat-completion and key-exchange calls. It
// holds no credential; the bearer token is passed per call so a disconnect
// takes effect immediately.
type OpenRouterClient struct {
	model  string
	client *http.Client
}

func NewOpenRouterClient(model string, timeout time.Duration) *OpenRouterClient {
	return &OpenRouterClient{
		model:  model,
		client: &http.Client{Timeout: timeout},
	}
}

// Chat completion request/response structs

type chatRequest struct {
	Model          string          `json:"model"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Messages       []chatMessage   `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string     `json:"type"`
	JSONSchema jsonSchema `json:"json_schema"`
}

type jsonSchema struct {
	Name   string     `json:"name"`
	Strict bool       `json:"strict"`
	Schema schemaNode `json:"schema"`
}

type schemaNode struct {
	Type                 string                `json:"type"`
	Description          string                `json:"description,omitempty"`
	Properties           map[string]schemaNode `json:"properties,omitempty"`
	Items                *schemaNode           `json:"items,omitempty"`
	Required             []string              `json:"required,omitempty"`
	AdditionalProperties *bool                 `json:"additionalProperties,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// generatedQuestion is one item of the schema-constrained reply. The model
// reviews its own question for answer leakage: when answerInQuestion is set
// it must also supply a reworded alternateQuestion.
type generatedQuestion struct {
	Question          string `json:"question"`
	Answer            string `json:"answer"`
	AnswerInQuestion  bool   `json:"answerInQuestion"`
	AlternateQuestion string `json:"alternateQuestion"`
}

func triviaQuestionSchema() jsonSchema {
	noExtra := false
	return jsonSchema{
		Name:   "trivia_questions",
		Strict: true,
		Schema: schemaNode{
			Type: "object",
			Properties: map[string]schemaNode{
				"questions": {
					Type: "array",
					Items: &schemaNode{
						Type: "object",
						Properties: map[string]schemaNode{
							"question":          {Type: "string", Description: "The trivia question"},
							"answer":            {Type: "string", Description: "The answer to the trivia question"},
							"answerInQuestion":  {Type: "boolean", Description: "True if the question text gives away the answer"},
							"alternateQuestion": {Type: "string", Description: "A reworded question to use when answerInQuestion is true"},
						},
						Required:             []string{"question", "answer", "answerInQuestion", "alternateQuestion"},
						AdditionalProperties: &noExtra,
					},
				},
			},
			Required:             []string{"questions"},
			AdditionalProperties: &noExtra,
		},
	}
}

// Generate runs one chat-completion request and converts the structured
// reply into review candidates. Any transport, status, or parse failure
// fails the whole call; no partial candidate list is ever returned.
func (c *OpenRouterClient) Generate(ctx context.Context, token, prompt string) ([]models.Candidate, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrNotConnected
	}

	schema := triviaQuestionSchema()
	reqBody := chatRequest{
		Model:          c.model,
		ResponseFormat: &responseFormat{Type: "json_schema", JSONSchema: schema},
		Messages: []chatMessage{
			{Role: "system", Content: generationSystemPrompt},
			{Role: "user", Content: prompt},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request", ErrProviderUnavailable)
	}

	log.Printf("Sending generation request (model=%s, prompt_length=%d)", c.model, len(prompt))

	req, err := http.NewRequestWithContext(ctx, "POST", openRouterBaseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer func() {
		// Drain and close the body to ensure connection reuse
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, fmt.Errorf("%w: status %d", ErrNotConnected, resp.StatusCode)
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: status %d", ErrRateLimitExceeded, resp.StatusCode)
		}

		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		if len(bodyBytes) > 0 {
			log.Printf("OpenRouter non-200 response (status=%d): %s", resp.StatusCode, bodyBytes)
		}
		return nil, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response", ErrMalformedResponse)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty choices", ErrMalformedResponse)
	}

	content := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	content = stripMarkdownCodeBlock(content)

	questions, err := parseQuestions(content)
	if err != nil {
		log.Printf("Failed to parse structured response: %v", err)
		return nil, err
	}

	candidates := make([]models.Candidate, len(questions))
	for i, q := range questions {
		question := q.Question
		// Self-correction override: the model polices its own answer leakage
		// by flagging the question and supplying a replacement.
		if q.AnswerInQuestion && strings.TrimSpace(q.AlternateQuestion) != "" {
			question = strings.TrimSpace(q.AlternateQuestion)
		}
		candidates[i] = models.Candidate{
			ID:       uuid.New(),
			Question: question,
			Answer:   q.Answer,
		}
	}

	log.Printf("Received %d generated questions", len(candidates))
	return candidates, nil
}

// parseQuestions accepts the schema shape (object with a questions array)
// and, as a legacy fallback, a bare top-level array.
func parseQuestions(content string) ([]generatedQuestion, error) {
	var structured struct {
		Questions []generatedQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(content), &structured); err == nil && structured.Questions != nil {
		return structured.Questions, nil
	}

	var direct []generatedQuestion
	if err := json.Unmarshal([]byte(content), &direct); err == nil {
		return direct, nil
	}

	return nil, fmt.Errorf("%w: response does not contain a questions array", ErrMalformedResponse)
}

// stripMarkdownCodeBlock removes leading and trailing markdown code fences
// (```json or ```) that some models wrap around JSON content.
func stripMarkdownCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```json"))
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```"))
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

// AuthorizationURL builds the OpenRouter authorization redirect for the
// PKCE handshake.
func (c *OpenRouterClient) AuthorizationURL(callbackURL, challenge string) string {
	return fmt.Sprintf("%s?callback_url=%s&code_challenge=%s&code_challenge_method=S256",
		openRouterAuthURL, url.QueryEscape(callbackURL), url.QueryEscape(challenge))
}

// ExchangeCode trades an authorization code plus the stored verifier for an
// API key.
func (c *OpenRouterClient) ExchangeCode(ctx context.Context, code, verifier string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"code":                  code,
		"code_verifier":         verifier,
		"code_challenge_method": "S256",
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal exchange request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", openRouterBaseURL+"/auth/keys", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		log.Printf("Key exchange failed (status=%d): %s", resp.StatusCode, bodyBytes)
		return "", fmt.Errorf("%w: key exchange status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var keyResp struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&keyResp); err != nil {
		return "", fmt.Errorf("%w: failed to decode key response", ErrMalformedResponse)
	}
	if keyResp.Key == "" {
		return "", fmt.Errorf("%w: empty key in response", ErrMalformedResponse)
	}
	return keyResp.Key, nil
}
