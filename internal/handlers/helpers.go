package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ianb/trivia-maker/internal/models"
	"github.com/ianb/trivia-maker/internal/repository"
	"github.com/ianb/trivia-maker/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

// handleServiceError maps service and repository sentinel errors onto the
// API error envelope.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNotConnected):
		writeJSON(w, http.StatusUnauthorized, errorResp("NOT_CONNECTED", "OpenRouter is not connected", r))
	case errors.Is(err, services.ErrGenerationInFlight):
		writeJSON(w, http.StatusConflict, errorResp("GENERATION_IN_FLIGHT", "A generation is already in progress", r))
	case errors.Is(err, services.ErrGenerationSuperseded):
		writeJSON(w, http.StatusConflict, errorResp("SUPERSEDED", "The generation was discarded before it finished", r))
	case errors.Is(err, services.ErrRateLimitExceeded):
		writeJSON(w, http.StatusTooManyRequests, errorResp("RATE_LIMITED", "Generation provider rate limit exceeded", r))
	case errors.Is(err, services.ErrMalformedResponse):
		writeJSON(w, http.StatusBadGateway, errorResp("MALFORMED_RESPONSE", "Failed to parse the generation response", r))
	case errors.Is(err, services.ErrProviderUnavailable):
		writeJSON(w, http.StatusBadGateway, errorResp("PROVIDER_ERROR", "Generation provider request failed", r))
	case errors.Is(err, services.ErrCandidateNotFound):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Candidate is no longer in the review queue", r))
	case errors.Is(err, services.ErrNoPendingAuth):
		writeJSON(w, http.StatusBadRequest, errorResp("NO_PENDING_AUTH", "No authorization handshake is pending", r))
	case errors.Is(err, services.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", err.Error(), r))
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Record not found", r))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Something went wrong", r))
	}
}
