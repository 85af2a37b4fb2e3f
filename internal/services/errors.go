package services

import "errors"

var (
	ErrNotConnected         = errors.New("no generation credential is configured") // 401
	ErrProviderUnavailable  = errors.New("generation provider is currently unavailable")
	ErrMalformedResponse    = errors.New("generation provider returned a malformed response")
	ErrRateLimitExceeded    = errors.New("generation provider rate limit exceeded")
	ErrGenerationInFlight   = errors.New("a generation is already in progress")
	ErrGenerationSuperseded = errors.New("generation result was superseded and discarded")
	ErrCandidateNotFound    = errors.New("candidate is no longer in the review queue")
	ErrNoPendingAuth        = errors.New("no authorization handshake is pending")
	ErrInvalidInput         = errors.New("invalid input parameters")
)
