package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"github.com/ianb/trivia-maker/internal/repository"
)

const (
	verifierLength = 128
	verifierTTL    = 10 * time.Minute
)

// Characters permitted in a PKCE code verifier (RFC 7636 unreserved set).
const verifierChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

// ConnectService runs the authorization-code handshake that yields the
// bearer credential used for generation. The verifier is held transiently in
// the store between the two legs of the handshake.
type ConnectService struct {
	settings *repository.SettingsRepo
	client   *OpenRouterClient
}

func NewConnectService(settings *repository.SettingsRepo, client *OpenRouterClient) *ConnectService {
	return &ConnectService{settings: settings, client: client}
}

// BeginAuthorization creates a fresh verifier/challenge pair, stashes the
// verifier, and returns the URL the user must visit to authorize.
func (s *ConnectService) BeginAuthorization(ctx context.Context, callbackURL string) (string, error) {
	if callbackURL == "" {
		return "", fmt.Errorf("%w: callback_url is required", ErrInvalidInput)
	}

	verifier, err := newVerifier()
	if err != nil {
		return "", fmt.Errorf("failed to generate verifier: %w", err)
	}

	if err := s.settings.SaveVerifier(ctx, verifier, verifierTTL); err != nil {
		return "", fmt.Errorf("failed to store verifier: %w", err)
	}

	return s.client.AuthorizationURL(callbackURL, challengeS256(verifier)), nil
}

// CompleteAuthorization exchanges the returned code for an API key and
// persists it as the generation credential.
func (s *ConnectService) CompleteAuthorization(ctx context.Context, code string) error {
	if code == "" {
		return fmt.Errorf("%w: code is required", ErrInvalidInput)
	}

	verifier, ok, err := s.settings.Verifier(ctx)
	if err != nil {
		return fmt.Errorf("failed to load verifier: %w", err)
	}
	if !ok {
		return ErrNoPendingAuth
	}

	key, err := s.client.ExchangeCode(ctx, code, verifier)
	if err != nil {
		return err
	}

	if err := s.settings.SaveToken(ctx, key); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	if err := s.settings.DeleteVerifier(ctx); err != nil {
		// The credential is already stored; a leftover verifier only means a
		// stale handshake record, so log instead of failing the connect.
		log.Printf("Failed to delete verifier after exchange: %v", err)
	}
	return nil
}

func (s *ConnectService) Connected(ctx context.Context) (bool, error) {
	_, ok, err := s.settings.Token(ctx)
	return ok, err
}

func (s *ConnectService) Disconnect(ctx context.Context) error {
	return s.settings.DeleteToken(ctx)
}

func newVerifier() (string, error) {
	buf := make([]byte, verifierLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = verifierChars[int(b)%len(verifierChars)]
	}
	return string(buf), nil
}

// challengeS256 is the base64url-encoded SHA-256 of the verifier, unpadded.
func challengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
