package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// SettingsRepo holds the small scalar entries: the generation credential,
// the transient PKCE verifier, and the longest-generation-duration watermark.
type SettingsRepo struct {
	store Store
}

func NewSettingsRepo(store Store) *SettingsRepo {
	return &SettingsRepo{store: store}
}

func (r *SettingsRepo) Token(ctx context.Context) (string, bool, error) {
	data, ok, err := r.store.Load(ctx, tokenKey)
	if err != nil || !ok {
		return "", false, err
	}
	return string(data), true, nil
}

func (r *SettingsRepo) SaveToken(ctx context.Context, token string) error {
	return r.store.Save(ctx, tokenKey, []byte(token))
}

func (r *SettingsRepo) DeleteToken(ctx context.Context) error {
	return r.store.Delete(ctx, tokenKey)
}

// The verifier only lives for the duration of one authorization handshake.
func (r *SettingsRepo) SaveVerifier(ctx context.Context, verifier string, ttl time.Duration) error {
	return r.store.SaveExpiring(ctx, verifierKey, []byte(verifier), ttl)
}

func (r *SettingsRepo) Verifier(ctx context.Context) (string, bool, error) {
	data, ok, err := r.store.Load(ctx, verifierKey)
	if err != nil || !ok {
		return "", false, err
	}
	return string(data), true, nil
}

func (r *SettingsRepo) DeleteVerifier(ctx context.Context) error {
	return r.store.Delete(ctx, verifierKey)
}

type storedStats struct {
	LongestGenerationMs int64 `json:"longest_generation_ms"`
}

func (r *SettingsRepo) LongestGeneration(ctx context.Context) (time.Duration, error) {
	data, ok, err := r.store.Load(ctx, statsKey)
	if err != nil || !ok {
		return 0, err
	}

	var stats storedStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return 0, fmt.Errorf("failed to decode stats: %w", err)
	}
	return time.Duration(stats.LongestGenerationMs) * time.Millisecond, nil
}

// RecordGeneration raises the watermark when the observed duration exceeds
// it. Returns whether the watermark moved.
func (r *SettingsRepo) RecordGeneration(ctx context.Context, d time.Duration) (bool, error) {
	current, err := r.LongestGeneration(ctx)
	if err != nil {
		return false, err
	}
	if d <= current {
		return false, nil
	}

	data, err := json.Marshal(storedStats{LongestGenerationMs: d.Milliseconds()})
	if err != nil {
		return false, fmt.Errorf("failed to encode stats: %w", err)
	}
	if err := r.store.Save(ctx, statsKey, data); err != nil {
		return false, err
	}
	return true, nil
}
