package config

import (
	"context"
	"errors"
	"time"

	"torrentstream/internal/apperr"
	"torrentstream/internal/domain"
	"torrentstream/internal/domain/ports"
	"torrentstream/internal/metrics"
)

// IssuedToken is the plaintext-bearing response of IssueSetupToken. The
// plaintext is never persisted and never logged; only its Argon2 hash is.
type IssuedToken struct {
	Plaintext string
	ExpiresAt time.Time
}

// IssueSetupToken generates a fresh token, invalidates any prior active
// ones, and stores the new hash. Only valid while the instance is in Setup
// mode.
func (s *Service) IssueSetupToken(ctx context.Context, issuedBy string) (IssuedToken, error) {
	appProfile, err := s.store.FetchAppProfile(ctx)
	if err != nil {
		return IssuedToken{}, apperr.Wrap(apperr.KindServiceUnavailable, "fetch app_profile", err)
	}
	if appProfile.Mode != domain.ModeSetup {
		return IssuedToken{}, apperr.New(apperr.KindConflict, "setup tokens can only be issued in setup mode")
	}

	plaintext, err := generateSetupToken()
	if err != nil {
		return IssuedToken{}, apperr.Wrap(apperr.KindInternal, "generate setup token", err)
	}
	hash, salt, err := hashSecret(plaintext)
	if err != nil {
		return IssuedToken{}, apperr.Wrap(apperr.KindInternal, "hash setup token", err)
	}

	if err := s.store.InvalidateActiveSetupTokens(ctx); err != nil {
		return IssuedToken{}, apperr.Wrap(apperr.KindInternal, "invalidate prior setup tokens", err)
	}

	now := s.now()
	expiresAt := now.Add(s.setupTokenTTL)
	record := ports.SetupTokenRecord{
		ID:        plaintext[:8],
		Hash:      hash,
		Salt:      salt,
		IssuedBy:  issuedBy,
		IssuedAt:  now.Unix(),
		ExpiresAt: expiresAt.Unix(),
	}
	if err := s.store.CreateSetupToken(ctx, record); err != nil {
		return IssuedToken{}, apperr.Wrap(apperr.KindInternal, "store setup token", err)
	}

	metrics.SetupTokensIssuedTotal.Inc()
	return IssuedToken{Plaintext: plaintext, ExpiresAt: expiresAt}, nil
}

// ValidateSetupToken checks the single active unconsumed token without
// consuming it. An expired token is marked consumed as a side effect (it
// can never succeed again) but validation still reports failure.
func (s *Service) ValidateSetupToken(ctx context.Context, plaintext string) error {
	_, err := s.lookupActiveToken(ctx, plaintext, false)
	return err
}

// ConsumeSetupToken validates the token and, on success, marks it
// consumed. A second call with the same plaintext fails.
func (s *Service) ConsumeSetupToken(ctx context.Context, plaintext string) error {
	_, err := s.lookupActiveToken(ctx, plaintext, true)
	return err
}

func (s *Service) lookupActiveToken(ctx context.Context, plaintext string, consume bool) (ports.SetupTokenRecord, error) {
	record, err := s.store.ActiveSetupToken(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ports.SetupTokenRecord{}, apperr.New(apperr.KindUnauthorized, "no active setup token")
		}
		return ports.SetupTokenRecord{}, apperr.Wrap(apperr.KindInternal, "fetch active setup token", err)
	}
	if record.Consumed {
		return ports.SetupTokenRecord{}, apperr.New(apperr.KindUnauthorized, "setup token already consumed")
	}
	if s.now().Unix() >= record.ExpiresAt {
		_ = s.store.MarkSetupTokenConsumed(ctx, record.ID)
		return ports.SetupTokenRecord{}, apperr.New(apperr.KindUnauthorized, "setup token expired")
	}
	if !verifySecret(plaintext, record.Hash, record.Salt) {
		return ports.SetupTokenRecord{}, apperr.New(apperr.KindUnauthorized, "setup token mismatch")
	}
	if consume {
		if err := s.store.MarkSetupTokenConsumed(ctx, record.ID); err != nil {
			return ports.SetupTokenRecord{}, apperr.Wrap(apperr.KindInternal, "mark setup token consumed", err)
		}
	}
	return record, nil
}

// APIAuthContext is returned on a successful API-key authentication.
type APIAuthContext struct {
	KeyID     string
	RateLimit *int
}

// AuthenticateAPIKey verifies the key_id/secret pair. A disabled, expired,
// or mismatched key returns (nil, nil) rather than an error — the caller
// maps that to Forbidden.
func (s *Service) AuthenticateAPIKey(ctx context.Context, keyID, secret string) (*APIAuthContext, error) {
	record, err := s.store.FetchAPIKey(ctx, keyID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.KindInternal, "fetch api key", err)
	}
	if !record.Enabled {
		return nil, nil
	}
	if record.ExpiresAt != nil && s.now().Unix() >= *record.ExpiresAt {
		return nil, nil
	}
	if !verifySecret(secret, record.Hash, record.Salt) {
		return nil, nil
	}
	return &APIAuthContext{KeyID: record.KeyID, RateLimit: record.RateLimit}, nil
}
