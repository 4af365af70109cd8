package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"mvp/internal/observability"
)

// Persisted keys.
const (
	KeyLoggedIn        = "isLoggedIn"
	KeyUserID          = "userId"
	KeyUsername        = "currentUsername"
	KeyOnboardedPrefix = "isOnboarded-"
	KeyAccessToken     = "accessToken"
)

// OnboardedKey is the per-user onboarding key.
func OnboardedKey(userID string) string {
	return KeyOnboardedPrefix + userID
}

// Persister writes the persisted fields of every new state to a KV.
type Persister struct {
	kv KV

	mu      sync.Mutex
	lastErr error
}

// NewPersister creates a Persister for kv.
func NewPersister(kv KV) *Persister {
	return &Persister{kv: kv}
}

// Attach subscribes the persister to store.
func (p *Persister) Attach(store *Store) func() {
	return store.Subscribe(p.Observe)
}

// Observe is the Observer that writes changed fields.
func (p *Persister) Observe(ctx context.Context, prev, next State, action Action) {
	err := p.write(ctx, prev, next)
	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()
	if err != nil {
		observability.GlobalLogger.ErrorContext(ctx, "persisting session failed",
			slog.String("action", action.Name()),
			slog.String("error", err.Error()),
		)
	}
}

// Err returns the error of the most recent write, if any.
func (p *Persister) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func (p *Persister) write(ctx context.Context, prev, next State) error {
	var errs []error
	if prev.LoggedIn != next.LoggedIn {
		errs = append(errs, p.kv.Set(ctx, KeyLoggedIn, strconv.FormatBool(next.LoggedIn)))
	}
	if prev.UserID != next.UserID {
		errs = append(errs, p.setOrDelete(ctx, KeyUserID, next.UserID))
	}
	if prev.Username != next.Username {
		errs = append(errs, p.setOrDelete(ctx, KeyUsername, next.Username))
	}
	if next.UserID != "" && next.Onboarded && (!prev.Onboarded || prev.UserID != next.UserID) {
		errs = append(errs, p.kv.Set(ctx, OnboardedKey(next.UserID), "true"))
	}
	return errors.Join(errs...)
}

func (p *Persister) setOrDelete(ctx context.Context, key, value string) error {
	if value == "" {
		return p.kv.Delete(ctx, key)
	}
	return p.kv.Set(ctx, key, value)
}

// Restore loads the persisted fields from kv.
func Restore(ctx context.Context, kv KV) (State, error) {
	var s State

	loggedIn, _, err := kv.Get(ctx, KeyLoggedIn)
	if err != nil {
		return State{}, fmt.Errorf("restore %s: %w", KeyLoggedIn, err)
	}
	s.LoggedIn = loggedIn == "true"

	if s.UserID, _, err = kv.Get(ctx, KeyUserID); err != nil {
		return State{}, fmt.Errorf("restore %s: %w", KeyUserID, err)
	}
	if s.Username, _, err = kv.Get(ctx, KeyUsername); err != nil {
		return State{}, fmt.Errorf("restore %s: %w", KeyUsername, err)
	}

	if s.UserID != "" {
		onboarded, _, err := kv.Get(ctx, OnboardedKey(s.UserID))
		if err != nil {
			return State{}, fmt.Errorf("restore onboarding: %w", err)
		}
		s.Onboarded = onboarded == "true"
	}
	return s, nil
}

// TokenVault keeps the backend access token next to the session so a new
// process can resume it.
type TokenVault struct {
	kv KV
}

// NewTokenVault creates a TokenVault on kv.
func NewTokenVault(kv KV) *TokenVault {
	return &TokenVault{kv: kv}
}

// Save stores token.
func (v *TokenVault) Save(ctx context.Context, token string) error {
	return v.kv.Set(ctx, KeyAccessToken, token)
}

// Load returns the stored token or "".
func (v *TokenVault) Load(ctx context.Context) (string, error) {
	token, _, err := v.kv.Get(ctx, KeyAccessToken)
	return token, err
}

// Clear removes the stored token.
func (v *TokenVault) Clear(ctx context.Context) error {
	return v.kv.Delete(ctx, KeyAccessToken)
}
