package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gorilla/securecookie"
	"golang.org/x/oauth2"

	"github.com/brk3/ghcal/internal/config"
	"github.com/brk3/ghcal/internal/logger"
	"github.com/brk3/ghcal/pkg/errors"
)

const (
	authStateTTL     = 5 * time.Minute
	discoveryTimeout = 10 * time.Second
)

var defaultScopes = []string{oidc.ScopeOpenID, "email", oidc.ScopeOfflineAccess}

// AuthProvider is one configured OpenID Connect issuer.
type AuthProvider struct {
	name       string
	oauth2     *oauth2.Config
	oidcProv   *oidc.Provider
	idVerifier *oidc.IDTokenVerifier
	state      *stateStore
}

// loginState is what a login remembers until its callback arrives.
type loginState struct {
	Verifier string
	Return   string
	ExpireAt time.Time
}

// stateStore holds pending logins keyed by the OAuth state parameter. Expired
// entries are dropped whenever a new login is recorded.
type stateStore struct {
	mu sync.Mutex
	m  map[string]loginState
}

func newStateStore() *stateStore {
	return &stateStore{m: make(map[string]loginState)}
}

func (s *stateStore) put(key string, v loginState) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, old := range s.m {
		if now.After(old.ExpireAt) {
			delete(s.m, k)
		}
	}
	s.m[key] = v
}

// take removes and returns the state for key; a state is usable once.
func (s *stateStore) take(key string) (loginState, bool) {
	s.mu.Lock()
	v, ok := s.m[key]
	delete(s.m, key)
	s.mu.Unlock()
	if !ok || time.Now().After(v.ExpireAt) || v.Verifier == "" {
		return loginState{}, false
	}
	return v, true
}

// ConfigureOIDCProviders discovers every configured issuer and creates the
// session cookie codec. Session keys are generated per process, so sessions
// do not survive a restart; API keys do.
func ConfigureOIDCProviders(cfg *config.Config) (map[string]*AuthProvider, *securecookie.SecureCookie, error) {
	hashKey := securecookie.GenerateRandomKey(64)
	blockKey := securecookie.GenerateRandomKey(32)
	if hashKey == nil || blockKey == nil {
		return nil, nil, fmt.Errorf("failed to generate secure cookie keys")
	}
	cookie := securecookie.New(hashKey, blockKey)
	cookie.MaxAge(int(sessionMaxAge.Seconds()))

	providers := make(map[string]*AuthProvider, len(cfg.OIDCProviders))
	for _, pc := range cfg.OIDCProviders {
		prov, err := discoverProvider(pc)
		if err != nil {
			return nil, nil, err
		}
		providers[pc.Id] = prov
		logger.Info("OIDC provider configured", "id", pc.Id, "name", prov.name, "issuer", pc.IssuerURL)
	}
	return providers, cookie, nil
}

func discoverProvider(pc config.OIDCProviderConfig) (*AuthProvider, error) {
	ctx, cancel := context.WithTimeout(context.Background(), discoveryTimeout)
	defer cancel()

	op, err := oidc.NewProvider(ctx, pc.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("discover OIDC provider %q: %w", pc.Id, err)
	}

	name := pc.Name
	if name == "" {
		name = pc.Id
	}
	scopes := pc.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes
	}
	return &AuthProvider{
		name: name,
		oauth2: &oauth2.Config{
			ClientID:     pc.ClientID,
			ClientSecret: pc.ClientSecret,
			Endpoint:     op.Endpoint(),
			RedirectURL:  pc.RedirectURL,
			Scopes:       scopes,
		},
		oidcProv:   op,
		idVerifier: op.Verifier(&oidc.Config{ClientID: pc.ClientID}),
		state:      newStateStore(),
	}, nil
}

// refreshIDToken trades the stored refresh token of the user behind an
// expired ID token for a new ID token. A refresh token the provider rejects
// is forgotten.
func (s *Server) refreshIDToken(ctx context.Context, providerID, expired string) (string, error) {
	prov := s.authProviders[providerID]

	// The signature is still checked; only expiry is ignored.
	lenient := prov.oidcProv.Verifier(&oidc.Config{ClientID: prov.oauth2.ClientID, SkipExpiryCheck: true})
	old, err := lenient.Verify(ctx, expired)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeUnauthorized, err, "invalid session token")
	}
	var claims map[string]any
	if err := old.Claims(&claims); err != nil {
		return "", errors.Wrap(errors.ErrCodeUnauthorized, err, "unreadable token claims")
	}
	userID := userIDFromClaims(claims)
	if userID == "" {
		return "", errors.New(errors.ErrCodeUnauthorized, "token carries no subject")
	}

	stored, found, err := s.store.GetRefreshToken(userID)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "load refresh token")
	}
	if !found {
		return "", errors.New(errors.ErrCodeUnauthorized, "session expired")
	}

	fresh, err := prov.oauth2.TokenSource(ctx, stored).Token()
	if err != nil {
		if derr := s.store.DeleteRefreshToken(userID); derr != nil {
			logger.Error("Failed to delete rejected refresh token", "user_id", userID, "error", derr)
		}
		return "", errors.Wrap(errors.ErrCodeUnauthorized, err, "session expired")
	}
	if err := s.store.PutRefreshToken(userID, fresh); err != nil {
		logger.Error("Failed to persist refreshed token", "user_id", userID, "error", err)
	}

	idToken, _ := fresh.Extra("id_token").(string)
	if idToken == "" {
		return "", errors.New(errors.ErrCodeUnauthorized, "provider returned no id_token on refresh")
	}
	logger.Debug("Refreshed ID token", "user_id", userID, "provider", providerID)
	return idToken, nil
}
