package server

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/oauth2"

	"github.com/brk3/ghcal/internal/logger"
	"github.com/brk3/ghcal/pkg/errors"
)

func (s *Server) providerFromRequest(w http.ResponseWriter, r *http.Request) (string, *AuthProvider, bool) {
	id := chi.URLParam(r, "id")
	prov, ok := s.authProviders[id]
	if !ok {
		writeError(w, errors.New(errors.ErrCodeNotFound, "unknown identity provider %q", id))
		return id, nil, false
	}
	return id, prov, true
}

// newPKCE returns an S256 code verifier and its challenge.
func newPKCE() (verifier, challenge string, err error) {
	b := make([]byte, 48)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	verifier = base64.RawURLEncoding.EncodeToString(b)
	sum := sha256.Sum256([]byte(verifier))
	return verifier, base64.RawURLEncoding.EncodeToString(sum[:]), nil
}

// safeReturn keeps post-login redirects on this host.
func safeReturn(ret string) string {
	if ret == "" {
		return "/"
	}
	if u, err := url.Parse(ret); err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}
	return ret
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	id, prov, ok := s.providerFromRequest(w, r)
	if !ok {
		return
	}

	verifier, challenge, err := newPKCE()
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "generate PKCE verifier"))
		return
	}
	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "generate login state"))
		return
	}
	st := hex.EncodeToString(stateBytes)

	prov.state.put(st, loginState{
		Verifier: verifier,
		Return:   safeReturn(r.URL.Query().Get("return")),
		ExpireAt: time.Now().Add(authStateTTL),
	})
	logger.Debug("Redirecting to identity provider", "provider", id)

	authURL := prov.oauth2.AuthCodeURL(
		st,
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (s *Server) callback(w http.ResponseWriter, r *http.Request) {
	id, prov, ok := s.providerFromRequest(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	st, code := q.Get("state"), q.Get("code")
	if st == "" || code == "" {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "callback requires state and code"))
		return
	}

	saved, ok := prov.state.take(st)
	if !ok {
		RecordAuthEvent("login", "invalid_state", id)
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid or expired login state"))
		return
	}

	tok, err := prov.oauth2.Exchange(r.Context(), code, oauth2.SetAuthURLParam("code_verifier", saved.Verifier))
	if err != nil {
		logger.Warn("Code exchange failed", "provider", id, "error", err)
		RecordAuthEvent("login", "exchange_failed", id)
		writeError(w, errors.Wrap(errors.ErrCodeFetch, err, "code exchange with %s failed", id))
		return
	}
	rawIDToken, _ := tok.Extra("id_token").(string)
	if rawIDToken == "" {
		writeError(w, errors.New(errors.ErrCodeFetch, "%s returned no id_token", id))
		return
	}
	idToken, err := prov.idVerifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		RecordAuthEvent("login", "invalid_token", id)
		writeError(w, errors.Wrap(errors.ErrCodeUnauthorized, err, "id_token rejected"))
		return
	}

	if tok.RefreshToken != "" {
		var claims map[string]any
		if err := idToken.Claims(&claims); err != nil {
			writeError(w, errors.Wrap(errors.ErrCodeUnauthorized, err, "unreadable token claims"))
			return
		}
		if userID := userIDFromClaims(claims); userID != "" {
			if err := s.store.PutRefreshToken(userID, tok); err != nil {
				logger.Error("Failed to persist refresh token", "user_id", userID, "error", err)
			}
		}
	} else {
		logger.Debug("Provider issued no refresh token", "provider", id)
	}

	if err := s.setSessionCookie(w, id+":"+rawIDToken); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "encode session"))
		return
	}
	RecordAuthEvent("login", "success", id)
	http.Redirect(w, r, saved.Return, http.StatusFound)
}

func (s *Server) logout(w http.ResponseWriter, _ *http.Request) {
	clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) simpleLogin(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<h1>Login</h1><style>button{display:block;margin:10px 0;padding:10px 20px;}</style>`)
	ids := make([]string, 0, len(s.authProviders))
	for id := range s.authProviders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(w, `<form action="/auth/login/%s"><button>%s</button></form>`,
			html.EscapeString(id), html.EscapeString(s.authProviders[id].name))
	}
}

// getAPIToken hands a logged-in browser its "provider:jwt" bearer token
// for use with the CLI.
func (s *Server) getAPIToken(w http.ResponseWriter, r *http.Request) {
	cred := s.readCredential(r)
	if cred.kind != credSession {
		writeError(w, errors.New(errors.ErrCodeUnauthorized, "not logged in"))
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte(cred.provider + ":" + cred.token))
}
