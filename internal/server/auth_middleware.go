package server

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brk3/ghcal/internal/logger"
	"github.com/brk3/ghcal/pkg/errors"
)

const (
	sessionMaxAge    = 24 * time.Hour
	sessionCookieKey = "session"
	apiKeyPrefix     = "ghc_"
)

type userCtxKey struct{}

// User is the owner of the profiles a request may touch.
type User struct {
	Subject string
	Email   string
	UserID  string
	Claims  map[string]any
}

type credentialKind int

const (
	credNone credentialKind = iota
	credSession
	credAPIKey
	credIDToken
)

// credential is what a request presents: a session cookie, an API key, or
// a provider-prefixed ID token ("provider:jwt") as a bearer token.
type credential struct {
	kind     credentialKind
	provider string
	token    string
}

func (c credential) source() string {
	switch c.kind {
	case credAPIKey:
		return "apikey"
	case credSession, credIDToken:
		return c.provider
	default:
		return "unknown"
	}
}

// readCredential prefers a valid session cookie over the Authorization header.
func (s *Server) readCredential(r *http.Request) credential {
	if c, err := r.Cookie(sessionCookieKey); err == nil {
		var value string
		if err := s.sessionCookie.Decode(sessionCookieKey, c.Value, &value); err == nil {
			if p, tok, err := parseProviderToken(value); err == nil {
				return credential{kind: credSession, provider: p, token: tok}
			}
		}
	}

	bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || bearer == "" {
		return credential{}
	}
	if strings.HasPrefix(bearer, apiKeyPrefix) {
		return credential{kind: credAPIKey, token: bearer}
	}
	if p, tok, err := parseProviderToken(bearer); err == nil {
		return credential{kind: credIDToken, provider: p, token: tok}
	}
	return credential{}
}

// authMiddleware resolves the calling user and stores it in the request
// context. Profiles are partitioned by that user, so a credential only ever
// reaches its owner's profiles.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cred := s.readCredential(r)
		user, err := s.authenticate(w, r, cred)
		result := "success"
		if err != nil {
			result = "failed"
			if cred.kind == credNone {
				result = "missing_token"
			}
		}
		RecordAuthEvent("verification", result, cred.source())

		if err != nil {
			logger.Debug("Request not authenticated", "path", r.URL.Path, "source", cred.source(), "error", err)
			s.handleAuthFailure(w, r, err, cred)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request, cred credential) (*User, error) {
	switch cred.kind {
	case credAPIKey:
		return s.authenticateAPIKey(cred.token)
	case credSession, credIDToken:
		return s.authenticateIDToken(r.Context(), w, cred)
	default:
		return nil, errors.New(errors.ErrCodeUnauthorized, "authentication required")
	}
}

// authenticateIDToken verifies the token with its provider. An expired
// token is refreshed once; for cookie sessions the cookie is rewritten.
func (s *Server) authenticateIDToken(ctx context.Context, w http.ResponseWriter, cred credential) (*User, error) {
	prov, ok := s.authProviders[cred.provider]
	if !ok {
		return nil, errors.New(errors.ErrCodeUnauthorized, "unknown identity provider %q", cred.provider)
	}

	idTok, err := prov.idVerifier.Verify(ctx, cred.token)
	if err != nil {
		fresh, rerr := s.refreshIDToken(ctx, cred.provider, cred.token)
		if rerr != nil {
			RecordAuthEvent("refresh", "failed", cred.provider)
			return nil, rerr
		}
		if idTok, err = prov.idVerifier.Verify(ctx, fresh); err != nil {
			RecordAuthEvent("refresh", "verification_failed", cred.provider)
			return nil, errors.Wrap(errors.ErrCodeUnauthorized, err, "refreshed token rejected")
		}
		RecordAuthEvent("refresh", "success", cred.provider)
		if cred.kind == credSession {
			if err := s.setSessionCookie(w, cred.provider+":"+fresh); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode session")
			}
		}
	}

	var claims map[string]any
	if err := idTok.Claims(&claims); err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnauthorized, err, "unreadable token claims")
	}
	userID := userIDFromClaims(claims)
	if userID == "" {
		return nil, errors.New(errors.ErrCodeUnauthorized, "token carries no subject")
	}
	return &User{
		Subject: idTok.Subject,
		Email:   strClaim(claims, "email"),
		UserID:  userID,
		Claims:  claims,
	}, nil
}

// authenticateAPIKey resolves a key through its stored hash. Key users have
// no e-mail; the subject names the key by its truncated hash.
func (s *Server) authenticateAPIKey(apiKey string) (*User, error) {
	keyHash := hashAPIKey(apiKey)
	userID, found, err := s.store.GetAPIKey(keyHash)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "look up API key")
	}
	if !found {
		return nil, errors.New(errors.ErrCodeUnauthorized, "unknown API key")
	}
	return &User{
		UserID:  userID,
		Subject: "apikey:" + truncateHash(keyHash),
		Claims:  map[string]any{"auth_method": "api_key"},
	}, nil
}

// handleAuthFailure sends browsers to the login page and answers API
// clients with a coded error.
func (s *Server) handleAuthFailure(w http.ResponseWriter, r *http.Request, err error, cred credential) {
	if cred.kind == credSession {
		clearSessionCookie(w)
	}
	if !errors.Is(err, errors.ErrCodeUnauthorized) {
		writeError(w, err)
		return
	}

	accept := r.Header.Get("Accept")
	if r.Method == http.MethodGet && (accept == "" || strings.Contains(accept, "text/html")) {
		http.Redirect(w, r, "/auth/login?return="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
		return
	}
	challenge := `Bearer realm="ghcal"`
	if cred.kind != credNone {
		challenge += `, error="invalid_token"`
	}
	w.Header().Set("WWW-Authenticate", challenge)
	writeError(w, err)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, prefixedToken string) error {
	val, err := s.sessionCookie.Encode(sessionCookieKey, prefixedToken)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieKey,
		Value:    val,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionMaxAge.Seconds()),
	})
	return nil
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieKey,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

// parseProviderToken splits "provider:jwt".
func parseProviderToken(token string) (providerID, jwt string, err error) {
	providerID, jwt, ok := strings.Cut(token, ":")
	if !ok || providerID == "" || jwt == "" {
		return "", "", fmt.Errorf("expected provider:jwt")
	}
	return providerID, jwt, nil
}

func strClaim(m map[string]any, k string) string {
	v, _ := m[k].(string)
	return v
}

// userIDFromClaims derives a stable, opaque user ID from issuer and subject.
func userIDFromClaims(claims map[string]any) string {
	iss, sub := strClaim(claims, "iss"), strClaim(claims, "sub")
	if iss == "" || sub == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(iss + "|" + sub))
	return fmt.Sprintf("user-%x", sum[:8])
}

func withUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

func userFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userCtxKey{}).(*User)
	return u, ok && u.UserID != ""
}

// userIDFromContext returns the profile owner for r. With auth disabled all
// requests share the anonymous owner.
func userIDFromContext(authEnabled bool, r *http.Request) string {
	if !authEnabled {
		return "anonymous"
	}
	if u, ok := userFromContext(r.Context()); ok {
		return u.UserID
	}
	return ""
}
