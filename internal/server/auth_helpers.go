package server

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/brk3/ghcal/internal/logger"
	"github.com/brk3/ghcal/pkg/errors"
)

const apiKeyLivePrefix = apiKeyPrefix + "live_"

type APIKeyResponse struct {
	APIKey string `json:"api_key"`
}

type APIKeyListResponse struct {
	Keys []APIKeyInfo `json:"keys"`
}

type APIKeyInfo struct {
	Hash string `json:"hash"`
}

// hashAPIKey creates a SHA256 hash of an API key for storage
func hashAPIKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return fmt.Sprintf("%x", hash)
}

// truncateHash returns a truncated hash for display/logging
// Returns first 16 chars + "..." or the full hash if shorter
func truncateHash(hash string) string {
	if len(hash) <= 16 {
		return hash
	}
	return hash[:16] + "..."
}

func newAPIKey() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return apiKeyLivePrefix + hex.EncodeToString(b), nil
}

// generateAPIKey mints a key for the calling user. Only the hash is stored;
// the plaintext is returned once.
func (s *Server) generateAPIKey(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, errors.New(errors.ErrCodeUnauthorized, "authentication required"))
		return
	}

	key, err := newAPIKey()
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "generate API key"))
		return
	}
	keyHash := hashAPIKey(key)
	if err := s.store.PutAPIKey(keyHash, user.UserID); err != nil {
		logger.Error("Failed to store API key", "user_id", user.UserID, "error", err)
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "store API key"))
		return
	}
	logger.Info("API key generated", "user_id", user.UserID, "key_hash", truncateHash(keyHash))
	RecordAuthEvent("api_key", "created", "apikey")

	if err := writeJSON(w, http.StatusOK, APIKeyResponse{APIKey: key}); err != nil {
		logger.Error("Failed to serialize API key response", "user_id", user.UserID, "error", err)
	}
}

func (s *Server) listAPIKeys(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, errors.New(errors.ErrCodeUnauthorized, "authentication required"))
		return
	}

	hashes, err := s.store.ListAPIKeyHashes(user.UserID)
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "list API keys"))
		return
	}
	resp := APIKeyListResponse{Keys: make([]APIKeyInfo, 0, len(hashes))}
	for _, h := range hashes {
		resp.Keys = append(resp.Keys, APIKeyInfo{Hash: truncateHash(h)})
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		logger.Error("Failed to serialize API key list", "user_id", user.UserID, "error", err)
	}
}
