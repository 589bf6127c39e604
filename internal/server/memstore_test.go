package server

import (
	"sort"
	"sync"

	"golang.org/x/oauth2"

	"github.com/brk3/ghcal/internal/storage"
	"github.com/brk3/ghcal/pkg/contrib"
)

type memStore struct {
	mu       sync.RWMutex
	profiles map[string]map[string]contrib.Profile
	apiKeys  map[string]string
	tokens   map[string]*oauth2.Token

	// keyErr, when set, fails API key lookups.
	keyErr error
}

func newMemStore() *memStore {
	return &memStore{
		profiles: map[string]map[string]contrib.Profile{},
		apiKeys:  map[string]string{},
		tokens:   map[string]*oauth2.Token{},
	}
}

func (m *memStore) PutProfile(userID string, p contrib.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profiles[userID] == nil {
		m.profiles[userID] = map[string]contrib.Profile{}
	}
	m.profiles[userID][p.ID] = p
	return nil
}

func (m *memStore) ListProfiles(userID string) ([]contrib.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []contrib.Profile{}
	for _, p := range m.profiles[userID] {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memStore) GetProfile(userID, id string) (contrib.Profile, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID][id]
	return p, ok, nil
}

func (m *memStore) DeleteProfile(userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.profiles[userID], id)
	return nil
}

func (m *memStore) PutAPIKey(keyHash, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apiKeys[keyHash] = userID
	return nil
}

func (m *memStore) GetAPIKey(keyHash string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.keyErr != nil {
		return "", false, m.keyErr
	}
	userID, ok := m.apiKeys[keyHash]
	return userID, ok, nil
}

func (m *memStore) ListAPIKeyHashes(userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []string{}
	for h, u := range m.apiKeys {
		if u == userID {
			out = append(out, h)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStore) DeleteAPIKey(keyHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.apiKeys, keyHash)
	return nil
}

func (m *memStore) PutRefreshToken(userID string, tok *oauth2.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[userID] = tok
	return nil
}

func (m *memStore) GetRefreshToken(userID string) (*oauth2.Token, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tok, ok := m.tokens[userID]
	return tok, ok, nil
}

func (m *memStore) DeleteRefreshToken(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, userID)
	return nil
}

func (m *memStore) Close() error {
	return nil
}

var _ storage.Store = (*memStore)(nil)
