package storage

import (
	"github.com/brk3/ghcal/pkg/contrib"
	"golang.org/x/oauth2"
)

// Store persists widget profiles and server credentials. Fetched calendars
// are never stored.
type Store interface {
	PutProfile(userID string, p contrib.Profile) error
	ListProfiles(userID string) ([]contrib.Profile, error)
	GetProfile(userID, id string) (contrib.Profile, bool, error)
	DeleteProfile(userID, id string) error

	PutAPIKey(keyHash, userID string) error
	GetAPIKey(keyHash string) (string, bool, error)
	ListAPIKeyHashes(userID string) ([]string, error)
	DeleteAPIKey(keyHash string) error

	PutRefreshToken(userID string, tok *oauth2.Token) error
	GetRefreshToken(userID string) (*oauth2.Token, bool, error)
	DeleteRefreshToken(userID string) error

	Close() error
}
