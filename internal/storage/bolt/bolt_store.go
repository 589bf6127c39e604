package bolt

import (
	"encoding/json"
	"sort"

	"go.etcd.io/bbolt"
	"golang.org/x/oauth2"

	"github.com/brk3/ghcal/internal/storage"
	"github.com/brk3/ghcal/pkg/contrib"
)

const (
	rootBucket    = "users"
	profileBucket = "profiles"
	apiKeyBucket  = "api_keys"
	tokenBucket   = "refresh_tokens"
	defaultUserID = "default"
)

type Store struct {
	db *bbolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}

	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{rootBucket, apiKeyBucket, tokenBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// userProfiles returns the user's profile bucket, creating it in writable
// transactions. In read-only transactions a missing bucket yields nil.
func (s *Store) userProfiles(tx *bbolt.Tx, userID string) (*bbolt.Bucket, error) {
	if userID == "" {
		userID = defaultUserID
	}

	users := tx.Bucket([]byte(rootBucket))
	if !tx.Writable() {
		user := users.Bucket([]byte(userID))
		if user == nil {
			return nil, nil
		}
		return user.Bucket([]byte(profileBucket)), nil
	}
	user, err := users.CreateBucketIfNotExists([]byte(userID))
	if err != nil {
		return nil, err
	}
	return user.CreateBucketIfNotExists([]byte(profileBucket))
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) PutProfile(userID string, p contrib.Profile) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := s.userProfiles(tx, userID)
		if err != nil {
			return err
		}
		val, err := json.Marshal(p)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(p.ID), val)
	})
}

func (s *Store) ListProfiles(userID string) ([]contrib.Profile, error) {
	out := []contrib.Profile{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := s.userProfiles(tx, userID)
		if err != nil || bucket == nil {
			return err
		}
		return bucket.ForEach(func(_, v []byte) error {
			var p contrib.Profile
			if err := json.Unmarshal(v, &p); err != nil {
				return err
			}
			out = append(out, p)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetProfile(userID, id string) (contrib.Profile, bool, error) {
	var p contrib.Profile
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := s.userProfiles(tx, userID)
		if err != nil || bucket == nil {
			return err
		}
		v := bucket.Get([]byte(id))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &p)
	})
	return p, found, err
}

func (s *Store) DeleteProfile(userID, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := s.userProfiles(tx, userID)
		if err != nil {
			return err
		}
		return bucket.Delete([]byte(id))
	})
}

func (s *Store) PutAPIKey(keyHash, userID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(apiKeyBucket)).Put([]byte(keyHash), []byte(userID))
	})
}

func (s *Store) GetAPIKey(keyHash string) (string, bool, error) {
	var userID string
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket([]byte(apiKeyBucket)).Get([]byte(keyHash)); v != nil {
			userID = string(v)
		}
		return nil
	})
	return userID, userID != "", err
}

func (s *Store) ListAPIKeyHashes(userID string) ([]string, error) {
	var out []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(apiKeyBucket)).ForEach(func(k, v []byte) error {
			if string(v) == userID {
				out = append(out, string(k))
			}
			return nil
		})
	})
	return out, err
}

func (s *Store) DeleteAPIKey(keyHash string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(apiKeyBucket)).Delete([]byte(keyHash))
	})
}

func (s *Store) PutRefreshToken(userID string, tok *oauth2.Token) error {
	val, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(tokenBucket)).Put([]byte(userID), val)
	})
}

func (s *Store) GetRefreshToken(userID string) (*oauth2.Token, bool, error) {
	var tok *oauth2.Token
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(tokenBucket)).Get([]byte(userID))
		if v == nil {
			return nil
		}
		tok = &oauth2.Token{}
		return json.Unmarshal(v, tok)
	})
	return tok, tok != nil, err
}

func (s *Store) DeleteRefreshToken(userID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(tokenBucket)).Delete([]byte(userID))
	})
}

var _ storage.Store = (*Store)(nil)
