package musiccache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"
)

const bucketName = "search"

// Store is a bbolt-backed key/value cache with per-entry expiry.
type Store struct {
	db   *bolt.DB
	path string
	now  func() time.Time
}

type entry struct {
	Value     []byte `json:"value"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

// Open opens or creates the cache database at path. It fails after a second
// if another process holds the database lock.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}

	log.Debug().Str("path", path).Msg("Search cache opened")
	return &Store{db: db, path: path, now: time.Now}, nil
}

// GetBytes returns the cached value for key, or nil when it is missing or
// expired. Expired entries are removed.
func (s *Store) GetBytes(ctx context.Context, key string) ([]byte, error) {
	var e entry
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(bucketName)).Get([]byte(key))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &e)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}
	if !found {
		return nil, nil
	}

	if e.ExpiresAt != 0 && s.now().Unix() >= e.ExpiresAt {
		log.Debug().Str("key", key).Msg("Cache entry expired")
		if err := s.delete(key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to delete expired cache entry")
		}
		return nil, nil
	}
	return e.Value, nil
}

// SetWithExpiration stores value under key. Byte slices and strings are
// stored as is, anything else as JSON. A non-positive expiration never
// expires.
func (s *Store) SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode cache value: %w", err)
		}
		data = encoded
	}

	e := entry{Value: data}
	if expiration > 0 {
		e.ExpiresAt = s.now().Add(expiration).Unix()
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), raw)
	})
}

func (s *Store) delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(key))
	})
}

// Path is the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	return s.db.Close()
}
