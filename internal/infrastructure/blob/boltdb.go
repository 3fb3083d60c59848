package blob

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketImages = []byte("images")

// ErrNotFound is returned when no blob exists under the requested key.
var ErrNotFound = fmt.Errorf("blob not found")

// Store persists image blobs in BoltDB and hands out stable URLs for them.
// Keys embed the owning inventory code plus a nanosecond timestamp, which
// keeps concurrent uploads collision-free without locking.
type Store struct {
	db        *bolt.DB
	publicURL string
}

// Open initializes the BoltDB file and ensures the bucket exists.
func Open(path, publicURL string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketImages)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:        db,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

// Save stores the blob under a fresh collision-free key and returns its URL.
func (s *Store) Save(ownerCode string, data []byte) (string, error) {
	if s == nil || s.db == nil {
		return "", bolt.ErrDatabaseNotOpen
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty image payload")
	}

	key := buildKey(ownerCode)
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketImages).Put([]byte(key), data)
	})
	if err != nil {
		return "", err
	}
	return s.publicURL + "/" + key, nil
}

// Get returns the blob stored under key.
func (s *Store) Get(key string) ([]byte, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketImages).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		data = append([]byte(nil), v...)
		return nil
	})
	return data, err
}

// Delete removes the blob the URL points at. Deleting an unknown URL is not
// an error; compensation paths may race with the janitor.
func (s *Store) Delete(url string) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	key := s.KeyFromURL(url)
	if key == "" {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketImages).Delete([]byte(key))
	})
}

// URLs lists the URL of every stored blob together with its upload time.
func (s *Store) URLs() (map[string]time.Time, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	out := make(map[string]time.Time)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketImages).ForEach(func(k, _ []byte) error {
			key := string(k)
			out[s.publicURL+"/"+key] = uploadedAt(key)
			return nil
		})
	})
	return out, err
}

// Size returns the number of stored blobs.
func (s *Store) Size() (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(bucketImages).Stats().KeyN
		return nil
	})
	return count, err
}

// KeyFromURL extracts the storage key from a URL previously returned by Save.
func (s *Store) KeyFromURL(url string) string {
	if url == "" {
		return ""
	}
	if idx := strings.LastIndex(url, "/"); idx >= 0 {
		return url[idx+1:]
	}
	return url
}

// Close closes the Bolt database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func buildKey(ownerCode string) string {
	code := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '-'
		}
	}, ownerCode)
	if code == "" {
		code = "item"
	}
	return fmt.Sprintf("%s_%020d", code, time.Now().UnixNano())
}

func uploadedAt(key string) time.Time {
	idx := strings.LastIndex(key, "_")
	if idx < 0 {
		return time.Time{}
	}
	nanos, err := strconv.ParseInt(key[idx+1:], 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}
