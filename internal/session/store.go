package session

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stackmates/stackmates/internal/config"
	"github.com/stackmates/stackmates/internal/errors"
	bolt "go.etcd.io/bbolt"
)

// TokenKey is the fixed name the token is stored under
const TokenKey = "github_token"

var sessionBucket = []byte("session")

// TokenStore persists the single session token. Load returns "" with a nil
// error when nothing is stored.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Delete() error
}

// OpenTokenStore picks the store named by cfg.TokenStore. "auto" prefers the
// OS keychain and falls back to the bolt file on headless hosts.
func OpenTokenStore(cfg config.SessionConfig, logger logrus.FieldLogger) (TokenStore, error) {
	km := config.NewKeyringManager(logger)

	switch cfg.TokenStore {
	case "keyring":
		return NewKeyringStore(km), nil
	case "bolt":
		return NewBoltStore(cfg.BoltPath), nil
	case "", "auto":
		if km.IsAvailable() {
			return NewKeyringStore(km), nil
		}
		logger.WithField("path", cfg.BoltPath).Debug("keychain unavailable, storing token in bolt file")
		return NewBoltStore(cfg.BoltPath), nil
	default:
		return nil, errors.ConfigErrorf("unknown token store %q", cfg.TokenStore)
	}
}

// KeyringStore keeps the token in the OS keychain
type KeyringStore struct {
	km *config.KeyringManager
}

// NewKeyringStore creates a keychain-backed store
func NewKeyringStore(km *config.KeyringManager) *KeyringStore {
	return &KeyringStore{km: km}
}

func (s *KeyringStore) Load() (string, error) {
	token, err := s.km.GetGitHubToken()
	if err != nil {
		return "", errors.StorageError(err, "load token")
	}
	return token, nil
}

func (s *KeyringStore) Save(token string) error {
	if err := s.km.SetGitHubToken(token); err != nil {
		return errors.StorageError(err, "save token")
	}
	return nil
}

func (s *KeyringStore) Delete() error {
	if err := s.km.DeleteGitHubToken(); err != nil {
		return errors.StorageError(err, "delete token")
	}
	return nil
}

// BoltStore keeps the token in a bbolt file. The database is opened per call
// so a long-running server does not hold the file lock.
type BoltStore struct {
	path string
}

// NewBoltStore creates a store backed by the bolt file at path
func NewBoltStore(path string) *BoltStore {
	return &BoltStore{path: path}
}

// Path returns the bolt file location
func (s *BoltStore) Path() string {
	return s.path
}

func (s *BoltStore) open() (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return nil, errors.StorageError(err, "create session directory")
	}
	db, err := bolt.Open(s.path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.StorageError(err, fmt.Sprintf("open %s", s.path))
	}
	return db, nil
}

func (s *BoltStore) Load() (string, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return "", nil
	}

	db, err := s.open()
	if err != nil {
		return "", err
	}
	defer db.Close()

	var token string
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionBucket)
		if b == nil {
			return nil
		}
		token = string(b.Get([]byte(TokenKey)))
		return nil
	})
	if err != nil {
		return "", errors.StorageError(err, "load token")
	}
	return token, nil
}

func (s *BoltStore) Save(token string) error {
	if token == "" {
		return errors.ValidationError("token cannot be empty")
	}

	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(sessionBucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(TokenKey), []byte(token))
	})
	if err != nil {
		return errors.StorageError(err, "save token")
	}
	return nil
}

func (s *BoltStore) Delete() error {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil
	}

	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	err = db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionBucket)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(TokenKey))
	})
	if err != nil {
		return errors.StorageError(err, "delete token")
	}
	return nil
}
