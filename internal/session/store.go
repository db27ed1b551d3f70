package session

import (
	"crypto/rand"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"

	"edusocial/internal/models"
)

var ErrNoSession = errors.New("no stored session")

// Data is what gets persisted between CLI runs.
type Data struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken,omitempty"`
	User         *models.User `json:"user,omitempty"`
}

type Store interface {
	Load() (*Data, error)
	Save(d *Data) error
	Clear() error
}

const (
	saltSize  = 16
	nonceSize = 24
	keySize   = 32
)

// FileStore keeps the session sealed with secretbox under a scrypt-derived key.
type FileStore struct {
	path       string
	passphrase []byte
}

func NewFileStore(path, passphrase string) *FileStore {
	return &FileStore{path: path, passphrase: []byte(passphrase)}
}

func (s *FileStore) deriveKey(salt []byte) (*[keySize]byte, error) {
	raw, err := scrypt.Key(s.passphrase, salt, 1<<15, 8, 1, keySize)
	if err != nil {
		return nil, errors.Wrap(err, "deriving session key")
	}
	var key [keySize]byte
	copy(key[:], raw)
	return &key, nil
}

func (s *FileStore) Load() (*Data, error) {
	blob, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSession
		}
		return nil, errors.Wrap(err, "reading session file")
	}
	if len(blob) < saltSize+nonceSize+secretbox.Overhead {
		return nil, errors.New("session file is truncated")
	}

	salt := blob[:saltSize]
	var nonce [nonceSize]byte
	copy(nonce[:], blob[saltSize:saltSize+nonceSize])

	key, err := s.deriveKey(salt)
	if err != nil {
		return nil, err
	}
	plain, ok := secretbox.Open(nil, blob[saltSize+nonceSize:], &nonce, key)
	if !ok {
		return nil, errors.New("session file cannot be decrypted")
	}

	var d Data
	if err := json.Unmarshal(plain, &d); err != nil {
		return nil, errors.Wrap(err, "decoding session")
	}
	return &d, nil
}

func (s *FileStore) Save(d *Data) error {
	plain, err := json.Marshal(d)
	if err != nil {
		return errors.Wrap(err, "encoding session")
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return errors.Wrap(err, "generating salt")
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return errors.Wrap(err, "generating nonce")
	}
	key, err := s.deriveKey(salt)
	if err != nil {
		return err
	}

	out := make([]byte, 0, saltSize+nonceSize+len(plain)+secretbox.Overhead)
	out = append(out, salt...)
	out = append(out, nonce[:]...)
	out = secretbox.Seal(out, plain, &nonce, key)

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return errors.Wrap(err, "creating session dir")
		}
	}
	return errors.Wrap(os.WriteFile(s.path, out, 0o600), "writing session file")
}

func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing session file")
	}
	return nil
}

type MemoryStore struct {
	mu   sync.Mutex
	data *Data
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (*Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, ErrNoSession
	}
	cp := *s.data
	return &cp, nil
}

func (s *MemoryStore) Save(d *Data) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.data = &cp
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	return nil
}
