package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gorilla/securecookie"
)

const cookieName = "todo-session"

// FileStore keeps the session in a single file. The content is signed with
// hashKey and encrypted with blockKey, so an edited file fails to load.
type FileStore struct {
	path  string
	codec *securecookie.SecureCookie
}

// NewFileStore validates the keys up front. blockKey must be 16, 24 or 32
// bytes long.
func NewFileStore(path string, hashKey, blockKey []byte) (*FileStore, error) {
	if err := checkKeys(hashKey, blockKey); err != nil {
		return nil, err
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	// Expiry is the token's business, and the file has no cookie size limit.
	codec.MaxAge(0)
	codec.MaxLength(0)

	return &FileStore{path: path, codec: codec}, nil
}

func (f *FileStore) Load() (Session, error) {
	b, err := ioutil.ReadFile(f.path)
	if os.IsNotExist(err) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, err
	}

	var s Session
	if err := f.codec.Decode(cookieName, strings.TrimSpace(string(b)), &s); err != nil {
		return Session{}, fmt.Errorf("session: decode %s: %w", f.path, err)
	}
	return s, nil
}

func (f *FileStore) Save(s Session) error {
	encoded, err := f.codec.Encode(cookieName, s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	return ioutil.WriteFile(f.path, []byte(encoded), 0o600)
}

func (f *FileStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func checkKeys(hashKey, blockKey []byte) error {
	if len(hashKey) == 0 {
		return errors.New("session: hash key is required")
	}
	switch len(blockKey) {
	case 16, 24, 32:
		return nil
	}
	return fmt.Errorf("session: block key must be 16, 24 or 32 bytes, got %d", len(blockKey))
}

type keyFile struct {
	Hash  []byte `json:"hash"`
	Block []byte `json:"block"`
}

// LoadOrCreateKeys returns the FileStore keys kept at path. On first use it
// generates random keys and writes them there, readable by the owner only.
func LoadOrCreateKeys(path string) (hashKey, blockKey []byte, err error) {
	b, err := ioutil.ReadFile(path)
	switch {
	case err == nil:
		var k keyFile
		if err := json.Unmarshal(b, &k); err != nil {
			return nil, nil, fmt.Errorf("session: read keys %s: %w", path, err)
		}
		if err := checkKeys(k.Hash, k.Block); err != nil {
			return nil, nil, fmt.Errorf("session: read keys %s: %w", path, err)
		}
		return k.Hash, k.Block, nil
	case !os.IsNotExist(err):
		return nil, nil, err
	}

	k := keyFile{
		Hash:  securecookie.GenerateRandomKey(64),
		Block: securecookie.GenerateRandomKey(32),
	}
	if k.Hash == nil || k.Block == nil {
		return nil, nil, errors.New("session: cannot generate keys")
	}
	if b, err = json.Marshal(k); err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, err
	}
	if err := ioutil.WriteFile(path, b, 0o600); err != nil {
		return nil, nil, err
	}
	return k.Hash, k.Block, nil
}

// MemoryStore is a Store that lives as long as the process.
type MemoryStore struct {
	mtx sync.Mutex
	s   *Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load() (Session, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if m.s == nil {
		return Session{}, ErrNoSession
	}
	return *m.s, nil
}

func (m *MemoryStore) Save(s Session) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.s = &s
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.s = nil
	return nil
}
