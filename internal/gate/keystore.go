package gate

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	merrors "github.com/midos-mcp/midos-mcp/internal/errors"
)

// keyRecord is the on-disk JSON shape for one entry in keys.json.
type keyRecord struct {
	Name      string     `json:"name"`
	Tier      Tier       `json:"tier"`
	Created   time.Time  `json:"created"`
	Active    bool       `json:"active"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// keyFileCacheTTL bounds how often the key store re-reads keys.json from
// disk, so a hot request path doesn't pay a disk read per call.
const keyFileCacheTTL = 60 * time.Second

// KeyStore persists API keys to a JSON file with atomic replace-on-write,
// cross-process locking, and a short read-through cache.
type KeyStore struct {
	path string
	lock *fileLock

	mu        sync.RWMutex
	cache     map[string]keyRecord
	cachedAt  time.Time
}

// NewKeyStore opens (without yet reading) the key store backed by path.
func NewKeyStore(path string) *KeyStore {
	return &KeyStore{
		path: path,
		lock: newFileLock(filepath.Dir(path), filepath.Base(path)),
	}
}

func (s *KeyStore) load() (map[string]keyRecord, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]keyRecord{}, nil
	}
	if err != nil {
		return nil, merrors.IOError("failed to read key store", err)
	}
	if len(data) == 0 {
		return map[string]keyRecord{}, nil
	}
	var records map[string]keyRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, merrors.New(merrors.ErrCodeConfigInvalid, "key store file is corrupt", err)
	}
	return records, nil
}

// keys returns the cached record map, reloading from disk at most once per
// keyFileCacheTTL.
func (s *KeyStore) keys() (map[string]keyRecord, error) {
	s.mu.RLock()
	if s.cache != nil && time.Since(s.cachedAt) < keyFileCacheTTL {
		cache := s.cache
		s.mu.RUnlock()
		return cache, nil
	}
	s.mu.RUnlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache = records
	s.cachedAt = time.Now()
	s.mu.Unlock()

	return records, nil
}

func (s *KeyStore) save(records map[string]keyRecord) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return merrors.IOError("failed to create key store directory", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return merrors.InternalError("failed to marshal key store", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return merrors.IOError("failed to write key store", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return merrors.IOError("failed to replace key store", err)
	}

	s.mu.Lock()
	s.cache = records
	s.cachedAt = time.Now()
	s.mu.Unlock()

	return nil
}

// Generate creates a new API key with a cryptographically random token,
// writes it with active=true, and returns the full key string. The key
// file records each key under its full value; List shows only a masked form.
func (s *KeyStore) Generate(name string, tier Tier) (string, error) {
	if _, ok := TierLimits[tier]; !ok {
		return "", merrors.ValidationError(fmt.Sprintf("invalid tier: %s", tier), nil)
	}

	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", merrors.InternalError("failed to generate key material", err)
	}
	key := KeyPrefix + hex.EncodeToString(raw)

	if err := s.lock.Lock(); err != nil {
		return "", err
	}
	defer s.lock.Unlock()

	records, err := s.load()
	if err != nil {
		return "", err
	}
	records[key] = keyRecord{Name: name, Tier: tier, Created: time.Now().UTC(), Active: true}
	if err := s.save(records); err != nil {
		return "", err
	}

	return key, nil
}

// Revoke flips a key's active flag to false. Returns false if the key is
// unknown. The entry is retained, never deleted.
func (s *KeyStore) Revoke(key string) (bool, error) {
	if err := s.lock.Lock(); err != nil {
		return false, err
	}
	defer s.lock.Unlock()

	records, err := s.load()
	if err != nil {
		return false, err
	}
	rec, ok := records[key]
	if !ok {
		return false, nil
	}
	rec.Active = false
	now := time.Now().UTC()
	rec.RevokedAt = &now
	records[key] = rec

	if err := s.save(records); err != nil {
		return false, err
	}
	return true, nil
}

// List returns a masked view of every stored key, sorted by name.
func (s *KeyStore) List() ([]MaskedKey, error) {
	records, err := s.keys()
	if err != nil {
		return nil, err
	}

	out := make([]MaskedKey, 0, len(records))
	for key, rec := range records {
		out = append(out, MaskedKey{
			Prefix: maskKey(key), Name: rec.Name, Tier: rec.Tier,
			Active: rec.Active, Created: rec.Created,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Lookup resolves a raw bearer token to its tier. ok=false, active=false
// means the key is entirely unknown; ok=true, active=false means the key
// exists but was revoked.
func (s *KeyStore) Lookup(key string) (tier Tier, active bool, ok bool, err error) {
	records, err := s.keys()
	if err != nil {
		return "", false, false, err
	}
	rec, found := records[key]
	if !found {
		return "", false, false, nil
	}
	return rec.Tier, rec.Active, true, nil
}
