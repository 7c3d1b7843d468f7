package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// APIKey is a service credential. Only the bcrypt hash is stored; the
// plaintext key is returned exactly once, at creation.
type APIKey struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type APIKeyStore struct {
	db *sql.DB
}

func NewAPIKeyStore(db *sql.DB) *APIKeyStore {
	return &APIKeyStore{db: db}
}

// generateKey creates a key in the format LP-XXXX-XXXX-XXXX-XXXX.
func generateKey() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	h := strings.ToUpper(hex.EncodeToString(b))
	return fmt.Sprintf("LP-%s-%s-%s-%s", h[0:4], h[4:8], h[8:12], h[12:16]), nil
}

// Create mints a new key under the given name and returns the key record
// along with the plaintext key.
func (s *APIKeyStore) Create(name string) (*APIKey, string, error) {
	key, err := generateKey()
	if err != nil {
		return nil, "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash key: %w", err)
	}

	result, err := s.db.Exec(`INSERT INTO api_keys (name, key_hash) VALUES (?, ?)`, name, string(hash))
	if err != nil {
		return nil, "", fmt.Errorf("insert api key: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, "", fmt.Errorf("last insert id: %w", err)
	}

	var k APIKey
	err = s.db.QueryRow(`SELECT id, name, created_at FROM api_keys WHERE id = ?`, id).
		Scan(&k.ID, &k.Name, &k.CreatedAt)
	if err != nil {
		return nil, "", fmt.Errorf("get api key: %w", err)
	}
	return &k, key, nil
}

// Verify reports whether the plaintext key matches any stored key hash.
func (s *APIKeyStore) Verify(key string) (bool, error) {
	rows, err := s.db.Query(`SELECT key_hash FROM api_keys`)
	if err != nil {
		return false, fmt.Errorf("list key hashes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return false, fmt.Errorf("scan key hash: %w", err)
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil {
			return true, nil
		}
	}
	return false, rows.Err()
}

// Count returns how many keys exist. Zero means auth is disabled.
func (s *APIKeyStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM api_keys`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count api keys: %w", err)
	}
	return n, nil
}

// Delete removes a key by id.
func (s *APIKeyStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM api_keys WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	return nil
}
