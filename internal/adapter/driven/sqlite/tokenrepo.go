package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ericfisherdev/mrpanel/internal/domain/model"
	"github.com/ericfisherdev/mrpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TokenStore = (*TokenRepo)(nil)

// TokenRepo is the SQLite implementation of the TokenStore port interface.
// Token values are encrypted with AES-256-GCM before write and decrypted after read.
type TokenRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil when encryption is disabled.
}

// NewTokenRepo creates a new TokenRepo. key must be 32 bytes for AES-256-GCM,
// or nil to disable token storage (reads and writes return ErrEncryptionKeyNotSet).
func NewTokenRepo(db *DB, key []byte) *TokenRepo {
	return &TokenRepo{db: db, key: key}
}

// normalizeInstance strips trailing slashes so "https://gitlab.com/" and
// "https://gitlab.com" share one row.
func normalizeInstance(instanceURL string) string {
	return strings.TrimRight(strings.TrimSpace(instanceURL), "/")
}

// Set stores or replaces the token for the given instance.
func (r *TokenRepo) Set(ctx context.Context, instanceURL, token string) error {
	encrypted, err := r.encrypt(token)
	if err != nil {
		return err
	}

	instanceURL = normalizeInstance(instanceURL)
	const query = `INSERT OR REPLACE INTO tokens (instance_url, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`
	if _, err := r.db.Writer.ExecContext(ctx, query, instanceURL, encrypted); err != nil {
		return fmt.Errorf("set token for %s: %w", instanceURL, err)
	}
	return nil
}

// Get retrieves the plaintext token for the given instance.
// Returns ("", nil) if no token is stored for it.
func (r *TokenRepo) Get(ctx context.Context, instanceURL string) (string, error) {
	if r.key == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	instanceURL = normalizeInstance(instanceURL)
	const query = `SELECT value FROM tokens WHERE instance_url = ?`
	var encrypted string
	err := r.db.Reader.QueryRowContext(ctx, query, instanceURL).Scan(&encrypted)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get token for %s: %w", instanceURL, err)
	}

	plaintext, err := r.decrypt(encrypted)
	if err != nil {
		return "", fmt.Errorf("decrypt token for %s: %w", instanceURL, err)
	}
	return plaintext, nil
}

// List returns all stored tokens with decrypted values, ordered by instance.
func (r *TokenRepo) List(ctx context.Context) ([]model.Token, error) {
	if r.key == nil {
		return nil, driven.ErrEncryptionKeyNotSet
	}

	const query = `SELECT instance_url, value, updated_at FROM tokens ORDER BY instance_url`
	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []model.Token
	for rows.Next() {
		var tok model.Token
		var encrypted, updatedAt string
		if err := rows.Scan(&tok.InstanceURL, &encrypted, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}

		tok.Value, err = r.decrypt(encrypted)
		if err != nil {
			return nil, fmt.Errorf("decrypt token for %s: %w", tok.InstanceURL, err)
		}

		tok.UpdatedAt, err = parseTime(updatedAt)
		if err != nil {
			return nil, fmt.Errorf("parse updated_at for %s: %w", tok.InstanceURL, err)
		}

		tokens = append(tokens, tok)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}

	return tokens, nil
}

// Delete removes the token for the given instance. Deleting a missing token is not an error.
func (r *TokenRepo) Delete(ctx context.Context, instanceURL string) error {
	instanceURL = normalizeInstance(instanceURL)
	const query = `DELETE FROM tokens WHERE instance_url = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, instanceURL); err != nil {
		return fmt.Errorf("delete token for %s: %w", instanceURL, err)
	}
	return nil
}

// encrypt encrypts plaintext using AES-256-GCM and returns a base64-encoded string
// containing the nonce (12 bytes) prepended to the ciphertext.
func (r *TokenRepo) encrypt(plaintext string) (string, error) {
	if r.key == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	gcm, err := r.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, producing: nonce || ciphertext || tag.
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts a base64-encoded AES-256-GCM ciphertext.
func (r *TokenRepo) decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	gcm, err := r.gcm()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}

	return string(plaintext), nil
}

func (r *TokenRepo) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(r.key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}
