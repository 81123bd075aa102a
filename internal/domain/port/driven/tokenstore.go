package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/mrpanel/internal/domain/model"
)

// ErrEncryptionKeyNotSet is returned by TokenStore operations when
// MRPANEL_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set MRPANEL_SECRET_KEY")

// TokenStore defines the driven port for encrypted per-instance token persistence.
// The adapter layer is responsible for encryption/decryption; this interface
// operates on plaintext values at the domain boundary.
type TokenStore interface {
	// Set stores or replaces the token for the given instance URL.
	Set(ctx context.Context, instanceURL, token string) error

	// Get retrieves the token for the given instance URL.
	// Returns ("", nil) if no token is stored for that instance.
	Get(ctx context.Context, instanceURL string) (string, error)

	// List returns all stored tokens, decrypted.
	List(ctx context.Context) ([]model.Token, error)

	// Delete removes the token for the given instance URL.
	Delete(ctx context.Context, instanceURL string) error
}
