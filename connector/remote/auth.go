package remote

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"os"
	"sync"
)

// Authentication errors
var (
	ErrAuthRequired      = errors.New("authentication required")
	ErrAuthTokenMismatch = errors.New("auth token mismatch")
)

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// Enabled determines if every request must carry the token
	Enabled bool
	// Token is the secret token that clients must provide
	Token string
}

// Authenticator checks request tokens.
type Authenticator struct {
	config AuthConfig
	mu     sync.RWMutex
}

// NewAuthenticator creates a new Authenticator with the given config.
func NewAuthenticator(config AuthConfig) *Authenticator {
	return &Authenticator{
		config: config,
	}
}

// NewAuthenticatorFromEnv creates an Authenticator from TABULAR_AUTH_TOKEN.
// Authentication is enabled exactly when the variable is set.
func NewAuthenticatorFromEnv() *Authenticator {
	token := os.Getenv("TABULAR_AUTH_TOKEN")
	return NewAuthenticator(AuthConfig{
		Enabled: token != "",
		Token:   token,
	})
}

// IsEnabled returns true if authentication is enabled.
func (a *Authenticator) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config.Enabled
}

// SetToken replaces the token and enables authentication.
func (a *Authenticator) SetToken(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.config = AuthConfig{Enabled: true, Token: token}
}

// ValidateToken checks if the provided token matches the configured token
// in constant time.
func (a *Authenticator) ValidateToken(providedToken string) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.config.Enabled {
		return nil
	}

	if providedToken == "" {
		return ErrAuthRequired
	}

	if subtle.ConstantTimeCompare([]byte(a.config.Token), []byte(providedToken)) != 1 {
		return ErrAuthTokenMismatch
	}

	return nil
}

// GenerateToken generates a random 256-bit token.
func GenerateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
