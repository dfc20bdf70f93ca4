// internal/auth/keys.go
package auth

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"time"
)

// privateKey and publicKey are used for signing and verifying all tokens
// this service mints.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// accessTokenTTL is the lifetime of lobby access credentials.
	accessTokenTTL time.Duration
	// refreshTokenTTL is the lifetime of lobby refresh credentials.
	refreshTokenTTL time.Duration
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 72 * time.Hour
)

// parseTokenTTLs reads TOKEN_EXPIRE_TIME and REFRESH_TOKEN_EXPIRE_TIME and
// sets the corresponding lifetimes, falling back to defaults.
func parseTokenTTLs() {
	accessTokenTTL = parseTTL("TOKEN_EXPIRE_TIME", defaultAccessTTL)
	refreshTokenTTL = parseTTL("REFRESH_TOKEN_EXPIRE_TIME", defaultRefreshTTL)
}

func parseTTL(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		fmt.Printf("failed to parse %s: %v\n", key, err)
		os.Exit(1)
	}
	return d
}

// Init generates a fresh ed25519 key pair at runtime and sets token
// lifetimes. Tokens do not survive a restart with runtime keys; use
// InitFromPath in production.
func Init() {
	var err error
	publicKey, privateKey, err = ed25519.GenerateKey(nil)
	if err != nil {
		fmt.Printf("failed to generate ed25519 key pair: %v\n", err)
		os.Exit(1)
	}
	parseTokenTTLs()
}

// InitFromPath reads ed25519 private/public keys from file and sets token
// lifetimes.
func InitFromPath(privatePath, publicPath string) error {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("failed to read public key file: %w", err)
	}

	privateKey = ed25519.PrivateKey(privateKeyData)
	publicKey = ed25519.PublicKey(publicKeyData)
	parseTokenTTLs()
	return nil
}
