package config

import (
	"time"
)

// JWTSecret and JWTExpiration are set by SetJWT during start-up and read by the
// token issuer and the auth middleware.
var (
	JWTSecret     = []byte("your-secret-key-change-this-in-production")
	JWTExpiration = 24 * time.Hour
)

func SetJWT(secret string, expiration time.Duration) {
	if secret != "" {
		JWTSecret = []byte(secret)
	}
	if expiration > 0 {
		JWTExpiration = expiration
	}
}
