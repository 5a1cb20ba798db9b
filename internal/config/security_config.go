package config

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type SecurityConfig interface {
	GetSessionSecret() string
	GetMaxSessionAge() time.Duration
	GetSessionSweepInterval() time.Duration
	GetEnableRateLimiting() bool
	GetRateLimitWindow() time.Duration
	GetRateLimitMaxRequests() int
	GetTrustProxy() bool
	GetBcryptCost() int
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetSessionSecret returns the key used to sign anti-forgery tokens. An empty
// value makes the server generate a random per-process key.
func (Security) GetSessionSecret() string {
	return GetEnv("SESSION_SECRET", "")
}

func (Security) GetMaxSessionAge() time.Duration {
	return 1 * time.Hour
}

func (Security) GetSessionSweepInterval() time.Duration {
	return 5 * time.Minute
}

func (Security) GetEnableRateLimiting() bool {
	return GetBool("RATE_LIMIT_ENABLED", true)
}

func (Security) GetRateLimitWindow() time.Duration {
	return 15 * time.Minute
}

func (Security) GetRateLimitMaxRequests() int {
	return 100
}

// GetTrustProxy reports whether the first X-Forwarded-For hop identifies the client.
func (Security) GetTrustProxy() bool {
	return GetBool("TRUST_PROXY", false)
}

func (Security) GetBcryptCost() int {
	cost := GetInt("BCRYPT_COST", 12)
	if cost < bcrypt.DefaultCost || cost > bcrypt.MaxCost {
		return 12
	}
	return cost
}
