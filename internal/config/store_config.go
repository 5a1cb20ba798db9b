package config

import "strings"

type StoreKind string

const (
	StoreMemory StoreKind = "memory"
	StoreRedis  StoreKind = "redis"
)

type StoreConfig interface {
	GetDatabaseURL() string
	GetRedisURL() string
	GetSessionStore() StoreKind
	GetRateLimitStore() StoreKind
}

type Stores struct{}

var _ StoreConfig = Stores{}

// GetDatabaseURL returns the Postgres DSN. When empty the in-memory user repo is used.
func (Stores) GetDatabaseURL() string {
	return GetEnv("DATABASE_URL", "")
}

func (Stores) GetRedisURL() string {
	return GetEnv("REDIS_URL", "redis://localhost:6379/0")
}

func (Stores) GetSessionStore() StoreKind {
	return storeKind(GetEnv("SESSION_STORE", string(StoreMemory)))
}

func (Stores) GetRateLimitStore() StoreKind {
	return storeKind(GetEnv("RATE_LIMIT_STORE", string(StoreMemory)))
}

func storeKind(v string) StoreKind {
	if StoreKind(strings.ToLower(v)) == StoreRedis {
		return StoreRedis
	}
	return StoreMemory
}
