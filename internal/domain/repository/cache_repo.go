package repository

import (
	"time"
)

// CacheRepository defines key-value cache operations.
type CacheRepository interface {
	Set(key string, value interface{}, expiration time.Duration) error
	Get(key string) (string, error)
	Delete(key string) error
	SetJSON(key string, value interface{}, expiration time.Duration) error
	GetJSON(key string, dest interface{}) error
	// DeleteByPrefix removes every key starting with prefix
	DeleteByPrefix(prefix string) (int64, error)
	Ping() error
}
