package localstore

import "errors"

// ErrNotInitialized is returned when a backend is opened before `tripkit init`.
var ErrNotInitialized = errors.New("storage not initialized, run 'tripkit init' first")

// KV is a string key-value backend.
type KV interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Get returns the value under key. The bool is false when the key is absent.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error

	// Keys lists every stored key, for diagnostics and backups.
	Keys() ([]string, error)

	// Location describes where data lives (file path or redis address).
	Location() string
}
