package localstore

import (
	"strings"
)

// MemoryPath selects the in-memory backend.
const MemoryPath = ":memory:"

// NewKV picks a backend from the --store value: a redis URL, a .json file,
// ":memory:", or otherwise a SQLite database file.
func NewKV(path string) KV {
	switch {
	case IsRedisURL(path):
		return NewRedisKV(path)
	case path == MemoryPath:
		return NewMemoryKV()
	case strings.HasSuffix(strings.ToLower(path), ".json"):
		return NewJSONKV(path)
	default:
		return NewSQLiteKV(path)
	}
}

// Backend names the kind of backend for display.
func Backend(kv KV) string {
	switch kv.(type) {
	case *RedisKV:
		return "redis"
	case *JSONKV:
		return "json"
	case *MemoryKV:
		return "memory"
	case *SQLiteKV:
		return "sqlite"
	default:
		return "unknown"
	}
}
