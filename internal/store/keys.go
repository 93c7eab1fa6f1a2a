package store

import (
	"sync"

	"github.com/taskline/taskline-server/internal/domain"
)

const preferencePrefix = "pref:"

// keyPool provides reusable byte slices for building preference keys.
var keyPool = sync.Pool{
	New: func() any {
		// "pref:" + namespace + ":" + key fits comfortably in 128 bytes.
		return make([]byte, 0, 128)
	},
}

// buildPrefKey constructs pref:<namespace>:<key> using a pooled buffer.
// Callers MUST call releaseKey when done with the key.
//
// Usage:
//
//	key := buildPrefKey(domain.NamespacePrivate, "font_size")
//	defer releaseKey(key)
//	item, err := txn.Get(key)
func buildPrefKey(ns domain.PreferenceNamespace, key string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = buf[:0]
	buf = append(buf, preferencePrefix...)
	buf = append(buf, ns...)
	buf = append(buf, ':')
	buf = append(buf, key...)
	return buf
}

// namespacePrefix returns the key prefix shared by every entry in a namespace.
func namespacePrefix(ns domain.PreferenceNamespace) []byte {
	return []byte(preferencePrefix + string(ns) + ":")
}

// releaseKey returns a key buffer to the pool for reuse.
// After calling this, the key slice must not be used.
func releaseKey(key []byte) {
	if cap(key) <= 512 {
		keyPool.Put(key[:0])
	}
}
