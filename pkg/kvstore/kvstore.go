// Package kvstore provides the injected key-value store used for the durable
// order-notification idempotency marker. The dispatcher depends on this
// interface, never on a concrete global, so tests substitute the in-memory
// implementation while production uses the BoltDB file store.
package kvstore

// Store is a minimal string key-value store.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the stored value and whether the key exists.
	Get(key string) (string, bool, error)
	// Set writes value under key, overwriting any previous value.
	Set(key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error
}
