package keys

import "errors"

var (
	// ErrKeyStoreUnavailable means user keys could not be read at all.
	// Callers may degrade to system-only resolution, since system keys do
	// not depend on the store.
	ErrKeyStoreUnavailable = errors.New("key store unavailable")
)
