// Package keys decides, per provider and per request, which credential
// authenticates that provider: the user's own stored key, the system
// fallback, or none.
package keys

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/councilhq/council/internal/config"
	"github.com/councilhq/council/internal/crypto"
	"github.com/councilhq/council/internal/store"
	"github.com/councilhq/council/pkg/models"
	"github.com/google/uuid"
)

// Resolver resolves credentials for a set of providers. It only ever reads
// the store; last-used bookkeeping belongs to the usage ledger.
type Resolver struct {
	store  store.Store
	cipher crypto.Cipher
	system config.SystemKeys
}

// NewResolver creates a new Resolver.
func NewResolver(st store.Store, cipher crypto.Cipher, system config.SystemKeys) *Resolver {
	return &Resolver{store: st, cipher: cipher, system: system}
}

// Resolve produces one resolution per requested provider. The user's active
// key wins over the system key; a key that fails to decrypt is treated as
// absent and logged, never surfaced. A store read failure aborts resolution
// for all providers with ErrKeyStoreUnavailable.
func (r *Resolver) Resolve(ctx context.Context, userID *uuid.UUID, providers []string) (map[string]models.Resolution, error) {
	out := make(map[string]models.Resolution, len(providers))

	for _, p := range providers {
		if userID != nil {
			key, err := r.userKey(ctx, *userID, p)
			if err != nil {
				return nil, err
			}
			if key != "" {
				out[p] = models.Resolution{Provider: p, Source: models.SourceUser, Key: key}
				continue
			}
		}
		out[p] = r.systemResolution(p)
	}

	return out, nil
}

// ResolveSystemOnly resolves every provider against system keys alone. Used
// when the key store is unreachable.
func (r *Resolver) ResolveSystemOnly(providers []string) map[string]models.Resolution {
	out := make(map[string]models.Resolution, len(providers))
	for _, p := range providers {
		out[p] = r.systemResolution(p)
	}
	return out
}

// userKey returns the decrypted user key for (userID, provider), or "" if no
// usable key exists. Only store infrastructure faults propagate as errors.
func (r *Resolver) userKey(ctx context.Context, userID uuid.UUID, providerName string) (string, error) {
	stored, err := r.store.GetActiveUserKey(ctx, userID, providerName)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrKeyStoreUnavailable, err)
	}

	plain, err := r.cipher.Decrypt(stored.EncryptedKey)
	if err != nil {
		// Corrupt or stale ciphertext. Fall open to the system key for this
		// provider; log without any key material.
		slog.Warn("user key decryption failed, falling back to system key",
			"user_id", userID,
			"provider", providerName,
		)
		return "", nil
	}
	return plain, nil
}

func (r *Resolver) systemResolution(providerName string) models.Resolution {
	if key, ok := r.system.Get(providerName); ok {
		return models.Resolution{Provider: providerName, Source: models.SourceSystem, Key: key}
	}
	return models.Resolution{Provider: providerName, Source: models.SourceNone}
}
