package keys

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/councilhq/council/internal/crypto"
	"github.com/councilhq/council/internal/provider"
	"github.com/councilhq/council/internal/store"
	"github.com/councilhq/council/pkg/models"
	"github.com/google/uuid"
)

// ErrUnknownProvider is returned for provider names outside the catalog.
var ErrUnknownProvider = errors.New("unknown provider")

// minPlausibleKeyLen is the shortest credential any catalog provider issues.
const minPlausibleKeyLen = 10

// KeyInfo is the read model for a stored user key. The key itself appears
// only masked.
type KeyInfo struct {
	ID           uuid.UUID  `json:"id"`
	ProviderName string     `json:"provider_name"`
	APIKeyMasked string     `json:"api_key_masked"`
	IsActive     bool       `json:"is_active"`
	LastUsedAt   *time.Time `json:"last_used_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Service manages user API keys: encryption at rest, masking on read, and
// the create-or-replace lifecycle.
type Service struct {
	store  store.Store
	cipher crypto.Cipher
}

// NewService creates a new key management Service.
func NewService(st store.Store, cipher crypto.Cipher) *Service {
	return &Service{store: st, cipher: cipher}
}

// Save stores a key for (user, provider), replacing and reactivating any
// existing key for that provider.
func (s *Service) Save(ctx context.Context, userID uuid.UUID, providerName, plainKey string) (*KeyInfo, error) {
	if !provider.Valid(providerName) {
		return nil, ErrUnknownProvider
	}
	if plainKey == "" {
		return nil, fmt.Errorf("api key must not be empty")
	}

	encrypted, err := s.cipher.Encrypt(plainKey)
	if err != nil {
		return nil, fmt.Errorf("encrypting key: %w", err)
	}

	now := time.Now().UTC()
	stored, err := s.store.UpsertUserKey(ctx, &models.UserAPIKey{
		ID:           uuid.New(),
		UserID:       userID,
		ProviderName: providerName,
		EncryptedKey: encrypted,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}
	return s.info(stored), nil
}

// Update replaces the key material for a provider the user already has a key
// for. Unlike Save it does not create one: a missing key is store.ErrNotFound.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, providerName, plainKey string) (*KeyInfo, error) {
	if !provider.Valid(providerName) {
		return nil, ErrUnknownProvider
	}

	existing, err := s.store.ListUserKeys(ctx, userID)
	if err != nil {
		return nil, err
	}
	found := false
	for _, k := range existing {
		if k.ProviderName == providerName {
			found = true
			break
		}
	}
	if !found {
		return nil, store.ErrNotFound
	}

	return s.Save(ctx, userID, providerName, plainKey)
}

// List returns all of a user's keys, masked.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*KeyInfo, error) {
	stored, err := s.store.ListUserKeys(ctx, userID)
	if err != nil {
		return nil, err
	}
	infos := make([]*KeyInfo, 0, len(stored))
	for _, k := range stored {
		infos = append(infos, s.info(k))
	}
	return infos, nil
}

// Test checks whether a stored key looks usable: the provider is known, the
// ciphertext decrypts, and the plaintext has a plausible length. No live
// provider call is made.
func (s *Service) Test(ctx context.Context, userID uuid.UUID, providerName string) (bool, string, error) {
	if !provider.Valid(providerName) {
		return false, "", ErrUnknownProvider
	}

	stored, err := s.store.GetActiveUserKey(ctx, userID, providerName)
	if err != nil {
		return false, "", err
	}

	plain, err := s.cipher.Decrypt(stored.EncryptedKey)
	if err != nil {
		return false, "stored key cannot be decrypted", nil
	}
	if len(plain) < minPlausibleKeyLen {
		return false, "api key appears to be invalid (too short)", nil
	}
	return true, "", nil
}

// SetActive toggles a key without touching its material.
func (s *Service) SetActive(ctx context.Context, userID uuid.UUID, providerName string, active bool) error {
	if !provider.Valid(providerName) {
		return ErrUnknownProvider
	}
	return s.store.SetUserKeyActive(ctx, userID, providerName, active)
}

// Delete removes a user's key for a provider.
func (s *Service) Delete(ctx context.Context, userID uuid.UUID, providerName string) error {
	if !provider.Valid(providerName) {
		return ErrUnknownProvider
	}
	return s.store.DeleteUserKey(ctx, userID, providerName)
}

func (s *Service) info(k *models.UserAPIKey) *KeyInfo {
	masked := "***"
	if plain, err := s.cipher.Decrypt(k.EncryptedKey); err == nil {
		masked = crypto.Mask(plain)
	}
	return &KeyInfo{
		ID:           k.ID,
		ProviderName: k.ProviderName,
		APIKeyMasked: masked,
		IsActive:     k.IsActive,
		LastUsedAt:   k.LastUsedAt,
		CreatedAt:    k.CreatedAt,
		UpdatedAt:    k.UpdatedAt,
	}
}
