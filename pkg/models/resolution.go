package models

// KeySource identifies where a provider's credential came from.
type KeySource string

const (
	// SourceUser means the user's own stored key served the provider.
	SourceUser KeySource = "user"
	// SourceSystem means the process-wide fallback key served the provider.
	SourceSystem KeySource = "system"
	// SourceNone means no usable key exists; the provider is excluded.
	SourceNone KeySource = "none"
)

// Resolution is the per-provider outcome of key resolution for one request.
// Key holds plaintext and must never be persisted, logged, or serialized.
type Resolution struct {
	Provider string    `json:"provider"`
	Source   KeySource `json:"source"`
	Key      string    `json:"-"`
}

// Usable reports whether the resolution carries a credential.
func (r Resolution) Usable() bool {
	return r.Source == SourceUser || r.Source == SourceSystem
}
