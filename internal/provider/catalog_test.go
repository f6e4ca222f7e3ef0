package provider_test

import (
	"testing"

	"github.com/councilhq/council/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValid(t *testing.T) {
	assert.True(t, provider.Valid("groq"))
	assert.True(t, provider.Valid("anthropic"))
	assert.False(t, provider.Valid("Groq"))
	assert.False(t, provider.Valid(""))
	assert.False(t, provider.Valid("cohere"))
}

func TestGet(t *testing.T) {
	info, ok := provider.Get("gemini")
	require.True(t, ok)
	assert.Equal(t, "Google Gemini", info.DisplayName)
	assert.Equal(t, "GEMINI_API_KEY", info.KeyEnv)

	_, ok = provider.Get("unknown")
	assert.False(t, ok)
}

func TestNames_StableOrder(t *testing.T) {
	want := []string{"groq", "gemini", "openai", "anthropic", "together", "huggingface"}
	assert.Equal(t, want, provider.Names())
}

func TestModelsFor(t *testing.T) {
	models := provider.ModelsFor("groq")
	require.NotEmpty(t, models)
	for _, m := range models {
		assert.Equal(t, "groq", m.Provider)
		assert.NotEmpty(t, m.ID)
		assert.NotEmpty(t, m.ModelName)
	}

	assert.Empty(t, provider.ModelsFor("unknown"))
}

func TestEveryProviderHasModels(t *testing.T) {
	for _, name := range provider.Names() {
		assert.NotEmpty(t, provider.ModelsFor(name), "provider %s has no catalog models", name)
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	all := provider.All()
	require.NotEmpty(t, all)
	all[0].Name = "mutated"

	fresh := provider.All()
	assert.Equal(t, "groq", fresh[0].Name)
}
