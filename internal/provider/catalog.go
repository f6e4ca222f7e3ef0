// Package provider holds the static catalog of supported AI providers and
// their models. Both key resolution and the API surface read from this single
// table; the provider list is never duplicated elsewhere.
package provider

// Info describes one supported provider.
type Info struct {
	Name        string
	DisplayName string
	KeyEnv      string // environment variable holding the system fallback key
	ConsoleURL  string // where users create their own keys
}

// Model describes one catalog model offered by a provider.
type Model struct {
	ID                 string
	Provider           string
	ModelName          string
	CostPerInputToken  float64
	CostPerOutputToken float64
	AverageLatency     float64 // seconds
	MaxContext         int
	ReliabilityScore   float64
}

var catalog = []Info{
	{Name: "groq", DisplayName: "Groq", KeyEnv: "GROQ_API_KEY", ConsoleURL: "https://console.groq.com/keys"},
	{Name: "gemini", DisplayName: "Google Gemini", KeyEnv: "GEMINI_API_KEY", ConsoleURL: "https://aistudio.google.com/app/apikey"},
	{Name: "openai", DisplayName: "OpenAI", KeyEnv: "OPENAI_API_KEY", ConsoleURL: "https://platform.openai.com/api-keys"},
	{Name: "anthropic", DisplayName: "Anthropic", KeyEnv: "ANTHROPIC_API_KEY", ConsoleURL: "https://console.anthropic.com/settings/keys"},
	{Name: "together", DisplayName: "Together AI", KeyEnv: "TOGETHER_API_KEY", ConsoleURL: "https://api.together.xyz/settings/api-keys"},
	{Name: "huggingface", DisplayName: "Hugging Face", KeyEnv: "HUGGINGFACE_API_KEY", ConsoleURL: "https://huggingface.co/settings/tokens"},
}

var modelRegistry = []Model{
	{ID: "groq-llama3-70b", Provider: "groq", ModelName: "llama3-70b-8192",
		CostPerInputToken: 0.00000059, CostPerOutputToken: 0.00000079,
		AverageLatency: 0.5, MaxContext: 8192, ReliabilityScore: 0.95},
	{ID: "gemini-1.5-flash", Provider: "gemini", ModelName: "gemini-1.5-flash",
		CostPerInputToken: 0.000000075, CostPerOutputToken: 0.0000003,
		AverageLatency: 1.1, MaxContext: 1000000, ReliabilityScore: 0.96},
	{ID: "openai-gpt-4o-mini", Provider: "openai", ModelName: "gpt-4o-mini",
		CostPerInputToken: 0.00000015, CostPerOutputToken: 0.0000006,
		AverageLatency: 1.2, MaxContext: 128000, ReliabilityScore: 0.98},
	{ID: "anthropic-claude-haiku", Provider: "anthropic", ModelName: "claude-3-5-haiku-20241022",
		CostPerInputToken: 0.0000008, CostPerOutputToken: 0.000004,
		AverageLatency: 1.4, MaxContext: 200000, ReliabilityScore: 0.97},
	{ID: "together-mixtral-8x7b", Provider: "together", ModelName: "mistralai/Mixtral-8x7B-Instruct-v0.1",
		CostPerInputToken: 0.0000006, CostPerOutputToken: 0.0000006,
		AverageLatency: 1.8, MaxContext: 32768, ReliabilityScore: 0.92},
	{ID: "huggingface-zephyr-7b", Provider: "huggingface", ModelName: "HuggingFaceH4/zephyr-7b-beta",
		CostPerInputToken: 0, CostPerOutputToken: 0,
		AverageLatency: 3.5, MaxContext: 4096, ReliabilityScore: 0.85},
}

// All returns the provider catalog in display order.
func All() []Info {
	out := make([]Info, len(catalog))
	copy(out, catalog)
	return out
}

// Valid reports whether name is a supported provider.
func Valid(name string) bool {
	for _, p := range catalog {
		if p.Name == name {
			return true
		}
	}
	return false
}

// Get returns the catalog entry for name.
func Get(name string) (Info, bool) {
	for _, p := range catalog {
		if p.Name == name {
			return p, true
		}
	}
	return Info{}, false
}

// Names returns the names of all supported providers.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for _, p := range catalog {
		names = append(names, p.Name)
	}
	return names
}

// ModelsFor returns the catalog models for one provider, in registry order.
func ModelsFor(providerName string) []Model {
	var out []Model
	for _, m := range modelRegistry {
		if m.Provider == providerName {
			out = append(out, m)
		}
	}
	return out
}
