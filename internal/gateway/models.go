package gateway

import "strings"

// Gateway defaults
const (
	DefaultBaseURL      = "https://openrouter.ai/api/v1"
	DefaultModelKey     = "sonnet35"
	DefaultJPEGQuality  = 80
	MaxResponseBodySize = 10 * 1024 * 1024
)

// ModelDescriptor is one entry of the fixed model catalog
type ModelDescriptor struct {
	Key                string
	WireID             string
	DisplayName        string
	SupportsImageInput bool
}

var catalog = []ModelDescriptor{
	{Key: "gpt4o", WireID: "openai/gpt-4o", DisplayName: "GPT-4o", SupportsImageInput: true},
	{Key: "sonnet35", WireID: "anthropic/claude-3.5-sonnet", DisplayName: "Sonnet 3.5", SupportsImageInput: true},
	{Key: "opus", WireID: "anthropic/claude-3-opus", DisplayName: "Opus", SupportsImageInput: true},
	{Key: "qwen", WireID: "qwen/qwen-2-7b-instruct", DisplayName: "Qwen 2 7B Instruct"},
	{Key: "mistral", WireID: "mistralai/mistral-7b-instruct", DisplayName: "Mistral 7B Instruct"},
	{Key: "llama", WireID: "meta-llama/llama-3.1-8b-instruct", DisplayName: "Llama 3.1 8B Instruct"},
	{Key: "gemini", WireID: "google/gemini-flash-1.5", DisplayName: "Gemini Flash 1.5", SupportsImageInput: true},
}

// Models returns a copy of the catalog in display order
func Models() []ModelDescriptor {
	out := make([]ModelDescriptor, len(catalog))
	copy(out, catalog)
	return out
}

// LookupModel finds a catalog entry by short key or wire identifier
func LookupModel(name string) (ModelDescriptor, bool) {
	name = strings.TrimSpace(name)
	for _, m := range catalog {
		if strings.EqualFold(m.Key, name) || m.WireID == name {
			return m, true
		}
	}
	return ModelDescriptor{}, false
}

// DefaultModel returns the model selected when nothing else is configured
func DefaultModel() ModelDescriptor {
	m, _ := LookupModel(DefaultModelKey)
	return m
}
