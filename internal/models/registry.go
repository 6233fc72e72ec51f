package models

// Descriptor identifies one upstream completion model. The slice order
// in the registry is the fallback order used by the orchestrator.
type Descriptor struct {
	ID          string
	DisplayName string
	Provider    string
	MaxTokens   int
	Free        bool
}

var registry = []Descriptor{
	{
		ID:          "mistralai/mistral-7b-instruct:free",
		DisplayName: "Mistral 7B Instruct",
		Provider:    "mistral",
		MaxTokens:   2048,
		Free:        true,
	},
	{
		ID:          "meta-llama/llama-3.1-8b-instruct:free",
		DisplayName: "Llama 3.1 8B Instruct",
		Provider:    "meta",
		MaxTokens:   2048,
		Free:        true,
	},
	{
		ID:          "google/gemma-2-9b-it:free",
		DisplayName: "Gemma 2 9B",
		Provider:    "google",
		MaxTokens:   1536,
		Free:        true,
	},
	{
		ID:          "qwen/qwen-2.5-7b-instruct:free",
		DisplayName: "Qwen 2.5 7B Instruct",
		Provider:    "qwen",
		MaxTokens:   2048,
		Free:        true,
	},
}

// Get returns the descriptor registered under id.
func Get(id string) (Descriptor, bool) {
	for _, m := range registry {
		if m.ID == id {
			return m, true
		}
	}
	return Descriptor{}, false
}

// All returns the model registry in fallback order.
func All() []Descriptor {
	return registry
}

// Candidates builds the ordered fallback list. A known preferred model
// goes first and is excluded from the remainder so it is never tried
// twice; an unknown or empty preference yields plain registry order.
func Candidates(preferred string) []Descriptor {
	first, known := Get(preferred)
	if !known {
		return registry
	}

	out := make([]Descriptor, 0, len(registry))
	out = append(out, first)
	for _, m := range registry {
		if m.ID != first.ID {
			out = append(out, m)
		}
	}
	return out
}
