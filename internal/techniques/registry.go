package techniques

import "strings"

type OutputFormat string

const (
	FormatNatural OutputFormat = "natural"
	FormatJSON    OutputFormat = "json"
	FormatXML     OutputFormat = "xml"
)

// ValidFormat reports whether s names a supported output format.
func ValidFormat(s string) bool {
	switch OutputFormat(s) {
	case FormatNatural, FormatJSON, FormatXML:
		return true
	}
	return false
}

// Technique is a named instructional template that steers how the
// upstream model rewrites a prompt. Instances are immutable and shared
// across requests.
type Technique struct {
	ID           string
	Name         string
	Description  string
	Instructions string
}

const jsonAddendum = "\n\nReturn your answer as a single JSON object. Use top-level keys " +
	"such as \"role\", \"task\", \"context\", \"requirements\" and \"examples\" where they apply. " +
	"Do not include any prose outside the JSON object."

const xmlAddendum = "\n\nReturn your answer as a well-formed XML document with a single root " +
	"element. Nest the rewritten prompt and any supporting sections as child elements. " +
	"Do not include any prose outside the XML document."

// InstructionsFor returns the system instructions for the given output
// format. Natural output uses the base text unmodified; json and xml
// append a structural addendum. The result is deterministic for
// identical inputs.
func (t Technique) InstructionsFor(format OutputFormat) string {
	switch format {
	case FormatJSON:
		return t.Instructions + jsonAddendum
	case FormatXML:
		return t.Instructions + xmlAddendum
	default:
		return t.Instructions
	}
}

var registry = map[string]Technique{
	"clarity": {
		ID:          "clarity",
		Name:        "Clarity Boost",
		Description: "Rewrites vague prompts into precise, unambiguous instructions.",
		Instructions: "You are an expert prompt engineer. Rewrite the user's prompt so that it is " +
			"clear, specific and unambiguous. Replace vague verbs with concrete actions, state the " +
			"desired output explicitly, and remove filler language. Preserve the user's intent " +
			"exactly; do not add new requirements they did not imply. Return only the rewritten prompt.",
	},
	"chain-of-thought": {
		ID:          "chain-of-thought",
		Name:        "Chain of Thought",
		Description: "Restructures the prompt to request explicit step-by-step reasoning.",
		Instructions: "You are an expert prompt engineer. Rewrite the user's prompt so that it asks " +
			"the model to reason step by step before giving a final answer. Break the task into an " +
			"ordered sequence of reasoning steps, ask for intermediate conclusions at each step, and " +
			"request a clearly marked final answer at the end. Return only the rewritten prompt.",
	},
	"few-shot": {
		ID:          "few-shot",
		Name:        "Few-Shot Examples",
		Description: "Augments the prompt with worked input/output examples.",
		Instructions: "You are an expert prompt engineer. Rewrite the user's prompt to include two or " +
			"three short, representative input/output examples that demonstrate the expected behavior. " +
			"Choose examples that cover the typical case and at least one edge case. Keep each example " +
			"concise. End with the user's actual request. Return only the rewritten prompt.",
	},
	"persona": {
		ID:          "persona",
		Name:        "Expert Persona",
		Description: "Frames the prompt around a domain-expert persona.",
		Instructions: "You are an expert prompt engineer. Rewrite the user's prompt so that it opens by " +
			"assigning the model a specific, credible expert persona relevant to the task, including the " +
			"persona's domain, experience level and communication style. Then restate the task from the " +
			"perspective of briefing that expert. Return only the rewritten prompt.",
	},
	"structured-output": {
		ID:          "structured-output",
		Name:        "Structured Output",
		Description: "Adds explicit output-structure requirements to the prompt.",
		Instructions: "You are an expert prompt engineer. Rewrite the user's prompt to specify the exact " +
			"structure the response must follow: sections, headings, ordering and length constraints. " +
			"If the task produces data, specify field names and types. Make every structural requirement " +
			"explicit and testable. Return only the rewritten prompt.",
	},
	"context-enrichment": {
		ID:          "context-enrichment",
		Name:        "Context Enrichment",
		Description: "Surfaces missing background context the model will need.",
		Instructions: "You are an expert prompt engineer. Rewrite the user's prompt to include the " +
			"background context a model would need to answer well: the audience, the setting, relevant " +
			"constraints and any assumed knowledge. Where the original prompt leaves context ambiguous, " +
			"state the most reasonable assumption explicitly rather than leaving it open. Return only " +
			"the rewritten prompt.",
	},
	"constraint-setting": {
		ID:          "constraint-setting",
		Name:        "Constraint Setting",
		Description: "Adds explicit boundaries, tone and scope constraints.",
		Instructions: "You are an expert prompt engineer. Rewrite the user's prompt to state its " +
			"constraints explicitly: what is in scope, what is out of scope, required tone, length " +
			"limits and any hard requirements that must not be violated. Phrase constraints as direct " +
			"instructions, not suggestions. Return only the rewritten prompt.",
	},
	"creative-expansion": {
		ID:          "creative-expansion",
		Name:        "Creative Expansion",
		Description: "Opens up the prompt for richer, more imaginative responses.",
		Instructions: "You are an expert prompt engineer. Rewrite the user's prompt to invite a more " +
			"creative and detailed response: ask for vivid specifics, sensory detail or alternative " +
			"angles where appropriate, while keeping the core task intact. Encourage the model to go " +
			"beyond the obvious first answer. Return only the rewritten prompt.",
	},
}

// Get returns the technique registered under id.
func Get(id string) (Technique, bool) {
	t, ok := registry[strings.ToLower(id)]
	return t, ok
}

// All returns the full technique registry.
func All() map[string]Technique {
	return registry
}
