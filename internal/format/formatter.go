package format

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/promptlift/prompt-enhancer/internal/techniques"
)

// Top-level keys a conforming JSON enhancement may carry. A parsed
// object must contain at least one of these before it is re-serialized;
// anything else is passed through untouched.
var expectedJSONKeys = []string{
	"role",
	"task",
	"context",
	"requirements",
	"persona_details",
	"reasoning_structure",
	"examples",
	"creative_elements",
}

const xmlDeclaration = `<?xml version="1.0" encoding="UTF-8"?>`

// Output shapes raw model text into the requested output format. It
// never fails: malformed JSON or XML is returned fence-stripped and
// otherwise untouched, and the caller decides what to do with it.
func Output(text string, format techniques.OutputFormat) string {
	switch format {
	case techniques.FormatJSON:
		return formatJSON(text)
	case techniques.FormatXML:
		return formatXML(text)
	default:
		return text
	}
}

// stripFence removes a leading/trailing fenced code block from s,
// trying the language-tagged fence first and a bare fence as fallback.
func stripFence(s, lang string) string {
	s = strings.TrimSpace(s)

	for _, open := range []string{"```" + lang, "```"} {
		if strings.HasPrefix(s, open) && strings.HasSuffix(s, "```") && len(s) > len(open)+3 {
			inner := s[len(open) : len(s)-3]
			return strings.TrimSpace(inner)
		}
	}
	return s
}

func formatJSON(text string) string {
	cleaned := stripFence(text, "json")

	var parsed map[string]any
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return cleaned
	}

	recognized := false
	for _, key := range expectedJSONKeys {
		if _, ok := parsed[key]; ok {
			recognized = true
			break
		}
	}
	if !recognized {
		return cleaned
	}

	// Re-serialization is deliberate: it normalizes key order and
	// whitespace for consumers that diff the output textually.
	pretty, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return cleaned
	}
	return string(pretty)
}

func formatXML(text string) string {
	cleaned := stripFence(text, "xml")

	if strings.HasPrefix(cleaned, "<?xml") {
		return cleaned
	}
	if strings.HasPrefix(cleaned, "<") {
		return xmlDeclaration + "\n" + cleaned
	}

	// No markup at all: wrap the raw text in a minimal envelope. CDATA
	// intentionally suppresses escaping; a literal "]]>" in the source
	// text would break the section (known limitation).
	generatedAt := time.Now().UTC().Format(time.RFC3339)
	return fmt.Sprintf(`%s
<prompt>
  <enhanced><![CDATA[%s]]></enhanced>
  <metadata>
    <format>xml</format>
    <generated_at>%s</generated_at>
  </metadata>
</prompt>`, xmlDeclaration, cleaned, generatedAt)
}
