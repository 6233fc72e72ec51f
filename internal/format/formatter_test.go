package format

import (
	"strings"
	"testing"

	"github.com/promptlift/prompt-enhancer/internal/techniques"
)

func TestNaturalIsIdentity(t *testing.T) {
	in := "  Hello, keep me exactly as I am.  "
	if got := Output(in, techniques.FormatNatural); got != in {
		t.Errorf("natural format changed text: %q", got)
	}
}

func TestFormatJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "fenced object with recognized key is re-serialized",
			in:   "```json\n{\"role\":\"x\"}\n```",
			want: "{\n  \"role\": \"x\"\n}",
		},
		{
			name: "fenced object without recognized key is only fence-stripped",
			in:   "```json\n{\"foo\":\"bar\"}\n```",
			want: `{"foo":"bar"}`,
		},
		{
			name: "bare fence fallback",
			in:   "```\n{\"task\":\"y\"}\n```",
			want: "{\n  \"task\": \"y\"\n}",
		},
		{
			name: "malformed JSON passes through fence-stripped",
			in:   "```json\nnot json at all\n```",
			want: "not json at all",
		},
		{
			name: "plain text without fence passes through",
			in:   "just words",
			want: "just words",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Output(tt.in, techniques.FormatJSON); got != tt.want {
				t.Errorf("Output() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatXMLWrapsPlainText(t *testing.T) {
	got := Output("Hello", techniques.FormatXML)

	if !strings.HasPrefix(got, xmlDeclaration) {
		t.Errorf("envelope missing XML declaration: %q", got)
	}
	if !strings.Contains(got, "<enhanced><![CDATA[Hello]]></enhanced>") {
		t.Errorf("envelope missing CDATA enhanced element: %q", got)
	}
	if !strings.Contains(got, "<format>xml</format>") {
		t.Errorf("envelope missing format metadata: %q", got)
	}
	if !strings.Contains(got, "<generated_at>") {
		t.Errorf("envelope missing generated_at metadata: %q", got)
	}
}

func TestFormatXMLExistingMarkup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "root tag gets exactly one declaration",
			in:   "<root>content</root>",
			want: xmlDeclaration + "\n<root>content</root>",
		},
		{
			name: "existing declaration is not duplicated",
			in:   xmlDeclaration + "\n<root>content</root>",
			want: xmlDeclaration + "\n<root>content</root>",
		},
		{
			name: "xml fence is stripped first",
			in:   "```xml\n<root>content</root>\n```",
			want: xmlDeclaration + "\n<root>content</root>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Output(tt.in, techniques.FormatXML)
			if got != tt.want {
				t.Errorf("Output() = %q, want %q", got, tt.want)
			}
			if strings.Count(got, "<?xml") != 1 {
				t.Errorf("expected exactly one XML declaration, got %d", strings.Count(got, "<?xml"))
			}
		})
	}
}

func TestFormatXMLDoesNotDoubleWrap(t *testing.T) {
	once := Output("Hello", techniques.FormatXML)
	twice := Output(once, techniques.FormatXML)

	if strings.Count(twice, "<enhanced>") != 1 {
		t.Errorf("re-formatting injected a second envelope: %q", twice)
	}
}

func TestCDATAKeepsMarkupUnescaped(t *testing.T) {
	got := Output("see </prompt> inside", techniques.FormatXML)

	if !strings.Contains(got, "<![CDATA[see </prompt> inside]]>") {
		t.Errorf("CDATA content was altered: %q", got)
	}
}
