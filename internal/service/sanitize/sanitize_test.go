package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain text unchanged", "Apply 50 kg nitrogen per acre.", "Apply 50 kg nitrogen per acre."},
		{"json response field", `{"response": "Coconut needs 50 kg N per acre."}`, "Coconut needs 50 kg N per acre."},
		{"json response with padding", "  {\"response\": \"ok\", \"sources\": [\"TNAU\"]}\n", "ok"},
		{"label prefix", "Response: Use 50 kg urea", "Use 50 kg urea"},
		{"several labels", "explanation: low pH. Severity: high", "low pH. high"},
		{"emphasis", "**Use** *zinc* sulphate", "Use zinc sulphate"},
		{"structural punctuation", `["one", "two"]`, "one, two"},
		{"leading colons", ": first\n  : second", "first\nsecond"},
		{"fenced block", "Here\n```json\n{}\n```\nthanks", "Here thanks"},
		{"whitespace collapsed", "a   b\n\n c\t\td ", "a b c d"},
		{"leading brace of broken json", `{ "Coconut needs 50 kg`, "Coconut needs 50 kg"},
		{"tamil passes through", "நம்ம தென்னைக்கு 50 kg போடுங்க", "நம்ம தென்னைக்கு 50 kg போடுங்க"},
		{"tamil inside json", `{"response": "நம்ம தென்னைக்கு 50 kg"}`, "நம்ம தென்னைக்கு 50 kg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"plain answer",
		`{"response": "x"}`,
		`{"response": "{\"response\": \"nested\"}"}`,
		`{"summary": "x", "hidden_risks": [{"label": "Low pH", "severity": "high"}]}`,
		"response: response: twice",
		"responseresponse::",
		"** *** ****",
		"``` unterminated fence",
		"```a``````b```",
		": : :",
		"label\n:\n:detail",
		"{\n\"response\"\n:\n\"split\"\n}",
		"a\u00a0\u00a0b",
		"text with \"quotes\" and [brackets] and {braces}",
		"explanation :source: sources :",
	}

	for _, in := range inputs {
		once := Sanitize(in)
		twice := Sanitize(once)
		assert.Equal(t, once, twice, "input %q", in)
	}
}

func TestExtractResponse(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"bare object", `{"response": "hello"}`, "hello", true},
		{"fenced object", "Sure:\n```json\n{\"response\": \"fenced\"}\n```", "fenced", true},
		{"object inside prose", `Answer follows {"response": "inner", "sources": []} done`, "inner", true},
		{"no object", "just text", "just text", false},
		{"object without response", `{"summary": "s"}`, `{"summary": "s"}`, false},
		{"non-string response", `{"response": 42}`, `{"response": 42}`, false},
		{"malformed json", `{"response": "cut off`, `{"response": "cut off`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractResponse(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
