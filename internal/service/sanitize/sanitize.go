// Package sanitize turns raw generated text into plain prose that a speech
// synthesizer can read aloud.
package sanitize

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	labelPattern     = regexp.MustCompile(`(?i)\b(response|hidden_risks?|explanation|sources?|severity|label|detail)\s*:`)
	structurePattern = regexp.MustCompile(`[{}"\[\]]`)
	leadColonPattern = regexp.MustCompile(`(?m)^\s*:\s*`)
	fencePattern     = regexp.MustCompile("```[\\s\\S]*?```")
	emphasisPattern  = regexp.MustCompile(`\*{1,2}`)
	spacePattern     = regexp.MustCompile(`\s{2,}`)

	jsonFencePattern  = regexp.MustCompile("```json\\s*([\\s\\S]*?)```")
	jsonObjectPattern = regexp.MustCompile(`\{[\s\S]*\}`)
)

// Sanitize returns the speakable form of raw.
//
// The steps run in order: unwrap a structured "response" field, drop field
// labels, drop structural punctuation and leading colons, drop fenced blocks
// and emphasis, then collapse whitespace. The steps are repeated until the
// text stops changing, which makes Sanitize idempotent. A pass that changes
// the text always shortens it, so the loop terminates.
func Sanitize(raw string) string {
	text := raw
	for {
		next := pass(text)
		if next == text {
			return text
		}
		text = next
	}
}

func pass(text string) string {
	if v, ok := responseField(text); ok {
		text = v
	}
	text = labelPattern.ReplaceAllString(text, "")
	text = structurePattern.ReplaceAllString(text, "")
	text = leadColonPattern.ReplaceAllString(text, "")
	text = fencePattern.ReplaceAllString(text, "")
	text = emphasisPattern.ReplaceAllString(text, "")
	text = spacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// responseField returns the "response" string of text when text is a JSON
// object carrying one.
func responseField(text string) (string, bool) {
	var obj struct {
		Response *string `json:"response"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &obj); err != nil || obj.Response == nil {
		return "", false
	}
	return *obj.Response, true
}

// ExtractResponse looks for a JSON object with a "response" field anywhere in
// raw: the whole text, a ```json fence, or the outermost braces. When none is
// found raw is returned unchanged with ok false, so malformed output still
// serves as the answer.
func ExtractResponse(raw string) (text string, ok bool) {
	if v, found := responseField(raw); found {
		return v, true
	}
	if m := jsonFencePattern.FindStringSubmatch(raw); m != nil {
		if v, found := responseField(m[1]); found {
			return v, true
		}
	}
	if m := jsonObjectPattern.FindString(raw); m != "" {
		if v, found := responseField(m); found {
			return v, true
		}
	}
	return raw, false
}
