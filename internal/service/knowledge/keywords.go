package knowledge

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var defaultKeywords []byte

// ErrEmptyKeywordTable is returned when a keyword document binds no terms.
var ErrEmptyKeywordTable = errors.New("keyword table has no sections")

type keywordDoc struct {
	Sections []struct {
		Title    string   `yaml:"title"`
		Keywords []string `yaml:"keywords"`
	} `yaml:"sections"`
	Slim []string `yaml:"slim"`
}

// termEntry binds one lowercased trigger term to every section it selects.
type termEntry struct {
	term   string
	titles []string
}

// KeywordTable maps trigger terms to section titles. It is stored inverted
// (term to titles) so a larger vocabulary does not change matching semantics:
// any term found in the query selects its whole section.
type KeywordTable struct {
	titles []string
	terms  []termEntry
	slim   []string
}

// ParseKeywords builds a table from a YAML document.
func ParseKeywords(data []byte) (*KeywordTable, error) {
	var doc keywordDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse keyword table: %w", err)
	}
	if len(doc.Sections) == 0 {
		return nil, ErrEmptyKeywordTable
	}

	t := &KeywordTable{}
	positions := make(map[string]int)

	for _, s := range doc.Sections {
		title := strings.ToUpper(strings.TrimSpace(s.Title))
		if title == "" {
			return nil, fmt.Errorf("parse keyword table: section with empty title")
		}
		t.titles = append(t.titles, title)

		for _, kw := range s.Keywords {
			term := strings.ToLower(strings.TrimSpace(kw))
			if term == "" {
				continue
			}
			pos, ok := positions[term]
			if !ok {
				pos = len(t.terms)
				positions[term] = pos
				t.terms = append(t.terms, termEntry{term: term})
			}
			if !contains(t.terms[pos].titles, title) {
				t.terms[pos].titles = append(t.terms[pos].titles, title)
			}
		}
	}

	for _, s := range doc.Slim {
		if title := strings.ToUpper(strings.TrimSpace(s)); title != "" {
			t.slim = append(t.slim, title)
		}
	}
	return t, nil
}

// DefaultKeywords returns the embedded keyword table.
func DefaultKeywords() *KeywordTable {
	t, err := ParseKeywords(defaultKeywords)
	if err != nil {
		panic(fmt.Sprintf("knowledge: embedded keyword table: %v", err))
	}
	return t
}

// Match returns the titles of every section with a term contained in the
// lowercased query. Titles are deduplicated; ordering is left to the caller.
func (t *KeywordTable) Match(query string) []string {
	q := strings.ToLower(query)
	if strings.TrimSpace(q) == "" {
		return nil
	}

	var matched []string
	for _, e := range t.terms {
		if !strings.Contains(q, e.term) {
			continue
		}
		for _, title := range e.titles {
			if !contains(matched, title) {
				matched = append(matched, title)
			}
		}
	}
	return matched
}

// Titles returns the sections the table declares, in declaration order.
func (t *KeywordTable) Titles() []string {
	return append([]string(nil), t.titles...)
}

// Slim returns the titles of the fixed bundle used for short unmatched queries.
func (t *KeywordTable) Slim() []string {
	return append([]string(nil), t.slim...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
